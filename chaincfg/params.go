// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines per-network consensus parameters: genesis
// blocks, retarget constants, BIP16/34/65/66 activation points, the BIP9
// deployment table, and checkpoints.
package chaincfg

import (
	"errors"
	"math/big"
	"time"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/wire"
)

// DeploymentBit defines the specific bit number within the block version
// this particular soft-fork deployment refers to.
type DeploymentBit uint8

// Soft-fork deployment identifiers, indexing into Params.Deployments.
const (
	DeploymentTestDummy DeploymentBit = iota
	DeploymentCSV
	DeploymentSegwit
	DeploymentTaproot

	// DefinedDeployments is the number of deployments defined in the
	// table above and thus the maximum allowed deployment bit index.
	DefinedDeployments
)

// ConsensusDeployment defines details related to a specific consensus rule
// change that is voted in.  This is part of BIP0009.
type ConsensusDeployment struct {
	// BitNumber defines the specific bit number within the block version
	// this particular soft-fork deployment refers to.
	BitNumber uint8

	// StartTime is the median block time after which voting on the
	// deployment starts.
	StartTime uint64

	// ExpireTime is the median block time after which the attempted
	// deployment expires, if it hasn't already been locked in or
	// activated.
	ExpireTime uint64
}

// Checkpoint identifies a known good point in the block chain.  Using
// checkpoints allows a node to avoid fully validating a known invalid fork
// and enables rejecting forks below the checkpoint height outright.
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// Params defines a flokicoin-style network by its parameters.  These
// parameters may be used by chain engine clients to allow or restrict
// peers from connecting and further processing.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the starting block hash, cached from GenesisBlock so
	// it does not need to be recomputed at every genesis-equality check.
	GenesisHash *chainhash.Hash

	// PowLimit defines the highest allowed proof of work value for a
	// block as a uint256.
	PowLimit *big.Int

	// PowLimitBits is the highest allowed proof of work value for a block
	// in compact form.
	PowLimitBits uint32

	// These fields define the block subsidy halving and height/time-gated
	// soft fork activation points.
	SubsidyReductionInterval int32
	CoinbaseMaturity         uint16
	BIP0016Time              int64
	BIP0034Height            int32
	BIP0065Height            int32
	BIP0066Height            int32

	// These fields define the retarget algorithm.
	TargetTimespan          time.Duration
	TargetTimePerBlock      time.Duration
	RetargetAdjustmentFactor int64
	ReduceMinDifficulty     bool
	MinDiffReductionTime    time.Duration
	PoWNoRetargeting        bool
	EnforceTimewarpGuard    bool

	// MinKnownChainWork, when non-nil, is the minimum cumulative
	// chainwork the sync gate (spec.md §4.7) requires before declaring
	// the node synced.
	MinKnownChainWork *big.Int

	// MaxTipAge is the maximum allowed age (now - tip.time) for the node
	// to be considered synced.
	MaxTipAge time.Duration

	// Checkpoints ordered by height.
	Checkpoints []Checkpoint

	// BIP0030Exceptions maps (height -> hash) for the two historical
	// blocks that violate the BIP0030 duplicate-coinbase rule.
	BIP0030Exceptions map[int32]chainhash.Hash

	// Deployments defines the specific consensus rule changes to be voted
	// on for this network, along with the bit they signal in.
	Deployments [DefinedDeployments]ConsensusDeployment

	// RuleChangeActivationThreshold is the number of blocks in a period
	// that must signal for a soft-fork to lock in, and MinerConfirmationWindow
	// is the length of a period, both for BIP0009.
	RuleChangeActivationThreshold uint32
	MinerConfirmationWindow       uint32
}

// ErrDuplicateNet describes an error where a network with the same name
// was already registered.
var ErrDuplicateNet = errors.New("duplicate network")

var registeredNets = make(map[string]*Params)

// Register registers the network parameters for a flokicoin network so it
// can later be looked up by name with NetworkByName. It returns an error if
// the network is already registered.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Name]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Name] = params
	return nil
}

// NetworkByName returns the previously Register-ed *Params for name, or
// nil if no such network was registered.
func NetworkByName(name string) *Params {
	return registeredNets[name]
}

func init() {
	_ = Register(&MainNetParams)
	_ = Register(&TestNetParams)
	_ = Register(&RegressionNetParams)
}

// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/ledgercore/ledgercore/chaincfg"
	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
)

// BehaviorFlags is a bitmask defining tweaks to the normal behavior when
// performing chain processing and consensus rule checks.
type BehaviorFlags uint32

const (
	// BFFastAdd may be set to indicate that several checks can be avoided
	// for the block since it is already known to fit into the chain due
	// to already proving it correct links into the chain up to a known
	// checkpoint.
	BFFastAdd BehaviorFlags = 1 << iota

	// BFNoPoWCheck may be set to indicate the proof of work check should
	// be skipped, used when validating a block template the engine
	// itself just produced.
	BFNoPoWCheck

	// BFNone is a convenience value to specifically indicate no flags.
	BFNone BehaviorFlags = 0
)

// HasFlag returns whether the BehaviorFlags instance has the passed flag
// set.
func (b BehaviorFlags) HasFlag(flag BehaviorFlags) bool {
	return b&flag == flag
}

// HeaderCtx is the set of header-only methods needed by the difficulty and
// versionbits algorithms to walk backward through ancestors without needing
// the full ChainEntry type, so those algorithms can be exercised against any
// header-bearing type.
type HeaderCtx interface {
	Height() int32
	Bits() uint32
	Timestamp() int64
	BlockVersion() int32
	Parent() HeaderCtx

	// RelativeAncestorCtx returns the ancestor distance blocks before
	// this node, or nil if no such ancestor exists.
	RelativeAncestorCtx(distance int32) HeaderCtx
}

// ChainCtx supplies the network parameters and derived constants that the
// difficulty and versionbits algorithms need but that do not belong on any
// individual header.
type ChainCtx interface {
	ChainParams() *chaincfg.Params

	// BlocksPerRetarget returns the number of blocks before retargeting
	// occurs.
	BlocksPerRetarget() int32

	// MinRetargetTimespan returns the minimum amount of time to use in
	// the difficulty calculation, in seconds.
	MinRetargetTimespan() int64

	// MaxRetargetTimespan returns the maximum amount of time to use in
	// the difficulty calculation, in seconds.
	MaxRetargetTimespan() int64

	// VerifyCheckpoint returns whether the passed height and hash match
	// a hard-coded checkpoint.
	VerifyCheckpoint(height int32, hash *chainhash.Hash) bool

	// FindPreviousCheckpoint returns the most recent checkpoint entry
	// known, or nil if no such entry exists.
	FindPreviousCheckpoint() (HeaderCtx, error)
}

// ThresholdState define the various states a soft-fork deployment can be in,
// per the BIP0009 versionbits state machine.
type ThresholdState byte

const (
	// ThresholdDefined is the first state for each deployment. It is the
	// state before the deployment has any votes tallied, and so is also
	// the state that the genesis block is in.
	ThresholdDefined ThresholdState = iota

	// ThresholdStarted is the state for a deployment once its start time
	// has been reached.
	ThresholdStarted

	// ThresholdLockedIn is the state for a deployment during the retarget
	// period which it has reached the required number of votes.
	ThresholdLockedIn

	// ThresholdActive is the state for a deployment for all blocks after
	// the retarget period in which the deployment locked in.
	ThresholdActive

	// ThresholdFailed is the state for a deployment once its expiration
	// time has been reached and it did not reach the ThresholdLockedIn
	// state.
	ThresholdFailed
)

// thresholdStateStrings is a map of ThresholdState values back to their
// constant names for pretty printing.
var thresholdStateStrings = map[ThresholdState]string{
	ThresholdDefined:  "ThresholdDefined",
	ThresholdStarted:  "ThresholdStarted",
	ThresholdLockedIn: "ThresholdLockedIn",
	ThresholdActive:   "ThresholdActive",
	ThresholdFailed:   "ThresholdFailed",
}

// String returns the ThresholdState as a human-readable name.
func (t ThresholdState) String() string {
	if s, ok := thresholdStateStrings[t]; ok {
		return s
	}
	return "Unknown ThresholdState"
}

// calcPastMedianTime returns the median time of the previous few blocks,
// implementing the MTP definition used throughout the consensus rules:
// the median of the timestamps of the last 11 blocks (or fewer, near the
// genesis block).
func calcPastMedianTime(node HeaderCtx) time.Time {
	timestamps := make([]int64, 0, medianTimeBlocks)
	iterNode := node
	for i := 0; i < medianTimeBlocks && iterNode != nil; i++ {
		timestamps = append(timestamps, iterNode.Timestamp())
		iterNode = iterNode.Parent()
	}

	timestamps = timestamps[:len(timestamps)]
	sortInt64s(timestamps)

	medianTimestamp := timestamps[len(timestamps)/2]
	return time.Unix(medianTimestamp, 0)
}

// medianTimeBlocks is the number of previous blocks which should be used to
// calculate the median time used to validate block timestamps.
const medianTimeBlocks = 11

// sortInt64s sorts a slice of int64 in place using a simple insertion sort;
// the slices involved are always tiny (at most medianTimeBlocks long).
func sortInt64s(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
)

func bigFromBits(bits uint) *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
}

func mustHash(s string) *chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return h
}

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:         "mainnet",
	GenesisBlock: &MainGenesisBlock,
	GenesisHash:  genesisHashOf(&MainGenesisBlock),

	PowLimit:     bigFromBits(224),
	PowLimitBits: 0x1d00ffff,

	SubsidyReductionInterval: 210000,
	CoinbaseMaturity:         100,
	BIP0016Time:              1333238400,
	BIP0034Height:            227931,
	BIP0065Height:            388381,
	BIP0066Height:            363725,

	TargetTimespan:           14 * 24 * time.Hour,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetAdjustmentFactor: 4,
	MaxTipAge:                24 * time.Hour,

	BIP0030Exceptions: map[int32]chainhash.Hash{
		91842: *mustHash("00000000000a4d0a398161ffc163c503763b1f4360639393e0e4c8e300e0caec"),
		91880: *mustHash("00000000000743f190a18c5577a3c2d2a1f610ae9601ac046a38084ccb7cd721"),
	},

	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {BitNumber: 28, StartTime: 1199145601, ExpireTime: 1230767999},
		DeploymentCSV:       {BitNumber: 0, StartTime: 1462060800, ExpireTime: 1493596800},
		DeploymentSegwit:    {BitNumber: 1, StartTime: 1479168000, ExpireTime: 1510704000},
		DeploymentTaproot:   {BitNumber: 2, StartTime: 1619222400, ExpireTime: 1628640000},
	},
	RuleChangeActivationThreshold: 1916,
	MinerConfirmationWindow:       2016,
}

// TestNetParams defines the network parameters for the test network.
var TestNetParams = Params{
	Name:         "testnet",
	GenesisBlock: &TestNetGenesisBlock,
	GenesisHash:  genesisHashOf(&TestNetGenesisBlock),

	PowLimit:     bigFromBits(224),
	PowLimitBits: 0x1d00ffff,

	SubsidyReductionInterval: 210000,
	CoinbaseMaturity:         100,
	BIP0016Time:              1333238400,
	BIP0034Height:            21111,
	BIP0065Height:            581885,
	BIP0066Height:            330776,

	TargetTimespan:           14 * 24 * time.Hour,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetAdjustmentFactor: 4,
	ReduceMinDifficulty:      true,
	MinDiffReductionTime:     20 * time.Minute,
	MaxTipAge:                24 * time.Hour,

	BIP0030Exceptions: map[int32]chainhash.Hash{},

	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {BitNumber: 28, StartTime: 1199145601, ExpireTime: 1230767999},
		DeploymentCSV:       {BitNumber: 0, StartTime: 1456790400, ExpireTime: 1493596800},
		DeploymentSegwit:    {BitNumber: 1, StartTime: 1462060800, ExpireTime: 1493596800},
		DeploymentTaproot:   {BitNumber: 2, StartTime: 1619222400, ExpireTime: 1628640000},
	},
	RuleChangeActivationThreshold: 1512,
	MinerConfirmationWindow:       2016,
}

// RegressionNetParams defines the network parameters for the regression
// test network, where difficulty does not retarget and soft-fork voting
// uses short 144-block windows.
var RegressionNetParams = Params{
	Name:         "regtest",
	GenesisBlock: &RegTestGenesisBlock,
	GenesisHash:  genesisHashOf(&RegTestGenesisBlock),

	PowLimit:     bigFromBits(255),
	PowLimitBits: 0x207fffff,

	SubsidyReductionInterval: 150,
	CoinbaseMaturity:         100,
	BIP0016Time:              0,
	BIP0034Height:            100000000,
	BIP0065Height:            1351,
	BIP0066Height:            1251,

	TargetTimespan:           14 * 24 * time.Hour,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetAdjustmentFactor: 4,
	PoWNoRetargeting:         true,
	MaxTipAge:                0, // regtest nodes are always considered synced once past checkpoints

	BIP0030Exceptions: map[int32]chainhash.Hash{},

	Deployments: [DefinedDeployments]ConsensusDeployment{
		DeploymentTestDummy: {BitNumber: 28, StartTime: 0, ExpireTime: 9223372036854775807},
		DeploymentCSV:       {BitNumber: 0, StartTime: 0, ExpireTime: 9223372036854775807},
		DeploymentSegwit:    {BitNumber: 1, StartTime: 0, ExpireTime: 9223372036854775807},
		DeploymentTaproot:   {BitNumber: 2, StartTime: 0, ExpireTime: 9223372036854775807},
	},
	RuleChangeActivationThreshold: 108,
	MinerConfirmationWindow:       144,
}

func genesisHashOf(b interface{ BlockHash() chainhash.Hash }) *chainhash.Hash {
	h := b.BlockHash()
	return &h
}

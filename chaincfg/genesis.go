// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"encoding/hex"
	"time"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/wire"
)

func generateGenesisCoinbaseTx(timestamp string, reward int64, outputScript []byte) *wire.MsgTx {
	pszTimestampBytes := []byte(timestamp)
	sigScript := append(
		[]byte{0x04, 0xff, 0xff, 0x00, 0x1d, 0x01, 0x04},
		append([]byte{byte(len(pszTimestampBytes))}, pszTimestampBytes...)...,
	)

	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{
				PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
				SignatureScript:  sigScript,
				Sequence:         0xffffffff,
			},
		},
		TxOut: []*wire.TxOut{
			{Value: reward, PkScript: outputScript},
		},
		LockTime: 0,
	}
}

// genesisMerkleRoot recomputes the merkle root for a genesis block's single
// coinbase transaction rather than hard-coding it, so the generator and the
// block it produces can never drift apart.
func genesisMerkleRoot(tx *wire.MsgTx) chainhash.Hash {
	return tx.TxHash()
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

var genesisOutputScript = mustHex("4104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac")

var mainGenesisCoinbaseTx = generateGenesisCoinbaseTx(
	"The Times 03/Jan/2009 Chancellor on brink of second bailout for banks",
	50*1e8, genesisOutputScript,
)

// MainGenesisBlock defines the genesis block of the block chain which
// serves as the public transaction ledger for the main network.
var MainGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot(mainGenesisCoinbaseTx),
		Timestamp:  time.Unix(1231006505, 0),
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	},
	Transactions: []*wire.MsgTx{mainGenesisCoinbaseTx},
}

var testNetGenesisCoinbaseTx = generateGenesisCoinbaseTx(
	"testnet genesis ledgercore 2024",
	50*1e8, genesisOutputScript,
)

// TestNetGenesisBlock defines the genesis block of the block chain which
// serves as the public transaction ledger for the test network.
var TestNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot(testNetGenesisCoinbaseTx),
		Timestamp:  time.Unix(1735376054, 0),
		Bits:       0x1d00ffff,
		Nonce:      414098458,
	},
	Transactions: []*wire.MsgTx{testNetGenesisCoinbaseTx},
}

var regTestGenesisCoinbaseTx = generateGenesisCoinbaseTx(
	"regtest genesis ledgercore 2024",
	50*1e8, genesisOutputScript,
)

// RegTestGenesisBlock defines the genesis block of the block chain which
// serves as the public transaction ledger for the regression test network.
var RegTestGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot(regTestGenesisCoinbaseTx),
		Timestamp:  time.Unix(1296688602, 0),
		Bits:       0x207fffff,
		Nonce:      2,
	},
	Transactions: []*wire.MsgTx{regTestGenesisCoinbaseTx},
}

// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/wire"
)

func makeTestTx(lockTime uint32) *chainutil.Tx {
	var prevHash chainhash.Hash
	msgTx := wire.NewMsgTx(1)
	msgTx.LockTime = lockTime
	msgTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, lockTime), []byte{0x51}, nil))
	msgTx.AddTxOut(wire.NewTxOut(5000000000, []byte{0x51}))
	return chainutil.NewTx(msgTx)
}

func TestCalcMerkleRootSingleTx(t *testing.T) {
	tx := makeTestTx(0)
	got := CalcMerkleRoot([]*chainutil.Tx{tx}, false)
	want := *tx.Hash()
	if got != want {
		t.Fatalf("CalcMerkleRoot with one tx = %v, want %v (the tx hash itself)", got, want)
	}
}

func TestCalcMerkleRootDeterministicOrder(t *testing.T) {
	txs := []*chainutil.Tx{makeTestTx(1), makeTestTx(2), makeTestTx(3)}

	first := CalcMerkleRoot(txs, false)
	second := CalcMerkleRoot(txs, false)
	if first != second {
		t.Fatalf("CalcMerkleRoot is not deterministic: %v != %v", first, second)
	}

	reordered := []*chainutil.Tx{txs[1], txs[0], txs[2]}
	if got := CalcMerkleRoot(reordered, false); got == first {
		t.Fatal("CalcMerkleRoot did not change when transaction order changed")
	}
}

func TestCalcMerkleRootEmpty(t *testing.T) {
	if got := CalcMerkleRoot(nil, false); got != (chainhash.Hash{}) {
		t.Fatalf("CalcMerkleRoot(nil) = %v, want the zero hash", got)
	}
}

func TestBuildMerkleTreeStoreOddCountDuplicatesLast(t *testing.T) {
	txs := []*chainutil.Tx{makeTestTx(1), makeTestTx(2), makeTestTx(3)}
	tree := BuildMerkleTreeStore(txs, false)

	if len(tree) != 7 {
		t.Fatalf("len(tree) = %d, want 7 for 3 leaves padded to 4", len(tree))
	}
	if want := HashMerkleBranches(tree[2], tree[2]); *tree[5] != *want {
		t.Fatalf("odd leaf was not paired with itself: tree[5]=%v want %v", tree[5], want)
	}
}

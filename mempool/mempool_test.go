// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool_test

import (
	"testing"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/mempool"
	"github.com/ledgercore/ledgercore/wire"
)

func newSpendingTx(prevHash chainhash.Hash, prevIndex uint32, value int64) *chainutil.Tx {
	msgTx := wire.NewMsgTx(1)
	msgTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, prevIndex), []byte{0x51}, nil))
	msgTx.AddTxOut(wire.NewTxOut(value, []byte{0x51}))
	return chainutil.NewTx(msgTx)
}

func TestTxPoolAddAndHave(t *testing.T) {
	pool := mempool.New()

	var parentHash chainhash.Hash
	parentHash[0] = 1
	tx := newSpendingTx(parentHash, 0, 5000)

	if pool.HaveTransaction(tx.Hash()) {
		t.Fatal("pool reports having a transaction before it was added")
	}

	if _, err := pool.AddTransaction(tx, 10, 100); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if !pool.HaveTransaction(tx.Hash()) {
		t.Fatal("pool does not report having just-added transaction")
	}
	if got := pool.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}

	if _, err := pool.AddTransaction(tx, 10, 100); err == nil {
		t.Fatal("expected error re-adding the same transaction")
	}
}

func TestTxPoolMiningDescs(t *testing.T) {
	pool := mempool.New()

	var parentHash chainhash.Hash
	parentHash[0] = 2
	tx := newSpendingTx(parentHash, 0, 100000)

	desc, err := pool.AddTransaction(tx, 20, 2000)
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if desc.FeePerKB <= 0 {
		t.Fatalf("FeePerKB = %d, want > 0", desc.FeePerKB)
	}

	descs := pool.MiningDescs()
	if len(descs) != 1 || descs[0].Tx.Hash().String() != tx.Hash().String() {
		t.Fatalf("MiningDescs() = %+v, want one descriptor for %v", descs, tx.Hash())
	}
}

func TestTxPoolRemoveTransactionCascades(t *testing.T) {
	pool := mempool.New()

	var parentHash chainhash.Hash
	parentHash[0] = 3
	parent := newSpendingTx(parentHash, 0, 50000)
	if _, err := pool.AddTransaction(parent, 5, 500); err != nil {
		t.Fatalf("AddTransaction(parent): %v", err)
	}

	child := newSpendingTx(*parent.Hash(), 0, 40000)
	if _, err := pool.AddTransaction(child, 6, 500); err != nil {
		t.Fatalf("AddTransaction(child): %v", err)
	}

	pool.RemoveTransaction(parent, true, mempool.RemovalReasonBlock)

	if pool.HaveTransaction(parent.Hash()) {
		t.Fatal("parent still present after RemoveTransaction")
	}
	if pool.HaveTransaction(child.Hash()) {
		t.Fatal("child was not cascaded away with its parent")
	}
	if got := pool.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
}

func TestTxPoolRejectsCoinbase(t *testing.T) {
	pool := mempool.New()

	msgTx := wire.NewMsgTx(1)
	msgTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0xffffffff), []byte{0x00, 0x51}, nil))
	msgTx.AddTxOut(wire.NewTxOut(5000000000, []byte{0x51}))
	coinbase := chainutil.NewTx(msgTx)

	if _, err := pool.AddTransaction(coinbase, 1, 0); err == nil {
		t.Fatal("expected error adding an individual coinbase transaction")
	}
}

// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"sync"
	"time"

	"github.com/ledgercore/ledgercore/blockchain"
	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/wire"
)

// TxDesc is a descriptor about a transaction in a TxSource, carrying the
// metadata the template builder's priority and fee-rate queues need.
type TxDesc struct {
	// Tx is the pooled transaction itself.
	Tx *chainutil.Tx

	// Added is when the transaction entered the pool.
	Added time.Time

	// Height is the chain height at the time the transaction was added.
	Height int32

	// Fee is the total fee the transaction pays, in base units.
	Fee int64

	// FeePerKB is Fee scaled to a per-1000-byte rate, the metric the
	// fee-rate queue orders by.
	FeePerKB int64
}

// TxSource represents a snapshot-only source of candidate transactions for
// block template assembly. Every method must be safe for concurrent use.
type TxSource interface {
	// LastUpdated returns the last time a transaction was added to or
	// removed from the source.
	LastUpdated() time.Time

	// MiningDescs returns a descriptor for every transaction currently
	// in the source.
	MiningDescs() []*TxDesc

	// HaveTransaction reports whether hash is already known to the
	// source.
	HaveTransaction(hash *chainhash.Hash) bool
}

// TxPool is the minimal not-yet-mined transaction pool described by
// mempool's doc comment. It keeps a flat map of candidate transactions and
// a spend index so RemoveTransaction can cascade to dependents.
type TxPool struct {
	mtx         sync.RWMutex
	pool        map[chainhash.Hash]*TxDesc
	outpoints   map[wire.OutPoint]chainhash.Hash
	lastUpdated time.Time
}

// New returns an empty TxPool.
func New() *TxPool {
	return &TxPool{
		pool:      make(map[chainhash.Hash]*TxDesc),
		outpoints: make(map[wire.OutPoint]chainhash.Hash),
	}
}

// haveTransaction is the lock-free core of HaveTransaction.
func (mp *TxPool) haveTransaction(hash *chainhash.Hash) bool {
	_, exists := mp.pool[*hash]
	return exists
}

// HaveTransaction reports whether hash already has an entry in the pool.
func (mp *TxPool) HaveTransaction(hash *chainhash.Hash) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.haveTransaction(hash)
}

// AddTransaction admits tx into the pool at the given height with the given
// total fee, rejecting it outright if it is a coinbase or otherwise fails
// CheckTransactionSanity. It does not check tx's inputs against any UTXO
// set; that is the caller's (and ultimately blockchain.CheckConnectBlock's)
// responsibility. Returns the descriptor recorded for tx.
func (mp *TxPool) AddTransaction(tx *chainutil.Tx, height int32, fee int64) (*TxDesc, error) {
	if blockchain.IsCoinBase(tx) {
		return nil, fmt.Errorf("transaction %v is an individual coinbase", tx.Hash())
	}
	if err := blockchain.CheckTransactionSanity(tx); err != nil {
		return nil, err
	}

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	hash := *tx.Hash()
	if _, exists := mp.pool[hash]; exists {
		return nil, fmt.Errorf("transaction %v already in pool", hash)
	}

	serializedSize := int64(tx.MsgTx().SerializeSize())
	feePerKB := fee * 1000 / serializedSize

	desc := &TxDesc{
		Tx:       tx,
		Added:    time.Now(),
		Height:   height,
		Fee:      fee,
		FeePerKB: feePerKB,
	}
	mp.pool[hash] = desc
	for _, txIn := range tx.MsgTx().TxIn {
		mp.outpoints[txIn.PreviousOutPoint] = hash
	}
	mp.lastUpdated = desc.Added

	return desc, nil
}

// RemoveTransaction removes tx from the pool. If removeRedeemers is true,
// every pooled transaction that spends one of tx's outputs is removed too
// (recursively), with the same reason.
func (mp *TxPool) RemoveTransaction(tx *chainutil.Tx, removeRedeemers bool, reason RemovalReason) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	mp.removeTransaction(tx, removeRedeemers)
}

func (mp *TxPool) removeTransaction(tx *chainutil.Tx, removeRedeemers bool) {
	txHash := *tx.Hash()

	if removeRedeemers {
		prevOut := wire.OutPoint{Hash: txHash}
		for i := uint32(0); i < uint32(len(tx.MsgTx().TxOut)); i++ {
			prevOut.Index = i
			if redeemerHash, ok := mp.outpoints[prevOut]; ok {
				if redeemer, exists := mp.pool[redeemerHash]; exists {
					mp.removeTransaction(redeemer.Tx, true)
				}
			}
		}
	}

	desc, exists := mp.pool[txHash]
	if !exists {
		return
	}
	for _, txIn := range desc.Tx.MsgTx().TxIn {
		delete(mp.outpoints, txIn.PreviousOutPoint)
	}
	delete(mp.pool, txHash)
	mp.lastUpdated = time.Now()
}

// MiningDescs returns a descriptor for every transaction currently pooled,
// implementing mining.TxSource.
func (mp *TxPool) MiningDescs() []*TxDesc {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	return descs
}

// LastUpdated returns the last time a transaction was added to or removed
// from the pool.
func (mp *TxPool) LastUpdated() time.Time {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.lastUpdated
}

// Count returns the number of transactions currently pooled.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return len(mp.pool)
}

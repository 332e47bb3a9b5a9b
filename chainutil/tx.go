// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil

import (
	"bytes"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/wire"
)

// TxIndexUnknown is the value returned for a transaction index that is
// unknown. This is typically because the transaction has not been inserted
// into a block yet.
const TxIndexUnknown = -1

// Tx defines a wrapper around a wire.MsgTx that provides easier and more
// efficient manipulation of raw transactions. It also memoizes the two
// hashes the validator recomputes most often: the legacy txid (excludes
// witness data) and the BIP141 witness id.
type Tx struct {
	msgTx        *wire.MsgTx
	txHash       *chainhash.Hash
	txHashWitness *chainhash.Hash
	txHasWitness *bool
	txIndex      int
}

// MsgTx returns the underlying wire.MsgTx for the transaction.
func (t *Tx) MsgTx() *wire.MsgTx {
	return t.msgTx
}

// Hash returns the non-witness hash (txid) of the transaction, memoizing it
// on first call.
func (t *Tx) Hash() *chainhash.Hash {
	if t.txHash != nil {
		return t.txHash
	}

	hash := t.msgTx.TxHash()
	t.txHash = &hash
	return &hash
}

// WitnessHash returns the witness hash (wtxid) of the transaction,
// memoizing it on first call.
func (t *Tx) WitnessHash() *chainhash.Hash {
	if t.txHashWitness != nil {
		return t.txHashWitness
	}

	hash := t.msgTx.WitnessHash()
	t.txHashWitness = &hash
	return &hash
}

// HasWitness returns whether or not the transaction has witness data,
// memoizing the computed answer on first call.
func (t *Tx) HasWitness() bool {
	if t.txHasWitness != nil {
		return *t.txHasWitness
	}

	hasWitness := t.msgTx.HasWitness()
	t.txHasWitness = &hasWitness
	return hasWitness
}

// Index returns the saved index of the transaction within a block, or
// TxIndexUnknown if it has not been set.
func (t *Tx) Index() int {
	return t.txIndex
}

// SetIndex sets the index of the transaction within a block.
func (t *Tx) SetIndex(index int) {
	t.txIndex = index
}

// NewTx returns a new instance of a transaction given an underlying
// wire.MsgTx. The transaction will have a txIndex of TxIndexUnknown.
func NewTx(msgTx *wire.MsgTx) *Tx {
	return &Tx{
		msgTx:   msgTx,
		txIndex: TxIndexUnknown,
	}
}

// NewTxFromBytes returns a new instance of a transaction given its
// serialized bytes.
func NewTxFromBytes(serializedTx []byte) (*Tx, error) {
	br := bytes.NewReader(serializedTx)
	return NewTxFromReader(br)
}

// NewTxFromReader returns a new instance of a transaction given a Reader to
// deserialize the transaction.
func NewTxFromReader(r *bytes.Reader) (*Tx, error) {
	msgTx := new(wire.MsgTx)
	if err := msgTx.Deserialize(r); err != nil {
		return nil, err
	}
	return &Tx{
		msgTx:   msgTx,
		txIndex: TxIndexUnknown,
	}, nil
}

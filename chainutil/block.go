// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil

import (
	"bytes"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/wire"
)

// OutOfRangeError describes an error due to accessing a slice out of range.
type OutOfRangeError string

func (e OutOfRangeError) Error() string {
	return string(e)
}

// Block defines a wrapper around a wire.MsgBlock that provides convenience
// functions for serializing and memoizing the values the chain engine
// recomputes most often: the block's hash, height within the best chain (if
// known), and its transactions wrapped as chainutil.Tx.
type Block struct {
	msgBlock        *wire.MsgBlock
	serializedBlock []byte
	blockHash       *chainhash.Hash
	height          int32
	transactions    []*Tx
	txnsGenerated   bool
}

// NewBlock returns a new instance of a chain block given the underlying
// wire.MsgBlock. The block will have a height of BlockHeightUnknown.
func NewBlock(msgBlock *wire.MsgBlock) *Block {
	return &Block{
		msgBlock: msgBlock,
		height:   BlockHeightUnknown,
	}
}

// NewBlockFromBytes returns a new instance of a chain block given the
// serialized bytes. The block will have a height of BlockHeightUnknown.
func NewBlockFromBytes(serializedBlock []byte) (*Block, error) {
	br := bytes.NewReader(serializedBlock)
	b, err := NewBlockFromReader(br)
	if err != nil {
		return nil, err
	}
	b.serializedBlock = serializedBlock
	return b, nil
}

// NewBlockFromReader returns a new instance of a chain block given a
// Reader to deserialize the block. The block will have a height of
// BlockHeightUnknown.
func NewBlockFromReader(r *bytes.Reader) (*Block, error) {
	msgBlock := new(wire.MsgBlock)
	if err := msgBlock.Deserialize(r); err != nil {
		return nil, err
	}
	return &Block{
		msgBlock: msgBlock,
		height:   BlockHeightUnknown,
	}, nil
}

// MsgBlock returns the underlying wire.MsgBlock for the chain block.
func (b *Block) MsgBlock() *wire.MsgBlock {
	return b.msgBlock
}

// Bytes returns the serialized bytes for the block, memoizing them on first
// call so repeat calls are free.
func (b *Block) Bytes() ([]byte, error) {
	if len(b.serializedBlock) != 0 {
		return b.serializedBlock, nil
	}

	var w bytes.Buffer
	if err := b.msgBlock.Serialize(&w); err != nil {
		return nil, err
	}
	serializedBlock := w.Bytes()

	b.serializedBlock = serializedBlock
	return serializedBlock, nil
}

// Hash returns the block identifier hash for the Block, memoizing it on
// first call.
func (b *Block) Hash() *chainhash.Hash {
	if b.blockHash != nil {
		return b.blockHash
	}

	hash := b.msgBlock.BlockHash()
	b.blockHash = &hash
	return &hash
}

// Transactions returns a slice of wrapped transactions for the block,
// building the slice of Tx wrappers only once.
func (b *Block) Transactions() []*Tx {
	if b.txnsGenerated {
		return b.transactions
	}

	b.transactions = make([]*Tx, len(b.msgBlock.Transactions))
	for i, tx := range b.msgBlock.Transactions {
		newTx := NewTx(tx)
		newTx.SetIndex(i)
		b.transactions[i] = newTx
	}

	b.txnsGenerated = true
	return b.transactions
}

// Tx returns a wrapped transaction at the given index within the block, or
// an OutOfRangeError if the index is out of range.
func (b *Block) Tx(txNum int) (*Tx, error) {
	transactions := b.Transactions()
	if txNum < 0 || txNum >= len(transactions) {
		return nil, OutOfRangeError(
			"transaction index is out of range")
	}
	return transactions[txNum], nil
}

// Height returns the saved height of the block in the chain, or
// BlockHeightUnknown if it has not been set yet.
func (b *Block) Height() int32 {
	return b.height
}

// SetHeight sets the height of the block in the chain.
func (b *Block) SetHeight(height int32) {
	b.height = height
}

// BlockHeightUnknown is the value returned for a block height that is
// unknown. This is typically because the block has not been inserted into
// the main chain yet.
const BlockHeightUnknown = int32(-1)

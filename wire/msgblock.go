// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
)

// maxTxPerBlock is a sanity ceiling on the number of transactions a
// deserialized block may claim; the real consensus limit on serialized
// size is enforced by the blockchain package, not here.
const maxTxPerBlock = 1000000

// MsgBlock implements the Message interface and represents a flokicoin
// block message.  It is used to deliver block and transaction information
// in response to a getdata message (MsgGetData) for a given block hash.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// ClearTransactions removes all transactions from the message.
func (msg *MsgBlock) ClearTransactions() {
	msg.Transactions = make([]*MsgTx, 0)
}

// BlockHash computes the block identifier hash for this block.
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

// Serialize encodes the block to w including any witness data.
func (msg *MsgBlock) Serialize(w io.Writer) error {
	if err := msg.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.Transactions))); err != nil {
		return err
	}
	for _, tx := range msg.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// SerializeSize returns the number of bytes it would take to serialize the
// block, including any witness data.
func (msg *MsgBlock) SerializeSize() int {
	var buf bytes.Buffer
	_ = msg.Serialize(&buf)
	return buf.Len()
}

// SerializeSizeStripped returns the number of bytes it would take to
// serialize the block, excluding any witness data from transactions.
func (msg *MsgBlock) SerializeSizeStripped() int {
	n := BlockHeaderLen + VarIntSerializeSize(uint64(len(msg.Transactions)))
	for _, tx := range msg.Transactions {
		n += tx.SerializeSizeStripped()
	}
	return n
}

// Deserialize decodes a block from r.
func (msg *MsgBlock) Deserialize(r io.Reader) error {
	if err := msg.Header.Deserialize(r); err != nil {
		return err
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxTxPerBlock {
		return errNonCanonicalVarInt
	}

	msg.Transactions = make([]*MsgTx, count)
	for i := range msg.Transactions {
		tx := new(MsgTx)
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		msg.Transactions[i] = tx
	}
	return nil
}

// HasWitness returns true if any transaction in the block contains witness
// data.
func (msg *MsgBlock) HasWitness() bool {
	for _, tx := range msg.Transactions {
		if tx.HasWitness() {
			return true
		}
	}
	return false
}

// TxHashes returns a slice of hashes of all of transactions in this block,
// using the non-witness transaction id.
func (msg *MsgBlock) TxHashes() ([]chainhash.Hash, error) {
	hashes := make([]chainhash.Hash, len(msg.Transactions))
	for i, tx := range msg.Transactions {
		hashes[i] = tx.TxHash()
	}
	return hashes, nil
}

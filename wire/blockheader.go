// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
)

// BlockHeaderLen is the number of bytes in the canonical, fixed-size
// serialization of a block header: 4 (version) + 32 (prev block) + 32
// (merkle root) + 4 (time) + 4 (bits) + 4 (nonce).
const BlockHeaderLen = 80

// BlockHeader defines information about a block and is used in the
// flokicoin block (MsgBlock) and headers (MsgHeaders) messages.
type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	Version int32

	// Hash of the previous block header in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.  Encoded on the wire as a uint32 and
	// therefore limited to one second precision.
	Timestamp time.Time

	// Difficulty target for the block, in compact form.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint32
}

// NewBlockHeader returns a new BlockHeader using the provided version,
// previous block hash, merkle root hash, difficulty bits, and nonce used
// to generate the block with defaults for the remaining fields.
func NewBlockHeader(version int32, prevHash, merkleRootHash *chainhash.Hash, bits uint32, nonce uint32) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRootHash,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	return chainhash.DoubleHashRaw(func(w io.Writer) error {
		return writeBlockHeader(w, h)
	})
}

// Bytes returns the canonical 80-byte serialization of the header.
func (h *BlockHeader) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderLen))
	if err := h.Serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Serialize encodes the receiver to w using the
// canonical 80-byte format suitable for long-term storage (as opposed to
// framing for a specific wire message).
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Deserialize decodes a block header from r into the receiver.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// FromBytes deserializes a block header byte slice.
func (h *BlockHeader) FromBytes(b []byte) error {
	return h.Deserialize(bytes.NewReader(b))
}

func readBlockHeader(r io.Reader, bh *BlockHeader) error {
	version, err := readUint32(r)
	if err != nil {
		return err
	}
	bh.Version = int32(version)

	if _, err := io.ReadFull(r, bh.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, bh.MerkleRoot[:]); err != nil {
		return err
	}

	ts, err := readUint32(r)
	if err != nil {
		return err
	}
	bh.Timestamp = time.Unix(int64(ts), 0)

	bits, err := readUint32(r)
	if err != nil {
		return err
	}
	bh.Bits = bits

	nonce, err := readUint32(r)
	if err != nil {
		return err
	}
	bh.Nonce = nonce

	return nil
}

func writeBlockHeader(w io.Writer, bh *BlockHeader) error {
	if err := writeUint32(w, uint32(bh.Version)); err != nil {
		return err
	}
	if _, err := w.Write(bh.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := w.Write(bh.MerkleRoot[:]); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(bh.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeUint32(w, bh.Bits); err != nil {
		return err
	}
	return writeUint32(w, bh.Nonce)
}

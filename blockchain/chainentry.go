// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/ledgercore/ledgercore/wire"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
)

// ChainEntry represents a block within the block chain and is primarily used
// to aid in selecting the best chain to be the main chain. The main chain is
// stored into the block database.
type ChainEntry struct {
	// parent is the parent block for this node.
	parent *ChainEntry

	// skip points to an ancestor of this node at a height computed by
	// calcSkipListHeight, enabling ancestor lookups in O(log n) instead
	// of O(n).
	skip *ChainEntry

	hash       chainhash.Hash
	workSum    *big.Int
	height     int32
	version    int32
	bits       uint32
	nonce      uint32
	timestamp  int64
	merkleRoot chainhash.Hash

	// status is not populated on every node; DB-backed implementations
	// track main-chain membership out of band, per spec.md §4.2.
	status blockStatus
}

// blockStatus is a bit field representing the validation state of a block.
type blockStatus byte

const (
	statusNone blockStatus = 0

	// statusDataStored indicates that the block's payload has been
	// stored on disk.
	statusDataStored blockStatus = 1 << iota

	// statusValid indicates that the block has been fully validated.
	statusValid

	// statusValidateFailed indicates that the block has failed
	// validation.
	statusValidateFailed
)

// HaveData returns whether the block's data has been stored.
func (status blockStatus) HaveData() bool {
	return status&statusDataStored != 0
}

// KnownValid returns whether the block is known to be valid.
func (status blockStatus) KnownValid() bool {
	return status&statusValid != 0
}

// KnownInvalid returns whether the block is known to be invalid.
func (status blockStatus) KnownInvalid() bool {
	return status&statusValidateFailed != 0
}

// initChainEntry initializes a chain entry from the given block header and
// parent entry. It is grounded on the behavior of btcd's initBlockNode: the
// hash, chainwork, and skip pointer are all computed once at construction.
func initChainEntry(entry *ChainEntry, header *wire.BlockHeader, parent *ChainEntry) {
	*entry = ChainEntry{
		hash:       header.BlockHash(),
		workSum:    CalcWork(header.Bits),
		version:    header.Version,
		bits:       header.Bits,
		nonce:      header.Nonce,
		timestamp:  header.Timestamp.Unix(),
		merkleRoot: header.MerkleRoot,
	}
	if parent != nil {
		entry.parent = parent
		entry.height = parent.height + 1
		entry.workSum = entry.workSum.Add(parent.workSum, entry.workSum)
	}
	entry.skip = entry.parent
	if entry.parent != nil {
		entry.skip = entry.parent.Ancestor(calcSkipListHeight(entry.height))
	}
}

// NewChainEntry returns a new ChainEntry populated from the passed block
// header and parent entry. The parent may be nil only for the genesis
// entry.
func NewChainEntry(header *wire.BlockHeader, parent *ChainEntry) *ChainEntry {
	var entry ChainEntry
	initChainEntry(&entry, header, parent)
	return &entry
}

// calcSkipListHeight returns the height to set an entry's skip pointer to,
// using the same algorithm as Bitcoin Core's CBlockIndex::GetAncestor: for
// small heights walk back by a small, invariant amount; for larger heights
// skip exponentially further depending on whether the height has an
// "interesting" bit pattern.
func calcSkipListHeight(height int32) int32 {
	if height < 2 {
		return 0
	}
	if height&1 == 1 {
		return invertLowestOne(invertLowestOne(height-1)) + 1
	}
	return invertLowestOne(height)
}

func invertLowestOne(n int32) int32 {
	return n & (n - 1)
}

// Header reconstructs the block header described by the ChainEntry.
func (e *ChainEntry) Header() wire.BlockHeader {
	var prevHash chainhash.Hash
	if e.parent != nil {
		prevHash = e.parent.hash
	}
	return wire.BlockHeader{
		Version:    e.version,
		PrevBlock:  prevHash,
		MerkleRoot: e.merkleRoot,
		Timestamp:  time.Unix(e.timestamp, 0),
		Bits:       e.bits,
		Nonce:      e.nonce,
	}
}

// Hash returns the block hash.
func (e *ChainEntry) Hash() chainhash.Hash { return e.hash }

// entryHash implements entryHasher for the versionbits state cache.
func (e *ChainEntry) entryHash() [32]byte { return e.hash }

// Height returns the entry's height within the chain it belongs to.
func (e *ChainEntry) Height() int32 { return e.height }

// Bits returns the difficulty bits recorded in the header.
func (e *ChainEntry) Bits() uint32 { return e.bits }

// Nonce returns the header's nonce.
func (e *ChainEntry) Nonce() uint32 { return e.nonce }

// BlockVersion returns the header's version field.
func (e *ChainEntry) BlockVersion() int32 { return e.version }

// Timestamp returns the header's timestamp as a Unix time.
func (e *ChainEntry) Timestamp() int64 { return e.timestamp }

// WorkSum returns the cumulative proof of work sum for this entry and all
// of its ancestors, computed once at insertion per spec.md §3.
func (e *ChainEntry) WorkSum() *big.Int { return e.workSum }

// ParentHash returns the hash of this entry's parent.
func (e *ChainEntry) ParentHash() chainhash.Hash {
	if e.parent == nil {
		return chainhash.Hash{}
	}
	return e.parent.hash
}

// ChainParent returns the parent ChainEntry, or nil for the genesis entry.
func (e *ChainEntry) ChainParent() *ChainEntry { return e.parent }

// Parent implements HeaderCtx.
func (e *ChainEntry) Parent() HeaderCtx {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// Ancestor returns the ancestor block node at the provided height by
// following the skip list. This is the public entry point grounded on
// spec.md §4.2's "skip-list-style walk"; it runs in O(log n).
func (e *ChainEntry) Ancestor(height int32) *ChainEntry {
	if height < 0 || height > e.height {
		return nil
	}

	n := e
	for n != nil && n.height != height {
		heightSkip := calcSkipListHeight(n.height)
		heightSkipPrev := calcSkipListHeight(n.height - 1)
		if n.skip != nil &&
			(heightSkip == height ||
				(heightSkip > height && !(heightSkipPrev < heightSkip-2 &&
					heightSkipPrev >= height))) {
			n = n.skip
		} else {
			n = n.parent
		}
	}

	if n == nil || n.height != height {
		return nil
	}
	return n
}

// RelativeAncestor returns the ancestor block node a relative distance
// blocks before this node.
func (e *ChainEntry) RelativeAncestor(distance int32) *ChainEntry {
	return e.Ancestor(e.height - distance)
}

// RelativeAncestorCtx implements HeaderCtx.
func (e *ChainEntry) RelativeAncestorCtx(distance int32) HeaderCtx {
	a := e.RelativeAncestor(distance)
	if a == nil {
		return nil
	}
	return a
}

// CalcPastMedianTime returns the median time of the previous few blocks
// prior to, and including, the entry. See spec.md §3 GLOSSARY (MTP).
func (e *ChainEntry) CalcPastMedianTime() time.Time {
	return calcPastMedianTime(e)
}

// RetargetAncestors returns the last n entries ending at (and including) e,
// oldest first, walking parent pointers back from e per spec.md §4.2's
// get_retarget_ancestors. If fewer than n ancestors exist, the slice is
// shorter.
func (e *ChainEntry) RetargetAncestors(n int32) []*ChainEntry {
	start := e.height - n + 1
	if start < 0 {
		start = 0
	}
	count := e.height - start + 1
	out := make([]*ChainEntry, count)
	node := e
	for i := count - 1; i >= 0; i-- {
		out[i] = node
		node = node.parent
	}
	return out
}

// maturityCutoff reports the height below which coinbase outputs recorded at
// that height are spendable as of this entry, per CoinbaseMaturity.
func maturityCutoff(spendHeight int32, maturity uint16) int32 {
	return spendHeight - int32(maturity)
}

// Status returns the entry's validation/storage status bitmask.
func (e *ChainEntry) Status() blockStatus { return e.status }

// SetStatus overwrites the entry's validation/storage status bitmask.
func (e *ChainEntry) SetStatus(status blockStatus) { e.status = status }

// SetStatusFlags ORs the given bits into the entry's status.
func (e *ChainEntry) SetStatusFlags(flags blockStatus) { e.status |= flags }

// linkParent attaches entry to its already-constructed parent and recomputes
// the skip pointer, used when an entry loaded back from a ChainDB (whose
// fields are otherwise already fully populated) needs its ancestor-walk
// pointers reconnected in memory.
func (e *ChainEntry) linkParent(parent *ChainEntry) {
	e.parent = parent
	if parent != nil {
		e.skip = parent.Ancestor(calcSkipListHeight(e.height))
	}
}

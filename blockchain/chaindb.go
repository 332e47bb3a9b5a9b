// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/wire"
)

// StateCacheKey is an opaque identifier a caller uses to persist and reload
// miscellaneous chain-level state (BIP9 threshold caches, deployment flags)
// across restarts, keyed outside the entry/coin namespaces.
type StateCacheKey string

// ChainDB is the storage abstraction the chain engine is built against. A
// concrete implementation owns three logical namespaces: the chain entry
// index (headers plus ancestry metadata), the raw block store, and the
// unspent transaction output set, and must make changes to all three
// namespaces atomic within a single Save/Reconnect/Disconnect call so that a
// crash can never leave height, entry and coin state mutually inconsistent.
type ChainDB interface {
	// Tip returns the hash and height of the current best entry, or false
	// if the database has not been initialized with a genesis entry yet.
	Tip() (chainhash.Hash, int32, bool)

	// GetEntry returns the chain entry for the given hash, or nil if no
	// such entry is known.
	GetEntry(hash chainhash.Hash) (*ChainEntry, error)

	// HasEntry reports whether an entry for the given hash is known,
	// regardless of its validation status.
	HasEntry(hash chainhash.Hash) (bool, error)

	// GetBlock returns the full block for the given hash. It returns an
	// error if the entry is known but the block payload has not been
	// stored.
	GetBlock(hash chainhash.Hash) (*chainutil.Block, error)

	// HasCoins reports whether any unspent output still exists for the
	// given transaction hash.
	HasCoins(txHash chainhash.Hash) (bool, error)

	// FetchUtxoEntry returns the unspent output at outpoint, or nil if it
	// does not exist or has already been spent.
	FetchUtxoEntry(outpoint wire.OutPoint) (*UtxoEntry, error)

	// FetchUtxoView returns a populated view covering every output the
	// passed transactions reference, including each transaction's own
	// outputs (so later transactions within the same block can spend
	// earlier ones).
	FetchUtxoView(txns []*chainutil.Tx) (*UtxoViewpoint, error)

	// SaveSideChain stores entry and its block in the entry index and
	// block store without touching the coin set or the tip, used when a
	// block is accepted but does not extend the current best chain.
	SaveSideChain(entry *ChainEntry, block *chainutil.Block) error

	// Save atomically stores a newly-connected entry, its block, the
	// view's modified coins and the per-transaction undo log, and
	// advances the tip.
	Save(entry *ChainEntry, block *chainutil.Block, view *UtxoViewpoint, undo [][]SpentTxOut) error

	// Reconnect replays a previously disconnected entry back onto the
	// tip without needing to recompute validation, used during reorg
	// when walking forward along the new best chain.
	Reconnect(entry *ChainEntry, block *chainutil.Block, view *UtxoViewpoint, undo [][]SpentTxOut) error

	// Disconnect removes the current tip entry, restoring the coin set
	// to its state immediately prior to that entry's connection using
	// the stored undo log, and returns the undo log that was applied.
	Disconnect(entry *ChainEntry) ([][]SpentTxOut, error)

	// Reset discards all entries, blocks and coins and reinitializes the
	// database with the given genesis entry and block.
	Reset(entry *ChainEntry, block *chainutil.Block) error

	// Scan iterates every known chain entry in arbitrary order, invoking
	// fn for each. It is used at startup to reconstruct the in-memory
	// entry index and skip lists.
	Scan(fn func(entry *ChainEntry) error) error

	// GetStateCache returns previously-stored auxiliary state for key, or
	// false if nothing has been stored under it.
	GetStateCache(key StateCacheKey) ([]byte, bool, error)

	// PutStateCache stores auxiliary state under key, overwriting any
	// previous value.
	PutStateCache(key StateCacheKey, value []byte) error

	// Close releases any resources held by the database.
	Close() error
}

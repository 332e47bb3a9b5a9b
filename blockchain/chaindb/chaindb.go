// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaindb implements blockchain.ChainDB on top of goleveldb,
// namespacing the entry index, block store, coin set and state cache
// within a single on-disk database by key prefix, the same bucket-by-prefix
// approach the btcd family's ffldb takes with its own key-value backend.
package chaindb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/ledgercore/ledgercore/blockchain"
	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/wire"
)

// Key prefixes partitioning the flat goleveldb keyspace into the
// blockchain.ChainDB namespaces.
const (
	prefixHeader byte = 'h' // prefixHeader + hash -> serialized 80-byte header
	prefixBlock  byte = 'b' // prefixBlock + hash -> serialized block
	prefixCoin   byte = 'c' // prefixCoin + outpoint(36) -> encoded UtxoEntry
	prefixUndo   byte = 'n' // prefixUndo + hash -> encoded undo log
	prefixState  byte = 'x' // prefixState + key -> opaque state-cache blob
)

// tipKey is the single fixed key holding the current best entry's hash and
// height.
var tipKey = []byte{'t'}

// DB is a goleveldb-backed blockchain.ChainDB implementation.
type DB struct {
	ldb *leveldb.DB
}

// Open opens (creating if necessary) a chain database rooted at path.
func Open(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("chaindb: open %s: %w", path, err)
	}
	return &DB{ldb: ldb}, nil
}

// Close releases the underlying goleveldb handle.
func (db *DB) Close() error {
	return db.ldb.Close()
}

func headerKey(hash chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixHeader
	copy(key[1:], hash[:])
	return key
}

func blockKey(hash chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixBlock
	copy(key[1:], hash[:])
	return key
}

func undoKey(hash chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixUndo
	copy(key[1:], hash[:])
	return key
}

func stateKey(name blockchain.StateCacheKey) []byte {
	key := make([]byte, 1+len(name))
	key[0] = prefixState
	copy(key[1:], name)
	return key
}

func coinKey(outpoint wire.OutPoint) []byte {
	key := make([]byte, 1+chainhash.HashSize+4)
	key[0] = prefixCoin
	copy(key[1:1+chainhash.HashSize], outpoint.Hash[:])
	key[1+chainhash.HashSize] = byte(outpoint.Index >> 24)
	key[2+chainhash.HashSize] = byte(outpoint.Index >> 16)
	key[3+chainhash.HashSize] = byte(outpoint.Index >> 8)
	key[4+chainhash.HashSize] = byte(outpoint.Index)
	return key
}

// Tip returns the hash and height of the current best entry.
func (db *DB) Tip() (chainhash.Hash, int32, bool) {
	raw, err := db.ldb.Get(tipKey, nil)
	if err != nil {
		return chainhash.Hash{}, 0, false
	}
	if len(raw) != chainhash.HashSize+4 {
		return chainhash.Hash{}, 0, false
	}

	var hash chainhash.Hash
	copy(hash[:], raw[:chainhash.HashSize])
	height := decodeInt32(raw[chainhash.HashSize:])
	return hash, height, true
}

func decodeInt32(b []byte) int32 {
	return int32(b[0])<<24 | int32(b[1])<<16 | int32(b[2])<<8 | int32(b[3])
}

func encodeInt32(v int32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func putTip(batch *leveldb.Batch, hash chainhash.Hash, height int32) {
	raw := make([]byte, chainhash.HashSize+4)
	copy(raw, hash[:])
	copy(raw[chainhash.HashSize:], encodeInt32(height))
	batch.Put(tipKey, raw)
}

// decodeHeader reconstructs a wire.BlockHeader from its canonical 80-byte
// serialization.
func decodeHeader(raw []byte) (wire.BlockHeader, error) {
	var header wire.BlockHeader
	if err := header.FromBytes(raw); err != nil {
		return wire.BlockHeader{}, err
	}
	return header, nil
}

// GetEntry returns the chain entry for hash, or nil if unknown.
func (db *DB) GetEntry(hash chainhash.Hash) (*blockchain.ChainEntry, error) {
	raw, err := db.ldb.Get(headerKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	header, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}

	var parent *blockchain.ChainEntry
	if header.PrevBlock != (chainhash.Hash{}) {
		parent, err = db.GetEntry(header.PrevBlock)
		if err != nil {
			return nil, err
		}
	}
	return blockchain.NewChainEntry(&header, parent), nil
}

// HasEntry reports whether hash names a known entry.
func (db *DB) HasEntry(hash chainhash.Hash) (bool, error) {
	return db.ldb.Has(headerKey(hash), nil)
}

// HasCoins reports whether any unspent output exists for txHash.
func (db *DB) HasCoins(txHash chainhash.Hash) (bool, error) {
	iter := db.ldb.NewIterator(util.BytesPrefix(coinKey(wire.OutPoint{Hash: txHash})[:1+chainhash.HashSize]), nil)
	defer iter.Release()
	return iter.Next(), iter.Error()
}

// GetBlock returns the full block stored for hash.
func (db *DB) GetBlock(hash chainhash.Hash) (*chainutil.Block, error) {
	raw, err := db.ldb.Get(blockKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, fmt.Errorf("chaindb: no block stored for %v", hash)
	}
	if err != nil {
		return nil, err
	}
	return chainutil.NewBlockFromBytes(raw)
}

// FetchUtxoEntry returns the unspent output at outpoint, or nil if it is
// unknown or already spent.
func (db *DB) FetchUtxoEntry(outpoint wire.OutPoint) (*blockchain.UtxoEntry, error) {
	raw, err := db.ldb.Get(coinKey(outpoint), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeUtxoEntry(raw)
}

// FetchUtxoView returns a view populated with every output the passed
// transactions' inputs reference, read through to persistent storage.
func (db *DB) FetchUtxoView(txns []*chainutil.Tx) (*blockchain.UtxoViewpoint, error) {
	view := blockchain.NewUtxoViewpoint()

	for _, tx := range txns {
		view.AddTxOuts(tx, chainutil.BlockHeightUnknown)
	}

	for _, tx := range txns {
		if blockchain.IsCoinBase(tx) {
			continue
		}
		for _, txIn := range tx.MsgTx().TxIn {
			if view.LookupEntry(txIn.PreviousOutPoint) != nil {
				continue
			}
			entry, err := db.FetchUtxoEntry(txIn.PreviousOutPoint)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				view.Entries()[txIn.PreviousOutPoint] = entry
			}
		}
	}

	return view, nil
}

// SaveSideChain stores entry's header and block without touching the tip
// or the coin set, used when a block is accepted but does not extend the
// current best chain.
func (db *DB) SaveSideChain(entry *blockchain.ChainEntry, block *chainutil.Block) error {
	batch := new(leveldb.Batch)
	if err := db.putEntryAndBlock(batch, entry, block); err != nil {
		return err
	}
	return db.ldb.Write(batch, nil)
}

func (db *DB) putEntryAndBlock(batch *leveldb.Batch, entry *blockchain.ChainEntry, block *chainutil.Block) error {
	header := entry.Header()
	headerBytes, err := header.Bytes()
	if err != nil {
		return err
	}
	batch.Put(headerKey(entry.Hash()), headerBytes)

	blockBytes, err := block.Bytes()
	if err != nil {
		return err
	}
	batch.Put(blockKey(entry.Hash()), blockBytes)
	return nil
}

// applyView writes every modified coin in view to batch: deletes for
// entries marked spent, puts otherwise.
func applyView(batch *leveldb.Batch, view *blockchain.UtxoViewpoint) {
	for outpoint, entry := range view.Entries() {
		if entry == nil || !entry.IsModified() {
			continue
		}
		if entry.IsSpent() {
			batch.Delete(coinKey(outpoint))
			continue
		}
		batch.Put(coinKey(outpoint), encodeUtxoEntry(entry))
	}
}

// Save atomically stores a newly-connected entry, its block, the view's
// modified coins and the undo log describing what those coins replaced,
// and advances the tip to entry.
func (db *DB) Save(entry *blockchain.ChainEntry, block *chainutil.Block, view *blockchain.UtxoViewpoint, undo [][]blockchain.SpentTxOut) error {
	batch := new(leveldb.Batch)
	if err := db.putEntryAndBlock(batch, entry, block); err != nil {
		return err
	}
	applyView(batch, view)
	batch.Put(undoKey(entry.Hash()), encodeUndoLog(undo))
	putTip(batch, entry.Hash(), entry.Height())
	return db.ldb.Write(batch, nil)
}

// Reconnect replays a previously disconnected entry back onto the tip,
// identical in effect to Save.
func (db *DB) Reconnect(entry *blockchain.ChainEntry, block *chainutil.Block, view *blockchain.UtxoViewpoint, undo [][]blockchain.SpentTxOut) error {
	return db.Save(entry, block, view, undo)
}

// Disconnect removes the current tip entry, restoring the coin set to its
// pre-connection state using the stored undo log, and returns that log.
func (db *DB) Disconnect(entry *blockchain.ChainEntry) ([][]blockchain.SpentTxOut, error) {
	rawUndo, err := db.ldb.Get(undoKey(entry.Hash()), nil)
	if err != nil {
		return nil, fmt.Errorf("chaindb: no undo log stored for %v: %w", entry.Hash(), err)
	}
	undo, err := decodeUndoLog(rawUndo)
	if err != nil {
		return nil, err
	}

	block, err := db.GetBlock(entry.Hash())
	if err != nil {
		return nil, err
	}

	batch := new(leveldb.Batch)
	for i, tx := range block.Transactions() {
		prevOut := wire.OutPoint{Hash: *tx.Hash()}
		for txOutIdx := range tx.MsgTx().TxOut {
			prevOut.Index = uint32(txOutIdx)
			batch.Delete(coinKey(prevOut))
		}

		if blockchain.IsCoinBase(tx) {
			continue
		}
		spent := undo[i]
		for j, txIn := range tx.MsgTx().TxIn {
			s := spent[j]
			restored := blockchain.NewUtxoEntry(s.PkScript, s.Amount, s.Height, s.IsCoinBase)
			batch.Put(coinKey(txIn.PreviousOutPoint), encodeUtxoEntry(restored))
		}
	}
	batch.Delete(undoKey(entry.Hash()))

	var parentHash chainhash.Hash
	var parentHeight int32
	if parent := entry.ChainParent(); parent != nil {
		parentHash = parent.Hash()
		parentHeight = parent.Height()
	}
	putTip(batch, parentHash, parentHeight)

	if err := db.ldb.Write(batch, nil); err != nil {
		return nil, err
	}
	return undo, nil
}

// Reset discards all entries, blocks, coins and undo logs, and
// reinitializes the database with the given genesis entry and block.
func (db *DB) Reset(entry *blockchain.ChainEntry, block *chainutil.Block) error {
	for _, prefix := range []byte{prefixHeader, prefixBlock, prefixCoin, prefixUndo} {
		iter := db.ldb.NewIterator(util.BytesPrefix([]byte{prefix}), nil)
		batch := new(leveldb.Batch)
		for iter.Next() {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return err
		}
		if err := db.ldb.Write(batch, nil); err != nil {
			return err
		}
	}

	batch := new(leveldb.Batch)
	if err := db.putEntryAndBlock(batch, entry, block); err != nil {
		return err
	}
	putTip(batch, entry.Hash(), entry.Height())
	return db.ldb.Write(batch, nil)
}

// Scan iterates every known chain entry, constructing each in ancestor
// order (lowest height first) so every entry handed to fn already carries
// a correctly linked parent pointer.
func (db *DB) Scan(fn func(entry *blockchain.ChainEntry) error) error {
	type rawEntry struct {
		hash   chainhash.Hash
		header wire.BlockHeader
	}

	iter := db.ldb.NewIterator(util.BytesPrefix([]byte{prefixHeader}), nil)
	var raws []rawEntry
	for iter.Next() {
		var hash chainhash.Hash
		copy(hash[:], iter.Key()[1:])

		header, err := decodeHeader(append([]byte(nil), iter.Value()...))
		if err != nil {
			iter.Release()
			return err
		}
		raws = append(raws, rawEntry{hash: hash, header: header})
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}

	built := make(map[chainhash.Hash]*blockchain.ChainEntry, len(raws))
	pending := raws
	for len(pending) > 0 {
		progressed := false
		var next []rawEntry
		for _, r := range pending {
			var parent *blockchain.ChainEntry
			if r.header.PrevBlock != (chainhash.Hash{}) {
				p, ok := built[r.header.PrevBlock]
				if !ok {
					next = append(next, r)
					continue
				}
				parent = p
			}
			entry := blockchain.NewChainEntry(&r.header, parent)
			built[entry.Hash()] = entry
			if err := fn(entry); err != nil {
				return err
			}
			progressed = true
		}
		if !progressed {
			return fmt.Errorf("chaindb: scan found %d entries with no resolvable parent", len(next))
		}
		pending = next
	}
	return nil
}

// GetStateCache returns previously-stored auxiliary state for key.
func (db *DB) GetStateCache(key blockchain.StateCacheKey) ([]byte, bool, error) {
	raw, err := db.ldb.Get(stateKey(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// PutStateCache stores auxiliary state under key.
func (db *DB) PutStateCache(key blockchain.StateCacheKey, value []byte) error {
	return db.ldb.Put(stateKey(key), value, nil)
}

var _ blockchain.ChainDB = (*DB)(nil)

// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/wire"
)

// UtxoEntry houses details about an individual transaction output in the
// unspent transaction output set, corresponding to spec.md §3's Coin:
// {value, script, height, coinbase}.
type UtxoEntry struct {
	amount      int64
	pkScript    []byte
	blockHeight int32

	packedFlags txoFlags
}

// txoFlags is a bitmask defining additional information and state for a
// transaction output in a UTXO entry.
type txoFlags uint8

const (
	// tfCoinBase indicates that a txout was contained in a coinbase tx.
	tfCoinBase txoFlags = 1 << iota

	// tfSpent indicates that a txout has been spent.
	tfSpent

	// tfModified indicates that a txout has been modified since it was
	// loaded.
	tfModified
)

// IsModified returns whether or not the output has been modified since it
// was loaded.
func (entry *UtxoEntry) IsModified() bool {
	return entry.packedFlags&tfModified == tfModified
}

// IsCoinBase returns whether or not the output was contained in a coinbase
// transaction.
func (entry *UtxoEntry) IsCoinBase() bool {
	return entry.packedFlags&tfCoinBase == tfCoinBase
}

// IsSpent returns whether or not the output has been spent based upon the
// current state of the unspent transaction output view it was obtained
// from.
func (entry *UtxoEntry) IsSpent() bool {
	return entry.packedFlags&tfSpent == tfSpent
}

// BlockHeight returns the height of the block containing the output.
func (entry *UtxoEntry) BlockHeight() int32 {
	return entry.blockHeight
}

// Spend marks the output as spent. Spending an output that is already spent
// has no effect.
func (entry *UtxoEntry) Spend() {
	if entry.IsSpent() {
		return
	}
	entry.packedFlags |= tfSpent | tfModified
}

// Amount returns the amount of the output.
func (entry *UtxoEntry) Amount() int64 {
	return entry.amount
}

// PkScript returns the public key script for the output.
func (entry *UtxoEntry) PkScript() []byte {
	return entry.pkScript
}

// Clone returns a deep copy of the entry.
func (entry *UtxoEntry) Clone() *UtxoEntry {
	if entry == nil {
		return nil
	}

	newEntry := *entry
	newEntry.pkScript = make([]byte, len(entry.pkScript))
	copy(newEntry.pkScript, entry.pkScript)
	return &newEntry
}

// NewUtxoEntry returns a new UtxoEntry built from the arguments.
func NewUtxoEntry(pkScript []byte, amount int64, blockHeight int32, isCoinBase bool) *UtxoEntry {
	entry := &UtxoEntry{
		amount:      amount,
		pkScript:    pkScript,
		blockHeight: blockHeight,
	}
	if isCoinBase {
		entry.packedFlags |= tfCoinBase
	}
	return entry
}

// UtxoViewpoint represents a view into the set of unspent transaction
// outputs from a specific point of view in the chain. It is effectively a
// delta over the ChainDB-persisted coin set: coins explicitly fetched or
// created are cached here, spent coins are flagged (not removed, so the
// undo log can restore them on disconnect) and only flushed to the
// persistent set by an explicit write.
type UtxoViewpoint struct {
	entries  map[wire.OutPoint]*UtxoEntry
	bestHash [32]byte
}

// NewUtxoViewpoint returns a new empty unspent transaction output view.
func NewUtxoViewpoint() *UtxoViewpoint {
	return &UtxoViewpoint{
		entries: make(map[wire.OutPoint]*UtxoEntry),
	}
}

// Entries returns the underlying map of coins in the view.
func (view *UtxoViewpoint) Entries() map[wire.OutPoint]*UtxoEntry {
	return view.entries
}

// LookupEntry returns information about a given transaction output according
// to the current state of the view, or nil if the view holds no entry for it.
// The backing database is not consulted, and a spent entry is returned as
// is; callers check IsSpent.
func (view *UtxoViewpoint) LookupEntry(outpoint wire.OutPoint) *UtxoEntry {
	return view.entries[outpoint]
}

// BestHash returns the hash of the best block in the chain the view
// currently respresents.
func (view *UtxoViewpoint) BestHash() [32]byte {
	return view.bestHash
}

// SetBestHash sets the hash of the best block in the chain the view
// currently respresents.
func (view *UtxoViewpoint) SetBestHash(hash [32]byte) {
	view.bestHash = hash
}

// addTxOut adds the specified output to the view, replacing any entry the
// view already holds for outpoint.
func (view *UtxoViewpoint) addTxOut(outpoint wire.OutPoint, txOut *wire.TxOut, isCoinBase bool, blockHeight int32) {
	if entry, ok := view.entries[outpoint]; ok && entry != nil {
		entry.amount = txOut.Value
		entry.pkScript = txOut.PkScript
		entry.blockHeight = blockHeight
		entry.packedFlags = tfModified
		if isCoinBase {
			entry.packedFlags |= tfCoinBase
		}
		return
	}

	entry := NewUtxoEntry(txOut.PkScript, txOut.Value, blockHeight, isCoinBase)
	entry.packedFlags |= tfModified
	view.entries[outpoint] = entry
}

// AddTxOuts adds every output in the passed transaction as an available
// unspent transaction output, implementing
// spec.md §4.3's add_tx.
func (view *UtxoViewpoint) AddTxOuts(tx *chainutil.Tx, blockHeight int32) {
	isCoinBase := IsCoinBase(tx)
	prevOut := wire.OutPoint{Hash: *tx.Hash()}
	for txOutIdx, txOut := range tx.MsgTx().TxOut {
		prevOut.Index = uint32(txOutIdx)
		view.addTxOut(prevOut, txOut, isCoinBase, blockHeight)
	}
}

// SpentTxOut houses details about a transaction output spent in a block,
// recorded for the undo log a disconnect replays in reverse.
type SpentTxOut struct {
	Amount     int64
	PkScript   []byte
	Height     int32
	IsCoinBase bool
}

// fetchInput returns the existing entry for outpoint if already cached in
// the view, or queries the provided ChainDB otherwise, caching the result.
func (view *UtxoViewpoint) fetchInput(db ChainDB, outpoint wire.OutPoint) (*UtxoEntry, error) {
	if entry, ok := view.entries[outpoint]; ok {
		return entry, nil
	}

	entry, err := db.FetchUtxoEntry(outpoint)
	if err != nil {
		return nil, err
	}
	view.entries[outpoint] = entry
	return entry, nil
}

// ConnectTransaction updates the view by marking all referenced inputs of
// the passed transaction spent, returning an ordered undo log describing
// exactly what was removed so a later disconnect can restore it, and adds
// the transaction's outputs as new unspent coins. It implements the spend
// half of spec.md §4.3's spend/add_tx pair.
func (view *UtxoViewpoint) ConnectTransaction(db ChainDB, tx *chainutil.Tx, blockHeight int32) ([]SpentTxOut, error) {
	var spent []SpentTxOut

	if !IsCoinBase(tx) {
		for _, txIn := range tx.MsgTx().TxIn {
			entry, err := view.fetchInput(db, txIn.PreviousOutPoint)
			if err != nil {
				return nil, err
			}
			if entry == nil || entry.IsSpent() {
				str := fmt.Sprintf("output %v referenced from "+
					"transaction %s either does not exist or "+
					"has already been spent", txIn.PreviousOutPoint,
					tx.Hash())
				return nil, ruleError(ErrMissingTxOut, str)
			}

			spent = append(spent, SpentTxOut{
				Amount:     entry.Amount(),
				PkScript:   entry.PkScript(),
				Height:     entry.BlockHeight(),
				IsCoinBase: entry.IsCoinBase(),
			})
			entry.Spend()
		}
	}

	view.AddTxOuts(tx, blockHeight)
	return spent, nil
}

// DisconnectTransaction undoes the effect of ConnectTransaction using the
// previously recorded undo log, restoring each spent coin and removing the
// outputs the transaction had created.
func (view *UtxoViewpoint) DisconnectTransaction(tx *chainutil.Tx, spent []SpentTxOut) {
	prevOut := wire.OutPoint{Hash: *tx.Hash()}
	for txOutIdx := range tx.MsgTx().TxOut {
		prevOut.Index = uint32(txOutIdx)
		delete(view.entries, prevOut)
	}

	if IsCoinBase(tx) {
		return
	}

	for i, txIn := range tx.MsgTx().TxIn {
		s := spent[i]
		view.entries[txIn.PreviousOutPoint] = NewUtxoEntry(
			s.PkScript, s.Amount, s.Height, s.IsCoinBase)
	}
}

// GetHeight returns the recorded block height of the coin at outpoint, or -1
// if it is unknown to the view, implementing spec.md §4.3's get_height.
func (view *UtxoViewpoint) GetHeight(outpoint wire.OutPoint) int32 {
	entry, ok := view.entries[outpoint]
	if !ok || entry == nil {
		return -1
	}
	return entry.BlockHeight()
}

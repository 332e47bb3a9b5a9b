// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb_test

import (
	"testing"

	"github.com/ledgercore/ledgercore/blockchain"
	"github.com/ledgercore/ledgercore/blockchain/chaindb"
	"github.com/ledgercore/ledgercore/chaincfg"
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/wire"
)

func openTestDB(t *testing.T) *chaindb.DB {
	t.Helper()
	db, err := chaindb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func genesisFixture() (*blockchain.ChainEntry, *chainutil.Block) {
	params := &chaincfg.RegressionNetParams
	entry := blockchain.NewChainEntry(&params.GenesisBlock.Header, nil)
	block := chainutil.NewBlock(params.GenesisBlock)
	return entry, block
}

func childFixture(parent *blockchain.ChainEntry, nonce uint32) (*blockchain.ChainEntry, *chainutil.Block) {
	header := wire.BlockHeader{
		Version:   1,
		PrevBlock: parent.Hash(),
		Bits:      parent.Bits(),
		Nonce:     nonce,
	}
	entry := blockchain.NewChainEntry(&header, parent)
	msgBlock := &wire.MsgBlock{Header: header}
	return entry, chainutil.NewBlock(msgBlock)
}

func TestResetAndTip(t *testing.T) {
	db := openTestDB(t)

	entry, block := genesisFixture()
	if err := db.Reset(entry, block); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	hash, height, ok := db.Tip()
	if !ok {
		t.Fatal("Tip() reports no tip after Reset")
	}
	if hash != entry.Hash() || height != 0 {
		t.Fatalf("Tip() = (%v, %d), want (%v, 0)", hash, height, entry.Hash())
	}

	has, err := db.HasEntry(entry.Hash())
	if err != nil || !has {
		t.Fatalf("HasEntry(genesis) = (%v, %v), want (true, nil)", has, err)
	}

	got, err := db.GetBlock(entry.Hash())
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if *got.Hash() != *block.Hash() {
		t.Fatalf("GetBlock returned a different block than stored")
	}
}

func TestSaveReconnectDisconnectRoundTrip(t *testing.T) {
	db := openTestDB(t)

	genesisEntry, genesisBlock := genesisFixture()
	if err := db.Reset(genesisEntry, genesisBlock); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	childEntry, childBlock := childFixture(genesisEntry, 1)
	view := blockchain.NewUtxoViewpoint()
	var undo [][]blockchain.SpentTxOut

	if err := db.Save(childEntry, childBlock, view, undo); err != nil {
		t.Fatalf("Save: %v", err)
	}

	hash, height, ok := db.Tip()
	if !ok || hash != childEntry.Hash() || height != 1 {
		t.Fatalf("Tip() after Save = (%v, %d, %v), want (%v, 1, true)", hash, height, ok, childEntry.Hash())
	}

	gotUndo, err := db.Disconnect(childEntry)
	if err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if len(gotUndo) != len(undo) {
		t.Fatalf("Disconnect returned %d undo entries, want %d", len(gotUndo), len(undo))
	}

	hash, height, ok = db.Tip()
	if !ok || hash != genesisEntry.Hash() || height != 0 {
		t.Fatalf("Tip() after Disconnect = (%v, %d, %v), want (%v, 0, true)", hash, height, ok, genesisEntry.Hash())
	}

	if err := db.Reconnect(childEntry, childBlock, view, undo); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	hash, height, ok = db.Tip()
	if !ok || hash != childEntry.Hash() || height != 1 {
		t.Fatalf("Tip() after Reconnect = (%v, %d, %v), want (%v, 1, true)", hash, height, ok, childEntry.Hash())
	}
}

func TestScanOrdersByAncestry(t *testing.T) {
	db := openTestDB(t)

	genesisEntry, genesisBlock := genesisFixture()
	if err := db.Reset(genesisEntry, genesisBlock); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	childEntry, childBlock := childFixture(genesisEntry, 7)
	if err := db.SaveSideChain(childEntry, childBlock); err != nil {
		t.Fatalf("SaveSideChain: %v", err)
	}

	var scanned []*blockchain.ChainEntry
	if err := db.Scan(func(entry *blockchain.ChainEntry) error {
		scanned = append(scanned, entry)
		return nil
	}); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(scanned) != 2 {
		t.Fatalf("Scan returned %d entries, want 2", len(scanned))
	}
	if scanned[0].Hash() != genesisEntry.Hash() {
		t.Fatalf("Scan's first entry = %v, want genesis %v", scanned[0].Hash(), genesisEntry.Hash())
	}
	if scanned[1].ParentHash() != genesisEntry.Hash() {
		t.Fatalf("Scan's second entry has parent %v, want genesis %v", scanned[1].ParentHash(), genesisEntry.Hash())
	}
}

func TestStateCache(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.GetStateCache("deployments"); err != nil || ok {
		t.Fatalf("GetStateCache on empty db = (ok=%v, err=%v), want (false, nil)", ok, err)
	}

	want := []byte{0x01, 0x02, 0x03}
	if err := db.PutStateCache("deployments", want); err != nil {
		t.Fatalf("PutStateCache: %v", err)
	}

	got, ok, err := db.GetStateCache("deployments")
	if err != nil || !ok {
		t.Fatalf("GetStateCache = (ok=%v, err=%v), want (true, nil)", ok, err)
	}
	if string(got) != string(want) {
		t.Fatalf("GetStateCache = %x, want %x", got, want)
	}
}

func TestFetchUtxoEntryUnknown(t *testing.T) {
	db := openTestDB(t)

	var outpoint wire.OutPoint
	entry, err := db.FetchUtxoEntry(outpoint)
	if err != nil {
		t.Fatalf("FetchUtxoEntry: %v", err)
	}
	if entry != nil {
		t.Fatalf("FetchUtxoEntry on empty db = %+v, want nil", entry)
	}

	has, err := db.HasCoins(outpoint.Hash)
	if err != nil {
		t.Fatalf("HasCoins: %v", err)
	}
	if has {
		t.Fatal("HasCoins on empty db = true, want false")
	}
}

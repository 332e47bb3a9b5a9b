// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/wire"
)

// chainOf builds a linear chain of n entries (including the genesis entry
// at height 0) with strictly increasing timestamps, returning them in
// height order.
func chainOf(t *testing.T, n int) []*ChainEntry {
	t.Helper()
	entries := make([]*ChainEntry, n)
	var parent *ChainEntry
	base := time.Unix(1600000000, 0)
	for i := 0; i < n; i++ {
		header := &wire.BlockHeader{
			Version:   1,
			Bits:      0x1d00ffff,
			Nonce:     uint32(i),
			Timestamp: base.Add(time.Duration(i) * 10 * time.Minute),
		}
		if parent != nil {
			header.PrevBlock = parent.Hash()
		}
		entry := NewChainEntry(header, parent)
		entries[i] = entry
		parent = entry
	}
	return entries
}

func TestChainEntryAncestorWalk(t *testing.T) {
	entries := chainOf(t, 20)
	tip := entries[len(entries)-1]

	for height := int32(0); height < int32(len(entries)); height++ {
		got := tip.Ancestor(height)
		if got == nil {
			t.Fatalf("Ancestor(%d) = nil, want entry at that height", height)
		}
		if got.Height() != height {
			t.Fatalf("Ancestor(%d).Height() = %d, want %d", height, got.Height(), height)
		}
		if got.Hash() != entries[height].Hash() {
			t.Fatalf("Ancestor(%d) = %v, want %v", height, got.Hash(), entries[height].Hash())
		}
	}

	if got := tip.Ancestor(-1); got != nil {
		t.Fatalf("Ancestor(-1) = %v, want nil", got)
	}
	if got := tip.Ancestor(tip.Height() + 1); got != nil {
		t.Fatalf("Ancestor(height+1) = %v, want nil", got)
	}
}

func TestChainEntryWorkSumAccumulates(t *testing.T) {
	entries := chainOf(t, 5)
	for i := 1; i < len(entries); i++ {
		if entries[i].WorkSum().Cmp(entries[i-1].WorkSum()) <= 0 {
			t.Fatalf("entry %d WorkSum %v did not increase over entry %d WorkSum %v",
				i, entries[i].WorkSum(), i-1, entries[i-1].WorkSum())
		}
	}
}

func TestChainEntryRelativeAncestor(t *testing.T) {
	entries := chainOf(t, 10)
	tip := entries[len(entries)-1]

	got := tip.RelativeAncestor(3)
	want := entries[len(entries)-1-3]
	if got.Hash() != want.Hash() {
		t.Fatalf("RelativeAncestor(3) = %v, want %v", got.Hash(), want.Hash())
	}
}

func TestChainEntryParentHashGenesis(t *testing.T) {
	entries := chainOf(t, 1)
	genesis := entries[0]
	if got := genesis.ParentHash(); got != (chainhash.Hash{}) {
		t.Fatalf("genesis ParentHash() = %v, want the zero hash", got)
	}
	if genesis.ChainParent() != nil {
		t.Fatal("genesis entry should have a nil ChainParent")
	}
}

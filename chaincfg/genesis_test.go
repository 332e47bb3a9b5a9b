// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"bytes"
	"testing"
)

// TestGenesisBlockRoundTrip verifies that each network's genesis block
// serializes deterministically and that its cached hash matches a fresh
// recomputation from the block itself.
func TestGenesisBlockRoundTrip(t *testing.T) {
	nets := []*Params{&MainNetParams, &TestNetParams, &RegressionNetParams}

	for _, p := range nets {
		var buf bytes.Buffer
		if err := p.GenesisBlock.Serialize(&buf); err != nil {
			t.Fatalf("%s: serialize: %v", p.Name, err)
		}

		hash := p.GenesisBlock.BlockHash()
		if !p.GenesisHash.IsEqual(&hash) {
			t.Fatalf("%s: genesis hash mismatch - got %v, want %v",
				p.Name, hash, p.GenesisHash)
		}

		if len(p.GenesisBlock.Transactions) != 1 {
			t.Fatalf("%s: genesis block must have exactly one transaction", p.Name)
		}
		coinbaseHash := p.GenesisBlock.Transactions[0].TxHash()
		if !coinbaseHash.IsEqual(&p.GenesisBlock.Header.MerkleRoot) {
			t.Fatalf("%s: genesis merkle root does not match its coinbase", p.Name)
		}
	}
}

// TestNetworksRegistered ensures every built-in network is discoverable by
// name through the registry populated in init().
func TestNetworksRegistered(t *testing.T) {
	for _, name := range []string{"mainnet", "testnet", "regtest"} {
		if NetworkByName(name) == nil {
			t.Fatalf("network %q not registered", name)
		}
	}
}

// Copyright (c) 2014-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"container/heap"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/ledgercore/ledgercore/blockchain"
	"github.com/ledgercore/ledgercore/blockchain/chaindb"
	"github.com/ledgercore/ledgercore/chaincfg"
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/mempool"
)

func TestTxPriorityQueueOrdersByPriorityThenSwitchesToFee(t *testing.T) {
	low := &txPrioItem{priority: 1, feePerKB: 500}
	high := &txPrioItem{priority: 10, feePerKB: 100}
	mid := &txPrioItem{priority: 5, feePerKB: 900}

	pq := newTxPriorityQueue(3)
	for _, item := range []*txPrioItem{low, high, mid} {
		heap.Push(pq, item)
	}
	require.Equal(t, high, heap.Pop(pq), "priority order: highest priority first")
	require.Equal(t, mid, heap.Pop(pq))
	require.Equal(t, low, heap.Pop(pq))

	pq = newTxPriorityQueue(3)
	for _, item := range []*txPrioItem{low, high, mid} {
		heap.Push(pq, item)
	}
	pq.SetLessFunc(txPQByFee)
	require.Equal(t, mid, heap.Pop(pq), "fee order: highest fee rate first")
	require.Equal(t, low, heap.Pop(pq))
	require.Equal(t, high, heap.Pop(pq))
}

// newTestChain builds a Chain on a fresh goleveldb instance against
// regression-test parameters, the same fixture shape chaindb_test.go uses.
func newTestChain(t *testing.T) *blockchain.Chain {
	t.Helper()
	db, err := chaindb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	chain, err := blockchain.New(&blockchain.Config{
		DB:          db,
		ChainParams: &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)
	return chain
}

// TestNewBlockTemplateEmptyPoolProducesCoinbaseOnly exercises
// BlkTmplGenerator.NewBlockTemplate against a freshly initialized chain with
// no candidate transactions, the simplest instance of spec.md §4.8's
// algorithm: the template should hold exactly the coinbase, paying the
// configured MiningAddrScript the full block subsidy.
func TestNewBlockTemplateEmptyPoolProducesCoinbaseOnly(t *testing.T) {
	chain := newTestChain(t)
	pool := mempool.New()

	policy := &Policy{
		BlockMinWeight:      0,
		BlockMaxWeight:      int64(chainutil.MaxBlockWeight),
		BlockPriorityWeight: 0,
		MiningAddrScript:    []byte{0x51},
	}
	gen := NewBlkTmplGenerator(policy, chain, pool)

	tmpl, err := gen.NewBlockTemplate()
	require.NoError(t, err, "NewBlockTemplate on an empty pool should not fail; template: %s", spew.Sdump(tmpl))
	require.Len(t, tmpl.Block.Transactions, 1, "expected only the coinbase")
	require.True(t, tmpl.ValidPayAddress)
	require.Equal(t, int32(1), tmpl.Height)

	subsidy := blockchain.CalcBlockSubsidy(tmpl.Height, chain.ChainParams())
	require.Equal(t, subsidy, tmpl.Block.Transactions[0].TxOut[0].Value,
		"coinbase should pay the full subsidy when the pool is empty")
}

func TestCalcPriorityCoinbaseIsZero(t *testing.T) {
	chain := newTestChain(t)
	pool := mempool.New()
	policy := &Policy{BlockMaxWeight: int64(chainutil.MaxBlockWeight)}
	gen := NewBlkTmplGenerator(policy, chain, pool)

	tmpl, err := gen.NewBlockTemplate()
	require.NoError(t, err)

	coinbase := chainutil.NewTx(tmpl.Block.Transactions[0])
	view := blockchain.NewUtxoViewpoint()
	got := calcPriority(coinbase, view, tmpl.Height)
	require.Zero(t, got, "a coinbase transaction always has zero priority")
}

// Copyright (c) 2014-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"container/heap"
	"math"

	"github.com/ledgercore/ledgercore/blockchain"
	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/mempool"
	"github.com/ledgercore/ledgercore/txscript"
	"github.com/ledgercore/ledgercore/wire"
)

const (
	// blockHeaderOverhead is the max number of bytes it takes to
	// serialize a block header plus the varint holding the transaction
	// count.
	blockHeaderOverhead = wire.BlockHeaderLen + wire.MaxVarIntPayload

	// CoinbaseFlags is tagged onto the generated coinbase's signature
	// script, identifying the software that produced the block.
	CoinbaseFlags = "/ledgercore/"

	// minHighPriority is the minimum priority value that allows a
	// transaction to be considered high priority, per spec.md §4.8's
	// "item.priority >= minPriority": a transaction with a one-coin
	// input a day old qualifies, the same threshold the teacher's
	// btcd-family ancestors use.
	minHighPriority = float64(chainutil.Amount(1e8)) * 144 / 250
)

// TxSource is re-exported so callers only need to import mining to
// construct a BlkTmplGenerator.
type TxSource = mempool.TxSource

// TxDesc is re-exported for the same reason.
type TxDesc = mempool.TxDesc

// BlockTemplate is a candidate block, not yet solved, with the fee and
// signature-operation cost of each of its transactions recorded alongside
// it so a caller assembling getblocktemplate-style output does not need to
// recompute them.
type BlockTemplate struct {
	// Block is ready to be solved by a miner except for its nonce.
	Block *wire.MsgBlock

	// Fees holds, index-aligned with Block.Transactions, the fee paid by
	// each transaction; entry 0 (the coinbase) holds the negative of the
	// sum of the rest.
	Fees []int64

	// SigOpCosts holds, index-aligned with Block.Transactions, the
	// BIP141 signature operation cost of each transaction.
	SigOpCosts []int64

	// Height is the height at which the template connects.
	Height int32

	// ValidPayAddress is true when the coinbase pays the configured
	// MiningAddrScript rather than being left anyone-redeemable.
	ValidPayAddress bool
}

// txPrioItem pairs a pooled transaction with the bookkeeping the selection
// loop needs: its priority and fee-rate metrics, its already-computed
// weight, and the set of in-block parents it is still waiting on.
type txPrioItem struct {
	tx       *chainutil.Tx
	txDesc   *TxDesc
	priority float64
	feePerKB int64
	weight   int64

	dependsOn map[chainhash.Hash]struct{}
}

// txPriorityQueue is a container/heap of txPrioItems whose ordering
// (priority-first or fee-first) is switched mid-flight by SetLessFunc, per
// spec.md §4.8 step 3's "switch the queue comparator to fee-rate once
// exhausted".
type txPriorityQueue struct {
	lessFunc func(*txPriorityQueue, int, int) bool
	items    []*txPrioItem
}

func (pq *txPriorityQueue) Len() int { return len(pq.items) }

func (pq *txPriorityQueue) Less(i, j int) bool { return pq.lessFunc(pq, i, j) }

func (pq *txPriorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *txPriorityQueue) Push(x interface{}) {
	pq.items = append(pq.items, x.(*txPrioItem))
}

func (pq *txPriorityQueue) Pop() interface{} {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	return item
}

func (pq *txPriorityQueue) SetLessFunc(lessFunc func(*txPriorityQueue, int, int) bool) {
	pq.lessFunc = lessFunc
	heap.Init(pq)
}

func txPQByPriority(pq *txPriorityQueue, i, j int) bool {
	if pq.items[i].priority == pq.items[j].priority {
		return pq.items[i].feePerKB > pq.items[j].feePerKB
	}
	return pq.items[i].priority > pq.items[j].priority
}

func txPQByFee(pq *txPriorityQueue, i, j int) bool {
	if pq.items[i].feePerKB == pq.items[j].feePerKB {
		return pq.items[i].priority > pq.items[j].priority
	}
	return pq.items[i].feePerKB > pq.items[j].feePerKB
}

func newTxPriorityQueue(reserve int) *txPriorityQueue {
	pq := &txPriorityQueue{items: make([]*txPrioItem, 0, reserve)}
	pq.SetLessFunc(txPQByPriority)
	return pq
}

// BlkTmplGenerator builds block templates on top of a Chain from the
// transactions offered by a TxSource, per spec.md §4.8.
type BlkTmplGenerator struct {
	policy   *Policy
	chain    *blockchain.Chain
	txSource TxSource
}

// NewBlkTmplGenerator returns a generator that builds templates against
// chain using candidates drawn from txSource under policy.
func NewBlkTmplGenerator(policy *Policy, chain *blockchain.Chain, txSource TxSource) *BlkTmplGenerator {
	return &BlkTmplGenerator{
		policy:   policy,
		chain:    chain,
		txSource: txSource,
	}
}

// calcPriority computes a transaction's priority as the input value-age sum
// divided by its serialized size, per spec.md §4.8's priority-first phase.
// Inputs not found in view (their parent is itself an unconfirmed
// dependency, credited once that parent is selected) contribute zero age.
func calcPriority(tx *chainutil.Tx, view *blockchain.UtxoViewpoint, nextBlockHeight int32) float64 {
	if blockchain.IsCoinBase(tx) {
		return 0
	}

	var totalInputAge float64
	for _, txIn := range tx.MsgTx().TxIn {
		entry := view.LookupEntry(txIn.PreviousOutPoint)
		if entry == nil || entry.IsSpent() {
			continue
		}
		inputAge := nextBlockHeight - entry.BlockHeight()
		if inputAge < 0 {
			inputAge = 0
		}
		totalInputAge += float64(entry.Amount()) * float64(inputAge)
	}

	size := tx.MsgTx().SerializeSize()
	if size == 0 {
		return 0
	}
	return totalInputAge / float64(size)
}

func descsToTxs(descs []*TxDesc) []*chainutil.Tx {
	txs := make([]*chainutil.Tx, len(descs))
	for i, d := range descs {
		txs[i] = d.Tx
	}
	return txs
}

// coinbaseSignatureScript builds the signature script every coinbase
// transaction in a template carries: the BIP34 serialized block height
// followed by CoinbaseFlags.
func coinbaseSignatureScript(nextBlockHeight int32) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	b.AddInt64(int64(nextBlockHeight))
	b.AddData([]byte(CoinbaseFlags))
	return b.Script()
}

// NewBlockTemplate assembles a candidate block on top of the chain's
// current tip, implementing spec.md §4.8's four-step algorithm: an empty
// template with coinbase, a dependency graph seeded from transactions with
// no unresolved in-block parent, a priority-then-fee selection loop bounded
// by weight and sigop-cost caps, and a finalize pass that fixes up the
// coinbase value, merkle root, and witness commitment.
func (g *BlkTmplGenerator) NewBlockTemplate() (*BlockTemplate, error) {
	tip := g.chain.TipEntry()
	nextHeight := tip.Height() + 1
	params := g.chain.ChainParams()

	ts := g.chain.MedianTimeSource().AdjustedTime()
	minTimestamp := tip.CalcPastMedianTime().Add(1)
	if ts.Before(minTimestamp) {
		ts = minTimestamp
	}

	nextBits, err := g.chain.CalcNextRequiredDifficulty(ts)
	if err != nil {
		return nil, err
	}
	nextVersion, err := g.chain.CalcNextBlockVersion()
	if err != nil {
		return nil, err
	}

	coinbaseScript, err := coinbaseSignatureScript(nextHeight)
	if err != nil {
		return nil, err
	}
	var nullHash chainhash.Hash
	coinbaseTx := wire.NewMsgTx(1)
	coinbaseTx.AddTxIn(wire.NewTxIn(
		wire.NewOutPoint(&nullHash, math.MaxUint32), coinbaseScript, nil))
	payScript := g.policy.MiningAddrScript
	coinbaseTx.AddTxOut(wire.NewTxOut(0, payScript))

	sourceTxns := g.txSource.MiningDescs()
	view, err := g.chain.FetchUtxoView(descsToTxs(sourceTxns))
	if err != nil {
		return nil, err
	}

	inPool := make(map[chainhash.Hash]*txPrioItem, len(sourceTxns))
	dependers := make(map[chainhash.Hash][]*txPrioItem)

	for _, txDesc := range sourceTxns {
		tx := txDesc.Tx
		if blockchain.IsCoinBase(tx) {
			continue
		}
		if !blockchain.IsFinalizedTransaction(tx, nextHeight, ts) {
			continue
		}

		inPool[*tx.Hash()] = &txPrioItem{
			tx:       tx,
			txDesc:   txDesc,
			feePerKB: txDesc.FeePerKB,
			priority: calcPriority(tx, view, nextHeight),
			weight:   blockchain.GetTransactionWeight(tx),
		}
	}

	for hash, item := range inPool {
		for _, txIn := range item.tx.MsgTx().TxIn {
			parentHash := txIn.PreviousOutPoint.Hash
			if _, ok := inPool[parentHash]; !ok || parentHash == hash {
				continue
			}
			if item.dependsOn == nil {
				item.dependsOn = make(map[chainhash.Hash]struct{})
			}
			item.dependsOn[parentHash] = struct{}{}
			dependers[parentHash] = append(dependers[parentHash], item)
		}
	}

	priorityQueue := newTxPriorityQueue(len(sourceTxns))
	for _, item := range inPool {
		if len(item.dependsOn) == 0 {
			heap.Push(priorityQueue, item)
		}
	}

	blockTxns := []*chainutil.Tx{chainutil.NewTx(coinbaseTx)}
	txFees := []int64{0}
	txSigOps := []int64{0}

	blockWeight := int64(blockHeaderOverhead) + blockchain.GetTransactionWeight(blockTxns[0])
	blockSigOpCost := int64(0)
	totalFees := int64(0)

	priorityWeight := g.policy.BlockPriorityWeight
	blockMaxWeight := g.policy.BlockMaxWeight
	if blockMaxWeight <= 0 || blockMaxWeight > chainutil.MaxBlockWeight {
		blockMaxWeight = chainutil.MaxBlockWeight
	}

	switchedToFees := false
	for priorityQueue.Len() > 0 {
		item := heap.Pop(priorityQueue).(*txPrioItem)
		tx := item.tx

		if !switchedToFees &&
			(blockWeight+item.weight > priorityWeight || item.priority < minHighPriority) {
			switchedToFees = true
			priorityQueue.SetLessFunc(txPQByFee)
			heap.Push(priorityQueue, item)
			continue
		}

		if blockWeight+item.weight > blockMaxWeight {
			log.Tracef("Skipping tx %s because it would exceed the max block weight", tx.Hash())
			continue
		}

		sigOpCost, err := blockchain.GetSigOpCost(tx, false, view, true, true)
		if err != nil {
			log.Tracef("Skipping tx %s due to error computing sigop cost: %v", tx.Hash(), err)
			continue
		}
		if blockSigOpCost+int64(sigOpCost) > chainutil.MaxBlockSigOpsCost {
			log.Tracef("Skipping tx %s because it would exceed the max sigop cost", tx.Hash())
			continue
		}

		if switchedToFees && blockWeight >= g.policy.BlockMinWeight &&
			chainutil.Amount(item.feePerKB) < g.policy.TxMinFreeFee {
			log.Tracef("Skipping free tx %s past the minimum block weight", tx.Hash())
			continue
		}

		blockTxns = append(blockTxns, tx)
		blockWeight += item.weight
		blockSigOpCost += int64(sigOpCost)
		totalFees += item.txDesc.Fee
		txFees = append(txFees, item.txDesc.Fee)
		txSigOps = append(txSigOps, int64(sigOpCost))

		view.AddTxOuts(tx, nextHeight)

		for _, depender := range dependers[*tx.Hash()] {
			delete(depender.dependsOn, *tx.Hash())
			if len(depender.dependsOn) == 0 {
				depender.priority = calcPriority(depender.tx, view, nextHeight)
				heap.Push(priorityQueue, depender)
			}
		}
	}

	subsidy := blockchain.CalcBlockSubsidy(nextHeight, params)
	coinbaseTx.TxOut[0].Value = subsidy + totalFees
	txFees[0] = -totalFees

	msgBlock := &wire.MsgBlock{}
	for _, tx := range blockTxns {
		msgBlock.AddTransaction(tx.MsgTx())
	}

	if msgBlock.HasWitness() {
		witnessScript := blockchain.CalcWitnessCommitmentScript(blockTxns, nullHash)
		coinbaseTx.TxIn[0].Witness = [][]byte{nullHash[:]}
		coinbaseTx.AddTxOut(wire.NewTxOut(0, witnessScript))
	}

	merkleRoot := blockchain.CalcMerkleRoot(blockTxns, false)
	msgBlock.Header = wire.BlockHeader{
		Version:    nextVersion,
		PrevBlock:  tip.Hash(),
		MerkleRoot: merkleRoot,
		Timestamp:  ts,
		Bits:       nextBits,
	}

	log.Debugf("Created new block template (%d transactions, %d in fees, "+
		"%d signature operation cost, weight %d)",
		len(blockTxns), totalFees, blockSigOpCost, blockWeight)

	return &BlockTemplate{
		Block:           msgBlock,
		Fees:            txFees,
		SigOpCosts:      txSigOps,
		Height:          nextHeight,
		ValidPayAddress: len(payScript) > 0,
	}, nil
}

// UpdateBlockTime regenerates template's timestamp to the current adjusted
// time, keeping it no earlier than the tip's past median time plus one
// second, and recomputes the difficulty bits for networks that retarget on
// every block.
func (g *BlkTmplGenerator) UpdateBlockTime(msgBlock *wire.MsgBlock) error {
	tip := g.chain.TipEntry()
	newTime := g.chain.MedianTimeSource().AdjustedTime()
	minTimestamp := tip.CalcPastMedianTime().Add(1)
	if newTime.Before(minTimestamp) {
		newTime = minTimestamp
	}
	msgBlock.Header.Timestamp = newTime

	bits, err := g.chain.CalcNextRequiredDifficulty(newTime)
	if err != nil {
		return err
	}
	msgBlock.Header.Bits = bits
	return nil
}

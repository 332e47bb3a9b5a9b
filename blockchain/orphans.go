// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"
	"time"

	"github.com/decred/dcrd/lru"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
)

// maxOrphanBlocks is the maximum number of orphan blocks that can be queued,
// guarding memory usage against a flood of blocks with unknown parents.
const maxOrphanBlocks = 500

// invalidBlockCacheSize is the number of block hashes retained in the
// fixed-size invalid-block LRU.
const invalidBlockCacheSize = 500

// orphanBlock represents a block for which the parent is not yet known, and
// the time it expires (24 hours after it was added) so that stale orphans
// can eventually be evicted.
type orphanBlock struct {
	block      *chainutil.Block
	expiration time.Time
}

// orphanPool stores blocks whose parents have not yet been seen, indexed
// both by the orphan's own hash and by its parent's hash, per the
// dual-mapping orphan store used to resolve stalled chains once their
// missing ancestor finally arrives. It also retains a fixed-size LRU of
// hashes known to be invalid so repeated delivery of the same bad block (or
// any of its descendants) is rejected without re-validating.
type orphanPool struct {
	orphanLock   sync.RWMutex
	orphans      map[chainhash.Hash]*orphanBlock
	prevOrphans  map[chainhash.Hash][]*orphanBlock
	oldestOrphan *orphanBlock
	invalid      *lru.Cache
}

// newOrphanPool returns an initialized, empty orphan pool.
func newOrphanPool() *orphanPool {
	return &orphanPool{
		orphans:     make(map[chainhash.Hash]*orphanBlock),
		prevOrphans: make(map[chainhash.Hash][]*orphanBlock),
		invalid:     lru.NewCache(invalidBlockCacheSize),
	}
}

// IsKnownOrphan returns whether hash is the hash of a block already known to
// be an orphan.
func (p *orphanPool) IsKnownOrphan(hash *chainhash.Hash) bool {
	p.orphanLock.RLock()
	defer p.orphanLock.RUnlock()
	_, ok := p.orphans[*hash]
	return ok
}

// GetOrphanRoot walks the prevOrphans chain backward from hash to find the
// root of the longest known orphan chain leading up to it, used to decide
// which parent hash to request from peers.
func (p *orphanPool) GetOrphanRoot(hash *chainhash.Hash) *chainhash.Hash {
	p.orphanLock.RLock()
	defer p.orphanLock.RUnlock()

	orphanRoot := hash
	prevHash := hash
	for {
		orphan, ok := p.orphans[*prevHash]
		if !ok {
			break
		}
		orphanRoot = prevHash
		prevHash = &orphan.block.MsgBlock().Header.PrevBlock
	}
	return orphanRoot
}

// removeOrphanBlock removes the passed orphan block from the internal
// orphan maps. It does not lock; callers must hold orphanLock for writing.
func (p *orphanPool) removeOrphanBlock(orphan *orphanBlock) {
	orphanHash := orphan.block.Hash()
	delete(p.orphans, *orphanHash)

	prevHash := &orphan.block.MsgBlock().Header.PrevBlock
	orphans := p.prevOrphans[*prevHash]
	for i := 0; i < len(orphans); i++ {
		if orphans[i].block.Hash().IsEqual(orphanHash) {
			copy(orphans[i:], orphans[i+1:])
			orphans[len(orphans)-1] = nil
			orphans = orphans[:len(orphans)-1]
			i--
		}
	}
	p.prevOrphans[*prevHash] = orphans

	if len(p.prevOrphans[*prevHash]) == 0 {
		delete(p.prevOrphans, *prevHash)
	}

	if p.oldestOrphan == orphan {
		p.oldestOrphan = nil
	}
}

// AddOrphanBlock adds the passed block to the orphan pool. Expired orphans
// are dropped first; if the pool is still full, the orphan picked by
// chooseEviction (the one with the lowest coinbase height) is evicted to make
// room. oldestOrphan is tracked but plays no part in choosing the eviction.
func (p *orphanPool) AddOrphanBlock(block *chainutil.Block) {
	p.orphanLock.Lock()
	defer p.orphanLock.Unlock()

	for _, oBlock := range p.orphans {
		if time.Now().After(oBlock.expiration) {
			p.removeOrphanBlock(oBlock)
			continue
		}
		if p.oldestOrphan == nil || oBlock.expiration.Before(p.oldestOrphan.expiration) {
			p.oldestOrphan = oBlock
		}
	}

	if len(p.orphans)+1 > maxOrphanBlocks {
		evict := p.chooseEviction()
		if evict != nil {
			p.removeOrphanBlock(evict)
		}
	}

	expiration := time.Now().Add(time.Hour * 24)
	oBlock := &orphanBlock{
		block:      block,
		expiration: expiration,
	}
	p.orphans[*block.Hash()] = oBlock

	prevHash := &block.MsgBlock().Header.PrevBlock
	p.prevOrphans[*prevHash] = append(p.prevOrphans[*prevHash], oBlock)
}

// chooseEviction selects which orphan to drop when the pool is full: the
// heuristic prefers evicting the orphan rooted at the lowest implied
// coinbase height, under the theory that the orphan with the highest
// coinbase height is most likely to be a hint at the sending peer's actual
// tip and worth holding onto a little longer.
func (p *orphanPool) chooseEviction() *orphanBlock {
	var worst *orphanBlock
	worstHeight := int32(1<<31 - 1)
	for _, oBlock := range p.orphans {
		height := extractCoinbaseHeightNoErr(oBlock.block)
		if worst == nil || height < worstHeight {
			worst = oBlock
			worstHeight = height
		}
	}
	return worst
}

// extractCoinbaseHeightNoErr returns the coinbase height for block's
// coinbase transaction, or 0 if it cannot be determined (pre-BIP34 blocks),
// used purely as an eviction hint and never for consensus decisions.
func extractCoinbaseHeightNoErr(block *chainutil.Block) int32 {
	if len(block.MsgBlock().Transactions) == 0 {
		return 0
	}
	height, err := ExtractCoinbaseHeight(block.Transactions()[0])
	if err != nil {
		return 0
	}
	return height
}

// RemoveOrphanBlock removes orphan from the orphan pool.
func (p *orphanPool) RemoveOrphanBlock(orphan *chainutil.Block) {
	p.orphanLock.Lock()
	defer p.orphanLock.Unlock()
	if ob, ok := p.orphans[*orphan.Hash()]; ok {
		p.removeOrphanBlock(ob)
	}
}

// OrphansByPrevHash returns the set of known orphans whose parent hash is
// prevHash, used to resolve a chain of orphans once their common ancestor
// finally commits.
func (p *orphanPool) OrphansByPrevHash(prevHash *chainhash.Hash) []*chainutil.Block {
	p.orphanLock.RLock()
	defer p.orphanLock.RUnlock()

	orphans := p.prevOrphans[*prevHash]
	out := make([]*chainutil.Block, 0, len(orphans))
	for _, o := range orphans {
		out = append(out, o.block)
	}
	return out
}

// MarkInvalid records hash as known-invalid, so future delivery attempts of
// the same hash are rejected immediately. ProcessBlock also rejects, and
// records in turn, any block whose parent hash is recorded here.
func (p *orphanPool) MarkInvalid(hash chainhash.Hash) {
	p.invalid.Add(hash)
}

// IsKnownInvalid reports whether hash has previously been recorded as
// invalid.
func (p *orphanPool) IsKnownInvalid(hash chainhash.Hash) bool {
	return p.invalid.Contains(hash)
}

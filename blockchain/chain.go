// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ledgercore/ledgercore/chaincfg"
	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
)

// Config bundles everything a Chain needs at construction: persistent
// storage, network parameters, and the optional collaborators a caller may
// override (a median time source, a script verifier, a notification sink).
type Config struct {
	// DB is the persistent storage the chain is built against. It must
	// not be nil.
	DB ChainDB

	// ChainParams holds the consensus parameters for the network being
	// validated.
	ChainParams *chaincfg.Params

	// TimeSource supplies the adjusted time used by block timestamp
	// sanity checks. If nil, a fresh NewMedianTime is used.
	TimeSource MedianTimeSource

	// ScriptVerify dispatches signature script verification. If nil,
	// script verification is skipped entirely (CheckConnectBlock still
	// performs every other consensus check).
	ScriptVerify ScriptVerifier

	// Notifications, if set, receives every chain event as it occurs.
	Notifications NotificationCallback
}

// Chain is the block validation and chain management engine: it maintains
// the set of known chain entries, the current best chain, the orphan pool,
// and the BIP9 deployment state, and serializes all mutating operations
// through a locker keyed by block hash.
type Chain struct {
	params       *chaincfg.Params
	db           ChainDB
	timeSource   MedianTimeSource
	scriptVerify ScriptVerifier
	notify       NotificationCallback

	locker  *locker
	orphans *orphanPool
	states  *DeploymentStates

	indexLock sync.RWMutex
	index     map[chainhash.Hash]*ChainEntry
	bestChain *ChainEntry

	checkpoints         []chaincfg.Checkpoint
	checkpointsByHeight map[int32]*chaincfg.Checkpoint
	checkpointsDisabled atomic.Bool

	synced atomic.Bool
}

// New constructs a Chain from cfg, loading the existing entry index from DB
// or, if the database is empty, initializing it with the network's genesis
// block.
func New(cfg *Config) (*Chain, error) {
	if cfg == nil || cfg.DB == nil {
		return nil, AssertError("blockchain.New: nil config or ChainDB")
	}
	if cfg.ChainParams == nil {
		return nil, AssertError("blockchain.New: nil ChainParams")
	}

	timeSource := cfg.TimeSource
	if timeSource == nil {
		timeSource = NewMedianTime()
	}

	c := &Chain{
		params:       cfg.ChainParams,
		db:           cfg.DB,
		timeSource:   timeSource,
		scriptVerify: cfg.ScriptVerify,
		notify:       cfg.Notifications,
		locker:       newLocker(),
		orphans:      newOrphanPool(),
		states:       NewDeploymentStates(cfg.ChainParams),
		index:        make(map[chainhash.Hash]*ChainEntry),
	}

	c.checkpoints = append(c.checkpoints, cfg.ChainParams.Checkpoints...)
	sort.Slice(c.checkpoints, func(i, j int) bool {
		return c.checkpoints[i].Height < c.checkpoints[j].Height
	})
	c.checkpointsByHeight = make(map[int32]*chaincfg.Checkpoint, len(c.checkpoints))
	for i := range c.checkpoints {
		c.checkpointsByHeight[c.checkpoints[i].Height] = &c.checkpoints[i]
	}

	tipHash, _, exists := cfg.DB.Tip()
	if !exists {
		genesisBlock := chainutil.NewBlock(cfg.ChainParams.GenesisBlock)
		genesisEntry := NewChainEntry(&cfg.ChainParams.GenesisBlock.Header, nil)
		genesisEntry.SetStatusFlags(statusDataStored | statusValid)

		if err := cfg.DB.Reset(genesisEntry, genesisBlock); err != nil {
			return nil, err
		}

		c.index[genesisEntry.Hash()] = genesisEntry
		c.bestChain = genesisEntry
		c.sendNotification(NTChainReset, genesisEntry)
		return c, nil
	}

	var entries []*ChainEntry
	if err := cfg.DB.Scan(func(entry *ChainEntry) error {
		entries = append(entries, entry)
		return nil
	}); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Height() < entries[j].Height()
	})

	for _, entry := range entries {
		if entry.Height() > 0 {
			parent, ok := c.index[entry.ParentHash()]
			if !ok {
				return nil, AssertError(fmt.Sprintf(
					"blockchain.New: entry %v at height %d has no "+
						"known parent in the scanned index",
					entry.Hash(), entry.Height()))
			}
			entry.linkParent(parent)
		}
		c.index[entry.Hash()] = entry
	}

	best, ok := c.index[tipHash]
	if !ok {
		return nil, AssertError("blockchain.New: tip hash missing from scanned index")
	}
	c.bestChain = best

	if c.isCurrentLocked() {
		c.synced.Store(true)
		c.checkpointsDisabled.Store(true)
	}

	return c, nil
}

// tipEntry returns the current best entry.
func (c *Chain) tipEntry() *ChainEntry {
	c.indexLock.RLock()
	defer c.indexLock.RUnlock()
	return c.bestChain
}

// setTipEntry records entry as the new best chain tip.
func (c *Chain) setTipEntry(entry *ChainEntry) {
	c.indexLock.Lock()
	c.bestChain = entry
	c.indexLock.Unlock()
}

// lookupEntry returns the indexed entry for hash, or nil.
func (c *Chain) lookupEntry(hash chainhash.Hash) *ChainEntry {
	c.indexLock.RLock()
	defer c.indexLock.RUnlock()
	return c.index[hash]
}

// addEntryToIndex records entry in the in-memory index.
func (c *Chain) addEntryToIndex(entry *ChainEntry) {
	c.indexLock.Lock()
	c.index[entry.Hash()] = entry
	c.indexLock.Unlock()
}

// BestState is a point-in-time snapshot of the chain's current tip.
type BestState struct {
	Hash      chainhash.Hash
	Height    int32
	Bits      uint32
	BlockTime time.Time
	ChainWork *big.Int
}

// BestSnapshot returns a snapshot of the current best chain tip.
func (c *Chain) BestSnapshot() *BestState {
	tip := c.tipEntry()
	return &BestState{
		Hash:      tip.Hash(),
		Height:    tip.Height(),
		Bits:      tip.Bits(),
		BlockTime: time.Unix(tip.Timestamp(), 0),
		ChainWork: tip.WorkSum(),
	}
}

// HaveBlock reports whether hash is already known, whether on the main
// chain, a side chain, or in the orphan pool.
func (c *Chain) HaveBlock(hash *chainhash.Hash) (bool, error) {
	if c.orphans.IsKnownOrphan(hash) {
		return true, nil
	}
	return c.db.HasEntry(*hash)
}

// IsCurrent reports whether the chain satisfies the sync gate: sufficient
// cumulative chainwork, a tip recent enough to be plausibly live, and past
// the network's last configured checkpoint.
func (c *Chain) IsCurrent() bool {
	return c.isCurrentLocked()
}

func (c *Chain) isCurrentLocked() bool {
	tip := c.tipEntry()
	if tip == nil {
		return false
	}

	if c.params.MinKnownChainWork != nil &&
		tip.WorkSum().Cmp(c.params.MinKnownChainWork) < 0 {
		return false
	}

	if c.params.MaxTipAge > 0 {
		tipTime := time.Unix(tip.Timestamp(), 0)
		if time.Since(tipTime) > c.params.MaxTipAge {
			return false
		}
	}

	if len(c.checkpoints) > 0 {
		lastCheckpoint := c.checkpoints[len(c.checkpoints)-1]
		if tip.Height() < lastCheckpoint.Height {
			return false
		}
	}

	return true
}

// maybeMarkSynced transitions the chain into the synced state the first time
// IsCurrent reports true, disabling further checkpoint enforcement per
// spec.md's sync gate.
func (c *Chain) maybeMarkSynced() {
	if c.synced.Load() {
		return
	}
	if !c.isCurrentLocked() {
		return
	}
	c.synced.Store(true)
	c.checkpointsDisabled.Store(true)
	c.sendNotification(NTChainSynced, c.BestSnapshot())
}

// ChainParams implements ChainCtx.
func (c *Chain) ChainParams() *chaincfg.Params { return c.params }

// BlocksPerRetarget implements ChainCtx.
func (c *Chain) BlocksPerRetarget() int32 {
	return int32(c.params.TargetTimespan / c.params.TargetTimePerBlock)
}

// MinRetargetTimespan implements ChainCtx.
func (c *Chain) MinRetargetTimespan() int64 {
	return int64(c.params.TargetTimespan.Seconds()) / c.params.RetargetAdjustmentFactor
}

// MaxRetargetTimespan implements ChainCtx.
func (c *Chain) MaxRetargetTimespan() int64 {
	return int64(c.params.TargetTimespan.Seconds()) * c.params.RetargetAdjustmentFactor
}

// VerifyCheckpoint implements ChainCtx.
func (c *Chain) VerifyCheckpoint(height int32, hash *chainhash.Hash) bool {
	if c.checkpointsDisabled.Load() {
		return true
	}
	cp, ok := c.checkpointsByHeight[height]
	if !ok {
		return true
	}
	return cp.Hash.IsEqual(hash)
}

// FindPreviousCheckpoint implements ChainCtx.
func (c *Chain) FindPreviousCheckpoint() (HeaderCtx, error) {
	if c.checkpointsDisabled.Load() || len(c.checkpoints) == 0 {
		return nil, nil
	}

	for i := len(c.checkpoints) - 1; i >= 0; i-- {
		cp := c.checkpoints[i]
		if entry := c.lookupEntry(*cp.Hash); entry != nil {
			return entry, nil
		}
	}
	return nil, nil
}

// rejectBlock records hash as invalid, unless err describes a malleable
// failure that a peer could have produced from an otherwise-valid block, and
// emits the corresponding notification.
func (c *Chain) rejectBlock(hash chainhash.Hash, err error) {
	if ruleErr, ok := err.(RuleError); ok && !ruleErr.ErrorCode.Malleated() {
		c.orphans.MarkInvalid(hash)
	}
	c.sendNotification(NTInvalidBlock, err)
}

// ProcessBlock is the chain engine's single entry point, implementing
// spec.md §4.5's add(block): duplicate guards, non-contextual sanity,
// parent lookup, contextual/input verification, chain-work-based placement
// (connecting to the tip, recording a side chain, or reorganizing onto one),
// and orphan resolution. It returns whether the block became part of the
// main chain and whether it was instead queued as an orphan.
func (c *Chain) ProcessBlock(block *chainutil.Block, flags BehaviorFlags) (isMainChain, isOrphan bool, err error) {
	hash := *block.Hash()

	release, err := c.locker.TryAcquire(hash)
	if err != nil {
		return false, false, err
	}
	defer release()

	if c.orphans.IsKnownInvalid(hash) {
		c.sendNotification(NTInvalidBlock, block)
		return false, false, ruleError(ErrDuplicateBlock,
			"block previously failed validation")
	}
	if c.orphans.IsKnownInvalid(block.MsgBlock().Header.PrevBlock) {
		c.orphans.MarkInvalid(hash)
		c.sendNotification(NTInvalidBlock, block)
		return false, false, ruleError(ErrDuplicateBlock,
			"block builds on a block that previously failed validation")
	}
	if c.orphans.IsKnownOrphan(&hash) {
		c.sendNotification(NTBlockExists, block)
		return false, true, nil
	}

	known, err := c.db.HasEntry(hash)
	if err != nil {
		return false, false, err
	}
	if known {
		c.sendNotification(NTBlockExists, block)
		return false, false, ruleError(ErrDuplicateBlock, "block already known")
	}

	if err := CheckBlockSanity(block, c.params.PowLimit, c.timeSource); err != nil {
		c.rejectBlock(hash, err)
		return false, false, err
	}

	prevHash := block.MsgBlock().Header.PrevBlock
	parent := c.lookupEntry(prevHash)
	if parent == nil {
		c.orphans.AddOrphanBlock(block)
		c.sendNotification(NTOrphanBlock, block)
		return false, true, nil
	}

	isMainChain, err = c.acceptBlock(block, parent, flags)
	if err != nil {
		c.rejectBlock(hash, err)
		return false, false, err
	}

	c.resolveOrphans(hash, flags)

	return isMainChain, false, nil
}

// acceptBlock runs the contextual checks for block against parent and
// decides where it belongs: extending the current tip, recorded as a side
// chain of lesser work, or triggering a reorganize because it now carries
// more cumulative work than the current best chain.
func (c *Chain) acceptBlock(block *chainutil.Block, parent *ChainEntry, flags BehaviorFlags) (bool, error) {
	header := &block.MsgBlock().Header
	if err := CheckBlockHeaderContext(header, parent, flags, c, false); err != nil {
		return false, err
	}

	newEntry := NewChainEntry(header, parent)
	tip := c.tipEntry()

	if newEntry.WorkSum().Cmp(tip.WorkSum()) <= 0 {
		if err := checkBlockContext(block, parent, flags, c, c.states); err != nil {
			return false, err
		}

		if err := c.db.SaveSideChain(newEntry, block); err != nil {
			return false, err
		}
		c.addEntryToIndex(newEntry)

		c.sendNotification(NTBlockAccepted, &BlockAcceptedNotification{
			Entry: newEntry, Block: block, OnMainChain: false,
		})
		c.sendNotification(NTCompetitor, newEntry)
		return false, nil
	}

	if err := checkBlockContext(block, parent, flags, c, c.states); err != nil {
		return false, err
	}
	c.addEntryToIndex(newEntry)

	parentHash := parent.Hash()
	tipHash := tip.Hash()
	if parentHash.IsEqual(&tipHash) {
		if err := c.connectTip(newEntry, block); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := c.db.SaveSideChain(newEntry, block); err != nil {
		return false, err
	}
	if err := c.reorganize(newEntry); err != nil {
		return false, err
	}
	return true, nil
}

// connectTip extends the current best chain by one block.
func (c *Chain) connectTip(entry *ChainEntry, block *chainutil.Block) error {
	view, err := c.db.FetchUtxoView(block.Transactions())
	if err != nil {
		return err
	}
	parentHash := entry.ParentHash()
	view.SetBestHash([32]byte(parentHash))

	opts := &ConnectBlockOptions{
		Chain:        c,
		States:       c.states,
		RunScripts:   c.scriptVerify != nil,
		ScriptVerify: c.scriptVerify,
	}
	undo, err := CheckConnectBlock(entry, block, c.db, view, opts)
	if err != nil {
		return err
	}
	if err := c.db.Save(entry, block, view, undo); err != nil {
		return err
	}

	entry.SetStatusFlags(statusDataStored | statusValid)
	c.setTipEntry(entry)

	c.sendNotification(NTBlockAccepted, &BlockAcceptedNotification{
		Entry: entry, Block: block, OnMainChain: true,
	})
	c.sendNotification(NTBlockConnected, &BlockConnectedNotification{
		Entry: entry, Block: block,
	})
	c.sendNotification(NTTipUpdated, entry)
	c.maybeMarkSynced()
	return nil
}

// TipEntry returns the current best chain entry, exported for collaborators
// such as the block template builder that need to walk ancestors or read
// header fields without a full BestSnapshot copy.
func (c *Chain) TipEntry() *ChainEntry {
	return c.tipEntry()
}

// CalcNextRequiredDifficulty calculates the required difficulty bits for a
// hypothetical block built on top of the current tip with the given
// timestamp, per spec.md §4.8's "bits = next target".
func (c *Chain) CalcNextRequiredDifficulty(timestamp time.Time) (uint32, error) {
	return calcNextRequiredDifficulty(c.tipEntry(), timestamp, c)
}

// CalcNextBlockVersion computes the version a block extending the current
// tip should carry, per spec.md §4.8's "version from computeBlockVersion".
func (c *Chain) CalcNextBlockVersion() (int32, error) {
	return c.states.CalcNextBlockVersion(c.tipEntry())
}

// FetchUtxoView returns a coin viewpoint populated with every output spent
// by txns, read through to the persistent coin set, for read-only callers
// such as the block template builder that must not mutate chain state.
func (c *Chain) FetchUtxoView(txns []*chainutil.Tx) (*UtxoViewpoint, error) {
	return c.db.FetchUtxoView(txns)
}

// MedianTimeSource exposes the chain's adjusted time source.
func (c *Chain) MedianTimeSource() MedianTimeSource {
	return c.timeSource
}

// resolveOrphans walks the orphan pool's prevOrphans index breadth-first
// starting from parentHash, accepting every orphan whose parent has just
// arrived and, transitively, any orphan that was waiting on one of those.
func (c *Chain) resolveOrphans(parentHash chainhash.Hash, flags BehaviorFlags) {
	queue := []chainhash.Hash{parentHash}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		children := c.orphans.OrphansByPrevHash(&cur)
		if len(children) == 0 {
			continue
		}

		parent := c.lookupEntry(cur)
		if parent == nil {
			continue
		}

		for _, child := range children {
			childHash := *child.Hash()

			isMain, err := c.acceptBlock(child, parent, flags)
			c.orphans.RemoveOrphanBlock(child)
			if err != nil {
				c.rejectBlock(childHash, err)
				continue
			}

			c.sendNotification(NTOrphanResolved, &BlockAcceptedNotification{
				Block: child, OnMainChain: isMain,
			})
			queue = append(queue, childHash)
		}
	}
}

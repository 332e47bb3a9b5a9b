// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/ledgercore/ledgercore/chaincfg"
)

const (
	// vbLegacyBlockVersion is the highest legacy block version before the
	// version bits scheme became active.
	vbLegacyBlockVersion = 4

	// vbTopBits defines the bits to set in the top 3 bits of the block
	// version to signal that the block is using the versionbits scheme.
	vbTopBits = 0x20000000

	// vbTopMask is the bitmask to use to determine whether or not a
	// block's version is using the versionbits scheme.
	vbTopMask = 0xe0000000

	// vbNumBits is the total number of bits available for versionbits
	// signaling.
	vbNumBits = 29
)

// thresholdConditionChecker provides a generic interface that is invoked to
// determine when a consensus rule change deployment activates.
type thresholdConditionChecker interface {
	// BeginTime returns the unix timestamp for the median block time
	// after which voting on a rule change starts.
	BeginTime() uint64

	// EndTime returns the unix timestamp for the median block time after
	// which an attempted rule change fails if it has not already been
	// locked in or activated.
	EndTime() uint64

	// RuleChangeActivationThreshold is the number of blocks, out of the
	// total number of blocks in a given period, that is needed to
	// activate a rule change.
	RuleChangeActivationThreshold() uint32

	// MinerConfirmationWindow is the number of blocks in each threshold
	// state retarget window.
	MinerConfirmationWindow() uint32

	// Condition returns whether the rule change activation condition has
	// been met, meaning that the bit in the block version associated
	// with the condition checker is set.
	Condition(entry HeaderCtx) (bool, error)
}

// bitConditionChecker implements thresholdConditionChecker for a specific
// BIP9 deployment bit number against a set of network parameters.
type bitConditionChecker struct {
	bit    uint8
	params *chaincfg.Params
	dep    chaincfg.ConsensusDeployment
}

func (c bitConditionChecker) BeginTime() uint64 { return c.dep.StartTime }
func (c bitConditionChecker) EndTime() uint64   { return c.dep.ExpireTime }

func (c bitConditionChecker) RuleChangeActivationThreshold() uint32 {
	return c.params.RuleChangeActivationThreshold
}

func (c bitConditionChecker) MinerConfirmationWindow() uint32 {
	return c.params.MinerConfirmationWindow
}

func (c bitConditionChecker) Condition(entry HeaderCtx) (bool, error) {
	conditionMask := uint32(1) << uint(c.dep.BitNumber)
	version := uint32(entry.BlockVersion())
	return version&vbTopMask == vbTopBits && version&conditionMask != 0, nil
}

// thresholdStateCache provides a type to cache the threshold states for each
// set of 'rules', memoized per spec.md §4.4 "(bit, entry)" so that recomputing
// the state never re-walks below the most recent period boundary with a
// cached answer.
type thresholdStateCache struct {
	entries map[chainhashHash]ThresholdState
}

// chainhashHash is a local alias kept to document that the cache is keyed by
// block hash, avoiding an import cycle concern if chainhash grows methods.
type chainhashHash = [32]byte

// newThresholdCaches returns a new array of caches to be used when
// calculating threshold states.
func newThresholdCaches(numCaches uint32) []thresholdStateCache {
	caches := make([]thresholdStateCache, numCaches)
	for i := 0; i < len(caches); i++ {
		caches[i] = thresholdStateCache{
			entries: make(map[chainhashHash]ThresholdState),
		}
	}
	return caches
}

// thresholdState returns the current rule change threshold state for the
// block AFTER the given node and deployment checker, walking back to the
// most recent cached or period-boundary answer and then folding forward, per
// spec.md §4.4's BIP9 state machine.
func thresholdState(prevNode HeaderCtx, checker thresholdConditionChecker, cache *thresholdStateCache) (ThresholdState, error) {
	confirmationWindow := int32(checker.MinerConfirmationWindow())
	if confirmationWindow == 0 {
		return ThresholdDefined, nil
	}

	if prevNode == nil || (prevNode.Height()+1) < confirmationWindow {
		return ThresholdDefined, nil
	}

	// Start from the last block of the most recent complete period, then
	// walk backwards through each of the previous periods until we find
	// a cached state or reach the beginning of the chain.
	prevNode = prevNode.RelativeAncestorCtx((prevNode.Height() + 1) % confirmationWindow)
	var neededStates []HeaderCtx
	for prevNode != nil {
		hash := hashOf(prevNode)
		if _, ok := cache.entries[hash]; ok {
			break
		}

		neededStates = append(neededStates, prevNode)
		prevNode = prevNode.RelativeAncestorCtx(confirmationWindow)
	}

	// The state for the ancestor at the starting point is either the
	// cached value, the default for a too-early chain, or ThresholdDefined
	// when we walked off the beginning of the chain.
	state := ThresholdDefined
	if prevNode != nil {
		if cached, ok := cache.entries[hashOf(prevNode)]; ok {
			state = cached
		}
	}

	// Run through each of the previous periods, newest to oldest as
	// discovered, processed oldest-first to fold the state machine
	// forward.
	for i := len(neededStates) - 1; i >= 0; i-- {
		prevNode = neededStates[i]

		switch state {
		case ThresholdDefined:
			medianTime := calcPastMedianTime(prevNode)
			if uint64(medianTime.Unix()) >= checker.EndTime() {
				state = ThresholdFailed
				break
			}
			if uint64(medianTime.Unix()) >= checker.BeginTime() {
				state = ThresholdStarted
			}

		case ThresholdStarted:
			medianTime := calcPastMedianTime(prevNode)
			if uint64(medianTime.Unix()) >= checker.EndTime() {
				state = ThresholdFailed
				break
			}

			count := uint32(0)
			countNode := prevNode
			for j := int32(0); j < confirmationWindow && countNode != nil; j++ {
				condition, err := checker.Condition(countNode)
				if err != nil {
					return ThresholdFailed, err
				}
				if condition {
					count++
				}
				countNode = hctxParent(countNode)
			}

			if count >= checker.RuleChangeActivationThreshold() {
				state = ThresholdLockedIn
			}

		case ThresholdLockedIn:
			state = ThresholdActive

		case ThresholdFailed, ThresholdActive:
			// Terminal states.
		}

		cache.entries[hashOf(prevNode)] = state
	}

	return state, nil
}

// hctxParent is a convenience wrapper around HeaderCtx.Parent, needed since
// Parent returns the interface type.
func hctxParent(h HeaderCtx) HeaderCtx {
	return h.Parent()
}

// DeploymentStates bundles one threshold-state cache per soft-fork
// deployment bit defined by a network's parameters, giving callers a single
// handle to query BIP9 activation against as of any given ancestor entry.
// The Chain orchestrator owns one instance per open chain. The memoized
// states are held in memory only: nothing writes them to the ChainDB state
// cache, so they are recomputed after a restart.
type DeploymentStates struct {
	params *chaincfg.Params
	caches []thresholdStateCache
}

// NewDeploymentStates returns a DeploymentStates ready to answer threshold
// queries for the given network parameters.
func NewDeploymentStates(params *chaincfg.Params) *DeploymentStates {
	return &DeploymentStates{
		params: params,
		caches: newThresholdCaches(uint32(chaincfg.DefinedDeployments)),
	}
}

// State returns the BIP9 threshold state for the block that would follow
// prevNode, for the given deployment bit.
func (d *DeploymentStates) State(prevNode HeaderCtx, bit chaincfg.DeploymentBit) (ThresholdState, error) {
	dep := d.params.Deployments[bit]
	checker := bitConditionChecker{bit: dep.BitNumber, params: d.params, dep: dep}
	return thresholdState(prevNode, checker, &d.caches[bit])
}

// CalcNextBlockVersion computes the version field a block extending
// prevNode should carry: the top signaling bits (vbTopBits), OR'd with one
// bit per deployment currently in the STARTED state, per
// spec.md §4.8's "version from computeBlockVersion over BIP9 states".
func (d *DeploymentStates) CalcNextBlockVersion(prevNode HeaderCtx) (int32, error) {
	version := uint32(vbTopBits)
	for bit := chaincfg.DeploymentBit(0); bit < chaincfg.DefinedDeployments; bit++ {
		dep := d.params.Deployments[bit]
		checker := bitConditionChecker{bit: dep.BitNumber, params: d.params, dep: dep}
		state, err := thresholdState(prevNode, checker, &d.caches[bit])
		if err != nil {
			return 0, err
		}
		if state == ThresholdStarted {
			version |= uint32(1) << dep.BitNumber
		}
	}
	return int32(version), nil
}

// entryHasher is implemented by ChainEntry to expose its hash as a cache
// key for the threshold state cache.
type entryHasher interface {
	entryHash() chainhashHash
}

// hashOf extracts the cache key for a HeaderCtx. ChainEntry, the only
// production implementation of HeaderCtx, satisfies entryHasher.
func hashOf(h HeaderCtx) chainhashHash {
	if he, ok := h.(entryHasher); ok {
		return he.entryHash()
	}

	// Fall back to a height/bits-derived key for HeaderCtx implementations
	// that don't carry a real block hash (e.g. synthetic test headers);
	// this only affects memoization, never the computed state itself.
	var out chainhashHash
	out[0] = byte(h.Height())
	out[1] = byte(h.Height() >> 8)
	out[2] = byte(h.Height() >> 16)
	out[3] = byte(h.Height() >> 24)
	out[4] = byte(h.Bits())
	return out
}

// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/ledgercore/ledgercore/chainutil"

// NotificationType represents the type of a notification sent to a chain
// client, covering both steady-state tip movement and the less common
// side-chain, reorg and sync-gate transitions.
type NotificationType int

const (
	// NTBlockAccepted indicates a block has been accepted into the block
	// chain, either as the new tip or as a side-chain entry. The caller
	// must check the BlockAcceptedNotification's OnMainChain field.
	NTBlockAccepted NotificationType = iota

	// NTTipUpdated indicates the best chain's tip has moved, whether by a
	// straightforward extension or as the final step of a reorganize.
	NTTipUpdated

	// NTBlockConnected indicates a block has been connected to the main
	// chain, carrying the connected entry and block.
	NTBlockConnected

	// NTBlockDisconnected indicates a block has been disconnected from
	// the main chain, emitted for every block walked off during a
	// reorganize, newest first.
	NTBlockDisconnected

	// NTBlockReconnected indicates a previously side-chain block has been
	// reconnected onto the main chain during a reorganize, emitted oldest
	// first.
	NTBlockReconnected

	// NTReorganization indicates a reorganize has completed, identifying
	// the old and new tips.
	NTReorganization

	// NTCompetitor indicates a side-chain block was accepted that does
	// not (yet) overtake the current best chain's cumulative work.
	NTCompetitor

	// NTOrphanResolved indicates a previously orphaned block has been
	// connected now that its parent chain arrived.
	NTOrphanResolved

	// NTOrphanBlock indicates a block was stored in the orphan pool
	// because its parent is not yet known.
	NTOrphanBlock

	// NTBlockExists indicates a submitted block is already known,
	// whether on the main chain, a side chain, or in the orphan pool.
	NTBlockExists

	// NTInvalidBlock indicates a submitted block failed validation and,
	// unless the failure was malleable, has been recorded in the
	// invalid-block cache.
	NTInvalidBlock

	// NTForkRejected indicates a block was rejected for attempting to
	// fork the chain at or before the most recent checkpoint.
	NTForkRejected

	// NTCheckpointDisabled indicates the sync gate has fired and
	// checkpoint enforcement has been disabled for the remainder of the
	// process's lifetime.
	NTCheckpointDisabled

	// NTOrphanPurged indicates stale entries were pruned from the orphan
	// pool.
	NTOrphanPurged

	// NTChainSynced indicates the chain has reached the synced state
	// described in spec.md's sync gate: sufficient chainwork, a recent
	// tip, and past the last checkpoint.
	NTChainSynced

	// NTValidationError indicates an unexpected (non-rule) error occurred
	// while processing a block.
	NTValidationError

	// NTChainReset indicates the chain database was reinitialized to the
	// genesis entry, discarding all prior state.
	NTChainReset
)

// Notification carries a single chain event along with its type-specific
// payload in Data. The concrete type of Data is determined by Type; each
// payload struct's doc comment names the NT* constants that carry it.
type Notification struct {
	Type NotificationType
	Data interface{}
}

// NotificationCallback is the callback signature chain clients register to
// receive Notifications. Chain invokes it synchronously and in order from
// whichever goroutine is driving block acceptance, mirroring the
// register-a-callback style the engine uses throughout rather than routing
// events through a channel.
type NotificationCallback func(*Notification)

// BlockAcceptedNotification is the payload for NTBlockAccepted.
type BlockAcceptedNotification struct {
	Entry      *ChainEntry
	Block      *chainutil.Block
	OnMainChain bool
}

// BlockConnectedNotification is the payload for NTBlockConnected and
// NTBlockReconnected.
type BlockConnectedNotification struct {
	Entry *ChainEntry
	Block *chainutil.Block
}

// BlockDisconnectedNotification is the payload for NTBlockDisconnected.
type BlockDisconnectedNotification struct {
	Entry *ChainEntry
	Block *chainutil.Block
}

// ReorganizationNotification is the payload for NTReorganization.
type ReorganizationNotification struct {
	OldTip *ChainEntry
	NewTip *ChainEntry
	Forked *ChainEntry
}

// sendNotification invokes the registered callback, if any, wrapping data in
// a Notification of the given type. It is a no-op when no callback was
// configured.
func (c *Chain) sendNotification(typ NotificationType, data interface{}) {
	if c.notify == nil {
		return
	}
	c.notify(&Notification{Type: typ, Data: data})
}

// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// findFork returns the highest common ancestor of a and b, walking each back
// to equal height first and then together until the pointers coincide.
func findFork(a, b *ChainEntry) *ChainEntry {
	for a.Height() > b.Height() {
		a = a.ChainParent()
	}
	for b.Height() > a.Height() {
		b = b.ChainParent()
	}
	for a != b {
		a = a.ChainParent()
		b = b.ChainParent()
	}
	return a
}

// reorganize switches the best chain from its current tip to newTip, which
// must carry greater cumulative work, per spec.md §4.6: the old chain is
// disconnected newest block first, then the new chain is connected oldest
// block first. If connecting any new-chain block fails, already-applied
// changes are unwound and the original tip is restored.
func (c *Chain) reorganize(newTip *ChainEntry) error {
	oldTip := c.tipEntry()
	fork := findFork(oldTip, newTip)

	var detach []*ChainEntry
	for n := oldTip; n != nil && n != fork; n = n.ChainParent() {
		detach = append(detach, n)
	}

	var attach []*ChainEntry
	for n := newTip; n != nil && n != fork; n = n.ChainParent() {
		attach = append(attach, n)
	}
	for i, j := 0, len(attach)-1; i < j; i, j = i+1, j-1 {
		attach[i], attach[j] = attach[j], attach[i]
	}

	for _, entry := range detach {
		blk, err := c.db.GetBlock(entry.Hash())
		if err != nil {
			return err
		}
		if _, err := c.db.Disconnect(entry); err != nil {
			return err
		}
		c.sendNotification(NTBlockDisconnected, &BlockDisconnectedNotification{
			Entry: entry, Block: blk,
		})
	}

	var connected []*ChainEntry
	for _, entry := range attach {
		if err := c.connectReorgEntry(entry, NTBlockReconnected); err != nil {
			rollbackErr := c.rollbackReorg(detach, connected)
			if rollbackErr != nil {
				return fmt.Errorf("reorganize failed (%w) and rollback "+
					"failed (%v); chain state may be inconsistent",
					err, rollbackErr)
			}
			return fmt.Errorf("reorganize failed, chain restored to "+
				"previous tip: %w", err)
		}
		connected = append(connected, entry)
	}

	c.setTipEntry(newTip)
	c.sendNotification(NTReorganization, &ReorganizationNotification{
		OldTip: oldTip, NewTip: newTip, Forked: fork,
	})
	c.sendNotification(NTTipUpdated, newTip)
	c.maybeMarkSynced()
	return nil
}

// connectReorgEntry fetches entry's block and re-derives its coin-view undo
// log against the database's current state (which must already reflect
// entry's parent as the tip), then commits it via ChainDB.Reconnect.
func (c *Chain) connectReorgEntry(entry *ChainEntry, notif NotificationType) error {
	blk, err := c.db.GetBlock(entry.Hash())
	if err != nil {
		return err
	}

	view, err := c.db.FetchUtxoView(blk.Transactions())
	if err != nil {
		return err
	}
	view.SetBestHash([32]byte(entry.ParentHash()))

	opts := &ConnectBlockOptions{
		Chain:        c,
		States:       c.states,
		RunScripts:   c.scriptVerify != nil,
		ScriptVerify: c.scriptVerify,
	}
	undo, err := CheckConnectBlock(entry, blk, c.db, view, opts)
	if err != nil {
		if ruleErr, ok := err.(RuleError); ok && !ruleErr.ErrorCode.Malleated() {
			c.orphans.MarkInvalid(entry.Hash())
		}
		return err
	}

	if err := c.db.Reconnect(entry, blk, view, undo); err != nil {
		return err
	}

	entry.SetStatusFlags(statusDataStored | statusValid)
	c.sendNotification(notif, &BlockConnectedNotification{Entry: entry, Block: blk})
	return nil
}

// rollbackReorg undoes a partially-applied reorganize: it disconnects every
// entry in connected (newest first, since that is the order they were
// attached) and reconnects the original chain in detach (oldest first,
// since detach was recorded newest-to-oldest).
func (c *Chain) rollbackReorg(detach, connected []*ChainEntry) error {
	for i := len(connected) - 1; i >= 0; i-- {
		if _, err := c.db.Disconnect(connected[i]); err != nil {
			return err
		}
	}

	for i := len(detach) - 1; i >= 0; i-- {
		if err := c.connectReorgEntry(detach[i], NTBlockReconnected); err != nil {
			return err
		}
	}

	return nil
}

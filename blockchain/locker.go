// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sync"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
)

// locker is a single-writer, many-reader async mutex additionally tracking
// the set of keys (block hashes) currently being processed by a writer, so
// that a second concurrent attempt at the same key fails fast rather than
// blocking behind the first. All mutating Chain operations (add, reset,
// replay, scan) serialize through a locker; read-only lookups that only
// touch the persistent index may bypass it entirely.
type locker struct {
	mtx     sync.RWMutex
	pending map[chainhash.Hash]struct{}
	pendMtx sync.Mutex
}

// newLocker returns an initialized locker.
func newLocker() *locker {
	return &locker{
		pending: make(map[chainhash.Hash]struct{}),
	}
}

// errAlreadyPending is returned by TryAcquire when the given key is already
// being processed by another writer.
type errAlreadyPending chainhash.Hash

func (e errAlreadyPending) Error() string {
	return fmt.Sprintf("block %v is already being processed", chainhash.Hash(e))
}

// TryAcquire registers hash as pending and takes the exclusive write lock,
// returning a release function to call once the writer is done. It fails
// immediately, without blocking, if hash is already pending.
func (l *locker) TryAcquire(hash chainhash.Hash) (func(), error) {
	l.pendMtx.Lock()
	if _, ok := l.pending[hash]; ok {
		l.pendMtx.Unlock()
		return nil, errAlreadyPending(hash)
	}
	l.pending[hash] = struct{}{}
	l.pendMtx.Unlock()

	l.mtx.Lock()
	release := func() {
		l.pendMtx.Lock()
		delete(l.pending, hash)
		l.pendMtx.Unlock()
		l.mtx.Unlock()
	}
	return release, nil
}

// IsPending reports whether hash is currently registered as being processed
// by a writer.
func (l *locker) IsPending(hash chainhash.Hash) bool {
	l.pendMtx.Lock()
	defer l.pendMtx.Unlock()
	_, ok := l.pending[hash]
	return ok
}

// RLock acquires a shared read lock for an operation, such as a lock-free
// index lookup fallback, that must still be serialized against a concurrent
// writer holding the exclusive lock.
func (l *locker) RLock() {
	l.mtx.RLock()
}

// RUnlock releases a shared read lock acquired via RLock.
func (l *locker) RUnlock() {
	l.mtx.RUnlock()
}

// Lock acquires the exclusive write lock without pending-key tracking, used
// by whole-database operations (reset, replay, scan) that are not keyed by
// a single block hash.
func (l *locker) Lock() {
	l.mtx.Lock()
}

// Unlock releases the exclusive write lock acquired via Lock.
func (l *locker) Unlock() {
	l.mtx.Unlock()
}

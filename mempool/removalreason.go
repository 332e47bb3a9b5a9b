// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

// RemovalReason indicates why a transaction left the pool.
type RemovalReason int

const (
	// RemovalReasonUnknown is the zero value and should not be used
	// deliberately.
	RemovalReasonUnknown RemovalReason = iota

	// RemovalReasonBlock indicates the transaction was mined in a block
	// and so is no longer a mining candidate.
	RemovalReasonBlock

	// RemovalReasonConflict indicates the transaction was evicted
	// because one of its inputs was spent by a transaction that was
	// itself removed or mined.
	RemovalReasonConflict

	// RemovalReasonEvicted indicates the transaction was dropped by
	// explicit caller request rather than as a side effect of another
	// transaction's removal.
	RemovalReasonEvicted
)

// String returns a human-readable label for reason.
func (r RemovalReason) String() string {
	switch r {
	case RemovalReasonBlock:
		return "mined"
	case RemovalReasonConflict:
		return "conflict"
	case RemovalReasonEvicted:
		return "evicted"
	default:
		return "unknown"
	}
}

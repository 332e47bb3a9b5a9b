// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil

const (
	// WitnessScaleFactor determines the level of "discount" witness data
	// receives compared to "base" data. A scale factor of 4, for example,
	// denotes that witness data is 1/4 as expensive as regular non-witness
	// data. This is the weight accounting scheme introduced by BIP141.
	WitnessScaleFactor = 4

	// MaxBlockWeight defines the maximum block weight, where "weight" is
	// interpreted as defined in BIP141: (stripped_size * 4) + witness_size.
	MaxBlockWeight = 4000000

	// MaxBlockBaseSize is the maximum number of bytes within a block which
	// can be allocated to non-witness data, not including the block header.
	MaxBlockBaseSize = 1000000

	// MaxBlockSigOpsCost is the maximum number of signature operations
	// allowed for a block, weighted by the cost accounting scheme introduced
	// by BIP141.
	MaxBlockSigOpsCost = 80000

	// MinTxOutputSize is the minimum serialized size of a transaction
	// output, used as a divisor against free remaining block weight when
	// computing the legacy max sigops-per-base-byte limit.
	MinTxOutputSize = 9

	// MaxTxInSequenceNum is the value representing that a transaction
	// input's sequence number has not been used for locktime purposes.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// LockTimeThreshold is the number below which a lock time is
	// interpreted as a block height, and at or above which it is
	// interpreted as a Unix timestamp.
	LockTimeThreshold = 500000000
)

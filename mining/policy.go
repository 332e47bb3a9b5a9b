// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import "github.com/ledgercore/ledgercore/chainutil"

// Policy houses the template builder's knobs, per spec.md §4.8's weight and
// fee-rate caps.
type Policy struct {
	// BlockMinWeight is the minimum weight to aim for when generating a
	// block template, filling it with low-fee/free transactions past
	// the priority and fee-rate phases if there is room.
	BlockMinWeight int64

	// BlockMaxWeight is the maximum weight the generated template may
	// reach; it must not exceed chainutil.MaxBlockWeight.
	BlockMaxWeight int64

	// BlockPriorityWeight is how much of BlockMaxWeight is reserved for
	// the highest-priority transactions before the selection switches to
	// ordering strictly by fee rate.
	BlockPriorityWeight int64

	// TxMinFreeFee is the minimum fee rate, in base units per 1000
	// bytes, a transaction must meet to be considered for inclusion once
	// the builder has moved past the priority phase and BlockMinWeight
	// has already been reached.
	TxMinFreeFee chainutil.Amount

	// MiningAddrScript is the pkScript the generated coinbase pays. This
	// module has no Address/PayToAddrScript abstraction (wallet key
	// management is out of scope), so the operator configures the
	// output script directly.
	MiningAddrScript []byte
}

// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mempool provides a minimal pool of not-yet-mined transactions.

Its only consumer is the mining package's block template builder, so it
implements nothing beyond what that builder needs: non-contextual
acceptance of a candidate transaction, a spend index so a mined or
conflicting transaction can evict its dependents, and a TxSource snapshot
(MiningDescs) the template builder reads without ever touching pool
internals directly. Full consensus validation of a transaction's inputs
against the current UTXO set is the blockchain package's job, not this
one; TxPool only rejects transactions that are malformed on their own
terms (IsCoinBase, CheckTransactionSanity).
*/
package mempool

// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/txscript"
)

// GetTransactionWeight computes the value of the weight metric for a
// transaction, defined in BIP141 as: (stripped_size * 3) + total_size.
func GetTransactionWeight(tx *chainutil.Tx) int64 {
	msgTx := tx.MsgTx()
	baseSize := msgTx.SerializeSizeStripped()
	totalSize := msgTx.SerializeSize()
	return int64((baseSize * (chainutil.WitnessScaleFactor - 1)) + totalSize)
}

// GetBlockWeight computes the value of the weight metric for a block,
// defined identically to a transaction's weight but over the whole
// serialized block.
func GetBlockWeight(blk *chainutil.Block) int64 {
	msgBlock := blk.MsgBlock()
	baseSize := msgBlock.SerializeSizeStripped()
	totalSize := msgBlock.SerializeSize()
	return int64((baseSize * (chainutil.WitnessScaleFactor - 1)) + totalSize)
}

// GetSigOpCost returns the unified sig-op cost for the passed transaction,
// accumulating the legacy count, the BIP16 pay-to-script-hash count (if
// enforced) and the BIP141 witness count (if enforced), each weighted per
// BIP141 so the result is comparable directly against MaxBlockSigOpsCost.
func GetSigOpCost(tx *chainutil.Tx, isCoinBaseTx bool, utxoView *UtxoViewpoint, bip16, segwit bool) (int, error) {
	numSigOps := CountSigOps(tx) * chainutil.WitnessScaleFactor
	if bip16 {
		numP2SHSigOps, err := CountP2SHSigOps(tx, isCoinBaseTx, utxoView)
		if err != nil {
			return 0, err
		}
		numSigOps += numP2SHSigOps * chainutil.WitnessScaleFactor
	}

	if segwit && !isCoinBaseTx {
		msgTx := tx.MsgTx()
		for _, txIn := range msgTx.TxIn {
			utxo := utxoView.LookupEntry(txIn.PreviousOutPoint)
			if utxo == nil || utxo.IsSpent() {
				continue
			}
			numSigOps += txscript.GetWitnessSigOpCount(
				txIn.SignatureScript, utxo.PkScript(), txIn.Witness)
		}
	}

	return numSigOps, nil
}

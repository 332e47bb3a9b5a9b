// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"runtime"

	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/txscript"
)

// ScriptVerifier is the black-box predicate the chain dispatches a single
// transaction input's signature verification to. Script interpretation
// itself is treated as an external collaborator; this interface is the only
// surface the validator depends on.
type ScriptVerifier interface {
	// VerifyInput reports whether the signature script (plus witness, if
	// any) for the txIn-th input of tx satisfies pkScript under flags.
	VerifyInput(tx *chainutil.Tx, txInIndex int, pkScript []byte, flags txscript.ScriptFlags) error
}

// txValidateItem holds a transaction along with which input is to be
// validated, when needed as a workqueue item.
type txValidateItem struct {
	txInIndex int
	tx        *chainutil.Tx
	pkScript  []byte
}

// txValidator dispatches script verification for every input across a
// worker pool, per spec.md §5's "every script-verification batch dispatched
// to a worker pool" suspension point.
type txValidator struct {
	validateChan chan *txValidateItem
	quitChan     chan struct{}
	resultChan   chan error
	verifier     ScriptVerifier
	flags        txscript.ScriptFlags
}

func newTxValidator(verifier ScriptVerifier, flags txscript.ScriptFlags) *txValidator {
	return &txValidator{
		validateChan: make(chan *txValidateItem),
		quitChan:     make(chan struct{}),
		resultChan:   make(chan error),
		verifier:     verifier,
		flags:        flags,
	}
}

func (v *txValidator) validateHandler() {
out:
	for {
		select {
		case txVI := <-v.validateChan:
			err := v.verifier.VerifyInput(txVI.tx, txVI.txInIndex,
				txVI.pkScript, v.flags)

			select {
			case v.resultChan <- err:
			case <-v.quitChan:
				break out
			}

		case <-v.quitChan:
			break out
		}
	}
}

// Validate validates the scripts for all of the passed transaction inputs
// using multiple goroutines, returning the first validation error
// encountered, if any.
func (v *txValidator) Validate(items []*txValidateItem) error {
	if len(items) == 0 {
		return nil
	}

	maxGoRoutines := runtime.NumCPU() * 3
	if maxGoRoutines <= 0 {
		maxGoRoutines = 1
	}
	if maxGoRoutines > len(items) {
		maxGoRoutines = len(items)
	}

	for i := 0; i < maxGoRoutines; i++ {
		go v.validateHandler()
	}
	defer close(v.quitChan)

	currentItem := 0
	processedItems := 0
	for processedItems < len(items) {
		var itemChan chan *txValidateItem
		if currentItem < len(items) {
			itemChan = v.validateChan
		}

		select {
		case itemChan <- items[currentItem]:
			currentItem++

		case err := <-v.resultChan:
			processedItems++
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateTransactionScripts validates the scripts for the passed
// transaction using multiple goroutines dispatched through the provided
// ScriptVerifier.
func ValidateTransactionScripts(tx *chainutil.Tx, utxoView *UtxoViewpoint, flags txscript.ScriptFlags, verifier ScriptVerifier) error {
	txIns := tx.MsgTx().TxIn
	txValItems := make([]*txValidateItem, 0, len(txIns))
	for txInIdx, txIn := range txIns {
		utxo := utxoView.LookupEntry(txIn.PreviousOutPoint)
		if utxo == nil {
			str := fmt.Sprintf("unable to find unspent output %v "+
				"referenced from transaction %v",
				txIn.PreviousOutPoint, tx.Hash())
			return ruleError(ErrMissingTxOut, str)
		}

		txVI := &txValidateItem{
			txInIndex: txInIdx,
			tx:        tx,
			pkScript:  utxo.PkScript(),
		}
		txValItems = append(txValItems, txVI)
	}

	validator := newTxValidator(verifier, flags)
	return validator.Validate(txValItems)
}

// checkBlockScripts executes and validates the scripts for all transactions
// in the passed block, skipping the coinbase since it has no inputs to
// verify.
func checkBlockScripts(block *chainutil.Block, utxoView *UtxoViewpoint, flags txscript.ScriptFlags, verifier ScriptVerifier) error {
	if verifier == nil {
		return nil
	}

	transactions := block.Transactions()
	txValItems := make([]*txValidateItem, 0, len(transactions))
	for _, tx := range transactions {
		if IsCoinBase(tx) {
			continue
		}

		for txInIdx, txIn := range tx.MsgTx().TxIn {
			utxo := utxoView.LookupEntry(txIn.PreviousOutPoint)
			if utxo == nil {
				str := fmt.Sprintf("unable to find unspent output %v "+
					"referenced from transaction %v",
					txIn.PreviousOutPoint, tx.Hash())
				return ruleError(ErrMissingTxOut, str)
			}

			txVI := &txValidateItem{
				txInIndex: txInIdx,
				tx:        tx,
				pkScript:  utxo.PkScript(),
			}
			txValItems = append(txValItems, txVI)
		}
	}

	validator := newTxValidator(verifier, flags)
	return validator.Validate(txValItems)
}

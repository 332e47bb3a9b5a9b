// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// ErrorCode identifies a kind of error for consensus rule violations raised
// by the chain engine.
type ErrorCode int

const (
	// ErrDuplicateBlock indicates a block with the same hash already
	// exists in the chain index.
	ErrDuplicateBlock ErrorCode = iota

	// ErrMissingParent indicates the parent of a submitted block could
	// not be found.
	ErrMissingParent

	// ErrNoTransactions indicates the block does not have a least one
	// transaction.
	ErrNoTransactions

	// ErrNoTxInputs indicates a transaction does not have any inputs.
	ErrNoTxInputs

	// ErrNoTxOutputs indicates a transaction does not have any outputs.
	ErrNoTxOutputs

	// ErrBadTxOutValue indicates an output value for a transaction is
	// negative or exceeds the maximum allowed value.
	ErrBadTxOutValue

	// ErrDuplicateTxInputs indicates a transaction references the same
	// input more than once.
	ErrDuplicateTxInputs

	// ErrBadCoinbaseScriptLen indicates the length of the signature script
	// for a coinbase transaction is not within the valid range.
	ErrBadCoinbaseScriptLen

	// ErrTxTooBig indicates a transaction exceeds the maximum allowed
	// block payload when serialized.
	ErrTxTooBig

	// ErrBadTxInput indicates a non-coinbase transaction input refers to
	// a previous output that is null.
	ErrBadTxInput

	// ErrBadCoinbaseValue indicates the amount claimed by a block's
	// coinbase exceeds subsidy plus fees.
	ErrBadCoinbaseValue

	// ErrMissingCoinbaseHeight indicates the coinbase signature script for
	// a block after the BIP0034 height does not start with the serialized
	// block height.
	ErrMissingCoinbaseHeight

	// ErrBadCoinbaseHeight indicates the serialized block height in the
	// coinbase does not match the expected value.
	ErrBadCoinbaseHeight

	// ErrFirstTxNotCoinbase indicates the first transaction in a block is
	// not a coinbase.
	ErrFirstTxNotCoinbase

	// ErrMultipleCoinbases indicates a block contains more than one
	// coinbase.
	ErrMultipleCoinbases

	// ErrBadMerkleRoot indicates the calculated merkle root does not
	// match the expected value.
	ErrBadMerkleRoot

	// ErrDuplicateTx indicates a block contains an identical transaction
	// (by txid) more than once, invalidated by CVE-2012-2459.
	ErrDuplicateTx

	// ErrTooManySigOps indicates a transaction or block exceeds the
	// allowed maximum number of signature operations.
	ErrTooManySigOps

	// ErrBlockTooBig indicates the serialized block exceeds the maximum
	// allowed size.
	ErrBlockTooBig

	// ErrBlockWeightTooHigh indicates the block's weight metric exceeds
	// the maximum allowed value.
	ErrBlockWeightTooHigh

	// ErrBlockVersionTooOld indicates the block version is no longer
	// valid since the majority of the network has upgraded past it.
	ErrBlockVersionTooOld

	// ErrInvalidTime indicates the time in a block is too far in the
	// future or in an unsupported format.
	ErrInvalidTime

	// ErrTimeTooOld indicates the time is not after the median time of
	// the last several blocks.
	ErrTimeTooOld

	// ErrTimeTooNew indicates the time is too far in the future.
	ErrTimeTooNew

	// ErrDifficultyTooLow indicates the difficulty for a block is lower
	// than the difficulty required by a checkpoint.
	ErrDifficultyTooLow

	// ErrUnexpectedDifficulty indicates specified bits do not align with
	// the expected value either because it doesn't match the calculated
	// value based on difficulty rules or it is out of the valid range.
	ErrUnexpectedDifficulty

	// ErrHighHash indicates the block does not hash to a value which is
	// lower than the claimed target difficulty.
	ErrHighHash

	// ErrBadCheckpoint indicates a block that is expected to be at a
	// checkpoint height does not match the expected hash.
	ErrBadCheckpoint

	// ErrForkTooOld indicates a block is attempting to fork the block
	// chain before the last checkpoint.
	ErrForkTooOld

	// ErrCheckpointTimeTooOld indicates a block has a timestamp before
	// the last checkpoint.
	ErrCheckpointTimeTooOld

	// ErrTimewarpAttack indicates a block's timestamp violates the BIP94
	// timewarp guard.
	ErrTimewarpAttack

	// ErrPrevBlockNotBest indicates a block's previous block is not the
	// current tip, when one was required (template validation).
	ErrPrevBlockNotBest

	// ErrOverwriteTx indicates a new transaction in a block would
	// overwrite an existing unspent transaction with the same hash,
	// violating BIP0030.
	ErrOverwriteTx

	// ErrImmatureSpend indicates a transaction attempted to spend a
	// coinbase output before it had reached the required maturity.
	ErrImmatureSpend

	// ErrSpendTooHigh indicates a transaction attempted to spend more
	// value than the sum of all its inputs.
	ErrSpendTooHigh

	// ErrBadFees indicates the total fees available to the coinbase were
	// computed incorrectly.
	ErrBadFees

	// ErrMissingTxOut indicates a transaction output referenced by an
	// input either does not exist or has already been spent.
	ErrMissingTxOut

	// ErrUnfinalizedTx indicates a transaction has not been finalized
	// under height or time-based lock-time rules, including BIP0068
	// relative sequence locks.
	ErrUnfinalizedTx

	// ErrBIP30 indicates a block contains a transaction that duplicates a
	// still-unspent transaction from an earlier block.
	ErrBIP30

	// ErrUnexpectedWitness indicates a block contains witness data
	// without a corresponding commitment in the coinbase.
	ErrUnexpectedWitness

	// ErrWitnessCommitmentMismatch indicates the computed witness
	// commitment does not match the one embedded in the coinbase.
	ErrWitnessCommitmentMismatch
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:            "ErrDuplicateBlock",
	ErrMissingParent:             "ErrMissingParent",
	ErrNoTransactions:            "ErrNoTransactions",
	ErrNoTxInputs:                "ErrNoTxInputs",
	ErrNoTxOutputs:               "ErrNoTxOutputs",
	ErrBadTxOutValue:             "ErrBadTxOutValue",
	ErrDuplicateTxInputs:         "ErrDuplicateTxInputs",
	ErrBadCoinbaseScriptLen:      "ErrBadCoinbaseScriptLen",
	ErrTxTooBig:                  "ErrTxTooBig",
	ErrBadTxInput:                "ErrBadTxInput",
	ErrBadCoinbaseValue:          "ErrBadCoinbaseValue",
	ErrMissingCoinbaseHeight:     "ErrMissingCoinbaseHeight",
	ErrBadCoinbaseHeight:         "ErrBadCoinbaseHeight",
	ErrFirstTxNotCoinbase:        "ErrFirstTxNotCoinbase",
	ErrMultipleCoinbases:         "ErrMultipleCoinbases",
	ErrBadMerkleRoot:             "ErrBadMerkleRoot",
	ErrDuplicateTx:               "ErrDuplicateTx",
	ErrTooManySigOps:             "ErrTooManySigOps",
	ErrBlockTooBig:               "ErrBlockTooBig",
	ErrBlockWeightTooHigh:        "ErrBlockWeightTooHigh",
	ErrBlockVersionTooOld:        "ErrBlockVersionTooOld",
	ErrInvalidTime:               "ErrInvalidTime",
	ErrTimeTooOld:                "ErrTimeTooOld",
	ErrTimeTooNew:                "ErrTimeTooNew",
	ErrDifficultyTooLow:          "ErrDifficultyTooLow",
	ErrUnexpectedDifficulty:      "ErrUnexpectedDifficulty",
	ErrHighHash:                  "ErrHighHash",
	ErrBadCheckpoint:             "ErrBadCheckpoint",
	ErrForkTooOld:                "ErrForkTooOld",
	ErrCheckpointTimeTooOld:      "ErrCheckpointTimeTooOld",
	ErrTimewarpAttack:            "ErrTimewarpAttack",
	ErrPrevBlockNotBest:          "ErrPrevBlockNotBest",
	ErrOverwriteTx:               "ErrOverwriteTx",
	ErrImmatureSpend:             "ErrImmatureSpend",
	ErrSpendTooHigh:              "ErrSpendTooHigh",
	ErrBadFees:                   "ErrBadFees",
	ErrMissingTxOut:              "ErrMissingTxOut",
	ErrUnfinalizedTx:             "ErrUnfinalizedTx",
	ErrBIP30:                     "ErrBIP30",
	ErrUnexpectedWitness:         "ErrUnexpectedWitness",
	ErrWitnessCommitmentMismatch: "ErrWitnessCommitmentMismatch",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Malleated reports whether a peer could have produced this failure by
// mutating an otherwise-valid block, meaning the block's hash must not be
// added to the invalid-block cache. The proof-of-work failures are never
// malleated: ErrHighHash, and ErrUnexpectedDifficulty, which covers both an
// out-of-range target in the sanity check and a contextual difficulty
// mismatch. A low-work block is simply invalid, no matter how it was
// produced.
func (e ErrorCode) Malleated() bool {
	switch e {
	case ErrHighHash:
		return false
	case ErrTimeTooNew:
		return true
	case ErrUnexpectedWitness, ErrWitnessCommitmentMismatch:
		return true
	case ErrNoTransactions, ErrNoTxInputs, ErrNoTxOutputs, ErrBadTxOutValue,
		ErrDuplicateTxInputs, ErrBadCoinbaseScriptLen, ErrTxTooBig,
		ErrBadTxInput,
		ErrFirstTxNotCoinbase, ErrMultipleCoinbases, ErrBadMerkleRoot,
		ErrDuplicateTx, ErrTooManySigOps, ErrBlockTooBig, ErrInvalidTime:
		return true
	default:
		return false
	}
}

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block or transaction failed due to one of the many
// validation rules. The caller can use type assertions to determine if a
// failure was specifically due to a rule violation and access the ErrorCode
// field to ascertain the specific reason.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether or not the provided error is a RuleError with
// the provided error code.
func IsErrorCode(err error, c ErrorCode) bool {
	rerr, ok := err.(RuleError)
	return ok && rerr.ErrorCode == c
}

// AssertError identifies an error that indicates an internal code
// consistency issue and should be treated as a critical and unrecoverable
// error.
type AssertError string

// Error returns the assertion error as a human-readable string and
// satisfies the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

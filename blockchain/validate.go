// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ledgercore/ledgercore/chaincfg"
	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
	"github.com/ledgercore/ledgercore/txscript"
	"github.com/ledgercore/ledgercore/wire"
)

const (
	// MaxTimeOffsetSeconds is the maximum number of seconds a block time
	// is allowed to be ahead of the current time.  This is currently 2
	// hours.
	MaxTimeOffsetSeconds = 2 * 60 * 60

	// MinCoinbaseScriptLen is the minimum length a coinbase script can be.
	MinCoinbaseScriptLen = 2

	// MaxCoinbaseScriptLen is the maximum length a coinbase script can be.
	MaxCoinbaseScriptLen = 100

	// serializedHeightVersion is the block version which changed block
	// coinbases to start with the serialized block height.
	serializedHeightVersion = 2

	// baseSubsidy is the starting subsidy amount for mined blocks.  This
	// value is halved every SubsidyReductionInterval blocks.
	baseSubsidy int64 = 50 * chainutil.UnitsPerCoin

	// coinbaseHeightAllocSize is the amount of bytes that the
	// ScriptBuilder will allocate when validating the coinbase height.
	coinbaseHeightAllocSize = 5

	// maxTimeWarp is the maximum number of seconds that the timestamp of
	// the first block of a difficulty adjustment period is allowed to be
	// earlier than the last block of the previous period (BIP94).
	maxTimeWarp = 600 * time.Second
)

// zeroHash is the zero value for a chainhash.Hash and is defined as a
// package level variable to avoid the need to create a new instance every
// time a check is needed.
var zeroHash chainhash.Hash

// ShouldHaveSerializedBlockHeight determines if a block should have a
// serialized block height embedded within the scriptSig of its coinbase
// transaction. Judgement is based on the block version in the block header.
// Blocks with version 2 and above satisfy this criteria. See BIP0034 for
// further information.
func ShouldHaveSerializedBlockHeight(header *wire.BlockHeader) bool {
	return header.Version >= serializedHeightVersion
}

// IsCoinBaseTx determines whether or not a transaction is a coinbase.  A
// coinbase is a special transaction created by miners that has no inputs.
// This is represented in the block chain by a transaction with a single
// input that has a previous output transaction index set to the maximum
// value along with a zero hash.
//
// This function only differs from IsCoinBase in that it works with a raw
// wire transaction as opposed to a higher level chainutil transaction.
func IsCoinBaseTx(msgTx *wire.MsgTx) bool {
	if len(msgTx.TxIn) != 1 {
		return false
	}

	prevOut := &msgTx.TxIn[0].PreviousOutPoint
	if prevOut.Index != math.MaxUint32 || prevOut.Hash != zeroHash {
		return false
	}

	return true
}

// IsCoinBase determines whether or not a transaction is a coinbase, per
// IsCoinBaseTx, working with a higher level chainutil.Tx wrapper.
func IsCoinBase(tx *chainutil.Tx) bool {
	return IsCoinBaseTx(tx.MsgTx())
}

// SequenceLock represents the minimum relative block height and/or median
// time past at which a transaction's inputs become spendable, per BIP68.
type SequenceLock struct {
	Seconds     int64
	BlockHeight int32
}

// SequenceLockActive determines if the relative lock times imposed by
// sequenceLock have been met, factoring in the passed block height and
// median time past, implementing the second half of spec.md §4.5's
// getLocks/verifyLocks.
func SequenceLockActive(sequenceLock *SequenceLock, blockHeight int32, medianTimePast time.Time) bool {
	if sequenceLock.Seconds >= medianTimePast.Unix() ||
		sequenceLock.BlockHeight >= blockHeight {
		return false
	}

	return true
}

// CalcSequenceLock computes the minimum height and time after which tx may
// be included in a block given the entries referenced by its inputs, per
// spec.md §4.5's getLocks: for each input with the disable flag unset, a
// height-relative lock raises minHeight to the coin's height plus the
// masked sequence value minus one, while a time-relative lock raises minTime
// to the MTP of the ancestor just before the coin's height plus the scaled
// masked sequence value minus one.
func CalcSequenceLock(node *ChainEntry, tx *chainutil.Tx, utxoView *UtxoViewpoint) (*SequenceLock, error) {
	sequenceLock := &SequenceLock{Seconds: -1, BlockHeight: -1}

	if IsCoinBase(tx) {
		return sequenceLock, nil
	}

	msgTx := tx.MsgTx()
	if msgTx.Version < 2 {
		return sequenceLock, nil
	}

	for txInIndex, txIn := range msgTx.TxIn {
		if txIn.Sequence&wire.SequenceLockTimeDisabled == wire.SequenceLockTimeDisabled {
			continue
		}

		utxo := utxoView.LookupEntry(txIn.PreviousOutPoint)
		if utxo == nil {
			str := fmt.Sprintf("output %v referenced from "+
				"transaction %s:%d either does not exist or "+
				"has already been spent", txIn.PreviousOutPoint,
				tx.Hash(), txInIndex)
			return sequenceLock, ruleError(ErrMissingTxOut, str)
		}

		inputHeight := utxo.BlockHeight()
		if inputHeight == -1 {
			inputHeight = node.Height() + 1
		}

		relativeLock := int64(txIn.Sequence & wire.SequenceLockTimeMask)

		if txIn.Sequence&wire.SequenceLockTimeIsSeconds == wire.SequenceLockTimeIsSeconds {
			ancestor := node.Ancestor(inputHeight - 1)
			if ancestor == nil {
				continue
			}
			medianTime := ancestor.CalcPastMedianTime()
			timeLockSeconds := (relativeLock << wire.SequenceLockTimeGranularity) - 1
			endTime := medianTime.Unix() + timeLockSeconds
			if endTime > sequenceLock.Seconds {
				sequenceLock.Seconds = endTime
			}
		} else {
			blockHeight := inputHeight + int32(relativeLock) - 1
			if blockHeight > sequenceLock.BlockHeight {
				sequenceLock.BlockHeight = blockHeight
			}
		}
	}

	return sequenceLock, nil
}

// IsFinalizedTransaction determines whether or not a transaction is
// finalized, under the height/time pair described by blockHeight and
// blockTime.
func IsFinalizedTransaction(tx *chainutil.Tx, blockHeight int32, blockTime time.Time) bool {
	msgTx := tx.MsgTx()

	if msgTx.LockTime == 0 {
		return true
	}

	lockTime := msgTx.LockTime
	var blockTimeOrHeight int64
	if lockTime < txscript.LockTimeThreshold {
		blockTimeOrHeight = int64(blockHeight)
	} else {
		blockTimeOrHeight = blockTime.Unix()
	}
	if int64(lockTime) < blockTimeOrHeight {
		return true
	}

	for _, txIn := range msgTx.TxIn {
		if txIn.Sequence != wire.MaxTxInSequenceNum {
			return false
		}
	}
	return true
}

// isBIP0030Exception reports whether hash at height is one of the two
// historical blocks that violate the BIP0030 duplicate-coinbase rule, per
// the network's recorded exception table.
func isBIP0030Exception(params *chaincfg.Params, height int32, hash chainhash.Hash) bool {
	exception, ok := params.BIP0030Exceptions[height]
	return ok && exception.IsEqual(&hash)
}

// CalcBlockSubsidy returns the subsidy amount a block at the provided
// height should have. The subsidy is halved every SubsidyReductionInterval
// blocks: baseSubsidy / 2^(height/SubsidyReductionInterval). At the target
// block generation rate for the main network, this is approximately every
// four years.
func CalcBlockSubsidy(height int32, chainParams *chaincfg.Params) int64 {
	if chainParams.SubsidyReductionInterval == 0 {
		return baseSubsidy
	}

	return baseSubsidy >> uint(height/chainParams.SubsidyReductionInterval)
}

// CheckTransactionSanity performs some preliminary checks on a transaction
// to ensure it is sane. These checks are context free.
func CheckTransactionSanity(tx *chainutil.Tx) error {
	msgTx := tx.MsgTx()
	if len(msgTx.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}

	if len(msgTx.TxOut) == 0 {
		return ruleError(ErrNoTxOutputs, "transaction has no outputs")
	}

	serializedTxSize := msgTx.SerializeSizeStripped()
	if serializedTxSize > chainutil.MaxBlockBaseSize {
		str := fmt.Sprintf("serialized transaction is too big - got "+
			"%d, max %d", serializedTxSize, chainutil.MaxBlockBaseSize)
		return ruleError(ErrTxTooBig, str)
	}

	var totalUnits int64
	for _, txOut := range msgTx.TxOut {
		units := txOut.Value
		if units < 0 {
			str := fmt.Sprintf("transaction output has negative "+
				"value of %v", units)
			return ruleError(ErrBadTxOutValue, str)
		}
		if units > chainutil.MaxUnits {
			str := fmt.Sprintf("transaction output value is "+
				"higher than max allowed value: %v > %v ",
				units, chainutil.MaxUnits)
			return ruleError(ErrBadTxOutValue, str)
		}

		// Two's complement int64 overflow guarantees that any
		// overflow is detected and reported.
		totalUnits += units
		if totalUnits < 0 {
			str := fmt.Sprintf("total value of all transaction "+
				"outputs exceeds max allowed value of %v",
				chainutil.MaxUnits)
			return ruleError(ErrBadTxOutValue, str)
		}
		if totalUnits > chainutil.MaxUnits {
			str := fmt.Sprintf("total value of all transaction "+
				"outputs is %v which is higher than max "+
				"allowed value of %v", totalUnits,
				chainutil.MaxUnits)
			return ruleError(ErrBadTxOutValue, str)
		}
	}

	existingTxOut := make(map[wire.OutPoint]struct{})
	for _, txIn := range msgTx.TxIn {
		if _, exists := existingTxOut[txIn.PreviousOutPoint]; exists {
			return ruleError(ErrDuplicateTxInputs, "transaction "+
				"contains duplicate inputs")
		}
		existingTxOut[txIn.PreviousOutPoint] = struct{}{}
	}

	if IsCoinBase(tx) {
		slen := len(msgTx.TxIn[0].SignatureScript)
		if slen < MinCoinbaseScriptLen || slen > MaxCoinbaseScriptLen {
			str := fmt.Sprintf("coinbase transaction script length "+
				"of %d is out of range (min: %d, max: %d)",
				slen, MinCoinbaseScriptLen, MaxCoinbaseScriptLen)
			return ruleError(ErrBadCoinbaseScriptLen, str)
		}
	} else {
		for _, txIn := range msgTx.TxIn {
			if txIn.PreviousOutPoint.IsNull() {
				return ruleError(ErrBadTxInput, "transaction "+
					"input refers to previous output that "+
					"is null")
			}
		}
	}

	return nil
}

// CountSigOps returns the number of signature operations for all
// transaction input and output scripts in the provided transaction. This
// uses the quicker, but imprecise, signature operation counting mechanism
// from txscript.
func CountSigOps(tx *chainutil.Tx) int {
	msgTx := tx.MsgTx()

	totalSigOps := 0
	for _, txIn := range msgTx.TxIn {
		totalSigOps += txscript.GetSigOpCount(txIn.SignatureScript)
	}
	for _, txOut := range msgTx.TxOut {
		totalSigOps += txscript.GetSigOpCount(txOut.PkScript)
	}

	return totalSigOps
}

// CountP2SHSigOps returns the number of signature operations for all input
// transactions which are of the pay-to-script-hash type, using the precise
// counting mechanism which requires access to the output scripts of the
// referenced inputs.
func CountP2SHSigOps(tx *chainutil.Tx, isCoinBaseTx bool, utxoView *UtxoViewpoint) (int, error) {
	if isCoinBaseTx {
		return 0, nil
	}

	msgTx := tx.MsgTx()
	totalSigOps := 0
	for txInIndex, txIn := range msgTx.TxIn {
		utxo := utxoView.LookupEntry(txIn.PreviousOutPoint)
		if utxo == nil || utxo.IsSpent() {
			str := fmt.Sprintf("output %v referenced from "+
				"transaction %s:%d either does not exist or "+
				"has already been spent", txIn.PreviousOutPoint,
				tx.Hash(), txInIndex)
			return 0, ruleError(ErrMissingTxOut, str)
		}

		pkScript := utxo.PkScript()
		if !txscript.IsPayToScriptHash(pkScript) {
			continue
		}

		numSigOps := txscript.GetPreciseSigOpCount(txIn.SignatureScript, pkScript, true)

		lastSigOps := totalSigOps
		totalSigOps += numSigOps
		if totalSigOps < lastSigOps {
			str := fmt.Sprintf("the public key script from output "+
				"%v contains too many signature operations - "+
				"overflow", txIn.PreviousOutPoint)
			return 0, ruleError(ErrTooManySigOps, str)
		}
	}

	return totalSigOps, nil
}

// CheckBlockHeaderSanity performs some preliminary checks on a block header
// to ensure it is sane before continuing with processing. These checks are
// context free.
func CheckBlockHeaderSanity(header *wire.BlockHeader, powLimit *big.Int, timeSource MedianTimeSource, flags BehaviorFlags) error {
	if err := checkProofOfWork(header, powLimit, flags); err != nil {
		return err
	}

	// A block timestamp must not have a greater precision than one
	// second, since the consensus rules only apply to seconds.
	if !header.Timestamp.Equal(time.Unix(header.Timestamp.Unix(), 0)) {
		str := fmt.Sprintf("block timestamp of %v has a higher "+
			"precision than one second", header.Timestamp)
		return ruleError(ErrInvalidTime, str)
	}

	maxTimestamp := timeSource.AdjustedTime().Add(time.Second * MaxTimeOffsetSeconds)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	return nil
}

// checkBlockSanity performs some preliminary checks on a block to ensure it
// is sane before continuing with block processing. These checks are context
// free.
func checkBlockSanity(block *chainutil.Block, powLimit *big.Int, timeSource MedianTimeSource, flags BehaviorFlags) error {
	msgBlock := block.MsgBlock()
	header := &msgBlock.Header
	if err := CheckBlockHeaderSanity(header, powLimit, timeSource, flags); err != nil {
		return err
	}

	numTx := len(msgBlock.Transactions)
	if numTx == 0 {
		return ruleError(ErrNoTransactions, "block does not contain "+
			"any transactions")
	}
	if numTx > chainutil.MaxBlockBaseSize {
		str := fmt.Sprintf("block contains too many transactions - "+
			"got %d, max %d", numTx, chainutil.MaxBlockBaseSize)
		return ruleError(ErrBlockTooBig, str)
	}

	serializedSize := msgBlock.SerializeSizeStripped()
	if serializedSize > chainutil.MaxBlockBaseSize {
		str := fmt.Sprintf("serialized block is too big - got %d, "+
			"max %d", serializedSize, chainutil.MaxBlockBaseSize)
		return ruleError(ErrBlockTooBig, str)
	}

	transactions := block.Transactions()
	if !IsCoinBase(transactions[0]) {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in "+
			"block is not a coinbase")
	}

	for i, tx := range transactions[1:] {
		if IsCoinBase(tx) {
			str := fmt.Sprintf("block contains second coinbase at "+
				"index %d", i+1)
			return ruleError(ErrMultipleCoinbases, str)
		}
	}

	for _, tx := range transactions {
		if err := CheckTransactionSanity(tx); err != nil {
			return err
		}
	}

	// Build merkle tree and ensure the calculated merkle root matches the
	// header's, caching every transaction hash along the way.
	calcMerkleRoot := CalcMerkleRoot(transactions, false)
	if !header.MerkleRoot.IsEqual(&calcMerkleRoot) {
		str := fmt.Sprintf("block merkle root is invalid - block "+
			"header indicates %v, but calculated value is %v",
			header.MerkleRoot, calcMerkleRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	// Reject the CVE-2012-2459 duplicate-transaction mutation: the merkle
	// tree construction above is blind to exact-duplicate leaves, so a
	// separate pass is required.
	existingTxHashes := make(map[chainhash.Hash]struct{})
	for _, tx := range transactions {
		hash := tx.Hash()
		if _, exists := existingTxHashes[*hash]; exists {
			str := fmt.Sprintf("block contains duplicate "+
				"transaction %v", hash)
			return ruleError(ErrDuplicateTx, str)
		}
		existingTxHashes[*hash] = struct{}{}
	}

	totalSigOps := 0
	for _, tx := range transactions {
		lastSigOps := totalSigOps
		totalSigOps += CountSigOps(tx) * chainutil.WitnessScaleFactor
		if totalSigOps < lastSigOps || totalSigOps > chainutil.MaxBlockSigOpsCost {
			str := fmt.Sprintf("block contains too many signature "+
				"operations - got %v, max %v", totalSigOps,
				chainutil.MaxBlockSigOpsCost)
			return ruleError(ErrTooManySigOps, str)
		}
	}

	return nil
}

// CheckBlockSanity performs some preliminary checks on a block to ensure it
// is sane before continuing with block processing, implementing spec.md
// §4.1's verify_sanity.
func CheckBlockSanity(block *chainutil.Block, powLimit *big.Int, timeSource MedianTimeSource) error {
	return checkBlockSanity(block, powLimit, timeSource, BFNone)
}

// ExtractCoinbaseHeight attempts to extract the height of the block from
// the scriptSig of a coinbase transaction. Coinbase heights are only
// present in blocks of version 2 or later, per BIP0034.
func ExtractCoinbaseHeight(coinbaseTx *chainutil.Tx) (int32, error) {
	sigScript := coinbaseTx.MsgTx().TxIn[0].SignatureScript
	if len(sigScript) < 1 {
		str := fmt.Sprintf("the coinbase signature script for blocks "+
			"of version %d or greater must start with the length "+
			"of the serialized block height", serializedHeightVersion)
		return 0, ruleError(ErrMissingCoinbaseHeight, str)
	}

	opcode := int(sigScript[0])
	if opcode == txscript.OP_0 {
		return 0, nil
	}
	if opcode >= txscript.OP_1 && opcode <= txscript.OP_16 {
		return int32(opcode - (txscript.OP_1 - 1)), nil
	}

	serializedLen := int(sigScript[0])
	if len(sigScript[1:]) < serializedLen {
		str := fmt.Sprintf("the coinbase signature script for blocks "+
			"of version %d or greater must start with the "+
			"serialized block height", serializedHeightVersion)
		return 0, ruleError(ErrMissingCoinbaseHeight, str)
	}

	var serializedHeightBytes [4]byte
	copy(serializedHeightBytes[:], sigScript[1:serializedLen+1])
	serializedHeight := int32(binary.LittleEndian.Uint32(serializedHeightBytes[:]))

	if err := compareScript(serializedHeight, sigScript); err != nil {
		return 0, err
	}

	return serializedHeight, nil
}

// CheckSerializedHeight checks if the signature script in the passed
// transaction starts with the serialized block height of wantHeight.
func CheckSerializedHeight(coinbaseTx *chainutil.Tx, wantHeight int32) error {
	serializedHeight, err := ExtractCoinbaseHeight(coinbaseTx)
	if err != nil {
		return err
	}

	if serializedHeight != wantHeight {
		str := fmt.Sprintf("the coinbase signature script serialized "+
			"block height is %d when %d was expected",
			serializedHeight, wantHeight)
		return ruleError(ErrBadCoinbaseHeight, str)
	}
	return nil
}

func compareScript(height int32, script []byte) error {
	scriptBuilder := txscript.NewScriptBuilder(
		txscript.WithScriptAllocSize(coinbaseHeightAllocSize),
	)
	scriptHeight, err := scriptBuilder.AddInt64(int64(height)).Script()
	if err != nil {
		return err
	}

	if !bytes.HasPrefix(script, scriptHeight) {
		str := fmt.Sprintf("the coinbase signature script does not "+
			"minimally encode the height %d", height)
		return ruleError(ErrBadCoinbaseHeight, str)
	}

	return nil
}

// CheckBlockHeaderContext performs several validation checks on the block
// header which depend on its position within the block chain.
//
// The flags modify the behavior as follows:
//   - BFFastAdd: the difficulty, median-time and timewarp checks are
//     skipped; the block-version and checkpoint checks still run.
//
// skipCheckpoint lets callers opt out of the checkpoint checks entirely.
func CheckBlockHeaderContext(header *wire.BlockHeader, prevNode HeaderCtx, flags BehaviorFlags, c ChainCtx, skipCheckpoint bool) error {
	blockHeight := prevNode.Height() + 1
	params := c.ChainParams()

	fastAdd := flags&BFFastAdd == BFFastAdd
	if !fastAdd {
		expectedDifficulty, err := calcNextRequiredDifficulty(prevNode, header.Timestamp, c)
		if err != nil {
			return err
		}
		if header.Bits != expectedDifficulty {
			str := fmt.Sprintf("block difficulty of %d is not the "+
				"expected value of %d", header.Bits, expectedDifficulty)
			return ruleError(ErrUnexpectedDifficulty, str)
		}

		medianTime := calcPastMedianTime(prevNode)
		if !header.Timestamp.After(medianTime) {
			str := fmt.Sprintf("block timestamp of %v is not after "+
				"expected %v", header.Timestamp, medianTime)
			return ruleError(ErrTimeTooOld, str)
		}

		if params.EnforceTimewarpGuard {
			err := assertNoTimeWarp(blockHeight, c.BlocksPerRetarget(),
				header.Timestamp, time.Unix(prevNode.Timestamp(), 0))
			if err != nil {
				return err
			}
		}
	}

	// Reject outdated block versions once a majority of the network has
	// upgraded, per BIP0034/0065/0066.
	if header.Version < 2 && blockHeight >= params.BIP0034Height ||
		header.Version < 3 && blockHeight >= params.BIP0066Height ||
		header.Version < 4 && blockHeight >= params.BIP0065Height {

		str := fmt.Sprintf("new blocks with version %d are no longer "+
			"valid", header.Version)
		return ruleError(ErrBlockVersionTooOld, str)
	}

	if skipCheckpoint {
		return nil
	}

	blockHash := header.BlockHash()
	if !c.VerifyCheckpoint(blockHeight, &blockHash) {
		str := fmt.Sprintf("block at height %d does not match "+
			"checkpoint hash", blockHeight)
		return ruleError(ErrBadCheckpoint, str)
	}

	checkpointNode, err := c.FindPreviousCheckpoint()
	if err != nil {
		return err
	}
	if checkpointNode != nil && blockHeight < checkpointNode.Height() {
		str := fmt.Sprintf("block at height %d forks the main chain "+
			"before the previous checkpoint at height %d",
			blockHeight, checkpointNode.Height())
		return ruleError(ErrForkTooOld, str)
	}

	return nil
}

// assertNoTimeWarp checks the timestamp of the first block of each
// difficulty adjustment interval against the previous block's timestamp to
// guard against timewarp manipulation of the retarget algorithm, per
// BIP0094. Networks opt into this guard via chaincfg.Params.EnforceTimewarpGuard.
func assertNoTimeWarp(blockHeight, blocksPerRetarget int32, headerTimestamp, prevBlockTimestamp time.Time) error {
	if blockHeight%blocksPerRetarget != 0 {
		return nil
	}

	if headerTimestamp.Before(prevBlockTimestamp.Add(-maxTimeWarp)) {
		str := fmt.Sprintf("block's timestamp %v is too early on "+
			"difficulty adjustment block %v", headerTimestamp,
			prevBlockTimestamp)
		return ruleError(ErrTimewarpAttack, str)
	}

	return nil
}

// checkBlockContext performs several validation checks on the block which
// depend on its position within the block chain, implementing the header
// half plus the BIP34/witness-commitment/weight checks of spec.md §4.5's
// verify.
//
// The flags modify the behavior as follows:
//   - BFFastAdd: finalization and the BIP0034/witness-commitment checks are
//     skipped.
func checkBlockContext(block *chainutil.Block, prevNode *ChainEntry, flags BehaviorFlags, c ChainCtx, states *DeploymentStates) error {
	header := &block.MsgBlock().Header
	if err := CheckBlockHeaderContext(header, prevNode, flags, c, false); err != nil {
		return err
	}

	params := c.ChainParams()

	fastAdd := flags&BFFastAdd == BFFastAdd
	if !fastAdd {
		csvState, err := states.State(prevNode, chaincfg.DeploymentCSV)
		if err != nil {
			return err
		}

		blockTime := header.Timestamp
		if csvState == ThresholdActive {
			blockTime = calcPastMedianTime(prevNode)
		}

		blockHeight := prevNode.Height() + 1

		for _, tx := range block.Transactions() {
			if !IsFinalizedTransaction(tx, blockHeight, blockTime) {
				str := fmt.Sprintf("block contains unfinalized "+
					"transaction %v", tx.Hash())
				return ruleError(ErrUnfinalizedTx, str)
			}
		}

		if ShouldHaveSerializedBlockHeight(header) && blockHeight >= params.BIP0034Height {
			coinbaseTx := block.Transactions()[0]
			if err := CheckSerializedHeight(coinbaseTx, blockHeight); err != nil {
				return err
			}
		}

		segwitState, err := states.State(prevNode, chaincfg.DeploymentSegwit)
		if err != nil {
			return err
		}

		if segwitState == ThresholdActive {
			if err := ValidateWitnessCommitment(block); err != nil {
				return err
			}

			blockWeight := GetBlockWeight(block)
			if blockWeight > chainutil.MaxBlockWeight {
				str := fmt.Sprintf("block's weight metric is "+
					"too high - got %v, max %v",
					blockWeight, chainutil.MaxBlockWeight)
				return ruleError(ErrBlockWeightTooHigh, str)
			}
		}
	}

	return nil
}

// checkBIP30 ensures a block does not contain a transaction whose txid
// duplicates an existing, still-unspent transaction from an earlier block,
// per spec.md §4.5's verifyInputs preamble and BIP0030.
func checkBIP30(db ChainDB, params *chaincfg.Params, height int32, hash chainhash.Hash, block *chainutil.Block) error {
	for _, tx := range block.Transactions() {
		hasCoins, err := db.HasCoins(*tx.Hash())
		if err != nil {
			return err
		}
		if !hasCoins {
			continue
		}
		if isBIP0030Exception(params, height, hash) {
			continue
		}

		str := fmt.Sprintf("tried to overwrite transaction %v at "+
			"block height %d that is not fully spent", tx.Hash(), height)
		return ruleError(ErrBIP30, str)
	}

	return nil
}

// CheckTransactionInputs performs a series of checks on the inputs to a
// transaction to ensure they are valid: every input exists and is unspent,
// coinbase maturity has been satisfied, and all values are in the legal
// range with total inputs covering total outputs. It returns the
// transaction's fee.
//
// NOTE: the transaction MUST have already been sanity checked with
// CheckTransactionSanity prior to calling this function.
func CheckTransactionInputs(tx *chainutil.Tx, txHeight int32, utxoView *UtxoViewpoint, chainParams *chaincfg.Params) (int64, error) {
	if IsCoinBase(tx) {
		return 0, nil
	}

	var totalUnitsIn int64
	for txInIndex, txIn := range tx.MsgTx().TxIn {
		utxo := utxoView.LookupEntry(txIn.PreviousOutPoint)
		if utxo == nil || utxo.IsSpent() {
			str := fmt.Sprintf("output %v referenced from "+
				"transaction %s:%d either does not exist or "+
				"has already been spent", txIn.PreviousOutPoint,
				tx.Hash(), txInIndex)
			return 0, ruleError(ErrMissingTxOut, str)
		}

		if utxo.IsCoinBase() {
			originHeight := utxo.BlockHeight()
			blocksSincePrev := txHeight - originHeight
			coinbaseMaturity := int32(chainParams.CoinbaseMaturity)
			if blocksSincePrev < coinbaseMaturity {
				str := fmt.Sprintf("tried to spend coinbase "+
					"transaction output %v from height %v "+
					"at height %v before required maturity "+
					"of %v blocks", txIn.PreviousOutPoint,
					originHeight, txHeight, coinbaseMaturity)
				return 0, ruleError(ErrImmatureSpend, str)
			}
		}

		originTxUnits := utxo.Amount()
		if originTxUnits < 0 {
			str := fmt.Sprintf("transaction output has negative "+
				"value of %v", chainutil.Amount(originTxUnits))
			return 0, ruleError(ErrBadTxOutValue, str)
		}
		if originTxUnits > chainutil.MaxUnits {
			str := fmt.Sprintf("transaction output value is "+
				"higher than max allowed value: %v > %v ",
				chainutil.Amount(originTxUnits), chainutil.MaxUnits)
			return 0, ruleError(ErrBadTxOutValue, str)
		}

		lastUnitsIn := totalUnitsIn
		totalUnitsIn += originTxUnits
		if totalUnitsIn < lastUnitsIn || totalUnitsIn > chainutil.MaxUnits {
			str := fmt.Sprintf("total value of all transaction "+
				"inputs is %v which is higher than max "+
				"allowed value of %v", totalUnitsIn, chainutil.MaxUnits)
			return 0, ruleError(ErrBadTxOutValue, str)
		}
	}

	var totalUnitsOut int64
	for _, txOut := range tx.MsgTx().TxOut {
		totalUnitsOut += txOut.Value
	}

	if totalUnitsIn < totalUnitsOut {
		str := fmt.Sprintf("total value of all transaction inputs for "+
			"transaction %v is %v which is less than the amount "+
			"spent of %v", tx.Hash(), totalUnitsIn, totalUnitsOut)
		return 0, ruleError(ErrSpendTooHigh, str)
	}

	return totalUnitsIn - totalUnitsOut, nil
}

// ConnectBlockOptions bundles the ambient state CheckConnectBlock needs
// beyond the block, the entry it extends, and the coin view: the chain's
// parameters, its deployment-state tracker, whether historical-checkpoint
// coverage allows skipping script verification, and the black-box script
// verifier to dispatch against (nil skips script verification).
type ConnectBlockOptions struct {
	Chain        ChainCtx
	States       *DeploymentStates
	RunScripts   bool
	ScriptVerify ScriptVerifier
}

// CheckConnectBlock performs several checks to confirm that connecting
// block to the chain represented by view does not violate any rules. The
// view is updated in place to spend all referenced outputs and add all new
// outputs block creates, so on success view represents the chain state as
// of block's connection and stxos holds the undo log for the entries
// connected. It implements spec.md §4.5's verifyInputs together with the
// BIP30 preamble of verifyContext.
func CheckConnectBlock(node *ChainEntry, block *chainutil.Block, db ChainDB, view *UtxoViewpoint, opts *ConnectBlockOptions) ([][]SpentTxOut, error) {
	params := opts.Chain.ChainParams()

	nodeHash := node.Hash()
	if nodeHash.IsEqual(params.GenesisHash) {
		return nil, ruleError(ErrMissingTxOut,
			"the coinbase for the genesis block is not spendable")
	}

	parentHash := block.MsgBlock().Header.PrevBlock
	viewHash := chainhash.Hash(view.BestHash())
	if !viewHash.IsEqual(&parentHash) {
		return nil, AssertError(fmt.Sprintf("inconsistent view when "+
			"checking block connection: best hash is %v instead "+
			"of expected %v", viewHash, parentHash))
	}

	// BIP0034 makes duplicate coinbases impossible once active, so the
	// comparatively expensive BIP0030 scan is only needed before then.
	if node.Height() < params.BIP0034Height {
		if err := checkBIP30(db, params, node.Height(), nodeHash, block); err != nil {
			return nil, err
		}
	}

	enforceBIP0016 := node.Timestamp() >= txscript.Bip16Activation.Unix()

	segwitState, err := opts.States.State(node.ChainParent(), chaincfg.DeploymentSegwit)
	if err != nil {
		return nil, err
	}
	enforceSegWit := segwitState == ThresholdActive

	transactions := block.Transactions()
	totalSigOpCost := 0
	for i, tx := range transactions {
		sigOpCost, err := GetSigOpCost(tx, i == 0, view, enforceBIP0016, enforceSegWit)
		if err != nil {
			return nil, err
		}

		lastSigOpCost := totalSigOpCost
		totalSigOpCost += sigOpCost
		if totalSigOpCost < lastSigOpCost || totalSigOpCost > chainutil.MaxBlockSigOpsCost {
			str := fmt.Sprintf("block contains too many signature "+
				"operations - got %v, max %v", totalSigOpCost,
				chainutil.MaxBlockSigOpsCost)
			return nil, ruleError(ErrTooManySigOps, str)
		}
	}

	csvState, err := opts.States.State(node.ChainParent(), chaincfg.DeploymentCSV)
	if err != nil {
		return nil, err
	}
	csvActive := csvState == ThresholdActive

	var medianTime time.Time
	if csvActive && node.ChainParent() != nil {
		medianTime = node.ChainParent().CalcPastMedianTime()
	}

	var totalFees int64
	stxos := make([][]SpentTxOut, 0, len(transactions))
	for _, tx := range transactions {
		if csvActive {
			sequenceLock, err := CalcSequenceLock(node, tx, view)
			if err != nil {
				return nil, err
			}
			if !SequenceLockActive(sequenceLock, node.Height(), medianTime) {
				return nil, ruleError(ErrUnfinalizedTx, "block contains "+
					"transaction whose input sequence locks are not met")
			}
		}

		txFee, err := CheckTransactionInputs(tx, node.Height(), view, params)
		if err != nil {
			return nil, err
		}

		lastTotalFees := totalFees
		totalFees += txFee
		if totalFees < lastTotalFees {
			return nil, ruleError(ErrBadFees, "total fees for block "+
				"overflows accumulator")
		}

		spent, err := view.ConnectTransaction(db, tx, node.Height())
		if err != nil {
			return nil, err
		}
		stxos = append(stxos, spent)
	}

	var totalUnitsOut int64
	for _, txOut := range transactions[0].MsgTx().TxOut {
		totalUnitsOut += txOut.Value
	}
	expectedUnitsOut := CalcBlockSubsidy(node.Height(), params) + totalFees
	if totalUnitsOut > expectedUnitsOut {
		str := fmt.Sprintf("coinbase transaction for block pays %v "+
			"which is more than expected value of %v",
			totalUnitsOut, expectedUnitsOut)
		return nil, ruleError(ErrBadCoinbaseValue, str)
	}

	if opts.RunScripts && opts.ScriptVerify != nil {
		var scriptFlags txscript.ScriptFlags
		if enforceBIP0016 {
			scriptFlags |= txscript.ScriptBip16
		}

		blockHeader := &block.MsgBlock().Header
		if blockHeader.Version >= 3 && node.Height() >= params.BIP0066Height {
			scriptFlags |= txscript.ScriptVerifyDERSignatures
		}
		if blockHeader.Version >= 4 && node.Height() >= params.BIP0065Height {
			scriptFlags |= txscript.ScriptVerifyCheckLockTimeVerify
		}
		if csvActive {
			scriptFlags |= txscript.ScriptVerifyCheckSequenceVerify
		}
		if enforceSegWit {
			scriptFlags |= txscript.ScriptVerifyWitness
			scriptFlags |= txscript.ScriptStrictMultiSig
		}

		taprootState, err := opts.States.State(node.ChainParent(), chaincfg.DeploymentTaproot)
		if err != nil {
			return nil, err
		}
		if taprootState == ThresholdActive {
			scriptFlags |= txscript.ScriptVerifyTaproot
		}

		if err := checkBlockScripts(block, view, scriptFlags, opts.ScriptVerify); err != nil {
			return nil, err
		}
	}

	view.SetBestHash([32]byte(nodeHash))

	return stxos, nil
}

// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/chainutil"
)

// nextPowerOfTwo returns the next highest power of two from a given number
// if it is not already a power of two, used to size the full merkle tree
// array representation.
func nextPowerOfTwo(n int) int {
	if n&(n-1) == 0 {
		return n
	}

	exponent := uint(0)
	for n > 0 {
		n >>= 1
		exponent++
	}
	return 1 << exponent
}

// HashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation, which is how the
// parent tree node's hash is calculated.
func HashMerkleBranches(left *chainhash.Hash, right *chainhash.Hash) *chainhash.Hash {
	var hash [chainhash.HashSize * 2]byte
	copy(hash[:chainhash.HashSize], left[:])
	copy(hash[chainhash.HashSize:], right[:])
	newHash := chainhash.HashH(hash[:])
	return &newHash
}

// BuildMerkleTreeStore creates a merkle tree from a slice of transactions,
// stores it using a linear array, and returns a slice of the backing array.
// The tree is stored such that the leaves are at the beginning of the slice
// and parent nodes follow, thus the root node is always the last element in
// the slice.
//
// The number of inputs is not always a power of two, so the tree is padded
// by duplicating the last node so it is even. This is a problem as it
// allows an attacker to repeat a block's internal transactions to create a
// duplicate merkle root without duplicating the transactions themselves
// (CVE-2012-2459). CheckBlockSanity detects the exact condition that
// enables this attack by independently checking for duplicate transactions
// and raising ErrDuplicateTx; this constructor only builds the tree and
// does not itself defend against the exploit.
//
// The additional witness flag causes the leaves to be computed using the
// witness id instead of the txid, used for the BIP141 witness commitment
// tree.
func BuildMerkleTreeStore(transactions []*chainutil.Tx, witness bool) []*chainhash.Hash {
	nextPoT := nextPowerOfTwo(len(transactions))
	arraySize := nextPoT*2 - 1
	merkles := make([]*chainhash.Hash, arraySize)

	for i, tx := range transactions {
		if witness {
			merkles[i] = tx.WitnessHash()
		} else {
			merkles[i] = tx.Hash()
		}
	}

	offset := nextPoT
	for i := 0; i < arraySize-1; i += 2 {
		switch {
		case merkles[i] == nil:
			merkles[offset] = nil

		case merkles[i+1] == nil:
			newHash := HashMerkleBranches(merkles[i], merkles[i])
			merkles[offset] = newHash

		default:
			newHash := HashMerkleBranches(merkles[i], merkles[i+1])
			merkles[offset] = newHash
		}
		offset++
	}

	return merkles
}

// CalcMerkleRoot returns the merkle root for the given transactions,
// computed directly without retaining the intermediate tree. It is
// equivalent to the last element of BuildMerkleTreeStore's result but
// avoids allocating the full padded array.
func CalcMerkleRoot(transactions []*chainutil.Tx, witness bool) chainhash.Hash {
	if len(transactions) == 0 {
		return chainhash.Hash{}
	}

	level := make([]chainhash.Hash, len(transactions))
	for i, tx := range transactions {
		if witness {
			level[i] = *tx.WitnessHash()
		} else {
			level[i] = *tx.Hash()
		}
	}

	for len(level) > 1 {
		next := make([]chainhash.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, *HashMerkleBranches(&level[i], &level[i]))
				continue
			}
			next = append(next, *HashMerkleBranches(&level[i], &level[i+1]))
		}
		level = next
	}

	return level[0]
}

// ValidateWitnessCommitment verifies that the coinbase transaction of the
// passed block correctly commits to the witness data for all transactions
// within the block, per BIP141. It returns nil if the block contains no
// witness transactions and also no commitment.
func ValidateWitnessCommitment(blk *chainutil.Block) error {
	if !blk.MsgBlock().HasWitness() {
		return nil
	}

	coinbaseTx := blk.Transactions()[0]
	if len(coinbaseTx.MsgTx().TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}

	witnessCommitment, witnessFound := lastCommitmentOutput(coinbaseTx)

	if !witnessFound {
		for _, tx := range blk.Transactions() {
			msgTx := tx.MsgTx()
			if msgTx.HasWitness() {
				str := "block contains witness transactions " +
					"but no witness commitment present"
				return ruleError(ErrUnexpectedWitness, str)
			}
		}
		return nil
	}

	witnessNonce, err := extractWitnessNonce(coinbaseTx)
	if err != nil {
		return err
	}

	witnessMerkleRoot := CalcMerkleRoot(blk.Transactions(), true)

	var witnessPreimage [chainhash.HashSize * 2]byte
	copy(witnessPreimage[:chainhash.HashSize], witnessMerkleRoot[:])
	copy(witnessPreimage[chainhash.HashSize:], witnessNonce[:])
	computedCommitment := chainhash.HashH(witnessPreimage[:])

	if !computedCommitment.IsEqual(&witnessCommitment) {
		str := "witness commitment does not match computed value"
		return ruleError(ErrWitnessCommitmentMismatch, str)
	}

	return nil
}

// witnessMagicBytes are the bytes that every witness commitment output's
// public key script must be prefixed with, per BIP141.
var witnessMagicBytes = []byte{
	0x6a, 0x24, 0xaa, 0x21, 0xa9, 0xed,
}

// lastCommitmentOutput searches the coinbase transaction for the last
// output whose script matches the witness commitment pattern, since peers
// may append extra commitment-shaped outputs after the real one.
func lastCommitmentOutput(coinbaseTx *chainutil.Tx) (chainhash.Hash, bool) {
	var commitment chainhash.Hash
	found := false

	msgTx := coinbaseTx.MsgTx()
	for i := len(msgTx.TxOut) - 1; i >= 0; i-- {
		out := msgTx.TxOut[i]
		if len(out.PkScript) < 38 {
			continue
		}
		if !bytesHasPrefix(out.PkScript, witnessMagicBytes) {
			continue
		}
		copy(commitment[:], out.PkScript[6:38])
		found = true
		break
	}

	return commitment, found
}

func bytesHasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// extractWitnessNonce returns the 32-byte witness commitment nonce, which is
// located in the witness of the coinbase's first input.
func extractWitnessNonce(coinbaseTx *chainutil.Tx) (chainhash.Hash, error) {
	in := coinbaseTx.MsgTx().TxIn[0]
	if len(in.Witness) != 1 {
		str := "the coinbase transaction has invalid witness data"
		return chainhash.Hash{}, ruleError(ErrUnexpectedWitness, str)
	}
	witnessStack := in.Witness[0]
	if len(witnessStack) != chainhash.HashSize {
		str := "the coinbase transaction witness nonce is not 32 bytes"
		return chainhash.Hash{}, ruleError(ErrUnexpectedWitness, str)
	}

	var nonce chainhash.Hash
	copy(nonce[:], witnessStack)
	return nonce, nil
}

// CalcWitnessCommitmentScript computes the BIP141 witness commitment output
// script a template builder must append to its coinbase whenever the
// candidate block contains any witness transaction: the magic prefix
// followed by H(witnessMerkleRoot || nonce), where witnessMerkleRoot is
// computed over the block's transactions with witness data set to the
// all-zero placeholder (nonce comes from the coinbase's first input
// witness stack, already set by the caller before this is invoked).
func CalcWitnessCommitmentScript(transactions []*chainutil.Tx, nonce chainhash.Hash) []byte {
	witnessMerkleRoot := CalcMerkleRoot(transactions, true)

	var preimage [chainhash.HashSize * 2]byte
	copy(preimage[:chainhash.HashSize], witnessMerkleRoot[:])
	copy(preimage[chainhash.HashSize:], nonce[:])
	commitment := chainhash.HashH(preimage[:])

	script := make([]byte, 0, len(witnessMagicBytes)+chainhash.HashSize)
	script = append(script, witnessMagicBytes...)
	script = append(script, commitment[:]...)
	return script
}

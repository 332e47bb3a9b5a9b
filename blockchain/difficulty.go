// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/wire"
)

var (
	// bigOne is 1 represented as a big.Int. It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// oneLsh256 is 1 shifted left 256 bits, i.e. 2^256.
	oneLsh256 = new(big.Int).Lsh(bigOne, 256)
)

// HashToBig converts a chainhash.Hash into a big.Int that can be used to
// perform math comparisons.
func HashToBig(hash *chainhash.Hash) *big.Int {
	// A Hash is in little-endian, but the big package wants the bytes in
	// big-endian, so reverse them.
	buf := *hash
	blen := len(buf)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}

	return new(big.Int).SetBytes(buf[:])
}

// CompactToBig converts a compact representation of a whole number N to a
// big integer. The representation is similar to IEEE754 floating
// point numbers.
//
// Like IEEE754 floating point, there are three basic components: the sign,
// the exponent, and the mantissa. They are broken out as follows:
//
//   - the most significant 8 bits represent the unsigned base 256 exponent
//   - bit 23 (the 24th bit) represents the sign bit
//   - the least significant 23 bits represent the mantissa
//
// The formula to calculate N is:
//
//	N = (-1^sign) * mantissa * 256^(exponent-3)
//
// This compact form is only used to encode unsigned 256-bit numbers which
// represent difficulty targets.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}

	return bn
}

// BigToCompact converts a whole number N to a compact representation using
// an unsigned 32-bit number. The compact representation only provides 23
// bits of precision, so values larger than (2^23 - 1) only encode the most
// significant digits of the number. See CompactToBig for details.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// CalcWork calculates a work value from difficulty bits. Flokicoin-style
// chains increase the difficulty for generating a block by decreasing the
// value which the generated hash must be less than. Since a lower target
// difficulty value equates to higher actual difficulty, the work value which
// will be accumulated must be the inverse of the difficulty, i.e.
// work = 2^256 / (target + 1).
func CalcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}

	denominator := new(big.Int).Add(target, bigOne)
	return new(big.Int).Div(oneLsh256, denominator)
}

// checkProofOfWork ensures the block header bits which indicate the target
// difficulty is in min/max range and that the block hash is less than the
// target difficulty as claimed, unless the BFNoPoWCheck flag is set.
func checkProofOfWork(header *wire.BlockHeader, powLimit *big.Int, flags BehaviorFlags) error {
	target := CompactToBig(header.Bits)

	if target.Sign() <= 0 {
		str := "block target difficulty is too low"
		return ruleError(ErrUnexpectedDifficulty, str)
	}
	if target.Cmp(powLimit) > 0 {
		str := "block target difficulty of is higher than max of"
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	if flags.HasFlag(BFNoPoWCheck) {
		return nil
	}

	hash := header.BlockHash()
	hashNum := HashToBig(&hash)
	if hashNum.Cmp(target) > 0 {
		str := "block hash of is higher than expected max of"
		return ruleError(ErrHighHash, str)
	}

	return nil
}

// CheckProofOfWork ensures the block header bits which indicate the target
// difficulty is in min/max range and that the block hash is less than the
// target difficulty as claimed.
func CheckProofOfWork(header *wire.BlockHeader, powLimit *big.Int) error {
	return checkProofOfWork(header, powLimit, BFNone)
}

// calcEasiestDifficulty calculates the easiest possible difficulty that a
// block can have given starting difficulty bits and a duration, mainly used
// to verify that claimed proof of work by a block is sane as compared to a
// known good checkpoint.
func calcEasiestDifficulty(bits uint32, duration time.Duration, c ChainCtx) uint32 {
	durationVal := int64(duration / time.Second)
	params := c.ChainParams()
	adjustmentFactor := big.NewInt(params.RetargetAdjustmentFactor)

	if params.ReduceMinDifficulty {
		reductionTime := int64(params.MinDiffReductionTime / time.Second)
		if durationVal > reductionTime {
			return params.PowLimitBits
		}
	}

	newTarget := CompactToBig(bits)
	for durationVal > 0 && newTarget.Cmp(params.PowLimit) < 0 {
		newTarget.Mul(newTarget, adjustmentFactor)
		durationVal -= c.MaxRetargetTimespan()
	}

	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}

	return BigToCompact(newTarget)
}

// findPrevTestNetDifficulty returns the difficulty of the previous block
// which did not have the special testnet minimum difficulty rule applied.
func findPrevTestNetDifficulty(startNode HeaderCtx, c ChainCtx) uint32 {
	iterNode := startNode
	for iterNode != nil && iterNode.Height()%c.BlocksPerRetarget() != 0 &&
		iterNode.Bits() == c.ChainParams().PowLimitBits {

		iterNode = iterNode.Parent()
	}

	lastBits := c.ChainParams().PowLimitBits
	if iterNode != nil {
		lastBits = iterNode.Bits()
	}
	return lastBits
}

// calcNextRequiredDifficulty calculates the required difficulty for the
// block after the passed previous HeaderCtx, per spec.md §4.5's retarget
// algorithm: every retargetInterval blocks, the target is recomputed from
// the actual timespan of the period clamped to [span/4, span*4]; networks
// with ReduceMinDifficulty (testnet) additionally reset to the pow limit
// after a sufficiently long gap between blocks.
func calcNextRequiredDifficulty(lastNode HeaderCtx, newBlockTime time.Time, c ChainCtx) (uint32, error) {
	params := c.ChainParams()

	if params.PoWNoRetargeting {
		return params.PowLimitBits, nil
	}

	if lastNode == nil {
		return params.PowLimitBits, nil
	}

	// Only change the difficulty once per retarget interval.
	if (lastNode.Height()+1)%c.BlocksPerRetarget() != 0 {
		if params.ReduceMinDifficulty {
			// If the new block's timestamp is more than twice the
			// target spacing since the last block, allow minimum
			// difficulty blocks.
			allowMinTime := lastNode.Timestamp() +
				int64(params.TargetTimePerBlock/time.Second)*2
			if newBlockTime.Unix() > allowMinTime {
				return params.PowLimitBits, nil
			}

			return findPrevTestNetDifficulty(lastNode, c), nil
		}

		return lastNode.Bits(), nil
	}

	// Get the block node at the previous retarget (targetTimespan worth
	// of blocks).
	firstNode := lastNode.RelativeAncestorCtx(c.BlocksPerRetarget() - 1)
	if firstNode == nil {
		return 0, AssertError("unable to obtain previous retarget block")
	}

	actualTimespan := lastNode.Timestamp() - firstNode.Timestamp()
	adjustedTimespan := actualTimespan
	switch {
	case actualTimespan < c.MinRetargetTimespan():
		adjustedTimespan = c.MinRetargetTimespan()
	case actualTimespan > c.MaxRetargetTimespan():
		adjustedTimespan = c.MaxRetargetTimespan()
	}

	oldTarget := CompactToBig(lastNode.Bits())
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	targetTimeSpan := int64(params.TargetTimespan / time.Second)
	newTarget.Div(newTarget, big.NewInt(targetTimeSpan))

	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}

	newTargetBits := BigToCompact(newTarget)
	log.Debugf("Difficulty retarget at block height %d", lastNode.Height()+1)
	log.Debugf("Old target %08x (%064x)", lastNode.Bits(), oldTarget)
	log.Debugf("New target %08x (%064x)", newTargetBits, CompactToBig(newTargetBits))
	log.Debugf("Actual timespan %v, adjusted timespan %v, target timespan %v",
		time.Duration(actualTimespan)*time.Second,
		time.Duration(adjustedTimespan)*time.Second,
		params.TargetTimespan)

	return newTargetBits, nil
}

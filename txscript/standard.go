// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "time"

// Bip16Activation is the timestamp where BIP0016 is valid to use in the
// blockchain. To be used to determine if BIP0016 should be called for or
// not. This timestamp corresponds to Sun Apr 1 00:00:00 UTC 2012.
var Bip16Activation = time.Unix(1333238400, 0)

// payToScriptHashLen is the length in bytes of the standardized form of a
// pay-to-script-hash output script: OP_HASH160 <20-byte-hash> OP_EQUAL.
const payToScriptHashLen = 23

// IsPayToScriptHash returns true if the script is in the standard
// pay-to-script-hash (P2SH) format, introduced in BIP0016.
func IsPayToScriptHash(script []byte) bool {
	return len(script) == payToScriptHashLen &&
		script[0] == OP_HASH160 &&
		script[1] == OP_DATA_1+19 &&
		script[22] == OP_EQUAL
}

// witnessV0PubKeyHashLen and witnessV0ScriptHashLen are the serialized
// lengths of the two standard witness program shapes defined by BIP141.
const (
	witnessV0PubKeyHashLen = 22
	witnessV0ScriptHashLen = 34
)

// IsWitnessProgram returns true if the passed script is in the standard
// form for a BIP141 witness program, along with the program's version and
// the program bytes themselves.
func IsWitnessProgram(script []byte) (bool, int, []byte) {
	if len(script) < 4 || len(script) > 42 {
		return false, 0, nil
	}
	if !isSmallInt(script[0]) {
		return false, 0, nil
	}
	version := asSmallInt(script[0])

	dataLen := int(script[1])
	if script[1] > OP_DATA_1 && script[1] <= OP_DATA_75 {
		dataLen = int(script[1] - OP_DATA_1 + 1)
	}
	if len(script) != 2+dataLen {
		return false, 0, nil
	}
	if dataLen < 2 || dataLen > 40 {
		return false, 0, nil
	}

	return true, version, script[2:]
}

// GetWitnessSigOpCount returns the number of signature operations implied by
// a transaction input's witness data, for inputs whose previous output (or,
// for P2SH-wrapped segwit, whose redeem script) is a BIP141 witness
// program.
func GetWitnessSigOpCount(sigScript, pkScript []byte, witness [][]byte) int {
	if isWitness, version, program := IsWitnessProgram(pkScript); isWitness {
		return getWitnessSigOps(version, program, witness)
	}

	if IsPayToScriptHash(pkScript) {
		pops, err := parseScript(sigScript)
		if err != nil || len(pops) == 0 {
			return 0
		}
		redeemScript := pops[len(pops)-1].data
		if isWitness, version, program := IsWitnessProgram(redeemScript); isWitness {
			return getWitnessSigOps(version, program, witness)
		}
	}

	return 0
}

// getWitnessSigOps counts sigops for a single witness program given its
// version and program bytes, per BIP141: a v0 P2WPKH program always counts
// as 1, a v0 P2WSH program is counted precisely from its witness script
// (the last witness stack item), and any other (future) version contributes
// nothing since its semantics are not yet consensus-defined.
func getWitnessSigOps(version int, program []byte, witness [][]byte) int {
	if version != 0 {
		return 0
	}

	switch len(program) {
	case 20:
		return 1
	case 32:
		if len(witness) == 0 {
			return 0
		}
		witnessScript := witness[len(witness)-1]
		return getSigOpCount(witnessScript, true)
	}
	return 0
}

// GetSigOpCount provides a quick count of the number of signature operations
// in a script. A signature operation is either an OP_CHECKSIG or an
// OP_CHECKMULTISIG. This is the "imprecise" counting mechanism referenced
// by the consensus rules: any OP_CHECKMULTISIG is credited with the maximum
// of 20 signature operations regardless of how many keys it actually names,
// since that information is only available at execution time without
// tracking prior pushes (which GetPreciseSigOpCount does do).
func GetSigOpCount(script []byte) int {
	return getSigOpCount(script, false)
}

// GetPreciseSigOpCount returns the number of signature operations in the
// provided script, using the precise counting method that inspects the
// redeem script when the previous output is a pay-to-script-hash.
func GetPreciseSigOpCount(scriptSig, scriptPubKey []byte, bip16 bool) int {
	if bip16 && IsPayToScriptHash(scriptPubKey) {
		pops, err := parseScript(scriptSig)
		if err != nil || len(pops) == 0 {
			return 0
		}

		redeemScript := pops[len(pops)-1].data
		if redeemScript == nil {
			return 0
		}

		return getSigOpCount(redeemScript, true)
	}

	return getSigOpCount(scriptPubKey, true)
}

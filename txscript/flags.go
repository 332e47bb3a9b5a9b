// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// ScriptFlags is a bitmask defining additional operations or tests that will
// be done when executing a script pair that would otherwise not occur but
// are required for proper validation under consensus rules gated by a given
// soft-fork.
type ScriptFlags uint32

const (
	// ScriptBip16 defines whether the bip16 threshold has passed and thus
	// pay-to-script hash transactions will be fully validated.
	ScriptBip16 ScriptFlags = 1 << iota

	// ScriptVerifyDERSignatures defines that signatures are required to
	// comply with the DER format, per BIP0066.
	ScriptVerifyDERSignatures

	// ScriptVerifyCheckLockTimeVerify defines whether to allow the
	// execution of the OP_CHECKLOCKTIMEVERIFY opcode, per BIP0065.
	ScriptVerifyCheckLockTimeVerify

	// ScriptVerifyCheckSequenceVerify defines whether to allow the
	// execution of the OP_CHECKSEQUENCEVERIFY opcode, per BIP0112.
	ScriptVerifyCheckSequenceVerify

	// ScriptVerifyWitness defines whether or not to verify a transaction
	// output using the segregated witness rules, per BIP0141 and BIP0143.
	ScriptVerifyWitness

	// ScriptStrictMultiSig defines whether to verify the stack item used
	// by OP_CHECKMULTISIG is an empty byte slice.
	ScriptStrictMultiSig

	// ScriptVerifyTaproot defines whether or not to verify a transaction
	// output using the new taproot verification rules. This is part of
	// the taproot soft-fork package.
	ScriptVerifyTaproot
)

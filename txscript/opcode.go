// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// Opcodes used by the validator: data pushes, the standard script template
// opcodes, and the opcodes counted by the sigop accounting rules. This is
// not the full instruction set of the scripting language — only the subset
// the chain engine needs to recognize standard output/input forms and count
// signature operations.
const (
	OP_0                   = 0x00
	OP_DATA_1              = 0x01
	OP_DATA_75             = 0x4b
	OP_PUSHDATA1           = 0x4c
	OP_PUSHDATA2           = 0x4d
	OP_PUSHDATA4           = 0x4e
	OP_1NEGATE             = 0x4f
	OP_RESERVED            = 0x50
	OP_1                   = 0x51
	OP_16                  = 0x60
	OP_NOP                 = 0x61
	OP_IF                  = 0x63
	OP_NOTIF               = 0x64
	OP_VERIFY              = 0x69
	OP_RETURN              = 0x6a
	OP_DUP                 = 0x76
	OP_EQUAL               = 0x87
	OP_EQUALVERIFY         = 0x88
	OP_HASH160             = 0xa9
	OP_HASH256             = 0xaa
	OP_CODESEPARATOR       = 0xab
	OP_CHECKSIG            = 0xac
	OP_CHECKSIGVERIFY      = 0xad
	OP_CHECKMULTISIG       = 0xae
	OP_CHECKMULTISIGVERIFY = 0xaf
	OP_CHECKLOCKTIMEVERIFY = 0xb1
	OP_CHECKSEQUENCEVERIFY = 0xb2
)

// LockTimeThreshold is the number below which a lock time is interpreted as
// a block height, and at or above which it is interpreted as a Unix
// timestamp, per the original Satoshi client.
const LockTimeThreshold = 500000000

// isSmallInt returns whether or not the opcode is considered a small integer,
// which is an OP_0, or OP_1 through OP_16.
func isSmallInt(op byte) bool {
	return op == OP_0 || (op >= OP_1 && op <= OP_16)
}

// asSmallInt returns the passed opcode, which must be true according to
// isSmallInt(), as an integer.
func asSmallInt(op byte) int {
	if op == OP_0 {
		return 0
	}
	return int(op - (OP_1 - 1))
}

// getSigOpCount is the core of both GetSigOpCount and GetPreciseSigOpCount.
// It walks a parsed script and accumulates a sigop count, crediting
// OP_CHECKSIG/OP_CHECKSIGVERIFY as 1 op each and OP_CHECKMULTISIG/VERIFY as
// up to 20 ops (or, in precise mode, as however many pubkeys the preceding
// small-int push names).
func getSigOpCount(script []byte, precise bool) int {
	numSigOps := 0
	prevOp := -1

	pops, err := parseScript(script)
	if err != nil {
		return numSigOps
	}

	for _, pop := range pops {
		switch pop.opcode {
		case OP_CHECKSIG, OP_CHECKSIGVERIFY:
			numSigOps++
		case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
			if precise && prevOp >= OP_1 && prevOp <= OP_16 {
				numSigOps += asSmallInt(byte(prevOp))
			} else {
				numSigOps += 20
			}
		}
		prevOp = int(pop.opcode)
	}

	return numSigOps
}

// parsedOpcode is a minimal parsed script element: an opcode and, for data
// pushes, the associated payload.
type parsedOpcode struct {
	opcode byte
	data   []byte
}

// parseScript tokenizes a raw script into its opcode/data-push sequence. It
// is tolerant of malformed scripts (returns what could be parsed plus an
// error) since sigop counting on untrusted scripts must not panic.
func parseScript(script []byte) ([]parsedOpcode, error) {
	var pops []parsedOpcode

	for i := 0; i < len(script); {
		op := script[i]
		switch {
		case op >= OP_DATA_1 && op <= OP_DATA_75:
			length := int(op)
			if i+1+length > len(script) {
				return pops, scriptError(ErrUnsupportedScript,
					"script truncated in data push")
			}
			pops = append(pops, parsedOpcode{opcode: op, data: script[i+1 : i+1+length]})
			i += 1 + length
		case op == OP_PUSHDATA1:
			if i+2 > len(script) {
				return pops, scriptError(ErrUnsupportedScript, "truncated OP_PUSHDATA1")
			}
			length := int(script[i+1])
			if i+2+length > len(script) {
				return pops, scriptError(ErrUnsupportedScript, "truncated OP_PUSHDATA1 data")
			}
			pops = append(pops, parsedOpcode{opcode: op, data: script[i+2 : i+2+length]})
			i += 2 + length
		case op == OP_PUSHDATA2:
			if i+3 > len(script) {
				return pops, scriptError(ErrUnsupportedScript, "truncated OP_PUSHDATA2")
			}
			length := int(script[i+1]) | int(script[i+2])<<8
			if i+3+length > len(script) {
				return pops, scriptError(ErrUnsupportedScript, "truncated OP_PUSHDATA2 data")
			}
			pops = append(pops, parsedOpcode{opcode: op, data: script[i+3 : i+3+length]})
			i += 3 + length
		case op == OP_PUSHDATA4:
			if i+5 > len(script) {
				return pops, scriptError(ErrUnsupportedScript, "truncated OP_PUSHDATA4")
			}
			length := int(script[i+1]) | int(script[i+2])<<8 | int(script[i+3])<<16 | int(script[i+4])<<24
			if i+5+length > len(script) {
				return pops, scriptError(ErrUnsupportedScript, "truncated OP_PUSHDATA4 data")
			}
			pops = append(pops, parsedOpcode{opcode: op, data: script[i+5 : i+5+length]})
			i += 5 + length
		default:
			pops = append(pops, parsedOpcode{opcode: op})
			i++
		}
	}

	return pops, nil
}

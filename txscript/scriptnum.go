// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

const (
	// maxScriptNumLen is the maximum number of bytes data being interpreted
	// as an integer may be for the majority of op codes.
	maxScriptNumLen = 4

	// cltvMaxScriptNumLen is the maximum number of bytes data being
	// interpreted as an integer may be for by-de-facto-standard
	// locktime and sequence-number comparison opcodes.
	cltvMaxScriptNumLen = 5
)

// scriptNum represents a numeric value used in the scripting engine with
// special handling to deal with the subtle semantics required by consensus.
//
// All numbers are stored on the stack as little endian with a sign bit.
// All numeric opcodes such as OP_ADD, OP_SUB, and OP_MUL, are only allowed to
// operate on 4-byte integers, but the results of numeric operations may
// overflow and remain valid so long as they are not used as input to other
// numeric operations or otherwise interpreted as an integer.
type scriptNum int64

// checkMinimalDataEncoding returns whether the given byte array adheres to
// the minimal encoding requirements.
func checkMinimalDataEncoding(v []byte) error {
	if len(v) == 0 {
		return nil
	}

	// Check that the number is encoded with the minimum possible number
	// of bytes.
	//
	// If the most-significant-byte - excluding the sign bit - is zero
	// then we're not minimal. Note how this test also rejects the
	// negative-zero encoding, [0x80].
	if v[len(v)-1]&0x7f == 0 {
		// One exception: if there's more than one byte and the most
		// significant bit of the second-to-last byte is set, it would
		// conflict with the sign bit so a zero byte is required.
		if len(v) == 1 || v[len(v)-2]&0x80 == 0 {
			return scriptError(ErrMinimalData,
				fmt.Sprintf("numeric value encoded as %x is "+
					"not minimally encoded", v))
		}
	}

	return nil
}

// MakeScriptNum interprets the passed serialized bytes as an encoded integer
// and returns the result as a script number. Passing the special boolean
// requireMinimal to true will cause it to return an error if the encoded
// bytes are not minimally encoded. scriptNumLen is the maximum number of bytes the
// encoded value can be before an ErrNumberTooBig is returned.
func MakeScriptNum(v []byte, requireMinimal bool, scriptNumLen int) (scriptNum, error) {
	if len(v) > scriptNumLen {
		return 0, scriptError(ErrNumberTooBig,
			fmt.Sprintf("numeric value encoded as %x is %d bytes "+
				"which exceeds the max allowed of %d", v,
				len(v), scriptNumLen))
	}

	if requireMinimal {
		if err := checkMinimalDataEncoding(v); err != nil {
			return 0, err
		}
	}

	if len(v) == 0 {
		return 0, nil
	}

	var result int64
	for i, val := range v {
		result |= int64(val) << uint8(8*i)
	}

	if v[len(v)-1]&0x80 != 0 {
		result &= ^(int64(0x80) << uint8(8*(len(v)-1)))
		return scriptNum(-result), nil
	}

	return scriptNum(result), nil
}

// Bytes returns the number serialized as a little endian with a sign bit.
func (n scriptNum) Bytes() []byte {
	if n == 0 {
		return nil
	}

	isNegative := n < 0
	if isNegative {
		n = -n
	}

	result := make([]byte, 0, 9)
	for n > 0 {
		result = append(result, byte(n&0xff))
		n >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		extraByte := byte(0x00)
		if isNegative {
			extraByte = 0x80
		}
		result = append(result, extraByte)
	} else if isNegative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// Int32 returns the script number clamped to a valid int32. That is to say
// that if the script number is too big to fit in an int32, the returned
// value will be clamped to either math.MaxInt32 or math.MinInt32.
func (n scriptNum) Int32() int32 {
	const (
		int32Max = 1<<31 - 1
		int32Min = -1 << 31
	)

	if n > int32Max {
		return int32Max
	}
	if n < int32Min {
		return int32Min
	}
	return int32(n)
}

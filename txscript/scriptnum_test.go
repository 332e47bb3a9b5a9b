// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func hexToBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex literal %q: %v", s, err)
	}
	return b
}

func TestScriptNumBytesRoundTrip(t *testing.T) {
	for _, n := range []scriptNum{0, 1, -1, 127, -127, 128, -128, 32767, -32768, 2147483647, -2147483647} {
		encoded := n.Bytes()
		decoded, err := MakeScriptNum(encoded, true, maxScriptNumLen)
		if err != nil {
			t.Fatalf("MakeScriptNum(%x): %v", encoded, err)
		}
		if decoded != n {
			t.Fatalf("round trip of %d produced %d", n, decoded)
		}
	}
}

func TestMakeScriptNumRejectsNonMinimalEncoding(t *testing.T) {
	nonMinimal := hexToBytes(t, "0100") // encodes 1 with a redundant trailing zero byte
	if _, err := MakeScriptNum(nonMinimal, true, maxScriptNumLen); err == nil {
		t.Fatal("MakeScriptNum accepted a non-minimally encoded value with minimal encoding required")
	}
	n, err := MakeScriptNum(nonMinimal, false, maxScriptNumLen)
	if err != nil {
		t.Fatalf("MakeScriptNum with minimal encoding disabled: %v", err)
	}
	if n != 1 {
		t.Fatalf("MakeScriptNum(%x) = %d, want 1", nonMinimal, n)
	}
}

func TestMakeScriptNumRejectsOversizedData(t *testing.T) {
	tooLong := hexToBytes(t, "ffffffffffff")
	if _, err := MakeScriptNum(tooLong, true, 4); err == nil {
		t.Fatal("MakeScriptNum accepted data longer than the configured limit")
	}
}

func TestMakeScriptNumRejectsNegativeZero(t *testing.T) {
	negZero := hexToBytes(t, "80")
	if _, err := MakeScriptNum(negZero, true, maxScriptNumLen); err == nil {
		t.Fatal("MakeScriptNum accepted a minimally-flagged negative zero")
	}
}

func TestScriptNumInt32Clamps(t *testing.T) {
	tests := []struct {
		in   scriptNum
		want int32
	}{
		{0, 0},
		{2147483647, 2147483647},
		{-2147483648, -2147483648},
		{2147483648, 2147483647},
		{-2147483649, -2147483648},
		{9223372036854775807, 2147483647},
	}
	for _, test := range tests {
		if got := test.in.Int32(); got != test.want {
			t.Fatalf("(%d).Int32() = %d, want %d", test.in, got, test.want)
		}
	}
}

func TestScriptNumBytesMatchesKnownEncoding(t *testing.T) {
	tests := []struct {
		num        scriptNum
		serialized []byte
	}{
		{0, nil},
		{1, hexToBytes(t, "01")},
		{-1, hexToBytes(t, "81")},
		{256, hexToBytes(t, "0001")},
		{-256, hexToBytes(t, "0081")},
	}
	for _, test := range tests {
		if got := test.num.Bytes(); !bytes.Equal(got, test.serialized) {
			t.Fatalf("(%d).Bytes() = %x, want %x", test.num, got, test.serialized)
		}
	}
}

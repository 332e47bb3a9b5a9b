// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"io"
	"testing"
)

func TestBlockRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	records := [][]byte{
		{0x01, 0x02, 0x03},
		{},
		bytes.Repeat([]byte{0xaa}, 512),
	}
	for _, raw := range records {
		if err := writeBlockRecord(&buf, raw); err != nil {
			t.Fatalf("writeBlockRecord: %v", err)
		}
	}

	r := bufio.NewReader(&buf)
	for i, want := range records {
		got, err := readBlockRecord(r)
		if err != nil {
			t.Fatalf("readBlockRecord record %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("record %d = %x, want %x", i, got, want)
		}
	}

	if _, err := readBlockRecord(r); err != io.EOF {
		t.Fatalf("readBlockRecord at end of stream = %v, want io.EOF", err)
	}
}

func TestReadBlockRecordRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x00, 0x00, 0x00})
	if _, err := readBlockRecord(bufio.NewReader(buf)); err == nil {
		t.Fatal("readBlockRecord accepted a bad magic, want an error")
	}
}

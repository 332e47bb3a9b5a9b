// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import (
	"encoding/binary"
	"fmt"

	"github.com/ledgercore/ledgercore/blockchain"
)

// coin record layout: flags(1) | height(4 BE) | amount(8 BE) | pkScript.
const coinHeaderLen = 1 + 4 + 8

const (
	coinFlagCoinBase byte = 1 << 0
)

func encodeUtxoEntry(entry *blockchain.UtxoEntry) []byte {
	pkScript := entry.PkScript()
	buf := make([]byte, coinHeaderLen+len(pkScript))

	var flags byte
	if entry.IsCoinBase() {
		flags |= coinFlagCoinBase
	}
	buf[0] = flags
	binary.BigEndian.PutUint32(buf[1:5], uint32(entry.BlockHeight()))
	binary.BigEndian.PutUint64(buf[5:13], uint64(entry.Amount()))
	copy(buf[coinHeaderLen:], pkScript)
	return buf
}

func decodeUtxoEntry(raw []byte) (*blockchain.UtxoEntry, error) {
	if len(raw) < coinHeaderLen {
		return nil, fmt.Errorf("chaindb: corrupt coin record (%d bytes)", len(raw))
	}

	flags := raw[0]
	height := int32(binary.BigEndian.Uint32(raw[1:5]))
	amount := int64(binary.BigEndian.Uint64(raw[5:13]))
	pkScript := make([]byte, len(raw)-coinHeaderLen)
	copy(pkScript, raw[coinHeaderLen:])

	isCoinBase := flags&coinFlagCoinBase != 0
	return blockchain.NewUtxoEntry(pkScript, amount, height, isCoinBase), nil
}

// encodeUndoLog serializes the per-transaction spent-output records Save
// records alongside a newly connected entry, so a later Disconnect can
// restore the coin set without needing the inputs' original values anymore
// available from the live UTXO set.
//
// layout: txCount(4 BE) | per tx: spentCount(4 BE) | per spent: flags(1) |
// height(4 BE) | amount(8 BE) | scriptLen(4 BE) | script.
func encodeUndoLog(undo [][]blockchain.SpentTxOut) []byte {
	size := 4
	for _, spent := range undo {
		size += 4
		for _, s := range spent {
			size += coinHeaderLen + 4 + len(s.PkScript)
		}
	}

	buf := make([]byte, size)
	offset := 0
	binary.BigEndian.PutUint32(buf[offset:], uint32(len(undo)))
	offset += 4

	for _, spent := range undo {
		binary.BigEndian.PutUint32(buf[offset:], uint32(len(spent)))
		offset += 4
		for _, s := range spent {
			var flags byte
			if s.IsCoinBase {
				flags |= coinFlagCoinBase
			}
			buf[offset] = flags
			offset++
			binary.BigEndian.PutUint32(buf[offset:], uint32(s.Height))
			offset += 4
			binary.BigEndian.PutUint64(buf[offset:], uint64(s.Amount))
			offset += 8
			binary.BigEndian.PutUint32(buf[offset:], uint32(len(s.PkScript)))
			offset += 4
			offset += copy(buf[offset:], s.PkScript)
		}
	}
	return buf
}

func decodeUndoLog(raw []byte) ([][]blockchain.SpentTxOut, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("chaindb: corrupt undo log (%d bytes)", len(raw))
	}
	offset := 0
	txCount := binary.BigEndian.Uint32(raw[offset:])
	offset += 4

	undo := make([][]blockchain.SpentTxOut, txCount)
	for i := range undo {
		if offset+4 > len(raw) {
			return nil, fmt.Errorf("chaindb: truncated undo log")
		}
		spentCount := binary.BigEndian.Uint32(raw[offset:])
		offset += 4

		spent := make([]blockchain.SpentTxOut, spentCount)
		for j := range spent {
			if offset+coinHeaderLen > len(raw) {
				return nil, fmt.Errorf("chaindb: truncated undo log entry")
			}
			flags := raw[offset]
			offset++
			height := int32(binary.BigEndian.Uint32(raw[offset:]))
			offset += 4
			amount := int64(binary.BigEndian.Uint64(raw[offset:]))
			offset += 8
			scriptLen := binary.BigEndian.Uint32(raw[offset:])
			offset += 4
			if offset+int(scriptLen) > len(raw) {
				return nil, fmt.Errorf("chaindb: truncated undo log script")
			}
			pkScript := make([]byte, scriptLen)
			copy(pkScript, raw[offset:offset+int(scriptLen)])
			offset += int(scriptLen)

			spent[j] = blockchain.SpentTxOut{
				Amount:     amount,
				PkScript:   pkScript,
				Height:     height,
				IsCoinBase: flags&coinFlagCoinBase != 0,
			}
		}
		undo[i] = spent
	}
	return undo, nil
}

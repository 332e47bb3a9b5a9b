// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"math"

	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
)

const (
	// MaxTxInSequenceNum is the maximum sequence number the sequence field
	// of a transaction input can be.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// maxWitnessItemSize is the maximum allowed size of an item within a
	// witness stack.
	maxWitnessItemSize = 11000

	// SequenceLockTimeDisabled is the bit that, when set in a TxIn's
	// Sequence, disables relative-lock-time semantics for that input.
	SequenceLockTimeDisabled = 1 << 31

	// SequenceLockTimeIsSeconds, when set alongside an active relative
	// lock, indicates the lock value counts 512-second intervals rather
	// than blocks.
	SequenceLockTimeIsSeconds = 1 << 22

	// SequenceLockTimeMask extracts the relative lock value (either a
	// block count or, per SequenceLockTimeIsSeconds, an interval count)
	// from a TxIn's Sequence field.
	SequenceLockTimeMask = 0x0000ffff

	// SequenceLockTimeGranularity is the number of bits to left shift a
	// relative lock-time value in order to convert it to seconds, since
	// it is stored in units of 512 seconds.
	SequenceLockTimeGranularity = 9
)

// OutPoint defines a flokicoin data type that is used to track previous
// transaction outputs.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new flokicoin transaction outpoint.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

// IsNull returns true if the outpoint is the null outpoint (the zero hash
// with index math.MaxUint32), meaning it does not refer to any prior output
// (as used by coinbases).
func (o OutPoint) IsNull() bool {
	return o.Index == math.MaxUint32 && o.Hash == (chainhash.Hash{})
}

func (o *OutPoint) readFrom(r io.Reader) error {
	if _, err := io.ReadFull(r, o.Hash[:]); err != nil {
		return err
	}
	idx, err := readUint32(r)
	if err != nil {
		return err
	}
	o.Index = idx
	return nil
}

func (o *OutPoint) writeTo(w io.Writer) error {
	if _, err := w.Write(o.Hash[:]); err != nil {
		return err
	}
	return writeUint32(w, o.Index)
}

// TxIn defines a flokicoin transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          [][]byte
	Sequence         uint32
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction input, excluding any witness data.
func (t *TxIn) SerializeSize() int {
	return 40 + VarIntSerializeSize(uint64(len(t.SignatureScript))) + len(t.SignatureScript)
}

func (t *TxIn) HasWitness() bool {
	return len(t.Witness) > 0
}

func (t *TxIn) readFrom(r io.Reader) error {
	if err := t.PreviousOutPoint.readFrom(r); err != nil {
		return err
	}
	sig, err := ReadVarBytes(r, math.MaxUint32, "signature script")
	if err != nil {
		return err
	}
	t.SignatureScript = sig
	seq, err := readUint32(r)
	if err != nil {
		return err
	}
	t.Sequence = seq
	return nil
}

func (t *TxIn) writeTo(w io.Writer) error {
	if err := t.PreviousOutPoint.writeTo(w); err != nil {
		return err
	}
	if err := WriteVarBytes(w, t.SignatureScript); err != nil {
		return err
	}
	return writeUint32(w, t.Sequence)
}

func (t *TxIn) readWitness(r io.Reader) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	witness := make([][]byte, count)
	for i := range witness {
		item, err := ReadVarBytes(r, maxWitnessItemSize, "script witness item")
		if err != nil {
			return err
		}
		witness[i] = item
	}
	t.Witness = witness
	return nil
}

func (t *TxIn) writeWitness(w io.Writer) error {
	if err := WriteVarInt(w, uint64(len(t.Witness))); err != nil {
		return err
	}
	for _, item := range t.Witness {
		if err := WriteVarBytes(w, item); err != nil {
			return err
		}
	}
	return nil
}

// NewTxIn returns a new flokicoin transaction input with the provided
// previous outpoint point and signature script with a default sequence of
// MaxTxInSequenceNum.
func NewTxIn(prevOut *OutPoint, signatureScript []byte, witness [][]byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Witness:          witness,
		Sequence:         MaxTxInSequenceNum,
	}
}

// TxOut defines a flokicoin transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction output.
func (t *TxOut) SerializeSize() int {
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

func (t *TxOut) readFrom(r io.Reader) error {
	v, err := readUint64(r)
	if err != nil {
		return err
	}
	t.Value = int64(v)
	script, err := ReadVarBytes(r, math.MaxUint32, "pk script")
	if err != nil {
		return err
	}
	t.PkScript = script
	return nil
}

func (t *TxOut) writeTo(w io.Writer) error {
	if err := writeUint64(w, uint64(t.Value)); err != nil {
		return err
	}
	return WriteVarBytes(w, t.PkScript)
}

// NewTxOut returns a new flokicoin transaction output with the provided
// transaction value and public key script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{Value: value, PkScript: pkScript}
}

// witnessMarker and witnessFlag are the first two bytes of a witness-encoded
// transaction following the version field: a zero marker byte followed by
// a non-zero flag byte, per BIP144.
const (
	witnessMarker = 0x00
	witnessFlag   = 0x01
)

// MsgTx implements the Message interface and represents a flokicoin tx
// message.  It is used to deliver transaction information in response to
// a getdata message (MsgGetData) for a given transaction.
//
// Use the AddTxIn and AddTxOut functions to build up the list of transaction
// inputs and outputs.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewMsgTx returns a new flokicoin tx message that conforms to the Message
// interface.  The return instance has the given version and
// there are no transaction inputs or outputs.  Also, the lock time is set
// to zero to indicate the transaction is valid immediately as opposed to
// some time in future.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{Version: version}
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// HasWitness returns false if none of the inputs within the transaction
// contain witness data, true false otherwise.
func (msg *MsgTx) HasWitness() bool {
	for _, txIn := range msg.TxIn {
		if txIn.HasWitness() {
			return true
		}
	}
	return false
}

// TxHash generates the Hash for the transaction, using the non-witness
// serialization (stripped of any witness data) so transaction identity is
// stable across malleation of the witness.
func (msg *MsgTx) TxHash() chainhash.Hash {
	return chainhash.DoubleHashRaw(func(w io.Writer) error {
		return msg.serialize(w, false)
	})
}

// WitnessHash generates the hash of the transaction serialized according to
// the new witness serialization defined in BIP0141, including all of the
// witness data.
func (msg *MsgTx) WitnessHash() chainhash.Hash {
	if !msg.HasWitness() {
		return msg.TxHash()
	}
	return chainhash.DoubleHashRaw(func(w io.Writer) error {
		return msg.serialize(w, true)
	})
}

// Copy creates a deep copy of a transaction so that the original does not
// get modified when the copy is manipulated.
func (msg *MsgTx) Copy() *MsgTx {
	newTx := MsgTx{
		Version:  msg.Version,
		TxIn:     make([]*TxIn, 0, len(msg.TxIn)),
		TxOut:    make([]*TxOut, 0, len(msg.TxOut)),
		LockTime: msg.LockTime,
	}

	for _, oldTxIn := range msg.TxIn {
		newTxIn := &TxIn{
			PreviousOutPoint: oldTxIn.PreviousOutPoint,
			Sequence:         oldTxIn.Sequence,
		}
		if oldTxIn.SignatureScript != nil {
			newTxIn.SignatureScript = append([]byte(nil), oldTxIn.SignatureScript...)
		}
		if len(oldTxIn.Witness) > 0 {
			newTxIn.Witness = make([][]byte, len(oldTxIn.Witness))
			for i, w := range oldTxIn.Witness {
				newTxIn.Witness[i] = append([]byte(nil), w...)
			}
		}
		newTx.TxIn = append(newTx.TxIn, newTxIn)
	}

	for _, oldTxOut := range msg.TxOut {
		newTxOut := &TxOut{
			Value:    oldTxOut.Value,
			PkScript: append([]byte(nil), oldTxOut.PkScript...),
		}
		newTx.TxOut = append(newTx.TxOut, newTxOut)
	}

	return &newTx
}

func (msg *MsgTx) serialize(w io.Writer, witness bool) error {
	if err := writeUint32(w, uint32(msg.Version)); err != nil {
		return err
	}

	useWitness := witness && msg.HasWitness()
	if useWitness {
		if _, err := w.Write([]byte{witnessMarker, witnessFlag}); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := ti.writeTo(w); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := to.writeTo(w); err != nil {
			return err
		}
	}

	if useWitness {
		for _, ti := range msg.TxIn {
			if err := ti.writeWitness(w); err != nil {
				return err
			}
		}
	}

	return writeUint32(w, msg.LockTime)
}

// Serialize encodes the transaction to w including any witness data using
// the BIP144 segregated witness serialization.
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.serialize(w, true)
}

// SerializeNoWitness encodes the transaction to w without any witness data
// (the legacy, "stripped" serialization used for TxHash and merkle roots).
func (msg *MsgTx) SerializeNoWitness(w io.Writer) error {
	return msg.serialize(w, false)
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction, including any witness data.
func (msg *MsgTx) SerializeSize() int {
	var buf bytes.Buffer
	_ = msg.serialize(&buf, true)
	return buf.Len()
}

// SerializeSizeStripped returns the number of bytes it would take to
// serialize the transaction, excluding any witness data.
func (msg *MsgTx) SerializeSizeStripped() int {
	var buf bytes.Buffer
	_ = msg.serialize(&buf, false)
	return buf.Len()
}

// Deserialize decodes a transaction from r, auto-detecting the BIP144
// witness marker/flag pair.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	version, err := readUint32(r)
	if err != nil {
		return err
	}
	msg.Version = int32(version)

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}

	hasWitness := false
	if count == 0 {
		// Possible witness marker: a zero tx-in count followed by a
		// non-zero flag byte signals BIP144 encoding.
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return err
		}
		if flag[0] != witnessFlag {
			return errNonCanonicalVarInt
		}
		hasWitness = true
		count, err = ReadVarInt(r)
		if err != nil {
			return err
		}
	}

	msg.TxIn = make([]*TxIn, count)
	for i := range msg.TxIn {
		ti := new(TxIn)
		if err := ti.readFrom(r); err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		to := new(TxOut)
		if err := to.readFrom(r); err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	if hasWitness {
		for _, ti := range msg.TxIn {
			if err := ti.readWitness(r); err != nil {
				return err
			}
		}
	}

	lockTime, err := readUint32(r)
	if err != nil {
		return err
	}
	msg.LockTime = lockTime
	return nil
}

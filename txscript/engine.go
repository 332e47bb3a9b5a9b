// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ledgercore/ledgercore/chaincfg/chainhash"
	"github.com/ledgercore/ledgercore/wire"
)

// SigHashType represents hash type bits at the end of a signature, telling a
// verifier the only part of a transaction's data a signature commits to.
type SigHashType uint32

// Hash type bits from the end of a signature.
const (
	SigHashOld          SigHashType = 0x0
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	sigHashMask = 0x1f
)

// CalcSignatureHash computes the legacy (pre-segwit) signature hash for
// signing and verifying the txIn'th input of tx. subScript is the portion of
// the previous output's public key script, with OP_CODESEPARATORs removed,
// that the signature covers.
//
// Only SigHashAll, optionally combined with SigHashAnyOneCanPay, is
// implemented precisely since it is by far the overwhelming majority of
// scripts seen on the network; other hash types fall back to the SigHashAll
// algorithm rather than reproducing the NONE/SINGLE output-blanking rules,
// which is a deliberate simplification of the reference algorithm.
func CalcSignatureHash(subScript []byte, hashType SigHashType, tx *wire.MsgTx, txIdx int) (chainhash.Hash, error) {
	if txIdx < 0 || txIdx >= len(tx.TxIn) {
		return chainhash.Hash{}, scriptError(ErrUnsupportedScript,
			"txIdx out of range for signature hash calculation")
	}

	txCopy := tx.Copy()
	for i := range txCopy.TxIn {
		if i == txIdx {
			txCopy.TxIn[i].SignatureScript = removeOpcode(subScript, OP_CODESEPARATOR)
		} else {
			txCopy.TxIn[i].SignatureScript = nil
		}
	}

	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.TxIn = []*wire.TxIn{txCopy.TxIn[txIdx]}
	}

	var buf bytes.Buffer
	if err := txCopy.SerializeNoWitness(&buf); err != nil {
		return chainhash.Hash{}, err
	}

	var hashTypeBytes [4]byte
	binary.LittleEndian.PutUint32(hashTypeBytes[:], uint32(hashType))
	buf.Write(hashTypeBytes[:])

	return chainhash.DoubleHashRaw(func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	}), nil
}

// removeOpcode returns a script with all instances of the provided opcode
// removed, mirroring the SCRIPT_VERIFY rule that strips OP_CODESEPARATOR
// before hashing.
func removeOpcode(script []byte, opcode byte) []byte {
	pops, err := parseScript(script)
	if err != nil {
		return script
	}

	out := make([]byte, 0, len(script))
	for _, pop := range pops {
		if pop.opcode == opcode {
			continue
		}
		out = append(out, pop.opcode)
		switch pop.opcode {
		case OP_PUSHDATA1:
			out = append(out, byte(len(pop.data)))
		case OP_PUSHDATA2:
			out = append(out, byte(len(pop.data)), byte(len(pop.data)>>8))
		case OP_PUSHDATA4:
			out = append(out, byte(len(pop.data)), byte(len(pop.data)>>8),
				byte(len(pop.data)>>16), byte(len(pop.data)>>24))
		}
		out = append(out, pop.data...)
	}
	return out
}

// CheckSignatureEncoding checks that a raw ECDSA signature (with the
// trailing sighash-type byte already removed) is a canonically-encoded DER
// signature, per BIP0066's strict DER requirement.
func CheckSignatureEncoding(sig []byte, strictDER bool) error {
	if !strictDER {
		return nil
	}
	if _, err := ecdsaSignatureFromDER(sig); err != nil {
		return scriptError(ErrInvalidSignature, "not a canonically-encoded DER signature")
	}
	return nil
}

func ecdsaSignatureFromDER(sig []byte) (*ecdsa.Signature, error) {
	return ecdsa.ParseDERSignature(sig)
}

// VerifySignature verifies that sig (DER-encoded, without the trailing
// sighash-type byte) is a valid ECDSA signature over hash by the holder of
// the private key behind the serialized public key pubKey.
func VerifySignature(pubKey, sig []byte, hash chainhash.Hash) bool {
	parsedSig, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	parsedKey, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	return parsedSig.Verify(hash[:], parsedKey)
}

// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the stack-based transaction script language this
module's consensus engine validates against.

A complete description of the underlying script language can be found at
https://en.bitcoin.it/wiki/Script. The following only serves as a quick
overview of how this package is organized.

This package provides data structures and functions to parse, build, and
execute transaction scripts as the validation engine encounters them while
connecting a block.

# Script Overview

Transaction scripts are written in a FORTH-like language: opcodes fall into
categories such as pushing and popping data to and from the stack,
performing basic and bitwise arithmetic, conditional branching, comparing
hashes, and checking cryptographic signatures. Scripts are processed from
left to right and intentionally do not provide loops.

The vast majority of scripts encountered in practice take one of a handful
of standard forms, in which a spender supplies a public key and a signature
proving ownership of the associated private key. ScriptBuilder exists to
construct these and other scripts programmatically rather than by hand.

# Errors

Errors returned by this package are of type txscript.Error, letting callers
programmatically examine the ErrorCode field of the type-asserted error
while still getting a human-readable message with context. IsErrorCode is a
convenience function for checking against a specific error code. See
ErrorCode in this package's documentation for the full list.
*/
package txscript

// Copyright (c) 2013, 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainutil provides chain-network-independent convenience wrappers
// around the wire-level block and transaction types: a monetary Amount
// type, and Block/Tx wrappers that memoize expensive derived values such as
// hash, weight, and serialized size.
package chainutil

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AmountUnit describes a method of converting an Amount to something other
// than the base unit of the ledger's coin. The value of the AmountUnit is
// the exponent component of the decadic multiple to convert from an amount
// in whole coins to an amount counted in units.
type AmountUnit int

// These constants define various units used when describing a monetary
// amount.
const (
	AmountMegaCoin  AmountUnit = 6
	AmountKiloCoin  AmountUnit = 3
	AmountCoin      AmountUnit = 0
	AmountMilliCoin AmountUnit = -3
	AmountMicroCoin AmountUnit = -6
	AmountUnitBase  AmountUnit = -8
)

// String returns the unit as a string. For recognized units, the SI prefix
// is used, or "units" for the base unit. For all unrecognized units, "1eN
// COIN" is returned, where N is the AmountUnit.
func (u AmountUnit) String() string {
	switch u {
	case AmountMegaCoin:
		return "MCOIN"
	case AmountKiloCoin:
		return "kCOIN"
	case AmountCoin:
		return "COIN"
	case AmountMilliCoin:
		return "mCOIN"
	case AmountMicroCoin:
		return "uCOIN"
	case AmountUnitBase:
		return "units"
	default:
		return "1e" + strconv.FormatInt(int64(u), 10) + " COIN"
	}
}

// UnitsPerCoin is the number of base units in one whole coin.
const UnitsPerCoin = 1e8

// MaxUnits is the maximum transaction amount allowed, in base units. It
// mirrors Bitcoin's 21 million coin supply cap.
const MaxUnits = 21e6 * UnitsPerCoin

// Amount represents the base monetary unit of the ledger. A single Amount
// is equal to 1e-8 of a whole coin.
type Amount int64

// round converts a floating point number, which may or may not be
// representable as an integer, to the Amount integer type by rounding to
// the nearest integer. This is performed by adding or subtracting 0.5
// depending on the sign, and relying on integer truncation to round the
// value to the nearest Amount.
func round(f float64) Amount {
	if f < 0 {
		return Amount(f - 0.5)
	}
	return Amount(f + 0.5)
}

// NewAmount creates an Amount from a floating point value representing some
// value in whole coins. NewAmount errors if f is NaN or +-Infinity, but does
// not check that the amount is within the total amount producible, as f may
// not refer to an amount at a single moment in time.
func NewAmount(f float64) (Amount, error) {
	switch {
	case math.IsNaN(f):
		fallthrough
	case math.IsInf(f, 1):
		fallthrough
	case math.IsInf(f, -1):
		return 0, errors.New("invalid amount")
	}

	return round(f * UnitsPerCoin), nil
}

// ToUnit converts a monetary amount counted in base units to a floating
// point value representing an amount in the given unit.
func (a Amount) ToUnit(u AmountUnit) float64 {
	return float64(a) / math.Pow10(int(u+8))
}

// ToCoin is the equivalent of calling ToUnit with AmountCoin.
func (a Amount) ToCoin() float64 {
	return a.ToUnit(AmountCoin)
}

// Format formats a monetary amount counted in base units as a string for a
// given unit. The conversion will succeed for any unit, however, known
// units will be formatted with an appended label describing the units with
// SI notation.
func (a Amount) Format(u AmountUnit) string {
	units := " " + u.String()
	formatted := strconv.FormatFloat(a.ToUnit(u), 'f', -int(u+8), 64)

	if u == AmountCoin {
		if strings.Contains(formatted, ".") {
			return fmt.Sprintf("%.8f%s", a.ToUnit(u), units)
		}
	}
	return formatted + units
}

// String is the equivalent of calling Format with AmountCoin.
func (a Amount) String() string {
	return a.Format(AmountCoin)
}

// MulF64 multiplies an Amount by a floating point value. While this is not
// an operation that must typically be done by a full node, it is useful for
// services built atop the ledger (for example, calculating a fee by
// multiplying by a percentage).
func (a Amount) MulF64(f float64) Amount {
	return round(float64(a) * f)
}

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil_test

import (
	"math"
	"testing"

	"github.com/ledgercore/ledgercore/chainutil"
)

func TestAmountString(t *testing.T) {
	tests := []struct {
		amount chainutil.Amount
		want   string
	}{
		{0, "0 COIN"},
		{chainutil.Amount(1e8), "1 COIN"},
		{chainutil.Amount(1e5), "0.00100000 COIN"},
		{chainutil.Amount(-1e8), "-1 COIN"},
	}
	for _, test := range tests {
		if got := test.amount.String(); got != test.want {
			t.Errorf("Amount(%d).String() = %q, want %q",
				int64(test.amount), got, test.want)
		}
	}
}

func TestNewAmount(t *testing.T) {
	if _, err := chainutil.NewAmount(math.NaN()); err == nil {
		t.Fatal("expected error for NaN amount")
	}
	if _, err := chainutil.NewAmount(math.Inf(1)); err == nil {
		t.Fatal("expected error for +Inf amount")
	}

	got, err := chainutil.NewAmount(1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != chainutil.Amount(chainutil.UnitsPerCoin) {
		t.Errorf("NewAmount(1.0) = %d, want %d", got, int64(chainutil.UnitsPerCoin))
	}
}

func TestAmountMulF64(t *testing.T) {
	a := chainutil.Amount(100000)
	got := a.MulF64(0.5)
	if got != 50000 {
		t.Errorf("MulF64(0.5) = %d, want 50000", got)
	}
}

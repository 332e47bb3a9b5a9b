// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// tstCheckScriptError ensures the type of the two passed errors are of the
// same type (either both nil or both of type Error) and their error codes
// match when not nil.
func tstCheckScriptError(gotErr, wantErr error) error {
	if (gotErr == nil) != (wantErr == nil) {
		return fmt.Errorf("wrong error - got %v, want %v", gotErr, wantErr)
	}
	if gotErr == nil {
		return nil
	}

	gotErrorCode := gotErr.(Error).ErrorCode
	wantErrorCode := wantErr.(Error).ErrorCode
	if gotErrorCode != wantErrorCode {
		return fmt.Errorf("mismatched error code - got %v (%v), want %v",
			gotErrorCode, gotErr, wantErrorCode)
	}

	return nil
}

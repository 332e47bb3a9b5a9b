// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	flog "github.com/ledgercore/ledgercore/log"
)

// log is a logger that is initialized as a no-op by default. Client code may
// call UseLogger to bind it to a concrete implementation before the chain
// engine does any real work.
var log = flog.Disabled

// DisableLog disables all library log output. Logging output is disabled
// by default until UseLogger is called.
func DisableLog() {
	log = flog.Disabled
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger flog.Logger) {
	log = logger
}

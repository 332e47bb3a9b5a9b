// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
	"github.com/ledgercore/ledgercore/blockchain"
	"github.com/ledgercore/ledgercore/blockchain/chaindb"
	"github.com/ledgercore/ledgercore/log"
	"github.com/ledgercore/ledgercore/mining"
)

// ctlLog is chainctl's own subsystem logger, bound by initLogging.
var ctlLog log.Logger = log.Disabled

// logRotator rolls the on-disk log file once it passes 10 MiB, keeping up
// to three rolled generations, mirroring the threshold the btcd family
// standardizes on for its jrick/logrotate-backed log files.
var logRotator *rotator.Rotator

// logWriter multiplexes log output to both stdout and the on-disk rotator,
// the same dual-sink arrangement the teacher's integration harness uses
// for its own logWriter (see the pack's integration/log.go), minus the
// stdout-only simplification that package takes for test runs.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// initLogging opens the rotated log file under logDir and wires a single
// log.Backend's subsystem loggers into every package that exposes
// UseLogger, the same subsystem-tag pattern the teacher's integration
// harness uses to bind rpcclient's logger.
func initLogging(logDir string, level log.Level) (func(), error) {
	logFile := filepath.Join(logDir, defaultLogFilename)
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to create log rotator: %w", err)
	}
	logRotator = r

	backend := log.NewBackend(logWriter{})

	chainLog := backend.Logger("CHAIN")
	chainLog.SetLevel(level)
	blockchain.UseLogger(chainLog)

	dbLog := backend.Logger("CHDB")
	dbLog.SetLevel(level)
	chaindb.UseLogger(dbLog)

	miningLog := backend.Logger("MINR")
	miningLog.SetLevel(level)
	mining.UseLogger(miningLog)

	ctlLog = backend.Logger("CTL")
	ctlLog.SetLevel(level)

	return func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}, nil
}

// parseLevel maps a debuglevel flag value to a log.Level, defaulting to
// LevelInfo for anything unrecognized.
func parseLevel(s string) log.Level {
	switch s {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	case "critical":
		return log.LevelCritical
	case "off":
		return log.LevelOff
	default:
		return log.LevelInfo
	}
}

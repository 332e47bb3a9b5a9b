// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDataDirname = "data"
	defaultLogFilename = "chainctl.log"
	defaultNetwork     = "mainnet"
)

// config defines the command-line options chainctl accepts. It mirrors the
// cmd/flokicoind-cli struct-tag idiom, scaled down to the handful of knobs
// an offline replay driver needs: which network's consensus parameters to
// validate against, where the chain database lives, and which block files
// to feed through Chain.ProcessBlock.
type config struct {
	DataDir     string `short:"b" long:"datadir" description:"Directory to store the chain database"`
	Network     string `short:"n" long:"network" description:"Network to validate against (mainnet, testnet, regtest)"`
	Blocks      string `long:"blocks" description:"Path to a block file (or comma-separated list of files) to replay, in chainctl's length-prefixed stream format"`
	Debuglevel  string `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical, off"`
	LogDir      string `long:"logdir" description:"Directory to write log files"`
	Reset       bool   `long:"reset" description:"Wipe the chain database before replaying"`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
}

// defaultChainctlHomeDir returns the default base directory chainctl uses
// for its chain database and logs, following the XDG-ish convention the
// rest of the module's host binaries use in place of a shared AppDataDir
// helper (this module dropped chainutil.AppDataDir along with the wallet
// and GUI surfaces it served).
func defaultChainctlHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".chainctl")
	}
	return filepath.Join(home, ".chainctl")
}

// loadConfig parses command-line flags into a config, filling in defaults
// for anything left unset.
func loadConfig() (*config, error) {
	homeDir := defaultChainctlHomeDir()

	cfg := config{
		DataDir:    filepath.Join(homeDir, defaultDataDirname),
		Network:    defaultNetwork,
		Debuglevel: "info",
		LogDir:     homeDir,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.ShowVersion {
		fmt.Println("chainctl", version())
		os.Exit(0)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create data directory %q: %w", cfg.DataDir, err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create log directory %q: %w", cfg.LogDir, err)
	}

	return &cfg, nil
}

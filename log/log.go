// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package log defines the logging primitives shared by every component of
// the chain engine: a Level type, a Logger interface, and a disabled
// implementation used as the default until a caller binds a real logger via
// each package's UseLogger function.
package log

// Level is the level at which a logger is configured. All messages sent to
// a level-filtered logger with a level lower than the set level are
// filtered.
type Level uint32

// Log levels, ordered from most to least verbose.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

// levelStrs is a map from Level to its string representation.
var levelStrs = [...]string{"TRC", "DBG", "INF", "WRN", "ERR", "CRT", "OFF"}

// String returns the string representation of the log level.
func (l Level) String() string {
	if l >= Level(len(levelStrs)) {
		return "OFF"
	}
	return levelStrs[l]
}

// Logger is the interface package-level loggers throughout the module are
// bound to. Each package keeps its own unexported `log` variable of this
// type, defaulted to Disabled, and exposes UseLogger so a host binary can
// wire in a concrete implementation.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})

	Trace(args ...interface{})
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Critical(args ...interface{})

	Level() Level
	SetLevel(level Level)
}

// disabledLogger implements Logger as a complete no-op.
type disabledLogger struct{}

func (disabledLogger) Tracef(string, ...interface{})    {}
func (disabledLogger) Debugf(string, ...interface{})    {}
func (disabledLogger) Infof(string, ...interface{})     {}
func (disabledLogger) Warnf(string, ...interface{})     {}
func (disabledLogger) Errorf(string, ...interface{})    {}
func (disabledLogger) Criticalf(string, ...interface{}) {}

func (disabledLogger) Trace(...interface{})    {}
func (disabledLogger) Debug(...interface{})    {}
func (disabledLogger) Info(...interface{})     {}
func (disabledLogger) Warn(...interface{})     {}
func (disabledLogger) Error(...interface{})    {}
func (disabledLogger) Critical(...interface{}) {}

func (disabledLogger) Level() Level      { return LevelOff }
func (disabledLogger) SetLevel(Level)    {}

// Disabled is a Logger that discards all messages. It is the default value
// bound by every package's `log` variable before UseLogger is called.
var Disabled Logger = disabledLogger{}

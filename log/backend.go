// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Backend multiplexes leveled, subsystem-tagged Logger instances onto a
// single io.Writer, the same role the teacher's btclog.Backend plays for
// its own subsystem loggers (see the pack's integration/log.go, which
// binds one backend to stdout and hands each package's UseLogger a
// "SUBSYS"-tagged Logger drawn from it).
type Backend struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBackend returns a new logging backend that writes formatted records to
// w, serializing writes so concurrent subsystem loggers never interleave a
// line.
func NewBackend(w io.Writer) *Backend {
	return &Backend{w: w}
}

// Logger returns a Logger tagged with subsystemTag, defaulting to
// LevelInfo.
func (b *Backend) Logger(subsystemTag string) Logger {
	l := &backendLogger{backend: b, tag: subsystemTag}
	l.level.Store(uint32(LevelInfo))
	return l
}

func (b *Backend) write(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	io.WriteString(b.w, line)
}

// backendLogger is a Logger bound to a Backend and a fixed subsystem tag.
type backendLogger struct {
	backend *Backend
	tag     string
	level   atomic.Uint32
}

func (l *backendLogger) Level() Level { return Level(l.level.Load()) }

func (l *backendLogger) SetLevel(level Level) { l.level.Store(uint32(level)) }

func (l *backendLogger) println(lvl Level, args ...interface{}) {
	if lvl < l.Level() {
		return
	}
	line := fmt.Sprintf("%s [%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"), lvl, l.tag, fmt.Sprint(args...))
	l.backend.write(line)
}

func (l *backendLogger) printf(lvl Level, format string, args ...interface{}) {
	if lvl < l.Level() {
		return
	}
	line := fmt.Sprintf("%s [%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"), lvl, l.tag, fmt.Sprintf(format, args...))
	l.backend.write(line)
}

func (l *backendLogger) Tracef(format string, args ...interface{})    { l.printf(LevelTrace, format, args...) }
func (l *backendLogger) Debugf(format string, args ...interface{})    { l.printf(LevelDebug, format, args...) }
func (l *backendLogger) Infof(format string, args ...interface{})     { l.printf(LevelInfo, format, args...) }
func (l *backendLogger) Warnf(format string, args ...interface{})     { l.printf(LevelWarn, format, args...) }
func (l *backendLogger) Errorf(format string, args ...interface{})    { l.printf(LevelError, format, args...) }
func (l *backendLogger) Criticalf(format string, args ...interface{}) { l.printf(LevelCritical, format, args...) }

func (l *backendLogger) Trace(args ...interface{})    { l.println(LevelTrace, args...) }
func (l *backendLogger) Debug(args ...interface{})    { l.println(LevelDebug, args...) }
func (l *backendLogger) Info(args ...interface{})     { l.println(LevelInfo, args...) }
func (l *backendLogger) Warn(args ...interface{})     { l.println(LevelWarn, args...) }
func (l *backendLogger) Error(args ...interface{})    { l.println(LevelError, args...) }
func (l *backendLogger) Critical(args ...interface{}) { l.println(LevelCritical, args...) }

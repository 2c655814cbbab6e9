// Copyright 2026 The txindexer Authors
// This file is part of the txindexer library.
//
// The txindexer library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The txindexer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the txindexer library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides the structured, per-module logger used throughout
// txindexer. It follows the same calling convention as the teacher's own
// logger (a message string followed by alternating key/value pairs) but is
// backed by go.uber.org/zap's SugaredLogger instead of a hand-rolled
// formatter, and tags every Error/Crit record with a caller frame captured
// via go-stack/stack.
package log

import (
	"os"

	"github.com/go-stack/stack"
	"go.uber.org/zap"
)

// Logger is the handle every package obtains via NewModuleLogger. It never
// panics from a logging call; Crit is the one level that terminates the
// process, by design, for programmer-error reporting (see indexer/errors.go).
type Logger struct {
	z      *zap.SugaredLogger
	module string
}

var base = mustBuildBase()

func mustBuildBase() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if os.Getenv("TXINDEXER_LOG_DEV") != "" {
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap construction only fails on a malformed static config; that is
		// a programmer error, not a runtime condition callers can recover from.
		panic(err)
	}
	return l
}

// NewModuleLogger returns a Logger namespaced to module, e.g. "indexer",
// "graph", "storage". The name shows up as a zap "logger" field.
func NewModuleLogger(module string) *Logger {
	return &Logger{z: base.Sugar().Named(module), module: module}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }

func (l *Logger) Error(msg string, kv ...interface{}) {
	kv = append(kv, "stack", callerFrame())
	l.z.Errorw(msg, kv...)
}

// Crit logs at fatal severity and terminates the process. Reserved for
// invariant violations the core treats as programmer error (spec §7).
func (l *Logger) Crit(msg string, kv ...interface{}) {
	kv = append(kv, "stack", callerFrame())
	l.z.Fatalw(msg, kv...)
}

func callerFrame() string {
	c := stack.Caller(2)
	return stack.Trace().TrimBelow(c).TrimRuntime().String()
}

// Sync flushes any buffered log entries; call it before process exit.
func Sync() {
	_ = base.Sync()
}

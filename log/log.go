// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package log provides the library's diagnostic output: always-on error
// reporting, operational messages from drivers such as the benchmark tool,
// and optional tracing of device residency traffic (uploads, refreshes,
// releases).  Messages go through the standard library logger, so callers
// redirect or silence them the usual way.
//
// A binary that wants the level on its command line should call
// log.AddFlags before flag parsing.
package log

import (
	"flag"
	"fmt"
	golog "log"
	"sync/atomic"
)

// A Level selects how much the library says.  Each level includes the ones
// below it.
type Level int32

const (
	// Quiet emits errors only.
	Quiet Level = iota
	// Ops adds operational messages.  This is the default.
	Ops
	// Trace adds device residency traffic: one line per upload, refresh,
	// and release.  (Forced releases are reported through Errorf at every
	// level.)  Intended for debugging the update and release flags of
	// batched device calls.
	Trace
)

var level int32 = int32(Ops)

// SetLevel sets the output level.  Safe to call concurrently with output.
func SetLevel(l Level) {
	atomic.StoreInt32(&level, int32(l))
}

// At reports whether the library is currently emitting at level l.
func At(l Level) bool {
	return Level(atomic.LoadInt32(&level)) >= l
}

// String returns the flag spelling of the level.
func (l Level) String() string {
	switch l {
	case Quiet:
		return "quiet"
	case Ops:
		return "ops"
	case Trace:
		return "trace"
	default:
		return fmt.Sprintf("level%d", int32(l))
	}
}

// AddFlags adds the -log level flag to the flag.CommandLine flag set.
func AddFlags() {
	flag.Var(levelFlag{}, "log", "set log level (quiet, ops, trace)")
}

type levelFlag struct{}

func (levelFlag) String() string { return Level(atomic.LoadInt32(&level)).String() }

// Set implements flag.Value.
func (levelFlag) Set(s string) error {
	switch s {
	case "quiet":
		SetLevel(Quiet)
	case "ops":
		SetLevel(Ops)
	case "trace":
		SetLevel(Trace)
	default:
		return fmt.Errorf("invalid log level %q (want quiet, ops, or trace)", s)
	}
	return nil
}

// Opf emits an operational message, formatted in the manner of
// fmt.Sprintf.
func Opf(format string, v ...interface{}) {
	if At(Ops) {
		golog.Output(2, fmt.Sprintf(format, v...))
	}
}

// Tracef emits a residency-trace message, formatted in the manner of
// fmt.Sprintf.
func Tracef(format string, v ...interface{}) {
	if At(Trace) {
		golog.Output(2, fmt.Sprintf(format, v...))
	}
}

// Errorf emits an error message, formatted in the manner of fmt.Sprintf.
// Errors are emitted at every level.
func Errorf(format string, v ...interface{}) {
	golog.Output(2, "error: "+fmt.Sprintf(format, v...))
}

// Panic emits the message in the manner of fmt.Sprint and panics with it.
// It is the default reporter for violated preconditions.
func Panic(v ...interface{}) {
	s := fmt.Sprint(v...)
	golog.Output(2, s)
	panic(s)
}

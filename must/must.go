// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package must enforces the library's preconditions.  A violated
// precondition is a programmer error with no recovery path, so each helper
// reports through Func and interrupts execution.  The helpers mirror the
// checks the library actually performs: live handles, index and range
// bounds, equal operand capacities, and sufficiently sized caller buffers.
package must

import (
	"fmt"

	"github.com/grailbio/bitcol/log"
)

// Func is the function called to report a violated precondition and
// interrupt execution; it must not return.  It defaults to log.Panic so
// that tests can observe violations as panics.  It should be set, if at
// all, before any other use of the library.
var Func func(...interface{}) = log.Panic

func fail(format string, v ...interface{}) {
	Func(fmt.Sprintf(format, v...))
}

// Live asserts that a handle is non-nil and has not been freed.  what
// names the handle's type in the diagnostic.
func Live(ok bool, what string) {
	if !ok {
		fail("%s: nil or freed handle", what)
	}
}

// Index asserts 0 <= i < n.
func Index(what string, i, n int) {
	if uint(i) >= uint(n) {
		fail("%s: index %d out of range [0, %d)", what, i, n)
	}
}

// Span asserts 0 <= lo <= hi < length, the precondition of the range
// mutators.
func Span(what string, lo, hi, length int) {
	if lo < 0 || lo > hi || hi >= length {
		fail("%s: invalid range [%d, %d] for length %d", what, lo, hi, length)
	}
}

// SameLength asserts that two operands have equal bit capacity.  Every
// pairwise and batched operation requires it; there are no cross-length
// operations.
func SameLength(what string, a, b int) {
	if a != b {
		fail("%s: length mismatch %d vs %d", what, a, b)
	}
}

// Capacity asserts 0 < length <= limit, the constructor precondition on
// bit capacities.
func Capacity(what string, length, limit int) {
	if length <= 0 || length > limit {
		fail("%s: invalid length %d", what, length)
	}
}

// Buffer asserts that a caller-provided buffer holds at least want units.
func Buffer(what string, got, want int) {
	if got < want {
		fail("%s buffer holds %d, want >= %d", what, got, want)
	}
}

// OK asserts that a runtime operation (allocation, transfer, kernel
// launch) succeeded.  The message is formatted in the manner of
// fmt.Sprintf and suffixed with err.
func OK(err error, format string, v ...interface{}) {
	if err != nil {
		Func(fmt.Sprintf(format, v...), ": ", err)
	}
}

// Failf reports a precondition violation outright, for conditions the
// other helpers do not cover.
func Failf(format string, v ...interface{}) {
	fail(format, v...)
}

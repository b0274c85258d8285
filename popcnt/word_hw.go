// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

//go:build !portable_popcount

package popcnt

import (
	"math/bits"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

var (
	probeOnce  sync.Once
	havePopcnt bool
)

// HavePopcnt reports whether the CPU exposes a hardware popcount
// instruction.  The probe runs once per process.  The answer is diagnostic
// only: math/bits performs its own dispatch, so Word is correct either way.
func HavePopcnt() bool {
	probeOnce.Do(func() {
		havePopcnt = cpuid.CPU.Supports(cpuid.POPCNT)
	})
	return havePopcnt
}

// Word returns the number of set bits in w.
func Word(w uint64) int {
	return bits.OnesCount64(w)
}

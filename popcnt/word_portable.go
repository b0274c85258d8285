// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

//go:build portable_popcount

package popcnt

// HavePopcnt reports whether the CPU exposes a hardware popcount
// instruction.  The portable build never probes; it always answers false.
func HavePopcnt() bool {
	return false
}

// Word returns the number of set bits in w, using the Wilkes-Wheeler-Gill
// reduction: fold pairs, then nibbles, then broadcast-multiply and read the
// high byte.
func Word(w uint64) int {
	w -= (w >> 1) & 0x5555555555555555
	w = (w & 0x3333333333333333) + ((w >> 2) & 0x3333333333333333)
	w = (w + (w >> 4)) & 0x0f0f0f0f0f0f0f0f
	return int((w * 0x0101010101010101) >> 56)
}

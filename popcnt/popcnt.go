// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package popcnt provides the population-count primitive underlying the rest
// of the library: the number of set bits in a 64-bit word, a word slice, or
// an arbitrary byte span.
//
// Two implementations exist behind the portable_popcount build tag.  The
// default path leans on math/bits, which lowers to the POPCNT instruction on
// hardware that has it; the portable path is the Wilkes-Wheeler-Gill SWAR
// reduction.  Results are bit-identical either way.
package popcnt

import "encoding/binary"

// BitsPerWord is the number of bits in a storage word.
const BitsPerWord = 64

// Log2BitsPerWord is log_2(BitsPerWord).
const Log2BitsPerWord = uint(6)

// BytesPerWord is the number of bytes in a storage word.
const BytesPerWord = 8

// Words returns the number of set bits in the given word slice.
func Words(words []uint64) int {
	cnt := 0
	for _, w := range words {
		cnt += Word(w)
	}
	return cnt
}

// Bytes returns the number of set bits in the given byte span, interpreted
// as the little-endian word view.  A trailing sub-word tail is zero-extended
// into a full word, so the result is exact for any length.
func Bytes(p []byte) int {
	cnt := 0
	nWord := len(p) >> 3
	for i := 0; i < nWord; i++ {
		cnt += Word(binary.LittleEndian.Uint64(p[i*BytesPerWord:]))
	}
	tail := p[nWord*BytesPerWord:]
	if len(tail) != 0 {
		var w uint64
		for i, b := range tail {
			w |= uint64(b) << (8 * uint(i))
		}
		cnt += Word(w)
	}
	return cnt
}

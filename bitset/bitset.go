// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bitset

import (
	"github.com/grailbio/bitcol/must"
	"github.com/grailbio/bitcol/popcnt"
	"github.com/grailbio/bitcol/unsafe"
)

// MaxLength is the largest supported bit capacity.
const MaxLength = 1<<31 - 1

// A Bitset is a fixed-capacity dense bit array.  Bit i lives in word i/64 at
// bit position i%64; equivalently, in byte i/8 at position i%8 of the
// little-endian byte view.
type Bitset struct {
	length int
	words  []uint64
	// loaded retains the adopted buffer for non-owned bitsets, so Free can
	// hand it back to the caller.  nil for owned bitsets.
	loaded []byte
	owned  bool
}

// Partial-byte masks for the range mutators.  msbMask[k] has bits k..7 set,
// lsbMask[k] has bits 0..k set.
var (
	msbMask = [8]byte{0xff, 0xfe, 0xfc, 0xf8, 0xf0, 0xe0, 0xc0, 0x80}
	lsbMask = [8]byte{0x01, 0x03, 0x07, 0x0f, 0x1f, 0x3f, 0x7f, 0xff}
)

func checkLength(length int) {
	must.Capacity("bitset", length, MaxLength)
}

// BufferSize returns the number of bytes backing a bitset of the given
// capacity: ceil(length/64) words of 8 bytes each.
func BufferSize(length int) int {
	checkLength(length)
	return ((length + popcnt.BitsPerWord - 1) >> popcnt.Log2BitsPerWord) * popcnt.BytesPerWord
}

// New returns an owned, zeroed bitset of the given capacity.
func New(length int) *Bitset {
	checkLength(length)
	nWord := (length + popcnt.BitsPerWord - 1) >> popcnt.Log2BitsPerWord
	return &Bitset{
		length: length,
		words:  make([]uint64, nWord),
		owned:  true,
	}
}

// Load adopts buf as the storage of a non-owned bitset of the given
// capacity.  len(buf) must equal BufferSize(length).  The bitset aliases
// buf — it does not copy — and must not outlive it; Free returns buf to the
// caller.  Padding bits above length are zeroed in place.
func Load(length int, buf []byte) *Bitset {
	if len(buf) != BufferSize(length) {
		must.Failf("bitset: Load buffer is %d bytes, want %d", len(buf), BufferSize(length))
	}
	b := &Bitset{
		length: length,
		words:  unsafe.BytesToWords(buf),
		loaded: buf,
	}
	b.maskTail()
	return b
}

// Free releases the bitset.  Owned storage is dropped for collection and nil
// is returned; for a loaded bitset the adopted buffer is returned so the
// caller can reclaim it.  The handle is dead afterwards: any further use is
// a fatal error.
func (b *Bitset) Free() []byte {
	b.ok()
	buf := b.loaded
	b.words = nil
	b.loaded = nil
	b.length = 0
	return buf
}

func (b *Bitset) ok() {
	must.Live(b != nil && b.words != nil, "bitset")
}

func (b *Bitset) checkIndex(i int) {
	must.Index("bitset", i, b.length)
}

func (b *Bitset) checkRange(lo, hi int) {
	must.Span("bitset", lo, hi, b.length)
}

// maskTail zeroes the padding bits above length in the final word.
func (b *Bitset) maskTail() {
	if tail := uint(b.length) % popcnt.BitsPerWord; tail != 0 {
		b.words[len(b.words)-1] &= (uint64(1) << tail) - 1
	}
}

// Len returns the bit capacity.
func (b *Bitset) Len() int {
	b.ok()
	return b.length
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	b.ok()
	return popcnt.Words(b.words)
}

// Get returns the bit at position i.
func (b *Bitset) Get(i int) bool {
	b.ok()
	b.checkIndex(i)
	// Unsigned division by a power-of-2 constant compiles to a right-shift.
	return b.words[uint(i)/popcnt.BitsPerWord]&(1<<(uint(i)%popcnt.BitsPerWord)) != 0
}

// Set sets the bit at position i.
func (b *Bitset) Set(i int) {
	b.ok()
	b.checkIndex(i)
	b.words[uint(i)/popcnt.BitsPerWord] |= 1 << (uint(i) % popcnt.BitsPerWord)
}

// Clear clears the bit at position i.
func (b *Bitset) Clear(i int) {
	b.ok()
	b.checkIndex(i)
	wordIdx := uint(i) / popcnt.BitsPerWord
	b.words[wordIdx] = b.words[wordIdx] &^ (1 << (uint(i) % popcnt.BitsPerWord))
}

// Put writes v at position i and returns the prior value of the bit.
func (b *Bitset) Put(i int, v bool) bool {
	b.ok()
	b.checkIndex(i)
	wordIdx := uint(i) / popcnt.BitsPerWord
	mask := uint64(1) << (uint(i) % popcnt.BitsPerWord)
	prior := b.words[wordIdx]&mask != 0
	if v {
		b.words[wordIdx] |= mask
	} else {
		b.words[wordIdx] &^= mask
	}
	return prior
}

// SetMany sets the bit at every position in indices.
func (b *Bitset) SetMany(indices []int) {
	b.ok()
	for _, i := range indices {
		b.checkIndex(i)
		b.words[uint(i)/popcnt.BitsPerWord] |= 1 << (uint(i) % popcnt.BitsPerWord)
	}
}

// ClearMany clears the bit at every position in indices.
func (b *Bitset) ClearMany(indices []int) {
	b.ok()
	for _, i := range indices {
		b.checkIndex(i)
		wordIdx := uint(i) / popcnt.BitsPerWord
		b.words[wordIdx] = b.words[wordIdx] &^ (1 << (uint(i) % popcnt.BitsPerWord))
	}
}

// SetRange sets the bits at all positions in [lo, hi], bounds inclusive.
// The interior is filled a byte at a time; the lo/hi partial bytes use the
// precomputed msb/lsb masks.
func (b *Bitset) SetRange(lo, hi int) {
	b.ok()
	b.checkRange(lo, hi)
	bytes := unsafe.WordsToBytes(b.words)
	loByte := uint(lo) / 8
	hiByte := uint(hi) / 8
	if loByte == hiByte {
		bytes[loByte] |= msbMask[lo&7] & lsbMask[hi&7]
		return
	}
	bytes[loByte] |= msbMask[lo&7]
	for k := loByte + 1; k < hiByte; k++ {
		bytes[k] = 0xff
	}
	bytes[hiByte] |= lsbMask[hi&7]
}

// ClearRange clears the bits at all positions in [lo, hi], bounds inclusive.
func (b *Bitset) ClearRange(lo, hi int) {
	b.ok()
	b.checkRange(lo, hi)
	bytes := unsafe.WordsToBytes(b.words)
	loByte := uint(lo) / 8
	hiByte := uint(hi) / 8
	if loByte == hiByte {
		bytes[loByte] &^= msbMask[lo&7] & lsbMask[hi&7]
		return
	}
	bytes[loByte] &^= msbMask[lo&7]
	for k := loByte + 1; k < hiByte; k++ {
		bytes[k] = 0
	}
	bytes[hiByte] &^= lsbMask[hi&7]
}

// FlipRange inverts the bits at all positions in [lo, hi], bounds inclusive.
func (b *Bitset) FlipRange(lo, hi int) {
	b.ok()
	b.checkRange(lo, hi)
	bytes := unsafe.WordsToBytes(b.words)
	loByte := uint(lo) / 8
	hiByte := uint(hi) / 8
	if loByte == hiByte {
		bytes[loByte] ^= msbMask[lo&7] & lsbMask[hi&7]
		return
	}
	bytes[loByte] ^= msbMask[lo&7]
	for k := loByte + 1; k < hiByte; k++ {
		bytes[k] ^= 0xff
	}
	bytes[hiByte] ^= lsbMask[hi&7]
}

// SetAll sets every bit in [0, Len).
func (b *Bitset) SetAll() {
	b.ok()
	for i := range b.words {
		b.words[i] = ^uint64(0)
	}
	b.maskTail()
}

// ClearAll clears every bit.
func (b *Bitset) ClearAll() {
	b.ok()
	for i := range b.words {
		b.words[i] = 0
	}
}

// Map calls fn(i, bit) for every position in ascending order.  fn may
// mutate the bitset; later iterations observe the mutations.
func (b *Bitset) Map(fn func(i int, bit bool)) {
	b.ok()
	for i := 0; i < b.length; i++ {
		fn(i, b.words[uint(i)/popcnt.BitsPerWord]&(1<<(uint(i)%popcnt.BitsPerWord)) != 0)
	}
}

// Extract copies the little-endian byte image of the bitset into dst and
// returns the number of bytes written.  dst must hold at least
// BufferSize(Len()) bytes.  Load(Len(), image) reconstructs an equal bitset.
func (b *Bitset) Extract(dst []byte) int {
	b.ok()
	n := len(b.words) * popcnt.BytesPerWord
	must.Buffer("bitset: Extract", len(dst), n)
	copy(dst, unsafe.WordsToBytes(b.words))
	return n
}

// UnsafeWords returns the backing word slice.  The slice aliases the
// bitset's storage; callers that write through it are responsible for
// keeping the padding bits above Len() zero.
func (b *Bitset) UnsafeWords() []uint64 {
	b.ok()
	return b.words
}

// Clone returns an owned copy of s.
func Clone(s *Bitset) *Bitset {
	s.ok()
	r := New(s.length)
	copy(r.words, s.words)
	return r
}

func checkPair(s, t *Bitset) {
	s.ok()
	t.ok()
	must.SameLength("bitset", s.length, t.length)
}

// Eq reports whether s and t contain exactly the same bits.  Both operands
// must be live and of equal length.
func Eq(s, t *Bitset) bool {
	checkPair(s, t)
	for i, sw := range s.words {
		if sw != t.words[i] {
			return false
		}
	}
	return true
}

// Leq reports whether s is a subset of t.
func Leq(s, t *Bitset) bool {
	checkPair(s, t)
	for i, sw := range s.words {
		if sw&^t.words[i] != 0 {
			return false
		}
	}
	return true
}

// Lt reports whether s is a proper subset of t with a nonempty
// intersection.  The intersection clause is retained for compatibility with
// the abstract data type this package descends from: an empty s is never Lt
// any t, even though it is a proper subset of any nonempty t.
func Lt(s, t *Bitset) bool {
	checkPair(s, t)
	intersects := false
	equal := true
	for i, sw := range s.words {
		tw := t.words[i]
		if sw&^tw != 0 {
			return false
		}
		if sw&tw != 0 {
			intersects = true
		}
		if sw != tw {
			equal = false
		}
	}
	return intersects && !equal
}

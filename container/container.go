// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package container provides the packed container: an array of equal-length
// bitsets laid out in one contiguous word block, one fixed-stride slot per
// element.  The layout keeps a whole collection cache- and device-friendly;
// the batched kernels in package batch read two containers directly.
package container

import (
	"github.com/grailbio/bitcol/bitset"
	"github.com/grailbio/bitcol/device"
	"github.com/grailbio/bitcol/must"
	"github.com/grailbio/bitcol/popcnt"
	"github.com/grailbio/bitcol/unsafe"
)

// A Container packs nelem bitsets of identical capacity.  Slot i occupies
// words [i*stride, (i+1)*stride) of the block.  Padding bits above the
// capacity in each slot's final word stay zero.
type Container struct {
	length int
	nelem  int
	stride int
	block  []uint64
}

// New returns a zeroed container of nelem slots, each of the given bit
// capacity.
func New(length, nelem int) *Container {
	must.Capacity("container", length, bitset.MaxLength)
	if nelem <= 0 {
		must.Failf("container: invalid element count %d", nelem)
	}
	stride := (length + popcnt.BitsPerWord - 1) >> popcnt.Log2BitsPerWord
	return &Container{
		length: length,
		nelem:  nelem,
		stride: stride,
		block:  make([]uint64, nelem*stride),
	}
}

// Free releases the container.  Device-resident copies of the block are
// force-released first; a live device copy at Free time is a programmer
// error, but leaking device memory over it would be worse.  The handle is
// dead afterwards.
func (c *Container) Free() {
	c.ok()
	device.ForgetHost(unsafe.WordsToBytes(c.block))
	c.block = nil
	c.length = 0
	c.nelem = 0
}

func (c *Container) ok() {
	must.Live(c != nil && c.block != nil, "container")
}

func (c *Container) checkSlot(i int) {
	must.Index("container", i, c.nelem)
}

// Len returns the bit capacity of each slot.
func (c *Container) Len() int {
	c.ok()
	return c.length
}

// NElem returns the number of slots.
func (c *Container) NElem() int {
	c.ok()
	return c.nelem
}

// StrideWords returns the per-slot word count.
func (c *Container) StrideWords() int {
	c.ok()
	return c.stride
}

// slot returns the word view of slot i.
func (c *Container) slot(i int) []uint64 {
	return c.block[i*c.stride : (i+1)*c.stride]
}

// UnsafeWords returns the word view of slot i.  The slice aliases the
// container's block; callers that write through it are responsible for the
// padding invariant.
func (c *Container) UnsafeWords(i int) []uint64 {
	c.ok()
	c.checkSlot(i)
	return c.slot(i)
}

// UnsafeBytes returns the byte view of the whole block.  The slice aliases
// the container's storage.
func (c *Container) UnsafeBytes() []byte {
	c.ok()
	return unsafe.WordsToBytes(c.block)
}

// Get returns a freshly allocated bitset copy of slot i.
func (c *Container) Get(i int) *bitset.Bitset {
	c.ok()
	c.checkSlot(i)
	b := bitset.New(c.length)
	copy(b.UnsafeWords(), c.slot(i))
	return b
}

// Put copies b into slot i.  b must have the container's element capacity.
func (c *Container) Put(i int, b *bitset.Bitset) {
	c.ok()
	c.checkSlot(i)
	must.SameLength("container: Put", b.Len(), c.length)
	copy(c.slot(i), b.UnsafeWords())
}

// Extract copies the little-endian byte image of slot i into dst and
// returns the number of bytes written.  dst must hold at least
// bitset.BufferSize(Len()) bytes.
func (c *Container) Extract(i int, dst []byte) int {
	c.ok()
	c.checkSlot(i)
	n := c.stride * popcnt.BytesPerWord
	must.Buffer("container: Extract", len(dst), n)
	copy(dst, unsafe.WordsToBytes(c.slot(i)))
	return n
}

// Replace copies the byte image in src into slot i.  src must hold at least
// bitset.BufferSize(Len()) bytes; padding bits above the capacity are
// zeroed so an arbitrary image cannot break the invariant.
func (c *Container) Replace(i int, src []byte) {
	c.ok()
	c.checkSlot(i)
	n := c.stride * popcnt.BytesPerWord
	must.Buffer("container: Replace", len(src), n)
	slot := c.slot(i)
	copy(unsafe.WordsToBytes(slot), src[:n])
	if tail := uint(c.length) % popcnt.BitsPerWord; tail != 0 {
		slot[len(slot)-1] &= (uint64(1) << tail) - 1
	}
}

// ClearSlot zeroes slot i.
func (c *Container) ClearSlot(i int) {
	c.ok()
	c.checkSlot(i)
	slot := c.slot(i)
	for w := range slot {
		slot[w] = 0
	}
}

// ClearAll zeroes the whole container.
func (c *Container) ClearAll() {
	c.ok()
	for w := range c.block {
		c.block[w] = 0
	}
}

// CountAt returns the population count of slot i.
func (c *Container) CountAt(i int) int {
	c.ok()
	c.checkSlot(i)
	return popcnt.Words(c.slot(i))
}

// CountAll returns the population count of every slot, in slot order.
func (c *Container) CountAll() []int32 {
	c.ok()
	counts := make([]int32, c.nelem)
	for i := range counts {
		counts[i] = int32(popcnt.Words(c.slot(i)))
	}
	return counts
}

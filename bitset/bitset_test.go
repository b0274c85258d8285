// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bitset_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	wbitset "github.com/willf/bitset"

	"github.com/grailbio/bitcol/bitset"
	"github.com/grailbio/bitcol/popcnt"
)

var boundaryLengths = []int{1, 7, 8, 9, 63, 64, 65, 128, 1 << 16, 1 << 20}

// requirePadZero checks the invariant that bits above Len() in the final
// word are zero.
func requirePadZero(t *testing.T, b *bitset.Bitset) {
	t.Helper()
	words := b.UnsafeWords()
	if tail := uint(b.Len()) % popcnt.BitsPerWord; tail != 0 {
		require.Zero(t, words[len(words)-1]&^((uint64(1)<<tail)-1),
			"padding bits set above length %d", b.Len())
	}
}

func TestBufferSize(t *testing.T) {
	for _, tc := range []struct{ length, want int }{
		{1, 8}, {7, 8}, {8, 8}, {63, 8}, {64, 8}, {65, 16}, {128, 16}, {129, 24},
	} {
		require.Equal(t, tc.want, bitset.BufferSize(tc.length), "length %d", tc.length)
	}
}

func TestSingleBitOps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, length := range boundaryLengths {
		b := bitset.New(length)
		ref := wbitset.New(uint(length))
		nIter := 200
		if length < 32 {
			nIter = 4 * length
		}
		for iter := 0; iter < nIter; iter++ {
			i := rng.Intn(length)
			switch rng.Intn(4) {
			case 0:
				b.Set(i)
				ref.Set(uint(i))
			case 1:
				b.Clear(i)
				ref.Clear(uint(i))
			case 2:
				v := rng.Intn(2) == 1
				prior := b.Put(i, v)
				require.Equal(t, ref.Test(uint(i)), prior, "Put prior at %d", i)
				ref.SetTo(uint(i), v)
			case 3:
				require.Equal(t, ref.Test(uint(i)), b.Get(i), "Get at %d", i)
			}
		}
		require.Equal(t, int(ref.Count()), b.Count(), "length %d", length)
		requirePadZero(t, b)
	}
}

func TestSetClearMany(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	b := bitset.New(1000)
	ref := wbitset.New(1000)
	var setIdx, clearIdx []int
	for i := 0; i < 300; i++ {
		setIdx = append(setIdx, rng.Intn(1000))
	}
	for i := 0; i < 100; i++ {
		clearIdx = append(clearIdx, rng.Intn(1000))
	}
	b.SetMany(setIdx)
	for _, i := range setIdx {
		ref.Set(uint(i))
	}
	b.ClearMany(clearIdx)
	for _, i := range clearIdx {
		ref.Clear(uint(i))
	}
	for i := 0; i < 1000; i++ {
		require.Equal(t, ref.Test(uint(i)), b.Get(i), "bit %d", i)
	}
}

// naiveRange applies a per-bit model of the range mutators.
func naiveRange(b *bitset.Bitset, mode, lo, hi int) {
	for i := lo; i <= hi; i++ {
		switch mode {
		case 0:
			b.Set(i)
		case 1:
			b.Clear(i)
		case 2:
			b.Put(i, !b.Get(i))
		}
	}
}

func TestRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, length := range boundaryLengths {
		if length > 1<<16 {
			continue
		}
		fast := bitset.New(length)
		slow := bitset.New(length)
		for iter := 0; iter < 50; iter++ {
			lo := rng.Intn(length)
			hi := lo + rng.Intn(length-lo)
			mode := rng.Intn(3)
			switch mode {
			case 0:
				fast.SetRange(lo, hi)
			case 1:
				fast.ClearRange(lo, hi)
			case 2:
				fast.FlipRange(lo, hi)
			}
			naiveRange(slow, mode, lo, hi)
			require.True(t, bitset.Eq(fast, slow), "length %d mode %d range [%d, %d]", length, mode, lo, hi)
			requirePadZero(t, fast)
		}
		// Whole-bitset range.
		fast.SetRange(0, length-1)
		require.Equal(t, length, fast.Count())
		fast.FlipRange(0, length-1)
		require.Equal(t, 0, fast.Count())
		requirePadZero(t, fast)
	}
}

func TestRangeSetThenCount(t *testing.T) {
	b := bitset.New(2048)
	b.SetRange(2, 1024)
	require.Equal(t, 1023, b.Count())
	require.False(t, b.Get(1))
	require.True(t, b.Get(2))
	require.True(t, b.Get(1024))
	require.False(t, b.Get(1025))
}

func TestSetAllClearAll(t *testing.T) {
	for _, length := range []int{1, 63, 64, 65, 1000} {
		b := bitset.New(length)
		b.SetAll()
		require.Equal(t, length, b.Count(), "length %d", length)
		requirePadZero(t, b)
		b.ClearAll()
		require.Equal(t, 0, b.Count())
	}
}

func TestMap(t *testing.T) {
	b := bitset.New(100)
	b.SetMany([]int{3, 50, 99})
	var got []int
	b.Map(func(i int, bit bool) {
		if bit {
			got = append(got, i)
		}
	})
	require.Equal(t, []int{3, 50, 99}, got)
}

func TestMapObservesMutation(t *testing.T) {
	// Each visited set bit sets its successor; the wave propagates to the
	// end because iteration is ascending.
	b := bitset.New(64)
	b.Set(10)
	b.Map(func(i int, bit bool) {
		if bit && i+1 < b.Len() {
			b.Set(i + 1)
		}
	})
	require.Equal(t, 54, b.Count())
	require.False(t, b.Get(9))
	require.True(t, b.Get(63))
}

func TestExtractLoadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for _, length := range boundaryLengths {
		b := bitset.New(length)
		for i := 0; i < length/7+1; i++ {
			b.Set(rng.Intn(length))
		}
		image := make([]byte, bitset.BufferSize(length))
		require.Equal(t, len(image), b.Extract(image))
		reloaded := bitset.Load(length, image)
		require.True(t, bitset.Eq(b, reloaded), "length %d", length)
	}
}

func TestByteLayout(t *testing.T) {
	// Bit i lands in byte i/8 at position i%8, least-significant first.
	b := bitset.New(20)
	b.SetMany([]int{0, 9, 17})
	image := make([]byte, bitset.BufferSize(20))
	b.Extract(image)
	require.Equal(t, byte(0x01), image[0])
	require.Equal(t, byte(0x02), image[1])
	require.Equal(t, byte(0x02), image[2])
}

func TestLoadAliasesAndFreeReturnsBuffer(t *testing.T) {
	buf := make([]byte, bitset.BufferSize(100))
	b := bitset.Load(100, buf)
	require.Equal(t, 0, b.Count())
	b.Set(8)
	require.Equal(t, byte(0x01), buf[1], "Load must alias, not copy")
	ret := b.Free()
	require.NotNil(t, ret)
	require.Same(t, &buf[0], &ret[0], "Free must hand back the adopted buffer")
}

func TestLoadZeroesPadding(t *testing.T) {
	buf := make([]byte, bitset.BufferSize(65))
	for i := range buf {
		buf[i] = 0xff
	}
	b := bitset.Load(65, buf)
	require.Equal(t, 65, b.Count())
	requirePadZero(t, b)
}

func TestFreeOwned(t *testing.T) {
	b := bitset.New(10)
	require.Nil(t, b.Free())
	require.Panics(t, func() { b.Count() }, "use after Free must be fatal")
}

func TestPreconditions(t *testing.T) {
	b := bitset.New(100)
	require.Panics(t, func() { b.Get(-1) })
	require.Panics(t, func() { b.Get(100) })
	require.Panics(t, func() { b.Set(100) })
	require.Panics(t, func() { b.SetRange(10, 9) })
	require.Panics(t, func() { b.SetRange(0, 100) })
	require.Panics(t, func() { bitset.New(0) })
	require.Panics(t, func() { bitset.Load(64, make([]byte, 7)) })
	t2 := bitset.New(101)
	require.Panics(t, func() { bitset.Eq(b, t2) }, "length mismatch")
}

func TestComparisons(t *testing.T) {
	s := bitset.New(200)
	u := bitset.New(200)
	s.SetMany([]int{5, 80})
	u.SetMany([]int{5, 80, 150})
	require.True(t, bitset.Eq(s, s))
	require.False(t, bitset.Eq(s, u))
	require.True(t, bitset.Leq(s, u))
	require.False(t, bitset.Leq(u, s))
	require.True(t, bitset.Lt(s, u))
	require.False(t, bitset.Lt(u, u), "a set is not a proper subset of itself")

	// An empty set is Leq everything but never Lt: the compatibility
	// definition requires a nonempty intersection.
	empty := bitset.New(200)
	require.True(t, bitset.Leq(empty, u))
	require.False(t, bitset.Lt(empty, u))
}

func TestClone(t *testing.T) {
	s := bitset.New(300)
	s.SetRange(17, 250)
	c := bitset.Clone(s)
	require.True(t, bitset.Eq(s, c))
	c.Clear(17)
	require.True(t, s.Get(17), "Clone must not alias")
}

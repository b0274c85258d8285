// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package batch_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/bitcol/batch"
	"github.com/grailbio/bitcol/bitset"
	"github.com/grailbio/bitcol/container"
	"github.com/grailbio/bitcol/setop"
)

// naiveMatrix computes the expected matrix one pair at a time through the
// pairwise algebra.
func naiveMatrix(op setop.Op, a, b *container.Container) []int32 {
	counts := make([]int32, a.NElem()*b.NElem())
	for i := 0; i < a.NElem(); i++ {
		ai := a.Get(i)
		for j := 0; j < b.NElem(); j++ {
			bj := b.Get(j)
			var cnt int
			switch op {
			case setop.Union:
				cnt = bitset.UnionCount(ai, bj)
			case setop.Intersect:
				cnt = bitset.IntersectCount(ai, bj)
			case setop.Diff:
				cnt = bitset.DiffCount(ai, bj)
			case setop.Minus:
				cnt = bitset.MinusCount(ai, bj)
			}
			counts[i*b.NElem()+j] = int32(cnt)
		}
	}
	return counts
}

func randomContainer(rng *rand.Rand, length, nelem, density int) *container.Container {
	c := container.New(length, nelem)
	b := bitset.New(length)
	for i := 0; i < nelem; i++ {
		b.ClearAll()
		for k := 0; k < density; k++ {
			b.Set(rng.Intn(length))
		}
		c.Put(i, b)
	}
	return c
}

func TestContainerBatchedIntersectionCount(t *testing.T) {
	a := container.New(65536, 2)
	b := container.New(65536, 2)
	s := bitset.New(65536)
	s.SetMany([]int{1, 3})
	a.Put(0, s)
	s.Set(7)
	a.Put(1, s)
	s.ClearAll()
	s.SetMany([]int{3, 5})
	b.Put(0, s)
	s.Set(7)
	b.Put(1, s)

	counts := batch.CountMatrix(setop.Intersect, a, b, batch.Options{})
	require.Equal(t, []int32{1, 1, 1, 2}, counts)
}

func TestHostMatchesPairwise(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	for _, length := range []int{1, 63, 64, 65, 128, 1000, 65536} {
		a := randomContainer(rng, length, 5, length/4+1)
		b := randomContainer(rng, length, 7, length/4+1)
		for _, op := range setop.Ops {
			want := naiveMatrix(op, a, b)
			for _, workers := range []int{1, 3, 16} {
				got := batch.CountMatrix(op, a, b, batch.Options{Workers: workers})
				require.Equal(t, want, got, "%s length %d workers %d", op, length, workers)
			}
		}
	}
}

func TestCountMatrixInto(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	a := randomContainer(rng, 500, 4, 100)
	b := randomContainer(rng, 500, 6, 100)
	// Oversized caller buffer with sentinels past the matrix.
	dst := make([]int32, 4*6+3)
	dst[4*6] = -7
	batch.CountMatrixInto(setop.Union, a, b, dst, batch.Options{Workers: 2})
	require.Equal(t, naiveMatrix(setop.Union, a, b), dst[:4*6])
	require.Equal(t, int32(-7), dst[4*6], "cells past the matrix must not be written")
}

func TestWorkerCountsAgree(t *testing.T) {
	// A probe with bits [0, 517) against references with bits [512, 517):
	// every intersection count is exactly 5, for any worker count.
	nRef := 2000
	if !testing.Short() {
		nRef = 1000000
	}
	probes := container.New(1024, 1)
	p := bitset.New(1024)
	p.SetRange(0, 516)
	probes.Put(0, p)

	refs := container.New(1024, nRef)
	r := bitset.New(1024)
	r.SetRange(512, 516)
	for i := 0; i < nRef; i++ {
		refs.Put(i, r)
	}

	first := batch.CountMatrix(setop.Intersect, probes, refs, batch.Options{Workers: 1})
	many := batch.CountMatrix(setop.Intersect, probes, refs, batch.Options{Workers: 64})
	require.Equal(t, first, many)
	maxCnt := int32(0)
	for _, c := range first {
		require.Equal(t, int32(5), c)
		if c > maxCnt {
			maxCnt = c
		}
	}
	require.Equal(t, int32(5), maxCnt)
}

func TestPreconditions(t *testing.T) {
	a := container.New(100, 2)
	b := container.New(101, 2)
	require.Panics(t, func() { batch.CountMatrix(setop.Intersect, a, b, batch.Options{}) },
		"length mismatch")
	c := container.New(100, 2)
	require.Panics(t, func() {
		batch.CountMatrix(setop.Intersect, a, c, batch.Options{Workers: batch.MaxWorkers + 1})
	}, "worker cap")
	require.Panics(t, func() {
		batch.CountMatrixInto(setop.Intersect, a, c, make([]int32, 3), batch.Options{})
	}, "short result buffer")
	require.Panics(t, func() { batch.CountMatrix(setop.Op(9), a, c, batch.Options{}) },
		"invalid op")
}

func Benchmark_CountMatrixHost(b *testing.B) {
	rng := rand.New(rand.NewSource(30))
	probes := randomContainer(rng, 1024, 64, 256)
	refs := randomContainer(rng, 1024, 1024, 256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch.CountMatrix(setop.Intersect, probes, refs, batch.Options{})
	}
}

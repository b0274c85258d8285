// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package batch evaluates the Cartesian product of set-operation population
// counts between two packed containers: given containers A and B of equal
// element capacity, it fills an A.NElem() x B.NElem() row-major int32
// matrix with cell (i, j) = popcount(op(A[i], B[j])).
//
// Two backends share the contract.  The host backend runs a worker pool
// over the flattened pair space with a guided shrinking-chunk schedule; the
// device backend uploads both containers through the residency protocol in
// package device and launches the offloaded kernel.  Cell values are
// deterministic and identical across backends.
package batch

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/grailbio/bitcol/container"
	"github.com/grailbio/bitcol/must"
	"github.com/grailbio/bitcol/popcnt"
	"github.com/grailbio/bitcol/setop"
	"github.com/grailbio/bitcol/unsafe"
)

// MaxWorkers is the hard cap on host worker count.
const MaxWorkers = 1024

// tileWords is the size of the per-worker accumulation tile: combined words
// are staged here and population-counted in bulk.
const tileWords = 1024

// Options configures the host backend.
type Options struct {
	// Workers is the worker-pool size.  Zero or negative means one worker
	// per CPU.  Values above MaxWorkers are fatal.
	Workers int
}

func checkArgs(op setop.Op, a, b *container.Container) (nA, nB, stride int) {
	if !op.Valid() {
		must.Failf("batch: invalid set operation %d", int(op))
	}
	must.SameLength("batch", a.Len(), b.Len())
	return a.NElem(), b.NElem(), a.StrideWords()
}

// CountMatrix computes the count matrix on the host and returns it as a
// freshly allocated row-major slice.
func CountMatrix(op setop.Op, a, b *container.Container, opts Options) []int32 {
	dst := make([]int32, a.NElem()*b.NElem())
	CountMatrixInto(op, a, b, dst, opts)
	return dst
}

// CountMatrixInto computes the count matrix on the host into dst, which
// must hold at least a.NElem()*b.NElem() cells.
func CountMatrixInto(op setop.Op, a, b *container.Container, dst []int32, opts Options) {
	nA, nB, stride := checkArgs(op, a, b)
	pairs := nA * nB
	must.Buffer("batch: result", len(dst), pairs)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > MaxWorkers {
		must.Failf("batch: worker count %d exceeds cap %d", workers, MaxWorkers)
	}
	if workers > pairs {
		workers = pairs
	}

	aBlock := unsafe.BytesToWords(a.UnsafeBytes())
	bBlock := unsafe.BytesToWords(b.UnsafeBytes())
	f := op.Func()

	// Flattened pair space, guided schedule: each claim takes half the
	// remaining work divided evenly among the workers, so chunks shrink as
	// the space drains and stragglers stay short.
	var cursor int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			var tile [tileWords]uint64
			for {
				cur := atomic.LoadInt64(&cursor)
				if cur >= int64(pairs) {
					return
				}
				chunk := (int64(pairs) - cur) / int64(2*workers)
				if chunk < 1 {
					chunk = 1
				}
				if !atomic.CompareAndSwapInt64(&cursor, cur, cur+chunk) {
					continue
				}
				for k := cur; k < cur+chunk; k++ {
					i := int(k) / nB
					j := int(k) % nB
					aRow := aBlock[i*stride : (i+1)*stride]
					bRow := bBlock[j*stride : (j+1)*stride]
					cnt := 0
					for base := 0; base < stride; base += tileWords {
						n := stride - base
						if n > tileWords {
							n = tileWords
						}
						for t := 0; t < n; t++ {
							tile[t] = f(aRow[base+t], bRow[base+t])
						}
						cnt += popcnt.Words(tile[:n])
					}
					dst[k] = int32(cnt)
				}
			}
		}()
	}
	wg.Wait()
}

// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package device

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/grailbio/bitcol/popcnt"
	"github.com/grailbio/bitcol/setop"
	"github.com/grailbio/bitcol/unsafe"
)

// Emulated is an in-process reference Runtime.  "Device memory" is host
// memory behind opaque buffer handles, and the kernel launch mirrors the
// SIMT decomposition: one team per row of the result matrix, each team's
// workers walking the column axis.  It exists so the residency protocol and
// the device kernel contract are exercised end to end on machines with no
// accelerator, and so backend-equivalence tests have a second backend.
type Emulated struct {
	ndev int

	mu   sync.Mutex
	next int
	mem  map[int][]byte
}

var _ Runtime = (*Emulated)(nil)

// NewEmulated returns an emulated runtime exposing ndev devices.
func NewEmulated(ndev int) *Emulated {
	if ndev < 1 {
		ndev = 1
	}
	return &Emulated{ndev: ndev, mem: make(map[int][]byte)}
}

// NumDevices implements Runtime.
func (e *Emulated) NumDevices() int { return e.ndev }

// Alloc implements Runtime.
func (e *Emulated) Alloc(dev, size int) (Buffer, error) {
	if dev < 0 || dev >= e.ndev {
		return Buffer{}, fmt.Errorf("emulated: no device %d", dev)
	}
	if size <= 0 {
		return Buffer{}, fmt.Errorf("emulated: invalid allocation size %d", size)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	id := e.next
	e.mem[id] = make([]byte, size)
	return Buffer{dev: dev, id: id, size: size}, nil
}

func (e *Emulated) storage(b Buffer) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	mem, ok := e.mem[b.id]
	if !ok {
		return nil, fmt.Errorf("emulated: stale buffer %d on device %d", b.id, b.dev)
	}
	return mem, nil
}

// CopyIn implements Runtime.
func (e *Emulated) CopyIn(dst Buffer, src []byte) error {
	mem, err := e.storage(dst)
	if err != nil {
		return err
	}
	if len(src) > len(mem) {
		return fmt.Errorf("emulated: copy-in of %d bytes into %d-byte buffer", len(src), len(mem))
	}
	copy(mem, src)
	return nil
}

// CopyOut implements Runtime.
func (e *Emulated) CopyOut(dst []byte, src Buffer) error {
	mem, err := e.storage(src)
	if err != nil {
		return err
	}
	copy(dst, mem)
	return nil
}

// Free implements Runtime.
func (e *Emulated) Free(b Buffer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.mem[b.id]; !ok {
		return fmt.Errorf("emulated: double free of buffer %d on device %d", b.id, b.dev)
	}
	delete(e.mem, b.id)
	return nil
}

// LaunchSetOpCount implements Runtime.
func (e *Emulated) LaunchSetOpCount(op setop.Op, a, b, counts Buffer, nA, nB, stride int) error {
	if !op.Valid() {
		return fmt.Errorf("emulated: invalid set operation %d", int(op))
	}
	aMem, err := e.storage(a)
	if err != nil {
		return err
	}
	bMem, err := e.storage(b)
	if err != nil {
		return err
	}
	cMem, err := e.storage(counts)
	if err != nil {
		return err
	}
	aWords := unsafe.BytesToWords(aMem)
	bWords := unsafe.BytesToWords(bMem)
	cells := unsafe.BytesToInt32s(cMem)
	if len(aWords) < nA*stride || len(bWords) < nB*stride || len(cells) < nA*nB {
		return fmt.Errorf("emulated: launch shape %dx%dx%d exceeds buffer sizes", nA, nB, stride)
	}
	f := op.Func()
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < nA; i++ {
		i := i
		g.Go(func() error {
			aRow := aWords[i*stride : (i+1)*stride]
			out := cells[i*nB : (i+1)*nB]
			for j := 0; j < nB; j++ {
				bRow := bWords[j*stride : (j+1)*stride]
				cnt := 0
				for w, aw := range aRow {
					cnt += popcnt.Word(f(aw, bRow[w]))
				}
				out[j] = int32(cnt)
			}
			return nil
		})
	}
	return g.Wait()
}

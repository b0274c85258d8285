// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package device abstracts the accelerator behind the offloaded batched
// kernels.  A Runtime owns device memory and can launch the one kernel this
// library needs; the Manager layers the reference-counted residency
// protocol on top, so callers can pin a reference container on the device
// and stream probes against it without re-uploading.
//
// The package ships an in-process emulated runtime, which is also the
// default.  A real offload runtime (CUDA, OpenMP target, ...) drops in
// behind the same interface; the batched-kernel contract is identical
// either way.
package device

import (
	"sync"

	"github.com/grailbio/bitcol/setop"
)

// A Buffer is an opaque handle to a device-memory allocation.
type Buffer struct {
	dev  int
	id   int
	size int
}

// Device returns the device the buffer lives on.
func (b Buffer) Device() int { return b.dev }

// Size returns the allocation size in bytes.
func (b Buffer) Size() int { return b.size }

// A Runtime provides device memory and kernel launch.  All methods are safe
// for concurrent use.  Methods return an error only for conditions the
// caller cannot rule out statically (exhausted device memory, unreachable
// device); the library treats every such error as fatal.
type Runtime interface {
	// NumDevices returns the number of usable devices.
	NumDevices() int

	// Alloc allocates size bytes on the given device.
	Alloc(dev, size int) (Buffer, error)

	// CopyIn copies len(src) bytes host-to-device.  len(src) must not
	// exceed the buffer size.
	CopyIn(dst Buffer, src []byte) error

	// CopyOut copies min(len(dst), buffer size) bytes device-to-host.
	CopyOut(dst []byte, src Buffer) error

	// Free releases a buffer.
	Free(b Buffer) error

	// LaunchSetOpCount runs the batched set-operation-count kernel: a holds
	// nA slots and b holds nB slots of stride words each, counts holds
	// nA*nB int32 cells, row-major.  Cell (i, j) receives the population
	// count of op applied to slot i of a and slot j of b.  The launch
	// blocks until the kernel completes.
	LaunchSetOpCount(op setop.Op, a, b, counts Buffer, nA, nB, stride int) error
}

var (
	defaultOnce    sync.Once
	defaultRuntime Runtime
)

// Default returns the process-wide runtime: a single-device emulated
// runtime, initialized lazily on first use.
func Default() Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = NewEmulated(1)
	})
	return defaultRuntime
}

// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package batch

import (
	"github.com/grailbio/bitcol/container"
	"github.com/grailbio/bitcol/device"
	"github.com/grailbio/bitcol/must"
	"github.com/grailbio/bitcol/setop"
	"github.com/grailbio/bitcol/unsafe"
)

// DeviceOptions configures the device backend.  The update and release
// flags drive the residency protocol: a caller streaming many probe
// containers against one pinned reference container uploads the reference
// once and releases it only after the last call.
type DeviceOptions struct {
	// Device selects the target device.
	Device int
	// UpdateFirst and UpdateSecond refresh the device copy of the
	// corresponding operand from host memory even when already resident.
	UpdateFirst  bool
	UpdateSecond bool
	// ReleaseFirst, ReleaseSecond and ReleaseCounts decrement the device
	// reference count of the corresponding buffer after the kernel; a
	// buffer reaching zero is deallocated on the device.
	ReleaseFirst  bool
	ReleaseSecond bool
	ReleaseCounts bool
	// Workers is accepted for interface parity with the host backend and
	// ignored here.
	Workers int
}

// CountMatrixDevice computes the count matrix on a device and returns it as
// a freshly allocated row-major slice.
func CountMatrixDevice(op setop.Op, a, b *container.Container, opts DeviceOptions) []int32 {
	dst := make([]int32, a.NElem()*b.NElem())
	CountMatrixDeviceInto(op, a, b, dst, opts)
	return dst
}

// CountMatrixDeviceInto computes the count matrix on a device into dst,
// which must hold at least a.NElem()*b.NElem() cells.  The matrix is copied
// back to dst unconditionally; operand and count buffers stay device-
// resident unless their release flag is set.
func CountMatrixDeviceInto(op setop.Op, a, b *container.Container, dst []int32, opts DeviceOptions) {
	nA, nB, stride := checkArgs(op, a, b)
	pairs := nA * nB
	must.Buffer("batch: result", len(dst), pairs)

	m := device.DefaultManager()
	m.CheckDevice(opts.Device)

	aBytes := a.UnsafeBytes()
	bBytes := b.UnsafeBytes()
	dstBytes := unsafe.Int32sToBytes(dst[:pairs])

	aBuf := m.EnsureIn(opts.Device, aBytes, opts.UpdateFirst)
	bBuf := m.EnsureIn(opts.Device, bBytes, opts.UpdateSecond)
	cBuf := m.EnsureOut(opts.Device, dstBytes)

	err := m.Runtime().LaunchSetOpCount(op, aBuf, bBuf, cBuf, nA, nB, stride)
	must.OK(err, "batch: device kernel launch on device %d", opts.Device)

	m.CopyOut(opts.Device, dstBytes)

	if opts.ReleaseFirst {
		m.Release(opts.Device, aBytes)
	}
	// A self-join holds one device copy for both operands; release it once.
	if opts.ReleaseSecond && !(a == b && opts.ReleaseFirst) {
		m.Release(opts.Device, bBytes)
	}
	if opts.ReleaseCounts {
		m.Release(opts.Device, dstBytes)
	}
}

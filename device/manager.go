// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package device

import (
	"sync"
	"sync/atomic"

	"github.com/grailbio/bitcol/log"
	"github.com/grailbio/bitcol/must"
	"github.com/grailbio/bitcol/unsafe"
)

// A Manager tracks which host buffers have live device copies, with a
// reference count per copy.  The protocol, per call site:
//
//   - operand absent on the device: allocate, copy host-to-device, count 1;
//   - operand present and the caller asked for an update: overwrite the
//     device copy, count unchanged;
//   - operand present otherwise: reuse as-is;
//   - release: decrement; a copy reaching zero is freed on the device.
//
// Host buffers are identified by the address of their first byte, so any
// view of the same storage starting at that byte names the same device copy.
type Manager struct {
	rt Runtime

	mu  sync.Mutex
	res map[resKey]*resident
}

type resKey struct {
	dev  int
	host uintptr
}

type resident struct {
	buf  Buffer
	refs int
}

// NewManager returns a Manager over the given runtime.
func NewManager(rt Runtime) *Manager {
	return &Manager{rt: rt, res: make(map[resKey]*resident)}
}

var defaultMgr atomic.Pointer[Manager]

// DefaultManager returns the process-wide Manager over the Default runtime,
// initialized lazily on first use.
func DefaultManager() *Manager {
	if m := defaultMgr.Load(); m != nil {
		return m
	}
	defaultMgr.CompareAndSwap(nil, NewManager(Default()))
	return defaultMgr.Load()
}

// Runtime returns the runtime the manager drives.
func (m *Manager) Runtime() Runtime { return m.rt }

// CheckDevice aborts unless dev names a usable device.
func (m *Manager) CheckDevice(dev int) {
	if dev < 0 || dev >= m.rt.NumDevices() {
		must.Failf("device: no device %d (have %d)", dev, m.rt.NumDevices())
	}
}

// EnsureIn makes host resident on dev per the operand protocol and returns
// the device buffer.
func (m *Manager) EnsureIn(dev int, host []byte, update bool) Buffer {
	m.CheckDevice(dev)
	key := resKey{dev: dev, host: unsafe.DataPointer(host)}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.res[key]; ok {
		if update {
			must.OK(m.rt.CopyIn(r.buf, host), "device: refresh of %d bytes on device %d", len(host), dev)
			log.Tracef("device %d: refreshed %d bytes (refs %d)", dev, len(host), r.refs)
		}
		return r.buf
	}
	buf, err := m.rt.Alloc(dev, len(host))
	must.OK(err, "device: allocating %d bytes on device %d", len(host), dev)
	must.OK(m.rt.CopyIn(buf, host), "device: upload of %d bytes to device %d", len(host), dev)
	m.res[key] = &resident{buf: buf, refs: 1}
	log.Tracef("device %d: uploaded %d bytes (refs 1)", dev, len(host))
	return buf
}

// EnsureOut makes the result buffer resident on dev: an absent buffer is
// allocated and seeded from host, a present one is reused as-is.
func (m *Manager) EnsureOut(dev int, host []byte) Buffer {
	return m.EnsureIn(dev, host, false)
}

// CopyOut copies the device contents of host's buffer back into host.  The
// buffer must be resident.
func (m *Manager) CopyOut(dev int, host []byte) {
	m.CheckDevice(dev)
	key := resKey{dev: dev, host: unsafe.DataPointer(host)}
	m.mu.Lock()
	r, ok := m.res[key]
	m.mu.Unlock()
	if !ok {
		must.Failf("device: copy-out of a buffer not resident on device %d", dev)
	}
	must.OK(m.rt.CopyOut(host, r.buf), "device: download of %d bytes from device %d", len(host), dev)
}

// Release decrements the reference count of host's device copy, freeing it
// when the count reaches zero.  Releasing a non-resident buffer is a fatal
// residency misalignment.
func (m *Manager) Release(dev int, host []byte) {
	m.CheckDevice(dev)
	key := resKey{dev: dev, host: unsafe.DataPointer(host)}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[key]
	if !ok {
		must.Failf("device: release of a buffer not resident on device %d", dev)
	}
	r.refs--
	if r.refs > 0 {
		log.Tracef("device %d: released %d bytes (refs %d)", dev, len(host), r.refs)
		return
	}
	must.OK(m.rt.Free(r.buf), "device: freeing buffer on device %d", dev)
	delete(m.res, key)
	log.Tracef("device %d: released and freed %d bytes", dev, len(host))
}

// Resident reports whether host has a live copy on dev.
func (m *Manager) Resident(dev int, host []byte) bool {
	m.CheckDevice(dev)
	key := resKey{dev: dev, host: unsafe.DataPointer(host)}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.res[key]
	return ok
}

// Refs returns the reference count of host's copy on dev, or 0 if absent.
func (m *Manager) Refs(dev int, host []byte) int {
	m.CheckDevice(dev)
	key := resKey{dev: dev, host: unsafe.DataPointer(host)}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.res[key]; ok {
		return r.refs
	}
	return 0
}

// ForgetHost force-releases every device copy of host held by the manager,
// regardless of reference count.  Destroying a host handle while it is
// still device-resident is a programmer error; forcing the release keeps it
// from also leaking device memory.
func (m *Manager) ForgetHost(host []byte) {
	if len(host) == 0 {
		return
	}
	ptr := unsafe.DataPointer(host)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, r := range m.res {
		if key.host != ptr {
			continue
		}
		log.Errorf("device: buffer freed on host while resident on device %d (refs %d); force-releasing",
			key.dev, r.refs)
		must.OK(m.rt.Free(r.buf), "device: freeing buffer on device %d", key.dev)
		delete(m.res, key)
	}
}

// ForgetHost applies Manager.ForgetHost to the default manager, if one has
// been created.  Called by host-side destructors.
func ForgetHost(host []byte) {
	if m := defaultMgr.Load(); m != nil {
		m.ForgetHost(host)
	}
}

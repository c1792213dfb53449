/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package rctx implements the per-connection context record: the transport
// endpoint, the shared-memory timeline mapping, the optional wake eventfd,
// and the guest application name. Exactly one worker owns a Context; it is
// never shared across workers.
package rctx

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"hostgfx/render-server/transport"
)

// Context carries the mutable state of a single guest graphics context
// between INIT and worker exit.
type Context struct {
	ID       uint32
	CapsetID uint32
	Conn     *transport.Conn

	// Name is the (possibly expanded) guest application name; see
	// ExpandName. RunContext exports it via ExportNameEnv when the context
	// is its process's only one (subprocess/sandboxed backing) and, when
	// the log level is debug, applies it to the worker's OS thread via
	// SetDebugThreadName.
	Name string

	shmemFd  int
	shmem    []byte
	timeline []uint32 // a view over shmem, one slot per ring

	eventFd int // -1 when not configured
}

// New returns an unbound Context: shmem and eventfd are invalid until Bind
// is called from the INIT handler.
func New(id uint32, capsetID uint32, conn *transport.Conn, name string) *Context {
	return &Context{
		ID:       id,
		CapsetID: capsetID,
		Conn:     conn,
		Name:     ExpandName(name),
		shmemFd:  -1,
		eventFd:  -1,
	}
}

// Bind maps shmemFd (size bytes, must be a valid fd) and records eventFd
// (-1 if the guest did not provide a wake fd). Every timeline slot is
// stored as zero once the region is mapped, whatever the fd held before.
func (c *Context) Bind(shmemFd int, size int, eventFd int) error {
	if size < 0 {
		return ErrorBindFailed.Error()
	}

	var mapped []byte
	if size > 0 {
		b, err := unix.Mmap(shmemFd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return err
		}
		mapped = b
	}

	c.shmemFd = shmemFd
	c.shmem = mapped
	c.eventFd = eventFd
	c.timeline = timelineView(mapped)
	for i := range c.timeline {
		atomic.StoreUint32(&c.timeline[i], 0)
	}
	return nil
}

// TimelineCount is floor(shmem size / 4); zero means no ring can ever fence.
func (c *Context) TimelineCount() int {
	return len(c.timeline)
}

// StoreFence publishes seq to ring ringIdx with release semantics and wakes
// the guest if a wake eventfd was configured. It must never be called
// while holding any lock also taken by dispatch or the renderer facade;
// see the fence callback contract in package render.
func (c *Context) StoreFence(ringIdx uint8, seq uint32) error {
	if int(ringIdx) >= len(c.timeline) {
		return ErrorRingOutOfRange.Error()
	}

	atomic.StoreUint32(&c.timeline[ringIdx], seq)

	if c.eventFd < 0 {
		return nil
	}
	return wakeEventFd(c.eventFd)
}

// LoadFence reads the current sequence number for ringIdx with acquire
// semantics; exposed for tests, the guest reads the same slot via its own
// mapping of the same shmem fd.
func (c *Context) LoadFence(ringIdx uint8) (uint32, bool) {
	if int(ringIdx) >= len(c.timeline) {
		return 0, false
	}
	return atomic.LoadUint32(&c.timeline[ringIdx]), true
}

// FenceReached reports whether the published sequence seq has reached
// target under wrap-aware 32-bit comparison: a slot that moved from
// 0xFFFFFFFE to 0x00000001 is forward progress, not a regression. Readers
// of the shared timeline must use this instead of a plain >=.
func FenceReached(seq, target uint32) bool {
	return int32(seq-target) >= 0
}

// Close finishes the context teardown: callers must destroy the
// renderer-side context first, since this package has no renderer handle
// and the renderer's threads may touch the mapping until then. Close then
// unmaps shmem, closes the eventfd, and closes the socket, in that order.
func (c *Context) Close() error {
	var firstErr error

	if c.shmem != nil {
		if err := unix.Munmap(c.shmem); err != nil && firstErr == nil {
			firstErr = err
		}
		c.shmem = nil
		c.timeline = nil
	}
	if c.shmemFd >= 0 {
		if err := unix.Close(c.shmemFd); err != nil && firstErr == nil {
			firstErr = err
		}
		c.shmemFd = -1
	}
	if c.eventFd >= 0 {
		if err := unix.Close(c.eventFd); err != nil && firstErr == nil {
			firstErr = err
		}
		c.eventFd = -1
	}
	if c.Conn != nil {
		if err := c.Conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func wakeEventFd(fd int) error {
	var buf [8]byte
	buf[0] = 1
	for {
		_, err := unix.Write(fd, buf[:])
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// timelineView reinterprets mapped shmem bytes as a []uint32 slice without
// copying; len(mapped) need not be a multiple of 4, the remainder is
// simply inaccessible — the timeline count is floor(size/4).
func timelineView(mapped []byte) []uint32 {
	n := len(mapped) / 4
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&mapped[0])), n)
}

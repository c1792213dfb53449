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

// Package renderer defines the boundary this server consumes from the
// external graphics/compute renderer library: a process-wide init/cleanup
// pair, per-context lifecycle, command submission, fence creation, and blob
// resource management. The real renderer is a cgo-wrapped external library
// and is explicitly out of scope; this package only fixes the Go-shaped
// contract and ships a deterministic Fake used by tests and by the
// "--fake-renderer" developer mode wired in cmd/render-server.
package renderer

import "context"

// InitFlags are process-wide bit flags composed at Init time. Mandatory
// flags (FlagThreadSync, FlagAsyncFenceCB, FlagExternalBlob) are OR'd in by
// the render-state singleton regardless of what the caller requests.
type InitFlags uint32

const (
	FlagVenus InitFlags = 1 << iota
	FlagNoVirgl
	FlagThreadSync
	FlagAsyncFenceCB
	FlagExternalBlob
)

// Mandatory is the set of flags the singleton always composes in.
const Mandatory = FlagThreadSync | FlagAsyncFenceCB | FlagExternalBlob

// FDType tags an exported or imported resource file descriptor.
type FDType uint8

const (
	FDInvalid FDType = iota
	FDDMABuf
	FDOpaqueGPUHandle
	FDSharedMemory
)

// MapCache hints how the guest should map an exported resource.
type MapCache uint8

const (
	MapCacheNone MapCache = iota
	MapCacheCached
	MapCacheWriteCombined
	MapCacheUncached
)

// ResourceID is unique within a single context.
type ResourceID uint32

// FenceCallback is invoked by the renderer, on one of its own threads, when
// a previously submitted fence completes. ctxID/ringIdx/fenceID identify
// the timeline slot to advance; see render.Singleton.onFence for the
// consumer, which never takes the renderer lock.
type FenceCallback func(ctxID uint32, ringIdx uint8, fenceID uint64)

// DebugLog is the trampoline the renderer calls for its own diagnostic
// output; registered once at Init.
type DebugLog func(msg string)

// ExportedResource is what CreateResource returns on success.
type ExportedResource struct {
	ID       ResourceID
	Fd       int
	FdType   FDType
	Size     uint64
	MapCache MapCache
}

// ImportSpec is what ImportResource consumes.
type ImportSpec struct {
	Fd     int
	FdType FDType
	Size   uint64
}

// Renderer is the external collaborator's Go-shaped contract. All methods
// may be called concurrently by multiple contexts; the render-state
// singleton is responsible for serializing calls under its renderer lock
// when the caller is thread-backed.
type Renderer interface {
	// Init performs process-wide setup. Called at most meaningfully once
	// per process lifetime; subsequent calls with equal flags are no-ops
	// from the renderer's point of view (the singleton still tracks
	// reference counts itself).
	Init(flags InitFlags, log DebugLog, onFence FenceCallback) error

	// Cleanup tears down process-wide state. Must only be called once,
	// after every context has been destroyed.
	Cleanup()

	CreateContext(ctx context.Context, ctxID uint32, capsetID uint32, name string) error
	DestroyContext(ctx context.Context, ctxID uint32) error

	SubmitCmd(ctx context.Context, ctxID uint32, cmd []byte) error
	SubmitFence(ctx context.Context, ctxID uint32, ringIdx uint8, fenceID uint64, mergeable bool) error

	CreateResource(ctx context.Context, ctxID uint32, resID ResourceID, size uint64) (ExportedResource, error)
	ImportResource(ctx context.Context, ctxID uint32, resID ResourceID, spec ImportSpec) error
	DestroyResource(ctx context.Context, ctxID uint32, resID ResourceID) error

	// AttachResource binds a resource already created or imported on one
	// context into ctxID's resource table, the last step of both recipes
	// before either replies to the guest.
	AttachResource(ctx context.Context, ctxID uint32, resID ResourceID) error
}

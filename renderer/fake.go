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

package renderer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"syscall"
)

// Fake is a deterministic, in-process Renderer used by tests and by
// cmd/render-server's "--fake-renderer" developer mode, where no real GPU
// device is available. It never touches a device: CreateResource exports
// one end of an os.Pipe as the "blob" fd, and SubmitFence invokes the
// registered callback synchronously on the calling goroutine, making fence
// completion immediate and reproducible instead of actually asynchronous.
type Fake struct {
	mu sync.Mutex

	initialized bool
	flags       InitFlags
	onFence     FenceCallback
	log         DebugLog

	contexts  map[uint32]*fakeContext
	nextFd    int
	resources map[fakeResKey]*os.File
}

type fakeContext struct {
	capsetID uint32
	name     string
}

type fakeResKey struct {
	ctxID uint32
	resID ResourceID
}

// NewFake returns an unstarted Fake; call Init before use, mirroring the
// real renderer's process-wide Init/Cleanup lifecycle.
func NewFake() *Fake {
	return &Fake{
		contexts:  make(map[uint32]*fakeContext),
		resources: make(map[fakeResKey]*os.File),
	}
}

func (f *Fake) Init(flags InitFlags, log DebugLog, onFence FenceCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.initialized = true
	f.flags = flags
	f.log = log
	f.onFence = onFence
	if f.log != nil {
		f.log("fake renderer initialized")
	}
	return nil
}

func (f *Fake) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.resources {
		_ = r.Close()
	}
	f.resources = make(map[fakeResKey]*os.File)
	f.contexts = make(map[uint32]*fakeContext)
	f.initialized = false
}

func (f *Fake) CreateContext(_ context.Context, ctxID uint32, capsetID uint32, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.contexts[ctxID]; ok {
		return fmt.Errorf("fake renderer: context %d already exists", ctxID)
	}
	f.contexts[ctxID] = &fakeContext{capsetID: capsetID, name: name}
	return nil
}

func (f *Fake) DestroyContext(_ context.Context, ctxID uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.contexts[ctxID]; !ok {
		return fmt.Errorf("fake renderer: unknown context %d", ctxID)
	}
	for k, r := range f.resources {
		if k.ctxID == ctxID {
			_ = r.Close()
			delete(f.resources, k)
		}
	}
	delete(f.contexts, ctxID)
	return nil
}

func (f *Fake) SubmitCmd(_ context.Context, ctxID uint32, cmd []byte) error {
	f.mu.Lock()
	_, ok := f.contexts[ctxID]
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("fake renderer: unknown context %d", ctxID)
	}
	if len(cmd) == 0 {
		return fmt.Errorf("fake renderer: empty command")
	}
	return nil
}

// SubmitFence immediately invokes the registered callback, simulating a
// renderer whose execution is instantaneous. Real renderers complete
// fences asynchronously on their own threads; tests exercising the
// asynchronous contract should invoke the callback themselves instead of
// relying on this shortcut.
func (f *Fake) SubmitFence(_ context.Context, ctxID uint32, ringIdx uint8, fenceID uint64, _ bool) error {
	f.mu.Lock()
	_, ok := f.contexts[ctxID]
	cb := f.onFence
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("fake renderer: unknown context %d", ctxID)
	}
	if cb != nil {
		cb(ctxID, ringIdx, fenceID)
	}
	return nil
}

func (f *Fake) CreateResource(_ context.Context, ctxID uint32, resID ResourceID, size uint64) (ExportedResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.contexts[ctxID]; !ok {
		return ExportedResource{}, fmt.Errorf("fake renderer: unknown context %d", ctxID)
	}
	key := fakeResKey{ctxID: ctxID, resID: resID}
	if _, ok := f.resources[key]; ok {
		return ExportedResource{}, fmt.Errorf("fake renderer: resource %d already exists in context %d", resID, ctxID)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return ExportedResource{}, err
	}
	_ = w.Close()

	// The exported fd is a fresh dup, exactly like a real renderer's blob
	// export: the caller owns it and closes it after the reply is sent,
	// independent of the renderer's own reference.
	exported, err := syscall.Dup(int(r.Fd()))
	if err != nil {
		_ = r.Close()
		return ExportedResource{}, err
	}
	f.resources[key] = r

	return ExportedResource{
		ID:       resID,
		Fd:       exported,
		FdType:   FDSharedMemory,
		Size:     size,
		MapCache: MapCacheNone,
	}, nil
}

func (f *Fake) ImportResource(_ context.Context, ctxID uint32, resID ResourceID, spec ImportSpec) error {
	if spec.FdType == FDInvalid || spec.Size == 0 {
		return fmt.Errorf("fake renderer: invalid import spec")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.contexts[ctxID]; !ok {
		return fmt.Errorf("fake renderer: unknown context %d", ctxID)
	}
	key := fakeResKey{ctxID: ctxID, resID: resID}
	if _, ok := f.resources[key]; ok {
		return fmt.Errorf("fake renderer: resource %d already exists in context %d", resID, ctxID)
	}
	f.resources[key] = os.NewFile(uintptr(spec.Fd), "imported")
	return nil
}

// AttachResource confirms resID is already bound to ctxID. The fake
// renderer ties a resource to its owning context at creation/import time,
// so there is nothing further to bind; a real renderer's attach step would
// register the resource in the context's own resource table here.
func (f *Fake) AttachResource(_ context.Context, ctxID uint32, resID ResourceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.resources[fakeResKey{ctxID: ctxID, resID: resID}]; !ok {
		return fmt.Errorf("fake renderer: unknown resource %d in context %d", resID, ctxID)
	}
	return nil
}

func (f *Fake) DestroyResource(_ context.Context, ctxID uint32, resID ResourceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fakeResKey{ctxID: ctxID, resID: resID}
	r, ok := f.resources[key]
	if !ok {
		return fmt.Errorf("fake renderer: unknown resource %d in context %d", resID, ctxID)
	}
	_ = r.Close()
	delete(f.resources, key)
	return nil
}

var _ Renderer = (*Fake)(nil)

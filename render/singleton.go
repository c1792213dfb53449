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

// Package render implements the process-wide render-state singleton: a
// reference-counted wrapper around one renderer.Renderer, the set of
// active contexts, and the two locks (state, renderer) that serialize
// access to them when workers are threads.
package render

import (
	"context"
	"sync"

	libctx "hostgfx/render-server/context"
	"hostgfx/render-server/logger"
	"hostgfx/render-server/rctx"
	"hostgfx/render-server/renderer"
)

// Singleton is the process-wide render-state façade. The zero value is
// not usable; construct with New.
type Singleton struct {
	mu sync.Mutex // guards count/flags/initialized below only

	count   int
	flags   renderer.InitFlags
	initted bool

	state    LockingPolicy
	rendLock LockingPolicy

	r   renderer.Renderer
	log logger.FuncLog

	contexts libctx.Config[uint32]
}

// New returns a Singleton wired to r, with real locks if threaded is true
// (thread backing) or no-op locks otherwise (subprocess/sandboxed
// backings, where only one worker ever touches the singleton).
func New(r renderer.Renderer, threaded bool, log logger.FuncLog) *Singleton {
	state, rend := LocksFor(threaded)
	if log == nil {
		log = func() logger.Logger { return logger.NilLogger() }
	}
	return &Singleton{
		state:    state,
		rendLock: rend,
		r:        r,
		log:      log,
		contexts: libctx.NewConfig[uint32](),
	}
}

// Init performs the first-caller-wins process-wide initialization:
// mandatory flags are composed in regardless of what the caller asked for,
// and any subsequent call must request the exact same flags or it fails
// without side effects.
func (s *Singleton) Init(requested renderer.InitFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	composed := requested | renderer.Mandatory

	if s.initted {
		if composed != s.flags {
			return ErrorFlagMismatch.Error()
		}
		s.count++
		return nil
	}

	s.rendLock.Lock()
	defer s.rendLock.Unlock()

	if err := s.r.Init(composed, s.debugLog, s.onFence); err != nil {
		return ErrorRendererInitFailed.Error(err)
	}

	s.flags = composed
	s.initted = true
	s.count = 1
	return nil
}

// Fini decrements the reference count; on reaching zero it calls the
// renderer's Cleanup exactly once, under the renderer lock.
func (s *Singleton) Fini() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initted {
		return
	}

	s.count--
	if s.count > 0 {
		return
	}

	s.rendLock.Lock()
	defer s.rendLock.Unlock()

	s.r.Cleanup()
	s.initted = false
	s.flags = 0
}

func (s *Singleton) debugLog(msg string) {
	s.log().Debug(msg)
}

// AddContext registers c under the state lock. Callers must have already
// created the renderer-side context (CreateContext) before calling this.
func (s *Singleton) AddContext(c *rctx.Context) {
	s.state.Lock()
	defer s.state.Unlock()

	s.contexts.Store(c.ID, c)
}

// RemoveContext unregisters the context under the state lock. It does not
// tear the context down; callers call rctx.Context.Close themselves.
func (s *Singleton) RemoveContext(id uint32) {
	s.state.Lock()
	defer s.state.Unlock()

	s.contexts.Delete(id)
}

// LookupContext returns the registered Context for id, or nil if none.
func (s *Singleton) LookupContext(id uint32) *rctx.Context {
	s.state.Lock()
	defer s.state.Unlock()

	v, ok := s.contexts.Load(id)
	if !ok {
		return nil
	}
	c, _ := v.(*rctx.Context)
	return c
}

// CreateContext registers ctxID with the external renderer.
func (s *Singleton) CreateContext(ctx context.Context, ctxID uint32, capsetID uint32, name string) error {
	s.rendLock.Lock()
	defer s.rendLock.Unlock()

	if err := s.r.CreateContext(ctx, ctxID, capsetID, name); err != nil {
		s.log().Error("renderer CreateContext(%d) failed: %v", ctxID, err)
		return ErrorRendererInitCallFailed.Error(err)
	}
	return nil
}

// DestroyContext tears the context down renderer-side; callers must call
// this before unmapping shmem or closing fds, since the renderer's sync
// and ring threads may still touch both until this returns.
func (s *Singleton) DestroyContext(ctx context.Context, ctxID uint32) error {
	s.rendLock.Lock()
	defer s.rendLock.Unlock()

	if err := s.r.DestroyContext(ctx, ctxID); err != nil {
		s.log().Error("renderer DestroyContext(%d) failed: %v", ctxID, err)
		return ErrorRendererCallFailed.Error(err)
	}
	return nil
}

// SubmitCmd forwards a fully-assembled command buffer to the renderer.
func (s *Singleton) SubmitCmd(ctx context.Context, ctxID uint32, cmd []byte) error {
	s.rendLock.Lock()
	defer s.rendLock.Unlock()

	if err := s.r.SubmitCmd(ctx, ctxID, cmd); err != nil {
		s.log().Error("renderer SubmitCmd(%d) failed: %v", ctxID, err)
		return ErrorRendererCallFailed.Error(err)
	}
	return nil
}

// SubmitFence registers a fence on ringIdx; completion is reported later,
// asynchronously, via onFence.
func (s *Singleton) SubmitFence(ctx context.Context, ctxID uint32, ringIdx uint8, fenceID uint64, mergeable bool) error {
	s.rendLock.Lock()
	defer s.rendLock.Unlock()

	if err := s.r.SubmitFence(ctx, ctxID, ringIdx, fenceID, mergeable); err != nil {
		s.log().Error("renderer SubmitFence(%d, ring=%d) failed: %v", ctxID, ringIdx, err)
		return ErrorRendererCallFailed.Error(err)
	}
	return nil
}

// CreateResource creates and exports the blob through the renderer's single
// CreateResource call, then attaches the resource to the context before
// returning it to the caller for the reply. The fd, fd type and MapCache
// are passed through exactly as the renderer reports them: the singleton
// runs no map-cache query of its own, does not substitute MapCacheNone,
// and does not export or unref the blob in separate steps.
func (s *Singleton) CreateResource(ctx context.Context, ctxID uint32, resID renderer.ResourceID, size uint64) (renderer.ExportedResource, error) {
	s.rendLock.Lock()
	defer s.rendLock.Unlock()

	res, err := s.r.CreateResource(ctx, ctxID, resID, size)
	if err != nil {
		s.log().Error("renderer CreateResource(%d, %d) failed: %v", ctxID, resID, err)
		return renderer.ExportedResource{}, renderer.ErrorCreateResourceFailed.Error(err)
	}

	if err := s.r.AttachResource(ctx, ctxID, resID); err != nil {
		s.log().Error("renderer AttachResource(%d, %d) failed: %v", ctxID, resID, err)
		return renderer.ExportedResource{}, renderer.ErrorCreateResourceFailed.Error(err)
	}
	return res, nil
}

// ImportResource rejects an INVALID fd-type or zero size before handing
// the fd to the renderer, then attaches the imported resource to the
// context.
func (s *Singleton) ImportResource(ctx context.Context, ctxID uint32, resID renderer.ResourceID, spec renderer.ImportSpec) error {
	if spec.FdType == renderer.FDInvalid || spec.Size == 0 {
		return renderer.ErrorImportRejected.Error()
	}

	s.rendLock.Lock()
	defer s.rendLock.Unlock()

	if err := s.r.ImportResource(ctx, ctxID, resID, spec); err != nil {
		s.log().Error("renderer ImportResource(%d, %d) failed: %v", ctxID, resID, err)
		return ErrorRendererCallFailed.Error(err)
	}

	if err := s.r.AttachResource(ctx, ctxID, resID); err != nil {
		s.log().Error("renderer AttachResource(%d, %d) failed: %v", ctxID, resID, err)
		return ErrorRendererCallFailed.Error(err)
	}
	return nil
}

// DestroyResource unrefs the resource in the context.
func (s *Singleton) DestroyResource(ctx context.Context, ctxID uint32, resID renderer.ResourceID) error {
	s.rendLock.Lock()
	defer s.rendLock.Unlock()

	if err := s.r.DestroyResource(ctx, ctxID, resID); err != nil {
		s.log().Error("renderer DestroyResource(%d, %d) failed: %v", ctxID, resID, err)
		return ErrorRendererCallFailed.Error(err)
	}
	return nil
}

// onFence is registered with the renderer at Init time. It runs on
// renderer-owned foreign threads, takes s.state only through LookupContext,
// never takes s.rendLock, and otherwise performs only the atomic timeline
// store plus the eventfd wake — it must never call back into the renderer.
func (s *Singleton) onFence(ctxID uint32, ringIdx uint8, fenceID uint64) {
	c := s.LookupContext(ctxID)
	if c == nil {
		s.log().Warning("fence callback for unknown context %d", ctxID)
		return
	}

	seq := uint32(fenceID)
	if err := c.StoreFence(ringIdx, seq); err != nil {
		s.log().Warning("fence callback for context %d: %v", ctxID, err)
	}
}

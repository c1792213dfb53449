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

// Package supervisor owns the listening
// context socket, reads the per-connection handshake, spawns one worker
// per accepted context, and reaps exited workers through the state
// machine Spawned -> Running -> Exited(reaped) -> Freed. It never calls
// worker.Worker.Destroy before a successful Reap.
package supervisor

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"hostgfx/render-server/jail"
	"hostgfx/render-server/logger"
	"hostgfx/render-server/render"
	"hostgfx/render-server/renderer"
	"hostgfx/render-server/transport"
	"hostgfx/render-server/worker"
)

// Config wires one Supervisor's policy: how to back a worker, how to jail
// it, and the render-state singleton thread-backed workers share. Subprocess
// and sandboxed-subprocess workers never touch Singleton directly — their
// entry point runs in a freshly re-exec'd child, built by cmd/render-server,
// with its own unthreaded Singleton (see RunContext's doc comment).
type Config struct {
	Backing worker.Backing
	Jail    jail.Jail

	RendererFlags renderer.InitFlags
	InlineCmdCap  int

	// Singleton is required when Backing == worker.BackingThread and
	// unused otherwise.
	Singleton *render.Singleton

	// CapsetAllow restricts accepted handshakes; nil/empty accepts any.
	CapsetAllow []uint32

	// Debug gates the per-context OS thread naming; see RunContext.
	Debug bool

	Log logger.FuncLog
}

type workerState uint8

const (
	stateSpawned workerState = iota
	stateRunning
	stateExited
	stateFreed
)

type record struct {
	w  *worker.Worker
	st workerState
}

// Supervisor accepts proxy connections on ln and spawns one worker per
// accepted context.
type Supervisor struct {
	cfg Config
	ln  *net.UnixListener
	log logger.FuncLog

	mu      sync.Mutex
	workers map[uint32]*record

	threadDone chan uint32
}

// New wraps an already-listening Unix socket. The caller is responsible
// for creating/chmod'ing the socket file (see cmd/render-server).
func New(ln *net.UnixListener, cfg Config) *Supervisor {
	log := cfg.Log
	if log == nil {
		log = func() logger.Logger { return logger.NilLogger() }
	}
	return &Supervisor{
		cfg:        cfg,
		ln:         ln,
		log:        log,
		workers:    make(map[uint32]*record),
		threadDone: make(chan uint32, 16),
	}
}

// Serve runs the accept loop and the reap loop concurrently until ctx is
// canceled or either loop fails; canceling ctx closes the listener.
func (sv *Supervisor) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sv.acceptLoop(gctx) })
	g.Go(func() error { return sv.reapLoop(gctx) })

	<-gctx.Done()
	_ = sv.ln.Close()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (sv *Supervisor) acceptLoop(ctx context.Context) error {
	for {
		uc, err := sv.ln.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go sv.handleConn(ctx, uc)
	}
}

func (sv *Supervisor) handleConn(ctx context.Context, uc *net.UnixConn) {
	conn := transport.New(uc)

	hs, err := readHandshake(conn)
	if err != nil {
		sv.log().Warning("handshake failed: %v", err)
		_ = conn.Close()
		return
	}

	if !sv.capsetAllowed(hs.CapsetID) {
		sv.log().Warning("ctx %d: capset %d not allowed", hs.CtxID, hs.CapsetID)
		_ = conn.Close()
		return
	}

	data := worker.ThreadData{CtxID: hs.CtxID, CapsetID: hs.CapsetID, Name: hs.Name}

	w, err := worker.Create(sv.cfg.Backing, sv.cfg.Jail, sv.entryFn(hs.InitFlags), data, conn)
	if err != nil {
		sv.log().Error("spawn worker for ctx %d failed: %v", hs.CtxID, err)
		_ = conn.Close()
		return
	}

	// A re-exec'd child holds its own duplicate of the context socket;
	// keeping the supervisor's copy open would leak one fd per context and
	// stop the proxy from ever seeing the worker's end close.
	if sv.cfg.Backing != worker.BackingThread {
		_ = conn.Close()
	}

	sv.track(ctx, hs.CtxID, w)
}

// entryFn is only actually invoked for BackingThread; worker.Create never
// calls it for the two subprocess backings (see worker.go's package doc).
// singleProcess is always false here: a thread-backed supervisor runs
// every context in its own process, so RunContext must not export the
// context name to the shared environment.
func (sv *Supervisor) entryFn(flags renderer.InitFlags) worker.EntryFn {
	return func(ctx context.Context, data worker.ThreadData, conn *transport.Conn) error {
		return RunContext(ctx, sv.cfg.Singleton, flags, sv.cfg.InlineCmdCap, data, conn, sv.log, false, sv.cfg.Debug)
	}
}

func (sv *Supervisor) capsetAllowed(capsetID uint32) bool {
	if len(sv.cfg.CapsetAllow) == 0 {
		return true
	}
	for _, id := range sv.cfg.CapsetAllow {
		if id == capsetID {
			return true
		}
	}
	return false
}

func (sv *Supervisor) track(ctx context.Context, id uint32, w *worker.Worker) {
	sv.mu.Lock()
	sv.workers[id] = &record{w: w, st: stateRunning}
	sv.mu.Unlock()

	if w.Backing == worker.BackingThread {
		// Thread workers are reaped as soon as their goroutine exits:
		// there is no SIGCHLD for an in-process goroutine, so blocking on
		// Reap(true) here is the thread-backing equivalent of waiting on
		// a SIGCHLD wakeup.
		go func() {
			_, _ = w.Reap(true)
			select {
			case sv.threadDone <- id:
			case <-ctx.Done():
			}
		}()
	}
}

func (sv *Supervisor) reapLoop(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGCHLD)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigCh:
			sv.reapSubprocesses()
		case id := <-sv.threadDone:
			sv.free(id)
		}
	}
}

func (sv *Supervisor) reapSubprocesses() {
	sv.mu.Lock()
	ids := make([]uint32, 0, len(sv.workers))
	for id, r := range sv.workers {
		if r.st == stateRunning && r.w.Backing != worker.BackingThread {
			ids = append(ids, id)
		}
	}
	sv.mu.Unlock()

	for _, id := range ids {
		sv.mu.Lock()
		r, ok := sv.workers[id]
		sv.mu.Unlock()
		if !ok {
			continue
		}

		collected, err := r.w.Reap(false)
		if err != nil {
			sv.log().Warning("reap ctx=%d: %v", id, err)
			continue
		}
		if collected {
			sv.free(id)
		}
	}
}

// free moves a collected worker Exited -> Freed. It must never run before
// Reap has reported success for that worker.
func (sv *Supervisor) free(id uint32) {
	sv.mu.Lock()
	r, ok := sv.workers[id]
	if ok {
		delete(sv.workers, id)
	}
	sv.mu.Unlock()
	if !ok {
		return
	}

	r.st = stateExited
	if err := r.w.Destroy(); err != nil {
		sv.log().Warning("destroy worker ctx=%d: %v", id, err)
		return
	}
	r.st = stateFreed
	sv.log().Info("worker ctx=%d reaped", id)
}

// ActiveCount reports how many workers are currently tracked (Spawned or
// Running); exposed for tests and diagnostics.
func (sv *Supervisor) ActiveCount() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.workers)
}

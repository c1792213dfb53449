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

// Package worker spawns and reaps the three kinds of backing a context's
// dispatch loop can run under: a bare subprocess, a seccomp-sandboxed
// subprocess, or an in-process goroutine.
//
// Go cannot fork and keep running the same Go image in the child the way a
// bare syscall.Fork does in C — the runtime's goroutine scheduler, GC, and
// signal handlers do not survive a fork missing its matching exec. Subprocess
// backings therefore re-exec the current binary (via Create, os.Executable,
// and exec.Cmd.ExtraFiles) instead of forking, and the child reaches the same
// dispatch entry point through RunChild. One consequence: the
// supervisor-side check, meaningful in a fork model where both sides share
// a record, is unconditionally true here — a re-exec'd child never holds a
// *Worker value at all.
package worker

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"hostgfx/render-server/jail"
	"hostgfx/render-server/transport"
)

// Backing selects how a worker's dispatch loop actually runs.
type Backing uint8

const (
	// BackingSubprocess re-execs into an unsandboxed child process.
	BackingSubprocess Backing = iota
	// BackingSandboxed re-execs into a child process that applies a Jail
	// before touching the renderer or the context socket.
	BackingSandboxed
	// BackingThread runs the dispatch loop on a goroutine in the
	// supervisor's own address space. Jail is a no-op: all threads share
	// one address space and one syscall table.
	BackingThread
)

func (b Backing) String() string {
	switch b {
	case BackingSubprocess:
		return "subprocess"
	case BackingSandboxed:
		return "sandboxed-subprocess"
	case BackingThread:
		return "thread"
	default:
		return "unknown"
	}
}

// ThreadData is the private per-worker record an entry function receives.
// Create copies it before the worker is spawned, so the supervisor is free
// to reuse its own buffer; it is always passed by value.
type ThreadData struct {
	CtxID    uint32
	CapsetID uint32
	Name     string
}

// EntryFn is the function a worker runs once spawned. It owns conn for the
// lifetime of the dispatch loop and returns when the loop exits.
type EntryFn func(ctx context.Context, data ThreadData, conn *transport.Conn) error

const (
	reExecMarker  = "RENDER_SERVER_WORKER_REEXEC"
	reExecPayload = "RENDER_SERVER_WORKER_DATA"
	reExecConnFD  = 3 // fds 0-2 inherited as-is; ExtraFiles starts the child's fd table at 3
)

// reExecData is what Create serializes into the child's environment; the fd
// itself travels out-of-band via ExtraFiles, not through this struct.
type reExecData struct {
	Data ThreadData
	Jail jailWire
}

type jailWire struct {
	Source  jail.Source
	RawBPF  []byte
	Policy  string
	LogOnly bool
}

func toWire(j jail.Jail) jailWire {
	return jailWire{Source: j.Source, RawBPF: j.RawBPF, Policy: j.Policy, LogOnly: j.LogOnly}
}

func (w jailWire) toJail() jail.Jail {
	return jail.Jail{Source: w.Source, RawBPF: w.RawBPF, Policy: w.Policy, LogOnly: w.LogOnly}
}

// Worker is a handle the supervisor holds for a spawned dispatch loop.
// Only the supervisor side ever constructs or operates on one.
type Worker struct {
	Backing Backing

	mu     sync.Mutex
	reaped bool

	cmd *exec.Cmd
	pid int

	done   chan struct{}
	thrErr error
}

// Create spawns a worker. For BackingThread it starts a goroutine running
// entry directly. For the two subprocess backings entry is not invoked here
// at all — a Go closure cannot cross an exec boundary — instead Create
// re-execs the current binary, handing the context socket to the child as
// fd 3 via ExtraFiles and the copied ThreadData plus jail descriptor through
// the environment; the child's own main must detect IsReExecChild and call
// RunChild with whatever entry function it would otherwise have used
// locally. entry is still accepted for every backing so callers can write
// one call site regardless of the configured Backing.
func Create(backing Backing, jl jail.Jail, entry EntryFn, data ThreadData, conn *transport.Conn) (*Worker, error) {
	local := data // value copy, taken before the worker can observe it

	switch backing {
	case BackingThread:
		w := &Worker{Backing: backing, done: make(chan struct{})}
		go func() {
			defer close(w.done)
			w.thrErr = entry(context.Background(), local, conn)
		}()
		return w, nil

	case BackingSubprocess, BackingSandboxed:
		return createSubprocess(backing, jl, local, conn)

	default:
		return nil, ErrorUnknownBacking.Error()
	}
}

func createSubprocess(backing Backing, jl jail.Jail, data ThreadData, conn *transport.Conn) (*Worker, error) {
	f, err := conn.UnixConn().File()
	if err != nil {
		return nil, ErrorSpawnFailed.Error(err)
	}
	defer f.Close()

	effectiveJail := jail.Jail{}
	if backing == BackingSandboxed {
		effectiveJail = jl
	}

	payload, err := json.Marshal(reExecData{Data: data, Jail: toWire(effectiveJail)})
	if err != nil {
		return nil, ErrorSpawnFailed.Error(err)
	}

	self, err := os.Executable()
	if err != nil {
		return nil, ErrorSpawnFailed.Error(err)
	}

	cmd := exec.Command(self, os.Args[1:]...)
	cmd.ExtraFiles = []*os.File{f}
	cmd.Env = append(os.Environ(), reExecMarker+"=1", reExecPayload+"="+string(payload))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, ErrorSpawnFailed.Error(err)
	}

	return &Worker{Backing: backing, cmd: cmd, pid: cmd.Process.Pid}, nil
}

// IsReExecChild reports whether the current process was started by Create's
// subprocess path. main should call this before anything else and, if true,
// hand off to RunChild instead of starting the supervisor.
func IsReExecChild() bool {
	return os.Getenv(reExecMarker) != ""
}

// RunChild decodes the ThreadData and Jail that Create placed in the
// environment, applies the jail, reconstructs the inherited context socket
// from fd 3, and runs entry to completion. The caller (main) is responsible
// for exiting the process with a status derived from the returned error.
func RunChild(entry EntryFn) error {
	raw := os.Getenv(reExecPayload)
	if raw == "" {
		return ErrorReExecMissingConn.Error()
	}

	var rd reExecData
	if err := json.Unmarshal([]byte(raw), &rd); err != nil {
		return ErrorSpawnFailed.Error(err)
	}

	if err := rd.Jail.toJail().Apply(); err != nil {
		return err
	}

	conn, err := inheritedConn()
	if err != nil {
		return err
	}

	return entry(context.Background(), rd.Data, conn)
}

// IsSupervisorSide always reports true: the re-exec model means a worker's
// own process never instantiates a *Worker for itself (see package doc).
func (w *Worker) IsSupervisorSide() bool {
	return true
}

// Kill asks a worker to stop. Subprocess backings receive SIGKILL; thread
// backings are a no-op and must cooperate by exiting on a fatal dispatch
// error instead.
func (w *Worker) Kill() error {
	if w.Backing == BackingThread {
		return nil
	}
	if w.cmd == nil || w.cmd.Process == nil {
		return nil
	}
	return w.cmd.Process.Signal(syscall.SIGKILL)
}

// Reap collects a finished worker. wait=true blocks until it exits; wait=
// false polls once (WNOHANG for subprocess backings, a non-blocking channel
// check for thread backing) and returns collected=false if it hasn't yet.
// Idempotent: once collected, further calls succeed without touching the OS.
func (w *Worker) Reap(wait bool) (collected bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.reaped {
		return true, nil
	}

	if w.Backing == BackingThread {
		if wait {
			<-w.done
			w.reaped = true
			return true, w.thrErr
		}
		select {
		case <-w.done:
			w.reaped = true
			return true, w.thrErr
		default:
			return false, nil
		}
	}

	options := syscall.WNOHANG
	if wait {
		options = 0
	}

	var ws syscall.WaitStatus
	pid, werr := syscall.Wait4(w.pid, &ws, options, nil)
	if werr != nil {
		return false, werr
	}
	if pid == 0 {
		return false, nil
	}
	w.reaped = true
	return true, nil
}

// Destroy frees the worker record. It must follow a successful Reap for
// subprocess backings; thread backings may be destroyed once their
// goroutine has finished, which Reap also establishes.
func (w *Worker) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.reaped {
		return ErrorDestroyBeforeReap.Error()
	}
	w.cmd = nil
	return nil
}

func inheritedConn() (*transport.Conn, error) {
	f := os.NewFile(uintptr(reExecConnFD), "ctxsock")
	if f == nil {
		return nil, ErrorReExecMissingConn.Error()
	}
	nc, err := netFileConn(f)
	if err != nil {
		return nil, ErrorReExecMissingConn.Error(err)
	}
	return transport.New(nc), nil
}

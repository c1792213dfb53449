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

// Package jail applies a seccomp filter to the calling thread before a
// sandboxed-subprocess worker enters its dispatch loop. It supports two
// sources, mirroring the two kinds of policy a deployment may hand the
// server: a raw classic-BPF program, installed verbatim, and a named
// syscall policy, compiled with gvisor.dev/gvisor/pkg/seccomp.
//
// Neither installation ever runs in the main supervisor process; Apply must
// only be called after a worker has re-exec'd into its child and before it
// touches the renderer or the context socket.
package jail

import (
	"unsafe"

	"golang.org/x/sys/unix"
	"gvisor.dev/gvisor/pkg/abi/linux"
	"gvisor.dev/gvisor/pkg/seccomp"
)

// filterEntrySize is sock_filter's on-the-wire size on Linux (8 bytes):
// u16 code, u8 jt, u8 jf, u32 k.
const filterEntrySize = 8

// Source selects how a Jail's program is produced.
type Source uint8

const (
	// SourceNone installs nothing; used for thread backing, where jail is
	// a no-op because all threads share one address space and syscall table.
	SourceNone Source = iota

	// SourceRawBPF installs a pre-assembled classic BPF program read
	// verbatim from a file.
	SourceRawBPF

	// SourcePolicy compiles a named allow-list policy via gvisor's
	// seccomp package.
	SourcePolicy
)

// Jail describes how to sandbox a worker. A zero Jail is SourceNone.
type Jail struct {
	Source Source

	// RawBPF holds the raw filter bytes for SourceRawBPF; its length must
	// be a multiple of filterEntrySize.
	RawBPF []byte

	// Policy names the allow-list for SourcePolicy; see policies.go.
	Policy string

	// LogOnly installs the filter in SECCOMP_RET_LOG mode instead of
	// SECCOMP_RET_KILL_PROCESS: violations are audit-logged by the kernel
	// but the worker keeps running. Only meaningful for SourcePolicy.
	LogOnly bool
}

// NewRawBPF validates prog's length and returns a Jail that installs it
// unmodified.
func NewRawBPF(prog []byte) (Jail, error) {
	if len(prog)%filterEntrySize != 0 {
		return Jail{}, ErrorMalformedFilter.Error()
	}
	return Jail{Source: SourceRawBPF, RawBPF: prog}, nil
}

// NewPolicy returns a Jail that compiles the named policy at Apply time.
func NewPolicy(name string, logOnly bool) (Jail, error) {
	if _, ok := policies[name]; !ok {
		return Jail{}, ErrorUnknownPolicy.Error()
	}
	return Jail{Source: SourcePolicy, Policy: name, LogOnly: logOnly}, nil
}

// Apply installs the filter on the calling OS thread. The caller must have
// locked itself to that thread (runtime.LockOSThread) before calling,
// unless it is about to exec into a fresh image: installed seccomp state is
// inherited across execve.
func (j Jail) Apply() error {
	switch j.Source {
	case SourceNone:
		return nil
	case SourceRawBPF:
		return applyRawBPF(j.RawBPF)
	case SourcePolicy:
		return applyPolicy(j.Policy, j.LogOnly)
	default:
		return ErrorUnknownPolicy.Error()
	}
}

func applyRawBPF(prog []byte) error {
	if len(prog)%filterEntrySize != 0 {
		return ErrorMalformedFilter.Error()
	}
	if len(prog) == 0 {
		return ErrorMalformedFilter.Error()
	}

	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return err
	}

	sockFprog := unix.SockFprog{
		Len:    uint16(len(prog) / filterEntrySize),
		Filter: (*unix.SockFilter)(unsafe.Pointer(&prog[0])),
	}

	return unix.Prctl(unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(&sockFprog)), 0, 0)
}

func applyPolicy(name string, logOnly bool) error {
	rules, ok := policies[name]
	if !ok {
		return ErrorUnknownPolicy.Error()
	}

	opts := seccomp.DefaultProgramOptions()
	opts.DefaultAction = linux.SECCOMP_RET_KILL_PROCESS
	if logOnly {
		opts.DefaultAction = linux.SECCOMP_RET_LOG
	}

	return seccomp.Install(rules, seccomp.NewSyscallRules(), opts)
}

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

package rctx

import (
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// EnvContextName is the environment variable a worker's entry point sets to
// this context's (possibly-expanded) guest application name, so a renderer
// library's own driver-configuration lookup can key off the same name a
// human debugging the process would see.
const EnvContextName = "RENDER_SERVER_CONTEXT_NAME"

// ExportNameEnv sets EnvContextName in the calling process's environment.
// Only call this from a process that backs exactly one context at a time
// (subprocess or sandboxed-subprocess backing); thread backing runs many
// contexts in one process, where a process-wide os.Setenv per context
// would race the next context's own export.
func ExportNameEnv(name string) error {
	return os.Setenv(EnvContextName, name)
}

// SetDebugThreadName locks the calling goroutine to its current OS thread
// and sets that thread's comm (the name ps -L and
// /proc/[pid]/task/[tid]/comm report) to name, truncated to
// commTruncationLen bytes as the kernel requires. Callers gate this on a
// debug-level log configuration; it costs a pinned OS
// thread for the life of the context, which a production deployment
// running thousands of them should not pay for free.
func SetDebugThreadName(name string) error {
	runtime.LockOSThread()

	if len(name) > commTruncationLen {
		name = name[:commTruncationLen]
	}
	b := append([]byte(name), 0)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
}

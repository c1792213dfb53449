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

package jail

import (
	"golang.org/x/sys/unix"
	"gvisor.dev/gvisor/pkg/seccomp"
)

// policies holds the named syscall allow-lists available to NewPolicy. Each
// entry only needs to cover what a worker does between jail.Apply and
// process exit: read/write its context socket, service the renderer's
// ioctls against its already-opened device fd, and manage its own memory.
// Anything else (open, socket, exec, ptrace, ...) is denied by the
// installed default action.
var policies = map[string]seccomp.SyscallRules{
	"worker-default": seccomp.MakeSyscallRules(map[uintptr]seccomp.SyscallRule{
		unix.SYS_READ:          seccomp.MatchAll{},
		unix.SYS_WRITE:         seccomp.MatchAll{},
		unix.SYS_READV:         seccomp.MatchAll{},
		unix.SYS_WRITEV:        seccomp.MatchAll{},
		unix.SYS_RECVMSG:       seccomp.MatchAll{},
		unix.SYS_SENDMSG:       seccomp.MatchAll{},
		unix.SYS_CLOSE:         seccomp.MatchAll{},
		unix.SYS_IOCTL:         seccomp.MatchAll{},
		unix.SYS_MMAP:          seccomp.MatchAll{},
		unix.SYS_MUNMAP:        seccomp.MatchAll{},
		unix.SYS_MADVISE:       seccomp.MatchAll{},
		unix.SYS_MPROTECT:      seccomp.MatchAll{},
		unix.SYS_FUTEX:         seccomp.MatchAll{},
		unix.SYS_EPOLL_WAIT:    seccomp.MatchAll{},
		unix.SYS_EPOLL_CTL:     seccomp.MatchAll{},
		unix.SYS_RT_SIGRETURN:  seccomp.MatchAll{},
		unix.SYS_EXIT:          seccomp.MatchAll{},
		unix.SYS_EXIT_GROUP:    seccomp.MatchAll{},
		unix.SYS_GETPID:        seccomp.MatchAll{},
		unix.SYS_GETTID:        seccomp.MatchAll{},
		unix.SYS_CLOCK_GETTIME: seccomp.MatchAll{},
		unix.SYS_SCHED_YIELD:   seccomp.MatchAll{},
	}),
}

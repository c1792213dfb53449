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

package config

import liberr "hostgfx/render-server/errors"

const (
	ErrorUnknownBacking liberr.CodeError = liberr.MinPkgConfig + iota
	ErrorMissingSocketPath
	ErrorSandboxedNeedsJail
	ErrorBadShmemSize
	ErrorBadInlineCap
	ErrorDecodeFailed
	ErrorNoRealRenderer
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgConfig, message)
	// Every code here is raised during startup validation, before the
	// server begins listening; none has a running-server counterpart.
	liberr.RegisterFatal(
		ErrorUnknownBacking, ErrorMissingSocketPath, ErrorSandboxedNeedsJail,
		ErrorBadShmemSize, ErrorBadInlineCap, ErrorDecodeFailed, ErrorNoRealRenderer,
	)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorUnknownBacking:
		return "backing must be one of subprocess, sandboxed, or thread"
	case ErrorMissingSocketPath:
		return "socket_path must not be empty"
	case ErrorSandboxedNeedsJail:
		return "sandboxed backing requires a jail_bpf_file or jail_policy"
	case ErrorBadShmemSize:
		return "default_shmem_size must not be negative"
	case ErrorBadInlineCap:
		return "inline_cmd_cap must be positive"
	case ErrorDecodeFailed:
		return "failed to decode configuration"
	case ErrorNoRealRenderer:
		return "fake_renderer is false but this binary has no real renderer binding"
	default:
		return liberr.NullMessage
	}
}

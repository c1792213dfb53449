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

package worker

import liberr "hostgfx/render-server/errors"

const (
	ErrorUnknownBacking liberr.CodeError = liberr.MinPkgWorker + iota
	ErrorSpawnFailed
	ErrorNotSupervisorSide
	ErrorAlreadyReaped
	ErrorDestroyBeforeReap
	ErrorReExecMissingConn
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgWorker, message)
	// Spawn and lifecycle errors always abort the worker they concern;
	// none has a recoverable, keep-going counterpart.
	liberr.RegisterFatal(
		ErrorUnknownBacking, ErrorSpawnFailed, ErrorNotSupervisorSide,
		ErrorAlreadyReaped, ErrorDestroyBeforeReap, ErrorReExecMissingConn,
	)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorUnknownBacking:
		return "worker backing is not one of subprocess, sandboxed subprocess, or thread"
	case ErrorSpawnFailed:
		return "failed to spawn the worker"
	case ErrorNotSupervisorSide:
		return "operation is only valid from the supervisor side of a worker"
	case ErrorAlreadyReaped:
		return "worker has already been reaped"
	case ErrorDestroyBeforeReap:
		return "destroy called on a worker that has not been reaped"
	case ErrorReExecMissingConn:
		return "re-exec child started without its inherited context socket"
	default:
		return liberr.NullMessage
	}
}

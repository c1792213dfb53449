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

package dispatch

import liberr "hostgfx/render-server/errors"

const (
	ErrorUnknownOp liberr.CodeError = liberr.MinPkgDispatch + iota
	ErrorBadBodySize
	ErrorTooManyFDs
	ErrorRingIndexOutOfRange
	ErrorBadFenceFlags
	ErrorImportNeedsOneFD
	ErrorNotInitialized
	ErrorAlreadyInitialized
	ErrorReceiveTailFailed
)

var errShortHeader = ErrorBadBodySize.Error()

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgDispatch, message)
	// Every error this package raises terminates the dispatch loop: there
	// is no recoverable case in the request-framing/validation path
	// itself.
	liberr.RegisterFatal(
		ErrorUnknownOp, ErrorBadBodySize, ErrorTooManyFDs, ErrorRingIndexOutOfRange,
		ErrorBadFenceFlags, ErrorImportNeedsOneFD, ErrorNotInitialized,
		ErrorAlreadyInitialized, ErrorReceiveTailFailed,
	)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorUnknownOp:
		return "unrecognized operation id"
	case ErrorBadBodySize:
		return "declared frame payload size does not match the operation's expected body size"
	case ErrorTooManyFDs:
		return "frame carried more file descriptors than the operation allows"
	case ErrorRingIndexOutOfRange:
		return "ring index is not less than the context's timeline count"
	case ErrorBadFenceFlags:
		return "fence flags contain a bit outside the recognized mergeable flag"
	case ErrorImportNeedsOneFD:
		return "import_resource requires exactly one file descriptor"
	case ErrorNotInitialized:
		return "operation requires a context that has completed INIT"
	case ErrorAlreadyInitialized:
		return "context has already completed INIT"
	case ErrorReceiveTailFailed:
		return "failed reading the out-of-band tail of an oversized command"
	default:
		return liberr.NullMessage
	}
}

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

package transport

import liberr "hostgfx/render-server/errors"

const (
	ErrorShortFrame liberr.CodeError = liberr.MinPkgTransport + iota
	ErrorTooManyFDs
	ErrorShortRead
	ErrorOversizeFrame
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgTransport, message)
	// Every framing error this package raises ends the connection:
	// there is no partial-frame recovery.
	liberr.RegisterFatal(ErrorShortFrame, ErrorTooManyFDs, ErrorShortRead, ErrorOversizeFrame)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorShortFrame:
		return "short or truncated frame"
	case ErrorTooManyFDs:
		return "peer sent more file descriptors than the declared maximum"
	case ErrorShortRead:
		return "short read on connection tail"
	case ErrorOversizeFrame:
		return "frame payload exceeds the requested maximum size"
	default:
		return liberr.NullMessage
	}
}

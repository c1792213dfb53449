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

package render

import liberr "hostgfx/render-server/errors"

// ErrorFlagMismatch and ErrorRendererInitFailed are fatal and non-retryable:
// callers must not call Init again with different flags on a singleton
// that already failed or is live under different flags.
// ErrorRendererInitCallFailed is also fatal: it is CreateContext's failure
// during the INIT op, which dispatch.Loop propagates straight out to kill
// the connection rather than converting to a status reply. The renderer
// calls a worker makes once a context is live (SubmitCmd, SubmitFence,
// ImportResource, DestroyResource) instead use the recoverable
// ErrorRendererCallFailed, which dispatch.Loop turns into an OK=0 reply
// and keeps dispatching.
const (
	ErrorFlagMismatch liberr.CodeError = liberr.MinPkgRenderState + iota
	ErrorRendererInitFailed
	ErrorRendererInitCallFailed
	ErrorRendererCallFailed
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgRenderState, message)
	liberr.RegisterFatal(ErrorFlagMismatch, ErrorRendererInitFailed, ErrorRendererInitCallFailed)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorFlagMismatch:
		return "singleton already initialized with a different flag set"
	case ErrorRendererInitFailed:
		return "external renderer init failed"
	case ErrorRendererInitCallFailed:
		return "external renderer context creation failed during INIT"
	case ErrorRendererCallFailed:
		return "external renderer call failed"
	default:
		return liberr.NullMessage
	}
}

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

package renderer

import liberr "hostgfx/render-server/errors"

// None of these codes are registered fatal: every call site that raises one
// is a per-request renderer rejection that dispatch.Loop turns into a
// status-tagged reply and keeps dispatching, never a reason to end the
// connection.
const (
	ErrorCreateResourceFailed liberr.CodeError = liberr.MinPkgRenderer + iota
	ErrorExportResourceFailed
	ErrorImportRejected
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgRenderer, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorCreateResourceFailed:
		return "renderer rejected blob resource creation"
	case ErrorExportResourceFailed:
		return "renderer accepted the blob but fd export failed"
	case ErrorImportRejected:
		return "renderer rejected an imported fd-type or zero size"
	default:
		return liberr.NullMessage
	}
}

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

package errors

import (
	"sort"
	"strconv"
)

// CodeError is a numeric error classification, scoped per package by
// modules.go's range table, the same way an HTTP status code classifies a
// response without needing the response body.
type CodeError uint16

const (
	// UnknownError is the zero code: no package claims it.
	UnknownError CodeError = 0

	// UnknownMessage backs a code with no registered message.
	UnknownMessage = "unknown error"
	// NullMessage is what a package's message function returns for a code
	// it doesn't recognize, telling the registry to keep looking.
	NullMessage = ""
)

// Message renders a CodeError to its human-readable string. Each package
// registers one Message function, covering its whole code range, via
// RegisterIdFctMessage.
type Message func(code CodeError) string

var idMsgFct = make(map[CodeError]Message)

// RegisterIdFctMessage registers fct as the message lookup for every code
// greater than or equal to minCode, up to the next registered package's
// minCode. Called once per package from that package's init().
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	idMsgFct[minCode] = fct
}

var fatalCodes = make(map[CodeError]bool)

// RegisterFatal marks codes as fatal: a fatal error ends
// the dispatch loop or singleton call that raised it. Codes never passed
// here are recoverable per-request failures. Called once per package from
// that package's init(), alongside RegisterIdFctMessage.
func RegisterFatal(codes ...CodeError) {
	for _, c := range codes {
		fatalCodes[c] = true
	}
}

// Uint16 returns the raw code.
func (c CodeError) Uint16() uint16 { return uint16(c) }

// String renders the numeric code, e.g. for a log field.
func (c CodeError) String() string { return strconv.Itoa(int(c)) }

// Message returns the message registered for c's package range, or
// UnknownMessage if none is registered.
func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}
	if f, ok := idMsgFct[nearestRegisteredRange(c)]; ok {
		if m := f(c); m != NullMessage {
			return m
		}
	}
	return UnknownMessage
}

// Fatal reports whether c was registered via RegisterFatal.
func (c CodeError) Fatal() bool { return fatalCodes[c] }

// Error constructs an Error carrying c's code, registered message, and
// Fatal-ness, wrapping parent if one is given. At most one parent is ever
// passed in this codebase — every call site wraps exactly the one
// collaborator error it just received, never a batch.
func (c CodeError) Error(parent ...error) Error {
	var p error
	if len(parent) > 0 {
		p = parent[0]
	}
	return newError(c.Uint16(), c.Message(), c.Fatal(), p)
}

// nearestRegisteredRange finds the highest registered minCode <= code,
// since a package registers once for its whole range (modules.go) rather
// than once per individual code value.
func nearestRegisteredRange(code CodeError) CodeError {
	keys := make([]int, 0, len(idMsgFct))
	for k := range idMsgFct {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)

	var best CodeError
	for _, k := range keys {
		if CodeError(k) <= code {
			best = CodeError(k)
		}
	}
	return best
}

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

// Package errors gives every other package in this server one shared way to
// raise a coded, traced error and to say whether that error is fatal to the
// connection/singleton it came from or merely a recoverable per-request
// failure. It is deliberately narrow: callers
// never build error hierarchies, walk parent chains, or serialize errors to
// JSON — they construct one CodeError.Error(...) value, return it, and log
// it with "%v".
package errors

import (
	"fmt"
	"runtime"
)

// Error is what a CodeError.Error(...) call returns. Fatal distinguishes
// the two propagated categories: a fatal error ends the dispatch
// loop or singleton call that produced it, a non-fatal one is surfaced as a
// status field to the guest while the loop continues.
type Error interface {
	error

	// Code is the numeric classification of this error, unique to the
	// package that raised it (see modules.go's per-package ranges).
	Code() uint16
	// GetCode is Code, typed as CodeError rather than a bare uint16.
	GetCode() CodeError
	// Fatal reports whether the code this error carries is registered as
	// fatal via RegisterFatal.
	Fatal() bool
	// Unwrap exposes the wrapped parent error, if any, to errors.Is/As.
	Unwrap() error
}

type codeErr struct {
	code   uint16
	msg    string
	fatal  bool
	parent error
	frame  runtime.Frame
}

func newError(code uint16, msg string, fatal bool, parent error) Error {
	return &codeErr{code: code, msg: msg, fatal: fatal, parent: parent, frame: getFrame()}
}

func (e *codeErr) Error() string {
	s := fmt.Sprintf("[%d] %s", e.code, e.msg)
	if e.fatal {
		if t := formatTrace(e.frame); t != "" {
			s += " (" + t + ")"
		}
	}
	if e.parent != nil {
		s += ": " + e.parent.Error()
	}
	return s
}

func (e *codeErr) Code() uint16       { return e.code }
func (e *codeErr) GetCode() CodeError { return CodeError(e.code) }
func (e *codeErr) Fatal() bool        { return e.fatal }
func (e *codeErr) Unwrap() error      { return e.parent }

// IsFatal reports whether err is an Error (as constructed by this package)
// registered fatal. A plain error — io.EOF on a clean peer close, for
// instance — is never fatal by this definition.
func IsFatal(err error) bool {
	ce, ok := err.(Error)
	return ok && ce.Fatal()
}

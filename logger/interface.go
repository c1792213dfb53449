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

// Package logger provides the leveled, structured logger used across this
// repository, backed by github.com/sirupsen/logrus.
package logger

// FuncLog returns a Logger instance; used for lazy dependency injection so
// that packages constructed before a logger exists can still be wired once
// one is available (render.New, dispatch.Loop and supervisor.RunContext take
// one directly; supervisor.New takes one through its Config).
type FuncLog func() Logger

// Logger is the minimal structured logging surface consumed by this
// repository's components.
type Logger interface {
	SetLevel(lvl Level)
	GetLevel() Level

	WithFields(f Fields) Logger

	Debug(message string, args ...interface{})
	Info(message string, args ...interface{})
	Warning(message string, args ...interface{})
	Error(message string, args ...interface{})

	// Fatal logs then terminates the process (os.Exit(1)). Reserved for
	// startup failures in cmd/render-server; never called from request
	// handling paths, which must return recoverable errors instead.
	Fatal(message string, args ...interface{})
}

// NilLogger returns a Logger that discards everything; used as the default
// when no FuncLog is registered, so components never need a nil check.
func NilLogger() Logger {
	return &discard{}
}

type discard struct{}

func (d *discard) SetLevel(Level)                 {}
func (d *discard) GetLevel() Level                { return NilLevel }
func (d *discard) WithFields(Fields) Logger       { return d }
func (d *discard) Debug(string, ...interface{})   {}
func (d *discard) Info(string, ...interface{})    {}
func (d *discard) Warning(string, ...interface{}) {}
func (d *discard) Error(string, ...interface{})   {}
func (d *discard) Fatal(string, ...interface{})   {}

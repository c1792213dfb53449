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

package logger

import (
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type logger struct {
	log *logrus.Logger
	lvl atomic.Uint32
	fld Fields
}

// New returns a Logger writing JSON-formatted entries to stderr at lvl.
func New(lvl Level) Logger {
	return NewWithFormat(lvl, "json")
}

// NewWithFormat returns a Logger writing to stderr at lvl, using logrus's
// text formatter when format is "text" and its JSON formatter otherwise.
// cmd/render-server selects between the two via its --log-format flag.
func NewWithFormat(lvl Level, format string) Logger {
	l := &logger{
		log: logrus.New(),
	}
	l.log.SetOutput(os.Stderr)
	if format == "text" {
		l.log.SetFormatter(&logrus.TextFormatter{})
	} else {
		l.log.SetFormatter(&logrus.JSONFormatter{})
	}
	l.SetLevel(lvl)
	return l
}

func (l *logger) SetLevel(lvl Level) {
	l.lvl.Store(uint32(lvl))
	l.log.SetLevel(lvl.Logrus())
}

func (l *logger) GetLevel() Level {
	return Level(l.lvl.Load())
}

func (l *logger) WithFields(f Fields) Logger {
	return &logger{
		log: l.log,
		fld: l.fld.clone().merge(f),
	}
}

func (f Fields) merge(o Fields) Fields {
	res := f.clone()
	for k, v := range o {
		res[k] = v
	}
	return res
}

func (l *logger) entry() *logrus.Entry {
	return l.log.WithFields(l.fld.Logrus())
}

func (l *logger) allowed(lvl Level) bool {
	return l.GetLevel() != NilLevel && lvl <= l.GetLevel()
}

func (l *logger) Debug(message string, args ...interface{}) {
	if l.allowed(DebugLevel) {
		l.entry().Debugf(message, args...)
	}
}

func (l *logger) Info(message string, args ...interface{}) {
	if l.allowed(InfoLevel) {
		l.entry().Infof(message, args...)
	}
}

func (l *logger) Warning(message string, args ...interface{}) {
	if l.allowed(WarnLevel) {
		l.entry().Warnf(message, args...)
	}
}

func (l *logger) Error(message string, args ...interface{}) {
	if l.allowed(ErrorLevel) {
		l.entry().Errorf(message, args...)
	}
}

func (l *logger) Fatal(message string, args ...interface{}) {
	l.entry().Fatalf(message, args...)
}

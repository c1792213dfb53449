/*
MIT License

Copyright (c) 2025 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package context provides the concurrent key/value map render.Singleton
// uses to track live contexts by id. It is the generic MapManage slice of a
// larger config-context type elsewhere in this stack, trimmed to the Load/
// Store/Delete surface render.Singleton actually calls; this package has no
// opinion on cancellation, so it does not embed context.Context.
package context

import "sync"

// MapManage is a concurrent map keyed by a comparable type, values typed as
// interface{} so a single Config[T] can hold any record shape callers want.
type MapManage[T comparable] interface {
	Load(key T) (val interface{}, ok bool)
	Store(key T, cfg interface{})
	Delete(key T)
}

// Config is MapManage under a name that matches the generic config-context
// family this type belongs to elsewhere in this stack.
type Config[T comparable] interface {
	MapManage[T]
}

// NewConfig returns an empty, ready-to-use Config[T].
func NewConfig[T comparable]() Config[T] {
	return &mapConfig[T]{}
}

type mapConfig[T comparable] struct {
	m sync.Map
}

func (c *mapConfig[T]) Load(key T) (val interface{}, ok bool) {
	return c.m.Load(key)
}

func (c *mapConfig[T]) Store(key T, cfg interface{}) {
	c.m.Store(key, cfg)
}

func (c *mapConfig[T]) Delete(key T) {
	c.m.Delete(key)
}

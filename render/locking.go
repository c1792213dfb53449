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

import "sync"

// LockingPolicy is either a real mutex (thread backing, where workers
// share this process's address space and the external renderer) or a
// no-op (subprocess/sandboxed-subprocess backing, where each worker has
// its own copy of the singleton and no contention is possible). The
// singleton always holds two independently selectable instances: one for
// the context set (state lock) and one for renderer calls (renderer
// lock), acquired state-then-renderer whenever both are needed.
type LockingPolicy interface {
	Lock()
	Unlock()
}

// RealLock is a LockingPolicy backed by an actual sync.Mutex.
type RealLock struct {
	mu sync.Mutex
}

func (l *RealLock) Lock()   { l.mu.Lock() }
func (l *RealLock) Unlock() { l.mu.Unlock() }

// NoopLock is a LockingPolicy that does nothing; correct only when the
// caller can prove no concurrent access is possible, i.e. subprocess and
// sandboxed-subprocess backings.
type NoopLock struct{}

func (NoopLock) Lock()   {}
func (NoopLock) Unlock() {}

// LocksFor returns the (state, renderer) lock pair appropriate for
// threaded, meaning real mutexes when threaded is true and no-ops
// otherwise.
func LocksFor(threaded bool) (state, renderer LockingPolicy) {
	if threaded {
		return &RealLock{}, &RealLock{}
	}
	return NoopLock{}, NoopLock{}
}

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

// Package perm wraps os.FileMode with octal-string parsing and a Viper
// decoder hook, so config.Config can carry a socket permission as a plain
// "0660"-style string on the command line, in an env var, or in a config
// file.
package perm

import (
	"fmt"
	"os"
)

// Perm is a file permission, stored as the low bits of an os.FileMode.
type Perm os.FileMode

// Parse parses an octal string such as "0644" into a Perm.
func Parse(s string) (Perm, error) {
	return parseString(s)
}

// String returns p as an octal string, e.g. "0660".
func (p Perm) String() string {
	return fmt.Sprintf("%#o", uint64(p))
}

// FileMode returns p as an os.FileMode, for os.Chmod and friends.
func (p Perm) FileMode() os.FileMode {
	return os.FileMode(p)
}

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

package perm_test

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "hostgfx/render-server/file/perm"
)

var _ = Describe("Parsing and Formatting", func() {
	Describe("Parse", func() {
		It("should parse an octal string with a leading zero", func() {
			p, err := Parse("0644")
			Expect(err).ToNot(HaveOccurred())
			Expect(p).To(Equal(Perm(0o644)))
		})

		It("should parse an octal string without a leading zero", func() {
			p, err := Parse("755")
			Expect(err).ToNot(HaveOccurred())
			Expect(p).To(Equal(Perm(0o755)))
		})

		It("should reject a non-octal string", func() {
			_, err := Parse("rwxr-xr-x")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("String", func() {
		It("should render back to an octal string", func() {
			Expect(Perm(0o660).String()).To(Equal("0660"))
		})

		It("should survive a parse/format round trip", func() {
			p, err := Parse("0600")
			Expect(err).ToNot(HaveOccurred())
			Expect(p.String()).To(Equal("0600"))
		})
	})

	Describe("FileMode", func() {
		It("should convert to the matching os.FileMode", func() {
			Expect(Perm(0o640).FileMode()).To(Equal(os.FileMode(0o640)))
		})
	})
})

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

package jail

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Jail", func() {
	Describe("NewRawBPF", func() {
		It("should reject a length that is not a multiple of the entry size", func() {
			_, err := NewRawBPF(make([]byte, filterEntrySize+1))
			Expect(err).To(HaveOccurred())
		})

		It("should accept an aligned filter", func() {
			j, err := NewRawBPF(make([]byte, filterEntrySize*3))
			Expect(err).ToNot(HaveOccurred())
			Expect(j.Source).To(Equal(SourceRawBPF))
		})
	})

	Describe("NewPolicy", func() {
		It("should reject an unregistered policy name", func() {
			_, err := NewPolicy("does-not-exist", false)
			Expect(err).To(HaveOccurred())
		})

		It("should accept a registered policy name", func() {
			j, err := NewPolicy("worker-default", true)
			Expect(err).ToNot(HaveOccurred())
			Expect(j.Source).To(Equal(SourcePolicy))
			Expect(j.LogOnly).To(BeTrue())
		})
	})

	Describe("Apply", func() {
		It("should be a no-op for the zero value", func() {
			var j Jail
			Expect(j.Apply()).To(Succeed())
		})
	})
})

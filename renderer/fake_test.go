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

package renderer_test

import (
	"context"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hostgfx/render-server/renderer"
)

var _ = Describe("Fake", func() {
	var (
		f     *renderer.Fake
		calls chan [3]uint64
	)

	BeforeEach(func() {
		calls = make(chan [3]uint64, 16)
		f = renderer.NewFake()
		Expect(f.Init(renderer.Mandatory, nil, func(ctxID uint32, ringIdx uint8, fenceID uint64) {
			calls <- [3]uint64{uint64(ctxID), uint64(ringIdx), fenceID}
		})).To(Succeed())
	})

	AfterEach(func() {
		f.Cleanup()
	})

	Describe("SubmitFence", func() {
		It("should invoke the registered callback synchronously", func() {
			Expect(f.CreateContext(context.Background(), 1, 0, "ctx-1")).To(Succeed())
			Expect(f.SubmitFence(context.Background(), 1, 3, 0x1_00000007, false)).To(Succeed())

			var got [3]uint64
			Expect(calls).To(Receive(&got))
			Expect(got).To(Equal([3]uint64{1, 3, 0x1_00000007}))
		})

		It("should reject an unknown context", func() {
			Expect(f.SubmitFence(context.Background(), 99, 0, 1, false)).To(HaveOccurred())
		})
	})

	Describe("Resource Lifecycle", func() {
		BeforeEach(func() {
			Expect(f.CreateContext(context.Background(), 1, 0, "ctx-1")).To(Succeed())
		})

		It("should create then destroy a resource without leaking it", func() {
			res, err := f.CreateResource(context.Background(), 1, 42, 4096)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.FdType).To(Equal(renderer.FDSharedMemory))

			// The exported fd is the caller's to close, like the worker does
			// after sending its reply.
			Expect(syscall.Close(res.Fd)).To(Succeed())

			Expect(f.DestroyResource(context.Background(), 1, 42)).To(Succeed())
			Expect(f.DestroyResource(context.Background(), 1, 42)).To(HaveOccurred())
		})

		It("should reject an INVALID fd-type import", func() {
			err := f.ImportResource(context.Background(), 1, 1, renderer.ImportSpec{
				FdType: renderer.FDInvalid,
				Size:   1024,
				Fd:     0,
			})
			Expect(err).To(HaveOccurred())
		})

		It("should reject a zero-size import", func() {
			err := f.ImportResource(context.Background(), 1, 1, renderer.ImportSpec{
				FdType: renderer.FDDMABuf,
				Size:   0,
				Fd:     0,
			})
			Expect(err).To(HaveOccurred())
		})

		It("should close owned resources with their context", func() {
			res, err := f.CreateResource(context.Background(), 1, 1, 4096)
			Expect(err).ToNot(HaveOccurred())
			Expect(syscall.Close(res.Fd)).To(Succeed())

			Expect(f.DestroyContext(context.Background(), 1)).To(Succeed())
			Expect(f.DestroyResource(context.Background(), 1, 1)).To(HaveOccurred())
		})
	})
})

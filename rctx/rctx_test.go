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

package rctx

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"
)

var _ = ginkgo.Describe("Context", func() {
	ginkgo.Describe("Bind and Timeline", func() {
		ginkgo.It("should expose one timeline slot per 4 shmem bytes", func() {
			f := shmemFile(16) // 4 rings
			defer f.Close()

			c := New(1, 0, nil, "test-ctx")
			Expect(c.Bind(int(f.Fd()), 16, -1)).To(Succeed())
			Expect(c.TimelineCount()).To(Equal(4))

			Expect(c.StoreFence(3, 0x00000007)).To(Succeed())
			for ring := uint8(0); ring < 4; ring++ {
				got, ok := c.LoadFence(ring)
				Expect(ok).To(BeTrue())
				if ring == 3 {
					Expect(got).To(Equal(uint32(0x00000007)))
				} else {
					Expect(got).To(BeZero())
				}
			}

			Expect(c.Close()).To(Succeed())
		})

		ginkgo.It("should reject a fence on a ring past the timeline count", func() {
			f := shmemFile(16)
			defer f.Close()

			c := New(1, 0, nil, "test-ctx")
			Expect(c.Bind(int(f.Fd()), 16, -1)).To(Succeed())
			defer c.Close()

			Expect(c.StoreFence(4, 1)).To(HaveOccurred())
		})

		ginkgo.It("should leave a zero-size shmem with no timeline at all", func() {
			c := New(1, 0, nil, "test-ctx")
			Expect(c.Bind(-1, 0, -1)).To(Succeed())
			defer c.Close()

			Expect(c.TimelineCount()).To(BeZero())
			Expect(c.StoreFence(0, 1)).To(HaveOccurred())
		})
	})

	ginkgo.Describe("Wake EventFd", func() {
		ginkgo.It("should leave a pending eventfd counter after a fence store", func() {
			f := shmemFile(4)
			defer f.Close()

			efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK)
			Expect(err).ToNot(HaveOccurred())

			c := New(1, 0, nil, "test-ctx")
			Expect(c.Bind(int(f.Fd()), 4, efd)).To(Succeed())
			defer c.Close()

			Expect(c.StoreFence(0, 5)).To(Succeed())

			var buf [8]byte
			_, err = unix.Read(efd, buf[:])
			Expect(err).ToNot(HaveOccurred())
		})
	})

	ginkgo.Describe("FenceReached", func() {
		ginkgo.It("should compare sequence numbers wrap-aware", func() {
			Expect(FenceReached(0, 0)).To(BeTrue())
			Expect(FenceReached(7, 7)).To(BeTrue())
			Expect(FenceReached(8, 7)).To(BeTrue())
			Expect(FenceReached(6, 7)).To(BeFalse())
		})

		ginkgo.It("should treat a wrapped slot as forward progress", func() {
			Expect(FenceReached(0x00000001, 0xFFFFFFFE)).To(BeTrue())
			Expect(FenceReached(0xFFFFFFFE, 0x00000001)).To(BeFalse())
		})
	})

	ginkgo.Describe("ExpandName", func() {
		ginkgo.It("should leave short names unchanged", func() {
			Expect(ExpandName("short")).To(Equal("short"))
		})

		ginkgo.It("should expand a known comm-truncated prefix", func() {
			Expect(ExpandName("chrome-gpu-proc")).To(Equal("chrome-gpu-process"))
		})

		ginkgo.It("should leave unknown fifteen-byte names unchanged", func() {
			Expect(ExpandName("unknown-fifteen")).To(Equal("unknown-fifteen"))
		})

		ginkgo.It("should be idempotent on an already-expanded name", func() {
			Expect(ExpandName(ExpandName("chrome-gpu-proc"))).To(Equal("chrome-gpu-process"))
		})
	})
})

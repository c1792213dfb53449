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

package transport

import (
	"io"
	"os"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"
)

var _ = Describe("Conn", func() {
	var a, b *Conn

	BeforeEach(func() {
		a, b = socketpair()
	})

	AfterEach(func() {
		_ = a.Close()
		_ = b.Close()
	})

	Describe("Request Framing", func() {
		It("should round-trip a frame carrying no fds", func() {
			want := []byte("hello dispatcher")
			Expect(a.SendRequest(want, nil)).To(Succeed())

			got, fds, err := b.ReceiveRequest(4096, MaxFDs)
			Expect(err).ToNot(HaveOccurred())
			Expect(fds).To(BeEmpty())
			Expect(got).To(Equal(want))
		})

		It("should deliver fds atomically with their frame", func() {
			r, w, err := os.Pipe()
			Expect(err).ToNot(HaveOccurred())
			defer r.Close()
			defer w.Close()

			Expect(a.SendRequest([]byte("fd attached"), []int{int(w.Fd())})).To(Succeed())

			payload, fds, err := b.ReceiveRequest(4096, MaxFDs)
			Expect(err).ToNot(HaveOccurred())
			defer closeAll(fds)

			Expect(string(payload)).To(Equal("fd attached"))
			Expect(fds).To(HaveLen(1))

			recv := os.NewFile(uintptr(fds[0]), "recv")
			defer recv.Close()

			_, err = recv.Write([]byte("ping"))
			Expect(err).ToNot(HaveOccurred())

			buf := make([]byte, 4)
			_, err = io.ReadFull(r, buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(buf)).To(Equal("ping"))
		})

		It("should refuse to send more than MaxFDs descriptors", func() {
			fds := make([]int, MaxFDs+1)
			for i := range fds {
				fds[i] = int(os.Stdin.Fd())
			}
			Expect(a.SendRequest([]byte("x"), fds)).To(HaveOccurred())
		})

		It("should close and reject fds beyond the requested cap", func() {
			// Craft a raw sendmsg carrying 2 fds while the receiver allows 1.
			r1, w1, err := os.Pipe()
			Expect(err).ToNot(HaveOccurred())
			r2, w2, err := os.Pipe()
			Expect(err).ToNot(HaveOccurred())
			defer r1.Close()
			defer r2.Close()
			defer w1.Close()
			defer w2.Close()

			rights := unix.UnixRights(int(w1.Fd()), int(w2.Fd()))
			Expect(syscall.Sendmsg(socketFD(a), []byte("x"), rights, nil, 0)).To(Succeed())

			_, _, err = b.ReceiveRequest(4096, 1)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ReceiveBytes", func() {
		It("should read exactly the requested length", func() {
			go func() {
				defer GinkgoRecover()
				Expect(a.SendRequest([]byte("0123456789"), nil)).To(Succeed())
			}()

			got, err := b.ReceiveBytes(10)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(got)).To(Equal("0123456789"))
		})

		It("should fail on a short read", func() {
			go func() {
				defer GinkgoRecover()
				Expect(a.SendRequest([]byte("abc"), nil)).To(Succeed())
				Expect(a.Close()).To(Succeed())
			}()

			_, err := b.ReceiveBytes(10)
			Expect(err).To(HaveOccurred())
		})
	})
})

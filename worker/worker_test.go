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

package worker

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hostgfx/render-server/jail"
	"hostgfx/render-server/transport"
)

var _ = Describe("Worker", func() {
	Describe("Thread Backing", func() {
		It("should run the entry function and reap idempotently", func() {
			guestUC, srvUC := socketpairUnix()
			defer guestUC.Close()
			srv := transport.New(srvUC)

			ran := make(chan ThreadData, 1)
			entry := func(ctx context.Context, data ThreadData, conn *transport.Conn) error {
				ran <- data
				return nil
			}

			w, err := Create(BackingThread, jail.Jail{}, entry, ThreadData{CtxID: 7, Name: "gpu-thread"}, srv)
			Expect(err).ToNot(HaveOccurred())

			var got ThreadData
			Eventually(ran).Should(Receive(&got))
			Expect(got.CtxID).To(Equal(uint32(7)))
			Expect(got.Name).To(Equal("gpu-thread"))

			collected, err := w.Reap(true)
			Expect(err).ToNot(HaveOccurred())
			Expect(collected).To(BeTrue())

			// Idempotent: a second reap must succeed without blocking.
			collected, err = w.Reap(false)
			Expect(err).ToNot(HaveOccurred())
			Expect(collected).To(BeTrue())

			Expect(w.Destroy()).To(Succeed())
			Expect(w.Kill()).To(Succeed())
			Expect(w.IsSupervisorSide()).To(BeTrue())
		})

		It("should not collect an in-flight worker on a non-waiting reap", func() {
			guestUC, srvUC := socketpairUnix()
			defer guestUC.Close()
			srv := transport.New(srvUC)

			release := make(chan struct{})
			entry := func(ctx context.Context, data ThreadData, conn *transport.Conn) error {
				<-release
				return nil
			}

			w, err := Create(BackingThread, jail.Jail{}, entry, ThreadData{}, srv)
			Expect(err).ToNot(HaveOccurred())

			collected, err := w.Reap(false)
			Expect(err).ToNot(HaveOccurred())
			Expect(collected).To(BeFalse())

			Expect(w.Destroy()).To(HaveOccurred())

			close(release)
			collected, err = w.Reap(true)
			Expect(err).ToNot(HaveOccurred())
			Expect(collected).To(BeTrue())
		})
	})

	Describe("Subprocess Backing", func() {
		It("should re-exec a child that runs the entry and exits", func() {
			guestUC, srvUC := socketpairUnix()
			defer guestUC.Close()
			srv := transport.New(srvUC)

			w, err := Create(BackingSubprocess, jail.Jail{}, nil, ThreadData{Name: "hello-child"}, srv)
			Expect(err).ToNot(HaveOccurred())
			Expect(srv.Close()).To(Succeed()) // supervisor's copy; the child holds its own duplicate

			guest := transport.New(guestUC)
			payload, _, err := guest.ReceiveRequest(64, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(payload)).To(Equal("hello-child"))

			_, err = w.Reap(true)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.Destroy()).To(Succeed())
		})
	})

	Describe("Create", func() {
		It("should reject an unknown backing", func() {
			guestUC, srvUC := socketpairUnix()
			defer guestUC.Close()
			defer srvUC.Close()

			_, err := Create(Backing(99), jail.Jail{}, nil, ThreadData{}, transport.New(srvUC))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Backing", func() {
		It("should name each backing", func() {
			Expect(BackingSubprocess.String()).To(Equal("subprocess"))
			Expect(BackingSandboxed.String()).To(Equal("sandboxed-subprocess"))
			Expect(BackingThread.String()).To(Equal("thread"))
			Expect(Backing(99).String()).To(Equal("unknown"))
		})
	})
})

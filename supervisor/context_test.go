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

package supervisor_test

import (
	"context"
	"encoding/binary"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"hostgfx/render-server/dispatch"
	"hostgfx/render-server/render"
	"hostgfx/render-server/renderer"
	"hostgfx/render-server/supervisor"
	"hostgfx/render-server/transport"
	"hostgfx/render-server/worker"
)

func opHeader(op dispatch.Op) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(op))
	return b
}

var _ = Describe("RunContext", func() {
	var (
		guest, srv *transport.Conn
		s          *render.Singleton
		done       chan error
	)

	BeforeEach(func() {
		guest, srv = proxyPair()
		s = render.New(renderer.NewFake(), true, nil)
		done = make(chan error, 1)
	})

	It("should skip renderer-context teardown when the guest never sends INIT", func() {
		data := worker.ThreadData{CtxID: 9, CapsetID: 0, Name: "t"}
		go func() {
			done <- supervisor.RunContext(context.Background(), s, 0, 4096, data, srv, nil, false, false)
		}()

		Expect(guest.Close()).To(Succeed()) // guest hangs up without a single request

		var err error
		Eventually(done).Should(Receive(&err))
		Expect(err).ToNot(HaveOccurred())
		Expect(s.LookupContext(9)).To(BeNil())
	})

	It("should destroy and unregister the context after INIT then disconnect", func() {
		data := worker.ThreadData{CtxID: 11, CapsetID: 0, Name: "gears"}
		go func() {
			done <- supervisor.RunContext(context.Background(), s, 0, 4096, data, srv, nil, false, false)
		}()

		shmemFile, err := os.CreateTemp(GinkgoT().TempDir(), "shmem")
		Expect(err).ToNot(HaveOccurred())
		defer shmemFile.Close()
		Expect(shmemFile.Truncate(16)).To(Succeed())

		eventFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK)
		Expect(err).ToNot(HaveOccurred())
		defer unix.Close(eventFd)

		initPayload := append(opHeader(dispatch.OpInit), make([]byte, 4)...)
		binary.LittleEndian.PutUint32(initPayload[4:8], 16)
		Expect(guest.SendRequest(initPayload, []int{int(shmemFile.Fd()), eventFd})).To(Succeed())

		_, _, err = guest.ReceiveRequest(64, 0)
		Expect(err).ToNot(HaveOccurred())

		Expect(s.LookupContext(11)).ToNot(BeNil())

		Expect(guest.Close()).To(Succeed())

		var loopErr error
		Eventually(done).Should(Receive(&loopErr))
		Expect(loopErr).ToNot(HaveOccurred())
		Expect(s.LookupContext(11)).To(BeNil())
	})
})

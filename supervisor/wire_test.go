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

package supervisor

import (
	"encoding/binary"
	"net"
	"os"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hostgfx/render-server/renderer"
	"hostgfx/render-server/transport"
)

func pairedConns() (*transport.Conn, *transport.Conn) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	Expect(err).ToNot(HaveOccurred())

	mk := func(fd int) *transport.Conn {
		f := os.NewFile(uintptr(fd), "sock")
		defer f.Close()
		c, err := net.FileConn(f)
		Expect(err).ToNot(HaveOccurred())
		return transport.New(c.(*net.UnixConn))
	}
	return mk(fds[0]), mk(fds[1])
}

func encodeHandshake(ctxID, capsetID uint32, flags renderer.InitFlags, name string) []byte {
	b := make([]byte, handshakeHeaderSize+len(name))
	binary.LittleEndian.PutUint32(b[0:4], ctxID)
	binary.LittleEndian.PutUint32(b[4:8], capsetID)
	binary.LittleEndian.PutUint32(b[8:12], uint32(flags))
	binary.LittleEndian.PutUint16(b[12:14], uint16(len(name)))
	copy(b[handshakeHeaderSize:], name)
	return b
}

var _ = Describe("Handshake", func() {
	var guest, srv *transport.Conn

	BeforeEach(func() {
		guest, srv = pairedConns()
	})

	AfterEach(func() {
		_ = guest.Close()
		_ = srv.Close()
	})

	It("should decode a well-formed frame", func() {
		Expect(guest.SendRequest(encodeHandshake(42, 3, renderer.FlagVenus, "glxgears"), nil)).To(Succeed())

		hs, err := readHandshake(srv)
		Expect(err).ToNot(HaveOccurred())
		Expect(hs.CtxID).To(Equal(uint32(42)))
		Expect(hs.CapsetID).To(Equal(uint32(3)))
		Expect(hs.InitFlags).To(Equal(renderer.FlagVenus))
		Expect(hs.Name).To(Equal("glxgears"))
	})

	It("should reject a too-short frame", func() {
		Expect(guest.SendRequest([]byte{1, 2, 3}, nil)).To(Succeed())

		_, err := readHandshake(srv)
		Expect(err).To(HaveOccurred())
	})

	It("should reject ancillary fds on the handshake", func() {
		devNull, err := os.Open(os.DevNull)
		Expect(err).ToNot(HaveOccurred())
		defer devNull.Close()

		Expect(guest.SendRequest(encodeHandshake(1, 0, 0, ""), []int{int(devNull.Fd())})).To(Succeed())

		_, err = readHandshake(srv)
		Expect(err).To(HaveOccurred())
	})

	It("should reject a name length that does not match the frame", func() {
		b := encodeHandshake(1, 0, 0, "abc")
		binary.LittleEndian.PutUint16(b[12:14], 99) // claims 99 name bytes, frame has 3
		Expect(guest.SendRequest(b, nil)).To(Succeed())

		_, err := readHandshake(srv)
		Expect(err).To(HaveOccurred())
	})
})

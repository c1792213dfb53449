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

// Package transport implements the datagram-framed, file-descriptor-passing
// request/reply protocol that the context dispatcher speaks over a single
// Unix stream socket per guest graphics context.
//
// Each call to Send* corresponds to exactly one sendmsg(2); each call to
// Receive* corresponds to exactly one recvmsg(2) (or, for ReceiveBytes, a
// plain read loop with no ancillary data). The peer is expected to keep the
// same 1:1 framing so that file descriptors always arrive attached to the
// frame that declared them, preserving per-connection FIFO ordering and
// frame/fd atomicity.
package transport

import (
	"io"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// MaxFDs is the hard ceiling on ancillary file descriptors per frame.
const MaxFDs = 8

// Conn is a single per-context transport endpoint.
type Conn struct {
	c *net.UnixConn
}

// New wraps an already-connected Unix socket.
func New(c *net.UnixConn) *Conn {
	return &Conn{c: c}
}

// Close closes the underlying socket.
func (t *Conn) Close() error {
	return t.c.Close()
}

// UnixConn exposes the underlying socket so the worker spawner can dup its
// fd into a child via exec.Cmd.ExtraFiles.
func (t *Conn) UnixConn() *net.UnixConn {
	return t.c
}

// SendRequest writes one frame: buf as the payload, and up to MaxFDs fds as
// ancillary SCM_RIGHTS data. This is a single sendmsg(2) call, so the frame
// and its fds are atomic from the peer's point of view.
func (t *Conn) SendRequest(buf []byte, fds []int) error {
	return t.send(buf, fds)
}

// SendReply is identical to SendRequest; kept as a distinct name so call
// sites read as request/reply pairs.
func (t *Conn) SendReply(buf []byte, fds []int) error {
	return t.send(buf, fds)
}

func (t *Conn) send(buf []byte, fds []int) error {
	if len(fds) > MaxFDs {
		return ErrorTooManyFDs.Error()
	}

	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}

	n, oobn, err := t.c.WriteMsgUnix(buf, oob, nil)
	if err != nil {
		return err
	}
	if n != len(buf) || oobn != len(oob) {
		return io.ErrShortWrite
	}
	return nil
}

// ReceiveRequest reads exactly one frame. It returns io.EOF on a clean peer
// close. If the frame carries more fds than maxFDs, every fd it delivered
// is closed and an error is returned — the caller must terminate the
// connection.
func (t *Conn) ReceiveRequest(maxSize int, maxFDs int) (payload []byte, fds []int, err error) {
	if maxFDs > MaxFDs {
		maxFDs = MaxFDs
	}

	buf := make([]byte, maxSize)
	oob := make([]byte, unix.CmsgSpace(maxFDs*4))

	n, oobn, flags, _, err := t.c.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, nil, err
	}
	if n == 0 && oobn == 0 {
		return nil, nil, io.EOF
	}
	if flags&unix.MSG_TRUNC != 0 || flags&unix.MSG_CTRUNC != 0 {
		if got, perr := parseRights(oob[:oobn]); perr == nil {
			closeAll(got)
		}
		return nil, nil, ErrorShortFrame.Error()
	}

	fds, err = parseRights(oob[:oobn])
	if err != nil {
		return nil, nil, err
	}
	if len(fds) > maxFDs {
		closeAll(fds)
		return nil, nil, ErrorTooManyFDs.Error()
	}

	return buf[:n], fds, nil
}

// ReceiveBytes reads exactly length bytes carrying no ancillary data; used
// only to read the out-of-band tail of an oversized command submission. A
// short read is fatal to the connection.
func (t *Conn) ReceiveBytes(length int) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(t.c, buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, ErrorShortRead.Error()
		}
		return nil, err
	}
	return buf, nil
}

func parseRights(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}

	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}

	var fds []int
	for _, m := range msgs {
		if m.Header.Level != syscall.SOL_SOCKET || m.Header.Type != syscall.SCM_RIGHTS {
			continue
		}
		rights, err := unix.ParseUnixRights(&m)
		if err != nil {
			closeAll(fds)
			return nil, err
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}

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

	"golang.org/x/sys/unix"

	"hostgfx/render-server/renderer"
	"hostgfx/render-server/transport"
)

// handshakeHeaderSize is { ctx_id: u32, capset_id: u32, init_flags: u32,
// name_len: u16 }; the guest application name, if any, follows as the
// frame's remaining bytes. The proxy opens every per-context connection
// with exactly one such frame, carried over the same stream socket the
// dispatcher later takes over.
const handshakeHeaderSize = 4 + 4 + 4 + 2

// handshakeMaxName bounds the guest application name; 15 bytes is the
// kernel's comm-truncation boundary, so a small multiple of that
// comfortably covers both truncated and full names.
const handshakeMaxName = 128

const handshakeMaxFrame = handshakeHeaderSize + handshakeMaxName

type handshake struct {
	CtxID     uint32
	CapsetID  uint32
	InitFlags renderer.InitFlags
	Name      string
}

// readHandshake reads the single frame a freshly accepted connection must
// open with. It carries no ancillary fds: the shmem and wake-eventfd fds
// arrive later, attached to the worker's own INIT request.
func readHandshake(conn *transport.Conn) (handshake, error) {
	payload, fds, err := conn.ReceiveRequest(handshakeMaxFrame, 0)
	if err != nil {
		return handshake{}, err
	}
	if len(fds) != 0 {
		closeAll(fds)
		return handshake{}, ErrorMalformedHandshake.Error()
	}
	if len(payload) < handshakeHeaderSize {
		return handshake{}, ErrorMalformedHandshake.Error()
	}

	ctxID := binary.LittleEndian.Uint32(payload[0:4])
	capsetID := binary.LittleEndian.Uint32(payload[4:8])
	initFlags := binary.LittleEndian.Uint32(payload[8:12])
	nameLen := binary.LittleEndian.Uint16(payload[12:14])

	if int(nameLen) > handshakeMaxName || handshakeHeaderSize+int(nameLen) != len(payload) {
		return handshake{}, ErrorMalformedHandshake.Error()
	}

	return handshake{
		CtxID:     ctxID,
		CapsetID:  capsetID,
		InitFlags: renderer.InitFlags(initFlags),
		Name:      string(payload[handshakeHeaderSize : handshakeHeaderSize+int(nameLen)]),
	}, nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}

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

// Package dispatch implements the per-worker context dispatcher: it reads
// one framed request at a time from a transport.Conn, validates it against
// a fixed operation table, and calls into the render-state singleton.
// Exiting the read/validate/dispatch loop — on protocol error or EOF — is
// the only way a worker terminates.
package dispatch

import "encoding/binary"

// Op identifies a request; the wire value is the first 4 bytes of every
// frame, host-native byte order — the protocol only runs on little-endian
// Unix-like hosts.
type Op uint32

const (
	OpNop Op = iota
	OpInit
	OpCreateResource
	OpImportResource
	OpDestroyResource
	OpSubmitCmd
	OpSubmitFence
)

func (o Op) String() string {
	switch o {
	case OpNop:
		return "NOP"
	case OpInit:
		return "INIT"
	case OpCreateResource:
		return "CREATE_RESOURCE"
	case OpImportResource:
		return "IMPORT_RESOURCE"
	case OpDestroyResource:
		return "DESTROY_RESOURCE"
	case OpSubmitCmd:
		return "SUBMIT_CMD"
	case OpSubmitFence:
		return "SUBMIT_FENCE"
	default:
		return "UNKNOWN"
	}
}

// headerSize is the fixed 4-byte { op: u32 } envelope header.
const headerSize = 4

// MergeableFlag is the only bit SUBMIT_FENCE's flag field may carry.
const MergeableFlag uint32 = 1

func readOp(b []byte) (Op, error) {
	if len(b) < headerSize {
		return 0, errShortHeader
	}
	return Op(binary.LittleEndian.Uint32(b[:headerSize])), nil
}

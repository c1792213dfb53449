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

package dispatch

import "encoding/binary"

// Fixed on-wire body sizes, excluding the 4-byte op header. SUBMIT_CMD's
// body is a fixed 8-byte sub-header followed by a variable inline tail;
// its entry here covers only the sub-header.
const (
	bodySizeNop             = 0
	bodySizeInit            = 4          // shmem_size (u32); timeline count is derived as floor(shmem_size/4)
	bodySizeCreateResource  = 4 + 8      // res_id (u32), size (u64)
	bodySizeImportResource  = 4 + 4 + 8  // res_id (u32), fd_type (u32), size (u64)
	bodySizeDestroyResource = 4          // res_id (u32)
	bodySizeSubmitCmdHeader = 4 + 4      // total_size (u32), inline_len (u32)
	bodySizeSubmitFence     = 4 + 4 + 8  // ring_idx (u32), flags (u32), fence_id (u64)
)

// maxFDsFor is the per-operation ceiling on ancillary fds.
func maxFDsFor(op Op) int {
	switch op {
	case OpInit:
		return 2
	case OpImportResource:
		return 1
	default:
		return 0
	}
}

type initBody struct {
	ShmemSize uint32
}

func parseInitBody(b []byte) initBody {
	return initBody{ShmemSize: binary.LittleEndian.Uint32(b[0:4])}
}

type createResourceBody struct {
	ResID uint32
	Size  uint64
}

func parseCreateResourceBody(b []byte) createResourceBody {
	return createResourceBody{
		ResID: binary.LittleEndian.Uint32(b[0:4]),
		Size:  binary.LittleEndian.Uint64(b[4:12]),
	}
}

type importResourceBody struct {
	ResID  uint32
	FdType uint32
	Size   uint64
}

func parseImportResourceBody(b []byte) importResourceBody {
	return importResourceBody{
		ResID:  binary.LittleEndian.Uint32(b[0:4]),
		FdType: binary.LittleEndian.Uint32(b[4:8]),
		Size:   binary.LittleEndian.Uint64(b[8:16]),
	}
}

type destroyResourceBody struct {
	ResID uint32
}

func parseDestroyResourceBody(b []byte) destroyResourceBody {
	return destroyResourceBody{ResID: binary.LittleEndian.Uint32(b[0:4])}
}

type submitCmdHeader struct {
	TotalSize uint32
	InlineLen uint32
}

func parseSubmitCmdHeader(b []byte) submitCmdHeader {
	return submitCmdHeader{
		TotalSize: binary.LittleEndian.Uint32(b[0:4]),
		InlineLen: binary.LittleEndian.Uint32(b[4:8]),
	}
}

type submitFenceBody struct {
	RingIdx uint32
	Flags   uint32
	FenceID uint64
}

func parseSubmitFenceBody(b []byte) submitFenceBody {
	return submitFenceBody{
		RingIdx: binary.LittleEndian.Uint32(b[0:4]),
		Flags:   binary.LittleEndian.Uint32(b[4:8]),
		FenceID: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// createResourceReply is always sent for CREATE_RESOURCE, success or not.
type createResourceReply struct {
	ResID    uint32
	FdType   uint32
	Size     uint64
	MapCache uint32
	OK       uint32
}

func (r createResourceReply) marshal() []byte {
	buf := make([]byte, 4+4+8+4+4)
	binary.LittleEndian.PutUint32(buf[0:4], r.ResID)
	binary.LittleEndian.PutUint32(buf[4:8], r.FdType)
	binary.LittleEndian.PutUint64(buf[8:16], r.Size)
	binary.LittleEndian.PutUint32(buf[16:20], r.MapCache)
	binary.LittleEndian.PutUint32(buf[20:24], r.OK)
	return buf
}

// statusReply is the generic one-word success/failure reply used by ops
// that do not otherwise carry data back to the guest.
type statusReply struct {
	OK uint32
}

func (r statusReply) marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, r.OK)
	return buf
}

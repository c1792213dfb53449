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

import (
	"context"
	"io"

	"golang.org/x/sys/unix"

	"hostgfx/render-server/logger"
	"hostgfx/render-server/rctx"
	"hostgfx/render-server/render"
	"hostgfx/render-server/renderer"
	"hostgfx/render-server/transport"
)

// DefaultInlineCmdCap is the number of SUBMIT_CMD body bytes carried
// inline before the remainder is read out-of-band via ReceiveBytes.
const DefaultInlineCmdCap = 4096

// maxFrameSize bounds ReceiveRequest's read buffer; large enough for the
// largest fixed body plus the inline command cap.
const maxFrameSize = headerSize + bodySizeSubmitCmdHeader + DefaultInlineCmdCap + 4096

// Loop runs the per-context dispatcher: read one frame, validate,
// dispatch, repeat. It returns nil on a clean peer close and non-nil on
// any protocol or receive failure; either way the worker terminates.
func Loop(ctx context.Context, conn *transport.Conn, s *render.Singleton, c *rctx.Context, inlineCap int, log logger.FuncLog) error {
	if log == nil {
		log = func() logger.Logger { return logger.NilLogger() }
	}
	if inlineCap <= 0 {
		inlineCap = DefaultInlineCmdCap
	}

	initialized := false

	for {
		payload, fds, err := conn.ReceiveRequest(maxFrameSize, 2)
		if err != nil {
			if err == io.EOF {
				// Clean peer close is the one non-error way out of the loop.
				return nil
			}
			return err
		}

		op, err := readOp(payload)
		if err != nil {
			closeAll(fds)
			return err
		}

		if err := checkFDCount(op, len(fds)); err != nil {
			closeAll(fds)
			return err
		}

		body := payload[headerSize:]

		switch op {
		case OpNop:
			if len(body) != bodySizeNop {
				closeAll(fds)
				return ErrorBadBodySize.Error()
			}
			if err := conn.SendReply(statusReply{OK: 1}.marshal(), nil); err != nil {
				return err
			}

		case OpInit:
			if initialized {
				closeAll(fds)
				return ErrorAlreadyInitialized.Error()
			}
			if len(body) != bodySizeInit {
				closeAll(fds)
				return ErrorBadBodySize.Error()
			}
			req := parseInitBody(body)

			shmemFd := fds[0]
			eventFd := -1
			if len(fds) == 2 {
				eventFd = fds[1]
			}

			if err := c.Bind(shmemFd, int(req.ShmemSize), eventFd); err != nil {
				closeAll(fds)
				return err
			}
			if err := s.CreateContext(ctx, c.ID, c.CapsetID, c.Name); err != nil {
				return err
			}
			s.AddContext(c)
			initialized = true

			if err := conn.SendReply(statusReply{OK: 1}.marshal(), nil); err != nil {
				return err
			}

		case OpCreateResource:
			if !initialized {
				closeAll(fds)
				return ErrorNotInitialized.Error()
			}
			if len(body) != bodySizeCreateResource {
				closeAll(fds)
				return ErrorBadBodySize.Error()
			}
			req := parseCreateResourceBody(body)

			res, cerr := s.CreateResource(ctx, c.ID, renderer.ResourceID(req.ResID), req.Size)
			if cerr != nil {
				log().Warning("create_resource ctx=%d res=%d failed: %v", c.ID, req.ResID, cerr)
				reply := createResourceReply{ResID: req.ResID, FdType: uint32(renderer.FDInvalid), OK: 0}
				if err := conn.SendReply(reply.marshal(), nil); err != nil {
					return err
				}
				continue
			}

			reply := createResourceReply{
				ResID:    uint32(res.ID),
				FdType:   uint32(res.FdType),
				Size:     res.Size,
				MapCache: uint32(res.MapCache),
				OK:       1,
			}
			sendErr := conn.SendReply(reply.marshal(), []int{res.Fd})
			closeOwnCopy(res.Fd)
			if sendErr != nil {
				return sendErr
			}

		case OpImportResource:
			if !initialized {
				closeAll(fds)
				return ErrorNotInitialized.Error()
			}
			if len(body) != bodySizeImportResource {
				closeAll(fds)
				return ErrorBadBodySize.Error()
			}
			if len(fds) != 1 {
				closeAll(fds)
				return ErrorImportNeedsOneFD.Error()
			}
			req := parseImportResourceBody(body)

			spec := renderer.ImportSpec{
				Fd:     fds[0],
				FdType: renderer.FDType(req.FdType),
				Size:   req.Size,
			}
			ok := uint32(1)
			if err := s.ImportResource(ctx, c.ID, renderer.ResourceID(req.ResID), spec); err != nil {
				log().Warning("import_resource ctx=%d res=%d failed: %v", c.ID, req.ResID, err)
				closeOwnCopy(fds[0])
				ok = 0
			}
			if err := conn.SendReply(statusReply{OK: ok}.marshal(), nil); err != nil {
				return err
			}

		case OpDestroyResource:
			if !initialized {
				closeAll(fds)
				return ErrorNotInitialized.Error()
			}
			if len(body) != bodySizeDestroyResource {
				closeAll(fds)
				return ErrorBadBodySize.Error()
			}
			req := parseDestroyResourceBody(body)

			ok := uint32(1)
			if err := s.DestroyResource(ctx, c.ID, renderer.ResourceID(req.ResID)); err != nil {
				log().Warning("destroy_resource ctx=%d res=%d failed: %v", c.ID, req.ResID, err)
				ok = 0
			}
			if err := conn.SendReply(statusReply{OK: ok}.marshal(), nil); err != nil {
				return err
			}

		case OpSubmitFence:
			if !initialized {
				closeAll(fds)
				return ErrorNotInitialized.Error()
			}
			if len(body) != bodySizeSubmitFence {
				closeAll(fds)
				return ErrorBadBodySize.Error()
			}
			req := parseSubmitFenceBody(body)

			if int(req.RingIdx) >= c.TimelineCount() {
				return ErrorRingIndexOutOfRange.Error()
			}
			if req.Flags&^MergeableFlag != 0 {
				return ErrorBadFenceFlags.Error()
			}

			ok := uint32(1)
			mergeable := req.Flags&MergeableFlag != 0
			if err := s.SubmitFence(ctx, c.ID, uint8(req.RingIdx), req.FenceID, mergeable); err != nil {
				log().Warning("submit_fence ctx=%d ring=%d failed: %v", c.ID, req.RingIdx, err)
				ok = 0
			}
			if err := conn.SendReply(statusReply{OK: ok}.marshal(), nil); err != nil {
				return err
			}

		case OpSubmitCmd:
			if !initialized {
				closeAll(fds)
				return ErrorNotInitialized.Error()
			}
			if len(body) < bodySizeSubmitCmdHeader {
				closeAll(fds)
				return ErrorBadBodySize.Error()
			}
			hdr := parseSubmitCmdHeader(body)
			inline := body[bodySizeSubmitCmdHeader:]
			if int(hdr.InlineLen) != len(inline) || int(hdr.InlineLen) > inlineCap {
				return ErrorBadBodySize.Error()
			}

			var cmd []byte
			if int(hdr.TotalSize) <= len(inline) {
				cmd = inline[:hdr.TotalSize]
			} else {
				buf, allocated := tryAlloc(int(hdr.TotalSize))
				if !allocated {
					// Allocation failure is not a protocol error: return
					// success without submitting and keep the connection
					// alive for the next request.
					if err := conn.SendReply(statusReply{OK: 1}.marshal(), nil); err != nil {
						return err
					}
					continue
				}
				copy(buf, inline)
				tail, err := conn.ReceiveBytes(int(hdr.TotalSize) - len(inline))
				if err != nil {
					return ErrorReceiveTailFailed.Error(err)
				}
				copy(buf[len(inline):], tail)
				cmd = buf
			}

			ok := uint32(1)
			if err := s.SubmitCmd(ctx, c.ID, cmd); err != nil {
				log().Warning("submit_cmd ctx=%d failed: %v", c.ID, err)
				ok = 0
			}
			if err := conn.SendReply(statusReply{OK: ok}.marshal(), nil); err != nil {
				return err
			}

		default:
			closeAll(fds)
			return ErrorUnknownOp.Error()
		}
	}
}

func checkFDCount(op Op, n int) error {
	max := maxFDsFor(op)
	if op == OpInit {
		if n != 1 && n != 2 {
			return ErrorTooManyFDs.Error()
		}
		return nil
	}
	if n > max {
		return ErrorTooManyFDs.Error()
	}
	return nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		closeOwnCopy(fd)
	}
}

func closeOwnCopy(fd int) {
	_ = unix.Close(fd)
}

// tryAlloc allocates n bytes, reporting failure instead of letting the
// runtime's out-of-memory panic bring the whole worker down. SUBMIT_CMD is
// the one op where allocation failure is a recoverable, non-protocol
// error: the worker keeps the connection alive and simply drops the
// command.
func tryAlloc(n int) (buf []byte, ok bool) {
	defer func() {
		if recover() != nil {
			buf, ok = nil, false
		}
	}()
	return make([]byte, n), true
}

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
	"context"

	"hostgfx/render-server/dispatch"
	liberr "hostgfx/render-server/errors"
	"hostgfx/render-server/logger"
	"hostgfx/render-server/rctx"
	"hostgfx/render-server/render"
	"hostgfx/render-server/renderer"
	"hostgfx/render-server/transport"
	"hostgfx/render-server/worker"
)

// RunContext is the dispatch-loop body a worker runs for exactly one guest
// graphics context, from handshake to teardown. It is shared by the two
// places a worker's entry point actually executes: a goroutine for thread
// backing (sharing the supervisor's own *render.Singleton) and a re-exec'd
// subprocess child (cmd/render-server builds its own fresh, unthreaded
// Singleton, since it runs in its own address space). Exactly one caller
// per Singleton may ever race CreateContext/DestroyContext for a given
// ctxID, so in subprocess backings s is unique to this call.
//
// singleProcess must be true only when this call is the sole context a
// process will ever run (subprocess/sandboxed backing); it gates the
// environment export in rctx.ExportNameEnv, which would otherwise race
// between the many contexts a thread-backed worker runs in one process.
// debug gates rctx.SetDebugThreadName.
func RunContext(ctx context.Context, s *render.Singleton, flags renderer.InitFlags, inlineCap int, data worker.ThreadData, conn *transport.Conn, log logger.FuncLog, singleProcess bool, debug bool) error {
	if log == nil {
		log = func() logger.Logger { return logger.NilLogger() }
	}

	if err := s.Init(flags); err != nil {
		_ = conn.Close()
		return err
	}
	defer s.Fini()

	rc := rctx.New(data.CtxID, data.CapsetID, conn, data.Name)

	if singleProcess {
		if err := rctx.ExportNameEnv(rc.Name); err != nil {
			log().Warning("context ctx=%d: export %s failed: %v", rc.ID, rctx.EnvContextName, err)
		}
	}
	if debug {
		if err := rctx.SetDebugThreadName(rc.Name); err != nil {
			log().Warning("context ctx=%d: set thread name failed: %v", rc.ID, err)
		}
	}

	loopErr := dispatch.Loop(ctx, conn, s, rc, inlineCap, log)

	// The renderer-side context only exists if the INIT op's CreateContext
	// call actually succeeded (dispatch.Loop's AddContext call runs right
	// after it); a worker that never got past the handshake, or whose INIT
	// failed, has nothing to tear down here beyond its own fds.
	if s.LookupContext(rc.ID) != nil {
		if err := s.DestroyContext(ctx, rc.ID); err != nil {
			log().Warning("destroy_context ctx=%d: %v", rc.ID, err)
		}
		s.RemoveContext(rc.ID)
	}

	if err := rc.Close(); err != nil {
		log().Warning("context ctx=%d teardown: %v", rc.ID, err)
	}

	switch {
	case loopErr == nil:
		log().Debug("context ctx=%d closed cleanly", rc.ID)
	case liberr.IsFatal(loopErr):
		log().Warning("context ctx=%d ended on fatal error: %v", rc.ID, loopErr)
	default:
		log().Info("context ctx=%d ended: %v", rc.ID, loopErr)
	}

	return loopErr
}

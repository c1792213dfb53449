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

// Command render-server is the proxy-facing entry point: it either runs the
// supervisor that listens on the context socket, or — when re-exec'd by
// worker.Create — runs a single worker's dispatch loop and exits.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"

	"hostgfx/render-server/config"
	"hostgfx/render-server/ioutils/fileDescriptor"
	"hostgfx/render-server/jail"
	"hostgfx/render-server/logger"
	"hostgfx/render-server/render"
	"hostgfx/render-server/renderer"
	"hostgfx/render-server/supervisor"
	"hostgfx/render-server/transport"
	"hostgfx/render-server/worker"
)

func main() {
	if worker.IsReExecChild() {
		if err := runChild(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := runSupervisor(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runChild is what a re-exec'd worker subprocess actually executes. It
// rebuilds its Config from argv exactly as the supervisor parent did — a
// re-exec'd child inherits no in-memory state, only argv and environment
// (see worker.Create's doc comment) — then drives its own unshared,
// unthreaded render.Singleton through worker.RunChild.
func runChild() error {
	v := spfvpr.New()
	cmd := &spfcbr.Command{Use: "render-server"}
	if err := config.BindFlags(cmd, v); err != nil {
		return err
	}
	if err := cmd.ParseFlags(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log := newLogFunc(cfg)
	r, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	singleton := render.New(r, false, log)
	flags := cfg.RendererFlags()
	debug := logger.ParseLevel(cfg.LogLevel) == logger.DebugLevel

	entry := func(ctx context.Context, data worker.ThreadData, conn *transport.Conn) error {
		return supervisor.RunContext(ctx, singleton, flags, cfg.InlineCmdCap, data, conn, log, true, debug)
	}

	return worker.RunChild(entry)
}

// runSupervisor builds the cobra/viper root command the supervisor process
// runs under.
func runSupervisor() error {
	v := spfvpr.New()

	cmd := &spfcbr.Command{
		Use:           "render-server",
		Short:         "isolate a GPU render backend behind a per-context command protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *spfcbr.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	if err := config.BindFlags(cmd, v); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.SetContext(ctx)
	return cmd.Execute()
}

func serve(ctx context.Context, cfg config.Config) error {
	log := newLogFunc(cfg)

	if cur, max, err := fileDescriptor.SystemFileDescriptor(cfg.MaxOpenFiles); err != nil {
		log().Warning("raising RLIMIT_NOFILE to %d failed: %v", cfg.MaxOpenFiles, err)
	} else {
		log().Info("RLIMIT_NOFILE soft=%d hard=%d", cur, max)
	}

	backing, err := cfg.WorkerBacking()
	if err != nil {
		return err
	}

	jl, err := buildJail(cfg)
	if err != nil {
		return err
	}

	var singleton *render.Singleton
	if backing == worker.BackingThread {
		r, err := newRenderer(cfg)
		if err != nil {
			return err
		}
		singleton = render.New(r, true, log)
	}

	ln, err := listen(cfg)
	if err != nil {
		return err
	}

	sv := supervisor.New(ln, supervisor.Config{
		Backing:       backing,
		Jail:          jl,
		RendererFlags: cfg.RendererFlags(),
		InlineCmdCap:  cfg.InlineCmdCap,
		Singleton:     singleton,
		CapsetAllow:   cfg.CapsetAllow,
		Debug:         logger.ParseLevel(cfg.LogLevel) == logger.DebugLevel,
		Log:           log,
	})

	log().Info("render-server listening on %s (backing=%s)", cfg.SocketPath, cfg.Backing)
	return sv.Serve(ctx)
}

func listen(cfg config.Config) (*net.UnixListener, error) {
	_ = os.Remove(cfg.SocketPath)

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: cfg.SocketPath, Net: "unix"})
	if err != nil {
		return nil, supervisor.ErrorListenFailed.Error(err)
	}
	if err := os.Chmod(cfg.SocketPath, cfg.SocketPerm.FileMode()); err != nil {
		_ = ln.Close()
		return nil, supervisor.ErrorListenFailed.Error(err)
	}
	return ln, nil
}

func buildJail(cfg config.Config) (jail.Jail, error) {
	if cfg.Backing != config.BackingSandboxed {
		return jail.Jail{}, nil
	}
	if cfg.JailBPFFile != "" {
		prog, err := os.ReadFile(cfg.JailBPFFile)
		if err != nil {
			return jail.Jail{}, err
		}
		return jail.NewRawBPF(prog)
	}
	return jail.NewPolicy(cfg.JailPolicy, cfg.JailPolicyLogOnly)
}

func newRenderer(cfg config.Config) (renderer.Renderer, error) {
	// FakeRenderer is, for now, the only renderer this binary can drive:
	// the real device binding is an external cgo collaborator out of
	// scope for this repository.
	if !cfg.FakeRenderer {
		return nil, config.ErrorNoRealRenderer.Error()
	}
	return renderer.NewFake(), nil
}

func newLogFunc(cfg config.Config) logger.FuncLog {
	lvl := logger.ParseLevel(cfg.LogLevel)
	log := logger.NewWithFormat(lvl, cfg.LogFormat)
	return func() logger.Logger { return log }
}

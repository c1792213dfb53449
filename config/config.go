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

// Package config binds the render server's command-line flags, via
// github.com/spf13/cobra, to a github.com/spf13/viper.Viper instance and
// decodes the result into a single validated Config snapshot per process.
package config

import (
	"hostgfx/render-server/file/perm"
	"hostgfx/render-server/renderer"
	"hostgfx/render-server/worker"
)

// Backing names the worker.Backing a deployment wants, as a config/CLI
// string; Config.WorkerBacking converts it to the worker package's own enum.
type Backing string

const (
	BackingSubprocess Backing = "subprocess"
	BackingSandboxed  Backing = "sandboxed"
	BackingThread     Backing = "thread"
)

// Config is the fully-resolved, validated configuration for one render
// server process. Zero value is not meaningful; use Default as a base.
type Config struct {
	SocketPath string   `mapstructure:"socket_path"`
	SocketPerm perm.Perm `mapstructure:"socket_perm"`

	Backing Backing `mapstructure:"backing"`

	JailBPFFile       string `mapstructure:"jail_bpf_file"`
	JailPolicy        string `mapstructure:"jail_policy"`
	JailPolicyLogOnly bool   `mapstructure:"jail_policy_log_only"`

	// CapsetAllow restricts which capset ids the handshake will accept.
	// Empty means "accept any", matching a deployment with a single
	// capset in use.
	CapsetAllow []uint32 `mapstructure:"capset_allow"`

	DefaultShmemSize int `mapstructure:"default_shmem_size"`
	InlineCmdCap     int `mapstructure:"inline_cmd_cap"`

	MaxOpenFiles int `mapstructure:"max_open_files"`

	// FakeRenderer selects renderer.NewFake as the process's renderer
	// collaborator. The real renderer is a cgo-wrapped external library
	// out of scope for this repository, so this is
	// currently the only renderer this binary can actually drive; the
	// flag still exists so a future real binding has somewhere to hook in.
	FakeRenderer bool `mapstructure:"fake_renderer"`

	VenusSupport bool `mapstructure:"venus_support"`
	NoVirgl      bool `mapstructure:"no_virgl"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns the configuration a freshly-installed deployment gets
// before any flag or config file is applied.
func Default() Config {
	return Config{
		SocketPath:       "/run/render-server/ctx.sock",
		SocketPerm:       perm.Perm(0o660),
		Backing:          BackingSubprocess,
		JailPolicy:       "worker-default",
		DefaultShmemSize: 4096,
		InlineCmdCap:     4096,
		MaxOpenFiles:     65536,
		FakeRenderer:     true,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// WorkerBacking translates the configured Backing into worker.Backing.
func (c Config) WorkerBacking() (worker.Backing, error) {
	switch c.Backing {
	case BackingSubprocess:
		return worker.BackingSubprocess, nil
	case BackingSandboxed:
		return worker.BackingSandboxed, nil
	case BackingThread:
		return worker.BackingThread, nil
	default:
		return 0, ErrorUnknownBacking.Error()
	}
}

// RendererFlags composes the requested (non-mandatory) InitFlags bits;
// render.Singleton.Init always OR's in its own mandatory set on top.
func (c Config) RendererFlags() renderer.InitFlags {
	var f renderer.InitFlags
	if c.VenusSupport {
		f |= renderer.FlagVenus
	}
	if c.NoVirgl {
		f |= renderer.FlagNoVirgl
	}
	return f
}

// Validate rejects a Config that would misbehave at runtime rather than
// failing loudly at a syscall boundary later.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return ErrorMissingSocketPath.Error()
	}
	if _, err := c.WorkerBacking(); err != nil {
		return err
	}
	if c.Backing == BackingSandboxed && c.JailBPFFile == "" && c.JailPolicy == "" {
		return ErrorSandboxedNeedsJail.Error()
	}
	if c.DefaultShmemSize < 0 {
		return ErrorBadShmemSize.Error()
	}
	if c.InlineCmdCap <= 0 {
		return ErrorBadInlineCap.Error()
	}
	return nil
}

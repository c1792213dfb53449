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

package config

import (
	libmap "github.com/go-viper/mapstructure/v2"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"

	"hostgfx/render-server/file/perm"
)

// BindFlags registers every Config field as a persistent flag on cmd and
// binds each one into v, so that CLI flags, environment variables
// (RENDER_SERVER_*), and a config file (if the caller wires one via
// v.SetConfigFile) all resolve through the same viper instance. A re-exec'd
// worker child calls this identically against its own cobra.Command built
// from the same argv (see worker.IsReExecChild), which is how it recovers
// the configuration without inheriting any in-memory state.
func BindFlags(cmd *spfcbr.Command, v *spfvpr.Viper) error {
	d := Default()

	fs := cmd.PersistentFlags()
	fs.String("socket-path", d.SocketPath, "path of the listening context socket")
	fs.String("socket-perm", d.SocketPerm.String(), "octal permission bits for the listening socket")
	fs.String("backing", string(d.Backing), "worker backing: subprocess, sandboxed, or thread")
	fs.String("jail-bpf-file", d.JailBPFFile, "raw classic-BPF seccomp filter file for sandboxed backing")
	fs.String("jail-policy", d.JailPolicy, "named seccomp policy for sandboxed backing")
	fs.Bool("jail-policy-log-only", d.JailPolicyLogOnly, "install the seccomp policy in log-only mode instead of kill")
	fs.StringSlice("capset-allow", nil, "capset ids this server accepts (empty = accept any)")
	fs.Int("default-shmem-size", d.DefaultShmemSize, "shmem size in bytes; only checked to be non-negative, every INIT carries its own shmem size")
	fs.Int("inline-cmd-cap", d.InlineCmdCap, "SUBMIT_CMD inline body byte cap before the out-of-band tail read")
	fs.Int("max-open-files", d.MaxOpenFiles, "RLIMIT_NOFILE soft limit requested at startup")
	fs.Bool("fake-renderer", d.FakeRenderer, "drive renderer.Fake instead of a real device binding")
	fs.Bool("venus-support", d.VenusSupport, "request FlagVenus at renderer Init")
	fs.Bool("no-virgl", d.NoVirgl, "request FlagNoVirgl at renderer Init")
	fs.String("log-level", d.LogLevel, "panic, fatal, error, warning, info, or debug")
	fs.String("log-format", d.LogFormat, "text or json")

	for _, name := range []string{
		"socket-path", "socket-perm", "backing", "jail-bpf-file", "jail-policy",
		"jail-policy-log-only", "capset-allow", "default-shmem-size", "inline-cmd-cap",
		"max-open-files", "fake-renderer", "venus-support", "no-virgl", "log-level", "log-format",
	} {
		if err := v.BindPFlag(mapKey(name), fs.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix("RENDER_SERVER")
	v.AutomaticEnv()
	return nil
}

// mapKey converts a kebab-case flag name to the snake_case mapstructure
// tag Config uses, e.g. "jail-bpf-file" -> "jail_bpf_file".
func mapKey(flag string) string {
	b := []byte(flag)
	for i, c := range b {
		if c == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}

// Load decodes v's current state into a validated Config. perm.ViperDecoderHook
// lets socket_perm arrive as an octal string ("0660") from a flag,
// environment variable, or config file.
func Load(v *spfvpr.Viper) (Config, error) {
	cfg := Default()

	hook := libmap.ComposeDecodeHookFunc(
		perm.ViperDecoderHook(),
		libmap.StringToSliceHookFunc(","),
	)

	if err := v.Unmarshal(&cfg, spfvpr.DecodeHook(hook)); err != nil {
		return Config{}, ErrorDecodeFailed.Error(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

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

package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"

	"hostgfx/render-server/config"
	"hostgfx/render-server/renderer"
)

var _ = Describe("Config", func() {
	Describe("Validate", func() {
		It("should accept the defaults", func() {
			Expect(config.Default().Validate()).To(Succeed())
		})

		It("should reject an empty socket path", func() {
			c := config.Default()
			c.SocketPath = ""
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject an unknown backing", func() {
			c := config.Default()
			c.Backing = config.Backing("bogus")
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should require a jail source for sandboxed backing", func() {
			c := config.Default()
			c.Backing = config.BackingSandboxed
			c.JailPolicy = ""
			c.JailBPFFile = ""
			Expect(c.Validate()).To(HaveOccurred())

			c.JailPolicy = "worker-default"
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("RendererFlags", func() {
		It("should compose the requested bits", func() {
			c := config.Default()
			c.VenusSupport = true
			c.NoVirgl = true

			got := c.RendererFlags()
			Expect(got & renderer.FlagVenus).ToNot(BeZero())
			Expect(got & renderer.FlagNoVirgl).ToNot(BeZero())
		})
	})

	Describe("BindFlags and Load", func() {
		var (
			v   *spfvpr.Viper
			cmd *spfcbr.Command
		)

		BeforeEach(func() {
			v = spfvpr.New()
			cmd = &spfcbr.Command{Use: "render-server"}
			Expect(config.BindFlags(cmd, v)).To(Succeed())
		})

		It("should round-trip CLI flags into a validated Config", func() {
			Expect(cmd.ParseFlags([]string{
				"--socket-path=/tmp/ctx.sock",
				"--socket-perm=0600",
				"--backing=thread",
				"--capset-allow=1,2,3",
			})).To(Succeed())

			cfg, err := config.Load(v)
			Expect(err).ToNot(HaveOccurred())

			Expect(cfg.SocketPath).To(Equal("/tmp/ctx.sock"))
			Expect(cfg.Backing).To(Equal(config.BackingThread))
			Expect(cfg.SocketPerm.String()).To(Equal("0600"))
			Expect(cfg.CapsetAllow).To(Equal([]uint32{1, 2, 3}))
		})

		It("should reject an invalid decoded config", func() {
			Expect(cmd.ParseFlags([]string{"--socket-path="})).To(Succeed())

			_, err := config.Load(v)
			Expect(err).To(HaveOccurred())
		})
	})
})

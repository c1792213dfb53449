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

package render_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hostgfx/render-server/rctx"
	"hostgfx/render-server/render"
	"hostgfx/render-server/renderer"
)

var _ = Describe("Singleton", func() {
	var s *render.Singleton

	BeforeEach(func() {
		s = render.New(renderer.NewFake(), false, nil)
	})

	Describe("Init and Fini", func() {
		It("should reference-count paired calls", func() {
			Expect(s.Init(renderer.FlagVenus)).To(Succeed())
			Expect(s.Init(renderer.FlagVenus)).To(Succeed())

			s.Fini()
			s.Fini()
		})

		It("should reject a re-init with different flags without side effects", func() {
			Expect(s.Init(renderer.FlagVenus)).To(Succeed())
			defer s.Fini()

			Expect(s.Init(renderer.FlagNoVirgl)).To(HaveOccurred())
		})
	})

	Describe("Fence Callback", func() {
		It("should publish low32 of the fence id to the timeline slot", func() {
			Expect(s.Init(0)).To(Succeed())
			defer s.Fini()

			f, err := os.CreateTemp(GinkgoT().TempDir(), "shmem")
			Expect(err).ToNot(HaveOccurred())
			defer f.Close()
			Expect(f.Truncate(16)).To(Succeed())

			c := rctx.New(1, 0, nil, "ctx-1")
			Expect(c.Bind(int(f.Fd()), 16, -1)).To(Succeed())
			defer c.Close()

			s.AddContext(c)
			defer s.RemoveContext(1)

			Expect(s.CreateContext(context.Background(), 1, 0, "ctx-1")).To(Succeed())
			defer s.DestroyContext(context.Background(), 1)

			Expect(s.SubmitFence(context.Background(), 1, 3, 0x1_00000007, false)).To(Succeed())

			got, ok := c.LoadFence(3)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(uint32(0x00000007)))
		})
	})

	Describe("Context Set", func() {
		It("should return nil for an unregistered context id", func() {
			Expect(s.LookupContext(99)).To(BeNil())
		})
	})

	Describe("ImportResource", func() {
		It("should reject an INVALID fd-type before touching the renderer", func() {
			Expect(s.Init(0)).To(Succeed())
			defer s.Fini()

			err := s.ImportResource(context.Background(), 1, 1, renderer.ImportSpec{
				FdType: renderer.FDInvalid,
				Size:   1024,
			})
			Expect(err).To(HaveOccurred())
		})
	})
})

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

package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// thisPkg is this package's own import path, used by getFrame to skip
// frames still inside code.go/errors.go and land on the caller that
// actually constructed the error.
const thisPkg = "hostgfx/render-server/errors"

func getNilFrame() runtime.Frame {
	return runtime.Frame{}
}

// getFrame walks the call stack past this package's own frames and returns
// the first frame belonging to the caller that constructed the error.
func getFrame() runtime.Frame {
	pc := make([]uintptr, 20)
	n := runtime.Callers(2, pc)
	if n == 0 {
		return getNilFrame()
	}

	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, thisPkg) {
			return frame
		}
		if !more {
			break
		}
	}
	return getNilFrame()
}

// formatTrace renders a frame as "file#line", empty if the frame is unset.
func formatTrace(f runtime.Frame) string {
	if f.File == "" {
		return ""
	}
	return fmt.Sprintf("%s#%d", filterPath(f.File), f.Line)
}

// filterPath trims a frame's absolute file path down to its module-relative
// suffix, the same way a build's GOPATH/module cache prefix is stripped.
func filterPath(pathname string) string {
	const marker = "/render-server/"
	if i := strings.LastIndex(pathname, marker); i != -1 {
		return pathname[i+len(marker):]
	}
	return pathname
}

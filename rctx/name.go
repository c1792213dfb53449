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

package rctx

// commTruncationLen is Linux's PR_SET_NAME / /proc/[pid]/comm limit
// (15 visible characters, plus a NUL the kernel does not report back).
const commTruncationLen = 15

// knownFullNames maps a 15-character comm-truncated prefix to the full
// application name it was cut from. Guest drivers report whatever the
// hypervisor handed them verbatim; when that string is exactly the
// truncation boundary, expanding known offenders back to their full name
// keeps per-application renderer tuning (quirks, debug thread names)
// keyed on a stable identifier instead of a truncated fragment.
var knownFullNames = map[string]string{
	"chrome-gpu-proc": "chrome-gpu-process",
	"gnome-shell-way": "gnome-shell-wayland",
	"steam_app_launc": "steam_app_launcher",
	"weston-desktop-": "weston-desktop-shell",
}

// ExpandName undoes a known comm truncation: a name of exactly
// commTruncationLen bytes is looked up in
// knownFullNames; on a match the full name is substituted, otherwise the
// name is returned unchanged.
func ExpandName(name string) string {
	if len(name) != commTruncationLen {
		return name
	}
	if full, ok := knownFullNames[name]; ok {
		return full
	}
	return name
}

// Copyright © 2019 mg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package cycles implements the optional erase-rewrite cycle counter
// stored in the last four bytes of an EEPROM region (spec.md §4.7).
package cycles

import "ispengine/pkg/mem"

// counterBytes is the width of the stored counter.
const counterBytes = 4

// Get reads the cycle counter from the last four bytes of m, big-endian.
// The absent-counter pattern (FF FF xx yy with xx != FF or yy != FF) is
// treated as "never written", returning 0. All four bytes 0xFF is also
// "no counter yet" and returns 0; this asymmetry (the complementary
// pattern xx==FF && yy==FF with the first two bytes unconstrained is not
// specially handled) is preserved verbatim from the reference behavior.
func Get(m *mem.Memory) uint32 {
	if m.Size < counterBytes {
		return 0
	}
	b := m.Buf[m.Size-counterBytes:]
	v1, v2, v3, v4 := b[0], b[1], b[2], b[3]

	if v1 == 0xFF && v2 == 0xFF && (v3 != 0xFF || v4 != 0xFF) {
		return 0
	}
	if v1 == 0xFF && v2 == 0xFF && v3 == 0xFF && v4 == 0xFF {
		return 0
	}
	return uint32(v1)<<24 | uint32(v2)<<16 | uint32(v3)<<8 | uint32(v4)
}

// Put writes n into the last four bytes of m, big-endian.
func Put(m *mem.Memory, n uint32) {
	if m.Size < counterBytes {
		return
	}
	b := m.Buf[m.Size-counterBytes:]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

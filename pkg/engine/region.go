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

package engine

import (
	"context"

	"ispengine/pkg/ispierr"
	"ispengine/pkg/log"
	"ispengine/pkg/part"
	"ispengine/pkg/progress"
)

// bulkEligible reports whether memName is one of the two regions the
// optional paged_load/paged_write capability may take over (spec.md §4.5).
func bulkEligible(memName string) bool {
	return memName == "flash" || memName == "eeprom"
}

func (e *Engine) pageSizeFor(m *part.Part, memName string) int {
	mm := part.LocateMemory(m, memName)
	if mm != nil && mm.Paged {
		return mm.PageSize
	}
	return e.Prog.PageSizeHint()
}

// ReadRegion reads requestedSize bytes (or the whole memory if 0) of
// memName into its buffer (spec.md §4.5 read_region). Returns the number
// of bytes actually read.
func (e *Engine) ReadRegion(ctx context.Context, memName string, requestedSize int, report progress.Func) (int, error) {
	m := part.LocateMemory(e.Part, memName)
	if m == nil {
		return 0, &ispierr.UnknownMemory{Name: memName}
	}

	size := requestedSize
	if size == 0 || size > m.Size {
		size = m.Size
	}

	if e.Prog.HasPagedLoad() && bulkEligible(memName) {
		pageSize := e.pageSizeFor(e.Part, memName)
		if err := e.Prog.PagedLoad(ctx, e.Part, m, pageSize, size); err != nil {
			return 0, err
		}
		progress.Report(report, size, size, memName)
		return size, nil
	}

	for i := 0; i < size; i++ {
		if err := checkCtx(ctx); err != nil {
			return i, err
		}
		v, err := e.ReadByte(ctx, m, i)
		if err != nil {
			return i, err
		}
		m.Buf[i] = v
		progress.Report(report, i+1, size, memName)
	}
	return size, nil
}

// WriteRegion writes wsize = min(requestedSize, mem.size) bytes of memName
// from its buffer (spec.md §4.5 write_region). Per-byte and per-page
// errors are sticky: the region keeps going so every failing address is
// reported, and the first sticky error is returned alongside the byte
// count actually attempted.
func (e *Engine) WriteRegion(ctx context.Context, memName string, requestedSize int, report progress.Func) (int, error) {
	m := part.LocateMemory(e.Part, memName)
	if m == nil {
		return 0, &ispierr.UnknownMemory{Name: memName}
	}

	wsize := requestedSize
	if wsize > m.Size {
		e.logf(log.Warn, "write_region size truncated to memory capacity",
			log.F("mem", memName), log.F("requested", requestedSize), log.F("capacity", m.Size))
		wsize = m.Size
	}

	if e.Prog.HasPagedWrite() && bulkEligible(memName) {
		pageSize := e.pageSizeFor(e.Part, memName)
		if err := e.Prog.PagedWrite(ctx, e.Part, m, pageSize, wsize); err != nil {
			e.leds().Err(true)
			return wsize, err
		}
		progress.Report(report, wsize, wsize, memName)
		return wsize, nil
	}

	var sticky error
	for i := 0; i < wsize; i++ {
		if err := checkCtx(ctx); err != nil {
			return i, err
		}
		if err := e.WriteByte(ctx, m, i, m.Buf[i]); err != nil {
			if sticky == nil {
				sticky = err
			}
			e.leds().Err(true)
		}
		if m.Paged && (i%m.PageSize == m.PageSize-1 || i == wsize-1) {
			if err := e.WritePage(ctx, m, i); err != nil {
				if sticky == nil {
					sticky = err
				}
				e.leds().Err(true)
			}
		}
		progress.Report(report, i+1, wsize, memName)
	}
	return wsize, sticky
}

// VerifyRegion compares memName's buffer across two part images byte by
// byte, stopping at the first mismatch (spec.md §4.5 verify_region).
// reference is typically the "write image", reread the buffer freshly
// populated by a ReadRegion against the device.
func VerifyRegion(reference, reread *part.Part, memName string, size int) (int, error) {
	refMem := part.LocateMemory(reference, memName)
	rrMem := part.LocateMemory(reread, memName)
	if refMem == nil || rrMem == nil {
		return 0, &ispierr.UnknownMemory{Name: memName}
	}

	cmp := size
	vsize := refMem.Size
	if vsize < size {
		log.L(log.Warn, "verify_region size truncated to reference memory size",
			log.F("mem", memName), log.F("requested", size), log.F("reference_size", vsize))
		cmp = vsize
	}

	for i := 0; i < cmp; i++ {
		if refMem.Buf[i] != rrMem.Buf[i] {
			return i, &ispierr.VerifyMismatch{Mem: memName, Addr: i, Expected: refMem.Buf[i], Actual: rrMem.Buf[i]}
		}
	}
	return cmp, nil
}

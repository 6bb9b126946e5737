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
	"errors"

	"ispengine/pkg/ispierr"
	"ispengine/pkg/log"
	"ispengine/pkg/mem"
	"ispengine/pkg/opcode"
)

// maxWriteRetries is the bound on unsuccessful polled-write rechecks
// before a write is declared failed (spec.md §4.4).
const maxWriteRetries = 5

// EncodeOpcode builds the 4-byte command frame for op with the given wire
// address and input data byte: literals first, then address bits, then
// input bits. WriteByte and WritePage build their frames with it.
func EncodeOpcode(op *opcode.Opcode, addr uint32, data byte) [4]byte {
	var cmd [4]byte
	opcode.SetLiterals(op, &cmd)
	opcode.SetAddress(op, &cmd, addr)
	opcode.SetInput(op, &cmd, data)
	return cmd
}

// ReadByte reads one byte from memory m at byte address addr (spec.md §4.4
// read_byte). addr is always a byte address regardless of underlying word
// addressing.
func (e *Engine) ReadByte(ctx context.Context, m *mem.Memory, addr int) (byte, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	if e.Prog.HasByteIO() {
		return e.Prog.ReadByte(ctx, e.Part, m, addr)
	}

	var op *opcode.Opcode
	wireAddr := addr
	if m.HasOp(mem.ReadLo) {
		if addr&1 == 1 {
			op = m.Op(mem.ReadHi)
		} else {
			op = m.Op(mem.ReadLo)
		}
		wireAddr = addr / 2
	} else {
		op = m.Op(mem.Read)
	}
	if op == nil {
		return 0, &ispierr.UnsupportedRead{Mem: m.Name}
	}

	var cmd [4]byte
	opcode.SetLiterals(op, &cmd)
	opcode.SetAddress(op, &cmd, uint32(wireAddr))
	res, err := e.Prog.Cmd(ctx, cmd)
	if err != nil {
		return 0, err
	}
	return opcode.GetOutput(op, &res), nil
}

// canReadback reports whether m supports a readback path at all, i.e.
// whether the polled-write completion policy can verify what it wrote.
func (e *Engine) canReadback(m *mem.Memory) bool {
	return e.Prog.HasByteIO() || m.HasOp(mem.Read) || m.HasOp(mem.ReadLo)
}

// WriteByte writes data to memory m at byte address addr, applying the
// in-place optimization, opcode selection priority, and polled/power-cycle
// completion policy of spec.md §4.4.
func (e *Engine) WriteByte(ctx context.Context, m *mem.Memory, addr int, data byte) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	if e.Prog.HasByteIO() {
		if err := e.Prog.WriteByte(ctx, e.Part, m, addr, data); err != nil {
			return err
		}
		m.Buf[addr] = data
		return nil
	}

	if !m.Paged {
		cur, err := e.ReadByte(ctx, m, addr)
		if err == nil {
			if cur == data {
				return nil
			}
		} else {
			var unsupported *ispierr.UnsupportedRead
			if !errors.As(err, &unsupported) {
				return &ispierr.WriteFailed{Mem: m.Name, Addr: addr, Tries: 0}
			}
			// no read opcode: skip the optimization, fall through to write
		}
	}

	var op *opcode.Opcode
	var kind mem.OpKind
	wireAddr := addr
	switch {
	case m.HasOp(mem.WriteLo):
		if addr&1 == 1 {
			op, kind = m.Op(mem.WriteHi), mem.WriteHi
		} else {
			op, kind = m.Op(mem.WriteLo), mem.WriteLo
		}
		wireAddr = addr / 2
	case m.HasOp(mem.LoadPageLo):
		if addr&1 == 1 {
			op, kind = m.Op(mem.LoadPageHi), mem.LoadPageHi
		} else {
			op, kind = m.Op(mem.LoadPageLo), mem.LoadPageLo
		}
		wireAddr = addr / 2
	default:
		op, kind = m.Op(mem.Write), mem.Write
	}
	if op == nil {
		return &ispierr.UnsupportedWrite{Mem: m.Name}
	}

	cmd := EncodeOpcode(op, uint32(wireAddr), data)
	if _, err := e.Prog.Cmd(ctx, cmd); err != nil {
		return err
	}

	if kind == mem.LoadPageLo || kind == mem.LoadPageHi {
		m.Buf[addr] = data
		return nil
	}

	if !e.canReadback(m) {
		e.sleep(m.MaxWriteDelayUS)
		m.Buf[addr] = data
		return nil
	}

	return e.pollWriteCompletion(ctx, m, addr, data)
}

// pollWriteCompletion implements the failure state machine of spec.md
// §4.9 for a non-paged, readback-capable memory.
func (e *Engine) pollWriteCompletion(ctx context.Context, m *mem.Memory, addr int, data byte) error {
	// A write already on the wire runs to completion: cancellation of ctx
	// is not observed by the readbacks below.
	ctx = context.WithoutCancel(ctx)
	tries := 0
	for {
		e.sleep(m.MinWriteDelayUS)
		v, err := e.ReadByte(ctx, m, addr)
		if err != nil {
			return err
		}

		// The data byte being written, not the readback, is what decides
		// whether the sentinel path applies, and it is re-checked on every
		// poll attempt (spec.md §9 open question, resolved per the
		// reference implementation's observed behavior).
		if m.IsReadbackSentinel(data) {
			e.sleep(m.MaxWriteDelayUS)
			v, err = e.ReadByte(ctx, m, addr)
			if err != nil {
				return err
			}
		}

		if v == data {
			m.Buf[addr] = data
			return nil
		}

		if m.PowerOffAfterWrite {
			e.sleep(m.MaxWriteDelayUS)
			e.logf(log.Warn, "write requires a power cycle to complete",
				log.F("mem", m.Name), log.F("addr", addr))
			if e.Prog.HasVCC() {
				_ = e.Prog.SetPin("vcc", false)
				e.sleep(250000)
				if err := e.Initialize(ctx); err == nil {
					m.Buf[addr] = data
					return nil
				}
			}
			e.leds().Err(true)
			return &ispierr.WriteFailed{Mem: m.Name, Addr: addr, Tries: tries}
		}

		tries++
		if tries > maxWriteRetries {
			e.leds().Err(true)
			return &ispierr.WriteFailed{Mem: m.Name, Addr: addr, Tries: tries}
		}
	}
}

// WritePage commits a page of staged LOADPAGE bytes at byte address addr
// (spec.md §4.4 write_page). addr should be the last byte address written
// into the page (or any address within it); word-addressed memories have
// their wire address halved like every other memory access.
func (e *Engine) WritePage(ctx context.Context, m *mem.Memory, addr int) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	op := m.Op(mem.WritePage)
	if op == nil {
		return &ispierr.UnsupportedPage{Mem: m.Name}
	}
	wireAddr := addr
	if m.WordAddressed() {
		wireAddr = addr / 2
	}
	cmd := EncodeOpcode(op, uint32(wireAddr), 0)
	if _, err := e.Prog.Cmd(ctx, cmd); err != nil {
		return err
	}
	e.sleep(m.MaxWriteDelayUS)
	return nil
}

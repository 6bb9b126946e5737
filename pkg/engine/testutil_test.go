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
	"ispengine/pkg/mem"
	"ispengine/pkg/opcode"
	"ispengine/pkg/part"
)

// spiOpcode builds a toy opcode for tests: cmd[0] carries an 8-bit literal,
// cmd[1]/cmd[2] carry a 16-bit big-endian address, cmd[3] carries the
// 8-bit data byte as dataKind (InputBit, OutputBit, or Ignore for
// commands with no data phase, e.g. WRITEPAGE).
func spiOpcode(literal0 byte, dataKind opcode.Kind) *opcode.Opcode {
	var op opcode.Opcode
	for i := 0; i < 8; i++ {
		op.Bits[24+i] = opcode.CmdBit{Kind: opcode.Literal, Value: (literal0 >> uint(i)) & 1}
	}
	for i := 0; i < 8; i++ {
		op.Bits[16+i] = opcode.CmdBit{Kind: opcode.AddressBit, BitNo: uint8(8 + i)}
	}
	for i := 0; i < 8; i++ {
		op.Bits[8+i] = opcode.CmdBit{Kind: opcode.AddressBit, BitNo: uint8(i)}
	}
	if dataKind != opcode.Ignore {
		for i := 0; i < 8; i++ {
			op.Bits[i] = opcode.CmdBit{Kind: dataKind, BitNo: uint8(i)}
		}
	}
	return &op
}

const (
	litReadLo     = 0x20
	litReadHi     = 0x30
	litWriteLo    = 0x60
	litWriteHi    = 0x70
	litLoadPageLo = 0x40
	litLoadPageHi = 0x50
	litWritePage  = 0x4C
)

// newPagedFlash builds a word-addressed, paged flash memory with
// LOADPAGE_LO/HI, WRITEPAGE, and READ_LO/HI opcodes.
func newPagedFlash(size, pageSize int) *mem.Memory {
	m := mem.New("flash", size)
	m.Paged = true
	m.PageSize = pageSize
	m.NumPages = size / pageSize
	m.MinWriteDelayUS = 1000
	m.MaxWriteDelayUS = 4500
	m.ReadbackSentinels = [2]byte{0x00, 0xFF}
	m.Ops[mem.ReadLo] = spiOpcode(litReadLo, opcode.OutputBit)
	m.Ops[mem.ReadHi] = spiOpcode(litReadHi, opcode.OutputBit)
	m.Ops[mem.LoadPageLo] = spiOpcode(litLoadPageLo, opcode.InputBit)
	m.Ops[mem.LoadPageHi] = spiOpcode(litLoadPageHi, opcode.InputBit)
	m.Ops[mem.WritePage] = spiOpcode(litWritePage, opcode.Ignore)
	return m
}

// newByteEEPROM builds a non-paged, byte-addressed EEPROM memory with
// plain READ/WRITE opcodes (no LO/HI split).
func newByteEEPROM(size int) *mem.Memory {
	m := mem.New("eeprom", size)
	m.MinWriteDelayUS = 1000
	m.MaxWriteDelayUS = 10000
	m.ReadbackSentinels = [2]byte{0x00, 0xFF}
	m.Ops[mem.Read] = spiOpcode(0xA0, opcode.OutputBit)
	m.Ops[mem.Write] = spiOpcode(0xC0, opcode.InputBit)
	return m
}

func newTestPart(memories ...*mem.Memory) *part.Part {
	p := &part.Part{ID: "ATmegaX", ChipEraseDelayUS: 9000, PartOps: map[mem.OpKind]*opcode.Opcode{}}
	for _, m := range memories {
		p.AddMemory(m)
	}
	part.InitializeBuffers(p)
	return p
}

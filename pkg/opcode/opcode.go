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

// Package opcode encodes and decodes the 4-byte serial instruction frames
// that drive an SPI-class in-system programmer. An Opcode is a template of
// 32 CmdBit entries describing, bit by bit, how an abstract operation
// (read/write byte, chip erase, program enable, ...) maps onto the wire.
package opcode

import "strconv"

// Kind identifies what a single instruction bit reflects.
type Kind int

const (
	// Ignore means this wire bit carries no meaning; it is left as zero.
	Ignore Kind = iota
	// Literal means this wire bit is a fixed 0 or 1 baked into the opcode.
	Literal
	// AddressBit means this wire bit carries one bit of the target address.
	AddressBit
	// InputBit means this wire bit carries one bit of the outgoing data byte.
	InputBit
	// OutputBit means this wire bit carries one bit of the incoming data byte.
	OutputBit
)

// CmdBit is one of the 32 positions of an Opcode.
type CmdBit struct {
	Kind  Kind
	Value uint8 // 0 or 1, only meaningful when Kind == Literal
	BitNo uint8 // which address bit (0..31) or data bit (0..7) this reflects
}

// NumBits is the number of CmdBit entries in an Opcode, and the number of
// bits in the 4-byte command/response frame it describes.
const NumBits = 32

// Opcode is the per-operation 32-bit instruction template. Bits[0] is the
// LSB of the fourth (last) command byte; Bits[31] is the MSB of the first.
type Opcode struct {
	Bits [NumBits]CmdBit
}

// byteBit maps instruction-bit index i (0..31) to the byte index (0..3) and
// bit-within-byte (0..7) it lives at, per the wire-exact convention in
// spec.md §4.1: index i lives in byte 3-(i/8) at bit i%8.
func byteBit(i int) (byteIdx, bit int) {
	return 3 - i/8, i % 8
}

// SetLiterals clears cmd and then sets every Literal CmdBit of op into it.
// Non-literal positions are left at zero; callers apply SetAddress/SetInput
// afterward to fill those in.
func SetLiterals(op *Opcode, cmd *[4]byte) {
	for i := range cmd {
		cmd[i] = 0
	}
	for i := 0; i < NumBits; i++ {
		cb := op.Bits[i]
		if cb.Kind != Literal || cb.Value == 0 {
			continue
		}
		bi, bit := byteBit(i)
		cmd[bi] |= 1 << uint(bit)
	}
}

// SetAddress projects the bits of addr named by every AddressBit CmdBit of
// op into the corresponding positions of cmd.
func SetAddress(op *Opcode, cmd *[4]byte, addr uint32) {
	for i := 0; i < NumBits; i++ {
		cb := op.Bits[i]
		if cb.Kind != AddressBit {
			continue
		}
		bi, bit := byteBit(i)
		if addr&(1<<uint(cb.BitNo)) != 0 {
			cmd[bi] |= 1 << uint(bit)
		} else {
			cmd[bi] &^= 1 << uint(bit)
		}
	}
}

// SetInput projects the bits of data named by every InputBit CmdBit of op
// into the corresponding positions of cmd.
func SetInput(op *Opcode, cmd *[4]byte, data uint8) {
	for i := 0; i < NumBits; i++ {
		cb := op.Bits[i]
		if cb.Kind != InputBit {
			continue
		}
		bi, bit := byteBit(i)
		if data&(1<<uint(cb.BitNo)) != 0 {
			cmd[bi] |= 1 << uint(bit)
		} else {
			cmd[bi] &^= 1 << uint(bit)
		}
	}
}

// GetOutput reads every OutputBit position out of res and assembles the
// data byte they describe. Bits of the result not covered by any OutputBit
// stay zero.
func GetOutput(op *Opcode, res *[4]byte) uint8 {
	var data uint8
	for i := 0; i < NumBits; i++ {
		cb := op.Bits[i]
		if cb.Kind != OutputBit {
			continue
		}
		bi, bit := byteBit(i)
		if res[bi]&(1<<uint(bit)) != 0 {
			data |= 1 << uint(cb.BitNo)
		}
	}
	return data
}

// Validate checks the Opcode invariants from spec.md §3: at most one bit
// per source-bit-number for INPUT_BIT/OUTPUT_BIT kinds, and unique
// AddressBit indices.
func (op *Opcode) Validate() error {
	seenInput := map[uint8]bool{}
	seenOutput := map[uint8]bool{}
	seenAddr := map[uint8]bool{}
	for i := 0; i < NumBits; i++ {
		cb := op.Bits[i]
		switch cb.Kind {
		case InputBit:
			if seenInput[cb.BitNo] {
				return &DuplicateBitError{Kind: "input", BitNo: cb.BitNo}
			}
			seenInput[cb.BitNo] = true
		case OutputBit:
			if seenOutput[cb.BitNo] {
				return &DuplicateBitError{Kind: "output", BitNo: cb.BitNo}
			}
			seenOutput[cb.BitNo] = true
		case AddressBit:
			if seenAddr[cb.BitNo] {
				return &DuplicateBitError{Kind: "address", BitNo: cb.BitNo}
			}
			seenAddr[cb.BitNo] = true
		}
	}
	return nil
}

// DuplicateBitError reports an Opcode that assigns the same source bit
// number to more than one instruction position.
type DuplicateBitError struct {
	Kind  string
	BitNo uint8
}

func (e *DuplicateBitError) Error() string {
	return "opcode: duplicate " + e.Kind + " bit number " + strconv.Itoa(int(e.BitNo))
}

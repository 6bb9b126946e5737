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
	"ispengine/pkg/mem"
	"ispengine/pkg/opcode"
	"ispengine/pkg/part"
	"ispengine/pkg/programmer"
)

// maxResyncAttempts bounds initialize_device's program-enable resync loop
// (spec.md §4.6).
const maxResyncAttempts = 32

// at90s1200ID is the one part whose resync policy skips the echo check
// entirely (spec.md §4.6 resync policy).
const at90s1200ID = "AT90S1200"

// Initialize delegates to the transport's own Initialize capability, which
// is responsible for power-up and program-enable synchronization (spec.md
// §4.6). SPI-class transports implement that capability with
// GenericInitialize below; others (JTAG, UPDI) may do something else
// entirely.
func (e *Engine) Initialize(ctx context.Context) error {
	return e.Prog.Initialize(ctx, e.Part)
}

// GenericInitialize is the reference initialize_device algorithm of
// spec.md §4.6 for any SPI-class transport: assert VCC, pulse RESET, then
// resync PGM_ENABLE. Bit-bang and mock transports use this as their
// Initialize capability.
func GenericInitialize(ctx context.Context, prog programmer.Capability, p *part.Part, sleep Sleeper) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	if prog.HasVCC() {
		_ = prog.SetPin("vcc", true)
		sleep(100000)
	}

	_ = prog.SetPin("sck", false)
	_ = prog.SetPin("reset", false)
	_ = prog.PulsePin("reset")
	sleep(20000)

	if p.ID == at90s1200ID {
		if err := prog.ProgramEnable(ctx, p); err != nil {
			var mismatch *ispierr.PgmEnableFailed
			if !errors.As(err, &mismatch) {
				return err
			}
		}
		return nil
	}

	for attempt := 0; attempt < maxResyncAttempts; attempt++ {
		err := prog.ProgramEnable(ctx, p)
		if err == nil {
			return nil
		}
		var mismatch *ispierr.PgmEnableFailed
		if !errors.As(err, &mismatch) {
			return err
		}
		_ = prog.PulsePin("sck")
	}
	return &ispierr.NotResponding{Attempts: maxResyncAttempts}
}

// cmdSender is the minimal shape GenericProgramEnable/GenericChipErase
// need from a transport: its own Cmd method.
type cmdSender func(ctx context.Context, cmd [4]byte) ([4]byte, error)

// GenericProgramEnable implements the PGM_ENABLE handshake of spec.md §4.3
// for any SPI-class transport: encode the part's PGM_ENABLE opcode,
// transmit it via send, and check that response byte 2 echoes cmd[1].
// Bit-bang and other raw-SPI transports use this as their ProgramEnable.
func GenericProgramEnable(ctx context.Context, send cmdSender, p *part.Part) error {
	op := p.PartOp(mem.PgmEnable)
	if op == nil {
		return &ispierr.UnsupportedOperation{Op: "PGM_ENABLE"}
	}
	var cmd [4]byte
	opcode.SetLiterals(op, &cmd)
	res, err := send(ctx, cmd)
	if err != nil {
		return err
	}
	if res[2] != cmd[1] {
		return &ispierr.PgmEnableFailed{}
	}
	return nil
}

// GenericChipErase implements the CHIP_ERASE primitive of spec.md §4.3:
// encode and transmit the part's CHIP_ERASE opcode, then wait the part's
// chip-erase delay.
func GenericChipErase(ctx context.Context, send cmdSender, sleep Sleeper, p *part.Part) error {
	op := p.PartOp(mem.ChipErase)
	if op == nil {
		return &ispierr.UnsupportedOperation{Op: "CHIP_ERASE"}
	}
	var cmd [4]byte
	opcode.SetLiterals(op, &cmd)
	if _, err := send(ctx, cmd); err != nil {
		return err
	}
	sleep(p.ChipEraseDelayUS)
	return nil
}

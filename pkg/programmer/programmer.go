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

// Package programmer declares the narrow capability set a transport must
// (or may) provide so the core engine can drive it (spec.md §4.3). Every
// optional capability has a default "not supported" implementation via
// Base, which concrete transports embed and selectively override.
package programmer

import (
	"context"

	"ispengine/pkg/ispierr"
	"ispengine/pkg/mem"
	"ispengine/pkg/part"
)

// Capability is the full surface the engine may call on a transport. Most
// transports implement it by embedding Base and overriding only the
// methods they actually support.
type Capability interface {
	// Open acquires the transport; Close releases it. Both must be safe to
	// call even if the other half of the pairing failed.
	Open(ctx context.Context, port string) error
	Close() error

	// Initialize performs device power-up and synchronization.
	Initialize(ctx context.Context, p *part.Part) error
	Enable() error
	Disable() error

	// Cmd transmits one 4-byte SPI instruction and returns the 4-byte
	// response. This is the single mandatory wire primitive for
	// SPI-class programmers.
	Cmd(ctx context.Context, cmd [4]byte) ([4]byte, error)

	ProgramEnable(ctx context.Context, p *part.Part) error
	ChipErase(ctx context.Context, p *part.Part) error

	// Optional capabilities. A transport that does not override one of
	// these (by embedding Base) returns ispierr.NotSupportedByTransport.
	PagedLoad(ctx context.Context, p *part.Part, m *mem.Memory, pageSize, nBytes int) error
	PagedWrite(ctx context.Context, p *part.Part, m *mem.Memory, pageSize, nBytes int) error
	ReadByte(ctx context.Context, p *part.Part, m *mem.Memory, addr int) (byte, error)
	WriteByte(ctx context.Context, p *part.Part, m *mem.Memory, addr int, data byte) error
	ReadSigBytes(ctx context.Context, p *part.Part, m *mem.Memory) ([3]byte, error)

	SetSCKPeriod(seconds float64) error
	SetVTarget(volts float64) error
	SetVARef(volts float64) error
	SetFosc(hz float64) error

	// SetPin and PulsePin drive/read a single named pin directly; used by
	// the session resync loop (spec.md §4.6) and by bit-bang transports.
	SetPin(name string, high bool) error
	PulsePin(name string) error

	LEDs() LEDObserver

	// PageSizeHint is the programmer-declared page size used for non-paged
	// bulk transfers when PagedLoad/PagedWrite is advertised (spec.md §4.5).
	PageSizeHint() int

	// HasRawSPI reports whether Cmd is backed by a real 4-byte SPI frame
	// (true for bit-bang/STK500-class transports) as opposed to a
	// transport (JTAG, UPDI) that only implements ReadByte/WriteByte
	// directly and leaves Cmd unsupported.
	HasRawSPI() bool
	// HasPagedLoad / HasPagedWrite report whether the optimized bulk path
	// is advertised, so engine.ReadRegion/WriteRegion know whether to
	// delegate (spec.md §4.5).
	HasPagedLoad() bool
	HasPagedWrite() bool
	// HasByteIO reports whether ReadByte/WriteByte are transport-native
	// (JTAG/UPDI-style) rather than built from Cmd by the engine.
	HasByteIO() bool
	// HasVCC reports whether a controlled VCC pin exists, enabling the
	// power-cycle path of spec.md §4.4.
	HasVCC() bool
}

// LEDObserver is a tiny side-channel the engine/session call at
// well-defined boundaries (spec.md §9 design notes); purely informational,
// default no-op.
type LEDObserver interface {
	Pgm(on bool)
	Err(on bool)
	Rdy(on bool)
	Vfy(on bool)
}

// NoopLEDs is the default LEDObserver: every call is a no-op.
type NoopLEDs struct{}

func (NoopLEDs) Pgm(bool) {}
func (NoopLEDs) Err(bool) {}
func (NoopLEDs) Rdy(bool) {}
func (NoopLEDs) Vfy(bool) {}

// Base is embedded by concrete transports to get "not supported" defaults
// for every optional capability for free — the function-pointer-struct
// pattern of the original system, mapped onto Go's embedding.
type Base struct{}

func (Base) Open(ctx context.Context, port string) error { return nil }
func (Base) Close() error                                 { return nil }
func (Base) Enable() error                                 { return nil }
func (Base) Disable() error                                { return nil }

func (Base) Cmd(ctx context.Context, cmd [4]byte) ([4]byte, error) {
	return [4]byte{}, &ispierr.NotSupportedByTransport{Cap: "cmd"}
}

func (Base) Initialize(ctx context.Context, p *part.Part) error {
	return &ispierr.NotSupportedByTransport{Cap: "initialize"}
}

func (Base) ProgramEnable(ctx context.Context, p *part.Part) error {
	return &ispierr.NotSupportedByTransport{Cap: "program_enable"}
}

func (Base) ChipErase(ctx context.Context, p *part.Part) error {
	return &ispierr.NotSupportedByTransport{Cap: "chip_erase"}
}

func (Base) PagedLoad(ctx context.Context, p *part.Part, m *mem.Memory, pageSize, nBytes int) error {
	return &ispierr.NotSupportedByTransport{Cap: "paged_load"}
}

func (Base) PagedWrite(ctx context.Context, p *part.Part, m *mem.Memory, pageSize, nBytes int) error {
	return &ispierr.NotSupportedByTransport{Cap: "paged_write"}
}

func (Base) ReadByte(ctx context.Context, p *part.Part, m *mem.Memory, addr int) (byte, error) {
	return 0, &ispierr.NotSupportedByTransport{Cap: "read_byte"}
}

func (Base) WriteByte(ctx context.Context, p *part.Part, m *mem.Memory, addr int, data byte) error {
	return &ispierr.NotSupportedByTransport{Cap: "write_byte"}
}

func (Base) ReadSigBytes(ctx context.Context, p *part.Part, m *mem.Memory) ([3]byte, error) {
	return [3]byte{}, &ispierr.NotSupportedByTransport{Cap: "read_sig_bytes"}
}

func (Base) SetSCKPeriod(seconds float64) error { return &ispierr.NotSupportedByTransport{Cap: "set_sck_period"} }
func (Base) SetVTarget(volts float64) error     { return &ispierr.NotSupportedByTransport{Cap: "set_vtarget"} }
func (Base) SetVARef(volts float64) error       { return &ispierr.NotSupportedByTransport{Cap: "set_varef"} }
func (Base) SetFosc(hz float64) error           { return &ispierr.NotSupportedByTransport{Cap: "set_fosc"} }

func (Base) SetPin(name string, high bool) error { return &ispierr.NotSupportedByTransport{Cap: "set_pin"} }
func (Base) PulsePin(name string) error           { return &ispierr.NotSupportedByTransport{Cap: "pulse_pin"} }

func (Base) LEDs() LEDObserver   { return NoopLEDs{} }
func (Base) PageSizeHint() int   { return 0 }

func (Base) HasRawSPI() bool      { return false }
func (Base) HasPagedLoad() bool   { return false }
func (Base) HasPagedWrite() bool  { return false }
func (Base) HasByteIO() bool      { return false }
func (Base) HasVCC() bool         { return false }

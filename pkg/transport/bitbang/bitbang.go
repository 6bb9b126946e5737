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

// Package bitbang drives a 4-byte SPI-class programming frame over four
// raw GPIO lines (reset, sck, mosi, miso), plus an optional vcc line, by
// toggling each pin directly. It is one concrete programmer.Capability,
// not part of the core engine.
package bitbang

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"

	"ispengine/pkg/engine"
	"ispengine/pkg/ispierr"
	"ispengine/pkg/part"
	"ispengine/pkg/programmer"
)

// Programmer bit-bangs the wire protocol of spec.md §4.1/§4.3 over raw
// gpio.PinIO handles. Reset/SCK/MOSI/MISO are mandatory; VCC is optional
// and enables HasVCC/the power-cycle path of spec.md §4.4.
type Programmer struct {
	programmer.Base

	Reset gpio.PinIO
	SCK   gpio.PinIO
	MOSI  gpio.PinIO
	MISO  gpio.PinIO
	VCC   gpio.PinIO

	// BitDelay separates each SCK edge; real hardware needs this settling
	// time, tests substitute zero.
	BitDelay time.Duration

	PageSize int
}

// New returns a Programmer wired to the given pins. vcc may be nil.
func New(reset, sck, mosi, miso, vcc gpio.PinIO) *Programmer {
	return &Programmer{
		Reset:    reset,
		SCK:      sck,
		MOSI:     mosi,
		MISO:     miso,
		VCC:      vcc,
		BitDelay: time.Microsecond,
	}
}

func (p *Programmer) sleep(us int) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (p *Programmer) settle() {
	if p.BitDelay > 0 {
		time.Sleep(p.BitDelay)
	}
}

func (p *Programmer) Open(ctx context.Context, port string) error {
	if err := p.SCK.Out(gpio.Low); err != nil {
		return &ispierr.TransportIO{Detail: err.Error()}
	}
	if err := p.Reset.Out(gpio.High); err != nil {
		return &ispierr.TransportIO{Detail: err.Error()}
	}
	if err := p.MISO.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return &ispierr.TransportIO{Detail: err.Error()}
	}
	if p.VCC != nil {
		if err := p.VCC.Out(gpio.Low); err != nil {
			return &ispierr.TransportIO{Detail: err.Error()}
		}
	}
	return nil
}

func (p *Programmer) Close() error { return nil }

// Cmd bit-bangs the 4 command bytes MSB-first, byte 0 through byte 3,
// sampling MISO on each SCK high pulse (spec.md §6).
func (p *Programmer) Cmd(ctx context.Context, cmd [4]byte) ([4]byte, error) {
	var res [4]byte
	for byteIdx := 0; byteIdx < 4; byteIdx++ {
		out := cmd[byteIdx]
		var in byte
		for bit := 7; bit >= 0; bit-- {
			level := gpio.Low
			if out&(1<<uint(bit)) != 0 {
				level = gpio.High
			}
			if err := p.MOSI.Out(level); err != nil {
				return res, &ispierr.TransportIO{Detail: err.Error()}
			}
			if err := p.SCK.Out(gpio.High); err != nil {
				return res, &ispierr.TransportIO{Detail: err.Error()}
			}
			p.settle()
			if p.MISO.Read() == gpio.High {
				in |= 1 << uint(bit)
			}
			if err := p.SCK.Out(gpio.Low); err != nil {
				return res, &ispierr.TransportIO{Detail: err.Error()}
			}
			p.settle()
		}
		res[byteIdx] = in
	}
	return res, nil
}

func (p *Programmer) Initialize(ctx context.Context, pt *part.Part) error {
	return engine.GenericInitialize(ctx, p, pt, p.sleep)
}

func (p *Programmer) ProgramEnable(ctx context.Context, pt *part.Part) error {
	return engine.GenericProgramEnable(ctx, p.Cmd, pt)
}

func (p *Programmer) ChipErase(ctx context.Context, pt *part.Part) error {
	return engine.GenericChipErase(ctx, p.Cmd, p.sleep, pt)
}

// SetPin drives one of the named control lines directly: "reset", "sck",
// or "vcc" (if present). Used by the session resync loop of spec.md §4.6.
func (p *Programmer) SetPin(name string, high bool) error {
	pin := p.namedPin(name)
	if pin == nil {
		return &ispierr.NotSupportedByTransport{Cap: "set_pin:" + name}
	}
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := pin.Out(level); err != nil {
		return &ispierr.TransportIO{Detail: err.Error()}
	}
	return nil
}

// PulsePin drives name high, waits BitDelay, then low.
func (p *Programmer) PulsePin(name string) error {
	pin := p.namedPin(name)
	if pin == nil {
		return &ispierr.NotSupportedByTransport{Cap: "pulse_pin:" + name}
	}
	if err := pin.Out(gpio.High); err != nil {
		return &ispierr.TransportIO{Detail: err.Error()}
	}
	p.settle()
	if err := pin.Out(gpio.Low); err != nil {
		return &ispierr.TransportIO{Detail: err.Error()}
	}
	return nil
}

func (p *Programmer) namedPin(name string) gpio.PinIO {
	switch name {
	case "reset":
		return p.Reset
	case "sck":
		return p.SCK
	case "vcc":
		return p.VCC
	default:
		return nil
	}
}

func (p *Programmer) LEDs() programmer.LEDObserver { return programmer.NoopLEDs{} }

func (p *Programmer) HasRawSPI() bool  { return true }
func (p *Programmer) HasVCC() bool     { return p.VCC != nil }
func (p *Programmer) PageSizeHint() int { return p.PageSize }

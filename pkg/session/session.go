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

// Package session brackets one programmer+part pairing from device
// initialization to teardown (spec.md §4.6 Session Lifecycle), composing
// the engine's region I/O with the optional cycle counter.
package session

import (
	"context"

	"ispengine/pkg/cycles"
	"ispengine/pkg/engine"
	"ispengine/pkg/ispierr"
	"ispengine/pkg/mem"
	"ispengine/pkg/part"
	"ispengine/pkg/programmer"
)

// Session is a bracketed sequence of operations against one programmer
// and one part, from Open to Close.
type Session struct {
	Eng *engine.Engine

	// TrackCycles enables the optional erase-rewrite cycle counter stored
	// in the EEPROM's last four bytes (spec.md §4.7).
	TrackCycles bool
}

// Open acquires the transport and runs initialize_device, returning a
// ready Session.
func Open(ctx context.Context, prog programmer.Capability, port string, p *part.Part) (*Session, error) {
	if err := prog.Open(ctx, port); err != nil {
		return nil, err
	}
	eng := engine.New(prog, p)
	if err := eng.Initialize(ctx); err != nil {
		_ = prog.Close()
		return nil, err
	}
	return &Session{Eng: eng}, nil
}

// Close releases the transport.
func (s *Session) Close() error {
	return s.Eng.Prog.Close()
}

// ChipErase implements spec.md §4.6 chip_erase: optionally capture the
// cycle counter before erasing, issue CHIP_ERASE, re-synchronize, then
// persist the incremented counter.
func (s *Session) ChipErase(ctx context.Context) error {
	var eeprom *mem.Memory
	var prior uint32
	if s.TrackCycles {
		eeprom = part.LocateMemory(s.Eng.Part, "eeprom")
		if eeprom != nil {
			if _, err := s.Eng.ReadRegion(ctx, "eeprom", 0, nil); err != nil {
				return err
			}
			prior = cycles.Get(eeprom)
		}
	}

	if err := s.Eng.Prog.ChipErase(ctx, s.Eng.Part); err != nil {
		return err
	}
	if err := s.Eng.Initialize(ctx); err != nil {
		return err
	}

	if s.TrackCycles && eeprom != nil {
		cycles.Put(eeprom, prior+1)
		if _, err := s.Eng.WriteRegion(ctx, "eeprom", eeprom.Size, nil); err != nil {
			return err
		}
	}
	return nil
}

// Signature implements spec.md §4.6 signature: equivalent to
// read_region(part, "signature", 0).
func (s *Session) Signature(ctx context.Context) ([]byte, error) {
	n, err := s.Eng.ReadRegion(ctx, "signature", 0, nil)
	if err != nil {
		return nil, err
	}
	m := part.LocateMemory(s.Eng.Part, "signature")
	if m == nil {
		return nil, &ispierr.UnknownMemory{Name: "signature"}
	}
	return append([]byte(nil), m.Buf[:n]...), nil
}

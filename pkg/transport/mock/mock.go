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

// Package mock is a test-double transport: a flat command/response table
// driven by predicates, standing in for the real bus the way PlainBus
// stands in for a cartridge mapper in the 6502 emulator this engine is
// descended from.
package mock

import (
	"context"

	"ispengine/pkg/engine"
	"ispengine/pkg/ispierr"
	"ispengine/pkg/mem"
	"ispengine/pkg/part"
	"ispengine/pkg/programmer"
)

// Rule answers one possible Cmd call: Match decides whether it applies,
// Respond builds the 4-byte reply.
type Rule struct {
	Match   func(cmd [4]byte) bool
	Respond func(cmd [4]byte) [4]byte
}

// PinEvent records one SetPin call for test assertions.
type PinEvent struct {
	Name string
	High bool
}

// Transport is an in-memory, fully scriptable programmer.Capability.
// Tests populate Rules, ProgramEnableResults, etc. and then drive an
// engine.Engine against it.
type Transport struct {
	programmer.Base

	Rules []Rule
	Calls [][4]byte

	// ProgramEnableResults, if non-nil, is consumed in order by successive
	// ProgramEnable calls (used to script spec.md §8 scenario S5's
	// wrong-echo-then-correct-echo sequence). Each true means "device
	// echoes correctly", false means PgmEnableFailed.
	ProgramEnableResults []bool
	ProgramEnableCalls   int

	PinEvents   []PinEvent
	PulseCounts map[string]int

	RawSPI       bool
	VCCPresent   bool
	ByteIO       bool
	PageSizeHintValue int

	ReadByteFn  func(ctx context.Context, p *part.Part, m *mem.Memory, addr int) (byte, error)
	WriteByteFn func(ctx context.Context, p *part.Part, m *mem.Memory, addr int, data byte) error
	PagedLoadFn  func(ctx context.Context, p *part.Part, m *mem.Memory, pageSize, n int) error
	PagedWriteFn func(ctx context.Context, p *part.Part, m *mem.Memory, pageSize, n int) error

	Sleep engine.Sleeper
}

// New returns a Transport whose Sleep is a no-op, suitable for fast tests.
func New() *Transport {
	return &Transport{
		PulseCounts: map[string]int{},
		Sleep:       func(int) {},
	}
}

// NewEchoing returns a Transport pre-loaded with a catch-all Rule that
// echoes cmd[1] into response byte 2, so GenericProgramEnable's handshake
// check always succeeds. It does not model any actual memory contents;
// it exists so command-line tools can demonstrate the session lifecycle
// against the "mock" programmer type without a real device attached.
func NewEchoing() *Transport {
	t := New()
	t.Rules = append(t.Rules, Rule{
		Match: func(cmd [4]byte) bool { return true },
		Respond: func(cmd [4]byte) [4]byte {
			return [4]byte{0, 0, cmd[1], 0}
		},
	})
	return t
}

func (t *Transport) sleep(us int) {
	if t.Sleep != nil {
		t.Sleep(us)
	}
}

func (t *Transport) Open(ctx context.Context, port string) error { return nil }
func (t *Transport) Close() error                                 { return nil }

func (t *Transport) Initialize(ctx context.Context, p *part.Part) error {
	return engine.GenericInitialize(ctx, t, p, t.sleep)
}

func (t *Transport) Cmd(ctx context.Context, cmd [4]byte) ([4]byte, error) {
	t.Calls = append(t.Calls, cmd)
	for _, r := range t.Rules {
		if r.Match(cmd) {
			return r.Respond(cmd), nil
		}
	}
	return [4]byte{}, nil
}

func (t *Transport) ProgramEnable(ctx context.Context, p *part.Part) error {
	if t.ProgramEnableResults != nil {
		idx := t.ProgramEnableCalls
		t.ProgramEnableCalls++
		if idx >= len(t.ProgramEnableResults) || !t.ProgramEnableResults[idx] {
			return &ispierr.PgmEnableFailed{}
		}
		return nil
	}
	return engine.GenericProgramEnable(ctx, t.Cmd, p)
}

func (t *Transport) ChipErase(ctx context.Context, p *part.Part) error {
	return engine.GenericChipErase(ctx, t.Cmd, t.sleep, p)
}

func (t *Transport) SetPin(name string, high bool) error {
	t.PinEvents = append(t.PinEvents, PinEvent{Name: name, High: high})
	return nil
}

func (t *Transport) PulsePin(name string) error {
	t.PulseCounts[name]++
	return nil
}

func (t *Transport) LEDs() programmer.LEDObserver { return programmer.NoopLEDs{} }

func (t *Transport) HasRawSPI() bool     { return t.RawSPI }
func (t *Transport) HasVCC() bool        { return t.VCCPresent }
func (t *Transport) HasByteIO() bool     { return t.ByteIO }
func (t *Transport) HasPagedLoad() bool  { return t.PagedLoadFn != nil }
func (t *Transport) HasPagedWrite() bool { return t.PagedWriteFn != nil }
func (t *Transport) PageSizeHint() int   { return t.PageSizeHintValue }

func (t *Transport) ReadByte(ctx context.Context, p *part.Part, m *mem.Memory, addr int) (byte, error) {
	if t.ReadByteFn != nil {
		return t.ReadByteFn(ctx, p, m, addr)
	}
	return 0, &ispierr.NotSupportedByTransport{Cap: "read_byte"}
}

func (t *Transport) WriteByte(ctx context.Context, p *part.Part, m *mem.Memory, addr int, data byte) error {
	if t.WriteByteFn != nil {
		return t.WriteByteFn(ctx, p, m, addr, data)
	}
	return &ispierr.NotSupportedByTransport{Cap: "write_byte"}
}

func (t *Transport) PagedLoad(ctx context.Context, p *part.Part, m *mem.Memory, pageSize, n int) error {
	if t.PagedLoadFn != nil {
		return t.PagedLoadFn(ctx, p, m, pageSize, n)
	}
	return &ispierr.NotSupportedByTransport{Cap: "paged_load"}
}

func (t *Transport) PagedWrite(ctx context.Context, p *part.Part, m *mem.Memory, pageSize, n int) error {
	if t.PagedWriteFn != nil {
		return t.PagedWriteFn(ctx, p, m, pageSize, n)
	}
	return &ispierr.NotSupportedByTransport{Cap: "paged_write"}
}

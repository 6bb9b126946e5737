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

// Package engine implements the byte, paged, and region I/O layers (D, E,
// F of spec.md §2): read_byte/write_byte built on the opcode engine and a
// programmer capability, paged_load/paged_write delegation, and
// read_region/write_region/verify_region composing them over a whole
// memory.
package engine

import (
	"context"
	"time"

	"ispengine/pkg/log"
	"ispengine/pkg/part"
	"ispengine/pkg/programmer"
)

// Sleeper is the monotonic wait primitive the engine uses for write
// delays, chip-erase delay, and power-cycle delay. Tests substitute a
// fake so scenario timing can be asserted without real elapsed time
// (spec.md §5: "the engine treats elapsed time via a monotonic wait
// primitive; exact µs-level accuracy is not required").
type Sleeper func(us int)

func realSleep(us int) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

// Engine bundles one active session's dependencies: the transport, the
// part it is driving, and the ambient logger/sleeper.
type Engine struct {
	Prog programmer.Capability
	Part *part.Part

	Sleep Sleeper
	Log   log.Logger
}

// New builds an Engine with production defaults (real time.Sleep, the
// package-wide logger).
func New(prog programmer.Capability, p *part.Part) *Engine {
	return &Engine{
		Prog:  prog,
		Part:  p,
		Sleep: realSleep,
	}
}

func (e *Engine) sleep(us int) {
	if e.Sleep != nil {
		e.Sleep(us)
	}
}

func (e *Engine) logf(level log.Level, msg string, fields ...log.Field) {
	if e.Log != nil {
		e.Log.Log(level, msg, fields...)
		return
	}
	log.L(level, msg, fields...)
}

func (e *Engine) leds() programmer.LEDObserver {
	if e.Prog == nil {
		return programmer.NoopLEDs{}
	}
	return e.Prog.LEDs()
}

// checkCtx returns ctx.Err() if the context was already canceled. Region
// loops call this between bytes/pages; it is never consulted inside a
// polled-write wait, matching spec.md §5's "no mid-operation cancellation"
// guarantee for an in-flight polled write.
func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

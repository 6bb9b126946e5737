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

// Package ispierr defines the typed error taxonomy of the programming
// engine (spec.md §7). Every kind is its own exported type so callers can
// use errors.As to recover the structured fields they need.
package ispierr

import "fmt"

// UnknownMemory reports that no memory matched a requested name after
// prefix resolution.
type UnknownMemory struct{ Name string }

func (e *UnknownMemory) Error() string { return fmt.Sprintf("unknown memory %q", e.Name) }

// UnsupportedRead reports that mem has no READ/READ_LO opcode.
type UnsupportedRead struct{ Mem string }

func (e *UnsupportedRead) Error() string { return "unsupported read on memory " + e.Mem }

// UnsupportedWrite reports that mem has no WRITE/WRITE_LO/LOADPAGE_LO opcode.
type UnsupportedWrite struct{ Mem string }

func (e *UnsupportedWrite) Error() string { return "unsupported write on memory " + e.Mem }

// UnsupportedPage reports that mem has no WRITEPAGE opcode.
type UnsupportedPage struct{ Mem string }

func (e *UnsupportedPage) Error() string { return "unsupported page write on memory " + e.Mem }

// UnsupportedOperation reports a request for a part-level operation kind
// the part does not define.
type UnsupportedOperation struct{ Op string }

func (e *UnsupportedOperation) Error() string { return "unsupported operation " + e.Op }

// PgmEnableFailed reports that program-enable never got the expected echo.
type PgmEnableFailed struct{}

func (e *PgmEnableFailed) Error() string { return "program enable failed" }

// NotResponding reports that initialize_device's resync loop exhausted its
// retry budget (spec.md §4.6: 32 attempts).
type NotResponding struct{ Attempts int }

func (e *NotResponding) Error() string {
	return fmt.Sprintf("device not responding after %d attempts", e.Attempts)
}

// WriteFailed reports that a polled byte write never converged within the
// retry budget (spec.md §4.4: more than 5 rechecks).
type WriteFailed struct {
	Mem   string
	Addr  int
	Tries int
}

func (e *WriteFailed) Error() string {
	return fmt.Sprintf("write failed at %s[0x%04x] after %d tries", e.Mem, e.Addr, e.Tries)
}

// VerifyMismatch reports the first byte-address where two memory images
// diverge.
type VerifyMismatch struct {
	Mem      string
	Addr     int
	Expected byte
	Actual   byte
}

func (e *VerifyMismatch) Error() string {
	return fmt.Sprintf("verify mismatch at %s[0x%04x]: expected 0x%02x, got 0x%02x",
		e.Mem, e.Addr, e.Expected, e.Actual)
}

// TransportTimeout reports a transport-level timeout, fatal to the
// in-progress operation.
type TransportTimeout struct{ Detail string }

func (e *TransportTimeout) Error() string { return "transport timeout: " + e.Detail }

// TransportIO reports any other transport-level I/O failure.
type TransportIO struct{ Detail string }

func (e *TransportIO) Error() string { return "transport I/O error: " + e.Detail }

// NotSupportedByTransport is returned by the default Capability stubs
// when an optional method was invoked on a transport that does not
// override it.
type NotSupportedByTransport struct{ Cap string }

func (e *NotSupportedByTransport) Error() string {
	return "capability not supported by transport: " + e.Cap
}

// InvalidConfig reports a configuration tree that violates the structural
// invariants of spec.md §3.
type InvalidConfig struct{ Detail string }

func (e *InvalidConfig) Error() string { return "invalid configuration: " + e.Detail }

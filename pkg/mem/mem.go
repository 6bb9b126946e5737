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

// Package mem describes one memory region of a target part: its size,
// paging, timing, readback sentinels, and the per-operation Opcode map
// that drives it.
package mem

import "ispengine/pkg/opcode"

// OpKind names an abstract memory-level operation the Opcode Engine can
// encode. Not every Memory defines every OpKind.
type OpKind int

const (
	Read OpKind = iota
	Write
	ReadLo
	ReadHi
	WriteLo
	WriteHi
	LoadPageLo
	LoadPageHi
	WritePage
	ChipErase
	PgmEnable
	LoadExtAddr
)

func (k OpKind) String() string {
	switch k {
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case ReadLo:
		return "READ_LO"
	case ReadHi:
		return "READ_HI"
	case WriteLo:
		return "WRITE_LO"
	case WriteHi:
		return "WRITE_HI"
	case LoadPageLo:
		return "LOADPAGE_LO"
	case LoadPageHi:
		return "LOADPAGE_HI"
	case WritePage:
		return "WRITEPAGE"
	case ChipErase:
		return "CHIP_ERASE"
	case PgmEnable:
		return "PGM_ENABLE"
	case LoadExtAddr:
		return "LOAD_EXT_ADDR"
	default:
		return "UNKNOWN"
	}
}

// Memory is one named memory region of a Part: flash, eeprom, lfuse,
// hfuse, efuse, lock, calibration, signature, ...
type Memory struct {
	Name string
	Size int

	Paged    bool
	PageSize int
	NumPages int

	MinWriteDelayUS int
	MaxWriteDelayUS int

	// ReadbackSentinels are two data values whose appearance during a
	// polled readback makes the readback unreliable (spec.md §4.4).
	ReadbackSentinels [2]byte

	// PowerOffAfterWrite marks memories (e.g. some fuse bytes) whose write
	// completion can only be confirmed by power-cycling the target.
	PowerOffAfterWrite bool

	Ops map[OpKind]*opcode.Opcode

	// Buf holds the most recently read, or to-be-written, image of this
	// region. Zero-initialized at construction; length always equals Size.
	Buf []byte
}

// New allocates a Memory with a zeroed buffer of the given size.
func New(name string, size int) *Memory {
	return &Memory{
		Name: name,
		Size: size,
		Ops:  map[OpKind]*opcode.Opcode{},
		Buf:  make([]byte, size),
	}
}

// Op returns the Opcode configured for kind, or nil if this memory does
// not define it.
func (m *Memory) Op(kind OpKind) *opcode.Opcode {
	return m.Ops[kind]
}

// HasOp reports whether kind is configured on this memory.
func (m *Memory) HasOp(kind OpKind) bool {
	_, ok := m.Ops[kind]
	return ok
}

// WordAddressed reports whether this memory uses the LO/HI byte-address
// convention (word-addressed flash), detected by the presence of either
// the read or write LO/HI pair.
func (m *Memory) WordAddressed() bool {
	return m.HasOp(ReadLo) || m.HasOp(LoadPageLo) || m.HasOp(WriteLo)
}

// Duplicate deep-copies m, including a freshly allocated buffer of
// identical size (spec.md §4.2 duplicate_part).
func (m *Memory) Duplicate() *Memory {
	cp := &Memory{
		Name:               m.Name,
		Size:               m.Size,
		Paged:              m.Paged,
		PageSize:           m.PageSize,
		NumPages:           m.NumPages,
		MinWriteDelayUS:    m.MinWriteDelayUS,
		MaxWriteDelayUS:    m.MaxWriteDelayUS,
		ReadbackSentinels:  m.ReadbackSentinels,
		PowerOffAfterWrite: m.PowerOffAfterWrite,
		Ops:                m.Ops, // Opcode templates are immutable, shared by reference
		Buf:                make([]byte, m.Size),
	}
	copy(cp.Buf, m.Buf)
	return cp
}

// IsReadbackSentinel reports whether v equals either of m's two readback
// sentinel bytes.
func (m *Memory) IsReadbackSentinel(v byte) bool {
	return v == m.ReadbackSentinels[0] || v == m.ReadbackSentinels[1]
}

// Validate checks the Memory-level invariants of spec.md §3.
func (m *Memory) Validate() error {
	if len(m.Buf) != m.Size {
		return &InvariantError{Memory: m.Name, Detail: "buffer length does not equal size"}
	}
	if m.HasOp(ReadLo) != m.HasOp(ReadHi) {
		return &InvariantError{Memory: m.Name, Detail: "READ_LO requires READ_HI and vice versa"}
	}
	if m.HasOp(WriteLo) != m.HasOp(WriteHi) {
		return &InvariantError{Memory: m.Name, Detail: "WRITE_LO requires WRITE_HI and vice versa"}
	}
	if m.HasOp(LoadPageLo) != m.HasOp(LoadPageHi) {
		return &InvariantError{Memory: m.Name, Detail: "LOADPAGE_LO requires LOADPAGE_HI and vice versa"}
	}
	if m.Paged {
		if !m.HasOp(LoadPageLo) || !m.HasOp(WritePage) {
			return &InvariantError{Memory: m.Name, Detail: "paged memory requires LOADPAGE_LO/HI and WRITEPAGE"}
		}
		if m.PageSize <= 0 || m.Size%m.PageSize != 0 {
			return &InvariantError{Memory: m.Name, Detail: "page_size does not evenly divide size"}
		}
		if m.NumPages*m.PageSize != m.Size {
			return &InvariantError{Memory: m.Name, Detail: "num_pages*page_size != size"}
		}
	}
	for kind, op := range m.Ops {
		if op == nil {
			continue
		}
		if err := op.Validate(); err != nil {
			return &InvariantError{Memory: m.Name, Detail: kind.String() + ": " + err.Error()}
		}
	}
	return nil
}

// InvariantError reports a Memory that violates one of spec.md §3's
// structural invariants.
type InvariantError struct {
	Memory string
	Detail string
}

func (e *InvariantError) Error() string {
	return "mem " + e.Memory + ": " + e.Detail
}

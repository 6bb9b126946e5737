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

// Package part describes one target MCU type: its identity, capability
// flags, part-level opcodes, and the ordered collection of Memory regions
// it exposes.
package part

import (
	"strings"

	"ispengine/pkg/mem"
	"ispengine/pkg/opcode"
)

// ResetDisposition describes how a part's RESET line behaves.
type ResetDisposition int

const (
	ResetDedicated ResetDisposition = iota
	ResetSharedIO
)

// Capability flags a part may advertise.
type Capability int

const (
	CapSPI Capability = 1 << iota
	CapParallel
	CapPseudoParallel
)

// Part represents one target MCU type. Created by configuration loading,
// immutable thereafter except for the memory buffers inside Memories.
type Part struct {
	ID          string
	Desc        string
	ChipEraseDelayUS int
	Reset       ResetDisposition
	Caps        Capability

	// PartOps maps part-level operation kinds (at minimum PgmEnable and
	// ChipErase) to their Opcode.
	PartOps map[mem.OpKind]*opcode.Opcode

	// Memories is insertion-ordered; at most one entry per Name.
	Memories []*mem.Memory

	// Advanced-programmer device-descriptor fields (parallel/HVSP parts).
	PagelPin     int
	BS2Pin       int
	HasPagelPin  bool
	HasBS2Pin    bool
}

// HasCap reports whether the part advertises capability c.
func (p *Part) HasCap(c Capability) bool {
	return p.Caps&c != 0
}

// PartOp returns the part-level Opcode for kind, or nil.
func (p *Part) PartOp(kind mem.OpKind) *opcode.Opcode {
	return p.PartOps[kind]
}

// AddMemory appends mem to Memories. Callers are responsible for not
// introducing a second memory with the same Name (LocateMemory's
// ambiguity rule would otherwise make neither name resolvable).
func (p *Part) AddMemory(m *mem.Memory) {
	p.Memories = append(p.Memories, m)
}

// LocateMemory returns the unique memory whose Name matches name by
// prefix. If zero or more than one memory matches, it returns nil — this
// ambiguity rule (no tie-break toward an exact match) is part of the
// user-facing contract (spec.md §4.2, §9 open questions).
func LocateMemory(p *Part, name string) *mem.Memory {
	var found *mem.Memory
	for _, m := range p.Memories {
		if strings.HasPrefix(m.Name, name) {
			if found != nil {
				return nil
			}
			found = m
		}
	}
	return found
}

// InitializeBuffers allocates a zeroed buffer of the right size for every
// memory of p whose buffer length differs from its Size; a buffer that
// already has the right length is kept with its contents. Used when a Part
// value is assembled without going through mem.New (e.g. directly from a
// decoded config record).
func InitializeBuffers(p *Part) {
	for _, m := range p.Memories {
		if len(m.Buf) != m.Size {
			m.Buf = make([]byte, m.Size)
		}
	}
}

// Duplicate deep-copies p, allocating a fresh buffer of identical size for
// every memory and copying the current contents into it. Used to hold a
// "verified against" image separately from the "to be written" image.
func Duplicate(p *Part) *Part {
	cp := &Part{
		ID:               p.ID,
		Desc:             p.Desc,
		ChipEraseDelayUS: p.ChipEraseDelayUS,
		Reset:            p.Reset,
		Caps:             p.Caps,
		PartOps:          p.PartOps, // shared, immutable opcode templates
		PagelPin:         p.PagelPin,
		BS2Pin:           p.BS2Pin,
		HasPagelPin:      p.HasPagelPin,
		HasBS2Pin:        p.HasBS2Pin,
	}
	cp.Memories = make([]*mem.Memory, len(p.Memories))
	for i, m := range p.Memories {
		cp.Memories[i] = m.Duplicate()
	}
	return cp
}

// Validate checks every memory's invariants and part-level sanity.
func (p *Part) Validate() error {
	seen := map[string]bool{}
	for _, m := range p.Memories {
		if seen[m.Name] {
			return &DuplicateMemoryError{Part: p.ID, Memory: m.Name}
		}
		seen[m.Name] = true
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DuplicateMemoryError reports a Part configured with two memories of the
// same Name (a violation of spec.md §3's "at most one per name").
type DuplicateMemoryError struct {
	Part   string
	Memory string
}

func (e *DuplicateMemoryError) Error() string {
	return "part " + e.Part + ": duplicate memory name " + e.Memory
}

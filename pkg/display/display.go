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

// Package display renders a human-readable description of a part and its
// memory-operation tables (spec.md §4.8). The format is part of the user
// interface, not a wire format; ispprog and ispterm are two different
// renderings of the same underlying PartInfo/MemRow values.
package display

import (
	"fmt"
	"strings"

	"ispengine/pkg/mem"
	"ispengine/pkg/opcode"
	"ispengine/pkg/part"
)

// MemRow is one line of the memory table: paged?, size, page size,
// #pages, min/max delay, two readback sentinels.
type MemRow struct {
	Name               string
	Paged              bool
	Size               int
	PageSize           int
	NumPages           int
	MinWriteDelayUS    int
	MaxWriteDelayUS    int
	ReadbackSentinels  [2]byte
}

// PartInfo is the full renderable description of a Part.
type PartInfo struct {
	ID               string
	Desc             string
	ChipEraseDelayUS int
	Reset            part.ResetDisposition
	Caps             part.Capability
	HasPagelPin      bool
	PagelPin         int
	HasBS2Pin        bool
	BS2Pin           int
	Memories         []MemRow
}

// Describe builds a PartInfo snapshot of p.
func Describe(p *part.Part) PartInfo {
	info := PartInfo{
		ID:               p.ID,
		Desc:             p.Desc,
		ChipEraseDelayUS: p.ChipEraseDelayUS,
		Reset:            p.Reset,
		Caps:             p.Caps,
		HasPagelPin:      p.HasPagelPin,
		PagelPin:         p.PagelPin,
		HasBS2Pin:        p.HasBS2Pin,
		BS2Pin:           p.BS2Pin,
	}
	for _, m := range p.Memories {
		info.Memories = append(info.Memories, MemRow{
			Name:              m.Name,
			Paged:             m.Paged,
			Size:              m.Size,
			PageSize:          m.PageSize,
			NumPages:          m.NumPages,
			MinWriteDelayUS:   m.MinWriteDelayUS,
			MaxWriteDelayUS:   m.MaxWriteDelayUS,
			ReadbackSentinels: m.ReadbackSentinels,
		})
	}
	return info
}

// RenderPart writes the non-verbose description of info: a summary line
// plus one row per memory.
func RenderPart(info PartInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", info.ID, info.Desc)
	fmt.Fprintf(&b, "  chip_erase_delay=%dus reset=%s caps=%s\n",
		info.ChipEraseDelayUS, resetName(info.Reset), capsString(info.Caps))
	if info.HasPagelPin {
		fmt.Fprintf(&b, "  pagel_pin=%d\n", info.PagelPin)
	}
	if info.HasBS2Pin {
		fmt.Fprintf(&b, "  bs2_pin=%d\n", info.BS2Pin)
	}
	fmt.Fprintf(&b, "  %-10s %-6s %7s %6s %6s %9s %9s %s\n",
		"memory", "paged", "size", "pgsz", "npages", "min_us", "max_us", "sentinels")
	for _, m := range info.Memories {
		fmt.Fprintf(&b, "  %-10s %-6v %7d %6d %6d %9d %9d 0x%02x,0x%02x\n",
			m.Name, m.Paged, m.Size, m.PageSize, m.NumPages,
			m.MinWriteDelayUS, m.MaxWriteDelayUS,
			m.ReadbackSentinels[0], m.ReadbackSentinels[1])
	}
	return b.String()
}

// RenderMemTable writes the verbose per-operation CmdBit table for m:
// one block per configured OpKind, one row per instruction bit.
func RenderMemTable(m *mem.Memory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "memory %s:\n", m.Name)
	for kind := mem.Read; kind <= mem.LoadExtAddr; kind++ {
		op := m.Op(kind)
		if op == nil {
			continue
		}
		fmt.Fprintf(&b, "  %s:\n", kind.String())
		b.WriteString(renderOpcode(op))
	}
	return b.String()
}

func renderOpcode(op *opcode.Opcode) string {
	var b strings.Builder
	for i := opcode.NumBits - 1; i >= 0; i-- {
		bit := op.Bits[i]
		fmt.Fprintf(&b, "    [%2d] %-10s bit_no=%-2d value=%d\n", i, kindName(bit.Kind), bit.BitNo, bit.Value)
	}
	return b.String()
}

func kindName(k opcode.Kind) string {
	switch k {
	case opcode.Ignore:
		return "IGNORE"
	case opcode.Literal:
		return "LITERAL"
	case opcode.AddressBit:
		return "ADDRESS_BIT"
	case opcode.InputBit:
		return "INPUT_BIT"
	case opcode.OutputBit:
		return "OUTPUT_BIT"
	default:
		return "?"
	}
}

func resetName(r part.ResetDisposition) string {
	if r == part.ResetSharedIO {
		return "shared-io"
	}
	return "dedicated"
}

func capsString(c part.Capability) string {
	var caps []string
	if c&part.CapSPI != 0 {
		caps = append(caps, "spi")
	}
	if c&part.CapParallel != 0 {
		caps = append(caps, "parallel")
	}
	if c&part.CapPseudoParallel != 0 {
		caps = append(caps, "pseudo-parallel")
	}
	if len(caps) == 0 {
		return "none"
	}
	return strings.Join(caps, ",")
}

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

// Package config loads YAML part/programmer catalogs (spec.md §4.10) into
// part.Part trees. It is the only package allowed to import both pkg/part
// and a YAML decoder; nothing in the core engine imports pkg/config back.
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"ispengine/pkg/ispierr"
	"ispengine/pkg/mem"
	"ispengine/pkg/opcode"
	"ispengine/pkg/part"
)

// Programmer is a decoded programmer descriptor: a named wiring of pin
// roles onto a transport type, used by cmd/ispprog to pick and configure
// a programmer.Capability implementation.
type Programmer struct {
	Type string
	Desc string
	Pins map[string]int
}

// Catalog is the result of loading one configuration document.
type Catalog struct {
	Parts       []*part.Part
	Programmers []*Programmer
}

// FindPart returns the part with the given ID, or nil.
func (c *Catalog) FindPart(id string) *part.Part {
	for _, p := range c.Parts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// FindProgrammer returns the programmer descriptor with the given type, or nil.
func (c *Catalog) FindProgrammer(typ string) *Programmer {
	for _, pr := range c.Programmers {
		if pr.Type == typ {
			return pr
		}
	}
	return nil
}

type rawConfig struct {
	Parts       []rawPart       `yaml:"parts"`
	Programmers []rawProgrammer `yaml:"programmers"`
}

type rawPart struct {
	ID               string                `yaml:"id"`
	Desc             string                `yaml:"desc"`
	ChipEraseDelayUS int                   `yaml:"chip_erase_delay_us"`
	ResetDedicated   bool                  `yaml:"reset_dedicated"`
	Capabilities     []string              `yaml:"capabilities"`
	PagelPin         *int                  `yaml:"pagel_pin"`
	BS2Pin           *int                  `yaml:"bs2_pin"`
	PartOpcodes      map[string]rawOpcode  `yaml:"part_opcodes"`
	Memories         []rawMemory           `yaml:"memories"`
}

type rawMemory struct {
	Name               string               `yaml:"name"`
	Size               int                  `yaml:"size"`
	Paged              bool                 `yaml:"paged"`
	PageSize           int                  `yaml:"page_size"`
	NumPages           int                  `yaml:"num_pages"`
	MinWriteDelayUS    int                  `yaml:"min_write_delay_us"`
	MaxWriteDelayUS    int                  `yaml:"max_write_delay_us"`
	ReadbackSentinels  [2]int               `yaml:"readback_sentinels"`
	PowerOffAfterWrite bool                 `yaml:"power_off_after_write"`
	Opcodes            map[string]rawOpcode `yaml:"opcodes"`
}

type rawProgrammer struct {
	Type string         `yaml:"type"`
	Desc string         `yaml:"desc"`
	Pins map[string]int `yaml:"pins"`
}

// rawOpcode decodes either a 32-entry sequence of single-character tokens
// or the compact whitespace/underscore-separated string form documented
// in spec.md §4.10.
type rawOpcode struct {
	chars [opcode.NumBits]byte
}

func (r *rawOpcode) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		return r.fill(stripSeparators(s))
	case yaml.SequenceNode:
		var tokens []string
		if err := value.Decode(&tokens); err != nil {
			return err
		}
		if len(tokens) != opcode.NumBits {
			return fmt.Errorf("opcode sequence must have exactly %d entries, got %d", opcode.NumBits, len(tokens))
		}
		joined := ""
		for _, tok := range tokens {
			joined += tok
		}
		return r.fill(joined)
	default:
		return fmt.Errorf("opcode must be a string or a %d-entry sequence", opcode.NumBits)
	}
}

// stripSeparators removes the purely cosmetic whitespace and underscore
// characters used to group the compact opcode string into readable
// bytes/nibbles (e.g. "AAAAAAAA AAAAAAAA 0100_0000 IIIIIIII"). Neither
// character carries bit meaning on its own; see DESIGN.md for why this
// reading was chosen over treating '_' as a distinct ignore token.
func stripSeparators(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '_' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func (r *rawOpcode) fill(s string) error {
	if len(s) != opcode.NumBits {
		return fmt.Errorf("compact opcode must decode to exactly %d characters, got %d (%q)", opcode.NumBits, len(s), s)
	}
	copy(r.chars[:], s)
	return nil
}

// decode turns the 32-character alphabet into an *opcode.Opcode, assigning
// AddressBit/InputBit/OutputBit BitNo values left-to-right, high-to-low
// within each kind (the leftmost occurrence of a kind reflects its most
// significant bit).
func (r *rawOpcode) decode() (*opcode.Opcode, error) {
	var addrCount, inCount, outCount int
	for _, c := range r.chars {
		switch c {
		case 'A':
			addrCount++
		case 'I':
			inCount++
		case 'O':
			outCount++
		}
	}

	op := &opcode.Opcode{}
	addrNo, inNo, outNo := addrCount-1, inCount-1, outCount-1
	for k := 0; k < opcode.NumBits; k++ {
		i := opcode.NumBits - 1 - k // leftmost character -> highest CmdBit index
		switch r.chars[k] {
		case 'A':
			op.Bits[i] = opcode.CmdBit{Kind: opcode.AddressBit, BitNo: uint8(addrNo)}
			addrNo--
		case 'I':
			op.Bits[i] = opcode.CmdBit{Kind: opcode.InputBit, BitNo: uint8(inNo)}
			inNo--
		case 'O':
			op.Bits[i] = opcode.CmdBit{Kind: opcode.OutputBit, BitNo: uint8(outNo)}
			outNo--
		case '1':
			op.Bits[i] = opcode.CmdBit{Kind: opcode.Literal, Value: 1}
		case '0':
			op.Bits[i] = opcode.CmdBit{Kind: opcode.Literal, Value: 0}
		case 'x', 'X':
			op.Bits[i] = opcode.CmdBit{Kind: opcode.Ignore}
		default:
			return nil, fmt.Errorf("opcode: unrecognized character %q", r.chars[k])
		}
	}
	return op, nil
}

var opKindNames = map[string]mem.OpKind{
	"read":          mem.Read,
	"write":         mem.Write,
	"read_lo":       mem.ReadLo,
	"read_hi":       mem.ReadHi,
	"write_lo":      mem.WriteLo,
	"write_hi":      mem.WriteHi,
	"loadpage_lo":   mem.LoadPageLo,
	"loadpage_hi":   mem.LoadPageHi,
	"writepage":     mem.WritePage,
	"chip_erase":    mem.ChipErase,
	"pgm_enable":    mem.PgmEnable,
	"load_ext_addr": mem.LoadExtAddr,
}

var capNames = map[string]part.Capability{
	"spi":             part.CapSPI,
	"parallel":        part.CapParallel,
	"pseudo_parallel": part.CapPseudoParallel,
}

func decodeOpMap(raw map[string]rawOpcode) (map[mem.OpKind]*opcode.Opcode, error) {
	out := make(map[mem.OpKind]*opcode.Opcode, len(raw))
	for name, ro := range raw {
		kind, ok := opKindNames[name]
		if !ok {
			return nil, &ispierr.InvalidConfig{Detail: "unknown opcode name " + name}
		}
		ro := ro
		op, err := ro.decode()
		if err != nil {
			return nil, &ispierr.InvalidConfig{Detail: name + ": " + err.Error()}
		}
		out[kind] = op
	}
	return out, nil
}

func decodeMemory(rm rawMemory) (*mem.Memory, error) {
	ops, err := decodeOpMap(rm.Opcodes)
	if err != nil {
		return nil, err
	}
	m := &mem.Memory{
		Name:               rm.Name,
		Size:               rm.Size,
		Paged:              rm.Paged,
		PageSize:           rm.PageSize,
		NumPages:           rm.NumPages,
		MinWriteDelayUS:    rm.MinWriteDelayUS,
		MaxWriteDelayUS:    rm.MaxWriteDelayUS,
		PowerOffAfterWrite: rm.PowerOffAfterWrite,
		Ops:                ops,
		Buf:                make([]byte, rm.Size),
	}
	m.ReadbackSentinels = [2]byte{byte(rm.ReadbackSentinels[0]), byte(rm.ReadbackSentinels[1])}
	return m, nil
}

func decodePart(rp rawPart) (*part.Part, error) {
	partOps, err := decodeOpMap(rp.PartOpcodes)
	if err != nil {
		return nil, err
	}

	var caps part.Capability
	for _, name := range rp.Capabilities {
		c, ok := capNames[name]
		if !ok {
			return nil, &ispierr.InvalidConfig{Detail: "unknown capability " + name}
		}
		caps |= c
	}

	reset := part.ResetSharedIO
	if rp.ResetDedicated {
		reset = part.ResetDedicated
	}

	p := &part.Part{
		ID:               rp.ID,
		Desc:             rp.Desc,
		ChipEraseDelayUS: rp.ChipEraseDelayUS,
		Reset:            reset,
		Caps:             caps,
		PartOps:          partOps,
	}
	if rp.PagelPin != nil {
		p.HasPagelPin = true
		p.PagelPin = *rp.PagelPin
	}
	if rp.BS2Pin != nil {
		p.HasBS2Pin = true
		p.BS2Pin = *rp.BS2Pin
	}
	for _, rm := range rp.Memories {
		m, err := decodeMemory(rm)
		if err != nil {
			return nil, err
		}
		p.AddMemory(m)
	}
	return p, nil
}

// Load decodes a YAML catalog from r, validating every part-level and
// memory-level invariant (spec.md §3) before returning it. Callers
// receive either a fully valid Catalog or an *ispierr.InvalidConfig.
func Load(r io.Reader) (*Catalog, error) {
	var raw rawConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return &Catalog{}, nil
		}
		return nil, &ispierr.InvalidConfig{Detail: err.Error()}
	}

	cat := &Catalog{}
	for _, rp := range raw.Parts {
		p, err := decodePart(rp)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, &ispierr.InvalidConfig{Detail: err.Error()}
		}
		cat.Parts = append(cat.Parts, p)
	}
	for _, rpr := range raw.Programmers {
		cat.Programmers = append(cat.Programmers, &Programmer{
			Type: rpr.Type,
			Desc: rpr.Desc,
			Pins: rpr.Pins,
		})
	}
	return cat, nil
}

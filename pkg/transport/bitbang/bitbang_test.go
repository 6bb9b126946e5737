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

package bitbang

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"ispengine/pkg/mem"
	"ispengine/pkg/opcode"
	"ispengine/pkg/part"
)

// fakePin is a minimal in-memory gpio.PinIO: Out records the last level
// driven, Read returns a scripted sequence of levels (one per call,
// repeating the last entry once exhausted).
type fakePin struct {
	name       string
	level      gpio.Level
	readScript []gpio.Level
	readCalls  int
	outEvents  []gpio.Level
}

func newFakePin(name string) *fakePin { return &fakePin{name: name} }

func (p *fakePin) String() string   { return p.name }
func (p *fakePin) Halt() error      { return nil }
func (p *fakePin) Number() int      { return 0 }
func (p *fakePin) Name() string     { return p.name }
func (p *fakePin) Function() string { return "" }

func (p *fakePin) In(pull gpio.Pull, edge gpio.Edge) error { return nil }
func (p *fakePin) Read() gpio.Level {
	if p.readCalls < len(p.readScript) {
		l := p.readScript[p.readCalls]
		p.readCalls++
		return l
	}
	if len(p.readScript) > 0 {
		return p.readScript[len(p.readScript)-1]
	}
	return gpio.Low
}
func (p *fakePin) WaitForEdge(timeout time.Duration) bool { return false }
func (p *fakePin) Pull() gpio.Pull                        { return gpio.PullNoChange }
func (p *fakePin) DefaultPull() gpio.Pull                 { return gpio.PullNoChange }

func (p *fakePin) Out(l gpio.Level) error {
	p.level = l
	p.outEvents = append(p.outEvents, l)
	return nil
}

func (p *fakePin) PWM(duty gpio.Duty, f physic.Frequency) error { return nil }

func newTestProgrammer(misoScript []gpio.Level) (*Programmer, *fakePin, *fakePin, *fakePin, *fakePin) {
	reset := newFakePin("reset")
	sck := newFakePin("sck")
	mosi := newFakePin("mosi")
	miso := newFakePin("miso")
	miso.readScript = misoScript

	p := New(reset, sck, mosi, miso, nil)
	p.BitDelay = 0
	return p, reset, sck, mosi, miso
}

func TestCmdBitBangsMSBFirstPerByte(t *testing.T) {
	p, _, sck, mosi, _ := newTestProgrammer(nil)

	cmd := [4]byte{0xAC, 0x53, 0x00, 0x00}
	_, err := p.Cmd(context.Background(), cmd)
	require.NoError(t, err)

	// One SCK high + low edge per bit, 32 bits total.
	require.Equal(t, 32, len(sck.outEvents)/2)

	// First bit driven onto MOSI is the MSB of cmd[0] (0xAC -> bit7 = 1).
	require.Equal(t, gpio.High, mosi.outEvents[0])
}

func TestCmdSamplesMISOIntoResponse(t *testing.T) {
	// Script MISO high on every sample so the response is all-ones.
	script := make([]gpio.Level, 32)
	for i := range script {
		script[i] = gpio.High
	}
	p, _, _, _, _ := newTestProgrammer(script)

	res, err := p.Cmd(context.Background(), [4]byte{})
	require.NoError(t, err)
	require.Equal(t, [4]byte{0xFF, 0xFF, 0xFF, 0xFF}, res)
}

func TestSetPinDrivesNamedLine(t *testing.T) {
	p, reset, sck, _, _ := newTestProgrammer(nil)

	require.NoError(t, p.SetPin("reset", true))
	require.Equal(t, gpio.High, reset.level)

	require.NoError(t, p.SetPin("sck", false))
	require.Equal(t, gpio.Low, sck.level)

	require.Error(t, p.SetPin("nonexistent", true))
}

func TestPulsePinDrivesHighThenLow(t *testing.T) {
	p, reset, _, _, _ := newTestProgrammer(nil)

	require.NoError(t, p.PulsePin("reset"))
	require.Equal(t, []gpio.Level{gpio.High, gpio.Low}, reset.outEvents)
}

func TestHasVCCReflectsOptionalPin(t *testing.T) {
	p, _, _, _, _ := newTestProgrammer(nil)
	require.False(t, p.HasVCC())

	p.VCC = newFakePin("vcc")
	require.True(t, p.HasVCC())
}

func TestProgramEnableChecksEcho(t *testing.T) {
	// Program-enable opcode: literal 0xAC in cmd[0], 0x53 in cmd[1].
	// Script MISO so byte index 2 of the response echoes cmd[1] (0x53).
	script := make([]gpio.Level, 32)
	// bits 16..23 correspond to response byte index 2; 0x53 = 0101_0011.
	for i := 0; i < 8; i++ {
		bit := (byte(0x53) >> uint(7-i)) & 1
		if bit == 1 {
			script[16+i] = gpio.High
		} else {
			script[16+i] = gpio.Low
		}
	}
	prog, _, _, _, _ := newTestProgrammer(script)

	pt := testPartWithPgmEnable()
	require.NoError(t, prog.ProgramEnable(context.Background(), pt))
}

func pgmEnableOpcode() *opcode.Opcode {
	var op opcode.Opcode
	for i := 0; i < 8; i++ {
		op.Bits[24+i] = opcode.CmdBit{Kind: opcode.Literal, Value: (byte(0xAC) >> uint(i)) & 1}
	}
	for i := 0; i < 8; i++ {
		op.Bits[16+i] = opcode.CmdBit{Kind: opcode.Literal, Value: (byte(0x53) >> uint(i)) & 1}
	}
	return &op
}

func testPartWithPgmEnable() *part.Part {
	return &part.Part{
		ID: "ATmegaX",
		PartOps: map[mem.OpKind]*opcode.Opcode{
			mem.PgmEnable: pgmEnableOpcode(),
		},
	}
}

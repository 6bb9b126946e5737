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

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ispengine/pkg/ispierr"
	"ispengine/pkg/mem"
	tmock "ispengine/pkg/transport/mock"
)

func TestScenarioS1ReadFlashByteWordAddressed(t *testing.T) {
	flash := newPagedFlash(8192, 64)
	p := newTestPart(flash)

	prog := tmock.New()
	prog.Rules = []tmock.Rule{
		{
			Match: func(cmd [4]byte) bool { return cmd[0] == litReadLo || cmd[0] == litReadHi },
			Respond: func(cmd [4]byte) [4]byte {
				return [4]byte{0, 0, 0, 0xAB}
			},
		},
	}
	eng := New(prog, p)

	v, err := eng.ReadByte(context.Background(), flash, 0x0005)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), v)

	require.Len(t, prog.Calls, 1)
	cmd := prog.Calls[0]
	require.Equal(t, byte(litReadHi), cmd[0], "odd byte address must select READ_HI")
	require.Equal(t, byte(0x00), cmd[1])
	require.Equal(t, byte(0x02), cmd[2], "wire address must be addr/2 = 0x0002")
}

func TestWordAddressDerivation(t *testing.T) {
	flash := newPagedFlash(8192, 64)
	p := newTestPart(flash)
	prog := tmock.New()
	eng := New(prog, p)

	require.NoError(t, eng.WriteByte(context.Background(), flash, 4, 0x11))
	require.NoError(t, eng.WriteByte(context.Background(), flash, 5, 0x22))

	require.Len(t, prog.Calls, 2)
	require.Equal(t, byte(litLoadPageLo), prog.Calls[0][0])
	require.Equal(t, byte(0x00), prog.Calls[0][1])
	require.Equal(t, byte(0x02), prog.Calls[0][2], "byte address 4 -> wire address 2")

	require.Equal(t, byte(litLoadPageHi), prog.Calls[1][0])
	require.Equal(t, byte(0x00), prog.Calls[1][1])
	require.Equal(t, byte(0x02), prog.Calls[1][2], "byte address 5 -> wire address 2")
}

func TestIdempotentByteWritePerformsNoWriteTransaction(t *testing.T) {
	eeprom := newByteEEPROM(512)
	eeprom.Buf[5] = 0x42
	p := newTestPart(eeprom)

	prog := tmock.New()
	prog.Rules = []tmock.Rule{
		{
			Match:   func(cmd [4]byte) bool { return cmd[0] == 0xA0 },
			Respond: func(cmd [4]byte) [4]byte { return [4]byte{0, 0, 0, 0x42} },
		},
	}
	eng := New(prog, p)

	require.NoError(t, eng.WriteByte(context.Background(), eeprom, 5, 0x42))

	require.Len(t, prog.Calls, 1, "only the optimization read, no write")
	require.Equal(t, byte(0xA0), prog.Calls[0][0])
}

func TestScenarioS3PolledWriteConvergesOnSecondPoll(t *testing.T) {
	eeprom := newByteEEPROM(512)
	p := newTestPart(eeprom)
	prog := tmock.New()
	readCount := 0
	prog.Rules = []tmock.Rule{
		{
			Match: func(cmd [4]byte) bool { return cmd[0] == 0xA0 },
			Respond: func(cmd [4]byte) [4]byte {
				readCount++
				if readCount == 1 {
					return [4]byte{0, 0, 0, 0x00}
				}
				return [4]byte{0, 0, 0, 0x42}
			},
		},
	}
	var sleeps []int
	eng := New(prog, p)
	eng.Sleep = func(us int) { sleeps = append(sleeps, us) }

	err := eng.pollWriteCompletion(context.Background(), eeprom, 5, 0x42)
	require.NoError(t, err)
	require.Equal(t, 2, readCount)
	require.Equal(t, []int{eeprom.MinWriteDelayUS, eeprom.MinWriteDelayUS}, sleeps,
		"no extra max_write_delay wait: 0x42 is not a sentinel")
}

func TestScenarioS4SentinelDataTriggersLongWait(t *testing.T) {
	eeprom := newByteEEPROM(512)
	p := newTestPart(eeprom)
	prog := tmock.New()
	readCount := 0
	prog.Rules = []tmock.Rule{
		{
			Match: func(cmd [4]byte) bool { return cmd[0] == 0xA0 },
			Respond: func(cmd [4]byte) [4]byte {
				readCount++
				if readCount < 2 {
					return [4]byte{0, 0, 0, 0x00}
				}
				return [4]byte{0, 0, 0, 0xFF}
			},
		},
	}
	var sleeps []int
	eng := New(prog, p)
	eng.Sleep = func(us int) { sleeps = append(sleeps, us) }

	err := eng.pollWriteCompletion(context.Background(), eeprom, 5, 0xFF)
	require.NoError(t, err)
	require.Equal(t, 2, readCount)
	require.Equal(t, []int{eeprom.MinWriteDelayUS, eeprom.MaxWriteDelayUS}, sleeps,
		"max_write_delay must be inserted unconditionally when data is a sentinel")
}

func TestWriteFailedAfterFiveRetries(t *testing.T) {
	eeprom := newByteEEPROM(512)
	p := newTestPart(eeprom)
	prog := tmock.New()
	prog.Rules = []tmock.Rule{
		{
			Match:   func(cmd [4]byte) bool { return cmd[0] == 0xA0 },
			Respond: func(cmd [4]byte) [4]byte { return [4]byte{0, 0, 0, 0x00} },
		},
	}
	eng := New(prog, p)
	eng.Sleep = func(int) {}

	err := eng.pollWriteCompletion(context.Background(), eeprom, 5, 0x42)
	require.Error(t, err)
	var writeFailed *ispierr.WriteFailed
	require.ErrorAs(t, err, &writeFailed)
	require.Equal(t, 6, writeFailed.Tries)
}

func TestUnsupportedReadAndWrite(t *testing.T) {
	m := mem.New("lock", 1)
	p := newTestPart(m)
	prog := tmock.New()
	eng := New(prog, p)

	_, err := eng.ReadByte(context.Background(), m, 0)
	require.Error(t, err)

	err = eng.WriteByte(context.Background(), m, 0, 1)
	require.Error(t, err)
}

package opcode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ispengine/pkg/opcode"
)

// rwOpcode builds a toy opcode that fills all 32 positions: a 16-bit
// address field, an 8-bit INPUT_BIT field, and an 8-bit OUTPUT_BIT field
// (so a device echoing the input byte back can be decoded).
func rwOpcode() *opcode.Opcode {
	op := &opcode.Opcode{}
	// 16 address bits, LSB first starting at bit index 0
	for i := 0; i < 16; i++ {
		op.Bits[i] = opcode.CmdBit{Kind: opcode.AddressBit, BitNo: uint8(i)}
	}
	// 8 input bits at positions 16..23 (cmd[1]), 8 output bits at 24..31 (cmd[0])
	for i := 0; i < 8; i++ {
		op.Bits[16+i] = opcode.CmdBit{Kind: opcode.InputBit, BitNo: uint8(i)}
	}
	for i := 0; i < 8; i++ {
		op.Bits[24+i] = opcode.CmdBit{Kind: opcode.OutputBit, BitNo: uint8(i)}
	}
	return op
}

func TestEncodingRoundTrip(t *testing.T) {
	op := rwOpcode()
	for d := 0; d < 256; d++ {
		var cmd [4]byte
		opcode.SetInput(op, &cmd, uint8(d))
		// simulate the device echoing the input byte (cmd[1]) back in the
		// output byte (res[0])
		var res [4]byte
		res[0] = cmd[1]
		got := opcode.GetOutput(op, &res)
		require.Equal(t, uint8(d), got)
	}
}

func TestAddressRoundTrip(t *testing.T) {
	op := rwOpcode()
	for _, addr := range []uint32{0, 1, 0xFFFF, 0xABCD, 0x1234} {
		var cmd [4]byte
		opcode.SetAddress(op, &cmd, addr)
		// reconstruct the address bits the same way GetOutput would for data
		var got uint32
		for i := 0; i < 16; i++ {
			bi, bit := 3-i/8, i%8
			if cmd[bi]&(1<<uint(bit)) != 0 {
				got |= 1 << uint(i)
			}
		}
		require.Equal(t, addr&0xFFFF, got)
	}
}

func TestSetLiterals(t *testing.T) {
	op := rwOpcode()
	// top two bits of the first byte: literal 1,0
	op.Bits[31] = opcode.CmdBit{Kind: opcode.Literal, Value: 1}
	op.Bits[30] = opcode.CmdBit{Kind: opcode.Literal, Value: 0}
	var cmd [4]byte
	opcode.SetLiterals(op, &cmd)
	require.Equal(t, uint8(0x80), cmd[0]&0xC0)
}

func TestValidateDetectsDuplicateBits(t *testing.T) {
	op := &opcode.Opcode{}
	op.Bits[0] = opcode.CmdBit{Kind: opcode.InputBit, BitNo: 3}
	op.Bits[1] = opcode.CmdBit{Kind: opcode.InputBit, BitNo: 3}
	err := op.Validate()
	require.Error(t, err)
	var dup *opcode.DuplicateBitError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "input", dup.Kind)
}

func TestValidateAcceptsWellFormedOpcode(t *testing.T) {
	require.NoError(t, rwOpcode().Validate())
}

// scenario S1 from spec.md §8: a READ_HI opcode placing the 8 INPUT_BITs of
// byte 3 into OUTPUT positions must decode 0xAB back out of res=[0,0,0,0xAB].
func TestScenarioS1ReadHiDecoding(t *testing.T) {
	op := &opcode.Opcode{}
	for i := 0; i < 8; i++ {
		op.Bits[i] = opcode.CmdBit{Kind: opcode.OutputBit, BitNo: uint8(i)}
	}
	res := [4]byte{0, 0, 0, 0xAB}
	require.Equal(t, uint8(0xAB), opcode.GetOutput(op, &res))
}

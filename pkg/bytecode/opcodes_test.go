package bytecode

import "testing"

func TestOperandLenMatchesShape(t *testing.T) {
	cases := []struct {
		op   Opcode
		want int
	}{
		{OpNop, 0},
		{OpPushInt, 4},
		{OpPushDouble, 8},
		{OpCall, 8},
		{OpChoiceAdd, 4},
	}
	for _, c := range cases {
		if got := c.op.OperandLen(); got != c.want {
			t.Errorf("%s.OperandLen() = %d, want %d", c.op, got, c.want)
		}
	}
}

func TestInstructionLen(t *testing.T) {
	if OpPushInt.InstructionLen() != 5 {
		t.Errorf("PUSH_INT instruction should be 5 bytes, got %d", OpPushInt.InstructionLen())
	}
	if OpNop.InstructionLen() != 1 {
		t.Errorf("NOP instruction should be 1 byte, got %d", OpNop.InstructionLen())
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xFF)
	if op.IsKnown() {
		t.Error("0xFF should not be a known opcode")
	}
	if op.OperandLen() != 0 {
		t.Error("unknown opcode should report zero operand length")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	var buf []byte
	buf = EncodeI32(buf, OpPushInt, -7)
	buf = EncodeF64(buf, OpPushDouble, 2.5)
	buf = EncodeI32I32(buf, OpCall, 3, 2)
	buf = EncodeNone(buf, OpReturn)

	ip := 0
	inst, err := Decode(buf, ip)
	if err != nil || inst.Op != OpPushInt || inst.I32 != -7 {
		t.Fatalf("decode PUSH_INT: %+v, %v", inst, err)
	}
	ip += inst.Len

	inst, err = Decode(buf, ip)
	if err != nil || inst.Op != OpPushDouble || inst.F64 != 2.5 {
		t.Fatalf("decode PUSH_DOUBLE: %+v, %v", inst, err)
	}
	ip += inst.Len

	inst, err = Decode(buf, ip)
	if err != nil || inst.Op != OpCall || inst.I32 != 3 || inst.I32b != 2 {
		t.Fatalf("decode CALL: %+v, %v", inst, err)
	}
	ip += inst.Len

	inst, err = Decode(buf, ip)
	if err != nil || inst.Op != OpReturn || inst.Len != 1 {
		t.Fatalf("decode RETURN: %+v, %v", inst, err)
	}
}

func TestDecodeTruncatedOperand(t *testing.T) {
	buf := []byte{byte(OpPushInt), 0x01, 0x02}
	if _, err := Decode(buf, 0); err == nil {
		t.Error("expected error decoding truncated operand")
	}
}

func TestDisassembleNoPanic(t *testing.T) {
	var buf []byte
	buf = EncodeI32(buf, OpPushInt, 42)
	buf = EncodeNone(buf, OpReturn)
	out := Disassemble(buf, nil)
	if out == "" {
		t.Error("expected non-empty disassembly")
	}
}

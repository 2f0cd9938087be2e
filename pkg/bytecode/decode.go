package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Instruction is one decoded bytecode instruction: an opcode plus
// whichever operand fields its shape uses.
type Instruction struct {
	Op   Opcode
	I32  int32   // first i32 operand (ShapeI32, ShapeI32I32)
	I32b int32   // second i32 operand (ShapeI32I32)
	F64  float64 // ShapeF64
	Len  int     // total instruction length in bytes, including the opcode byte
}

// Decode reads exactly one instruction from code starting at ip.
// Jump and call targets are computed by the caller relative to ip+Len,
// i.e. the position of the byte immediately following the operands
// (spec: jump offsets are relative to the first byte after the encoded
// operand, never re-biased to the opcode's own address).
func Decode(code []byte, ip int) (Instruction, error) {
	if ip < 0 || ip >= len(code) {
		return Instruction{}, fmt.Errorf("instruction pointer %d out of range (code length %d)", ip, len(code))
	}
	op := Opcode(code[ip])
	shape := op.Info().Shape
	need := shape.Len()
	if ip+1+need > len(code) {
		return Instruction{}, fmt.Errorf("truncated operand for %s at ip %d", op, ip)
	}
	inst := Instruction{Op: op, Len: 1 + need}
	switch shape {
	case ShapeI32:
		inst.I32 = readI32(code, ip+1)
	case ShapeI32I32:
		inst.I32 = readI32(code, ip+1)
		inst.I32b = readI32(code, ip+5)
	case ShapeF64:
		inst.F64 = readF64(code, ip+1)
	}
	return inst, nil
}

func readI32(code []byte, at int) int32 {
	return int32(binary.LittleEndian.Uint32(code[at:]))
}

func readF64(code []byte, at int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(code[at:]))
}

// EncodeI32 appends an opcode with one little-endian i32 operand.
func EncodeI32(buf []byte, op Opcode, n int32) []byte {
	buf = append(buf, byte(op))
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(n))
	return append(buf, tmp[:]...)
}

// EncodeI32I32 appends an opcode with two little-endian i32 operands.
func EncodeI32I32(buf []byte, op Opcode, a, b int32) []byte {
	buf = EncodeI32(buf, op, a)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(b))
	return append(buf, tmp[:]...)
}

// EncodeF64 appends an opcode with one little-endian f64 operand.
func EncodeF64(buf []byte, op Opcode, f float64) []byte {
	buf = append(buf, byte(op))
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
	return append(buf, tmp[:]...)
}

// EncodeNone appends a bare opcode byte.
func EncodeNone(buf []byte, op Opcode) []byte {
	return append(buf, byte(op))
}

// Package bytecode defines the dialogue VM's instruction set: opcode
// values, their operand shapes, and a single-instruction decoder plus a
// debug disassembler built on top of it.
package bytecode

import "fmt"

// Opcode is a single bytecode instruction, one byte wide, followed by
// 0, 4, or 8 operand bytes depending on OperandShape.
type Opcode byte

const (
	// ==================================================================
	// Stack manipulation (0x00-0x0F) - no operand
	// ==================================================================

	OpNop           Opcode = 0x00
	OpPop           Opcode = 0x01
	OpDuplicate     Opcode = 0x02
	OpDuplicate2    Opcode = 0x03 // a b -> a b a b
	OpSave          Opcode = 0x04 // peek top, copy into save register (does not pop)
	OpLoad          Opcode = 0x05 // push copy of save register
	OpPushUndefined Opcode = 0x06
	OpPushArrayIndex Opcode = 0x07 // pop index, array; push array[index]
	OpSetArrayIndex  Opcode = 0x08 // pop value, index, array; mutate; push array back

	// ==================================================================
	// Constants & composite values (0x10-0x1F)
	// ==================================================================

	OpPushInt                      Opcode = 0x10 // <i32 literal>
	OpPushDouble                   Opcode = 0x11 // <f64 literal>
	OpPushString                   Opcode = 0x12 // <i32 string_table index>
	OpPushBinaryString             Opcode = 0x13 // <i32 translation_table index>
	OpMakeArray                    Opcode = 0x14 // <i32 n>: pop n values, push array
	OpPushInterpolatedString       Opcode = 0x15 // <i32 string_table idx> <i32 n>
	OpPushBinaryInterpolatedString Opcode = 0x16 // <i32 translation_table idx> <i32 n>

	// ==================================================================
	// Variables (0x20-0x2F)
	// ==================================================================

	OpSetVarGlobal  Opcode = 0x20 // <i32 symbol id>
	OpPushVarGlobal Opcode = 0x21 // <i32 symbol id>
	OpSetVarLocal   Opcode = 0x22 // <i32 slot>
	OpPushVarLocal  Opcode = 0x23 // <i32 slot>
	OpFreeLocal     Opcode = 0x24 // <i32 slot>

	// ==================================================================
	// Control flow (0x30-0x3F)
	// ==================================================================

	OpJump        Opcode = 0x30 // <i32 rel>
	OpJumpTruthy  Opcode = 0x31 // <i32 rel>: pop cond, jump if truthy
	OpJumpFalsey  Opcode = 0x32 // <i32 rel>: pop cond, jump if falsey

	// ==================================================================
	// Arithmetic & bitwise (0x40-0x4F) - no operand
	// ==================================================================

	OpAddition      Opcode = 0x40
	OpSubtraction   Opcode = 0x41
	OpMultiply      Opcode = 0x42
	OpDivide        Opcode = 0x43
	OpModulo        Opcode = 0x44
	OpNegate        Opcode = 0x45
	OpInvert        Opcode = 0x46
	OpPower         Opcode = 0x47
	OpBitLeftShift  Opcode = 0x48
	OpBitRightShift Opcode = 0x49
	OpBitAnd        Opcode = 0x4A
	OpBitOr         Opcode = 0x4B
	OpBitXor        Opcode = 0x4C
	OpBitNegate     Opcode = 0x4D

	// ==================================================================
	// Comparison (0x50-0x5F) - no operand
	// ==================================================================

	OpCompareEq  Opcode = 0x50
	OpCompareNeq Opcode = 0x51
	OpCompareGt  Opcode = 0x52
	OpCompareLt  Opcode = 0x53
	OpCompareGte Opcode = 0x54
	OpCompareLte Opcode = 0x55

	// ==================================================================
	// Calls & returns (0x60-0x6F)
	// ==================================================================

	OpCall         Opcode = 0x60 // <i32 fn_index> <i32 argc>
	OpCallExternal Opcode = 0x61 // <i32 name_id> <i32 argc>
	OpReturn       Opcode = 0x62 // no operand
	OpExit         Opcode = 0x63 // no operand

	// ==================================================================
	// Choice / choose (0x70-0x7F)
	// ==================================================================

	OpChoiceBegin     Opcode = 0x70 // no operand
	OpChoiceAdd       Opcode = 0x71 // <i32 rel>
	OpChoiceAddTruthy Opcode = 0x72 // <i32 rel>
	OpChoiceSelect    Opcode = 0x73 // no operand
	OpChooseAdd       Opcode = 0x74 // <i32 rel>
	OpChooseAddTruthy Opcode = 0x75 // <i32 rel>
	OpChooseSel       Opcode = 0x76 // no operand

	// ==================================================================
	// Text (0x80-0x8F) - no operand
	// ==================================================================

	OpTextRun Opcode = 0x80
)

// OperandShape describes how many bytes of operand follow an opcode, and
// how those bytes are structured.
type OperandShape uint8

const (
	ShapeNone    OperandShape = iota // no operand
	ShapeI32                         // one i32 (4 bytes)
	ShapeI32I32                      // two i32 (8 bytes)
	ShapeF64                         // one f64 (8 bytes)
)

// Len returns the number of operand bytes for the shape.
func (s OperandShape) Len() int {
	switch s {
	case ShapeI32:
		return 4
	case ShapeI32I32, ShapeF64:
		return 8
	default:
		return 0
	}
}

// OpcodeInfo carries the name and operand shape for an opcode, used by
// the decoder and the disassembler.
type OpcodeInfo struct {
	Name  string
	Shape OperandShape
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:             {"NOP", ShapeNone},
	OpPop:             {"POP", ShapeNone},
	OpDuplicate:       {"DUP", ShapeNone},
	OpDuplicate2:      {"DUP2", ShapeNone},
	OpSave:            {"SAVE", ShapeNone},
	OpLoad:            {"LOAD", ShapeNone},
	OpPushUndefined:   {"PUSH_UNDEFINED", ShapeNone},
	OpPushArrayIndex:  {"PUSH_ARRAY_INDEX", ShapeNone},
	OpSetArrayIndex:   {"SET_ARRAY_INDEX", ShapeNone},

	OpPushInt:                      {"PUSH_INT", ShapeI32},
	OpPushDouble:                   {"PUSH_DOUBLE", ShapeF64},
	OpPushString:                   {"PUSH_STRING", ShapeI32},
	OpPushBinaryString:             {"PUSH_BINARY_STRING", ShapeI32},
	OpMakeArray:                    {"MAKE_ARRAY", ShapeI32},
	OpPushInterpolatedString:       {"PUSH_INTERP_STRING", ShapeI32I32},
	OpPushBinaryInterpolatedString: {"PUSH_BINARY_INTERP_STRING", ShapeI32I32},

	OpSetVarGlobal:  {"SET_VAR_GLOBAL", ShapeI32},
	OpPushVarGlobal: {"PUSH_VAR_GLOBAL", ShapeI32},
	OpSetVarLocal:   {"SET_VAR_LOCAL", ShapeI32},
	OpPushVarLocal:  {"PUSH_VAR_LOCAL", ShapeI32},
	OpFreeLocal:     {"FREE_LOCAL", ShapeI32},

	OpJump:       {"JUMP", ShapeI32},
	OpJumpTruthy: {"JUMP_TRUTHY", ShapeI32},
	OpJumpFalsey: {"JUMP_FALSEY", ShapeI32},

	OpAddition:      {"ADD", ShapeNone},
	OpSubtraction:   {"SUB", ShapeNone},
	OpMultiply:      {"MUL", ShapeNone},
	OpDivide:        {"DIV", ShapeNone},
	OpModulo:        {"MOD", ShapeNone},
	OpNegate:        {"NEG", ShapeNone},
	OpInvert:        {"INVERT", ShapeNone},
	OpPower:         {"POW", ShapeNone},
	OpBitLeftShift:  {"SHL", ShapeNone},
	OpBitRightShift: {"SHR", ShapeNone},
	OpBitAnd:        {"BAND", ShapeNone},
	OpBitOr:         {"BOR", ShapeNone},
	OpBitXor:        {"BXOR", ShapeNone},
	OpBitNegate:     {"BNEG", ShapeNone},

	OpCompareEq:  {"EQ", ShapeNone},
	OpCompareNeq: {"NEQ", ShapeNone},
	OpCompareGt:  {"GT", ShapeNone},
	OpCompareLt:  {"LT", ShapeNone},
	OpCompareGte: {"GTE", ShapeNone},
	OpCompareLte: {"LTE", ShapeNone},

	OpCall:         {"CALL", ShapeI32I32},
	OpCallExternal: {"CALL_EXTERNAL", ShapeI32I32},
	OpReturn:       {"RETURN", ShapeNone},
	OpExit:         {"EXIT", ShapeNone},

	OpChoiceBegin:     {"CHOICE_BEGIN", ShapeNone},
	OpChoiceAdd:       {"CHOICE_ADD", ShapeI32},
	OpChoiceAddTruthy: {"CHOICE_ADD_TRUTHY", ShapeI32},
	OpChoiceSelect:    {"CHOICE_SELECT", ShapeNone},
	OpChooseAdd:       {"CHOOSE_ADD", ShapeI32},
	OpChooseAddTruthy: {"CHOOSE_ADD_TRUTHY", ShapeI32},
	OpChooseSel:       {"CHOOSE_SEL", ShapeNone},

	OpTextRun: {"TEXT_RUN", ShapeNone},
}

// Info returns metadata for an opcode. Unknown opcodes report shape
// ShapeNone and a synthetic name so callers can still advance.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), Shape: ShapeNone}
}

// String returns the opcode's mnemonic.
func (op Opcode) String() string { return op.Info().Name }

// OperandLen returns the number of operand bytes following this opcode.
func (op Opcode) OperandLen() int { return op.Info().Shape.Len() }

// InstructionLen returns 1 + OperandLen().
func (op Opcode) InstructionLen() int { return 1 + op.OperandLen() }

// IsKnown reports whether op has an entry in the opcode table.
func (op Opcode) IsKnown() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

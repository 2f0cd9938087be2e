package bytecode

import (
	"fmt"
	"strings"
)

// SymbolResolver looks up human-readable names for the symbol ids the
// disassembler encounters (string table entries, function indices, and
// so on). An image.Image satisfies this via small adapter methods; nil
// resolvers simply omit the comment.
type SymbolResolver interface {
	StringAt(idx int32) (string, bool)
}

// Disassemble renders a full instruction stream as a debug listing. It
// is informative only; nothing in the VM's correctness contract depends
// on its output (spec note: disassembly is excluded from correctness
// tests).
func Disassemble(code []byte, resolver SymbolResolver) string {
	var sb strings.Builder
	ip := 0
	for ip < len(code) {
		line, length := disassembleOne(code, ip, resolver)
		sb.WriteString(fmt.Sprintf("%04X  %s\n", ip, line))
		if length <= 0 {
			break
		}
		ip += length
	}
	return sb.String()
}

func disassembleOne(code []byte, ip int, resolver SymbolResolver) (string, int) {
	inst, err := Decode(code, ip)
	if err != nil {
		return fmt.Sprintf("<%v>", err), 1
	}

	switch inst.Op.Info().Shape {
	case ShapeNone:
		return inst.Op.String(), inst.Len
	case ShapeI32:
		comment := ""
		if resolver != nil {
			if s, ok := resolver.StringAt(inst.I32); ok {
				comment = fmt.Sprintf(" ; %q", s)
			}
		}
		return fmt.Sprintf("%s %d%s", inst.Op, inst.I32, comment), inst.Len
	case ShapeI32I32:
		return fmt.Sprintf("%s %d %d", inst.Op, inst.I32, inst.I32b), inst.Len
	case ShapeF64:
		return fmt.Sprintf("%s %g", inst.Op, inst.F64), inst.Len
	default:
		return inst.Op.String(), inst.Len
	}
}

// DisassembleInstruction renders a single instruction at ip for
// interactive debugging (e.g. VM.DisassembleAt).
func DisassembleInstruction(code []byte, ip int, resolver SymbolResolver) string {
	line, _ := disassembleOne(code, ip, resolver)
	return line
}

package value

import (
	"fmt"
	"math"
)

// Add implements the `+` opcode: numeric binary operations promote to
// Double if either operand is Double, else stay Int. Arrays and strings
// are not valid operands for arithmetic.
func Add(lhs, rhs Value) (Value, error) {
	return numericOp(lhs, rhs, "+",
		func(a, b int32) int32 { return a + b },
		func(a, b float64) float64 { return a + b },
	)
}

// Sub implements the `-` opcode.
func Sub(lhs, rhs Value) (Value, error) {
	return numericOp(lhs, rhs, "-",
		func(a, b int32) int32 { return a - b },
		func(a, b float64) float64 { return a - b },
	)
}

// Mul implements the `*` opcode.
func Mul(lhs, rhs Value) (Value, error) {
	return numericOp(lhs, rhs, "*",
		func(a, b int32) int32 { return a * b },
		func(a, b float64) float64 { return a * b },
	)
}

// Div implements the `/` opcode. Integer division by zero is reported
// as an error; double division by zero follows IEEE-754 (+/-Inf, NaN).
func Div(lhs, rhs Value) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Nil, typeErr("/", lhs, rhs)
	}
	if lhs.Tag == Double || rhs.Tag == Double {
		return Float64(lhs.AsFloat64() / rhs.AsFloat64()), nil
	}
	if rhs.I == 0 {
		return Nil, fmt.Errorf("integer division by zero")
	}
	return Int32(lhs.I / rhs.I), nil
}

// Mod implements the `%` opcode. Like Div, integer modulo by zero fails.
func Mod(lhs, rhs Value) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Nil, typeErr("%", lhs, rhs)
	}
	if lhs.Tag == Double || rhs.Tag == Double {
		return Float64(math.Mod(lhs.AsFloat64(), rhs.AsFloat64())), nil
	}
	if rhs.I == 0 {
		return Nil, fmt.Errorf("integer modulo by zero")
	}
	return Int32(lhs.I % rhs.I), nil
}

// Neg implements unary `-`.
func Neg(v Value) (Value, error) {
	switch v.Tag {
	case Int:
		return Int32(-v.I), nil
	case Double:
		return Float64(-v.F), nil
	default:
		return Nil, fmt.Errorf("cannot negate %s", v.Tag)
	}
}

// Invert implements the `!` opcode. On numerics it is logical negation of
// truthiness; on strings/arrays it reports emptiness; Undefined fails.
func Invert(v Value) (Value, error) {
	switch v.Tag {
	case Int, Double:
		return Bool(!v.IsTruthy()), nil
	case String:
		return Bool(len(v.S) == 0), nil
	case Array:
		return Bool(v.A == nil || len(v.A.Elems) == 0), nil
	default:
		return Nil, fmt.Errorf("cannot invert undefined")
	}
}

// Power implements `**`, promoting both operands to Double.
func Power(lhs, rhs Value) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Nil, typeErr("**", lhs, rhs)
	}
	return Float64(math.Pow(lhs.AsFloat64(), rhs.AsFloat64())), nil
}

// bitOp requires both operands to be Int.
func bitOp(lhs, rhs Value, name string, f func(a, b int32) int32) (Value, error) {
	if lhs.Tag != Int || rhs.Tag != Int {
		return Nil, typeErr(name, lhs, rhs)
	}
	return Int32(f(lhs.I, rhs.I)), nil
}

func BitAnd(lhs, rhs Value) (Value, error) { return bitOp(lhs, rhs, "&", func(a, b int32) int32 { return a & b }) }
func BitOr(lhs, rhs Value) (Value, error)  { return bitOp(lhs, rhs, "|", func(a, b int32) int32 { return a | b }) }
func BitXor(lhs, rhs Value) (Value, error) { return bitOp(lhs, rhs, "^", func(a, b int32) int32 { return a ^ b }) }
func BitLeftShift(lhs, rhs Value) (Value, error) {
	return bitOp(lhs, rhs, "<<", func(a, b int32) int32 { return a << uint32(b) })
}
func BitRightShift(lhs, rhs Value) (Value, error) {
	return bitOp(lhs, rhs, ">>", func(a, b int32) int32 { return a >> uint32(b) })
}

// BitNegate implements unary `~`, requiring an Int operand.
func BitNegate(v Value) (Value, error) {
	if v.Tag != Int {
		return Nil, fmt.Errorf("bitwise negate requires int, got %s", v.Tag)
	}
	return Int32(^v.I), nil
}

// Compare implements the six comparison opcodes. == and != are total
// over any tag pair (differing tags are simply unequal); ordering
// requires both sides numeric.
func CompareEq(lhs, rhs Value) Value  { return Bool(Equal(lhs, rhs)) }
func CompareNeq(lhs, rhs Value) Value { return Bool(!Equal(lhs, rhs)) }

func CompareLt(lhs, rhs Value) (Value, error) { return order(lhs, rhs, "<", func(a, b float64) bool { return a < b }) }
func CompareLte(lhs, rhs Value) (Value, error) {
	return order(lhs, rhs, "<=", func(a, b float64) bool { return a <= b })
}
func CompareGt(lhs, rhs Value) (Value, error) { return order(lhs, rhs, ">", func(a, b float64) bool { return a > b }) }
func CompareGte(lhs, rhs Value) (Value, error) {
	return order(lhs, rhs, ">=", func(a, b float64) bool { return a >= b })
}

func order(lhs, rhs Value, name string, f func(a, b float64) bool) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Nil, typeErr(name, lhs, rhs)
	}
	return Bool(f(lhs.AsFloat64(), rhs.AsFloat64())), nil
}

func numericOp(lhs, rhs Value, name string, intOp func(a, b int32) int32, floatOp func(a, b float64) float64) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Nil, typeErr(name, lhs, rhs)
	}
	if lhs.Tag == Double || rhs.Tag == Double {
		return Float64(floatOp(lhs.AsFloat64(), rhs.AsFloat64())), nil
	}
	return Int32(intOp(lhs.I, rhs.I)), nil
}

func typeErr(op string, lhs, rhs Value) error {
	return fmt.Errorf("operator %s not defined for %s and %s", op, lhs.Tag, rhs.Tag)
}

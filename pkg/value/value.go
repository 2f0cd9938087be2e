// Package value implements the dynamic value model shared by the image
// loader and the execution core: a tagged union of undefined, integer,
// double, string and array, plus the arithmetic, comparison and
// truthiness rules that opcodes dispatch on.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies which field of a Value is live.
type Tag uint8

const (
	Undefined Tag = iota
	Int
	Double
	String
	Array
)

// String returns a human-readable name for the tag, used in error messages.
func (t Tag) String() string {
	switch t {
	case Undefined:
		return "undefined"
	case Int:
		return "int"
	case Double:
		return "double"
	case String:
		return "string"
	case Array:
		return "array"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// Handle is the shared, mutable-in-place backing store for an Array value.
// Pushing an array onto the stack pushes this handle, not a copy, so
// SetArrayIndex mutations are visible to every Value referencing it.
type Handle struct {
	Elems []Value
}

// Value is the VM's dynamic value: exactly one of the typed fields below
// is meaningful, selected by Tag.
type Value struct {
	Tag Tag
	I   int32
	F   float64
	S   string
	A   *Handle
}

// Nil is the zero Value (Undefined).
var Nil = Value{}

// Int32 constructs an Int value.
func Int32(n int32) Value { return Value{Tag: Int, I: n} }

// Float64 constructs a Double value.
func Float64(f float64) Value { return Value{Tag: Double, F: f} }

// Str constructs a String value.
func Str(s string) Value { return Value{Tag: String, S: s} }

// NewArray constructs an Array value wrapping a fresh Handle.
func NewArray(elems []Value) Value {
	return Value{Tag: Array, A: &Handle{Elems: elems}}
}

// Bool constructs Int(1) or Int(0), the VM's only boolean representation.
func Bool(b bool) Value {
	if b {
		return Int32(1)
	}
	return Int32(0)
}

// IsTruthy implements spec truthiness: numerics truthy iff > 0; strings
// and arrays truthy iff non-empty; Undefined is always falsey.
func (v Value) IsTruthy() bool {
	switch v.Tag {
	case Int:
		return v.I > 0
	case Double:
		return v.F > 0
	case String:
		return len(v.S) > 0
	case Array:
		return v.A != nil && len(v.A.Elems) > 0
	default:
		return false
	}
}

// AsFloat64 widens a numeric value to float64. Non-numeric tags return 0.
func (v Value) AsFloat64() float64 {
	switch v.Tag {
	case Int:
		return float64(v.I)
	case Double:
		return v.F
	default:
		return 0
	}
}

// IsNumeric reports whether the tag is Int or Double.
func (v Value) IsNumeric() bool {
	return v.Tag == Int || v.Tag == Double
}

// String renders a value for interpolation and text display: numerics as
// decimal, strings inline, Undefined as empty, arrays as a bracketed,
// comma-joined sequence of their own rendering.
func (v Value) String() string {
	switch v.Tag {
	case Undefined:
		return ""
	case Int:
		return strconv.FormatInt(int64(v.I), 10)
	case Double:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case String:
		return v.S
	case Array:
		if v.A == nil {
			return "[]"
		}
		parts := make([]string, len(v.A.Elems))
		for i, e := range v.A.Elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

// Equal implements Value equality for the == / != opcodes: differing
// tags are never equal; matching tags compare their payload.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case Undefined:
		return true
	case Int:
		return a.I == b.I
	case Double:
		return a.F == b.F
	case String:
		return a.S == b.S
	case Array:
		if a.A == b.A {
			return true
		}
		if a.A == nil || b.A == nil || len(a.A.Elems) != len(b.A.Elems) {
			return false
		}
		for i := range a.A.Elems {
			if !Equal(a.A.Elems[i], b.A.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

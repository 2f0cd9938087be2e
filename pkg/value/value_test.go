package value

import "testing"

func TestTruthiness(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Nil, false},
		{Int32(0), false},
		{Int32(1), true},
		{Int32(-1), false},
		{Float64(0.5), true},
		{Float64(0), false},
		{Str(""), false},
		{Str("x"), true},
		{NewArray(nil), false},
		{NewArray([]Value{Int32(1)}), true},
	}
	for _, c := range cases {
		if got := c.v.IsTruthy(); got != c.want {
			t.Errorf("IsTruthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEqualAcrossTags(t *testing.T) {
	if Equal(Int32(1), Str("1")) {
		t.Error("Int(1) should not equal String(\"1\")")
	}
	if !Equal(Int32(1), Int32(1)) {
		t.Error("Int(1) should equal Int(1)")
	}
	if !Equal(Nil, Nil) {
		t.Error("Undefined should equal Undefined")
	}
}

func TestArrayHandleAliasing(t *testing.T) {
	a := NewArray([]Value{Int32(1), Int32(2)})
	b := a
	b.A.Elems[0] = Int32(99)
	if a.A.Elems[0].I != 99 {
		t.Error("mutating through one Value handle should be visible via the other")
	}
}

func TestAddPromotion(t *testing.T) {
	r, err := Add(Int32(3), Int32(4))
	if err != nil || r.Tag != Int || r.I != 7 {
		t.Fatalf("Add(3,4) = %v, %v", r, err)
	}
	r, err = Add(Int32(3), Float64(0.5))
	if err != nil || r.Tag != Double || r.F != 3.5 {
		t.Fatalf("Add(3,0.5) = %v, %v", r, err)
	}
}

func TestAddTypeError(t *testing.T) {
	if _, err := Add(NewArray(nil), Int32(1)); err == nil {
		t.Error("expected type error adding array to int")
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := Div(Int32(1), Int32(0)); err == nil {
		t.Error("expected error for integer division by zero")
	}
	r, err := Div(Float64(1), Float64(0))
	if err != nil {
		t.Fatalf("double division by zero should not error: %v", err)
	}
	if !isInf(r.F) {
		t.Errorf("expected +Inf, got %v", r.F)
	}
}

func isInf(f float64) bool { return f > 1e308 || f < -1e308 }

func TestStringRendering(t *testing.T) {
	if Int32(42).String() != "42" {
		t.Errorf("got %q", Int32(42).String())
	}
	if Nil.String() != "" {
		t.Errorf("expected empty string for undefined, got %q", Nil.String())
	}
	arr := NewArray([]Value{Int32(1), Str("x")})
	if got, want := arr.String(), "[1, x]"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

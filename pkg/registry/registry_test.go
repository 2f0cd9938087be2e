package registry

import (
	"testing"

	"github.com/chazu/dialogvm/pkg/value"
)

func TestMapRegistryInvoke(t *testing.T) {
	r := NewMapRegistry()
	r.Register("double", func(args []value.Value) (value.Value, error) {
		return value.Int32(args[0].I * 2), nil
	})

	result, err := r.Invoke("double", []value.Value{value.Int32(21)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.I != 42 {
		t.Errorf("result = %d, want 42", result.I)
	}
}

func TestMapRegistryMissing(t *testing.T) {
	r := NewMapRegistry()
	if _, err := r.Invoke("missing", nil); err == nil {
		t.Error("expected error for unregistered function")
	}
}

func TestMapRegistryUnregister(t *testing.T) {
	r := NewMapRegistry()
	r.Register("f", func(args []value.Value) (value.Value, error) { return value.Nil, nil })
	r.Unregister("f")
	if _, err := r.Invoke("f", nil); err == nil {
		t.Error("expected error after unregister")
	}
}

func TestMapRegistryNames(t *testing.T) {
	r := NewMapRegistry()
	r.Register("b", nil)
	r.Register("a", nil)
	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want sorted [a b]", names)
	}
}

// Package registry defines the trait the VM calls through for the
// CallExternal opcode, and a simple manual-registration implementation
// of it.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chazu/dialogvm/pkg/value"
)

// Func is a host function exposed to dialogue scripts: it receives the
// arguments already popped off the operand stack, in call order, and
// returns either a single result value or an error.
type Func func(args []value.Value) (value.Value, error)

// FunctionRegistry is how the VM reaches host-defined behavior. Hosts
// provide one implementation; the VM never knows or cares whether calls
// run in-process or are proxied elsewhere.
type FunctionRegistry interface {
	// Invoke calls the named host function with args and returns its
	// result. A missing name is a lookup failure, not a panic.
	Invoke(name string, args []value.Value) (value.Value, error)
}

// MapRegistry is an in-process FunctionRegistry backed by manual
// name-to-Func registration. It is the hand-wired counterpart to a
// reflection-based auto-binding registry: callers register exactly the
// functions they want exposed, by name, with no struct-tag scanning.
type MapRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewMapRegistry returns an empty MapRegistry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{funcs: make(map[string]Func)}
}

// Register binds name to fn, replacing any previous binding.
func (r *MapRegistry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Unregister removes name, if present.
func (r *MapRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.funcs, name)
}

// Names returns the currently registered function names, sorted.
func (r *MapRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke implements FunctionRegistry.
func (r *MapRegistry) Invoke(name string, args []value.Value) (value.Value, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return value.Nil, fmt.Errorf("host function %q is not registered", name)
	}
	return fn(args)
}

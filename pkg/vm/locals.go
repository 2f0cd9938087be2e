package vm

import "github.com/chazu/dialogvm/pkg/value"

// getLocal reads slot id. A flag-bound slot dereferences through the
// persistent flag store instead of its own backing slot.
func (vm *VM) getLocal(id int) value.Value {
	if name, ok := vm.flagMap[id]; ok {
		return vm.flags[name]
	}
	if id < 0 || id >= len(vm.locals) {
		return value.Nil
	}
	return vm.locals[id]
}

// setLocal writes slot id, padding with Undefined as needed. A
// flag-bound slot writes through to the flag store instead.
func (vm *VM) setLocal(id int, v value.Value) {
	if name, ok := vm.flagMap[id]; ok {
		vm.flags[name] = v
		return
	}
	if id >= len(vm.locals) {
		grown := make([]value.Value, id+1)
		copy(grown, vm.locals)
		vm.locals = grown
	}
	vm.locals[id] = v
}

// freeLocal removes slot id: a flag-bound slot loses its binding
// (reverting to a plain, Undefined slot); a plain slot is reset to
// Undefined in place.
func (vm *VM) freeLocal(id int) {
	if _, ok := vm.flagMap[id]; ok {
		delete(vm.flagMap, id)
		return
	}
	if id >= 0 && id < len(vm.locals) {
		vm.locals[id] = value.Nil
	}
}

// bindFlag records that slot id is backed by the named persistent flag,
// per the flag preamble (spec §4.3).
func (vm *VM) bindFlag(id int, name string) {
	vm.flagMap[id] = name
}

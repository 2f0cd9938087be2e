package vm

import (
	"fmt"

	"github.com/chazu/dialogvm/pkg/image"
	"github.com/chazu/dialogvm/pkg/value"
)

// maxSubSteps bounds the inner driver against a malformed image whose
// preamble/definition snippet never terminates.
const maxSubSteps = 100000

// runPreamble evaluates entry's flag-preamble pairs in order, binding
// slot argBase+i to the i-th flag name and recording the default value
// under first-write-wins semantics (spec §4.3). argBase is the number
// of argument locals already occupying the low end of vm.locals, so a
// function's flag slots never shadow its argument slots (spec §3:
// "Count = locals + flag_map size").
func (vm *VM) runPreamble(entry image.Entry, argBase int) error {
	pairs := entry.FlagPairs()
	for i := 0; i < pairs; i++ {
		valueOffset := entry.Offsets[1+2*i]
		nameOffset := entry.Offsets[2+2*i]

		defaultVal, err := vm.runSubExpr(int(valueOffset))
		if err != nil {
			return err
		}
		nameVal, err := vm.runSubExpr(int(nameOffset))
		if err != nil {
			return err
		}
		name := nameVal.String()

		if _, exists := vm.flags[name]; !exists {
			vm.flags[name] = defaultVal
		}
		vm.bindFlag(argBase+i, name)
	}
	return nil
}

// runSubExpr runs a bounded, self-contained sub-execution starting at
// offset until it stops (spec: first RETURN/EXIT, or — defensively — a
// suspend condition that should not occur by construction), then pops
// and returns one Value as the sub-expression's result. The VM's ip is
// saved and restored around the call so the caller's position survives.
func (vm *VM) runSubExpr(offset int) (value.Value, error) {
	savedIP := vm.ip
	vm.ip = offset

	stopped := false
	for step := 0; step < maxSubSteps; step++ {
		stop, err := vm.execOne(true)
		if err != nil {
			vm.ip = savedIP
			return value.Nil, err
		}
		if stop {
			stopped = true
			break
		}
	}
	if !stopped {
		vm.ip = savedIP
		return value.Nil, newErr(StateError, "sub-execution", offset, fmt.Errorf("did not terminate within %d steps", maxSubSteps))
	}

	result, err := vm.pop()
	vm.ip = savedIP
	if err != nil {
		return value.Nil, newErr(BoundsError, "sub-execution", offset, err)
	}
	return result, nil
}

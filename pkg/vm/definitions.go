package vm

import (
	"fmt"

	"github.com/chazu/dialogvm/pkg/value"
)

// GetDefinition resolves a named definition to its (possibly
// interpolated) string, using the cached result when one exists.
func (vm *VM) GetDefinition(name string) (string, error) {
	if cached, ok := vm.definitionsCache[name]; ok {
		return cached, nil
	}

	def, ok := vm.img.DefinitionByName(name)
	if !ok {
		return "", newErr(LookupError, "GetDefinition", vm.ip, fmt.Errorf("unknown definition %q", name))
	}
	template, err := vm.img.Resolve(def.StringRef)
	if err != nil {
		return "", newErr(LookupError, "GetDefinition", vm.ip, err)
	}

	result := template
	if def.HasBytecode() {
		args, err := vm.runSubExprArgs(int(def.BytecodeOffset))
		if err != nil {
			return "", err
		}
		result = interpolate(template, args)
	}

	if vm.img.TranslationLoaded {
		vm.definitionsCache[name] = result
	}
	return result, nil
}

// runSubExprArgs runs a bounded sub-execution starting at offset until
// it stops, then returns everything left on the operand stack beyond
// its starting depth, in push order, as interpolation arguments (spec
// §4.7). The stack is restored to its prior depth and ip is restored.
func (vm *VM) runSubExprArgs(offset int) ([]value.Value, error) {
	savedIP := vm.ip
	baseDepth := len(vm.stack)
	vm.ip = offset

	stopped := false
	for step := 0; step < maxSubSteps; step++ {
		stop, err := vm.execOne(true)
		if err != nil {
			vm.ip = savedIP
			return nil, err
		}
		if stop {
			stopped = true
			break
		}
	}
	if !stopped {
		vm.ip = savedIP
		return nil, newErr(StateError, "sub-execution", offset, fmt.Errorf("did not terminate within %d steps", maxSubSteps))
	}

	args := append([]value.Value(nil), vm.stack[baseDepth:]...)
	vm.stack = vm.stack[:baseDepth]
	vm.ip = savedIP
	return args, nil
}

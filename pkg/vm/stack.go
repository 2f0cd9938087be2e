package vm

import (
	"fmt"

	"github.com/chazu/dialogvm/pkg/value"
)

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() (value.Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return value.Nil, fmt.Errorf("pop on empty stack")
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v, nil
}

func (vm *VM) peek() (value.Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return value.Nil, fmt.Errorf("peek on empty stack")
	}
	return vm.stack[n-1], nil
}

// popN pops n values and returns them in push order (the first value
// popped off the stack is the last element of the result, so
// result[0] corresponds to the value pushed first / popped last).
func (vm *VM) popN(n int) ([]value.Value, error) {
	if len(vm.stack) < n {
		return nil, fmt.Errorf("need %d operands, have %d", n, len(vm.stack))
	}
	top := len(vm.stack)
	popped := make([]value.Value, n)
	for i := 0; i < n; i++ {
		popped[n-1-i] = vm.stack[top-1-i]
	}
	vm.stack = vm.stack[:top-n]
	return popped, nil
}

// popArgsInPopOrder pops n values and returns them in pop order, so
// result[0] is the first value popped (the top of stack). Used
// wherever the spec defines an operation in terms of "first popped" —
// interpolation arguments and CALL_EXTERNAL arguments.
func (vm *VM) popArgsInPopOrder(n int) ([]value.Value, error) {
	pushOrder, err := vm.popN(n)
	if err != nil {
		return nil, err
	}
	popOrder := make([]value.Value, n)
	for i, v := range pushOrder {
		popOrder[n-1-i] = v
	}
	return popOrder, nil
}

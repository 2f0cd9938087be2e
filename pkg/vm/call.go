package vm

import (
	"fmt"

	"github.com/chazu/dialogvm/pkg/value"
)

// doCall implements CALL: it saves the caller's frame on the call stack,
// installs the popped arguments as the callee's locals[0..argc), runs
// the target function's flag preamble, and leaves ip at the function's
// entry point. returnIP is
// where execution resumes after a matching RETURN/EXIT.
func (vm *VM) doCall(fnIndex, argc, returnIP int) error {
	entry, ok := vm.img.Functions[uint32(fnIndex)]
	if !ok {
		return newErr(LookupError, "CALL", vm.ip, fmt.Errorf("unknown function id %d", fnIndex))
	}
	// popN returns values in push order; the call convention binds
	// local[0] to the first-popped (topmost) argument, so reverse.
	pushOrder, err := vm.popN(argc)
	if err != nil {
		return newErr(BoundsError, "CALL", vm.ip, err)
	}
	args := make([]value.Value, argc)
	for i, v := range pushOrder {
		args[argc-1-i] = v
	}

	vm.callStack = append(vm.callStack, frame{
		ip:      returnIP,
		stack:   vm.stack,
		locals:  vm.locals,
		flagMap: vm.flagMap,
	})

	vm.stack = nil
	vm.locals = args
	vm.flagMap = make(map[int]string)

	if err := vm.runPreamble(entry, argc); err != nil {
		return err
	}
	vm.ip = int(entry.EntryPoint())
	return nil
}

// doCallExternal implements CALL_EXTERNAL: looks up the external
// function's name by symbol id and invokes it through the host
// registry, pushing its result.
func (vm *VM) doCallExternal(nameIndex, argc int) error {
	name, ok := vm.img.SymbolName(uint32(nameIndex))
	if !ok {
		return newErr(LookupError, "CALL_EXTERNAL", vm.ip, fmt.Errorf("unknown external function id %d", nameIndex))
	}
	args, err := vm.popArgsInPopOrder(argc)
	if err != nil {
		return newErr(BoundsError, "CALL_EXTERNAL", vm.ip, err)
	}
	if vm.registry == nil {
		return newErr(HostError, "CALL_EXTERNAL", vm.ip, fmt.Errorf("no function registry configured"))
	}
	result, err := vm.registry.Invoke(name, args)
	if err != nil {
		return newErr(HostError, "CALL_EXTERNAL", vm.ip, err)
	}
	vm.push(result)
	return nil
}

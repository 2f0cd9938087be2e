package vm

import (
	"fmt"
	"log"

	"github.com/chazu/dialogvm/pkg/bytecode"
	"github.com/chazu/dialogvm/pkg/value"
)

// execOne decodes and executes exactly one instruction at vm.ip. sub
// marks a bounded inner sub-execution (flag preamble, definition
// arguments): Return and Exit become bare stop signals instead of
// touching the call stack or scene-completion state, since a
// sub-execution never owns a call frame of its own.
//
// It returns stop=true when the VM (or sub-execution) should not
// continue looping: a suspend condition was reached, or — in sub mode —
// Return/Exit was hit.
func (vm *VM) execOne(sub bool) (stop bool, err error) {
	inst, derr := bytecode.Decode(vm.img.Instructions, vm.ip)
	if derr != nil {
		return true, newErr(BoundsError, "decode", vm.ip, derr)
	}
	startIP := vm.ip
	nextIP := vm.ip + inst.Len
	op := inst.Op

	fail := func(kind Kind, err error) (bool, error) {
		return true, newErr(kind, op.String(), startIP, err)
	}

	switch op {
	case bytecode.OpNop:
		// no-op

	case bytecode.OpPop:
		if _, err := vm.pop(); err != nil {
			return fail(BoundsError, err)
		}

	case bytecode.OpDuplicate:
		top, err := vm.peek()
		if err != nil {
			return fail(BoundsError, err)
		}
		vm.push(top)

	case bytecode.OpDuplicate2:
		pair, err := vm.popN(2)
		if err != nil {
			return fail(BoundsError, err)
		}
		vm.push(pair[0])
		vm.push(pair[1])
		vm.push(pair[0])
		vm.push(pair[1])

	case bytecode.OpSave:
		top, err := vm.peek()
		if err != nil {
			return fail(BoundsError, err)
		}
		vm.save = top

	case bytecode.OpLoad:
		vm.push(vm.save)

	case bytecode.OpPushUndefined:
		vm.push(value.Nil)

	case bytecode.OpPushArrayIndex:
		operands, err := vm.popN(2)
		if err != nil {
			return fail(BoundsError, err)
		}
		arr, idx := operands[0], operands[1]
		if arr.Tag != value.Array {
			return fail(TypeError, fmt.Errorf("expected array, got %s", arr.Tag))
		}
		if idx.Tag != value.Int {
			return fail(TypeError, fmt.Errorf("expected int index, got %s", idx.Tag))
		}
		if idx.I < 0 || int(idx.I) >= len(arr.A.Elems) {
			return fail(BoundsError, fmt.Errorf("array index %d out of range (%d elements)", idx.I, len(arr.A.Elems)))
		}
		vm.push(arr.A.Elems[idx.I])

	case bytecode.OpSetArrayIndex:
		operands, err := vm.popN(3)
		if err != nil {
			return fail(BoundsError, err)
		}
		arr, idx, val := operands[0], operands[1], operands[2]
		if arr.Tag != value.Array {
			return fail(TypeError, fmt.Errorf("expected array, got %s", arr.Tag))
		}
		if idx.Tag != value.Int {
			return fail(TypeError, fmt.Errorf("expected int index, got %s", idx.Tag))
		}
		if idx.I < 0 || int(idx.I) >= len(arr.A.Elems) {
			return fail(BoundsError, fmt.Errorf("array index %d out of range (%d elements)", idx.I, len(arr.A.Elems)))
		}
		arr.A.Elems[idx.I] = val
		vm.push(arr)

	case bytecode.OpPushInt:
		vm.push(value.Int32(inst.I32))

	case bytecode.OpPushDouble:
		vm.push(value.Float64(inst.F64))

	case bytecode.OpPushString:
		s, ok := vm.img.StringAt(inst.I32)
		if !ok {
			return fail(LookupError, fmt.Errorf("string table index %d out of range", inst.I32))
		}
		vm.push(value.Str(s))

	case bytecode.OpPushBinaryString:
		s, err := vm.resolveTranslation(inst.I32)
		if err != nil {
			return fail(LookupError, err)
		}
		vm.push(value.Str(s))

	case bytecode.OpMakeArray:
		n := int(inst.I32)
		if n < 0 {
			return fail(TypeError, fmt.Errorf("negative array length %d", n))
		}
		elems, err := vm.popN(n)
		if err != nil {
			return fail(BoundsError, err)
		}
		rev := make([]value.Value, n)
		for i := 0; i < n; i++ {
			rev[i] = elems[n-1-i]
		}
		vm.push(value.NewArray(rev))

	case bytecode.OpPushInterpolatedString:
		template, ok := vm.img.StringAt(inst.I32)
		if !ok {
			return fail(LookupError, fmt.Errorf("string table index %d out of range", inst.I32))
		}
		args, err := vm.popArgsInPopOrder(int(inst.I32b))
		if err != nil {
			return fail(BoundsError, err)
		}
		vm.push(value.Str(interpolate(template, args)))

	case bytecode.OpPushBinaryInterpolatedString:
		template, err := vm.resolveTranslation(inst.I32)
		if err != nil {
			return fail(LookupError, err)
		}
		args, err := vm.popArgsInPopOrder(int(inst.I32b))
		if err != nil {
			return fail(BoundsError, err)
		}
		vm.push(value.Str(interpolate(template, args)))

	case bytecode.OpSetVarGlobal:
		name, ok := vm.img.SymbolName(uint32(inst.I32))
		if !ok {
			return fail(LookupError, fmt.Errorf("symbol id %d has no name", inst.I32))
		}
		v, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		vm.globals[name] = v

	case bytecode.OpPushVarGlobal:
		name, ok := vm.img.SymbolName(uint32(inst.I32))
		if !ok {
			return fail(LookupError, fmt.Errorf("symbol id %d has no name", inst.I32))
		}
		vm.push(vm.globals[name])

	case bytecode.OpSetVarLocal:
		v, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		vm.setLocal(int(inst.I32), v)

	case bytecode.OpPushVarLocal:
		vm.push(vm.getLocal(int(inst.I32)))

	case bytecode.OpFreeLocal:
		vm.freeLocal(int(inst.I32))

	case bytecode.OpJump:
		nextIP += int(inst.I32)

	case bytecode.OpJumpTruthy:
		cond, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		if cond.IsTruthy() {
			nextIP += int(inst.I32)
		}

	case bytecode.OpJumpFalsey:
		cond, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		if !cond.IsTruthy() {
			nextIP += int(inst.I32)
		}

	case bytecode.OpAddition, bytecode.OpSubtraction, bytecode.OpMultiply, bytecode.OpDivide, bytecode.OpModulo,
		bytecode.OpBitLeftShift, bytecode.OpBitRightShift, bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor, bytecode.OpPower,
		bytecode.OpCompareNeq, bytecode.OpCompareGt, bytecode.OpCompareLt, bytecode.OpCompareGte, bytecode.OpCompareLte, bytecode.OpCompareEq:
		operands, err := vm.popN(2)
		if err != nil {
			return fail(BoundsError, err)
		}
		rhs, lhs := operands[1], operands[0]
		result, err := vm.binaryOp(op, lhs, rhs)
		if err != nil {
			return fail(TypeError, err)
		}
		vm.push(result)

	case bytecode.OpNegate:
		v, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		result, err := value.Neg(v)
		if err != nil {
			return fail(TypeError, err)
		}
		vm.push(result)

	case bytecode.OpInvert:
		v, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		result, err := value.Invert(v)
		if err != nil {
			return fail(TypeError, err)
		}
		vm.push(result)

	case bytecode.OpBitNegate:
		v, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		result, err := value.BitNegate(v)
		if err != nil {
			return fail(TypeError, err)
		}
		vm.push(result)

	case bytecode.OpCall:
		if err := vm.doCall(int(inst.I32), int(inst.I32b), nextIP); err != nil {
			return true, err
		}
		return false, nil

	case bytecode.OpCallExternal:
		if err := vm.doCallExternal(int(inst.I32), int(inst.I32b)); err != nil {
			return true, err
		}

	case bytecode.OpReturn:
		retVal, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		if sub {
			vm.push(retVal)
			return true, nil
		}
		if len(vm.callStack) == 0 {
			return fail(StateError, fmt.Errorf("RETURN with empty call stack"))
		}
		vm.popFrame()
		vm.push(retVal)
		return false, nil

	case bytecode.OpExit:
		if sub {
			return true, nil
		}
		vm.locals = nil
		vm.flagMap = make(map[int]string)
		if len(vm.callStack) == 0 {
			vm.ip = -1
			vm.paused = true
			vm.sceneCompleted = true
			return true, nil
		}
		vm.popFrame()
		vm.push(value.Nil)
		return false, nil

	case bytecode.OpChoiceBegin:
		if vm.inChoice {
			return fail(StateError, fmt.Errorf("CHOICE_BEGIN while already in a choice"))
		}
		vm.inChoice = true
		vm.choices = nil

	case bytecode.OpChoiceAdd:
		if !vm.inChoice {
			return fail(StateError, fmt.Errorf("CHOICE_ADD outside a choice"))
		}
		operands, err := vm.popN(2)
		if err != nil {
			return fail(BoundsError, err)
		}
		text, chance := operands[0], operands[1]
		if vm.chance(chance.AsFloat64()) {
			vm.choices = append(vm.choices, choiceEntry{target: nextIP + int(inst.I32), text: text.String()})
		}

	case bytecode.OpChoiceAddTruthy:
		if !vm.inChoice {
			return fail(StateError, fmt.Errorf("CHOICE_ADD_TRUTHY outside a choice"))
		}
		operands, err := vm.popN(3)
		if err != nil {
			return fail(BoundsError, err)
		}
		guard, text, chance := operands[0], operands[1], operands[2]
		if guard.IsTruthy() && vm.chance(chance.AsFloat64()) {
			vm.choices = append(vm.choices, choiceEntry{target: nextIP + int(inst.I32), text: text.String()})
		}

	case bytecode.OpChoiceSelect:
		if len(vm.choices) == 0 {
			return fail(StateError, fmt.Errorf("CHOICE_SELECT with no accumulated choices"))
		}
		vm.selectChoice = true
		vm.paused = true

	case bytecode.OpChooseAdd:
		chance, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		vm.chooseOptions = append(vm.chooseOptions, chooseEntry{weight: chance.AsFloat64(), target: nextIP + int(inst.I32)})

	case bytecode.OpChooseAddTruthy:
		operands, err := vm.popN(2)
		if err != nil {
			return fail(BoundsError, err)
		}
		chance, guard := operands[0], operands[1]
		if guard.IsTruthy() {
			vm.chooseOptions = append(vm.chooseOptions, chooseEntry{weight: chance.AsFloat64(), target: nextIP + int(inst.I32)})
		}

	case bytecode.OpChooseSel:
		if len(vm.chooseOptions) == 0 {
			return fail(StateError, fmt.Errorf("CHOOSE_SEL with no accumulated options"))
		}
		weights := make([]float64, len(vm.chooseOptions))
		for i, o := range vm.chooseOptions {
			weights[i] = o.weight
		}
		idx := vm.weighted(weights)
		if idx < 0 || idx >= len(vm.chooseOptions) {
			return fail(StateError, fmt.Errorf("weighted callback returned out-of-range index %d", idx))
		}
		nextIP = vm.chooseOptions[idx].target
		vm.chooseOptions = nil

	case bytecode.OpTextRun:
		text, err := vm.pop()
		if err != nil {
			return fail(BoundsError, err)
		}
		vm.currentText = text.String()
		vm.runningText = true
		vm.paused = true
		vm.ip = nextIP
		return true, nil

	default:
		if !op.IsKnown() {
			return fail(BoundsError, fmt.Errorf("unknown opcode 0x%02X", byte(op)))
		}
		return fail(StateError, fmt.Errorf("opcode %s has no dispatch case", op))
	}

	vm.ip = nextIP

	switch op {
	case bytecode.OpChoiceSelect:
		return true, nil
	}
	return false, nil
}

// binaryOp applies a no-operand binary opcode's semantics, given lhs
// (the value pushed first / popped second) and rhs (popped first / on
// top), per spec §4.2's operand-order rule.
func (vm *VM) binaryOp(op bytecode.Opcode, lhs, rhs value.Value) (value.Value, error) {
	switch op {
	case bytecode.OpAddition:
		return value.Add(lhs, rhs)
	case bytecode.OpSubtraction:
		return value.Sub(lhs, rhs)
	case bytecode.OpMultiply:
		return value.Mul(lhs, rhs)
	case bytecode.OpDivide:
		return value.Div(lhs, rhs)
	case bytecode.OpModulo:
		return value.Mod(lhs, rhs)
	case bytecode.OpPower:
		return value.Power(lhs, rhs)
	case bytecode.OpBitLeftShift:
		return value.BitLeftShift(lhs, rhs)
	case bytecode.OpBitRightShift:
		return value.BitRightShift(lhs, rhs)
	case bytecode.OpBitAnd:
		return value.BitAnd(lhs, rhs)
	case bytecode.OpBitOr:
		return value.BitOr(lhs, rhs)
	case bytecode.OpBitXor:
		return value.BitXor(lhs, rhs)
	case bytecode.OpCompareEq:
		return value.CompareEq(lhs, rhs), nil
	case bytecode.OpCompareNeq:
		return value.CompareNeq(lhs, rhs), nil
	case bytecode.OpCompareGt:
		return value.CompareGt(lhs, rhs)
	case bytecode.OpCompareLt:
		return value.CompareLt(lhs, rhs)
	case bytecode.OpCompareGte:
		return value.CompareGte(lhs, rhs)
	case bytecode.OpCompareLte:
		return value.CompareLte(lhs, rhs)
	default:
		return value.Nil, fmt.Errorf("%s is not a binary operator", op)
	}
}

// resolveTranslation reads a translation-table index, failing loudly
// (per spec §7's "warning before the inevitable failure") when the
// table has not been loaded yet.
func (vm *VM) resolveTranslation(idx int32) (string, error) {
	if !vm.img.TranslationLoaded {
		log.Printf("dialogvm: translation table not loaded, cannot resolve index %d", idx)
		return "", fmt.Errorf("dialogue opcode used before translation table was loaded (index %d)", idx)
	}
	if idx < 0 || int(idx) >= len(vm.img.TranslationTable) {
		return "", fmt.Errorf("translation table index %d out of range", idx)
	}
	return vm.img.TranslationTable[idx], nil
}

func (vm *VM) popFrame() {
	n := len(vm.callStack)
	f := vm.callStack[n-1]
	vm.callStack = vm.callStack[:n-1]
	vm.ip = f.ip
	vm.stack = f.stack
	vm.locals = f.locals
	vm.flagMap = f.flagMap
}

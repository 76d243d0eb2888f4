package vm

import (
	"context"
	"math"

	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/object"
	"github.com/risor-io/clr/op"
)

// handler executes one instruction in frame f. Handlers that transfer
// control set f.next; ret sets f.returned.
type handler func(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error

// handlers is indexed by op.Code and has an entry for every code.
var handlers [op.Count]handler

func init() {
	handlers[op.Invalid] = opUnsupported
	handlers[op.Nop] = opNop
	handlers[op.Ret] = opRet
	handlers[op.Dup] = opDup
	handlers[op.Pop] = opPop
	handlers[op.Throw] = opThrow

	handlers[op.Ldnull] = opLdnull
	handlers[op.Ldstr] = opLdstr
	handlers[op.LdcI4] = opLdcI4
	handlers[op.LdcI4S] = opLdcI4
	handlers[op.LdcI4M1] = pushInt32(-1)
	handlers[op.LdcI4_0] = pushInt32(0)
	handlers[op.LdcI4_1] = pushInt32(1)
	handlers[op.LdcI4_2] = pushInt32(2)
	handlers[op.LdcI4_3] = pushInt32(3)
	handlers[op.LdcI4_4] = pushInt32(4)
	handlers[op.LdcI4_5] = pushInt32(5)
	handlers[op.LdcI4_6] = pushInt32(6)
	handlers[op.LdcI4_7] = pushInt32(7)
	handlers[op.LdcI4_8] = pushInt32(8)
	handlers[op.LdcI8] = opLdcI8
	handlers[op.LdcR4] = opLdcR4
	handlers[op.LdcR8] = opLdcR8

	handlers[op.Ldloc0] = loadLocal(0)
	handlers[op.Ldloc1] = loadLocal(1)
	handlers[op.Ldloc2] = loadLocal(2)
	handlers[op.Ldloc3] = loadLocal(3)
	handlers[op.LdlocS] = opLdlocS
	handlers[op.LdlocaS] = opLdlocS
	handlers[op.Stloc0] = storeLocal(0)
	handlers[op.Stloc1] = storeLocal(1)
	handlers[op.Stloc2] = storeLocal(2)
	handlers[op.Stloc3] = storeLocal(3)
	handlers[op.StlocS] = opStlocS

	handlers[op.Ldarg0] = loadArg(0)
	handlers[op.Ldarg1] = loadArg(1)
	handlers[op.Ldarg2] = loadArg(2)
	handlers[op.Ldarg3] = loadArg(3)
	handlers[op.LdargS] = opLdargS
	handlers[op.StargS] = opStargS

	for _, code := range []op.Code{op.Add, op.Sub, op.Mul, op.Div, op.Rem, op.And, op.Or, op.Xor, op.Shl, op.Shr} {
		handlers[code] = opBinary
	}
	handlers[op.Neg] = opNeg
	handlers[op.ConvI4] = opConvI4
	handlers[op.ConvI8] = opConvI8
	handlers[op.Ceq] = opCompare
	handlers[op.Cgt] = opCompare
	handlers[op.Clt] = opCompare

	handlers[op.BrS] = opBr
	handlers[op.Br] = opBr
	handlers[op.BrfalseS] = opBrfalse
	handlers[op.Brfalse] = opBrfalse
	handlers[op.BrtrueS] = opBrtrue
	handlers[op.Brtrue] = opBrtrue
	handlers[op.BeqS] = compareBranch(op.Ceq, true)
	handlers[op.BneUnS] = compareBranch(op.Ceq, false)
	handlers[op.BgeS] = compareBranch(op.Clt, false)
	handlers[op.BgtS] = compareBranch(op.Cgt, true)
	handlers[op.BleS] = compareBranch(op.Cgt, false)
	handlers[op.BltS] = compareBranch(op.Clt, true)

	handlers[op.Ldsfld] = opLdsfld
	handlers[op.Stsfld] = opStsfld
	handlers[op.Ldfld] = opLdfld
	handlers[op.Stfld] = opStfld

	handlers[op.Call] = opCall
	handlers[op.Callvirt] = opCall
	handlers[op.Newobj] = opNewobj

	handlers[op.Newarr] = opNewarr
	handlers[op.Ldlen] = opLdlen
	handlers[op.StelemRef] = opStelemRef
}

func opUnsupported(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	return errz.NewStructuredErrorf(errz.ErrUnsupportedOpcode, "unsupported opcode %s", instr.Name)
}

func opNop(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	return nil
}

func opRet(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	f.returned = true
	if len(f.stack) > 0 {
		f.result, _ = f.pop()
	}
	return nil
}

func opDup(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	top, err := f.peek()
	if err != nil {
		return err
	}
	f.push(top)
	return nil
}

func opPop(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	_, err := f.pop()
	return err
}

func opThrow(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	obj, err := f.pop()
	if err != nil {
		return err
	}
	switch obj := obj.(type) {
	case *object.NullType:
		return errz.NewStructuredError(errz.ErrNullReference, "throw of a null reference")
	case *object.Instance:
		se := errz.NewStructuredErrorf(errz.ErrUnhandledException,
			"exception of type %s was thrown", obj.ClassName())
		se.Exception = obj.ClassName()
		return se
	default:
		return errz.NewStructuredErrorf(errz.ErrInvalidProgram,
			"throw expects an object reference (got %s)", obj.Type())
	}
}

func opLdnull(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	f.push(object.Null)
	return nil
}

func opLdstr(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	s, ok := instr.Operand.(string)
	if !ok {
		return operandError(instr)
	}
	f.push(object.NewString(s))
	return nil
}

func pushInt32(value int32) handler {
	return func(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
		f.push(object.NewInt32(value))
		return nil
	}
}

func opLdcI4(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	n, ok := instr.Int()
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return operandError(instr)
	}
	f.push(object.NewInt32(int32(n)))
	return nil
}

func opLdcI8(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	switch v := instr.Operand.(type) {
	case int64:
		f.push(object.NewInt64(v))
	default:
		n, ok := instr.Int()
		if !ok {
			return operandError(instr)
		}
		f.push(object.NewInt64(int64(n)))
	}
	return nil
}

func opLdcR4(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	switch v := instr.Operand.(type) {
	case float32:
		f.push(object.NewFloat32(v))
	case float64:
		f.push(object.NewFloat32(float32(v)))
	default:
		return operandError(instr)
	}
	return nil
}

func opLdcR8(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	switch v := instr.Operand.(type) {
	case float64:
		f.push(object.NewFloat64(v))
	case float32:
		f.push(object.NewFloat64(float64(v)))
	default:
		return operandError(instr)
	}
	return nil
}

func loadLocal(index int) handler {
	return func(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
		obj, err := f.local(index)
		if err != nil {
			return err
		}
		f.push(obj)
		return nil
	}
}

func opLdlocS(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	index, err := slotOperand(instr)
	if err != nil {
		return err
	}
	return loadLocal(index)(vm, ctx, f, instr)
}

func storeLocal(index int) handler {
	return func(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
		obj, err := f.pop()
		if err != nil {
			return err
		}
		return f.setLocal(index, obj)
	}
}

func opStlocS(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	index, err := slotOperand(instr)
	if err != nil {
		return err
	}
	return storeLocal(index)(vm, ctx, f, instr)
}

func loadArg(index int) handler {
	return func(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
		if index >= len(f.args) {
			return nil
		}
		arg := f.args[index]
		if vm.legacyArgs && index < len(f.stack) {
			f.stack[index] = arg
			return nil
		}
		f.push(arg)
		return nil
	}
}

func opLdargS(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	index, err := slotOperand(instr)
	if err != nil {
		return err
	}
	return loadArg(index)(vm, ctx, f, instr)
}

func opStargS(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	index, err := slotOperand(instr)
	if err != nil {
		return err
	}
	obj, err := f.pop()
	if err != nil {
		return err
	}
	for len(f.args) <= index {
		f.args = append(f.args, object.Null)
	}
	f.args[index] = obj
	return nil
}

func opBinary(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	left, right, err := f.pop2()
	if err != nil {
		return err
	}
	result, err := object.BinaryOp(instr.Code, left, right)
	if err != nil {
		return err
	}
	f.push(result)
	return nil
}

func opNeg(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	obj, err := f.pop()
	if err != nil {
		return err
	}
	result, err := object.Negate(obj)
	if err != nil {
		return err
	}
	f.push(result)
	return nil
}

func opConvI4(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	top, err := f.peek()
	if err != nil {
		return err
	}
	if _, ok := top.(*object.Int32); !ok {
		return errz.NewStructuredErrorf(errz.ErrNotSupported, "conv.i4 of %s is not supported", top.Type())
	}
	return nil
}

func opConvI8(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	top, err := f.peek()
	if err != nil {
		return err
	}
	switch v := top.(type) {
	case *object.Int32:
		f.stack[len(f.stack)-1] = object.NewInt64(int64(v.Value()))
	case *object.Int64:
	default:
		return errz.NewStructuredErrorf(errz.ErrNotSupported, "conv.i8 of %s is not supported", top.Type())
	}
	return nil
}

func opCompare(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	left, right, err := f.pop2()
	if err != nil {
		return err
	}
	result, err := object.Compare(instr.Code, left, right)
	if err != nil {
		return err
	}
	f.push(result)
	return nil
}

func (vm *VirtualMachine) jump(f *frame, instr *metadata.Instruction) {
	target := f.program.targets[f.pc]
	vm.logger.Debug().Int("from", instr.Position).
		Int("to", f.body.InstructionAt(target).Position).Msg("branch")
	f.next = target
}

func opBr(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	vm.jump(f, instr)
	return nil
}

func opBrfalse(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	obj, err := f.pop()
	if err != nil {
		return err
	}
	switch v := obj.(type) {
	case *object.NullType:
		vm.jump(f, instr)
	case *object.Int32:
		if v.Value() == 0 {
			vm.jump(f, instr)
		}
	}
	return nil
}

func opBrtrue(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	top, err := f.peek()
	if err != nil {
		return err
	}
	if object.IsNull(top) {
		return nil
	}
	f.pop()
	if v, ok := top.(*object.Int32); ok && v.Value() == 1 {
		vm.jump(f, instr)
	}
	return nil
}

func compareBranch(code op.Code, want bool) handler {
	return func(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
		left, right, err := f.pop2()
		if err != nil {
			return err
		}
		result, err := object.Compare(code, left, right)
		if err != nil {
			return err
		}
		if (result.Value() == 1) == want {
			vm.jump(f, instr)
		}
		return nil
	}
}

func (vm *VirtualMachine) fieldOperand(f *frame, instr *metadata.Instruction) (*metadata.Field, error) {
	index, ok := instr.Int()
	if !ok {
		return nil, operandError(instr)
	}
	return vm.resolveField(f, index)
}

func opLdsfld(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	field, err := vm.fieldOperand(f, instr)
	if err != nil {
		return err
	}
	value, ok := vm.statics.Load(field.OwnerName(), field.Name())
	if !ok {
		return errz.NewStructuredErrorf(errz.ErrNullReference,
			"static field %s.%s was read before it was assigned", field.OwnerName(), field.Name())
	}
	f.push(value)
	return nil
}

func opStsfld(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	field, err := vm.fieldOperand(f, instr)
	if err != nil {
		return err
	}
	value, err := f.pop()
	if err != nil {
		return err
	}
	vm.statics.Store(field.OwnerName(), field.Name(), value)
	return nil
}

func instanceOperand(obj object.Object, instr *metadata.Instruction) (*object.Instance, error) {
	switch obj := obj.(type) {
	case *object.Instance:
		return obj, nil
	case *object.NullType:
		return nil, errz.NewStructuredErrorf(errz.ErrNullReference, "%s on a null reference", instr.Name)
	default:
		return nil, errz.NewStructuredErrorf(errz.ErrInvalidProgram,
			"%s expects an object (got %s)", instr.Name, obj.Type())
	}
}

func opLdfld(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	field, err := vm.fieldOperand(f, instr)
	if err != nil {
		return err
	}
	top, err := f.pop()
	if err != nil {
		return err
	}
	obj, err := instanceOperand(top, instr)
	if err != nil {
		return err
	}
	value, ok := obj.Field(field.Name())
	if !ok {
		return errz.NewStructuredErrorf(errz.ErrFieldResolution,
			"attempted to read a nonexistent or null field %s of %s", field.Name(), obj.ClassName())
	}
	f.push(value)
	return nil
}

func opStfld(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	field, err := vm.fieldOperand(f, instr)
	if err != nil {
		return err
	}
	target, value, err := f.pop2()
	if err != nil {
		return err
	}
	obj, err := instanceOperand(target, instr)
	if err != nil {
		return err
	}
	obj.SetField(field.Name(), value)
	return nil
}

func opNewarr(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	top, err := f.pop()
	if err != nil {
		return err
	}
	n, ok := top.(*object.Int32)
	if !ok {
		return errz.NewStructuredErrorf(errz.ErrInvalidProgram, "newarr expects an int32 length (got %s)", top.Type())
	}
	if n.Value() < 0 {
		return errz.NewStructuredErrorf(errz.ErrArithmetic, "newarr with negative length %d", n.Value())
	}
	f.push(object.NewArray(int(n.Value())))
	return nil
}

func opLdlen(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	top, err := f.pop()
	if err != nil {
		return err
	}
	switch arr := top.(type) {
	case *object.Array:
		f.push(object.NewInt32(int32(arr.Len())))
		return nil
	case *object.NullType:
		return errz.NewStructuredError(errz.ErrNullReference, "ldlen on a null reference")
	default:
		return errz.NewStructuredErrorf(errz.ErrInvalidProgram, "ldlen expects an array (got %s)", top.Type())
	}
}

func opStelemRef(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	return errz.NewStructuredError(errz.ErrNotImplemented, "stelem.ref is not implemented")
}

func slotOperand(instr *metadata.Instruction) (int, error) {
	n, ok := instr.Slot()
	if !ok {
		return 0, operandError(instr)
	}
	return n, nil
}

func operandError(instr *metadata.Instruction) *errz.StructuredError {
	return errz.NewStructuredErrorf(errz.ErrInvalidProgram, "%s has an invalid operand %v", instr.Name, instr.Operand)
}

package vm

import (
	"context"
	"errors"

	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/natives"
	"github.com/risor-io/clr/object"
	"github.com/risor-io/clr/op"
)

// callNative runs the handler registered for internal-call method m.
func (vm *VirtualMachine) callNative(m *metadata.Method, args, stack []object.Object) (object.Object, error) {
	handler, ok := vm.natives.Lookup(m)
	if !ok {
		return nil, errz.NewStructuredErrorf(errz.ErrMethodResolution,
			"no native implementation registered for %s", m.FullName())
	}
	result, err := handler(&natives.Call{
		Method: m,
		Args:   args,
		Stack:  stack,
		Stdout: vm.stdout,
	})
	if err != nil {
		var se *errz.StructuredError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, errz.NewStructuredErrorf(errz.ErrUnhandledException,
			"%s: %s", m.FullName(), err.Error()).WithCause(err)
	}
	return result, nil
}

// callFrom invokes m with args on behalf of frame f. Internal calls receive
// stack as the raw evaluation stack.
func (vm *VirtualMachine) callFrom(ctx context.Context, m *metadata.Method, args, stack []object.Object) (object.Object, error) {
	if m.IsInternalCall() {
		return vm.callNative(m, args, stack)
	}
	result, err := vm.invoke(ctx, m, args)
	if err != nil {
		return nil, err
	}
	if err := vm.checkHalt(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func opCall(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	ref, ok := instr.MethodRef()
	if !ok {
		return errz.NewStructuredErrorf(errz.ErrInvalidProgram, "%s without a method operand", instr.Name)
	}
	m, err := vm.resolveMethod(ref, instr.Code == op.Callvirt)
	if err != nil {
		return err
	}
	var stack []object.Object
	if m.IsInternalCall() {
		stack = f.snapshot()
	}
	args, remove, err := vm.takeArgs(f, m)
	if err != nil {
		return err
	}
	if m == objectCtor {
		remove()
		return nil
	}
	result, err := vm.callFrom(ctx, m, args, stack)
	remove()
	if err != nil {
		return err
	}
	if result != nil {
		f.push(result)
	}
	return nil
}

func opNewobj(vm *VirtualMachine, ctx context.Context, f *frame, instr *metadata.Instruction) error {
	ref, ok := instr.MethodRef()
	if !ok {
		return errz.NewStructuredErrorf(errz.ErrInvalidProgram, "newobj without a constructor operand")
	}
	ctor, err := vm.resolveMethod(ref, false)
	if err != nil {
		return err
	}
	var obj *object.Instance
	if owner := ctor.Owner(); owner != nil {
		obj = object.NewInstance(owner)
	} else {
		obj = object.NewInstance(nil)
	}
	if ctor == objectCtor {
		if !vm.legacyArgs {
			if _, err := vm.takeCtorArgs(f, ctor); err != nil {
				return err
			}
		}
		f.push(obj)
		return nil
	}

	if vm.legacyArgs {
		f.push(obj)
		stack := f.snapshot()
		if _, err := vm.callFrom(ctx, ctor, stack, stack); err != nil {
			return err
		}
		if len(f.stack) == 0 {
			f.push(obj)
		}
		return nil
	}

	params, err := vm.takeCtorArgs(f, ctor)
	if err != nil {
		return err
	}
	args := make([]object.Object, 0, len(params)+1)
	args = append(args, obj)
	args = append(args, params...)
	var stack []object.Object
	if ctor.IsInternalCall() {
		stack = f.snapshot()
	}
	if _, err := vm.callFrom(ctx, ctor, args, stack); err != nil {
		return err
	}
	f.push(obj)
	return nil
}

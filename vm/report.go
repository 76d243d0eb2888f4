package vm

import (
	"errors"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/metadata"
)

var errColor = color.New(color.FgRed)

// fault turns err into the run's fatal error. The first fault of a run
// records the failing method and instruction and a snapshot of the call
// stack, is written to the diagnostic writer and sets the halt flag. Later
// faults return that first error unchanged.
func (vm *VirtualMachine) fault(f *frame, instr *metadata.Instruction, err error) *errz.StructuredError {
	if vm.failure != nil {
		return vm.failure
	}
	var se *errz.StructuredError
	if !errors.As(err, &se) {
		se = errz.NewStructuredError(errz.ErrUnhandledException, err.Error()).WithCause(err)
		se.Exception = "System.Exception"
	}
	var method *metadata.Method
	if f != nil {
		method = f.method
	} else {
		method = vm.callStack.Top()
	}
	if se.Method == "" && method != nil {
		se.Method = method.FullName()
	}
	if instr != nil && se.Opcode == "" {
		se.Opcode = instr.Name
		se.Offset = instr.Position
	}
	if len(se.Stack) == 0 {
		se.Stack = vm.callStack.Frames()
	}
	vm.failure = se
	atomic.StoreInt32(&vm.halt, 1)
	vm.report(se, vm.moduleOf(method))
	return se
}

func (vm *VirtualMachine) moduleOf(m *metadata.Method) string {
	if m != nil && m.Owner() != nil && m.Owner().Assembly() != nil {
		return m.Owner().Assembly().Module()
	}
	if vm.module != "" {
		return vm.module
	}
	return "<unknown>"
}

// report writes the error header and the call stack in red.
func (vm *VirtualMachine) report(se *errz.StructuredError, module string) {
	w := vm.diagnostics
	if w == nil {
		return
	}
	if se.Kind == errz.ErrUnsupportedOpcode {
		errColor.Fprintf(w, "Unsupported OpCode: %s\n", se.Opcode)
		errColor.Fprintln(w, "Application Terminated.")
	} else {
		errColor.Fprintf(w, "A %s has occurred in %s. The error is: %s\n",
			se.ExceptionName(), module, se.Message)
	}
	if trace := errz.FormatStackTrace(se.Stack); trace != "" {
		errColor.Fprint(w, trace)
	}
}

// Abort records err as the fatal error of the machine without running
// anything, reporting it the same way a fault during execution is
// reported.
func (vm *VirtualMachine) Abort(err error) *errz.StructuredError {
	return vm.fault(nil, nil, err)
}

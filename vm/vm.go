// Package vm provides a VirtualMachine that interprets managed method bodies.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/natives"
	"github.com/risor-io/clr/object"
	"github.com/rs/zerolog"
)

const (
	// MaxFrameDepth is the maximum depth of nested method invocations.
	MaxFrameDepth = 1024

	// MaxLocals is the number of local variable slots in every frame.
	MaxLocals = 256

	// DefaultContextCheckInterval is the number of instructions between
	// deterministic checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

// VirtualMachine executes methods of the assemblies in a domain. It owns the
// static field table, the native method registry and the diagnostic call
// stack. A VirtualMachine runs one invocation at a time.
type VirtualMachine struct {
	domain      *metadata.Domain
	source      metadata.InstructionSource
	natives     *natives.Registry
	statics     *object.StaticTable
	callStack   *CallStack
	logger      zerolog.Logger
	stdout      io.Writer
	diagnostics io.Writer
	module      string
	legacyArgs  bool

	halt     int32
	depth    int
	suppress int
	failure  *errz.StructuredError
	cctorRun bool
	running  bool
	runMutex sync.Mutex

	methods   map[*metadata.MethodRef]*metadata.Method
	synthetic map[string]*metadata.Method
	programs  map[*metadata.Body]*program

	// contextCheckInterval is the number of instructions between
	// deterministic checks of ctx.Done(). A value of 0 disables deterministic
	// checking, relying only on the background goroutine.
	contextCheckInterval int
	instructionCount     int
	doneChan             <-chan struct{}
	ctxErr               func() error
	stopWatch            chan struct{}
	watchDone            chan struct{}

	tracer *tracer
}

// New creates a new VirtualMachine for the given domain.
func New(domain *metadata.Domain, options ...Option) *VirtualMachine {
	if domain == nil {
		domain = metadata.NewDomain()
	}
	vm := &VirtualMachine{
		domain:               domain,
		source:               metadata.AttachedSource{},
		natives:              natives.Default(),
		statics:              object.NewStaticTable(),
		callStack:            &CallStack{},
		logger:               zerolog.Nop(),
		stdout:               os.Stdout,
		diagnostics:          os.Stderr,
		methods:              map[*metadata.MethodRef]*metadata.Method{},
		synthetic:            map[string]*metadata.Method{},
		programs:             map[*metadata.Body]*program{},
		contextCheckInterval: DefaultContextCheckInterval,
	}
	for _, opt := range options {
		opt(vm)
	}
	return vm
}

// Domain returns the loaded assemblies.
func (vm *VirtualMachine) Domain() *metadata.Domain {
	return vm.domain
}

// Statics returns the static field table.
func (vm *VirtualMachine) Statics() *object.StaticTable {
	return vm.statics
}

// Natives returns the native method registry.
func (vm *VirtualMachine) Natives() *natives.Registry {
	return vm.natives
}

// CallStack returns the diagnostic call stack.
func (vm *VirtualMachine) CallStack() *CallStack {
	return vm.callStack
}

// Failure returns the fatal error that halted the last invocation, if any.
func (vm *VirtualMachine) Failure() *errz.StructuredError {
	return vm.failure
}

// Halted returns true once a fatal error or a cancellation has stopped
// execution.
func (vm *VirtualMachine) Halted() bool {
	return atomic.LoadInt32(&vm.halt) == 1
}

func (vm *VirtualMachine) start(ctx context.Context) error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return fmt.Errorf("vm is already running")
	}
	vm.running = true
	// Halt execution when the context is cancelled
	atomic.StoreInt32(&vm.halt, 0)
	vm.failure = nil
	vm.depth = 0
	vm.instructionCount = 0
	vm.doneChan = ctx.Done()
	vm.ctxErr = ctx.Err
	if doneChan := vm.doneChan; doneChan != nil {
		stop := make(chan struct{})
		done := make(chan struct{})
		vm.stopWatch = stop
		vm.watchDone = done
		go func() {
			defer close(done)
			select {
			case <-doneChan:
				atomic.StoreInt32(&vm.halt, 1)
			case <-stop:
			}
		}()
	}
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.stopWatch != nil {
		close(vm.stopWatch)
		<-vm.watchDone
		vm.stopWatch = nil
		vm.watchDone = nil
	}
	vm.running = false
}

// Invoke runs the method with the given arguments and returns the value it
// left on its evaluation stack, or nil when it returned no value. A fatal
// error is reported on the diagnostic writer, halts every frame and is
// returned as an *errz.StructuredError.
func (vm *VirtualMachine) Invoke(ctx context.Context, m *metadata.Method, args []object.Object) (result object.Object, err error) {
	if m == nil {
		return nil, fmt.Errorf("method is nil")
	}
	if err := vm.start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, vm.fault(nil, nil, fmt.Errorf("panic: %v", r))
		}
		vm.stop()
	}()
	result, err = vm.invoke(ctx, m, args)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunStaticConstructors runs every static constructor in the domain, in
// assembly registration order. Types are identified by full name: when two
// assemblies declare the same type, only the first registered copy is
// initialized. Static constructors run once per VirtualMachine and do not
// appear on the call stack.
func (vm *VirtualMachine) RunStaticConstructors(ctx context.Context) (err error) {
	if vm.cctorRun {
		return nil
	}
	if err := vm.start(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		vm.stop()
	}()
	vm.cctorRun = true
	seen := map[string]bool{}
	var cctors []*metadata.Method
	vm.domain.EachType(func(t *metadata.Type) bool {
		if seen[t.FullName()] {
			return true
		}
		seen[t.FullName()] = true
		for i := 0; i < t.MethodCount(); i++ {
			if m := t.MethodAt(i); m.IsStaticConstructor() {
				cctors = append(cctors, m)
			}
		}
		return true
	})
	vm.suppress++
	defer func() { vm.suppress-- }()
	for _, m := range cctors {
		vm.logger.Debug().Str("method", m.FullName()).Msg("running static constructor")
		if _, err := vm.invoke(ctx, m, nil); err != nil {
			return err
		}
	}
	return nil
}

// invoke runs m in a new frame.
func (vm *VirtualMachine) invoke(ctx context.Context, m *metadata.Method, args []object.Object) (object.Object, error) {
	if err := vm.checkHalt(ctx); err != nil {
		return nil, vm.fault(nil, nil, err)
	}
	if m.IsInternalCall() {
		return vm.callNative(m, args, args)
	}
	if m == objectCtor {
		return nil, nil
	}
	if vm.depth >= MaxFrameDepth {
		return nil, vm.fault(nil, nil, errz.NewStructuredErrorf(errz.ErrStackOverflow,
			"call depth exceeded %d frames at %s", MaxFrameDepth, m.FullName()))
	}
	if m.RVA() == 0 {
		return nil, vm.fault(nil, nil, errz.NewStructuredErrorf(errz.ErrMethodBodyNotFound,
			"method %s has no body", m.FullName()))
	}
	body, ok := vm.source.Body(m)
	if !ok {
		return nil, vm.fault(nil, nil, errz.NewStructuredErrorf(errz.ErrMethodBodyNotFound,
			"no instructions for method %s", m.FullName()))
	}

	vm.depth++
	defer func() { vm.depth-- }()
	if vm.suppress == 0 {
		vm.callStack.Push(m)
		defer vm.callStack.Pop()
	}
	f := newFrame(m, body, args)
	p, err := vm.prepare(body)
	if err != nil {
		return nil, vm.fault(f, err.instr, err.err)
	}
	f.program = p

	vm.logger.Debug().Str("method", m.FullName()).Int("stack_depth", vm.depth).Msg("enter method")
	if vm.tracer != nil && vm.tracer.calls {
		if !vm.tracer.observer.OnCall(CallEvent{
			Method:     m.FullName(),
			ArgCount:   len(args),
			FrameDepth: vm.depth,
		}) {
			return nil, vm.fault(f, nil, haltedByObserver())
		}
	}
	result, runErr := vm.run(ctx, f)
	if runErr != nil {
		return nil, runErr
	}
	if vm.tracer != nil && vm.tracer.calls {
		if !vm.tracer.observer.OnReturn(ReturnEvent{
			Method:     m.FullName(),
			FrameDepth: vm.depth - 1,
		}) {
			return nil, vm.fault(f, nil, haltedByObserver())
		}
	}
	return result, nil
}

// run is the decode-execute loop of one frame.
func (vm *VirtualMachine) run(ctx context.Context, f *frame) (object.Object, error) {
	count := f.body.InstructionCount()
	for f.pc < count {
		instr := f.body.InstructionAt(f.pc)
		if err := vm.checkHalt(ctx); err != nil {
			return nil, vm.fault(f, &instr, err)
		}
		code := f.program.codes[f.pc]
		instr.Code = code
		if vm.tracer != nil && vm.tracer.wantStep(f.method) {
			if !vm.tracer.observer.OnStep(StepEvent{
				Method:     f.method.FullName(),
				Position:   instr.Position,
				Opcode:     code,
				OpcodeName: instr.Name,
				StackDepth: len(f.stack),
				FrameDepth: vm.depth,
			}) {
				return nil, vm.fault(f, &instr, haltedByObserver())
			}
		}
		f.next = f.pc + 1
		if err := handlers[code](vm, ctx, f, &instr); err != nil {
			return nil, vm.fault(f, &instr, err)
		}
		if f.returned {
			return f.result, nil
		}
		f.pc = f.next
	}
	// Running off the end of the body behaves like ret.
	if len(f.stack) > 0 {
		return f.stack[len(f.stack)-1], nil
	}
	return nil, nil
}

// checkHalt returns an error once execution must stop.
func (vm *VirtualMachine) checkHalt(ctx context.Context) error {
	if atomic.LoadInt32(&vm.halt) == 1 {
		if vm.failure != nil {
			return vm.failure
		}
		return cancelled(ctx.Err())
	}
	// Deterministic check of ctx.Done() every N instructions.
	if vm.contextCheckInterval > 0 && vm.doneChan != nil {
		vm.instructionCount++
		if vm.instructionCount >= vm.contextCheckInterval {
			vm.instructionCount = 0
			select {
			case <-vm.doneChan:
				atomic.StoreInt32(&vm.halt, 1)
				return cancelled(vm.ctxErr())
			default:
			}
		}
	}
	return nil
}

func cancelled(cause error) *errz.StructuredError {
	msg := "execution halted"
	if cause != nil {
		msg = cause.Error()
	}
	return errz.NewStructuredError(errz.ErrHalted, msg).WithCause(cause)
}

func haltedByObserver() *errz.StructuredError {
	return errz.NewStructuredError(errz.ErrHalted, "execution halted by observer")
}

package vm

import (
	"io"

	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/natives"
	"github.com/risor-io/clr/object"
	"github.com/rs/zerolog"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithNatives sets the registry consulted for internal-call methods. The
// default is natives.Default().
func WithNatives(registry *natives.Registry) Option {
	return func(vm *VirtualMachine) {
		vm.natives = registry
	}
}

// WithStatics sets the static field table, for sharing it between
// machines.
func WithStatics(table *object.StaticTable) Option {
	return func(vm *VirtualMachine) {
		vm.statics = table
	}
}

// WithInstructionSource sets where method bodies come from. The default
// returns the body attached to each method.
func WithInstructionSource(source metadata.InstructionSource) Option {
	return func(vm *VirtualMachine) {
		vm.source = source
	}
}

// WithLegacyArgumentMarkers switches argument extraction from the declared
// parameter count to a scan of the caller's evaluation stack for the
// method's StartParm and EndParm tags.
func WithLegacyArgumentMarkers(enabled bool) Option {
	return func(vm *VirtualMachine) {
		vm.legacyArgs = enabled
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithStdout sets the program output used by console natives.
func WithStdout(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.stdout = w
	}
}

// WithDiagnostics sets where fatal error reports are written. The default
// is os.Stderr. A nil writer disables reports.
func WithDiagnostics(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.diagnostics = w
	}
}

// WithModule sets the module name used in error reports when the failing
// method does not belong to an assembly.
func WithModule(name string) Option {
	return func(vm *VirtualMachine) {
		vm.module = name
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value of 0
// disables deterministic checking, relying only on the background goroutine
// that monitors the context. The default is DefaultContextCheckInterval (1000).
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithObserver attaches an observer. Its Filter is read here; a nil
// observer detaches.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		if observer == nil {
			vm.tracer = nil
			return
		}
		vm.tracer = newTracer(observer)
	}
}

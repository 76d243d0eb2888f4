// Package clr runs managed bytecode programs. A Runtime loads an entry
// assembly together with the assemblies it references from a search
// directory, runs every static constructor and then interprets the entry
// point:
//
//	asm, _ := image.Open("Program.exe")
//	rt, err := clr.New(asm, "lib")
//	if err != nil {
//		return err
//	}
//	result, err := rt.Start(ctx)
package clr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/loader"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/natives"
	"github.com/risor-io/clr/object"
	"github.com/risor-io/clr/vm"
	"github.com/rs/zerolog"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("runtime already started")

// Runtime executes one program. It is created with New and run once with
// Start.
type Runtime struct {
	entry   *metadata.Assembly
	loader  *loader.Loader
	natives *natives.Registry
	opts    *options
	logger  zerolog.Logger
	runID   uuid.UUID

	mu        sync.Mutex
	started   bool
	machine   *vm.VirtualMachine
	loadError error
}

// New prepares a Runtime for the entry assembly. Referenced assemblies are
// looked up in searchDir, which must exist.
func New(entry *metadata.Assembly, searchDir string, opts ...Option) (*Runtime, error) {
	if entry == nil {
		return nil, loader.ErrNilAssembly
	}
	o := collectOptions(opts...)
	runID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating run id: %w", err)
	}
	logger := o.logger.With().Str("run_id", runID.String()).Logger()
	l, err := loader.New(searchDir, o.loaderOpts(logger)...)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		entry:   entry,
		loader:  l,
		natives: natives.Default(),
		opts:    o,
		logger:  logger,
		runID:   runID,
	}, nil
}

// RunID identifies the runtime in log records.
func (r *Runtime) RunID() string {
	return r.runID.String()
}

// RegisterInternalMethod makes handler the implementation of the internal
// call methods matching name, which is either a bare method name or a
// Namespace.Type.Method name. It must be called before Start.
func (r *Runtime) RegisterInternalMethod(name string, handler natives.Handler) {
	r.natives.Register(name, handler)
}

// Start checks that the entry assembly has an entry point, loads the
// assembly closure, runs the static constructors and then the entry point. It returns the value the entry point left on its
// evaluation stack, if any. Assemblies that could not be loaded are
// reported and available from LoadError; they do not stop the run.
func (r *Runtime) Start(ctx context.Context) (object.Object, error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	vmOpts := append(r.opts.vmOpts(r.logger),
		vm.WithNatives(r.natives),
		vm.WithModule(r.entry.Module()))

	entryPoint := r.entry.EntryPoint()
	if entryPoint == nil {
		r.machine = vm.New(metadata.NewDomain(r.entry), vmOpts...)
		return nil, r.machine.Abort(errz.NewStructuredErrorf(errz.ErrEntryPointNotFound,
			"assembly %s has no entry point", r.entry.Name()))
	}

	domain, loadErr := r.loader.Load(r.entry)
	r.loadError = loadErr
	if loadErr != nil {
		r.logger.Debug().Err(loadErr).Msg("some references could not be loaded")
	}
	r.machine = vm.New(domain, vmOpts...)
	if err := r.machine.RunStaticConstructors(ctx); err != nil {
		return nil, err
	}
	r.logger.Debug().Str("method", entryPoint.FullName()).Msg("running entry point")
	return r.machine.Invoke(ctx, entryPoint, r.entryArgs(entryPoint))
}

func (r *Runtime) entryArgs(m *metadata.Method) []object.Object {
	if m.ParamCount() == 0 {
		return nil
	}
	items := make([]object.Object, len(r.opts.args))
	for i, arg := range r.opts.args {
		items[i] = object.NewString(arg)
	}
	return []object.Object{object.NewArrayOf(items)}
}

// LoadError returns the aggregated assembly load failures of Start, or nil.
func (r *Runtime) LoadError() error {
	return r.loadError
}

// Domain returns the loaded assemblies. It is nil before Start.
func (r *Runtime) Domain() *metadata.Domain {
	if r.machine == nil {
		return nil
	}
	return r.machine.Domain()
}

// VM returns the virtual machine created by Start, or nil.
func (r *Runtime) VM() *vm.VirtualMachine {
	return r.machine
}

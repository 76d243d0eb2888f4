package clr

import (
	"io"
	"os"

	"github.com/risor-io/clr/loader"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/vm"
	"github.com/rs/zerolog"
)

// Option configures a Runtime.
type Option func(*options)

type options struct {
	logger        zerolog.Logger
	stdout        io.Writer
	diagnostics   io.Writer
	legacyArgs    bool
	opener        loader.Opener
	workDir       string
	observer      vm.Observer
	source        metadata.InstructionSource
	args          []string
	checkInterval int
}

func collectOptions(opts ...Option) *options {
	o := &options{
		logger:        zerolog.Nop(),
		stdout:        os.Stdout,
		diagnostics:   os.Stderr,
		checkInterval: vm.DefaultContextCheckInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) loaderOpts(logger zerolog.Logger) []loader.Option {
	opts := []loader.Option{loader.WithLogger(logger)}
	if o.diagnostics != nil {
		opts = append(opts, loader.WithStatus(o.diagnostics))
	} else {
		opts = append(opts, loader.WithStatus(io.Discard))
	}
	if o.opener != nil {
		opts = append(opts, loader.WithOpener(o.opener))
	}
	if o.workDir != "" {
		opts = append(opts, loader.WithWorkDir(o.workDir))
	}
	return opts
}

func (o *options) vmOpts(logger zerolog.Logger) []vm.Option {
	opts := []vm.Option{
		vm.WithLogger(logger),
		vm.WithStdout(o.stdout),
		vm.WithDiagnostics(o.diagnostics),
		vm.WithLegacyArgumentMarkers(o.legacyArgs),
		vm.WithContextCheckInterval(o.checkInterval),
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.source != nil {
		opts = append(opts, vm.WithInstructionSource(o.source))
	}
	return opts
}

// WithLogger sets the debug logger. Every record carries the runtime's
// run_id. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStdout sets the program output written by the console natives.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// WithDiagnostics sets where assembly status lines and fatal error reports
// are written. The default is os.Stderr; nil silences both.
func WithDiagnostics(w io.Writer) Option {
	return func(o *options) {
		o.diagnostics = w
	}
}

// WithLegacyArgumentMarkers selects the stack-marker argument scan instead
// of arity-based argument extraction.
func WithLegacyArgumentMarkers(enabled bool) Option {
	return func(o *options) {
		o.legacyArgs = enabled
	}
}

// WithOpener sets how referenced assembly files are read. The default is
// image.Open.
func WithOpener(opener loader.Opener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// WithWorkDir sets the directory probed after the search directory.
func WithWorkDir(dir string) Option {
	return func(o *options) {
		o.workDir = dir
	}
}

// WithObserver sets an observer for execution events.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithInstructionSource sets where method bodies come from.
func WithInstructionSource(source metadata.InstructionSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithArgs sets the command-line arguments passed to an entry point that
// declares a parameter, as an array of strings.
func WithArgs(args []string) Option {
	return func(o *options) {
		o.args = args
	}
}

// WithContextCheckInterval sets how many instructions run between checks
// of ctx.Done().
func WithContextCheckInterval(interval int) Option {
	return func(o *options) {
		o.checkInterval = interval
	}
}

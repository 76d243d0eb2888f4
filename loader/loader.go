// Package loader builds the set of assemblies a program needs, starting
// from its entry assembly and following references through a search
// directory.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/image"
	"github.com/risor-io/clr/metadata"
	"github.com/rs/zerolog"
)

var (
	// ErrDirectoryNotFound is returned when the search directory does not
	// exist.
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrNilAssembly is returned when no entry assembly is given.
	ErrNilAssembly = errors.New("entry assembly is nil")
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

// Extensions are the file extensions probed for a referenced assembly, in
// order.
var Extensions = []string{".exe", ".dll"}

// Opener turns an assembly file into an assembly.
type Opener interface {
	Open(path string) (*metadata.Assembly, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (*metadata.Assembly, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (*metadata.Assembly, error) {
	return f(path)
}

// Loader resolves assembly references against a search directory. A
// Loader is not safe for concurrent use.
type Loader struct {
	dir      string
	workDir  string
	opener   Opener
	logger   zerolog.Logger
	status   io.Writer
	warnings []*errz.StructuredError
}

// Option is a configuration function for a Loader.
type Option func(*Loader)

// WithOpener sets how assembly files are read. The default is image.Open.
func WithOpener(opener Opener) Option {
	return func(l *Loader) {
		l.opener = opener
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithStatus sets where the [OK], [WARN] and [ERROR] lines are written.
// The default is os.Stderr.
func WithStatus(w io.Writer) Option {
	return func(l *Loader) {
		l.status = w
	}
}

// WithWorkDir sets the directory probed after the search directory. The
// default is the process working directory.
func WithWorkDir(dir string) Option {
	return func(l *Loader) {
		l.workDir = dir
	}
}

// New returns a Loader for the given search directory.
func New(dir string, opts ...Option) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}
	l := &Loader{
		dir:    dir,
		opener: OpenerFunc(image.Open),
		logger: zerolog.Nop(),
		status: os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Dir returns the search directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Warnings returns the duplicate-reference warnings of the last Load.
func (l *Loader) Warnings() []*errz.StructuredError {
	return l.warnings
}

// Load registers entry and, depth-first, every assembly it references.
// The returned domain is usable even when the error is non-nil: the error
// aggregates the references that could not be loaded.
func (l *Loader) Load(entry *metadata.Assembly) (*metadata.Domain, error) {
	if entry == nil {
		return nil, ErrNilAssembly
	}
	l.warnings = nil
	domain := metadata.NewDomain(entry)
	s := &session{
		domain:  domain,
		loading: map[string]bool{entry.Name(): true},
	}
	l.loadReferences(s, entry)
	return domain, s.errs.ErrorOrNil()
}

type session struct {
	domain  *metadata.Domain
	loading map[string]bool
	errs    *multierror.Error
}

func (l *Loader) loadReferences(s *session, asm *metadata.Assembly) {
	for i := 0; i < asm.ReferenceCount(); i++ {
		l.loadReference(s, asm.ReferenceAt(i))
	}
}

func (l *Loader) loadReference(s *session, name string) {
	if s.domain.Contains(name) || s.loading[name] {
		l.warn(name)
		return
	}
	path, ok := l.probe(name)
	if !ok {
		l.fail(s, name, errz.NewStructuredErrorf(errz.ErrAssemblyResolution,
			"could not find assembly %s in %s", name, l.dir))
		return
	}
	s.loading[name] = true
	asm, err := l.opener.Open(path)
	if err != nil {
		delete(s.loading, name)
		l.fail(s, name, errz.NewStructuredErrorf(errz.ErrAssemblyResolution,
			"could not open assembly %s", name).WithCause(err))
		return
	}
	l.logger.Debug().Str("assembly", name).Str("path", path).
		Int("references", asm.ReferenceCount()).Msg("opened assembly")
	s.loading[asm.Name()] = true
	l.loadReferences(s, asm)
	if !s.domain.Add(asm) {
		l.warn(asm.Name())
		return
	}
	okColor.Fprintf(l.status, "[OK] Loaded assembly: %s\n", name)
}

// probe returns the first existing candidate file for the assembly name.
func (l *Loader) probe(name string) (string, bool) {
	for _, dir := range []string{l.dir, l.workDir} {
		for _, ext := range Extensions {
			path := filepath.Join(dir, name+ext)
			info, err := os.Stat(path)
			if err == nil && !info.IsDir() {
				l.logger.Debug().Str("assembly", name).Str("path", path).Msg("probe hit")
				return path, true
			}
			l.logger.Debug().Str("assembly", name).Str("path", path).Msg("probe miss")
		}
	}
	return "", false
}

func (l *Loader) warn(name string) {
	warnColor.Fprintf(l.status, "[WARN] Assembly already loaded: %s\n", name)
	l.warnings = append(l.warnings, errz.NewStructuredErrorf(errz.ErrAssemblyAlreadyLoaded,
		"assembly already loaded: %s", name))
}

func (l *Loader) fail(s *session, name string, err *errz.StructuredError) {
	errColor.Fprintf(l.status, "[ERROR] Load failed: %s\n", name)
	l.logger.Debug().Err(err).Str("assembly", name).Msg("load failed")
	s.errs = multierror.Append(s.errs, err)
}

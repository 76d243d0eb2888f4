// Package natives maps internal-call methods to Go handlers.
package natives

import (
	"io"
	"sort"

	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/object"
)

// Call carries the inputs of one internal-call invocation.
type Call struct {
	// Method is the method being invoked.
	Method *metadata.Method
	// Args are the arguments taken from the caller's evaluation stack,
	// this first for instance methods.
	Args []object.Object
	// Stack is a snapshot of the caller's evaluation stack, bottom first,
	// taken before the arguments were removed.
	Stack []object.Object
	// Stdout is the program output.
	Stdout io.Writer
}

// Arg returns argument i, or Null when there are fewer arguments.
func (c *Call) Arg(i int) object.Object {
	if i < 0 || i >= len(c.Args) {
		return object.Null
	}
	return c.Args[i]
}

// Handler implements an internal-call method. A nil result means the
// method produced no value.
type Handler func(call *Call) (object.Object, error)

// Registry holds native handlers keyed by either a bare method name
// ("WriteLine") or a fully-qualified one ("System.Console.WriteLine"). It
// is not safe for concurrent use.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register adds or replaces the handler stored under name.
func (r *Registry) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// RegisterAll adds every handler in the map.
func (r *Registry) RegisterAll(handlers map[string]Handler) {
	for name, handler := range handlers {
		r.handlers[name] = handler
	}
}

// Get returns the handler stored under exactly name.
func (r *Registry) Get(name string) (Handler, bool) {
	handler, ok := r.handlers[name]
	return handler, ok
}

// Lookup returns the handler for the method. The fully-qualified name is
// tried before the bare method name.
func (r *Registry) Lookup(m *metadata.Method) (Handler, bool) {
	if handler, ok := r.handlers[m.FullName()]; ok {
		return handler, true
	}
	handler, ok := r.handlers[m.Name()]
	return handler, ok
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.handlers)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package vm

import (
	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/metadata"
)

// CallStack records the methods currently executing, outermost first. It is
// used for error reports only.
type CallStack struct {
	methods []*metadata.Method
}

// Push records that m started executing.
func (s *CallStack) Push(m *metadata.Method) {
	s.methods = append(s.methods, m)
}

// Pop removes the innermost method. It does nothing on an empty stack.
func (s *CallStack) Pop() {
	if n := len(s.methods); n > 0 {
		s.methods[n-1] = nil
		s.methods = s.methods[:n-1]
	}
}

// Len returns the number of executing methods.
func (s *CallStack) Len() int {
	return len(s.methods)
}

// Top returns the innermost method, or nil.
func (s *CallStack) Top() *metadata.Method {
	if n := len(s.methods); n > 0 {
		return s.methods[n-1]
	}
	return nil
}

// Frames returns a snapshot of the stack, outermost first.
func (s *CallStack) Frames() []errz.StackFrame {
	frames := make([]errz.StackFrame, len(s.methods))
	for i, m := range s.methods {
		frames[i] = m.Frame()
	}
	return frames
}

// String renders one frame per line, outermost first.
func (s *CallStack) String() string {
	return errz.FormatStackTrace(s.Frames())
}

package vm

import (
	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/object"
)

// frame is the activation record of one method invocation.
type frame struct {
	method  *metadata.Method
	body    *metadata.Body
	program *program
	stack   []object.Object
	locals  [MaxLocals]object.Object
	args    []object.Object

	// pc is the index of the executing instruction and next the index of
	// the instruction that runs after it. Branches overwrite next.
	pc   int
	next int

	returned bool
	result   object.Object
}

func newFrame(m *metadata.Method, body *metadata.Body, args []object.Object) *frame {
	return &frame{
		method: m,
		body:   body,
		stack:  make([]object.Object, 0, 8),
		args:   args,
	}
}

func (f *frame) push(obj object.Object) {
	f.stack = append(f.stack, obj)
}

func (f *frame) pop() (object.Object, error) {
	n := len(f.stack)
	if n == 0 {
		return nil, underflow(1, 0)
	}
	obj := f.stack[n-1]
	f.stack[n-1] = nil
	f.stack = f.stack[:n-1]
	return obj, nil
}

// pop2 pops the right operand and then the left operand.
func (f *frame) pop2() (object.Object, object.Object, error) {
	n := len(f.stack)
	if n < 2 {
		return nil, nil, underflow(2, n)
	}
	left, right := f.stack[n-2], f.stack[n-1]
	f.stack[n-2], f.stack[n-1] = nil, nil
	f.stack = f.stack[:n-2]
	return left, right, nil
}

// popN pops count entries and returns them bottom first.
func (f *frame) popN(count int) ([]object.Object, error) {
	n := len(f.stack)
	if n < count {
		return nil, underflow(count, n)
	}
	items := make([]object.Object, count)
	copy(items, f.stack[n-count:])
	for i := n - count; i < n; i++ {
		f.stack[i] = nil
	}
	f.stack = f.stack[:n-count]
	return items, nil
}

func (f *frame) peek() (object.Object, error) {
	n := len(f.stack)
	if n == 0 {
		return nil, underflow(1, 0)
	}
	return f.stack[n-1], nil
}

// snapshot returns a copy of the evaluation stack, bottom first.
func (f *frame) snapshot() []object.Object {
	items := make([]object.Object, len(f.stack))
	copy(items, f.stack)
	return items
}

func (f *frame) local(index int) (object.Object, error) {
	if index < 0 || index >= MaxLocals {
		return nil, errz.NewStructuredErrorf(errz.ErrInvalidProgram, "local slot %d out of range", index)
	}
	if f.locals[index] == nil {
		return object.Null, nil
	}
	return f.locals[index], nil
}

func (f *frame) setLocal(index int, obj object.Object) error {
	if index < 0 || index >= MaxLocals {
		return errz.NewStructuredErrorf(errz.ErrInvalidProgram, "local slot %d out of range", index)
	}
	f.locals[index] = obj
	return nil
}

func underflow(want, have int) *errz.StructuredError {
	return errz.NewStructuredErrorf(errz.ErrStackUnderflow,
		"evaluation stack underflow (need %d, have %d)", want, have)
}

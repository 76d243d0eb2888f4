package vm

import (
	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/object"
)

// takeArgs collects the arguments of a call to m from the caller's
// evaluation stack. The returned function removes the collected entries and
// must be called once the call returns.
func (vm *VirtualMachine) takeArgs(f *frame, m *metadata.Method) ([]object.Object, func(), error) {
	if vm.legacyArgs {
		args, remove := markerArgs(f, m.StartParm(), m.EndParm())
		return args, remove, nil
	}
	args, err := f.popN(m.ArgCount())
	if err != nil {
		return nil, nil, err
	}
	offset := len(args) - m.ParamCount()
	if err := checkParams(m, args[offset:]); err != nil {
		return nil, nil, err
	}
	return args, func() {}, nil
}

// takeCtorArgs collects the declared parameters of constructor m. The new
// object is passed separately.
func (vm *VirtualMachine) takeCtorArgs(f *frame, m *metadata.Method) ([]object.Object, error) {
	params, err := f.popN(m.ParamCount())
	if err != nil {
		return nil, err
	}
	if err := checkParams(m, params); err != nil {
		return nil, err
	}
	return params, nil
}

// markerArgs returns the run of stack entries that starts at the first
// entry tagged start and ends at the last entry tagged end after it. When
// no entry is tagged end, the run is the start entry alone.
func markerArgs(f *frame, start, end object.Type) ([]object.Object, func()) {
	noop := func() {}
	if start == "" {
		return nil, noop
	}
	first := -1
	for i, obj := range f.stack {
		if obj.Type() == start {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, noop
	}
	last := first
	for i := len(f.stack) - 1; i > first; i-- {
		if f.stack[i].Type() == end {
			last = i
			break
		}
	}
	args := make([]object.Object, last-first+1)
	copy(args, f.stack[first:last+1])
	return args, func() {
		f.stack = append(f.stack[:first], f.stack[last+1:]...)
	}
}

// checkParams verifies the arguments against the declared parameter tags.
func checkParams(m *metadata.Method, params []object.Object) error {
	for i := 0; i < m.ParamTypeCount() && i < len(params); i++ {
		want := m.ParamTypeAt(i)
		if !assignable(want, params[i]) {
			return errz.NewStructuredErrorf(errz.ErrInvalidProgram,
				"argument %d of %s: expected %s (got %s)", i, m.FullName(), want, params[i].Type())
		}
	}
	return nil
}

func assignable(want object.Type, obj object.Object) bool {
	got := obj.Type()
	switch {
	case got == want:
		return true
	case want == object.OBJECT:
		return got.IsReference()
	case want.IsReference():
		return got == object.NULL
	default:
		return false
	}
}

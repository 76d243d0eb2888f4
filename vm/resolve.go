package vm

import (
	"strings"

	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/op"
)

// objectCtor stands in for System.Object::.ctor, which every constructor
// chains to. Calling it does nothing.
var objectCtor = func() *metadata.Method {
	m := metadata.NewMethod(metadata.MethodParams{
		Name:      metadata.ConstructorName,
		Signature: "void()",
	})
	metadata.NewType(metadata.TypeParams{
		Namespace: "System",
		Name:      "Object",
		Methods:   []*metadata.Method{m},
	})
	return m
}()

// resolveMethod finds the method a call site refers to. Results are cached
// per call site.
func (vm *VirtualMachine) resolveMethod(ref *metadata.MethodRef, virtual bool) (*metadata.Method, error) {
	if m, ok := vm.methods[ref]; ok {
		return m, nil
	}
	m := vm.findMethod(ref)
	if m == nil && ref.Namespace == "System" && ref.Class == "Object" && ref.Name == metadata.ConstructorName {
		m = objectCtor
	}
	if m == nil {
		m = vm.synthesizeNative(ref, virtual)
	}
	if m == nil {
		return nil, errz.NewStructuredErrorf(errz.ErrMethodResolution,
			"could not resolve method %s", ref.FullName())
	}
	vm.methods[ref] = m
	return m, nil
}

func (vm *VirtualMachine) findMethod(ref *metadata.MethodRef) *metadata.Method {
	owner := ref.OwnerName()
	var found *metadata.Method
	vm.domain.EachMethod(func(m *metadata.Method) bool {
		if m.Name() != ref.Name || m.Signature() != ref.Signature {
			return true
		}
		if ref.RVA != 0 {
			if m.RVA() == ref.RVA && m.Owner().FullName() == owner {
				found = m
			}
		} else if m.TypeName() == ref.Class && m.Namespace() == ref.Namespace {
			found = m
		}
		return found == nil
	})
	return found
}

// synthesizeNative returns an internal-call method for a call site that has
// no managed definition but a native handler registered under its
// qualified name. The parameter count is taken from the signature.
func (vm *VirtualMachine) synthesizeNative(ref *metadata.MethodRef, virtual bool) *metadata.Method {
	name := ref.FullName()
	if _, ok := vm.natives.Get(name); !ok {
		return nil
	}
	key := name + " " + ref.Signature
	if virtual {
		key += " virtual"
	}
	if m, ok := vm.synthetic[key]; ok {
		return m
	}
	m := metadata.NewMethod(metadata.MethodParams{
		Name:         ref.Name,
		Signature:    ref.Signature,
		Static:       !virtual,
		InternalCall: true,
		ParamCount:   signatureParamCount(ref.Signature),
	})
	metadata.NewType(metadata.TypeParams{
		Namespace: ref.Namespace,
		Name:      ref.Class,
		Methods:   []*metadata.Method{m},
	})
	vm.synthetic[key] = m
	return m
}

// signatureParamCount counts the comma-separated entries between the
// parentheses of a signature such as "void(string, int32)".
func signatureParamCount(signature string) int {
	open := strings.IndexByte(signature, '(')
	end := strings.LastIndexByte(signature, ')')
	if open < 0 || end < open {
		return 0
	}
	params := strings.TrimSpace(signature[open+1 : end])
	if params == "" {
		return 0
	}
	return strings.Count(params, ",") + 1
}

// resolveField finds a field by metadata table index, looking first at the
// executing method's type and then at every type in the domain.
func (vm *VirtualMachine) resolveField(f *frame, index int) (*metadata.Field, error) {
	if owner := f.method.Owner(); owner != nil {
		if field := owner.FieldByIndex(index); field != nil {
			return field, nil
		}
	}
	var found *metadata.Field
	vm.domain.EachType(func(t *metadata.Type) bool {
		found = t.FieldByIndex(index)
		return found == nil
	})
	if found == nil {
		return nil, errz.NewStructuredErrorf(errz.ErrFieldResolution,
			"could not resolve field with index %d", index)
	}
	return found, nil
}

// program is a body prepared for dispatch: every mnemonic is mapped to its
// opcode and every branch to the index of its target.
type program struct {
	codes   []op.Code
	targets []int
}

type prepareError struct {
	instr *metadata.Instruction
	err   *errz.StructuredError
}

func (vm *VirtualMachine) prepare(body *metadata.Body) (*program, *prepareError) {
	if p, ok := vm.programs[body]; ok {
		return p, nil
	}
	count := body.InstructionCount()
	p := &program{
		codes:   make([]op.Code, count),
		targets: make([]int, count),
	}
	for i := 0; i < count; i++ {
		instr := body.InstructionAt(i)
		code := instr.Code
		if code == op.Invalid || code >= op.Count {
			code, _ = op.Lookup(instr.Name)
		}
		p.codes[i] = code
		p.targets[i] = -1
		info := op.GetInfo(code)
		if !info.IsBranch() {
			continue
		}
		delta, ok := instr.Int()
		if !ok {
			return nil, &prepareError{&instr, errz.NewStructuredErrorf(errz.ErrInvalidProgram,
				"%s has no branch offset", instr.Name)}
		}
		target := instr.Position + delta + info.OperandWidth
		index, ok := body.IndexAt(target)
		if !ok {
			return nil, &prepareError{&instr, errz.NewStructuredErrorf(errz.ErrInvalidBranch,
				"branch target IL_%04x is not the start of an instruction", target)}
		}
		p.targets[i] = index
	}
	vm.programs[body] = p
	return p, nil
}

package metadata

import (
	"fmt"

	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/object"
)

// Well-known method names.
const (
	ConstructorName       = ".ctor"
	StaticConstructorName = ".cctor"
)

// Method is a managed method. A method with a zero RVA has no body in its
// assembly and is either an internal call or defined elsewhere.
type Method struct {
	owner        *Type
	name         string
	signature    string
	static       bool
	internalCall bool
	rva          uint32
	paramCount   int
	paramTypes   []object.Type
	startParm    object.Type
	endParm      object.Type
	body         *Body
}

// MethodParams contains parameters for creating a new Method.
type MethodParams struct {
	Name      string
	Signature string
	Static    bool
	// InternalCall marks a method implemented by a native handler.
	InternalCall bool
	RVA          uint32
	// ParamCount is the number of declared parameters, excluding this.
	// Defaults to len(ParamTypes).
	ParamCount int
	ParamTypes []object.Type
	// StartParm and EndParm tag the first and last argument on the
	// evaluation stack. They default to the first and last entry of
	// ParamTypes.
	StartParm object.Type
	EndParm   object.Type
	Body      *Body
}

// NewMethod creates a new Method. The owner is set when the method is
// passed to NewType.
func NewMethod(params MethodParams) *Method {
	m := &Method{
		name:         params.Name,
		signature:    params.Signature,
		static:       params.Static,
		internalCall: params.InternalCall,
		rva:          params.RVA,
		paramCount:   params.ParamCount,
		paramTypes:   copyTags(params.ParamTypes),
		startParm:    params.StartParm,
		endParm:      params.EndParm,
		body:         params.Body,
	}
	if m.paramCount == 0 {
		m.paramCount = len(m.paramTypes)
	}
	if n := len(m.paramTypes); n > 0 {
		if m.startParm == "" {
			m.startParm = m.paramTypes[0]
		}
		if m.endParm == "" {
			m.endParm = m.paramTypes[n-1]
		}
	}
	return m
}

// Owner returns the declaring type, or nil for a detached method.
func (m *Method) Owner() *Type {
	return m.owner
}

// Name returns the method name.
func (m *Method) Name() string {
	return m.name
}

// Signature returns the signature string used in call-site matching.
func (m *Method) Signature() string {
	return m.signature
}

// IsStatic returns true for static methods.
func (m *Method) IsStatic() bool {
	return m.static
}

// IsInternalCall returns true for natively implemented methods.
func (m *Method) IsInternalCall() bool {
	return m.internalCall
}

// IsStaticConstructor returns true for a static .cctor method.
func (m *Method) IsStaticConstructor() bool {
	return m.static && m.name == StaticConstructorName
}

// RVA returns the code offset of the method body.
func (m *Method) RVA() uint32 {
	return m.rva
}

// ParamCount returns the number of declared parameters, excluding this.
func (m *Method) ParamCount() int {
	return m.paramCount
}

// ArgCount returns the number of stack entries a call consumes: the
// declared parameters plus this for instance methods.
func (m *Method) ArgCount() int {
	if m.static {
		return m.paramCount
	}
	return m.paramCount + 1
}

// ParamTypeCount returns the number of declared parameter tags.
func (m *Method) ParamTypeCount() int {
	return len(m.paramTypes)
}

// ParamTypeAt returns the parameter tag at the given index.
func (m *Method) ParamTypeAt(index int) object.Type {
	return m.paramTypes[index]
}

// StartParm returns the tag of the first argument.
func (m *Method) StartParm() object.Type {
	return m.startParm
}

// EndParm returns the tag of the last argument.
func (m *Method) EndParm() object.Type {
	return m.endParm
}

// Body returns the attached body, or nil.
func (m *Method) Body() *Body {
	return m.body
}

// Namespace returns the namespace of the owner, or "".
func (m *Method) Namespace() string {
	if m.owner == nil {
		return ""
	}
	return m.owner.namespace
}

// TypeName returns the simple name of the owner, or "".
func (m *Method) TypeName() string {
	if m.owner == nil {
		return ""
	}
	return m.owner.name
}

// FullName returns Namespace.Type.Method.
func (m *Method) FullName() string {
	if m.owner == nil {
		return m.name
	}
	return m.owner.FullName() + "." + m.name
}

// Frame returns the call stack entry for the method.
func (m *Method) Frame() errz.StackFrame {
	return errz.StackFrame{
		Namespace: m.Namespace(),
		Type:      m.TypeName(),
		Method:    m.name,
	}
}

func (m *Method) String() string {
	return fmt.Sprintf("method(%s)", m.FullName())
}

// Field is a managed field.
type Field struct {
	owner  *Type
	name   string
	index  int
	static bool
}

// FieldParams contains parameters for creating a new Field.
type FieldParams struct {
	Name string
	// Index is the field's metadata table index, referenced by ldfld,
	// stfld, ldsfld and stsfld operands.
	Index  int
	Static bool
}

// NewField creates a new Field. The owner is set when the field is passed
// to NewType.
func NewField(params FieldParams) *Field {
	return &Field{
		name:   params.Name,
		index:  params.Index,
		static: params.Static,
	}
}

// Owner returns the declaring type, or nil for a detached field.
func (f *Field) Owner() *Type {
	return f.owner
}

// Name returns the field name.
func (f *Field) Name() string {
	return f.name
}

// Index returns the metadata table index.
func (f *Field) Index() int {
	return f.index
}

// IsStatic returns true for static fields.
func (f *Field) IsStatic() bool {
	return f.static
}

// OwnerName returns the full name of the declaring type, or "".
func (f *Field) OwnerName() string {
	if f.owner == nil {
		return ""
	}
	return f.owner.FullName()
}

// MethodRef describes the target of a call, callvirt or newobj
// instruction.
type MethodRef struct {
	Namespace string
	Class     string
	Name      string
	Signature string
	// RVA is the code offset of the target, or zero when the target is
	// defined in another assembly.
	RVA uint32
}

// OwnerName returns Namespace.Class, or Class when the namespace is empty.
func (r *MethodRef) OwnerName() string {
	return qualify(r.Namespace, r.Class)
}

// FullName returns Namespace.Class.Name.
func (r *MethodRef) FullName() string {
	return r.OwnerName() + "." + r.Name
}

func (r *MethodRef) String() string {
	return r.FullName()
}

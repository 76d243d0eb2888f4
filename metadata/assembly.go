package metadata

// MemoryOrigin is the origin of assemblies that were not read from a file.
const MemoryOrigin = "<memory>"

// Assembly is a loaded unit of code. An assembly is created once per
// distinct name and never unloaded.
type Assembly struct {
	name       string
	origin     string
	module     string
	types      []*Type
	references []string
	entryPoint *Method
}

// AssemblyParams contains parameters for creating a new Assembly.
type AssemblyParams struct {
	Name string
	// Origin is the file the assembly was read from. Defaults to MemoryOrigin.
	Origin string
	// Module is the module name used in error headers. Defaults to Name + ".exe"
	// when the assembly has an entry point and Name + ".dll" otherwise.
	Module     string
	Types      []*Type
	References []string
	EntryPoint *Method
}

// NewAssembly creates a new Assembly and takes ownership of its types.
func NewAssembly(params AssemblyParams) *Assembly {
	a := &Assembly{
		name:       params.Name,
		origin:     params.Origin,
		module:     params.Module,
		types:      copyTypes(params.Types),
		references: copyStrings(params.References),
		entryPoint: params.EntryPoint,
	}
	if a.origin == "" {
		a.origin = MemoryOrigin
	}
	if a.module == "" {
		if a.entryPoint != nil {
			a.module = a.name + ".exe"
		} else {
			a.module = a.name + ".dll"
		}
	}
	for _, t := range a.types {
		t.assembly = a
	}
	return a
}

// Name returns the assembly name.
func (a *Assembly) Name() string {
	return a.name
}

// Origin returns the file path the assembly was read from, or MemoryOrigin.
func (a *Assembly) Origin() string {
	return a.origin
}

// Module returns the module name, for example "Program.exe".
func (a *Assembly) Module() string {
	return a.module
}

// EntryPoint returns the entry point method, or nil if there is none.
func (a *Assembly) EntryPoint() *Method {
	return a.entryPoint
}

// TypeCount returns the number of declared types.
func (a *Assembly) TypeCount() int {
	return len(a.types)
}

// TypeAt returns the type at the given index.
func (a *Assembly) TypeAt(index int) *Type {
	return a.types[index]
}

// Type returns the type with the given full name, or nil.
func (a *Assembly) Type(fullName string) *Type {
	for _, t := range a.types {
		if t.FullName() == fullName {
			return t
		}
	}
	return nil
}

// ReferenceCount returns the number of referenced assembly names.
func (a *Assembly) ReferenceCount() int {
	return len(a.references)
}

// ReferenceAt returns the referenced assembly name at the given index.
func (a *Assembly) ReferenceAt(index int) string {
	return a.references[index]
}

// References returns a copy of the referenced assembly names.
func (a *Assembly) References() []string {
	return copyStrings(a.references)
}

// Type is a managed class.
type Type struct {
	namespace string
	name      string
	assembly  *Assembly
	methods   []*Method
	fields    []*Field
}

// TypeParams contains parameters for creating a new Type.
type TypeParams struct {
	Namespace string
	Name      string
	Methods   []*Method
	Fields    []*Field
}

// NewType creates a new Type and takes ownership of its methods and fields.
func NewType(params TypeParams) *Type {
	t := &Type{
		namespace: params.Namespace,
		name:      params.Name,
		methods:   copyMethods(params.Methods),
		fields:    copyFields(params.Fields),
	}
	for _, m := range t.methods {
		m.owner = t
	}
	for _, f := range t.fields {
		f.owner = t
	}
	return t
}

// Namespace returns the namespace, which may be empty.
func (t *Type) Namespace() string {
	return t.namespace
}

// Name returns the simple type name.
func (t *Type) Name() string {
	return t.name
}

// FullName returns Namespace.Name, or Name when the namespace is empty.
func (t *Type) FullName() string {
	return qualify(t.namespace, t.name)
}

// Assembly returns the owning assembly, or nil for a detached type.
func (t *Type) Assembly() *Assembly {
	return t.assembly
}

// MethodCount returns the number of declared methods.
func (t *Type) MethodCount() int {
	return len(t.methods)
}

// MethodAt returns the method at the given index.
func (t *Type) MethodAt(index int) *Method {
	return t.methods[index]
}

// Method returns the first method with the given name, or nil.
func (t *Type) Method(name string) *Method {
	for _, m := range t.methods {
		if m.name == name {
			return m
		}
	}
	return nil
}

// FieldCount returns the number of declared fields.
func (t *Type) FieldCount() int {
	return len(t.fields)
}

// FieldAt returns the field at the given position in the declaration list.
func (t *Type) FieldAt(index int) *Field {
	return t.fields[index]
}

// FieldByIndex returns the field with the given metadata table index, or
// nil.
func (t *Type) FieldByIndex(index int) *Field {
	for _, f := range t.fields {
		if f.index == index {
			return f
		}
	}
	return nil
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// Package image reads and writes assembly images: the serialized form of a
// decoded assembly that the loader finds next to the entry program.
//
// Two encodings share one schema. The binary form starts with the magic
// "CLRI" and a version byte, followed by canonical CBOR. The text form is
// TOML and is meant to be written by hand:
//
//	name = "Demo"
//	entry_point = "Demo.Program::Main"
//	references = ["Lib"]
//
//	[[types]]
//	namespace = "Demo"
//	name = "Program"
//
//	[[types.methods]]
//	name = "Main"
//	static = true
//	rva = 0x2050
//	body = [
//	  { op = "ldc.i4.2" },
//	  { op = "ldc.i4.3" },
//	  { op = "add" },
//	  { op = "ret" },
//	]
//
// Instructions without positions are laid out from their encoded sizes.
// Branches may name a label instead of a numeric delta.
package image

// File is the serialized form of one assembly.
type File struct {
	Name   string `toml:"name" cbor:"name"`
	Module string `toml:"module,omitempty" cbor:"module,omitempty"`
	// EntryPoint names the entry method as "Namespace.Type::Method".
	EntryPoint string    `toml:"entry_point,omitempty" cbor:"entry_point,omitempty"`
	References []string  `toml:"references,omitempty" cbor:"references,omitempty"`
	Types      []TypeDef `toml:"types,omitempty" cbor:"types,omitempty"`
}

// TypeDef is a serialized type.
type TypeDef struct {
	Namespace string      `toml:"namespace,omitempty" cbor:"namespace,omitempty"`
	Name      string      `toml:"name" cbor:"name"`
	Fields    []FieldDef  `toml:"fields,omitempty" cbor:"fields,omitempty"`
	Methods   []MethodDef `toml:"methods,omitempty" cbor:"methods,omitempty"`
}

// FieldDef is a serialized field.
type FieldDef struct {
	Name   string `toml:"name" cbor:"name"`
	Index  int    `toml:"index" cbor:"index"`
	Static bool   `toml:"static,omitempty" cbor:"static,omitempty"`
}

// MethodDef is a serialized method.
type MethodDef struct {
	Name         string `toml:"name" cbor:"name"`
	Signature    string `toml:"signature,omitempty" cbor:"signature,omitempty"`
	Static       bool   `toml:"static,omitempty" cbor:"static,omitempty"`
	InternalCall bool   `toml:"internal_call,omitempty" cbor:"internal_call,omitempty"`
	RVA          uint32 `toml:"rva,omitempty" cbor:"rva,omitempty"`
	ParamCount   int    `toml:"param_count,omitempty" cbor:"param_count,omitempty"`
	// Params lists the stack tags of the declared parameters.
	Params    []string   `toml:"params,omitempty" cbor:"params,omitempty"`
	StartParm string     `toml:"start_parm,omitempty" cbor:"start_parm,omitempty"`
	EndParm   string     `toml:"end_parm,omitempty" cbor:"end_parm,omitempty"`
	Body      []InstrDef `toml:"body,omitempty" cbor:"body,omitempty"`
}

// InstrDef is a serialized instruction. Which operand field is read depends
// on the opcode: I for integers, field indices and numeric branch deltas, F
// for floats, S for strings and type names, Target for branch labels and
// Call for call targets.
type InstrDef struct {
	Op       string   `toml:"op" cbor:"op"`
	Label    string   `toml:"label,omitempty" cbor:"label,omitempty"`
	Position *int     `toml:"position,omitempty" cbor:"position,omitempty"`
	I        int64    `toml:"i,omitempty" cbor:"i,omitempty"`
	F        float64  `toml:"f,omitempty" cbor:"f,omitempty"`
	S        string   `toml:"s,omitempty" cbor:"s,omitempty"`
	Target   string   `toml:"target,omitempty" cbor:"target,omitempty"`
	Call     *CallDef `toml:"call,omitempty" cbor:"call,omitempty"`
}

// CallDef is a serialized call target.
type CallDef struct {
	Namespace string `toml:"namespace,omitempty" cbor:"namespace,omitempty"`
	Class     string `toml:"class" cbor:"class"`
	Name      string `toml:"name" cbor:"name"`
	Signature string `toml:"signature,omitempty" cbor:"signature,omitempty"`
	RVA       uint32 `toml:"rva,omitempty" cbor:"rva,omitempty"`
}

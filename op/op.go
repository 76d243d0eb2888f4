// Package op defines the opcodes understood by the interpreter.
//
// Decoded instructions arrive with textual mnemonics ("ldc.i4.s", "br.s").
// Lookup maps a mnemonic to its Code once, so the interpreter can dispatch
// through a table indexed by Code instead of comparing strings.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint8

const (
	Invalid Code = iota

	// Misc
	Nop
	Ret
	Dup
	Pop
	Throw

	// Constants
	Ldnull
	Ldstr
	LdcI4
	LdcI4S
	LdcI4M1
	LdcI4_0
	LdcI4_1
	LdcI4_2
	LdcI4_3
	LdcI4_4
	LdcI4_5
	LdcI4_6
	LdcI4_7
	LdcI4_8
	LdcI8
	LdcR4
	LdcR8

	// Locals
	Ldloc0
	Ldloc1
	Ldloc2
	Ldloc3
	LdlocS
	LdlocaS
	Stloc0
	Stloc1
	Stloc2
	Stloc3
	StlocS

	// Arguments
	Ldarg0
	Ldarg1
	Ldarg2
	Ldarg3
	LdargS
	StargS

	// Arithmetic
	Add
	Sub
	Mul
	Div
	Rem
	Neg
	And
	Or
	Xor
	Shl
	Shr

	// Conversion
	ConvI4
	ConvI8

	// Comparison
	Ceq
	Cgt
	Clt

	// Branches
	BrS
	BrfalseS
	BrtrueS
	Br
	Brfalse
	Brtrue
	BeqS
	BneUnS
	BgeS
	BgtS
	BleS
	BltS

	// Fields
	Ldsfld
	Stsfld
	Ldfld
	Stfld

	// Calls
	Call
	Callvirt
	Newobj

	// Arrays
	Newarr
	Ldlen
	StelemRef

	// Count is the number of defined codes, including Invalid.
	Count
)

// OperandKind describes the operand carried by an instruction.
type OperandKind uint8

const (
	NoOperand OperandKind = iota
	Int8Operand
	SlotOperand
	Int32Operand
	Int64Operand
	Float32Operand
	Float64Operand
	StringOperand
	BranchOperand
	FieldOperand
	MethodOperand
	TypeOperand
)

// Info contains information about an opcode.
type Info struct {
	Code Code
	Name string
	// Operand is the kind of operand the instruction carries.
	Operand OperandKind
	// OperandWidth is the encoded width of the operand in bytes.
	OperandWidth int
	// Size is the encoded length of the whole instruction in bytes.
	Size int
}

// IsBranch returns true if the opcode transfers control to a branch target.
func (i Info) IsBranch() bool {
	return i.Operand == BranchOperand
}

var (
	infos  = make([]Info, Count)
	byName = make(map[string]Code, Count)
)

func init() {
	type opInfo struct {
		op      Code
		name    string
		prefix  bool // two-byte opcode (0xFE prefix)
		operand OperandKind
		width   int
	}
	ops := []opInfo{
		{Nop, "nop", false, NoOperand, 0},
		{Ret, "ret", false, NoOperand, 0},
		{Dup, "dup", false, NoOperand, 0},
		{Pop, "pop", false, NoOperand, 0},
		{Throw, "throw", false, NoOperand, 0},
		{Ldnull, "ldnull", false, NoOperand, 0},
		{Ldstr, "ldstr", false, StringOperand, 4},
		{LdcI4, "ldc.i4", false, Int32Operand, 4},
		{LdcI4S, "ldc.i4.s", false, Int8Operand, 1},
		{LdcI4M1, "ldc.i4.m1", false, NoOperand, 0},
		{LdcI4_0, "ldc.i4.0", false, NoOperand, 0},
		{LdcI4_1, "ldc.i4.1", false, NoOperand, 0},
		{LdcI4_2, "ldc.i4.2", false, NoOperand, 0},
		{LdcI4_3, "ldc.i4.3", false, NoOperand, 0},
		{LdcI4_4, "ldc.i4.4", false, NoOperand, 0},
		{LdcI4_5, "ldc.i4.5", false, NoOperand, 0},
		{LdcI4_6, "ldc.i4.6", false, NoOperand, 0},
		{LdcI4_7, "ldc.i4.7", false, NoOperand, 0},
		{LdcI4_8, "ldc.i4.8", false, NoOperand, 0},
		{LdcI8, "ldc.i8", false, Int64Operand, 8},
		{LdcR4, "ldc.r4", false, Float32Operand, 4},
		{LdcR8, "ldc.r8", false, Float64Operand, 8},
		{Ldloc0, "ldloc.0", false, NoOperand, 0},
		{Ldloc1, "ldloc.1", false, NoOperand, 0},
		{Ldloc2, "ldloc.2", false, NoOperand, 0},
		{Ldloc3, "ldloc.3", false, NoOperand, 0},
		{LdlocS, "ldloc.s", false, SlotOperand, 1},
		{LdlocaS, "ldloca.s", false, SlotOperand, 1},
		{Stloc0, "stloc.0", false, NoOperand, 0},
		{Stloc1, "stloc.1", false, NoOperand, 0},
		{Stloc2, "stloc.2", false, NoOperand, 0},
		{Stloc3, "stloc.3", false, NoOperand, 0},
		{StlocS, "stloc.s", false, SlotOperand, 1},
		{Ldarg0, "ldarg.0", false, NoOperand, 0},
		{Ldarg1, "ldarg.1", false, NoOperand, 0},
		{Ldarg2, "ldarg.2", false, NoOperand, 0},
		{Ldarg3, "ldarg.3", false, NoOperand, 0},
		{LdargS, "ldarg.s", false, SlotOperand, 1},
		{StargS, "starg.s", false, SlotOperand, 1},
		{Add, "add", false, NoOperand, 0},
		{Sub, "sub", false, NoOperand, 0},
		{Mul, "mul", false, NoOperand, 0},
		{Div, "div", false, NoOperand, 0},
		{Rem, "rem", false, NoOperand, 0},
		{Neg, "neg", false, NoOperand, 0},
		{And, "and", false, NoOperand, 0},
		{Or, "or", false, NoOperand, 0},
		{Xor, "xor", false, NoOperand, 0},
		{Shl, "shl", false, NoOperand, 0},
		{Shr, "shr", false, NoOperand, 0},
		{ConvI4, "conv.i4", false, NoOperand, 0},
		{ConvI8, "conv.i8", false, NoOperand, 0},
		{Ceq, "ceq", true, NoOperand, 0},
		{Cgt, "cgt", true, NoOperand, 0},
		{Clt, "clt", true, NoOperand, 0},
		{BrS, "br.s", false, BranchOperand, 1},
		{BrfalseS, "brfalse.s", false, BranchOperand, 1},
		{BrtrueS, "brtrue.s", false, BranchOperand, 1},
		{Br, "br", false, BranchOperand, 4},
		{Brfalse, "brfalse", false, BranchOperand, 4},
		{Brtrue, "brtrue", false, BranchOperand, 4},
		{BeqS, "beq.s", false, BranchOperand, 1},
		{BneUnS, "bne.un.s", false, BranchOperand, 1},
		{BgeS, "bge.s", false, BranchOperand, 1},
		{BgtS, "bgt.s", false, BranchOperand, 1},
		{BleS, "ble.s", false, BranchOperand, 1},
		{BltS, "blt.s", false, BranchOperand, 1},
		{Ldsfld, "ldsfld", false, FieldOperand, 4},
		{Stsfld, "stsfld", false, FieldOperand, 4},
		{Ldfld, "ldfld", false, FieldOperand, 4},
		{Stfld, "stfld", false, FieldOperand, 4},
		{Call, "call", false, MethodOperand, 4},
		{Callvirt, "callvirt", false, MethodOperand, 4},
		{Newobj, "newobj", false, MethodOperand, 4},
		{Newarr, "newarr", false, TypeOperand, 4},
		{Ldlen, "ldlen", false, NoOperand, 0},
		{StelemRef, "stelem.ref", false, NoOperand, 0},
	}
	infos[Invalid] = Info{Code: Invalid, Name: "invalid", Size: 1}
	for _, o := range ops {
		size := 1 + o.width
		if o.prefix {
			size++
		}
		infos[o.op] = Info{
			Code:         o.op,
			Name:         o.name,
			Operand:      o.operand,
			OperandWidth: o.width,
			Size:         size,
		}
		byName[o.name] = o.op
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	if op >= Count {
		return infos[Invalid]
	}
	return infos[op]
}

// Lookup returns the Code for the given mnemonic. Unknown mnemonics
// return Invalid and false.
func Lookup(name string) (Code, bool) {
	code, ok := byName[name]
	if !ok {
		return Invalid, false
	}
	return code, true
}

// String returns the mnemonic of the opcode.
func (c Code) String() string {
	return GetInfo(c).Name
}

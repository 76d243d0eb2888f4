package metadata

import (
	"fmt"

	"github.com/risor-io/clr/op"
)

// Instruction is one decoded instruction. Name is the mnemonic as decoded;
// Code is the resolved opcode, op.Invalid when the mnemonic is unknown.
//
// The Go type of Operand depends on the opcode's operand kind:
//
//	op.Int8Operand     int8 (short branches carry an int8 delta as well)
//	op.SlotOperand     uint8 (an int8 from a signed decoder is accepted)
//	op.Int32Operand    int32 (long branches as well)
//	op.Int64Operand    int64
//	op.Float32Operand  float32
//	op.Float64Operand  float64
//	op.StringOperand   string
//	op.FieldOperand    int (metadata table index)
//	op.MethodOperand   *MethodRef
//	op.TypeOperand     string (type full name)
type Instruction struct {
	Name     string
	Code     op.Code
	Operand  any
	Position int
}

// NewInstruction resolves name to an opcode and returns the instruction.
// The position is left at zero; see Layout.
func NewInstruction(name string, operand any) Instruction {
	code, _ := op.Lookup(name)
	return Instruction{Name: name, Code: code, Operand: operand}
}

// Info returns the opcode information of the instruction.
func (i Instruction) Info() op.Info {
	return op.GetInfo(i.Code)
}

// Int returns the operand as an int for any integer operand type.
func (i Instruction) Int() (int, bool) {
	switch v := i.Operand.(type) {
	case int8:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case int:
		return v, true
	case uint8:
		return int(int8(v)), true
	default:
		return 0, false
	}
}

// Slot returns the operand of a short local or argument instruction as an
// unsigned byte index.
func (i Instruction) Slot() (int, bool) {
	switch v := i.Operand.(type) {
	case uint8:
		return int(v), true
	case int8:
		return int(uint8(v)), true
	}
	n, ok := i.Int()
	if !ok || n < 0 || n > 255 {
		return 0, false
	}
	return n, true
}

// MethodRef returns the call target operand.
func (i Instruction) MethodRef() (*MethodRef, bool) {
	ref, ok := i.Operand.(*MethodRef)
	return ref, ok && ref != nil
}

// String renders the instruction as "IL_0000: name operand".
func (i Instruction) String() string {
	if i.Operand == nil {
		return fmt.Sprintf("IL_%04x: %s", i.Position, i.Name)
	}
	return fmt.Sprintf("IL_%04x: %s %v", i.Position, i.Name, i.Operand)
}

// BranchTarget returns the byte position a branch instruction transfers
// control to: the position after the operand plus the signed delta.
func (i Instruction) BranchTarget() (int, bool) {
	if !i.Info().IsBranch() {
		return 0, false
	}
	delta, ok := i.Int()
	if !ok {
		return 0, false
	}
	return i.Position + delta + i.Info().OperandWidth, true
}

// Layout assigns byte positions to instructions in order, starting at zero
// and advancing by each opcode's encoded size. Unknown opcodes occupy one
// byte.
func Layout(instructions []Instruction) {
	position := 0
	for i := range instructions {
		instructions[i].Position = position
		position += instructions[i].Info().Size
	}
}

// Body is the decoded instruction stream of a method. A Body is immutable
// after construction.
type Body struct {
	instructions []Instruction
	positions    map[int]int
}

// NewBody creates a Body from instructions that already carry their
// positions.
func NewBody(instructions []Instruction) *Body {
	b := &Body{
		instructions: copyInstructions(instructions),
		positions:    make(map[int]int, len(instructions)),
	}
	for index, instr := range b.instructions {
		if _, exists := b.positions[instr.Position]; !exists {
			b.positions[instr.Position] = index
		}
	}
	return b
}

// Assemble lays out the instructions and creates a Body from them.
func Assemble(instructions ...Instruction) *Body {
	laid := copyInstructions(instructions)
	Layout(laid)
	return NewBody(laid)
}

// InstructionCount returns the number of instructions.
func (b *Body) InstructionCount() int {
	return len(b.instructions)
}

// InstructionAt returns the instruction at the given index.
func (b *Body) InstructionAt(index int) Instruction {
	return b.instructions[index]
}

// IndexAt returns the index of the instruction that starts at the given
// byte position.
func (b *Body) IndexAt(position int) (int, bool) {
	index, ok := b.positions[position]
	return index, ok
}

// InstructionSource supplies the body of a method.
type InstructionSource interface {
	Body(m *Method) (*Body, bool)
}

// AttachedSource returns the body attached to the method at construction.
type AttachedSource struct{}

func (AttachedSource) Body(m *Method) (*Body, bool) {
	if m.body == nil {
		return nil, false
	}
	return m.body, true
}

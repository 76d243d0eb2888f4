// Package dis renders method bodies as instruction listings.
package dis

import (
	"fmt"
	"io"
	"strconv"

	"github.com/risor-io/clr/internal/table"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/op"
)

// Instruction is one row of a listing.
type Instruction struct {
	Offset  int
	Name    string
	Operand string
	Info    string
}

// Disassemble returns the listing of the body attached to m.
func Disassemble(m *metadata.Method) ([]Instruction, error) {
	return DisassembleFrom(metadata.AttachedSource{}, m)
}

// DisassembleFrom returns the listing of the body source supplies for m.
func DisassembleFrom(source metadata.InstructionSource, m *metadata.Method) ([]Instruction, error) {
	if m.IsInternalCall() {
		return nil, fmt.Errorf("%s is an internal call", m.FullName())
	}
	body, ok := source.Body(m)
	if !ok {
		return nil, fmt.Errorf("no instructions for method %s", m.FullName())
	}
	instructions := make([]Instruction, 0, body.InstructionCount())
	for i := 0; i < body.InstructionCount(); i++ {
		instr := body.InstructionAt(i)
		instructions = append(instructions, Instruction{
			Offset:  instr.Position,
			Name:    instr.Name,
			Operand: operand(instr),
			Info:    info(m, instr),
		})
	}
	return instructions, nil
}

func operand(instr metadata.Instruction) string {
	switch v := instr.Operand.(type) {
	case nil:
		return ""
	case *metadata.MethodRef:
		if v.RVA != 0 {
			return fmt.Sprintf("0x%x", v.RVA)
		}
		return ""
	case string:
		return ""
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		if instr.Info().Operand == op.SlotOperand {
			if n, ok := instr.Slot(); ok {
				return strconv.Itoa(n)
			}
		}
		if n, ok := instr.Int(); ok {
			return strconv.Itoa(n)
		}
		return fmt.Sprint(v)
	}
}

func info(m *metadata.Method, instr metadata.Instruction) string {
	if instr.Code == op.Invalid {
		return "unsupported"
	}
	switch instr.Info().Operand {
	case op.StringOperand:
		if s, ok := instr.Operand.(string); ok {
			return strconv.Quote(s)
		}
	case op.TypeOperand:
		if s, ok := instr.Operand.(string); ok {
			return s
		}
	case op.MethodOperand:
		if ref, ok := instr.MethodRef(); ok {
			return ref.FullName() + " " + ref.Signature
		}
	case op.BranchOperand:
		if target, ok := instr.BranchTarget(); ok {
			return fmt.Sprintf("-> IL_%04x", target)
		}
	case op.FieldOperand:
		if index, ok := instr.Int(); ok {
			if field := lookupField(m, index); field != nil {
				return field.OwnerName() + "." + field.Name()
			}
		}
	}
	return ""
}

func lookupField(m *metadata.Method, index int) *metadata.Field {
	owner := m.Owner()
	if owner == nil {
		return nil
	}
	if field := owner.FieldByIndex(index); field != nil {
		return field
	}
	asm := owner.Assembly()
	if asm == nil {
		return nil
	}
	for i := 0; i < asm.TypeCount(); i++ {
		if field := asm.TypeAt(i).FieldByIndex(index); field != nil {
			return field
		}
	}
	return nil
}

// Print writes the listing as a table.
func Print(instructions []Instruction, writer io.Writer) error {
	var lines [][]string
	for _, instr := range instructions {
		lines = append(lines, []string{
			fmt.Sprintf("IL_%04x", instr.Offset),
			instr.Name,
			instr.Operand,
			instr.Info,
		})
	}
	t := table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERAND", "INFO"}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithColumnAlignment([]table.Alignment{
			table.AlignLeft,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		})
	for _, line := range lines {
		t.Append(line)
	}
	return t.Render()
}

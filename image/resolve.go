package image

import (
	"fmt"
	"math"
	"strings"

	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/object"
	"github.com/risor-io/clr/op"
)

var stackTags = map[string]object.Type{
	string(object.INT32):   object.INT32,
	string(object.INT64):   object.INT64,
	string(object.FLOAT32): object.FLOAT32,
	string(object.FLOAT64): object.FLOAT64,
	string(object.STRING):  object.STRING,
	string(object.OBJECT):  object.OBJECT,
	string(object.ARRAY):   object.ARRAY,
	string(object.NULL):    object.NULL,
}

// Resolve builds an in-memory assembly from f.
func Resolve(f *File) (*metadata.Assembly, error) {
	return resolve(f, metadata.MemoryOrigin)
}

func resolve(f *File, origin string) (*metadata.Assembly, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("image: assembly name is required")
	}
	entryType, entryMethod, err := splitEntryPoint(f.EntryPoint)
	if err != nil {
		return nil, err
	}
	var entry *metadata.Method
	types := make([]*metadata.Type, 0, len(f.Types))
	for _, td := range f.Types {
		t, err := resolveType(td)
		if err != nil {
			return nil, err
		}
		if entryType != "" && entry == nil && t.FullName() == entryType {
			entry = t.Method(entryMethod)
		}
		types = append(types, t)
	}
	if f.EntryPoint != "" && entry == nil {
		return nil, fmt.Errorf("image: entry point %s not found", f.EntryPoint)
	}
	return metadata.NewAssembly(metadata.AssemblyParams{
		Name:       f.Name,
		Origin:     origin,
		Module:     f.Module,
		Types:      types,
		References: f.References,
		EntryPoint: entry,
	}), nil
}

func splitEntryPoint(s string) (string, string, error) {
	if s == "" {
		return "", "", nil
	}
	typeName, method, ok := strings.Cut(s, "::")
	if !ok || typeName == "" || method == "" {
		return "", "", fmt.Errorf("image: invalid entry point %q (expected Type::Method)", s)
	}
	return typeName, method, nil
}

func resolveType(td TypeDef) (*metadata.Type, error) {
	if td.Name == "" {
		return nil, fmt.Errorf("image: type name is required")
	}
	fields := make([]*metadata.Field, 0, len(td.Fields))
	for _, fd := range td.Fields {
		fields = append(fields, metadata.NewField(metadata.FieldParams{
			Name:   fd.Name,
			Index:  fd.Index,
			Static: fd.Static,
		}))
	}
	methods := make([]*metadata.Method, 0, len(td.Methods))
	for _, md := range td.Methods {
		m, err := resolveMethod(md)
		if err != nil {
			return nil, fmt.Errorf("image: %s.%s: %w", qualify(td.Namespace, td.Name), md.Name, err)
		}
		methods = append(methods, m)
	}
	return metadata.NewType(metadata.TypeParams{
		Namespace: td.Namespace,
		Name:      td.Name,
		Methods:   methods,
		Fields:    fields,
	}), nil
}

func resolveMethod(md MethodDef) (*metadata.Method, error) {
	params := make([]object.Type, 0, len(md.Params))
	for _, p := range md.Params {
		tag, err := stackTag(p)
		if err != nil {
			return nil, err
		}
		params = append(params, tag)
	}
	var start, end object.Type
	var err error
	if md.StartParm != "" {
		if start, err = stackTag(md.StartParm); err != nil {
			return nil, err
		}
	}
	if md.EndParm != "" {
		if end, err = stackTag(md.EndParm); err != nil {
			return nil, err
		}
	}
	var body *metadata.Body
	if len(md.Body) > 0 {
		if body, err = resolveBody(md.Body); err != nil {
			return nil, err
		}
	}
	return metadata.NewMethod(metadata.MethodParams{
		Name:         md.Name,
		Signature:    md.Signature,
		Static:       md.Static,
		InternalCall: md.InternalCall,
		RVA:          md.RVA,
		ParamCount:   md.ParamCount,
		ParamTypes:   params,
		StartParm:    start,
		EndParm:      end,
		Body:         body,
	}), nil
}

func stackTag(name string) (object.Type, error) {
	tag, ok := stackTags[name]
	if !ok {
		return "", fmt.Errorf("unknown stack type %q", name)
	}
	return tag, nil
}

func resolveBody(defs []InstrDef) (*metadata.Body, error) {
	instrs := make([]metadata.Instruction, len(defs))
	positioned := 0
	for i, def := range defs {
		instrs[i] = metadata.NewInstruction(def.Op, nil)
		if def.Position != nil {
			instrs[i].Position = *def.Position
			positioned++
		}
	}
	switch positioned {
	case 0:
		metadata.Layout(instrs)
	case len(defs):
	default:
		return nil, fmt.Errorf("either every instruction or none must have a position")
	}

	labels := map[string]int{}
	for i, def := range defs {
		if def.Label == "" {
			continue
		}
		if _, exists := labels[def.Label]; exists {
			return nil, fmt.Errorf("duplicate label %q", def.Label)
		}
		labels[def.Label] = instrs[i].Position
	}

	for i, def := range defs {
		operand, err := resolveOperand(instrs[i], def, labels)
		if err != nil {
			return nil, fmt.Errorf("IL_%04x: %s: %w", instrs[i].Position, def.Op, err)
		}
		instrs[i].Operand = operand
	}
	return metadata.NewBody(instrs), nil
}

func resolveOperand(instr metadata.Instruction, def InstrDef, labels map[string]int) (any, error) {
	info := instr.Info()
	if instr.Code == op.Invalid {
		// Unknown opcodes are kept so that executing them reports the
		// mnemonic.
		return nil, nil
	}
	switch info.Operand {
	case op.NoOperand:
		return nil, nil
	case op.Int8Operand:
		if def.I < math.MinInt8 || def.I > math.MaxInt8 {
			return nil, fmt.Errorf("operand %d out of range for int8", def.I)
		}
		return int8(def.I), nil
	case op.SlotOperand:
		if def.I < 0 || def.I > math.MaxUint8 {
			return nil, fmt.Errorf("slot %d out of range [0, 255]", def.I)
		}
		return uint8(def.I), nil
	case op.Int32Operand:
		if def.I < math.MinInt32 || def.I > math.MaxInt32 {
			return nil, fmt.Errorf("operand %d out of range for int32", def.I)
		}
		return int32(def.I), nil
	case op.Int64Operand:
		return def.I, nil
	case op.Float32Operand:
		return float32(def.F), nil
	case op.Float64Operand:
		return def.F, nil
	case op.StringOperand, op.TypeOperand:
		return def.S, nil
	case op.FieldOperand:
		return int(def.I), nil
	case op.MethodOperand:
		if def.Call == nil {
			return nil, fmt.Errorf("missing call target")
		}
		return &metadata.MethodRef{
			Namespace: def.Call.Namespace,
			Class:     def.Call.Class,
			Name:      def.Call.Name,
			Signature: def.Call.Signature,
			RVA:       def.Call.RVA,
		}, nil
	case op.BranchOperand:
		delta := def.I
		if def.Target != "" {
			target, ok := labels[def.Target]
			if !ok {
				return nil, fmt.Errorf("unknown label %q", def.Target)
			}
			delta = int64(target - instr.Position - info.OperandWidth)
		}
		if info.OperandWidth == 1 {
			if delta < math.MinInt8 || delta > math.MaxInt8 {
				return nil, fmt.Errorf("branch delta %d out of range for a short branch", delta)
			}
			return int8(delta), nil
		}
		if delta < math.MinInt32 || delta > math.MaxInt32 {
			return nil, fmt.Errorf("branch delta %d out of range", delta)
		}
		return int32(delta), nil
	}
	return nil, fmt.Errorf("unsupported operand kind %d", info.Operand)
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

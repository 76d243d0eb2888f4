package metadata

import "github.com/risor-io/clr/object"

func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

func copyTypes(src []*Type) []*Type {
	if src == nil {
		return nil
	}
	dst := make([]*Type, len(src))
	copy(dst, src)
	return dst
}

func copyMethods(src []*Method) []*Method {
	if src == nil {
		return nil
	}
	dst := make([]*Method, len(src))
	copy(dst, src)
	return dst
}

func copyFields(src []*Field) []*Field {
	if src == nil {
		return nil
	}
	dst := make([]*Field, len(src))
	copy(dst, src)
	return dst
}

func copyTags(src []object.Type) []object.Type {
	if src == nil {
		return nil
	}
	dst := make([]object.Type, len(src))
	copy(dst, src)
	return dst
}

func copyInstructions(src []Instruction) []Instruction {
	if src == nil {
		return nil
	}
	dst := make([]Instruction, len(src))
	copy(dst, src)
	return dst
}

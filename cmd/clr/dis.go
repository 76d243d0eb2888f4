package main

import (
	"fmt"
	"strings"

	"github.com/risor-io/clr/dis"
	"github.com/risor-io/clr/image"
	"github.com/risor-io/clr/metadata"
	"github.com/spf13/cobra"
)

func (a *app) disCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis <image>",
		Short: "Disassemble the methods of an assembly image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dis(args[0], a.config.GetString("method"))
		},
	}
	cmd.Flags().String("method", "", "only disassemble this method (Type::Name)")
	return cmd
}

func (a *app) dis(path, only string) error {
	asm, err := image.Open(path)
	if err != nil {
		return err
	}
	methods, err := selectMethods(asm, only)
	if err != nil {
		return err
	}
	for i, m := range methods {
		if i > 0 {
			fmt.Fprintln(a.stdout)
		}
		fmt.Fprintln(a.stdout, strings.TrimSpace(m.FullName()+" "+m.Signature()))
		instructions, err := dis.Disassemble(m)
		if err != nil {
			fmt.Fprintf(a.stdout, "  (%s)\n", err)
			continue
		}
		if err := dis.Print(instructions, a.stdout); err != nil {
			return err
		}
	}
	return nil
}

// selectMethods returns every method of asm, or the one named by only.
func selectMethods(asm *metadata.Assembly, only string) ([]*metadata.Method, error) {
	if only != "" {
		typeName, methodName, ok := strings.Cut(only, "::")
		if !ok {
			return nil, fmt.Errorf("invalid method %q (expected Type::Name)", only)
		}
		t := asm.Type(typeName)
		if t == nil {
			return nil, fmt.Errorf("type %s not found", typeName)
		}
		m := t.Method(methodName)
		if m == nil {
			return nil, fmt.Errorf("method %s not found", only)
		}
		return []*metadata.Method{m}, nil
	}
	var methods []*metadata.Method
	for i := 0; i < asm.TypeCount(); i++ {
		t := asm.TypeAt(i)
		for j := 0; j < t.MethodCount(); j++ {
			methods = append(methods, t.MethodAt(j))
		}
	}
	return methods, nil
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/risor-io/clr/image"
	"github.com/spf13/cobra"
)

func (a *app) buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <source>",
		Short: "Convert a text assembly image into the binary form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.build(args[0], a.config.GetString("output"))
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default is the module name next to the source)")
	return cmd
}

func (a *app) build(source, output string) error {
	f, err := image.Read(source)
	if err != nil {
		return err
	}
	asm, err := image.Resolve(f)
	if err != nil {
		return err
	}
	if output == "" {
		output = filepath.Join(filepath.Dir(source), asm.Module())
	}
	var buf bytes.Buffer
	if err := image.Encode(&buf, f); err != nil {
		return err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s (%d bytes)\n", output, buf.Len())
	return nil
}

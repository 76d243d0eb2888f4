package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/risor-io/clr"
	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/image"
	"github.com/spf13/cobra"
)

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <image> [-- args...]",
		Short: "Run the entry point of an assembly image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args[0], args[1:])
		},
	}
	cmd.Flags().String("dir", ".", "directory searched for referenced assemblies")
	cmd.Flags().Bool("legacy-args", false, "extract call arguments by scanning for parameter markers")
	cmd.Flags().Duration("timeout", 0, "halt the program after this long (0 disables)")
	return cmd
}

func (a *app) run(ctx context.Context, path string, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := a.config.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	asm, err := image.Open(path)
	if err != nil {
		return err
	}
	rt, err := clr.New(asm, a.config.GetString("dir"),
		clr.WithStdout(a.stdout),
		clr.WithDiagnostics(a.stderr),
		clr.WithLogger(a.logger()),
		clr.WithLegacyArgumentMarkers(a.config.GetBool("legacy-args")),
		clr.WithArgs(args),
	)
	if err != nil {
		return err
	}
	result, err := rt.Start(ctx)
	if err != nil {
		return reported(err)
	}
	if result != nil {
		fmt.Fprintln(a.stdout, result.Inspect())
	}
	return nil
}

// reported returns errReported for errors the runtime has already written to
// the diagnostic writer, and err otherwise.
func reported(err error) error {
	var se *errz.StructuredError
	if errors.As(err, &se) {
		return errReported
	}
	return err
}

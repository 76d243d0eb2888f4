package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var red = color.New(color.FgRed).SprintFunc()

// errReported marks a failure whose diagnostics were already written.
var errReported = errors.New("reported")

type app struct {
	config *viper.Viper
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{config: viper.New(), stdout: stdout, stderr: stderr}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "clr",
		Short:         "Run managed bytecode assemblies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default is clr.toml, clr.yaml or clr.json in the working directory)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "warn", "debug log level (trace, debug, info, warn, error, disabled)")
	root.AddCommand(
		a.runCommand(),
		a.disCommand(),
		a.buildCommand(),
		a.versionCommand(),
	)
	return root
}

// initConfig layers flags over CLR_* environment variables over the config
// file.
func (a *app) initConfig(cmd *cobra.Command) error {
	v := a.config
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	v.SetEnvPrefix("CLR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("clr")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	if v.GetBool("no-color") || !isTerminal(a.stdout) {
		color.NoColor = true
	}
	return nil
}

func (a *app) logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(a.config.GetString("log-level"))
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, NoColor: color.NoColor}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := a.rootCommand().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
		}
		os.Exit(1)
	}
}

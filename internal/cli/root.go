// Package cli implements the costparity command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eupholio/costparity/internal/config"
	"github.com/eupholio/costparity/internal/runner"
)

// RootOptions holds global flags and test seams.
type RootOptions struct {
	ConfigFile string
	Root       string
	Workers    int
	Timeout    time.Duration
	SpawnRate  float64
	SpawnBurst int
	Format     string
	Verbose    bool
	Trace      bool
	Journal    string

	// Runner replaces process execution (tests). Nil means runner.OSRunner.
	Runner runner.CommandRunner
	// LookPath replaces exec.LookPath (tests).
	LookPath config.LookPathFunc
	// LookupEnv and EnvFile replace the environment and .env (tests).
	LookupEnv func(string) (string, bool)
	EnvFile   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{config.FormatText, config.FormatJSON}

// NewRootCommand creates the root command. With no subcommand it runs check
// over the configured cases.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "costparity",
		Short: "Differential parity harness for cost-basis engines",
		Long: `costparity runs every case file through the reference engine and the
candidate engine and checks that their realized P&L agree.

Exit codes:
  0 - every case passed
  1 - at least one case failed (mismatch, expectation miss or candidate error)
  2 - configuration, fixture or reference engine error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, nil, cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file")
	flags.StringVar(&opts.Root, "root", "", "repository root (default \".\")")
	flags.IntVar(&opts.Workers, "workers", 1, "cases evaluated in parallel")
	flags.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-invocation timeout (0 disables)")
	flags.Float64Var(&opts.SpawnRate, "spawn-rate", 0, "max engine processes started per second (0 = unlimited)")
	flags.IntVar(&opts.SpawnBurst, "spawn-burst", 1, "spawn limiter burst")
	flags.StringVar(&opts.Format, "format", config.FormatText, "output format (json|text)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	flags.BoolVar(&opts.Trace, "trace", false, "print the invocation journal to stderr after the run")
	flags.StringVar(&opts.Journal, "journal", "", "keep the invocation journal in this SQLite file")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewTranslateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, &RootOptions{}, args, stdout, stderr)
}

func execute(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(stderr, "costparity: %v\n", err)
	return GetExitCode(err)
}

// loadConfig layers flags the user actually set over the loaded config.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		File:      opts.ConfigFile,
		EnvFile:   opts.EnvFile,
		LookupEnv: opts.LookupEnv,
	})
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = opts.Root
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if flags.Changed("spawn-rate") {
		cfg.SpawnRate = opts.SpawnRate
	}
	if flags.Changed("spawn-burst") {
		cfg.SpawnBurst = opts.SpawnBurst
	}
	if flags.Changed("format") {
		cfg.Format = opts.Format
	}
	if flags.Changed("journal") {
		cfg.Journal = opts.Journal
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the stderr logger. Every record carries run_id.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, string) {
	level, _ := config.ParseLevel(cfg.LogLevel)
	runID := uuid.Must(uuid.NewV7()).String()
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("run_id", runID), runID
}

func (o *RootOptions) commandRunner() runner.CommandRunner {
	if o.Runner != nil {
		return o.Runner
	}
	return runner.OSRunner{}
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}


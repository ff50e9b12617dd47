package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eupholio/costparity/internal/harness"
	"github.com/eupholio/costparity/internal/journal"
	"github.com/eupholio/costparity/internal/runner"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [case...]",
		Short: "Run cases through both engines and compare",
		Long: `Run each case through the reference and candidate engines and compare
their realized P&L.

Cases given as arguments replace the configured list. Per-case lines and a
final "summary:" line go to stdout; logs go to stderr.

Examples:
  costparity check
  costparity check scripts/parity_fixture_case1.json
  costparity check --workers 4 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), rootOpts, args, cmd)
		},
	}
}

func runCheck(ctx context.Context, opts *RootOptions, cases []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return err
	}
	if len(cases) > 0 {
		cfg.Cases = make([]string, len(cases))
		for i, c := range cases {
			abs, err := filepath.Abs(c)
			if err != nil {
				return WrapExitError(ExitCommandError, "resolve case path", err)
			}
			cfg.Cases[i] = abs
		}
	}

	logger, runID := newLogger(cmd.ErrOrStderr(), cfg)

	ref, cand, err := cfg.ResolveEngines(opts.LookPath)
	if err != nil {
		return err
	}
	logger.Debug("engines resolved", "reference", ref.Argv, "candidate", cand.Argv, "candidate_dir", cand.Dir)

	jr, err := journal.Open(cfg.Journal, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	defer func() {
		if cerr := jr.Close(); cerr != nil {
			logger.Error("error closing journal", "error", cerr)
		}
	}()
	hook := jr.Hook(logger)

	exec := runner.NewExecutor(opts.commandRunner(),
		runner.WithTimeout(cfg.Timeout),
		runner.WithSpawnRate(cfg.SpawnRate, cfg.SpawnBurst),
	)
	h := harness.New(
		runner.NewReferenceRunner(ref, exec, hook),
		runner.NewCandidateRunner(cand, exec, hook),
		harness.WithWorkers(cfg.Workers),
		harness.WithLogger(logger),
	)

	paths := cfg.CasePaths()
	logger.Info("run starting", "cases", len(paths), "workers", cfg.Workers, "timeout", cfg.Timeout)
	results, runErr := h.Run(ctx, paths)

	if opts.Trace {
		if err := dumpJournal(ctx, jr, cmd); err != nil {
			logger.Warn("trace unavailable", "error", err)
		}
	}
	if runErr != nil {
		logger.Error("run aborted", "error", runErr)
		return runErr
	}

	if err := harness.WriteReport(cmd.OutOrStdout(), results, cfg.Format); err != nil {
		return WrapExitError(ExitCommandError, "write report", err)
	}

	failed := harness.FailedCases(results)
	logger.Info("run finished", "cases", len(results), "failed", failed)
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d case(s) failed", failed, len(results)))
	}
	return nil
}

func dumpJournal(ctx context.Context, jr *journal.Journal, cmd *cobra.Command) error {
	entries, err := jr.List(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	return journal.WriteTrace(cmd.ErrOrStderr(), entries)
}

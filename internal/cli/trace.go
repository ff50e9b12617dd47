package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/eupholio/costparity/internal/journal"
)

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <journal.db>",
		Short: "List the engine calls recorded in a journal file",
		Long: `List the engine calls recorded by a previous run started with --journal.

Example:
  costparity check --journal run.db
  costparity trace run.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, args[0], cmd)
		},
	}
}

func runTrace(opts *RootOptions, path string, cmd *cobra.Command) error {
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	jr, err := journal.Open(path, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	defer jr.Close()

	entries, err := jr.List(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "read journal", err)
	}
	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []journal.Entry{}
		}
		return enc.Encode(entries)
	}
	return journal.WriteTrace(cmd.OutOrStdout(), entries)
}

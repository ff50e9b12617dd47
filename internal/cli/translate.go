package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eupholio/costparity/internal/compare"
	"github.com/eupholio/costparity/internal/fixture"
	"github.com/eupholio/costparity/internal/protocol"
)

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <case>",
		Short: "Print the engine requests for a case without running engines",
		Long: `Print the request the reference engine would receive, then one request
per candidate method that would be invoked, one JSON document per line.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(args[0], cmd)
		},
	}
}

func runTranslate(path string, cmd *cobra.Command) error {
	f, err := fixture.Load(path)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	body, err := protocol.Encode(protocol.ReferenceInput(f))
	if err != nil {
		return WrapExitError(ExitCommandError, "encode reference request", err)
	}
	fmt.Fprintf(w, "%s\n", body)

	for _, req := range protocol.CandidateInputs(f, compare.NeededMethods(f)) {
		body, err := protocol.Encode(req)
		if err != nil {
			return WrapExitError(ExitCommandError, "encode candidate request", err)
		}
		fmt.Fprintf(w, "%s\n", body)
	}
	return nil
}

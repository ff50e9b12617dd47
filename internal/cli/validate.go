package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eupholio/costparity/internal/compare"
	"github.com/eupholio/costparity/internal/fixture"
)

// ValidationResult describes one valid case.
type ValidationResult struct {
	Case       string   `json:"case"`
	Events     int      `json:"events"`
	Translated int      `json:"translated"`
	Methods    []string `json:"methods"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <case...>",
		Short: "Load case files without running engines",
		Long: `Load and schema-check case files. Stops at the first malformed case
with exit code 2.

Events with an unrecognized type are reported because both engines will
never see them.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	for _, path := range paths {
		f, err := fixture.Load(path)
		if err != nil {
			if ferr := formatter.Error(err); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitCommandError, "invalid case", err)
		}

		res := ValidationResult{Case: f.Name(), Events: len(f.Events)}
		var dropped []string
		for _, e := range f.Events {
			if e.Recognized() {
				res.Translated++
			} else {
				dropped = append(dropped, e.Type)
			}
		}
		for _, m := range compare.NeededMethods(f) {
			res.Methods = append(res.Methods, m.String())
		}

		text := fmt.Sprintf("ok %s: %d events, methods [%s]", res.Case, res.Events, strings.Join(res.Methods, " "))
		if len(dropped) > 0 {
			text += fmt.Sprintf(", dropped %d unrecognized (%s)", len(dropped), strings.Join(dropped, ", "))
		}
		if err := formatter.Success(res, text); err != nil {
			return err
		}
	}
	return nil
}

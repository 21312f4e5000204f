package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liveset/internal/harness"
)

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <scenario.yaml>",
		Short: "Run one scenario and print its edit trace",
		Long: `Run a single scenario file and print the full trace: the transaction
brackets, every edit line in emission order, and the final section layout.

Useful for inspecting what a reconciliation actually emitted while writing
or debugging a scenario. Assertion failures are reported but the trace is
printed either way.

Exit codes:
  0 - Scenario passed
  1 - Assertion failure
  2 - Command error (file missing, malformed scenario)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, args[0], cmd)
		},
	}
}

func runTrace(opts *RootOptions, scenarioFile string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Pass {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_ASSERTION_FAILED",
				Message: fmt.Sprintf("%d assertion failure(s)", len(result.Errors)),
			}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		w.Write(harness.Snapshot(scenario.Name, result))
		for _, msg := range result.Errors {
			fmt.Fprintf(w, "assertion failed: %s\n", msg)
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion failure(s)", len(result.Errors)))
	}
	return nil
}

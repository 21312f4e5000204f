package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liveset/internal/compiler"
)

// ValidationResult holds validation results for a definitions directory.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Definitions int                        `json:"definitions"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <defs-dir>",
		Short: "Validate projection definitions",
		Long: `Validate CUE projection definitions without running anything.

Compiles every definition under the top-level "projection" struct and
applies the semantic rules: non-empty query, at least one sort field, the
grouping field matching the primary sort field.

Exit codes:
  0 - All definitions valid
  1 - Validation findings
  2 - Command error (bad path, malformed CUE)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, defsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, loadErrors := LoadDefinitions(defsDir, LoadModeCollectAll)
	if result == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Message)
		}
		_ = formatter.Error(ErrCodeGeneric, loadErrors[0].Error(), nil)
		return NewExitError(ExitCommandError, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, defsDir)

	var findings []compiler.ValidationError
	for i := range result.Definitions {
		def := &result.Definitions[i]
		formatter.VerboseLog("Validating definition: %s", def.Name)
		findings = append(findings, compiler.Validate(def)...)
	}
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			findings = append(findings, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
			})
		}
	}

	if len(findings) > 0 {
		return outputValidationErrors(formatter, len(result.Definitions), findings)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Definitions: len(result.Definitions)})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d definition(s) valid\n", len(result.Definitions))
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, defCount int, findings []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:       false,
				Definitions: defCount,
				Errors:      findings,
			},
			Error: &CLIError{
				Code:    findings[0].Code,
				Message: findings[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(findings)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, f := range findings {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", f.Code, f.Field, f.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(findings)))
}

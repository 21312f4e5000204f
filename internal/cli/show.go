package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/liveset/internal/compiler"
	"github.com/roach88/liveset/internal/engine"
	"github.com/roach88/liveset/internal/projection"
	"github.com/roach88/liveset/internal/source"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	DB string
}

// SectionDump is one section in show output.
type SectionDump struct {
	Key  string           `json:"key"`
	Rows []map[string]any `json:"rows"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <defs-dir> <name>",
		Short: "Print a projection over a SQLite database",
		Long: `Build the named projection definition against a SQLite database and
print the resulting section layout: every section key in order and the rows
inside it in sort order.

Examples:
  liveset show ./defs tasks --db ./app.db
  liveset show ./defs tasks --db ./app.db --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to the SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, defsDir, name string, cmd *cobra.Command) error {
	result, loadErrors := LoadDefinitions(defsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to load definitions", loadErrors[0])
	}

	def := result.Find(name)
	if def == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("projection definition %q not found in %s", name, defsDir))
	}
	if findings := compiler.Validate(def); len(findings) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("definition %q invalid: %s", name, findings[0].Error()))
	}

	sq, err := source.OpenSQLite(source.SQLiteConfig{
		Path:     opts.DB,
		Query:    def.Query,
		Table:    def.Table,
		IDColumn: def.IDColumn,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer sq.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	}

	ctl, err := engine.New(engine.Options[source.Record, source.Record]{
		Source:      sq,
		Identity:    source.RecordIdentity,
		SortRules:   def.Rules(),
		Grouping:    def.Grouping(),
		Map:         func(r source.Record) source.Record { return r },
		Synchronous: true,
		Logger:      logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build projection", err)
	}
	defer ctl.Close()

	if err := ctl.PerformFetch(cmd.Context()); err != nil {
		return WrapExitError(ExitCommandError, "failed to fetch projection", err)
	}

	dump := make([]SectionDump, 0, ctl.NumberOfSections())
	total := 0
	for i, summary := range ctl.Sections() {
		section := SectionDump{Key: summary.Key, Rows: make([]map[string]any, 0, summary.Count)}
		for row := 0; row < summary.Count; row++ {
			rec, ok := ctl.ObjectAt(projection.Path{Section: i, Row: row})
			if !ok {
				continue
			}
			section.Rows = append(section.Rows, rec.Fields)
			total++
		}
		dump = append(dump, section)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: dump})
	}

	fmt.Fprintf(w, "projection %s (%d section(s), %d row(s))\n", def.Name, len(dump), total)
	for _, section := range dump {
		fmt.Fprintf(w, "%s (%d)\n", section.Key, len(section.Rows))
		for _, row := range section.Rows {
			fmt.Fprintf(w, "  %s\n", source.ValueString(row[def.IDColumn]))
		}
	}
	return nil
}

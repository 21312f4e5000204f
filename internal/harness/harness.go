package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/liveset/internal/engine"
	"github.com/roach88/liveset/internal/projection"
	"github.com/roach88/liveset/internal/source"
	"github.com/roach88/liveset/internal/testutil"
)

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Events is the captured trace, one line per delegate callback.
	Events []string `json:"events"`

	// Errors lists the assertion failures; empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// SectionKeys is the final section key order.
	SectionKeys []string `json:"section_keys"`

	// Sections maps section key to the final id order within it.
	Sections map[string][]string `json:"sections"`
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Run executes a scenario against a fresh in-memory source and a
// synchronous controller, so the captured trace is identical on every run.
//
// Execution order: seed the source, fetch, then publish each batch in turn.
// The initial fetch is excluded from the trace; only reconciliation edits
// are captured.
func Run(scenario *Scenario) (*Result, error) {
	mem := source.NewMemory(source.RecordIdentity, seedRecords(scenario.Seed), nil)

	rules := make([]projection.SortRule[source.Record], len(scenario.Sort))
	for i, sf := range scenario.Sort {
		rules[i] = source.FieldRule(sf.Field, !sf.Descending)
	}
	var grouping *projection.Grouping[source.Record]
	if scenario.GroupBy != "" {
		grouping = source.FieldGrouping(scenario.GroupBy)
	}

	del := &testutil.RecordingDelegate[source.Record]{
		Format: func(r source.Record) string { return r.ID },
	}

	ctl, err := engine.New(engine.Options[source.Record, source.Record]{
		Source:      mem,
		Identity:    source.RecordIdentity,
		SortRules:   rules,
		Grouping:    grouping,
		Map:         func(r source.Record) source.Record { return r },
		Delegate:    del,
		Synchronous: true,
		Tokens:      testutil.NewFixedTokenGenerator(scenario.Token),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, fmt.Errorf("build controller: %w", err)
	}
	defer ctl.Close()

	if err := ctl.PerformFetch(context.Background()); err != nil {
		return nil, fmt.Errorf("initial fetch: %w", err)
	}
	del.Reset()

	for _, batch := range scenario.Batches {
		mem.Publish(toBatch(batch))
	}

	result := &Result{
		Pass:     true,
		Events:   del.Events(),
		Sections: make(map[string][]string),
	}
	for i, summary := range ctl.Sections() {
		result.SectionKeys = append(result.SectionKeys, summary.Key)
		ids := make([]string, 0, summary.Count)
		for row := 0; row < summary.Count; row++ {
			rec, ok := ctl.ObjectAt(projection.Path{Section: i, Row: row})
			if !ok {
				return nil, fmt.Errorf("section %d row %d missing after run", i, row)
			}
			ids = append(ids, rec.ID)
		}
		result.Sections[summary.Key] = ids
	}

	Evaluate(scenario.Assertions, result)
	return result, nil
}

// seedRecords converts seed row maps into records.
func seedRecords(rows []map[string]any) []source.Record {
	recs := make([]source.Record, len(rows))
	for i, row := range rows {
		recs[i] = toRecord(row)
	}
	return recs
}

func toRecord(row map[string]any) source.Record {
	fields := make(map[string]any, len(row))
	for k, v := range row {
		fields[k] = v
	}
	return source.Record{ID: source.ValueString(row["id"]), Fields: fields}
}

func toBatch(steps []ChangeStep) source.Batch {
	batch := make(source.Batch, len(steps))
	for i, step := range steps {
		var action source.Action
		switch step.Action {
		case "create":
			action = source.ActionCreate
		case "update":
			action = source.ActionUpdate
		case "delete":
			action = source.ActionDelete
		}
		batch[i] = source.Change{Action: action, Item: toRecord(step.Row)}
	}
	return batch
}

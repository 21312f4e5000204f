package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the canonical plain-text trace used for
// golden comparison: the scenario name, the event lines, and the final
// section layout. Plain text keeps golden diffs readable in review.
func Snapshot(name string, r *Result) []byte {
	var b strings.Builder
	b.WriteString("scenario: " + name + "\n")
	b.WriteString("--- events\n")
	for _, e := range r.Events {
		b.WriteString(e + "\n")
	}
	b.WriteString("--- sections\n")
	for _, key := range r.SectionKeys {
		b.WriteString(key + ": " + strings.Join(r.Sections[key], ", ") + "\n")
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario, fails the test on any assertion
// failure, and compares the trace snapshot against
// testdata/golden/{name}.golden.
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario.Name, result))
}

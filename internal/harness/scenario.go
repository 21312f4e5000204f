package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one YAML-defined projection test case.
type Scenario struct {
	// Name uniquely identifies the scenario; it doubles as the golden file
	// name.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Sort is the projection's sort rule list, primary first.
	Sort []SortSpec `yaml:"sort"`

	// GroupBy names the sectioning field. Empty runs a single-section
	// projection. Must equal the first sort field when set.
	GroupBy string `yaml:"group_by,omitempty"`

	// Seed rows populate the source before the initial fetch. Each row is
	// a field map and must carry an "id".
	Seed []map[string]any `yaml:"seed,omitempty"`

	// Batches are published one at a time after the fetch; each inner list
	// is one notification batch, reconciled as one transaction.
	Batches [][]ChangeStep `yaml:"batches"`

	// Assertions evaluate against the captured trace and final layout.
	Assertions []Assertion `yaml:"assertions"`

	// Token optionally fixes the transaction token for the run.
	Token string `yaml:"token,omitempty"`
}

// SortSpec is one sort rule in scenario form. The zero Descending keeps
// rules ascending by default.
type SortSpec struct {
	Field      string `yaml:"field"`
	Descending bool   `yaml:"descending,omitempty"`
}

// ChangeStep is one change notification inside a batch.
type ChangeStep struct {
	// Action is "create", "update", or "delete".
	Action string `yaml:"action"`

	// Row is the record snapshot the notification carries.
	Row map[string]any `yaml:"row"`
}

// Assertion validates the trace or the final projection layout.
type Assertion struct {
	// Type selects the assertion:
	//   - "edit_contains": Edit appears somewhere in the trace
	//   - "edit_order": Edits appear as a subsequence, in order
	//   - "edit_count": Edit appears exactly Count times
	//   - "final_order": each section holds exactly these ids, in order
	//   - "section_keys": the section key list, in order
	//   - "bracket_pairing": every transaction is properly bracketed
	Type string `yaml:"type"`

	// Edit is one trace line (used by edit_contains, edit_count).
	Edit string `yaml:"edit,omitempty"`

	// Edits is the expected ordered subsequence (used by edit_order).
	Edits []string `yaml:"edits,omitempty"`

	// Count is the expected occurrence count (used by edit_count).
	Count int `yaml:"count,omitempty"`

	// Sections maps section key to the expected id order (final_order).
	Sections map[string][]string `yaml:"sections,omitempty"`

	// Keys is the expected section key order (section_keys).
	Keys []string `yaml:"keys,omitempty"`
}

// Assertion type constants.
const (
	AssertEditContains   = "edit_contains"
	AssertEditOrder      = "edit_order"
	AssertEditCount      = "edit_count"
	AssertFinalOrder     = "final_order"
	AssertSectionKeys    = "section_keys"
	AssertBracketPairing = "bracket_pairing"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo fails loudly instead of silently skipping a clause.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Sort) == 0 {
		return fmt.Errorf("sort list is required and must be non-empty")
	}
	for i, sf := range s.Sort {
		if sf.Field == "" {
			return fmt.Errorf("sort[%d]: field is required", i)
		}
	}
	if s.GroupBy != "" && s.GroupBy != s.Sort[0].Field {
		return fmt.Errorf("group_by %q must equal the first sort field %q", s.GroupBy, s.Sort[0].Field)
	}

	for i, row := range s.Seed {
		if _, ok := row["id"]; !ok {
			return fmt.Errorf("seed[%d]: row requires an id", i)
		}
	}

	for b, batch := range s.Batches {
		for i, step := range batch {
			switch step.Action {
			case "create", "update", "delete":
			default:
				return fmt.Errorf("batches[%d][%d]: unknown action %q", b, i, step.Action)
			}
			if _, ok := step.Row["id"]; !ok {
				return fmt.Errorf("batches[%d][%d]: row requires an id", b, i)
			}
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertEditContains:
		if a.Edit == "" {
			return fmt.Errorf("assertions[%d]: edit is required for edit_contains", index)
		}
	case AssertEditOrder:
		if len(a.Edits) == 0 {
			return fmt.Errorf("assertions[%d]: edits list is required for edit_order", index)
		}
	case AssertEditCount:
		if a.Edit == "" {
			return fmt.Errorf("assertions[%d]: edit is required for edit_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for edit_count", index)
		}
	case AssertFinalOrder:
		if len(a.Sections) == 0 {
			return fmt.Errorf("assertions[%d]: sections is required for final_order", index)
		}
	case AssertSectionKeys:
		if len(a.Keys) == 0 {
			return fmt.Errorf("assertions[%d]: keys list is required for section_keys", index)
		}
	case AssertBracketPairing:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

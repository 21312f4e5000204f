package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/move_within_section.yaml")
	require.NoError(t, err)

	assert.Equal(t, "move_within_section", s.Name)
	assert.Equal(t, []SortSpec{{Field: "ord"}}, s.Sort)
	require.Len(t, s.Batches, 1)
	require.Len(t, s.Batches[0], 1)
	assert.Equal(t, "update", s.Batches[0][0].Action)
	assert.NotEmpty(t, s.Assertions)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: a misspelled key must fail loudly
sort: [{field: ord}]
batches: []
assertion:
  - type: bracket_pairing
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "missing name",
			content: "description: d\nsort: [{field: ord}]\nassertions: [{type: bracket_pairing}]\n",
			wantMsg: "name is required",
		},
		{
			name:    "missing sort",
			content: "name: n\ndescription: d\nassertions: [{type: bracket_pairing}]\n",
			wantMsg: "sort list is required",
		},
		{
			name: "group_by not first sort field",
			content: `
name: n
description: d
sort: [{field: ord}]
group_by: grp
assertions: [{type: bracket_pairing}]
`,
			wantMsg: "must equal the first sort field",
		},
		{
			name: "seed row without id",
			content: `
name: n
description: d
sort: [{field: ord}]
seed: [{ord: 10}]
assertions: [{type: bracket_pairing}]
`,
			wantMsg: "requires an id",
		},
		{
			name: "unknown batch action",
			content: `
name: n
description: d
sort: [{field: ord}]
batches: [[{action: upsert, row: {id: "1"}}]]
assertions: [{type: bracket_pairing}]
`,
			wantMsg: "unknown action",
		},
		{
			name: "missing assertions",
			content: `
name: n
description: d
sort: [{field: ord}]
batches: []
`,
			wantMsg: "assertions list is required",
		},
		{
			name: "assertion without edit",
			content: `
name: n
description: d
sort: [{field: ord}]
assertions: [{type: edit_contains}]
`,
			wantMsg: "edit is required",
		},
		{
			name: "unknown assertion type",
			content: `
name: n
description: d
sort: [{field: ord}]
assertions: [{type: edit_matches}]
`,
			wantMsg: "unknown assertion type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

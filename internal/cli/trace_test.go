package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceCommand(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "update.yaml", passingScenario)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "scenario: update_keeps_position")
	assert.Contains(t, output, "--- events")
	assert.Contains(t, output, "will_change")
	assert.Contains(t, output, "update (0,1) 2")
	assert.Contains(t, output, "did_change")
	assert.Contains(t, output, "--- sections")
	assert.Contains(t, output, "default: 1, 2")
	assert.NotContains(t, output, "assertion failed")
}

func TestTraceCommandAssertionFailure(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "fail.yaml", failingScenario)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// The trace still prints, followed by the failures.
	output := buf.String()
	assert.Contains(t, output, "--- events")
	assert.Contains(t, output, "assertion failed:")
}

func TestTraceCommandMissingFile(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/scenario.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceCommandJSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "update.yaml", passingScenario)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
}

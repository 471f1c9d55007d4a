package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with the given args and returns the
// combined stdout along with Execute's error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse unpacks a JSON-format command response.
func decodeResponse(t *testing.T, raw string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return resp
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "validate", "testdata/highcard.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestValidateCommand_ValidDefinition(t *testing.T) {
	out, err := execute(t, "validate", "testdata/highcard.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
	assert.Contains(t, out, "2 players")
}

func TestValidateCommand_InvalidDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("players: []\n"), 0o644))

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "definition invalid")
}

func TestValidateCommand_JSONSummary(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", "testdata/highcard.yaml")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "highcard", data["name"])
	assert.Equal(t, float64(2), data["players"])
	assert.Equal(t, float64(3), data["zones"])
}

func TestRunCommand_FinishesSession(t *testing.T) {
	out, err := execute(t, "--format", "json", "run", "--seed", "11", "testdata/highcard.yaml")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["finished"])
	assert.Equal(t, true, data["result"])
	assert.Equal(t, float64(3), data["turns"])
	assert.NotEmpty(t, data["trace_hash"])
}

func TestRunCommand_SeedChangesTrace(t *testing.T) {
	hash := func(seed string) string {
		out, err := execute(t, "--format", "json", "run", "--seed", seed, "testdata/highcard.yaml")
		require.NoError(t, err)
		data, ok := decodeResponse(t, out).Data.(map[string]any)
		require.True(t, ok)
		h, _ := data["trace_hash"].(string)
		require.NotEmpty(t, h)
		return h
	}

	assert.Equal(t, hash("11"), hash("11"))
	assert.NotEqual(t, hash("11"), hash("12"))
}

func TestRunCommand_MissingDefinition(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "nonesuch.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

// TestRunAndReplay_RoundTrip drives the full persistence path: run with
// --db, then replay the stored session and check the determinism verdict.
func TestRunAndReplay_RoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	out, err := execute(t, "--format", "json", "run", "--seed", "11", "--db", dbPath, "testdata/highcard.yaml")
	require.NoError(t, err)
	data, ok := decodeResponse(t, out).Data.(map[string]any)
	require.True(t, ok)
	sessionID, _ := data["session"].(string)
	require.NotEmpty(t, sessionID)

	out, err = execute(t, "--format", "json", "replay", "--db", dbPath, "testdata/highcard.yaml", sessionID)
	require.NoError(t, err)
	replay, ok := decodeResponse(t, out).Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, replay["deterministic"])
	assert.Equal(t, replay["stored_hash"], replay["replayed_hash"])
}

func TestTraceCommand_FiltersByTag(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	out, err := execute(t, "--format", "json", "run", "--seed", "11", "--db", dbPath, "testdata/highcard.yaml")
	require.NoError(t, err)
	data, ok := decodeResponse(t, out).Data.(map[string]any)
	require.True(t, ok)
	sessionID, _ := data["session"].(string)
	require.NotEmpty(t, sessionID)

	out, err = execute(t, "trace", "--db", dbPath, "--tag", "turn", sessionID)
	require.NoError(t, err)
	assert.Contains(t, out, "turn.begin")
	assert.NotContains(t, out, "phase.enter")
}

func TestTraceCommand_UnknownSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	// Initialize the database so only the session lookup fails.
	_, err := execute(t, "--format", "json", "run", "--seed", "11", "--db", dbPath, "testdata/highcard.yaml")
	require.NoError(t, err)

	_, err = execute(t, "trace", "--db", dbPath, "nonesuch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoadChoices_ReadsYAMLList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "choices.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- pass\n- 2\n"), 0o644))

	choices, err := loadChoices(path)
	require.NoError(t, err)
	assert.Equal(t, []any{"pass", 2}, choices)
}

func TestHasTagPrefix(t *testing.T) {
	assert.True(t, hasTagPrefix("move.card", "move"))
	assert.True(t, hasTagPrefix("move", "move"))
	assert.False(t, hasTagPrefix("movement", "move"))
	assert.False(t, hasTagPrefix("move.card", "card"))
}

package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardcore/internal/engine"
	"github.com/roach88/cardcore/internal/testutil"
)

func loadFixture(t *testing.T) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/highcard_scenario.yaml")
	require.NoError(t, err)
	return s
}

func TestLoadScenario_ResolvesDefinitionPath(t *testing.T) {
	s := loadFixture(t)
	assert.Equal(t, "highcard-third-turn", s.Name)
	assert.Equal(t, int64(11), s.Seed)
	assert.Equal(t, filepath.Join("testdata", "highcard.yaml"), s.DefinitionPath())
	assert.Len(t, s.Assertions, 7)
}

func TestLoadScenario_RejectsIncompleteFixtures(t *testing.T) {
	dir := t.TempDir()

	noName := filepath.Join(dir, "noname.yaml")
	require.NoError(t, os.WriteFile(noName, []byte("definition: x.yaml\n"), 0o644))
	_, err := LoadScenario(noName)
	assert.ErrorContains(t, err, "missing name")

	noDef := filepath.Join(dir, "nodef.yaml")
	require.NoError(t, os.WriteFile(noDef, []byte("name: bare\n"), 0o644))
	_, err = LoadScenario(noDef)
	assert.ErrorContains(t, err, "missing definition")
}

func TestRun_ScenarioPasses(t *testing.T) {
	s := loadFixture(t)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, true, result.WinResult)
	assert.NotEmpty(t, result.TraceHash)
}

// TestRun_ReportsAssertionFailures checks that a failing assertion
// lands in Result.Errors instead of aborting the run.
func TestRun_ReportsAssertionFailures(t *testing.T) {
	s := loadFixture(t)
	s.Assertions = append(s.Assertions, Assertion{Type: "zone_count", Zone: "deck", Count: 99})

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "zone_count")
	assert.Contains(t, result.Errors[0], "expected 99")
}

// TestRun_WarScenario covers the flip-and-collect loop: round-robin
// deal, one flip per player per turn, spoils collected each resolve.
func TestRun_WarScenario(t *testing.T) {
	s, err := LoadScenario("testdata/war_scenario.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
	assert.Equal(t, 5, result.Final.Flow.Turn)
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	s := loadFixture(t)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.TraceHash, second.TraceHash)
}

func TestApplyAssertion_TraceChecks(t *testing.T) {
	r := &Result{Trace: &engine.Trace{Entries: []engine.TraceEntry{
		{Seq: 1, Tag: "turn.begin", Ctx: map[string]any{"turn_index": int64(1)}},
		{Seq: 2, Tag: "move.card", Ctx: map[string]any{"from": "deck", "to": "table"}},
		{Seq: 3, Tag: "turn.end"},
	}}}

	assert.NoError(t, applyAssertion(r, Assertion{Type: "trace_contains", Tag: "move.card", Ctx: map[string]any{"from": "deck"}}))
	assert.Error(t, applyAssertion(r, Assertion{Type: "trace_contains", Tag: "move.card", Ctx: map[string]any{"from": "hand"}}))

	// YAML hands integers to assertions as int; the comparison must
	// still match the runtime's int64 context values.
	assert.NoError(t, applyAssertion(r, Assertion{Type: "trace_contains", Tag: "turn.begin", Ctx: map[string]any{"turn_index": 1}}))

	assert.NoError(t, applyAssertion(r, Assertion{Type: "trace_order", Tags: []string{"turn.begin", "turn.end"}}))
	assert.Error(t, applyAssertion(r, Assertion{Type: "trace_order", Tags: []string{"turn.end", "turn.begin"}}))

	assert.NoError(t, applyAssertion(r, Assertion{Type: "trace_count", Tag: "move.card", Count: 1}))
	assert.Error(t, applyAssertion(r, Assertion{Type: "trace_count", Tag: "move.card", Count: 2}))

	assert.Error(t, applyAssertion(r, Assertion{Type: "no_such_check"}))
}

func TestApplyAssertion_StateChecks(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	g.Vars["winner"] = "alice"
	g.Player("alice").Vars["score"] = int64(7)
	r := &Result{Final: g, WinResult: "alice"}

	assert.NoError(t, applyAssertion(r, Assertion{Type: "final_result", Value: "alice"}))
	assert.Error(t, applyAssertion(r, Assertion{Type: "final_result", Value: "bob"}))

	assert.NoError(t, applyAssertion(r, Assertion{Type: "zone_count", Zone: "deck", Count: 13}))
	assert.NoError(t, applyAssertion(r, Assertion{Type: "zone_count", Zone: "hand:alice", Count: 0}))
	assert.Error(t, applyAssertion(r, Assertion{Type: "zone_count", Zone: "nonesuch", Count: 0}))

	assert.NoError(t, applyAssertion(r, Assertion{Type: "variable", Name: "winner", Value: "alice"}))
	assert.NoError(t, applyAssertion(r, Assertion{Type: "variable", Name: "score", Player: "alice", Value: 7}))
	assert.Error(t, applyAssertion(r, Assertion{Type: "variable", Name: "score", Player: "alice", Value: 8}))
	assert.Error(t, applyAssertion(r, Assertion{Type: "variable", Name: "score", Player: "nonesuch", Value: 7}))
	assert.Error(t, applyAssertion(r, Assertion{Type: "variable", Name: "undeclared", Value: 1}))
}

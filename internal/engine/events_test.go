package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardcore/internal/def"
)

// TestMatchTrigger covers exact, family, and on.-prefixed patterns.
func TestMatchTrigger(t *testing.T) {
	assert.True(t, MatchTrigger("on.move.card", EvMove))
	assert.True(t, MatchTrigger("move.card", EvMove))
	assert.True(t, MatchTrigger("on.move", EvDeal), "family pattern matches sub-kinds")
	assert.True(t, MatchTrigger("on.move", "move"))
	assert.False(t, MatchTrigger("on.move.card", EvDeal))
	assert.False(t, MatchTrigger("on.movement", EvMove), "prefix match is per dot segment")
	assert.False(t, MatchTrigger("on.turn.begin", EvTurnEnd))
}

// TestEventQueue_FIFO verifies dequeue order and emptiness.
func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()
	_, ok := q.TryDequeue()
	assert.False(t, ok)

	q.Enqueue(Event{Tag: "a"})
	q.Enqueue(Event{Tag: "b"})
	q.Enqueue(Event{Tag: "c"})
	assert.Equal(t, 3, q.Len())

	e, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "a", e.Tag)
	e, _ = q.TryDequeue()
	assert.Equal(t, "b", e.Tag)
	e, _ = q.TryDequeue()
	assert.Equal(t, "c", e.Tag)
	_, ok = q.TryDequeue()
	assert.False(t, ok)
}

// TestClock_Monotonic verifies strictly increasing seq and snapshot
// resume.
func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	r := NewClockAt(41)
	assert.Equal(t, int64(42), r.Next())
}

// TestQuotaTracker_OncePerWindows verifies budget consumption and the
// window resets.
func TestQuotaTracker_OncePerWindows(t *testing.T) {
	q := newQuotaTracker(DefaultMaxDepth)
	perTurn := &def.Rule{ID: "t", OncePer: def.OncePerTurn}
	perPhase := &def.Rule{ID: "p", OncePer: def.OncePerPhase}
	perGame := &def.Rule{ID: "g", OncePer: def.OncePerGame}
	unlimited := &def.Rule{ID: "u"}

	for _, r := range []*def.Rule{perTurn, perPhase, perGame} {
		require.True(t, q.allow(r))
		q.noteFiring(r)
		assert.False(t, q.allow(r), "rule %s should be spent", r.ID)
	}
	q.noteFiring(unlimited)
	assert.True(t, q.allow(unlimited))

	q.resetPhase()
	assert.True(t, q.allow(perPhase))
	assert.False(t, q.allow(perTurn))

	q.resetTurn()
	assert.True(t, q.allow(perTurn))
	assert.False(t, q.allow(perGame), "game budgets never reset")
}

// TestQuotaTracker_Depth verifies the cascade bound and its rearm.
func TestQuotaTracker_Depth(t *testing.T) {
	q := newQuotaTracker(3)
	require.NoError(t, q.checkDepth())
	require.NoError(t, q.checkDepth())
	require.NoError(t, q.checkDepth())
	err := q.checkDepth()
	require.Error(t, err)
	assert.True(t, IsDepthExceeded(err))

	q.resetDepth()
	assert.NoError(t, q.checkDepth())
}

// TestScalarize verifies trace values carry stable identifiers, not
// live pointers.
func TestScalarize(t *testing.T) {
	assert.Equal(t, int64(7), scalarize(7))
	assert.Equal(t, "x", scalarize("x"))
	assert.Equal(t, []any{int64(1), "y"}, scalarize([]any{1, "y"}))

	ctx := scalarizeCtx(map[string]any{"turn_index": 2, "phase": "draw"})
	assert.Equal(t, map[string]any{"turn_index": int64(2), "phase": "draw"}, ctx)
	assert.Nil(t, scalarizeCtx(nil))
}

// TestScriptedInput_ExhaustionCancels verifies replay past the script
// cancels the pending input.
func TestScriptedInput_ExhaustionCancels(t *testing.T) {
	s := &ScriptedInput{Choices: []any{"a", "b"}}
	v, err := s.Choose(InputRequest{})
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	v, err = s.Choose(InputRequest{})
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	_, err = s.Choose(InputRequest{})
	assert.ErrorIs(t, err, ErrInputCancelled)
}

// TestRecordingInput_CapturesChoices verifies the record matches what
// the wrapped provider answered.
func TestRecordingInput_CapturesChoices(t *testing.T) {
	rec := &RecordingInput{Provider: &ScriptedInput{Choices: []any{"x", "y"}}}
	_, err := rec.Choose(InputRequest{})
	require.NoError(t, err)
	_, err = rec.Choose(InputRequest{})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, rec.Choices)

	// A nil provider falls back to the first legal option.
	auto := &RecordingInput{}
	v, err := auto.Choose(InputRequest{Options: []any{"only"}})
	require.NoError(t, err)
	assert.Equal(t, "only", v)
}

// TestValidateChoice verifies choices resolve against the legal option
// set, including multiselect.
func TestValidateChoice(t *testing.T) {
	options := []any{"a", "b", "c"}

	v, err := validateChoice(options, "b", false)
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = validateChoice(options, "z", false)
	require.Error(t, err)

	v, err = validateChoice(options, []any{"a", "c"}, true)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "c"}, v)

	_, err = validateChoice(options, "a", true)
	require.Error(t, err, "multiselect requires a list")
}

package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/engine"
	"github.com/roach88/cardcore/internal/state"
	"github.com/roach88/cardcore/internal/testutil"
)

// finishOnTurn appends a rule that resolves the win condition when the
// given turn begins.
func finishOnTurn(d *def.Game, turn int64) {
	done := def.ValueOperand(true)
	d.Rules = append(d.Rules, def.Rule{
		ID:      "call-it",
		Trigger: "on.turn.begin",
		Condition: &def.Expr{Op: def.OpIsEqual, Operands: []def.Operand{
			def.PathOperand("$.event.turn_index"), def.ValueOperand(turn),
		}},
		Effect: []def.Action{{Op: def.ActSetVariable, Name: "done", Value: &done}},
	})
}

func newSession(t *testing.T, d *def.Game, opts ...engine.Option) *engine.Session {
	t.Helper()
	opts = append([]engine.Option{engine.WithLogger(testutil.Logger())}, opts...)
	s, err := engine.NewSession(d, opts...)
	require.NoError(t, err)
	return s
}

func traceTags(s *engine.Session) []string {
	entries := s.Trace().Entries
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Tag
	}
	return out
}

// TestSession_RejectsInvalidDefinition surfaces validation errors before
// any state materializes.
func TestSession_RejectsInvalidDefinition(t *testing.T) {
	d := testutil.RankedDef()
	d.Flow.InitialState = "limbo"
	_, err := engine.NewSession(d, engine.WithLogger(testutil.Logger()))
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.ErrCodeValidation))
}

// TestSession_SetupBoundaryEvents starts with the turn, state, and phase
// boundary events in order.
func TestSession_SetupBoundaryEvents(t *testing.T) {
	s := newSession(t, testutil.RankedDef())
	require.NoError(t, s.Setup())

	tags := traceTags(s)
	require.GreaterOrEqual(t, len(tags), 3)
	assert.Equal(t, []string{engine.EvTurnBegin, engine.EvStateEnter, engine.EvPhaseEnter}, tags[:3])

	g := s.Game()
	assert.Equal(t, "main", g.Flow.State)
	assert.Equal(t, "draw", g.Flow.Phase)
	assert.Equal(t, 1, g.Flow.Turn)
	assert.Equal(t, "alice", g.CurrentPlayer().ID)
}

// TestSession_StepRotatesTurns wraps the phase list into a new turn for
// the next seat.
func TestSession_StepRotatesTurns(t *testing.T) {
	s := newSession(t, testutil.RankedDef())
	require.NoError(t, s.Setup())

	done, err := s.Step()
	require.NoError(t, err)
	require.False(t, done)
	g := s.Game()
	assert.Equal(t, "battle", g.Flow.Phase)
	assert.Equal(t, 1, g.Flow.Turn)

	done, err = s.Step()
	require.NoError(t, err)
	require.False(t, done)
	assert.Equal(t, "draw", g.Flow.Phase)
	assert.Equal(t, 2, g.Flow.Turn)
	assert.Equal(t, "bob", g.CurrentPlayer().ID)
}

// TestSession_SkipAndExtraTurns honors pending skip and extra-turn
// modifiers at rotation.
func TestSession_SkipAndExtraTurns(t *testing.T) {
	s := newSession(t, testutil.RankedDef())
	require.NoError(t, s.Setup())
	g := s.Game()

	g.Flow.SkipNext["bob"] = 1
	for i := 0; i < 2; i++ {
		_, err := s.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, 2, g.Flow.Turn)
	assert.Equal(t, "alice", g.CurrentPlayer().ID, "bob's turn was skipped")
	assert.Equal(t, 0, g.Flow.SkipNext["bob"])

	g.Flow.ExtraTurns["alice"] = 1
	for i := 0; i < 2; i++ {
		_, err := s.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, 3, g.Flow.Turn)
	assert.Equal(t, "alice", g.CurrentPlayer().ID, "extra turn keeps the seat")
}

// TestSession_RunResolvesWin runs until the win condition yields a
// result.
func TestSession_RunResolvesWin(t *testing.T) {
	d := testutil.RankedDef()
	finishOnTurn(d, 3)
	s := newSession(t, d)

	require.NoError(t, s.Run())
	assert.True(t, s.Finished())
	assert.Equal(t, true, s.Result())
	assert.Equal(t, 3, s.Game().Flow.Turn)
	assert.Contains(t, traceTags(s), engine.EvGameEnd)
}

// TestSession_RunTurnBound fails a session whose win condition never
// resolves.
func TestSession_RunTurnBound(t *testing.T) {
	s := newSession(t, testutil.RankedDef(), engine.WithMaxTurns(5))
	err := s.Run()
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.ErrCodeAction))
}

// TestSession_TransitionMovesState fires a transition edge at a
// checkpoint and lands in the halt state.
func TestSession_TransitionMovesState(t *testing.T) {
	d := testutil.RankedDef()
	d.Flow.Win = nil
	d.Flow.Transitions = []def.Transition{{
		ID: "to-end", From: "main", To: "end",
		Condition: &def.Expr{Op: def.OpIsEqual, Operands: []def.Operand{
			def.PathOperand("$.vars.done"), def.ValueOperand(true),
		}},
	}}
	finishOnTurn(d, 2)
	s := newSession(t, d)

	require.NoError(t, s.Run(), "run goes idle in the halt state")
	g := s.Game()
	assert.Equal(t, "end", g.Flow.State)
	assert.False(t, g.Flow.Finished)
	assert.Contains(t, traceTags(s), engine.EvStateExit)

	// The halt state has no phases left to step.
	_, err := s.Step()
	assert.ErrorIs(t, err, engine.ErrAwaitingExternal)
}

// TestSession_TransitionDeclarationOrderWins declares two edges whose
// conditions hold at the same checkpoint; the first declared fires even
// though the second carries a higher priority.
func TestSession_TransitionDeclarationOrderWins(t *testing.T) {
	d := testutil.RankedDef()
	d.Flow.Win = nil
	d.Flow.States = append(d.Flow.States, def.FlowState{Name: "alt", Loop: def.LoopHalt})
	cond := func() *def.Expr {
		return &def.Expr{Op: def.OpIsEqual, Operands: []def.Operand{
			def.PathOperand("$.vars.done"), def.ValueOperand(true),
		}}
	}
	d.Flow.Transitions = []def.Transition{
		{ID: "to-end", From: "main", To: "end", Condition: cond()},
		{ID: "to-alt", From: "main", To: "alt", Priority: 99, Condition: cond()},
	}
	finishOnTurn(d, 2)
	s := newSession(t, d)

	require.NoError(t, s.Run(), "run goes idle in the halt state")
	assert.Equal(t, "end", s.Game().Flow.State)
}

// TestSession_InjectEvent drains an external event's cascade and
// checkpoints afterwards.
func TestSession_InjectEvent(t *testing.T) {
	d := testutil.RankedDef()
	done := def.ValueOperand(true)
	d.Rules = append(d.Rules, def.Rule{
		ID:      "verdict",
		Trigger: "on.judge",
		Effect:  []def.Action{{Op: def.ActSetVariable, Name: "done", Value: &done}},
	})
	s := newSession(t, d)
	require.NoError(t, s.Setup())
	require.False(t, s.Finished())

	require.NoError(t, s.InjectEvent("judge", map[string]any{"verdict": "over"}))
	assert.True(t, s.Finished())
}

// TestSession_SetupActionsRun executes the definition's setup effect
// before the flow starts.
func TestSession_SetupActionsRun(t *testing.T) {
	d := testutil.RankedDef()
	count := def.ValueOperand(int64(3))
	d.Setup = []def.Action{
		{Op: def.ActShuffle, Target: "$.zones.deck"},
		{Op: def.ActDeal, From: "$.zones.deck", To: "hand", Count: &count},
	}
	s := newSession(t, d)
	require.NoError(t, s.Setup())

	g := s.Game()
	assert.Equal(t, 7, g.Zones["deck"].Len())
	assert.Equal(t, 3, g.Player("alice").Zone("hand").Len())
	assert.Equal(t, 3, g.Player("bob").Zone("hand").Len())
	assert.Contains(t, traceTags(s), engine.EvShuffle)
}

// TestSession_DeterministicReplay reproduces an identical trace hash for
// the same seed and diverges for a different one.
func TestSession_DeterministicReplay(t *testing.T) {
	build := func(seed int64) string {
		d := testutil.RankedDef()
		// MOVE_ALL records every card id in shuffled order, so the trace
		// depends on the whole permutation.
		d.Setup = []def.Action{
			{Op: def.ActShuffle, Target: "$.zones.deck"},
			{Op: def.ActMoveAll, From: "$.zones.deck", To: "$.zones.table"},
		}
		finishOnTurn(d, 4)
		s := newSession(t, d, engine.WithSeed(seed))
		require.NoError(t, s.Run())
		h, err := s.TraceHash()
		require.NoError(t, err)
		return h
	}

	assert.Equal(t, build(11), build(11))
	assert.NotEqual(t, build(11), build(12))
}

// TestSession_RunIdlesOnHaltFlow returns cleanly when the flow can only
// advance through injected events.
func TestSession_RunIdlesOnHaltFlow(t *testing.T) {
	s := newSession(t, testutil.TeamDef())
	require.NoError(t, s.Run())
	assert.False(t, s.Finished())
	assert.Equal(t, "idle", s.Game().Flow.State)
}

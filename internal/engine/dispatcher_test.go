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

func setVar(name string, v any) def.Action {
	o := def.ValueOperand(v)
	return def.Action{Op: def.ActSetVariable, Name: name, Value: &o}
}

func newDispatcher(t *testing.T, d *def.Game, maxDepth int) (*state.Game, *engine.Dispatcher) {
	t.Helper()
	g := testutil.MustGame(t, d, 1)
	exec := engine.NewExecutor(nil, testutil.Logger())
	disp := engine.NewDispatcher(g, exec, engine.NewClock(), maxDepth, testutil.Logger())
	return g, disp
}

// TestDispatch_PreThenPost runs pre rules before post rules for one
// event.
func TestDispatch_PreThenPost(t *testing.T) {
	d := testutil.RankedDef()
	d.Rules = []def.Rule{
		{ID: "after", Trigger: "on.flip", Timing: def.TimingPost, Effect: []def.Action{setVar("winner", "post")}},
		{ID: "before", Trigger: "on.flip", Timing: def.TimingPre, Effect: []def.Action{setVar("winner", "pre")}},
	}
	g, disp := newDispatcher(t, d, 0)

	require.NoError(t, disp.Raise(engine.EvFlip, nil))
	require.NoError(t, disp.Drain())
	assert.Equal(t, "post", g.Vars["winner"], "post rule writes last")
}

// TestDispatch_ReplaceSuppressesPost skips every post rule once a
// replace rule fires.
func TestDispatch_ReplaceSuppressesPost(t *testing.T) {
	d := testutil.RankedDef()
	d.Rules = []def.Rule{
		{ID: "swap", Trigger: "on.flip", Timing: def.TimingReplace, Effect: []def.Action{setVar("winner", "replaced")}},
		{ID: "after", Trigger: "on.flip", Effect: []def.Action{setVar("winner", "post")}},
	}
	g, disp := newDispatcher(t, d, 0)

	require.NoError(t, disp.Raise(engine.EvFlip, nil))
	require.NoError(t, disp.Drain())
	assert.Equal(t, "replaced", g.Vars["winner"])
}

// TestDispatch_FirstReplaceWins lets a later replace rule fire only when
// earlier ones decline, and priority orders the contest.
func TestDispatch_FirstReplaceWins(t *testing.T) {
	never := &def.Expr{Op: def.OpIsEqual, Operands: []def.Operand{
		def.PathOperand("$.vars.done"), def.ValueOperand(true),
	}}
	d := testutil.RankedDef()
	d.Rules = []def.Rule{
		{ID: "low", Trigger: "on.flip", Timing: def.TimingReplace, Priority: 1, Effect: []def.Action{setVar("winner", "low")}},
		{ID: "high-but-cold", Trigger: "on.flip", Timing: def.TimingReplace, Priority: 9, Condition: never, Effect: []def.Action{setVar("winner", "high")}},
	}
	g, disp := newDispatcher(t, d, 0)

	require.NoError(t, disp.Raise(engine.EvFlip, nil))
	require.NoError(t, disp.Drain())
	assert.Equal(t, "low", g.Vars["winner"], "a declined replace rule passes to the next")
}

// TestDispatch_OncePerTurnResets consumes a once_per turn budget and
// rearms it at the next turn boundary.
func TestDispatch_OncePerTurnResets(t *testing.T) {
	d := testutil.RankedDef()
	d.Rules = []def.Rule{
		{ID: "tick", Trigger: "on.flip", OncePer: def.OncePerTurn, Effect: []def.Action{
			{Op: def.ActIncrement, Name: "score", Player: "$.players[by_id=alice]"},
		}},
	}
	g, disp := newDispatcher(t, d, 0)

	require.NoError(t, disp.Raise(engine.EvFlip, nil))
	require.NoError(t, disp.Raise(engine.EvFlip, nil))
	require.NoError(t, disp.Drain())
	v, _ := g.StoredVar("score", g.Player("alice"))
	assert.Equal(t, int64(1), v, "budget spent after the first firing")

	require.NoError(t, disp.DispatchNow(engine.EvTurnBegin, nil))
	require.NoError(t, disp.Raise(engine.EvFlip, nil))
	require.NoError(t, disp.Drain())
	v, _ = g.StoredVar("score", g.Player("alice"))
	assert.Equal(t, int64(2), v)
}

// TestDispatch_EnabledWhenIsSilent disables a rule without error when
// the pre-filter is false or fails to evaluate.
func TestDispatch_EnabledWhenIsSilent(t *testing.T) {
	d := testutil.RankedDef()
	d.Rules = []def.Rule{
		{
			ID: "gated", Trigger: "on.flip",
			EnabledWhen: &def.Expr{Op: def.OpIsEqual, Operands: []def.Operand{
				def.PathOperand("$.vars.done"), def.ValueOperand(true),
			}},
			Effect: []def.Action{setVar("winner", "gated")},
		},
		{
			ID: "broken-gate", Trigger: "on.flip",
			EnabledWhen: &def.Expr{Op: def.OpExists, Operands: []def.Operand{
				def.PathOperand("no-such-root"),
			}},
			Effect: []def.Action{setVar("winner", "broken")},
		},
	}
	g, disp := newDispatcher(t, d, 0)

	require.NoError(t, disp.Raise(engine.EvFlip, nil))
	require.NoError(t, disp.Drain())
	_, ok := g.Vars["winner"]
	assert.False(t, ok && g.Vars["winner"] != nil, "neither gated rule fires")
}

// TestDispatch_EventFieldsVisible exposes the triggering event's fields
// at $.event.
func TestDispatch_EventFieldsVisible(t *testing.T) {
	d := testutil.RankedDef()
	d.Rules = []def.Rule{
		{
			ID: "echo", Trigger: "on.turn.begin",
			Condition: &def.Expr{Op: def.OpIsEqual, Operands: []def.Operand{
				def.PathOperand("$.event.turn_index"), def.ValueOperand(int64(3)),
			}},
			Effect: []def.Action{setVar("winner", "turn-three")},
		},
	}
	g, disp := newDispatcher(t, d, 0)

	require.NoError(t, disp.DispatchNow(engine.EvTurnBegin, map[string]any{"turn_index": int64(2)}))
	assert.Nil(t, g.Vars["winner"])
	require.NoError(t, disp.DispatchNow(engine.EvTurnBegin, map[string]any{"turn_index": int64(3)}))
	assert.Equal(t, "turn-three", g.Vars["winner"])
}

// TestDispatch_CascadeDepthBounded terminates a self-sustaining rule
// cascade with a depth error instead of spinning.
func TestDispatch_CascadeDepthBounded(t *testing.T) {
	d := testutil.RankedDef()
	d.Rules = []def.Rule{
		{ID: "echo-chamber", Trigger: "on.variable.set", Effect: []def.Action{setVar("winner", "again")}},
	}
	_, disp := newDispatcher(t, d, 25)

	require.NoError(t, disp.Raise(engine.EvVariableSet, map[string]any{"name": "winner"}))
	err := disp.Drain()
	require.Error(t, err)
	assert.True(t, engine.IsDepthExceeded(err))

	// An externally driven step rearms the quota.
	disp.ResetDepth()
	assert.NoError(t, disp.DispatchNow(engine.EvFlip, nil))
}

// TestDispatch_NonFatalEffectFailureContinues logs a failed effect and
// keeps dispatching the remaining rules.
func TestDispatch_NonFatalEffectFailureContinues(t *testing.T) {
	d := testutil.RankedDef()
	d.Rules = []def.Rule{
		{ID: "doomed", Trigger: "on.flip", Priority: 5, Effect: []def.Action{
			{Op: def.ActMove, From: "$.zones.table", To: "$.zones.discard", Count: intOp(1), Exact: true},
		}},
		{ID: "survivor", Trigger: "on.flip", Effect: []def.Action{setVar("winner", "alive")}},
	}
	g, disp := newDispatcher(t, d, 0)

	require.NoError(t, disp.Raise(engine.EvFlip, nil))
	require.NoError(t, disp.Drain())
	assert.Equal(t, "alive", g.Vars["winner"])
}

// TestDispatch_ObserverSeesDispatchOrder records events in dispatch
// order, cascades after their cause.
func TestDispatch_ObserverSeesDispatchOrder(t *testing.T) {
	d := testutil.RankedDef()
	d.Rules = []def.Rule{
		{ID: "mark", Trigger: "on.flip", OncePer: def.OncePerGame, Effect: []def.Action{setVar("winner", "seen")}},
	}
	_, disp := newDispatcher(t, d, 0)

	var tags []string
	disp.SetObserver(func(ev engine.Event) { tags = append(tags, ev.Tag) })

	require.NoError(t, disp.Raise(engine.EvFlip, nil))
	require.NoError(t, disp.Drain())
	assert.Equal(t, []string{engine.EvFlip, engine.EvVariableSet}, tags)
}

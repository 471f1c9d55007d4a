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

func newExecutor(t *testing.T, input engine.InputProvider) *engine.Executor {
	t.Helper()
	return engine.NewExecutor(input, testutil.Logger())
}

func intOp(n int64) *def.Operand {
	o := def.ValueOperand(n)
	return &o
}

func refOp(name string) *def.Operand {
	o := def.RefOperand(name)
	return &o
}

func ranks(cards []*state.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Rank()
	}
	return out
}

// TestMove_ZoneSourceDefaults moves the single top card by default and
// applies the destination face.
func TestMove_ZoneSourceDefaults(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	v, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActMove, From: "$.zones.deck", To: "$.zones.discard"},
	}, g, nil, "")
	require.NoError(t, err)

	card, ok := v.(*state.Card)
	require.True(t, ok, "a single moved card binds as the card itself")
	assert.Equal(t, "2", card.Rank())
	assert.Equal(t, def.FaceDown, card.Face)
	assert.Equal(t, 12, g.Zones["deck"].Len())
	assert.Equal(t, 1, g.Zones["discard"].Len())
}

// TestMove_FaceOverride applies an explicit face after the destination
// default.
func TestMove_FaceOverride(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	v, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActMove, From: "$.zones.deck", To: "$.zones.table"},
	}, g, nil, "")
	require.NoError(t, err)
	assert.Equal(t, def.FaceUp, v.(*state.Card).Face, "spread zones default face up")

	v, err = x.ExecuteEffect([]def.Action{
		{Op: def.ActMove, From: "$.zones.deck", To: "$.zones.table", Face: def.FaceDown},
	}, g, nil, "")
	require.NoError(t, err)
	assert.Equal(t, def.FaceDown, v.(*state.Card).Face)
}

// TestMove_ExactShortfall fails when fewer eligible cards exist than an
// exact count demands.
func TestMove_ExactShortfall(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	_, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActMove, From: "$.zones.deck", To: "$.zones.discard", Count: intOp(20), Exact: true},
	}, g, nil, "")
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.ErrCodeAction))
	assert.Equal(t, 13, g.Zones["deck"].Len(), "a failed move transfers nothing")
}

// TestMove_Filter restricts the eligible pool with each candidate bound
// as the filter card.
func TestMove_Filter(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	_, err := x.ExecuteEffect([]def.Action{
		{
			Op: def.ActMove, From: "$.zones.deck", To: "$.zones.discard",
			Filter: &def.Expr{Op: def.OpIsEqual, Operands: []def.Operand{
				def.PathOperand("rank($.card)"),
				def.ValueOperand("5"),
			}},
		},
	}, g, nil, "")
	require.NoError(t, err)
	require.Equal(t, 1, g.Zones["discard"].Len())
	assert.Equal(t, "5", g.Zones["discard"].Top().Rank())
}

// TestEffect_AbortDefaultStopsMidEffect fails the second of three
// actions under the default policy: the first action's mutation
// persists, the failed one applies nothing, and the third never runs.
func TestEffect_AbortDefaultStopsMidEffect(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	_, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActMove, From: "$.zones.deck", To: "$.zones.discard", Count: intOp(2)},
		{Op: def.ActMove, From: "$.zones.table", To: "$.zones.discard", Count: intOp(1), Exact: true},
		{Op: def.ActMill, From: "$.zones.deck", To: "$.zones.discard", Count: intOp(5)},
	}, g, nil, def.FailAbort)
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.ErrCodeAction))

	assert.Equal(t, 11, g.Zones["deck"].Len(), "first action stays applied")
	assert.Equal(t, 2, g.Zones["discard"].Len(), "failed and unreached actions apply nothing")
}

// TestEffect_RollbackRestoresState reverts the whole effect when a later
// action fails under the rollback policy.
func TestEffect_RollbackRestoresState(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	_, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActMove, From: "$.zones.deck", To: "$.zones.discard", Count: intOp(3)},
		{Op: def.ActMove, From: "$.zones.table", To: "$.zones.discard", Count: intOp(1), Exact: true},
	}, g, nil, def.FailRollback)
	require.Error(t, err)
	assert.Equal(t, 13, g.Zones["deck"].Len())
	assert.Equal(t, 0, g.Zones["discard"].Len())
}

// TestEffect_ContinuePolicySkipsFailures lets later actions run past a
// non-fatal failure.
func TestEffect_ContinuePolicySkipsFailures(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	_, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActMove, From: "$.zones.table", To: "$.zones.discard", Count: intOp(1), Exact: true},
		{Op: def.ActMove, From: "$.zones.deck", To: "$.zones.discard"},
	}, g, nil, def.FailContinue)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Zones["discard"].Len())
}

// TestEffect_StoreAsBinding threads one action's result into a later
// operand through the binding table.
func TestEffect_StoreAsBinding(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)
	alice := g.Player("alice")

	_, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActSetVariable, Name: "score", Player: "$.players[by_id=alice]", Value: intOp(5), StoreAs: "pts"},
		{Op: def.ActIncrement, Name: "score", Player: "$.players[by_id=alice]", Value: refOp("pts")},
	}, g, nil, "")
	require.NoError(t, err)

	v, ok := g.StoredVar("score", alice)
	require.True(t, ok)
	assert.Equal(t, int64(10), v)
}

// TestDeal_PerRecipientDestination resolves a bare zone name to each
// recipient's own instance.
func TestDeal_PerRecipientDestination(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	v, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActDeal, From: "$.zones.deck", To: "hand", Count: intOp(2)},
	}, g, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
	assert.Equal(t, 9, g.Zones["deck"].Len())
	assert.Equal(t, 2, g.Player("alice").Zone("hand").Len())
	assert.Equal(t, 2, g.Player("bob").Zone("hand").Len())
}

// TestDealRoundRobin_CompleteRoundsOnly stops before a round the source
// cannot cover for every recipient.
func TestDealRoundRobin_CompleteRoundsOnly(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	v, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActDealRoundRobin, From: "$.zones.deck", To: "hand"},
	}, g, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v, "thirteen cards over two seats leaves one undealt")
	assert.Equal(t, 1, g.Zones["deck"].Len())
	assert.Equal(t, 6, g.Player("alice").Zone("hand").Len())
	assert.Equal(t, 6, g.Player("bob").Zone("hand").Len())
}

// TestDealAll_EmptiesSource distributes everything, final round short.
func TestDealAll_EmptiesSource(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	v, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActDealAll, From: "$.zones.deck", To: "hand"},
	}, g, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(13), v)
	assert.Equal(t, 0, g.Zones["deck"].Len())
	assert.Equal(t, 7, g.Player("alice").Zone("hand").Len())
	assert.Equal(t, 6, g.Player("bob").Zone("hand").Len())
}

// TestMill_MovesTopCards transfers the top run in order.
func TestMill_MovesTopCards(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	v, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActMill, From: "$.zones.deck", To: "$.zones.discard", Count: intOp(3)},
	}, g, nil, "")
	require.NoError(t, err)

	moved, ok := v.([]*state.Card)
	require.True(t, ok)
	assert.Equal(t, []string{"2", "3", "4"}, ranks(moved))
	assert.Equal(t, 10, g.Zones["deck"].Len())
	assert.Equal(t, "4", g.Zones["discard"].Top().Rank(), "last milled card sits on top")
}

// TestShuffle_DeterministicBySeed reproduces the same permutation for
// the same seed and the PRNG sequence alone decides the order.
func TestShuffle_DeterministicBySeed(t *testing.T) {
	shuffleRanks := func(seed int64) []string {
		g := testutil.MustGame(t, testutil.RankedDef(), seed)
		x := newExecutor(t, nil)
		_, err := x.ExecuteEffect([]def.Action{
			{Op: def.ActShuffle, Target: "$.zones.deck"},
		}, g, nil, "")
		require.NoError(t, err)
		return ranks(g.Zones["deck"].Cards)
	}

	assert.Equal(t, shuffleRanks(7), shuffleRanks(7))
	assert.NotEqual(t, shuffleRanks(7), shuffleRanks(8))
}

// TestRequestInput_ScriptedChoice resolves a scripted answer against the
// legal option set.
func TestRequestInput_ScriptedChoice(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, &engine.ScriptedInput{Choices: []any{"pass"}})

	options := def.Operand{Kind: def.OperandExpr, Expr: &def.Expr{
		Op:       def.OpList,
		Operands: []def.Operand{def.ValueOperand("draw"), def.ValueOperand("pass")},
	}}
	v, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActRequestInput, Player: "$.players[by_id=alice]", Prompt: "act?", Options: &options},
	}, g, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "pass", v)
}

// TestRequestInput_RejectsIllegalChoice fails the effect when the answer
// is outside the option set.
func TestRequestInput_RejectsIllegalChoice(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, &engine.ScriptedInput{Choices: []any{"cheat"}})

	options := def.Operand{Kind: def.OperandExpr, Expr: &def.Expr{
		Op:       def.OpList,
		Operands: []def.Operand{def.ValueOperand("draw"), def.ValueOperand("pass")},
	}}
	_, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActRequestInput, Player: "$.players[by_id=alice]", Prompt: "act?", Options: &options},
	}, g, nil, "")
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.ErrCodeInput))
}

// TestForEachPlayer_IteratesSeats runs the body once per player with
// that player current.
func TestForEachPlayer_IteratesSeats(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)
	ctx := &state.Context{Player: g.Players[0]}

	_, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActForEachPlayer, Do: []def.Action{
			{Op: def.ActIncrement, Name: "score"},
		}},
	}, g, ctx, "")
	require.NoError(t, err)

	for _, p := range g.Players {
		v, ok := g.StoredVar("score", p)
		require.True(t, ok)
		assert.Equal(t, int64(1), v, "player %s", p.ID)
	}
}

// TestForEach_BindsItem exposes each element as the item binding.
func TestForEach_BindsItem(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)
	ctx := &state.Context{Player: g.Player("alice")}

	over := def.Operand{Kind: def.OperandExpr, Expr: &def.Expr{
		Op: def.OpList,
		Operands: []def.Operand{
			def.ValueOperand(int64(1)), def.ValueOperand(int64(2)), def.ValueOperand(int64(3)),
		},
	}}
	_, err := x.ExecuteEffect([]def.Action{
		{Op: def.ActForEach, Over: &over, Do: []def.Action{
			{Op: def.ActIncrement, Name: "score", Value: refOp("item")},
		}},
	}, g, ctx, "")
	require.NoError(t, err)

	v, _ := g.StoredVar("score", g.Player("alice"))
	assert.Equal(t, int64(6), v)
}

// TestIf_TakesElseBranch runs else when the condition is false.
func TestIf_TakesElseBranch(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	winner := def.ValueOperand("bob")
	_, err := x.ExecuteEffect([]def.Action{
		{
			Op: def.ActIf,
			Condition: &def.Expr{Op: def.OpIsEqual, Operands: []def.Operand{
				def.PathOperand("$.vars.done"), def.ValueOperand(true),
			}},
			Then: []def.Action{{Op: def.ActSetVariable, Name: "winner", Value: intOp(0)}},
			Else: []def.Action{{Op: def.ActSetVariable, Name: "winner", Value: &winner}},
		},
	}, g, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "bob", g.Vars["winner"])
}

// TestParallel_RollbackRevertsAllBranches reverts every branch when one
// fails under rollback.
func TestParallel_RollbackRevertsAllBranches(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	_, err := x.ExecuteEffect([]def.Action{
		{
			Op:        def.ActParallel,
			OnFailure: def.FailRollback,
			Branches: [][]def.Action{
				{{Op: def.ActMove, From: "$.zones.deck", To: "$.zones.discard", Count: intOp(4)}},
				{{Op: def.ActMove, From: "$.zones.table", To: "$.zones.discard", Count: intOp(1), Exact: true}},
			},
		},
	}, g, nil, "")
	require.Error(t, err)
	assert.Equal(t, 13, g.Zones["deck"].Len())
	assert.Equal(t, 0, g.Zones["discard"].Len())
}

// TestDryRun_LeavesModelUntouched probes against a discarded clone.
func TestDryRun_LeavesModelUntouched(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	x := newExecutor(t, nil)

	err := x.DryRun(&def.Action{Op: def.ActMove, From: "$.zones.deck", To: "$.zones.discard"}, g, nil)
	require.NoError(t, err)
	assert.Equal(t, 13, g.Zones["deck"].Len())
	assert.Equal(t, 0, g.Zones["discard"].Len())

	err = x.DryRun(&def.Action{Op: def.ActMove, From: "$.zones.table", To: "$.zones.discard", Count: intOp(1), Exact: true}, g, nil)
	require.Error(t, err)
}

package selector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardcore/internal/selector"
	"github.com/roach88/cardcore/internal/state"
	"github.com/roach88/cardcore/internal/testutil"
)

func resolve(t *testing.T, g *state.Game, ctx *state.Context, sel string) any {
	t.Helper()
	r := &selector.Resolver{}
	v, err := r.Resolve(sel, g, ctx)
	require.NoError(t, err, "selector %q", sel)
	return v
}

func resolveErr(t *testing.T, g *state.Game, ctx *state.Context, sel string) error {
	t.Helper()
	r := &selector.Resolver{}
	_, err := r.Resolve(sel, g, ctx)
	require.Error(t, err, "selector %q", sel)
	return err
}

// TestResolve_PlayerRoots covers the player root and its filters.
func TestResolve_PlayerRoots(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	alice := g.Player("alice")
	ctx := &state.Context{Player: alice}

	players, ok := resolve(t, g, ctx, "$.players").([]*state.Player)
	require.True(t, ok)
	assert.Len(t, players, 2)
	assert.Equal(t, "alice", players[0].ID, "seat order")

	assert.Same(t, alice, resolve(t, g, ctx, "$.players[current]"))
	assert.Same(t, g.Player("bob"), resolve(t, g, ctx, "$.players[opponent]"))
	assert.Same(t, g.Player("bob"), resolve(t, g, ctx, "$.players[by_id=bob]"))
	assert.Same(t, g.Player("bob"), resolve(t, g, ctx, "$.players[1]"))

	assert.Equal(t, "alice", resolve(t, g, ctx, "$.players[current].id"))
	assert.Equal(t, int64(1), resolve(t, g, ctx, "$.players[by_id=bob].seat"))

	err := resolveErr(t, g, &state.Context{}, "$.players[current]")
	assert.True(t, state.IsCode(err, state.ErrCodeLookup))
}

// TestResolve_ZoneRoots covers global zones, per-player zones, and the
// forbidden spellings.
func TestResolve_ZoneRoots(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	ctx := &state.Context{Player: g.Player("alice")}

	assert.Same(t, g.Zones["deck"], resolve(t, g, ctx, "$.zones.deck"))
	assert.Same(t, g.Player("alice").Zone("hand"), resolve(t, g, ctx, "$.players[current].zones.hand"))
	assert.Same(t, g.Zones["deck"].Cards[2], resolve(t, g, ctx, "$.zones.deck[2]"))

	// A per_player zone has no global instance.
	err := resolveErr(t, g, ctx, "$.zones.hand")
	assert.True(t, state.IsCode(err, state.ErrCodeLookup))

	err = resolveErr(t, g, ctx, "$.shared_zones.deck")
	assert.True(t, state.IsCode(err, state.ErrCodeSelector))

	err = resolveErr(t, g, ctx, "zones.deck")
	assert.True(t, state.IsCode(err, state.ErrCodeSelector), "unrooted paths are rejected")
}

// TestResolve_Functions covers the function forms around a path.
func TestResolve_Functions(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	ctx := &state.Context{Player: g.Player("alice")}
	deck := g.Zones["deck"]

	assert.Same(t, deck.Cards[0], resolve(t, g, ctx, "top($.zones.deck)"))
	assert.Same(t, deck.Cards[12], resolve(t, g, ctx, "bottom($.zones.deck)"))
	assert.Equal(t, int64(13), resolve(t, g, ctx, "count($.zones.deck)"))
	assert.Len(t, resolve(t, g, ctx, "all($.zones.deck)").([]*state.Card), 13)

	assert.Equal(t, "2", resolve(t, g, ctx, "rank(top($.zones.deck))"))
	assert.Equal(t, int64(1), resolve(t, g, ctx, "rank_value(top($.zones.deck))"))
	assert.Equal(t, int64(13), resolve(t, g, ctx, "rank_value(bottom($.zones.deck))"))

	err := resolveErr(t, g, ctx, "top($.zones.discard)")
	assert.True(t, state.IsCode(err, state.ErrCodeLookup), "top of an empty zone")

	err = resolveErr(t, g, ctx, "owner(top($.zones.deck))")
	assert.True(t, state.IsCode(err, state.ErrCodeLookup), "owner of a card in a global zone")

	require.NoError(t, g.MoveCard(deck.Top(), g.Player("bob").Zone("hand")))
	assert.Equal(t, "bob", resolve(t, g, ctx, "owner($.players[by_id=bob].zones.hand[0])"))
}

// TestResolve_Variables covers stored and computed variable reads.
func TestResolve_Variables(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	ctx := &state.Context{Player: g.Player("alice")}
	require.NoError(t, g.SetVar("score", g.Player("bob"), int64(4)))

	assert.Equal(t, false, resolve(t, g, ctx, "$.vars.done"))
	assert.Equal(t, int64(4), resolve(t, g, ctx, "$.players[by_id=bob].vars.score"))
	assert.Equal(t, int64(0), resolve(t, g, ctx, "$.players[current].vars.score"))

	err := resolveErr(t, g, ctx, "$.vars.nonesuch")
	assert.True(t, state.IsCode(err, state.ErrCodeLookup))
}

// TestResolve_Bindings covers $player, ref: substitution, and the event
// root.
func TestResolve_Bindings(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	bob := g.Player("bob")
	env := state.NewEnv()
	env.Bind("$player", bob)
	env.Bind("who", "bob")
	ctx := &state.Context{
		Player: g.Player("alice"),
		Env:    env,
		Event:  map[string]any{"turn_index": int64(3)},
	}

	assert.Same(t, bob, resolve(t, g, ctx, "$player"), "binding shadows the current player")
	assert.Same(t, bob.Zone("hand"), resolve(t, g, ctx, "$.players[by_id=ref:who].zones.hand"))
	assert.Equal(t, int64(3), resolve(t, g, ctx, "$.event.turn_index"))

	err := resolveErr(t, g, ctx, "$.players[by_id=ref:missing]")
	assert.True(t, state.IsCode(err, state.ErrCodeBinding))

	err = resolveErr(t, g, ctx, "$.event.card")
	assert.True(t, state.IsCode(err, state.ErrCodeLookup))
}

// TestResolve_CardBinding covers the $.card filter binding.
func TestResolve_CardBinding(t *testing.T) {
	g := testutil.MustGame(t, testutil.RankedDef(), 1)
	c := g.Zones["deck"].Cards[5]

	assert.Same(t, c, resolve(t, g, &state.Context{Card: c}, "$.card"))

	err := resolveErr(t, g, &state.Context{}, "$.card")
	assert.True(t, state.IsCode(err, state.ErrCodeLookup))
}

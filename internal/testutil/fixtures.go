package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/state"
)

// Ranks is the rank hierarchy of the test deck, lowest first.
var Ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// RankedDef builds a two-player definition over a thirteen-card ranked
// deck: one card per rank, dealt nowhere until setup or a test moves
// them. Callers may append rules, setup actions, or transitions before
// building a session; the returned value is theirs to mutate.
//
// Zones: deck, discard (ordered piles), table (face-up, reorderable),
// and a per-player hand. Variables: global winner and done, per-player
// score. The flow loops draw/battle in state main; the win condition
// resolves once a rule sets done to true.
func RankedDef() *def.Game {
	comp := make([]def.CardTemplate, 0, len(Ranks))
	for _, r := range Ranks {
		comp = append(comp, def.CardTemplate{Props: map[string]def.Scalar{"rank": r}})
	}

	return &def.Game{
		Meta: def.Meta{
			Name: "ranked-duel",
			RNG:  def.RNGSpec{Deterministic: true, Seed: 1},
		},
		DeckTypes: []def.DeckType{{
			Name:          "ranked",
			Composition:   comp,
			RankHierarchy: append([]string(nil), Ranks...),
		}},
		ZoneTypes: []def.ZoneType{
			{Name: "pile", Ordering: def.OrderingLIFO, Visibility: def.VisibilityNone, DefaultFace: def.FaceDown},
			{Name: "spread", Ordering: def.OrderingFIFO, Visibility: def.VisibilityAll, DefaultFace: def.FaceUp, AllowsReorder: true},
			{Name: "handtype", Ordering: def.OrderingUnordered, Visibility: def.VisibilityOwner, DefaultFace: def.FaceDown},
		},
		Decks: []def.DeckSpec{{Name: "draw", Type: "ranked", Into: "deck"}},
		Zones: []def.ZoneSpec{
			{Name: "deck", Type: "pile", OfDeck: "ranked"},
			{Name: "discard", Type: "pile"},
			{Name: "table", Type: "spread", OfDeck: "ranked"},
			{Name: "hand", Type: "handtype", Scope: def.ScopePerPlayer},
		},
		Players: []def.PlayerSpec{{ID: "alice"}, {ID: "bob"}},
		Variables: []def.VariableDecl{
			{Name: "winner"},
			{Name: "done", Initial: false},
			{Name: "score", Scope: def.ScopePerPlayer, Initial: int64(0)},
		},
		Flow: def.Flow{
			InitialState: "main",
			States: []def.FlowState{
				{Name: "main", Phases: []def.Phase{{Name: "draw"}, {Name: "battle"}}, Loop: def.LoopCycle},
				{Name: "end", Loop: def.LoopHalt},
			},
			Win: &def.WinCondition{
				Evaluator: &def.Expr{Op: def.OpIsEqual, Operands: []def.Operand{
					def.PathOperand("$.vars.done"),
					def.ValueOperand(true),
				}},
			},
		},
	}
}

// TeamDef builds a four-player, two-team definition for team-scoped
// zone and variable tests. The single halt state keeps the flow idle so
// tests drive the model directly.
func TeamDef() *def.Game {
	return &def.Game{
		Meta: def.Meta{Name: "team-duel", RNG: def.RNGSpec{Deterministic: true, Seed: 1}},
		DeckTypes: []def.DeckType{{
			Name: "plain",
			Composition: []def.CardTemplate{
				{Count: 4, Props: map[string]def.Scalar{"kind": "stone"}},
			},
		}},
		ZoneTypes: []def.ZoneType{
			{Name: "pile", Ordering: def.OrderingLIFO, Visibility: def.VisibilityNone, DefaultFace: def.FaceDown},
		},
		Decks: []def.DeckSpec{{Name: "stones", Type: "plain", Into: "supply"}},
		Zones: []def.ZoneSpec{
			{Name: "supply", Type: "pile"},
			{Name: "reserve", Type: "pile", Scope: def.ScopePerTeam},
		},
		Players: []def.PlayerSpec{
			{ID: "p1", Team: "red"}, {ID: "p2", Team: "blue"},
			{ID: "p3", Team: "red"}, {ID: "p4", Team: "blue"},
		},
		Variables: []def.VariableDecl{
			{Name: "banner", Scope: def.ScopePerTeam, Initial: ""},
		},
		Flow: def.Flow{
			InitialState: "idle",
			States:       []def.FlowState{{Name: "idle", Loop: def.LoopHalt}},
		},
	}
}

// MustGame materializes a model from a definition, failing the test on
// error.
func MustGame(t *testing.T, d *def.Game, seed int64) *state.Game {
	t.Helper()
	g, err := state.NewGame(d, seed)
	if err != nil {
		t.Fatalf("materialize %s: %v", d.Meta.Name, err)
	}
	return g
}

// Logger returns a structured logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

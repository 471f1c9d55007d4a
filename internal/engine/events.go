package engine

import (
	"strings"

	"github.com/roach88/cardcore/internal/state"
)

// Event tags. Dotted tags form families: a trigger on the family name
// matches every sub-kind ("on.move" matches "move.deal").
const (
	EvStateEnter = "state.enter"
	EvStateExit  = "state.exit"
	EvPhaseEnter = "phase.enter"
	EvPhaseExit  = "phase.exit"
	EvTurnBegin  = "turn.begin"
	EvTurnEnd    = "turn.end"

	EvMove           = "move.card"
	EvMoveAll        = "move.all"
	EvDeal           = "move.deal"
	EvDealRoundRobin = "move.deal_round_robin"
	EvDealAll        = "move.deal_all"
	EvMill           = "move.mill"

	EvReveal  = "reveal"
	EvConceal = "conceal"
	EvFlip    = "flip"
	EvPeek    = "peek"

	EvShuffle      = "shuffle"
	EvReorder      = "reorder"
	EvChooseRandom = "choose_random"
	EvSearch       = "search"

	EvVariableSet = "variable.set"

	EvInputRequested = "input.requested"
	EvInputResolved  = "input.resolved"

	EvGameEnd = "game.end"
)

// Event is an ephemeral record: a tag plus a context of typed fields
// specific to the tag (card, player, zone, from, to, phase, state,
// turn_index). Produced by the executor and flow controller, consumed by
// the dispatcher, never persisted - the trace stores a scalarized copy.
type Event struct {
	Tag string
	Seq int64
	Ctx map[string]any
}

// MatchTrigger reports whether a rule trigger pattern matches an event
// tag. Patterns may carry an "on." prefix; a pattern naming a family
// matches the family itself and every dotted sub-kind.
func MatchTrigger(pattern, tag string) bool {
	pattern = strings.TrimPrefix(pattern, "on.")
	if pattern == tag {
		return true
	}
	return strings.HasPrefix(tag, pattern+".")
}

// scalarize converts a live value into its trace form: cards, players,
// and zones become their stable identifiers.
func scalarize(v any) any {
	switch x := v.(type) {
	case *state.Card:
		return x.ID
	case *state.Player:
		return x.ID
	case *state.Zone:
		return x.Key
	case []*state.Card:
		out := make([]any, len(x))
		for i, c := range x {
			out[i] = c.ID
		}
		return out
	case []*state.Player:
		out := make([]any, len(x))
		for i, p := range x {
			out[i] = p.ID
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = scalarize(e)
		}
		return out
	case int:
		return int64(x)
	default:
		return v
	}
}

// scalarizeCtx converts an event context for trace recording.
func scalarizeCtx(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = scalarize(v)
	}
	return out
}

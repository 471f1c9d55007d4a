package expr

import (
	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/selector"
	"github.com/roach88/cardcore/internal/state"
)

// evalRankValue resolves a rank symbol or a card to its numeric ordinal
// through the originating deck type's rank hierarchy. Ordinals are
// 1-based.
//
// A card carries its own deck type. A bare rank literal needs a deck
// context: either an explicit second operand resolving to a zone with an
// of_deck association, or - when the definition declares exactly one
// ranked deck type - that sole deck type. Anything else is ambiguous.
func (e *Evaluator) evalRankValue(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if len(x.Operands) < 1 || len(x.Operands) > 2 {
		return nil, state.Errorf(state.ErrCodeValidation, "rank_value takes a card or rank symbol, plus an optional zone")
	}
	v, err := e.Operand(x.Operands[0], g, ctx)
	if err != nil {
		return nil, err
	}

	if c, ok := v.(*state.Card); ok {
		return selector.CardRankValue(c, g)
	}

	symbol, ok := v.(string)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "rank_value requires a card or rank symbol, got %T", v)
	}

	dt, err := e.rankDeckContext(x, g, ctx)
	if err != nil {
		return nil, err
	}
	ord, ok := dt.RankValue(symbol)
	if !ok {
		return nil, state.Errorf(state.ErrCodeLookup, "rank %q not in hierarchy of deck type %s", symbol, dt.Name)
	}
	return ord, nil
}

func (e *Evaluator) rankDeckContext(x *def.Expr, g *state.Game, ctx *state.Context) (*def.DeckType, error) {
	if len(x.Operands) == 2 {
		zv, err := e.Operand(x.Operands[1], g, ctx)
		if err != nil {
			return nil, err
		}
		z, ok := zv.(*state.Zone)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "rank_value deck context must be a zone, got %T", zv)
		}
		name := z.DeckContext()
		if name == "" {
			return nil, state.Errorf(state.ErrCodeAmbiguousDeck, "zone %s has no of_deck association", z.Key)
		}
		dt := g.Def.DeckType(name)
		if dt == nil {
			return nil, state.Errorf(state.ErrCodeAmbiguousDeck, "zone %s references unknown deck type %q", z.Key, name)
		}
		return dt, nil
	}

	var sole *def.DeckType
	for i := range g.Def.DeckTypes {
		dt := &g.Def.DeckTypes[i]
		if len(dt.RankHierarchy) == 0 {
			continue
		}
		if sole != nil {
			return nil, state.Errorf(state.ErrCodeAmbiguousDeck,
				"bare rank symbol is ambiguous between deck types %s and %s", sole.Name, dt.Name)
		}
		sole = dt
	}
	if sole == nil {
		return nil, state.Errorf(state.ErrCodeAmbiguousDeck, "no ranked deck type in definition")
	}
	return sole, nil
}

// evalCanPerform dry-runs an action against a discarded clone and reports
// whether it would have succeeded. Fatal invariant errors still propagate.
func (e *Evaluator) evalCanPerform(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if err := e.exactOperands(x, 1); err != nil {
		return nil, err
	}
	op := x.Operands[0]
	if op.Kind != def.OperandAction || op.Action == nil {
		return nil, state.Errorf(state.ErrCodeValidation, "canPerform requires an action operand")
	}
	if e.Runner == nil {
		return nil, state.Errorf(state.ErrCodeValidation, "canPerform is not available in this evaluation context")
	}
	err := e.Runner.DryRun(op.Action, g, ctx)
	if err != nil {
		if state.IsFatal(err) {
			return nil, err
		}
		return false, nil
	}
	return true, nil
}

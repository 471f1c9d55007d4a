package expr

import (
	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/state"
)

// Groups is the result of group_by: a mapping from key to ordered
// sub-sequence, in first-seen key order.
type Groups struct {
	Keys    []any
	Members [][]any
}

// Len returns the number of groups.
func (g *Groups) Len() int { return len(g.Keys) }

// Group returns the members for a key, or nil.
func (g *Groups) Group(key any) []any {
	for i, k := range g.Keys {
		if equalValues(k, key) {
			return g.Members[i]
		}
	}
	return nil
}

// ToSeq coerces a resolved value into a sequence. Zones coerce to
// their ordered card list. Loop constructs share this coercion with
// the aggregation operators.
func ToSeq(v any) ([]any, bool) { return toSeq(v) }

// toSeq coerces a resolved value into a sequence for aggregation. Zones
// coerce to their ordered card list.
func toSeq(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []*state.Card:
		out := make([]any, len(x))
		for i, c := range x {
			out[i] = c
		}
		return out, true
	case []*state.Player:
		out := make([]any, len(x))
		for i, p := range x {
			out[i] = p
		}
		return out, true
	case []*state.Zone:
		out := make([]any, len(x))
		for i, z := range x {
			out[i] = z
		}
		return out, true
	case *state.Zone:
		out := make([]any, len(x.Cards))
		for i, c := range x.Cards {
			out[i] = c
		}
		return out, true
	default:
		return nil, false
	}
}

// seqOperand resolves an aggregation's single operand to a sequence.
// Aggregations take exactly one operand; a bare multi-operand sequence
// where list is required is a validation error.
func (e *Evaluator) seqOperand(x *def.Expr, g *state.Game, ctx *state.Context) ([]any, error) {
	if len(x.Operands) != 1 {
		return nil, state.Errorf(state.ErrCodeValidation,
			"operator %q takes one sequence operand; construct multi-element operands with list", x.Op)
	}
	v, err := e.Operand(x.Operands[0], g, ctx)
	if err != nil {
		return nil, err
	}
	seq, ok := toSeq(v)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "operator %q requires a sequence, got %T", x.Op, v)
	}
	return seq, nil
}

// evalList constructs the only legal multi-element operand.
func (e *Evaluator) evalList(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	out := make([]any, 0, len(x.Operands))
	for _, o := range x.Operands {
		v, err := e.Operand(o, g, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Evaluator) evalAnyAll(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	seq, err := e.seqOperand(x, g, ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range seq {
		b, ok := v.(bool)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "operator %q requires booleans, got %T", x.Op, v)
		}
		if x.Op == def.OpAny && b {
			return true, nil
		}
		if x.Op == def.OpAll && !b {
			return false, nil
		}
	}
	return x.Op == def.OpAll, nil
}

func (e *Evaluator) evalCount(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if len(x.Operands) != 1 {
		return nil, state.Errorf(state.ErrCodeValidation, "operator %q takes one operand", x.Op)
	}
	v, err := e.Operand(x.Operands[0], g, ctx)
	if err != nil {
		return nil, err
	}
	if gr, ok := v.(*Groups); ok {
		return int64(gr.Len()), nil
	}
	if s, ok := v.(string); ok && x.Op == def.OpLen {
		return int64(len(s)), nil
	}
	seq, ok := toSeq(v)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "operator %q requires a sequence, got %T", x.Op, v)
	}
	return int64(len(seq)), nil
}

func (e *Evaluator) evalMaxMin(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	seq, err := e.seqOperand(x, g, ctx)
	if err != nil {
		return nil, err
	}
	if len(seq) == 0 {
		return nil, state.Errorf(state.ErrCodeLookup, "operator %q over an empty sequence", x.Op)
	}
	best, ok := seq[0].(int64)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "operator %q requires numbers, got %T", x.Op, seq[0])
	}
	for _, v := range seq[1:] {
		n, ok := v.(int64)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "operator %q requires numbers, got %T", x.Op, v)
		}
		if (x.Op == def.OpMax && n > best) || (x.Op == def.OpMin && n < best) {
			best = n
		}
	}
	return best, nil
}

func (e *Evaluator) evalMembership(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if err := e.exactOperands(x, 2); err != nil {
		return nil, err
	}
	// contains: [sequence, item]; in: [item, sequence].
	seqIdx, itemIdx := 0, 1
	if x.Op == def.OpIn {
		seqIdx, itemIdx = 1, 0
	}
	sv, err := e.Operand(x.Operands[seqIdx], g, ctx)
	if err != nil {
		return nil, err
	}
	item, err := e.Operand(x.Operands[itemIdx], g, ctx)
	if err != nil {
		return nil, err
	}
	seq, ok := toSeq(sv)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "operator %q requires a sequence, got %T", x.Op, sv)
	}
	for _, v := range seq {
		if equalValues(v, item) {
			return true, nil
		}
	}
	return false, nil
}

// evalExists is a feasibility probe: lookup failures resolve to false,
// every other error propagates.
func (e *Evaluator) evalExists(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if err := e.exactOperands(x, 1); err != nil {
		return nil, err
	}
	v, err := e.Operand(x.Operands[0], g, ctx)
	if err != nil {
		if state.IsCode(err, state.ErrCodeLookup) {
			return false, nil
		}
		return nil, err
	}
	if v == nil {
		return false, nil
	}
	if seq, ok := toSeq(v); ok {
		return len(seq) > 0, nil
	}
	return true, nil
}

// evalDistinct deduplicates by deep value equality for scalars and by full
// property-set identity for cards, preserving first-occurrence order.
func (e *Evaluator) evalDistinct(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	seq, err := e.seqOperand(x, g, ctx)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, v := range seq {
		dup := false
		for _, seen := range out {
			if equalValues(seen, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

// evalGroupBy partitions a sequence by a key expression evaluated once per
// item, the item bound as the per-item context.
func (e *Evaluator) evalGroupBy(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if err := e.exactOperands(x, 2); err != nil {
		return nil, err
	}
	sv, err := e.Operand(x.Operands[0], g, ctx)
	if err != nil {
		return nil, err
	}
	seq, ok := toSeq(sv)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "group_by requires a sequence, got %T", sv)
	}
	if x.Operands[1].Kind != def.OperandExpr {
		return nil, state.Errorf(state.ErrCodeValidation, "group_by key must be an expression")
	}
	keyExpr := x.Operands[1].Expr

	groups := &Groups{}
	for _, item := range seq {
		base := ctx
		if base == nil {
			base = &state.Context{}
		}
		env := state.NewEnv()
		if base.Env != nil {
			env = base.Env.Child()
		}
		env.Bind("item", item)
		ictx := base.WithEnv(env)
		if c, ok := item.(*state.Card); ok {
			ictx = ictx.WithCard(c)
		}
		key, err := e.Eval(keyExpr, g, ictx)
		if err != nil {
			return nil, err
		}
		placed := false
		for i, k := range groups.Keys {
			if equalValues(k, key) {
				groups.Members[i] = append(groups.Members[i], item)
				placed = true
				break
			}
		}
		if !placed {
			groups.Keys = append(groups.Keys, key)
			groups.Members = append(groups.Members, []any{item})
		}
	}
	return groups, nil
}

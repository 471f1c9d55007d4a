package expr

import (
	"reflect"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/selector"
	"github.com/roach88/cardcore/internal/state"
)

// DryRunner validates an action's preconditions against a discarded clone
// of the State Model. The action executor implements it; wiring it through
// an interface keeps this package free of the executor's machinery.
type DryRunner interface {
	DryRun(a *def.Action, g *state.Game, ctx *state.Context) error
}

// Evaluator evaluates operator trees. Construct one per session and share
// it; it holds no per-evaluation state.
type Evaluator struct {
	Resolver *selector.Resolver

	// Runner backs canPerform. When nil, canPerform nodes fail with a
	// validation error instead of silently passing.
	Runner DryRunner
}

// New builds an evaluator and wires computed-variable reads back through
// itself so that selectors can resolve computed variables.
func New(runner DryRunner) *Evaluator {
	e := &Evaluator{Resolver: &selector.Resolver{}, Runner: runner}
	e.Resolver.Computed = e.Eval
	return e
}

// Eval evaluates a node to a typed value.
func (e *Evaluator) Eval(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if x == nil {
		return nil, state.Errorf(state.ErrCodeValidation, "nil expression")
	}
	switch x.Op {
	case def.OpIsEqual:
		return e.evalIsEqual(x, g, ctx)
	case def.OpIsGreaterThan, def.OpIsLessThan:
		return e.evalOrdered(x, g, ctx)
	case def.OpNot:
		return e.evalNot(x, g, ctx)
	case def.OpAnd, def.OpOr:
		return e.evalBoolChain(x, g, ctx)

	case def.OpList:
		return e.evalList(x, g, ctx)
	case def.OpAny, def.OpAll:
		return e.evalAnyAll(x, g, ctx)
	case def.OpCount, def.OpLen:
		return e.evalCount(x, g, ctx)
	case def.OpMax, def.OpMin:
		return e.evalMaxMin(x, g, ctx)
	case def.OpContains, def.OpIn:
		return e.evalMembership(x, g, ctx)
	case def.OpExists:
		return e.evalExists(x, g, ctx)
	case def.OpDistinct:
		return e.evalDistinct(x, g, ctx)
	case def.OpGroupBy:
		return e.evalGroupBy(x, g, ctx)

	case def.OpAdd, def.OpSub, def.OpMul, def.OpDiv, def.OpMod:
		return e.evalArith(x, g, ctx)
	case def.OpSum, def.OpAvg:
		return e.evalFold(x, g, ctx)

	case def.OpRankValue:
		return e.evalRankValue(x, g, ctx)
	case def.OpCanPerform:
		return e.evalCanPerform(x, g, ctx)

	default:
		return nil, state.Errorf(state.ErrCodeValidation, "unknown operator %q", x.Op)
	}
}

// EvalBool evaluates a node and requires a boolean result.
func (e *Evaluator) EvalBool(x *def.Expr, g *state.Game, ctx *state.Context) (bool, error) {
	v, err := e.Eval(x, g, ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, state.Errorf(state.ErrCodeType, "operator %q: expected boolean, got %T", x.Op, v)
	}
	return b, nil
}

// Operand resolves one operand to a value.
func (e *Evaluator) Operand(o def.Operand, g *state.Game, ctx *state.Context) (any, error) {
	switch o.Kind {
	case def.OperandValue:
		return o.Value, nil
	case def.OperandPath:
		return e.Resolver.Resolve(o.Path, g, ctx)
	case def.OperandRef:
		if ctx == nil || ctx.Env == nil {
			return nil, state.Errorf(state.ErrCodeBinding, "ref %q with no bindings in scope", o.Ref)
		}
		v, ok := ctx.Env.Lookup(o.Ref)
		if !ok {
			return nil, state.Errorf(state.ErrCodeBinding, "unknown binding %q", o.Ref)
		}
		return v, nil
	case def.OperandExpr:
		return e.Eval(o.Expr, g, ctx)
	case def.OperandAction:
		return nil, state.Errorf(state.ErrCodeValidation, "action operand is only valid under canPerform")
	default:
		return nil, state.Errorf(state.ErrCodeValidation, "malformed operand")
	}
}

func (e *Evaluator) exactOperands(x *def.Expr, n int) error {
	if len(x.Operands) != n {
		return state.Errorf(state.ErrCodeValidation, "operator %q requires %d operands, got %d", x.Op, n, len(x.Operands))
	}
	return nil
}

func (e *Evaluator) evalIsEqual(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if err := e.exactOperands(x, 2); err != nil {
		return nil, err
	}
	a, err := e.Operand(x.Operands[0], g, ctx)
	if err != nil {
		return nil, err
	}
	b, err := e.Operand(x.Operands[1], g, ctx)
	if err != nil {
		return nil, err
	}
	return equalValues(a, b), nil
}

// evalOrdered implements isGreaterThan / isLessThan. Both operands must
// resolve to the same comparable kind - a number, or a rank via an
// explicit rank_value node. Direct string comparison of rank symbols is a
// type error, never a silent lexicographic result.
func (e *Evaluator) evalOrdered(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if err := e.exactOperands(x, 2); err != nil {
		return nil, err
	}
	a, err := e.Operand(x.Operands[0], g, ctx)
	if err != nil {
		return nil, err
	}
	b, err := e.Operand(x.Operands[1], g, ctx)
	if err != nil {
		return nil, err
	}
	na, aok := a.(int64)
	nb, bok := b.(int64)
	if !aok || !bok {
		return nil, state.Errorf(state.ErrCodeType,
			"operator %q requires numeric operands (route rank symbols through rank_value), got %T and %T", x.Op, a, b)
	}
	if x.Op == def.OpIsGreaterThan {
		return na > nb, nil
	}
	return na < nb, nil
}

func (e *Evaluator) evalNot(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if err := e.exactOperands(x, 1); err != nil {
		return nil, err
	}
	v, err := e.Operand(x.Operands[0], g, ctx)
	if err != nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "not requires a boolean operand, got %T", v)
	}
	return !b, nil
}

// evalBoolChain implements and/or with standard short-circuit semantics.
func (e *Evaluator) evalBoolChain(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	if len(x.Operands) == 0 {
		return nil, state.Errorf(state.ErrCodeValidation, "operator %q requires at least one operand", x.Op)
	}
	for _, o := range x.Operands {
		v, err := e.Operand(o, g, ctx)
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "operator %q requires boolean operands, got %T", x.Op, v)
		}
		if x.Op == def.OpAnd && !b {
			return false, nil
		}
		if x.Op == def.OpOr && b {
			return true, nil
		}
	}
	return x.Op == def.OpAnd, nil
}

// equalValues compares two resolved values: scalars by value, cards by
// full property-set identity, players and zones by id, sequences and
// groupings element-wise. Mismatched kinds compare unequal.
func equalValues(a, b any) bool {
	switch av := a.(type) {
	case *state.Card:
		bv, ok := b.(*state.Card)
		return ok && (av == bv || av.SameIdentity(bv))
	case *state.Player:
		bv, ok := b.(*state.Player)
		return ok && av.ID == bv.ID
	case *state.Zone:
		bv, ok := b.(*state.Zone)
		return ok && av.Key == bv.Key
	}
	if sa, ok := toSeq(a); ok {
		sb, ok := toSeq(b)
		if !ok || len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !equalValues(sa[i], sb[i]) {
				return false
			}
		}
		return true
	}
	if ma, ok := a.(map[string]any); ok {
		mb, ok := b.(map[string]any)
		if !ok || len(ma) != len(mb) {
			return false
		}
		for k, v := range ma {
			w, present := mb[k]
			if !present || !equalValues(v, w) {
				return false
			}
		}
		return true
	}
	// Remaining model values are scalars; anything uncomparable on the
	// right side is a kind mismatch, never a panic.
	if _, ok := toSeq(b); ok {
		return false
	}
	if _, ok := b.(map[string]any); ok {
		return false
	}
	if a != nil && !reflect.TypeOf(a).Comparable() {
		return false
	}
	if b != nil && !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

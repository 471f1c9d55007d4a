package expr

import (
	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/state"
)

// Math is integer-only: int64 operands, integer division. Division or
// modulo by zero fails with an arithmetic error, never infinity or NaN
// propagation.

func (e *Evaluator) numOperand(x *def.Expr, i int, g *state.Game, ctx *state.Context) (int64, error) {
	v, err := e.Operand(x.Operands[i], g, ctx)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, state.Errorf(state.ErrCodeType, "operator %q requires numeric operands, got %T", x.Op, v)
	}
	return n, nil
}

func (e *Evaluator) evalArith(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	switch x.Op {
	case def.OpAdd, def.OpMul:
		if len(x.Operands) < 2 {
			return nil, state.Errorf(state.ErrCodeValidation, "operator %q requires at least two operands", x.Op)
		}
		acc, err := e.numOperand(x, 0, g, ctx)
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(x.Operands); i++ {
			n, err := e.numOperand(x, i, g, ctx)
			if err != nil {
				return nil, err
			}
			if x.Op == def.OpAdd {
				acc += n
			} else {
				acc *= n
			}
		}
		return acc, nil

	case def.OpSub, def.OpDiv, def.OpMod:
		if err := e.exactOperands(x, 2); err != nil {
			return nil, err
		}
		a, err := e.numOperand(x, 0, g, ctx)
		if err != nil {
			return nil, err
		}
		b, err := e.numOperand(x, 1, g, ctx)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case def.OpSub:
			return a - b, nil
		case def.OpDiv:
			if b == 0 {
				return nil, state.Errorf(state.ErrCodeArithmetic, "division by zero")
			}
			return a / b, nil
		default:
			if b == 0 {
				return nil, state.Errorf(state.ErrCodeArithmetic, "modulo by zero")
			}
			return a % b, nil
		}
	}
	return nil, state.Errorf(state.ErrCodeValidation, "not an arithmetic operator: %q", x.Op)
}

func (e *Evaluator) evalFold(x *def.Expr, g *state.Game, ctx *state.Context) (any, error) {
	seq, err := e.seqOperand(x, g, ctx)
	if err != nil {
		return nil, err
	}
	var sum int64
	for _, v := range seq {
		n, ok := v.(int64)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "operator %q requires numbers, got %T", x.Op, v)
		}
		sum += n
	}
	if x.Op == def.OpSum {
		return sum, nil
	}
	if len(seq) == 0 {
		return nil, state.Errorf(state.ErrCodeArithmetic, "avg over an empty sequence")
	}
	return sum / int64(len(seq)), nil
}

package engine

import (
	"errors"
	"log/slog"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/expr"
	"github.com/roach88/cardcore/internal/state"
)

// emitFunc publishes an event. The queuing variant never fails; the
// synchronous variant surfaces fatal dispatch errors.
type emitFunc func(tag string, fields map[string]any) error

// Executor runs effects: ordered action lists with store_as bindings and a
// failure policy. It owns the action vocabulary; all model mutation flows
// through it and the model's gateway methods.
//
// Emitted events are queued for breadth-first dispatch after the current
// effect completes, except state and phase boundary events raised by
// SET_STATE / SET_PHASE, which dispatch synchronously through interject.
type Executor struct {
	eval  *expr.Evaluator
	input InputProvider
	log   *slog.Logger

	emit      emitFunc
	interject emitFunc

	// dry marks a probe executor: events vanish and input auto-resolves.
	dry bool
}

// NewExecutor builds an executor. Emitted events are discarded until the
// session wires the dispatcher hooks via SetHooks.
func NewExecutor(input InputProvider, log *slog.Logger) *Executor {
	if input == nil {
		input = autoInput{}
	}
	if log == nil {
		log = slog.Default()
	}
	x := &Executor{input: input, log: log}
	x.eval = expr.New(x)
	x.emit = discardEvent
	x.interject = discardEvent
	return x
}

func discardEvent(string, map[string]any) error { return nil }

// SetHooks wires event publication: emit queues, interject dispatches
// synchronously.
func (x *Executor) SetHooks(emit, interject emitFunc) {
	x.emit = emit
	x.interject = interject
}

// Eval exposes the executor's evaluator for conditions and transitions.
func (x *Executor) Eval() *expr.Evaluator { return x.eval }

// DryRun validates an action against a discarded clone of the model. It
// backs canPerform: the clone absorbs all mutations, events are
// discarded, and pending input auto-resolves to the first legal option.
func (x *Executor) DryRun(a *def.Action, g *state.Game, ctx *state.Context) error {
	clone := g.Clone()
	probe := &Executor{input: autoInput{}, log: x.log, dry: true}
	probe.eval = expr.New(probe)
	probe.emit = discardEvent
	probe.interject = discardEvent
	pctx := clone.Remap(ctx)
	if pctx == nil {
		pctx = &state.Context{}
	}
	if pctx.Env == nil {
		pctx = pctx.WithEnv(state.NewEnv())
	}
	_, err := probe.executeAction(a, clone, pctx, def.FailAbort)
	return err
}

// ExecuteEffect runs one effect: a fresh binding frame, sequential
// actions, and the given failure policy. Under rollback the model is
// restored to its pre-effect image when any action fails.
func (x *Executor) ExecuteEffect(effect []def.Action, g *state.Game, ctx *state.Context, policy string) (any, error) {
	if ctx == nil {
		ctx = &state.Context{}
	}
	if ctx.Env != nil {
		ctx = ctx.WithEnv(ctx.Env.Child())
	} else {
		ctx = ctx.WithEnv(state.NewEnv())
	}
	if policy == "" {
		policy = def.FailAbort
	}
	if policy == def.FailRollback {
		pre := g.Clone()
		last, err := x.executeList(effect, g, ctx, policy)
		if err != nil {
			g.RestoreFrom(pre)
			return nil, err
		}
		return last, nil
	}
	return x.executeList(effect, g, ctx, policy)
}

// executeList runs actions in order, binding store_as results into the
// current frame. Under continue, non-fatal failures skip the failing
// action; otherwise the first failure stops the list.
func (x *Executor) executeList(actions []def.Action, g *state.Game, ctx *state.Context, policy string) (any, error) {
	if ctx == nil {
		ctx = &state.Context{}
	}
	if ctx.Env == nil {
		ctx = ctx.WithEnv(state.NewEnv())
	}
	var last any
	for i := range actions {
		a := &actions[i]
		v, err := x.executeAction(a, g, ctx, policy)
		if err != nil {
			if policy == def.FailContinue && !isFatalToSession(err) {
				x.log.Warn("action failed; continuing",
					slog.String("action", a.Op),
					slog.Int("index", i),
					slog.String("error", err.Error()))
				continue
			}
			return nil, atIndex(err, i)
		}
		if a.StoreAs != "" {
			ctx.Env.Bind(a.StoreAs, v)
		}
		last = v
	}
	return last, nil
}

// executeAction dispatches one action by name.
func (x *Executor) executeAction(a *def.Action, g *state.Game, ctx *state.Context, policy string) (any, error) {
	switch a.Op {
	case def.ActMove:
		return x.execMove(a, g, ctx)
	case def.ActMoveAll:
		return x.execMoveAll(a, g, ctx)
	case def.ActDeal:
		return x.execDeal(a, g, ctx)
	case def.ActDealRoundRobin:
		return x.execDealRoundRobin(a, g, ctx)
	case def.ActDealAll:
		return x.execDealAll(a, g, ctx)
	case def.ActMill:
		return x.execMill(a, g, ctx)

	case def.ActReveal:
		return x.execReveal(a, g, ctx)
	case def.ActConceal:
		return x.execConceal(a, g, ctx)
	case def.ActFlip:
		return x.execFlip(a, g, ctx)
	case def.ActPeek, def.ActLook:
		return x.execPeek(a, g, ctx)

	case def.ActShuffle:
		return x.execShuffle(a, g, ctx)
	case def.ActReorder:
		return x.execReorder(a, g, ctx)
	case def.ActChooseRandom:
		return x.execChooseRandom(a, g, ctx)
	case def.ActSearchZone:
		return x.execSearchZone(a, g, ctx)
	case def.ActRevealMatching:
		return x.execRevealMatching(a, g, ctx)

	case def.ActSetVariable:
		return x.execSetVariable(a, g, ctx)
	case def.ActIncrement:
		return x.execIncrement(a, g, ctx)
	case def.ActSetState, def.ActSetGameState:
		return x.execSetState(a, g, ctx)
	case def.ActSetPhase:
		return x.execSetPhase(a, g, ctx)

	case def.ActSkipTurn:
		return x.execSkipTurn(a, g, ctx)
	case def.ActExtraTurn:
		return x.execExtraTurn(a, g, ctx)
	case def.ActReverseOrder:
		return x.execReverseOrder(a, g, ctx)
	case def.ActInsertPhase:
		return x.execInsertPhase(a, g, ctx)
	case def.ActRemovePhase:
		return x.execRemovePhase(a, g, ctx)

	case def.ActRequestInput:
		return x.execRequestInput(a, g, ctx)

	case def.ActForEachPlayer:
		return x.execForEachPlayer(a, g, ctx, policy)
	case def.ActForEach:
		return x.execForEach(a, g, ctx, policy)
	case def.ActParallel:
		return x.execParallel(a, g, ctx)
	case def.ActIf:
		return x.execIf(a, g, ctx, policy)

	default:
		return nil, state.Errorf(state.ErrCodeValidation, "unknown action %q", a.Op)
	}
}

// atIndex stamps the failing action's index onto a runtime error that
// does not already carry one.
func atIndex(err error, i int) error {
	var re *state.RuntimeError
	if errors.As(err, &re) && re.ActionIndex < 0 {
		re.ActionIndex = i
	}
	return err
}

// isFatalToSession extends the model's fatal classification with the
// dispatch-depth quota.
func isFatalToSession(err error) bool {
	return state.IsFatal(err) || IsDepthExceeded(err)
}

// resolve runs a selector through the shared resolver.
func (x *Executor) resolve(sel string, g *state.Game, ctx *state.Context) (any, error) {
	return x.eval.Resolver.Resolve(sel, g, ctx)
}

// zoneArg resolves a selector that must name a single zone instance.
func (x *Executor) zoneArg(field, sel string, g *state.Game, ctx *state.Context) (*state.Zone, error) {
	if sel == "" {
		return nil, state.Errorf(state.ErrCodeAction, "%s: missing zone selector", field)
	}
	v, err := x.resolve(sel, g, ctx)
	if err != nil {
		return nil, err
	}
	z, ok := v.(*state.Zone)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "%s: selector %q resolved to %T, want a zone", field, sel, v)
	}
	return z, nil
}

// cardsArg resolves a selector to the cards it addresses: a card, a card
// list, or a whole zone's ordered contents.
func (x *Executor) cardsArg(field, sel string, g *state.Game, ctx *state.Context) ([]*state.Card, error) {
	if sel == "" {
		return nil, state.Errorf(state.ErrCodeAction, "%s: missing card selector", field)
	}
	v, err := x.resolve(sel, g, ctx)
	if err != nil {
		return nil, err
	}
	cards, ok := asCards(v)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "%s: selector %q resolved to %T, want cards", field, sel, v)
	}
	return cards, nil
}

func asCards(v any) ([]*state.Card, bool) {
	switch c := v.(type) {
	case *state.Card:
		return []*state.Card{c}, true
	case []*state.Card:
		return append([]*state.Card(nil), c...), true
	case *state.Zone:
		return append([]*state.Card(nil), c.Cards...), true
	case []any:
		out := make([]*state.Card, 0, len(c))
		for _, e := range c {
			card, ok := e.(*state.Card)
			if !ok {
				return nil, false
			}
			out = append(out, card)
		}
		return out, true
	default:
		return nil, false
	}
}

// playersArg resolves a player-group selector. An empty selector means
// every player, in seating order from the current player following the
// play direction.
func (x *Executor) playersArg(sel string, g *state.Game, ctx *state.Context) ([]*state.Player, error) {
	if sel == "" {
		return orderedPlayers(g), nil
	}
	v, err := x.resolve(sel, g, ctx)
	if err != nil {
		return nil, err
	}
	switch p := v.(type) {
	case *state.Player:
		return []*state.Player{p}, nil
	case []*state.Player:
		return p, nil
	case []any:
		out := make([]*state.Player, 0, len(p))
		for _, e := range p {
			pl, ok := e.(*state.Player)
			if !ok {
				return nil, state.Errorf(state.ErrCodeType, "selector %q mixed non-players into a player group", sel)
			}
			out = append(out, pl)
		}
		return out, nil
	default:
		return nil, state.Errorf(state.ErrCodeType, "selector %q resolved to %T, want players", sel, v)
	}
}

// playerArg resolves a selector to exactly one player, defaulting to the
// context's current player.
func (x *Executor) playerArg(sel string, g *state.Game, ctx *state.Context) (*state.Player, error) {
	if sel == "" {
		if ctx != nil && ctx.Player != nil {
			return ctx.Player, nil
		}
		if p := g.CurrentPlayer(); p != nil {
			return p, nil
		}
		return nil, state.Errorf(state.ErrCodeAction, "no player in scope")
	}
	v, err := x.resolve(sel, g, ctx)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*state.Player)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "selector %q resolved to %T, want one player", sel, v)
	}
	return p, nil
}

// orderedPlayers returns every player starting from the current seat,
// following the play direction.
func orderedPlayers(g *state.Game) []*state.Player {
	n := len(g.Players)
	out := make([]*state.Player, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.PlayerAt(g.Flow.Current+i*g.Flow.Direction))
	}
	return out
}

// countArg evaluates an optional count operand to a non-negative int.
func (x *Executor) countArg(o *def.Operand, g *state.Game, ctx *state.Context, dflt int) (int, error) {
	if o == nil {
		return dflt, nil
	}
	v, err := x.eval.Operand(*o, g, ctx)
	if err != nil {
		return 0, err
	}
	var n int
	switch c := v.(type) {
	case int64:
		n = int(c)
	case int:
		n = c
	default:
		return 0, state.Errorf(state.ErrCodeType, "count resolved to %T, want an integer", v)
	}
	if n < 0 {
		return 0, state.Errorf(state.ErrCodeAction, "count must be non-negative, got %d", n)
	}
	return n, nil
}

// filterCards keeps the cards the filter accepts, binding each candidate
// as the filter card during its evaluation. Source order is preserved.
func (x *Executor) filterCards(cards []*state.Card, filter *def.Expr, g *state.Game, ctx *state.Context) ([]*state.Card, error) {
	if filter == nil {
		return cards, nil
	}
	if ctx == nil {
		ctx = &state.Context{}
	}
	out := make([]*state.Card, 0, len(cards))
	for _, c := range cards {
		ok, err := x.eval.EvalBool(filter, g, ctx.WithCard(c))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// collapseCards is the action-result convention: a single card binds as
// the card itself, several as the list.
func collapseCards(cards []*state.Card) any {
	if len(cards) == 1 {
		return cards[0]
	}
	return cards
}

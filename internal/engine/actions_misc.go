package engine

import (
	"errors"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/expr"
	"github.com/roach88/cardcore/internal/state"
)

// execReveal turns the target cards face up.
func (x *Executor) execReveal(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	cards, err := x.cardsArg("REVEAL target", a.Target, g, ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		c.Face = def.FaceUp
	}
	if err := x.emit(EvReveal, map[string]any{"cards": cards}); err != nil {
		return nil, err
	}
	return collapseCards(cards), nil
}

// execConceal turns the target cards face down and revokes every
// standing visibility grant on them.
func (x *Executor) execConceal(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	cards, err := x.cardsArg("CONCEAL target", a.Target, g, ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		c.Face = def.FaceDown
		for _, id := range c.Grants() {
			c.RevokeVisibility(id)
		}
	}
	if err := x.emit(EvConceal, map[string]any{"cards": cards}); err != nil {
		return nil, err
	}
	return collapseCards(cards), nil
}

// execFlip toggles each target card's face, or sets an explicit face.
func (x *Executor) execFlip(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	cards, err := x.cardsArg("FLIP target", a.Target, g, ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		switch {
		case a.Face != "":
			c.Face = a.Face
		case c.Face == def.FaceUp:
			c.Face = def.FaceDown
		default:
			c.Face = def.FaceUp
		}
	}
	fields := map[string]any{"cards": cards}
	if len(cards) == 1 {
		fields["card"] = cards[0]
	}
	if err := x.emit(EvFlip, fields); err != nil {
		return nil, err
	}
	return collapseCards(cards), nil
}

// execPeek grants the viewers visibility of the target cards without
// changing their face. The grant lasts until CONCEAL revokes it.
// LOOK shares this implementation.
func (x *Executor) execPeek(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	cards, err := x.cardsArg("PEEK target", a.Target, g, ctx)
	if err != nil {
		return nil, err
	}
	var viewers []*state.Player
	if a.Viewers == "" {
		p, err := x.playerArg("", g, ctx)
		if err != nil {
			return nil, err
		}
		viewers = []*state.Player{p}
	} else {
		viewers, err = x.playersArg(a.Viewers, g, ctx)
		if err != nil {
			return nil, err
		}
	}
	for _, c := range cards {
		for _, p := range viewers {
			c.GrantVisibility(p.ID)
		}
	}
	if err := x.emit(EvPeek, map[string]any{"cards": cards, "viewers": viewers}); err != nil {
		return nil, err
	}
	return collapseCards(cards), nil
}

// execShuffle permutes the target zone using the session PRNG.
func (x *Executor) execShuffle(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	z, err := x.zoneArg("SHUFFLE target", a.Target, g, ctx)
	if err != nil {
		return nil, err
	}
	order := append([]*state.Card(nil), z.Cards...)
	g.RNG.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	if err := g.ReorderZone(z, order); err != nil {
		return nil, err
	}
	if err := x.emit(EvShuffle, map[string]any{"zone": z, "size": int64(z.Len())}); err != nil {
		return nil, err
	}
	return nil, nil
}

// execReorder imposes an explicit permutation on a zone that allows
// reordering.
func (x *Executor) execReorder(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	z, err := x.zoneArg("REORDER target", a.Target, g, ctx)
	if err != nil {
		return nil, err
	}
	if z.Type != nil && !z.Type.AllowsReorder {
		return nil, state.Errorf(state.ErrCodeAction, "REORDER: zone %s does not allow reordering", z.Key)
	}
	if a.Value == nil {
		return nil, state.Errorf(state.ErrCodeAction, "REORDER: missing value permutation")
	}
	v, err := x.eval.Operand(*a.Value, g, ctx)
	if err != nil {
		return nil, err
	}
	order, ok := asCards(v)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "REORDER: permutation resolved to %T, want cards", v)
	}
	if err := g.ReorderZone(z, order); err != nil {
		return nil, err
	}
	if err := x.emit(EvReorder, map[string]any{"zone": z, "cards": order}); err != nil {
		return nil, err
	}
	return nil, nil
}

// execChooseRandom draws count elements without replacement from the
// source, using the session PRNG. Chosen cards optionally move to a
// destination zone.
func (x *Executor) execChooseRandom(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	if a.From == "" {
		return nil, state.Errorf(state.ErrCodeAction, "CHOOSE_RANDOM: missing from selector")
	}
	src, err := x.resolve(a.From, g, ctx)
	if err != nil {
		return nil, err
	}
	pool, ok := expr.ToSeq(src)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType,
			"CHOOSE_RANDOM: from selector %q resolved to %T, want a sequence", a.From, src)
	}
	n, err := x.countArg(a.Count, g, ctx, 1)
	if err != nil {
		return nil, err
	}
	if a.Exact && len(pool) < n {
		return nil, state.Errorf(state.ErrCodeAction,
			"CHOOSE_RANDOM: exact count %d requested but only %d candidates", n, len(pool))
	}
	if n > len(pool) {
		n = len(pool)
	}

	remaining := append([]any(nil), pool...)
	chosen := make([]any, 0, n)
	for i := 0; i < n; i++ {
		idx := g.RNG.IntN(len(remaining))
		chosen = append(chosen, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}

	if a.To != "" {
		to, err := x.zoneArg("CHOOSE_RANDOM to", a.To, g, ctx)
		if err != nil {
			return nil, err
		}
		cards, ok := asCards(chosen)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "CHOOSE_RANDOM: destination given but chosen elements are not cards")
		}
		if _, err := x.moveCards(cards, to, a.Face, g); err != nil {
			return nil, err
		}
	}
	if err := x.emit(EvChooseRandom, map[string]any{"chosen": chosen, "count": int64(len(chosen))}); err != nil {
		return nil, err
	}
	if len(chosen) == 1 {
		return chosen[0], nil
	}
	return chosen, nil
}

// execSearchZone returns the cards in the target zone matching the
// filter, without mutating anything. Max bounds the result when positive.
func (x *Executor) execSearchZone(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	z, err := x.zoneArg("SEARCH_ZONE target", a.Target, g, ctx)
	if err != nil {
		return nil, err
	}
	matches, err := x.filterCards(append([]*state.Card(nil), z.Cards...), a.Filter, g, ctx)
	if err != nil {
		return nil, err
	}
	if a.Max > 0 && len(matches) > a.Max {
		matches = matches[:a.Max]
	}
	if err := x.emit(EvSearch, map[string]any{"zone": z, "cards": matches}); err != nil {
		return nil, err
	}
	return matches, nil
}

// execRevealMatching reveals the matching cards in place.
func (x *Executor) execRevealMatching(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	z, err := x.zoneArg("REVEAL_MATCHING target", a.Target, g, ctx)
	if err != nil {
		return nil, err
	}
	matches, err := x.filterCards(append([]*state.Card(nil), z.Cards...), a.Filter, g, ctx)
	if err != nil {
		return nil, err
	}
	if a.Max > 0 && len(matches) > a.Max {
		matches = matches[:a.Max]
	}
	for _, c := range matches {
		c.Face = def.FaceUp
	}
	if err := x.emit(EvReveal, map[string]any{"zone": z, "cards": matches}); err != nil {
		return nil, err
	}
	return matches, nil
}

// execSetVariable writes a stored variable in its declared scope.
func (x *Executor) execSetVariable(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	if a.Name == "" {
		return nil, state.Errorf(state.ErrCodeAction, "SET_VARIABLE: missing variable name")
	}
	if a.Value == nil {
		return nil, state.Errorf(state.ErrCodeAction, "SET_VARIABLE: missing value")
	}
	v, err := x.eval.Operand(*a.Value, g, ctx)
	if err != nil {
		return nil, err
	}
	p, err := x.variableScope(a, g, ctx)
	if err != nil {
		return nil, err
	}
	if err := g.SetVar(a.Name, p, v); err != nil {
		return nil, err
	}
	fields := map[string]any{"name": a.Name, "value": v}
	if p != nil {
		fields["player"] = p
	}
	if err := x.emit(EvVariableSet, fields); err != nil {
		return nil, err
	}
	return v, nil
}

// execIncrement adds a delta (default 1) to an integer stored variable.
func (x *Executor) execIncrement(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	if a.Name == "" {
		return nil, state.Errorf(state.ErrCodeAction, "INCREMENT: missing variable name")
	}
	delta := int64(1)
	if a.Value != nil {
		v, err := x.eval.Operand(*a.Value, g, ctx)
		if err != nil {
			return nil, err
		}
		d, ok := v.(int64)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "INCREMENT: delta resolved to %T, want an integer", v)
		}
		delta = d
	}
	p, err := x.variableScope(a, g, ctx)
	if err != nil {
		return nil, err
	}
	cur, ok := g.StoredVar(a.Name, p)
	if !ok {
		return nil, state.Errorf(state.ErrCodeBinding, "INCREMENT: variable %q is not stored in scope", a.Name)
	}
	n, ok := cur.(int64)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "INCREMENT: variable %q holds %T, want an integer", a.Name, cur)
	}
	next := n + delta
	if err := g.SetVar(a.Name, p, next); err != nil {
		return nil, err
	}
	fields := map[string]any{"name": a.Name, "value": next}
	if p != nil {
		fields["player"] = p
	}
	if err := x.emit(EvVariableSet, fields); err != nil {
		return nil, err
	}
	return next, nil
}

// variableScope picks the player a variable action applies to: an
// explicit player selector, else the declared scope decides whether the
// context player is consulted.
func (x *Executor) variableScope(a *def.Action, g *state.Game, ctx *state.Context) (*state.Player, error) {
	if a.Player != "" {
		return x.playerArg(a.Player, g, ctx)
	}
	decl := g.Def.Variable(a.Name)
	if decl != nil && decl.Scope != "" && decl.Scope != def.ScopeGlobal {
		return x.playerArg("", g, ctx)
	}
	if ctx != nil {
		return ctx.Player, nil
	}
	return nil, nil
}

// execSetState jumps the flow machine to a named state. Boundary events
// dispatch synchronously so their rules observe the transition in order:
// exit of the old state, entry of the new, entry of its first phase.
func (x *Executor) execSetState(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	if a.State == "" {
		return nil, state.Errorf(state.ErrCodeAction, "SET_STATE: missing state name")
	}
	st := g.Def.Flow.State(a.State)
	if st == nil {
		return nil, state.Errorf(state.ErrCodeLookup, "SET_STATE: unknown flow state %q", a.State)
	}
	if err := jumpState(g, st, x.interject); err != nil {
		return nil, err
	}
	return st.Name, nil
}

// execSetPhase jumps to a named phase in the current state's live phase
// list.
func (x *Executor) execSetPhase(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	if a.Phase == "" {
		return nil, state.Errorf(state.ErrCodeAction, "SET_PHASE: missing phase name")
	}
	idx := -1
	for i, name := range g.Flow.Phases {
		if name == a.Phase {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, state.Errorf(state.ErrCodeLookup,
			"SET_PHASE: phase %q is not in state %q", a.Phase, g.Flow.State)
	}
	if g.Flow.Phase != "" {
		if err := x.interject(EvPhaseExit, map[string]any{"phase": g.Flow.Phase, "state": g.Flow.State}); err != nil {
			return nil, err
		}
	}
	g.Flow.PhaseIdx = idx
	g.Flow.Phase = a.Phase
	if err := x.interject(EvPhaseEnter, map[string]any{"phase": a.Phase, "state": g.Flow.State}); err != nil {
		return nil, err
	}
	return a.Phase, nil
}

// execSkipTurn marks the target player's next turn to be skipped.
func (x *Executor) execSkipTurn(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	p, err := x.playerArg(a.Player, g, ctx)
	if err != nil {
		return nil, err
	}
	g.Flow.SkipNext[p.ID]++
	return p, nil
}

// execExtraTurn grants the target player an additional turn.
func (x *Executor) execExtraTurn(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	p, err := x.playerArg(a.Player, g, ctx)
	if err != nil {
		return nil, err
	}
	g.Flow.ExtraTurns[p.ID]++
	return p, nil
}

// execReverseOrder flips the play direction.
func (x *Executor) execReverseOrder(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	g.Flow.Direction = -g.Flow.Direction
	return int64(g.Flow.Direction), nil
}

// execInsertPhase inserts a phase into the live phase list for this
// playthrough. The current phase position is preserved.
func (x *Executor) execInsertPhase(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	if a.Phase == "" {
		return nil, state.Errorf(state.ErrCodeAction, "INSERT_PHASE: missing phase name")
	}
	idx := a.Index
	if idx < 0 {
		idx = 0
	}
	if idx > len(g.Flow.Phases) {
		idx = len(g.Flow.Phases)
	}
	phases := append([]string(nil), g.Flow.Phases[:idx]...)
	phases = append(phases, a.Phase)
	phases = append(phases, g.Flow.Phases[idx:]...)
	g.Flow.Phases = phases
	if idx <= g.Flow.PhaseIdx && g.Flow.Phase != "" {
		g.Flow.PhaseIdx++
	}
	return nil, nil
}

// execRemovePhase removes the first phase with the given name from the
// live phase list. Removing the current phase takes effect at the next
// advance.
func (x *Executor) execRemovePhase(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	if a.Phase == "" {
		return nil, state.Errorf(state.ErrCodeAction, "REMOVE_PHASE: missing phase name")
	}
	idx := -1
	for i, name := range g.Flow.Phases {
		if name == a.Phase {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, state.Errorf(state.ErrCodeLookup,
			"REMOVE_PHASE: phase %q is not in state %q", a.Phase, g.Flow.State)
	}
	g.Flow.Phases = append(g.Flow.Phases[:idx], g.Flow.Phases[idx+1:]...)
	if idx < g.Flow.PhaseIdx || (idx == g.Flow.PhaseIdx && g.Flow.PhaseIdx > 0) {
		g.Flow.PhaseIdx--
	}
	return nil, nil
}

// execRequestInput computes the legal option set, suspends on the
// provider, and binds the validated live choice.
func (x *Executor) execRequestInput(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	p, err := x.playerArg(a.Player, g, ctx)
	if err != nil {
		return nil, err
	}
	if a.Options == nil {
		return nil, state.Errorf(state.ErrCodeAction, "REQUEST_INPUT: missing options")
	}
	v, err := x.eval.Operand(*a.Options, g, ctx)
	if err != nil {
		return nil, err
	}
	options, ok := expr.ToSeq(v)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "REQUEST_INPUT: options resolved to %T, want a sequence", v)
	}
	req := InputRequest{
		Player:      p.ID,
		Prompt:      a.Prompt,
		Options:     scalarize(options).([]any),
		Multiselect: a.Multiselect,
	}
	if err := x.emit(EvInputRequested, map[string]any{
		"player":  p,
		"prompt":  a.Prompt,
		"options": options,
	}); err != nil {
		return nil, err
	}
	choice, err := x.input.Choose(req)
	if err != nil {
		if errors.Is(err, ErrInputCancelled) {
			return nil, state.Errorf(state.ErrCodeInput, "input cancelled for player %s: %s", p.ID, a.Prompt)
		}
		return nil, state.Errorf(state.ErrCodeInput, "input provider failed for player %s: %v", p.ID, err)
	}
	live, err := validateChoice(options, choice, a.Multiselect)
	if err != nil {
		return nil, err
	}
	if err := x.emit(EvInputResolved, map[string]any{"player": p, "choice": live}); err != nil {
		return nil, err
	}
	return live, nil
}

// execForEachPlayer iterates the selected players in seating order from
// the current player. Under simultaneous order, conditions evaluate
// against a pre-iteration image so earlier iterations cannot influence
// later eligibility; mutations still apply sequentially.
func (x *Executor) execForEachPlayer(a *def.Action, g *state.Game, ctx *state.Context, policy string) (any, error) {
	players, err := x.playersArg(a.Recipients, g, ctx)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = &state.Context{}
	}
	if ctx.Env == nil {
		ctx = ctx.WithEnv(state.NewEnv())
	}

	condModel := g
	if a.Order == def.OrderSimultaneous && a.Condition != nil {
		condModel = g.Clone()
	}

	var last any
	for _, p := range players {
		if a.Condition != nil {
			cctx := ctx.WithPlayer(p)
			if condModel != g {
				cctx = condModel.Remap(cctx)
			}
			ok, err := x.eval.EvalBool(a.Condition, condModel, cctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		frame := ctx.Env.Child()
		frame.Bind("player", p)
		v, err := x.executeList(a.Do, g, ctx.WithEnv(frame).WithPlayer(p), policy)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// execForEach iterates a sequence, binding each element as "item" in a
// loop-local frame. Card elements also bind as the filter card.
func (x *Executor) execForEach(a *def.Action, g *state.Game, ctx *state.Context, policy string) (any, error) {
	if a.Over == nil {
		return nil, state.Errorf(state.ErrCodeAction, "FOR_EACH: missing over sequence")
	}
	v, err := x.eval.Operand(*a.Over, g, ctx)
	if err != nil {
		return nil, err
	}
	seq, ok := expr.ToSeq(v)
	if !ok {
		return nil, state.Errorf(state.ErrCodeType, "FOR_EACH: over resolved to %T, want a sequence", v)
	}
	if ctx == nil {
		ctx = &state.Context{}
	}
	if ctx.Env == nil {
		ctx = ctx.WithEnv(state.NewEnv())
	}

	var last any
	for _, item := range seq {
		frame := ctx.Env.Child()
		frame.Bind("item", item)
		ictx := ctx.WithEnv(frame)
		if c, ok := item.(*state.Card); ok {
			ictx = ictx.WithCard(c)
		}
		r, err := x.executeList(a.Do, g, ictx, policy)
		if err != nil {
			return nil, err
		}
		last = r
	}
	return last, nil
}

// execParallel runs branches sequentially in declaration order (wait:
// all). Each branch gets its own binding frame. Under rollback the whole
// block reverts on the first branch failure; otherwise partial
// application persists as if the branches were one sequential list.
func (x *Executor) execParallel(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	if a.Wait != "" && a.Wait != "all" {
		return nil, state.Errorf(state.ErrCodeAction, "PARALLEL: unsupported wait mode %q", a.Wait)
	}
	if ctx == nil {
		ctx = &state.Context{}
	}
	policy := a.OnFailure
	if policy == "" {
		policy = def.FailAbort
	}

	run := func() error {
		for _, branch := range a.Branches {
			frame := state.NewEnv()
			if ctx.Env != nil {
				frame = ctx.Env.Child()
			}
			if _, err := x.executeList(branch, g, ctx.WithEnv(frame), policy); err != nil {
				return err
			}
		}
		return nil
	}

	if policy == def.FailRollback {
		pre := g.Clone()
		if err := run(); err != nil {
			g.RestoreFrom(pre)
			return nil, err
		}
		return nil, nil
	}
	return nil, run()
}

// execIf evaluates the condition and runs the matching branch with the
// enclosing binding frame, so store_as results stay visible for the rest
// of the effect.
func (x *Executor) execIf(a *def.Action, g *state.Game, ctx *state.Context, policy string) (any, error) {
	if a.Condition == nil {
		return nil, state.Errorf(state.ErrCodeAction, "IF: missing condition")
	}
	ok, err := x.eval.EvalBool(a.Condition, g, ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return x.executeList(a.Then, g, ctx, policy)
	}
	return x.executeList(a.Else, g, ctx, policy)
}

package engine

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/state"
)

// Dispatcher matches events against rule triggers and fires the matching
// rules. Queued events drain breadth-first: each effect runs to
// completion before any event it emitted is dispatched. State and phase
// boundary events bypass the queue through DispatchNow so their rules
// observe the transition in order.
//
// A non-fatal effect failure stops only that rule; dispatch continues
// with the next one. Invariant violations and depth-quota breaches
// propagate and end the session.
type Dispatcher struct {
	game  *state.Game
	exec  *Executor
	clock *Clock
	queue *eventQueue
	quota *quotaTracker
	log   *slog.Logger

	// onEvent observes every dispatched event, in dispatch order. The
	// session's trace recorder hangs here.
	onEvent func(Event)
}

// NewDispatcher wires a dispatcher and hooks the executor's event
// publication back into it.
func NewDispatcher(g *state.Game, exec *Executor, clock *Clock, maxDepth int, log *slog.Logger) *Dispatcher {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		game:  g,
		exec:  exec,
		clock: clock,
		queue: newEventQueue(),
		quota: newQuotaTracker(maxDepth),
		log:   log,
	}
	exec.SetHooks(d.Raise, d.DispatchNow)
	return d
}

// SetObserver installs the per-event observer.
func (d *Dispatcher) SetObserver(fn func(Event)) { d.onEvent = fn }

// Raise stamps and queues an event for breadth-first dispatch.
func (d *Dispatcher) Raise(tag string, fields map[string]any) error {
	d.queue.Enqueue(Event{Tag: tag, Seq: d.clock.Next(), Ctx: fields})
	return nil
}

// DispatchNow stamps an event and dispatches it synchronously, ahead of
// anything queued.
func (d *Dispatcher) DispatchNow(tag string, fields map[string]any) error {
	return d.process(Event{Tag: tag, Seq: d.clock.Next(), Ctx: fields})
}

// Drain dispatches queued events until the queue is empty. Effects fired
// along the way may queue more; the cascade is bounded by the depth
// quota.
func (d *Dispatcher) Drain() error {
	for {
		ev, ok := d.queue.TryDequeue()
		if !ok {
			return nil
		}
		if err := d.process(ev); err != nil {
			return err
		}
	}
}

// ResetDepth rearms the cascade depth quota. Called once per externally
// driven step.
func (d *Dispatcher) ResetDepth() { d.quota.resetDepth() }

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int { return d.queue.Len() }

// process dispatches one event: pre rules, then at most one replace
// rule, then post rules unless a replace rule fired.
func (d *Dispatcher) process(ev Event) error {
	if err := d.quota.checkDepth(); err != nil {
		return err
	}
	if d.onEvent != nil {
		d.onEvent(ev)
	}
	switch ev.Tag {
	case EvTurnBegin:
		d.quota.resetTurn()
	case EvPhaseEnter:
		d.quota.resetPhase()
	}

	matched := d.matching(ev.Tag)
	if len(matched) == 0 {
		return nil
	}
	ctx := d.eventContext(ev)

	var pre, replace, post []*def.Rule
	for _, r := range matched {
		if !d.enabled(r, ev, ctx) {
			continue
		}
		switch r.EffectiveTiming() {
		case def.TimingPre:
			pre = append(pre, r)
		case def.TimingReplace:
			replace = append(replace, r)
		default:
			post = append(post, r)
		}
	}

	for _, r := range pre {
		if _, err := d.fire(r, ev, ctx); err != nil {
			return err
		}
	}

	// The first replace rule to fire wins; the rest are superseded for
	// this event and the post rules are suppressed.
	for i, r := range replace {
		fired, err := d.fire(r, ev, ctx)
		if err != nil {
			return err
		}
		if fired {
			for _, loser := range replace[i+1:] {
				d.log.Warn("replace rule superseded",
					slog.String("event", ev.Tag),
					slog.String("winner", r.ID),
					slog.String("rule", loser.ID))
			}
			return nil
		}
	}

	for _, r := range post {
		if _, err := d.fire(r, ev, ctx); err != nil {
			return err
		}
	}
	return nil
}

// matching returns the rules whose trigger matches the tag, ordered by
// priority (highest first) with declaration order breaking ties.
func (d *Dispatcher) matching(tag string) []*def.Rule {
	rules := d.game.Def.Rules
	var out []*def.Rule
	for i := range rules {
		if MatchTrigger(rules[i].Trigger, tag) {
			out = append(out, &rules[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// eventContext builds the evaluation context rules see for this event:
// the event's typed fields, a fresh binding frame shared by the event's
// rules, and the event's player (falling back to the current player).
func (d *Dispatcher) eventContext(ev Event) *state.Context {
	ctx := &state.Context{Event: ev.Ctx, Env: state.NewEnv()}
	if p, ok := ev.Ctx["player"].(*state.Player); ok {
		ctx.Player = p
	} else {
		ctx.Player = d.game.CurrentPlayer()
	}
	return ctx
}

// enabled applies the silent enabled_when pre-filter. Evaluation errors
// disable the rule for this event.
func (d *Dispatcher) enabled(r *def.Rule, ev Event, ctx *state.Context) bool {
	if r.EnabledWhen == nil {
		return true
	}
	ok, err := d.exec.Eval().EvalBool(r.EnabledWhen, d.game, ctx)
	if err != nil {
		d.log.Warn("enabled_when evaluation failed; rule disabled",
			slog.String("rule", r.ID),
			slog.String("event", ev.Tag),
			slog.String("error", err.Error()))
		return false
	}
	return ok
}

// fire runs one rule against the event: quota, condition, effect. It
// reports whether the rule actually fired. Non-fatal effect failures are
// logged and absorbed so the remaining rules still run.
func (d *Dispatcher) fire(r *def.Rule, ev Event, ctx *state.Context) (bool, error) {
	if !d.quota.allow(r) {
		return false, nil
	}
	if r.Condition != nil {
		ok, err := d.exec.Eval().EvalBool(r.Condition, d.game, ctx)
		if err != nil {
			if isFatalToSession(err) {
				return false, stampRule(err, r.ID)
			}
			d.log.Warn("rule condition failed; rule skipped",
				slog.String("rule", r.ID),
				slog.String("event", ev.Tag),
				slog.String("error", err.Error()))
			return false, nil
		}
		if !ok {
			return false, nil
		}
	}
	d.quota.noteFiring(r)
	res, err := d.exec.ExecuteEffect(r.Effect, d.game, ctx, r.EffectiveOnFailure())
	if err != nil {
		if isFatalToSession(err) {
			return true, stampRule(err, r.ID)
		}
		d.log.Error("rule effect failed",
			slog.String("rule", r.ID),
			slog.String("event", ev.Tag),
			slog.String("error", err.Error()))
		return true, nil
	}
	if r.StoreAs != "" && ctx.Env != nil {
		ctx.Env.Bind(r.StoreAs, res)
	}
	return true, nil
}

// stampRule attaches the rule id to a runtime error that lacks one.
func stampRule(err error, ruleID string) error {
	var re *state.RuntimeError
	if errors.As(err, &re) && re.RuleID == "" {
		re.RuleID = ruleID
	}
	return err
}

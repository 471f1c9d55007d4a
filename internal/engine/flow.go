package engine

import (
	"errors"
	"log/slog"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/state"
)

// ErrAwaitingExternal reports that the flow machine cannot advance on its
// own: the current state has exhausted its phases (or has none) and no
// transition condition holds. Injected events are the only way forward.
var ErrAwaitingExternal = errors.New("flow idle: awaiting external events")

// FlowController drives the two-level flow machine: outer states with
// transition edges, inner phase lists with turn rotation. Checkpoints run
// after setup, after each phase advance, and after each injected event;
// at a checkpoint transitions are evaluated in declaration order (first
// match fires) and the win condition ends the session the moment it
// yields a result.
type FlowController struct {
	game *state.Game
	disp *Dispatcher
	exec *Executor
	log  *slog.Logger
}

// NewFlowController wires a controller over the session's model and
// dispatcher.
func NewFlowController(g *state.Game, disp *Dispatcher, exec *Executor, log *slog.Logger) *FlowController {
	if log == nil {
		log = slog.Default()
	}
	return &FlowController{game: g, disp: disp, exec: exec, log: log}
}

// Start enters the initial state and begins the first turn.
func (f *FlowController) Start() error {
	g := f.game
	st := g.Def.Flow.State(g.Def.Flow.InitialState)
	if st == nil {
		return state.Errorf(state.ErrCodeLookup, "unknown initial state %q", g.Def.Flow.InitialState)
	}
	g.Flow.Turn = 1
	if err := f.disp.DispatchNow(EvTurnBegin, f.turnFields()); err != nil {
		return err
	}
	if err := jumpState(g, st, f.disp.DispatchNow); err != nil {
		return err
	}
	if err := f.disp.Drain(); err != nil {
		return err
	}
	return f.Checkpoint()
}

// Step advances one phase: exit the current phase, wrap into a new turn
// when the list cycles, enter the next phase, drain, checkpoint. It
// reports whether the session finished.
func (f *FlowController) Step() (bool, error) {
	g := f.game
	if g.Flow.Finished {
		return true, nil
	}
	f.disp.ResetDepth()

	if len(g.Flow.Phases) == 0 {
		before := g.Flow.State
		if err := f.Checkpoint(); err != nil {
			return g.Flow.Finished, err
		}
		if g.Flow.Finished {
			return true, nil
		}
		if g.Flow.State == before && len(g.Flow.Phases) == 0 {
			return false, ErrAwaitingExternal
		}
		return false, nil
	}

	stateBefore := g.Flow.State
	if g.Flow.Phase != "" {
		if err := f.disp.DispatchNow(EvPhaseExit, map[string]any{
			"phase": g.Flow.Phase,
			"state": g.Flow.State,
		}); err != nil {
			return false, err
		}
	}
	// A phase-exit rule may have jumped the flow; our advance only
	// applies if the machine is still where we left it.
	if g.Flow.State == stateBefore && !g.Flow.Finished {
		next := g.Flow.PhaseIdx + 1
		if next >= len(g.Flow.Phases) {
			st := g.Def.Flow.State(g.Flow.State)
			if st != nil && st.Loop == def.LoopHalt {
				if err := f.Checkpoint(); err != nil {
					return g.Flow.Finished, err
				}
				if g.Flow.Finished {
					return true, nil
				}
				if g.Flow.State == stateBefore {
					return false, ErrAwaitingExternal
				}
				return false, nil
			}
			if err := f.nextTurn(); err != nil {
				return false, err
			}
			next = 0
		}
		if g.Flow.State == stateBefore && !g.Flow.Finished {
			g.Flow.PhaseIdx = next
			g.Flow.Phase = g.Flow.Phases[next]
			if err := f.disp.DispatchNow(EvPhaseEnter, map[string]any{
				"phase": g.Flow.Phase,
				"state": g.Flow.State,
			}); err != nil {
				return false, err
			}
		}
	}

	if err := f.disp.Drain(); err != nil {
		return g.Flow.Finished, err
	}
	if err := f.Checkpoint(); err != nil {
		return g.Flow.Finished, err
	}
	return g.Flow.Finished, nil
}

// nextTurn ends the current turn and rotates to the next player,
// honoring extra turns, pending skips, and the play direction.
func (f *FlowController) nextTurn() error {
	g := f.game
	if err := f.disp.DispatchNow(EvTurnEnd, f.turnFields()); err != nil {
		return err
	}
	cur := g.CurrentPlayer()
	if cur != nil && g.Flow.ExtraTurns[cur.ID] > 0 {
		g.Flow.ExtraTurns[cur.ID]--
	} else {
		seat := g.Flow.Current
		for {
			seat += g.Flow.Direction
			p := g.PlayerAt(seat)
			if g.Flow.SkipNext[p.ID] > 0 {
				g.Flow.SkipNext[p.ID]--
				continue
			}
			break
		}
		n := len(g.Players)
		g.Flow.Current = ((seat % n) + n) % n
	}
	g.Flow.Turn++
	return f.disp.DispatchNow(EvTurnBegin, f.turnFields())
}

// Checkpoint evaluates the win condition and then the transition edges,
// repeating until neither fires. A win result finishes the session.
func (f *FlowController) Checkpoint() error {
	g := f.game
	for range g.Def.Flow.Transitions {
		if done, err := f.checkWin(); done || err != nil {
			return err
		}
		fired, err := f.fireTransition()
		if err != nil {
			return err
		}
		if !fired {
			return nil
		}
	}
	// All edges exhausted; one final win check covers transition-free
	// flows too.
	_, err := f.checkWin()
	return err
}

// checkWin evaluates the win condition. An empty result (nil, false, "",
// or an empty sequence) means the session continues.
func (f *FlowController) checkWin() (bool, error) {
	g := f.game
	if g.Flow.Finished {
		return true, nil
	}
	win := g.Def.Flow.Win
	if win == nil || win.Evaluator == nil {
		return false, nil
	}
	ctx := &state.Context{Player: g.CurrentPlayer(), Env: state.NewEnv()}
	v, err := f.exec.Eval().Eval(win.Evaluator, g, ctx)
	if err != nil {
		if isFatalToSession(err) {
			return false, err
		}
		f.log.Warn("win condition evaluation failed", slog.String("error", err.Error()))
		return false, nil
	}
	result := winResult(v)
	if result == nil {
		return false, nil
	}
	g.Flow.Finished = true
	g.Flow.Result = scalarize(result)
	if err := f.disp.DispatchNow(EvGameEnd, map[string]any{"result": result}); err != nil {
		return true, err
	}
	return true, f.disp.Drain()
}

// fireTransition fires the first matching edge out of the current state.
// Edges are evaluated in declaration order; the first whose condition
// holds wins, so an edge's priority never outranks an earlier true one.
func (f *FlowController) fireTransition() (bool, error) {
	g := f.game
	var edges []*def.Transition
	for i := range g.Def.Flow.Transitions {
		t := &g.Def.Flow.Transitions[i]
		if t.From == g.Flow.State {
			edges = append(edges, t)
		}
	}
	ctx := &state.Context{Player: g.CurrentPlayer(), Env: state.NewEnv()}
	for _, t := range edges {
		if t.Condition != nil {
			ok, err := f.exec.Eval().EvalBool(t.Condition, g, ctx)
			if err != nil {
				if isFatalToSession(err) {
					return false, err
				}
				f.log.Warn("transition condition failed; edge skipped",
					slog.String("transition", t.ID),
					slog.String("error", err.Error()))
				continue
			}
			if !ok {
				continue
			}
		}
		st := g.Def.Flow.State(t.To)
		if st == nil {
			return false, state.Errorf(state.ErrCodeLookup,
				"transition %s targets unknown state %q", t.ID, t.To)
		}
		if err := jumpState(g, st, f.disp.DispatchNow); err != nil {
			return false, err
		}
		return true, f.disp.Drain()
	}
	return false, nil
}

func (f *FlowController) turnFields() map[string]any {
	g := f.game
	fields := map[string]any{"turn_index": int64(g.Flow.Turn)}
	if p := g.CurrentPlayer(); p != nil {
		fields["player"] = p
	}
	return fields
}

// winResult normalizes a win evaluation to nil when it has not resolved.
func winResult(v any) any {
	switch r := v.(type) {
	case nil:
		return nil
	case bool:
		if !r {
			return nil
		}
		return r
	case string:
		if r == "" {
			return nil
		}
		return r
	case []any:
		if len(r) == 0 {
			return nil
		}
		return r
	case []*state.Player:
		if len(r) == 0 {
			return nil
		}
		return r
	default:
		return v
	}
}

// jumpState moves the flow machine to a state, publishing the boundary
// events through the given dispatch path: state exit, state enter, first
// phase enter.
func jumpState(g *state.Game, st *def.FlowState, dispatch emitFunc) error {
	if g.Flow.State != "" {
		if err := dispatch(EvStateExit, map[string]any{"state": g.Flow.State}); err != nil {
			return err
		}
	}
	g.Flow.State = st.Name
	g.Flow.Phases = phaseNames(st)
	g.Flow.PhaseIdx = 0
	g.Flow.Phase = ""
	if len(g.Flow.Phases) > 0 {
		g.Flow.Phase = g.Flow.Phases[0]
	}
	if err := dispatch(EvStateEnter, map[string]any{"state": st.Name}); err != nil {
		return err
	}
	if g.Flow.Phase != "" {
		return dispatch(EvPhaseEnter, map[string]any{"phase": g.Flow.Phase, "state": st.Name})
	}
	return nil
}

// phaseNames flattens a state's declared phase list.
func phaseNames(st *def.FlowState) []string {
	if len(st.Phases) == 0 {
		return nil
	}
	out := make([]string, len(st.Phases))
	for i, p := range st.Phases {
		out[i] = p.Name
	}
	return out
}

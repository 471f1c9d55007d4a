package engine

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/state"
)

// DefaultMaxTurns bounds Run so a definition whose win condition never
// resolves cannot spin forever.
const DefaultMaxTurns = 10000

// Session owns one playthrough: the model, the logical clock, the
// executor, the dispatcher, and the flow controller, all driven from a
// single goroutine. External drivers interact through Step, Run,
// InjectEvent, and the InputProvider.
type Session struct {
	ID string

	def   *def.Game
	game  *state.Game
	clock *Clock
	exec  *Executor
	disp  *Dispatcher
	flow  *FlowController
	trace *Trace
	log   *slog.Logger

	input    InputProvider
	seed     int64
	maxDepth int
	maxTurns int
	started  bool
}

// Option configures a session before its components are built.
type Option func(*Session)

// WithSeed overrides the definition's PRNG seed.
func WithSeed(seed int64) Option {
	return func(s *Session) { s.seed = seed }
}

// WithLogger installs a structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithInput installs the external decision provider.
func WithInput(p InputProvider) Option {
	return func(s *Session) { s.input = p }
}

// WithMaxDepth overrides the dispatch-depth quota.
func WithMaxDepth(n int) Option {
	return func(s *Session) { s.maxDepth = n }
}

// WithMaxTurns overrides the Run turn bound.
func WithMaxTurns(n int) Option {
	return func(s *Session) { s.maxTurns = n }
}

// NewSession validates the definition and materializes a fresh session
// over it.
func NewSession(d *def.Game, opts ...Option) (*Session, error) {
	if errs := d.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, state.Errorf(state.ErrCodeValidation,
			"definition %q has %d error(s): %s", d.Meta.Name, len(errs), strings.Join(msgs, "; "))
	}

	s := &Session{
		ID:       uuid.NewString(),
		def:      d,
		log:      slog.Default(),
		seed:     d.Meta.RNG.Seed,
		maxDepth: DefaultMaxDepth,
		maxTurns: DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(s)
	}

	g, err := state.NewGame(d, s.seed)
	if err != nil {
		return nil, err
	}
	s.game = g
	s.clock = NewClock()
	s.exec = NewExecutor(s.input, s.log)
	s.disp = NewDispatcher(g, s.exec, s.clock, s.maxDepth, s.log)
	s.trace = &Trace{Seed: s.seed}
	s.disp.SetObserver(s.trace.Record)
	s.flow = NewFlowController(g, s.disp, s.exec, s.log)
	return s, nil
}

// Setup runs the definition's setup actions and starts the flow machine.
// Setup failures are not subject to rule failure policies: a definition
// that cannot set itself up has no session to salvage.
func (s *Session) Setup() error {
	if s.started {
		return state.Errorf(state.ErrCodeAction, "session %s already started", s.ID)
	}
	s.disp.ResetDepth()
	if len(s.def.Setup) > 0 {
		if _, err := s.exec.ExecuteEffect(s.def.Setup, s.game, nil, def.FailAbort); err != nil {
			return err
		}
		if err := s.disp.Drain(); err != nil {
			return err
		}
	}
	if err := s.flow.Start(); err != nil {
		return err
	}
	s.started = true
	s.log.Info("session started",
		slog.String("session", s.ID),
		slog.String("game", s.def.Meta.Name),
		slog.Int64("seed", s.seed))
	return nil
}

// Step advances the flow machine one phase, running Setup first if
// needed. It reports whether the session finished.
func (s *Session) Step() (bool, error) {
	if !s.started {
		if err := s.Setup(); err != nil {
			return false, err
		}
	}
	return s.flow.Step()
}

// Run steps the session until the win condition resolves, the flow goes
// idle waiting for injected events, or the turn bound trips.
func (s *Session) Run() error {
	for {
		done, err := s.Step()
		if err != nil {
			if errors.Is(err, ErrAwaitingExternal) {
				return nil
			}
			return err
		}
		if done {
			s.log.Info("session finished",
				slog.String("session", s.ID),
				slog.Int("turns", s.game.Flow.Turn),
				slog.Any("result", s.game.Flow.Result))
			return nil
		}
		if s.game.Flow.Turn > s.maxTurns {
			return state.Errorf(state.ErrCodeAction,
				"session exceeded %d turns without resolving", s.maxTurns)
		}
	}
}

// InjectEvent queues an external event, drains the resulting cascade,
// and checkpoints the flow machine.
func (s *Session) InjectEvent(tag string, fields map[string]any) error {
	if !s.started {
		return state.Errorf(state.ErrCodeAction, "session %s not started", s.ID)
	}
	s.disp.ResetDepth()
	if err := s.disp.Raise(tag, fields); err != nil {
		return err
	}
	if err := s.disp.Drain(); err != nil {
		return err
	}
	return s.flow.Checkpoint()
}

// Game exposes the model for inspection. Callers must treat it as
// read-only.
func (s *Session) Game() *state.Game { return s.game }

// Trace returns the session's event log.
func (s *Session) Trace() *Trace { return s.trace }

// TraceHash returns the canonical content hash of the trace so far.
func (s *Session) TraceHash() (string, error) { return s.trace.Hash() }

// Snapshot captures the model's current externalized image.
func (s *Session) Snapshot() *state.Snapshot { return s.game.Snapshot() }

// Finished reports whether the win condition has resolved.
func (s *Session) Finished() bool { return s.game.Flow.Finished }

// Result returns the scalarized win result, or nil.
func (s *Session) Result() any { return s.game.Flow.Result }

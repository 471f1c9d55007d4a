package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/cardcore/internal/compiler"
	"github.com/roach88/cardcore/internal/engine"
	"github.com/roach88/cardcore/internal/state"
)

// Result is the outcome of a scenario execution.
type Result struct {
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`

	// Trace is the session's full event log.
	Trace *engine.Trace `json:"trace"`

	// TraceHash is the canonical content hash of the trace.
	TraceHash string `json:"trace_hash"`

	// Final is the finished model, kept for state assertions.
	Final *state.Game `json:"-"`

	// WinResult is the scalarized win outcome.
	WinResult any `json:"result,omitempty"`
}

// AddError records an assertion failure.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario to completion and applies its assertions.
// The returned Result reports assertion failures; an error means the
// scenario could not run at all.
func Run(s *Scenario) (*Result, error) {
	g, err := compiler.Load(s.DefinitionPath())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	opts := []engine.Option{
		engine.WithSeed(s.Seed),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if len(s.Inputs) > 0 {
		opts = append(opts, engine.WithInput(&engine.ScriptedInput{Choices: s.Inputs}))
	}
	if s.MaxTurns > 0 {
		opts = append(opts, engine.WithMaxTurns(s.MaxTurns))
	}
	sess, err := engine.NewSession(g, opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	if err := sess.Run(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	hash, err := sess.TraceHash()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := &Result{
		Pass:      true,
		Trace:     sess.Trace(),
		TraceHash: hash,
		Final:     sess.Game(),
		WinResult: sess.Result(),
	}
	for i, a := range s.Assertions {
		if err := applyAssertion(result, a); err != nil {
			result.AddError("assertion %d (%s): %v", i, a.Type, err)
		}
	}
	return result, nil
}

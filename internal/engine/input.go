package engine

import (
	"errors"

	"github.com/roach88/cardcore/internal/state"
)

// ErrInputCancelled is returned by an InputProvider to cancel a pending
// input. The owning effect then fails like any other action failure,
// subject to its on_failure policy.
var ErrInputCancelled = errors.New("pending input cancelled")

// InputRequest is the pending-input descriptor handed to the external
// driver: the prompt, the legal option set (scalarized: cards and players
// appear as their ids), and whether multiple selections are allowed.
type InputRequest struct {
	Player      string
	Prompt      string
	Options     []any
	Multiselect bool
}

// InputProvider supplies external decisions. The engine computes the
// legal option set before suspending; Choose must return a value (or,
// for multiselect, a []any) drawn from req.Options, or an error to
// cancel. Choose is the engine's only suspension point - a blocking
// implementation suspends the effect until the player answers.
//
// When several players must respond before a simultaneous step proceeds,
// the engine issues their requests in seating order; a provider may
// gather them concurrently as long as it answers each call.
type InputProvider interface {
	Choose(req InputRequest) (any, error)
}

// ScriptedInput replays a fixed choice sequence. Used by tests, the
// replay command, and scenario fixtures.
type ScriptedInput struct {
	Choices []any
	next    int
}

// Choose pops the next scripted choice.
func (s *ScriptedInput) Choose(InputRequest) (any, error) {
	if s.next >= len(s.Choices) {
		return nil, ErrInputCancelled
	}
	c := s.Choices[s.next]
	s.next++
	return c, nil
}

// RecordingInput wraps a provider and records every resolved choice in
// order, so a finished session's decisions can be persisted and replayed
// through ScriptedInput.
type RecordingInput struct {
	Provider InputProvider
	Choices  []any
}

// Choose delegates to the wrapped provider and records the answer.
func (r *RecordingInput) Choose(req InputRequest) (any, error) {
	p := r.Provider
	if p == nil {
		p = autoInput{}
	}
	c, err := p.Choose(req)
	if err != nil {
		return nil, err
	}
	r.Choices = append(r.Choices, c)
	return c, nil
}

// autoInput deterministically picks the first legal option. Dry runs use
// it so canPerform can probe effects containing REQUEST_INPUT without
// consulting the real driver.
type autoInput struct{}

func (autoInput) Choose(req InputRequest) (any, error) {
	if len(req.Options) == 0 {
		return nil, ErrInputCancelled
	}
	if req.Multiselect {
		return []any{req.Options[0]}, nil
	}
	return req.Options[0], nil
}

// matchOption maps a driver-supplied choice back to the live option
// value it scalarizes to.
func matchOption(options []any, choice any) (any, bool) {
	for _, opt := range options {
		if scalarize(opt) == scalarize(choice) {
			return opt, true
		}
	}
	return nil, false
}

// validateChoice resolves a provider response against the live option
// set, returning the live value(s) to bind.
func validateChoice(options []any, choice any, multiselect bool) (any, error) {
	if multiselect {
		seq, ok := choice.([]any)
		if !ok {
			return nil, state.Errorf(state.ErrCodeInput, "multiselect input requires a list of choices, got %T", choice)
		}
		out := make([]any, 0, len(seq))
		for _, c := range seq {
			v, ok := matchOption(options, c)
			if !ok {
				return nil, state.Errorf(state.ErrCodeInput, "choice %v is not in the legal option set", c)
			}
			out = append(out, v)
		}
		return out, nil
	}
	v, ok := matchOption(options, choice)
	if !ok {
		return nil, state.Errorf(state.ErrCodeInput, "choice %v is not in the legal option set", choice)
	}
	return v, nil
}

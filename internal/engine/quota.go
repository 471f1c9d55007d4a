package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/cardcore/internal/def"
)

// DefaultMaxDepth is the default dispatch-depth quota per session step.
// It bounds rule cascades: each dispatched event counts one step, and a
// cascade that exceeds the limit terminates with DepthExceededError
// instead of starving the session.
const DefaultMaxDepth = 1000

// quotaTracker enforces once_per budgets and the dispatch-depth quota.
//
// once_per counters are keyed by rule id and reset on the matching window
// boundary: turn counters on turn.begin, phase counters on phase.enter,
// game counters never.
type quotaTracker struct {
	maxDepth int
	depth    int

	perTurn  map[string]int
	perPhase map[string]int
	perGame  map[string]int
}

func newQuotaTracker(maxDepth int) *quotaTracker {
	return &quotaTracker{
		maxDepth: maxDepth,
		perTurn:  make(map[string]int),
		perPhase: make(map[string]int),
		perGame:  make(map[string]int),
	}
}

// allow reports whether the rule's once_per budget permits another firing.
func (q *quotaTracker) allow(r *def.Rule) bool {
	switch r.OncePer {
	case def.OncePerTurn:
		return q.perTurn[r.ID] == 0
	case def.OncePerPhase:
		return q.perPhase[r.ID] == 0
	case def.OncePerGame:
		return q.perGame[r.ID] == 0
	default:
		return true
	}
}

// noteFiring consumes one unit of the rule's budget.
func (q *quotaTracker) noteFiring(r *def.Rule) {
	switch r.OncePer {
	case def.OncePerTurn:
		q.perTurn[r.ID]++
	case def.OncePerPhase:
		q.perPhase[r.ID]++
	case def.OncePerGame:
		q.perGame[r.ID]++
	}
}

// resetTurn clears per-turn budgets (and per-phase, since a new turn
// starts a new phase pass).
func (q *quotaTracker) resetTurn() {
	clearCounts(q.perTurn)
	clearCounts(q.perPhase)
}

// resetPhase clears per-phase budgets.
func (q *quotaTracker) resetPhase() {
	clearCounts(q.perPhase)
}

// checkDepth counts one dispatch step against the depth quota.
func (q *quotaTracker) checkDepth() error {
	q.depth++
	if q.depth > q.maxDepth {
		return &DepthExceededError{Steps: q.depth, Limit: q.maxDepth}
	}
	return nil
}

// resetDepth rearms the depth quota. Called at each externally driven
// step so the quota bounds a single cascade, not the whole session.
func (q *quotaTracker) resetDepth() {
	q.depth = 0
}

func clearCounts(m map[string]int) {
	for k := range m {
		delete(m, k)
	}
}

// DepthExceededError reports a rule cascade that exceeded the dispatch
// depth quota.
type DepthExceededError struct {
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("rule cascade exceeded dispatch depth quota: %d steps > %d limit", e.Steps, e.Limit)
}

// IsDepthExceeded reports whether err is a DepthExceededError.
// Uses errors.As to handle wrapped errors.
func IsDepthExceeded(err error) bool {
	var de *DepthExceededError
	return errors.As(err, &de)
}

package harness

import (
	"fmt"
	"reflect"

	"github.com/roach88/cardcore/internal/engine"
)

// applyAssertion checks one assertion against a finished scenario run.
func applyAssertion(r *Result, a Assertion) error {
	switch a.Type {
	case "trace_contains":
		return assertTraceContains(r.Trace, a)
	case "trace_order":
		return assertTraceOrder(r.Trace, a)
	case "trace_count":
		return assertTraceCount(r.Trace, a)
	case "final_result":
		return assertFinalResult(r, a)
	case "zone_count":
		return assertZoneCount(r, a)
	case "variable":
		return assertVariable(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that an event with the tag (and a subset
// of the context fields, when given) occurred.
func assertTraceContains(t *engine.Trace, a Assertion) error {
	for _, e := range t.Entries {
		if e.Tag != a.Tag {
			continue
		}
		if matchCtx(e.Ctx, a.Ctx) {
			return nil
		}
	}
	return fmt.Errorf("no event %q with ctx %v in trace of %d events", a.Tag, a.Ctx, len(t.Entries))
}

// assertTraceOrder checks that the tags occurred in the given relative
// order; intervening events are allowed.
func assertTraceOrder(t *engine.Trace, a Assertion) error {
	next := 0
	for _, e := range t.Entries {
		if next < len(a.Tags) && e.Tag == a.Tags[next] {
			next++
		}
	}
	if next < len(a.Tags) {
		return fmt.Errorf("tag %q (position %d of %d) never occurred in order", a.Tags[next], next+1, len(a.Tags))
	}
	return nil
}

// assertTraceCount checks the exact number of events with the tag.
func assertTraceCount(t *engine.Trace, a Assertion) error {
	n := 0
	for _, e := range t.Entries {
		if e.Tag == a.Tag {
			n++
		}
	}
	if n != a.Count {
		return fmt.Errorf("expected %d events %q, got %d", a.Count, a.Tag, n)
	}
	return nil
}

// assertFinalResult compares the win result.
func assertFinalResult(r *Result, a Assertion) error {
	if !equalValue(r.WinResult, a.Value) {
		return fmt.Errorf("expected result %v, got %v", a.Value, r.WinResult)
	}
	return nil
}

// assertZoneCount checks a zone instance's card count by key.
func assertZoneCount(r *Result, a Assertion) error {
	z := r.Final.ZoneByKey(a.Zone)
	if z == nil {
		return fmt.Errorf("unknown zone %q", a.Zone)
	}
	if z.Len() != a.Count {
		return fmt.Errorf("zone %q holds %d cards, expected %d", a.Zone, z.Len(), a.Count)
	}
	return nil
}

// assertVariable compares a stored variable's value.
func assertVariable(r *Result, a Assertion) error {
	p := r.Final.Player(a.Player)
	if a.Player != "" && p == nil {
		return fmt.Errorf("unknown player %q", a.Player)
	}
	v, ok := r.Final.StoredVar(a.Name, p)
	if !ok {
		return fmt.Errorf("variable %q not stored", a.Name)
	}
	if !equalValue(v, a.Value) {
		return fmt.Errorf("variable %q = %v, expected %v", a.Name, v, a.Value)
	}
	return nil
}

// matchCtx applies subset semantics: every expected field must be
// present with an equal scalarized value.
func matchCtx(got, want map[string]any) bool {
	for k, wv := range want {
		gv, ok := got[k]
		if !ok || !equalValue(gv, wv) {
			return false
		}
	}
	return true
}

// equalValue compares scalarized values, normalizing YAML's int to the
// runtime's int64.
func equalValue(a, b any) bool {
	if na, ok := toInt64(a); ok {
		nb, ok := toInt64(b)
		return ok && na == nb
	}
	return reflect.DeepEqual(a, b)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

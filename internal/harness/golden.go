package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cardcore/internal/state"
)

// RunWithGolden runs a scenario and compares its canonical trace
// against a golden file under testdata/golden. Regenerate with
// `go test -update`.
func RunWithGolden(t *testing.T, s *Scenario) *Result {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		t.Fatalf("scenario %s: %v", s.Name, err)
	}
	for _, e := range result.Errors {
		t.Errorf("scenario %s: %s", s.Name, e)
	}

	body, err := goldenBody(s, result)
	if err != nil {
		t.Fatalf("scenario %s: encode trace: %v", s.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden.json"),
	)
	g.Assert(t, s.Name, body)
	return result
}

// goldenBody renders the deterministic parts of a run as canonical
// JSON so golden diffs stay stable across runs.
func goldenBody(s *Scenario, r *Result) ([]byte, error) {
	entries := make([]map[string]any, 0, r.Trace.Len())
	for _, e := range r.Trace.Entries {
		entries = append(entries, map[string]any{
			"seq": e.Seq,
			"tag": e.Tag,
			"ctx": e.Ctx,
		})
	}
	return state.MarshalCanonical(map[string]any{
		"scenario":   s.Name,
		"seed":       s.Seed,
		"trace_hash": r.TraceHash,
		"events":     entries,
	})
}

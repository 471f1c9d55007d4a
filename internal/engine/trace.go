package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/cardcore/internal/state"
)

const domainTrace = "cardcore/trace/v1"

// TraceEntry is one dispatched event in scalarized form: cards, players,
// and zones appear as their stable identifiers.
type TraceEntry struct {
	Seq int64          `yaml:"seq" json:"seq"`
	Tag string         `yaml:"tag" json:"tag"`
	Ctx map[string]any `yaml:"ctx,omitempty" json:"ctx,omitempty"`
}

// Trace is the session's event log, in dispatch order. Two runs of the
// same definition with the same seed and the same scripted inputs
// produce byte-identical traces; Hash is the cheap way to compare them.
type Trace struct {
	Seed    int64        `yaml:"seed" json:"seed"`
	Entries []TraceEntry `yaml:"events" json:"events"`
}

// Record appends a dispatched event.
func (t *Trace) Record(ev Event) {
	t.Entries = append(t.Entries, TraceEntry{
		Seq: ev.Seq,
		Tag: ev.Tag,
		Ctx: scalarizeCtx(ev.Ctx),
	})
}

// Len returns the number of recorded events.
func (t *Trace) Len() int { return len(t.Entries) }

// Hash computes the domain-separated canonical content hash of the
// trace.
func (t *Trace) Hash() (string, error) {
	events := make([]any, len(t.Entries))
	for i, e := range t.Entries {
		m := map[string]any{"seq": e.Seq, "tag": e.Tag}
		if len(e.Ctx) > 0 {
			m["ctx"] = e.Ctx
		}
		events[i] = m
	}
	canonical, err := state.MarshalCanonical(map[string]any{
		"seed":   t.Seed,
		"events": events,
	})
	if err != nil {
		return "", fmt.Errorf("trace hash: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(domainTrace))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

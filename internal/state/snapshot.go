package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/roach88/cardcore/internal/def"
)

// Domain prefix for snapshot hashing. The version suffix enables future
// algorithm migration without id collisions.
const domainSnapshot = "cardcore/snapshot/v1"

// Snapshot is the serializable form of a State Model: everything needed to
// restore a session mid-game against the same definition. The encoding of a
// Snapshot at rest (JSON, a database row) belongs to the caller; this
// package only fixes its structure and canonical hash.
type Snapshot struct {
	Cards    []CardSnapshot   `json:"cards"`
	Zones    []ZoneSnapshot   `json:"zones"`
	Players  []PlayerSnapshot `json:"players"`
	Vars     map[string]any   `json:"vars,omitempty"`
	TeamVars map[string]any   `json:"team_vars,omitempty"`
	Flow     FlowSnapshot     `json:"flow"`
	RNGState string           `json:"rng_state"`
}

// CardSnapshot records one card's identity and mutable metadata.
type CardSnapshot struct {
	ID        string         `json:"id"`
	DeckType  string         `json:"deck_type"`
	Props     map[string]any `json:"props"`
	Face      string         `json:"face"`
	VisibleTo []string       `json:"visible_to,omitempty"`
}

// ZoneSnapshot records one zone instance's ordered contents.
type ZoneSnapshot struct {
	Key   string   `json:"key"`
	Cards []string `json:"cards"`
}

// PlayerSnapshot records one player's variables.
type PlayerSnapshot struct {
	ID   string         `json:"id"`
	Vars map[string]any `json:"vars,omitempty"`
}

// FlowSnapshot records the flow position.
type FlowSnapshot struct {
	State      string         `json:"state"`
	Phase      string         `json:"phase,omitempty"`
	PhaseIdx   int            `json:"phase_idx"`
	Phases     []string       `json:"phases,omitempty"`
	Direction  int            `json:"direction"`
	Turn       int            `json:"turn"`
	Current    int            `json:"current"`
	SkipNext   map[string]any `json:"skip_next,omitempty"`
	ExtraTurns map[string]any `json:"extra_turns,omitempty"`
	Finished   bool           `json:"finished"`
}

// Snapshot captures the model's current contents. Card and zone lists use
// the model's deterministic iteration orders so two identical states
// produce identical snapshots.
func (g *Game) Snapshot() *Snapshot {
	snap := &Snapshot{
		Vars:     copyAnyMap(g.Vars),
		RNGState: g.RNG.State(),
	}

	for _, id := range g.cardOrder {
		c := g.cards[id]
		snap.Cards = append(snap.Cards, CardSnapshot{
			ID:        c.ID,
			DeckType:  c.DeckType,
			Props:     copyAnyMap(c.Props),
			Face:      c.Face,
			VisibleTo: c.Grants(),
		})
	}

	g.EachZone(func(z *Zone) {
		zs := ZoneSnapshot{Key: z.Key, Cards: make([]string, 0, len(z.Cards))}
		for _, c := range z.Cards {
			zs.Cards = append(zs.Cards, c.ID)
		}
		snap.Zones = append(snap.Zones, zs)
	})

	for _, p := range g.Players {
		snap.Players = append(snap.Players, PlayerSnapshot{ID: p.ID, Vars: copyAnyMap(p.Vars)})
	}

	if len(g.TeamVars) > 0 {
		snap.TeamVars = make(map[string]any, len(g.TeamVars))
		for team, tv := range g.TeamVars {
			snap.TeamVars[team] = copyAnyMap(tv)
		}
	}

	snap.Flow = FlowSnapshot{
		State:     g.Flow.State,
		Phase:     g.Flow.Phase,
		PhaseIdx:  g.Flow.PhaseIdx,
		Phases:    append([]string(nil), g.Flow.Phases...),
		Direction: g.Flow.Direction,
		Turn:      g.Flow.Turn,
		Current:   g.Flow.Current,
		Finished:  g.Flow.Finished,
	}
	if len(g.Flow.SkipNext) > 0 {
		snap.Flow.SkipNext = make(map[string]any, len(g.Flow.SkipNext))
		for k, v := range g.Flow.SkipNext {
			snap.Flow.SkipNext[k] = int64(v)
		}
	}
	if len(g.Flow.ExtraTurns) > 0 {
		snap.Flow.ExtraTurns = make(map[string]any, len(g.Flow.ExtraTurns))
		for k, v := range g.Flow.ExtraTurns {
			snap.Flow.ExtraTurns[k] = int64(v)
		}
	}
	return snap
}

// Hash computes the snapshot's canonical content hash.
func (s *Snapshot) Hash() (string, error) {
	canonical, err := MarshalCanonical(s.toCanonicalMap())
	if err != nil {
		return "", fmt.Errorf("snapshot hash: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(domainSnapshot))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Snapshot) toCanonicalMap() map[string]any {
	cards := make([]any, len(s.Cards))
	for i, c := range s.Cards {
		m := map[string]any{
			"id":        c.ID,
			"deck_type": c.DeckType,
			"props":     c.Props,
			"face":      c.Face,
		}
		if len(c.VisibleTo) > 0 {
			m["visible_to"] = toAnySlice(c.VisibleTo)
		}
		cards[i] = m
	}
	zones := make([]any, len(s.Zones))
	for i, z := range s.Zones {
		zones[i] = map[string]any{"key": z.Key, "cards": toAnySlice(z.Cards)}
	}
	players := make([]any, len(s.Players))
	for i, p := range s.Players {
		players[i] = map[string]any{"id": p.ID, "vars": p.Vars}
	}
	flow := map[string]any{
		"state":     s.Flow.State,
		"phase":     s.Flow.Phase,
		"phase_idx": int64(s.Flow.PhaseIdx),
		"phases":    toAnySlice(s.Flow.Phases),
		"direction": int64(s.Flow.Direction),
		"turn":      int64(s.Flow.Turn),
		"current":   int64(s.Flow.Current),
		"finished":  s.Flow.Finished,
	}
	if len(s.Flow.SkipNext) > 0 {
		flow["skip_next"] = s.Flow.SkipNext
	}
	if len(s.Flow.ExtraTurns) > 0 {
		flow["extra_turns"] = s.Flow.ExtraTurns
	}
	out := map[string]any{
		"cards":     cards,
		"zones":     zones,
		"players":   players,
		"flow":      flow,
		"rng_state": s.RNGState,
	}
	if len(s.Vars) > 0 {
		out["vars"] = s.Vars
	}
	if len(s.TeamVars) > 0 {
		out["team_vars"] = s.TeamVars
	}
	return out
}

// CanonicalJSON serializes the snapshot as RFC 8785 canonical JSON, the
// same bytes Hash covers.
func (s *Snapshot) CanonicalJSON() ([]byte, error) {
	return MarshalCanonical(s.toCanonicalMap())
}

// SnapshotFromJSON decodes a snapshot serialized with CanonicalJSON.
// Numbers decode as int64, matching the runtime's integer-only values.
func SnapshotFromJSON(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for i := range s.Cards {
		s.Cards[i].Props, _ = intNumbers(s.Cards[i].Props).(map[string]any)
	}
	for i := range s.Players {
		s.Players[i].Vars, _ = intNumbers(s.Players[i].Vars).(map[string]any)
	}
	s.Vars, _ = intNumbers(s.Vars).(map[string]any)
	s.TeamVars, _ = intNumbers(s.TeamVars).(map[string]any)
	s.Flow.SkipNext, _ = intNumbers(s.Flow.SkipNext).(map[string]any)
	s.Flow.ExtraTurns, _ = intNumbers(s.Flow.ExtraTurns).(map[string]any)
	return &s, nil
}

func intNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = intNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = intNumbers(e)
		}
		return x
	default:
		return v
	}
}

// Restore reconstructs a State Model from a snapshot taken against the
// same definition.
func Restore(d *def.Game, snap *Snapshot) (*Game, error) {
	g, err := NewGame(d, 0)
	if err != nil {
		return nil, err
	}

	// Rebuild cards from the snapshot rather than the freshly
	// materialized set: ids and props must match exactly.
	g.cards = make(map[string]*Card, len(snap.Cards))
	g.cardOrder = g.cardOrder[:0]
	g.loc = make(map[string]*Zone)
	for _, cs := range snap.Cards {
		c := &Card{
			ID:       cs.ID,
			DeckType: cs.DeckType,
			Props:    copyAnyMap(cs.Props),
			Face:     cs.Face,
		}
		for _, viewer := range cs.VisibleTo {
			c.GrantVisibility(viewer)
		}
		g.cards[c.ID] = c
		g.cardOrder = append(g.cardOrder, c.ID)
	}

	// Clear materialized placement, then apply the snapshot's.
	g.EachZone(func(z *Zone) { z.Cards = nil })
	zoneByKey := make(map[string]*Zone)
	g.EachZone(func(z *Zone) { zoneByKey[z.Key] = z })
	for _, zs := range snap.Zones {
		z, ok := zoneByKey[zs.Key]
		if !ok {
			return nil, Errorf(ErrCodeLookup, "snapshot zone %q not in definition", zs.Key)
		}
		for _, id := range zs.Cards {
			c, ok := g.cards[id]
			if !ok {
				return nil, Errorf(ErrCodeLookup, "snapshot card %q unknown", id)
			}
			if g.loc[id] != nil {
				return nil, Errorf(ErrCodeInvariant, "snapshot places card %q in two zones", id)
			}
			z.Cards = append(z.Cards, c)
			g.loc[id] = z
		}
	}

	g.Vars = copyAnyMap(snap.Vars)
	if g.Vars == nil {
		g.Vars = make(map[string]any)
	}
	g.TeamVars = make(map[string]map[string]any, len(snap.TeamVars))
	for team, tv := range snap.TeamVars {
		m, ok := tv.(map[string]any)
		if !ok {
			return nil, Errorf(ErrCodeValidation, "snapshot team_vars[%q] malformed", team)
		}
		g.TeamVars[team] = copyAnyMap(m)
	}
	for _, ps := range snap.Players {
		p := g.Player(ps.ID)
		if p == nil {
			return nil, Errorf(ErrCodeLookup, "snapshot player %q not in definition", ps.ID)
		}
		p.Vars = copyAnyMap(ps.Vars)
		if p.Vars == nil {
			p.Vars = make(map[string]any)
		}
	}

	g.Flow = FlowPosition{
		State:      snap.Flow.State,
		Phase:      snap.Flow.Phase,
		PhaseIdx:   snap.Flow.PhaseIdx,
		Phases:     append([]string(nil), snap.Flow.Phases...),
		Direction:  snap.Flow.Direction,
		Turn:       snap.Flow.Turn,
		Current:    snap.Flow.Current,
		Finished:   snap.Flow.Finished,
		SkipNext:   make(map[string]int),
		ExtraTurns: make(map[string]int),
	}
	for k, v := range snap.Flow.SkipNext {
		if n, ok := v.(int64); ok {
			g.Flow.SkipNext[k] = int(n)
		}
	}
	for k, v := range snap.Flow.ExtraTurns {
		if n, ok := v.(int64); ok {
			g.Flow.ExtraTurns[k] = int(n)
		}
	}

	if err := g.RNG.RestoreState(snap.RNGState); err != nil {
		return nil, err
	}
	if err := g.CheckZoneInvariant(); err != nil {
		return nil, err
	}
	return g, nil
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

package def

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ValidationError is a runtime-semantics validation error with a field path
// and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the definition's runtime semantics: referential integrity
// between instances and type catalogs, enum fields, and the flow graph.
// Schema shape is the loader's concern; this only checks what the runtime
// depends on. Returns all errors, not fail-fast.
func (g *Game) Validate() []ValidationError {
	var errs []ValidationError

	fail := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(g.Players) == 0 {
		fail("players", "at least one player is required")
	}
	seenPlayers := make(map[string]bool)
	for i, p := range g.Players {
		if p.ID == "" {
			fail(fmt.Sprintf("players[%d].id", i), "player id is required")
		}
		if seenPlayers[p.ID] {
			fail(fmt.Sprintf("players[%d].id", i), "duplicate player id %q", p.ID)
		}
		seenPlayers[p.ID] = true
	}

	for i, dt := range g.DeckTypes {
		if dt.Name == "" {
			fail(fmt.Sprintf("deck_types[%d].name", i), "deck type name is required")
		}
		seenRanks := make(map[string]bool)
		for j, r := range dt.RankHierarchy {
			if seenRanks[r] {
				fail(fmt.Sprintf("deck_types[%d].rank_hierarchy[%d]", i, j), "duplicate rank symbol %q", r)
			}
			seenRanks[r] = true
		}
	}

	for i, zt := range g.ZoneTypes {
		switch zt.Ordering {
		case "", OrderingFIFO, OrderingLIFO, OrderingUnordered:
		default:
			fail(fmt.Sprintf("zone_types[%d].ordering", i), "invalid ordering %q", zt.Ordering)
		}
		switch zt.DefaultFace {
		case "", FaceUp, FaceDown:
		default:
			fail(fmt.Sprintf("zone_types[%d].default_face", i), "invalid default_face %q", zt.DefaultFace)
		}
		switch zt.Visibility {
		case "", VisibilityAll, VisibilityOwner, VisibilityNone:
		default:
			fail(fmt.Sprintf("zone_types[%d].visibility", i), "invalid visibility %q", zt.Visibility)
		}
	}

	for i, d := range g.Decks {
		if g.DeckType(d.Type) == nil {
			fail(fmt.Sprintf("decks[%d].type", i), "unknown deck type %q", d.Type)
		}
		if d.Into != "" && g.ZoneSpec(d.Into) == nil {
			fail(fmt.Sprintf("decks[%d].into", i), "unknown zone %q", d.Into)
		}
	}

	for i, z := range g.Zones {
		if g.ZoneType(z.Type) == nil {
			fail(fmt.Sprintf("zones[%d].type", i), "unknown zone type %q", z.Type)
		}
		switch z.Scope {
		case "", ScopeGlobal, ScopePerPlayer, ScopePerTeam:
		default:
			fail(fmt.Sprintf("zones[%d].scope", i), "invalid scope %q", z.Scope)
		}
		if z.OfDeck != "" && g.DeckType(z.OfDeck) == nil {
			fail(fmt.Sprintf("zones[%d].of_deck", i), "unknown deck type %q", z.OfDeck)
		}
	}

	for i, v := range g.Variables {
		switch v.Scope {
		case "", ScopeGlobal, ScopePerPlayer, ScopePerTeam:
		default:
			fail(fmt.Sprintf("variables[%d].scope", i), "invalid scope %q", v.Scope)
		}
	}

	if g.Flow.InitialState == "" {
		fail("flow.initial_state", "initial state is required")
	} else if g.Flow.State(g.Flow.InitialState) == nil {
		fail("flow.initial_state", "unknown state %q", g.Flow.InitialState)
	}
	switch g.Flow.Direction {
	case "", DirClockwise, DirCounterclockwise:
	default:
		fail("flow.direction", "invalid direction %q", g.Flow.Direction)
	}
	for i, t := range g.Flow.Transitions {
		if g.Flow.State(t.From) == nil {
			fail(fmt.Sprintf("flow.transitions[%d].from", i), "unknown state %q", t.From)
		}
		if g.Flow.State(t.To) == nil {
			fail(fmt.Sprintf("flow.transitions[%d].to", i), "unknown state %q", t.To)
		}
	}
	for i, s := range g.Flow.States {
		switch s.Loop {
		case "", LoopCycle, LoopHalt:
		default:
			fail(fmt.Sprintf("flow.states[%d].loop", i), "invalid loop %q", s.Loop)
		}
	}

	seenRules := make(map[string]bool)
	for i, r := range g.Rules {
		if r.ID == "" {
			fail(fmt.Sprintf("rules[%d].id", i), "rule id is required")
		}
		if seenRules[r.ID] {
			fail(fmt.Sprintf("rules[%d].id", i), "duplicate rule id %q", r.ID)
		}
		seenRules[r.ID] = true
		if r.Trigger == "" {
			fail(fmt.Sprintf("rules[%d].trigger", i), "trigger is required")
		}
		switch r.Timing {
		case "", TimingPre, TimingPost, TimingReplace:
		default:
			fail(fmt.Sprintf("rules[%d].timing", i), "invalid timing %q", r.Timing)
		}
		switch r.OncePer {
		case "", OncePerTurn, OncePerPhase, OncePerGame:
		default:
			fail(fmt.Sprintf("rules[%d].once_per", i), "invalid once_per %q", r.OncePer)
		}
		switch r.OnFailure {
		case "", FailAbort, FailContinue, FailRollback:
		default:
			fail(fmt.Sprintf("rules[%d].on_failure", i), "invalid on_failure %q", r.OnFailure)
		}
		errs = append(errs, validateActions(fmt.Sprintf("rules[%d].effect", i), r.Effect)...)
	}

	errs = append(errs, validateActions("setup", g.Setup)...)

	return errs
}

func validateActions(field string, actions []Action) []ValidationError {
	var errs []ValidationError
	for i, a := range actions {
		f := fmt.Sprintf("%s[%d]", field, i)
		if !KnownActions[a.Op] {
			errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("unknown action %q", a.Op)})
		}
		switch a.OnFailure {
		case "", FailAbort, FailContinue, FailRollback:
		default:
			errs = append(errs, ValidationError{Field: f + ".on_failure", Message: fmt.Sprintf("invalid on_failure %q", a.OnFailure)})
		}
		errs = append(errs, validateActions(f+".do", a.Do)...)
		errs = append(errs, validateActions(f+".then", a.Then)...)
		errs = append(errs, validateActions(f+".else", a.Else)...)
		for j, branch := range a.Branches {
			errs = append(errs, validateActions(fmt.Sprintf("%s.branches[%d]", f, j), branch)...)
		}
	}
	return errs
}

// UnmarshalYAML normalizes template literals (integers to int64, floats
// rejected) while decoding.
func (t *CardTemplate) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Count int            `yaml:"count"`
		Props map[string]any `yaml:"props"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	t.Count = raw.Count
	t.Props = make(map[string]Scalar, len(raw.Props))
	for k, v := range raw.Props {
		nv, err := normalizeScalar(v)
		if err != nil {
			return fmt.Errorf("props.%s: %w", k, err)
		}
		t.Props[k] = nv
	}
	return nil
}

// UnmarshalYAML normalizes the initial literal while decoding.
func (v *VariableDecl) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name     string `yaml:"name"`
		Scope    string `yaml:"scope"`
		Initial  any    `yaml:"initial"`
		Computed *Expr  `yaml:"computed"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v.Name = raw.Name
	v.Scope = raw.Scope
	v.Computed = raw.Computed
	init, err := normalizeScalar(raw.Initial)
	if err != nil {
		return fmt.Errorf("variable %s initial: %w", raw.Name, err)
	}
	v.Initial = init
	return nil
}

package state

import (
	"fmt"
	"strings"

	"github.com/roach88/cardcore/internal/def"
)

// FlowPosition tracks where the session sits in the flow machine.
//
// Phases is the live phase list for the current state: INSERT_PHASE and
// REMOVE_PHASE mutate it for this playthrough only, never the definition.
type FlowPosition struct {
	State    string
	Phase    string
	PhaseIdx int
	Phases   []string

	// Direction is +1 for clockwise, -1 for counterclockwise.
	Direction int
	Turn      int

	// Current is the seat index of the current player.
	Current int

	// SkipNext and ExtraTurns count pending SKIP_TURN / EXTRA_TURN
	// modifiers per player id.
	SkipNext   map[string]int
	ExtraTurns map[string]int

	Finished bool
	Result   any
}

// Game is the State Model for one session. It is exclusively owned by the
// session and mutated only through the gateway methods below; all other
// components treat it as read-only.
type Game struct {
	Def *def.Game

	// Players in seat order.
	Players []*Player

	// Zones holds global zone instances keyed by spec name and per_team
	// instances keyed "<spec>:<team>".
	Zones map[string]*Zone

	Vars     map[string]any
	TeamVars map[string]map[string]any

	Flow FlowPosition
	RNG  *RNG

	cards     map[string]*Card
	cardOrder []string
	loc       map[string]*Zone
}

// NewGame materializes a fresh State Model from a definition: players in
// declaration (seat) order, zone instances per scope, variables at their
// initial values, and every deck's composition expanded into cards placed
// in its into zone.
func NewGame(d *def.Game, seed int64) (*Game, error) {
	g := &Game{
		Def:      d,
		Zones:    make(map[string]*Zone),
		Vars:     make(map[string]any),
		TeamVars: make(map[string]map[string]any),
		RNG:      NewRNG(seed),
		cards:    make(map[string]*Card),
		loc:      make(map[string]*Zone),
	}
	g.Flow = FlowPosition{
		Direction:  1,
		SkipNext:   make(map[string]int),
		ExtraTurns: make(map[string]int),
	}
	if d.Flow.Direction == def.DirCounterclockwise {
		g.Flow.Direction = -1
	}

	teams := make(map[string]bool)
	for seat, ps := range d.Players {
		p := &Player{
			ID:    ps.ID,
			Seat:  seat,
			Team:  ps.Team,
			Vars:  make(map[string]any),
			Zones: make(map[string]*Zone),
		}
		g.Players = append(g.Players, p)
		if ps.Team != "" {
			teams[ps.Team] = true
		}
	}

	for i := range d.Zones {
		spec := &d.Zones[i]
		zt := d.ZoneType(spec.Type)
		switch spec.Scope {
		case def.ScopePerPlayer:
			for _, p := range g.Players {
				z := &Zone{
					Key:   spec.Name + ":" + p.ID,
					Spec:  spec,
					Type:  zt,
					Owner: p.ID,
				}
				p.Zones[spec.Name] = z
			}
		case def.ScopePerTeam:
			for team := range teams {
				z := &Zone{
					Key:   spec.Name + ":" + team,
					Spec:  spec,
					Type:  zt,
					Owner: team,
				}
				g.Zones[z.Key] = z
			}
		default:
			g.Zones[spec.Name] = &Zone{Key: spec.Name, Spec: spec, Type: zt}
		}
	}

	for _, v := range d.Variables {
		if v.Computed != nil {
			continue
		}
		switch v.Scope {
		case def.ScopePerPlayer:
			for _, p := range g.Players {
				p.Vars[v.Name] = v.Initial
			}
		case def.ScopePerTeam:
			for team := range teams {
				if g.TeamVars[team] == nil {
					g.TeamVars[team] = make(map[string]any)
				}
				g.TeamVars[team][v.Name] = v.Initial
			}
		default:
			g.Vars[v.Name] = v.Initial
		}
	}

	if err := g.materializeDecks(); err != nil {
		return nil, err
	}
	return g, nil
}

// materializeDecks expands each deck instance's composition into cards and
// places them in the deck's into zone.
func (g *Game) materializeDecks() error {
	for _, spec := range g.Def.Decks {
		dt := g.Def.DeckType(spec.Type)
		if dt == nil {
			return Errorf(ErrCodeLookup, "deck %q: unknown deck type %q", spec.Name, spec.Type)
		}
		var into *Zone
		if spec.Into != "" {
			z, ok := g.Zones[spec.Into]
			if !ok {
				return Errorf(ErrCodeLookup, "deck %q: into zone %q is not a global zone", spec.Name, spec.Into)
			}
			into = z
		}
		n := 0
		for _, tmpl := range dt.Composition {
			count := tmpl.Count
			if count <= 0 {
				count = 1
			}
			for i := 0; i < count; i++ {
				n++
				c := &Card{
					ID:       fmt.Sprintf("%s#%03d", spec.Name, n),
					DeckType: dt.Name,
					Props:    make(map[string]any, len(tmpl.Props)),
					Face:     def.FaceDown,
				}
				for k, v := range tmpl.Props {
					c.Props[k] = v
				}
				g.cards[c.ID] = c
				g.cardOrder = append(g.cardOrder, c.ID)
				if into != nil {
					c.Face = defaultFace(into.Type)
					into.Cards = append(into.Cards, c)
					g.loc[c.ID] = into
				}
			}
		}
	}
	return nil
}

// Player returns the player with the given id, or nil.
func (g *Game) Player(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerAt returns the player at the given seat using modular arithmetic.
func (g *Game) PlayerAt(seat int) *Player {
	n := len(g.Players)
	seat = ((seat % n) + n) % n
	return g.Players[seat]
}

// CurrentPlayer returns the player whose turn it is.
func (g *Game) CurrentPlayer() *Player {
	if len(g.Players) == 0 {
		return nil
	}
	return g.PlayerAt(g.Flow.Current)
}

// Card returns the card with the given id, or nil.
func (g *Game) Card(id string) *Card {
	return g.cards[id]
}

// CardCount returns the number of cards in the session.
func (g *Game) CardCount() int { return len(g.cards) }

// ZoneOf returns the zone a card currently belongs to.
func (g *Game) ZoneOf(c *Card) *Zone {
	return g.loc[c.ID]
}

// ZoneFor resolves the named zone relative to a player: the player's
// per_player instance, their team's per_team instance, or the global
// instance, in that order.
func (g *Game) ZoneFor(name string, p *Player) *Zone {
	if p != nil {
		if z, ok := p.Zones[name]; ok {
			return z
		}
		if p.Team != "" {
			if z, ok := g.Zones[name+":"+p.Team]; ok {
				return z
			}
		}
	}
	return g.Zones[name]
}

// ZoneByKey returns the zone with the given instance key: a global spec
// name, a "<spec>:<team>" per_team key, or a "<spec>:<player>"
// per_player key.
func (g *Game) ZoneByKey(key string) *Zone {
	if z, ok := g.Zones[key]; ok {
		return z
	}
	if i := strings.Index(key, ":"); i > 0 {
		if p := g.Player(key[i+1:]); p != nil {
			if z, ok := p.Zones[key[:i]]; ok {
				return z
			}
		}
	}
	return nil
}

// EachZone visits every zone instance in deterministic order: global and
// per_team zones in declaration order, then per_player zones in seat order.
func (g *Game) EachZone(fn func(*Zone)) {
	for i := range g.Def.Zones {
		spec := &g.Def.Zones[i]
		switch spec.Scope {
		case def.ScopePerPlayer:
			for _, p := range g.Players {
				if z, ok := p.Zones[spec.Name]; ok {
					fn(z)
				}
			}
		case def.ScopePerTeam:
			for _, p := range g.Players {
				// Visit each team instance once, at its first member.
				if p.Team == "" {
					continue
				}
				first := true
				for _, q := range g.Players {
					if q.Team == p.Team {
						first = q == p
						break
					}
				}
				if first {
					if z, ok := g.Zones[spec.Name+":"+p.Team]; ok {
						fn(z)
					}
				}
			}
		default:
			if z, ok := g.Zones[spec.Name]; ok {
				fn(z)
			}
		}
	}
}

// MoveCard transfers a card to the destination zone: a transactional
// removal-from-source plus insertion-into-destination. The card takes the
// destination's default face. This is the only way zone membership changes;
// it enforces the single-zone invariant and fails fatally on violation.
func (g *Game) MoveCard(c *Card, to *Zone) error {
	if c == nil {
		return Errorf(ErrCodeLookup, "move: nil card")
	}
	if to == nil {
		return Errorf(ErrCodeLookup, "move: nil destination zone")
	}
	from := g.loc[c.ID]
	if from != nil {
		i := from.indexOf(c)
		if i < 0 {
			return Errorf(ErrCodeInvariant, "card %s tracked in zone %s but not present", c.ID, from.Key)
		}
		from.release(i)
	}
	if to.indexOf(c) >= 0 {
		return Errorf(ErrCodeInvariant, "card %s already present in zone %s", c.ID, to.Key)
	}
	to.admit(c)
	g.loc[c.ID] = to
	c.Face = defaultFace(to.Type)
	return nil
}

// ReorderZone replaces the zone's card order with the given permutation.
// The permutation must contain exactly the zone's current cards.
func (g *Game) ReorderZone(z *Zone, order []*Card) error {
	if len(order) != len(z.Cards) {
		return Errorf(ErrCodeAction, "reorder: permutation size %d != zone size %d", len(order), len(z.Cards))
	}
	seen := make(map[string]bool, len(order))
	for _, c := range order {
		if g.loc[c.ID] != z {
			return Errorf(ErrCodeInvariant, "reorder: card %s is not in zone %s", c.ID, z.Key)
		}
		if seen[c.ID] {
			return Errorf(ErrCodeInvariant, "reorder: card %s duplicated in permutation", c.ID)
		}
		seen[c.ID] = true
	}
	z.Cards = append(z.Cards[:0:0], order...)
	return nil
}

// SetVar writes a stored variable per its declared scope. Computed
// variables never hold stored state and cannot be written.
func (g *Game) SetVar(name string, p *Player, v any) error {
	decl := g.Def.Variable(name)
	if decl == nil {
		return Errorf(ErrCodeBinding, "unknown variable %q", name)
	}
	if decl.Computed != nil {
		return Errorf(ErrCodeAction, "variable %q is computed and cannot be written", name)
	}
	switch decl.Scope {
	case def.ScopePerPlayer:
		if p == nil {
			return Errorf(ErrCodeAction, "variable %q is per_player but no player is in scope", name)
		}
		p.Vars[name] = v
	case def.ScopePerTeam:
		if p == nil || p.Team == "" {
			return Errorf(ErrCodeAction, "variable %q is per_team but no team is in scope", name)
		}
		if g.TeamVars[p.Team] == nil {
			g.TeamVars[p.Team] = make(map[string]any)
		}
		g.TeamVars[p.Team][name] = v
	default:
		g.Vars[name] = v
	}
	return nil
}

// StoredVar reads a stored (non-computed) variable per its declared scope.
// The boolean reports whether the variable is declared and stored.
func (g *Game) StoredVar(name string, p *Player) (any, bool) {
	decl := g.Def.Variable(name)
	if decl == nil || decl.Computed != nil {
		return nil, false
	}
	switch decl.Scope {
	case def.ScopePerPlayer:
		if p == nil {
			return nil, false
		}
		v, ok := p.Vars[name]
		return v, ok
	case def.ScopePerTeam:
		if p == nil || p.Team == "" {
			return nil, false
		}
		tv, ok := g.TeamVars[p.Team]
		if !ok {
			return nil, false
		}
		v, ok := tv[name]
		return v, ok
	default:
		v, ok := g.Vars[name]
		return v, ok
	}
}

// CheckZoneInvariant verifies that every card belongs to exactly one zone
// and that the location index agrees with zone contents. Any violation is
// fatal to the session.
func (g *Game) CheckZoneInvariant() error {
	counts := make(map[string]int, len(g.cards))
	var err error
	g.EachZone(func(z *Zone) {
		for _, c := range z.Cards {
			counts[c.ID]++
			if g.loc[c.ID] != z && err == nil {
				err = Errorf(ErrCodeInvariant, "card %s present in zone %s but tracked in another", c.ID, z.Key)
			}
		}
	})
	if err != nil {
		return err
	}
	for _, id := range g.cardOrder {
		if g.loc[id] == nil {
			continue // never placed; decks without an into zone
		}
		if counts[id] != 1 {
			return Errorf(ErrCodeInvariant, "card %s belongs to %d zones", id, counts[id])
		}
	}
	return nil
}

// Clone deep-copies the State Model, including the PRNG state. Used for
// dry runs, rollback staging, and snapshots; the clone shares only the
// immutable definition with the original.
func (g *Game) Clone() *Game {
	ng := &Game{
		Def:       g.Def,
		Zones:     make(map[string]*Zone, len(g.Zones)),
		Vars:      make(map[string]any, len(g.Vars)),
		TeamVars:  make(map[string]map[string]any, len(g.TeamVars)),
		RNG:       g.RNG.clone(),
		cards:     make(map[string]*Card, len(g.cards)),
		cardOrder: append([]string(nil), g.cardOrder...),
		loc:       make(map[string]*Zone, len(g.loc)),
	}

	for id, c := range g.cards {
		ng.cards[id] = c.clone()
	}
	for k, z := range g.Zones {
		ng.Zones[k] = z.clone(ng.cards)
	}
	for _, p := range g.Players {
		ng.Players = append(ng.Players, p.clone(ng.cards))
	}
	for k, v := range g.Vars {
		ng.Vars[k] = v
	}
	for team, tv := range g.TeamVars {
		ntv := make(map[string]any, len(tv))
		for k, v := range tv {
			ntv[k] = v
		}
		ng.TeamVars[team] = ntv
	}

	ng.Flow = g.Flow
	ng.Flow.Phases = append([]string(nil), g.Flow.Phases...)
	ng.Flow.SkipNext = make(map[string]int, len(g.Flow.SkipNext))
	for k, v := range g.Flow.SkipNext {
		ng.Flow.SkipNext[k] = v
	}
	ng.Flow.ExtraTurns = make(map[string]int, len(g.Flow.ExtraTurns))
	for k, v := range g.Flow.ExtraTurns {
		ng.Flow.ExtraTurns[k] = v
	}

	// Rebuild the location index against the cloned zones.
	ng.EachZone(func(z *Zone) {
		for _, c := range z.Cards {
			ng.loc[c.ID] = z
		}
	})
	return ng
}

// RestoreFrom adopts another model's contents in place, keeping the
// receiver's pointer identity. Used by rollback to revert an effect's
// staged mutations as one unit.
func (g *Game) RestoreFrom(o *Game) {
	*g = *o
}

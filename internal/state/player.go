package state

// Player is one seat at the table.
type Player struct {
	ID   string
	Seat int
	Team string

	// Vars holds per_player variable bindings.
	Vars map[string]any

	// Zones holds this player's per_player zone instances, keyed by the
	// zone spec name.
	Zones map[string]*Zone
}

// Zone returns the player's instance of the named zone, or nil.
func (p *Player) Zone(name string) *Zone {
	return p.Zones[name]
}

// clone deep-copies the player using the card mapping built by Game.Clone.
func (p *Player) clone(cards map[string]*Card) *Player {
	np := &Player{
		ID:    p.ID,
		Seat:  p.Seat,
		Team:  p.Team,
		Vars:  make(map[string]any, len(p.Vars)),
		Zones: make(map[string]*Zone, len(p.Zones)),
	}
	for k, v := range p.Vars {
		np.Vars[k] = v
	}
	for k, z := range p.Zones {
		np.Zones[k] = z.clone(cards)
	}
	return np
}

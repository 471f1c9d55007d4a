package state

import "github.com/roach88/cardcore/internal/def"

// Zone is a zone instance: an ordered container of card references.
//
// Ordering convention, applied uniformly:
//   - Cards[0] is the top of the zone; the last element is the bottom.
//   - fifo zones admit new cards at the bottom and release from the top.
//   - lifo zones admit new cards at the top and release from the top.
//   - unordered zones keep stable insertion order (append) so that
//     iteration stays deterministic; top/bottom still address the ends.
type Zone struct {
	// Key is the zone instance identifier: the spec name for global
	// zones, "<spec>:<player>" for per_player instances.
	Key string

	Spec *def.ZoneSpec
	Type *def.ZoneType

	// Owner is the controlling player id for per_player zones, or the
	// team id for per_team zones, else "".
	Owner string

	Cards []*Card
}

// Top returns the top card, or nil when empty.
func (z *Zone) Top() *Card {
	if len(z.Cards) == 0 {
		return nil
	}
	return z.Cards[0]
}

// Bottom returns the bottom card, or nil when empty.
func (z *Zone) Bottom() *Card {
	if len(z.Cards) == 0 {
		return nil
	}
	return z.Cards[len(z.Cards)-1]
}

// Len returns the number of cards in the zone.
func (z *Zone) Len() int { return len(z.Cards) }

// PerPlayer reports whether the zone is a per_player instance.
func (z *Zone) PerPlayer() bool {
	return z.Spec != nil && z.Spec.Scope == def.ScopePerPlayer
}

// DeckContext returns the deck type associated with this zone for bare
// rank-literal resolution, or "".
func (z *Zone) DeckContext() string {
	if z.Spec == nil {
		return ""
	}
	return z.Spec.OfDeck
}

// indexOf returns the card's position in the zone, or -1.
func (z *Zone) indexOf(c *Card) int {
	for i, zc := range z.Cards {
		if zc == c {
			return i
		}
	}
	return -1
}

// admit inserts a card per the zone's ordering policy.
func (z *Zone) admit(c *Card) {
	if z.Type != nil && z.Type.Ordering == def.OrderingLIFO {
		z.Cards = append([]*Card{c}, z.Cards...)
		return
	}
	z.Cards = append(z.Cards, c)
}

// release removes the card at index i.
func (z *Zone) release(i int) {
	z.Cards = append(z.Cards[:i], z.Cards[i+1:]...)
}

// clone deep-copies the zone using the card mapping built by Game.Clone.
func (z *Zone) clone(cards map[string]*Card) *Zone {
	nz := &Zone{
		Key:   z.Key,
		Spec:  z.Spec,
		Type:  z.Type,
		Owner: z.Owner,
		Cards: make([]*Card, len(z.Cards)),
	}
	for i, c := range z.Cards {
		nz.Cards[i] = cards[c.ID]
	}
	return nz
}

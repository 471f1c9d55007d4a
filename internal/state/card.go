package state

import (
	"sort"

	"github.com/roach88/cardcore/internal/def"
)

// Card is a single card instance. The ID is unique for the session and
// stable across zone moves. Cards are created at setup from deck
// composition templates and persist for the whole session; only their zone
// membership, face, and visibility metadata change.
type Card struct {
	ID       string
	DeckType string
	Props    map[string]any
	Face     string

	// visibleTo holds per-player PEEK/LOOK grants. A grant lasts for the
	// rest of the session; CONCEAL revokes it. Face-up cards in an
	// all-visible zone are observable regardless of grants.
	visibleTo map[string]bool
}

// Prop returns a card property value and whether it exists.
func (c *Card) Prop(name string) (any, bool) {
	v, ok := c.Props[name]
	return v, ok
}

// Rank returns the card's raw rank property, or "" if absent.
func (c *Card) Rank() string {
	if v, ok := c.Props["rank"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GrantVisibility permits the given player to observe this card.
func (c *Card) GrantVisibility(playerID string) {
	if c.visibleTo == nil {
		c.visibleTo = make(map[string]bool)
	}
	c.visibleTo[playerID] = true
}

// RevokeVisibility removes a player's grant.
func (c *Card) RevokeVisibility(playerID string) {
	delete(c.visibleTo, playerID)
}

// VisibleTo reports whether the player holds an explicit grant.
func (c *Card) VisibleTo(playerID string) bool {
	return c.visibleTo[playerID]
}

// Grants returns the grant holders in sorted order.
func (c *Card) Grants() []string {
	if len(c.visibleTo) == 0 {
		return nil
	}
	ids := make([]string, 0, len(c.visibleTo))
	for id := range c.visibleTo {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SameIdentity reports whether two cards carry the same deck type and the
// same full property set. distinct uses this for composite deduplication.
func (c *Card) SameIdentity(o *Card) bool {
	if c.DeckType != o.DeckType || len(c.Props) != len(o.Props) {
		return false
	}
	for k, v := range c.Props {
		ov, ok := o.Props[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// clone deep-copies the card.
func (c *Card) clone() *Card {
	nc := &Card{
		ID:       c.ID,
		DeckType: c.DeckType,
		Face:     c.Face,
		Props:    make(map[string]any, len(c.Props)),
	}
	for k, v := range c.Props {
		nc.Props[k] = v
	}
	if len(c.visibleTo) > 0 {
		nc.visibleTo = make(map[string]bool, len(c.visibleTo))
		for k, v := range c.visibleTo {
			nc.visibleTo[k] = v
		}
	}
	return nc
}

// defaultFace returns the face a card takes when entering a zone.
func defaultFace(zt *def.ZoneType) string {
	if zt != nil && zt.DefaultFace != "" {
		return zt.DefaultFace
	}
	return def.FaceDown
}

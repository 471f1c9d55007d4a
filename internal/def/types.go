package def

import "fmt"

// Meta carries document-level settings for a game definition.
type Meta struct {
	Name string  `yaml:"name" json:"name"`
	RNG  RNGSpec `yaml:"rng,omitempty" json:"rng,omitempty"`
}

// RNGSpec configures the session PRNG.
//
// When Deterministic is true the engine seeds its single PRNG with Seed and
// replay with the same seed reproduces the same draws. When false the engine
// may pick a seed itself but must still log the seed actually used.
type RNGSpec struct {
	Deterministic bool  `yaml:"deterministic,omitempty" json:"deterministic,omitempty"`
	Seed          int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// DeckType is a catalog entry describing a kind of deck: the cards it is
// composed of and the rank ordering used by rank_value.
type DeckType struct {
	Name        string         `yaml:"name" json:"name"`
	Composition []CardTemplate `yaml:"composition" json:"composition"`

	// RankHierarchy lists rank symbols from lowest to highest.
	// rank_value ordinals are 1-based: the first symbol has value 1.
	RankHierarchy []string `yaml:"rank_hierarchy,omitempty" json:"rank_hierarchy,omitempty"`
}

// CardTemplate describes one or more identical cards in a deck composition.
// Count defaults to 1 when omitted.
type CardTemplate struct {
	Count int               `yaml:"count,omitempty" json:"count,omitempty"`
	Props map[string]Scalar `yaml:"props" json:"props"`
}

// Scalar is a literal property value: string, int64, or bool.
// Floats are rejected at load time.
type Scalar = any

// Zone ordering policies.
const (
	OrderingFIFO      = "fifo"
	OrderingLIFO      = "lifo"
	OrderingUnordered = "unordered"
)

// Zone visibility policies.
const (
	VisibilityAll   = "all"
	VisibilityOwner = "owner"
	VisibilityNone  = "none"
)

// Card face orientations.
const (
	FaceUp   = "up"
	FaceDown = "down"
)

// Zone owner scopes.
const (
	ScopeGlobal    = "global"
	ScopePerPlayer = "per_player"
	ScopePerTeam   = "per_team"
)

// ZoneType is a catalog entry describing a kind of zone.
type ZoneType struct {
	Name          string `yaml:"name" json:"name"`
	Ordering      string `yaml:"ordering,omitempty" json:"ordering,omitempty"`
	Visibility    string `yaml:"visibility,omitempty" json:"visibility,omitempty"`
	DefaultFace   string `yaml:"default_face,omitempty" json:"default_face,omitempty"`
	AllowsReorder bool   `yaml:"allows_reorder,omitempty" json:"allows_reorder,omitempty"`
}

// DeckSpec is a deck instance: a named deck built from a deck type's
// composition at setup.
type DeckSpec struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`

	// Into names the zone the composed cards are placed in at setup.
	Into string `yaml:"into,omitempty" json:"into,omitempty"`
}

// ZoneSpec is a zone instance. Scope "per_player" materializes one zone per
// player at setup; "global" materializes exactly one.
type ZoneSpec struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type"`
	Scope string `yaml:"scope,omitempty" json:"scope,omitempty"`

	// OfDeck associates the zone with a deck type so that bare rank
	// literals selected relative to this zone can resolve rank_value.
	OfDeck string `yaml:"of_deck,omitempty" json:"of_deck,omitempty"`
}

// VariableDecl declares a game variable.
//
// Computed variables never hold stored state: Computed is re-evaluated on
// every read and Initial is ignored.
type VariableDecl struct {
	Name    string `yaml:"name" json:"name"`
	Scope   string `yaml:"scope,omitempty" json:"scope,omitempty"`
	Initial Scalar `yaml:"initial,omitempty" json:"initial,omitempty"`

	Computed *Expr `yaml:"computed,omitempty" json:"computed,omitempty"`
}

// PlayerSpec declares a seat. Seat order is the declaration order.
type PlayerSpec struct {
	ID   string `yaml:"id" json:"id"`
	Team string `yaml:"team,omitempty" json:"team,omitempty"`
}

// Game is the root of an immutable, already-merged, schema-valid game
// definition. The loader (internal/compiler) produces it; the engine only
// reads it.
type Game struct {
	Meta      Meta           `yaml:"meta,omitempty" json:"meta,omitempty"`
	DeckTypes []DeckType     `yaml:"deck_types" json:"deck_types"`
	ZoneTypes []ZoneType     `yaml:"zone_types" json:"zone_types"`
	Decks     []DeckSpec     `yaml:"decks" json:"decks"`
	Zones     []ZoneSpec     `yaml:"zones" json:"zones"`
	Players   []PlayerSpec   `yaml:"players" json:"players"`
	Variables []VariableDecl `yaml:"variables,omitempty" json:"variables,omitempty"`
	Setup     []Action       `yaml:"setup,omitempty" json:"setup,omitempty"`
	Flow      Flow           `yaml:"flow" json:"flow"`
	Rules     []Rule         `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// DeckType returns the named deck type, or nil.
func (g *Game) DeckType(name string) *DeckType {
	for i := range g.DeckTypes {
		if g.DeckTypes[i].Name == name {
			return &g.DeckTypes[i]
		}
	}
	return nil
}

// ZoneType returns the named zone type, or nil.
func (g *Game) ZoneType(name string) *ZoneType {
	for i := range g.ZoneTypes {
		if g.ZoneTypes[i].Name == name {
			return &g.ZoneTypes[i]
		}
	}
	return nil
}

// ZoneSpec returns the named zone instance spec, or nil.
func (g *Game) ZoneSpec(name string) *ZoneSpec {
	for i := range g.Zones {
		if g.Zones[i].Name == name {
			return &g.Zones[i]
		}
	}
	return nil
}

// Variable returns the named variable declaration, or nil.
func (g *Game) Variable(name string) *VariableDecl {
	for i := range g.Variables {
		if g.Variables[i].Name == name {
			return &g.Variables[i]
		}
	}
	return nil
}

// RankValue resolves a rank symbol to its 1-based ordinal in the deck
// type's rank hierarchy. The boolean reports whether the symbol exists.
func (d *DeckType) RankValue(symbol string) (int64, bool) {
	for i, r := range d.RankHierarchy {
		if r == symbol {
			return int64(i + 1), true
		}
	}
	return 0, false
}

// Size returns the total number of cards in the deck type's composition.
func (d *DeckType) Size() int {
	n := 0
	for _, t := range d.Composition {
		c := t.Count
		if c <= 0 {
			c = 1
		}
		n += c
	}
	return n
}

// normalizeScalar coerces YAML-decoded literals into the closed scalar set.
// Integers become int64; floats are rejected.
func normalizeScalar(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case bool:
		return x, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		return int64(x), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in game definitions: %v", x)
	default:
		return nil, fmt.Errorf("unsupported literal type %T", v)
	}
}

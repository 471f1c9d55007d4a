package selector

import (
	"strconv"
	"strings"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/state"
)

// ComputedFunc evaluates a computed variable's expression. The engine wires
// the expression evaluator in here; the resolver itself stays expression
// agnostic.
type ComputedFunc func(e *def.Expr, g *state.Game, ctx *state.Context) (any, error)

// Resolver evaluates selector strings against a State Model.
type Resolver struct {
	// Computed evaluates computed-variable expressions on read. Computed
	// variables are never cached across state mutation; every read
	// re-evaluates.
	Computed ComputedFunc
}

// Resolve evaluates one selector. The result is one of: *state.Card,
// []*state.Card, *state.Player, []*state.Player, *state.Zone,
// []*state.Zone, or a scalar.
func (r *Resolver) Resolve(sel string, g *state.Game, ctx *state.Context) (any, error) {
	substituted, err := substituteRefs(sel, ctx)
	if err != nil {
		return nil, err
	}
	p, err := parse(substituted)
	if err != nil {
		return nil, err
	}

	if p.fn != "" {
		inner, err := r.Resolve(p.inner, g, ctx)
		if err != nil {
			return nil, err
		}
		return r.applyFunc(p.fn, inner, g)
	}

	if p.anchor == "$player" {
		if ctx != nil && ctx.Env != nil {
			if v, ok := ctx.Env.Lookup("$player"); ok {
				return v, nil
			}
		}
		if ctx != nil && ctx.Player != nil {
			return ctx.Player, nil
		}
		return nil, state.Errorf(state.ErrCodeBinding, "$player is not bound")
	}

	return r.walk(p.segs, g, ctx, sel)
}

// walk descends the dotted path.
func (r *Resolver) walk(segs []segment, g *state.Game, ctx *state.Context, original string) (any, error) {
	if len(segs) == 0 {
		return nil, state.Errorf(state.ErrCodeSelector, "selector %q addresses nothing", original)
	}

	var cursor any
	i := 0

	head := segs[0]
	switch head.name {
	case "players":
		players := append([]*state.Player(nil), g.Players...)
		v, err := applyPlayerFilter(players, head.filter, g, ctx)
		if err != nil {
			return nil, err
		}
		cursor = v
		i = 1

	case "zones":
		if len(segs) < 2 {
			return nil, state.Errorf(state.ErrCodeSelector, "$.zones requires a zone name")
		}
		zseg := segs[1]
		z, ok := g.Zones[zseg.name]
		if !ok {
			if spec := g.Def.ZoneSpec(zseg.name); spec != nil && spec.Scope == def.ScopePerPlayer {
				return nil, state.Errorf(state.ErrCodeLookup, "zone %q is per_player; address it through a player", zseg.name)
			}
			return nil, state.Errorf(state.ErrCodeLookup, "unknown global zone %q", zseg.name)
		}
		v, err := applyZoneFilter(z, zseg.filter)
		if err != nil {
			return nil, err
		}
		cursor = v
		i = 2

	case "shared_zones":
		return nil, state.Errorf(state.ErrCodeSelector, "$.shared_zones is not a valid root; global zones live at $.zones")

	case "card":
		if ctx == nil || ctx.Card == nil {
			return nil, state.Errorf(state.ErrCodeLookup, "$.card is only bound during filter evaluation")
		}
		cursor = ctx.Card
		i = 1

	case "event":
		if len(segs) < 2 {
			return nil, state.Errorf(state.ErrCodeSelector, "$.event requires a field name")
		}
		if ctx == nil || ctx.Event == nil {
			return nil, state.Errorf(state.ErrCodeLookup, "no event in scope")
		}
		v, ok := ctx.Event[segs[1].name]
		if !ok {
			return nil, state.Errorf(state.ErrCodeLookup, "event has no field %q", segs[1].name)
		}
		cursor = v
		i = 2

	case "vars":
		if len(segs) < 2 {
			return nil, state.Errorf(state.ErrCodeSelector, "$.vars requires a variable name")
		}
		return r.readVar(segs[1].name, nil, g, ctx)

	default:
		return nil, state.Errorf(state.ErrCodeSelector, "unknown root segment %q in %q", head.name, original)
	}

	for i < len(segs) {
		seg := segs[i]
		switch c := cursor.(type) {
		case *state.Player:
			v, consumed, err := r.playerAttr(c, segs[i:], g, ctx)
			if err != nil {
				return nil, err
			}
			cursor = v
			i += consumed

		case []*state.Player:
			// Attribute access over a player sequence maps elementwise,
			// preserving seating order.
			var out []any
			consumed := 0
			for _, p := range c {
				v, n, err := r.playerAttr(p, segs[i:], g, ctx)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
				consumed = n
			}
			cursor = normalizeSlice(out)
			i += consumed

		case *state.Zone:
			return nil, state.Errorf(state.ErrCodeSelector, "cannot descend into zone with %q; use top/bottom/all", seg.name)

		default:
			return nil, state.Errorf(state.ErrCodeSelector, "cannot descend into %T with %q", cursor, seg.name)
		}
	}
	return cursor, nil
}

// playerAttr resolves one attribute step on a player, returning how many
// segments it consumed.
func (r *Resolver) playerAttr(p *state.Player, segs []segment, g *state.Game, ctx *state.Context) (any, int, error) {
	switch segs[0].name {
	case "zones":
		if len(segs) < 2 {
			return nil, 0, state.Errorf(state.ErrCodeSelector, "zones requires a zone name")
		}
		zseg := segs[1]
		z := g.ZoneFor(zseg.name, p)
		if z == nil {
			return nil, 0, state.Errorf(state.ErrCodeLookup, "player %s has no zone %q", p.ID, zseg.name)
		}
		v, err := applyZoneFilter(z, zseg.filter)
		if err != nil {
			return nil, 0, err
		}
		return v, 2, nil
	case "vars":
		if len(segs) < 2 {
			return nil, 0, state.Errorf(state.ErrCodeSelector, "vars requires a variable name")
		}
		v, err := r.readVar(segs[1].name, p, g, ctx)
		if err != nil {
			return nil, 0, err
		}
		return v, 2, nil
	case "id":
		return p.ID, 1, nil
	case "team":
		return p.Team, 1, nil
	case "seat":
		return int64(p.Seat), 1, nil
	default:
		return nil, 0, state.Errorf(state.ErrCodeSelector, "unknown player attribute %q", segs[0].name)
	}
}

// readVar reads a variable: stored values directly, computed values by
// re-evaluating their expression through the wired evaluator.
func (r *Resolver) readVar(name string, p *state.Player, g *state.Game, ctx *state.Context) (any, error) {
	decl := g.Def.Variable(name)
	if decl == nil {
		return nil, state.Errorf(state.ErrCodeLookup, "unknown variable %q", name)
	}
	if decl.Computed != nil {
		if r.Computed == nil {
			return nil, state.Errorf(state.ErrCodeValidation, "computed variable %q read without an evaluator", name)
		}
		cctx := ctx
		if p != nil && ctx != nil {
			cctx = ctx.WithPlayer(p)
		}
		return r.Computed(decl.Computed, g, cctx)
	}
	v, ok := g.StoredVar(name, p)
	if !ok {
		return nil, state.Errorf(state.ErrCodeLookup, "variable %q has no value in this scope", name)
	}
	return v, nil
}

// applyFunc applies a function form to its resolved operand.
func (r *Resolver) applyFunc(fn string, v any, g *state.Game) (any, error) {
	switch fn {
	case fnTop, fnBottom:
		z, ok := v.(*state.Zone)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "%s() requires a zone, got %T", fn, v)
		}
		var c *state.Card
		if fn == fnTop {
			c = z.Top()
		} else {
			c = z.Bottom()
		}
		if c == nil {
			return nil, state.Errorf(state.ErrCodeLookup, "zone %s is empty", z.Key)
		}
		return c, nil

	case fnAll:
		switch x := v.(type) {
		case *state.Zone:
			return append([]*state.Card(nil), x.Cards...), nil
		case []*state.Card:
			return x, nil
		default:
			return nil, state.Errorf(state.ErrCodeType, "all() requires a zone or card sequence, got %T", v)
		}

	case fnCount:
		switch x := v.(type) {
		case *state.Zone:
			return int64(x.Len()), nil
		case []*state.Card:
			return int64(len(x)), nil
		case []*state.Player:
			return int64(len(x)), nil
		case []*state.Zone:
			return int64(len(x)), nil
		case []any:
			return int64(len(x)), nil
		default:
			return nil, state.Errorf(state.ErrCodeType, "count() requires a sequence or zone, got %T", v)
		}

	case fnOwner:
		c, ok := v.(*state.Card)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "owner() requires a card, got %T", v)
		}
		z := g.ZoneOf(c)
		if z == nil {
			return nil, state.Errorf(state.ErrCodeLookup, "card %s is not in any zone", c.ID)
		}
		if !z.PerPlayer() {
			return nil, state.Errorf(state.ErrCodeLookup, "owner() on zone %s which is not per_player", z.Key)
		}
		return z.Owner, nil

	case fnRank:
		c, ok := v.(*state.Card)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "rank() requires a card, got %T", v)
		}
		rank, ok := c.Prop("rank")
		if !ok {
			return nil, state.Errorf(state.ErrCodeLookup, "card %s has no rank property", c.ID)
		}
		return rank, nil

	case fnRankValue:
		c, ok := v.(*state.Card)
		if !ok {
			return nil, state.Errorf(state.ErrCodeType, "rank_value() requires a card, got %T", v)
		}
		return CardRankValue(c, g)

	default:
		return nil, state.Errorf(state.ErrCodeSelector, "unknown function %q", fn)
	}
}

// CardRankValue resolves a card's rank to its ordinal through the
// originating deck type's rank hierarchy.
func CardRankValue(c *state.Card, g *state.Game) (int64, error) {
	dt := g.Def.DeckType(c.DeckType)
	if dt == nil || len(dt.RankHierarchy) == 0 {
		return 0, state.Errorf(state.ErrCodeAmbiguousDeck, "card %s has no deck rank hierarchy", c.ID)
	}
	rank := c.Rank()
	if rank == "" {
		return 0, state.Errorf(state.ErrCodeLookup, "card %s has no rank property", c.ID)
	}
	v, ok := dt.RankValue(rank)
	if !ok {
		return 0, state.Errorf(state.ErrCodeLookup, "rank %q not in hierarchy of deck type %s", rank, dt.Name)
	}
	return v, nil
}

// applyPlayerFilter narrows a seat-ordered player list. Single-element
// results collapse to the player itself.
func applyPlayerFilter(players []*state.Player, filter string, g *state.Game, ctx *state.Context) (any, error) {
	if filter == "" {
		return normalizePlayers(players), nil
	}
	switch {
	case filter == "current":
		if ctx == nil || ctx.Player == nil {
			return nil, state.Errorf(state.ErrCodeLookup, "[current] with no current player")
		}
		return ctx.Player, nil

	case filter == "opponent":
		if ctx == nil || ctx.Player == nil {
			return nil, state.Errorf(state.ErrCodeLookup, "[opponent] with no current player")
		}
		var out []*state.Player
		n := len(g.Players)
		for off := 1; off < n; off++ {
			out = append(out, g.PlayerAt(ctx.Player.Seat+off))
		}
		if len(out) == 0 {
			return nil, state.Errorf(state.ErrCodeLookup, "[opponent] with a single seat")
		}
		return normalizePlayers(out), nil

	case strings.HasPrefix(filter, "by_id="):
		id := strings.TrimPrefix(filter, "by_id=")
		for _, p := range players {
			if p.ID == id {
				return p, nil
			}
		}
		return nil, state.Errorf(state.ErrCodeLookup, "no player with id %q", id)

	case strings.HasPrefix(filter, "team="):
		team := strings.TrimPrefix(filter, "team=")
		var out []*state.Player
		for _, p := range players {
			if p.Team == team {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, state.Errorf(state.ErrCodeLookup, "no players on team %q", team)
		}
		return normalizePlayers(out), nil

	default:
		idx, err := strconv.Atoi(filter)
		if err != nil {
			return nil, state.Errorf(state.ErrCodeSelector, "invalid player filter %q", filter)
		}
		if idx < 0 || idx >= len(players) {
			return nil, state.Errorf(state.ErrCodeLookup, "player index %d out of range", idx)
		}
		return players[idx], nil
	}
}

// applyZoneFilter applies an optional numeric card index to a zone.
func applyZoneFilter(z *state.Zone, filter string) (any, error) {
	if filter == "" {
		return z, nil
	}
	idx, err := strconv.Atoi(filter)
	if err != nil {
		return nil, state.Errorf(state.ErrCodeSelector, "invalid zone filter %q", filter)
	}
	if idx < 0 || idx >= z.Len() {
		return nil, state.Errorf(state.ErrCodeLookup, "card index %d out of range in zone %s", idx, z.Key)
	}
	return z.Cards[idx], nil
}

func normalizePlayers(players []*state.Player) any {
	if len(players) == 1 {
		return players[0]
	}
	return players
}

// normalizeSlice collapses single-element results and flattens typed card
// sequences produced by elementwise mapping.
func normalizeSlice(vals []any) any {
	if len(vals) == 1 {
		return vals[0]
	}
	// Preserve typed zone/card sequences when homogeneous.
	zones := make([]*state.Zone, 0, len(vals))
	for _, v := range vals {
		z, ok := v.(*state.Zone)
		if !ok {
			return vals
		}
		zones = append(zones, z)
	}
	return zones
}

package engine

import (
	"strings"

	"github.com/roach88/cardcore/internal/def"
	"github.com/roach88/cardcore/internal/state"
)

// execMove transfers up to count eligible cards from the source to the
// destination zone. The source selector may name a zone, a card, or a
// card list; with an explicit card source the default count covers every
// addressed card, with a zone source it is 1.
func (x *Executor) execMove(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	if a.From == "" {
		return nil, state.Errorf(state.ErrCodeAction, "MOVE: missing from selector")
	}
	src, err := x.resolve(a.From, g, ctx)
	if err != nil {
		return nil, err
	}
	pool, fromZone, err := x.sourcePool(src, a.From)
	if err != nil {
		return nil, err
	}
	pool, err = x.filterCards(pool, a.Filter, g, ctx)
	if err != nil {
		return nil, err
	}

	dflt := 1
	if fromZone == nil {
		dflt = len(pool)
	}
	n, err := x.countArg(a.Count, g, ctx, dflt)
	if err != nil {
		return nil, err
	}
	if a.Exact && len(pool) < n {
		return nil, state.Errorf(state.ErrCodeAction,
			"MOVE: exact count %d requested but only %d eligible cards", n, len(pool))
	}
	if n > len(pool) {
		n = len(pool)
	}

	to, err := x.zoneArg("MOVE to", a.To, g, ctx)
	if err != nil {
		return nil, err
	}
	moved, err := x.moveCards(pool[:n], to, a.Face, g)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"cards": moved, "to": to, "count": int64(len(moved))}
	if fromZone != nil {
		fields["from"] = fromZone
	}
	if len(moved) == 1 {
		fields["card"] = moved[0]
	}
	if ctx != nil && ctx.Player != nil {
		fields["player"] = ctx.Player
	}
	if err := x.emit(EvMove, fields); err != nil {
		return nil, err
	}
	return collapseCards(moved), nil
}

// execMoveAll empties the source zone (or its filtered subset) into the
// destination, preserving relative order.
func (x *Executor) execMoveAll(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	from, err := x.zoneArg("MOVE_ALL from", a.From, g, ctx)
	if err != nil {
		return nil, err
	}
	to, err := x.zoneArg("MOVE_ALL to", a.To, g, ctx)
	if err != nil {
		return nil, err
	}
	pool, err := x.filterCards(append([]*state.Card(nil), from.Cards...), a.Filter, g, ctx)
	if err != nil {
		return nil, err
	}
	moved, err := x.moveCards(pool, to, a.Face, g)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{"cards": moved, "from": from, "to": to, "count": int64(len(moved))}
	if ctx != nil && ctx.Player != nil {
		fields["player"] = ctx.Player
	}
	if err := x.emit(EvMoveAll, fields); err != nil {
		return nil, err
	}
	return moved, nil
}

// execDeal gives each recipient count cards from the top of the source.
// Fewer available cards than requested transfer what exists unless exact.
func (x *Executor) execDeal(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	src, err := x.zoneArg("DEAL from", a.From, g, ctx)
	if err != nil {
		return nil, err
	}
	recipients, err := x.playersArg(a.Recipients, g, ctx)
	if err != nil {
		return nil, err
	}
	n, err := x.countArg(a.Count, g, ctx, 1)
	if err != nil {
		return nil, err
	}
	if a.Exact && src.Len() < n*len(recipients) {
		return nil, state.Errorf(state.ErrCodeAction,
			"DEAL: exact deal needs %d cards but source %s holds %d", n*len(recipients), src.Key, src.Len())
	}

	total := 0
	for _, p := range recipients {
		dest, err := x.dealDestination(a.To, p, g, ctx)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n && src.Len() > 0; i++ {
			if err := g.MoveCard(src.Top(), dest); err != nil {
				return nil, err
			}
			total++
		}
	}
	if err := x.emit(EvDeal, map[string]any{
		"from":       src,
		"recipients": recipients,
		"count":      int64(total),
	}); err != nil {
		return nil, err
	}
	return int64(total), nil
}

// execDealRoundRobin deals in complete rounds of count cards per
// recipient, stopping before any round the source cannot fully cover.
func (x *Executor) execDealRoundRobin(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	src, err := x.zoneArg("DEAL_ROUND_ROBIN from", a.From, g, ctx)
	if err != nil {
		return nil, err
	}
	recipients, err := x.playersArg(a.Recipients, g, ctx)
	if err != nil {
		return nil, err
	}
	n, err := x.countArg(a.Count, g, ctx, 1)
	if err != nil {
		return nil, err
	}
	if n == 0 || len(recipients) == 0 {
		return int64(0), nil
	}

	total := 0
	for src.Len() >= n*len(recipients) {
		for _, p := range recipients {
			dest, err := x.dealDestination(a.To, p, g, ctx)
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				if err := g.MoveCard(src.Top(), dest); err != nil {
					return nil, err
				}
				total++
			}
		}
	}
	if err := x.emit(EvDealRoundRobin, map[string]any{
		"from":       src,
		"recipients": recipients,
		"count":      int64(total),
	}); err != nil {
		return nil, err
	}
	return int64(total), nil
}

// execDealAll distributes the whole source in rounds of count cards per
// recipient until it is empty; the final round may run short.
func (x *Executor) execDealAll(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	src, err := x.zoneArg("DEAL_ALL from", a.From, g, ctx)
	if err != nil {
		return nil, err
	}
	recipients, err := x.playersArg(a.Recipients, g, ctx)
	if err != nil {
		return nil, err
	}
	n, err := x.countArg(a.Count, g, ctx, 1)
	if err != nil {
		return nil, err
	}
	if n == 0 || len(recipients) == 0 {
		return int64(0), nil
	}

	total := 0
	for src.Len() > 0 {
		for _, p := range recipients {
			if src.Len() == 0 {
				break
			}
			dest, err := x.dealDestination(a.To, p, g, ctx)
			if err != nil {
				return nil, err
			}
			for i := 0; i < n && src.Len() > 0; i++ {
				if err := g.MoveCard(src.Top(), dest); err != nil {
					return nil, err
				}
				total++
			}
		}
	}
	if err := x.emit(EvDealAll, map[string]any{
		"from":       src,
		"recipients": recipients,
		"count":      int64(total),
	}); err != nil {
		return nil, err
	}
	return int64(total), nil
}

// execMill moves the top count cards from one zone to another.
func (x *Executor) execMill(a *def.Action, g *state.Game, ctx *state.Context) (any, error) {
	from, err := x.zoneArg("MILL from", a.From, g, ctx)
	if err != nil {
		return nil, err
	}
	to, err := x.zoneArg("MILL to", a.To, g, ctx)
	if err != nil {
		return nil, err
	}
	n, err := x.countArg(a.Count, g, ctx, 1)
	if err != nil {
		return nil, err
	}
	if a.Exact && from.Len() < n {
		return nil, state.Errorf(state.ErrCodeAction,
			"MILL: exact count %d requested but zone %s holds %d", n, from.Key, from.Len())
	}

	var moved []*state.Card
	for i := 0; i < n && from.Len() > 0; i++ {
		c := from.Top()
		if err := g.MoveCard(c, to); err != nil {
			return nil, err
		}
		moved = append(moved, c)
	}
	if err := x.emit(EvMill, map[string]any{
		"cards": moved,
		"from":  from,
		"to":    to,
		"count": int64(len(moved)),
	}); err != nil {
		return nil, err
	}
	return moved, nil
}

// sourcePool normalizes a resolved movement source into a card pool. A
// zone source also reports the zone so events can carry it.
func (x *Executor) sourcePool(src any, sel string) ([]*state.Card, *state.Zone, error) {
	switch s := src.(type) {
	case *state.Zone:
		return append([]*state.Card(nil), s.Cards...), s, nil
	default:
		cards, ok := asCards(src)
		if !ok {
			return nil, nil, state.Errorf(state.ErrCodeType,
				"from selector %q resolved to %T, want a zone or cards", sel, src)
		}
		return cards, nil, nil
	}
}

// moveCards transfers cards in order through the model gateway, applying
// an optional face override after each card takes the destination's
// default face.
func (x *Executor) moveCards(cards []*state.Card, to *state.Zone, face string, g *state.Game) ([]*state.Card, error) {
	moved := make([]*state.Card, 0, len(cards))
	for _, c := range cards {
		if err := g.MoveCard(c, to); err != nil {
			return nil, err
		}
		if face != "" {
			c.Face = face
		}
		moved = append(moved, c)
	}
	return moved, nil
}

// dealDestination resolves a deal's per-recipient destination. A bare
// zone name resolves relative to the recipient (their per_player
// instance, then team, then global); a $-rooted selector resolves with
// the recipient as current player.
func (x *Executor) dealDestination(to string, p *state.Player, g *state.Game, ctx *state.Context) (*state.Zone, error) {
	if to == "" {
		return nil, state.Errorf(state.ErrCodeAction, "deal: missing to zone")
	}
	if !strings.HasPrefix(to, "$") {
		if z := g.ZoneFor(to, p); z != nil {
			return z, nil
		}
		return nil, state.Errorf(state.ErrCodeLookup, "deal: no zone %q for player %s", to, p.ID)
	}
	if ctx == nil {
		ctx = &state.Context{}
	}
	return x.zoneArg("deal to", to, g, ctx.WithPlayer(p))
}

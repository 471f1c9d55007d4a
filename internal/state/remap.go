package state

// Remap rebinds a context built against another model instance onto g:
// players, cards, and zones are re-looked-up by their stable identifiers.
// Dry runs use this so a cloned model never sees pointers into the live
// one.
func (g *Game) Remap(ctx *Context) *Context {
	if ctx == nil {
		return nil
	}
	out := &Context{}
	if ctx.Player != nil {
		out.Player = g.Player(ctx.Player.ID)
	}
	if ctx.Card != nil {
		out.Card = g.Card(ctx.Card.ID)
	}
	if ctx.Event != nil {
		out.Event = make(map[string]any, len(ctx.Event))
		for k, v := range ctx.Event {
			out.Event[k] = g.remapValue(v)
		}
	}
	if ctx.Env != nil {
		out.Env = ctx.Env.remap(g)
	}
	return out
}

func (g *Game) remapValue(v any) any {
	switch x := v.(type) {
	case *Card:
		if c := g.Card(x.ID); c != nil {
			return c
		}
		return x
	case *Player:
		if p := g.Player(x.ID); p != nil {
			return p
		}
		return x
	case *Zone:
		if z := g.ZoneByKey(x.Key); z != nil {
			return z
		}
		return x
	case []*Card:
		out := make([]*Card, len(x))
		for i, c := range x {
			out[i], _ = g.remapValue(c).(*Card)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = g.remapValue(e)
		}
		return out
	default:
		return v
	}
}

// remap rebuilds the environment chain with values rebound to g.
func (e *Env) remap(g *Game) *Env {
	if e == nil {
		return nil
	}
	ne := &Env{vars: make(map[string]any, len(e.vars))}
	for k, v := range e.vars {
		ne.vars[k] = g.remapValue(v)
	}
	ne.parent = e.parent.remap(g)
	return ne
}

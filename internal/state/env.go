package state

// Env is one frame of the temporary binding table: an immutable-per-frame
// environment chain. An effect pushes a fresh frame at start and discards
// it at end; loop constructs push a shadowable child frame for their
// loop-local binding, visible only within the loop body and its nested
// frames.
type Env struct {
	parent *Env
	vars   map[string]any
}

// NewEnv creates a root frame.
func NewEnv() *Env {
	return &Env{vars: make(map[string]any)}
}

// Child pushes a nested frame whose lookups fall through to this one.
func (e *Env) Child() *Env {
	return &Env{parent: e, vars: make(map[string]any)}
}

// Bind sets a name in this frame, shadowing any outer binding.
func (e *Env) Bind(name string, v any) {
	e.vars[name] = v
}

// Lookup resolves a name through the frame chain.
func (e *Env) Lookup(name string) (any, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Context is the evaluation context threaded through selector resolution
// and expression evaluation: the current player, the triggering event's
// fields, the binding environment, and an optional per-item card binding
// used by filter expressions.
type Context struct {
	// Player is the current player, addressed by [current].
	Player *Player

	// Event holds the triggering event's typed fields (card, player,
	// zone, from, to, phase, state, turn_index), addressed by $.event.
	Event map[string]any

	// Env is the innermost binding frame (store_as names, ref:item,
	// $player).
	Env *Env

	// Card is the candidate card bound as $.card during filter
	// evaluation.
	Card *Card
}

// WithEnv returns a shallow copy of the context using env.
func (c *Context) WithEnv(env *Env) *Context {
	nc := *c
	nc.Env = env
	return &nc
}

// WithCard returns a shallow copy of the context with the filter card
// bound.
func (c *Context) WithCard(card *Card) *Context {
	nc := *c
	nc.Card = card
	return &nc
}

// WithPlayer returns a shallow copy of the context with a different
// current player.
func (c *Context) WithPlayer(p *Player) *Context {
	nc := *c
	nc.Player = p
	return &nc
}

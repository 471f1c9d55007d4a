// Package selector resolves $-rooted path expressions against a State
// Model snapshot plus an evaluation context, producing typed values: a
// single card, an ordered card sequence, a player or player sequence, a
// zone, or a scalar.
//
// Resolution is a pure function of (selector, state, context): no caching
// across calls, and no iteration order beyond a zone's declared ordering
// and the player seating order. Any selector not rooted at $ is rejected
// outright - there is no silent fallback root, and $.zones is the sole
// path to global zones.
package selector

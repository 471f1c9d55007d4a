package state

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"
)

// RNG is the session's single seeded PRNG. All randomness (SHUFFLE,
// CHOOSE_RANDOM, fallback seeds) is drawn from this instance in a fixed
// call order so replay with the same seed reproduces the same draws.
//
// The generator state is snapshotable, so Game.Clone can give a dry run its
// own copy without advancing the live sequence.
type RNG struct {
	src *rand.PCG
	r   *rand.Rand
}

// NewRNG creates a PRNG from a 64-bit seed.
func NewRNG(seed int64) *RNG {
	src := rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	return &RNG{src: src, r: rand.New(src)}
}

// IntN returns a uniform int in [0, n). Panics if n <= 0, matching
// math/rand/v2 semantics; callers guard n themselves.
func (g *RNG) IntN(n int) int { return g.r.IntN(n) }

// Shuffle pseudo-randomizes the order of n elements via swap.
func (g *RNG) Shuffle(n int, swap func(i, j int)) { g.r.Shuffle(n, swap) }

// State returns the generator state as a hex string for snapshots.
func (g *RNG) State() string {
	b, err := g.src.MarshalBinary()
	if err != nil {
		// PCG.MarshalBinary cannot fail; keep the invariant loud.
		panic(fmt.Sprintf("rng state marshal: %v", err))
	}
	return hex.EncodeToString(b)
}

// RestoreState rewinds the generator to a snapshotted state.
func (g *RNG) RestoreState(s string) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode rng state: %w", err)
	}
	if err := g.src.UnmarshalBinary(b); err != nil {
		return fmt.Errorf("restore rng state: %w", err)
	}
	return nil
}

// clone returns an independent copy at the same state.
func (g *RNG) clone() *RNG {
	ng := NewRNG(0)
	if err := ng.RestoreState(g.State()); err != nil {
		panic(fmt.Sprintf("rng clone: %v", err))
	}
	return ng
}

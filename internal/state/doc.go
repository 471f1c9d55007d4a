// Package state implements the in-memory State Model for a cardcore session:
// players, zones, cards, variables, and the flow position.
//
// ARCHITECTURE:
//
// Single-Writer Mutation Gateway:
// The state is exclusively owned by its session and mutated only through the
// methods on Game (MoveCard, SetVar, and friends). Every other component
// treats the model as read-only; the gateway is the sole place structural
// invariants are enforced. A violated invariant (a card in two zones) is
// fatal to the session, never silently repaired.
//
// Snapshots:
// Game.Clone produces a deep copy used for dry runs, rollback staging, and
// the save/replay snapshot contract. Snapshot/Hash produce a canonical,
// deterministic serialization so two runs can be compared byte for byte.
//
// Determinism:
// All randomness is drawn from the session's single seeded PRNG (Game.RNG)
// advanced in a fixed call order. NEVER draw from a secondary source.
package state

// Package store provides SQLite-backed durable storage for sessions.
//
// The store persists an append-only record per session:
//   - Sessions: definition name, seed, outcome, and trace hash
//   - Events: the scalarized trace, ordered by logical seq
//   - Snapshots: canonical state images with their content hashes
//   - Inputs: resolved external choices, in resolution order
//
// All ordering uses the logical seq column, never timestamps, so a read
// back always reproduces dispatch order. Event contexts, snapshots, and
// choices are serialized as RFC 8785 canonical JSON; reads decode
// numbers back to int64 so round-tripped values stay integer-typed.
package store

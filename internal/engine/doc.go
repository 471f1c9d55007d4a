// Package engine executes a card-game session: it applies atomic actions
// to the State Model, dispatches trigger-condition-effect rules in response
// to events, and drives the two-level flow machine.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// The engine's logical model is single-threaded and cooperative. Exactly
// one in-flight rule-effect execution mutates the State Model at a time;
// "simultaneous" constructs are a scheduling discipline, not physical
// concurrency. This ensures:
//   - Predictable rule evaluation order
//   - Reproducible event traces on replay
//   - Simple reasoning about causality
//
// Event Processing Flow:
//  1. The flow controller and action executor emit events stamped with a
//     monotonic logical clock
//  2. The dispatcher matches rule triggers, applies once_per budgets,
//     orders by priority (declaration order breaks ties), and gates on
//     enabled_when/condition
//  3. Matched effects run through the executor, which may emit new events;
//     those are queued and dispatched breadth-first after the current
//     effect list completes
//
// Determinism:
// Identical (definition, seed, external-input sequence) always yields an
// identical play trace. All randomness comes from the session's single
// seeded PRNG advanced in a fixed call order. Events are ordered by the
// logical clock, NEVER by wall-clock timestamps.
//
// The only legitimate suspension point is REQUEST_INPUT, which hands a
// pending-input descriptor to the configured InputProvider and resumes
// with its choice.
package engine

// Package harness executes YAML scenario fixtures: load a definition,
// run a session with a fixed seed and scripted inputs, then assert on
// the trace and final state. Golden comparison serializes the trace as
// canonical JSON so byte-identical goldens double as determinism
// checks.
package harness

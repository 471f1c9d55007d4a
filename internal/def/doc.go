// Package def provides the immutable Game Definition tree for cardcore.
//
// This package contains type definitions only. All other internal packages
// import def; def imports nothing internal. This keeps the definition tree
// the foundational layer with no circular dependencies.
//
// A Game holds everything the authoring format declares: component type
// catalogs (deck types, zone types), deck and zone instances, variable
// declarations, the setup effect, the flow graph, and the rule list. The
// engine treats a loaded Game as frozen - nothing in this tree is mutated
// during play.
//
// Key design constraints:
//   - NO float types anywhere - numeric literals are int64 (floats break
//     deterministic replay and canonical hashing)
//   - Expressions and actions are closed, tagged variant sets discriminated
//     by their declared key (operator key, action: name)
//   - All YAML tags use snake_case
package def

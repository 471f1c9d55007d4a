// Package expr evaluates the operator-tree expression language: a closed
// vocabulary of single-key tagged nodes (comparisons, boolean connectives,
// list aggregation, math, rank helpers, feasibility checks).
//
// Evaluation is a pure function of (expression, state, context). It never
// mutates the live State Model; the one simulation the language allows,
// canPerform, runs against a discarded clone. Operands resolve through the
// selector resolver (path), the temporary binding table (ref), literals
// (value), or recursively (nested node).
package expr

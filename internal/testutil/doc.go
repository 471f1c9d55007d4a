// Package testutil provides shared definition fixtures for package tests.
//
// The builders construct small, schema-valid game definitions in code so
// state, expression, and engine tests do not each need YAML fixtures for
// basic setups.
package testutil

package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a definition to run, the
// randomness and choices that drive it, and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files use it.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Definition is the path to the game definition, relative to the
	// scenario file.
	Definition string `yaml:"definition"`

	// Seed fixes the session PRNG.
	Seed int64 `yaml:"seed"`

	// Inputs are scripted choices consumed in resolution order.
	Inputs []any `yaml:"inputs,omitempty"`

	// MaxTurns bounds the run; 0 uses the engine default.
	MaxTurns int `yaml:"max_turns,omitempty"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// dir is the scenario file's directory, for resolving Definition.
	dir string
}

// Assertion is one check against the finished session.
//
// Types:
//   - trace_contains: an event with Tag (and a Ctx subset) occurred
//   - trace_order: events with Tags occurred in this relative order
//   - trace_count: exactly Count events with Tag occurred
//   - final_result: the win result equals Value
//   - zone_count: the zone named Zone holds Count cards
//   - variable: the variable Name (for Player, if set) equals Value
type Assertion struct {
	Type string `yaml:"type"`

	Tag    string         `yaml:"tag,omitempty"`
	Ctx    map[string]any `yaml:"ctx,omitempty"`
	Tags   []string       `yaml:"tags,omitempty"`
	Count  int            `yaml:"count,omitempty"`
	Zone   string         `yaml:"zone,omitempty"`
	Name   string         `yaml:"name,omitempty"`
	Player string         `yaml:"player,omitempty"`
	Value  any            `yaml:"value,omitempty"`
}

// LoadScenario reads a scenario fixture.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	if s.Definition == "" {
		return nil, fmt.Errorf("scenario %s: missing definition", path)
	}
	s.dir = filepath.Dir(path)
	return &s, nil
}

// DefinitionPath resolves the definition path relative to the scenario
// file.
func (s *Scenario) DefinitionPath() string {
	if s.dir == "" || filepath.IsAbs(s.Definition) {
		return s.Definition
	}
	return filepath.Join(s.dir, s.Definition)
}

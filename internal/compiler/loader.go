// Package compiler loads game definition documents: YAML in, a
// validated def.Game out. Loading runs three passes: a structural check
// against the embedded CUE schema, YAML decoding into the definition
// types (which normalize scalars and reject floats), and the runtime
// validator's cross-reference pass.
package compiler

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cardcore/internal/def"
)

//go:embed schema.cue
var schemaCUE string

// Load reads and compiles a definition file.
func Load(path string) (*def.Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	g, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// LoadBytes compiles a definition document from YAML source.
func LoadBytes(data []byte) (*def.Game, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}

	var g def.Game
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}

	if errs := g.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid definition (%d error(s)):\n  %s",
			len(errs), strings.Join(msgs, "\n  "))
	}
	return &g, nil
}

// checkSchema unifies the document with the embedded CUE schema and
// reports structural violations with their positions.
func checkSchema(data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}
	defn := schema.LookupPath(cue.ParsePath("#Definition"))
	if err := defn.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	file, err := cueyaml.Extract("definition.yaml", data)
	if err != nil {
		return fmt.Errorf("parse definition: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("parse definition: %w", err)
	}

	unified := defn.Unify(doc)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("definition schema: %s", formatCUEErrors(err))
	}
	return nil
}

// formatCUEErrors flattens a CUE error list into one line per problem.
func formatCUEErrors(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		msg, args := e.Msg()
		line := fmt.Sprintf(msg, args...)
		if pos := e.Position(); pos.IsValid() {
			line = fmt.Sprintf("%s (line %d)", line, pos.Line())
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "; ")
}

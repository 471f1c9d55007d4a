package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/cardcore/internal/state"
)

// marshalJSON serializes a scalarized value as canonical JSON.
func marshalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := state.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal canonical: %w", err)
	}
	return string(b), nil
}

// unmarshalJSON decodes stored canonical JSON, keeping numbers as int64.
// Plain json.Unmarshal would hand back float64, which the runtime's
// integer-only value model rejects.
func unmarshalJSON(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshal canonical: %w", err)
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			// Canonical writes never produce floats; surface the raw
			// text rather than silently truncating.
			return x.String()
		}
		return n
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
		return x
	default:
		return v
	}
}

// unmarshalCtx decodes an event context column.
func unmarshalCtx(s string) (map[string]any, error) {
	v, err := unmarshalJSON(s)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("event context is %T, want an object", v)
	}
	return m, nil
}

package selector

import (
	"fmt"
	"strings"

	"github.com/roach88/cardcore/internal/state"
)

// Function forms recognized around a path.
const (
	fnTop       = "top"
	fnBottom    = "bottom"
	fnAll       = "all"
	fnCount     = "count"
	fnOwner     = "owner"
	fnRank      = "rank"
	fnRankValue = "rank_value"
)

var knownFuncs = map[string]bool{
	fnTop: true, fnBottom: true, fnAll: true, fnCount: true,
	fnOwner: true, fnRank: true, fnRankValue: true,
}

// segment is one dotted path step with an optional bracket filter.
type segment struct {
	name   string
	filter string // "" when absent
}

// parsed is the surface decomposition of a selector string.
type parsed struct {
	fn     string // outermost function form, "" when plain path
	inner  string // function argument (unparsed)
	anchor string // "$player" style anchor, "" when dotted path
	segs   []segment
}

// parse decomposes a selector string. It does not touch game state.
func parse(sel string) (*parsed, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return nil, state.Errorf(state.ErrCodeSelector, "empty selector")
	}

	// Outermost function form: fn( inner ).
	if i := strings.IndexByte(sel, '('); i > 0 && strings.HasSuffix(sel, ")") {
		fn := sel[:i]
		if knownFuncs[fn] {
			inner := sel[i+1 : len(sel)-1]
			if !balanced(inner) {
				return nil, state.Errorf(state.ErrCodeSelector, "unbalanced parentheses in %q", sel)
			}
			return &parsed{fn: fn, inner: inner}, nil
		}
	}

	if sel == "$player" {
		return &parsed{anchor: sel}, nil
	}

	if sel != "$" && !strings.HasPrefix(sel, "$.") {
		return nil, state.Errorf(state.ErrCodeSelector, "selector %q is not rooted at $", sel)
	}

	segs, err := splitSegments(strings.TrimPrefix(strings.TrimPrefix(sel, "$"), "."))
	if err != nil {
		return nil, err
	}
	return &parsed{segs: segs}, nil
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// splitSegments splits a dotted path on '.' outside brackets and peels
// bracket filters off each step.
func splitSegments(path string) ([]segment, error) {
	if path == "" {
		return nil, nil
	}
	var segs []segment
	depth := 0
	start := 0
	flush := func(end int) error {
		raw := path[start:end]
		if raw == "" {
			return state.Errorf(state.ErrCodeSelector, "empty path segment in %q", path)
		}
		seg := segment{name: raw}
		if i := strings.IndexByte(raw, '['); i >= 0 {
			if !strings.HasSuffix(raw, "]") {
				return state.Errorf(state.ErrCodeSelector, "malformed filter in segment %q", raw)
			}
			seg.name = raw[:i]
			seg.filter = raw[i+1 : len(raw)-1]
			if seg.name == "" || seg.filter == "" {
				return state.Errorf(state.ErrCodeSelector, "malformed filter in segment %q", raw)
			}
		}
		segs = append(segs, seg)
		return nil
	}
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, state.Errorf(state.ErrCodeSelector, "unbalanced brackets in %q", path)
			}
		case '.':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, state.Errorf(state.ErrCodeSelector, "unbalanced brackets in %q", path)
	}
	if err := flush(len(path)); err != nil {
		return nil, err
	}
	return segs, nil
}

// substituteRefs replaces ref:<name> placeholder tokens with the current
// value of the named temporary binding before the rest of the path is
// resolved. Card bindings substitute as their stable id.
func substituteRefs(sel string, ctx *state.Context) (string, error) {
	for {
		i := strings.Index(sel, "ref:")
		if i < 0 {
			return sel, nil
		}
		j := i + len("ref:")
		k := j
		for k < len(sel) && isIdentChar(sel[k]) {
			k++
		}
		name := sel[j:k]
		if name == "" {
			return "", state.Errorf(state.ErrCodeSelector, "malformed ref: token in %q", sel)
		}
		if ctx == nil || ctx.Env == nil {
			return "", state.Errorf(state.ErrCodeBinding, "unresolved ref:%s (no bindings in scope)", name)
		}
		v, ok := ctx.Env.Lookup(name)
		if !ok {
			return "", state.Errorf(state.ErrCodeBinding, "unresolved ref:%s", name)
		}
		text, err := bindingText(name, v)
		if err != nil {
			return "", err
		}
		sel = sel[:i] + text + sel[k:]
	}
}

func bindingText(name string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int64:
		return fmt.Sprintf("%d", x), nil
	case int:
		return fmt.Sprintf("%d", x), nil
	case *state.Card:
		return x.ID, nil
	case *state.Player:
		return x.ID, nil
	default:
		return "", state.Errorf(state.ErrCodeType, "binding %q (%T) cannot appear inside a path", name, v)
	}
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

package def

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Operator keys. The vocabulary is closed: an expression node has exactly
// one recognized key whose value is its operand list (or, for single-operand
// operators, one operand).
const (
	OpIsEqual       = "isEqual"
	OpIsGreaterThan = "isGreaterThan"
	OpIsLessThan    = "isLessThan"
	OpNot           = "not"
	OpAnd           = "and"
	OpOr            = "or"

	OpList     = "list"
	OpAny      = "any"
	OpAll      = "all"
	OpCount    = "count"
	OpLen      = "len"
	OpMax      = "max"
	OpMin      = "min"
	OpContains = "contains"
	OpIn       = "in"
	OpExists   = "exists"
	OpDistinct = "distinct"
	OpGroupBy  = "group_by"

	OpAdd = "add"
	OpSub = "sub"
	OpMul = "mul"
	OpDiv = "div"
	OpMod = "mod"
	OpSum = "sum"
	OpAvg = "avg"

	OpRankValue  = "rank_value"
	OpCanPerform = "canPerform"
)

// singleOperandOps are operators whose YAML operand may be written as a
// single operand instead of a sequence.
var singleOperandOps = map[string]bool{
	OpNot:        true,
	OpExists:     true,
	OpCount:      true,
	OpLen:        true,
	OpDistinct:   true,
	OpSum:        true,
	OpAvg:        true,
	OpMax:        true,
	OpMin:        true,
	OpRankValue:  true,
	OpCanPerform: true,
	OpAny:        true,
	OpAll:        true,
}

// knownOps is the full operator vocabulary.
var knownOps = map[string]bool{
	OpIsEqual: true, OpIsGreaterThan: true, OpIsLessThan: true,
	OpNot: true, OpAnd: true, OpOr: true,
	OpList: true, OpAny: true, OpAll: true, OpCount: true, OpLen: true,
	OpMax: true, OpMin: true, OpContains: true, OpIn: true, OpExists: true,
	OpDistinct: true, OpGroupBy: true,
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true, OpMod: true,
	OpSum: true, OpAvg: true,
	OpRankValue: true, OpCanPerform: true,
}

// Expr is one node of the operator tree: a tagged variant discriminated by
// its operator key.
type Expr struct {
	Op       string
	Operands []Operand
}

// OperandKind discriminates the four operand forms.
type OperandKind int

const (
	// OperandValue is a literal scalar.
	OperandValue OperandKind = iota + 1
	// OperandPath delegates to the selector resolver.
	OperandPath
	// OperandRef looks up a temporary binding.
	OperandRef
	// OperandExpr is a nested expression node.
	OperandExpr
	// OperandAction is an action specification (canPerform only).
	OperandAction
)

// Operand is a single operand of an expression node.
type Operand struct {
	Kind   OperandKind
	Value  any
	Path   string
	Ref    string
	Expr   *Expr
	Action *Action
}

// ValueOperand builds a literal operand.
func ValueOperand(v any) Operand { return Operand{Kind: OperandValue, Value: v} }

// PathOperand builds a selector operand.
func PathOperand(p string) Operand { return Operand{Kind: OperandPath, Path: p} }

// RefOperand builds a binding-lookup operand.
func RefOperand(name string) Operand { return Operand{Kind: OperandRef, Ref: name} }

// ExprOperand builds a nested-expression operand.
func ExprOperand(e *Expr) Operand { return Operand{Kind: OperandExpr, Expr: e} }

// UnmarshalYAML decodes a single-key operator mapping into an Expr.
//
// The mapping's one key must be a recognized operator; its value is either a
// sequence of operands or, for single-operand operators, one operand.
func (e *Expr) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("expression must be a single-key operator mapping (line %d)", node.Line)
	}
	key := node.Content[0].Value
	if !knownOps[key] {
		return fmt.Errorf("unknown operator %q (line %d)", key, node.Line)
	}
	e.Op = key

	val := node.Content[1]
	if val.Kind == yaml.SequenceNode {
		e.Operands = make([]Operand, 0, len(val.Content))
		for _, item := range val.Content {
			var op Operand
			if err := op.unmarshalNode(item); err != nil {
				return fmt.Errorf("operator %q: %w", key, err)
			}
			e.Operands = append(e.Operands, op)
		}
		return nil
	}

	if !singleOperandOps[key] {
		return fmt.Errorf("operator %q requires an operand sequence (line %d)", key, node.Line)
	}
	var op Operand
	if err := op.unmarshalNode(val); err != nil {
		return fmt.Errorf("operator %q: %w", key, err)
	}
	e.Operands = []Operand{op}
	return nil
}

// UnmarshalYAML decodes one operand form.
func (o *Operand) UnmarshalYAML(node *yaml.Node) error {
	return o.unmarshalNode(node)
}

func (o *Operand) unmarshalNode(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		// Bare scalars are literal shorthand for value:.
		var raw any
		if err := node.Decode(&raw); err != nil {
			return err
		}
		v, err := normalizeScalar(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		o.Kind = OperandValue
		o.Value = v
		return nil

	case yaml.MappingNode:
		if len(node.Content) == 2 {
			switch node.Content[0].Value {
			case "value":
				var raw any
				if err := node.Content[1].Decode(&raw); err != nil {
					return err
				}
				v, err := normalizeScalar(raw)
				if err != nil {
					return fmt.Errorf("line %d: %w", node.Line, err)
				}
				o.Kind = OperandValue
				o.Value = v
				return nil
			case "path":
				o.Kind = OperandPath
				return node.Content[1].Decode(&o.Path)
			case "ref":
				o.Kind = OperandRef
				return node.Content[1].Decode(&o.Ref)
			}
		}
		// An action mapping (has an action: key) is a canPerform operand.
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "action" {
				o.Kind = OperandAction
				o.Action = &Action{}
				return node.Decode(o.Action)
			}
		}
		// Otherwise it must be a nested single-key operator node.
		o.Kind = OperandExpr
		o.Expr = &Expr{}
		return o.Expr.UnmarshalYAML(node)

	default:
		return fmt.Errorf("invalid operand (line %d)", node.Line)
	}
}

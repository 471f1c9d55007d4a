package def

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decodeExpr(t *testing.T, src string) *Expr {
	t.Helper()
	var e Expr
	require.NoError(t, yaml.Unmarshal([]byte(src), &e))
	return &e
}

// TestExprUnmarshal_OperandForms decodes each operand shape from YAML.
func TestExprUnmarshal_OperandForms(t *testing.T) {
	e := decodeExpr(t, `
isEqual:
  - path: $.vars.score
  - value: 3
`)
	assert.Equal(t, OpIsEqual, e.Op)
	require.Len(t, e.Operands, 2)
	assert.Equal(t, OperandPath, e.Operands[0].Kind)
	assert.Equal(t, "$.vars.score", e.Operands[0].Path)
	assert.Equal(t, OperandValue, e.Operands[1].Kind)
	assert.Equal(t, int64(3), e.Operands[1].Value)

	e = decodeExpr(t, `
contains:
  - ref: picked
  - "A"
`)
	assert.Equal(t, OperandRef, e.Operands[0].Kind)
	assert.Equal(t, "picked", e.Operands[0].Ref)
	assert.Equal(t, "A", e.Operands[1].Value, "bare scalars are value shorthand")
}

// TestExprUnmarshal_Nesting decodes an operator node used as an operand.
func TestExprUnmarshal_Nesting(t *testing.T) {
	e := decodeExpr(t, `
isGreaterThan:
  - rank_value: {path: "top($.zones.table)"}
  - rank_value: {path: "top($.zones.deck)"}
`)
	require.Len(t, e.Operands, 2)
	require.Equal(t, OperandExpr, e.Operands[0].Kind)
	assert.Equal(t, OpRankValue, e.Operands[0].Expr.Op)
}

// TestExprUnmarshal_SingleOperandShorthand verifies the scalar form is
// only accepted for single-operand operators.
func TestExprUnmarshal_SingleOperandShorthand(t *testing.T) {
	e := decodeExpr(t, `
not: {path: $.vars.done}
`)
	require.Len(t, e.Operands, 1)
	assert.Equal(t, OperandPath, e.Operands[0].Kind)

	var bad Expr
	err := yaml.Unmarshal([]byte(`isEqual: {path: $.vars.done}`), &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operand sequence")
}

// TestExprUnmarshal_Rejections covers the malformed shapes the decoder
// must refuse.
func TestExprUnmarshal_Rejections(t *testing.T) {
	var e Expr

	err := yaml.Unmarshal([]byte(`frobnicate: [1, 2]`), &e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operator")

	err = yaml.Unmarshal([]byte("isEqual: [1, 2]\nand: [true]"), &e)
	require.Error(t, err, "an expression node has exactly one key")

	err = yaml.Unmarshal([]byte(`add: [1, 2.5]`), &e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

// TestExprUnmarshal_ActionOperand decodes the canPerform action form.
func TestExprUnmarshal_ActionOperand(t *testing.T) {
	e := decodeExpr(t, `
canPerform:
  action: MOVE
  from: $.zones.deck
  to: $.zones.discard
`)
	require.Len(t, e.Operands, 1)
	require.Equal(t, OperandAction, e.Operands[0].Kind)
	require.NotNil(t, e.Operands[0].Action)
	assert.Equal(t, ActMove, e.Operands[0].Action.Op)
}

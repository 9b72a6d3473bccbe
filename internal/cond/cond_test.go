package cond_test

import (
	"testing"

	"github.com/cici0602/sepolicy-analyzer/internal/cond"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
	"github.com/stretchr/testify/assert"
)

func ref(b int32) policydb.CondNode { return policydb.CondNode{Op: policydb.CondBoolRef, Bool: b} }
func op(o policydb.CondOp) policydb.CondNode { return policydb.CondNode{Op: o} }

func TestEvaluateAnd(t *testing.T) {
	// b0 && b1
	expr := []policydb.CondNode{ref(0), ref(1), op(policydb.CondAnd)}
	assert.Equal(t, cond.True, cond.Evaluate(expr, []bool{true, true}))
	assert.Equal(t, cond.False, cond.Evaluate(expr, []bool{true, false}))
}

func TestEvaluateNot(t *testing.T) {
	expr := []policydb.CondNode{ref(0), op(policydb.CondNot)}
	assert.Equal(t, cond.False, cond.Evaluate(expr, []bool{true}))
	assert.Equal(t, cond.True, cond.Evaluate(expr, []bool{false}))
}

func TestEvaluateXorEqNeq(t *testing.T) {
	xor := []policydb.CondNode{ref(0), ref(1), op(policydb.CondXor)}
	assert.Equal(t, cond.True, cond.Evaluate(xor, []bool{true, false}))
	assert.Equal(t, cond.False, cond.Evaluate(xor, []bool{true, true}))

	eq := []policydb.CondNode{ref(0), ref(1), op(policydb.CondEq)}
	assert.Equal(t, cond.True, cond.Evaluate(eq, []bool{true, true}))

	neq := []policydb.CondNode{ref(0), ref(1), op(policydb.CondNeq)}
	assert.Equal(t, cond.True, cond.Evaluate(neq, []bool{true, false}))
}

func TestEvaluateMalformedIsUndefined(t *testing.T) {
	// Binary op with nothing on the stack.
	expr := []policydb.CondNode{op(policydb.CondAnd)}
	assert.Equal(t, cond.Undefined, cond.Evaluate(expr, nil))

	// Leftover operand: two bool refs, no combining operator.
	expr2 := []policydb.CondNode{ref(0), ref(1)}
	assert.Equal(t, cond.Undefined, cond.Evaluate(expr2, []bool{true, true}))
}

func TestEvaluateStackOverflow(t *testing.T) {
	var expr []policydb.CondNode
	values := make([]bool, cond.MaxStackDepth+1)
	for i := range values {
		expr = append(expr, ref(int32(i)))
		values[i] = true
	}
	assert.Equal(t, cond.Undefined, cond.Evaluate(expr, values))
}

func TestSemanticEqualIdentical(t *testing.T) {
	a := []policydb.CondNode{ref(0), ref(1), op(policydb.CondAnd)}
	b := []policydb.CondNode{ref(1), ref(0), op(policydb.CondAnd)}
	res, err := cond.SemanticEqual(a, b, 2)
	assert.NoError(t, err)
	assert.True(t, res.Equal)
	assert.False(t, res.Inverse)
}

func TestSemanticEqualInverse(t *testing.T) {
	a := []policydb.CondNode{ref(0)}
	b := []policydb.CondNode{ref(0), op(policydb.CondNot)}
	res, err := cond.SemanticEqual(a, b, 1)
	assert.NoError(t, err)
	assert.False(t, res.Equal)
	assert.True(t, res.Inverse)
}

func TestSemanticEqualDifferentBoolSets(t *testing.T) {
	a := []policydb.CondNode{ref(0)}
	b := []policydb.CondNode{ref(1)}
	res, err := cond.SemanticEqual(a, b, 2)
	assert.NoError(t, err)
	assert.False(t, res.Equal)
}

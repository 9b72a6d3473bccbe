// Package cond implements the conditional-expression evaluator (spec
// §4.E): a reverse-Polish boolean stack machine over the policy's
// boolean symbol table, plus semantic equivalence between two
// expressions via truth-table comparison.
//
// Grounded on original_source/setools/libapol/cond.c
// (cond_evaluate_expr_helper, cond_exprs_semantic_equal).
package cond

import (
	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
)

// MaxStackDepth bounds simultaneous operands during evaluation, per
// spec §3 ("Max stack depth during evaluation: 10").
const MaxStackDepth = 10

// MaxBools bounds the number of unique booleans a semantic-equivalence
// truth table can cover (2^10 = 1024 rows, 128 packed bytes).
const MaxBools = 10

// TriBool is the three-valued result of evaluate().
type TriBool int

const (
	False TriBool = iota
	True
	Undefined
)

// Evaluate runs expr's reverse-Polish expression against boolValues
// (indexed by boolean index). A stack depth beyond MaxStackDepth
// operands yields Undefined, never an error or panic.
func Evaluate(expr []policydb.CondNode, boolValues []bool) TriBool {
	var stack [MaxStackDepth]bool
	sp := -1

	for _, node := range expr {
		switch node.Op {
		case policydb.CondBoolRef:
			if sp == MaxStackDepth-1 {
				return Undefined
			}
			sp++
			if int(node.Bool) < 0 || int(node.Bool) >= len(boolValues) {
				return Undefined
			}
			stack[sp] = boolValues[node.Bool]
		case policydb.CondNot:
			if sp < 0 {
				return Undefined
			}
			stack[sp] = !stack[sp]
		case policydb.CondOr:
			if sp < 1 {
				return Undefined
			}
			sp--
			stack[sp] = stack[sp] || stack[sp+1]
		case policydb.CondAnd:
			if sp < 1 {
				return Undefined
			}
			sp--
			stack[sp] = stack[sp] && stack[sp+1]
		case policydb.CondXor:
			if sp < 1 {
				return Undefined
			}
			sp--
			stack[sp] = stack[sp] != stack[sp+1]
		case policydb.CondEq:
			if sp < 1 {
				return Undefined
			}
			sp--
			stack[sp] = stack[sp] == stack[sp+1]
		case policydb.CondNeq:
			if sp < 1 {
				return Undefined
			}
			sp--
			stack[sp] = stack[sp] != stack[sp+1]
		default:
			return Undefined
		}
	}
	if sp != 0 {
		return Undefined
	}
	if stack[0] {
		return True
	}
	return False
}

// EvaluatePolicy evaluates a policy-owned ConditionalExpr using the
// current runtime value of every declared boolean.
func EvaluatePolicy(p *policydb.Policy, expr policydb.ConditionalExpr, boolValues []bool) TriBool {
	return Evaluate(expr.RPN, boolValues)
}

func uniqueBools(expr []policydb.CondNode) []int32 {
	seen := make(map[int32]bool)
	var out []int32
	for _, n := range expr {
		if n.Op == policydb.CondBoolRef {
			if !seen[n.Bool] {
				seen[n.Bool] = true
				out = append(out, n.Bool)
			}
		}
	}
	return out
}

// EquivResult reports the outcome of a semantic-equivalence comparison.
type EquivResult struct {
	Equal   bool
	Inverse bool
}

// SemanticEqual compares two expressions for semantic equivalence over
// numBools declared booleans, per §4.E:
//  1. if their unique-boolean-set sizes differ, they are inequivalent;
//  2. if the sets themselves differ, they are inequivalent;
//  3. otherwise an 2^k-row packed truth table is built for each and
//     compared bitwise;
//  4. if not equal, they are reported inverse when the two truth
//     tables are disjoint over every assignment.
func SemanticEqual(a, b []policydb.CondNode, numBools int) (EquivResult, error) {
	aBools := uniqueBools(a)
	bBools := uniqueBools(b)
	if len(aBools) != len(bBools) {
		return EquivResult{}, nil
	}
	if len(aBools) > MaxBools {
		return EquivResult{}, diag.New(diag.KindInvalidArgument, "expression uses %d unique booleans, exceeds max %d", len(aBools), MaxBools)
	}
	aSet := make(map[int32]bool, len(aBools))
	for _, x := range aBools {
		aSet[x] = true
	}
	for _, x := range bBools {
		if !aSet[x] {
			return EquivResult{}, nil
		}
	}

	k := len(aBools)
	rows := 1 << uint(k)
	aTable := make([]byte, (rows+7)/8)
	bTable := make([]byte, (rows+7)/8)
	values := make([]bool, numBools)

	for assignment := 0; assignment < rows; assignment++ {
		for i, boolIdx := range aBools {
			values[boolIdx] = assignment&(1<<uint(i)) != 0
		}
		bit := byte(1) << uint(assignment%8)
		if Evaluate(a, values) == True {
			aTable[assignment/8] |= bit
		}
		if Evaluate(b, values) == True {
			bTable[assignment/8] |= bit
		}
	}

	equal := true
	disjoint := true
	for i := range aTable {
		if aTable[i] != bTable[i] {
			equal = false
		}
		if aTable[i]&bTable[i] != 0 {
			disjoint = false
		}
	}
	if equal {
		return EquivResult{Equal: true}, nil
	}
	return EquivResult{Equal: false, Inverse: disjoint}, nil
}

package policydb

import "github.com/bits-and-blooms/bitset"

// MLSLevel is a sensitivity plus a set of categories, adapted from the
// teacher's SecurityLevel (models/mls_model.go) to index space: category
// membership is a bitset over interned category indices rather than a
// sorted []int, so dominance tests are O(1) per word instead of O(n).
type MLSLevel struct {
	Sensitivity int32
	Categories  *bitset.BitSet
}

// Dominates reports whether this level dominates (is >= to) other: its
// sensitivity is at least as high and its category set is a superset.
func (l MLSLevel) Dominates(other MLSLevel) bool {
	if l.Sensitivity < other.Sensitivity {
		return false
	}
	if l.Categories == nil || other.Categories == nil {
		return other.Categories == nil || other.Categories.None()
	}
	diff := other.Categories.Clone()
	diff.InPlaceDifference(l.Categories)
	return diff.None()
}

// Equal reports sensitivity and category-set equality.
func (l MLSLevel) Equal(other MLSLevel) bool {
	if l.Sensitivity != other.Sensitivity {
		return false
	}
	if l.Categories == nil || other.Categories == nil {
		return l.Categories == other.Categories
	}
	return l.Categories.Equal(other.Categories)
}

// MLSRange is a [Low, High] pair of levels.
type MLSRange struct {
	Low  MLSLevel
	High MLSLevel
}

// Dominates implements range dominance: this range dominates other iff
// its Low dominates other's Low and its High dominates other's High.
// This is the extent of MLS constraint solving in scope (spec §1
// Non-goals: "does not implement MLS constraint solving beyond range
// dominance tests").
func (r MLSRange) Dominates(other MLSRange) bool {
	return r.Low.Dominates(other.Low) && r.High.Dominates(other.High)
}

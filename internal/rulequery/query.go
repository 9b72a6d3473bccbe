package rulequery

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
)

// Criteria is the optional per-dimension filter record for query_rules
// (spec §4.H). A nil field means "no constraint on that dimension".
type Criteria struct {
	Kind       *policydb.AVRuleKind
	SrcType    *int32
	TgtType    *int32
	ClassSet   *bitset.BitSet
	PermSet    *bitset.BitSet
	DoIndirect bool
}

// RuleIterator is the non-restartable sequence abstraction used in place
// of a function-pointer-vtable iterator. It is not lazy: QueryAVRules
// evaluates every rule and stores the full match list before returning
// the iterator, which then only steps through that list. It must not
// outlive the Policy it was built from.
type RuleIterator struct {
	indices []int32
	pos     int
}

// Next advances the iterator, returning the next rule index in
// declaration order, or false once exhausted.
func (it *RuleIterator) Next() (int32, bool) {
	if it.pos >= len(it.indices) {
		return 0, false
	}
	v := it.indices[it.pos]
	it.pos++
	return v, true
}

// QueryAVRules returns every AV rule index (in declaration order)
// matching every supplied criterion, per the conjunctive compound
// filter predicates of §4.C.
func (e *Engine) QueryAVRules(c Criteria) (*RuleIterator, error) {
	var matches []int32
	for i := range e.policy.AVRules {
		ref := RuleRef{Kind: RuleAV, Index: int32(i)}
		ok, err := e.matchesAV(ref, c)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, int32(i))
		}
	}
	return &RuleIterator{indices: matches}, nil
}

func (e *Engine) matchesAV(ref RuleRef, c Criteria) (bool, error) {
	r := &e.policy.AVRules[ref.Index]
	if c.Kind != nil && r.Kind != *c.Kind {
		return false, nil
	}
	if c.SrcType != nil {
		ok, err := e.RuleReferencesType(ref, *c.SrcType, policydb.EntryType, Source, c.DoIndirect)
		if err != nil {
			return false, err
		}
		// Query-time clone resolution: a clone whose Tgt is the wanted
		// source type makes an applicable rule count as referencing it.
		for _, clone := range e.policy.Clones {
			if ok || clone.Tgt != *c.SrcType {
				continue
			}
			if ok, err = e.CloneApplies(clone, ref); err != nil {
				return false, err
			}
		}
		if !ok {
			return false, nil
		}
	}
	if c.TgtType != nil {
		ok, err := e.RuleReferencesType(ref, *c.TgtType, policydb.EntryType, Target, c.DoIndirect)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if c.ClassSet != nil {
		ok, err := e.RuleReferencesClass(ref, c.ClassSet)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if c.PermSet != nil {
		ok, err := e.RuleReferencesPerm(ref, c.PermSet)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

package rulequery

import "github.com/cici0602/sepolicy-analyzer/internal/policydb"

// CloneApplies implements §4.C clone resolution: a clone rule (src, tgt)
// is never materialized into new rules; query-time consumers (the rule
// query engine, the relabel-set builder) ask CloneApplies per (clone,
// rule) pair and, if true, treat the rule as if tgt were additionally
// present in its source.
//
// The rule applies when the rule's expanded source set references
// clone.Src and its expanded target set is not exactly {clone.Src,
// clone.Tgt}. type_transition rules targeting the process class whose
// default type equals clone.Src or clone.Tgt are always suppressed,
// per the exception carried over from the original clone-resolution
// logic (original_source/setools/libapol/clone.c).
func (e *Engine) CloneApplies(clone policydb.CloneRule, ref RuleRef) (bool, error) {
	srcExp, err := e.ExpandTypes(ref, Source)
	if err != nil {
		return false, err
	}
	refsSrc := srcExp.Status == StatusWildcard || srcExp.Set.Test(uint(clone.Src))
	if !refsSrc {
		return false, nil
	}

	tgtExp, err := e.ExpandTypes(ref, Target)
	if err != nil {
		return false, err
	}
	if tgtExp.Status == StatusOK && tgtExp.Set.Count() == 2 &&
		tgtExp.Set.Test(uint(clone.Src)) && tgtExp.Set.Test(uint(clone.Tgt)) {
		return false, nil
	}

	if ref.Kind == RuleTypeFamily {
		tr := &e.policy.TypeRules[ref.Index]
		if tr.Kind == policydb.TypeTransition && (tr.DefaultType == clone.Src || tr.DefaultType == clone.Tgt) {
			classExp, err := e.ExpandClasses(ref)
			if err != nil {
				return false, err
			}
			if e.referencesProcessClass(classExp) {
				return false, nil
			}
		}
	}

	return true, nil
}

func (e *Engine) referencesProcessClass(exp Expansion) bool {
	processIdx, ok := e.policy.Classes.LookupByName("process")
	if !ok {
		return false
	}
	if exp.Status == StatusWildcard {
		return true
	}
	return exp.Set.Test(uint(processIdx))
}

// CloneExpandedSources returns clone.Tgt additions to apply to srcTypes
// when iterating an AV rule's effective source set, for every clone
// rule that applies to this rule reference. Callers union the result
// into the rule's expanded source set.
func (e *Engine) CloneExpandedSources(ref RuleRef) ([]int32, error) {
	var extra []int32
	for _, clone := range e.policy.Clones {
		applies, err := e.CloneApplies(clone, ref)
		if err != nil {
			return nil, err
		}
		if applies {
			extra = append(extra, clone.Tgt)
		}
	}
	return extra, nil
}

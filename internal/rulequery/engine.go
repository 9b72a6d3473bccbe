// Package rulequery implements the rule-matching query engine (spec
// §4.C): predicates and extractors over the policy's polymorphic rule
// lists, with attribute expansion, wildcard/complement handling, self
// substitution, and query-time clone resolution.
package rulequery

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
)

// Engine answers rule-matching queries against one immutable Policy.
type Engine struct {
	policy *policydb.Policy
}

// New returns an Engine bound to policy.
func New(policy *policydb.Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy exposes the bound policy for callers (e.g. the relabel
// builder) that need direct access alongside the engine.
func (e *Engine) Policy() *policydb.Policy { return e.policy }

// RuleKind discriminates which rule array a RuleRef points into.
type RuleKind int

const (
	RuleAV RuleKind = iota
	RuleTypeFamily
	RuleRoleAllow
	RuleRoleTransition
	RuleRangeTransition
)

// RuleRef names one rule by kind and array index.
type RuleRef struct {
	Kind  RuleKind
	Index int32
}

// ListSelector names one of a rule's polymorphic list fields.
type ListSelector int

const (
	Source ListSelector = iota
	Target
	Classes
	Perms
)

// ExpansionStatus reports whether an extractor materialized a concrete
// set or hit a wildcard.
type ExpansionStatus int

const (
	StatusOK ExpansionStatus = iota
	StatusWildcard
)

// Expansion is the result of expand_types / expand_classes / expand_perms.
type Expansion struct {
	Set    *bitset.BitSet // nil when Status == StatusWildcard
	Status ExpansionStatus
}

func (e *Engine) list(ref RuleRef, sel ListSelector) (policydb.List, error) {
	switch ref.Kind {
	case RuleAV:
		if int(ref.Index) < 0 || int(ref.Index) >= len(e.policy.AVRules) {
			return policydb.List{}, diag.New(diag.KindInvalidArgument, "AV rule index %d out of range", ref.Index)
		}
		r := &e.policy.AVRules[ref.Index]
		switch sel {
		case Source:
			return r.Src, nil
		case Target:
			return r.Tgt, nil
		case Classes:
			return r.Classes, nil
		case Perms:
			return r.Perms, nil
		}
	case RuleTypeFamily:
		if int(ref.Index) < 0 || int(ref.Index) >= len(e.policy.TypeRules) {
			return policydb.List{}, diag.New(diag.KindInvalidArgument, "type rule index %d out of range", ref.Index)
		}
		r := &e.policy.TypeRules[ref.Index]
		switch sel {
		case Source:
			return r.Src, nil
		case Target:
			return r.Tgt, nil
		case Classes:
			return r.Classes, nil
		}
		return policydb.List{}, diag.New(diag.KindInvalidArgument, "type rule has no perm list")
	case RuleRoleAllow:
		if int(ref.Index) < 0 || int(ref.Index) >= len(e.policy.RoleAllowRules) {
			return policydb.List{}, diag.New(diag.KindInvalidArgument, "role-allow rule index %d out of range", ref.Index)
		}
		r := &e.policy.RoleAllowRules[ref.Index]
		switch sel {
		case Source:
			return r.SrcRoles, nil
		case Target:
			return r.TgtRoles, nil
		}
		return policydb.List{}, diag.New(diag.KindInvalidArgument, "role-allow rule has no class/perm list")
	case RuleRoleTransition:
		if int(ref.Index) < 0 || int(ref.Index) >= len(e.policy.RoleTransitionRules) {
			return policydb.List{}, diag.New(diag.KindInvalidArgument, "role-transition rule index %d out of range", ref.Index)
		}
		r := &e.policy.RoleTransitionRules[ref.Index]
		switch sel {
		case Source:
			return r.SrcRoles, nil
		case Target:
			return r.TgtTypes, nil
		}
		return policydb.List{}, diag.New(diag.KindInvalidArgument, "role-transition rule has no class/perm list")
	case RuleRangeTransition:
		if int(ref.Index) < 0 || int(ref.Index) >= len(e.policy.RangeTransitionRules) {
			return policydb.List{}, diag.New(diag.KindInvalidArgument, "range-transition rule index %d out of range", ref.Index)
		}
		r := &e.policy.RangeTransitionRules[ref.Index]
		switch sel {
		case Source:
			return r.SrcTypes, nil
		case Target:
			return r.TgtTypes, nil
		}
		return policydb.List{}, diag.New(diag.KindInvalidArgument, "range-transition rule has no class/perm list")
	}
	return policydb.List{}, diag.New(diag.KindInvalidArgument, "unknown rule kind %d", ref.Kind)
}

// listMatches implements the membership rule used by the predicates
// (RuleReferencesType, RuleReferencesClass); the extractors do not call
// it and compute their sets separately. Complement entries, when present,
// switch the whole list to "everything except the excluded indices";
// otherwise direct literal membership applies, extended by attribute
// expansion when doIndirect is requested for a type-kind match.
func listMatches(p *policydb.Policy, list policydb.List, idx int32, wantKind policydb.EntryKind, doIndirect bool) bool {
	var excluded []int32
	var literal []int32
	var attribEntries []int32
	for _, entry := range list.Entries {
		if entry.Kind != wantKind {
			continue
		}
		if entry.Complement {
			excluded = append(excluded, entry.Index)
			continue
		}
		literal = append(literal, entry.Index)
	}
	if wantKind == policydb.EntryType && doIndirect {
		for _, entry := range list.Entries {
			if entry.Kind == policydb.EntryAttrib && !entry.Complement {
				attribEntries = append(attribEntries, entry.Index)
			}
		}
	}

	if len(excluded) > 0 {
		for _, x := range excluded {
			if x == idx {
				return false
			}
		}
		return true
	}

	for _, l := range literal {
		if l == idx {
			return true
		}
	}
	if wantKind == policydb.EntryType && doIndirect {
		for _, a := range attribEntries {
			if int(a) >= 0 && int(a) < len(p.AttribDecls) && p.AttribDecls[a].Types.Test(uint(idx)) {
				return true
			}
		}
	}
	if list.Wildcard && doIndirect {
		return true
	}
	return false
}

// RuleReferencesType is the rule_references_type predicate (§4.C).
func (e *Engine) RuleReferencesType(ref RuleRef, typeIdx int32, kind policydb.EntryKind, sel ListSelector, doIndirect bool) (bool, error) {
	if typeIdx < 0 || int(typeIdx) >= e.policy.NumTypes() {
		return false, diag.New(diag.KindInvalidArgument, "type index %d out of range", typeIdx)
	}
	list, err := e.list(ref, sel)
	if err != nil {
		return false, err
	}
	return listMatches(e.policy, list, typeIdx, kind, doIndirect), nil
}

// RuleReferencesClass is the rule_references_class predicate: true if
// the rule's class list references any class in classIdxSet.
func (e *Engine) RuleReferencesClass(ref RuleRef, classIdxSet *bitset.BitSet) (bool, error) {
	list, err := e.list(ref, Classes)
	if err != nil {
		return false, err
	}
	if list.Wildcard && classIdxSet.Any() {
		return true, nil
	}
	for idx, ok := classIdxSet.NextSet(0); ok; idx, ok = classIdxSet.NextSet(idx + 1) {
		if listMatches(e.policy, list, int32(idx), policydb.EntryClass, false) {
			return true, nil
		}
	}
	return false, nil
}

// RuleReferencesPerm is the rule_references_perm predicate: true if the
// rule's perm list references any permission in permIdxSet.
func (e *Engine) RuleReferencesPerm(ref RuleRef, permIdxSet *bitset.BitSet) (bool, error) {
	exp, err := e.ExpandPerms(ref)
	if err != nil {
		return false, err
	}
	if exp.Status == StatusWildcard {
		return permIdxSet.Any(), nil
	}
	test := exp.Set.Clone()
	test.InPlaceIntersection(permIdxSet)
	return test.Any(), nil
}

// ExpandTypes is the expand_types extractor (§4.C): explodes attributes
// into member types, de-duplicating, substituting self in the target
// list with the fully expanded source set.
func (e *Engine) ExpandTypes(ref RuleRef, sel ListSelector) (Expansion, error) {
	if sel != Source && sel != Target {
		return Expansion{}, diag.New(diag.KindInvalidArgument, "expand_types requires source or target selector")
	}
	list, err := e.list(ref, sel)
	if err != nil {
		return Expansion{}, err
	}
	if list.Wildcard && len(list.Complements()) == 0 {
		return Expansion{Status: StatusWildcard}, nil
	}

	out := bitset.New(uint(e.policy.NumTypes()))
	for _, entry := range list.Entries {
		if entry.Complement {
			continue
		}
		switch entry.Kind {
		case policydb.EntryType:
			out.Set(uint(entry.Index))
		case policydb.EntryAttrib:
			if int(entry.Index) >= 0 && int(entry.Index) < len(e.policy.AttribDecls) {
				out.InPlaceUnion(e.policy.AttribDecls[entry.Index].Types)
			}
		case policydb.EntrySelf:
			if sel == Target {
				srcExp, err := e.ExpandTypes(ref, Source)
				if err != nil {
					return Expansion{}, err
				}
				if srcExp.Status == StatusWildcard {
					return Expansion{Status: StatusWildcard}, nil
				}
				out.InPlaceUnion(srcExp.Set)
			}
		}
	}
	if list.Wildcard {
		// "*" plus "~Y": everything except the excluded entries. We
		// cannot materialize "everything" without the caller's help,
		// so the wildcard bit wins and callers treat this as the full
		// universe minus `out`'s complement entries, computed here
		// directly since we do have the universe size.
		full := bitset.New(uint(e.policy.NumTypes()))
		for i := uint(0); i < full.Len(); i++ {
			full.Set(i)
		}
		for _, entry := range list.Entries {
			if entry.Complement && entry.Kind == policydb.EntryType {
				full.Clear(uint(entry.Index))
			}
		}
		return Expansion{Set: full, Status: StatusOK}, nil
	}
	for _, entry := range list.Entries {
		if entry.Complement && entry.Kind == policydb.EntryType {
			out.Clear(uint(entry.Index))
		}
	}
	return Expansion{Set: out, Status: StatusOK}, nil
}

// ExpandClasses is the expand_classes extractor.
func (e *Engine) ExpandClasses(ref RuleRef) (Expansion, error) {
	list, err := e.list(ref, Classes)
	if err != nil {
		return Expansion{}, err
	}
	if list.Wildcard && len(list.Complements()) == 0 {
		return Expansion{Status: StatusWildcard}, nil
	}
	out := bitset.New(uint(e.policy.NumClasses()))
	if list.Wildcard {
		for i := uint(0); i < out.Len(); i++ {
			out.Set(i)
		}
	} else {
		for _, entry := range list.Entries {
			if entry.Kind == policydb.EntryClass && !entry.Complement {
				out.Set(uint(entry.Index))
			}
		}
	}
	for _, entry := range list.Entries {
		if entry.Kind == policydb.EntryClass && entry.Complement {
			out.Clear(uint(entry.Index))
		}
	}
	return Expansion{Set: out, Status: StatusOK}, nil
}

// ExpandPerms is the expand_perms extractor. Only AV rules carry a perm
// list. Common-permission entries in the list are unioned in only for
// classes (from the rule's own class set) whose CommonPerm equals that
// entry — never across classes that do not name that common block.
func (e *Engine) ExpandPerms(ref RuleRef) (Expansion, error) {
	if ref.Kind != RuleAV {
		return Expansion{}, diag.New(diag.KindInvalidArgument, "expand_perms requires an AV rule")
	}
	list, err := e.list(ref, Perms)
	if err != nil {
		return Expansion{}, err
	}
	if list.Wildcard && len(list.Complements()) == 0 {
		return Expansion{Status: StatusWildcard}, nil
	}

	classExp, err := e.ExpandClasses(ref)
	if err != nil {
		return Expansion{}, err
	}

	out := bitset.New(uint(e.policy.NumPerms()))
	for _, entry := range list.Entries {
		if entry.Complement {
			continue
		}
		switch entry.Kind {
		case policydb.EntryPerm:
			out.Set(uint(entry.Index))
		case policydb.EntryCommonPerm:
			visit := func(classIdx uint) {
				cd := &e.policy.ClassDecls[classIdx]
				if cd.CommonPerm == entry.Index {
					out.InPlaceUnion(e.policy.CommonPerms[entry.Index].Perms)
				}
			}
			if classExp.Status == StatusWildcard {
				for i := 0; i < len(e.policy.ClassDecls); i++ {
					visit(uint(i))
				}
			} else {
				for idx, ok := classExp.Set.NextSet(0); ok; idx, ok = classExp.Set.NextSet(idx + 1) {
					visit(idx)
				}
			}
		}
	}
	for _, entry := range list.Entries {
		if entry.Complement && entry.Kind == policydb.EntryPerm {
			out.Clear(uint(entry.Index))
		}
	}
	if list.Wildcard {
		full := bitset.New(uint(e.policy.NumPerms()))
		for i := uint(0); i < full.Len(); i++ {
			full.Set(i)
		}
		for _, entry := range list.Entries {
			if entry.Complement && entry.Kind == policydb.EntryPerm {
				full.Clear(uint(entry.Index))
			}
		}
		return Expansion{Set: full, Status: StatusOK}, nil
	}
	return Expansion{Set: out, Status: StatusOK}, nil
}

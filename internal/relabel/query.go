package relabel

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
)

// Mode selects one of the four relabel-query shapes of spec §4.G.
type Mode int

const (
	ModeTo Mode = iota
	ModeFrom
	ModeBoth
	ModeDomain
)

// Filter restricts results to rules whose class is in Classes and
// (when that class has a non-empty entry in Perms) whose permission
// set intersects it. A class present in Classes with no Perms entry
// matches any permission of that class.
type Filter struct {
	Classes *bitset.BitSet
	Perms   map[int32]*bitset.BitSet
}

func (f *Filter) matches(e *Entry) bool {
	if f == nil || f.Classes == nil {
		return true
	}
	for classIdx, ok := f.Classes.NextSet(0); ok; classIdx, ok = f.Classes.NextSet(classIdx + 1) {
		class := int32(classIdx)
		perms, hasPerms := e.PermSets[class]
		if !hasPerms {
			continue
		}
		want, hasFilter := f.Perms[class]
		if !hasFilter || want == nil || want.None() {
			return true
		}
		test := perms.Clone()
		test.InPlaceIntersection(want)
		if test.Any() {
			return true
		}
	}
	return false
}

// Pair is one (subject, origin-or-destination) result of a to/from/both
// query.
type Pair struct {
	Subject int32
	Other   int32
}

// DomainResult is one domain-mode result: the target type, its
// direction, and (after filtering) its witness rules.
type DomainResult struct {
	Target    int32
	Direction Direction
	Rules     []int32
}

// Query runs a relabel query against idx for startType under mode,
// with an optional filter (nil = unfiltered).
func Query(idx *Index, startType int32, mode Mode, filter *Filter) (interface{}, error) {
	switch mode {
	case ModeTo:
		return queryTo(idx, startType, filter), nil
	case ModeFrom:
		return queryFrom(idx, startType, filter), nil
	case ModeBoth:
		to := queryTo(idx, startType, filter)
		from := queryFrom(idx, startType, filter)
		seen := make(map[Pair]bool, len(to)+len(from))
		var out []Pair
		for _, p := range to {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
		for _, p := range from {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
		sortPairs(out)
		return out, nil
	case ModeDomain:
		return queryDomain(idx, startType, filter), nil
	}
	return nil, nil
}

// queryTo implements to(T): subjects S that can relabel into T, paired
// with each origin O that S can also relabel from.
func queryTo(idx *Index, target int32, filter *Filter) []Pair {
	var out []Pair
	for subj, targets := range idx.bySubject {
		into, ok := targets[target]
		if !ok || !into.Direction.Has(DirTo) || !filter.matches(into) {
			continue
		}
		for origin, e := range targets {
			if e.Direction.Has(DirFrom) && filter.matches(e) {
				out = append(out, Pair{Subject: subj, Other: origin})
			}
		}
	}
	sortPairs(out)
	return out
}

// queryFrom implements from(T): the dual of queryTo — subjects S that
// can relabel from T, paired with each destination D they can also
// relabel into.
func queryFrom(idx *Index, origin int32, filter *Filter) []Pair {
	var out []Pair
	for subj, targets := range idx.bySubject {
		from, ok := targets[origin]
		if !ok || !from.Direction.Has(DirFrom) || !filter.matches(from) {
			continue
		}
		for dest, e := range targets {
			if e.Direction.Has(DirTo) && filter.matches(e) {
				out = append(out, Pair{Subject: subj, Other: dest})
			}
		}
	}
	sortPairs(out)
	return out
}

// queryDomain implements domain(D): the full relabel set for subject D,
// with witness-rule lists pruned to filter-matching classes when a
// filter is supplied.
func queryDomain(idx *Index, d int32, filter *Filter) []DomainResult {
	targets := idx.bySubject[d]
	out := make([]DomainResult, 0, len(targets))
	for target, e := range targets {
		if !filter.matches(e) {
			continue
		}
		rules := e.Rules
		if filter != nil && filter.Classes != nil {
			rules = pruneRulesByClass(idx, e, filter)
		}
		out = append(out, DomainResult{Target: target, Direction: e.Direction, Rules: rules})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// sortPairs orders results by subject index then by the paired type's
// index, so two runs over the same policy produce byte-identical output
// regardless of Go's randomized map iteration order (spec §5).
func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Subject != pairs[j].Subject {
			return pairs[i].Subject < pairs[j].Subject
		}
		return pairs[i].Other < pairs[j].Other
	})
}

func pruneRulesByClass(idx *Index, e *Entry, filter *Filter) []int32 {
	var kept []int32
	for _, ruleIdx := range e.Rules {
		r := &idx.policy.AVRules[int(ruleIdx)]
		if ruleMatchesAnyClass(r, filter.Classes) {
			kept = append(kept, ruleIdx)
		}
	}
	return kept
}

// ruleMatchesAnyClass reports whether rule's class list names any
// class in wanted, directly or via wildcard (classes have no attribute
// indirection, unlike types).
func ruleMatchesAnyClass(r *policydb.AVRule, wanted *bitset.BitSet) bool {
	if r.Classes.Wildcard && len(r.Classes.Complements()) == 0 {
		return wanted.Any()
	}
	for idx, ok := wanted.NextSet(0); ok; idx, ok = wanted.NextSet(idx + 1) {
		excluded := false
		named := false
		for _, entry := range r.Classes.Entries {
			if entry.Kind != policydb.EntryClass || entry.Index != int32(idx) {
				continue
			}
			if entry.Complement {
				excluded = true
			} else {
				named = true
			}
		}
		if excluded {
			continue
		}
		if named || r.Classes.Wildcard {
			return true
		}
	}
	return false
}

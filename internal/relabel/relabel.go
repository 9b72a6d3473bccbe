// Package relabel implements the relabel-reachability analysis (spec
// §4.F/§4.G): a two-pass builder over the `allow` rule array producing,
// per subject type, the set of types it may relabelto/relabelfrom, and
// a query layer answering to/from/both/domain mode questions against
// that index.
//
// Grounded on original_source/setools/libapol/relabel_analysis.c
// (apol_do_relabel_analysis, apol_add_type_to_list,
// apol_add_perm_to_set_member, apol_domain_relabel_types).
package relabel

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
	"github.com/cici0602/sepolicy-analyzer/internal/rulequery"
)

// Direction is a bitmask of relabel directions a (src, tgt) pair
// supports.
type Direction uint8

const (
	DirTo Direction = 1 << iota
	DirFrom
)

func (d Direction) Has(bit Direction) bool { return d&bit != 0 }

// Entry is one target-type record inside a subject's relabel set.
type Entry struct {
	Target    int32
	Direction Direction
	Rules     []int32 // allow-rule indices contributing a relabelto direction
	PermSets  map[int32]*bitset.BitSet // class index -> accumulated perms
}

func newEntry(target int32) *Entry {
	return &Entry{Target: target, PermSets: make(map[int32]*bitset.BitSet)}
}

func (e *Entry) unionPerms(class int32, perms *bitset.BitSet) {
	existing, ok := e.PermSets[class]
	if !ok {
		e.PermSets[class] = perms.Clone()
		return
	}
	existing.InPlaceUnion(perms)
}

// Index is the built relabel-reachability index for one immutable
// Policy. Built once via Build and consulted read-only thereafter.
type Index struct {
	policy  *policydb.Policy
	bySubject map[int32]map[int32]*Entry // subject -> target -> entry
}

// Subjects returns every subject type with at least one relabel-set
// entry, unordered.
func (idx *Index) Subjects() []int32 {
	out := make([]int32, 0, len(idx.bySubject))
	for s := range idx.bySubject {
		out = append(out, s)
	}
	return out
}

// Domain returns the full relabel set for subject type d, keyed by
// target type (map order, unordered), or nil if d has no entries.
func (idx *Index) Domain(d int32) map[int32]*Entry {
	return idx.bySubject[d]
}

func (idx *Index) ensureSubject(src int32) map[int32]*Entry {
	m, ok := idx.bySubject[src]
	if !ok {
		m = make(map[int32]*Entry)
		idx.bySubject[src] = m
	}
	return m
}

// expandedRule holds one allow rule's fully-expanded source, target,
// class, and perm sets, precomputed once so Pass 1/Pass 2 inner loops
// are O(1) per hit, per spec §4.F's complexity requirement. Target
// already has self substituted in by ExpandTypes, so no separate
// self-handling is needed here.
type expandedRule struct {
	ruleIdx int32
	src     *bitset.BitSet
	tgt     *bitset.BitSet
	classes *bitset.BitSet
	perms   *bitset.BitSet
}

// Build constructs the relabel index for policy, per the two-pass
// algorithm of spec §4.F. Only `allow` rules participate; neverallow,
// auditallow, dontaudit, and auditdeny rules are never consulted.
// The per-rule expansions that feed both passes are computed across
// numWorkers goroutines (spec §5 permits internal parallelism provided
// observable behavior is unchanged); Pass 1 and Pass 2 themselves run
// on a single goroutine, so result ordering and content are
// deterministic regardless of goroutine scheduling.
func Build(policy *policydb.Policy, numWorkers int) (*Index, error) {
	engine := rulequery.New(policy)
	relabelTo, hasTo := policy.Perms.LookupByName("relabelto")
	relabelFrom, hasFrom := policy.Perms.LookupByName("relabelfrom")

	var avIndices []int32
	for i := range policy.AVRules {
		if policy.AVRules[i].Kind == policydb.AVAllow {
			avIndices = append(avIndices, int32(i))
		}
	}

	expanded, err := expandRulesParallel(engine, avIndices, numWorkers)
	if err != nil {
		return nil, err
	}

	idx := &Index{policy: policy, bySubject: make(map[int32]map[int32]*Entry)}

	// Pass 1: seed direction + rule witnesses + this rule's own perm_sets.
	// Only rules granting relabelto or relabelfrom seed a (src, tgt) pair.
	for _, er := range expanded {
		grantsTo := hasTo && er.perms.Test(uint(relabelTo))
		grantsFrom := hasFrom && er.perms.Test(uint(relabelFrom))
		if !grantsTo && !grantsFrom {
			continue
		}
		for srcIdx, ok := er.src.NextSet(0); ok; srcIdx, ok = er.src.NextSet(srcIdx + 1) {
			src := int32(srcIdx)
			subj := idx.ensureSubject(src)

			for tgtIdx, ok := er.tgt.NextSet(0); ok; tgtIdx, ok = er.tgt.NextSet(tgtIdx + 1) {
				tgt := int32(tgtIdx)
				e, ok := subj[tgt]
				if !ok {
					e = newEntry(tgt)
					subj[tgt] = e
				}
				if grantsTo {
					e.Direction |= DirTo
					e.Rules = append(e.Rules, er.ruleIdx)
				}
				if grantsFrom {
					e.Direction |= DirFrom
				}
				for classIdx, ok := er.classes.NextSet(0); ok; classIdx, ok = er.classes.NextSet(classIdx + 1) {
					e.unionPerms(int32(classIdx), er.perms)
				}
			}
		}
	}

	// Pass 2: for every (src, tgt) already present, union in this
	// rule's full perm/class set; never create new pairs.
	for _, er := range expanded {
		for srcIdx, ok := er.src.NextSet(0); ok; srcIdx, ok = er.src.NextSet(srcIdx + 1) {
			src := int32(srcIdx)
			subj, ok := idx.bySubject[src]
			if !ok {
				continue
			}
			for tgtIdx, ok := er.tgt.NextSet(0); ok; tgtIdx, ok = er.tgt.NextSet(tgtIdx + 1) {
				e, ok := subj[int32(tgtIdx)]
				if !ok {
					continue
				}
				for classIdx, ok := er.classes.NextSet(0); ok; classIdx, ok = er.classes.NextSet(classIdx + 1) {
					e.unionPerms(int32(classIdx), er.perms)
				}
			}
		}
	}

	return idx, nil
}

// expandRulesParallel computes each allow rule's expansion, optionally
// spreading the work across numWorkers goroutines. numWorkers <= 1
// runs sequentially.
func expandRulesParallel(engine *rulequery.Engine, avIndices []int32, numWorkers int) ([]*expandedRule, error) {
	results := make([]*expandedRule, len(avIndices))
	errs := make([]error, len(avIndices))

	worker := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			ruleIdx := avIndices[i]
			ref := rulequery.RuleRef{Kind: rulequery.RuleAV, Index: ruleIdx}

			srcExp, err := engine.ExpandTypes(ref, rulequery.Source)
			if err != nil {
				errs[i] = err
				continue
			}
			extra, err := engine.CloneExpandedSources(ref)
			if err != nil {
				errs[i] = err
				continue
			}
			src := materialize(srcExp, engine.Policy().NumTypes(), true)
			for _, t := range extra {
				src.Set(uint(t))
			}

			tgtExp, err := engine.ExpandTypes(ref, rulequery.Target)
			if err != nil {
				errs[i] = err
				continue
			}
			classExp, err := engine.ExpandClasses(ref)
			if err != nil {
				errs[i] = err
				continue
			}
			permExp, err := engine.ExpandPerms(ref)
			if err != nil {
				errs[i] = err
				continue
			}

			results[i] = &expandedRule{
				ruleIdx: ruleIdx,
				src:     src,
				tgt:     materialize(tgtExp, engine.Policy().NumTypes(), true),
				classes: materialize(classExp, engine.Policy().NumClasses(), false),
				perms:   materialize(permExp, engine.Policy().NumPerms(), false),
			}
		}
	}

	if numWorkers <= 1 || len(avIndices) < 2 {
		worker(0, len(avIndices))
	} else {
		chunk := (len(avIndices) + numWorkers - 1) / numWorkers
		var wg sync.WaitGroup
		for lo := 0; lo < len(avIndices); lo += chunk {
			hi := lo + chunk
			if hi > len(avIndices) {
				hi = len(avIndices)
			}
			wg.Add(1)
			go func(lo, hi int) {
				defer wg.Done()
				worker(lo, hi)
			}(lo, hi)
		}
		wg.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// materialize turns an Expansion into a concrete bitset, filling the
// full universe of size n when the expansion was a bare wildcard.
// excludeSelf skips bit 0, the reserved self type index (§9: self must
// never be stored in a materialized type set); it is meaningless for
// the class/perm universes and those call sites pass false.
func materialize(exp rulequery.Expansion, n int, excludeSelf bool) *bitset.BitSet {
	if exp.Status == rulequery.StatusOK {
		return exp.Set
	}
	full := bitset.New(uint(n))
	start := uint(0)
	if excludeSelf {
		start = 1
	}
	for i := start; i < full.Len(); i++ {
		full.Set(i)
	}
	return full
}

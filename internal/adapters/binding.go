package adapters

import (
	"github.com/cici0602/sepolicy-analyzer/internal/relabel"
	"github.com/cici0602/sepolicy-analyzer/internal/rulequery"
)

// ScriptBindingSurface documents the shape a scripting-language binding
// (out of this spec's scope) would call: rule queries and relabel
// queries, nothing else. Per spec §4.H this layer is specified only by
// the interface the core consumes/exposes — it carries no logic of its
// own beyond delegating to the query engine and relabel index.
type ScriptBindingSurface interface {
	QueryRules(c rulequery.Criteria) (*rulequery.RuleIterator, error)
	RelabelQuery(startType int32, mode relabel.Mode, filter *relabel.Filter) (interface{}, error)
}

// EngineBinding is a trivial pass-through ScriptBindingSurface backed
// by one Engine and one relabel Index sharing the same Policy.
type EngineBinding struct {
	Engine *rulequery.Engine
	Index  *relabel.Index
}

func (b *EngineBinding) QueryRules(c rulequery.Criteria) (*rulequery.RuleIterator, error) {
	return b.Engine.QueryAVRules(c)
}

func (b *EngineBinding) RelabelQuery(startType int32, mode relabel.Mode, filter *relabel.Filter) (interface{}, error) {
	return relabel.Query(b.Index, startType, mode, filter)
}

// NullBinding is the second trivial implementation: every call reports
// no results without touching any policy, useful for CLI dry-run modes
// and as a binding-surface conformance baseline in tests.
type NullBinding struct{}

func (NullBinding) QueryRules(rulequery.Criteria) (*rulequery.RuleIterator, error) {
	return &rulequery.RuleIterator{}, nil
}

func (NullBinding) RelabelQuery(int32, relabel.Mode, *relabel.Filter) (interface{}, error) {
	return []relabel.Pair{}, nil
}

package rulequery_test

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
	"github.com/cici0602/sepolicy-analyzer/internal/rulequery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSimplePolicy(t *testing.T) (*policydb.Policy, int32, int32, int32, int32, int32) {
	t.Helper()
	b := policydb.NewBuilder(nil)

	domainT, err := b.InternType("domain_t")
	require.NoError(t, err)
	fileT, err := b.InternType("file_t")
	require.NoError(t, err)
	domainAttr, err := b.InternAttrib("domain")
	require.NoError(t, err)
	b.AddTypeAttribute(domainT, domainAttr)

	fileClass, err := b.InternClass("file", 1, -1, nil)
	require.NoError(t, err)
	readPerm, err := b.InternPerm("read")
	require.NoError(t, err)
	writePerm, err := b.InternPerm("write")
	require.NoError(t, err)

	b.AddAVRule(policydb.AVRule{
		Kind:    policydb.AVAllow,
		Src:     policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryAttrib, Index: domainAttr}}},
		Tgt:     policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryType, Index: fileT}}},
		Classes: policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryClass, Index: fileClass}}},
		Perms:   policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryPerm, Index: readPerm}}},
	})

	p, err := b.Finalize()
	require.NoError(t, err)
	return p, domainT, fileT, fileClass, readPerm, writePerm
}

func TestExpandTypesExpandsAttributeSource(t *testing.T) {
	p, domainT, _, _, _, _ := buildSimplePolicy(t)
	engine := rulequery.New(p)
	ref := rulequery.RuleRef{Kind: rulequery.RuleAV, Index: 0}

	exp, err := engine.ExpandTypes(ref, rulequery.Source)
	require.NoError(t, err)
	require.Equal(t, rulequery.StatusOK, exp.Status)
	assert.True(t, exp.Set.Test(uint(domainT)))
}

func TestRuleReferencesTypeIndirectViaAttribute(t *testing.T) {
	p, domainT, _, _, _, _ := buildSimplePolicy(t)
	engine := rulequery.New(p)
	ref := rulequery.RuleRef{Kind: rulequery.RuleAV, Index: 0}

	ok, err := engine.RuleReferencesType(ref, domainT, policydb.EntryType, rulequery.Source, true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.RuleReferencesType(ref, domainT, policydb.EntryType, rulequery.Source, false)
	require.NoError(t, err)
	assert.False(t, ok, "direct (non-indirect) match should miss an attribute-only source entry")
}

func TestRuleReferencesPermMatchesOnlyDeclaredPerm(t *testing.T) {
	p, _, _, _, readPerm, writePerm := buildSimplePolicy(t)
	engine := rulequery.New(p)
	ref := rulequery.RuleRef{Kind: rulequery.RuleAV, Index: 0}

	readSet := bitset.New(uint(p.NumPerms()))
	readSet.Set(uint(readPerm))
	ok, err := engine.RuleReferencesPerm(ref, readSet)
	require.NoError(t, err)
	assert.True(t, ok)

	writeSet := bitset.New(uint(p.NumPerms()))
	writeSet.Set(uint(writePerm))
	ok, err = engine.RuleReferencesPerm(ref, writeSet)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryAVRulesFiltersBySourceType(t *testing.T) {
	p, domainT, fileT, _, _, _ := buildSimplePolicy(t)
	engine := rulequery.New(p)

	it, err := engine.QueryAVRules(rulequery.Criteria{SrcType: &domainT, DoIndirect: true})
	require.NoError(t, err)
	idx, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, int32(0), idx)
	_, ok = it.Next()
	assert.False(t, ok)

	it, err = engine.QueryAVRules(rulequery.Criteria{SrcType: &fileT, DoIndirect: true})
	require.NoError(t, err)
	_, ok = it.Next()
	assert.False(t, ok, "file_t never appears as a source in this fixture")
}

func TestExpandTypesWildcardReportsStatusWildcard(t *testing.T) {
	b := policydb.NewBuilder(nil)
	domainT, _ := b.InternType("domain_t")
	fileT, _ := b.InternType("file_t")
	b.AddAVRule(policydb.AVRule{
		Kind: policydb.AVAllow,
		Src:  policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryType, Index: domainT}}},
		Tgt:  policydb.List{Wildcard: true},
	})
	p, err := b.Finalize()
	require.NoError(t, err)
	_ = fileT

	engine := rulequery.New(p)
	exp, err := engine.ExpandTypes(rulequery.RuleRef{Kind: rulequery.RuleAV, Index: 0}, rulequery.Target)
	require.NoError(t, err)
	assert.Equal(t, rulequery.StatusWildcard, exp.Status)
	assert.Nil(t, exp.Set)
}

func TestExpandTypesSelfSubstitutesExpandedSource(t *testing.T) {
	b := policydb.NewBuilder(nil)
	domainAttr, _ := b.InternAttrib("domain")
	a, _ := b.InternType("a_t")
	c, _ := b.InternType("c_t")
	b.AddTypeAttribute(a, domainAttr)
	b.AddTypeAttribute(c, domainAttr)

	b.AddAVRule(policydb.AVRule{
		Kind: policydb.AVAllow,
		Src:  policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryAttrib, Index: domainAttr}}},
		Tgt:  policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntrySelf}}},
	})
	p, err := b.Finalize()
	require.NoError(t, err)

	engine := rulequery.New(p)
	exp, err := engine.ExpandTypes(rulequery.RuleRef{Kind: rulequery.RuleAV, Index: 0}, rulequery.Target)
	require.NoError(t, err)
	require.Equal(t, rulequery.StatusOK, exp.Status)
	assert.True(t, exp.Set.Test(uint(a)))
	assert.True(t, exp.Set.Test(uint(c)))
}

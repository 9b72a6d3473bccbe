package policydb_test

import (
	"testing"

	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuilderPreInternsSelfAtZero(t *testing.T) {
	b := policydb.NewBuilder(nil)
	p, err := b.Finalize()
	require.NoError(t, err)

	idx, ok := p.Types.LookupByName(policydb.SelfName)
	require.True(t, ok)
	assert.Equal(t, policydb.SelfType, idx)
}

func TestFinalizeMaterializesSymmetricTypeAttribute(t *testing.T) {
	b := policydb.NewBuilder(nil)
	domainT, err := b.InternType("domain_t")
	require.NoError(t, err)
	domainAttr, err := b.InternAttrib("domain")
	require.NoError(t, err)
	b.AddTypeAttribute(domainT, domainAttr)

	p, err := b.Finalize()
	require.NoError(t, err)

	assert.True(t, p.TypeDecls[domainT].Attribute.Test(uint(domainAttr)))
	assert.True(t, p.AttribDecls[domainAttr].Types.Test(uint(domainT)))
}

func TestFinalizeRejectsOutOfRangeTypeAttributePair(t *testing.T) {
	b := policydb.NewBuilder(nil)
	domainT, err := b.InternType("domain_t")
	require.NoError(t, err)
	b.AddTypeAttribute(domainT, 999)

	_, err = b.Finalize()
	assert.Error(t, err)
}

func TestClassFullPermsUnionsCommonAndUnique(t *testing.T) {
	b := policydb.NewBuilder(nil)
	read, _ := b.InternPerm("read")
	write, _ := b.InternPerm("write")
	ioctl, _ := b.InternPerm("ioctl")

	commonIdx, err := b.InternCommonPerm("file", []int32{read, write})
	require.NoError(t, err)

	classIdx, err := b.InternClass("file", 1, commonIdx, []int32{ioctl})
	require.NoError(t, err)

	p, err := b.Finalize()
	require.NoError(t, err)

	full := p.ClassDecls[classIdx].FullPerms(p)
	assert.True(t, full.Test(uint(read)))
	assert.True(t, full.Test(uint(write)))
	assert.True(t, full.Test(uint(ioctl)))
}

func TestAddAVRuleAssignsSequentialIndices(t *testing.T) {
	b := policydb.NewBuilder(nil)
	domainT, _ := b.InternType("domain_t")
	fileT, _ := b.InternType("file_t")
	fileClass, _ := b.InternClass("file", 1, -1, nil)
	readPerm, _ := b.InternPerm("read")

	rule := policydb.AVRule{
		Kind:    policydb.AVAllow,
		Src:     policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryType, Index: domainT}}},
		Tgt:     policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryType, Index: fileT}}},
		Classes: policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryClass, Index: fileClass}}},
		Perms:   policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryPerm, Index: readPerm}}},
	}
	idx0 := b.AddAVRule(rule)
	idx1 := b.AddAVRule(rule)
	assert.Equal(t, int32(0), idx0)
	assert.Equal(t, int32(1), idx1)

	p, err := b.Finalize()
	require.NoError(t, err)
	require.Len(t, p.AVRules, 2)
	assert.Equal(t, int32(-1), p.AVRules[0].CondIndex)
}

func TestConditionalAVRuleRecordsBranch(t *testing.T) {
	b := policydb.NewBuilder(nil)
	condIdx := b.AddConditional([]policydb.CondNode{{Op: policydb.CondBoolRef, Bool: 0}})

	domainT, _ := b.InternType("domain_t")
	fileT, _ := b.InternType("file_t")

	rule := policydb.AVRule{
		Kind: policydb.AVAllow,
		Src:  policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryType, Index: domainT}}},
		Tgt:  policydb.List{Entries: []policydb.ListEntry{{Kind: policydb.EntryType, Index: fileT}}},
	}
	ruleIdx := b.AddConditionalAVRule(condIdx, true, rule)

	p, err := b.Finalize()
	require.NoError(t, err)
	assert.Equal(t, condIdx, p.AVRules[ruleIdx].CondIndex)
	assert.True(t, p.AVRules[ruleIdx].CondBranch)
	assert.Contains(t, p.Conditionals[condIdx].TrueAVRules, ruleIdx)
}

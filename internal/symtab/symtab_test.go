package symtab_test

import (
	"testing"

	"github.com/cici0602/sepolicy-analyzer/internal/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternAssignsStableIndices(t *testing.T) {
	tab := symtab.New()
	idx1, isNew1, err := tab.Intern("domain_t")
	require.NoError(t, err)
	assert.True(t, isNew1)
	assert.Equal(t, int32(0), idx1)

	idx2, isNew2, err := tab.Intern("file_t")
	require.NoError(t, err)
	assert.True(t, isNew2)
	assert.Equal(t, int32(1), idx2)

	idxAgain, isNew3, err := tab.Intern("domain_t")
	require.NoError(t, err)
	assert.False(t, isNew3)
	assert.Equal(t, idx1, idxAgain)
}

func TestInternEmptyNameIsError(t *testing.T) {
	tab := symtab.New()
	_, _, err := tab.Intern("")
	assert.Error(t, err)
}

func TestLookupByNameAndIndex(t *testing.T) {
	tab := symtab.New()
	idx, _, err := tab.Intern("bin_t")
	require.NoError(t, err)

	got, ok := tab.LookupByName("bin_t")
	require.True(t, ok)
	assert.Equal(t, idx, got)

	_, ok = tab.LookupByName("nosuch")
	assert.False(t, ok)

	name, ok := tab.LookupByIndex(idx)
	require.True(t, ok)
	assert.Equal(t, "bin_t", name)

	_, ok = tab.LookupByIndex(99)
	assert.False(t, ok)
}

func TestIterateIsDeclarationOrdered(t *testing.T) {
	tab := symtab.New()
	tab.Intern("a")
	tab.Intern("b")
	tab.Intern("c")

	entries := tab.Iterate()
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
	assert.Equal(t, "c", entries[2].Name)
}

func TestAliasResolvesToPrimaryIndex(t *testing.T) {
	at := symtab.NewAlias()
	primary, _, err := at.Intern("domain_t")
	require.NoError(t, err)

	require.NoError(t, at.InternAlias(primary, "base_domain_t"))

	idx, ok := at.LookupByName("base_domain_t")
	require.True(t, ok)
	assert.Equal(t, primary, idx)

	assert.ElementsMatch(t, []string{"base_domain_t"}, at.AliasesOf(primary))
}

func TestAliasCollisionWithExistingNameIsError(t *testing.T) {
	at := symtab.NewAlias()
	primary, _, err := at.Intern("domain_t")
	require.NoError(t, err)
	_, _, err = at.Intern("file_t")
	require.NoError(t, err)

	err = at.InternAlias(primary, "file_t")
	assert.Error(t, err)
}

func TestAliasUnknownPrimaryIsError(t *testing.T) {
	at := symtab.NewAlias()
	err := at.InternAlias(42, "ghost_t")
	assert.Error(t, err)
}

package adapters_test

import (
	"strings"
	"testing"

	"github.com/cici0602/sepolicy-analyzer/internal/adapters"
	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	events []diag.Event
}

func (c *captureSink) Emit(e diag.Event) { c.events = append(c.events, e) }

func buildPolicy(t *testing.T) *policydb.Policy {
	t.Helper()
	b := policydb.NewBuilder(nil)
	_, err := b.InternUser("user_u")
	require.NoError(t, err)
	_, err = b.InternRole("object_r")
	require.NoError(t, err)
	_, err = b.InternType("etc_t")
	require.NoError(t, err)
	p, err := b.Finalize()
	require.NoError(t, err)
	return p
}

func TestLoadFileContextsBasic(t *testing.T) {
	policy := buildPolicy(t)
	text := "/etc/passwd -- user_u:object_r:etc_t\n/tmp(/.*)?    <<none>>\n"
	entries, err := adapters.LoadFileContexts(strings.NewReader(text), policy, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "/etc/passwd", entries[0].PathGlob)
	assert.Equal(t, adapters.FileTypeRegular, entries[0].Type)
	assert.False(t, entries[0].Unlabeled)

	assert.True(t, entries[1].Unlabeled)
}

func TestLoadFileContextsUnknownIdentifierWarnsAndSkips(t *testing.T) {
	policy := buildPolicy(t)
	text := "/bogus -- nosuchuser:object_r:etc_t\n"
	sink := &captureSink{}
	entries, err := adapters.LoadFileContexts(strings.NewReader(text), policy, sink)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotEmpty(t, sink.events)
}

func TestLoadFileContextsNoFiletypeQualifier(t *testing.T) {
	policy := buildPolicy(t)
	text := "/var/lib(/.*)? user_u:object_r:etc_t\n"
	entries, err := adapters.LoadFileContexts(strings.NewReader(text), policy, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, adapters.FileTypeAny, entries[0].Type)
}

func TestLoadFileContextsMalformedLineWarnsAndSkips(t *testing.T) {
	policy := buildPolicy(t)
	text := "onlyonefield\n"
	sink := &captureSink{}
	entries, err := adapters.LoadFileContexts(strings.NewReader(text), policy, sink)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotEmpty(t, sink.events)
}

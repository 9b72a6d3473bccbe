package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixtureYAML = `
types:
  - name: user_t
  - name: bin_t
classes:
  - name: file
    value: 1
    perms: [read, write, execute]
av_rules:
  - kind: allow
    src:
      entries: [{type: user_t}]
    tgt:
      entries: [{type: bin_t}]
    classes:
      entries: [{class: file}]
    perms:
      entries: [{perm: read}]
`

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))
	return path
}

func TestVersionCommandRuns(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.RunE(cmd, nil))
}

func TestLoadPolicyRequiresPolicyFlag(t *testing.T) {
	policyPath = ""
	_, err := loadPolicy()
	assert.Error(t, err)
}

func TestLoadPolicyMissingFileIsIOError(t *testing.T) {
	logger = zap.NewNop()
	policyPath = "/no/such/policy/file.yaml"
	_, err := loadPolicy()
	require.Error(t, err)
	assert.Equal(t, ExitIOError, exitCodeFor(err))
}

func TestLoadPolicyFromFixture(t *testing.T) {
	logger = zap.NewNop()
	dir := t.TempDir()
	policyPath = writeFixture(t, dir)

	p, err := loadPolicy()
	require.NoError(t, err)
	// Two declared types plus the reserved self type at index 0.
	assert.Equal(t, 3, p.NumTypes())
	assert.Equal(t, 1, p.NumClasses())
}

func TestRootCommandWiresAllSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range []interface {
		Name() string
	}{newQueryCmd(), newRelabelCmd(), newPermMapCmd(), newVersionCmd()} {
		names[c.Name()] = true
	}
	assert.True(t, names["query"])
	assert.True(t, names["relabel"])
	assert.True(t, names["permmap"])
	assert.True(t, names["version"])
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPathDefaultOrder(t *testing.T) {
	os.Unsetenv(EnvVar)
	path := SearchPath()
	require.Len(t, path, 2)
	assert.Equal(t, ".", path[0])
	assert.Equal(t, InstallPrefix, path[1])
}

func TestSearchPathIncludesDataDir(t *testing.T) {
	t.Setenv(EnvVar, "/tmp/custom-sepolq-data")
	path := SearchPath()
	require.Len(t, path, 3)
	assert.Equal(t, ".", path[0])
	assert.Equal(t, "/tmp/custom-sepolq-data", path[1])
	assert.Equal(t, InstallPrefix, path[2])
}

func TestFindFileFindsInCurrentDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(t.TempDir()) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "perm_map"), []byte("1\n"), 0o644))
	os.Unsetenv(EnvVar)

	got := FindFile("perm_map")
	assert.Equal(t, filepath.Join(".", "perm_map"), got)
}

func TestFindFileReturnsEmptyWhenMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	os.Unsetenv(EnvVar)

	got := FindFile("does_not_exist_anywhere")
	assert.Equal(t, "", got)
}

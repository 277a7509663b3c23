package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	ix, err := Load(filepath.Join(t.TempDir(), "hashes.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.txt")
	require.NoError(t, os.WriteFile(path, []byte("19599\n97\n\n16387964441\n"), 0o644))

	ix, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
	assert.True(t, ix.Contains(97))
	assert.False(t, ix.Contains(98))

	assert.True(t, ix.Add(98))
	assert.False(t, ix.Add(98))
	require.NoError(t, ix.Save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "97\n98\n19599\n16387964441\n", string(raw))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, again.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.txt")
	require.NoError(t, os.WriteFile(path, []byte("12\nabc\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	ix, _ := Load(filepath.Join(t.TempDir(), "hashes.txt"))
	ix.Add(1)
	cp := ix.Clone()
	ix.Add(2)
	assert.Equal(t, 1, cp.Len())
	assert.Equal(t, ix.Path(), cp.Path())
}

package cmdutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/endorses/ackit/internal/pkg/ahocorasick"
	"github.com/endorses/ackit/internal/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDict(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patterns.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadAutomaton_Dictionary(t *testing.T) {
	path := writeDict(t, "he\nshe\thers\n")

	a, err := LoadAutomaton(path, "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Len())

	value, err := a.Get("she")
	require.NoError(t, err)
	assert.Equal(t, "hers", value)
}

func TestLoadAutomaton_IgnoreCase(t *testing.T) {
	path := writeDict(t, "Alice\n")

	a, err := LoadAutomaton(path, "", true)
	require.NoError(t, err)

	found, err := a.Contains("ALICE was here")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLoadAutomaton_Snapshot(t *testing.T) {
	built, err := ahocorasick.Build([]ahocorasick.Entry[string]{{Key: "abc", Value: "x"}}, ahocorasick.WithFoldCase())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "patterns.acs")
	_, err = snapshot.Save(path, built)
	require.NoError(t, err)

	a, err := LoadAutomaton("", path, false)
	require.NoError(t, err)
	assert.True(t, a.FoldCase())

	found, err := a.Contains("xxABCxx")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLoadAutomaton_Sources(t *testing.T) {
	_, err := LoadAutomaton("", "", false)
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = LoadAutomaton("a.txt", "b.acs", false)
	assert.ErrorIs(t, err, ErrConflictingSources)

	_, err = LoadAutomaton(filepath.Join(t.TempDir(), "missing.txt"), "", false)
	assert.Error(t, err)
}

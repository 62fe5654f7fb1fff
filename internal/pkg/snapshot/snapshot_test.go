package snapshot

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/endorses/ackit/internal/pkg/ahocorasick"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTextbook(t *testing.T, opts ...ahocorasick.Option) *ahocorasick.Automaton[string] {
	t.Helper()
	a, err := ahocorasick.Build([]ahocorasick.Entry[string]{
		{Key: "he", Value: "1"},
		{Key: "she", Value: "2"},
		{Key: "his", Value: "3"},
		{Key: "hers", Value: "4"},
	}, opts...)
	require.NoError(t, err)
	return a
}

func TestWriteRead(t *testing.T) {
	original := buildTextbook(t)

	var buf bytes.Buffer
	header, err := Write(&buf, original)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, header.ID)
	assert.Equal(t, FormatVersion, header.Version)
	assert.Equal(t, 4, header.Patterns)
	assert.Equal(t, original.Stats().States, header.States)
	assert.False(t, header.Created.IsZero())

	restored, readHeader, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, header.ID, readHeader.ID)
	assert.True(t, header.Created.Equal(readHeader.Created))

	for _, text := range []string{"ushers", "his hers", ""} {
		want, err := original.Matches(text)
		require.NoError(t, err)
		got, err := restored.Matches(text)
		require.NoError(t, err)
		assert.Equal(t, want, got, text)
	}
}

func TestWrite_RequiresFrozen(t *testing.T) {
	a := ahocorasick.New[string]()
	_, err := a.AddWord("he", "1")
	require.NoError(t, err)

	_, err = Write(&bytes.Buffer{}, a)
	assert.ErrorIs(t, err, ahocorasick.ErrBuildState)
}

func TestRead_Errors(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, _, err := Read(bytes.NewReader([]byte("not a snapshot")))
		assert.Error(t, err)
	})

	t.Run("unsupported version", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, gob.NewEncoder(&buf).Encode(Header{Version: FormatVersion + 1}))
		_, _, err := Read(&buf)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("corrupt body", func(t *testing.T) {
		var buf bytes.Buffer
		enc := gob.NewEncoder(&buf)
		require.NoError(t, enc.Encode(Header{Version: FormatVersion}))
		require.NoError(t, enc.Encode(ahocorasick.Snapshot[string]{
			Nodes: []ahocorasick.SnapshotNode{{Symbols: []rune{'a'}, Children: []int32{5}}},
		}))
		_, _, err := Read(&buf)
		assert.ErrorIs(t, err, ahocorasick.ErrCorruptSnapshot)
	})
}

func TestSaveOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dict.acs")
	original := buildTextbook(t, ahocorasick.WithFoldCase())

	header, err := Save(path, original)
	require.NoError(t, err)
	assert.True(t, header.FoldCase)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	restored, readHeader, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, header.ID, readHeader.ID)
	assert.True(t, restored.FoldCase())
	assert.Equal(t, original.Keys(), restored.Keys())

	found, err := restored.Contains("USHERS")
	require.NoError(t, err)
	assert.True(t, found)

	_, _, err = Open(filepath.Join(t.TempDir(), "missing.acs"))
	assert.Error(t, err)
}

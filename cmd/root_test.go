package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "No arguments shows help",
			args:     []string{},
			contains: []string{"multi-pattern text matcher", "scan", "lookup", "compile", "watch"},
		},
		{
			name:     "Help flag",
			args:     []string{"--help"},
			contains: []string{"Aho-Corasick", "--ignore-case", "--log-level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ackit ")
	assert.Contains(t, out, "commit:")
	assert.Contains(t, out, "platform:")
}

func TestUnknownLogLevel(t *testing.T) {
	t.Cleanup(func() {
		_ = rootCmd.PersistentFlags().Set("log-level", "warn")
	})

	_, err := execute(t, "--log-level", "loud", "version")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestUnknownLogFormat(t *testing.T) {
	t.Cleanup(func() {
		_ = rootCmd.PersistentFlags().Set("log-format", "json")
	})

	_, err := execute(t, "--log-format", "xml", "version")
	assert.ErrorContains(t, err, "unknown log format")
}

func TestLookupThroughRoot(t *testing.T) {
	dict := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(dict, []byte("Hello\tgreeting\n"), 0600))

	out, err := execute(t, "--ignore-case", "lookup", "--dict", dict, "hello")
	require.NoError(t, err)
	assert.Equal(t, "greeting\n", out)

	_, err = execute(t, "lookup", "--dict", dict, "nope")
	assert.ErrorContains(t, err, "not found")
}

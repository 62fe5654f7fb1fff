// Package dictionary loads pattern dictionaries for the matcher.
//
// Two formats are supported. The line format has one "key [value]" entry per
// line: a tab separates key and value when present, otherwise the first
// whitespace-delimited field is the key and the rest of the line is the
// value. Blank lines and lines starting with # are ignored. The YAML format
// is a list under "patterns" with key and value fields.
//
// An entry without a value uses its key as the value.
package dictionary

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/endorses/ackit/internal/pkg/ahocorasick"
	"gopkg.in/yaml.v3"
)

// Entry is a dictionary key and its payload.
type Entry = ahocorasick.Entry[string]

// ErrMalformedLine is returned for entries without a key.
var ErrMalformedLine = errors.New("malformed dictionary entry")

// maxLineLength bounds a single dictionary line.
const maxLineLength = 1024 * 1024

var (
	// fileLock protects atomic file writes
	fileLock sync.Mutex
)

// File is the YAML structure of a dictionary file.
type File struct {
	Patterns []PatternYAML `yaml:"patterns"`
}

// PatternYAML is one entry in YAML form.
type PatternYAML struct {
	Key   string  `yaml:"key"`
	Value *string `yaml:"value,omitempty"`
}

// Parse reads entries in the line format. It stops at the first line with
// an empty key column.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)

	var entries []Entry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		trimmed := strings.TrimSpace(line)
		// Skip empty lines and comments
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		entry, err := parseLine(line, trimmed)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}

	return entries, nil
}

func parseLine(line, trimmed string) (Entry, error) {
	var key, value string
	if tab := strings.IndexByte(line, '\t'); tab >= 0 {
		key = strings.TrimSpace(line[:tab])
		value = strings.TrimSpace(line[tab+1:])
		if key == "" {
			return Entry{}, fmt.Errorf("%w: missing key column", ErrMalformedLine)
		}
	} else if sp := strings.IndexFunc(trimmed, unicode.IsSpace); sp >= 0 {
		key = trimmed[:sp]
		value = strings.TrimSpace(trimmed[sp:])
	} else {
		key = trimmed
	}

	if value == "" {
		value = key
	}
	return Entry{Key: key, Value: value}, nil
}

// ParseYAML reads entries in the YAML format.
func ParseYAML(data []byte) ([]Entry, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary YAML: %w", err)
	}

	entries := make([]Entry, 0, len(file.Patterns))
	for i, p := range file.Patterns {
		if p.Key == "" {
			return nil, fmt.Errorf("pattern %d: %w: missing key", i, ErrMalformedLine)
		}
		value := p.Key
		if p.Value != nil {
			value = *p.Value
		}
		entries = append(entries, Entry{Key: p.Key, Value: value})
	}
	return entries, nil
}

// IsYAML reports whether path names a YAML dictionary.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a dictionary file, choosing the format by extension.
func Load(path string) ([]Entry, error) {
	// #nosec G304 -- Path is from configuration, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}

	var entries []Entry
	if IsYAML(path) {
		entries, err = ParseYAML(data)
	} else {
		entries, err = Parse(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// WriteYAML writes entries to a YAML file with atomic write.
func WriteYAML(path string, entries []Entry) error {
	fileLock.Lock()
	defer fileLock.Unlock()

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create dictionary directory: %w", err)
	}

	file := File{Patterns: make([]PatternYAML, len(entries))}
	for i, e := range entries {
		value := e.Value
		file.Patterns[i] = PatternYAML{Key: e.Key, Value: &value}
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal dictionary to YAML: %w", err)
	}

	// Atomic write: write to temp file, then rename
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp dictionary file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile) // Cleanup temp file on error
		return fmt.Errorf("failed to rename temp dictionary file: %w", err)
	}

	return nil
}

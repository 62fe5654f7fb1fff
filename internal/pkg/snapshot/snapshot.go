// Package snapshot persists built automata so large dictionaries are
// compiled once and loaded without rebuilding failure links.
//
// A snapshot file is a gob stream holding a Header followed by the
// automaton's pointer-free export.
package snapshot

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/endorses/ackit/internal/pkg/ahocorasick"
	"github.com/google/uuid"
)

// FormatVersion is the snapshot layout written by this package.
const FormatVersion = 1

// ErrUnsupportedVersion is returned for snapshots written in another layout.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Header describes a snapshot.
type Header struct {
	ID       uuid.UUID
	Created  time.Time
	Version  int
	Patterns int
	States   int
	FoldCase bool
}

// Write encodes a frozen automaton to w.
func Write(w io.Writer, a *ahocorasick.Automaton[string]) (Header, error) {
	body, err := a.Export()
	if err != nil {
		return Header{}, err
	}

	stats := a.Stats()
	header := Header{
		ID:       uuid.New(),
		Created:  time.Now().UTC(),
		Version:  FormatVersion,
		Patterns: stats.Patterns,
		States:   stats.States,
		FoldCase: body.FoldCase,
	}

	enc := gob.NewEncoder(w)
	if err := enc.Encode(header); err != nil {
		return Header{}, fmt.Errorf("failed to encode snapshot header: %w", err)
	}
	if err := enc.Encode(body); err != nil {
		return Header{}, fmt.Errorf("failed to encode snapshot body: %w", err)
	}

	return header, nil
}

// Read decodes a snapshot from r and restores its automaton.
func Read(r io.Reader) (*ahocorasick.Automaton[string], Header, error) {
	dec := gob.NewDecoder(r)

	var header Header
	if err := dec.Decode(&header); err != nil {
		return nil, Header{}, fmt.Errorf("failed to decode snapshot header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, header, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version)
	}

	var body ahocorasick.Snapshot[string]
	if err := dec.Decode(&body); err != nil {
		return nil, header, fmt.Errorf("failed to decode snapshot body: %w", err)
	}

	a, err := ahocorasick.Restore(body)
	if err != nil {
		return nil, header, err
	}
	return a, header, nil
}

// Save writes a snapshot file with atomic write.
func Save(path string, a *ahocorasick.Automaton[string]) (Header, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return Header{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile := path + ".tmp"
	// #nosec G304 -- Path is from configuration, not user input
	f, err := os.OpenFile(tempFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return Header{}, fmt.Errorf("failed to create temp snapshot file: %w", err)
	}

	header, err := Write(f, a)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close temp snapshot file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(tempFile)
		return Header{}, err
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile) // Cleanup temp file on error
		return Header{}, fmt.Errorf("failed to rename temp snapshot file: %w", err)
	}

	return header, nil
}

// Open reads a snapshot file.
func Open(path string) (*ahocorasick.Automaton[string], Header, error) {
	// #nosec G304 -- Path is from configuration, not user input
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	a, header, err := Read(f)
	if err != nil {
		return nil, header, fmt.Errorf("%s: %w", path, err)
	}
	return a, header, nil
}

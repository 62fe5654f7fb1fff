package cmdutil

import (
	"errors"

	"github.com/endorses/ackit/internal/pkg/ahocorasick"
	"github.com/endorses/ackit/internal/pkg/dictionary"
	"github.com/endorses/ackit/internal/pkg/logger"
	"github.com/endorses/ackit/internal/pkg/snapshot"
)

// ErrNoSource is returned when neither a dictionary nor a snapshot is given.
var ErrNoSource = errors.New("either --dict or --snapshot is required")

// ErrConflictingSources is returned when both a dictionary and a snapshot are given.
var ErrConflictingSources = errors.New("--dict and --snapshot are mutually exclusive")

// MatcherOptions returns automaton options for the ignore-case setting.
func MatcherOptions(ignoreCase bool) []ahocorasick.Option {
	if ignoreCase {
		return []ahocorasick.Option{ahocorasick.WithFoldCase()}
	}
	return nil
}

// LoadAutomaton builds an automaton from a dictionary file or opens a
// compiled snapshot. A snapshot keeps the case mode it was compiled with.
func LoadAutomaton(dictPath, snapshotPath string, ignoreCase bool) (*ahocorasick.Automaton[string], error) {
	switch {
	case dictPath != "" && snapshotPath != "":
		return nil, ErrConflictingSources
	case snapshotPath != "":
		a, header, err := snapshot.Open(snapshotPath)
		if err != nil {
			return nil, err
		}
		if header.FoldCase != ignoreCase {
			logger.Warn("Snapshot case mode differs from --ignore-case, using snapshot mode",
				"snapshot", snapshotPath,
				"fold_case", header.FoldCase)
		}
		logger.Debug("Loaded snapshot",
			"snapshot", snapshotPath,
			"id", header.ID.String(),
			"patterns", header.Patterns)
		return a, nil
	case dictPath != "":
		entries, err := dictionary.Load(dictPath)
		if err != nil {
			return nil, err
		}
		return ahocorasick.Build(entries, MatcherOptions(ignoreCase)...)
	default:
		return nil, ErrNoSource
	}
}

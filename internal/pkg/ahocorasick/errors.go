package ahocorasick

import "errors"

var (
	// ErrInvalidPattern is returned when a pattern key cannot be inserted.
	// The only invalid key is the empty string, which would match at every position.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrNotFound is returned by Get for keys that were never registered.
	ErrNotFound = errors.New("pattern not found")

	// ErrBuildState is returned when an operation does not fit the automaton's
	// lifecycle: querying before Freeze, or mutating after it without Thaw.
	ErrBuildState = errors.New("invalid automaton build state")

	// ErrCorruptSnapshot is returned by Restore when a snapshot does not
	// describe a well-formed automaton.
	ErrCorruptSnapshot = errors.New("corrupt automaton snapshot")
)

// Package ahocorasick provides an implementation of the Aho-Corasick string matching algorithm.
// The Aho-Corasick algorithm allows matching multiple patterns simultaneously against an input
// string in O(n + m + z) time, where n is the input length, m is the total pattern length,
// and z is the number of matches.
//
// An Automaton has a build-then-freeze lifecycle. Patterns are added with AddWord,
// Freeze computes the failure links, and only a frozen automaton answers queries.
// Scan state lives inside each query call, so a frozen automaton can be shared by
// any number of concurrent readers.
package ahocorasick

import (
	"fmt"
	"slices"
	"unicode"
)

// rootState is the arena index of the root node.
const rootState int32 = 0

// noState marks an absent link in the arena.
const noState int32 = -1

// node represents a state in the Aho-Corasick automaton.
// Every reference between nodes is an index into Automaton.nodes.
type node struct {
	// children maps input runes to next states.
	children map[rune]int32

	// fail is the state to transition to when no child matches.
	// It points to the longest proper suffix of this node's path that is
	// also a path from the root. The root fails to itself.
	fail int32

	// dict is the nearest terminal state strictly up the fail chain,
	// or noState. Following dict links enumerates every shorter pattern
	// that ends where this state's path ends.
	dict int32

	// depth is the number of runes on the path from the root.
	depth int32

	// terminal is true iff the path from the root spells a registered pattern.
	terminal bool

	// pattern is the registered key this node terminates.
	pattern string
}

func newNode(depth int32) node {
	return node{
		children: make(map[rune]int32),
		fail:     rootState,
		dict:     noState,
		depth:    depth,
	}
}

// Entry is a pattern key and the payload reported when it matches.
type Entry[V any] struct {
	Key   string
	Value V
}

// Stats describes the shape of an automaton.
type Stats struct {
	Patterns int
	States   int
	MaxDepth int
	Frozen   bool
}

// Option configures an Automaton.
type Option func(*options)

type options struct {
	foldCase bool
}

// WithFoldCase makes keys and query text compare case-insensitively by
// lowering each rune. Keys are stored in their lowered form.
func WithFoldCase() Option {
	return func(o *options) {
		o.foldCase = true
	}
}

// Automaton is an Aho-Corasick automaton for multi-pattern string matching
// with a payload of type V attached to every pattern.
type Automaton[V any] struct {
	// nodes is the state arena. Index 0 is the root.
	nodes []node

	// values is the pattern dictionary, keyed by the stored key.
	values map[string]V

	// keys holds the registered keys in first-insertion order.
	keys []string

	frozen   bool
	foldCase bool
	maxDepth int
}

// New creates an empty, unfrozen automaton.
func New[V any](opts ...Option) *Automaton[V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Automaton[V]{
		nodes:    []node{newNode(0)},
		values:   make(map[string]V),
		foldCase: o.foldCase,
	}
}

// normalize returns the stored form of a key.
func (a *Automaton[V]) normalize(key string) string {
	if !a.foldCase {
		return key
	}
	runes := []rune(key)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return string(runes)
}

// AddWord registers key with value. A key that is already registered has its
// value replaced. AddWord returns ErrInvalidPattern for an empty key and
// ErrBuildState once the automaton is frozen.
func (a *Automaton[V]) AddWord(key string, value V) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("%w: empty key", ErrInvalidPattern)
	}
	if a.frozen {
		return false, fmt.Errorf("%w: add %q to frozen automaton", ErrBuildState, key)
	}

	key = a.normalize(key)
	current := rootState
	for _, r := range key {
		next, exists := a.nodes[current].children[r]
		if !exists {
			next = int32(len(a.nodes))
			a.nodes = append(a.nodes, newNode(a.nodes[current].depth+1))
			a.nodes[current].children[r] = next
		}
		current = next
	}

	a.nodes[current].terminal = true
	a.nodes[current].pattern = key
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value

	return true, nil
}

// RemoveWord unregisters key. Trie nodes are kept; only the terminal mark
// and the dictionary entry go away. It reports whether key was registered.
func (a *Automaton[V]) RemoveWord(key string) (bool, error) {
	if a.frozen {
		return false, fmt.Errorf("%w: remove %q from frozen automaton", ErrBuildState, key)
	}

	key = a.normalize(key)
	state, ok := a.walk(key)
	if !ok || !a.nodes[state].terminal {
		return false, nil
	}

	a.nodes[state].terminal = false
	a.nodes[state].pattern = ""
	delete(a.values, key)
	if i := slices.Index(a.keys, key); i >= 0 {
		a.keys = slices.Delete(a.keys, i, i+1)
	}

	return true, nil
}

// walk follows key from the root along trie edges only.
func (a *Automaton[V]) walk(key string) (int32, bool) {
	current := rootState
	for _, r := range key {
		next, exists := a.nodes[current].children[r]
		if !exists {
			return 0, false
		}
		current = next
	}
	return current, true
}

// Exists reports whether key is a registered pattern. Prefixes of patterns
// do not count.
func (a *Automaton[V]) Exists(key string) bool {
	if key == "" {
		return false
	}
	state, ok := a.walk(a.normalize(key))
	return ok && a.nodes[state].terminal
}

// Get returns the payload registered for key, or ErrNotFound.
func (a *Automaton[V]) Get(key string) (V, error) {
	value, ok := a.values[a.normalize(key)]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return value, nil
}

// Len returns the number of distinct registered patterns.
func (a *Automaton[V]) Len() int {
	return len(a.values)
}

// Keys returns the registered keys in the order they were first added.
func (a *Automaton[V]) Keys() []string {
	return slices.Clone(a.keys)
}

// Entries returns the pattern dictionary in first-insertion order.
func (a *Automaton[V]) Entries() []Entry[V] {
	entries := make([]Entry[V], len(a.keys))
	for i, key := range a.keys {
		entries[i] = Entry[V]{Key: key, Value: a.values[key]}
	}
	return entries
}

// FoldCase reports whether the automaton was created WithFoldCase.
func (a *Automaton[V]) FoldCase() bool {
	return a.foldCase
}

// Frozen reports whether failure links are built and queries are allowed.
func (a *Automaton[V]) Frozen() bool {
	return a.frozen
}

// Stats returns the current pattern and state counts.
func (a *Automaton[V]) Stats() Stats {
	return Stats{
		Patterns: len(a.values),
		States:   len(a.nodes),
		MaxDepth: a.maxDepth,
		Frozen:   a.frozen,
	}
}

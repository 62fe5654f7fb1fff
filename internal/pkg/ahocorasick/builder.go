package ahocorasick

import (
	"fmt"
	"time"

	"github.com/endorses/ackit/internal/pkg/logger"
)

// Build constructs a frozen automaton from entries.
// The build process has two phases:
//  1. Trie construction: Insert all entries into a trie
//  2. Failure link computation: Use BFS to compute failure links for each state
//
// Later entries overwrite the values of earlier entries with the same key.
// Time complexity: O(m) where m is the total length of all keys.
func Build[V any](entries []Entry[V], opts ...Option) (*Automaton[V], error) {
	a := New[V](opts...)

	// Phase 1: Build trie
	for i, e := range entries {
		if _, err := a.AddWord(e.Key, e.Value); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	// Phase 2: Compute failure links
	a.Freeze()

	return a, nil
}

// Freeze computes failure links for every state and makes the automaton
// query-ready. Freezing a frozen automaton does nothing.
func (a *Automaton[V]) Freeze() {
	if a.frozen {
		return
	}

	start := time.Now()
	a.computeFailureLinks()
	a.frozen = true

	logger.Debug("Aho-Corasick automaton frozen",
		"pattern_count", len(a.values),
		"state_count", len(a.nodes),
		"max_depth", a.maxDepth,
		"duration", time.Since(start))
}

// Thaw drops the frozen mark so patterns can be added or removed again.
// Queries return ErrBuildState until the next Freeze, which rebuilds every link.
func (a *Automaton[V]) Thaw() {
	a.frozen = false
}

// computeFailureLinks uses BFS to compute failure links for all states.
// A state's link depends on its parent's link, and parents are always
// dequeued first because they sit at a strictly smaller depth.
func (a *Automaton[V]) computeFailureLinks() {
	queue := make([]int32, 0, len(a.nodes))
	a.maxDepth = 0

	a.nodes[rootState].fail = rootState
	a.nodes[rootState].dict = noState

	// States at depth 1 fail to the root
	for _, next := range a.nodes[rootState].children {
		a.nodes[next].fail = rootState
		a.nodes[next].dict = noState
		queue = append(queue, next)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		// Only reportable states bound the length of a match
		if d := int(a.nodes[current].depth); d > a.maxDepth && a.nodes[current].terminal {
			a.maxDepth = d
		}

		for r, next := range a.nodes[current].children {
			queue = append(queue, next)

			// Follow failure links until a state has a transition for r, or we reach the root
			failState := a.nodes[current].fail
			for failState != rootState {
				if _, exists := a.nodes[failState].children[r]; exists {
					break
				}
				failState = a.nodes[failState].fail
			}

			if target, exists := a.nodes[failState].children[r]; exists && target != next {
				a.nodes[next].fail = target
			} else {
				a.nodes[next].fail = rootState
			}

			// Nearest terminal up the fail chain, for reporting suffix matches
			fail := a.nodes[next].fail
			if a.nodes[fail].terminal {
				a.nodes[next].dict = fail
			} else {
				a.nodes[next].dict = a.nodes[fail].dict
			}
		}
	}
}

package ahocorasick

import (
	"fmt"
	"iter"
	"unicode"
	"unicode/utf8"
)

// Match represents one occurrence of a pattern in the input.
type Match[V any] struct {
	// Pattern is the stored key that matched.
	Pattern string

	// Value is the payload registered for Pattern.
	Value V

	// Start and End are 0-based rune indices of the first and last rune of
	// the occurrence. End is inclusive.
	Start int
	End   int

	// ByteStart and ByteEnd delimit the occurrence in the input as a
	// half-open byte range, so input[ByteStart:ByteEnd] is the matched text.
	ByteStart int
	ByteEnd   int
}

// Span is the rune range of a match. End is inclusive.
type Span struct {
	Start int
	End   int
}

// Matcher is the interface for pattern matching implementations.
// Both the automaton and the double-buffered matcher satisfy it.
type Matcher[V any] interface {
	// Matches finds every occurrence of every pattern in text.
	Matches(text string) ([]Match[V], error)

	// Search returns the rune span of every occurrence.
	Search(text string) ([]Span, error)

	// Contains reports whether any pattern occurs in text.
	Contains(text string) (bool, error)

	// Len returns the number of patterns in the matcher.
	Len() int
}

var _ Matcher[string] = (*Automaton[string])(nil)

// MatchIter lazily produces the matches of one scan over a text.
// Results come out in non-decreasing End order. Patterns that end at the
// same rune are reported longest first.
type MatchIter[V any] struct {
	a    *Automaton[V]
	text string

	// pos is the byte offset of the next rune to consume.
	pos int
	// next is the rune index of the next rune to consume.
	next int
	// current is the automaton state after the last consumed rune.
	current int32
	// pending is the next state whose pattern still has to be reported
	// for the last consumed rune, or noState.
	pending int32
	// offsets remembers the byte offset of the most recent runes, enough to
	// recover the start of the longest pattern.
	offsets []int
}

// Iter starts a lazy scan of text. Each call is independent of every other
// call and never touches the automaton's state.
func (a *Automaton[V]) Iter(text string) (*MatchIter[V], error) {
	if !a.frozen {
		return nil, fmt.Errorf("%w: query before Freeze", ErrBuildState)
	}
	return &MatchIter[V]{
		a:       a,
		text:    text,
		current: rootState,
		pending: noState,
		offsets: make([]int, max(a.maxDepth, 1)),
	}, nil
}

// Next returns the next match, or false when the text is exhausted.
func (it *MatchIter[V]) Next() (Match[V], bool) {
	nodes := it.a.nodes
	for {
		if it.pending != noState {
			state := it.pending
			it.pending = nodes[state].dict
			return it.match(state), true
		}

		if it.pos >= len(it.text) {
			return Match[V]{}, false
		}

		r, size := utf8.DecodeRuneInString(it.text[it.pos:])
		if it.a.foldCase {
			r = unicode.ToLower(r)
		}
		it.offsets[it.next%len(it.offsets)] = it.pos
		it.pos += size
		it.next++

		// Follow failure links until we find a transition or reach root
		current := it.current
		for current != rootState {
			if _, exists := nodes[current].children[r]; exists {
				break
			}
			current = nodes[current].fail
		}
		if next, exists := nodes[current].children[r]; exists {
			current = next
		}
		// If no transition from root, stay at root
		it.current = current

		if nodes[current].terminal {
			it.pending = current
		} else {
			it.pending = nodes[current].dict
		}
	}
}

// match builds the result for a terminal state ending at the last consumed rune.
func (it *MatchIter[V]) match(state int32) Match[V] {
	n := &it.a.nodes[state]
	end := it.next - 1
	start := end + 1 - int(n.depth)
	return Match[V]{
		Pattern:   n.pattern,
		Value:     it.a.values[n.pattern],
		Start:     start,
		End:       end,
		ByteStart: it.offsets[start%len(it.offsets)],
		ByteEnd:   it.pos,
	}
}

// Seq adapts the iterator for use with range. The sequence shares the
// iterator's position.
func (it *MatchIter[V]) Seq() iter.Seq[Match[V]] {
	return func(yield func(Match[V]) bool) {
		for {
			m, ok := it.Next()
			if !ok || !yield(m) {
				return
			}
		}
	}
}

// All returns a fresh lazy sequence over the matches in text.
func (a *Automaton[V]) All(text string) (iter.Seq[Match[V]], error) {
	it, err := a.Iter(text)
	if err != nil {
		return nil, err
	}
	return it.Seq(), nil
}

// Matches finds every occurrence of every pattern in text.
func (a *Automaton[V]) Matches(text string) ([]Match[V], error) {
	it, err := a.Iter(text)
	if err != nil {
		return nil, err
	}

	var results []Match[V]
	for m, ok := it.Next(); ok; m, ok = it.Next() {
		results = append(results, m)
	}
	return results, nil
}

// Search returns the rune span of every occurrence in text, in match order.
// Like Matches it includes shorter patterns that end inside a longer match,
// not only the pattern of the state reached at each rune.
func (a *Automaton[V]) Search(text string) ([]Span, error) {
	it, err := a.Iter(text)
	if err != nil {
		return nil, err
	}

	var spans []Span
	for m, ok := it.Next(); ok; m, ok = it.Next() {
		spans = append(spans, Span{Start: m.Start, End: m.End})
	}
	return spans, nil
}

// FindAll applies fn to every match in text and collects the results.
// A nil fn collects the matches themselves.
func (a *Automaton[V]) FindAll(text string, fn func(Match[V]) any) ([]any, error) {
	it, err := a.Iter(text)
	if err != nil {
		return nil, err
	}

	var results []any
	for m, ok := it.Next(); ok; m, ok = it.Next() {
		if fn == nil {
			results = append(results, m)
			continue
		}
		results = append(results, fn(m))
	}
	return results, nil
}

// First returns the first match in text and stops scanning there.
func (a *Automaton[V]) First(text string) (Match[V], bool, error) {
	it, err := a.Iter(text)
	if err != nil {
		return Match[V]{}, false, err
	}
	m, ok := it.Next()
	return m, ok, nil
}

// Contains reports whether any pattern occurs in text.
func (a *Automaton[V]) Contains(text string) (bool, error) {
	_, ok, err := a.First(text)
	return ok, err
}

// Count returns the number of occurrences in text.
func (a *Automaton[V]) Count(text string) (int, error) {
	it, err := a.Iter(text)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		n++
	}
	return n, nil
}

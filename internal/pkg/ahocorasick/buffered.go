package ahocorasick

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/endorses/ackit/internal/pkg/logger"
)

// BuildObserver is notified after every automaton rebuild.
type BuildObserver func(patterns, states int, duration time.Duration, err error)

// BufferedMatcher provides a double-buffered Aho-Corasick matcher for lock-free reads
// and background rebuilds. Each rebuild produces a fresh frozen automaton that is
// swapped in atomically, so readers never see a half-built one.
//
// Key features:
//   - Lock-free reads via atomic.Pointer for minimal latency
//   - Background automaton rebuilds without blocking matches
//   - Linear scan fallback during initial build or when automaton is unavailable
//   - Thread-safe entry updates
type BufferedMatcher[V any] struct {
	// automaton is the current frozen automaton, accessed atomically.
	// nil indicates no automaton is available (use linear scan fallback).
	automaton atomic.Pointer[Automaton[V]]

	// entries stores the current dictionary for linear scan fallback
	// and for rebuilding the automaton.
	entries []Entry[V]

	// entriesMu protects entries during updates.
	entriesMu sync.RWMutex

	// buildMu ensures only one rebuild runs at a time.
	buildMu sync.Mutex

	// building indicates a rebuild is in progress.
	building atomic.Bool

	opts     []Option
	observer BuildObserver

	lastBuildTime     atomic.Value // time.Time
	lastBuildDuration atomic.Value // time.Duration
}

var _ Matcher[string] = (*BufferedMatcher[string])(nil)

// NewBufferedMatcher creates a new BufferedMatcher. The options are passed to
// every automaton it builds.
func NewBufferedMatcher[V any](opts ...Option) *BufferedMatcher[V] {
	bm := &BufferedMatcher[V]{opts: opts}
	bm.lastBuildTime.Store(time.Time{})
	bm.lastBuildDuration.Store(time.Duration(0))
	return bm
}

// SetBuildObserver installs fn to be called after each rebuild. It must be
// set before the first update.
func (bm *BufferedMatcher[V]) SetBuildObserver(fn BuildObserver) {
	bm.observer = fn
}

// UpdateEntries replaces the dictionary and triggers a background rebuild.
// During the rebuild, queries keep using the old automaton (or linear scan
// if no automaton exists yet).
func (bm *BufferedMatcher[V]) UpdateEntries(entries []Entry[V]) {
	bm.setEntries(entries)

	go func() {
		_ = bm.rebuildAutomaton()
	}()
}

// UpdateEntriesSync replaces the dictionary and waits for the rebuild to complete.
func (bm *BufferedMatcher[V]) UpdateEntriesSync(entries []Entry[V]) error {
	bm.setEntries(entries)
	return bm.rebuildAutomaton()
}

func (bm *BufferedMatcher[V]) setEntries(entries []Entry[V]) {
	bm.entriesMu.Lock()
	bm.entries = slices.Clone(entries)
	bm.entriesMu.Unlock()
}

// rebuildAutomaton builds a new automaton and swaps it in atomically.
func (bm *BufferedMatcher[V]) rebuildAutomaton() error {
	bm.buildMu.Lock()
	defer bm.buildMu.Unlock()

	bm.building.Store(true)
	defer bm.building.Store(false)

	bm.entriesMu.RLock()
	entries := slices.Clone(bm.entries)
	bm.entriesMu.RUnlock()

	// If no entries, clear the automaton
	if len(entries) == 0 {
		bm.automaton.Store(nil)
		logger.Debug("Cleared AC automaton (no patterns)")
		bm.notify(0, 0, 0, nil)
		return nil
	}

	startTime := time.Now()
	newAC, err := Build(entries, bm.opts...)
	buildDuration := time.Since(startTime)
	if err != nil {
		logger.Error("Failed to build AC automaton", "error", err, "pattern_count", len(entries))
		bm.notify(len(entries), 0, buildDuration, err)
		return err
	}

	// Atomic swap - readers will see the new automaton immediately
	bm.automaton.Store(newAC)
	bm.lastBuildTime.Store(time.Now())
	bm.lastBuildDuration.Store(buildDuration)

	stats := newAC.Stats()
	logger.Info("AC automaton rebuilt",
		"pattern_count", stats.Patterns,
		"build_duration", buildDuration,
		"state_count", stats.States)
	bm.notify(stats.Patterns, stats.States, buildDuration, nil)

	return nil
}

func (bm *BufferedMatcher[V]) notify(patterns, states int, d time.Duration, err error) {
	if bm.observer != nil {
		bm.observer(patterns, states, d, err)
	}
}

// Matches finds every occurrence of every pattern in text.
// This method is lock-free when an automaton is available.
func (bm *BufferedMatcher[V]) Matches(text string) ([]Match[V], error) {
	if ac := bm.automaton.Load(); ac != nil {
		return ac.Matches(text)
	}
	return bm.linearScanMatch(text), nil
}

// Search returns the rune span of every occurrence in text.
func (bm *BufferedMatcher[V]) Search(text string) ([]Span, error) {
	if ac := bm.automaton.Load(); ac != nil {
		return ac.Search(text)
	}

	matches := bm.linearScanMatch(text)
	if len(matches) == 0 {
		return nil, nil
	}
	spans := make([]Span, len(matches))
	for i, m := range matches {
		spans[i] = Span{Start: m.Start, End: m.End}
	}
	return spans, nil
}

// Contains reports whether any pattern occurs in text.
func (bm *BufferedMatcher[V]) Contains(text string) (bool, error) {
	if ac := bm.automaton.Load(); ac != nil {
		return ac.Contains(text)
	}
	return len(bm.linearScanMatch(text)) > 0, nil
}

// linearScanMatch compares every pattern at every position.
// This is the fallback when no automaton is available. It reports matches in
// the same order as the automaton.
func (bm *BufferedMatcher[V]) linearScanMatch(text string) []Match[V] {
	bm.entriesMu.RLock()
	entries := bm.entries
	bm.entriesMu.RUnlock()

	if len(entries) == 0 || text == "" {
		return nil
	}

	// Same normalization and last-write-wins as the automaton
	scratch := New[V](bm.opts...)
	values := make(map[string]V, len(entries))
	var keys [][]rune
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		key := scratch.normalize(e.Key)
		if _, exists := values[key]; !exists {
			keys = append(keys, []rune(key))
		}
		values[key] = e.Value
	}

	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))
	// normalize maps rune for rune, so indices line up with runes
	folded := []rune(scratch.normalize(text))

	var results []Match[V]
	for end := range folded {
		var atEnd []Match[V]
		for _, key := range keys {
			start := end + 1 - len(key)
			if start < 0 || !slices.Equal(folded[start:end+1], key) {
				continue
			}
			pattern := string(key)
			atEnd = append(atEnd, Match[V]{
				Pattern:   pattern,
				Value:     values[pattern],
				Start:     start,
				End:       end,
				ByteStart: offsets[start],
				ByteEnd:   offsets[end+1],
			})
		}
		// Longest first, as the automaton's dictionary walk reports them
		slices.SortStableFunc(atEnd, func(x, y Match[V]) int {
			return y.End - y.Start - (x.End - x.Start)
		})
		results = append(results, atEnd...)
	}

	return results
}

// Len returns the number of distinct patterns currently loaded.
func (bm *BufferedMatcher[V]) Len() int {
	bm.entriesMu.RLock()
	defer bm.entriesMu.RUnlock()
	scratch := New[V](bm.opts...)
	seen := make(map[string]struct{}, len(bm.entries))
	for _, e := range bm.entries {
		if e.Key != "" {
			seen[scratch.normalize(e.Key)] = struct{}{}
		}
	}
	return len(seen)
}

// Automaton returns the current automaton, or nil if none is available.
func (bm *BufferedMatcher[V]) Automaton() *Automaton[V] {
	return bm.automaton.Load()
}

// IsBuilding returns true if a rebuild is currently in progress.
func (bm *BufferedMatcher[V]) IsBuilding() bool {
	return bm.building.Load()
}

// HasAutomaton returns true if an automaton is available.
func (bm *BufferedMatcher[V]) HasAutomaton() bool {
	return bm.automaton.Load() != nil
}

// LastBuildTime returns when the automaton was last built.
func (bm *BufferedMatcher[V]) LastBuildTime() time.Time {
	if t := bm.lastBuildTime.Load(); t != nil {
		return t.(time.Time)
	}
	return time.Time{}
}

// LastBuildDuration returns how long the last build took.
func (bm *BufferedMatcher[V]) LastBuildDuration() time.Duration {
	if d := bm.lastBuildDuration.Load(); d != nil {
		return d.(time.Duration)
	}
	return 0
}

// BufferedStats returns statistics about the buffered matcher.
type BufferedStats struct {
	PatternCount      int
	HasAutomaton      bool
	IsBuilding        bool
	LastBuildTime     time.Time
	LastBuildDuration time.Duration
	StateCount        int
}

// GetStats returns current statistics.
func (bm *BufferedMatcher[V]) GetStats() BufferedStats {
	ac := bm.automaton.Load()
	stateCount := 0
	if ac != nil {
		stateCount = ac.Stats().States
	}

	return BufferedStats{
		PatternCount:      bm.Len(),
		HasAutomaton:      ac != nil,
		IsBuilding:        bm.IsBuilding(),
		LastBuildTime:     bm.LastBuildTime(),
		LastBuildDuration: bm.LastBuildDuration(),
		StateCount:        stateCount,
	}
}

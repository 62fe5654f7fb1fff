package ahocorasick

import (
	"fmt"
	"slices"
)

// Snapshot is a pointer-free copy of a frozen automaton, suitable for any
// object serializer. Node references are arena indices.
type Snapshot[V any] struct {
	FoldCase bool
	Nodes    []SnapshotNode
	Entries  []Entry[V]
}

// SnapshotNode is one arena state. Symbols[i] leads to Children[i].
type SnapshotNode struct {
	Symbols  []rune
	Children []int32
	Fail     int32
	Terminal bool
}

// Export copies the automaton into a Snapshot. Only frozen automata can be
// exported, so the snapshot always carries valid failure links.
func (a *Automaton[V]) Export() (Snapshot[V], error) {
	if !a.frozen {
		return Snapshot[V]{}, fmt.Errorf("%w: export before Freeze", ErrBuildState)
	}

	nodes := make([]SnapshotNode, len(a.nodes))
	for i, n := range a.nodes {
		symbols := make([]rune, 0, len(n.children))
		for r := range n.children {
			symbols = append(symbols, r)
		}
		slices.Sort(symbols)

		children := make([]int32, len(symbols))
		for j, r := range symbols {
			children[j] = n.children[r]
		}

		nodes[i] = SnapshotNode{
			Symbols:  symbols,
			Children: children,
			Fail:     n.fail,
			Terminal: n.terminal,
		}
	}

	return Snapshot[V]{
		FoldCase: a.foldCase,
		Nodes:    nodes,
		Entries:  a.Entries(),
	}, nil
}

// Restore rebuilds a frozen automaton from a snapshot. The trie must be a
// tree rooted at state 0, every failure link must point to a shallower
// state, and the terminal states must spell exactly the snapshot's keys.
func Restore[V any](s Snapshot[V]) (*Automaton[V], error) {
	if len(s.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no root state", ErrCorruptSnapshot)
	}

	a := &Automaton[V]{
		nodes:    make([]node, len(s.Nodes)),
		values:   make(map[string]V, len(s.Entries)),
		foldCase: s.FoldCase,
	}
	for i := range a.nodes {
		a.nodes[i] = newNode(0)
	}

	// Rebuild trie edges, depths and patterns breadth-first from the root
	paths := make([]string, len(s.Nodes))
	seen := make([]bool, len(s.Nodes))
	seen[rootState] = true
	order := []int32{rootState}

	for head := 0; head < len(order); head++ {
		state := order[head]
		sn := s.Nodes[state]
		if len(sn.Symbols) != len(sn.Children) {
			return nil, fmt.Errorf("%w: state %d has %d symbols and %d children",
				ErrCorruptSnapshot, state, len(sn.Symbols), len(sn.Children))
		}

		for j, r := range sn.Symbols {
			child := sn.Children[j]
			if child <= rootState || int(child) >= len(s.Nodes) {
				return nil, fmt.Errorf("%w: state %d has child %d out of range", ErrCorruptSnapshot, state, child)
			}
			if seen[child] {
				return nil, fmt.Errorf("%w: state %d reached twice", ErrCorruptSnapshot, child)
			}
			if _, dup := a.nodes[state].children[r]; dup {
				return nil, fmt.Errorf("%w: state %d has symbol %q twice", ErrCorruptSnapshot, state, r)
			}
			seen[child] = true

			a.nodes[state].children[r] = child
			a.nodes[child].depth = a.nodes[state].depth + 1
			paths[child] = paths[state] + string(r)
			order = append(order, child)
		}
	}
	if len(order) != len(s.Nodes) {
		return nil, fmt.Errorf("%w: %d states unreachable from root", ErrCorruptSnapshot, len(s.Nodes)-len(order))
	}

	// Failure and dictionary links, in BFS order so fail targets are final first
	for _, state := range order {
		sn := s.Nodes[state]
		n := &a.nodes[state]
		n.terminal = sn.Terminal
		if sn.Terminal {
			if state == rootState {
				return nil, fmt.Errorf("%w: root is terminal", ErrCorruptSnapshot)
			}
			n.pattern = paths[state]
			if int(n.depth) > a.maxDepth {
				a.maxDepth = int(n.depth)
			}
		}

		if state == rootState {
			n.fail = rootState
			n.dict = noState
			continue
		}
		fail := sn.Fail
		if fail < 0 || int(fail) >= len(s.Nodes) || a.nodes[fail].depth >= n.depth {
			return nil, fmt.Errorf("%w: state %d has invalid failure link %d", ErrCorruptSnapshot, state, fail)
		}
		n.fail = fail
		if a.nodes[fail].terminal {
			n.dict = fail
		} else {
			n.dict = a.nodes[fail].dict
		}
	}

	// The dictionary must agree with the terminal states
	for _, e := range s.Entries {
		state, ok := a.walk(e.Key)
		if !ok || !a.nodes[state].terminal {
			return nil, fmt.Errorf("%w: key %q has no terminal state", ErrCorruptSnapshot, e.Key)
		}
		if _, dup := a.values[e.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrCorruptSnapshot, e.Key)
		}
		a.values[e.Key] = e.Value
		a.keys = append(a.keys, e.Key)
	}
	for _, state := range order {
		if a.nodes[state].terminal {
			if _, ok := a.values[a.nodes[state].pattern]; !ok {
				return nil, fmt.Errorf("%w: terminal state %d has no entry", ErrCorruptSnapshot, state)
			}
		}
	}

	a.frozen = true
	return a, nil
}

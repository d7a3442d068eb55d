package kripke

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrStateOutOfRange is returned when a state index does not name a node.
var ErrStateOutOfRange = errors.New("kripke: state index out of range")

// Graph is a finite transition graph over integer state indices.
//
// Each node keeps its successors sorted and distinct, with one opaque label
// per successor at the same position. Nodes are only ever appended, so an
// index stays valid for the lifetime of the graph.
type Graph struct {
	succ   [][]int
	labels [][]string
}

// Edge is one labeled transition.
type Edge struct {
	From  int    `json:"from" yaml:"from"`
	To    int    `json:"to" yaml:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// NewGraph creates a graph with n isolated states.
func NewGraph(n int) *Graph {
	g := &Graph{}
	for range n {
		g.Grow()
	}
	return g
}

// Size returns the number of states.
func (g *Graph) Size() int {
	return len(g.succ)
}

// Grow appends an isolated state and returns its index.
func (g *Graph) Grow() int {
	g.succ = append(g.succ, nil)
	g.labels = append(g.labels, nil)
	return len(g.succ) - 1
}

func (g *Graph) check(i int) error {
	if i < 0 || i >= len(g.succ) {
		return fmt.Errorf("%w: %d (size %d)", ErrStateOutOfRange, i, len(g.succ))
	}
	return nil
}

// Neighbors returns the sorted successors of state i.
func (g *Graph) Neighbors(i int) ([]int, error) {
	if err := g.check(i); err != nil {
		return nil, err
	}
	return slices.Clone(g.succ[i]), nil
}

// Labels returns the edge labels of state i, aligned with Neighbors(i).
func (g *Graph) Labels(i int) ([]string, error) {
	if err := g.check(i); err != nil {
		return nil, err
	}
	return slices.Clone(g.labels[i]), nil
}

// Label returns the label of the edge i -> j.
func (g *Graph) Label(i, j int) (string, bool) {
	if g.check(i) != nil {
		return "", false
	}
	pos, found := slices.BinarySearch(g.succ[i], j)
	if !found {
		return "", false
	}
	return g.labels[i][pos], true
}

// AddEdge inserts the edge i -> j. It reports whether the edge is new; adding
// an edge to a target that is already a successor leaves the graph (and the
// existing label) unchanged.
func (g *Graph) AddEdge(i, j int, label string) (bool, error) {
	if err := g.check(i); err != nil {
		return false, err
	}
	if err := g.check(j); err != nil {
		return false, err
	}
	pos, found := slices.BinarySearch(g.succ[i], j)
	if found {
		return false, nil
	}
	g.succ[i] = slices.Insert(g.succ[i], pos, j)
	g.labels[i] = slices.Insert(g.labels[i], pos, label)
	return true, nil
}

// EdgeCount returns the number of transitions.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, s := range g.succ {
		n += len(s)
	}
	return n
}

// Edges lists all transitions ordered by source, then target.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.EdgeCount())
	for i, succ := range g.succ {
		for k, j := range succ {
			out = append(out, Edge{From: i, To: j, Label: g.labels[i][k]})
		}
	}
	return out
}

// DeadEnds returns the states without successors.
func (g *Graph) DeadEnds() []int {
	var out []int
	for i, succ := range g.succ {
		if len(succ) == 0 {
			out = append(out, i)
		}
	}
	return out
}

type graphJSON struct {
	States int    `json:"states"`
	Edges  []Edge `json:"edges"`
}

// MarshalJSON encodes the graph as a state count plus an edge list.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(graphJSON{States: g.Size(), Edges: g.Edges()})
}

// UnmarshalJSON rebuilds a graph written by MarshalJSON.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var doc graphJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	built, err := FromEdges(doc.States, doc.Edges)
	if err != nil {
		return err
	}
	*g = *built
	return nil
}

// FromEdges builds a graph with n states and the given transitions.
func FromEdges(n int, edges []Edge) (*Graph, error) {
	g := NewGraph(n)
	for _, e := range edges {
		if _, err := g.AddEdge(e.From, e.To, e.Label); err != nil {
			return nil, fmt.Errorf("edge %d -> %d: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

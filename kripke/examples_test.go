package kripke

import (
	"fmt"
	"slices"
	"testing"

	"github.com/rfielding/sketchcheck/temporal"
)

// labeled pairs a graph with atomic propositions per state for tests.
type labeled struct {
	g      *Graph
	init   int
	labels map[int][]string
}

func newLabeled(t *testing.T, n, init int) *labeled {
	t.Helper()
	return &labeled{g: NewGraph(n), init: init, labels: make(map[int][]string)}
}

func (l *labeled) edge(t *testing.T, from, to int) {
	t.Helper()
	if _, err := l.g.AddEdge(from, to, ""); err != nil {
		t.Fatalf("AddEdge(%d, %d): %v", from, to, err)
	}
}

func (l *labeled) label(s int, props ...string) {
	l.labels[s] = append(l.labels[s], props...)
}

func (l *labeled) resolve(f temporal.Formula) (StateSet, error) {
	a, ok := f.(temporal.Atom)
	if !ok {
		return nil, fmt.Errorf("unexpected leaf %s", f)
	}
	out := NewStateSet(l.g.Size())
	for s, props := range l.labels {
		if slices.Contains(props, a.Name) {
			out.Add(s)
		}
	}
	return out, nil
}

func (l *labeled) checker() *Checker {
	return NewChecker(l.g, l.resolve)
}

func p(name string) temporal.Formula { return temporal.Atom{Name: name} }

// trafficLight: red(0) -> green(1) -> yellow(2) -> red
func trafficLight(t *testing.T) *labeled {
	l := newLabeled(t, 3, 0)
	l.edge(t, 0, 1)
	l.edge(t, 1, 2)
	l.edge(t, 2, 0)
	l.label(0, "stop")
	l.label(1, "go")
	l.label(2, "caution")
	return l
}

// mutualExclusion: two processes cycling non-critical, trying, critical.
//
//	0 n1n2, 1 t1n2, 2 c1n2, 3 n1t2, 4 n1c2, 5 t1t2, 6 c1t2, 7 t1c2
func mutualExclusion(t *testing.T) *labeled {
	l := newLabeled(t, 8, 0)
	for _, e := range [][2]int{
		{0, 1}, {0, 3}, {1, 2}, {1, 5}, {3, 5}, {3, 4},
		{2, 0}, {4, 0}, {5, 6}, {5, 7}, {6, 3}, {7, 1},
	} {
		l.edge(t, e[0], e[1])
	}
	l.label(2, "critical1")
	l.label(6, "critical1", "trying2")
	l.label(4, "critical2")
	l.label(7, "critical2", "trying1")
	l.label(1, "trying1")
	l.label(5, "trying1", "trying2")
	l.label(3, "trying2")
	return l
}

// simple: 0 -> 1 -> 2 -> 1, with p in {0,2} and q in {1,2}
func simple(t *testing.T) *labeled {
	l := newLabeled(t, 3, 0)
	l.edge(t, 0, 1)
	l.edge(t, 1, 2)
	l.edge(t, 2, 1)
	l.label(0, "p")
	l.label(1, "q")
	l.label(2, "p", "q")
	return l
}

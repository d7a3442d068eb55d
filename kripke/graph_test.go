package kripke

import (
	"encoding/json"
	"errors"
	"math/rand"
	"slices"
	"testing"
)

func TestGrow(t *testing.T) {
	g := NewGraph(0)
	for want := 0; want < 5; want++ {
		before := g.Size()
		if got := g.Grow(); got != before {
			t.Errorf("Grow() = %d, want %d", got, before)
		}
		if g.Size() != before+1 {
			t.Errorf("Size() = %d after Grow, want %d", g.Size(), before+1)
		}
	}
	succ, err := g.Neighbors(4)
	if err != nil {
		t.Fatalf("Neighbors(4): %v", err)
	}
	if len(succ) != 0 {
		t.Errorf("new state has successors %v", succ)
	}
}

func TestAddEdgeKeepsSuccessorsSorted(t *testing.T) {
	g := NewGraph(6)
	for _, j := range []int{4, 1, 5, 1, 0, 4, 3} {
		if _, err := g.AddEdge(2, j, "a"); err != nil {
			t.Fatalf("AddEdge(2, %d): %v", j, err)
		}
	}
	succ, _ := g.Neighbors(2)
	if want := []int{0, 1, 3, 4, 5}; !slices.Equal(succ, want) {
		t.Errorf("Neighbors(2) = %v, want %v", succ, want)
	}
}

func TestAddEdgeIdempotent(t *testing.T) {
	g := NewGraph(2)
	added, err := g.AddEdge(0, 1, "first")
	if err != nil || !added {
		t.Fatalf("first AddEdge = %v, %v; want true, nil", added, err)
	}
	added, err = g.AddEdge(0, 1, "second")
	if err != nil || added {
		t.Fatalf("duplicate AddEdge = %v, %v; want false, nil", added, err)
	}
	if label, _ := g.Label(0, 1); label != "first" {
		t.Errorf("label = %q, want the original label", label)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
}

func TestLabelsAlignWithNeighbors(t *testing.T) {
	g := NewGraph(4)
	g.AddEdge(0, 3, "to3")
	g.AddEdge(0, 1, "to1")
	g.AddEdge(0, 2, "to2")

	succ, _ := g.Neighbors(0)
	labels, _ := g.Labels(0)
	for k, j := range succ {
		want := map[int]string{1: "to1", 2: "to2", 3: "to3"}[j]
		if labels[k] != want {
			t.Errorf("label for 0 -> %d = %q, want %q", j, labels[k], want)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	g := NewGraph(2)
	if _, err := g.Neighbors(2); !errors.Is(err, ErrStateOutOfRange) {
		t.Errorf("Neighbors(2) error = %v, want ErrStateOutOfRange", err)
	}
	if _, err := g.Neighbors(-1); !errors.Is(err, ErrStateOutOfRange) {
		t.Errorf("Neighbors(-1) error = %v, want ErrStateOutOfRange", err)
	}
	if _, err := g.AddEdge(5, 0, ""); !errors.Is(err, ErrStateOutOfRange) {
		t.Errorf("AddEdge from missing source error = %v, want ErrStateOutOfRange", err)
	}
	if _, err := g.AddEdge(0, 5, ""); !errors.Is(err, ErrStateOutOfRange) {
		t.Errorf("AddEdge to missing target error = %v, want ErrStateOutOfRange", err)
	}
}

func TestRandomEdgesInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := NewGraph(20)
	for range 500 {
		i, j := rng.Intn(20), rng.Intn(20)
		if _, err := g.AddEdge(i, j, ""); err != nil {
			t.Fatal(err)
		}
	}
	for i := range g.Size() {
		succ, _ := g.Neighbors(i)
		for k := 1; k < len(succ); k++ {
			if succ[k-1] >= succ[k] {
				t.Fatalf("Neighbors(%d) = %v is not strictly sorted", i, succ)
			}
		}
	}
}

func TestDeadEnds(t *testing.T) {
	g := NewGraph(3)
	g.AddEdge(0, 1, "")
	if got := g.DeadEnds(); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("DeadEnds() = %v, want [1 2]", got)
	}
}

func TestGraphJSONRoundTrip(t *testing.T) {
	g := NewGraph(3)
	g.AddEdge(0, 1, "pick(a)")
	g.AddEdge(1, 2, "drop(a)")
	g.AddEdge(2, 0, "")

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Graph
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Size() != g.Size() {
		t.Fatalf("Size() = %d, want %d", back.Size(), g.Size())
	}
	if !slices.Equal(back.Edges(), g.Edges()) {
		t.Errorf("Edges() = %v, want %v", back.Edges(), g.Edges())
	}
}

func TestFromEdgesRejectsDanglingEdge(t *testing.T) {
	_, err := FromEdges(2, []Edge{{From: 0, To: 3}})
	if !errors.Is(err, ErrStateOutOfRange) {
		t.Errorf("FromEdges error = %v, want ErrStateOutOfRange", err)
	}
}

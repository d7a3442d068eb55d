package kripke

import (
	"fmt"
	"strings"
	"testing"
)

func TestGraphvizGeneration(t *testing.T) {
	l := simple(t)
	var sb strings.Builder
	if err := WriteDOT(&sb, l.g, WithInitial(l.init)); err != nil {
		t.Fatal(err)
	}
	dot := sb.String()

	if !strings.Contains(dot, "digraph StateSpace") {
		t.Error("Expected digraph declaration")
	}
	if !strings.Contains(dot, `start -> "s0"`) {
		t.Error("Expected start node pointing to s0")
	}
	for _, s := range []string{`"s0"`, `"s1"`, `"s2"`} {
		if !strings.Contains(dot, s) {
			t.Errorf("Expected %s state", s)
		}
	}
	if !strings.Contains(dot, `"s0" -> "s1"`) {
		t.Error("Expected s0 -> s1 transition")
	}
	if !strings.Contains(dot, `"s1" -> "s2"`) {
		t.Error("Expected s1 -> s2 transition")
	}
}

func TestGraphvizLabelsAndGoals(t *testing.T) {
	g := NewGraph(2)
	g.AddEdge(0, 1, "stack(a,b)")

	var sb strings.Builder
	err := WriteDOT(&sb, g,
		WithHighlight(1),
		WithStateLabel(func(i int) string {
			if i == 0 {
				return "b_holding"
			}
			return ""
		}))
	if err != nil {
		t.Fatal(err)
	}
	dot := sb.String()

	if !strings.Contains(dot, `[label="stack(a,b)"]`) {
		t.Error("Expected edge label in DOT output")
	}
	if !strings.Contains(dot, `"s1" [shape=doublecircle]`) {
		t.Error("Expected goal state drawn as double circle")
	}
	if !strings.Contains(dot, `b_holding`) {
		t.Error("Expected state description in DOT output")
	}
	if strings.Contains(dot, "start") {
		t.Error("Expected no start node without WithInitial")
	}
}

func TestMermaidStateDiagram(t *testing.T) {
	l := trafficLight(t)
	var sb strings.Builder
	if err := WriteMermaidStateDiagram(&sb, l.g, WithInitial(0), WithHighlight(2)); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	for _, want := range []string{
		"stateDiagram-v2",
		"[*] --> s0",
		"s0 --> s1",
		"s1 --> s2",
		"s2 --> s0",
		"s2 --> [*]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in Mermaid output:\n%s", want, out)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	g := NewGraph(3)
	g.AddEdge(0, 1, "pick")
	g.AddEdge(1, 2, "drop")

	var sb strings.Builder
	err := WriteTransitionTable(&sb, g,
		WithInitial(0),
		WithHighlight(2),
		WithEdgeNote(func(from, to int) string {
			return fmt.Sprintf("n %d→%d", from, to)
		}))
	if err != nil {
		t.Fatal(err)
	}
	want := "| From | To | Label | Changes |\n" +
		"|------|----|-------|---------|\n" +
		"| → s0 | s1 | pick | n 0→1 |\n" +
		"| s1 | **s2** | drop | n 1→2 |\n"
	if got := sb.String(); got != want {
		t.Errorf("WriteTransitionTable() =\n%s\nwant\n%s", got, want)
	}

	sb.Reset()
	if err := WriteTransitionTable(&sb, g, WithoutEdgeLabels()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sb.String(), "Changes") || strings.Contains(sb.String(), "pick") {
		t.Errorf("Expected bare table, got:\n%s", sb.String())
	}
}

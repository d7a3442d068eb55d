package kripke

import (
	"fmt"
	"io"
	"strings"
)

// DiagramOption configures diagram generation.
type DiagramOption func(*diagramOptions)

type diagramOptions struct {
	initial    int
	highlight  map[int]bool
	stateLabel func(int) string
	edgeNote   func(from, to int) string
	edgeLabels bool
}

// WithInitial marks the initial state with a start arrow.
func WithInitial(i int) DiagramOption {
	return func(opts *diagramOptions) {
		opts.initial = i
	}
}

// WithHighlight draws the given states (typically the goals) emphasized.
func WithHighlight(states ...int) DiagramOption {
	return func(opts *diagramOptions) {
		if opts.highlight == nil {
			opts.highlight = make(map[int]bool)
		}
		for _, s := range states {
			opts.highlight[s] = true
		}
	}
}

// WithStateLabel sets a custom description for each state.
func WithStateLabel(f func(int) string) DiagramOption {
	return func(opts *diagramOptions) {
		opts.stateLabel = f
	}
}

// WithoutEdgeLabels omits transition labels.
func WithoutEdgeLabels() DiagramOption {
	return func(opts *diagramOptions) {
		opts.edgeLabels = false
	}
}

// WithEdgeNote adds a note column to transition tables, such as the
// feature changes along each edge.
func WithEdgeNote(f func(from, to int) string) DiagramOption {
	return func(opts *diagramOptions) {
		opts.edgeNote = f
	}
}

func newDiagramOptions(options []DiagramOption) *diagramOptions {
	opts := &diagramOptions{initial: -1, edgeLabels: true}
	for _, opt := range options {
		opt(opts)
	}
	return opts
}

func (o *diagramOptions) highlighted(i int) bool {
	return o.highlight[i]
}

// WriteDOT writes a Graphviz DOT representation of g to w.
func WriteDOT(w io.Writer, g *Graph, options ...DiagramOption) error {
	opts := newDiagramOptions(options)
	var sb strings.Builder

	sb.WriteString("digraph StateSpace {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=circle];\n")
	sb.WriteString("\n")

	if opts.initial >= 0 {
		// invisible start node pointing to the initial state
		sb.WriteString("  start [shape=point];\n")
		fmt.Fprintf(&sb, "  start -> %q;\n", stateID(opts.initial))
		sb.WriteString("\n")
	}

	for i := range g.Size() {
		attrs := []string{}
		if opts.stateLabel != nil {
			if desc := opts.stateLabel(i); desc != "" {
				attrs = append(attrs, fmt.Sprintf("label=%q", stateID(i)+"\n"+desc))
			}
		}
		if opts.highlighted(i) {
			attrs = append(attrs, "shape=doublecircle")
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&sb, "  %q [%s];\n", stateID(i), strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&sb, "  %q;\n", stateID(i))
		}
	}
	sb.WriteString("\n")

	for _, e := range g.Edges() {
		if opts.edgeLabels && e.Label != "" {
			fmt.Fprintf(&sb, "  %q -> %q [label=%q];\n", stateID(e.From), stateID(e.To), e.Label)
		} else {
			fmt.Fprintf(&sb, "  %q -> %q;\n", stateID(e.From), stateID(e.To))
		}
	}

	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteMermaidStateDiagram writes a Mermaid stateDiagram-v2 representation
// of g to w.
func WriteMermaidStateDiagram(w io.Writer, g *Graph, options ...DiagramOption) error {
	opts := newDiagramOptions(options)
	var sb strings.Builder

	sb.WriteString("stateDiagram-v2\n")
	if opts.initial >= 0 {
		fmt.Fprintf(&sb, "  [*] --> %s\n\n", stateID(opts.initial))
	}

	for _, e := range g.Edges() {
		if opts.edgeLabels && e.Label != "" {
			fmt.Fprintf(&sb, "  %s --> %s: %s\n", stateID(e.From), stateID(e.To), mermaidText(e.Label))
		} else {
			fmt.Fprintf(&sb, "  %s --> %s\n", stateID(e.From), stateID(e.To))
		}
	}

	if opts.stateLabel != nil {
		sb.WriteString("\n")
		for i := range g.Size() {
			if desc := opts.stateLabel(i); desc != "" {
				fmt.Fprintf(&sb, "  %s: %s\n", stateID(i), mermaidText(desc))
			}
		}
	}
	for i := range g.Size() {
		if opts.highlighted(i) {
			fmt.Fprintf(&sb, "  %s --> [*]\n", stateID(i))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteTransitionTable writes the transitions of g as a Markdown table.
// Highlighted states are bold and the initial state is marked with an arrow.
func WriteTransitionTable(w io.Writer, g *Graph, options ...DiagramOption) error {
	opts := newDiagramOptions(options)
	cell := func(i int) string {
		s := stateID(i)
		if opts.highlighted(i) {
			s = "**" + s + "**"
		}
		if i == opts.initial {
			s = "→ " + s
		}
		return s
	}

	var sb strings.Builder
	sb.WriteString("| From | To | Label |")
	if opts.edgeNote != nil {
		sb.WriteString(" Changes |")
	}
	sb.WriteString("\n|------|----|-------|")
	if opts.edgeNote != nil {
		sb.WriteString("---------|")
	}
	sb.WriteString("\n")

	for _, e := range g.Edges() {
		label := ""
		if opts.edgeLabels {
			label = e.Label
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |", cell(e.From), cell(e.To), label)
		if opts.edgeNote != nil {
			fmt.Fprintf(&sb, " %s |", opts.edgeNote(e.From, e.To))
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func stateID(i int) string {
	return fmt.Sprintf("s%d", i)
}

// Mermaid treats ':' as a separator inside transition text.
func mermaidText(s string) string {
	return strings.ReplaceAll(s, ":", " ")
}

// Package tlaplus writes verification models as TLA+ modules so they can be
// read alongside the SMV encoding or explored with TLC.
package tlaplus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/nusmv"
	"github.com/rfielding/sketchcheck/oracle"
	"github.com/rfielding/sketchcheck/temporal"
)

// ErrNoTLAForm is returned for formulas using operators TLA+ cannot state:
// path quantifiers, next, until and past time.
var ErrNoTLAForm = errors.New("tlaplus: formula has no TLA+ form")

var unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// ModuleName turns a model name into a TLA+ module identifier.
func ModuleName(name string) string {
	id := unsafeIdent.ReplaceAllString(name, "_")
	if id == "" {
		return "Sketch"
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "M_" + id
	}
	return id
}

// Encode writes m as a TLA+ module. Each spec becomes a definition when it
// is expressible, otherwise a comment holding its SMV text.
func Encode(w io.Writer, m *oracle.Model, specs ...temporal.Spec) error {
	if err := m.Validate(); err != nil {
		return err
	}
	ids := nusmv.Identifiers(m.Vars)
	rename := func(name string) string {
		if id, ok := ids[name]; ok {
			return id
		}
		return name
	}

	bw := bufio.NewWriter(w)
	module := ModuleName(m.Name)
	fmt.Fprintf(bw, "---- MODULE %s ----\n", module)
	if m.Name != "" && m.Name != module {
		fmt.Fprintf(bw, "\\* %s\n", strings.ReplaceAll(m.Name, "\n", " "))
	}
	bw.WriteString("EXTENDS Naturals\n\n")
	bw.WriteString("VARIABLE state\n\n")

	n := m.Graph.Size()
	fmt.Fprintf(bw, "TypeOK == state \\in 0..%d\n\n", n-1)
	fmt.Fprintf(bw, "Init == state = %d\n\n", m.Initial)
	writeNext(bw, m)
	bw.WriteString("Spec == Init /\\ [][Next]_state\n\n")

	if len(m.Vars) > 0 {
		bw.WriteString("\\* Features\n")
	}
	for _, v := range m.Vars {
		writeVar(bw, ids[v.Name], v)
	}
	if len(m.Defines) > 0 {
		bw.WriteString("\n\\* Predicates\n")
	}
	for _, d := range m.Defines {
		body, err := render(d.Body, rename)
		if err != nil {
			return fmt.Errorf("define %s: %w", d.Name, err)
		}
		fmt.Fprintf(bw, "%s == %s\n", d.Name, body)
	}

	if len(specs) > 0 {
		bw.WriteString("\n\\* Properties\n")
	}
	for _, s := range specs {
		if err := m.CheckFormula(s.Formula, m.Symbols()); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		name := unsafeIdent.ReplaceAllString(s.Name, "_")
		body, err := render(s.Formula, rename)
		if errors.Is(err, ErrNoTLAForm) {
			fmt.Fprintf(bw, "\\* %s (%s): %s\n", name, s.Logic(), temporal.Render(s.Formula, rename))
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		fmt.Fprintf(bw, "%s == %s\n", name, body)
	}

	bw.WriteString("====\n")
	return bw.Flush()
}

// writeNext emits one disjunct per state. Dead ends stutter.
func writeNext(w *bufio.Writer, m *oracle.Model) {
	w.WriteString("Next ==\n")
	for s := range m.Graph.Size() {
		succ, _ := m.Graph.Neighbors(s)
		switch len(succ) {
		case 0:
			fmt.Fprintf(w, "    \\/ state = %d /\\ state' = %d\n", s, s)
		case 1:
			fmt.Fprintf(w, "    \\/ state = %d /\\ state' = %d\n", s, succ[0])
		default:
			fmt.Fprintf(w, "    \\/ state = %d /\\ state' \\in %s\n", s, intSet(succ))
		}
	}
	w.WriteString("\n")
}

func writeVar(w *bufio.Writer, id string, v features.Valuation) {
	if v.Kind == features.Boolean {
		var on []int
		for s, b := range v.Bools {
			if b {
				on = append(on, s)
			}
		}
		fmt.Fprintf(w, "%s == state \\in %s\n", id, intSet(on))
		return
	}
	last := len(v.Ints) - 1
	constant := true
	for _, x := range v.Ints {
		constant = constant && x == v.Ints[last]
	}
	if constant {
		fmt.Fprintf(w, "%s == %d\n", id, v.Ints[last])
		return
	}
	arms := make([]string, 0, len(v.Ints))
	for s, x := range v.Ints[:last] {
		arms = append(arms, fmt.Sprintf("state = %d -> %d", s, x))
	}
	arms = append(arms, fmt.Sprintf("OTHER -> %d", v.Ints[last]))
	fmt.Fprintf(w, "%s == CASE %s\n", id, strings.Join(arms, " [] "))
}

func intSet(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// render writes f with TLA+ operators.
func render(f temporal.Formula, rename func(string) string) (string, error) {
	var sb strings.Builder
	if err := write(&sb, f, rename); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func write(sb *strings.Builder, f temporal.Formula, rename func(string) string) error {
	switch f := f.(type) {
	case temporal.Top:
		sb.WriteString("TRUE")
	case temporal.Bottom:
		sb.WriteString("FALSE")
	case temporal.Atom:
		sb.WriteString(f.Name)
	case temporal.BoolEq:
		if !f.Value {
			sb.WriteString("~")
		}
		sb.WriteString(rename(f.Var))
	case temporal.IntEq:
		fmt.Fprintf(sb, "%s = %d", rename(f.Var), f.Value)
	case temporal.InStates:
		sb.WriteString("state \\in ")
		sb.WriteString(intSet(f.States))
	case temporal.Not:
		return prefix(sb, "~", f.F, rename)
	case temporal.And:
		if len(f.Fs) == 0 {
			sb.WriteString("TRUE")
			return nil
		}
		return join(sb, f.Fs, " /\\ ", rename)
	case temporal.Or:
		if len(f.Fs) == 0 {
			sb.WriteString("FALSE")
			return nil
		}
		return join(sb, f.Fs, " \\/ ", rename)
	case temporal.Implies:
		return join(sb, []temporal.Formula{f.Left, f.Right}, " => ", rename)
	case temporal.Globally:
		return prefix(sb, "[]", f.F, rename)
	case temporal.Finally:
		return prefix(sb, "<>", f.F, rename)
	default:
		return fmt.Errorf("%w: %T", ErrNoTLAForm, f)
	}
	return nil
}

func prefix(sb *strings.Builder, op string, f temporal.Formula, rename func(string) string) error {
	sb.WriteString(op)
	sb.WriteString("(")
	if err := write(sb, f, rename); err != nil {
		return err
	}
	sb.WriteString(")")
	return nil
}

func join(sb *strings.Builder, fs []temporal.Formula, sep string, rename func(string) string) error {
	sb.WriteString("(")
	for i, f := range fs {
		if i > 0 {
			sb.WriteString(sep)
		}
		if err := write(sb, f, rename); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}

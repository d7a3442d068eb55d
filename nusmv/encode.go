// Package nusmv writes models in the SMV input language and checks queries
// by running the NuSMV model checker as a subprocess.
package nusmv

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/oracle"
	"github.com/rfielding/sketchcheck/temporal"
)

var unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Identifiers maps feature names to SMV identifiers. Characters outside
// [A-Za-z0-9_] become '_' and clashes get a numeric suffix.
func Identifiers(vars []features.Valuation) map[string]string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	slices.Sort(names)

	out := make(map[string]string, len(names))
	used := make(map[string]bool, len(names))
	for _, name := range names {
		id := unsafeIdent.ReplaceAllString(name, "_")
		if id == "" || (id[0] >= '0' && id[0] <= '9') {
			id = "f_" + id
		}
		base := id
		for k := 2; used[id]; k++ {
			id = base + "_" + strconv.Itoa(k)
		}
		used[id] = true
		out[name] = id
	}
	return out
}

func renamer(ids map[string]string) func(string) string {
	return func(name string) string {
		if id, ok := ids[name]; ok {
			return id
		}
		return name
	}
}

// Encode writes m followed by one CTLSPEC or LTLSPEC line per query.
func Encode(w io.Writer, m *oracle.Model, specs ...temporal.Spec) error {
	if err := m.Validate(); err != nil {
		return err
	}
	ids := Identifiers(m.Vars)
	rename := renamer(ids)

	bw := bufio.NewWriter(w)
	if m.Name != "" {
		fmt.Fprintf(bw, "-- %s\n", strings.ReplaceAll(m.Name, "\n", " "))
	}
	bw.WriteString("MODULE main\n")
	writeStates(bw, m)
	writeTransitions(bw, m)

	if len(m.Vars) > 0 || len(m.Defines) > 0 {
		bw.WriteString("DEFINE\n")
	}
	for _, v := range m.Vars {
		writeVar(bw, ids[v.Name], v)
	}
	for _, d := range m.Defines {
		fmt.Fprintf(bw, "  %s := %s;\n", d.Name, temporal.Render(d.Body, rename))
	}

	for _, s := range specs {
		if err := writeSpec(bw, m, s); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeSpec writes one query line for s.
func writeSpec(w io.Writer, m *oracle.Model, s temporal.Spec) error {
	if err := m.CheckFormula(s.Formula, m.Symbols()); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}
	keyword, err := specKeyword(s)
	if err != nil {
		return err
	}
	rename := renamer(Identifiers(m.Vars))
	_, err = fmt.Fprintf(w, "%s NAME %s := %s;\n", keyword, specName(s.Name), temporal.Render(s.Formula, rename))
	return err
}

func specKeyword(s temporal.Spec) (string, error) {
	switch l := s.Logic(); l {
	case temporal.CTL:
		return "CTLSPEC", nil
	case temporal.LTL:
		return "LTLSPEC", nil
	default:
		return "", fmt.Errorf("%w: %s is %s", oracle.ErrUnsupportedLogic, s.Name, l)
	}
}

func specName(name string) string {
	id := unsafeIdent.ReplaceAllString(name, "_")
	if id == "" {
		return "spec"
	}
	return id
}

func stateList(states []int) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = temporal.StateName(s)
	}
	return strings.Join(parts, ", ")
}

func writeStates(w *bufio.Writer, m *oracle.Model) {
	all := make([]int, m.Graph.Size())
	for i := range all {
		all[i] = i
	}
	fmt.Fprintf(w, "VAR\n  state : {%s};\n", stateList(all))
}

// writeTransitions emits the successor relation. Dead ends loop on
// themselves so every path is infinite.
func writeTransitions(w *bufio.Writer, m *oracle.Model) {
	fmt.Fprintf(w, "ASSIGN\n  init(state) := %s;\n", temporal.StateName(m.Initial))
	w.WriteString("  next(state) :=\n    case\n")
	for s := range m.Graph.Size() {
		succ, _ := m.Graph.Neighbors(s)
		switch len(succ) {
		case 0:
			continue
		case 1:
			fmt.Fprintf(w, "      state = %s : %s;\n", temporal.StateName(s), temporal.StateName(succ[0]))
		default:
			fmt.Fprintf(w, "      state = %s : {%s};\n", temporal.StateName(s), stateList(succ))
		}
	}
	w.WriteString("      TRUE : state;\n    esac;\n")
}

// writeVar defines a feature as a case over the states holding each value.
func writeVar(w *bufio.Writer, id string, v features.Valuation) {
	if v.Kind == features.Boolean {
		var on []int
		for s, b := range v.Bools {
			if b {
				on = append(on, s)
			}
		}
		fmt.Fprintf(w, "  %s := %s;\n", id, temporal.Render(temporal.InStates{States: on}, nil))
		return
	}

	byValue := make(map[int][]int)
	var values []int
	for s, x := range v.Ints {
		if _, seen := byValue[x]; !seen {
			values = append(values, x)
		}
		byValue[x] = append(byValue[x], s)
	}
	slices.Sort(values)
	if len(values) == 1 {
		fmt.Fprintf(w, "  %s := %d;\n", id, values[0])
		return
	}
	fmt.Fprintf(w, "  %s :=\n    case\n", id)
	for _, x := range values[:len(values)-1] {
		fmt.Fprintf(w, "      %s : %d;\n", temporal.Render(temporal.InStates{States: byValue[x]}, nil), x)
	}
	fmt.Fprintf(w, "      TRUE : %d;\n    esac;\n", values[len(values)-1])
}

// Package oracle defines the input handed to a model checker and the
// session interface through which queries are answered.
package oracle

import (
	"errors"
	"fmt"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/kripke"
	"github.com/rfielding/sketchcheck/laws"
	"github.com/rfielding/sketchcheck/sketch"
	"github.com/rfielding/sketchcheck/temporal"
)

var (
	ErrUnknownVariable = errors.New("oracle: formula refers to an unknown feature")
	ErrUnknownSymbol   = errors.New("oracle: formula refers to an undefined symbol")
)

// Define names a derived state predicate, such as goal or c_3.
type Define struct {
	Name string
	Body temporal.Formula
}

// Model is a finite transition system with per-state feature values and
// derived predicates. Every oracle checks queries against a Model.
type Model struct {
	Name    string
	Graph   *kripke.Graph
	Initial int
	Vars    []features.Valuation
	// Defines may refer to Vars and to defines listed before them.
	Defines []Define
}

// NewModel encodes an instance and its grounded rules: the goal predicate
// plus c_i and e_i for every rule.
func NewModel(inst *features.Instance, rules []sketch.GroundRule) *Model {
	m := &Model{
		Name:    inst.Name(),
		Graph:   inst.Graph(),
		Initial: inst.Initial(),
		Vars:    inst.Valuations(),
		Defines: make([]Define, 0, 1+2*len(rules)),
	}
	m.Defines = append(m.Defines, Define{Name: laws.GoalSymbol, Body: temporal.InStates{States: inst.Goals()}})
	for i, r := range rules {
		m.Defines = append(m.Defines,
			Define{Name: laws.CondSymbol(i), Body: r.Condition},
			Define{Name: laws.EffectSymbol(i), Body: r.Effect},
		)
	}
	return m
}

// Var returns the valuation of a feature.
func (m *Model) Var(name string) (features.Valuation, bool) {
	for _, v := range m.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return features.Valuation{}, false
}

// Validate checks that the initial state exists, every valuation covers all
// states, and every define refers only to known features and earlier
// defines.
func (m *Model) Validate() error {
	if m.Graph == nil {
		return errors.New("oracle: model has no graph")
	}
	n := m.Graph.Size()
	if m.Initial < 0 || m.Initial >= n {
		return fmt.Errorf("initial state: %w: %d", kripke.ErrStateOutOfRange, m.Initial)
	}
	for _, v := range m.Vars {
		if v.Len() != n {
			return fmt.Errorf("%w: %s", features.ErrLengthMismatch, v.Name)
		}
	}
	defined := make(map[string]bool, len(m.Defines))
	for _, d := range m.Defines {
		if err := m.CheckFormula(d.Body, defined); err != nil {
			return fmt.Errorf("define %s: %w", d.Name, err)
		}
		defined[d.Name] = true
	}
	return nil
}

// CheckFormula verifies that f mentions only known features, symbols in
// defined, and states of the graph.
func (m *Model) CheckFormula(f temporal.Formula, defined map[string]bool) error {
	var err error
	temporal.Walk(f, func(g temporal.Formula) {
		if err != nil {
			return
		}
		switch g := g.(type) {
		case temporal.Atom:
			if !defined[g.Name] {
				err = fmt.Errorf("%w: %s", ErrUnknownSymbol, g.Name)
			}
		case temporal.BoolEq:
			if v, ok := m.Var(g.Var); !ok || v.Kind != features.Boolean {
				err = fmt.Errorf("%w: boolean %s", ErrUnknownVariable, g.Var)
			}
		case temporal.IntEq:
			if v, ok := m.Var(g.Var); !ok || v.Kind != features.Numeric {
				err = fmt.Errorf("%w: numeric %s", ErrUnknownVariable, g.Var)
			}
		case temporal.InStates:
			for _, s := range g.States {
				if s < 0 || s >= m.Graph.Size() {
					err = fmt.Errorf("%w: %d", kripke.ErrStateOutOfRange, s)
					return
				}
			}
		}
	})
	return err
}

// Symbols returns the names of all defines.
func (m *Model) Symbols() map[string]bool {
	out := make(map[string]bool, len(m.Defines))
	for _, d := range m.Defines {
		out[d.Name] = true
	}
	return out
}

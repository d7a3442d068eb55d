package kripke

// CTL evaluator over a finite Graph.
// Leaves (atoms and feature literals) are delegated to a Resolver, so the
// evaluator stays independent of how states are labeled.
//
// Dead-end states are treated as stuttering forever (an implicit self-loop),
// which matches the encodings handed to external checkers.

import (
	"errors"
	"fmt"

	"github.com/rfielding/sketchcheck/temporal"
)

// ErrNotStateFormula is returned for linear-time operators, which have no
// state-set semantics.
var ErrNotStateFormula = errors.New("kripke: not a CTL state formula")

// ----- State sets -----

// StateSet is a set of states of one graph, stored as a membership vector.
type StateSet []bool

func NewStateSet(n int) StateSet { return make(StateSet, n) }

func (s StateSet) Has(i int) bool { return i >= 0 && i < len(s) && s[i] }
func (s StateSet) Add(i int)      { s[i] = true }
func (s StateSet) Copy() StateSet { return append(StateSet(nil), s...) }

func (s StateSet) Size() int {
	n := 0
	for _, in := range s {
		if in {
			n++
		}
	}
	return n
}

func (s StateSet) ToSlice() []int {
	out := make([]int, 0, len(s))
	for i, in := range s {
		if in {
			out = append(out, i)
		}
	}
	return out
}

func (s StateSet) Equals(other StateSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s StateSet) Intersect(other StateSet) StateSet {
	out := NewStateSet(len(s))
	for i := range s {
		out[i] = s[i] && other.Has(i)
	}
	return out
}

func (s StateSet) Union(other StateSet) StateSet {
	out := NewStateSet(len(s))
	for i := range s {
		out[i] = s[i] || other.Has(i)
	}
	return out
}

func (s StateSet) Difference(other StateSet) StateSet {
	out := NewStateSet(len(s))
	for i := range s {
		out[i] = s[i] && !other.Has(i)
	}
	return out
}

func (s StateSet) Complement() StateSet {
	out := NewStateSet(len(s))
	for i := range s {
		out[i] = !s[i]
	}
	return out
}

// Universe builds a set containing all states in the graph.
func Universe(g *Graph) StateSet {
	u := NewStateSet(g.Size())
	for i := range u {
		u[i] = true
	}
	return u
}

// SetOf builds a set from explicit state indices; indices outside [0, n) are
// ignored.
func SetOf(n int, states ...int) StateSet {
	s := NewStateSet(n)
	for _, i := range states {
		if i >= 0 && i < n {
			s[i] = true
		}
	}
	return s
}

// ----- Checker -----

// Resolver returns the states satisfying a leaf formula (Atom, BoolEq or IntEq).
type Resolver func(f temporal.Formula) (StateSet, error)

// Checker evaluates CTL formulas on one graph.
type Checker struct {
	graph   *Graph
	resolve Resolver
	succ    [][]int
	pred    [][]int
}

// NewChecker prepares the successor and predecessor relations of g, adding
// self-loops on dead ends.
func NewChecker(g *Graph, resolve Resolver) *Checker {
	n := g.Size()
	c := &Checker{
		graph:   g,
		resolve: resolve,
		succ:    make([][]int, n),
		pred:    make([][]int, n),
	}
	for s := range n {
		succ := g.succ[s]
		if len(succ) == 0 {
			succ = []int{s}
		}
		c.succ[s] = succ
		for _, t := range succ {
			c.pred[t] = append(c.pred[t], s)
		}
	}
	return c
}

// Holds checks whether f holds in state init.
func (c *Checker) Holds(f temporal.Formula, init int) (bool, error) {
	if err := c.graph.check(init); err != nil {
		return false, err
	}
	sat, err := c.Sat(f)
	if err != nil {
		return false, err
	}
	return sat.Has(init), nil
}

// Sat returns the set of states satisfying f.
func (c *Checker) Sat(f temporal.Formula) (StateSet, error) {
	switch f := f.(type) {
	case temporal.Top:
		return Universe(c.graph), nil
	case temporal.Bottom:
		return NewStateSet(c.graph.Size()), nil
	case temporal.InStates:
		return SetOf(c.graph.Size(), f.States...), nil
	case temporal.Atom, temporal.BoolEq, temporal.IntEq:
		if c.resolve == nil {
			return nil, fmt.Errorf("kripke: no resolver for %s", f)
		}
		return c.resolve(f)
	case temporal.Not:
		sub, err := c.Sat(f.F)
		if err != nil {
			return nil, err
		}
		return sub.Complement(), nil
	case temporal.And:
		out := Universe(c.graph)
		for _, g := range f.Fs {
			sub, err := c.Sat(g)
			if err != nil {
				return nil, err
			}
			out = out.Intersect(sub)
		}
		return out, nil
	case temporal.Or:
		out := NewStateSet(c.graph.Size())
		for _, g := range f.Fs {
			sub, err := c.Sat(g)
			if err != nil {
				return nil, err
			}
			out = out.Union(sub)
		}
		return out, nil
	case temporal.Implies:
		// p -> q is equivalent to ¬p ∨ q
		return c.Sat(temporal.Or{Fs: []temporal.Formula{temporal.Not{F: f.Left}, f.Right}})
	case temporal.EX:
		sub, err := c.Sat(f.F)
		if err != nil {
			return nil, err
		}
		return c.PreE(sub), nil
	case temporal.AX:
		sub, err := c.Sat(f.F)
		if err != nil {
			return nil, err
		}
		return c.PreA(sub), nil
	case temporal.EF:
		// EF φ ≡ E[ true U φ ]
		return c.Sat(temporal.EU{Left: temporal.Top{}, Right: f.F})
	case temporal.AF:
		// AF φ ≡ ¬EG ¬φ
		return c.Sat(temporal.Not{F: temporal.EG{F: temporal.Not{F: f.F}}})
	case temporal.AG:
		// AG φ ≡ ¬EF ¬φ
		return c.Sat(temporal.Not{F: temporal.EF{F: temporal.Not{F: f.F}}})
	case temporal.EG:
		sub, err := c.Sat(f.F)
		if err != nil {
			return nil, err
		}
		return c.eg(sub), nil
	case temporal.EU:
		p, q, err := c.pair(f.Left, f.Right)
		if err != nil {
			return nil, err
		}
		return c.eu(p, q), nil
	case temporal.AU:
		p, q, err := c.pair(f.Left, f.Right)
		if err != nil {
			return nil, err
		}
		return c.au(p, q), nil
	case temporal.Next, temporal.Finally, temporal.Globally, temporal.Until, temporal.Once:
		return nil, fmt.Errorf("%w: %s", ErrNotStateFormula, f)
	default:
		return nil, fmt.Errorf("kripke: unknown formula %T", f)
	}
}

func (c *Checker) pair(l, r temporal.Formula) (StateSet, StateSet, error) {
	p, err := c.Sat(l)
	if err != nil {
		return nil, nil, err
	}
	q, err := c.Sat(r)
	if err != nil {
		return nil, nil, err
	}
	return p, q, nil
}

// PreE returns states with SOME successor in W:
// PreE(W) = { s | ∃ s' . R(s,s') ∧ s' ∈ W }
func (c *Checker) PreE(W StateSet) StateSet {
	out := NewStateSet(len(W))
	for t, in := range W {
		if !in {
			continue
		}
		for _, s := range c.pred[t] {
			out[s] = true
		}
	}
	return out
}

// PreA returns states whose ALL successors are in W.
func (c *Checker) PreA(W StateSet) StateSet {
	out := NewStateSet(len(W))
	for s, succs := range c.succ {
		all := true
		for _, t := range succs {
			if !W[t] {
				all = false
				break
			}
		}
		out[s] = all
	}
	return out
}

// eu is the least fixpoint W = Q ∪ (P ∩ PreE(W)), computed backwards from Q.
func (c *Checker) eu(P, Q StateSet) StateSet {
	W := Q.Copy()
	queue := W.ToSlice()
	for len(queue) > 0 {
		t := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, s := range c.pred[t] {
			if !W[s] && P[s] {
				W[s] = true
				queue = append(queue, s)
			}
		}
	}
	return W
}

// au is the least fixpoint W = Q ∪ (P ∩ PreA(W)).
func (c *Checker) au(P, Q StateSet) StateSet {
	W := Q.Copy()
	for {
		next := W.Union(P.Intersect(c.PreA(W)))
		if next.Equals(W) {
			return W
		}
		W = next
	}
}

// eg is the greatest fixpoint: start with all states where φ holds and
// iteratively remove states that have no successor left in the set.
func (c *Checker) eg(sat StateSet) StateSet {
	Z := sat.Copy()
	for {
		next := Z.Intersect(c.PreE(Z))
		if next.Equals(Z) {
			return Z
		}
		Z = next
	}
}

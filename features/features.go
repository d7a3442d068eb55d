// Package features models a planning instance's reachable state graph
// together with the value of every feature in every state.
package features

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rfielding/sketchcheck/kripke"
)

// Feature names carry their type in a prefix.
const (
	BooleanPrefix = "b_"
	NumericPrefix = "n_"
)

var (
	ErrUnknownFeatureKind = errors.New("features: feature name has no b_ or n_ prefix")
	ErrLengthMismatch     = errors.New("features: valuation length differs from state count")
	ErrKindMismatch       = errors.New("features: valuation kind does not match feature name")
	ErrDuplicateFeature   = errors.New("features: duplicate feature")
	ErrNegativeValue      = errors.New("features: numeric feature has a negative value")
)

// Kind is the value type of a feature.
type Kind int

const (
	Boolean Kind = iota + 1
	Numeric
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Numeric:
		return "numeric"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindOf derives the kind of a feature from its name prefix.
func KindOf(name string) (Kind, error) {
	switch {
	case strings.HasPrefix(name, BooleanPrefix):
		return Boolean, nil
	case strings.HasPrefix(name, NumericPrefix):
		return Numeric, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFeatureKind, name)
}

// Valuation holds one feature's value in every state, in state index order.
// Exactly one of Bools and Ints is used, depending on Kind.
type Valuation struct {
	Name  string
	Kind  Kind
	Bools []bool
	Ints  []int
}

// Bools builds a boolean valuation.
func Bools(name string, values ...bool) Valuation {
	return Valuation{Name: name, Kind: Boolean, Bools: values}
}

// Ints builds a numeric valuation.
func Ints(name string, values ...int) Valuation {
	return Valuation{Name: name, Kind: Numeric, Ints: values}
}

// Len returns the number of states the valuation covers.
func (v Valuation) Len() int {
	if v.Kind == Boolean {
		return len(v.Bools)
	}
	return len(v.Ints)
}

func (v Valuation) clone() Valuation {
	v.Bools = slices.Clone(v.Bools)
	v.Ints = slices.Clone(v.Ints)
	return v
}

// Bound is the range a numeric feature takes over all states.
type Bound struct {
	Min int
	Max int
}

// Instance is a reachable state graph with its initial state, goal states
// and feature valuations. It is immutable once built.
type Instance struct {
	name    string
	graph   *kripke.Graph
	initial int
	goals   []int
	vals    map[string]Valuation
	names   []string
	display map[string]string
}

// Option configures an Instance.
type Option func(*Instance)

// WithName sets a human readable instance name.
func WithName(name string) Option {
	return func(i *Instance) {
		i.name = name
	}
}

// WithDisplayNames sets the names used when rendering features.
func WithDisplayNames(names map[string]string) Option {
	return func(i *Instance) {
		i.display = maps.Clone(names)
	}
}

// NewInstance validates and assembles an instance. The graph must not be
// modified afterwards.
func NewInstance(g *kripke.Graph, initial int, goals []int, vals []Valuation, opts ...Option) (*Instance, error) {
	n := g.Size()
	if initial < 0 || initial >= n {
		return nil, fmt.Errorf("initial state: %w: %d", kripke.ErrStateOutOfRange, initial)
	}
	goalSet := slices.Clone(goals)
	slices.Sort(goalSet)
	goalSet = slices.Compact(goalSet)
	for _, s := range goalSet {
		if s < 0 || s >= n {
			return nil, fmt.Errorf("goal state: %w: %d", kripke.ErrStateOutOfRange, s)
		}
	}

	inst := &Instance{
		graph:   g,
		initial: initial,
		goals:   goalSet,
		vals:    make(map[string]Valuation, len(vals)),
	}
	for _, v := range vals {
		kind, err := KindOf(v.Name)
		if err != nil {
			return nil, err
		}
		if kind != v.Kind {
			return nil, fmt.Errorf("%w: %s holds %s values", ErrKindMismatch, v.Name, v.Kind)
		}
		if v.Len() != n {
			return nil, fmt.Errorf("%w: %s has %d values for %d states", ErrLengthMismatch, v.Name, v.Len(), n)
		}
		if _, dup := inst.vals[v.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFeature, v.Name)
		}
		for s, x := range v.Ints {
			if x < 0 {
				return nil, fmt.Errorf("%w: %s = %d in s%d", ErrNegativeValue, v.Name, x, s)
			}
		}
		inst.vals[v.Name] = v.clone()
		inst.names = append(inst.names, v.Name)
	}
	slices.Sort(inst.names)

	for _, opt := range opts {
		opt(inst)
	}
	return inst, nil
}

// Name returns the instance name, possibly empty.
func (i *Instance) Name() string { return i.name }

// Graph returns the state graph. Callers must treat it as read-only.
func (i *Instance) Graph() *kripke.Graph { return i.graph }

// Size returns the number of states.
func (i *Instance) Size() int { return i.graph.Size() }

// Initial returns the initial state index.
func (i *Instance) Initial() int { return i.initial }

// Goals returns the sorted goal state indices.
func (i *Instance) Goals() []int { return slices.Clone(i.goals) }

// IsGoal reports whether state s is a goal state.
func (i *Instance) IsGoal(s int) bool {
	_, found := slices.BinarySearch(i.goals, s)
	return found
}

// Features returns the feature names in sorted order.
func (i *Instance) Features() []string { return slices.Clone(i.names) }

// Valuation returns the values of one feature.
func (i *Instance) Valuation(name string) (Valuation, bool) {
	v, ok := i.vals[name]
	if !ok {
		return Valuation{}, false
	}
	return v.clone(), true
}

// Valuations returns all valuations ordered by feature name.
func (i *Instance) Valuations() []Valuation {
	out := make([]Valuation, 0, len(i.names))
	for _, name := range i.names {
		out = append(out, i.vals[name].clone())
	}
	return out
}

// HasFeature reports whether the instance carries values for name.
func (i *Instance) HasFeature(name string) bool {
	_, ok := i.vals[name]
	return ok
}

// Bounds returns the (min, max) range of every numeric feature.
func (i *Instance) Bounds() map[string]Bound {
	out := make(map[string]Bound)
	for _, name := range i.names {
		v := i.vals[name]
		if v.Kind != Numeric || len(v.Ints) == 0 {
			continue
		}
		out[name] = Bound{Min: slices.Min(v.Ints), Max: slices.Max(v.Ints)}
	}
	return out
}

// DisplayName returns the rendering name of a feature, defaulting to the
// feature name itself.
func (i *Instance) DisplayName(name string) string {
	if d, ok := i.display[name]; ok && d != "" {
		return d
	}
	return name
}

// DisplayNames returns a copy of the display name mapping.
func (i *Instance) DisplayNames() map[string]string {
	return maps.Clone(i.display)
}

// StateSummary renders the feature values of state s, e.g. for diagrams.
func (i *Instance) StateSummary(s int) string {
	parts := make([]string, 0, len(i.names))
	for _, name := range i.names {
		v := i.vals[name]
		if v.Kind == Boolean {
			if v.Bools[s] {
				parts = append(parts, i.DisplayName(name))
			}
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", i.DisplayName(name), v.Ints[s]))
	}
	return strings.Join(parts, " ")
}

// Changes describes how the features differ between states from and to:
// "+name" and "-name" for booleans, "name a→b" for numbers.
func (i *Instance) Changes(from, to int) string {
	var parts []string
	for _, name := range i.names {
		v := i.vals[name]
		display := i.DisplayName(name)
		if v.Kind == Boolean {
			switch a, b := v.Bools[from], v.Bools[to]; {
			case !a && b:
				parts = append(parts, "+"+display)
			case a && !b:
				parts = append(parts, "-"+display)
			}
			continue
		}
		if a, b := v.Ints[from], v.Ints[to]; a != b {
			parts = append(parts, fmt.Sprintf("%s %d→%d", display, a, b))
		}
	}
	return strings.Join(parts, ", ")
}

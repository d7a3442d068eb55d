package sketch

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/temporal"
)

var (
	ErrMalformedRule = errors.New("sketch: malformed rule")
	ErrMissingBound  = errors.New("sketch: no bound for numeric feature")
)

// GroundRule is a rule after expansion: its condition and effect mention
// only concrete feature values.
type GroundRule struct {
	// Rule is the index of the sketch rule this grounding came from.
	Rule      int
	Condition temporal.Formula
	Effect    temporal.Formula
}

func (g GroundRule) String() string {
	return fmt.Sprintf("r%d: %s => %s", g.Rule, g.Condition, g.Effect)
}

// value is one concrete choice for a tracked feature.
type value struct {
	b bool
	n int
}

type tracked struct {
	name    string
	numeric bool
	options []value
}

func (t tracked) literal(v value) temporal.Formula {
	if t.numeric {
		return temporal.IntEq{Var: t.name, Value: v.n}
	}
	return temporal.BoolEq{Var: t.name, Value: v.b}
}

// Expand grounds the rule against the numeric feature bounds. Groundings
// whose effect would step a numeric feature outside [0, max] are dropped.
//
// Every tracked feature is pinned in the grounded condition, including
// features tracked only because an Equal, Incr or Decr effect needs their
// current value. So ([], [b_k=]) grounds to b_k = TRUE => b_k = TRUE and
// b_k = FALSE => b_k = FALSE rather than TRUE => b_k = TRUE. Only a rule
// with no tracked feature has the condition TRUE.
func (r Rule) Expand(bounds map[string]features.Bound) ([]GroundRule, error) {
	for _, e := range r.effs {
		if isAnyEffect(e) {
			return nil, fmt.Errorf("%w: %s has an unconstrained effect on %s", ErrMalformedRule, r, e.FeatureName())
		}
	}

	vars, err := r.track(bounds)
	if err != nil {
		return nil, err
	}

	var out []GroundRule
	choice := make([]value, len(vars))
	var walk func(k int) error
	walk = func(k int) error {
		if k < len(vars) {
			for _, v := range vars[k].options {
				choice[k] = v
				if err := walk(k + 1); err != nil {
					return err
				}
			}
			return nil
		}
		eff, ok, err := r.groundEffect(vars, choice, bounds)
		if err != nil || !ok {
			return err
		}
		lits := make([]temporal.Formula, len(vars))
		for i, t := range vars {
			lits[i] = t.literal(choice[i])
		}
		out = append(out, GroundRule{Condition: temporal.Conj(lits...), Effect: eff})
		return nil
	}
	if err := walk(0); err != nil {
		return nil, err
	}
	return out, nil
}

// track lists the features whose value a grounding must fix, in feature
// order, each with the values its condition admits.
func (r Rule) track(bounds map[string]features.Bound) ([]tracked, error) {
	conds := make(map[string]Condition, len(r.conds))
	var names []string
	for _, c := range r.conds {
		conds[c.FeatureName()] = c
		names = append(names, c.FeatureName())
	}
	for _, e := range r.effs {
		switch e := e.(type) {
		case BoolEffect:
			if e.Kind == EffBoolEqual {
				names = append(names, e.Feature)
			}
		case NumEffect:
			names = append(names, e.Feature)
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)

	vars := make([]tracked, 0, len(names))
	for _, name := range names {
		kind, err := features.KindOf(name)
		if err != nil {
			return nil, err
		}
		t := tracked{name: name, numeric: kind == features.Numeric}
		if !t.numeric {
			t.options = boolOptions(conds[name])
			vars = append(vars, t)
			continue
		}
		b, ok := bounds[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingBound, name)
		}
		t.options = numOptions(conds[name], b.Max)
		vars = append(vars, t)
	}
	return vars, nil
}

func boolOptions(c Condition) []value {
	if c, ok := c.(BoolCondition); ok {
		switch c.Kind {
		case CondPositive:
			return []value{{b: true}}
		case CondNegative:
			return []value{{b: false}}
		}
	}
	return []value{{b: true}, {b: false}}
}

func numOptions(c Condition, upper int) []value {
	lo := 0
	if c, ok := c.(NumCondition); ok {
		switch c.Kind {
		case CondZero:
			return []value{{n: 0}}
		case CondGreater:
			lo = 1
		}
	}
	var out []value
	for n := lo; n <= upper; n++ {
		out = append(out, value{n: n})
	}
	return out
}

// groundEffect substitutes the chosen values into the effects. It reports
// false when a numeric step has no admissible target.
func (r Rule) groundEffect(vars []tracked, choice []value, bounds map[string]features.Bound) (temporal.Formula, bool, error) {
	at := func(name string) value {
		i := slices.IndexFunc(vars, func(t tracked) bool { return t.name == name })
		return choice[i]
	}

	parts := make([]temporal.Formula, 0, len(r.effs))
	for _, e := range r.effs {
		switch e := e.(type) {
		case BoolEffect:
			switch e.Kind {
			case EffPositive:
				parts = append(parts, temporal.BoolEq{Var: e.Feature, Value: true})
			case EffNegative:
				parts = append(parts, temporal.BoolEq{Var: e.Feature, Value: false})
			case EffBoolEqual:
				parts = append(parts, temporal.BoolEq{Var: e.Feature, Value: at(e.Feature).b})
			default:
				return nil, false, fmt.Errorf("%w: %s has effect kind %d on %s", ErrMalformedRule, r, e.Kind, e.Feature)
			}
		case NumEffect:
			v := at(e.Feature).n
			switch e.Kind {
			case EffNumEqual:
				parts = append(parts, temporal.IntEq{Var: e.Feature, Value: v})
			case EffDecr:
				if v == 0 {
					return nil, false, nil
				}
				parts = append(parts, numRange(e.Feature, 0, v-1))
			case EffIncr:
				upper := bounds[e.Feature].Max
				if v >= upper {
					return nil, false, nil
				}
				parts = append(parts, numRange(e.Feature, v+1, upper))
			default:
				return nil, false, fmt.Errorf("%w: %s has effect kind %d on %s", ErrMalformedRule, r, e.Kind, e.Feature)
			}
		default:
			return nil, false, fmt.Errorf("%w: %s has effect %T", ErrMalformedRule, r, e)
		}
	}
	return temporal.Conj(parts...), true, nil
}

func numRange(name string, lo, hi int) temporal.Formula {
	lits := make([]temporal.Formula, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		lits = append(lits, temporal.IntEq{Var: name, Value: n})
	}
	return temporal.Disj(lits...)
}

// Expand grounds every rule and concatenates the results in rule order.
func (s Sketch) Expand(bounds map[string]features.Bound) ([]GroundRule, error) {
	var out []GroundRule
	for i, r := range s.rules {
		grounded, err := r.Expand(bounds)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		for _, g := range grounded {
			g.Rule = i
			out = append(out, g)
		}
	}
	return out, nil
}

// FormatGroundRules renders grounded rules one per line, numbered the way
// the laws refer to them.
func FormatGroundRules(rules []GroundRule) string {
	var sb strings.Builder
	for i, g := range rules {
		fmt.Fprintf(&sb, "%d\t%s\n", i, g)
	}
	return sb.String()
}

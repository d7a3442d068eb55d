package sketch

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrDuplicateFeature = errors.New("sketch: feature listed twice in one rule side")

// Rule is a conjunction of conditions and a conjunction of effects. Both
// lists are kept sorted by feature name, so rules built from the same
// literals in any order are equal.
type Rule struct {
	conds []Condition
	effs  []Effect
}

// NewRule validates and canonicalizes a rule. A feature may appear at most
// once among the conditions and at most once among the effects, and every
// literal must match the kind encoded in its feature's name.
func NewRule(conds []Condition, effs []Effect) (Rule, error) {
	for _, c := range conds {
		if c == nil {
			return Rule{}, fmt.Errorf("%w: nil condition", ErrMalformedRule)
		}
		if !knownCondition(c) {
			return Rule{}, fmt.Errorf("%w: unknown condition kind on %s", ErrMalformedRule, c.FeatureName())
		}
	}
	for _, e := range effs {
		if e == nil {
			return Rule{}, fmt.Errorf("%w: nil effect", ErrMalformedRule)
		}
		if !knownEffect(e) {
			return Rule{}, fmt.Errorf("%w: unknown effect kind on %s", ErrMalformedRule, e.FeatureName())
		}
	}

	r := Rule{
		conds: slices.Clone(conds),
		effs:  slices.Clone(effs),
	}
	slices.SortFunc(r.conds, func(a, b Condition) int { return cmp.Compare(a.FeatureName(), b.FeatureName()) })
	slices.SortFunc(r.effs, func(a, b Effect) int { return cmp.Compare(a.FeatureName(), b.FeatureName()) })

	for i, c := range r.conds {
		if i > 0 && r.conds[i-1].FeatureName() == c.FeatureName() {
			return Rule{}, fmt.Errorf("%w: condition on %s", ErrDuplicateFeature, c.FeatureName())
		}
		if err := checkKind(c.FeatureName(), isNumericCondition(c)); err != nil {
			return Rule{}, err
		}
	}
	for i, e := range r.effs {
		if i > 0 && r.effs[i-1].FeatureName() == e.FeatureName() {
			return Rule{}, fmt.Errorf("%w: effect on %s", ErrDuplicateFeature, e.FeatureName())
		}
		if err := checkKind(e.FeatureName(), isNumericEffect(e)); err != nil {
			return Rule{}, err
		}
	}
	return r, nil
}

// MustRule is like NewRule but panics on error. It is meant for fixtures.
func MustRule(conds []Condition, effs []Effect) Rule {
	r, err := NewRule(conds, effs)
	if err != nil {
		panic(err)
	}
	return r
}

// When is shorthand for a condition list.
func When(conds ...Condition) []Condition { return conds }

// Then is shorthand for an effect list.
func Then(effs ...Effect) []Effect { return effs }

// Conditions returns the conditions in feature order.
func (r Rule) Conditions() []Condition { return slices.Clone(r.conds) }

// Effects returns the effects in feature order.
func (r Rule) Effects() []Effect { return slices.Clone(r.effs) }

// Equal reports whether two rules have the same conditions and effects.
func (r Rule) Equal(o Rule) bool {
	return slices.Equal(r.conds, o.conds) && slices.Equal(r.effs, o.effs)
}

// Features returns every feature the rule mentions, sorted.
func (r Rule) Features() []string {
	var out []string
	for _, c := range r.conds {
		out = append(out, c.FeatureName())
	}
	for _, e := range r.effs {
		out = append(out, e.FeatureName())
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Render writes the rule as "{conds} -> {effs}" using display names.
func (r Rule) Render(names map[string]string) string {
	cs := make([]string, len(r.conds))
	for i, c := range r.conds {
		cs[i] = c.Render(names)
	}
	es := make([]string, len(r.effs))
	for i, e := range r.effs {
		es[i] = e.Render(names)
	}
	return "{" + strings.Join(cs, ", ") + "} -> {" + strings.Join(es, ", ") + "}"
}

func (r Rule) String() string { return r.Render(nil) }

func compareRules(a, b Rule) int {
	return cmp.Compare(a.String(), b.String())
}

// Sketch is a set of rules. Rules are applied disjunctively, so their order
// carries no meaning; it is kept only to make expansion output stable.
type Sketch struct {
	rules []Rule
}

// New builds a sketch from rules.
func New(rules ...Rule) Sketch {
	return Sketch{rules: slices.Clone(rules)}
}

// Rules returns the rules in insertion order.
func (s Sketch) Rules() []Rule { return slices.Clone(s.rules) }

// Len returns the number of rules.
func (s Sketch) Len() int { return len(s.rules) }

// Equal compares two sketches as multisets of rules.
func (s Sketch) Equal(o Sketch) bool {
	if len(s.rules) != len(o.rules) {
		return false
	}
	a := slices.Clone(s.rules)
	b := slices.Clone(o.rules)
	slices.SortFunc(a, compareRules)
	slices.SortFunc(b, compareRules)
	return slices.EqualFunc(a, b, Rule.Equal)
}

// Features returns every feature used by any rule, sorted.
func (s Sketch) Features() []string {
	var out []string
	for _, r := range s.rules {
		out = append(out, r.Features()...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Render writes one rule per line.
func (s Sketch) Render(names map[string]string) string {
	var sb strings.Builder
	for i, r := range s.rules {
		fmt.Fprintf(&sb, "r%d: %s\n", i, r.Render(names))
	}
	return sb.String()
}

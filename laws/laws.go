// Package laws generates the temporal obligations a sketch must meet. Each
// law is a template over the number of grounded rules n and refers to the
// symbols goal, c_i (rule i's condition holds) and e_i (rule i's effect
// holds), which the model encoding defines.
package laws

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rfielding/sketchcheck/temporal"
)

var ErrUnknownLaw = errors.New("laws: unknown law")

// GoalSymbol names the goal predicate.
const GoalSymbol = "goal"

// CondSymbol names rule i's condition.
func CondSymbol(i int) string { return "c_" + strconv.Itoa(i) }

// EffectSymbol names rule i's effect.
func EffectSymbol(i int) string { return "e_" + strconv.Itoa(i) }

func goal() temporal.Formula         { return temporal.Atom{Name: GoalSymbol} }
func c(i int) temporal.Formula       { return temporal.Atom{Name: CondSymbol(i)} }
func e(i int) temporal.Formula       { return temporal.Atom{Name: EffectSymbol(i)} }
func canReachGoal() temporal.Formula { return temporal.EF{F: goal()} }
func deadEnd() temporal.Formula      { return temporal.Not{F: canReachGoal()} }

// Law is one obligation template with the verdict a good sketch gets.
type Law struct {
	Name        string
	Description string
	Expect      bool
	build       func(n int) temporal.Formula
}

// Instantiate builds the query for n grounded rules.
func (l Law) Instantiate(n int) temporal.Spec {
	return temporal.Spec{Name: l.Name, Formula: l.build(n)}
}

// Logic reports the logic the law's queries are written in.
func (l Law) Logic() temporal.Logic {
	return l.Instantiate(1).Logic()
}

func (l Law) String() string {
	return fmt.Sprintf("%s (%s, expect %t)", l.Name, l.Logic(), l.Expect)
}

// Progress: from every state that can still reach the goal, either the goal
// holds or some rule applies and its effect can be reached without losing
// the goal.
//
//	AG( ∨_i (c_i ∧ EF(e_i ∧ EF goal)) ∨ goal ∨ ¬EF goal )
var Progress = Law{
	Name:        "progress",
	Description: "some rule always applies and can make progress",
	Expect:      true,
	build: func(n int) temporal.Formula {
		opts := make([]temporal.Formula, 0, n+2)
		for i := range n {
			opts = append(opts, temporal.And{Fs: []temporal.Formula{
				c(i),
				temporal.EF{F: temporal.And{Fs: []temporal.Formula{e(i), canReachGoal()}}},
			}})
		}
		opts = append(opts, goal(), deadEnd())
		return temporal.AG{F: temporal.Or{Fs: opts}}
	},
}

// strands is the conjunction over rules of c_i → ¬EF(e_i ∧ ¬EF goal).
func strands(n int) temporal.Formula {
	parts := make([]temporal.Formula, 0, n)
	for i := range n {
		parts = append(parts, temporal.Implies{
			Left:  c(i),
			Right: temporal.Not{F: temporal.EF{F: temporal.And{Fs: []temporal.Formula{e(i), deadEnd()}}}},
		})
	}
	return temporal.Conj(parts...)
}

// Safety: no applicable rule can lead to a dead end. States that already
// cannot reach the goal are exempt, so an unsolvable instance passes.
//
//	AG( ∧_i (c_i → ¬EF(e_i ∧ ¬EF goal)) ∨ ¬EF goal )
var Safety = Law{
	Name:        "safety",
	Description: "no rule leads into a dead end",
	Expect:      true,
	build: func(n int) temporal.Formula {
		return temporal.AG{F: temporal.Or{Fs: []temporal.Formula{strands(n), deadEnd()}}}
	},
}

// SafetyStrict is Safety without the dead-end exemption. It fails whenever a
// rule applies in a state that cannot reach the goal.
//
//	AG( ∧_i (c_i → ¬EF(e_i ∧ ¬EF goal)) )
var SafetyStrict = Law{
	Name:        "safety-strict",
	Description: "no rule leads into a dead end, even from a dead end",
	Expect:      true,
	build: func(n int) temporal.Formula {
		return temporal.AG{F: strands(n)}
	},
}

// SafetyViolation is the negation of Safety, checked for falsity.
//
//	EF( EF goal ∧ ∨_i (c_i ∧ EF(e_i ∧ ¬EF goal)) )
var SafetyViolation = Law{
	Name:        "safety-violation",
	Description: "a solvable state has a rule that can strand the goal",
	Expect:      false,
	build: func(n int) temporal.Formula {
		bad := make([]temporal.Formula, 0, n)
		for i := range n {
			bad = append(bad, temporal.And{Fs: []temporal.Formula{
				c(i),
				temporal.EF{F: temporal.And{Fs: []temporal.Formula{e(i), deadEnd()}}},
			}})
		}
		return temporal.EF{F: temporal.And{Fs: []temporal.Formula{canReachGoal(), temporal.Disj(bad...)}}}
	},
}

// Liveness: every run that keeps following the rules reaches the goal.
//
//	G(FollowRules) → F goal
//
// where a run follows the rules at a point if some rule's condition held and
// its effect holds now, or some rule's condition holds now and its effect
// comes before the goal or another rule's condition with its eventual effect.
var Liveness = Law{
	Name:        "liveness",
	Description: "following the rules always reaches the goal",
	Expect:      true,
	build: func(n int) temporal.Formula {
		return temporal.Implies{
			Left:  temporal.Globally{F: FollowRules(n)},
			Right: temporal.Finally{F: goal()},
		}
	},
}

// FollowRules is the path condition of Liveness. It is false when n is 0.
func FollowRules(n int) temporal.Formula {
	done := make([]temporal.Formula, 0, n)
	pending := make([]temporal.Formula, 0, n)
	for i := range n {
		done = append(done, temporal.And{Fs: []temporal.Formula{temporal.Once{F: c(i)}, e(i)}})

		interrupt := []temporal.Formula{goal()}
		for j := range n {
			if j == i {
				continue
			}
			interrupt = append(interrupt, temporal.And{Fs: []temporal.Formula{c(j), temporal.Finally{F: e(j)}}})
		}
		pending = append(pending, temporal.And{Fs: []temporal.Formula{
			c(i),
			temporal.Until{Left: temporal.Not{F: temporal.Disj(interrupt...)}, Right: e(i)},
		}})
	}
	return temporal.Disj(append(done, pending...)...)
}

var registry = []Law{Progress, Safety, SafetyStrict, SafetyViolation, Liveness}

// Default returns the laws a sketch is certified against.
func Default() []Law {
	return []Law{Progress, Safety, Liveness}
}

// All returns every known law.
func All() []Law { return slices.Clone(registry) }

// Names lists the known law names.
func Names() []string {
	out := make([]string, len(registry))
	for i, l := range registry {
		out[i] = l.Name
	}
	return out
}

// ByName looks up a law.
func ByName(name string) (Law, error) {
	for _, l := range registry {
		if l.Name == name {
			return l, nil
		}
	}
	return Law{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownLaw, name, strings.Join(Names(), ", "))
}

// Lookup resolves a list of law names, keeping their order.
func Lookup(names []string) ([]Law, error) {
	out := make([]Law, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		l, err := ByName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Parse resolves a comma separated list of law names.
func Parse(list string) ([]Law, error) {
	return Lookup(strings.Split(list, ","))
}

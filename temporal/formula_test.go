package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConjDisj(t *testing.T) {
	p := Atom{Name: "p"}
	q := Atom{Name: "q"}

	assert.Equal(t, Top{}, Conj())
	assert.Equal(t, Bottom{}, Disj())
	assert.Equal(t, p, Conj(p))
	assert.Equal(t, q, Disj(q))
	assert.Equal(t, And{Fs: []Formula{p, q}}, Conj(p, q))
	assert.Equal(t, Or{Fs: []Formula{p, q}}, Disj(p, q))
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		f    Formula
		want string
	}{
		{"top", Top{}, "TRUE"},
		{"bottom", Bottom{}, "FALSE"},
		{"bool literal", BoolEq{Var: "b_x", Value: true}, "b_x = TRUE"},
		{"int literal", IntEq{Var: "n_y", Value: 3}, "n_y = 3"},
		{"states", InStates{States: []int{0, 2}}, "state in {s0, s2}"},
		{"no states", InStates{}, "FALSE"},
		{"empty and", And{}, "TRUE"},
		{"empty or", Or{}, "FALSE"},
		{
			"progress shape",
			AG{F: Or{Fs: []Formula{
				And{Fs: []Formula{Atom{"c_0"}, EF{F: And{Fs: []Formula{Atom{"e_0"}, EF{F: Atom{"goal"}}}}}}},
				Atom{"goal"},
				Not{F: EF{F: Atom{"goal"}}},
			}}},
			"AG (((c_0 & EF ((e_0 & EF (goal)))) | goal | !(EF (goal))))",
		},
		{"until", EU{Left: Atom{"p"}, Right: Atom{"q"}}, "E [ p U q ]"},
		{"ltl", Implies{Left: Globally{F: Once{F: Atom{"p"}}}, Right: Finally{F: Atom{"goal"}}}, "(G (O (p)) -> F (goal))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.String())
		})
	}
}

func TestRenderRenamesVariablesOnly(t *testing.T) {
	f := And{Fs: []Formula{BoolEq{Var: "b_on(a)", Value: false}, Atom{Name: "c_0"}}}
	got := Render(f, func(s string) string { return "v0" })
	assert.Equal(t, "(v0 = FALSE & c_0)", got)
}

func TestLogicOf(t *testing.T) {
	p := Atom{Name: "p"}
	assert.Equal(t, Propositional, LogicOf(Conj(p, Not{F: p})))
	assert.Equal(t, CTL, LogicOf(AG{F: EF{F: p}}))
	assert.Equal(t, LTL, LogicOf(Globally{F: Once{F: p}}))
	assert.Equal(t, Mixed, LogicOf(Globally{F: EF{F: p}}))

	assert.Equal(t, CTL, Spec{Name: "init", Formula: p}.Logic())
	assert.Equal(t, LTL, Spec{Name: "live", Formula: Finally{F: p}}.Logic())
}

func TestAtoms(t *testing.T) {
	f := AG{F: Implies{Left: Atom{"c_0"}, Right: Not{F: EF{F: And{Fs: []Formula{Atom{"e_0"}, Atom{"c_0"}, BoolEq{Var: "b_x"}}}}}}}
	assert.Equal(t, []string{"c_0", "e_0"}, Atoms(f))
}

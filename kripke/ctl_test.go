package kripke

import (
	"errors"
	"testing"

	"github.com/rfielding/sketchcheck/temporal"
)

func sat(t *testing.T, c *Checker, f temporal.Formula) StateSet {
	t.Helper()
	s, err := c.Sat(f)
	if err != nil {
		t.Fatalf("Sat(%s): %v", f, err)
	}
	return s
}

func TestAtomicProposition(t *testing.T) {
	c := simple(t).checker()

	result := sat(t, c, p("p"))
	if !result.Has(0) {
		t.Error("Expected p to hold in s0")
	}
	if result.Has(1) {
		t.Error("Expected p not to hold in s1")
	}
}

func TestNegation(t *testing.T) {
	c := simple(t).checker()

	result := sat(t, c, temporal.Not{F: p("p")})
	if result.Has(0) {
		t.Error("Expected ¬p not to hold in s0")
	}
	if !result.Has(1) {
		t.Error("Expected ¬p to hold in s1")
	}
}

func TestConjunctionDisjunction(t *testing.T) {
	c := simple(t).checker()

	and := sat(t, c, temporal.Conj(p("p"), p("q")))
	if !and.Has(2) || and.Has(0) || and.Has(1) {
		t.Errorf("p ∧ q = %v, want only s2", and.ToSlice())
	}
	or := sat(t, c, temporal.Disj(p("p"), p("q")))
	if or.Size() != 3 {
		t.Errorf("p ∨ q = %v, want all states", or.ToSlice())
	}
	empty := sat(t, c, temporal.And{})
	if empty.Size() != 3 {
		t.Errorf("empty conjunction = %v, want all states", empty.ToSlice())
	}
}

func TestEX(t *testing.T) {
	l := newLabeled(t, 3, 0)
	l.edge(t, 0, 1)
	l.edge(t, 1, 2)
	l.label(1, "p")
	c := l.checker()

	result := sat(t, c, temporal.EX{F: p("p")})
	if !result.Has(0) {
		t.Error("Expected EX p to hold in s0")
	}
	if result.Has(1) {
		t.Error("Expected EX p not to hold in s1")
	}
}

func TestAX(t *testing.T) {
	l := newLabeled(t, 3, 0)
	l.edge(t, 0, 1)
	l.edge(t, 0, 2)
	l.label(1, "p")
	l.label(2, "p")
	c := l.checker()

	if !sat(t, c, temporal.AX{F: p("p")}).Has(0) {
		t.Error("Expected AX p to hold in s0")
	}
}

func TestEF(t *testing.T) {
	l := newLabeled(t, 3, 0)
	l.edge(t, 0, 1)
	l.edge(t, 1, 2)
	l.label(2, "p")
	c := l.checker()

	result := sat(t, c, temporal.EF{F: p("p")})
	for s := range 3 {
		if !result.Has(s) {
			t.Errorf("Expected EF p to hold in s%d", s)
		}
	}
}

func TestAF(t *testing.T) {
	l := newLabeled(t, 4, 0)
	l.edge(t, 0, 1)
	l.edge(t, 0, 3)
	l.edge(t, 1, 2)
	l.edge(t, 3, 3)
	l.label(2, "done")
	c := l.checker()

	result := sat(t, c, temporal.AF{F: p("done")})
	if result.Has(0) {
		t.Error("Expected AF done not to hold in s0 (s3 loops forever)")
	}
	if !result.Has(1) {
		t.Error("Expected AF done to hold in s1")
	}
}

func TestEG(t *testing.T) {
	l := newLabeled(t, 3, 0)
	l.edge(t, 0, 1)
	l.edge(t, 1, 0)
	l.edge(t, 0, 2)
	l.label(0, "safe")
	l.label(1, "safe")
	c := l.checker()

	result := sat(t, c, temporal.EG{F: p("safe")})
	if !result.Has(0) || !result.Has(1) {
		t.Error("Expected EG safe on the s0/s1 cycle")
	}
	if result.Has(2) {
		t.Error("Expected EG safe not to hold in s2")
	}
}

func TestAG(t *testing.T) {
	c := trafficLight(t).checker()

	if sat(t, c, temporal.AG{F: p("stop")}).Has(0) {
		t.Error("Expected AG stop not to hold in red")
	}
	always := temporal.AG{F: temporal.Disj(p("stop"), p("go"), p("caution"))}
	if !sat(t, c, always).Has(0) {
		t.Error("Expected AG (stop ∨ go ∨ caution) to hold")
	}
	if !sat(t, c, temporal.AG{F: temporal.AF{F: p("go")}}).Has(0) {
		t.Error("Expected AG AF go to hold")
	}
}

func TestEUAndAU(t *testing.T) {
	l := newLabeled(t, 3, 0)
	l.edge(t, 0, 1)
	l.edge(t, 1, 2)
	l.label(0, "ready")
	l.label(1, "ready")
	l.label(2, "done")
	c := l.checker()

	if !sat(t, c, temporal.EU{Left: p("ready"), Right: p("done")}).Has(0) {
		t.Error("Expected E[ready U done] to hold in s0")
	}
	if !sat(t, c, temporal.AU{Left: p("ready"), Right: p("done")}).Has(0) {
		t.Error("Expected A[ready U done] to hold in s0")
	}
}

func TestMutualExclusion(t *testing.T) {
	l := mutualExclusion(t)
	c := l.checker()

	never := temporal.AG{F: temporal.Not{F: temporal.Conj(p("critical1"), p("critical2"))}}
	ok, err := c.Holds(never, l.init)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Expected mutual exclusion to hold")
	}

	reach := temporal.AG{F: temporal.Implies{Left: p("trying1"), Right: temporal.EF{F: p("critical1")}}}
	if ok, _ := c.Holds(reach, l.init); !ok {
		t.Error("Expected trying1 -> EF critical1 everywhere")
	}
}

func TestDeadEndStutters(t *testing.T) {
	l := newLabeled(t, 2, 0)
	l.edge(t, 0, 1)
	l.label(1, "end")
	c := l.checker()

	if !sat(t, c, temporal.EG{F: p("end")}).Has(1) {
		t.Error("Expected a dead end to satisfy EG of its own labels")
	}
	if !sat(t, c, temporal.AX{F: p("end")}).Has(1) {
		t.Error("Expected AX end in the stuttering dead end")
	}
}

func TestLinearTimeRejected(t *testing.T) {
	c := simple(t).checker()
	_, err := c.Sat(temporal.Globally{F: p("p")})
	if !errors.Is(err, ErrNotStateFormula) {
		t.Errorf("Sat(G p) error = %v, want ErrNotStateFormula", err)
	}
}

func TestHoldsOutOfRange(t *testing.T) {
	c := simple(t).checker()
	if _, err := c.Holds(p("p"), 9); !errors.Is(err, ErrStateOutOfRange) {
		t.Errorf("Holds at s9 error = %v, want ErrStateOutOfRange", err)
	}
}

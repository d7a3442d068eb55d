package temporal

import "fmt"

// Logic classifies the temporal operators a formula uses.
type Logic int

const (
	// Propositional formulas use no temporal operator.
	Propositional Logic = iota
	// CTL formulas use only path-quantified operators.
	CTL
	// LTL formulas use only linear-time (and past) operators.
	LTL
	// Mixed formulas combine both and are accepted by no oracle.
	Mixed
)

func (l Logic) String() string {
	switch l {
	case Propositional:
		return "propositional"
	case CTL:
		return "CTL"
	case LTL:
		return "LTL"
	case Mixed:
		return "mixed"
	}
	return fmt.Sprintf("Logic(%d)", int(l))
}

// LogicOf reports which logic f belongs to.
func LogicOf(f Formula) Logic {
	var ctl, ltl bool
	Walk(f, func(g Formula) {
		switch g.(type) {
		case EX, AX, EF, AF, EG, AG, EU, AU:
			ctl = true
		case Next, Finally, Globally, Until, Once:
			ltl = true
		}
	})
	switch {
	case ctl && ltl:
		return Mixed
	case ctl:
		return CTL
	case ltl:
		return LTL
	}
	return Propositional
}

// Spec is a named query handed to an oracle.
type Spec struct {
	Name    string
	Formula Formula
}

// Logic returns the logic of the spec's formula. Propositional specs are
// checked as CTL, which agrees with LTL on the initial state.
func (s Spec) Logic() Logic {
	if l := LogicOf(s.Formula); l != Propositional {
		return l
	}
	return CTL
}

func (s Spec) String() string {
	return fmt.Sprintf("%s := %s", s.Name, s.Formula)
}

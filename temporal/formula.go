// Package temporal holds the formula language shared by grounded sketch
// rules, the verification laws and the model encodings.
//
// Formulas are plain values. String renders them in NuSMV syntax so the same
// text can be logged, compared in tests and written into an encoding.
package temporal

// Formula is a propositional, CTL or LTL formula.
type Formula interface {
	String() string
	formula()
}

// Top is the constant true.
type Top struct{}

// Bottom is the constant false.
type Bottom struct{}

// Atom refers to a named symbol defined by the model (goal, c_0, e_3, ...).
type Atom struct {
	Name string
}

// BoolEq holds in states where the boolean feature Var has Value.
type BoolEq struct {
	Var   string
	Value bool
}

// IntEq holds in states where the numeric feature Var has Value.
type IntEq struct {
	Var   string
	Value int
}

// InStates holds exactly in the listed state indices.
type InStates struct {
	States []int
}

// Not is negation.
type Not struct {
	F Formula
}

// And is n-ary conjunction. An empty And is true.
type And struct {
	Fs []Formula
}

// Or is n-ary disjunction. An empty Or is false.
type Or struct {
	Fs []Formula
}

// Implies is material implication.
type Implies struct {
	Left, Right Formula
}

// EX: there exists a next state where F holds.
type EX struct {
	F Formula
}

// AX: in all next states F holds.
type AX struct {
	F Formula
}

// EF: there exists a path where eventually F holds.
type EF struct {
	F Formula
}

// AF: on all paths eventually F holds.
type AF struct {
	F Formula
}

// EG: there exists a path where F holds forever.
type EG struct {
	F Formula
}

// AG: on all paths F holds forever.
type AG struct {
	F Formula
}

// EU: there exists a path where Left holds until Right holds.
type EU struct {
	Left, Right Formula
}

// AU: on all paths Left holds until Right holds.
type AU struct {
	Left, Right Formula
}

// Next is the LTL X operator.
type Next struct {
	F Formula
}

// Finally is the LTL F operator.
type Finally struct {
	F Formula
}

// Globally is the LTL G operator.
type Globally struct {
	F Formula
}

// Until is the LTL U operator.
type Until struct {
	Left, Right Formula
}

// Once is the past-time LTL O operator: F held at some point up to now.
type Once struct {
	F Formula
}

func (Top) formula()      {}
func (Bottom) formula()   {}
func (Atom) formula()     {}
func (BoolEq) formula()   {}
func (IntEq) formula()    {}
func (InStates) formula() {}
func (Not) formula()      {}
func (And) formula()      {}
func (Or) formula()       {}
func (Implies) formula()  {}
func (EX) formula()       {}
func (AX) formula()       {}
func (EF) formula()       {}
func (AF) formula()       {}
func (EG) formula()       {}
func (AG) formula()       {}
func (EU) formula()       {}
func (AU) formula()       {}
func (Next) formula()     {}
func (Finally) formula()  {}
func (Globally) formula() {}
func (Until) formula()    {}
func (Once) formula()     {}

func (f Top) String() string      { return Render(f, nil) }
func (f Bottom) String() string   { return Render(f, nil) }
func (f Atom) String() string     { return Render(f, nil) }
func (f BoolEq) String() string   { return Render(f, nil) }
func (f IntEq) String() string    { return Render(f, nil) }
func (f InStates) String() string { return Render(f, nil) }
func (f Not) String() string      { return Render(f, nil) }
func (f And) String() string      { return Render(f, nil) }
func (f Or) String() string       { return Render(f, nil) }
func (f Implies) String() string  { return Render(f, nil) }
func (f EX) String() string       { return Render(f, nil) }
func (f AX) String() string       { return Render(f, nil) }
func (f EF) String() string       { return Render(f, nil) }
func (f AF) String() string       { return Render(f, nil) }
func (f EG) String() string       { return Render(f, nil) }
func (f AG) String() string       { return Render(f, nil) }
func (f EU) String() string       { return Render(f, nil) }
func (f AU) String() string       { return Render(f, nil) }
func (f Next) String() string     { return Render(f, nil) }
func (f Finally) String() string  { return Render(f, nil) }
func (f Globally) String() string { return Render(f, nil) }
func (f Until) String() string    { return Render(f, nil) }
func (f Once) String() string     { return Render(f, nil) }

// Conj builds a conjunction. No operands gives Top and a single operand is
// returned unwrapped.
func Conj(fs ...Formula) Formula {
	switch len(fs) {
	case 0:
		return Top{}
	case 1:
		return fs[0]
	}
	return And{Fs: fs}
}

// Disj builds a disjunction. No operands gives Bottom and a single operand is
// returned unwrapped.
func Disj(fs ...Formula) Formula {
	switch len(fs) {
	case 0:
		return Bottom{}
	case 1:
		return fs[0]
	}
	return Or{Fs: fs}
}

// Equal reports whether two formulas render identically.
func Equal(a, b Formula) bool {
	return a.String() == b.String()
}

// Atoms returns the names of all Atom leaves of f, in first-seen order.
func Atoms(f Formula) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(f, func(g Formula) {
		if a, ok := g.(Atom); ok && !seen[a.Name] {
			seen[a.Name] = true
			out = append(out, a.Name)
		}
	})
	return out
}

// Walk calls fn for f and every subformula, parents before children.
func Walk(f Formula, fn func(Formula)) {
	fn(f)
	for _, c := range children(f) {
		Walk(c, fn)
	}
}

func children(f Formula) []Formula {
	switch f := f.(type) {
	case Not:
		return []Formula{f.F}
	case And:
		return f.Fs
	case Or:
		return f.Fs
	case Implies:
		return []Formula{f.Left, f.Right}
	case EX:
		return []Formula{f.F}
	case AX:
		return []Formula{f.F}
	case EF:
		return []Formula{f.F}
	case AF:
		return []Formula{f.F}
	case EG:
		return []Formula{f.F}
	case AG:
		return []Formula{f.F}
	case EU:
		return []Formula{f.Left, f.Right}
	case AU:
		return []Formula{f.Left, f.Right}
	case Next:
		return []Formula{f.F}
	case Finally:
		return []Formula{f.F}
	case Globally:
		return []Formula{f.F}
	case Until:
		return []Formula{f.Left, f.Right}
	case Once:
		return []Formula{f.F}
	}
	return nil
}

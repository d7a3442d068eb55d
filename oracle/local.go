package oracle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rfielding/sketchcheck/kripke"
	"github.com/rfielding/sketchcheck/temporal"
)

// Local decides CTL queries in process with the kripke fixpoint checker.
// LTL queries are rejected with ErrUnsupportedLogic.
type Local struct {
	logger *zap.Logger
}

// LocalOption configures a Local oracle.
type LocalOption func(*Local)

// WithLogger sets the logger used for per-query debug output.
func WithLogger(logger *zap.Logger) LocalOption {
	return func(l *Local) {
		l.logger = logger
	}
}

// NewLocal creates an in-process oracle.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Supports reports true for CTL and propositional queries.
func (l *Local) Supports(logic temporal.Logic) bool {
	return logic == temporal.CTL || logic == temporal.Propositional
}

// Open validates the model and prepares a checker over its graph.
func (l *Local) Open(ctx context.Context, m *Model) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	s := &localSession{
		model:   m,
		logger:  l.logger.With(zap.String("model", m.Name)),
		defines: make(map[string]temporal.Formula, len(m.Defines)),
		memo:    make(map[string]kripke.StateSet),
	}
	for _, d := range m.Defines {
		s.defines[d.Name] = d.Body
	}
	s.checker = kripke.NewChecker(m.Graph, s.resolve)
	return s, nil
}

type localSession struct {
	model   *Model
	logger  *zap.Logger
	checker *kripke.Checker
	defines map[string]temporal.Formula
	// memo caches the states of every resolved leaf by its rendering.
	memo   map[string]kripke.StateSet
	active map[string]bool
	closed bool
}

func (s *localSession) Check(ctx context.Context, spec temporal.Spec) (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if logic := spec.Logic(); logic != temporal.CTL {
		return false, fmt.Errorf("%w: %s is %s", ErrUnsupportedLogic, spec.Name, logic)
	}
	if err := s.model.CheckFormula(spec.Formula, s.model.Symbols()); err != nil {
		return false, fmt.Errorf("%s: %w", spec.Name, err)
	}

	start := time.Now()
	ok, err := s.checker.Holds(spec.Formula, s.model.Initial)
	if err != nil {
		return false, fmt.Errorf("%s: %w", spec.Name, err)
	}
	s.logger.Debug("Checked query",
		zap.String("spec", spec.Name),
		zap.Bool("holds", ok),
		zap.Duration("duration", time.Since(start)))
	return ok, nil
}

func (s *localSession) Close() error {
	s.closed = true
	s.memo = nil
	return nil
}

func (s *localSession) resolve(f temporal.Formula) (kripke.StateSet, error) {
	key := f.String()
	if set, ok := s.memo[key]; ok {
		return set, nil
	}

	n := s.model.Graph.Size()
	var set kripke.StateSet
	switch f := f.(type) {
	case temporal.Atom:
		body, ok := s.defines[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, f.Name)
		}
		if s.active[f.Name] {
			return nil, fmt.Errorf("%w: %s is defined in terms of itself", ErrUnknownSymbol, f.Name)
		}
		if s.active == nil {
			s.active = make(map[string]bool)
		}
		s.active[f.Name] = true
		sat, err := s.checker.Sat(body)
		delete(s.active, f.Name)
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", f.Name, err)
		}
		set = sat
	case temporal.BoolEq:
		v, ok := s.model.Var(f.Var)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, f.Var)
		}
		set = kripke.NewStateSet(n)
		for st, b := range v.Bools {
			if b == f.Value {
				set.Add(st)
			}
		}
	case temporal.IntEq:
		v, ok := s.model.Var(f.Var)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, f.Var)
		}
		set = kripke.NewStateSet(n)
		for st, x := range v.Ints {
			if x == f.Value {
				set.Add(st)
			}
		}
	default:
		return nil, fmt.Errorf("oracle: cannot resolve %T", f)
	}
	s.memo[key] = set
	return set, nil
}

// Package verify checks sketches against planning instances: it grounds the
// sketch, instantiates the laws, and asks an oracle to decide them.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/laws"
	"github.com/rfielding/sketchcheck/oracle"
	"github.com/rfielding/sketchcheck/sketch"
)

var (
	ErrOracle         = errors.New("verify: oracle failed")
	ErrUnknownFeature = errors.New("verify: sketch uses a feature the instance does not define")
	ErrNoLaws         = errors.New("verify: no laws configured")
)

// ReasonEmptyExpansion is reported when no grounded rule survives
// expansion, so there is nothing to check.
const ReasonEmptyExpansion = "sketch expands to no grounded rules"

// Verifier checks sketches with one oracle and a fixed list of laws.
type Verifier struct {
	oracle  oracle.Oracle
	laws    []laws.Law
	logger  *zap.Logger
	timeout time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLaws replaces the default laws.
func WithLaws(ls ...laws.Law) Option {
	return func(v *Verifier) {
		v.laws = ls
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithTimeout bounds each verification call. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		v.timeout = d
	}
}

// New creates a verifier checking laws.Default() unless told otherwise.
func New(o oracle.Oracle, opts ...Option) *Verifier {
	v := &Verifier{
		oracle: o,
		laws:   laws.Default(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Laws returns the laws the verifier checks, in order.
func (v *Verifier) Laws() []laws.Law {
	return append([]laws.Law(nil), v.laws...)
}

// VerifySketch reports whether s passes every law on inst.
func (v *Verifier) VerifySketch(ctx context.Context, s sketch.Sketch, inst *features.Instance) (bool, error) {
	r, err := v.Verify(ctx, s, inst)
	if err != nil {
		return false, err
	}
	return r.Passed, nil
}

// Verify checks s on inst and describes the outcome. A failing sketch is a
// report with Passed false; an error means the sketch could not be checked.
// A sketch with no grounded rules fails before the laws are matched against
// the oracle's logics, so it is reported even by an oracle that cannot
// decide every law.
func (v *Verifier) Verify(ctx context.Context, s sketch.Sketch, inst *features.Instance) (*Report, error) {
	start := time.Now()
	r, err := v.verify(ctx, s, inst)
	elapsed := time.Since(start)
	verificationDuration.Observe(elapsed.Seconds())

	log := v.logger.With(zap.String("instance", inst.Name()), zap.Duration("duration", elapsed))
	if err != nil {
		verificationsTotal.WithLabelValues(resultError).Inc()
		log.Warn("Verification failed", zap.Error(err))
		return nil, err
	}
	r.Duration = elapsed
	switch {
	case r.Passed:
		verificationsTotal.WithLabelValues(resultPass).Inc()
	case r.Reason == ReasonEmptyExpansion:
		verificationsTotal.WithLabelValues(resultEmpty).Inc()
	default:
		verificationsTotal.WithLabelValues(resultFail).Inc()
	}
	log.Info("Verified sketch",
		zap.Bool("passed", r.Passed),
		zap.Int("ground_rules", r.GroundRules),
		zap.String("reason", r.Reason))
	return r, nil
}

func (v *Verifier) verify(ctx context.Context, s sketch.Sketch, inst *features.Instance) (*Report, error) {
	if len(v.laws) == 0 {
		return nil, ErrNoLaws
	}
	for _, f := range s.Features() {
		if !inst.HasFeature(f) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, f)
		}
	}

	r := &Report{
		Instance: inst.Name(),
		States:   inst.Size(),
		Rules:    s.Len(),
		Started:  time.Now(),
	}

	grounded, err := s.Expand(inst.Bounds())
	if err != nil {
		return nil, err
	}
	r.GroundRules = len(grounded)
	groundRules.Observe(float64(len(grounded)))
	v.logger.Debug("Expanded sketch",
		zap.String("instance", inst.Name()),
		zap.Int("rules", s.Len()),
		zap.Int("ground_rules", len(grounded)))
	if len(grounded) == 0 {
		r.Reason = ReasonEmptyExpansion
		return r, nil
	}
	for _, l := range v.laws {
		if !oracle.Supports(v.oracle, l.Logic()) {
			return nil, fmt.Errorf("%w: law %s needs %s", oracle.ErrUnsupportedLogic, l.Name, l.Logic())
		}
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	if err := v.check(ctx, oracle.NewModel(inst, grounded), r); err != nil {
		return nil, err
	}
	return r, nil
}

// check opens one oracle session and decides the laws in order, stopping at
// the first law whose verdict differs from the expected one.
func (v *Verifier) check(ctx context.Context, m *oracle.Model, r *Report) (err error) {
	session, err := v.oracle.Open(ctx, m)
	if err != nil {
		return fmt.Errorf("%w: open: %w", ErrOracle, err)
	}
	sessionsActive.Inc()
	defer func() {
		sessionsActive.Dec()
		if cerr := session.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close: %w", ErrOracle, cerr)
		}
	}()

	n := r.GroundRules
	for _, l := range v.laws {
		if err := ctx.Err(); err != nil {
			return err
		}
		spec := l.Instantiate(n)
		start := time.Now()
		got, err := session.Check(ctx, spec)
		if err != nil {
			lawChecksTotal.WithLabelValues(l.Name, resultError).Inc()
			return fmt.Errorf("%w: %s: %w", ErrOracle, l.Name, err)
		}
		verdict := "fails"
		if got {
			verdict = "holds"
		}
		lawChecksTotal.WithLabelValues(l.Name, verdict).Inc()

		res := LawResult{
			Law:      l.Name,
			Logic:    l.Logic().String(),
			Formula:  spec.Formula.String(),
			Expect:   l.Expect,
			Got:      got,
			Passed:   got == l.Expect,
			Duration: time.Since(start),
		}
		r.Laws = append(r.Laws, res)
		if !res.Passed {
			r.Reason = fmt.Sprintf("law %s: got %t, want %t", l.Name, got, l.Expect)
			return nil
		}
	}
	r.Passed = true
	return nil
}

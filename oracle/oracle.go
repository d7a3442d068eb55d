package oracle

import (
	"context"
	"errors"

	"github.com/rfielding/sketchcheck/temporal"
)

var (
	ErrUnsupportedLogic = errors.New("oracle: logic not supported")
	ErrSessionClosed    = errors.New("oracle: session closed")
)

// Oracle opens checking sessions over a model. Implementations must allow
// concurrent Open calls; each session is used by one goroutine.
type Oracle interface {
	Open(ctx context.Context, m *Model) (Session, error)
}

// Session answers queries about the model it was opened on. Close releases
// whatever the session holds and must be called on every path.
type Session interface {
	Check(ctx context.Context, spec temporal.Spec) (bool, error)
	Close() error
}

// LogicSupporter is implemented by oracles that can only decide some logics.
type LogicSupporter interface {
	Supports(l temporal.Logic) bool
}

// Supports reports whether o accepts queries in logic l. Oracles that do not
// say are assumed to accept everything.
func Supports(o Oracle, l temporal.Logic) bool {
	if s, ok := o.(LogicSupporter); ok {
		return s.Supports(l)
	}
	return true
}

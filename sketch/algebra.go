package sketch

import (
	"errors"
	"fmt"

	"github.com/rfielding/sketchcheck/features"
)

var (
	ErrNotInvertible = errors.New("sketch: condition has no inverse")
	ErrUnknownToken  = errors.New("sketch: unknown condition or effect token")
	ErrKindMismatch  = errors.New("sketch: condition or effect does not fit the feature kind")
)

// Condition is a symbolic test on one feature. The implementations are
// BoolCondition and NumCondition; the set is closed.
type Condition interface {
	FeatureName() string
	Invert() (Condition, error)
	Render(names map[string]string) string
	String() string
	Token() string
	isCondition()
}

// Effect is a symbolic change of one feature. The implementations are
// BoolEffect and NumEffect; the set is closed.
type Effect interface {
	FeatureName() string
	Render(names map[string]string) string
	String() string
	Token() string
	isEffect()
}

// BoolCondKind enumerates the tests on a boolean feature.
type BoolCondKind int

const (
	CondPositive BoolCondKind = iota + 1
	CondNegative
	CondBoolAny
)

// NumCondKind enumerates the tests on a numeric feature.
type NumCondKind int

const (
	CondGreater NumCondKind = iota + 1
	CondZero
	CondNumAny
)

// BoolEffectKind enumerates the changes of a boolean feature.
type BoolEffectKind int

const (
	EffPositive BoolEffectKind = iota + 1
	EffNegative
	EffBoolEqual
	EffBoolAny
)

// NumEffectKind enumerates the changes of a numeric feature.
type NumEffectKind int

const (
	EffIncr NumEffectKind = iota + 1
	EffDecr
	EffNumEqual
	EffNumAny
)

// BoolCondition tests a boolean feature.
type BoolCondition struct {
	Feature string
	Kind    BoolCondKind
}

// NumCondition tests a numeric feature.
type NumCondition struct {
	Feature string
	Kind    NumCondKind
}

// BoolEffect changes a boolean feature.
type BoolEffect struct {
	Feature string
	Kind    BoolEffectKind
}

// NumEffect changes a numeric feature.
type NumEffect struct {
	Feature string
	Kind    NumEffectKind
}

func (BoolCondition) isCondition() {}
func (NumCondition) isCondition()  {}
func (BoolEffect) isEffect()       {}
func (NumEffect) isEffect()        {}

// Positive: the boolean feature holds.
func Positive(feature string) Condition { return BoolCondition{feature, CondPositive} }

// Negative: the boolean feature does not hold.
func Negative(feature string) Condition { return BoolCondition{feature, CondNegative} }

// Greater: the numeric feature is above zero.
func Greater(feature string) Condition { return NumCondition{feature, CondGreater} }

// Zero: the numeric feature is zero.
func Zero(feature string) Condition { return NumCondition{feature, CondZero} }

// BoolAny places no restriction on a boolean feature but still tracks it.
func BoolAny(feature string) Condition { return BoolCondition{feature, CondBoolAny} }

// NumAny places no restriction on a numeric feature but still tracks it.
func NumAny(feature string) Condition { return NumCondition{feature, CondNumAny} }

// SetTrue makes the boolean feature hold.
func SetTrue(feature string) Effect { return BoolEffect{feature, EffPositive} }

// SetFalse makes the boolean feature fail.
func SetFalse(feature string) Effect { return BoolEffect{feature, EffNegative} }

// KeepBool keeps the boolean feature at its current value.
func KeepBool(feature string) Effect { return BoolEffect{feature, EffBoolEqual} }

// AnyBoolEffect leaves the boolean feature unconstrained. It cannot be
// expanded.
func AnyBoolEffect(feature string) Effect { return BoolEffect{feature, EffBoolAny} }

// Incr increases the numeric feature.
func Incr(feature string) Effect { return NumEffect{feature, EffIncr} }

// Decr decreases the numeric feature.
func Decr(feature string) Effect { return NumEffect{feature, EffDecr} }

// KeepNum keeps the numeric feature at its current value.
func KeepNum(feature string) Effect { return NumEffect{feature, EffNumEqual} }

// AnyNumEffect leaves the numeric feature unconstrained. It cannot be
// expanded.
func AnyNumEffect(feature string) Effect { return NumEffect{feature, EffNumAny} }

func (c BoolCondition) FeatureName() string { return c.Feature }
func (c NumCondition) FeatureName() string  { return c.Feature }
func (e BoolEffect) FeatureName() string    { return e.Feature }
func (e NumEffect) FeatureName() string     { return e.Feature }

// Invert swaps Positive and Negative.
func (c BoolCondition) Invert() (Condition, error) {
	switch c.Kind {
	case CondPositive:
		return BoolCondition{c.Feature, CondNegative}, nil
	case CondNegative:
		return BoolCondition{c.Feature, CondPositive}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotInvertible, c)
}

// Invert swaps Greater and Zero.
func (c NumCondition) Invert() (Condition, error) {
	switch c.Kind {
	case CondGreater:
		return NumCondition{c.Feature, CondZero}, nil
	case CondZero:
		return NumCondition{c.Feature, CondGreater}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotInvertible, c)
}

func display(feature string, names map[string]string) string {
	if d, ok := names[feature]; ok && d != "" {
		return d
	}
	return feature
}

func (c BoolCondition) Render(names map[string]string) string {
	f := display(c.Feature, names)
	switch c.Kind {
	case CondPositive:
		return f
	case CondNegative:
		return "¬" + f
	}
	return f + "?"
}

func (c NumCondition) Render(names map[string]string) string {
	f := display(c.Feature, names)
	switch c.Kind {
	case CondGreater:
		return f + ">0"
	case CondZero:
		return f + "=0"
	}
	return f + "?"
}

func (e BoolEffect) Render(names map[string]string) string {
	f := display(e.Feature, names)
	switch e.Kind {
	case EffPositive:
		return f
	case EffNegative:
		return "¬" + f
	case EffBoolEqual:
		return f + "="
	}
	return f + "?"
}

func (e NumEffect) Render(names map[string]string) string {
	f := display(e.Feature, names)
	switch e.Kind {
	case EffIncr:
		return f + "↑"
	case EffDecr:
		return f + "↓"
	case EffNumEqual:
		return f + "="
	}
	return f + "?"
}

func (c BoolCondition) String() string { return c.Render(nil) }
func (c NumCondition) String() string  { return c.Render(nil) }
func (e BoolEffect) String() string    { return e.Render(nil) }
func (e NumEffect) String() string     { return e.Render(nil) }

// Serialization tokens.
const (
	tokPositive = "positive"
	tokNegative = "negative"
	tokGreater  = "greater"
	tokZero     = "zero"
	tokAny      = "any"
	tokIncr     = "incr"
	tokDecr     = "decr"
	tokEqual    = "equal"
)

func (c BoolCondition) Token() string {
	switch c.Kind {
	case CondPositive:
		return tokPositive
	case CondNegative:
		return tokNegative
	}
	return tokAny
}

func (c NumCondition) Token() string {
	switch c.Kind {
	case CondGreater:
		return tokGreater
	case CondZero:
		return tokZero
	}
	return tokAny
}

func (e BoolEffect) Token() string {
	switch e.Kind {
	case EffPositive:
		return tokPositive
	case EffNegative:
		return tokNegative
	case EffBoolEqual:
		return tokEqual
	}
	return tokAny
}

func (e NumEffect) Token() string {
	switch e.Kind {
	case EffIncr:
		return tokIncr
	case EffDecr:
		return tokDecr
	case EffNumEqual:
		return tokEqual
	}
	return tokAny
}

// ParseCondition builds the condition named by token on feature. The
// feature's name prefix selects the boolean or numeric vocabulary.
func ParseCondition(feature, token string) (Condition, error) {
	kind, err := features.KindOf(feature)
	if err != nil {
		return nil, err
	}
	switch {
	case kind == features.Boolean && token == tokPositive:
		return Positive(feature), nil
	case kind == features.Boolean && token == tokNegative:
		return Negative(feature), nil
	case kind == features.Boolean && token == tokAny:
		return BoolAny(feature), nil
	case kind == features.Numeric && token == tokGreater:
		return Greater(feature), nil
	case kind == features.Numeric && token == tokZero:
		return Zero(feature), nil
	case kind == features.Numeric && token == tokAny:
		return NumAny(feature), nil
	}
	return nil, fmt.Errorf("%w: condition %q on %s feature %s", ErrUnknownToken, token, kind, feature)
}

// ParseEffect builds the effect named by token on feature.
func ParseEffect(feature, token string) (Effect, error) {
	kind, err := features.KindOf(feature)
	if err != nil {
		return nil, err
	}
	switch {
	case kind == features.Boolean && token == tokPositive:
		return SetTrue(feature), nil
	case kind == features.Boolean && token == tokNegative:
		return SetFalse(feature), nil
	case kind == features.Boolean && token == tokEqual:
		return KeepBool(feature), nil
	case kind == features.Boolean && token == tokAny:
		return AnyBoolEffect(feature), nil
	case kind == features.Numeric && token == tokIncr:
		return Incr(feature), nil
	case kind == features.Numeric && token == tokDecr:
		return Decr(feature), nil
	case kind == features.Numeric && token == tokEqual:
		return KeepNum(feature), nil
	case kind == features.Numeric && token == tokAny:
		return AnyNumEffect(feature), nil
	}
	return nil, fmt.Errorf("%w: effect %q on %s feature %s", ErrUnknownToken, token, kind, feature)
}

// checkKind verifies that a condition or effect is typed like its feature.
func checkKind(feature string, numeric bool) error {
	kind, err := features.KindOf(feature)
	if err != nil {
		return err
	}
	if (kind == features.Numeric) != numeric {
		return fmt.Errorf("%w: %s", ErrKindMismatch, feature)
	}
	return nil
}

func isNumericCondition(c Condition) bool {
	_, ok := c.(NumCondition)
	return ok
}

func isNumericEffect(e Effect) bool {
	_, ok := e.(NumEffect)
	return ok
}

func knownCondition(c Condition) bool {
	switch c := c.(type) {
	case BoolCondition:
		return c.Kind >= CondPositive && c.Kind <= CondBoolAny
	case NumCondition:
		return c.Kind >= CondGreater && c.Kind <= CondNumAny
	}
	return false
}

func knownEffect(e Effect) bool {
	switch e := e.(type) {
	case BoolEffect:
		return e.Kind >= EffPositive && e.Kind <= EffBoolAny
	case NumEffect:
		return e.Kind >= EffIncr && e.Kind <= EffNumAny
	}
	return false
}

func isAnyEffect(e Effect) bool {
	switch e := e.(type) {
	case BoolEffect:
		return e.Kind == EffBoolAny
	case NumEffect:
		return e.Kind == EffNumAny
	}
	return false
}

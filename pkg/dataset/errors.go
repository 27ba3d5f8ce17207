package dataset

import (
	"fmt"

	"github.com/misho104/SUSY-crosssection/pkg/grid"
)

// UncertaintyConfigError reports a value spec whose uncertainty components
// cannot be resolved against the table (missing column, wrong arity). It is
// fatal for the affected value spec at load time; other specs of the same
// dataset stay usable.
type UncertaintyConfigError struct {
	ValueColumn string
	Msg         string
}

func (e *UncertaintyConfigError) Error() string {
	return fmt.Sprintf("uncertainty config: value %q: %s", e.ValueColumn, e.Msg)
}

// NotFoundError reports an exact lookup with no matching grid entry. It is
// an ordinary query outcome; the caller decides the fallback.
type NotFoundError struct {
	Key grid.Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no grid entry at key %s", e.Key)
}

// OutOfRangeError reports an interpolated query point outside the known grid
// extent on some axis. No extrapolation is performed.
type OutOfRangeError struct {
	Axis     string
	Value    float64
	Min, Max float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("parameter %q = %g outside grid extent [%g, %g]", e.Axis, e.Value, e.Min, e.Max)
}

// InterpolationUnsupportedError reports a linear interpolation attempt on a
// non-numeric target column.
type InterpolationUnsupportedError struct {
	Column string
}

func (e *InterpolationUnsupportedError) Error() string {
	return fmt.Sprintf("linear interpolation is undefined for non-numeric column %q", e.Column)
}

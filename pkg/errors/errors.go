// Package errors defines the typed errors used across the pipeline.
//
// It builds on github.com/cockroachdb/errors so every error carries a stack
// trace and survives wrapping; errors.Is and errors.As work through any
// number of fmt.Errorf("%w") or Wrap layers.
package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

const prefix = "loanrisk"

// Sentinel errors.
var (
	ErrNotImplemented    = errors.New("not implemented")
	ErrEmptyData         = errors.New("empty data")
	ErrSingularMatrix    = errors.New("singular matrix")
	ErrNotFitted         = errors.New("not fitted")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrColumnNotFound    = errors.New("column not found")
	ErrNumerical         = errors.New("numerical instability")
)

// Re-exported helpers so callers need only one errors import.
var (
	New    = errors.New
	Newf   = errors.Newf
	Wrap   = errors.Wrap
	Wrapf  = errors.Wrapf
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// NotFittedError is returned when a model or transformer is used before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s: this instance is not fitted yet, call Fit before %s",
		prefix, e.ModelName, e.Method)
}

func (e *NotFittedError) Unwrap() error { return ErrNotFitted }

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError reports an input whose shape does not match what an
// operation expects. Axis 0 is rows, axis 1 is columns.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	axis := "rows"
	if e.Axis == 1 {
		axis = "columns"
	}
	return fmt.Sprintf("%s: %s: dimension mismatch on %s: expected %d, got %d",
		prefix, e.Op, axis, e.Expected, e.Got)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValueError reports an argument with the right type but an invalid value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError is a failure inside a model operation caused by Err.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %v", prefix, e.Op, e.Message, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError. It is returned unwrapped so that
// Unwrap yields err directly.
func NewModelError(op, message string, err error) error {
	return &ModelError{Op: op, Message: message, Err: err}
}

// ValidationError reports a hyperparameter or configuration value that fails
// validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid parameter %s=%v: %s", prefix, e.ParamName, e.Value, e.Reason)
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value any) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ColumnError reports a table column that is missing or has the wrong kind.
type ColumnError struct {
	Op     string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: %s: column %q not found", prefix, e.Op, e.Column)
}

func (e *ColumnError) Unwrap() error { return ErrColumnNotFound }

// NewColumnError creates a ColumnError with a stack trace.
func NewColumnError(op, column string) error {
	return errors.WithStack(&ColumnError{Op: op, Column: column})
}

// CheckScalar returns an error when v is NaN or infinite.
func CheckScalar(op string, v float64, iter int) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewModelError(op, fmt.Sprintf("non-finite value %v at iteration %d", v, iter), ErrNumerical)
	}
	return nil
}

// ClipGradient scales g in place so its L2 norm does not exceed maxNorm and
// reports whether clipping happened.
func ClipGradient(g []float64, maxNorm float64) bool {
	if maxNorm <= 0 {
		return false
	}
	var sq float64
	for _, v := range g {
		sq += v * v
	}
	norm := math.Sqrt(sq)
	if norm <= maxNorm {
		return false
	}
	scale := maxNorm / norm
	for i := range g {
		g[i] *= scale
	}
	return true
}

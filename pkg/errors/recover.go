package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Recover converts a panic into an error assigned to *errp. It must be
// deferred directly:
//
//	func (m *Model) Fit(X, y mat.Matrix) (err error) {
//		defer errors.Recover(&err, "Model.Fit")
//		...
//	}
//
// gonum/mat reports shape mismatches by panicking, so estimator entry points
// defer Recover to surface them as ordinary errors.
func Recover(errp *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	case string:
		cause = errors.New(v)
	default:
		cause = errors.New(fmt.Sprint(v))
	}
	if errp != nil {
		*errp = errors.WithStack(NewModelError(op, "panic recovered", cause))
	}
}

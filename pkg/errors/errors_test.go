package errors_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

func TestNotFittedErrorWrapping(t *testing.T) {
	original := lrErrors.NewNotFittedError("LogisticRegression", "PredictProba")
	wrapped := fmt.Errorf("evaluate: %w", original)

	assert.True(t, errors.Is(wrapped, original))
	assert.True(t, errors.Is(wrapped, lrErrors.ErrNotFitted))

	var nf *lrErrors.NotFittedError
	require.True(t, errors.As(wrapped, &nf))
	assert.Equal(t, "LogisticRegression", nf.ModelName)
	assert.Contains(t, wrapped.Error(), "not fitted yet")
}

func TestModelErrorUnwrap(t *testing.T) {
	cause := errors.New("disk error")
	err := lrErrors.NewModelError("store.SaveRun", "insert failed", cause)

	var me *lrErrors.ModelError
	require.True(t, errors.As(fmt.Errorf("ctx: %w", err), &me))
	assert.Equal(t, cause, me.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestSentinelThroughWrap(t *testing.T) {
	err := lrErrors.NewModelError("frame.Matrix", "no rows", lrErrors.ErrEmptyData)
	wrapped := lrErrors.Wrap(err, "train stage")
	assert.True(t, lrErrors.Is(wrapped, lrErrors.ErrEmptyData))
}

func TestColumnError(t *testing.T) {
	err := lrErrors.NewColumnError("Frame.Column", "has_default")
	assert.True(t, errors.Is(err, lrErrors.ErrColumnNotFound))
	assert.Contains(t, err.Error(), `"has_default"`)
}

func TestDimensionErrorAxis(t *testing.T) {
	assert.Contains(t, lrErrors.NewDimensionError("op", 2, 3, 0).Error(), "rows")
	assert.Contains(t, lrErrors.NewDimensionError("op", 2, 3, 1).Error(), "columns")
	assert.True(t, errors.Is(lrErrors.NewDimensionError("op", 2, 3, 1), lrErrors.ErrDimensionMismatch))
}

func TestRecoverFromMatPanic(t *testing.T) {
	mulBad := func() (err error) {
		defer lrErrors.Recover(&err, "test.Mul")
		a := mat.NewDense(2, 3, nil)
		b := mat.NewDense(2, 3, nil)
		var c mat.Dense
		c.Mul(a, b)
		return nil
	}

	err := mulBad()
	require.Error(t, err)

	var me *lrErrors.ModelError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "test.Mul", me.Op)
}

func TestRecoverNoPanic(t *testing.T) {
	fn := func() (err error) {
		defer lrErrors.Recover(&err, "noop")
		return nil
	}
	assert.NoError(t, fn())
}

func TestCheckScalar(t *testing.T) {
	assert.NoError(t, lrErrors.CheckScalar("loss", 0.5, 1))
	assert.ErrorIs(t, lrErrors.CheckScalar("loss", math.NaN(), 2), lrErrors.ErrNumerical)
	assert.ErrorIs(t, lrErrors.CheckScalar("loss", math.Inf(1), 3), lrErrors.ErrNumerical)
}

func TestClipGradient(t *testing.T) {
	g := []float64{3, 4}
	assert.True(t, lrErrors.ClipGradient(g, 1))
	assert.InDelta(t, 0.6, g[0], 1e-12)
	assert.InDelta(t, 0.8, g[1], 1e-12)

	h := []float64{0.1, 0.1}
	assert.False(t, lrErrors.ClipGradient(h, 1))
}

func TestWarnHandler(t *testing.T) {
	var got []lrErrors.Warning
	prev := lrErrors.SetWarningHandler(func(w lrErrors.Warning) { got = append(got, w) })
	defer lrErrors.SetWarningHandler(prev)

	lrErrors.Warn(lrErrors.NewConvergenceWarning("lbfgs", 100, "iteration limit reached"))

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "did not converge after 100 iterations")
}

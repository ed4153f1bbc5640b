package linear_model_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	"github.com/kari1998/loan-default-prediction/sklearn/linear_model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// separable draws two Gaussian blobs centred at -2 and +2 on both axes.
func separable(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		c := float64(i % 2)
		centre := -2.0 + 4.0*c
		X.Set(i, 0, centre+rng.NormFloat64()*0.5)
		X.Set(i, 1, centre+rng.NormFloat64()*0.5)
		y.Set(i, 0, c)
	}
	return X, y
}

func TestLogisticRegressionSeparable(t *testing.T) {
	X, y := separable(200, 1)
	lr := linear_model.NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.98)
	assert.Greater(t, lr.Coef[0], 0.0)
	assert.Greater(t, lr.Coef[1], 0.0)

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 200, r)
	assert.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
}

func TestLogisticRegressionRegularisation(t *testing.T) {
	X, y := separable(200, 2)
	strong := linear_model.NewLogisticRegression(linear_model.WithLRC(0.01))
	weak := linear_model.NewLogisticRegression(linear_model.WithLRC(100))
	require.NoError(t, strong.Fit(X, y))
	require.NoError(t, weak.Fit(X, y))

	norm := func(w []float64) float64 { return w[0]*w[0] + w[1]*w[1] }
	assert.Less(t, norm(strong.Coef), norm(weak.Coef))
}

func TestLogisticRegressionErrors(t *testing.T) {
	lr := linear_model.NewLogisticRegression()
	_, err := lr.Predict(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, lrErrors.ErrNotFitted)

	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	err = lr.Fit(X, mat.NewDense(3, 1, []float64{1, 1, 1}))
	var ve *lrErrors.ValueError
	assert.True(t, lrErrors.As(err, &ve))

	bad := linear_model.NewLogisticRegression(linear_model.WithLRPenalty("l1"))
	var vErr *lrErrors.ValidationError
	assert.True(t, lrErrors.As(bad.Fit(X, mat.NewDense(3, 1, []float64{0, 1, 0})), &vErr))

	Xs, ys := separable(20, 3)
	require.NoError(t, lr.Fit(Xs, ys))
	_, err = lr.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, lrErrors.ErrDimensionMismatch)
}

func TestLogisticRegressionPersistence(t *testing.T) {
	X, y := separable(100, 4)
	lr := linear_model.NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(lr, &buf))

	loaded := linear_model.NewLogisticRegression()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))
	assert.True(t, loaded.IsFitted())

	a, err := lr.PredictProba(X)
	require.NoError(t, err)
	b, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))

	params, err := loaded.Params([]string{"x0", "x1"})
	require.NoError(t, err)
	assert.Equal(t, lr.Coef, params.Coefficients)
}

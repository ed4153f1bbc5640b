package preprocessing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/preprocessing"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

const epsilon = 1e-10

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, 4,
		2, 5,
		3, 6,
	})
	scaler := preprocessing.NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2, 5}, scaler.Mean, epsilon)
	assert.InDeltaSlice(t, []float64{0.816496580927726, 0.816496580927726}, scaler.Scale, epsilon)
	assert.InDelta(t, -1.224744871391589, scaled.At(0, 0), epsilon)
	assert.InDelta(t, 0.0, scaled.At(1, 1), epsilon)

	back, err := scaler.InverseTransform(scaled)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(back, X, epsilon))
}

func TestStandardScalerConstantFeature(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{7, 7, 7})
	scaler := preprocessing.NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scaler.Scale[0])
	assert.Equal(t, 0.0, scaled.At(2, 0))
}

func TestStandardScalerErrors(t *testing.T) {
	scaler := preprocessing.NewStandardScalerDefault()
	_, err := scaler.Transform(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, lrErrors.ErrNotFitted)

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, lrErrors.ErrDimensionMismatch)
}

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		18, 20000,
		44, 85000,
		70, 150000,
	})
	scaler := preprocessing.NewMinMaxScalerDefault()
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	r, c := scaled.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := scaled.At(i, j)
			assert.True(t, v >= 0 && v <= 1, "value %v out of range", v)
		}
	}
	assert.InDelta(t, 0.5, scaled.At(1, 0), epsilon)
	assert.InDelta(t, 1.0, scaled.At(2, 1), epsilon)

	back, err := scaler.InverseTransform(scaled)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(back, X, 1e-6))
}

func TestMinMaxScalerCustomRange(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 10})
	scaler := preprocessing.NewMinMaxScaler([2]float64{-1, 1})
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, -1.0, scaled.At(0, 0))
	assert.Equal(t, 1.0, scaled.At(1, 0))

	bad := preprocessing.NewMinMaxScaler([2]float64{1, 0})
	var ve *lrErrors.ValidationError
	assert.True(t, lrErrors.As(bad.Fit(X), &ve))
}

func TestMinMaxScalerEmpty(t *testing.T) {
	scaler := preprocessing.NewMinMaxScalerDefault()
	err := scaler.Fit(&mat.Dense{})
	assert.ErrorIs(t, err, lrErrors.ErrEmptyData)
}

package modelselection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/modelselection"
	"github.com/kari1998/loan-default-prediction/pkg/errors"
)

func toyData(n, positives int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i*i))
		if i < positives {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func TestTrainTestSplitSizes(t *testing.T) {
	X, y := toyData(101, 20)
	s, err := modelselection.TrainTestSplit(X, y, modelselection.SplitOptions{TestSize: 0.2, Seed: 42})
	require.NoError(t, err)

	rTest, _ := s.XTest.Dims()
	rTrain, _ := s.XTrain.Dims()
	assert.Equal(t, 21, rTest)
	assert.Equal(t, 80, rTrain)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, s.TrainIdx...), s.TestIdx...) {
		assert.False(t, seen[i], "row %d used twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 101)

	// rows stay aligned with labels
	for k, i := range s.TestIdx {
		assert.Equal(t, X.At(i, 0), s.XTest.At(k, 0))
		assert.Equal(t, y.At(i, 0), s.YTest.At(k, 0))
	}
}

func TestTrainTestSplitStratified(t *testing.T) {
	X, y := toyData(1000, 200)
	s, err := modelselection.TrainTestSplit(X, y, modelselection.SplitOptions{TestSize: 0.2, Seed: 42, Stratify: true})
	require.NoError(t, err)

	var pos float64
	r, _ := s.YTest.Dims()
	for i := 0; i < r; i++ {
		pos += s.YTest.At(i, 0)
	}
	assert.Equal(t, 200, r)
	assert.Equal(t, 40.0, pos)
}

func TestTrainTestSplitDeterministic(t *testing.T) {
	X, y := toyData(50, 10)
	opts := modelselection.SplitOptions{TestSize: 0.3, Seed: 1}
	a, err := modelselection.TrainTestSplit(X, y, opts)
	require.NoError(t, err)
	b, err := modelselection.TrainTestSplit(X, y, opts)
	require.NoError(t, err)
	assert.Equal(t, a.TestIdx, b.TestIdx)
}

func TestTrainTestSplitValidation(t *testing.T) {
	X, y := toyData(10, 2)
	_, err := modelselection.TrainTestSplit(X, y, modelselection.SplitOptions{TestSize: 1.2})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	short := mat.NewDense(5, 1, nil)
	_, err = modelselection.TrainTestSplit(X, short, modelselection.SplitOptions{TestSize: 0.2})
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)
}

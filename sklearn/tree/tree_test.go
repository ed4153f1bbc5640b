package tree_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/sklearn/tree"
)

// xorData has a label that depends on both features and a third noise
// feature that is constant.
func xorData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 3, []float64{
		0, 0, 5,
		0, 1, 5,
		1, 0, 5,
		1, 1, 5,
		0, 0, 5,
		0, 1, 5,
		1, 0, 5,
		1, 1, 5,
	})
	y := mat.NewDense(8, 1, []float64{0, 1, 1, 0, 0, 1, 1, 0})
	return X, y
}

func TestDecisionTreeFitsXOR(t *testing.T) {
	X, y := xorData()
	dt := tree.NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	score, err := dt.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, 2, dt.Depth())

	imp, err := dt.FeatureImportances()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-12)
	assert.Equal(t, 0.0, imp[2])
}

func TestDecisionTreeMaxDepth(t *testing.T) {
	X, y := xorData()
	dt := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))
	assert.LessOrEqual(t, dt.Depth(), 1)

	proba, err := dt.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		assert.InDelta(t, 0.5, proba.At(i, 1), 1e-12)
	}
}

func TestDecisionTreeThresholdIsMidpoint(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 10, 11})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	dt := tree.NewDecisionTreeClassifier(tree.WithCriterion(tree.CriterionEntropy))
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 6.0, dt.Nodes[0].Threshold)

	pred, err := dt.Predict(mat.NewDense(2, 1, []float64{5.9, 6.1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, pred.(*mat.Dense).RawMatrix().Data)
}

func TestDecisionTreeFitSampleWithRepeats(t *testing.T) {
	X, y := xorData()
	dt := tree.NewDecisionTreeClassifier(tree.WithMaxFeatures(tree.MaxFeaturesSqrt), tree.WithDTRandomState(3))
	require.NoError(t, dt.FitSample(X, y, []float64{0, 1}, []int{0, 0, 1, 2, 3, 3}))
	assert.Equal(t, 6, dt.NSamples)
	assert.True(t, dt.IsFitted())
}

func TestDecisionTreeErrors(t *testing.T) {
	dt := tree.NewDecisionTreeClassifier()
	_, err := dt.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, lrErrors.ErrNotFitted)
	_, err = dt.FeatureImportances()
	assert.ErrorIs(t, err, lrErrors.ErrNotFitted)

	X, y := xorData()
	bad := tree.NewDecisionTreeClassifier(tree.WithCriterion("mse"))
	var ve *lrErrors.ValidationError
	assert.True(t, lrErrors.As(bad.Fit(X, y), &ve))

	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, lrErrors.ErrDimensionMismatch)
}

func TestDecisionTreePersistence(t *testing.T) {
	X, y := xorData()
	dt := tree.NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(dt, &buf))
	loaded := tree.NewDecisionTreeClassifier()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	a, err := dt.PredictProba(X)
	require.NoError(t, err)
	b, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
}

package ensemble_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/sklearn/ensemble"
)

// blobs returns two well separated clusters on feature 0 with a pure
// noise feature 1.
func blobs(n int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(1, 2))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		X.Set(i, 0, label*4+rng.Float64())
		X.Set(i, 1, rng.Float64())
		y.Set(i, 0, label)
	}
	return X, y
}

func TestRandomForestSeparatesBlobs(t *testing.T) {
	X, y := blobs(200)
	rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(20), ensemble.WithNJobs(4))
	require.NoError(t, rf.Fit(X, y))

	score, err := rf.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	imp, err := rf.FeatureImportances()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, floats.Sum(imp), 1e-9)
	assert.Greater(t, imp[0], imp[1])

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, []int{200, 2}, []int{r, c})
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
}

func TestRandomForestDeterministic(t *testing.T) {
	X, y := blobs(100)
	a := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(10), ensemble.WithNJobs(1))
	b := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(10), ensemble.WithNJobs(8))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.PredictProba(X)
	require.NoError(t, err)
	pb, err := b.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))
	assert.Equal(t, a.Importances, b.Importances)
}

func TestGradientBoostingSeparatesBlobs(t *testing.T) {
	X, y := blobs(200)
	gb := ensemble.NewGradientBoostingClassifier(ensemble.WithGBNEstimators(20))
	require.NoError(t, gb.Fit(X, y))

	score, err := gb.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	imp, err := gb.FeatureImportances()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, floats.Sum(imp), 1e-9)
	assert.Greater(t, imp[0], imp[1])

	proba, err := gb.PredictProba(mat.NewDense(2, 2, []float64{0.5, 0.5, 4.5, 0.5}))
	require.NoError(t, err)
	assert.Less(t, proba.At(0, 1), 0.5)
	assert.Greater(t, proba.At(1, 1), 0.5)
}

func TestGradientBoostingSingleRoundWeights(t *testing.T) {
	// one split, lambda 0: leaf weights are -G/H of each side
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	gb := ensemble.NewGradientBoostingClassifier(
		ensemble.WithGBNEstimators(1),
		ensemble.WithGBMaxDepth(1),
		ensemble.WithLambda(0),
		ensemble.WithMinChildWeight(0),
		ensemble.WithLearningRate(1),
	)
	require.NoError(t, gb.Fit(X, y))
	require.Len(t, gb.Trees, 1)
	nodes := gb.Trees[0].Nodes
	require.Len(t, nodes, 3)
	assert.Equal(t, 1.5, nodes[0].Threshold)
	// g = 0.5 for negatives, -0.5 for positives, h = 0.25
	assert.InDelta(t, -2.0, nodes[1].Weight, 1e-12)
	assert.InDelta(t, 2.0, nodes[2].Weight, 1e-12)
}

func TestEnsembleErrors(t *testing.T) {
	X, y := blobs(20)
	rf := ensemble.NewRandomForestClassifier()
	_, err := rf.Predict(X)
	assert.ErrorIs(t, err, lrErrors.ErrNotFitted)

	gb := ensemble.NewGradientBoostingClassifier()
	_, err = gb.FeatureImportances()
	assert.ErrorIs(t, err, lrErrors.ErrNotFitted)

	multi := mat.NewDense(3, 1, []float64{0, 1, 2})
	err = gb.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), multi)
	var ve *lrErrors.ValueError
	assert.True(t, lrErrors.As(err, &ve))

	require.NoError(t, gb.Fit(X, y))
	_, err = gb.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, lrErrors.ErrDimensionMismatch)
}

func TestEnsemblePersistence(t *testing.T) {
	X, y := blobs(60)
	for _, clf := range []model.Classifier{
		ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(5)),
		ensemble.NewGradientBoostingClassifier(ensemble.WithGBNEstimators(5)),
	} {
		require.NoError(t, clf.Fit(X, y))
		var buf bytes.Buffer
		require.NoError(t, model.SaveModelToWriter(clf, &buf))

		var loaded model.Classifier
		switch clf.(type) {
		case *ensemble.RandomForestClassifier:
			loaded = &ensemble.RandomForestClassifier{}
		default:
			loaded = &ensemble.GradientBoostingClassifier{}
		}
		require.NoError(t, model.LoadModelFromReader(loaded, &buf))

		a, err := clf.PredictProba(X)
		require.NoError(t, err)
		b, err := loaded.PredictProba(X)
		require.NoError(t, err)
		assert.True(t, mat.Equal(a, b))
	}
}

func BenchmarkEnsembleFit(b *testing.B) {
	X, y := blobs(2000)
	b.Run("RandomForest", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(20))
			if err := rf.Fit(X, y); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("GradientBoosting", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			gb := ensemble.NewGradientBoostingClassifier(ensemble.WithGBNEstimators(20))
			if err := gb.Fit(X, y); err != nil {
				b.Fatal(err)
			}
		}
	})
}

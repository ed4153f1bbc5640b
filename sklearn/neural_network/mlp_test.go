package neural_network

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

func blobs(n int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(3, 4))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		X.Set(i, 0, 2*label-1+0.3*rng.NormFloat64())
		X.Set(i, 1, 0.3*rng.NormFloat64())
		y.Set(i, 0, label)
	}
	return X, y
}

func meanLoss(m *MLPClassifier, X *mat.Dense, target []float64) float64 {
	acts := m.forward(X)
	out := acts[len(acts)-1]
	var loss float64
	for i, t := range target {
		p := out.At(i, 0)
		loss -= t*math.Log(p) + (1-t)*math.Log(1-p)
	}
	return loss / float64(len(target))
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	X, y := blobs(6)
	target := mat.Col(nil, 0, y)
	m := NewMLPClassifier(WithHiddenLayers(3, 2))
	m.initLayers(2, rand.New(rand.NewPCG(9, 9)))
	// keep every relu active so the loss is smooth at the probe points
	for k := range m.Layers {
		for j := range m.Layers[k].B {
			m.Layers[k].B[j] = 0.5
		}
	}

	gW, gB := m.backward(m.forward(X), target)
	const h = 1e-6
	for k := range m.Layers {
		for i := range m.Layers[k].W {
			w := m.Layers[k].W[i]
			m.Layers[k].W[i] = w + h
			up := meanLoss(m, X, target)
			m.Layers[k].W[i] = w - h
			down := meanLoss(m, X, target)
			m.Layers[k].W[i] = w
			assert.InDelta(t, (up-down)/(2*h), gW[k][i], 1e-5, "layer %d weight %d", k, i)
		}
		for j := range m.Layers[k].B {
			b := m.Layers[k].B[j]
			m.Layers[k].B[j] = b + h
			up := meanLoss(m, X, target)
			m.Layers[k].B[j] = b - h
			down := meanLoss(m, X, target)
			m.Layers[k].B[j] = b
			assert.InDelta(t, (up-down)/(2*h), gB[k][j], 1e-5, "layer %d bias %d", k, j)
		}
	}
}

func TestMLPLearnsBlobs(t *testing.T) {
	X, y := blobs(200)
	m := NewMLPClassifier(WithEpochs(50), WithMLPLearningRate(0.01))
	require.NoError(t, m.Fit(X, y))

	score, err := m.Score(X, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.95)
	require.Len(t, m.Loss, 50)
	assert.Less(t, m.Loss[49], m.Loss[0])

	require.Len(t, m.Layers, 3)
	assert.Equal(t, []int{2, 16}, []int{m.Layers[0].In, m.Layers[0].Out})
	assert.Equal(t, ActivationSigmoid, m.Layers[2].Activation)
}

func TestMLPDeterministicAndPersistent(t *testing.T) {
	X, y := blobs(64)
	a := NewMLPClassifier(WithEpochs(3))
	b := NewMLPClassifier(WithEpochs(3))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.Layers, b.Layers)

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(a, &buf))
	loaded := &MLPClassifier{}
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))
	pa, err := a.PredictProba(X)
	require.NoError(t, err)
	pl, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pl))
}

func TestClipGradientsCapsEachTensor(t *testing.T) {
	m := NewMLPClassifier(WithMaxGradNorm(1))
	gW := [][]float64{{3, 4}, {0.3, 0.4}}
	gB := [][]float64{{10}, {0}}
	assert.Equal(t, 2, m.clipGradients(gW, gB))
	assert.InDeltaSlice(t, []float64{0.6, 0.8}, gW[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0.3, 0.4}, gW[1], 1e-12)
	assert.InDeltaSlice(t, []float64{1}, gB[0], 1e-12)

	off := NewMLPClassifier(WithMaxGradNorm(0))
	big := [][]float64{{30, 40}}
	assert.Zero(t, off.clipGradients(big, [][]float64{{0}}))
	assert.Equal(t, []float64{30, 40}, big[0])
}

func TestMLPTrainsWithTightClipping(t *testing.T) {
	X, y := blobs(128)
	loose := NewMLPClassifier(WithEpochs(3), WithMaxGradNorm(0))
	tight := NewMLPClassifier(WithEpochs(3), WithMaxGradNorm(1e-6))
	require.NoError(t, loose.Fit(X, y))
	require.NoError(t, tight.Fit(X, y))
	assert.NotEqual(t, loose.Layers, tight.Layers)
	for _, l := range tight.Loss {
		assert.False(t, math.IsNaN(l))
	}
}

func TestMLPErrors(t *testing.T) {
	m := NewMLPClassifier()
	_, err := m.Predict(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, lrErrors.ErrNotFitted)

	bad := NewMLPClassifier(WithBatchSize(0))
	X, y := blobs(4)
	var ve *lrErrors.ValidationError
	assert.True(t, lrErrors.As(bad.Fit(X, y), &ve))

	negClip := NewMLPClassifier(WithMaxGradNorm(-1))
	assert.True(t, lrErrors.As(negClip.Fit(X, y), &ve))
}

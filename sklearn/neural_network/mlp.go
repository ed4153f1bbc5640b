// Package neural_network provides a small feed-forward binary classifier.
package neural_network

import (
	"encoding/gob"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
)

// Activations.
const (
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
)

func init() {
	gob.Register(&MLPClassifier{})
}

// Layer is a dense layer: out = act(in * W + B). W is stored row-major
// with In rows and Out columns.
type Layer struct {
	In, Out    int
	W          []float64
	B          []float64
	Activation string
}

func (l *Layer) weights() *mat.Dense { return mat.NewDense(l.In, l.Out, l.W) }

// MLPClassifier stacks ReLU hidden layers on a single sigmoid unit and is
// trained on binary cross entropy with Adam.
type MLPClassifier struct {
	model.BaseEstimator

	HiddenLayers []int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	RandomState  uint64
	// MaxGradNorm caps the L2 norm of each weight and bias gradient before
	// the Adam update. Zero disables clipping.
	MaxGradNorm float64

	Layers  []Layer
	Classes []float64
	Loss    []float64 // mean training loss per epoch
}

// MLPOption is a functional option for MLPClassifier.
type MLPOption func(*MLPClassifier)

// NewMLPClassifier builds a 16-8-1 network trained for 10 epochs with
// batches of 32 and Adam at 1e-3.
func NewMLPClassifier(opts ...MLPOption) *MLPClassifier {
	m := &MLPClassifier{
		HiddenLayers: []int{16, 8},
		Epochs:       10,
		BatchSize:    32,
		LearningRate: 1e-3,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		RandomState:  42,
		MaxGradNorm:  10,
	}
	m.ModelType = "MLPClassifier"
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithHiddenLayers sets the hidden layer widths.
func WithHiddenLayers(sizes ...int) MLPOption {
	return func(m *MLPClassifier) { m.HiddenLayers = sizes }
}

// WithEpochs sets the number of passes over the data.
func WithEpochs(n int) MLPOption {
	return func(m *MLPClassifier) { m.Epochs = n }
}

// WithBatchSize sets the mini-batch size.
func WithBatchSize(n int) MLPOption {
	return func(m *MLPClassifier) { m.BatchSize = n }
}

// WithMLPLearningRate sets the Adam step size.
func WithMLPLearningRate(lr float64) MLPOption {
	return func(m *MLPClassifier) { m.LearningRate = lr }
}

// WithMLPRandomState seeds initialisation and shuffling.
func WithMLPRandomState(seed uint64) MLPOption {
	return func(m *MLPClassifier) { m.RandomState = seed }
}

// WithMaxGradNorm sets the per-tensor gradient norm cap. Zero disables it.
func WithMaxGradNorm(maxNorm float64) MLPOption {
	return func(m *MLPClassifier) { m.MaxGradNorm = maxNorm }
}

// Name returns the display name.
func (m *MLPClassifier) Name() string { return "Neural Network" }

func (m *MLPClassifier) validate() error {
	for _, h := range m.HiddenLayers {
		if h < 1 {
			return lrErrors.NewValidationError("hidden_layers", "widths must be positive", m.HiddenLayers)
		}
	}
	if m.Epochs < 1 {
		return lrErrors.NewValidationError("epochs", "must be positive", m.Epochs)
	}
	if m.BatchSize < 1 {
		return lrErrors.NewValidationError("batch_size", "must be positive", m.BatchSize)
	}
	if m.LearningRate <= 0 {
		return lrErrors.NewValidationError("learning_rate", "must be positive", m.LearningRate)
	}
	if m.MaxGradNorm < 0 || math.IsNaN(m.MaxGradNorm) {
		return lrErrors.NewValidationError("max_grad_norm", "must be non-negative", m.MaxGradNorm)
	}
	return nil
}

// initLayers draws Glorot-uniform weights and zero biases.
func (m *MLPClassifier) initLayers(nFeatures int, rng *rand.Rand) {
	sizes := append([]int{nFeatures}, m.HiddenLayers...)
	sizes = append(sizes, 1)
	m.Layers = make([]Layer, len(sizes)-1)
	for k := range m.Layers {
		in, out := sizes[k], sizes[k+1]
		limit := math.Sqrt(6 / float64(in+out))
		w := make([]float64, in*out)
		for i := range w {
			w[i] = (2*rng.Float64() - 1) * limit
		}
		act := ActivationReLU
		if k == len(m.Layers)-1 {
			act = ActivationSigmoid
		}
		m.Layers[k] = Layer{In: in, Out: out, W: w, B: make([]float64, out), Activation: act}
	}
}

// forward returns the activations of every layer, input included.
func (m *MLPClassifier) forward(X mat.Matrix) []*mat.Dense {
	acts := make([]*mat.Dense, 0, len(m.Layers)+1)
	acts = append(acts, mat.DenseCopyOf(X))
	for k := range m.Layers {
		l := &m.Layers[k]
		var z mat.Dense
		z.Mul(acts[k], l.weights())
		z.Apply(func(_, j int, v float64) float64 {
			v += l.B[j]
			if l.Activation == ActivationSigmoid {
				return sigmoid(v)
			}
			return math.Max(0, v)
		}, &z)
		acts = append(acts, &z)
	}
	return acts
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1 + ez)
}

// adam keeps first and second moment estimates for every parameter.
type adam struct {
	lr, b1, b2, eps float64
	t               int
	mW, vW, mB, vB  [][]float64
}

func newAdam(m *MLPClassifier) *adam {
	a := &adam{lr: m.LearningRate, b1: m.Beta1, b2: m.Beta2, eps: m.Epsilon}
	for _, l := range m.Layers {
		a.mW = append(a.mW, make([]float64, len(l.W)))
		a.vW = append(a.vW, make([]float64, len(l.W)))
		a.mB = append(a.mB, make([]float64, len(l.B)))
		a.vB = append(a.vB, make([]float64, len(l.B)))
	}
	return a
}

func (a *adam) step(layers []Layer, gW, gB [][]float64) {
	a.t++
	lrT := a.lr * math.Sqrt(1-math.Pow(a.b2, float64(a.t))) / (1 - math.Pow(a.b1, float64(a.t)))
	update := func(p, g, m, v []float64) {
		for i := range p {
			m[i] = a.b1*m[i] + (1-a.b1)*g[i]
			v[i] = a.b2*v[i] + (1-a.b2)*g[i]*g[i]
			p[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.eps)
		}
	}
	for k := range layers {
		update(layers[k].W, gW[k], a.mW[k], a.vW[k])
		update(layers[k].B, gB[k], a.mB[k], a.vB[k])
	}
}

// backward returns the mean gradients of the cross entropy over the batch.
func (m *MLPClassifier) backward(acts []*mat.Dense, target []float64) (gW, gB [][]float64) {
	n := len(target)
	gW = make([][]float64, len(m.Layers))
	gB = make([][]float64, len(m.Layers))

	// sigmoid with cross entropy: dL/dz = p - y
	out := acts[len(acts)-1]
	delta := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		delta.Set(i, 0, (out.At(i, 0)-target[i])/float64(n))
	}
	for k := len(m.Layers) - 1; k >= 0; k-- {
		l := &m.Layers[k]
		var dw mat.Dense
		dw.Mul(acts[k].T(), delta)
		gW[k] = append([]float64(nil), dw.RawMatrix().Data...)
		gB[k] = make([]float64, l.Out)
		for j := 0; j < l.Out; j++ {
			gB[k][j] = mat.Sum(delta.ColView(j))
		}
		if k == 0 {
			break
		}
		var prev mat.Dense
		prev.Mul(delta, l.weights().T())
		in := acts[k]
		prev.Apply(func(i, j int, v float64) float64 {
			if in.At(i, j) <= 0 {
				return 0
			}
			return v
		}, &prev)
		delta = &prev
	}
	return gW, gB
}

// clipGradients applies MaxGradNorm to every tensor and returns how many
// were rescaled.
func (m *MLPClassifier) clipGradients(gW, gB [][]float64) int {
	var clipped int
	for k := range gW {
		if lrErrors.ClipGradient(gW[k], m.MaxGradNorm) {
			clipped++
		}
		if lrErrors.ClipGradient(gB[k], m.MaxGradNorm) {
			clipped++
		}
	}
	return clipped
}

// Fit trains the network with shuffled mini-batches. y must hold exactly
// two classes; the larger label is the positive class.
func (m *MLPClassifier) Fit(X, y mat.Matrix) (err error) {
	defer lrErrors.Recover(&err, "MLPClassifier.Fit")
	if err := m.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("MLPClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes := model.UniqueClasses(y)
	if len(classes) != 2 {
		return lrErrors.NewValueError("MLPClassifier.Fit", "exactly two classes are required")
	}

	logger := log.GetLoggerWithName("neural_network").With(log.ModelNameKey, "MLPClassifier")
	start := time.Now()
	logger.Info("training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"epochs", m.Epochs)

	xD := mat.DenseCopyOf(X)
	target := make([]float64, nSamples)
	for i := range target {
		if y.At(i, 0) == classes[1] {
			target[i] = 1
		}
	}

	rng := rand.New(rand.NewPCG(m.RandomState, m.RandomState+1))
	m.initLayers(nFeatures, rng)
	opt := newAdam(m)
	m.Loss = m.Loss[:0]

	perm := make([]int, nSamples)
	for i := range perm {
		perm[i] = i
	}
	for epoch := 0; epoch < m.Epochs; epoch++ {
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		var epochLoss float64
		var clipped int
		for lo := 0; lo < nSamples; lo += m.BatchSize {
			hi := min(lo+m.BatchSize, nSamples)
			batch := mat.NewDense(hi-lo, nFeatures, nil)
			bt := make([]float64, hi-lo)
			for r, i := range perm[lo:hi] {
				batch.SetRow(r, xD.RawRowView(i))
				bt[r] = target[i]
			}
			acts := m.forward(batch)
			out := acts[len(acts)-1]
			for r := range bt {
				p := math.Min(math.Max(out.At(r, 0), 1e-7), 1-1e-7)
				epochLoss -= bt[r]*math.Log(p) + (1-bt[r])*math.Log(1-p)
			}
			gW, gB := m.backward(acts, bt)
			clipped += m.clipGradients(gW, gB)
			opt.step(m.Layers, gW, gB)
		}
		epochLoss /= float64(nSamples)
		if err := lrErrors.CheckScalar("MLPClassifier.Fit", epochLoss, epoch); err != nil {
			return err
		}
		m.Loss = append(m.Loss, epochLoss)
		logger.Debug("epoch finished", log.IterationKey, epoch+1, "loss", epochLoss, "clipped", clipped)
	}

	m.Classes = classes
	m.SetDimensions(nSamples, nFeatures)
	m.SetFitted()
	logger.Info("training finished",
		"loss", m.Loss[len(m.Loss)-1],
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// PredictProba returns an n x 2 matrix of class probabilities.
func (m *MLPClassifier) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer lrErrors.Recover(&err, "MLPClassifier.PredictProba")
	if err := model.CheckPredict("PredictProba", "MLPClassifier", m, m.NFeatures, X); err != nil {
		return nil, err
	}
	acts := m.forward(X)
	out := acts[len(acts)-1]
	n, _ := out.Dims()
	proba := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p := out.At(i, 0)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict labels a row positive when its probability exceeds 0.5.
func (m *MLPClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaToLabels(proba, m.Classes), nil
}

// Score returns the mean accuracy on X and y.
func (m *MLPClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return model.Score(pred, y), nil
}

// Package ensemble provides tree ensembles: a bagged random forest and a
// second-order gradient boosting classifier.
package ensemble

import (
	"encoding/gob"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
	"github.com/kari1998/loan-default-prediction/sklearn/tree"
)

func init() {
	gob.Register(&RandomForestClassifier{})
}

// RandomForestClassifier averages the class probabilities of decision
// trees, each grown on a bootstrap sample with sqrt(features) candidates
// per split.
type RandomForestClassifier struct {
	model.BaseEstimator

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	RandomState     uint64
	NJobs           int // 0 means GOMAXPROCS

	Estimators  []*tree.DecisionTreeClassifier
	Classes     []float64
	Importances []float64
}

// RandomForestOption is a functional option for RandomForestClassifier.
type RandomForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest of 100 bootstrap trees seeded
// with 42.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     tree.MaxFeaturesSqrt,
		Bootstrap:       true,
		RandomState:     42,
	}
	rf.ModelType = "RandomForestClassifier"
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.NEstimators = n }
}

// WithRFMaxDepth limits the depth of every tree.
func WithRFMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.MaxDepth = depth }
}

// WithRFMaxFeatures sets the per-split feature sampling mode.
func WithRFMaxFeatures(mode string) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.MaxFeatures = mode }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(on bool) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.Bootstrap = on }
}

// WithRFRandomState sets the base seed. Tree i uses seed+i.
func WithRFRandomState(seed uint64) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.RandomState = seed }
}

// WithNJobs bounds the number of trees grown at once.
func WithNJobs(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.NJobs = n }
}

// Name returns the display name.
func (rf *RandomForestClassifier) Name() string { return "Random Forest" }

// Fit grows the trees concurrently. Each tree owns its seed, so the result
// does not depend on scheduling.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer lrErrors.Recover(&err, "RandomForestClassifier.Fit")
	if rf.NEstimators < 1 {
		return lrErrors.NewValidationError("n_estimators", "must be positive", rf.NEstimators)
	}
	nSamples, nFeatures, err := model.CheckXY("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "RandomForestClassifier")
	start := time.Now()
	logger.Info("training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"n_estimators", rf.NEstimators)

	xD := mat.DenseCopyOf(X)
	classes := model.UniqueClasses(y)
	trees := make([]*tree.DecisionTreeClassifier, rf.NEstimators)

	jobs := rf.NJobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(jobs)
	for i := range trees {
		g.Go(func() error {
			seed := rf.RandomState + uint64(i)
			dt := tree.NewDecisionTreeClassifier(
				tree.WithMaxDepth(rf.MaxDepth),
				tree.WithMinSamplesSplit(rf.MinSamplesSplit),
				tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
				tree.WithMaxFeatures(rf.MaxFeatures),
				tree.WithDTRandomState(seed),
			)
			sample := make([]int, nSamples)
			if rf.Bootstrap {
				rng := rand.New(rand.NewPCG(seed, ^seed))
				for k := range sample {
					sample[k] = rng.IntN(nSamples)
				}
			} else {
				for k := range sample {
					sample[k] = k
				}
			}
			if err := dt.FitSample(xD, y, classes, sample); err != nil {
				return lrErrors.Wrapf(err, "tree %d", i)
			}
			trees[i] = dt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	importances := make([]float64, nFeatures)
	for _, dt := range trees {
		for j, v := range dt.Importances {
			importances[j] += v
		}
	}
	for j := range importances {
		importances[j] /= float64(len(trees))
	}

	rf.Estimators = trees
	rf.Classes = classes
	rf.Importances = importances
	rf.SetDimensions(nSamples, nFeatures)
	rf.SetFitted()

	logger.Info("training finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// PredictProba returns the mean tree probability per class.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer lrErrors.Recover(&err, "RandomForestClassifier.PredictProba")
	if err := model.CheckPredict("PredictProba", "RandomForestClassifier", rf, rf.NFeatures, X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	sum := mat.NewDense(n, len(rf.Classes), nil)
	for _, dt := range rf.Estimators {
		p, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(rf.Estimators)), sum)
	log.GetLoggerWithName("ensemble").Debug("predicted",
		log.ModelNameKey, "RandomForestClassifier",
		log.OperationKey, log.OperationPredict,
		log.PredsKey, n)
	return sum, nil
}

// Predict returns the most probable class per row.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaToLabels(proba, rf.Classes), nil
}

// Score returns the mean accuracy on X and y.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return model.Score(pred, y), nil
}

// FeatureImportances returns the mean of the per-tree normalised
// impurity decreases.
func (rf *RandomForestClassifier) FeatureImportances() ([]float64, error) {
	if !rf.IsFitted() {
		return nil, lrErrors.NewNotFittedError("RandomForestClassifier", "FeatureImportances")
	}
	return append([]float64(nil), rf.Importances...), nil
}

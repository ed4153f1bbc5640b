// Package linear_model provides linear classifiers.
package linear_model

import (
	"encoding/gob"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
)

const (
	penaltyL2     = "l2"
	penaltyNone   = "none"
	epsilonSmall  = 1e-15
	binaryClasses = 2
)

func init() {
	gob.Register(&LogisticRegression{})
}

// LogisticRegression is a binary L2-regularised logistic regression fitted
// with L-BFGS. The objective is the mean log loss plus ||w||^2 / (2*C*n),
// the same optimum as the summed-loss formulation with penalty ||w||^2 / 2C.
type LogisticRegression struct {
	model.BaseEstimator

	Penalty      string
	C            float64
	FitIntercept bool
	MaxIter      int
	Tol          float64

	Coef      []float64
	Intercept float64
	Classes   []float64
	NIter     int
}

// LogisticRegressionOption is a functional option for LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a classifier with C=1, l2 penalty,
// intercept, 100 iterations and tolerance 1e-4.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		Penalty:      penaltyL2,
		C:            1.0,
		FitIntercept: true,
		MaxIter:      100,
		Tol:          1e-4,
	}
	lr.ModelType = "LogisticRegression"
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRC sets the inverse regularisation strength.
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

// WithLRPenalty sets the penalty, "l2" or "none".
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.Penalty = penalty }
}

// WithLRMaxIter sets the iteration limit.
func WithLRMaxIter(n int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.MaxIter = n }
}

// WithLRTol sets the gradient tolerance.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.Tol = tol }
}

// WithLogisticFitIntercept toggles the intercept.
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.FitIntercept = fit }
}

// Name returns the display name.
func (lr *LogisticRegression) Name() string { return "Logistic Regression" }

func stableSigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

func clampProbability(p float64) float64 {
	return math.Min(math.Max(p, epsilonSmall), 1-epsilonSmall)
}

func (lr *LogisticRegression) validate() error {
	if lr.Penalty != penaltyL2 && lr.Penalty != penaltyNone {
		return lrErrors.NewValidationError("penalty", "lbfgs supports only l2 or none", lr.Penalty)
	}
	if lr.Penalty == penaltyL2 && lr.C <= 0 {
		return lrErrors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.MaxIter <= 0 {
		return lrErrors.NewValidationError("max_iter", "must be positive", lr.MaxIter)
	}
	return nil
}

// Fit trains the model. y must hold exactly two classes; the larger label
// is the positive class.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer lrErrors.Recover(&err, "LogisticRegression.Fit")
	if err := lr.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	classes := model.UniqueClasses(y)
	if len(classes) != binaryClasses {
		return lrErrors.NewValueError("LogisticRegression.Fit", "exactly two classes are required")
	}

	logger := log.GetLoggerWithName("linear_model").With(log.ModelNameKey, "LogisticRegression")
	start := time.Now()
	logger.Info("training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures)

	target := make([]float64, nSamples)
	for i := range target {
		if y.At(i, 0) == classes[1] {
			target[i] = 1
		}
	}

	xD := mat.DenseCopyOf(X)
	lambda := 0.0
	if lr.Penalty == penaltyL2 {
		lambda = 1.0 / (lr.C * float64(nSamples))
	}
	dim := nFeatures
	if lr.FitIntercept {
		dim++
	}

	z := mat.NewVecDense(nSamples, nil)
	diff := mat.NewVecDense(nSamples, nil)
	gw := mat.NewVecDense(nFeatures, nil)
	invN := 1.0 / float64(nSamples)

	linear := func(theta []float64) {
		w := mat.NewVecDense(nFeatures, theta[:nFeatures])
		z.MulVec(xD, w)
		if lr.FitIntercept {
			b := theta[nFeatures]
			for i := 0; i < nSamples; i++ {
				z.SetVec(i, z.AtVec(i)+b)
			}
		}
	}

	prob := optimize.Problem{
		Func: func(theta []float64) float64 {
			linear(theta)
			var loss float64
			for i := 0; i < nSamples; i++ {
				p := clampProbability(stableSigmoid(z.AtVec(i)))
				loss -= target[i]*math.Log(p) + (1-target[i])*math.Log(1-p)
			}
			loss *= invN
			if lambda > 0 {
				w := theta[:nFeatures]
				loss += 0.5 * lambda * floats.Dot(w, w)
			}
			return loss
		},
		Grad: func(grad, theta []float64) {
			linear(theta)
			for i := 0; i < nSamples; i++ {
				diff.SetVec(i, stableSigmoid(z.AtVec(i))-target[i])
			}
			gw.MulVec(xD.T(), diff)
			for j := 0; j < nFeatures; j++ {
				grad[j] = gw.AtVec(j)*invN + lambda*theta[j]
			}
			if lr.FitIntercept {
				grad[nFeatures] = mat.Sum(diff) * invN
			}
		},
	}

	settings := optimize.Settings{
		GradientThreshold: lr.Tol * invN,
		MajorIterations:   lr.MaxIter,
	}
	result, err := optimize.Minimize(prob, make([]float64, dim), &settings, &optimize.LBFGS{})
	if result == nil {
		return lrErrors.NewModelError("LogisticRegression.Fit", "lbfgs optimization failed", err)
	}
	if err != nil || result.Status == optimize.IterationLimit {
		msg := result.Status.String()
		if err != nil {
			msg = err.Error()
		}
		lrErrors.Warn(lrErrors.NewConvergenceWarning("lbfgs", result.Stats.MajorIterations, msg))
		logger.Warn("optimizer stopped early", "status", msg)
	}
	if err := lrErrors.CheckScalar("LogisticRegression.Fit", result.F, result.Stats.MajorIterations); err != nil {
		return err
	}

	lr.Coef = append([]float64(nil), result.X[:nFeatures]...)
	lr.Intercept = 0
	if lr.FitIntercept {
		lr.Intercept = result.X[nFeatures]
	}
	lr.Classes = classes
	lr.NIter = result.Stats.MajorIterations
	lr.SetDimensions(nSamples, nFeatures)
	lr.SetFitted()

	logger.Info("training finished",
		"iterations", lr.NIter,
		"loss", result.F,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// DecisionFunction returns w·x + b per row.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer lrErrors.Recover(&err, "LogisticRegression.DecisionFunction")
	if err := model.CheckPredict("DecisionFunction", "LogisticRegression", lr, lr.NFeatures, X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	scores := mat.NewVecDense(n, nil)
	scores.MulVec(X, mat.NewVecDense(len(lr.Coef), lr.Coef))
	for i := 0; i < n; i++ {
		scores.SetVec(i, scores.AtVec(i)+lr.Intercept)
	}
	return scores, nil
}

// PredictProba returns an n x 2 matrix of class probabilities.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n := scores.Len()
	proba := mat.NewDense(n, binaryClasses, nil)
	for i := 0; i < n; i++ {
		p := stableSigmoid(scores.AtVec(i))
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	log.GetLoggerWithName("linear_model").Debug("predicted",
		log.ModelNameKey, "LogisticRegression",
		log.OperationKey, log.OperationPredict,
		log.PredsKey, n)
	return proba, nil
}

// Predict returns an n x 1 matrix of class labels.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaToLabels(proba, lr.Classes), nil
}

// Score returns the mean accuracy on X and y.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return model.Score(pred, y), nil
}

// Params exports the learned parameters for a model card.
func (lr *LogisticRegression) Params(features []string) (*model.LinearParams, error) {
	if !lr.IsFitted() {
		return nil, lrErrors.NewNotFittedError("LogisticRegression", "Params")
	}
	return &model.LinearParams{
		Features:     features,
		Coefficients: append([]float64(nil), lr.Coef...),
		Intercept:    lr.Intercept,
	}, nil
}

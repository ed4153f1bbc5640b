// Package pipeline chains feature transformers in front of a classifier so
// the pair is fitted, persisted and applied as one model.
package pipeline

import (
	"encoding/gob"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
)

func init() {
	gob.Register(&Pipeline{})
}

// Step is one named stage of a pipeline. Intermediate steps must be
// model.Transformer values; the last must be a model.Classifier. Concrete
// step types must be registered with gob for persistence.
type Step struct {
	Name      string
	Estimator any
}

// Pipeline fits each transformer on the output of the previous one, then
// fits the final classifier on the transformed features.
type Pipeline struct {
	model.BaseEstimator

	Steps []Step
}

// New creates a pipeline from the given steps.
func New(steps ...Step) *Pipeline {
	p := &Pipeline{Steps: steps}
	p.ModelType = "Pipeline"
	return p
}

// Make names the steps step1, step2, ... in order.
func Make(estimators ...any) *Pipeline {
	steps := make([]Step, len(estimators))
	for i, e := range estimators {
		steps[i] = Step{Name: fmt.Sprintf("step%d", i+1), Estimator: e}
	}
	return New(steps...)
}

func (p *Pipeline) validate() error {
	if len(p.Steps) == 0 {
		return lrErrors.NewValidationError("steps", "pipeline has no steps", 0)
	}
	for _, step := range p.Steps[:len(p.Steps)-1] {
		if _, ok := step.Estimator.(model.Transformer); !ok {
			return lrErrors.NewValidationError("pipeline step", "all intermediate steps must be transformers", step.Name)
		}
	}
	last := p.Steps[len(p.Steps)-1]
	if _, ok := last.Estimator.(model.Classifier); !ok {
		return lrErrors.NewValidationError("pipeline final step", "final step must be a classifier", last.Name)
	}
	return nil
}

// Name returns the display name of the final classifier.
func (p *Pipeline) Name() string {
	if len(p.Steps) == 0 {
		return "Pipeline"
	}
	if n, ok := p.Steps[len(p.Steps)-1].Estimator.(model.Named); ok {
		return n.Name()
	}
	return p.Steps[len(p.Steps)-1].Name
}

// String lists the step names, e.g. "Pipeline(scaler -> clf)".
func (p *Pipeline) String() string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return "Pipeline(" + strings.Join(names, " -> ") + ")"
}

// Fit fits every transformer in turn, then the final classifier.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	if err := p.validate(); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("pipeline")

	Xt := X
	for _, step := range p.Steps[:len(p.Steps)-1] {
		tr := step.Estimator.(model.Transformer)
		var err error
		Xt, err = tr.FitTransform(Xt)
		if err != nil {
			return lrErrors.Wrapf(err, "failed to fit step '%s'", step.Name)
		}
		logger.Debug("step fitted", "step", step.Name, log.OperationKey, log.OperationTransform)
	}

	last := p.Steps[len(p.Steps)-1]
	if err := last.Estimator.(model.Classifier).Fit(Xt, y); err != nil {
		return lrErrors.Wrapf(err, "failed to fit final step '%s'", last.Name)
	}
	r, c := X.Dims()
	p.SetDimensions(r, c)
	p.SetFitted()
	return nil
}

// transform applies all transformers except the final classifier.
func (p *Pipeline) transform(op string, X mat.Matrix) (mat.Matrix, model.Classifier, error) {
	if err := model.CheckPredict(op, "Pipeline", p, p.NFeatures, X); err != nil {
		return nil, nil, err
	}
	Xt := X
	for _, step := range p.Steps[:len(p.Steps)-1] {
		var err error
		Xt, err = step.Estimator.(model.Transformer).Transform(Xt)
		if err != nil {
			return nil, nil, lrErrors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}
	return Xt, p.Steps[len(p.Steps)-1].Estimator.(model.Classifier), nil
}

// Predict transforms X and predicts with the final classifier.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xt, clf, err := p.transform("Predict", X)
	if err != nil {
		return nil, err
	}
	return clf.Predict(Xt)
}

// PredictProba transforms X and returns the final classifier's
// probabilities.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	Xt, clf, err := p.transform("PredictProba", X)
	if err != nil {
		return nil, err
	}
	return clf.PredictProba(Xt)
}

// Score returns the accuracy of the pipeline on X and y.
func (p *Pipeline) Score(X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return model.Score(pred, y), nil
}

// Final returns the last step's estimator.
func (p *Pipeline) Final() any {
	if len(p.Steps) == 0 {
		return nil
	}
	return p.Steps[len(p.Steps)-1].Estimator
}

// Named looks up a step by name.
func (p *Pipeline) Named(name string) (any, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s.Estimator, true
		}
	}
	return nil, false
}

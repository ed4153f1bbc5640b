// Package model holds the abstractions shared by every estimator in the
// pipeline: fitted-state tracking, the Classifier and Transformer contracts,
// gob persistence and JSON model cards.
//
// Estimators embed BaseEstimator and mark themselves fitted at the end of a
// successful Fit:
//
//	type MyModel struct {
//		model.BaseEstimator
//	}
//
//	func (m *MyModel) Fit(X, y mat.Matrix) error {
//		// training logic
//		m.SetFitted()
//		return nil
//	}
package model

// EstimatorState represents the learning state of a model.
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained.
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained.
	Fitted
)

// BaseEstimator tracks the fitted state and dimensions of an estimator.
// Fields are exported so gob can persist them.
type BaseEstimator struct {
	State     EstimatorState
	ModelType string
	NFeatures int
	NSamples  int
}

// IsFitted reports whether Fit has completed successfully.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as trained. Called by implementations only.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// SetDimensions records the training shape.
func (e *BaseEstimator) SetDimensions(nSamples, nFeatures int) {
	e.NSamples = nSamples
	e.NFeatures = nFeatures
}

// Reset returns the estimator to its untrained state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
	e.NSamples = 0
	e.NFeatures = 0
}

package model

import "gonum.org/v1/gonum/mat"

// Fitter is anything that can report whether it has been trained.
type Fitter interface {
	IsFitted() bool
}

// Classifier is a binary or multiclass classifier. y is an n x 1 column of
// integer class labels stored as float64.
type Classifier interface {
	Fitter
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Transformer maps a feature matrix to another feature matrix.
type Transformer interface {
	Fitter
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// FeatureImportancer exposes per-feature importances summing to one.
type FeatureImportancer interface {
	FeatureImportances() ([]float64, error)
}

// Named estimators report a display name used in logs and reports.
type Named interface {
	Name() string
}

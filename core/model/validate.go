package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// CheckXY validates a training pair: X non-empty, y an n x 1 column with
// the same number of rows.
func CheckXY(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, lrErrors.NewModelError(op, "empty data", lrErrors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return 0, 0, lrErrors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, lrErrors.NewDimensionError(op, 1, yCols, 1)
	}
	return nSamples, nFeatures, nil
}

// CheckPredict validates X against a fitted estimator's feature count.
func CheckPredict(op, modelName string, e Fitter, nFeatures int, X mat.Matrix) error {
	if !e.IsFitted() {
		return lrErrors.NewNotFittedError(modelName, op)
	}
	_, c := X.Dims()
	if c != nFeatures {
		return lrErrors.NewDimensionError(modelName+"."+op, nFeatures, c, 1)
	}
	return nil
}

// UniqueClasses returns the sorted distinct values of column 0 of y.
func UniqueClasses(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	set := make(map[float64]struct{})
	for i := 0; i < r; i++ {
		set[y.At(i, 0)] = struct{}{}
	}
	classes := make([]float64, 0, len(set))
	for c := range set {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	return classes
}

// ProbaToLabels picks, per row of proba, the class with the highest
// probability. Ties go to the lower class.
func ProbaToLabels(proba mat.Matrix, classes []float64) *mat.Dense {
	r, c := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, classes[best])
	}
	return out
}

// Score returns the accuracy of predictions against y.
func Score(pred, y mat.Matrix) float64 {
	r, _ := y.Dims()
	if r == 0 {
		return 0
	}
	var hit float64
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			hit++
		}
	}
	return hit / float64(r)
}

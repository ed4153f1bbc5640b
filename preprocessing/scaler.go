// Package preprocessing provides the feature transformers used by the loan
// pipeline: scalers, a one-hot encoder, an interval binner and polynomial
// interaction terms.
//
// Matrix transformers follow the Fit / Transform / FitTransform pattern and
// embed model.BaseEstimator for fitted-state tracking:
//
//	scaler := preprocessing.NewMinMaxScaler([2]float64{0, 1})
//	scaled, err := scaler.FitTransform(X)
package preprocessing

import (
	"encoding/gob"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

func init() {
	gob.Register(&StandardScaler{})
	gob.Register(&MinMaxScaler{})
}

// StandardScaler centres each feature and divides by its population
// standard deviation. Constant features get a scale of 1.
type StandardScaler struct {
	model.BaseEstimator

	Mean  []float64
	Scale []float64

	WithMean bool
	WithStd  bool
}

// NewStandardScaler creates a scaler; withMean and withStd toggle centring
// and scaling.
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{WithMean: withMean, WithStd: withStd}
}

// NewStandardScalerDefault centres and scales.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit learns per-feature mean and scale.
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer lrErrors.Recover(&err, "StandardScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return lrErrors.NewModelError("StandardScaler.Fit", "empty data", lrErrors.ErrEmptyData)
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		mean := sum / float64(r)

		var sq float64
		for i := 0; i < r; i++ {
			d := X.At(i, j) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(r))
		if std < 1e-12 {
			std = 1
		}

		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1
		if s.WithStd {
			s.Scale[j] = std
		}
	}

	s.SetDimensions(r, c)
	s.SetFitted()
	return nil
}

// Transform applies (x - mean) / scale.
func (s *StandardScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer lrErrors.Recover(&err, "StandardScaler.Transform")
	if !s.IsFitted() {
		return nil, lrErrors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, lrErrors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return out, nil
}

// FitTransform fits on X and transforms it.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps scaled data back to the original units.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer lrErrors.Recover(&err, "StandardScaler.InverseTransform")
	if !s.IsFitted() {
		return nil, lrErrors.NewNotFittedError("StandardScaler", "InverseTransform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, lrErrors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return out, nil
}

// MinMaxScaler maps each feature linearly onto FeatureRange.
type MinMaxScaler struct {
	model.BaseEstimator

	DataMin      []float64
	DataMax      []float64
	FeatureRange [2]float64
}

// NewMinMaxScaler creates a scaler for the given output range.
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: featureRange}
}

// NewMinMaxScalerDefault scales onto [0, 1].
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0, 1})
}

// Fit learns per-feature minimum and maximum.
func (s *MinMaxScaler) Fit(X mat.Matrix) (err error) {
	defer lrErrors.Recover(&err, "MinMaxScaler.Fit")
	if s.FeatureRange[0] >= s.FeatureRange[1] {
		return lrErrors.NewValidationError("feature_range", "minimum must be below maximum", s.FeatureRange)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return lrErrors.NewModelError("MinMaxScaler.Fit", "empty data", lrErrors.ErrEmptyData)
	}

	s.DataMin = make([]float64, c)
	s.DataMax = make([]float64, c)
	for j := 0; j < c; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		s.DataMin[j], s.DataMax[j] = lo, hi
	}

	s.SetDimensions(r, c)
	s.SetFitted()
	return nil
}

// Transform scales X. Constant features map to the lower bound.
func (s *MinMaxScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer lrErrors.Recover(&err, "MinMaxScaler.Transform")
	if !s.IsFitted() {
		return nil, lrErrors.NewNotFittedError("MinMaxScaler", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, lrErrors.NewDimensionError("MinMaxScaler.Transform", s.NFeatures, c, 1)
	}
	lo, span := s.FeatureRange[0], s.FeatureRange[1]-s.FeatureRange[0]
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		width := s.DataMax[j] - s.DataMin[j]
		if width == 0 {
			return lo
		}
		return lo + (v-s.DataMin[j])/width*span
	}, X)
	return out, nil
}

// FitTransform fits on X and transforms it.
func (s *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps scaled data back to the original units.
func (s *MinMaxScaler) InverseTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer lrErrors.Recover(&err, "MinMaxScaler.InverseTransform")
	if !s.IsFitted() {
		return nil, lrErrors.NewNotFittedError("MinMaxScaler", "InverseTransform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, lrErrors.NewDimensionError("MinMaxScaler.InverseTransform", s.NFeatures, c, 1)
	}
	lo, span := s.FeatureRange[0], s.FeatureRange[1]-s.FeatureRange[0]
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return s.DataMin[j] + (v-lo)/span*(s.DataMax[j]-s.DataMin[j])
	}, X)
	return out, nil
}

package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// PolynomialFeatures expands features with their degree-2 terms. With
// InteractionOnly only products of distinct features are added. Output
// order is bias (optional), the inputs, then the products in
// lexicographic order of feature pairs.
type PolynomialFeatures struct {
	model.BaseEstimator

	InteractionOnly bool
	IncludeBias     bool
}

// NewPolynomialFeatures creates a degree-2 expander.
func NewPolynomialFeatures(interactionOnly, includeBias bool) *PolynomialFeatures {
	return &PolynomialFeatures{InteractionOnly: interactionOnly, IncludeBias: includeBias}
}

func (p *PolynomialFeatures) pairs() [][2]int {
	var out [][2]int
	for a := 0; a < p.NFeatures; a++ {
		start := a
		if p.InteractionOnly {
			start = a + 1
		}
		for b := start; b < p.NFeatures; b++ {
			out = append(out, [2]int{a, b})
		}
	}
	return out
}

// Fit records the number of input features.
func (p *PolynomialFeatures) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return lrErrors.NewModelError("PolynomialFeatures.Fit", "empty data", lrErrors.ErrEmptyData)
	}
	p.SetDimensions(r, c)
	p.SetFitted()
	return nil
}

// NOutputs returns the number of generated columns.
func (p *PolynomialFeatures) NOutputs() int {
	n := p.NFeatures + len(p.pairs())
	if p.IncludeBias {
		n++
	}
	return n
}

// Transform builds the expanded matrix.
func (p *PolynomialFeatures) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer lrErrors.Recover(&err, "PolynomialFeatures.Transform")
	if !p.IsFitted() {
		return nil, lrErrors.NewNotFittedError("PolynomialFeatures", "Transform")
	}
	r, c := X.Dims()
	if c != p.NFeatures {
		return nil, lrErrors.NewDimensionError("PolynomialFeatures.Transform", p.NFeatures, c, 1)
	}
	pairs := p.pairs()
	out := mat.NewDense(r, p.NOutputs(), nil)
	for i := 0; i < r; i++ {
		k := 0
		if p.IncludeBias {
			out.Set(i, 0, 1)
			k++
		}
		for j := 0; j < c; j++ {
			out.Set(i, k, X.At(i, j))
			k++
		}
		for _, pr := range pairs {
			out.Set(i, k, X.At(i, pr[0])*X.At(i, pr[1]))
			k++
		}
	}
	return out, nil
}

// FitTransform fits on X and expands it.
func (p *PolynomialFeatures) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// FeatureNamesOut names the output columns, joining products with "*" for
// interactions and "^2" for squares.
func (p *PolynomialFeatures) FeatureNamesOut(input []string) []string {
	if !p.IsFitted() || len(input) != p.NFeatures {
		return nil
	}
	var names []string
	if p.IncludeBias {
		names = append(names, "1")
	}
	names = append(names, input...)
	for _, pr := range p.pairs() {
		if pr[0] == pr[1] {
			names = append(names, input[pr[0]]+"^2")
			continue
		}
		names = append(names, input[pr[0]]+"*"+input[pr[1]])
	}
	return names
}

package preprocessing

import (
	"fmt"
	"math"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// Binner assigns values to labelled, left-closed intervals
// [Edges[i], Edges[i+1]). Values outside every interval, and NaN, get the
// empty label.
type Binner struct {
	Edges  []float64
	Labels []string
}

// NewBinner validates edges and labels. Edges must be strictly increasing
// and there must be one label per interval. math.Inf(1) is a valid edge.
func NewBinner(edges []float64, labels []string) (*Binner, error) {
	if len(edges) < 2 {
		return nil, lrErrors.NewValidationError("edges", "need at least two edges", edges)
	}
	if len(labels) != len(edges)-1 {
		return nil, lrErrors.NewDimensionError("NewBinner", len(edges)-1, len(labels), 0)
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, lrErrors.NewValidationError("edges",
				fmt.Sprintf("not strictly increasing at position %d", i), edges)
		}
	}
	return &Binner{Edges: edges, Labels: labels}, nil
}

// Bin returns the label for v.
func (b *Binner) Bin(v float64) string {
	if math.IsNaN(v) || v < b.Edges[0] {
		return ""
	}
	for i := 0; i+1 < len(b.Edges); i++ {
		if v < b.Edges[i+1] {
			return b.Labels[i]
		}
	}
	return ""
}

// Transform bins every value.
func (b *Binner) Transform(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = b.Bin(v)
	}
	return out
}

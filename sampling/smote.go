// Package sampling rebalances skewed class distributions.
package sampling

import (
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
)

// ClassCount is the number and share of samples carrying one label.
type ClassCount struct {
	Label   float64
	Count   int
	Percent float64
}

// ClassDistribution counts the labels in column 0 of y, sorted by label.
func ClassDistribution(y mat.Matrix) []ClassCount {
	n, _ := y.Dims()
	counts := make(map[float64]int)
	for i := 0; i < n; i++ {
		counts[y.At(i, 0)]++
	}
	out := make([]ClassCount, 0, len(counts))
	for label, c := range counts {
		out = append(out, ClassCount{Label: label, Count: c, Percent: 100 * float64(c) / float64(n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// SMOTE oversamples every minority class up to the majority count by
// interpolating between a sample and one of its nearest same-class
// neighbours.
type SMOTE struct {
	KNeighbors int
	Seed       uint64
}

// NewSMOTE returns SMOTE with five neighbours and seed 42.
func NewSMOTE() *SMOTE {
	return &SMOTE{KNeighbors: 5, Seed: 42}
}

// FitResample returns X and y extended with synthetic rows. The original
// rows come first, in their original order.
func (s *SMOTE) FitResample(X, y mat.Matrix) (_ *mat.Dense, _ *mat.Dense, err error) {
	defer lrErrors.Recover(&err, "SMOTE.FitResample")
	if s.KNeighbors < 1 {
		return nil, nil, lrErrors.NewValidationError("k_neighbors", "must be positive", s.KNeighbors)
	}
	nSamples, nFeatures, err := model.CheckXY("SMOTE.FitResample", X, y)
	if err != nil {
		return nil, nil, err
	}

	logger := log.GetLoggerWithName("sampling").With(log.ModelNameKey, "SMOTE")
	start := time.Now()

	rows := make([][]float64, nSamples)
	byClass := make(map[float64][]int)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
		label := y.At(i, 0)
		byClass[label] = append(byClass[label], i)
	}

	majority := 0
	for _, idx := range byClass {
		majority = max(majority, len(idx))
	}

	dist := ClassDistribution(y)
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
	var synthX [][]float64
	var synthY []float64
	for _, cc := range dist {
		idx := byClass[cc.Label]
		need := majority - len(idx)
		if need == 0 {
			continue
		}
		if len(idx) <= s.KNeighbors {
			return nil, nil, lrErrors.NewValueError("SMOTE.FitResample",
				"minority class needs more samples than k_neighbors")
		}
		neighbours := nearest(rows, idx, s.KNeighbors)
		for k := 0; k < need; k++ {
			a := rng.IntN(len(idx))
			nn := neighbours[a][rng.IntN(s.KNeighbors)]
			gap := rng.Float64()
			base, other := rows[idx[a]], rows[nn]
			row := make([]float64, nFeatures)
			for j := range row {
				row[j] = base[j] + gap*(other[j]-base[j])
			}
			synthX = append(synthX, row)
			synthY = append(synthY, cc.Label)
		}
	}

	total := nSamples + len(synthX)
	outX := mat.NewDense(total, nFeatures, nil)
	outY := mat.NewDense(total, 1, nil)
	for i, r := range rows {
		outX.SetRow(i, r)
		outY.Set(i, 0, y.At(i, 0))
	}
	for k, r := range synthX {
		outX.SetRow(nSamples+k, r)
		outY.Set(nSamples+k, 0, synthY[k])
	}

	logger.Info("resampled",
		log.OperationKey, log.OperationResample,
		log.SamplesKey, nSamples,
		"synthetic", len(synthX),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return outX, outY, nil
}

// nearest returns, for each position in idx, the row indices of its k
// nearest neighbours among idx by Euclidean distance, excluding itself.
func nearest(rows [][]float64, idx []int, k int) [][]int {
	type cand struct {
		row  int
		dist float64
	}
	out := make([][]int, len(idx))
	cands := make([]cand, 0, len(idx)-1)
	for a, i := range idx {
		cands = cands[:0]
		for _, j := range idx {
			if j == i {
				continue
			}
			cands = append(cands, cand{row: j, dist: floats.Distance(rows[i], rows[j], 2)})
		}
		sort.SliceStable(cands, func(p, q int) bool { return cands[p].dist < cands[q].dist })
		nn := make([]int, k)
		for m := range nn {
			nn[m] = cands[m].row
		}
		out[a] = nn
	}
	return out
}

// Package tree provides a CART decision tree classifier.
package tree

import (
	"encoding/gob"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// Split criteria and feature sampling modes.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"

	MaxFeaturesAll  = "all"
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
)

const leaf = -1

func init() {
	gob.Register(&DecisionTreeClassifier{})
}

// Node is one node of a fitted tree. Leaves have Left == Right == -1.
// Samples with X[Feature] <= Threshold go left.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Impurity  float64
	NSamples  int
	Value     []float64 // class probabilities
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.Left == leaf }

// DecisionTreeClassifier grows a binary tree by greedy impurity reduction.
type DecisionTreeClassifier struct {
	model.BaseEstimator

	Criterion       string
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	RandomState     uint64

	Nodes       []Node
	Classes     []float64
	Importances []float64
}

// DecisionTreeClassifierOption is a functional option.
type DecisionTreeClassifierOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a gini tree with unlimited depth that
// considers every feature at each split.
func NewDecisionTreeClassifier(opts ...DecisionTreeClassifierOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		Criterion:       CriterionGini,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     MaxFeaturesAll,
	}
	dt.ModelType = "DecisionTreeClassifier"
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the split criterion.
func WithCriterion(criterion string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) { dt.Criterion = criterion }
}

// WithMaxDepth limits tree depth. Zero means unlimited.
func WithMaxDepth(depth int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) { dt.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) { dt.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples per leaf.
func WithMinSamplesLeaf(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) { dt.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many features each split considers.
func WithMaxFeatures(mode string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) { dt.MaxFeatures = mode }
}

// WithDTRandomState seeds feature sampling.
func WithDTRandomState(seed uint64) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) { dt.RandomState = seed }
}

// Name returns the display name.
func (dt *DecisionTreeClassifier) Name() string { return "Decision Tree" }

func (dt *DecisionTreeClassifier) validate() error {
	if dt.Criterion != CriterionGini && dt.Criterion != CriterionEntropy {
		return lrErrors.NewValidationError("criterion", "must be gini or entropy", dt.Criterion)
	}
	switch dt.MaxFeatures {
	case MaxFeaturesAll, MaxFeaturesSqrt, MaxFeaturesLog2:
	default:
		return lrErrors.NewValidationError("max_features", "must be all, sqrt or log2", dt.MaxFeatures)
	}
	if dt.MinSamplesSplit < 2 {
		return lrErrors.NewValidationError("min_samples_split", "must be at least 2", dt.MinSamplesSplit)
	}
	if dt.MinSamplesLeaf < 1 {
		return lrErrors.NewValidationError("min_samples_leaf", "must be at least 1", dt.MinSamplesLeaf)
	}
	return nil
}

func (dt *DecisionTreeClassifier) featuresPerSplit(nFeatures int) int {
	var k int
	switch dt.MaxFeatures {
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	return max(1, min(k, nFeatures))
}

// Fit grows the tree on every row of X.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer lrErrors.Recover(&err, "DecisionTreeClassifier.Fit")
	n, _, err := model.CheckXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	sample := make([]int, n)
	for i := range sample {
		sample[i] = i
	}
	return dt.FitSample(mat.DenseCopyOf(X), y, model.UniqueClasses(y), sample)
}

// FitSample grows the tree on the rows listed in sample, which may repeat
// (bootstrap). classes fixes the label order of Value so trees fitted on
// different samples agree.
func (dt *DecisionTreeClassifier) FitSample(X *mat.Dense, y mat.Matrix, classes []float64, sample []int) (err error) {
	defer lrErrors.Recover(&err, "DecisionTreeClassifier.FitSample")
	if err := dt.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("DecisionTreeClassifier.FitSample", X, y)
	if err != nil {
		return err
	}
	if len(sample) == 0 {
		return lrErrors.NewModelError("DecisionTreeClassifier.FitSample", "empty sample", lrErrors.ErrEmptyData)
	}

	classIdx := make(map[float64]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	labels := make([]int, nSamples)
	for i := range labels {
		k, ok := classIdx[y.At(i, 0)]
		if !ok {
			return lrErrors.NewValueError("DecisionTreeClassifier.FitSample", "label missing from classes")
		}
		labels[i] = k
	}

	b := &builder{
		dt:        dt,
		raw:       X.RawMatrix(),
		labels:    labels,
		nClasses:  len(classes),
		nFeatures: nFeatures,
		maxFeat:   dt.featuresPerSplit(nFeatures),
		rng:       rand.New(rand.NewPCG(dt.RandomState, dt.RandomState+1)),
		total:     float64(len(sample)),
		imp:       make([]float64, nFeatures),
	}
	dt.Nodes = dt.Nodes[:0]
	idx := append([]int(nil), sample...)
	b.grow(idx, 0)

	var sum float64
	for _, v := range b.imp {
		sum += v
	}
	if sum > 0 {
		for j := range b.imp {
			b.imp[j] /= sum
		}
	}
	dt.Importances = b.imp
	dt.Classes = append([]float64(nil), classes...)
	dt.SetDimensions(len(sample), nFeatures)
	dt.SetFitted()
	return nil
}

type builder struct {
	dt        *DecisionTreeClassifier
	raw       blas64.General
	labels    []int
	nClasses  int
	nFeatures int
	maxFeat   int
	rng       *rand.Rand
	total     float64
	imp       []float64
}

func (b *builder) at(i, j int) float64 { return b.raw.Data[i*b.raw.Stride+j] }

func (b *builder) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	var v float64
	if b.dt.Criterion == CriterionEntropy {
		for _, c := range counts {
			if c > 0 {
				p := c / n
				v -= p * math.Log2(p)
			}
		}
		return v
	}
	for _, c := range counts {
		p := c / n
		v += p * p
	}
	return 1 - v
}

// grow appends the subtree for idx and returns its node index.
func (b *builder) grow(idx []int, depth int) int {
	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[b.labels[i]]++
	}
	n := float64(len(idx))
	value := make([]float64, b.nClasses)
	for k, c := range counts {
		value[k] = c / n
	}
	impurity := b.impurity(counts, n)

	self := len(b.dt.Nodes)
	b.dt.Nodes = append(b.dt.Nodes, Node{
		Feature: -1, Left: leaf, Right: leaf,
		Impurity: impurity, NSamples: len(idx), Value: value,
	})

	if impurity <= 1e-12 ||
		len(idx) < b.dt.MinSamplesSplit ||
		len(idx) < 2*b.dt.MinSamplesLeaf ||
		(b.dt.MaxDepth > 0 && depth >= b.dt.MaxDepth) {
		return self
	}

	feature, threshold, childImp, ok := b.bestSplit(idx, counts)
	if !ok {
		return self
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.at(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.imp[feature] += (n*impurity - childImp) / b.total

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	node := &b.dt.Nodes[self]
	node.Feature = feature
	node.Threshold = threshold
	node.Left = l
	node.Right = r
	return self
}

// bestSplit scans features in random order, evaluating at least maxFeat
// non-constant ones, and returns the split minimising the weighted child
// impurity n_l*imp_l + n_r*imp_r.
func (b *builder) bestSplit(idx []int, counts []float64) (int, float64, float64, bool) {
	n := float64(len(idx))
	minLeaf := b.dt.MinSamplesLeaf
	best := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	order := b.rng.Perm(b.nFeatures)
	sorted := append([]int(nil), idx...)
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	visited := 0
	for _, f := range order {
		if visited >= b.maxFeat && bestFeature >= 0 {
			break
		}
		sort.Slice(sorted, func(a, c int) bool { return b.at(sorted[a], f) < b.at(sorted[c], f) })
		lo, hi := b.at(sorted[0], f), b.at(sorted[len(sorted)-1], f)
		if hi-lo <= 1e-12 {
			continue
		}
		visited++

		clear(left)
		copy(right, counts)
		for k := 0; k < len(sorted)-1; k++ {
			c := b.labels[sorted[k]]
			left[c]++
			right[c]--
			nl := float64(k + 1)
			if k+1 < minLeaf || len(sorted)-k-1 < minLeaf {
				continue
			}
			v, next := b.at(sorted[k], f), b.at(sorted[k+1], f)
			if next-v <= 1e-12 {
				continue
			}
			nr := n - nl
			score := nl*b.impurity(left, nl) + nr*b.impurity(right, nr)
			if score < best-1e-12 {
				best = score
				bestFeature = f
				bestThreshold = v + (next-v)/2
			}
		}
	}
	return bestFeature, bestThreshold, best, bestFeature >= 0
}

func (dt *DecisionTreeClassifier) leafFor(row []float64) *Node {
	k := 0
	for !dt.Nodes[k].IsLeaf() {
		nd := &dt.Nodes[k]
		if row[nd.Feature] <= nd.Threshold {
			k = nd.Left
		} else {
			k = nd.Right
		}
	}
	return &dt.Nodes[k]
}

// PredictProba returns per-class probabilities, one column per entry of
// Classes.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer lrErrors.Recover(&err, "DecisionTreeClassifier.PredictProba")
	if err := model.CheckPredict("PredictProba", "DecisionTreeClassifier", dt, dt.NFeatures, X); err != nil {
		return nil, err
	}
	n, c := X.Dims()
	proba := mat.NewDense(n, len(dt.Classes), nil)
	row := make([]float64, c)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		proba.SetRow(i, dt.leafFor(row).Value)
	}
	return proba, nil
}

// Predict returns the most probable class per row.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaToLabels(proba, dt.Classes), nil
}

// Score returns the mean accuracy on X and y.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	return model.Score(pred, y), nil
}

// FeatureImportances returns the normalised total impurity decrease per
// feature.
func (dt *DecisionTreeClassifier) FeatureImportances() ([]float64, error) {
	if !dt.IsFitted() {
		return nil, lrErrors.NewNotFittedError("DecisionTreeClassifier", "FeatureImportances")
	}
	return append([]float64(nil), dt.Importances...), nil
}

// Depth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) Depth() int {
	var walk func(k int) int
	walk = func(k int) int {
		if k < 0 || k >= len(dt.Nodes) || dt.Nodes[k].IsLeaf() {
			return 0
		}
		return 1 + max(walk(dt.Nodes[k].Left), walk(dt.Nodes[k].Right))
	}
	return walk(0)
}

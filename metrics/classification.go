// Package metrics scores classifier output: accuracy, precision, recall,
// F1, ROC curves and AUC, confusion matrices and text reports.
//
// Labels and predictions are *mat.VecDense holding integer class labels as
// float64. The positive class of binary metrics is 1.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// PositiveLabel is the class scored by Precision, Recall and F1.
const PositiveLabel = 1.0

func validatePair(op string, yTrue, yPred *mat.VecDense) error {
	if yTrue == nil || yPred == nil {
		return lrErrors.NewValueError(op, "input vectors cannot be nil")
	}
	if yTrue.Len() == 0 {
		return lrErrors.NewValueError(op, "input vectors cannot be empty")
	}
	if yTrue.Len() != yPred.Len() {
		return lrErrors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return nil
}

// Column copies column j of m into a vector.
func Column(m mat.Matrix, j int) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, j))
	}
	return v
}

// Accuracy is the fraction of exact label matches.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := validatePair("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	var hit float64
	for i := 0; i < yTrue.Len(); i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			hit++
		}
	}
	return hit / float64(yTrue.Len()), nil
}

type binaryCounts struct {
	tp, fp, fn, tn float64
}

func countBinary(yTrue, yPred *mat.VecDense, pos float64) binaryCounts {
	var c binaryCounts
	for i := 0; i < yTrue.Len(); i++ {
		t, p := yTrue.AtVec(i) == pos, yPred.AtVec(i) == pos
		switch {
		case t && p:
			c.tp++
		case !t && p:
			c.fp++
		case t && !p:
			c.fn++
		default:
			c.tn++
		}
	}
	return c
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func precisionFor(c binaryCounts) float64 { return safeDiv(c.tp, c.tp+c.fp) }
func recallFor(c binaryCounts) float64    { return safeDiv(c.tp, c.tp+c.fn) }
func f1For(c binaryCounts) float64        { return safeDiv(2*c.tp, 2*c.tp+c.fp+c.fn) }

// Precision is TP / (TP + FP) for the positive class. It is 0 when nothing
// is predicted positive.
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := validatePair("Precision", yTrue, yPred); err != nil {
		return 0, err
	}
	return precisionFor(countBinary(yTrue, yPred, PositiveLabel)), nil
}

// Recall is TP / (TP + FN) for the positive class. It is 0 when there are no
// positives.
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := validatePair("Recall", yTrue, yPred); err != nil {
		return 0, err
	}
	return recallFor(countBinary(yTrue, yPred, PositiveLabel)), nil
}

// F1 is the harmonic mean of precision and recall for the positive class.
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := validatePair("F1", yTrue, yPred); err != nil {
		return 0, err
	}
	return f1For(countBinary(yTrue, yPred, PositiveLabel)), nil
}

// ConfusionMatrix counts (true, predicted) pairs. Rows are true labels and
// columns predicted labels, both in the sorted order of the returned labels.
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (*mat.Dense, []float64, error) {
	if err := validatePair("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, nil, err
	}
	labels := uniqueLabels(yTrue, yPred)
	pos := make(map[float64]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < yTrue.Len(); i++ {
		r, c := pos[yTrue.AtVec(i)], pos[yPred.AtVec(i)]
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, labels, nil
}

func uniqueLabels(vs ...*mat.VecDense) []float64 {
	set := make(map[float64]struct{})
	for _, v := range vs {
		for i := 0; i < v.Len(); i++ {
			set[v.AtVec(i)] = struct{}{}
		}
	}
	labels := make([]float64, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	return labels
}

// BinaryLogLoss is the mean negative log-likelihood of yProb, the predicted
// probability of class 1. Probabilities are clipped to [eps, 1-eps].
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	if err := validatePair("BinaryLogLoss", yTrue, yProb); err != nil {
		return 0, err
	}
	const eps = 1e-15
	var loss float64
	for i := 0; i < yTrue.Len(); i++ {
		y := yTrue.AtVec(i)
		if y != 0 && y != 1 {
			return 0, lrErrors.NewValidationError("yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %v at index %d", y, i), y)
		}
		p := math.Min(math.Max(yProb.AtVec(i), eps), 1-eps)
		loss -= y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return loss / float64(yTrue.Len()), nil
}

package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// ROC holds the points of a receiver operating characteristic curve.
// Thresholds[0] is +Inf so the curve starts at (0, 0).
type ROC struct {
	FPR        []float64
	TPR        []float64
	Thresholds []float64
}

// ROCCurve computes one point per distinct score, in decreasing score order.
func ROCCurve(yTrue, yScore *mat.VecDense) (*ROC, error) {
	if err := validatePair("ROCCurve", yTrue, yScore); err != nil {
		return nil, err
	}
	n := yTrue.Len()
	var totalPos, totalNeg float64
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			totalPos++
		case 0:
			totalNeg++
		default:
			v := yTrue.AtVec(i)
			return nil, lrErrors.NewValidationError("yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %v at index %d", v, i), v)
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		return nil, lrErrors.NewValueError("ROCCurve", "only one class present in yTrue")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return yScore.AtVec(order[a]) > yScore.AtVec(order[b]) })

	roc := &ROC{FPR: []float64{0}, TPR: []float64{0}, Thresholds: []float64{math.Inf(1)}}
	var tp, fp float64
	for k, i := range order {
		if yTrue.AtVec(i) == 1 {
			tp++
		} else {
			fp++
		}
		last := k == n-1
		if last || yScore.AtVec(order[k+1]) != yScore.AtVec(i) {
			roc.FPR = append(roc.FPR, fp/totalNeg)
			roc.TPR = append(roc.TPR, tp/totalPos)
			roc.Thresholds = append(roc.Thresholds, yScore.AtVec(i))
		}
	}
	return roc, nil
}

// AUC integrates the curve with the trapezoid rule.
func (r *ROC) AUC() float64 {
	var area float64
	for i := 1; i < len(r.FPR); i++ {
		area += (r.FPR[i] - r.FPR[i-1]) * (r.TPR[i] + r.TPR[i-1]) / 2
	}
	return area
}

// AUC is the area under the ROC curve of yScore against binary yTrue.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	roc, err := ROCCurve(yTrue, yScore)
	if err != nil {
		return 0, err
	}
	return roc.AUC(), nil
}

package metrics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ClassScores are the per-class rows of a classification report.
type ClassScores struct {
	Label     float64
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarises a classifier's predictions per class.
type Report struct {
	Classes  []ClassScores
	Accuracy float64
	Macro    ClassScores
	Weighted ClassScores
	Total    int
}

// ClassificationReport computes per-class precision, recall and F1 with
// macro and support-weighted averages.
func ClassificationReport(yTrue, yPred *mat.VecDense) (*Report, error) {
	if err := validatePair("ClassificationReport", yTrue, yPred); err != nil {
		return nil, err
	}
	acc, _ := Accuracy(yTrue, yPred)
	rep := &Report{Accuracy: acc, Total: yTrue.Len()}

	labels := uniqueLabels(yTrue, yPred)
	for _, l := range labels {
		c := countBinary(yTrue, yPred, l)
		s := ClassScores{
			Label:     l,
			Precision: precisionFor(c),
			Recall:    recallFor(c),
			F1:        f1For(c),
			Support:   int(c.tp + c.fn),
		}
		rep.Classes = append(rep.Classes, s)

		k := float64(len(labels))
		rep.Macro.Precision += s.Precision / k
		rep.Macro.Recall += s.Recall / k
		rep.Macro.F1 += s.F1 / k

		w := float64(s.Support) / float64(rep.Total)
		rep.Weighted.Precision += s.Precision * w
		rep.Weighted.Recall += s.Recall * w
		rep.Weighted.F1 += s.F1 * w
	}
	rep.Macro.Support = rep.Total
	rep.Weighted.Support = rep.Total
	return rep, nil
}

// String renders the report as an aligned text table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", fmt.Sprintf("%g", c.Label),
			c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Total)
	fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", "macro avg",
		r.Macro.Precision, r.Macro.Recall, r.Macro.F1, r.Macro.Support)
	fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", "weighted avg",
		r.Weighted.Precision, r.Weighted.Recall, r.Weighted.F1, r.Weighted.Support)
	return b.String()
}

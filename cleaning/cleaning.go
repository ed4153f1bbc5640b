// Package cleaning inspects and tidies the raw loan table.
package cleaning

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/kari1998/loan-default-prediction/frame"
	"github.com/kari1998/loan-default-prediction/pkg/errors"
)

// Check writes a first look at the data: preview, column info, missing
// values, numeric summary and the distribution of target.
func Check(w io.Writer, f *frame.Frame, target string) error {
	fmt.Fprintln(w, "First 5 rows:")
	if err := f.Head(5).Fprint(w, 0); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nDataset info:")
	if err := f.Info(w); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nMissing values per column:")
	for _, c := range f.NullCounts() {
		fmt.Fprintf(w, "  %-20s %d\n", c.Value, c.N)
	}

	fmt.Fprintln(w, "\nSummary statistics:")
	desc, err := f.Describe()
	if err != nil {
		return err
	}
	if err := desc.Fprint(w, 0); err != nil {
		return err
	}

	counts, err := f.ValueCounts(target)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nDistribution of %s:\n", target)
	for _, c := range counts {
		fmt.Fprintf(w, "  %-4s %d\n", c.Value, c.N)
	}
	return nil
}

// Result is the outcome of Clean.
type Result struct {
	Frame        *frame.Frame
	Duplicates   int
	ValueCounts  map[string][]frame.Count
	Correlation  *mat.SymDense
	NumericNames []string
}

// Clean removes duplicate rows and the drop columns, then counts the
// categories of each categorical column and correlates the numeric ones.
func Clean(f *frame.Frame, drop []string, categorical []string) (*Result, error) {
	deduped, dups := f.DropDuplicates()

	cleaned := deduped
	if len(drop) > 0 {
		var err error
		cleaned, err = deduped.Drop(drop...)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{
		Frame:       cleaned,
		Duplicates:  dups,
		ValueCounts: make(map[string][]frame.Count, len(categorical)),
	}
	for _, col := range categorical {
		counts, err := cleaned.ValueCounts(col)
		if err != nil {
			return nil, err
		}
		res.ValueCounts[col] = counts
	}

	res.NumericNames = cleaned.NumericColumns()
	corr, err := Correlation(cleaned, res.NumericNames)
	if err != nil {
		return nil, err
	}
	res.Correlation = corr
	return res, nil
}

// Correlation returns the Pearson correlation matrix of the named numeric
// columns. Rows with a missing value in any of them are skipped.
func Correlation(f *frame.Frame, cols []string) (*mat.SymDense, error) {
	if len(cols) == 0 {
		return nil, errors.NewValueError("cleaning.Correlation", "no columns")
	}
	complete, err := f.DropNA(cols...)
	if err != nil {
		return nil, err
	}
	x, err := complete.Matrix(cols...)
	if err != nil {
		return nil, err
	}
	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, x, nil)
	return &corr, nil
}

// Outliers describes the values of one column outside the IQR fences.
type Outliers struct {
	Column string
	Q1, Q3 float64
	Lower  float64
	Upper  float64
	Rows   []int
}

// Count returns the number of outlying rows.
func (o Outliers) Count() int { return len(o.Rows) }

// DetectOutliers flags values below Q1-1.5*IQR or above Q3+1.5*IQR.
// Missing values are never outliers.
func DetectOutliers(f *frame.Frame, col string) (Outliers, error) {
	vals, err := f.Floats(col)
	if err != nil {
		return Outliers{}, err
	}
	sorted := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return Outliers{}, errors.NewModelError("cleaning.DetectOutliers", col, errors.ErrEmptyData)
	}
	sort.Float64s(sorted)

	q1 := frame.Quantile(sorted, 0.25)
	q3 := frame.Quantile(sorted, 0.75)
	iqr := q3 - q1
	out := Outliers{Column: col, Q1: q1, Q3: q3, Lower: q1 - 1.5*iqr, Upper: q3 + 1.5*iqr}
	for i, v := range vals {
		if v < out.Lower || v > out.Upper {
			out.Rows = append(out.Rows, i)
		}
	}
	return out, nil
}

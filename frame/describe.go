package frame

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"
)

// DescribeStats are the rows produced by Describe.
var DescribeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Describe summarises every numeric column. The result has a "stat" column
// followed by one column per numeric input column. Missing values are
// ignored; std is the sample standard deviation.
func (f *Frame) Describe() (*Frame, error) {
	cols := []*Series{NewCategorical("stat", append([]string(nil), DescribeStats...))}
	for _, name := range f.NumericColumns() {
		vals, _ := f.Floats(name)
		cols = append(cols, NewNumeric(name, Summary(vals)))
	}
	return New(cols...)
}

// Summary returns count, mean, std, min, quartiles and max of the
// non-missing values.
func Summary(vals []float64) []float64 {
	x := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	out := make([]float64, len(DescribeStats))
	out[0] = float64(len(x))
	if len(x) == 0 {
		for i := 1; i < len(out); i++ {
			out[i] = math.NaN()
		}
		return out
	}
	sort.Float64s(x)
	out[1] = stat.Mean(x, nil)
	out[2] = math.NaN()
	if len(x) > 1 {
		out[2] = stat.StdDev(x, nil)
	}
	out[3] = x[0]
	out[4] = Quantile(x, 0.25)
	out[5] = Quantile(x, 0.50)
	out[6] = Quantile(x, 0.75)
	out[7] = x[len(x)-1]
	return out
}

// Quantile returns the p-quantile of sorted, interpolating linearly
// between the two closest ranks at position (n-1)*p. This is the estimator
// pandas uses for quantile and describe. sorted must be ascending and
// non-empty.
func Quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Info writes the row count and each column's type and non-null count.
func (f *Frame) Info(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "rows: %d, columns: %d\n", f.NRows(), f.NCols())
	fmt.Fprintln(tw, "#\tcolumn\tnon-null\tdtype")
	for i, c := range f.cols {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i, c.Name, c.Len()-c.NullCount(), c.Kind())
	}
	return tw.Flush()
}

// Fprint writes up to maxRows rows as an aligned table. maxRows <= 0 prints
// every row. Numbers are shown with at most four decimals.
func (f *Frame) Fprint(w io.Writer, maxRows int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for j, name := range f.Columns() {
		if j > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, name)
	}
	fmt.Fprintln(tw, "\t")
	n := f.NRows()
	if maxRows > 0 && maxRows < n {
		n = maxRows
	}
	for i := 0; i < n; i++ {
		for j, c := range f.cols {
			if j > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, displayValue(c, i))
		}
		fmt.Fprintln(tw, "\t")
	}
	if n < f.NRows() {
		fmt.Fprintf(tw, "... %d more rows\n", f.NRows()-n)
	}
	return tw.Flush()
}

func displayValue(c *Series, i int) string {
	if c.Kind() == Categorical {
		if c.IsNull(i) {
			return "NaN"
		}
		return c.Value(i)
	}
	v := c.Floats()[i]
	switch {
	case math.IsNaN(v):
		return "NaN"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

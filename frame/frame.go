package frame

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/pkg/errors"
)

// Frame is an ordered collection of equally long columns.
type Frame struct {
	cols  []*Series
	index map[string]int
}

// New builds a frame from columns. Names must be unique and lengths equal.
func New(cols ...*Series) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if _, dup := f.index[c.Name]; dup {
			return nil, errors.NewValueError("frame.New", fmt.Sprintf("duplicate column %q", c.Name))
		}
		if len(f.cols) > 0 && c.Len() != f.cols[0].Len() {
			return nil, errors.NewDimensionError("frame.New", f.cols[0].Len(), c.Len(), 0)
		}
		f.index[c.Name] = len(f.cols)
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// NRows returns the number of rows.
func (f *Frame) NRows() int {
	if len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].Len()
}

// NCols returns the number of columns.
func (f *Frame) NCols() int { return len(f.cols) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Series, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.NewColumnError("Frame.Column", name)
	}
	return f.cols[i], nil
}

// Floats returns a numeric column's values.
func (f *Frame) Floats(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind() != Numeric {
		return nil, errors.NewValueError("Frame.Floats", fmt.Sprintf("column %q is not numeric", name))
	}
	return c.Floats(), nil
}

// Strings returns a column's values as strings.
func (f *Frame) Strings(name string) ([]string, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	return c.Strings(), nil
}

// ColumnsWithPrefix returns the names starting with prefix, in frame order.
func (f *Frame) ColumnsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.cols {
		if strings.HasPrefix(c.Name, prefix) {
			out = append(out, c.Name)
		}
	}
	return out
}

// NumericColumns returns the names of numeric columns.
func (f *Frame) NumericColumns() []string {
	var out []string
	for _, c := range f.cols {
		if c.Kind() == Numeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Set replaces the column with the same name or appends s.
func (f *Frame) Set(s *Series) error {
	if len(f.cols) > 0 && s.Len() != f.NRows() {
		return errors.NewDimensionError("Frame.Set", f.NRows(), s.Len(), 0)
	}
	if i, ok := f.index[s.Name]; ok {
		f.cols[i] = s
		return nil
	}
	f.index[s.Name] = len(f.cols)
	f.cols = append(f.cols, s)
	return nil
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Series, 0, len(names))
	for _, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if !f.Has(n) {
			return nil, errors.NewColumnError("Frame.Drop", n)
		}
		drop[n] = true
	}
	var cols []*Series
	for _, c := range f.cols {
		if !drop[c.Name] {
			cols = append(cols, c)
		}
	}
	return New(cols...)
}

// Take returns a frame holding the rows at idx, in that order.
func (f *Frame) Take(idx []int) *Frame {
	cols := make([]*Series, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.Take(idx)
	}
	out, _ := New(cols...)
	return out
}

// Filter keeps the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	var idx []int
	for i := 0; i < f.NRows(); i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > f.NRows() {
		n = f.NRows()
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return f.Take(idx)
}

// DropDuplicates removes rows identical to an earlier row and returns the
// number removed.
func (f *Frame) DropDuplicates() (*Frame, int) {
	seen := make(map[string]struct{}, f.NRows())
	var keep []int
	var b strings.Builder
	for i := 0; i < f.NRows(); i++ {
		b.Reset()
		for _, c := range f.cols {
			b.WriteString(c.Value(i))
			b.WriteByte(0)
		}
		key := b.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	return f.Take(keep), f.NRows() - len(keep)
}

// DropNA removes rows with a missing value in any of subset, or in any
// column when subset is empty.
func (f *Frame) DropNA(subset ...string) (*Frame, error) {
	cols := f.cols
	if len(subset) > 0 {
		cols = make([]*Series, 0, len(subset))
		for _, n := range subset {
			c, err := f.Column(n)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
	}
	return f.Filter(func(i int) bool {
		for _, c := range cols {
			if c.IsNull(i) {
				return false
			}
		}
		return true
	}), nil
}

// HConcat joins frames side by side.
func HConcat(frames ...*Frame) (*Frame, error) {
	var cols []*Series
	for _, fr := range frames {
		cols = append(cols, fr.cols...)
	}
	return New(cols...)
}

// Count is one entry of a value count.
type Count struct {
	Value string
	N     int
}

// ValueCounts counts the non-missing values of a column, most frequent
// first. Ties keep first-appearance order.
func (f *Frame) ValueCounts(name string) ([]Count, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	pos := make(map[string]int)
	var counts []Count
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		v := c.Value(i)
		if j, ok := pos[v]; ok {
			counts[j].N++
			continue
		}
		pos[v] = len(counts)
		counts = append(counts, Count{Value: v, N: 1})
	}
	sort.SliceStable(counts, func(a, b int) bool { return counts[a].N > counts[b].N })
	return counts, nil
}

// NullCounts returns the number of missing values per column.
func (f *Frame) NullCounts() []Count {
	out := make([]Count, len(f.cols))
	for i, c := range f.cols {
		out[i] = Count{Value: c.Name, N: c.NullCount()}
	}
	return out
}

// Group is a per-key aggregate.
type Group struct {
	Key  string
	Mean float64
	N    int
}

// GroupMean averages the numeric column col for each value of by, sorted by
// key. Missing values of col are skipped.
func (f *Frame) GroupMean(by, col string) ([]Group, error) {
	keys, err := f.Strings(by)
	if err != nil {
		return nil, err
	}
	vals, err := f.Floats(col)
	if err != nil {
		return nil, err
	}
	sums := make(map[string]float64)
	ns := make(map[string]int)
	for i, k := range keys {
		if k == "" || vals[i] != vals[i] {
			continue
		}
		sums[k] += vals[i]
		ns[k]++
	}
	out := make([]Group, 0, len(ns))
	for k, n := range ns {
		out = append(out, Group{Key: k, Mean: sums[k] / float64(n), N: n})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Key < out[b].Key })
	return out, nil
}

// Matrix copies the named numeric columns into a dense n x len(names)
// matrix. With no names every column is used.
func (f *Frame) Matrix(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		names = f.Columns()
	}
	n := f.NRows()
	if n == 0 || len(names) == 0 {
		return nil, errors.NewModelError("Frame.Matrix", "no rows or columns", errors.ErrEmptyData)
	}
	data := make([]float64, n*len(names))
	for j, name := range names {
		vals, err := f.Floats(name)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			data[i*len(names)+j] = v
		}
	}
	return mat.NewDense(n, len(names), data), nil
}

// FromMatrix builds a numeric frame from m with the given column names.
func FromMatrix(m mat.Matrix, names []string) (*Frame, error) {
	r, c := m.Dims()
	if c != len(names) {
		return nil, errors.NewDimensionError("frame.FromMatrix", len(names), c, 1)
	}
	cols := make([]*Series, c)
	for j := 0; j < c; j++ {
		vals := make([]float64, r)
		for i := 0; i < r; i++ {
			vals[i] = m.At(i, j)
		}
		cols[j] = NewNumeric(names[j], vals)
	}
	return New(cols...)
}

package frame_test

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kari1998/loan-default-prediction/frame"
	"github.com/kari1998/loan-default-prediction/pkg/errors"
)

const sampleCSV = `loan_id,age,loan_purpose,has_default
1,25,personal,0
2,40,business,1
3,,personal,0
2,40,business,1
5,33,,0
`

func readSample(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return f
}

func TestReadCSVInfersKinds(t *testing.T) {
	f := readSample(t)
	assert.Equal(t, 5, f.NRows())
	assert.Equal(t, []string{"loan_id", "age", "loan_purpose", "has_default"}, f.Columns())

	age, err := f.Column("age")
	require.NoError(t, err)
	assert.Equal(t, frame.Numeric, age.Kind())
	assert.True(t, math.IsNaN(age.Floats()[2]))

	purpose, err := f.Column("loan_purpose")
	require.NoError(t, err)
	assert.Equal(t, frame.Categorical, purpose.Kind())
	assert.Equal(t, 1, purpose.NullCount())
}

func TestColumnNotFound(t *testing.T) {
	f := readSample(t)
	_, err := f.Column("income")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)

	_, err = f.Drop("income")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)
}

func TestFloatsRejectsCategorical(t *testing.T) {
	f := readSample(t)
	_, err := f.Floats("loan_purpose")
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestDropDuplicates(t *testing.T) {
	f := readSample(t)
	deduped, removed := f.DropDuplicates()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 4, deduped.NRows())
}

func TestDropNA(t *testing.T) {
	f := readSample(t)

	bySubset, err := f.DropNA("age")
	require.NoError(t, err)
	assert.Equal(t, 4, bySubset.NRows())

	all, err := f.DropNA()
	require.NoError(t, err)
	assert.Equal(t, 3, all.NRows())
}

func TestValueCountsOrder(t *testing.T) {
	f := readSample(t)
	counts, err := f.ValueCounts("loan_purpose")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, frame.Count{Value: "personal", N: 2}, counts[0])
	assert.Equal(t, frame.Count{Value: "business", N: 2}, counts[1])
}

func TestGroupMean(t *testing.T) {
	f := readSample(t)
	groups, err := f.GroupMean("has_default", "age")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "0", groups[0].Key)
	assert.InDelta(t, 29.0, groups[0].Mean, 1e-12)
	assert.Equal(t, 2, groups[0].N)
	assert.InDelta(t, 40.0, groups[1].Mean, 1e-12)
}

func TestSetAndSelect(t *testing.T) {
	f := readSample(t)
	require.NoError(t, f.Set(frame.NewNumeric("income", []float64{1, 2, 3, 4, 5})))
	assert.True(t, f.Has("income"))

	err := f.Set(frame.NewNumeric("short", []float64{1}))
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)

	sel, err := f.Select("income", "age")
	require.NoError(t, err)
	assert.Equal(t, []string{"income", "age"}, sel.Columns())
}

func TestMatrixRoundTrip(t *testing.T) {
	f, err := frame.New(
		frame.NewNumeric("a", []float64{1, 2}),
		frame.NewNumeric("b", []float64{3, 4}),
	)
	require.NoError(t, err)

	m, err := f.Matrix()
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.At(0, 1))

	back, err := frame.FromMatrix(m, []string{"x", "y"})
	require.NoError(t, err)
	ys, err := back.Floats("y")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, ys)

	_, err = frame.FromMatrix(m, []string{"only"})
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)
}

func TestWriteReadCSVFile(t *testing.T) {
	f := readSample(t)
	path := filepath.Join(t.TempDir(), "out", "sample.csv")
	require.NoError(t, f.WriteCSVFile(path))

	back, err := frame.ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, f.Columns(), back.Columns())
	ages, err := back.Floats("age")
	require.NoError(t, err)
	assert.Equal(t, 25.0, ages[0])
	assert.True(t, math.IsNaN(ages[2]))
}

func TestDescribe(t *testing.T) {
	f, err := frame.New(frame.NewNumeric("x", []float64{1, 2, 3, 4, math.NaN()}))
	require.NoError(t, err)

	d, err := f.Describe()
	require.NoError(t, err)
	xs, err := d.Floats("x")
	require.NoError(t, err)
	assert.Equal(t, 4.0, xs[0])
	assert.InDelta(t, 2.5, xs[1], 1e-12)
	assert.InDelta(t, 1.2909944487358056, xs[2], 1e-12)
	assert.Equal(t, 1.0, xs[3])
	assert.InDelta(t, 1.75, xs[4], 1e-12)
	assert.InDelta(t, 2.5, xs[5], 1e-12)
	assert.InDelta(t, 3.25, xs[6], 1e-12)
	assert.Equal(t, 4.0, xs[7])
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		sorted []float64
		p      float64
		want   float64
	}{
		{[]float64{1, 2, 3, 4}, 0.25, 1.75},
		{[]float64{1, 2, 3, 4}, 0.5, 2.5},
		{[]float64{1, 2, 3, 4}, 0.75, 3.25},
		{[]float64{1, 2, 3, 4, 100}, 0.25, 2},
		{[]float64{1, 2, 3, 4, 100}, 0.75, 4},
		{[]float64{7}, 0.5, 7},
		{[]float64{1, 3}, 0, 1},
		{[]float64{1, 3}, 1, 3},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, frame.Quantile(tt.sorted, tt.p), 1e-12, "%v p=%g", tt.sorted, tt.p)
	}
}

func TestInfoAndFprint(t *testing.T) {
	f := readSample(t)
	var buf bytes.Buffer
	require.NoError(t, f.Info(&buf))
	assert.Contains(t, buf.String(), "loan_purpose")
	assert.Contains(t, buf.String(), "object")

	buf.Reset()
	require.NoError(t, f.Fprint(&buf, 2))
	assert.Contains(t, buf.String(), "personal")
	assert.Contains(t, buf.String(), "3 more rows")
}

func TestColumnsWithPrefix(t *testing.T) {
	f := readSample(t)
	assert.Equal(t, []string{"loan_id", "loan_purpose"}, f.ColumnsWithPrefix("loan_"))
	assert.Empty(t, f.ColumnsWithPrefix("purpose"))
	assert.Empty(t, f.ColumnsWithPrefix("marital"))
}

// Package frame is a small column-oriented table used to move the loan
// dataset between pipeline stages.
//
// A Frame is an ordered set of equally long Series. A Series is either
// numeric (float64, NaN marks a missing value) or categorical (string, the
// empty string marks a missing value).
package frame

import (
	"math"
	"strconv"
)

// Kind is the storage type of a Series.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "float64"
	}
	return "object"
}

// Series is a named column.
type Series struct {
	Name string
	kind Kind
	nums []float64
	strs []string
}

// NewNumeric returns a numeric series backed by values.
func NewNumeric(name string, values []float64) *Series {
	return &Series{Name: name, kind: Numeric, nums: values}
}

// NewCategorical returns a categorical series backed by values.
func NewCategorical(name string, values []string) *Series {
	return &Series{Name: name, kind: Categorical, strs: values}
}

// Kind returns the storage type.
func (s *Series) Kind() Kind { return s.kind }

// Len returns the number of values.
func (s *Series) Len() int {
	if s.kind == Numeric {
		return len(s.nums)
	}
	return len(s.strs)
}

// Floats returns the backing slice of a numeric series. Callers must not
// modify it. Categorical series return nil.
func (s *Series) Floats() []float64 { return s.nums }

// Strings returns the values as strings. Numeric values are formatted the
// way they are written to CSV.
func (s *Series) Strings() []string {
	if s.kind == Categorical {
		return s.strs
	}
	out := make([]string, len(s.nums))
	for i, v := range s.nums {
		out[i] = formatFloat(v)
	}
	return out
}

// Value returns the i-th value formatted as a string.
func (s *Series) Value(i int) string {
	if s.kind == Categorical {
		return s.strs[i]
	}
	return formatFloat(s.nums[i])
}

// IsNull reports whether the i-th value is missing.
func (s *Series) IsNull(i int) bool {
	if s.kind == Numeric {
		return math.IsNaN(s.nums[i])
	}
	return s.strs[i] == ""
}

// NullCount returns the number of missing values.
func (s *Series) NullCount() int {
	n := 0
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			n++
		}
	}
	return n
}

// Take returns a new series holding the values at idx.
func (s *Series) Take(idx []int) *Series {
	if s.kind == Numeric {
		out := make([]float64, len(idx))
		for i, j := range idx {
			out[i] = s.nums[j]
		}
		return NewNumeric(s.Name, out)
	}
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = s.strs[j]
	}
	return NewCategorical(s.Name, out)
}

// Rename returns a shallow copy with a new name.
func (s *Series) Rename(name string) *Series {
	c := *s
	c.Name = name
	return &c
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

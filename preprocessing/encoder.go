package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// MissingCategory names the category assigned to empty strings.
const MissingCategory = "nan"

// OneHotEncoder turns categorical string features into 0/1 indicator
// columns. Categories are sorted, with MissingCategory last. With DropFirst
// the first category of each feature is omitted.
type OneHotEncoder struct {
	model.BaseEstimator

	Categories    [][]string
	CategoryToIdx []map[string]int
	DropFirst     bool
	NOutputs      int
}

// NewOneHotEncoder creates an encoder that keeps every category.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// NewOneHotEncoderDropFirst creates an encoder that drops each feature's
// first category.
func NewOneHotEncoderDropFirst() *OneHotEncoder {
	return &OneHotEncoder{DropFirst: true}
}

func normaliseCategory(v string) string {
	if v == "" {
		return MissingCategory
	}
	return v
}

// Fit learns the categories of each column of data (rows x features).
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer lrErrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 || len(data[0]) == 0 {
		return lrErrors.NewModelError("OneHotEncoder.Fit", "empty data", lrErrors.ErrEmptyData)
	}
	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return lrErrors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), 1)
		}
	}

	e.Categories = make([][]string, nFeatures)
	e.CategoryToIdx = make([]map[string]int, nFeatures)
	e.NOutputs = 0
	for j := 0; j < nFeatures; j++ {
		set := make(map[string]struct{})
		for _, row := range data {
			set[normaliseCategory(row[j])] = struct{}{}
		}
		cats := make([]string, 0, len(set))
		for c := range set {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(a, b int) bool {
			if (cats[a] == MissingCategory) != (cats[b] == MissingCategory) {
				return cats[b] == MissingCategory
			}
			return cats[a] < cats[b]
		})

		e.Categories[j] = cats
		idx := make(map[string]int, len(cats))
		for k, c := range cats {
			idx[c] = k
		}
		e.CategoryToIdx[j] = idx
		e.NOutputs += e.width(j)
	}

	e.SetDimensions(len(data), nFeatures)
	e.SetFitted()
	return nil
}

func (e *OneHotEncoder) width(j int) int {
	if e.DropFirst {
		return len(e.Categories[j]) - 1
	}
	return len(e.Categories[j])
}

// Transform encodes data. Unknown categories encode as all zeros.
func (e *OneHotEncoder) Transform(data [][]string) (_ *mat.Dense, err error) {
	defer lrErrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, lrErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(data) == 0 {
		return nil, lrErrors.NewModelError("OneHotEncoder.Transform", "empty data", lrErrors.ErrEmptyData)
	}
	if e.NOutputs == 0 {
		return nil, lrErrors.NewValueError("OneHotEncoder.Transform", "every feature has a single category")
	}

	out := mat.NewDense(len(data), e.NOutputs, nil)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, lrErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), 1)
		}
		offset := 0
		for j, v := range row {
			k, ok := e.CategoryToIdx[j][normaliseCategory(v)]
			if e.DropFirst {
				k--
			}
			if ok && k >= 0 {
				out.Set(i, offset+k, 1)
			}
			offset += e.width(j)
		}
	}
	return out, nil
}

// FitTransform fits on data and encodes it.
func (e *OneHotEncoder) FitTransform(data [][]string) (*mat.Dense, error) {
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// FeatureNamesOut returns "<feature>_<category>" for each output column.
// Missing input names default to x0, x1, ...
func (e *OneHotEncoder) FeatureNamesOut(inputFeatures []string) []string {
	if !e.IsFitted() {
		return nil
	}
	var names []string
	for j, cats := range e.Categories {
		feature := fmt.Sprintf("x%d", j)
		if j < len(inputFeatures) {
			feature = inputFeatures[j]
		}
		start := 0
		if e.DropFirst {
			start = 1
		}
		for _, c := range cats[start:] {
			names = append(names, feature+"_"+c)
		}
	}
	return names
}

// Rows zips equally long columns into rows, the layout Fit expects.
func Rows(columns ...[]string) [][]string {
	if len(columns) == 0 {
		return nil
	}
	rows := make([][]string, len(columns[0]))
	for i := range rows {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = col[i]
		}
		rows[i] = row
	}
	return rows
}

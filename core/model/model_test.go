package model_test

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

type stubModel struct {
	model.BaseEstimator
	Weights []float64
}

func ExampleBaseEstimator() {
	estimator := &model.BaseEstimator{}
	fmt.Printf("Initially fitted: %t\n", estimator.IsFitted())

	estimator.SetFitted()
	fmt.Printf("After SetFitted: %t\n", estimator.IsFitted())

	estimator.Reset()
	fmt.Printf("After Reset: %t\n", estimator.IsFitted())

	// Output: Initially fitted: false
	// After SetFitted: true
	// After Reset: false
}

func TestSaveLoadModel(t *testing.T) {
	m := &stubModel{Weights: []float64{0.5, -1.25}}
	m.SetDimensions(10, 2)
	m.SetFitted()

	path := filepath.Join(t.TempDir(), "nested", "stub.gob")
	require.NoError(t, model.SaveModel(m, path))

	var loaded stubModel
	require.NoError(t, model.LoadModel(&loaded, path))
	assert.True(t, loaded.IsFitted())
	assert.Equal(t, 2, loaded.NFeatures)
	assert.Equal(t, m.Weights, loaded.Weights)
}

func TestSaveLoadModelToWriter(t *testing.T) {
	m := &stubModel{Weights: []float64{1, 2, 3}}
	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(m, &buf))

	var loaded stubModel
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))
	assert.Equal(t, m.Weights, loaded.Weights)
	assert.False(t, loaded.IsFitted())
}

func TestLoadModelFileNotFound(t *testing.T) {
	var m stubModel
	err := model.LoadModel(&m, filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}

func TestCardRoundTrip(t *testing.T) {
	params := model.LinearParams{
		Features:     []string{"age", "income"},
		Coefficients: []float64{0.1, -0.2},
		Intercept:    0.3,
	}
	var buf bytes.Buffer
	require.NoError(t, model.WriteCard("LogisticRegression", params, &buf))

	card, err := model.ReadCard(&buf)
	require.NoError(t, err)
	assert.Equal(t, "LogisticRegression", card.Spec.Name)

	got, err := card.LinearParams()
	require.NoError(t, err)
	assert.Equal(t, params, *got)
}

func TestReadCardValidation(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"missing version", `{"model_spec":{"name":"x"},"params":{}}`, "format_version is required"},
		{"bad version", `{"model_spec":{"name":"x","format_version":"9"},"params":{}}`, "unsupported format version"},
		{"missing name", `{"model_spec":{"format_version":"1.0"},"params":{}}`, "model name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.ReadCard(strings.NewReader(tt.json))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheckXY(t *testing.T) {
	X := mat.NewDense(3, 2, nil)
	n, f, err := model.CheckXY("op", X, mat.NewDense(3, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, f)

	_, _, err = model.CheckXY("op", X, mat.NewDense(2, 1, nil))
	assert.ErrorIs(t, err, lrErrors.ErrDimensionMismatch)
	_, _, err = model.CheckXY("op", X, mat.NewDense(3, 2, nil))
	assert.ErrorIs(t, err, lrErrors.ErrDimensionMismatch)
	_, _, err = model.CheckXY("op", &mat.Dense{}, mat.NewDense(3, 1, nil))
	assert.ErrorIs(t, err, lrErrors.ErrEmptyData)
}

func TestCheckPredict(t *testing.T) {
	m := &stubModel{}
	err := model.CheckPredict("Predict", "stub", m, 2, mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, lrErrors.ErrNotFitted)

	m.SetFitted()
	assert.NoError(t, model.CheckPredict("Predict", "stub", m, 2, mat.NewDense(1, 2, nil)))
	assert.ErrorIs(t, model.CheckPredict("Predict", "stub", m, 3, mat.NewDense(1, 2, nil)), lrErrors.ErrDimensionMismatch)
}

func TestUniqueClassesAndLabels(t *testing.T) {
	y := mat.NewDense(4, 1, []float64{1, 0, 1, 0})
	classes := model.UniqueClasses(y)
	assert.Equal(t, []float64{0, 1}, classes)

	proba := mat.NewDense(3, 2, []float64{0.9, 0.1, 0.2, 0.8, 0.5, 0.5})
	labels := model.ProbaToLabels(proba, classes)
	assert.Equal(t, []float64{0, 1, 0}, labels.RawMatrix().Data)

	assert.InDelta(t, 2.0/3.0, model.Score(labels, mat.NewDense(3, 1, []float64{0, 1, 1})), 1e-12)
}

package metrics_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/metrics"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

func vec(v ...float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

func TestBinaryScores(t *testing.T) {
	// tp=2 fp=1 fn=1 tn=2
	yTrue := vec(1, 1, 1, 0, 0, 0)
	yPred := vec(1, 1, 0, 1, 0, 0)

	acc, err := metrics.Accuracy(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/6.0, acc, 1e-12)

	p, err := metrics.Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, p, 1e-12)

	r, err := metrics.Recall(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, r, 1e-12)

	f1, err := metrics.F1(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, f1, 1e-12)
}

func TestZeroDivision(t *testing.T) {
	yTrue := vec(1, 0, 1)
	yPred := vec(0, 0, 0)

	p, err := metrics.Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	f1, err := metrics.F1(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f1)
}

func TestValidation(t *testing.T) {
	_, err := metrics.Accuracy(vec(1, 0), vec(1))
	assert.ErrorIs(t, err, lrErrors.ErrDimensionMismatch)

	_, err = metrics.Accuracy(nil, vec(1))
	var ve *lrErrors.ValueError
	assert.True(t, lrErrors.As(err, &ve))
}

func TestAUC(t *testing.T) {
	auc, err := metrics.AUC(vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, auc, 1e-12)

	perfect, err := metrics.AUC(vec(0, 1), vec(0.2, 0.9))
	require.NoError(t, err)
	assert.Equal(t, 1.0, perfect)

	ties, err := metrics.AUC(vec(0, 1, 0, 1), vec(0.5, 0.5, 0.5, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ties, 1e-12)

	_, err = metrics.AUC(vec(1, 1), vec(0.2, 0.3))
	assert.Error(t, err)
}

func TestROCCurve(t *testing.T) {
	roc, err := metrics.ROCCurve(vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0.5, 0.5, 1}, roc.FPR)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1, 1}, roc.TPR)
	assert.True(t, math.IsInf(roc.Thresholds[0], 1))
	assert.Equal(t, 0.8, roc.Thresholds[1])
}

func TestConfusionMatrix(t *testing.T) {
	cm, labels, err := metrics.ConfusionMatrix(vec(0, 0, 1, 1, 1), vec(0, 1, 1, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, labels)
	assert.Equal(t, []float64{1, 1, 1, 2}, cm.RawMatrix().Data)
}

func TestBinaryLogLoss(t *testing.T) {
	loss, err := metrics.BinaryLogLoss(vec(1, 0), vec(0.9, 0.1))
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.9), loss, 1e-12)

	_, err = metrics.BinaryLogLoss(vec(2), vec(0.5))
	var ve *lrErrors.ValidationError
	assert.True(t, lrErrors.As(err, &ve))
}

func TestClassificationReport(t *testing.T) {
	yTrue := vec(0, 0, 0, 0, 1)
	yPred := vec(0, 0, 0, 0, 0)

	rep, err := metrics.ClassificationReport(yTrue, yPred)
	require.NoError(t, err)
	require.Len(t, rep.Classes, 2)
	assert.InDelta(t, 0.8, rep.Classes[0].Precision, 1e-12)
	assert.Equal(t, 4, rep.Classes[0].Support)
	assert.Equal(t, 0.0, rep.Classes[1].Recall)
	assert.InDelta(t, 0.8, rep.Accuracy, 1e-12)
	assert.InDelta(t, 0.5, rep.Macro.Recall, 1e-12)
	assert.InDelta(t, 0.8*0.8, rep.Weighted.Precision, 1e-12)

	text := rep.String()
	assert.Contains(t, text, "precision")
	assert.Contains(t, text, "weighted avg")
	assert.Contains(t, text, "0.80")
}

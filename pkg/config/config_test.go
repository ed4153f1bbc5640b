package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kari1998/loan-default-prediction/pkg/config"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)

	c, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.Seed)
}

func TestDefaultPaths(t *testing.T) {
	c := config.Default()
	assert.Equal(t, "data/synthetic_loan_default_data.csv", c.Paths.Raw)
	assert.Equal(t, "data/cleaned_loan_default_data.csv", c.Paths.Cleaned)
	assert.Equal(t, "data/processed_loan_default_data.csv", c.Paths.Processed)
	assert.Equal(t, "data/balanced_loan_default_data.csv", c.Paths.Balanced)
	assert.Equal(t, "modelling", c.Paths.Models)
	assert.Equal(t, filepath.Join("data", "results", "model_performance.csv"), c.ResultPath("model_performance.csv"))
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loanrisk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: 7
paths:
  raw: /tmp/raw.csv
models:
  forest_trees: 10
`), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), c.Seed)
	assert.Equal(t, "/tmp/raw.csv", c.Paths.Raw)
	assert.Equal(t, "data/cleaned_loan_default_data.csv", c.Paths.Cleaned)
	assert.Equal(t, 10, c.Models.ForestTrees)
	assert.Equal(t, 100, c.Models.BoostRounds)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("split:\n  test_size: 1.5\n"), 0o644))
	_, err := config.Load(bad)
	var ve *lrErrors.ValidationError
	assert.True(t, lrErrors.As(err, &ve))

	clip := filepath.Join(dir, "clip.yaml")
	require.NoError(t, os.WriteFile(clip, []byte("models:\n  mlp_max_grad_norm: -1\n"), 0o644))
	_, err = config.Load(clip)
	assert.True(t, lrErrors.As(err, &ve))

	garbled := filepath.Join(dir, "garbled.yaml")
	require.NoError(t, os.WriteFile(garbled, []byte("seed: [1,"), 0o644))
	_, err = config.Load(garbled)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "c.yaml")
	c := config.Default()
	c.Models.MLPHidden = []int{4}
	require.NoError(t, config.Save(path, c))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestPathHelpers(t *testing.T) {
	c := config.Default()
	assert.Equal(t, filepath.Join("modelling", "xgboost_model.gob"), c.ModelPath("xgboost"))
	assert.Equal(t, filepath.Join("data/results", "model_performance.csv"), c.ResultPath("model_performance.csv"))
	assert.Equal(t, filepath.Join("Visualizations", "EDA", "age.png"), c.PlotPath("EDA", "age.png"))
}

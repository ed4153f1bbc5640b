// Package config loads the pipeline configuration from YAML. Every field is
// optional; a missing file or key keeps the default.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

const fileMode = 0o644

// Paths lists every artifact location.
type Paths struct {
	Raw       string `yaml:"raw"`
	Cleaned   string `yaml:"cleaned"`
	Processed string `yaml:"processed"`
	Balanced  string `yaml:"balanced"`
	Models    string `yaml:"models"`
	Results   string `yaml:"results"`
	Plots     string `yaml:"plots"`
}

// Generate controls the synthetic dataset.
type Generate struct {
	Samples     int     `yaml:"samples"`
	DefaultRate float64 `yaml:"default_rate"`
}

// Split controls train/test splitting.
type Split struct {
	TestSize float64 `yaml:"test_size"`
}

// SMOTE controls oversampling.
type SMOTE struct {
	KNeighbors int `yaml:"k_neighbors"`
}

// Models holds classifier hyperparameters.
type Models struct {
	LogisticC     float64 `yaml:"logistic_c"`
	LogisticIter  int     `yaml:"logistic_max_iter"`
	ForestTrees   int     `yaml:"forest_trees"`
	BoostRounds   int     `yaml:"boost_rounds"`
	BoostEta      float64 `yaml:"boost_eta"`
	BoostDepth    int     `yaml:"boost_depth"`
	MLPHidden     []int   `yaml:"mlp_hidden"`
	MLPEpochs     int     `yaml:"mlp_epochs"`
	MLPBatchSize  int     `yaml:"mlp_batch_size"`
	MLPLearnRate  float64 `yaml:"mlp_learning_rate"`
	MLPClipNorm   float64 `yaml:"mlp_max_grad_norm"`
	ImportanceTop int     `yaml:"importance_top"`
}

// Store locates the run history database.
type Store struct {
	Path string `yaml:"path"`
}

// Config is the full pipeline configuration.
type Config struct {
	Seed     uint64   `yaml:"seed"`
	LogLevel string   `yaml:"log_level"`
	Paths    Paths    `yaml:"paths"`
	Generate Generate `yaml:"generate"`
	Split    Split    `yaml:"split"`
	SMOTE    SMOTE    `yaml:"smote"`
	Models   Models   `yaml:"models"`
	Store    Store    `yaml:"store"`
}

// Default returns the configuration matching the stock data layout.
func Default() *Config {
	return &Config{
		Seed:     42,
		LogLevel: "info",
		Paths: Paths{
			Raw:       "data/synthetic_loan_default_data.csv",
			Cleaned:   "data/cleaned_loan_default_data.csv",
			Processed: "data/processed_loan_default_data.csv",
			Balanced:  "data/balanced_loan_default_data.csv",
			Models:    "modelling",
			Results:   "data/results",
			Plots:     "Visualizations",
		},
		Generate: Generate{Samples: 10000, DefaultRate: 0.2},
		Split:    Split{TestSize: 0.2},
		SMOTE:    SMOTE{KNeighbors: 5},
		Models: Models{
			LogisticC:     1.0,
			LogisticIter:  100,
			ForestTrees:   100,
			BoostRounds:   100,
			BoostEta:      0.3,
			BoostDepth:    6,
			MLPHidden:     []int{16, 8},
			MLPEpochs:     10,
			MLPBatchSize:  32,
			MLPLearnRate:  1e-3,
			MLPClipNorm:   10,
			ImportanceTop: 10,
		},
		Store: Store{Path: "data/results/runs.db"},
	}
}

// Load reads path over the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, lrErrors.Wrapf(err, "error reading config file: %s", path)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, lrErrors.Wrapf(err, "failed to parse config file: %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c as YAML, creating parent directories.
func Save(path string, c *Config) error {
	if c == nil {
		return lrErrors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return lrErrors.Wrap(err, "failed to marshal config")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return lrErrors.Wrapf(err, "failed to create dir: %s", dir)
		}
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return lrErrors.Wrapf(err, "failed to write config file: %s", path)
	}
	return nil
}

// Validate rejects values no stage can work with.
func (c *Config) Validate() error {
	switch {
	case c.Generate.Samples < 1:
		return lrErrors.NewValidationError("generate.samples", "must be positive", c.Generate.Samples)
	case c.Generate.DefaultRate < 0 || c.Generate.DefaultRate > 1:
		return lrErrors.NewValidationError("generate.default_rate", "must lie in [0, 1]", c.Generate.DefaultRate)
	case c.Split.TestSize <= 0 || c.Split.TestSize >= 1:
		return lrErrors.NewValidationError("split.test_size", "must lie in (0, 1)", c.Split.TestSize)
	case c.SMOTE.KNeighbors < 1:
		return lrErrors.NewValidationError("smote.k_neighbors", "must be positive", c.SMOTE.KNeighbors)
	case c.Models.MLPClipNorm < 0:
		return lrErrors.NewValidationError("models.mlp_max_grad_norm", "must be non-negative", c.Models.MLPClipNorm)
	case c.Models.ImportanceTop < 1:
		return lrErrors.NewValidationError("models.importance_top", "must be positive", c.Models.ImportanceTop)
	}
	for name, p := range map[string]string{
		"paths.raw":       c.Paths.Raw,
		"paths.cleaned":   c.Paths.Cleaned,
		"paths.processed": c.Paths.Processed,
		"paths.balanced":  c.Paths.Balanced,
		"paths.models":    c.Paths.Models,
		"paths.results":   c.Paths.Results,
		"paths.plots":     c.Paths.Plots,
	} {
		if p == "" {
			return lrErrors.NewValidationError(name, "must not be empty", p)
		}
	}
	return nil
}

// ModelPath returns the gob file for a model key such as "random_forest".
func (c *Config) ModelPath(key string) string {
	return filepath.Join(c.Paths.Models, key+"_model.gob")
}

// ResultPath joins name onto the results directory.
func (c *Config) ResultPath(name string) string {
	return filepath.Join(c.Paths.Results, name)
}

// PlotPath joins elems onto the plots directory.
func (c *Config) PlotPath(elems ...string) string {
	return filepath.Join(append([]string{c.Paths.Plots}, elems...)...)
}

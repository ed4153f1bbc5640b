// Package stages runs the loan default pipeline one step at a time. Every
// stage reads the artifacts of the stages before it from the paths in the
// configuration, writes its own artifacts and prints a short report.
package stages

import (
	"context"
	"image/color"
	"io"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/datagen"
	"github.com/kari1998/loan-default-prediction/frame"
	"github.com/kari1998/loan-default-prediction/pkg/config"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
)

// Func is the signature shared by all stages.
type Func func(ctx context.Context, cfg *config.Config, w io.Writer) error

// Stage names a step of the pipeline.
type Stage struct {
	Name  string
	Usage string
	Run   Func
}

// All returns the stages in execution order.
func All() []Stage {
	return []Stage{
		{"generate", "generate the synthetic loan dataset", Generate},
		{"check", "print a first look at the raw data", Check},
		{"clean", "drop duplicates and identifiers, correlate numeric columns", Clean},
		{"outliers", "count IQR outliers in the numeric columns", Outliers},
		{"univariate", "plot the distribution of every column", ExploreUnivariate},
		{"bivariate", "relate every column to the default status", ExploreBivariate},
		{"interaction", "study interaction terms of the numeric columns", ExploreInteraction},
		{"engineer", "bin, encode and scale the features", Engineer},
		{"imbalance", "report the class distribution", CheckImbalance},
		{"rebalance", "oversample the minority class with SMOTE", Rebalance},
		{"train", "train and save the four classifiers", Train},
		{"evaluate", "score the saved classifiers on a held-out split", Evaluate},
		{"importance", "rank features by tree ensemble importance", Importance},
		{"profile", "describe the likely defaulter", Profile},
	}
}

// Lookup finds a stage by name.
func Lookup(name string) (Stage, bool) {
	for _, s := range All() {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Run executes one stage with logging around it.
func Run(ctx context.Context, s Stage, cfg *config.Config, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("stages").With(log.StageKey, s.Name)
	start := time.Now()
	logger.Info("stage started")
	if err := s.Run(ctx, cfg, w); err != nil {
		return lrErrors.Wrapf(err, "stage %s", s.Name)
	}
	logger.Info("stage finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// RunAll executes every stage in order and stops at the first failure or
// when ctx is cancelled.
func RunAll(ctx context.Context, cfg *config.Config, w io.Writer) error {
	for _, s := range All() {
		if err := Run(ctx, s, cfg, w); err != nil {
			return err
		}
	}
	return nil
}

var (
	numericColumns     = []string{datagen.ColAge, datagen.ColIncome, datagen.ColLoanAmount}
	categoricalColumns = []string{datagen.ColLoanPurpose, datagen.ColEmploymentStatus, datagen.ColMaritalStatus}
	classNames         = map[float64]string{0: "No Default", 1: "Default"}

	skyBlue    = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	lightGreen = color.RGBA{R: 144, G: 238, B: 144, A: 255}
	lightBlue  = color.RGBA{R: 173, G: 216, B: 230, A: 255}
	coral      = color.RGBA{R: 255, G: 127, B: 80, A: 255}
	steelBlue  = color.RGBA{R: 70, G: 130, B: 180, A: 255}
)

func readFrame(path string) (*frame.Frame, error) {
	f, err := frame.ReadCSVFile(path)
	if err != nil {
		return nil, lrErrors.Wrapf(err, "read %s", path)
	}
	return f, nil
}

func writeFrame(f *frame.Frame, path string) error {
	if err := f.WriteCSVFile(path); err != nil {
		return lrErrors.Wrapf(err, "write %s", path)
	}
	log.GetLoggerWithName("stages").Info("wrote table",
		log.PathKey, path,
		log.SamplesKey, f.NRows(),
		log.FeaturesKey, f.NCols())
	return nil
}

// splitTarget separates the has_default column from the feature columns.
func splitTarget(f *frame.Frame) (X, y *mat.Dense, features []string, err error) {
	for _, c := range f.Columns() {
		if c != datagen.ColHasDefault {
			features = append(features, c)
		}
	}
	X, err = f.Matrix(features...)
	if err != nil {
		return nil, nil, nil, err
	}
	y, err = f.Matrix(datagen.ColHasDefault)
	if err != nil {
		return nil, nil, nil, err
	}
	return X, y, features, nil
}

func labels(f *frame.Frame) ([]float64, error) {
	return f.Floats(datagen.ColHasDefault)
}

package stages

import (
	"context"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	"github.com/kari1998/loan-default-prediction/datagen"
	"github.com/kari1998/loan-default-prediction/frame"
	"github.com/kari1998/loan-default-prediction/pkg/config"
	"github.com/kari1998/loan-default-prediction/preprocessing"
	"github.com/kari1998/loan-default-prediction/sampling"
	"github.com/kari1998/loan-default-prediction/viz"
)

// Derived column names.
const (
	ColAgeGroup     = "age_group"
	ColIncomeGroup  = "income_group"
	ColLoanCategory = "loan_category"
)

type binning struct {
	source, target string
	edges          []float64
	labels         []string
}

var binnings = []binning{
	{
		source: datagen.ColAge, target: ColAgeGroup,
		edges:  []float64{18, 25, 35, 45, 55, 65, math.Inf(1)},
		labels: []string{"18-24", "25-34", "35-44", "45-54", "55-64", "65+"},
	},
	{
		source: datagen.ColIncome, target: ColIncomeGroup,
		edges:  []float64{0, 40000, 80000, 120000, 160000, math.Inf(1)},
		labels: []string{"Low", "Moderate", "Middle", "Upper-Middle", "High"},
	},
	{
		source: datagen.ColLoanAmount, target: ColLoanCategory,
		edges:  []float64{-1, 10000, 20000, 30000, 40000, 50000, math.Inf(1)},
		labels: []string{"Very Low", "Low", "Medium", "High", "Very High", "Extreme"},
	},
}

// encodedColumns are one-hot encoded, dropping the first category of each.
var encodedColumns = []string{
	datagen.ColMaritalStatus, datagen.ColEmploymentStatus, datagen.ColLoanPurpose,
	ColAgeGroup, ColIncomeGroup, ColLoanCategory,
}

// EngineerFeatures bins the numeric columns, one-hot encodes the
// categorical and binned columns, and min-max scales the numeric columns.
// The result keeps the scaled numeric columns and has_default, followed by
// the encoded columns.
func EngineerFeatures(f *frame.Frame) (*frame.Frame, error) {
	f, err := f.DropNA(numericColumns...)
	if err != nil {
		return nil, err
	}

	categories := make(map[string][]string, len(encodedColumns))
	for _, col := range categoricalColumns {
		if categories[col], err = f.Strings(col); err != nil {
			return nil, err
		}
	}
	for _, b := range binnings {
		binner, err := preprocessing.NewBinner(b.edges, b.labels)
		if err != nil {
			return nil, err
		}
		vals, err := f.Floats(b.source)
		if err != nil {
			return nil, err
		}
		categories[b.target] = binner.Transform(vals)
	}

	columns := make([][]string, len(encodedColumns))
	for j, col := range encodedColumns {
		columns[j] = categories[col]
	}
	enc := preprocessing.NewOneHotEncoderDropFirst()
	encoded, err := enc.FitTransform(preprocessing.Rows(columns...))
	if err != nil {
		return nil, err
	}
	encodedFrame, err := frame.FromMatrix(encoded, enc.FeatureNamesOut(encodedColumns))
	if err != nil {
		return nil, err
	}

	X, err := f.Matrix(numericColumns...)
	if err != nil {
		return nil, err
	}
	scaled, err := preprocessing.NewMinMaxScalerDefault().FitTransform(X)
	if err != nil {
		return nil, err
	}
	for j, col := range numericColumns {
		if err := f.Set(frame.NewNumeric(col, mat.Col(nil, j, scaled))); err != nil {
			return nil, err
		}
	}

	f, err = f.Drop(categoricalColumns...)
	if err != nil {
		return nil, err
	}
	return frame.HConcat(f, encodedFrame)
}

// Engineer writes the model-ready table built by EngineerFeatures.
func Engineer(_ context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Cleaned)
	if err != nil {
		return err
	}
	out, err := EngineerFeatures(f)
	if err != nil {
		return err
	}
	if err := writeFrame(out, cfg.Paths.Processed); err != nil {
		return err
	}
	fmt.Fprintf(w, "Feature engineering completed: %d rows, %d columns saved to %s\n",
		out.NRows(), out.NCols(), cfg.Paths.Processed)
	return nil
}

// CheckImbalance reports the share of each class in the processed data and
// plots the class counts.
func CheckImbalance(_ context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Processed)
	if err != nil {
		return err
	}
	y, err := f.Matrix(datagen.ColHasDefault)
	if err != nil {
		return err
	}
	dist := sampling.ClassDistribution(y)
	names := make([]string, len(dist))
	counts := make([]float64, len(dist))
	fmt.Fprintln(w, "Class Distribution:")
	for i, c := range dist {
		fmt.Fprintf(w, "  %g  %.2f%%\n", c.Label, c.Percent)
		names[i] = fmt.Sprintf("%g", c.Label)
		counts[i] = float64(c.Count)
	}
	p, err := viz.Bars("Loan Default Class Distribution", "Has Default (0 = No, 1 = Yes)", "Count",
		names, counts, steelBlue, func(_ int, v float64) string { return fmt.Sprintf("%.0f", v) })
	if err != nil {
		return err
	}
	return viz.Save(p, cfg.PlotPath("Feature_Engineering", "class_distribution.png"), 6*vg.Inch, 4*vg.Inch)
}

// Rebalance oversamples the minority class of the processed data with
// SMOTE and writes the balanced table, has_default last.
func Rebalance(_ context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Processed)
	if err != nil {
		return err
	}
	X, y, features, err := splitTarget(f)
	if err != nil {
		return err
	}
	smote := &sampling.SMOTE{KNeighbors: cfg.SMOTE.KNeighbors, Seed: cfg.Seed}
	xRes, yRes, err := smote.FitResample(X, y)
	if err != nil {
		return err
	}
	out, err := frame.FromMatrix(xRes, features)
	if err != nil {
		return err
	}
	if err := out.Set(frame.NewNumeric(datagen.ColHasDefault, mat.Col(nil, 0, yRes))); err != nil {
		return err
	}

	fmt.Fprint(w, "Class Distribution After SMOTE:")
	for _, c := range sampling.ClassDistribution(yRes) {
		fmt.Fprintf(w, " %g=%d", c.Label, c.Count)
	}
	fmt.Fprintln(w)
	if err := writeFrame(out, cfg.Paths.Balanced); err != nil {
		return err
	}
	fmt.Fprintf(w, "SMOTE applied successfully. Balanced dataset saved to %s\n", cfg.Paths.Balanced)
	return nil
}

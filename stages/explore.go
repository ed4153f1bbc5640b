package stages

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/kari1998/loan-default-prediction/cleaning"
	"github.com/kari1998/loan-default-prediction/datagen"
	"github.com/kari1998/loan-default-prediction/frame"
	"github.com/kari1998/loan-default-prediction/metrics"
	"github.com/kari1998/loan-default-prediction/modelselection"
	"github.com/kari1998/loan-default-prediction/pkg/config"
	"github.com/kari1998/loan-default-prediction/preprocessing"
	"github.com/kari1998/loan-default-prediction/sklearn/linear_model"
	"github.com/kari1998/loan-default-prediction/viz"
)

const histogramBins = 30

// displayName turns loan_amount into "Loan Amount".
func displayName(col string) string {
	words := strings.Split(col, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ExploreUnivariate plots the distribution of every column of the cleaned
// data: histograms and box plots for the numeric ones, bar charts with the
// percentage share of each category for the categorical ones.
func ExploreUnivariate(ctx context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Cleaned)
	if err != nil {
		return err
	}

	hists := make([]*plot.Plot, len(numericColumns))
	boxes := make([]*plot.Plot, len(numericColumns))
	for i, col := range numericColumns {
		vals, err := f.Floats(col)
		if err != nil {
			return err
		}
		name := displayName(col)
		if hists[i], err = viz.Histogram("Distribution of "+name, name, vals, histogramBins, skyBlue); err != nil {
			return err
		}
		if boxes[i], err = viz.BoxPlots("Box Plot of "+name, "", name, []string{name}, [][]float64{vals}, false); err != nil {
			return err
		}
	}
	wide := vg.Length(len(numericColumns)) * 6 * vg.Inch
	if err := viz.SaveGrid(cfg.PlotPath("EDA", "univariate_histograms.png"), [][]*plot.Plot{hists}, wide, 5*vg.Inch); err != nil {
		return err
	}
	if err := viz.SaveGrid(cfg.PlotPath("EDA", "univariate_boxplots.png"), [][]*plot.Plot{boxes}, wide, 5*vg.Inch); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bars := make([]*plot.Plot, len(categoricalColumns))
	for i, col := range categoricalColumns {
		counts, err := f.ValueCounts(col)
		if err != nil {
			return err
		}
		names := make([]string, len(counts))
		values := make([]float64, len(counts))
		total := 0.0
		for k, c := range counts {
			names[k] = c.Value
			values[k] = float64(c.N)
			total += float64(c.N)
		}
		name := displayName(col)
		bars[i], err = viz.Bars("Distribution of "+name, name, "Count", names, values, steelBlue,
			func(_ int, v float64) string { return fmt.Sprintf("%.1f%%", 100*v/total) })
		if err != nil {
			return err
		}
	}
	wide = vg.Length(len(categoricalColumns)) * 6 * vg.Inch
	if err := viz.SaveGrid(cfg.PlotPath("EDA", "univariate_categorical.png"), [][]*plot.Plot{bars}, wide, 5*vg.Inch); err != nil {
		return err
	}
	fmt.Fprintf(w, "Univariate plots saved to %s\n", cfg.PlotPath("EDA"))
	return nil
}

// ExploreBivariate relates each column to has_default: box plots by default
// status for the numeric columns, count charts ordered by default rate for
// the categorical ones, and a table of the default rates.
func ExploreBivariate(ctx context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Cleaned)
	if err != nil {
		return err
	}
	target, err := labels(f)
	if err != nil {
		return err
	}

	for _, col := range numericColumns {
		vals, err := f.Floats(col)
		if err != nil {
			return err
		}
		groups := make([][]float64, 2)
		for i, v := range vals {
			k := int(target[i])
			if k == 0 || k == 1 {
				groups[k] = append(groups[k], v)
			}
		}
		name := displayName(col)
		p, err := viz.BoxPlots(name+" vs Loan Default", "Loan Default (0 = No, 1 = Yes)", name,
			[]string{"0", "1"}, groups, true)
		if err != nil {
			return err
		}
		if err := viz.Save(p, cfg.PlotPath("EDA", "bivariate_"+col+".png"), viz.Width, 5*vg.Inch); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Variable\tCategory\tDefault Rate\tCount")
	for _, col := range categoricalColumns {
		rates, err := f.GroupMean(col, datagen.ColHasDefault)
		if err != nil {
			return err
		}
		sort.SliceStable(rates, func(a, b int) bool { return rates[a].Mean < rates[b].Mean })

		cats, err := f.Strings(col)
		if err != nil {
			return err
		}
		pos := make(map[string]int, len(rates))
		names := make([]string, len(rates))
		for k, g := range rates {
			pos[g.Key] = k
			names[k] = g.Key
			fmt.Fprintf(tw, "%s\t%s\t%.4f\t%d\n", col, g.Key, g.Mean, g.N)
		}
		series := []viz.Series{
			{Name: classNames[0], Values: make([]float64, len(rates))},
			{Name: classNames[1], Values: make([]float64, len(rates))},
		}
		for i, c := range cats {
			k, ok := pos[c]
			if !ok {
				continue
			}
			switch target[i] {
			case 0:
				series[0].Values[k]++
			case 1:
				series[1].Values[k]++
			}
		}
		name := displayName(col)
		p, err := viz.GroupedBars("Loan Default by "+name, name, "Count", names, series)
		if err != nil {
			return err
		}
		if err := viz.Save(p, cfg.PlotPath("EDA", "bivariate_"+col+".png"), 10*vg.Inch, viz.Height); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "Default rates by category:")
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nBivariate analysis completed.")
	return nil
}

// ExploreInteraction studies the pairwise structure of the numeric columns
// and fits a logistic regression on them and their pairwise products.
func ExploreInteraction(ctx context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Cleaned)
	if err != nil {
		return err
	}
	target, err := labels(f)
	if err != nil {
		return err
	}

	cols := make([][]float64, len(numericColumns))
	names := make([]string, len(numericColumns))
	for i, col := range numericColumns {
		if cols[i], err = f.Floats(col); err != nil {
			return err
		}
		names[i] = displayName(col)
	}
	grid, err := viz.PairGrid(names, cols, target)
	if err != nil {
		return err
	}
	if err := viz.SaveGrid(cfg.PlotPath("EDA", "interaction_pairplot.png"), grid, 10*vg.Inch, 10*vg.Inch); err != nil {
		return err
	}
	scatter, err := viz.ScatterByClass("Interaction between Age and Loan Amount by Loan Default Status",
		"Age", "Loan Amount", cols[0], cols[2], target, classNames)
	if err != nil {
		return err
	}
	if err := viz.Save(scatter, cfg.PlotPath("EDA", "interaction_age_loan_amount.png"), 10*vg.Inch, viz.Height); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	X, err := f.Matrix(numericColumns...)
	if err != nil {
		return err
	}
	poly := preprocessing.NewPolynomialFeatures(true, false)
	terms, err := poly.FitTransform(X)
	if err != nil {
		return err
	}
	termNames := poly.FeatureNamesOut(numericColumns)
	y, err := f.Matrix(datagen.ColHasDefault)
	if err != nil {
		return err
	}

	split, err := modelselection.TrainTestSplit(terms, y, modelselection.SplitOptions{
		TestSize: cfg.Split.TestSize,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return err
	}
	lr := linear_model.NewLogisticRegression(
		linear_model.WithLRC(cfg.Models.LogisticC),
		linear_model.WithLRMaxIter(cfg.Models.LogisticIter))
	if err := lr.Fit(split.XTrain, split.YTrain); err != nil {
		return err
	}
	pred, err := lr.Predict(split.XTest)
	if err != nil {
		return err
	}
	yTrue, yPred := metrics.Column(split.YTest, 0), metrics.Column(pred, 0)
	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return err
	}
	report, err := metrics.ClassificationReport(yTrue, yPred)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Model Accuracy: %.4f\n", acc)
	fmt.Fprintf(w, "Classification Report:\n%s\n", report)

	fmt.Fprintln(w, "Logistic Regression Coefficients for Interaction Terms:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for j, name := range termNames {
		fmt.Fprintf(tw, "%s\t%.6g\n", name, lr.Coef[j])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	tf, err := frame.FromMatrix(terms, termNames)
	if err != nil {
		return err
	}
	corr, err := cleaning.Correlation(tf, termNames)
	if err != nil {
		return err
	}
	p, err := viz.Heatmap("Correlation Heatmap with Interaction Terms", termNames, termNames, corr,
		viz.HeatmapOptions{Diverging: true, Bound: 1, Format: "%.2f"})
	if err != nil {
		return err
	}
	return viz.Save(p, cfg.PlotPath("EDA", "interaction_correlation.png"), 10*vg.Inch, 8*vg.Inch)
}


package stages

import (
	"context"
	"fmt"
	"io"

	"github.com/kari1998/loan-default-prediction/cleaning"
	"github.com/kari1998/loan-default-prediction/datagen"
	"github.com/kari1998/loan-default-prediction/pkg/config"
	"github.com/kari1998/loan-default-prediction/viz"
)

// Generate writes the synthetic dataset to the raw path.
func Generate(_ context.Context, cfg *config.Config, w io.Writer) error {
	f, err := datagen.Generate(datagen.Options{
		Samples:     cfg.Generate.Samples,
		DefaultRate: cfg.Generate.DefaultRate,
		Seed:        cfg.Seed,
	})
	if err != nil {
		return err
	}
	if err := writeFrame(f, cfg.Paths.Raw); err != nil {
		return err
	}
	fmt.Fprintf(w, "Dataset saved to %s (%d rows)\n", cfg.Paths.Raw, f.NRows())
	return nil
}

// Check prints a preview, column info, missing values, summary statistics
// and the target distribution of the raw data.
func Check(_ context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Raw)
	if err != nil {
		return err
	}
	return cleaning.Check(w, f, datagen.ColHasDefault)
}

// Clean removes duplicates and the loan id, reports category counts, draws
// the correlation heatmap and writes the cleaned table.
func Clean(ctx context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Raw)
	if err != nil {
		return err
	}
	res, err := cleaning.Clean(f, []string{datagen.ColLoanID}, categoricalColumns)
	if err != nil {
		return err
	}
	if res.Duplicates > 0 {
		fmt.Fprintf(w, "Removed %d duplicate rows.\n", res.Duplicates)
	} else {
		fmt.Fprintln(w, "No duplicates found.")
	}
	for _, col := range categoricalColumns {
		fmt.Fprintf(w, "\nValue counts for %s:\n", col)
		for _, c := range res.ValueCounts[col] {
			fmt.Fprintf(w, "  %-15s %d\n", c.Value, c.N)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := viz.Heatmap("Correlation Matrix", res.NumericNames, res.NumericNames, res.Correlation,
		viz.HeatmapOptions{Diverging: true, Bound: 1, Format: "%.2f"})
	if err != nil {
		return err
	}
	if err := viz.Save(p, cfg.PlotPath("Cleaning", "correlation_matrix.png"), viz.Width, viz.Height); err != nil {
		return err
	}

	if err := writeFrame(res.Frame, cfg.Paths.Cleaned); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nCleaned data saved to %s\n", cfg.Paths.Cleaned)
	return nil
}

// Outliers counts IQR outliers for each numeric column of the cleaned data.
func Outliers(_ context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Cleaned)
	if err != nil {
		return err
	}
	for _, col := range numericColumns {
		o, err := cleaning.DetectOutliers(f, col)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Outliers in %s: %d (bounds %.2f to %.2f)\n", displayName(col), o.Count(), o.Lower, o.Upper)
	}
	return nil
}

package stages

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/kari1998/loan-default-prediction/datagen"
	"github.com/kari1998/loan-default-prediction/frame"
	"github.com/kari1998/loan-default-prediction/pkg/config"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/viz"
)

// DefaulterProfile summarises the rows with has_default = 1.
type DefaulterProfile struct {
	AgeGroup      string
	MaritalStatus string
	AvgLoanAmount float64
	LoanPurpose   string
}

// indicatorTotals sums the one-hot columns encoded from one feature.
type indicatorTotals struct {
	prefix  string
	columns []string
	totals  []float64
}

func sumIndicators(f *frame.Frame, feature string) (indicatorTotals, error) {
	prefix := feature + "_"
	t := indicatorTotals{prefix: prefix, columns: f.ColumnsWithPrefix(prefix)}
	if len(t.columns) == 0 {
		return t, lrErrors.NewColumnError("profile", prefix+"*")
	}
	t.totals = make([]float64, len(t.columns))
	for i, col := range t.columns {
		vals, err := f.Floats(col)
		if err != nil {
			return t, err
		}
		t.totals[i] = floats.Sum(vals)
	}
	return t, nil
}

// top returns the category with the largest total, first one on ties.
func (t indicatorTotals) top() string {
	return strings.TrimPrefix(t.columns[floats.MaxIdx(t.totals)], t.prefix)
}

func (t indicatorTotals) labels() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = strings.TrimPrefix(c, t.prefix)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// ProfileDefaulters builds the likely defaulter profile from a balanced,
// one-hot encoded table. Only categories that kept their indicator column
// can be reported.
func ProfileDefaulters(f *frame.Frame) (*DefaulterProfile, *frame.Frame, error) {
	target, err := labels(f)
	if err != nil {
		return nil, nil, err
	}
	defaulters := f.Filter(func(i int) bool { return target[i] == 1 })
	if defaulters.NRows() == 0 {
		return nil, nil, lrErrors.NewValueError("profile", "no defaulters in data")
	}

	age, err := sumIndicators(defaulters, ColAgeGroup)
	if err != nil {
		return nil, nil, err
	}
	marital, err := sumIndicators(defaulters, datagen.ColMaritalStatus)
	if err != nil {
		return nil, nil, err
	}
	purpose, err := sumIndicators(defaulters, datagen.ColLoanPurpose)
	if err != nil {
		return nil, nil, err
	}
	amounts, err := defaulters.Floats(datagen.ColLoanAmount)
	if err != nil {
		return nil, nil, err
	}

	return &DefaulterProfile{
		AgeGroup:      strings.ReplaceAll(age.top(), "-", " to "),
		MaritalStatus: capitalize(marital.top()),
		AvgLoanAmount: math.Round(floats.Sum(amounts)/float64(len(amounts))*100) / 100,
		LoanPurpose:   capitalize(purpose.top()),
	}, defaulters, nil
}

// Profile prints the likely defaulter profile and plots the defaulters by
// age group, marital status, loan amount and loan purpose.
func Profile(_ context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Balanced)
	if err != nil {
		return err
	}
	prof, defaulters, err := ProfileDefaulters(f)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Likely defaulter profile:")
	fmt.Fprintf(w, "  Likely Defaulter Age Group:              %s\n", prof.AgeGroup)
	fmt.Fprintf(w, "  Likely Defaulter Marital Status:         %s\n", prof.MaritalStatus)
	fmt.Fprintf(w, "  Average Loan Amount for Defaulters:      %.2f\n", prof.AvgLoanAmount)
	fmt.Fprintf(w, "  Most Common Loan Purpose for Defaulters: %s\n", prof.LoanPurpose)

	count := func(_ int, v float64) string { return fmt.Sprintf("%.0f", v) }
	bars := []struct {
		feature, title, xLabel, file string
		fill                     color.Color
	}{
		{ColAgeGroup, "Defaulters by Age Group", "Age Group", "defaulters_age_group.png", skyBlue},
		{datagen.ColMaritalStatus, "Defaulters by Marital Status", "Marital Status", "defaulters_marital_status.png", lightGreen},
		{datagen.ColLoanPurpose, "Defaulters by Loan Purpose", "Loan Purpose", "defaulters_loan_purpose.png", lightBlue},
	}
	for _, b := range bars {
		t, err := sumIndicators(defaulters, b.feature)
		if err != nil {
			return err
		}
		p, err := viz.Bars(b.title, b.xLabel, "Number of Defaulters", t.labels(), t.totals, b.fill, count)
		if err != nil {
			return err
		}
		if err := saveProfilePlot(cfg, p, b.file); err != nil {
			return err
		}
	}

	amounts, err := defaulters.Floats(datagen.ColLoanAmount)
	if err != nil {
		return err
	}
	p, err := viz.Histogram("Distribution of Loan Amounts for Defaulters", "Loan Amount", amounts, 20, coral)
	if err != nil {
		return err
	}
	p.Y.Label.Text = "Frequency"
	return saveProfilePlot(cfg, p, "defaulters_loan_amount.png")
}

func saveProfilePlot(cfg *config.Config, p *plot.Plot, name string) error {
	return viz.Save(p, cfg.PlotPath("Profile", name), viz.Width, 6*vg.Inch)
}

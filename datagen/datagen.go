// Package datagen produces the synthetic loan applications dataset.
package datagen

import (
	"math/rand/v2"

	"github.com/kari1998/loan-default-prediction/frame"
	"github.com/kari1998/loan-default-prediction/pkg/errors"
)

// Category levels.
var (
	LoanPurposes       = []string{"personal", "business", "education", "medical"}
	EmploymentStatuses = []string{"employed", "unemployed", "self-employed"}
	MaritalStatuses    = []string{"single", "married", "divorced"}
)

// Column names of the generated table.
const (
	ColLoanID           = "loan_id"
	ColAge              = "age"
	ColIncome           = "income"
	ColLoanAmount       = "loan_amount"
	ColLoanPurpose      = "loan_purpose"
	ColEmploymentStatus = "employment_status"
	ColMaritalStatus    = "marital_status"
	ColHasDefault       = "has_default"
)

// Options control generation.
type Options struct {
	Samples     int
	DefaultRate float64
	Seed        uint64
}

// DefaultOptions matches the reference dataset: 10000 rows, 20% defaults.
func DefaultOptions() Options {
	return Options{Samples: 10000, DefaultRate: 0.2, Seed: 42}
}

// Generate builds the dataset. The same options always give the same rows.
func Generate(opts Options) (*frame.Frame, error) {
	if opts.Samples <= 0 {
		return nil, errors.NewValidationError("samples", "must be positive", opts.Samples)
	}
	if opts.DefaultRate < 0 || opts.DefaultRate > 1 {
		return nil, errors.NewValidationError("default_rate", "must be within [0, 1]", opts.DefaultRate)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	n := opts.Samples

	ids := make([]float64, n)
	ages := make([]float64, n)
	incomes := make([]float64, n)
	amounts := make([]float64, n)
	purposes := make([]string, n)
	employment := make([]string, n)
	marital := make([]string, n)
	defaults := make([]float64, n)

	for i := 0; i < n; i++ {
		ids[i] = float64(i + 1)
		ages[i] = float64(uniformInt(rng, 18, 70))
		incomes[i] = float64(uniformInt(rng, 20000, 150000))
		amounts[i] = float64(uniformInt(rng, 1000, 50000))
		purposes[i] = LoanPurposes[rng.IntN(len(LoanPurposes))]
		employment[i] = EmploymentStatuses[rng.IntN(len(EmploymentStatuses))]
		marital[i] = MaritalStatuses[rng.IntN(len(MaritalStatuses))]
		if rng.Float64() < opts.DefaultRate {
			defaults[i] = 1
		}
	}

	return frame.New(
		frame.NewNumeric(ColLoanID, ids),
		frame.NewNumeric(ColAge, ages),
		frame.NewNumeric(ColIncome, incomes),
		frame.NewNumeric(ColLoanAmount, amounts),
		frame.NewCategorical(ColLoanPurpose, purposes),
		frame.NewCategorical(ColEmploymentStatus, employment),
		frame.NewCategorical(ColMaritalStatus, marital),
		frame.NewNumeric(ColHasDefault, defaults),
	)
}

// uniformInt draws from [lo, hi).
func uniformInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo)
}

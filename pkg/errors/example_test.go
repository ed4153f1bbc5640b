package errors_test

import (
	"errors"
	"fmt"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// Example_customErrorTypes shows extracting a typed error from a wrapped chain.
func Example_customErrorTypes() {
	dimErr := lrErrors.NewDimensionError("MinMaxScaler.Transform", 3, 5, 1)
	wrapped := fmt.Errorf("engineer stage: %w", dimErr)

	var dimensionErr *lrErrors.DimensionError
	if errors.As(wrapped, &dimensionErr) {
		fmt.Printf("expected %d columns, got %d\n", dimensionErr.Expected, dimensionErr.Got)
	}

	// Output: expected 3 columns, got 5
}

// Example_errorComparison shows sentinel and type checks on package errors.
func Example_errorComparison() {
	notFitted := lrErrors.NewNotFittedError("RandomForestClassifier", "Predict")
	valueErr := lrErrors.NewValueError("SMOTE.FitResample", "minority class has too few samples")

	if errors.Is(notFitted, lrErrors.ErrNotFitted) {
		fmt.Println("not fitted")
	}

	var nf *lrErrors.NotFittedError
	if errors.As(notFitted, &nf) {
		fmt.Printf("%s cannot %s yet\n", nf.ModelName, nf.Method)
	}

	var ve *lrErrors.ValueError
	if errors.As(valueErr, &ve) {
		fmt.Printf("%s: %s\n", ve.Op, ve.Message)
	}

	// Output: not fitted
	// RandomForestClassifier cannot Predict yet
	// SMOTE.FitResample: minority class has too few samples
}

// Example_errorLogging shows the rendered form of a wrapped ModelError.
func Example_errorLogging() {
	baseErr := lrErrors.NewModelError("MLPClassifier", "training diverged", lrErrors.ErrNumerical)
	opErr := fmt.Errorf("epoch 3: %w", baseErr)

	fmt.Println(opErr)

	// Output: epoch 3: loanrisk: MLPClassifier: training diverged: numerical instability
}

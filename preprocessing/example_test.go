package preprocessing_test

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/preprocessing"
)

func ExampleMinMaxScaler() {
	X := mat.NewDense(3, 1, []float64{1000, 25500, 50000})
	scaler := preprocessing.NewMinMaxScalerDefault()
	scaled, _ := scaler.FitTransform(X)
	fmt.Printf("%.2f %.2f %.2f\n", scaled.At(0, 0), scaled.At(1, 0), scaled.At(2, 0))
	// Output: 0.00 0.50 1.00
}

func ExampleBinner() {
	income, _ := preprocessing.NewBinner(
		[]float64{0, 40000, 80000, 120000, 160000, math.Inf(1)},
		[]string{"Low", "Moderate", "Middle", "Upper-Middle", "High"},
	)
	fmt.Println(income.Transform([]float64{39999, 40000, 149000}))
	// Output: [Low Moderate Upper-Middle]
}

// Package modelselection splits datasets into train and test partitions.
package modelselection

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/pkg/errors"
)

// SplitOptions configure TrainTestSplit.
type SplitOptions struct {
	// TestSize is the fraction of rows placed in the test set.
	TestSize float64
	Seed     uint64
	// Stratify keeps the class proportions of y in both partitions.
	Stratify bool
}

// Split holds the four partitions.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense
	TrainIdx      []int
	TestIdx       []int
}

// TrainTestSplit shuffles the rows of X and y (an n x 1 label column) and
// places ceil(TestSize*n) of them in the test set.
func TrainTestSplit(X, y mat.Matrix, opts SplitOptions) (*Split, error) {
	n, _ := X.Dims()
	yRows, yCols := y.Dims()
	if n != yRows {
		return nil, errors.NewDimensionError("TrainTestSplit", n, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError("TrainTestSplit", 1, yCols, 1)
	}
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be within (0, 1)", opts.TestSize)
	}
	nTest := int(math.Ceil(opts.TestSize * float64(n)))
	if nTest >= n {
		return nil, errors.NewValueError("TrainTestSplit",
			"test set would leave no training samples")
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5DEECE66D))
	var trainIdx, testIdx []int
	if opts.Stratify {
		trainIdx, testIdx = stratifiedIndices(y, nTest, rng)
	} else {
		perm := rng.Perm(n)
		testIdx = perm[:nTest]
		trainIdx = perm[nTest:]
	}

	return &Split{
		XTrain:   takeRows(X, trainIdx),
		XTest:    takeRows(X, testIdx),
		YTrain:   takeRows(y, trainIdx),
		YTest:    takeRows(y, testIdx),
		TrainIdx: trainIdx,
		TestIdx:  testIdx,
	}, nil
}

// stratifiedIndices allocates test rows to each class in proportion to its
// size, handing leftover slots to the classes with the largest remainders.
func stratifiedIndices(y mat.Matrix, nTest int, rng *rand.Rand) (train, test []int) {
	n, _ := y.Dims()
	byClass := make(map[float64][]int)
	for i := 0; i < n; i++ {
		byClass[y.At(i, 0)] = append(byClass[y.At(i, 0)], i)
	}
	classes := make([]float64, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Float64s(classes)

	alloc := make([]int, len(classes))
	rem := make([]float64, len(classes))
	assigned := 0
	for i, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		alloc[i] = int(math.Floor(exact))
		rem[i] = exact - float64(alloc[i])
		assigned += alloc[i]
	}
	order := make([]int, len(classes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rem[order[a]] > rem[order[b]] })
	for k := 0; assigned < nTest; k++ {
		alloc[order[k%len(order)]]++
		assigned++
	}

	for i, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		test = append(test, idx[:alloc[i]]...)
		train = append(train, idx[alloc[i]:]...)
	}
	rng.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	return train, test
}

func takeRows(m mat.Matrix, idx []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, j := range idx {
		for k := 0; k < c; k++ {
			out.Set(i, k, m.At(j, k))
		}
	}
	return out
}

package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Split is a disjoint, exhaustive partition of a vector set.
type Split struct {
	Train Vectors
	Test  Vectors

	// TrainIndex and TestIndex hold the positions of each row in the source set.
	TrainIndex []int
	TestIndex  []int
}

// TrainTestSplit shuffles v with seed and cuts it so that ceil(testFraction*n)
// rows land in the evaluation set and the rest in the training set.
func TrainTestSplit(v Vectors, testFraction float64, seed int64) (Split, error) {
	n := v.Len()
	if n == 0 {
		return Split{}, ErrEmptyDataset
	}
	if len(v.Y) != n {
		return Split{}, errors.Errorf("dataset: %d vectors but %d labels", n, len(v.Y))
	}
	if !(testFraction > 0 && testFraction < 1) {
		return Split{}, errors.Wrapf(ErrInvalidFraction, "got %v", testFraction)
	}

	nTest := int(math.Ceil(testFraction * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return Split{}, errors.Errorf("dataset: fraction %v of %d samples leaves an empty partition", testFraction, n)
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	split := Split{
		TestIndex:  append([]int(nil), perm[:nTest]...),
		TrainIndex: append([]int(nil), perm[nTest:]...),
	}
	split.Test = v.subset(split.TestIndex)
	split.Train = v.subset(split.TrainIndex)
	return split, nil
}

func (v Vectors) subset(idx []int) Vectors {
	out := Vectors{
		X:    make([][]float64, len(idx)),
		Y:    make([]int, len(idx)),
		Rows: v.Rows,
		Cols: v.Cols,
	}
	for i, j := range idx {
		out.X[i] = v.X[j]
		out.Y[i] = v.Y[j]
	}
	return out
}

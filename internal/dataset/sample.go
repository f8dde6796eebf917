package dataset

import (
	"github.com/pkg/errors"
)

var (
	// ErrEmptyDataset is returned when a step receives zero samples.
	ErrEmptyDataset = errors.New("dataset: no samples")
	// ErrInconsistentShape is returned when grids do not share one shape.
	ErrInconsistentShape = errors.New("dataset: inconsistent sample shape")
	// ErrInvalidFraction is returned when a split fraction lies outside (0,1).
	ErrInvalidFraction = errors.New("dataset: split fraction must be in (0,1)")
	// ErrLabelRange is returned when a decoded label is not a digit.
	ErrLabelRange = errors.New("dataset: label must be in 0-9")
)

// NumClasses is the size of the closed label set 0-9.
const NumClasses = 10

func checkLabel(label int) error {
	if label < 0 || label >= NumClasses {
		return errors.Wrapf(ErrLabelRange, "got %d", label)
	}
	return nil
}

// Sample is one labeled grid of intensity values.
type Sample struct {
	Key   string
	Grid  [][]float64
	Label int
}

// Dataset is an ordered, read-only collection of samples.
type Dataset struct {
	Name    string
	Samples []Sample
}

// Len returns the number of samples.
func (d Dataset) Len() int {
	return len(d.Samples)
}

// Vectors holds flattened samples in row-major order alongside their labels.
type Vectors struct {
	X    [][]float64
	Y    []int
	Rows int
	Cols int
}

// Len returns the number of vectors.
func (v Vectors) Len() int {
	return len(v.X)
}

// Width is the length of every vector.
func (v Vectors) Width() int {
	return v.Rows * v.Cols
}

// Flatten reinterprets every grid as a row-major vector. All grids must share
// the shape of the first one.
func Flatten(ds Dataset) (Vectors, error) {
	if len(ds.Samples) == 0 {
		return Vectors{}, ErrEmptyDataset
	}
	rows := len(ds.Samples[0].Grid)
	if rows == 0 {
		return Vectors{}, errors.Wrap(ErrInconsistentShape, "first sample has no rows")
	}
	cols := len(ds.Samples[0].Grid[0])
	if cols == 0 {
		return Vectors{}, errors.Wrap(ErrInconsistentShape, "first sample has no columns")
	}

	out := Vectors{
		X:    make([][]float64, len(ds.Samples)),
		Y:    make([]int, len(ds.Samples)),
		Rows: rows,
		Cols: cols,
	}
	for i, s := range ds.Samples {
		if len(s.Grid) != rows {
			return Vectors{}, errors.Wrapf(ErrInconsistentShape, "sample %d has %d rows, want %d", i, len(s.Grid), rows)
		}
		vec := make([]float64, 0, rows*cols)
		for r, row := range s.Grid {
			if len(row) != cols {
				return Vectors{}, errors.Wrapf(ErrInconsistentShape, "sample %d row %d has %d columns, want %d", i, r, len(row), cols)
			}
			vec = append(vec, row...)
		}
		out.X[i] = vec
		out.Y[i] = s.Label
	}
	return out, nil
}

// Unflatten reshapes a row-major vector back into a rows x cols grid.
func Unflatten(vec []float64, rows, cols int) ([][]float64, error) {
	if rows <= 0 || cols <= 0 || len(vec) != rows*cols {
		return nil, errors.Wrapf(ErrInconsistentShape, "cannot reshape %d values into %dx%d", len(vec), rows, cols)
	}
	grid := make([][]float64, rows)
	for r := range grid {
		grid[r] = append([]float64(nil), vec[r*cols:(r+1)*cols]...)
	}
	return grid, nil
}

func newGrid(rows, cols int) [][]float64 {
	grid := make([][]float64, rows)
	for r := range grid {
		grid[r] = make([]float64, cols)
	}
	return grid
}

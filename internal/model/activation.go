package model

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Activation is a hidden-layer nonlinearity. Derive is expressed in terms of
// the activation output, which is all backprop keeps around.
type Activation interface {
	Name() string
	Apply(z *mat.Dense)
	Derive(a, delta *mat.Dense)
}

// ActivationByName returns the activation registered under name.
func ActivationByName(name string) (Activation, error) {
	switch name {
	case "logistic":
		return logistic{}, nil
	case "tanh":
		return tanh{}, nil
	case "relu":
		return relu{}, nil
	case "identity":
		return identity{}, nil
	}
	return nil, errors.Errorf("model: unknown activation %q", name)
}

type logistic struct{}

func (logistic) Name() string { return "logistic" }

func (logistic) Apply(z *mat.Dense) {
	z.Apply(func(_, _ int, v float64) float64 { return 1 / (1 + math.Exp(-v)) }, z)
}

func (logistic) Derive(a, delta *mat.Dense) {
	delta.Apply(func(i, j int, d float64) float64 {
		s := a.At(i, j)
		return d * s * (1 - s)
	}, delta)
}

type tanh struct{}

func (tanh) Name() string { return "tanh" }

func (tanh) Apply(z *mat.Dense) {
	z.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, z)
}

func (tanh) Derive(a, delta *mat.Dense) {
	delta.Apply(func(i, j int, d float64) float64 {
		t := a.At(i, j)
		return d * (1 - t*t)
	}, delta)
}

type relu struct{}

func (relu) Name() string { return "relu" }

func (relu) Apply(z *mat.Dense) {
	z.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, z)
}

func (relu) Derive(a, delta *mat.Dense) {
	delta.Apply(func(i, j int, d float64) float64 {
		if a.At(i, j) <= 0 {
			return 0
		}
		return d
	}, delta)
}

type identity struct{}

func (identity) Name() string { return "identity" }

func (identity) Apply(*mat.Dense) {}

func (identity) Derive(*mat.Dense, *mat.Dense) {}

// softmaxRows replaces every row of z with its softmax.
func softmaxRows(z *mat.Dense) {
	rows, _ := z.Dims()
	for i := 0; i < rows; i++ {
		row := z.RawRowView(i)
		maxLogit := row[0]
		for _, v := range row {
			if v > maxLogit {
				maxLogit = v
			}
		}
		sum := 0.0
		for j, v := range row {
			row[j] = math.Exp(v - maxLogit)
			sum += row[j]
		}
		inv := 1.0 / sum
		for j := range row {
			row[j] *= inv
		}
	}
}

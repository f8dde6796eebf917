package model

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Optimizer applies one gradient update to a list of parameters.
// params[i] and grads[i] must have equal shapes.
type Optimizer interface {
	Name() string
	Update(params, grads []*mat.Dense)
}

// OptimizerByName builds the solver registered under name from p.
func OptimizerByName(name string, p Params) (Optimizer, error) {
	switch name {
	case "sgd":
		return &SGD{LearningRate: p.LearningRate, Momentum: p.Momentum, Nesterov: p.Nesterov}, nil
	case "adam":
		return &Adam{LearningRate: p.LearningRate, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}, nil
	}
	return nil, errors.Errorf("model: unknown solver %q", name)
}

// SGD is stochastic gradient descent with a constant learning rate and
// optional (Nesterov) momentum.
type SGD struct {
	LearningRate float64
	Momentum     float64
	Nesterov     bool

	velocities [][]float64
}

func (o *SGD) Name() string { return "sgd" }

func (o *SGD) Update(params, grads []*mat.Dense) {
	if o.velocities == nil {
		o.velocities = zerosLike(params)
	}
	for i, p := range params {
		v := o.velocities[i]
		g := grads[i].RawMatrix().Data
		// v = momentum*v - lr*g
		floats.Scale(o.Momentum, v)
		floats.AddScaled(v, -o.LearningRate, g)

		w := p.RawMatrix().Data
		if o.Nesterov {
			floats.AddScaled(w, o.Momentum, v)
			floats.AddScaled(w, -o.LearningRate, g)
		} else {
			floats.Add(w, v)
		}
	}
}

// Adam is the adaptive moment estimation solver.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	t      int
	first  [][]float64
	second [][]float64
}

func (o *Adam) Name() string { return "adam" }

func (o *Adam) Update(params, grads []*mat.Dense) {
	if o.first == nil {
		o.first = zerosLike(params)
		o.second = zerosLike(params)
	}
	o.t++
	lr := o.LearningRate * math.Sqrt(1-math.Pow(o.Beta2, float64(o.t))) / (1 - math.Pow(o.Beta1, float64(o.t)))
	for i, p := range params {
		m, v := o.first[i], o.second[i]
		g := grads[i].RawMatrix().Data
		w := p.RawMatrix().Data
		for j, gj := range g {
			m[j] = o.Beta1*m[j] + (1-o.Beta1)*gj
			v[j] = o.Beta2*v[j] + (1-o.Beta2)*gj*gj
			w[j] -= lr * m[j] / (math.Sqrt(v[j]) + o.Epsilon)
		}
	}
}

func zerosLike(params []*mat.Dense) [][]float64 {
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = make([]float64, len(p.RawMatrix().Data))
	}
	return out
}

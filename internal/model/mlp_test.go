package model

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testParams(activation, solver string) Params {
	return Params{
		Hidden:       []int{5},
		Activation:   activation,
		Alpha:        1e-4,
		Solver:       solver,
		LearningRate: 0.1,
		Momentum:     0.9,
		Nesterov:     true,
		Seed:         1,
	}
}

func TestMLPTrainStepReducesLoss(t *testing.T) {
	for _, solver := range []string{"sgd", "adam"} {
		t.Run(solver, func(t *testing.T) {
			mdl, err := NewMLP(testParams("logistic", solver), 4, []int{0, 1, 2})
			require.NoError(t, err)
			batch := Batch{
				Inputs: [][]float64{
					{0.1, 0.2, 0.3, 0.4},
					{0.4, 0.3, 0.2, 0.1},
					{0.9, 0.1, 0.9, 0.1},
				},
				Labels: []int{0, 1, 2},
			}
			first, err := mdl.TrainStep(batch)
			require.NoError(t, err)
			last := first
			for i := 0; i < 50; i++ {
				last, err = mdl.TrainStep(batch)
				require.NoError(t, err)
			}
			assert.Less(t, last, first)
		})
	}
}

func TestMLPLearnsSeparableClasses(t *testing.T) {
	for _, act := range []string{"logistic", "tanh", "relu", "identity"} {
		t.Run(act, func(t *testing.T) {
			mdl, err := NewMLP(testParams(act, "sgd"), 2, []int{3, 8})
			require.NoError(t, err)
			batch := Batch{
				Inputs: [][]float64{{0, 1}, {0.1, 0.9}, {1, 0}, {0.9, 0.1}},
				Labels: []int{3, 3, 8, 8},
			}
			for i := 0; i < 300; i++ {
				_, err := mdl.TrainStep(batch)
				require.NoError(t, err)
			}
			pred, err := mdl.Predict(batch.Inputs)
			require.NoError(t, err)
			assert.Equal(t, batch.Labels, pred)
		})
	}
}

func TestMLPPredictBeforeFit(t *testing.T) {
	mdl, err := NewMLP(testParams("logistic", "sgd"), 2, []int{0, 1})
	require.NoError(t, err)
	_, err = mdl.Predict([][]float64{{1, 2}})
	assert.True(t, errors.Is(err, ErrNotFitted))
}

func TestMLPFittedAndSolver(t *testing.T) {
	for _, solver := range []string{"sgd", "adam"} {
		mdl, err := NewMLP(testParams("logistic", solver), 2, []int{0, 1})
		require.NoError(t, err)
		assert.Equal(t, solver, mdl.Solver())
		assert.False(t, mdl.Fitted())

		_, err = mdl.TrainStep(Batch{Inputs: [][]float64{{0, 1}, {1, 0}}, Labels: []int{0, 1}})
		require.NoError(t, err)
		assert.True(t, mdl.Fitted())
	}
}

func TestMLPRejectsBadInput(t *testing.T) {
	mdl, err := NewMLP(testParams("logistic", "sgd"), 2, []int{0, 1})
	require.NoError(t, err)

	_, err = mdl.TrainStep(Batch{Inputs: [][]float64{{1, 2, 3}}, Labels: []int{0}})
	assert.Error(t, err)
	_, err = mdl.TrainStep(Batch{Inputs: [][]float64{{1, 2}}, Labels: []int{5}})
	assert.Error(t, err)
	_, err = mdl.TrainStep(Batch{})
	assert.Error(t, err)
}

func TestNewMLPValidation(t *testing.T) {
	bad := map[string]func(p *Params){
		"no hidden":     func(p *Params) { p.Hidden = nil },
		"zero width":    func(p *Params) { p.Hidden = []int{0} },
		"activation":    func(p *Params) { p.Activation = "softsign" },
		"solver":        func(p *Params) { p.Solver = "lbfgs" },
		"alpha":         func(p *Params) { p.Alpha = -1 },
		"learning rate": func(p *Params) { p.LearningRate = 0 },
		"momentum":      func(p *Params) { p.Momentum = 2 },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			p := testParams("logistic", "sgd")
			mutate(&p)
			_, err := NewMLP(p, 4, []int{0, 1})
			assert.Error(t, err)
		})
	}

	_, err := NewMLP(testParams("logistic", "sgd"), 4, []int{1})
	assert.Error(t, err)
}

func TestMLPDeterministicInit(t *testing.T) {
	a, err := NewMLP(testParams("relu", "sgd"), 3, []int{0, 1})
	require.NoError(t, err)
	b, err := NewMLP(testParams("relu", "sgd"), 3, []int{0, 1})
	require.NoError(t, err)
	for i := range a.weights {
		assert.True(t, mat.Equal(a.weights[i], b.weights[i]))
	}
	assert.Equal(t, []int{3, 5, 2}, a.Layers())
}

func TestMLPGradientMatchesFiniteDifference(t *testing.T) {
	for _, act := range []string{"logistic", "tanh"} {
		t.Run(act, func(t *testing.T) {
			p := testParams(act, "sgd")
			p.Hidden = []int{3, 2}
			p.Alpha = 0.1
			mdl, err := NewMLP(p, 2, []int{0, 1, 2})
			require.NoError(t, err)

			x := mat.NewDense(3, 2, []float64{0.5, -1, 1.5, 0.2, -0.3, 0.8})
			labels := []int{0, 2, 1}
			y := mat.NewDense(3, 3, nil)
			for i, l := range labels {
				y.Set(i, l, 1)
			}

			loss := func() float64 {
				acts := mdl.forward(x)
				out := acts[len(acts)-1]
				sum := 0.0
				for i, l := range labels {
					sum -= math.Log(out.At(i, l))
				}
				for _, w := range mdl.weights {
					sum += 0.5 * p.Alpha * mat.Sum(elemSquare(w))
				}
				return sum / 3
			}

			params, grads := mdl.backward(mdl.forward(x), y)
			const eps = 1e-6
			for k, param := range params {
				r, c := param.Dims()
				for i := 0; i < r; i++ {
					for j := 0; j < c; j++ {
						orig := param.At(i, j)
						param.Set(i, j, orig+eps)
						up := loss()
						param.Set(i, j, orig-eps)
						down := loss()
						param.Set(i, j, orig)
						numeric := (up - down) / (2 * eps)
						assert.InDelta(t, numeric, grads[k].At(i, j), 1e-6, "param %d (%d,%d)", k, i, j)
					}
				}
			}
		})
	}
}

func TestClasses(t *testing.T) {
	assert.Equal(t, []int{0, 2, 9}, Classes([]int{9, 2, 2, 0, 9}))
	assert.Empty(t, Classes(nil))
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	z := mat.NewDense(2, 3, []float64{1, 2, 3, 1000, 1000, 1000})
	softmaxRows(z)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1.0, mat.Sum(z.RowView(i)), 1e-12)
	}
	assert.InDelta(t, 1.0/3, z.At(1, 0), 1e-12)
}

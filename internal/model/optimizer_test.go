package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSGDPlainStep(t *testing.T) {
	w := mat.NewDense(1, 2, []float64{1, 2})
	g := mat.NewDense(1, 2, []float64{0.5, -1})
	opt := &SGD{LearningRate: 0.1}
	opt.Update([]*mat.Dense{w}, []*mat.Dense{g})
	assert.InDeltaSlice(t, []float64{0.95, 2.1}, w.RawMatrix().Data, 1e-12)
}

func TestSGDNesterovMomentum(t *testing.T) {
	w := mat.NewDense(1, 1, []float64{0})
	g := mat.NewDense(1, 1, []float64{1})
	opt := &SGD{LearningRate: 0.1, Momentum: 0.9, Nesterov: true}

	// v1 = -0.1, w1 = 0.9*v1 - 0.1 = -0.19
	opt.Update([]*mat.Dense{w}, []*mat.Dense{g})
	assert.InDelta(t, -0.19, w.At(0, 0), 1e-12)

	// v2 = 0.9*-0.1 - 0.1 = -0.19, w2 = w1 + 0.9*v2 - 0.1 = -0.461
	opt.Update([]*mat.Dense{w}, []*mat.Dense{g})
	assert.InDelta(t, -0.461, w.At(0, 0), 1e-12)
}

func TestAdamFirstStepIsLearningRate(t *testing.T) {
	w := mat.NewDense(1, 2, []float64{0, 0})
	g := mat.NewDense(1, 2, []float64{3, -0.01})
	opt, err := OptimizerByName("adam", Params{LearningRate: 0.01})
	require.NoError(t, err)
	opt.Update([]*mat.Dense{w}, []*mat.Dense{g})
	assert.InDelta(t, -0.01, w.At(0, 0), 1e-6)
	assert.InDelta(t, 0.01, w.At(0, 1), 1e-5)
}

func TestOptimizerByNameUnknown(t *testing.T) {
	_, err := OptimizerByName("rmsprop", Params{})
	assert.Error(t, err)
}

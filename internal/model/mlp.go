package model

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const probFloor = 1e-10

// Params are the MLP hyperparameters.
type Params struct {
	Hidden       []int
	Activation   string
	Alpha        float64
	Solver       string
	LearningRate float64
	Momentum     float64
	Nesterov     bool
	Seed         int64
}

// Validate reports the first unusable hyperparameter.
func (p Params) Validate() error {
	if len(p.Hidden) == 0 {
		return errors.New("model: at least one hidden layer is required")
	}
	for i, h := range p.Hidden {
		if h <= 0 {
			return errors.Errorf("model: hidden layer %d width must be > 0 (got %d)", i, h)
		}
	}
	if _, err := ActivationByName(p.Activation); err != nil {
		return err
	}
	if _, err := OptimizerByName(p.Solver, p); err != nil {
		return err
	}
	if p.Alpha < 0 {
		return errors.Errorf("model: alpha must be >= 0 (got %v)", p.Alpha)
	}
	if p.LearningRate <= 0 {
		return errors.Errorf("model: learning rate must be > 0 (got %v)", p.LearningRate)
	}
	if p.Momentum < 0 || p.Momentum > 1 {
		return errors.Errorf("model: momentum must be in [0,1] (got %v)", p.Momentum)
	}
	return nil
}

// MLP is a fully connected feed-forward classifier with softmax output and
// cross-entropy loss.
type MLP struct {
	params  Params
	inputs  int
	classes []int
	index   map[int]int

	act     Activation
	opt     Optimizer
	weights []*mat.Dense // fanIn x fanOut
	biases  []*mat.Dense // 1 x fanOut

	fitted bool
}

// Classes returns the sorted distinct values of labels.
func Classes(labels []int) []int {
	seen := make(map[int]struct{}, len(labels))
	var out []int
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// NewMLP builds an untrained network for vectors of length inputs and the
// given label set. Weights are Glorot-uniform, seeded by p.Seed.
func NewMLP(p Params, inputs int, classes []int) (*MLP, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if inputs <= 0 {
		return nil, errors.Errorf("model: input width must be > 0 (got %d)", inputs)
	}
	if len(classes) < 2 {
		return nil, errors.Errorf("model: need at least 2 classes (got %d)", len(classes))
	}
	act, _ := ActivationByName(p.Activation)
	opt, _ := OptimizerByName(p.Solver, p)

	m := &MLP{
		params:  p,
		inputs:  inputs,
		classes: append([]int(nil), classes...),
		index:   make(map[int]int, len(classes)),
		act:     act,
		opt:     opt,
	}
	for i, c := range m.classes {
		if _, dup := m.index[c]; dup {
			return nil, errors.Errorf("model: duplicate class %d", c)
		}
		m.index[c] = i
	}

	factor := 6.0
	if act.Name() == "logistic" {
		factor = 2.0
	}
	rng := rand.New(rand.NewSource(p.Seed))
	sizes := append(append([]int{inputs}, p.Hidden...), len(classes))
	for l := 0; l+1 < len(sizes); l++ {
		fanIn, fanOut := sizes[l], sizes[l+1]
		bound := math.Sqrt(factor / float64(fanIn+fanOut))
		m.weights = append(m.weights, uniform(rng, fanIn, fanOut, bound))
		m.biases = append(m.biases, uniform(rng, 1, fanOut, bound))
	}
	return m, nil
}

func uniform(rng *rand.Rand, r, c int, bound float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * bound
	}
	return mat.NewDense(r, c, data)
}

// Classes returns the label set the network predicts over.
func (m *MLP) Classes() []int {
	return append([]int(nil), m.classes...)
}

// Layers returns the sizes of every layer, input and output included.
func (m *MLP) Layers() []int {
	sizes := []int{m.inputs}
	for _, w := range m.weights {
		_, c := w.Dims()
		sizes = append(sizes, c)
	}
	return sizes
}

// Fitted reports whether at least one training step has run.
func (m *MLP) Fitted() bool {
	return m.fitted
}

// Solver returns the name of the optimizer applying updates.
func (m *MLP) Solver() string {
	return m.opt.Name()
}

// TrainStep runs forward and backward passes over batch and applies one
// optimizer update.
func (m *MLP) TrainStep(batch Batch) (float64, error) {
	n := len(batch.Inputs)
	if n == 0 {
		return 0, errors.New("model: empty batch")
	}
	if len(batch.Labels) != n {
		return 0, errors.Errorf("model: %d inputs but %d labels", n, len(batch.Labels))
	}
	x, err := m.matrix(batch.Inputs)
	if err != nil {
		return 0, err
	}
	y := mat.NewDense(n, len(m.classes), nil)
	for i, label := range batch.Labels {
		c, ok := m.index[label]
		if !ok {
			return 0, errors.Errorf("model: label %d is not one of %v", label, m.classes)
		}
		y.Set(i, c, 1)
	}

	acts := m.forward(x)
	out := acts[len(acts)-1]

	loss := 0.0
	for i := 0; i < n; i++ {
		loss -= math.Log(math.Max(out.At(i, m.index[batch.Labels[i]]), probFloor))
	}
	penalty := 0.0
	for _, w := range m.weights {
		penalty += mat.Sum(elemSquare(w))
	}
	loss = (loss + 0.5*m.params.Alpha*penalty) / float64(n)

	params, grads := m.backward(acts, y)
	m.opt.Update(params, grads)
	m.fitted = true
	return loss, nil
}

// PredictProba returns one row of class probabilities per input, in the
// order of Classes.
func (m *MLP) PredictProba(inputs [][]float64) (*mat.Dense, error) {
	if !m.Fitted() {
		return nil, ErrNotFitted
	}
	if len(inputs) == 0 {
		return nil, errors.New("model: no inputs")
	}
	x, err := m.matrix(inputs)
	if err != nil {
		return nil, err
	}
	acts := m.forward(x)
	return acts[len(acts)-1], nil
}

// Predict returns the most probable class for each input.
func (m *MLP) Predict(inputs [][]float64) ([]int, error) {
	probs, err := m.PredictProba(inputs)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(inputs))
	for i := range out {
		row := probs.RawRowView(i)
		best := 0
		for j, p := range row {
			if p > row[best] {
				best = j
			}
		}
		out[i] = m.classes[best]
	}
	return out, nil
}

func (m *MLP) matrix(inputs [][]float64) (*mat.Dense, error) {
	x := mat.NewDense(len(inputs), m.inputs, nil)
	for i, in := range inputs {
		if len(in) != m.inputs {
			return nil, errors.Errorf("model: input %d has %d features, want %d", i, len(in), m.inputs)
		}
		x.SetRow(i, in)
	}
	return x, nil
}

// forward returns the activations of every layer, acts[0] being x itself.
func (m *MLP) forward(x *mat.Dense) []*mat.Dense {
	acts := make([]*mat.Dense, 0, len(m.weights)+1)
	acts = append(acts, x)
	last := len(m.weights) - 1
	for l, w := range m.weights {
		z := &mat.Dense{}
		z.Mul(acts[l], w)
		bias := m.biases[l].RawRowView(0)
		z.Apply(func(_, j int, v float64) float64 { return v + bias[j] }, z)
		if l == last {
			softmaxRows(z)
		} else {
			m.act.Apply(z)
		}
		acts = append(acts, z)
	}
	return acts
}

// backward returns parameters and matching gradients, weights first then
// biases, for the batch whose activations are acts and one-hot targets y.
func (m *MLP) backward(acts []*mat.Dense, y *mat.Dense) ([]*mat.Dense, []*mat.Dense) {
	n, _ := y.Dims()
	scale := 1 / float64(n)
	layers := len(m.weights)
	wGrads := make([]*mat.Dense, layers)
	bGrads := make([]*mat.Dense, layers)

	// softmax with cross-entropy: dL/dz = p - y
	delta := &mat.Dense{}
	delta.Sub(acts[layers], y)

	for l := layers - 1; l >= 0; l-- {
		gw := &mat.Dense{}
		gw.Mul(acts[l].T(), delta)
		gw.Apply(func(i, j int, v float64) float64 {
			return (v + m.params.Alpha*m.weights[l].At(i, j)) * scale
		}, gw)
		wGrads[l] = gw

		_, c := delta.Dims()
		gb := mat.NewDense(1, c, nil)
		for j := 0; j < c; j++ {
			gb.Set(0, j, mat.Sum(delta.ColView(j))*scale)
		}
		bGrads[l] = gb

		if l > 0 {
			next := &mat.Dense{}
			next.Mul(delta, m.weights[l].T())
			m.act.Derive(acts[l], next)
			delta = next
		}
	}

	params := append(append([]*mat.Dense{}, m.weights...), m.biases...)
	grads := append(wGrads, bGrads...)
	return params, grads
}

func elemSquare(w *mat.Dense) *mat.Dense {
	sq := &mat.Dense{}
	sq.MulElem(w, w)
	return sq
}

package model

import "github.com/pkg/errors"

// ErrNotFitted is returned when inference is requested before any training step.
var ErrNotFitted = errors.New("model: classifier has not been fitted")

// Batch represents a minibatch of features and labels.
type Batch struct {
	Inputs [][]float64
	Labels []int
}

// Classifier maps feature vectors to labels.
type Classifier interface {
	Predict(inputs [][]float64) ([]int, error)
}

// Model is a Classifier that can be trained one minibatch at a time.
type Model interface {
	Classifier
	// TrainStep updates the model on batch and returns its regularised loss.
	TrainStep(batch Batch) (float64, error)
}

package trainer

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"digitforge/internal/dataset"
	"digitforge/internal/metrics"
	"digitforge/internal/model"
)

const (
	defaultMaxIter       = 200
	defaultNIterNoChange = 10
	maxAutoBatch         = 200
)

// Options captures the knobs required by the training loop.
type Options struct {
	MaxIter       int
	Tol           float64
	NIterNoChange int
	// BatchSize of 0 selects min(200, n).
	BatchSize int
	Seed      int64
	Verbose   bool
	Logger    *zap.SugaredLogger
}

// Result summarises a completed fit.
type Result struct {
	Iterations int
	LossCurve  []float64
	BestLoss   float64
	// Converged is false when MaxIter was reached before the loss settled.
	Converged bool
	Elapsed   time.Duration
}

// Fit trains mdl on data, one shuffled pass per iteration, until the loss
// stops improving by more than Tol for NIterNoChange consecutive iterations
// or MaxIter iterations have run.
func Fit(ctx context.Context, mdl model.Model, data dataset.Vectors, opts Options) (*Result, error) {
	n := data.Len()
	if n == 0 {
		return nil, dataset.ErrEmptyDataset
	}
	if len(data.Y) != n {
		return nil, errors.Errorf("trainer: %d inputs but %d labels", n, len(data.Y))
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = defaultMaxIter
	}
	if opts.NIterNoChange <= 0 {
		opts.NIterNoChange = defaultNIterNoChange
	}
	if opts.Tol < 0 {
		return nil, errors.Errorf("trainer: tol must be >= 0 (got %v)", opts.Tol)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = maxAutoBatch
	}
	if batchSize > n {
		batchSize = n
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	progress := logger.Debugf
	if opts.Verbose {
		progress = logger.Infof
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	res := &Result{BestLoss: math.Inf(1)}
	start := time.Now()
	var window metrics.Window
	noImprovement := 0

	for iter := 1; iter <= opts.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		for lo := 0; lo < n; lo += batchSize {
			hi := lo + batchSize
			if hi > n {
				hi = n
			}
			startData := time.Now()
			batch := gather(data, order[lo:hi])
			dataTime := time.Since(startData)

			startCompute := time.Now()
			loss, err := mdl.TrainStep(batch)
			if err != nil {
				return nil, errors.Wrapf(err, "iteration %d", iter)
			}
			computeTime := time.Since(startCompute)

			window.Record(hi-lo, dataTime, computeTime, loss)
		}

		snap := window.Snapshot()
		loss := snap.MeanLoss
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, errors.Errorf("trainer: loss diverged at iteration %d", iter)
		}
		res.Iterations = iter
		res.LossCurve = append(res.LossCurve, loss)
		progress("Iteration %d, loss = %.8f", iter, loss)
		logger.Debugw("iteration stats",
			"iteration", iter,
			"samples_per_sec", snap.SamplesPerSec,
			"data_ms", snap.AvgDataMS,
			"compute_ms", snap.AvgComputeMS,
		)

		if loss > res.BestLoss-opts.Tol {
			noImprovement++
		} else {
			noImprovement = 0
		}
		if loss < res.BestLoss {
			res.BestLoss = loss
		}
		if noImprovement > opts.NIterNoChange {
			progress("Training loss did not improve more than tol=%f for %d consecutive epochs. Stopping.",
				opts.Tol, opts.NIterNoChange)
			res.Converged = true
			break
		}
	}

	if !res.Converged {
		logger.Warnf("Stochastic Optimizer: Maximum iterations (%d) reached and the optimization hasn't converged yet.",
			opts.MaxIter)
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func gather(data dataset.Vectors, idx []int) model.Batch {
	inputs := make([][]float64, len(idx))
	labels := make([]int, len(idx))
	for i, j := range idx {
		inputs[i] = data.X[j]
		labels[i] = data.Y[j]
	}
	return model.Batch{Inputs: inputs, Labels: labels}
}

// Package pipeline runs the digit classification workflow end to end:
// load, flatten, split, fit, predict, score, report and preview.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"digitforge/internal/config"
	"digitforge/internal/dataset"
	"digitforge/internal/metrics"
	"digitforge/internal/model"
	"digitforge/internal/preview"
	"digitforge/internal/trainer"
)

// Result holds every value object the run produced.
type Result struct {
	Split       dataset.Split
	SplitSeed   int64
	Model       *model.MLP
	Fit         *trainer.Result
	Predictions []int
	Accuracy    float64
	Report      *metrics.Report
}

// Run executes the workflow described by cfg and writes the accuracy line
// and classification report to out.
func Run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, out io.Writer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	log := logger.Named("pipeline")

	ds, err := dataset.Load(ctx, dataset.Source(cfg.Data.Source), cfg.Data.Path, cfg.Data.URL)
	if err != nil {
		return nil, errors.Wrap(err, "load dataset")
	}
	log.Infow("dataset loaded", "name", ds.Name, "samples", ds.Len())

	res, err := Evaluate(ctx, ds, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := res.Report.WriteSummary(out); err != nil {
		return nil, errors.Wrap(err, "write report")
	}
	for _, w := range res.Report.Warnings {
		log.Warn(w)
	}

	if cfg.Preview.Path != "" && cfg.Preview.Count > 0 {
		if err := writePreview(cfg.Preview, res); err != nil {
			return nil, err
		}
		log.Infow("preview written",
			"path", cfg.Preview.Path,
			"predictions", res.Predictions[:min(cfg.Preview.Count, len(res.Predictions))],
		)
	}
	return res, nil
}

// Evaluate runs every step after loading on an in-memory dataset.
func Evaluate(ctx context.Context, ds dataset.Dataset, cfg *config.Config, logger *zap.SugaredLogger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	log := logger.Named("pipeline")

	vectors, err := dataset.Flatten(ds)
	if err != nil {
		return nil, errors.Wrap(err, "flatten")
	}

	seed := cfg.Split.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	split, err := dataset.TrainTestSplit(vectors, cfg.Split.TestFraction, seed)
	if err != nil {
		return nil, errors.Wrap(err, "split")
	}
	log.Infow("split",
		"seed", seed,
		"train", split.Train.Len(),
		"test", split.Test.Len(),
		"features", vectors.Width(),
	)

	mdl, err := model.NewMLP(cfg.MLP.Params(), vectors.Width(), model.Classes(split.Train.Y))
	if err != nil {
		return nil, errors.Wrap(err, "build classifier")
	}
	fit, err := trainer.Fit(ctx, mdl, split.Train, trainer.Options{
		MaxIter:       cfg.MLP.MaxIter,
		Tol:           cfg.MLP.Tol,
		NIterNoChange: cfg.MLP.NIterNoChange,
		BatchSize:     cfg.MLP.BatchSize,
		Seed:          cfg.MLP.Seed,
		Verbose:       cfg.MLP.Verbose,
		Logger:        logger.Named("trainer"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "fit")
	}
	log.Infow("fit complete",
		"layers", mdl.Layers(),
		"solver", mdl.Solver(),
		"iterations", fit.Iterations,
		"best_loss", fit.BestLoss,
		"converged", fit.Converged,
		"elapsed", fit.Elapsed,
	)

	preds, err := mdl.Predict(split.Test.X)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	acc, err := metrics.Accuracy(split.Test.Y, preds)
	if err != nil {
		return nil, errors.Wrap(err, "score")
	}
	report, err := metrics.Classify(split.Test.Y, preds)
	if err != nil {
		return nil, errors.Wrap(err, "score")
	}

	return &Result{
		Split:       split,
		SplitSeed:   seed,
		Model:       mdl,
		Fit:         fit,
		Predictions: preds,
		Accuracy:    acc,
		Report:      report,
	}, nil
}

func writePreview(cfg config.PreviewConfig, res *Result) error {
	n := cfg.Count
	if n > len(res.Predictions) {
		n = len(res.Predictions)
	}
	test := res.Split.Test
	maxIntensity := 0.0
	for _, vec := range test.X {
		for _, v := range vec {
			if v > maxIntensity {
				maxIntensity = v
			}
		}
	}
	if maxIntensity == 0 {
		maxIntensity = 1
	}

	tiles := make([]preview.Tile, 0, n)
	for i := 0; i < n; i++ {
		grid, err := dataset.Unflatten(test.X[i], test.Rows, test.Cols)
		if err != nil {
			return err
		}
		tiles = append(tiles, preview.Tile{Grid: grid, Prediction: res.Predictions[i]})
	}
	return preview.WriteFile(cfg.Path, tiles, maxIntensity)
}

package dataset

import (
	"context"

	"github.com/pkg/errors"
)

// Source names where samples come from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceCSV     Source = "csv"
	SourceShards  Source = "shards"
)

// Load returns the dataset for src. For SourceBuiltin path is the data home
// the digits set is cached in and url is where a missing copy is fetched
// from; url is ignored by the other sources.
func Load(ctx context.Context, src Source, path, url string) (Dataset, error) {
	var (
		ds  Dataset
		err error
	)
	switch src {
	case SourceBuiltin, "":
		ds, err = Digits(ctx, path, url)
	case SourceCSV:
		ds, err = LoadOptDigits(path)
	case SourceShards:
		ds, err = LoadShards(ctx, path)
	default:
		return Dataset{}, errors.Errorf("dataset: unknown source %q", src)
	}
	if err != nil {
		return Dataset{}, err
	}
	if ds.Len() == 0 {
		return Dataset{}, errors.Wrapf(ErrEmptyDataset, "source %s", src)
	}
	return ds, nil
}

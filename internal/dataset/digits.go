package dataset

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// DigitsSize is the edge length of a digit grid.
	DigitsSize = 8
	// DigitsCount is the number of samples in the handwritten digits set.
	DigitsCount = 1797
	// DigitsMaxIntensity is the largest intensity value in a digit grid.
	DigitsMaxIntensity = 16
	// DigitsFile is the name of the cached copy inside the data home.
	DigitsFile = "digits.csv.gz"

	// DigitsURL serves the UCI handwritten digits test set as published with
	// scikit-learn: gzip-compressed, 64 intensities then the label per line.
	DigitsURL = "https://raw.githubusercontent.com/scikit-learn/scikit-learn/1.5.0/sklearn/datasets/data/digits.csv.gz"

	maxDigitsDownload = 16 << 20
)

// DefaultDataHome returns the directory the digits set is cached in when
// none is configured.
func DefaultDataHome() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "digitforge")
}

// Digits returns the 1797 handwritten 8x8 digits with integer intensities in
// [0,16]. It reads DigitsFile from home and, when no copy is cached yet,
// downloads it from url, checks it decodes to the full set and caches it.
func Digits(ctx context.Context, home, url string) (Dataset, error) {
	if home == "" {
		home = DefaultDataHome()
	}
	path := filepath.Join(home, DigitsFile)

	raw, err := os.ReadFile(path)
	if err == nil {
		ds, err := DecodeDigits(bytes.NewReader(raw))
		if err != nil {
			return Dataset{}, errors.Wrapf(err, "cached %s", path)
		}
		return ds, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Dataset{}, errors.Wrap(err, "read digits cache")
	}

	raw, err = fetchDigits(ctx, url)
	if err != nil {
		return Dataset{}, err
	}
	ds, err := DecodeDigits(bytes.NewReader(raw))
	if err != nil {
		return Dataset{}, errors.Wrapf(err, "download %s", url)
	}
	if err := writeCache(path, raw); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// DecodeDigits reads a gzip-compressed digits file and checks it holds the
// complete set.
func DecodeDigits(r io.Reader) (Dataset, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return Dataset{}, errors.Wrap(err, "open gzip")
	}
	defer zr.Close()

	ds, err := ParseOptDigits(zr)
	if err != nil {
		return Dataset{}, err
	}
	if ds.Len() != DigitsCount {
		return Dataset{}, errors.Wrapf(ErrInconsistentShape, "got %d digits, want %d", ds.Len(), DigitsCount)
	}
	ds.Name = "digits"
	for i := range ds.Samples {
		ds.Samples[i].Key = fmt.Sprintf("digit-%04d", i)
	}
	return ds, nil
}

func fetchDigits(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("dataset: digits are not cached and no download url is set")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build digits request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download digits")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("download digits: %s returned %s", url, resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDigitsDownload))
	if err != nil {
		return nil, errors.Wrap(err, "download digits")
	}
	return raw, nil
}

// writeCache renames a finished temp file into place so a partial download
// is never read back.
func writeCache(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create data home")
	}
	tmp, err := os.CreateTemp(dir, ".digits-*")
	if err != nil {
		return errors.Wrap(err, "cache digits")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "cache digits")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "cache digits")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "cache digits")
}

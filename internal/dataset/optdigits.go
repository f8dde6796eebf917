package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LoadOptDigits reads a file in the UCI optdigits layout: one sample per
// line, DigitsSize*DigitsSize intensities followed by the label. Values may
// be written as integers or in exponent form ("1.6e+01").
func LoadOptDigits(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, errors.Wrap(err, "open optdigits")
	}
	defer f.Close()

	ds, err := ParseOptDigits(f)
	if err != nil {
		return Dataset{}, errors.Wrapf(err, "parse %s", path)
	}
	return ds, nil
}

// ParseOptDigits decodes optdigits records from r.
func ParseOptDigits(r io.Reader) (Dataset, error) {
	const width = DigitsSize * DigitsSize

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = width + 1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	ds := Dataset{Name: "optdigits"}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Dataset{}, errors.Wrapf(ErrInconsistentShape, "record %d: %v", line, err)
		}

		values := make([]float64, width)
		for i := 0; i < width; i++ {
			v, err := parseValue(rec[i])
			if err != nil {
				return Dataset{}, errors.Wrapf(err, "record %d: column %d", line, i)
			}
			values[i] = v
		}
		label, err := parseLabel(rec[width])
		if err != nil {
			return Dataset{}, errors.Wrapf(err, "record %d: label", line)
		}

		grid, err := Unflatten(values, DigitsSize, DigitsSize)
		if err != nil {
			return Dataset{}, err
		}
		ds.Samples = append(ds.Samples, Sample{
			Key:   fmt.Sprintf("optdigits-%05d", line),
			Grid:  grid,
			Label: label,
		})
	}
	return ds, nil
}

func parseValue(field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("non-finite value %q", field)
	}
	return v, nil
}

func parseLabel(field string) (int, error) {
	v, err := parseValue(field)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, errors.Errorf("label %q is not an integer", field)
	}
	if v < 0 || v >= NumClasses {
		return 0, errors.Wrapf(ErrLabelRange, "got %s", strings.TrimSpace(field))
	}
	return int(v), nil
}

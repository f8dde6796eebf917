package dataset

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrPendingOverflow indicates the pairing map exceeded the configured bound.
var ErrPendingOverflow = errors.New("webdataset: pending pair buffer exceeded")

const defaultPendingCap = 1024

// ReadShard reads every image/label pair from the tar shard at path and
// downsamples each image to a DigitsSize grid scaled to [0,DigitsMaxIntensity].
// Samples are returned sorted by key.
func ReadShard(ctx context.Context, path string, pendingCap int) ([]Sample, error) {
	if pendingCap <= 0 {
		pendingCap = defaultPendingCap
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open shard")
	}
	defer f.Close()

	tr := tar.NewReader(bufio.NewReader(f))
	pending := make(pairs)
	var samples []Sample

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read tar")
		}
		if hdr.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(hdr.Name)
		ext := strings.ToLower(filepath.Ext(name))
		key := strings.TrimSuffix(name, ext)

		switch ext {
		case ".jpg", ".jpeg", ".png":
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, errors.Wrapf(err, "read image %s", name)
			}
			grid, err := DecodeGrid(data, DigitsSize)
			if err != nil {
				return nil, errors.Wrapf(err, "decode image %s", name)
			}
			pending.get(key).grid = grid
		case ".cls":
			payload, err := io.ReadAll(tr)
			if err != nil {
				return nil, errors.Wrapf(err, "read label %s", name)
			}
			label, err := strconv.Atoi(strings.TrimSpace(string(payload)))
			if err != nil {
				return nil, errors.Wrapf(err, "parse label %s", name)
			}
			if err := checkLabel(label); err != nil {
				return nil, errors.Wrapf(err, "label %s", name)
			}
			pending.get(key).label = &label
		default:
			continue
		}

		if len(pending) > pendingCap {
			return nil, ErrPendingOverflow
		}

		if part := pending[key]; part.ready() {
			samples = append(samples, Sample{Key: key, Grid: part.grid, Label: *part.label})
			delete(pending, key)
		}
	}

	if len(pending) > 0 {
		return nil, errors.Errorf("%d samples incomplete in %s", len(pending), path)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Key < samples[j].Key })
	return samples, nil
}

// DecodeGrid decodes an encoded image and samples it on a size x size grid
// of mean RGB intensity, inverted so that dark ink maps to high values.
func DecodeGrid(raw []byte, size int) ([][]float64, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, errors.New("empty image")
	}
	grid := newGrid(size, size)
	stepX := float64(width) / float64(size)
	stepY := float64(height) / float64(size)
	for gy := 0; gy < size; gy++ {
		for gx := 0; gx < size; gx++ {
			px := bounds.Min.X + int(math.Min(float64(width-1), float64(gx)*stepX))
			py := bounds.Min.Y + int(math.Min(float64(height-1), float64(gy)*stepY))
			r, g, b, _ := img.At(px, py).RGBA()
			intensity := (float64(r) + float64(g) + float64(b)) / (3 * 65535.0)
			grid[gy][gx] = math.Round((1 - intensity) * DigitsMaxIntensity)
		}
	}
	return grid, nil
}

type partial struct {
	grid  [][]float64
	label *int
}

func (p *partial) ready() bool {
	return p != nil && len(p.grid) > 0 && p.label != nil
}

type pairs map[string]*partial

func (p pairs) get(key string) *partial {
	part := p[key]
	if part == nil {
		part = &partial{}
		p[key] = part
	}
	return part
}

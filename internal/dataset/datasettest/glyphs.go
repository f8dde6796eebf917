// Package datasettest builds small labeled digit fixtures for tests that
// must not depend on the downloaded handwritten set.
package datasettest

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"digitforge/internal/dataset"
)

const size = dataset.DigitsSize

var glyphs = [10][size]string{
	{
		"..####..",
		".##..##.",
		".#....#.",
		".#....#.",
		".#....#.",
		".#....#.",
		".##..##.",
		"..####..",
	},
	{
		"...##...",
		"..###...",
		".#.##...",
		"...##...",
		"...##...",
		"...##...",
		"...##...",
		".######.",
	},
	{
		"..####..",
		".#....#.",
		"......#.",
		".....#..",
		"....#...",
		"...#....",
		"..#.....",
		".######.",
	},
	{
		"..####..",
		".#....#.",
		"......#.",
		"...###..",
		"......#.",
		"......#.",
		".#....#.",
		"..####..",
	},
	{
		"....##..",
		"...#.#..",
		"..#..#..",
		".#...#..",
		".######.",
		".....#..",
		".....#..",
		".....#..",
	},
	{
		".######.",
		".#......",
		".#......",
		".#####..",
		"......#.",
		"......#.",
		".#....#.",
		"..####..",
	},
	{
		"...###..",
		"..#.....",
		".#......",
		".#####..",
		".#....#.",
		".#....#.",
		".#....#.",
		"..####..",
	},
	{
		".######.",
		"......#.",
		".....#..",
		"....#...",
		"...#....",
		"...#....",
		"...#....",
		"...#....",
	},
	{
		"..####..",
		".#....#.",
		".#....#.",
		"..####..",
		".#....#.",
		".#....#.",
		".#....#.",
		"..####..",
	},
	{
		"..####..",
		".#....#.",
		".#....#.",
		".#....#.",
		"..#####.",
		"......#.",
		".....#..",
		"..###...",
	},
}

// Glyphs renders n 8x8 digit samples from fixed templates with jitter drawn
// from seed. Labels cycle through 0-9 and intensities stay in [0,16].
func Glyphs(n int, seed int64) dataset.Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := dataset.Dataset{Name: "glyphs", Samples: make([]dataset.Sample, 0, n)}
	for i := 0; i < n; i++ {
		label := i % 10
		ds.Samples = append(ds.Samples, dataset.Sample{
			Key:   fmt.Sprintf("glyph-%04d", i),
			Grid:  render(rng, label),
			Label: label,
		})
	}
	return ds
}

// OptDigits formats ds in the comma-separated optdigits layout.
func OptDigits(ds dataset.Dataset) string {
	var b strings.Builder
	for _, s := range ds.Samples {
		for _, row := range s.Grid {
			for _, v := range row {
				b.WriteString(strconv.FormatFloat(v, 'e', 18, 64))
				b.WriteByte(',')
			}
		}
		b.WriteString(strconv.FormatFloat(float64(s.Label), 'e', 18, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

// GzipOptDigits returns OptDigits(ds) gzip-compressed, the layout of the
// cached handwritten digits file.
func GzipOptDigits(ds dataset.Dataset) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_, _ = zw.Write([]byte(OptDigits(ds)))
	_ = zw.Close()
	return buf.Bytes()
}

func template(label int) [][]float64 {
	grid := newGrid()
	for r, line := range glyphs[label] {
		for c, ch := range line {
			if ch == '#' {
				grid[r][c] = 1
			}
		}
	}
	return grid
}

func render(rng *rand.Rand, label int) [][]float64 {
	base := template(label)

	if rng.Float64() < 0.1 {
		other := (label + 1 + rng.Intn(9)) % 10
		w := 0.3 + 0.3*rng.Float64()
		mix := template(other)
		for r := range base {
			for c := range base[r] {
				base[r][c] = (1-w)*base[r][c] + w*mix[r][c]
			}
		}
	}

	dx, dy := rng.Intn(3)-1, rng.Intn(3)-1
	shifted := newGrid()
	for r := range base {
		for c := range base[r] {
			sr, sc := r-dy, c-dx
			if sr < 0 || sr >= size || sc < 0 || sc >= size {
				continue
			}
			shifted[r][c] = base[sr][sc]
		}
	}

	scale := dataset.DigitsMaxIntensity * (0.7 + 0.3*rng.Float64())
	out := newGrid()
	for r := range shifted {
		for c := range shifted[r] {
			v := shifted[r][c]*scale + rng.NormFloat64()*2
			out[r][c] = math.Round(math.Min(dataset.DigitsMaxIntensity, math.Max(0, v)))
		}
	}
	return out
}

func newGrid() [][]float64 {
	grid := make([][]float64, size)
	for r := range grid {
		grid[r] = make([]float64, size)
	}
	return grid
}

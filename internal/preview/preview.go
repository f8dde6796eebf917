// Package preview renders evaluation samples and their predicted labels as a
// PNG strip.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cellScale     = 16
	captionHeight = 18
	gap           = 8
)

// Tile is one sample to draw.
type Tile struct {
	Grid       [][]float64
	Prediction int
}

// Render draws tiles left to right, each grid upscaled with ink dark on a
// white background and captioned with its prediction. maxIntensity is drawn as
// black.
func Render(w io.Writer, tiles []Tile, maxIntensity float64) error {
	if len(tiles) == 0 {
		return errors.New("preview: nothing to render")
	}
	if maxIntensity <= 0 {
		return errors.Errorf("preview: max intensity must be > 0 (got %v)", maxIntensity)
	}
	rows := len(tiles[0].Grid)
	if rows == 0 || len(tiles[0].Grid[0]) == 0 {
		return errors.New("preview: empty grid")
	}
	cols := len(tiles[0].Grid[0])

	tileW, tileH := cols*cellScale, rows*cellScale
	width := len(tiles)*tileW + (len(tiles)+1)*gap
	height := captionHeight + tileH + 2*gap
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	drawer := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13}
	for i, tile := range tiles {
		if len(tile.Grid) != rows {
			return errors.Errorf("preview: tile %d has %d rows, want %d", i, len(tile.Grid), rows)
		}
		x0 := gap + i*(tileW+gap)
		y0 := gap + captionHeight

		drawer.Dot = fixed.P(x0, gap+13)
		drawer.DrawString(fmt.Sprintf("Prediction: %d", tile.Prediction))

		for r, row := range tile.Grid {
			if len(row) != cols {
				return errors.Errorf("preview: tile %d row %d has %d columns, want %d", i, r, len(row), cols)
			}
			for c, v := range row {
				shade := color.Gray{Y: uint8(255 - 255*clamp(v/maxIntensity))}
				cell := image.Rect(x0+c*cellScale, y0+r*cellScale, x0+(c+1)*cellScale, y0+(r+1)*cellScale)
				draw.Draw(img, cell, image.NewUniform(shade), image.Point{}, draw.Src)
			}
		}
	}
	return png.Encode(w, img)
}

// WriteFile renders tiles into a new PNG file at path.
func WriteFile(path string, tiles []Tile, maxIntensity float64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "preview: create")
	}
	if err := Render(f, tiles, maxIntensity); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "preview: close")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

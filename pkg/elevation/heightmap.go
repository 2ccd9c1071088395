// Package elevation decodes Terrarium-packed raster tiles into numeric
// heightmaps and re-encodes heightmaps for the generated terrain.
package elevation

import (
	"fmt"
	"image"
	"image/color"
)

// TileSize is the pixel edge length of an elevation tile.
const TileSize = 256

// Heightmap is a row-major grid of elevation values in meters.
// All rows have equal length. Immutable after decode.
type Heightmap struct {
	data [][]float64
}

// NewHeightmap returns a zero-elevation heightmap of the given dimensions.
func NewHeightmap(width, height int) *Heightmap {
	data := make([][]float64, height)
	for y := range data {
		data[y] = make([]float64, width)
	}
	return &Heightmap{data: data}
}

// Width returns the number of columns.
func (h *Heightmap) Width() int {
	if len(h.data) == 0 {
		return 0
	}
	return len(h.data[0])
}

// Height returns the number of rows.
func (h *Heightmap) Height() int { return len(h.data) }

// At returns the elevation at column x, row y.
func (h *Heightmap) At(x, y int) float64 { return h.data[y][x] }

// set is internal; heightmaps are immutable once returned to callers.
func (h *Heightmap) set(x, y int, v float64) { h.data[y][x] = v }

// MinMax returns the observed minimum and maximum elevation.
func (h *Heightmap) MinMax() (min, max float64) {
	first := true
	for _, row := range h.data {
		for _, v := range row {
			if first {
				min, max = v, v
				first = false
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max
}

// EncodeGray renders the heightmap as an 8-bit grayscale image, linearly
// normalized so the observed minimum maps to 0 and the maximum to 255.
// The scale is relative to this heightmap's own range, so the same physical
// elevation renders differently across bounding boxes. A flat heightmap
// encodes to all zeros.
func (h *Heightmap) EncodeGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, h.Width(), h.Height()))

	min, max := h.MinMax()
	span := max - min

	for y := 0; y < h.Height(); y++ {
		for x := 0; x < h.Width(); x++ {
			var v uint8
			if span > 0 {
				v = uint8((h.At(x, y) - min) / span * 255.0)
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// Stitch assembles a grid of equally sized tiles into one contiguous
// heightmap. Grid positions are row-major; every cell must be present and
// tile-sized, so the result has no gaps or overlaps.
func Stitch(tiles [][]*Heightmap) (*Heightmap, error) {
	if len(tiles) == 0 || len(tiles[0]) == 0 {
		return nil, fmt.Errorf("stitch: empty tile grid")
	}
	rows, cols := len(tiles), len(tiles[0])

	out := NewHeightmap(cols*TileSize, rows*TileSize)
	for ty := 0; ty < rows; ty++ {
		if len(tiles[ty]) != cols {
			return nil, fmt.Errorf("stitch: ragged tile grid at row %d", ty)
		}
		for tx := 0; tx < cols; tx++ {
			tile := tiles[ty][tx]
			if tile == nil {
				return nil, fmt.Errorf("stitch: missing tile at (%d, %d)", tx, ty)
			}
			if tile.Width() != TileSize || tile.Height() != TileSize {
				return nil, fmt.Errorf("stitch: tile at (%d, %d) is %dx%d, want %dx%d",
					tx, ty, tile.Width(), tile.Height(), TileSize, TileSize)
			}
			for y := 0; y < TileSize; y++ {
				for x := 0; x < TileSize; x++ {
					out.set(tx*TileSize+x, ty*TileSize+y, tile.At(x, y))
				}
			}
		}
	}
	return out, nil
}

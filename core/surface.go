package core

import (
	"errors"
	"math"

	"github.com/ob6160/TerrainErosion/utils"
)

var ErrEmptySurface = errors.New("core: empty or ragged height surface")

// Surface is a rectangular [y][x] height grid that can be sampled between
// cells.
type Surface struct {
	rows, cols int
	heights    [][]float64
}

func NewSurface(heights [][]float64) (*Surface, error) {
	if len(heights) == 0 || len(heights[0]) == 0 {
		return nil, ErrEmptySurface
	}
	var cols = len(heights[0])
	for _, row := range heights {
		if len(row) != cols {
			return nil, ErrEmptySurface
		}
	}
	return &Surface{rows: len(heights), cols: cols, heights: heights}, nil
}

func (s *Surface) Rows() int { return s.rows }
func (s *Surface) Cols() int { return s.cols }

// At interpolates bilinearly at fractional cell coordinates, clamped to the
// surface.
func (s *Surface) At(x, y float64) float64 {
	x = math.Max(0, math.Min(x, float64(s.cols-1)))
	y = math.Max(0, math.Min(y, float64(s.rows-1)))
	var x0, y0 = int(x), int(y)
	var x1, y1 = min(x0+1, s.cols-1), min(y0+1, s.rows-1)
	var dx, dy = x - float64(x0), y - float64(y0)

	var top = utils.Lerp(s.heights[y0][x0], s.heights[y0][x1], dx)
	var bottom = utils.Lerp(s.heights[y1][x0], s.heights[y1][x1], dx)
	return utils.Lerp(top, bottom, dy)
}

// Resample returns a fresh resolution x resolution grid spanning the whole
// surface, so corner values are kept. resolution <= 0 copies at source size.
func (s *Surface) Resample(resolution int) [][]float64 {
	if resolution <= 0 || (resolution == s.cols && resolution == s.rows) {
		var out = make([][]float64, s.rows)
		for y, row := range s.heights {
			out[y] = append([]float64(nil), row...)
		}
		return out
	}
	var coord = func(i, n int) float64 {
		if resolution == 1 {
			return 0
		}
		return float64(i*(n-1)) / float64(resolution-1)
	}
	var out = make([][]float64, resolution)
	for y := range out {
		out[y] = make([]float64, resolution)
		for x := range out[y] {
			out[y][x] = s.At(coord(x, s.cols), coord(y, s.rows))
		}
	}
	return out
}

// resample is the shared entry point of the file sinks.
func resample(heights [][]float64, resolution int) ([][]float64, error) {
	surface, err := NewSurface(heights)
	if err != nil {
		return nil, err
	}
	return surface.Resample(resolution), nil
}

package erosion

import (
	"context"
	"log/slog"

	"github.com/ob6160/TerrainErosion/utils"
)

// Sampled cells: row 5, columns 0 to 4, clipped to the grid.
const (
	sampleRow   = 5
	sampleCount = 5
)

type CellSample struct {
	X, Y int
	Cell Cell
}

// TraceEvent is emitted after a completed iteration. Samples and Preview are
// copies; nothing in the event aliases the grid.
type TraceEvent struct {
	Iteration int
	Totals    Totals
	Samples   []CellSample
	// Preview is a [y][x] terrain height grid of the requested resolution,
	// nil unless a preview resolution was configured.
	Preview [][]float64
}

type TraceFunc func(TraceEvent)

func sampleCells(g *Grid) []CellSample {
	var y = sampleRow
	if y >= g.Size {
		y = g.Size - 1
	}
	var n = sampleCount
	if n > g.Size {
		n = g.Size
	}
	var samples = make([]CellSample, 0, n)
	for x := 0; x < n; x++ {
		samples = append(samples, CellSample{X: x, Y: y, Cell: *g.At(x, y)})
	}
	return samples
}

// previewHeights point-samples terrain heights onto a res x res grid.
func previewHeights(g *Grid, res int) [][]float64 {
	if res <= 0 {
		return nil
	}
	var rows = make([][]float64, res)
	for y := range rows {
		rows[y] = make([]float64, res)
		var sy = y * g.Size / res
		for x := range rows[y] {
			rows[y][x] = g.Cells[utils.ToIndex(x*g.Size/res, sy, g.Size)].TerrainHeight
		}
	}
	return rows
}

func (e *CPUEroder) trace() {
	var g = e.buffers.Front()
	var debug = e.logger.Enabled(context.Background(), slog.LevelDebug)
	if e.traceFn == nil && !debug {
		return
	}
	if e.traceEvery > 1 && e.iterations%e.traceEvery != 0 {
		return
	}
	var samples = sampleCells(g)
	if debug {
		for _, s := range samples {
			var c = s.Cell
			c.TerrainHeight *= e.params.HeightScale
			e.logger.Debug("cell sample", "iteration", e.iterations, "x", s.X, "y", s.Y, "cell", c.String())
		}
	}
	if e.traceFn != nil {
		e.traceFn(TraceEvent{
			Iteration: e.iterations,
			Totals:    g.Totals(),
			Samples:   samples,
			Preview:   previewHeights(g, e.previewRes),
		})
	}
}

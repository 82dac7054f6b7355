package erosion

import (
	"golang.org/x/sync/errgroup"

	"github.com/ob6160/TerrainErosion/utils"
)

// scan rejects the first non-finite value in the front grid. Rows are split
// into contiguous blocks, one goroutine each.
func (e *CPUEroder) scan(iteration int, stage Stage) error {
	var g = e.buffers.Front()
	var blocks = utils.Workers(e.workers)
	if blocks > g.Size {
		blocks = g.Size
	}
	var rowsPerBlock = (g.Size + blocks - 1) / blocks

	var eg errgroup.Group
	for start := 0; start < g.Size; start += rowsPerBlock {
		var from, to = start, start + rowsPerBlock
		if to > g.Size {
			to = g.Size
		}
		eg.Go(func() error {
			for y := from; y < to; y++ {
				for x := 0; x < g.Size; x++ {
					if field, v, ok := checkCell(g.At(x, y)); !ok {
						return &NumericFaultError{Iteration: iteration, Stage: stage, X: x, Y: y, Field: field, Value: v}
					}
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

func checkCell(c *Cell) (string, float64, bool) {
	var scalars = [...]struct {
		name  string
		value float64
	}{
		{"terrainHeight", c.TerrainHeight},
		{"waterHeight", c.WaterHeight},
		{"sediment", c.Sediment},
		{"hardness", c.Hardness},
		{"outflowFlux.left", c.OutflowFlux[Left]},
		{"outflowFlux.right", c.OutflowFlux[Right]},
		{"outflowFlux.top", c.OutflowFlux[Top]},
		{"outflowFlux.bottom", c.OutflowFlux[Bottom]},
		{"velocity.x", c.Velocity.X()},
		{"velocity.y", c.Velocity.Y()},
	}
	for _, s := range scalars {
		if !utils.IsFinite(s.value) {
			return s.name, s.value, false
		}
	}
	return "", 0, true
}

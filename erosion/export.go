package erosion

import (
	"github.com/ob6160/TerrainErosion/utils"
)

// ExportHeights copies terrain heights into a [y][x] grid. The grid is only read.
func ExportHeights(g *Grid) [][]float64 {
	var heights = make([][]float64, g.Size)
	utils.ForRows(g.Size, 0, func(y int) {
		var row = make([]float64, g.Size)
		for x := range row {
			row[x] = g.Cells[utils.ToIndex(x, y, g.Size)].TerrainHeight
		}
		heights[y] = row
	})
	return heights
}

// ExportFlat is ExportHeights in row-major order.
func ExportFlat(g *Grid) []float64 {
	var heights = make([]float64, len(g.Cells))
	utils.ForRows(g.Size, 0, func(y int) {
		for x := 0; x < g.Size; x++ {
			var i = utils.ToIndex(x, y, g.Size)
			heights[i] = g.Cells[i].TerrainHeight
		}
	})
	return heights
}

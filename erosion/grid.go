package erosion

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ob6160/TerrainErosion/generators"
	"github.com/ob6160/TerrainErosion/utils"
)

// Flux directions, matching the component order of Cell.OutflowFlux.
const (
	Left = iota
	Right
	Top
	Bottom
)

// DefaultInitialHardness is the hardness given to every cell by BuildGrid
// callers that do not choose one.
const DefaultInitialHardness = 1.0

type Cell struct {
	TerrainHeight float64
	WaterHeight   float64
	Sediment      float64
	Hardness      float64
	// L=0, R=1, T=2, B=3
	OutflowFlux mgl64.Vec4
	Velocity    mgl64.Vec2
}

func (c Cell) String() string {
	return fmt.Sprintf("TerrainHeight: %.5f, WaterHeight: %.5f, Sediment: %.5f, Hardness: %.5f, WaterOutflowFlux: (%.5f, %.5f, %.5f, %.5f), Velocity: (%.5f, %.5f)",
		c.TerrainHeight, c.WaterHeight, c.Sediment, c.Hardness,
		c.OutflowFlux[Left], c.OutflowFlux[Right], c.OutflowFlux[Top], c.OutflowFlux[Bottom],
		c.Velocity.X(), c.Velocity.Y())
}

// Grid is a square row-major block of cells.
type Grid struct {
	Size  int
	Cells []Cell
}

func NewGrid(size int) *Grid {
	return &Grid{Size: size, Cells: make([]Cell, size*size)}
}

// BuildGrid seeds a grid from a normalized height field. Water, sediment,
// flux and velocity start at zero.
func BuildGrid(field generators.HeightField, initialHardness float64) (*Grid, error) {
	if field.Size <= 0 || len(field.Values) != field.Size*field.Size {
		return nil, &ConfigurationError{Field: "heightField", Reason: "must be a non-empty square grid"}
	}
	if !(initialHardness > 0 && initialHardness <= 1) {
		return nil, &ConfigurationError{Field: "initialHardness", Reason: "must be in (0, 1]"}
	}
	var g = NewGrid(field.Size)
	for i, h := range field.Values {
		g.Cells[i] = Cell{TerrainHeight: h, Hardness: initialHardness}
	}
	return g, nil
}

func (g *Grid) Index(x, y int) int {
	return utils.ToIndex(x, y, g.Size)
}

func (g *Grid) At(x, y int) *Cell {
	return &g.Cells[g.Index(x, y)]
}

func (g *Grid) Clone() *Grid {
	var c = &Grid{Size: g.Size, Cells: make([]Cell, len(g.Cells))}
	copy(c.Cells, g.Cells)
	return c
}

// Totals sums the three mass-carrying quantities over the whole grid.
type Totals struct {
	Terrain, Water, Sediment float64
}

func (t Totals) Mass() float64 {
	return t.Terrain + t.Water + t.Sediment
}

func (g *Grid) Totals() Totals {
	var t Totals
	for i := range g.Cells {
		var c = &g.Cells[i]
		t.Terrain += c.TerrainHeight
		t.Water += c.WaterHeight
		t.Sediment += c.Sediment
	}
	return t
}

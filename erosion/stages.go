package erosion

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ob6160/TerrainErosion/utils"
)

// Stage identifies one pass of an erosion iteration.
type Stage int

const (
	StageRainfall Stage = iota
	StageOutflow
	StageWater
	StageErosion
	StageTransport
)

var stageNames = [...]string{
	StageRainfall:  "rainfall",
	StageOutflow:   "outflow",
	StageWater:     "water",
	StageErosion:   "erosion",
	StageTransport: "transport",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Stages is the order every iteration runs in.
var Stages = []Stage{StageRainfall, StageOutflow, StageWater, StageErosion, StageTransport}

// Pipeline selects the erosion model. Simplified drops hardness and the
// water depth ramp from the erosion stage.
type Pipeline int

const (
	Reference Pipeline = iota
	Simplified
)

func (p Pipeline) String() string {
	if p == Simplified {
		return "simplified"
	}
	return "reference"
}

func ParsePipeline(s string) (Pipeline, error) {
	switch strings.ToLower(s) {
	case "", "reference":
		return Reference, nil
	case "simplified", "simple":
		return Simplified, nil
	}
	return Reference, &ConfigurationError{Field: "pipeline", Reason: fmt.Sprintf("unknown pipeline %q", s)}
}

// Velocity is zero when the mean water depth over a step is below this.
const minFlowDepth = 1e-6

// L, R, T, B neighbour offsets.
var neighbours = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// stageInput is the state a stage started from. When staged is set it holds
// the pre-stage copy of the one field the stage both writes and reads at
// neighbours.
type stageInput struct {
	cells  []Cell
	size   int
	staged []float64
}

func (in stageInput) value(i int, live float64) float64 {
	if in.staged != nil {
		return in.staged[i]
	}
	return live
}

// flux returns pipe d of the cell at (x, y), or 0 outside the grid.
func (in stageInput) flux(x, y, d int) float64 {
	if !utils.WithinBounds(x, y, in.size) {
		return 0
	}
	return in.cells[utils.ToIndex(x, y, in.size)].OutflowFlux[d]
}

// kernel updates c, the cell at (x, y), reading neighbours only through in.
type kernel func(e *CPUEroder, in stageInput, x, y int, c *Cell)

type stageDef struct {
	kernel kernel
	staged func(c *Cell) float64
}

var stageTable = [...]stageDef{
	StageRainfall:  {kernel: rainfall},
	StageOutflow:   {kernel: outflow},
	StageWater:     {kernel: waterAndVelocity},
	StageErosion:   {kernel: erodeDeposit, staged: func(c *Cell) float64 { return c.TerrainHeight }},
	StageTransport: {kernel: transportEvaporate, staged: func(c *Cell) float64 { return c.Sediment }},
}

func rainfall(e *CPUEroder, _ stageInput, _, _ int, c *Cell) {
	if e.params.IsRaining {
		c.WaterHeight += e.params.RainRate * e.dt
	}
}

func outflow(e *CPUEroder, in stageInput, x, y int, c *Cell) {
	var p = &e.params
	var src = &in.cells[utils.ToIndex(x, y, in.size)]
	var head = src.TerrainHeight*p.HeightScale + src.WaterHeight
	var pressure = e.dt * p.PipeCrossArea * p.Gravity / p.PipeLength

	var flux mgl64.Vec4
	for d, off := range neighbours {
		var nx, ny = x + off[0], y + off[1]
		if !utils.WithinBounds(nx, ny, in.size) {
			continue
		}
		var n = &in.cells[utils.ToIndex(nx, ny, in.size)]
		var diff = head - (n.TerrainHeight*p.HeightScale + n.WaterHeight)
		flux[d] = math.Max(0, src.OutflowFlux[d]+pressure*diff)
	}

	// Find k
	var sum = flux[Left] + flux[Right] + flux[Top] + flux[Bottom]
	var k = 1.0
	if sum > 0 {
		k = utils.Clamp(src.WaterHeight*e.area/(sum*e.dt), 0, 1)
	}
	c.OutflowFlux = flux.Mul(k)
}

func waterAndVelocity(e *CPUEroder, in stageInput, x, y int, c *Cell) {
	var p = &e.params
	var src = &in.cells[utils.ToIndex(x, y, in.size)]
	var out = src.OutflowFlux

	// Right pipe of the left neighbour, left pipe of the right neighbour, ...
	var inLeft = in.flux(x-1, y, Right)
	var inRight = in.flux(x+1, y, Left)
	var inTop = in.flux(x, y-1, Bottom)
	var inBottom = in.flux(x, y+1, Top)

	var outFlow = out[Left] + out[Right] + out[Top] + out[Bottom]
	var inFlow = inLeft + inRight + inTop + inBottom

	var before = src.WaterHeight
	var after = math.Max(0, before+e.dt*(inFlow-outFlow)/e.area)
	c.WaterHeight = after

	var depth = 0.5 * (before + after)
	if depth < minFlowDepth {
		c.Velocity = mgl64.Vec2{}
		return
	}
	var velX = 0.5 * (inLeft - out[Left] + out[Right] - inRight)
	var velY = 0.5 * (inTop - out[Top] + out[Bottom] - inBottom)
	c.Velocity = mgl64.Vec2{velX / (p.CellSize.Y() * depth), velY / (p.CellSize.X() * depth)}
}

func erodeDeposit(e *CPUEroder, in stageInput, x, y int, c *Cell) {
	var p = &e.params
	var i = utils.ToIndex(x, y, in.size)
	var centre = in.value(i, in.cells[i].TerrainHeight)

	var height = func(nx, ny int) float64 {
		if !utils.WithinBounds(nx, ny, in.size) {
			return centre
		}
		var j = utils.ToIndex(nx, ny, in.size)
		return in.value(j, in.cells[j].TerrainHeight)
	}
	var dx = (height(x+1, y) - height(x-1, y)) * p.HeightScale / (2 * p.CellSize.X())
	var dy = (height(x, y+1) - height(x, y-1)) * p.HeightScale / (2 * p.CellSize.Y())

	var normal = mgl64.Vec3{1, dx, 0}.Cross(mgl64.Vec3{0, dy, 1})
	var sinTilt = math.Max(0, mgl64.Vec2{dx, dy}.Len()/normal.Len())

	var depthRamp = 1.0
	var hardness = 1.0
	if e.pipeline == Reference {
		depthRamp = utils.Clamp(c.WaterHeight/p.MaxErosionDepth, 0, 1)
		hardness = c.Hardness
	}
	var capacity = sinTilt * c.Velocity.Len() * p.SedimentCapacity * depthRamp
	var sediment = c.Sediment

	if sediment < capacity {
		var delta = e.dt * p.SoilSuspensionRate * (capacity - sediment) / hardness
		delta = math.Min(delta, capacity-sediment)
		delta = math.Min(delta, math.Max(0, centre))
		c.TerrainHeight = centre - delta
		c.Sediment = sediment + delta
		if e.pipeline == Reference {
			c.Hardness = utils.Clamp(c.Hardness-e.dt*p.SedimentSofteningRate*delta, p.MinHardness, 1)
		}
	} else if sediment > capacity {
		var delta = math.Min(e.dt*p.SedimentDepositionRate*(sediment-capacity), sediment)
		c.TerrainHeight = centre + delta
		c.Sediment = sediment - delta
	}
}

func transportEvaporate(e *CPUEroder, in stageInput, x, y int, c *Cell) {
	var p = &e.params
	var total = 0.0
	for sy := y - 1; sy <= y+1; sy++ {
		for sx := x - 1; sx <= x+1; sx++ {
			if !utils.WithinBounds(sx, sy, in.size) {
				continue
			}
			var j = utils.ToIndex(sx, sy, in.size)
			var s = in.value(j, in.cells[j].Sediment)
			if s == 0 {
				continue
			}
			var vel = in.cells[j].Velocity
			var wx = splatWeight(sx, vel.X()*e.dt/p.CellSize.X(), x, in.size)
			if wx == 0 {
				continue
			}
			total += s * wx * splatWeight(sy, vel.Y()*e.dt/p.CellSize.Y(), y, in.size)
		}
	}
	c.Sediment = total
	c.WaterHeight *= 1 - p.EvaporationRate*e.dt
}

// splatWeight is the share of a source at src, moved by shift cells, that
// lands on dst along one axis. Shifts are limited to one cell and positions
// to the grid, so the shares of a source always sum to one.
func splatWeight(src int, shift float64, dst, size int) float64 {
	var pos = utils.Clamp(float64(src)+utils.Clamp(shift, -1, 1), 0, float64(size-1))
	var base = math.Floor(pos)
	var frac = pos - base
	switch dst {
	case int(base):
		return 1 - frac
	case int(base) + 1:
		return frac
	}
	return 0
}

func (p Pipeline) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pipeline) UnmarshalText(text []byte) error {
	parsed, err := ParsePipeline(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

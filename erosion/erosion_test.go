package erosion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ob6160/TerrainErosion/generators"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func flatField(size int, h float64) generators.HeightField {
	field := generators.NewHeightField(size)
	for i := range field.Values {
		field.Values[i] = h
	}
	return field
}

// rampField rises along x: height[y][x] = x / size.
func rampField(size int) generators.HeightField {
	field := generators.NewHeightField(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			field.Values[y*size+x] = float64(x) / float64(size)
		}
	}
	return field
}

func noiseField(t *testing.T, size int) generators.HeightField {
	t.Helper()
	params := generators.DefaultNoiseParameters()
	params.Scale = 12
	params.Seed = 3
	field, _, err := generators.GenerateHeightfield(params, size, generators.Combined)
	require.NoError(t, err)
	return field
}

func newEroder(t *testing.T, field generators.HeightField, hardness float64, params Params, opts ...Option) *CPUEroder {
	t.Helper()
	grid, err := BuildGrid(field, hardness)
	require.NoError(t, err)
	e, err := NewCPUEroder(grid, params, append([]Option{WithLogger(quiet)}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestRainOnFlatGridOnlyAddsWater(t *testing.T) {
	params := DefaultParams()
	params.RainRate = 0.1
	params.EvaporationRate = 0
	// A flat surface has no head difference, so no pipe carries any flow.
	e := newEroder(t, flatField(4, 0.5), 1.0, params)

	require.NoError(t, e.Step(context.Background()))

	want := params.RainRate * params.DeltaTime()
	for i, c := range e.Grid().Cells {
		assert.Equal(t, want, c.WaterHeight, "cell %d", i)
		assert.Equal(t, 0.5, c.TerrainHeight, "cell %d", i)
		assert.Equal(t, 0.0, c.Sediment, "cell %d", i)
		assert.Equal(t, 1.0, c.Hardness, "cell %d", i)
	}
}

func TestRampMovesSedimentDownhill(t *testing.T) {
	const size = 16
	field := rampField(size)
	e := newEroder(t, field, 1.0, DefaultParams())

	require.NoError(t, e.Run(context.Background(), 1000))

	// Solid material is terrain plus suspended sediment. Its total is
	// conserved, so its first moment along x shows where it went.
	var total, moment, low, high float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := e.Grid().At(x, y)
			moved := c.TerrainHeight - field.At(x, y) + c.Sediment
			total += moved
			moment += float64(x) * moved
			if x < size/2 {
				low += moved
			} else {
				high += moved
			}
		}
	}
	assert.InDelta(t, 0, total, 1e-9)
	assert.Less(t, moment, 0.0, "material should shift towards low x")
	assert.Greater(t, low, 0.0)
	assert.Less(t, high, 0.0)
}

func TestMassAccountingPerStage(t *testing.T) {
	params := DefaultParams()
	e := newEroder(t, noiseField(t, 32), 1.0, params)
	require.NoError(t, e.Run(context.Background(), 25))

	n := float64(len(e.Grid().Cells))
	dt := params.DeltaTime()
	for _, stage := range Stages {
		before := e.Grid().Totals()
		require.NoError(t, e.RunStage(stage))
		after := e.Grid().Totals()

		want := before.Mass()
		switch stage {
		case StageRainfall:
			want += n * params.RainRate * dt
		case StageTransport:
			want -= params.EvaporationRate * dt * before.Water
			assert.InEpsilon(t, before.Sediment, after.Sediment, 1e-9, "transport must conserve sediment")
		}
		assert.InDelta(t, want, after.Mass(), 1e-4*want, "stage %s", stage)
	}
}

func TestOutflowNeverExceedsStoredWater(t *testing.T) {
	params := DefaultParams()
	params.RainRate = 0.5
	e := newEroder(t, noiseField(t, 24), 1.0, params)

	for iter := 0; iter < 40; iter++ {
		require.NoError(t, e.RunStage(StageRainfall))
		stored := make([]float64, len(e.Grid().Cells))
		for i, c := range e.Grid().Cells {
			stored[i] = c.WaterHeight
		}
		require.NoError(t, e.RunStage(StageOutflow))
		for i, c := range e.Grid().Cells {
			f := c.OutflowFlux
			for d := 0; d < 4; d++ {
				require.GreaterOrEqual(t, f[d], 0.0)
			}
			sum := f[Left] + f[Right] + f[Top] + f[Bottom]
			require.LessOrEqual(t, sum*params.DeltaTime(), stored[i]*params.CellArea()+1e-12, "cell %d iteration %d", i, iter)
		}
		for _, s := range []Stage{StageWater, StageErosion, StageTransport} {
			require.NoError(t, e.RunStage(s))
		}
	}
}

func TestClosedBoundaryHasNoEdgeFlux(t *testing.T) {
	e := newEroder(t, noiseField(t, 12), 1.0, DefaultParams())
	require.NoError(t, e.Run(context.Background(), 10))
	g := e.Grid()
	last := g.Size - 1
	for i := 0; i < g.Size; i++ {
		assert.Equal(t, 0.0, g.At(0, i).OutflowFlux[Left])
		assert.Equal(t, 0.0, g.At(last, i).OutflowFlux[Right])
		assert.Equal(t, 0.0, g.At(i, 0).OutflowFlux[Top])
		assert.Equal(t, 0.0, g.At(i, last).OutflowFlux[Bottom])
	}
}

func TestHardnessStaysInUnitInterval(t *testing.T) {
	for _, initial := range []float64{1.0, 0.2} {
		params := DefaultParams()
		params.SedimentSofteningRate = 200
		e := newEroder(t, noiseField(t, 24), initial, params)
		require.NoError(t, e.Run(context.Background(), 200))

		softest := 1.0
		for _, c := range e.Grid().Cells {
			require.Greater(t, c.Hardness, 0.0)
			require.LessOrEqual(t, c.Hardness, 1.0)
			require.GreaterOrEqual(t, c.Hardness, math.Min(initial, params.MinHardness))
			softest = math.Min(softest, c.Hardness)
		}
		assert.Less(t, softest, initial, "erosion should soften some cells")
	}
}

func TestSimplifiedPipelineKeepsHardness(t *testing.T) {
	e := newEroder(t, noiseField(t, 16), 0.7, DefaultParams(), WithPipeline(Simplified))
	require.NoError(t, e.Run(context.Background(), 50))
	for _, c := range e.Grid().Cells {
		assert.Equal(t, 0.7, c.Hardness)
	}
}

func TestModesAndWorkersAgree(t *testing.T) {
	field := noiseField(t, 20)
	ref := newEroder(t, field, 1.0, DefaultParams(), WithMode(DoubleBuffer), WithWorkers(1))
	require.NoError(t, ref.Run(context.Background(), 30))

	for _, tc := range []struct {
		mode    Mode
		workers int
	}{
		{DoubleBuffer, 4},
		{InPlace, 1},
		{InPlace, 5},
	} {
		e := newEroder(t, field, 1.0, DefaultParams(), WithMode(tc.mode), WithWorkers(tc.workers))
		require.NoError(t, e.Run(context.Background(), 30))
		assert.Equal(t, ref.Grid().Cells, e.Grid().Cells, "%s with %d workers", tc.mode, tc.workers)
	}
}

func TestExportIsIdempotent(t *testing.T) {
	e := newEroder(t, noiseField(t, 16), 1.0, DefaultParams())
	require.NoError(t, e.Run(context.Background(), 5))

	first := ExportHeights(e.Grid())
	second := ExportHeights(e.Grid())
	assert.Equal(t, first, second)
	require.Len(t, first, 16)

	flat := ExportFlat(e.Grid())
	for y, row := range first {
		require.Len(t, row, 16)
		for x, h := range row {
			assert.Equal(t, e.Grid().At(x, y).TerrainHeight, h)
			assert.Equal(t, h, flat[y*16+x])
		}
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := newEroder(t, noiseField(t, 8), 1.0, DefaultParams(), WithTrace(1, func(ev TraceEvent) {
		if ev.Iteration == 3 {
			cancel()
		}
	}))
	err := e.Run(ctx, 100)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 3, e.Iterations())

	assert.True(t, errors.Is(e.Step(ctx), context.Canceled))
	assert.Equal(t, 3, e.Iterations())
}

func TestTraceEventsCarryCopies(t *testing.T) {
	var events []TraceEvent
	e := newEroder(t, noiseField(t, 8), 1.0, DefaultParams(), WithTrace(2, func(ev TraceEvent) {
		events = append(events, ev)
	}), WithPreview(4))
	require.NoError(t, e.Run(context.Background(), 6))

	require.Len(t, events, 3)
	assert.Equal(t, []int{2, 4, 6}, []int{events[0].Iteration, events[1].Iteration, events[2].Iteration})
	last := events[2]
	require.Len(t, last.Samples, 5)
	assert.Equal(t, 5, last.Samples[0].Y)
	assert.Equal(t, *e.Grid().At(4, 5), last.Samples[4].Cell)
	require.Len(t, last.Preview, 4)
	assert.Equal(t, e.Grid().At(2, 6).TerrainHeight, last.Preview[3][1])
	assert.InDelta(t, e.Grid().Totals().Mass(), last.Totals.Mass(), 1e-12)
}

func TestNonFiniteValueAbortsWithCoordinates(t *testing.T) {
	grid, err := BuildGrid(flatField(6, 0.3), 1.0)
	require.NoError(t, err)
	grid.At(2, 3).WaterHeight = math.NaN()
	e, err := NewCPUEroder(grid, DefaultParams(), WithLogger(quiet))
	require.NoError(t, err)

	err = e.Run(context.Background(), 10)
	var fault *NumericFaultError
	require.True(t, errors.As(err, &fault), "got %v", err)
	assert.Equal(t, 2, fault.X)
	assert.Equal(t, 3, fault.Y)
	assert.Equal(t, StageRainfall, fault.Stage)
	assert.Equal(t, 1, fault.Iteration)
	assert.Equal(t, "waterHeight", fault.Field)
	assert.Equal(t, 0, e.Iterations())
}

func TestBuildGrid(t *testing.T) {
	field := rampField(4)
	g, err := BuildGrid(field, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Size)
	for i, c := range g.Cells {
		assert.Equal(t, field.Values[i], c.TerrainHeight)
		assert.Equal(t, 0.2, c.Hardness)
		assert.Zero(t, c.WaterHeight)
		assert.Zero(t, c.Sediment)
	}

	_, err = BuildGrid(field, 0)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	_, err = BuildGrid(field, 1.5)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	_, err = BuildGrid(generators.HeightField{}, 1)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestSplatWeightsSumToOne(t *testing.T) {
	const size = 6
	for src := 0; src < size; src++ {
		for _, shift := range []float64{-3, -1, -0.75, -0.2, 0, 0.4, 1, 2.5} {
			sum := 0.0
			for dst := src - 1; dst <= src+1; dst++ {
				if dst < 0 || dst >= size {
					continue
				}
				w := splatWeight(src, shift, dst, size)
				require.GreaterOrEqual(t, w, 0.0)
				sum += w
			}
			assert.InDelta(t, 1.0, sum, 1e-15, "src %d shift %v", src, shift)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	for name, mutate := range map[string]func(*Params){
		"gravity":     func(p *Params) { p.Gravity = 0 },
		"time scale":  func(p *Params) { p.TimeScale = -1 },
		"rain":        func(p *Params) { p.RainRate = -0.1 },
		"hardness":    func(p *Params) { p.MinHardness = 0 },
		"cell size":   func(p *Params) { p.CellSize[1] = 0 },
		"evaporation": func(p *Params) { p.EvaporationRate = 1000 },
	} {
		p := DefaultParams()
		mutate(&p)
		assert.True(t, errors.Is(p.Validate(), ErrInvalidConfig), name)
		_, err := NewCPUEroder(NewGrid(2), p)
		assert.Error(t, err, name)
	}
}

func TestParamsFromMap(t *testing.T) {
	p, err := DefaultParams().FromMap(map[string]string{
		"rain_rate":   "0.5",
		"cell_size_x": "2",
		"raining":     "false",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.RainRate)
	assert.Equal(t, 2.0, p.CellSize.X())
	assert.False(t, p.IsRaining)
	assert.Equal(t, 2.0, p.CellArea())

	_, err = DefaultParams().FromMap(map[string]string{"rain_rate": "lots"})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	_, err = DefaultParams().FromMap(map[string]string{"wind": "1"})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, DefaultParams().Keys(), "pipe_cross_area")
}

func TestCallerGridHoldsLatestState(t *testing.T) {
	for _, mode := range []Mode{DoubleBuffer, InPlace} {
		grid, err := BuildGrid(noiseField(t, 8), 1.0)
		require.NoError(t, err)
		e, err := NewCPUEroder(grid, DefaultParams(), WithLogger(quiet), WithMode(mode))
		require.NoError(t, err)

		// Three iterations leave an odd number of swaps behind them.
		require.NoError(t, e.Run(context.Background(), 3))
		assert.Same(t, grid, e.Grid(), "%s", mode)
		assert.Equal(t, ExportHeights(e.Grid()), ExportHeights(grid))

		require.NoError(t, e.Step(context.Background()))
		assert.Same(t, grid, e.Grid(), "%s", mode)
		require.NoError(t, e.RunStage(StageOutflow))
		assert.Same(t, grid, e.Grid(), "%s", mode)
	}
}

func TestParamsLogValue(t *testing.T) {
	v := DefaultParams().LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())
	names := map[string]bool{}
	for _, a := range v.Group() {
		names[a.Key] = true
	}
	for _, k := range DefaultParams().Keys() {
		assert.True(t, names[k], k)
	}
	assert.True(t, names["delta_time"])
}

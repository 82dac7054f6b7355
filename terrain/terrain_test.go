package terrain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ob6160/TerrainErosion/core"
	"github.com/ob6160/TerrainErosion/erosion"
	"github.com/ob6160/TerrainErosion/generators"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.MapSize = 16
	cfg.Noise.Scale = 8
	cfg.Iterations = 10
	cfg.Variant = generators.Combined
	return cfg
}

func TestRunErosionLeavesInputUntouched(t *testing.T) {
	field, err := GenerateHeightfield(generators.DefaultNoiseParameters(), 12, generators.Ridged, generators.WithLogger(quiet))
	require.NoError(t, err)
	grid, err := BuildGrid(field, 1)
	require.NoError(t, err)
	before := grid.Clone()

	eroded, err := RunErosion(context.Background(), grid, erosion.DefaultParams(), 20, erosion.InPlace, erosion.WithLogger(quiet))
	require.NoError(t, err)

	assert.Equal(t, before.Cells, grid.Cells)
	assert.NotEqual(t, grid.Cells, eroded.Cells)
	assert.Equal(t, field.Rows(), ExportHeights(grid))
}

func TestRunErosionRejectsBadInput(t *testing.T) {
	_, err := RunErosion(context.Background(), nil, erosion.DefaultParams(), 1, erosion.DoubleBuffer)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	grid, err := BuildGrid(generators.NewHeightField(4), 1)
	require.NoError(t, err)
	params := erosion.DefaultParams()
	params.Gravity = 0
	_, err = RunErosion(context.Background(), grid, params, 1, erosion.DoubleBuffer)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestPipelineRunWritesSink(t *testing.T) {
	var got [][]float64
	var gotRes int
	sink := core.SinkFunc(func(heights [][]float64, resolution int) error {
		got, gotRes = heights, resolution
		return nil
	})
	cfg := smallConfig()
	cfg.Resolution = 8
	p, err := NewPipeline(cfg, WithLogger(quiet))
	require.NoError(t, err)

	grid, err := p.Run(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, 8, gotRes)
	require.Len(t, got, 16)
	assert.Equal(t, erosion.ExportHeights(grid), got)
	for _, row := range got {
		for _, h := range row {
			assert.False(t, math.IsNaN(h) || math.IsInf(h, 0))
		}
	}
}

func TestPipelineIsDeterministic(t *testing.T) {
	cfg := smallConfig()
	first, err := NewPipeline(cfg, WithLogger(quiet))
	require.NoError(t, err)
	a, err := first.Run(context.Background(), nil)
	require.NoError(t, err)

	cfg.Workers = 3
	cfg.Mode = erosion.InPlace
	second, err := NewPipeline(cfg, WithLogger(quiet))
	require.NoError(t, err)
	b, err := second.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, a.Cells, b.Cells)
}

func TestMidpointSourceIsNormalized(t *testing.T) {
	cfg := smallConfig()
	cfg.Source = SourceMidpoint
	cfg.MapSize = 17
	p, err := NewPipeline(cfg, WithLogger(quiet))
	require.NoError(t, err)

	field, err := p.Heightfield()
	require.NoError(t, err)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range field.Values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestPipelineTraceAndCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var seen []int
	cfg := smallConfig()
	cfg.Iterations = 50
	p, err := NewPipeline(cfg, WithLogger(quiet), WithTrace(2, 4, func(ev erosion.TraceEvent) {
		seen = append(seen, ev.Iteration)
		assert.Len(t, ev.Preview, 4)
		if ev.Iteration == 6 {
			cancel()
		}
	}))
	require.NoError(t, err)

	called := false
	grid, err := p.Run(ctx, core.SinkFunc(func([][]float64, int) error {
		called = true
		return nil
	}))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotNil(t, grid)
	assert.False(t, called)
	assert.Equal(t, []int{2, 4, 6}, seen)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	for name, mutate := range map[string]func(*Config){
		"map size":   func(c *Config) { c.MapSize = 0 },
		"source":     func(c *Config) { c.Source = "voronoi" },
		"octaves":    func(c *Config) { c.Noise.Octaves = 0 },
		"hardness":   func(c *Config) { c.InitialHardness = 0 },
		"iterations": func(c *Config) { c.Iterations = -1 },
		"gravity":    func(c *Config) { c.Erosion.Gravity = -1 },
		"fixed":      func(c *Config) { c.FixedPointScalar = -5 },
	} {
		cfg := DefaultConfig()
		mutate(&cfg)
		err := cfg.Validate()
		assert.True(t, errors.Is(err, ErrInvalidConfig), "%s: %v", name, err)
		_, err = NewPipeline(cfg)
		assert.Error(t, err, name)
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mapSize": 64,
		"variant": "ridged",
		"basis": "perlin",
		"mode": "in-place",
		"pipeline": "simplified",
		"erosion": {"rainRate": 0.05}
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.MapSize)
	assert.Equal(t, generators.Ridged, cfg.Variant)
	assert.Equal(t, generators.Perlin, cfg.Basis)
	assert.Equal(t, erosion.InPlace, cfg.Mode)
	assert.Equal(t, erosion.Simplified, cfg.Pipeline)
	assert.Equal(t, 0.05, cfg.Erosion.RainRate)
	assert.Equal(t, erosion.DefaultParams().Gravity, cfg.Erosion.Gravity)
	assert.Equal(t, 1000, cfg.Iterations)

	require.NoError(t, os.WriteFile(path, []byte(`{"mode": "sideways"}`), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

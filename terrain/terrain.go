// Package terrain chains heightfield synthesis, erosion and export.
package terrain

import (
	"context"
	"log/slog"

	"github.com/ob6160/TerrainErosion/core"
	"github.com/ob6160/TerrainErosion/erosion"
	"github.com/ob6160/TerrainErosion/generators"
)

// GenerateHeightfield returns a normalized FBM field. A degenerate extent
// gives an all-zero field and a logged warning, not an error.
func GenerateHeightfield(params generators.NoiseParameters, mapSize int, variant generators.Variant, opts ...generators.Option) (generators.HeightField, error) {
	field, _, err := generators.GenerateHeightfield(params, mapSize, variant, opts...)
	return field, err
}

func BuildGrid(field generators.HeightField, initialHardness float64) (*erosion.Grid, error) {
	return erosion.BuildGrid(field, initialHardness)
}

// RunErosion erodes a copy of grid and returns it. grid itself is never
// written. On cancellation the partially eroded copy is returned with the
// context's error.
func RunErosion(ctx context.Context, grid *erosion.Grid, params erosion.Params, iterations int, mode erosion.Mode, opts ...erosion.Option) (*erosion.Grid, error) {
	if grid == nil {
		return nil, &ConfigurationError{Field: "grid", Reason: "is nil"}
	}
	eroder, err := erosion.NewCPUEroder(grid.Clone(), params, append(opts[:len(opts):len(opts)], erosion.WithMode(mode))...)
	if err != nil {
		return nil, err
	}
	err = eroder.Run(ctx, iterations)
	return eroder.Grid(), err
}

func ExportHeights(grid *erosion.Grid) [][]float64 {
	return erosion.ExportHeights(grid)
}

type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTrace forwards erosion trace events, with a preview of the given
// resolution, every `every` iterations.
func WithTrace(every, preview int, fn erosion.TraceFunc) Option {
	return func(p *Pipeline) {
		p.traceEvery = every
		p.preview = preview
		p.trace = fn
	}
}

// Pipeline runs a validated Config end to end.
type Pipeline struct {
	cfg        Config
	logger     *slog.Logger
	trace      erosion.TraceFunc
	traceEvery int
	preview    int
}

func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var p = Pipeline{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(&p)
	}
	return &p, nil
}

func (p *Pipeline) Config() Config { return p.cfg }

// Heightfield synthesises the configured source and normalizes it.
func (p *Pipeline) Heightfield() (generators.HeightField, error) {
	var cfg = p.cfg
	if cfg.Source == SourceMidpoint {
		var mid = generators.NewMidPointDisplacement(cfg.MapSize, uint64(int64(cfg.Noise.Seed)))
		mid.Generate(cfg.Spread, cfg.Reduce)
		var normalizer = generators.Normalizer{Workers: cfg.Workers, Scalar: cfg.FixedPointScalar, Logger: p.logger}
		field, _, err := normalizer.Normalize(cfg.MapSize, mid)
		return field, err
	}
	return GenerateHeightfield(cfg.Noise, cfg.MapSize, cfg.Variant,
		generators.WithBasis(cfg.Basis),
		generators.WithWorkers(cfg.Workers),
		generators.WithFixedPoint(cfg.FixedPointScalar),
		generators.WithLogger(p.logger),
	)
}

// Run generates, erodes and hands the final heights to sink, which may be
// nil. The eroded grid is returned even when the run was cancelled; the sink
// only sees completed runs.
func (p *Pipeline) Run(ctx context.Context, sink core.HeightSink) (*erosion.Grid, error) {
	var cfg = p.cfg
	field, err := p.Heightfield()
	if err != nil {
		return nil, err
	}
	p.logger.Info("heightfield ready", "source", cfg.Source, "size", cfg.MapSize,
		"variant", cfg.Variant.String(), "basis", cfg.Basis.String())

	grid, err := BuildGrid(field, cfg.InitialHardness)
	if err != nil {
		return nil, err
	}
	var opts = []erosion.Option{
		erosion.WithPipeline(cfg.Pipeline),
		erosion.WithWorkers(cfg.Workers),
		erosion.WithLogger(p.logger),
		erosion.WithProgress(cfg.ProgressEvery),
	}
	if p.trace != nil {
		opts = append(opts, erosion.WithTrace(p.traceEvery, p.trace), erosion.WithPreview(p.preview))
	}
	eroded, err := RunErosion(ctx, grid, cfg.Erosion, cfg.Iterations, cfg.Mode, opts...)
	if err != nil {
		return eroded, err
	}
	if sink == nil {
		return eroded, nil
	}
	return eroded, sink.SetHeights(ExportHeights(eroded), cfg.Resolution)
}

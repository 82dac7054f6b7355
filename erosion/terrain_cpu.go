package erosion

import (
	"context"
	"log/slog"
	"time"

	"github.com/ob6160/TerrainErosion/utils"
)

type Option func(*CPUEroder)

func WithMode(m Mode) Option {
	return func(e *CPUEroder) { e.mode = m }
}

func WithPipeline(p Pipeline) Option {
	return func(e *CPUEroder) { e.pipeline = p }
}

// WithWorkers bounds the goroutines used per stage; n <= 0 means one per CPU.
func WithWorkers(n int) Option {
	return func(e *CPUEroder) { e.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *CPUEroder) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTrace calls fn after every `every`-th completed iteration.
func WithTrace(every int, fn TraceFunc) Option {
	return func(e *CPUEroder) {
		e.traceEvery = every
		e.traceFn = fn
	}
}

// WithPreview attaches a res x res height preview to every trace event.
func WithPreview(res int) Option {
	return func(e *CPUEroder) { e.previewRes = res }
}

// WithGuard toggles the non-finite scan run after every stage.
func WithGuard(on bool) Option {
	return func(e *CPUEroder) { e.guard = on }
}

// WithProgress logs progress at Info level every n iterations.
func WithProgress(n int) Option {
	return func(e *CPUEroder) { e.progressEvery = n }
}

// CPUEroder runs the pipe-model pipeline over a grid it owns.
type CPUEroder struct {
	params   Params
	dt, area float64

	mode     Mode
	pipeline Pipeline
	workers  int
	guard    bool

	buffers *Buffers
	scratch []float64

	iterations    int
	progressEvery int
	traceEvery    int
	traceFn       TraceFunc
	previewRes    int
	logger        *slog.Logger
}

// NewCPUEroder validates params and takes ownership of grid. Whenever Run,
// Step or RunStage returns, grid holds the latest state and is what Grid
// returns.
func NewCPUEroder(grid *Grid, params Params, opts ...Option) (*CPUEroder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var eroder = CPUEroder{
		params: params,
		dt:     params.DeltaTime(),
		area:   params.CellArea(),
		mode:   DoubleBuffer,
		guard:  true,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&eroder)
	}
	if err := eroder.Reset(grid); err != nil {
		return nil, err
	}
	return &eroder, nil
}

// Reset swaps in a new grid and clears the iteration count.
func (e *CPUEroder) Reset(grid *Grid) error {
	if grid == nil || grid.Size <= 0 || len(grid.Cells) != grid.Size*grid.Size {
		return &ConfigurationError{Field: "grid", Reason: "must be a non-empty square grid"}
	}
	e.buffers = NewBuffers(grid, e.mode)
	e.scratch = nil
	if e.mode == InPlace {
		e.scratch = make([]float64, len(grid.Cells))
	}
	e.iterations = 0
	return nil
}

// Grid returns the grid holding the latest committed state.
func (e *CPUEroder) Grid() *Grid {
	return e.buffers.Front()
}

func (e *CPUEroder) Iterations() int { return e.iterations }
func (e *CPUEroder) Params() Params  { return e.params }
func (e *CPUEroder) Mode() Mode      { return e.mode }

// Run performs iterations full pipeline passes. Cancellation is checked
// between iterations; iterations already completed stay committed.
func (e *CPUEroder) Run(ctx context.Context, iterations int) error {
	if iterations < 0 {
		return &ConfigurationError{Field: "iterations", Reason: "must not be negative"}
	}
	defer e.buffers.Commit()
	var start = time.Now()
	e.logger.Info("erosion started",
		"size", e.Grid().Size, "iterations", iterations, "mode", e.mode.String(),
		"pipeline", e.pipeline.String(), "params", e.params)

	for n := 0; n < iterations; n++ {
		if err := ctx.Err(); err != nil {
			e.logger.Info("erosion cancelled", "completed", e.iterations)
			return err
		}
		if err := e.step(); err != nil {
			e.logger.Error("erosion aborted", "err", err)
			return err
		}
		if e.progressEvery > 0 && e.iterations%e.progressEvery == 0 {
			e.logger.Info("erosion progress", "iteration", e.iterations, "of", iterations)
		}
	}
	e.logger.Info("erosion finished", "iterations", e.iterations, "elapsed", time.Since(start))
	return nil
}

// Step performs a single iteration.
func (e *CPUEroder) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer e.buffers.Commit()
	return e.step()
}

// RunStage runs one stage over the whole grid without advancing the
// iteration count.
func (e *CPUEroder) RunStage(s Stage) error {
	if s < 0 || int(s) >= len(stageTable) {
		return &ConfigurationError{Field: "stage", Reason: "is unknown"}
	}
	e.runStage(s)
	e.buffers.Commit()
	if e.guard {
		return e.scan(e.iterations+1, s)
	}
	return nil
}

func (e *CPUEroder) step() error {
	var next = e.iterations + 1
	for _, s := range Stages {
		e.runStage(s)
		if e.guard {
			if err := e.scan(next, s); err != nil {
				return err
			}
		}
	}
	e.iterations = next
	e.trace()
	return nil
}

func (e *CPUEroder) runStage(s Stage) {
	var def = stageTable[s]
	var front = e.buffers.Front()
	var size = front.Size
	var in = stageInput{cells: front.Cells, size: size}

	if e.mode == InPlace {
		if def.staged != nil {
			utils.ForRows(size, e.workers, func(y int) {
				for x := 0; x < size; x++ {
					var i = utils.ToIndex(x, y, size)
					e.scratch[i] = def.staged(&front.Cells[i])
				}
			})
			in.staged = e.scratch
		}
		utils.ForRows(size, e.workers, func(y int) {
			for x := 0; x < size; x++ {
				def.kernel(e, in, x, y, &front.Cells[utils.ToIndex(x, y, size)])
			}
		})
		return
	}

	var back = e.buffers.Back()
	utils.ForRows(size, e.workers, func(y int) {
		for x := 0; x < size; x++ {
			var i = utils.ToIndex(x, y, size)
			back.Cells[i] = front.Cells[i]
			def.kernel(e, in, x, y, &back.Cells[i])
		}
	})
	e.buffers.Swap()
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xlab/closer"

	"github.com/ob6160/TerrainErosion/core"
	"github.com/ob6160/TerrainErosion/stream"
	"github.com/ob6160/TerrainErosion/terrain"
)

type cli struct {
	configPath string
	out        string
	serve      string
	traceEvery int
	preview    int
	verbose    bool
}

func main() {
	var cfg = terrain.DefaultConfig()
	if path := configPath(os.Args[1:]); path != "" {
		loaded, err := terrain.LoadConfig(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		cfg = loaded
	}

	var opts cli
	var overrides terrain.Overrides
	cfg.Bind(flag.CommandLine, &overrides)
	flag.StringVar(&opts.configPath, "config", "", "JSON config file applied before other flags")
	flag.StringVar(&opts.out, "out", "heightmap.png", "comma-separated outputs (.png, .tiff, .json, .obj)")
	flag.StringVar(&opts.serve, "serve", "", "serve progress over websocket at this address, e.g. :8080")
	flag.IntVar(&opts.traceEvery, "trace-every", 10, "iterations between progress snapshots")
	flag.IntVar(&opts.preview, "preview", 64, "progress snapshot resolution")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	var level = slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.Apply(overrides); err != nil {
		logger.Error("bad -set value", "err", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var done = make(chan struct{})
	closer.Bind(func() {
		cancel()
		<-done
	})

	err := run(ctx, cfg, opts, logger)
	close(done)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("run interrupted")
		} else {
			logger.Error("run failed", "err", err)
		}
		closer.Exit(1)
	}
	closer.Close()
}

func run(ctx context.Context, cfg terrain.Config, opts cli, logger *slog.Logger) error {
	var sinks core.MultiSink
	for _, path := range strings.Split(opts.out, ",") {
		if path = strings.TrimSpace(path); path == "" {
			continue
		}
		sink, err := core.NewFileSink(path, cfg.Erosion.HeightScale)
		if err != nil {
			return err
		}
		sinks = append(sinks, sink)
	}

	var pipelineOpts = []terrain.Option{terrain.WithLogger(logger)}
	if opts.serve != "" {
		var hub = stream.NewHub(logger)
		sinks = append(sinks, hub)
		pipelineOpts = append(pipelineOpts, terrain.WithTrace(opts.traceEvery, opts.preview, hub.Publish))
		go func() {
			if err := stream.Serve(ctx, opts.serve, hub); err != nil {
				logger.Error("progress stream stopped", "err", err)
			}
		}()
	}

	pipeline, err := terrain.NewPipeline(cfg, pipelineOpts...)
	if err != nil {
		return err
	}
	grid, err := pipeline.Run(ctx, sinks)
	if err != nil {
		return err
	}
	var totals = grid.Totals()
	logger.Info("done", "outputs", opts.out, "terrain", totals.Terrain, "water", totals.Water, "sediment", totals.Sediment)
	return nil
}

// configPath finds -config before flag parsing so the file can supply
// defaults that later flags override.
func configPath(args []string) string {
	for i, arg := range args {
		var name = strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

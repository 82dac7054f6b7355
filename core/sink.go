package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// HeightSink receives a finished height surface. heights is [y][x] and must
// be treated as read-only; resolution is the edge length the sink should
// store, or 0 to keep the source size.
type HeightSink interface {
	SetHeights(heights [][]float64, resolution int) error
}

type SinkFunc func(heights [][]float64, resolution int) error

func (f SinkFunc) SetHeights(heights [][]float64, resolution int) error {
	return f(heights, resolution)
}

// MultiSink hands the same surface to every sink concurrently and returns the
// first error.
type MultiSink []HeightSink

func (m MultiSink) SetHeights(heights [][]float64, resolution int) error {
	var g errgroup.Group
	for _, sink := range m {
		sink := sink
		g.Go(func() error {
			return sink.SetHeights(heights, resolution)
		})
	}
	return g.Wait()
}

// NewFileSink picks a sink from the extension of path.
func NewFileSink(path string, heightScale float64) (HeightSink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".tif", ".tiff":
		return ImageSink{Path: path}, nil
	case ".json":
		return JSONSink{Path: path}, nil
	case ".obj":
		return MeshSink{Path: path, HeightScale: heightScale}, nil
	}
	return nil, fmt.Errorf("no sink for %q", path)
}

func writeFile(path string, write func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err = write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

package core

import (
	"encoding/json"
	"io"
	"os"
)

type HeightDocument struct {
	Resolution int         `json:"resolution"`
	Heights    [][]float64 `json:"heights"`
}

func WriteJSON(w io.Writer, heights [][]float64, resolution int) error {
	resampled, err := resample(heights, resolution)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(HeightDocument{Resolution: len(resampled), Heights: resampled})
}

type JSONSink struct {
	Path string
}

func (s JSONSink) SetHeights(heights [][]float64, resolution int) error {
	return writeFile(s.Path, func(f *os.File) error {
		return WriteJSON(f, heights, resolution)
	})
}

package core

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// HeightImage quantises heights in [0, 1] to 16-bit grey; values outside the
// range are clamped.
func HeightImage(heights [][]float64, resolution int) (*image.Gray16, error) {
	resampled, err := resample(heights, resolution)
	if err != nil {
		return nil, err
	}
	var img = image.NewGray16(image.Rect(0, 0, len(resampled[0]), len(resampled)))
	for y, row := range resampled {
		for x, h := range row {
			img.SetGray16(x, y, color.Gray16{Y: quantise(h)})
		}
	}
	return img, nil
}

func quantise(h float64) uint16 {
	if math.IsNaN(h) {
		return 0
	}
	return uint16(math.Round(math.Max(0, math.Min(1, h)) * math.MaxUint16))
}

// EncodeImage writes img as "png" or "tiff".
func EncodeImage(w io.Writer, format string, img image.Image) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "tiff", "tif":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unsupported image format %q", format)
}

// ImageSink writes a 16-bit greyscale heightmap, PNG or TIFF by extension.
type ImageSink struct {
	Path string
}

func (s ImageSink) SetHeights(heights [][]float64, resolution int) error {
	img, err := HeightImage(heights, resolution)
	if err != nil {
		return err
	}
	var format = strings.TrimPrefix(strings.ToLower(filepath.Ext(s.Path)), ".")
	return writeFile(s.Path, func(f *os.File) error {
		return EncodeImage(f, format, img)
	})
}

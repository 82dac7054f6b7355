package generators

import (
	"log/slog"
)

type options struct {
	basis      BasisKind
	normalizer Normalizer
}

type Option func(*options)

func WithBasis(kind BasisKind) Option {
	return func(o *options) { o.basis = kind }
}

func WithWorkers(n int) Option {
	return func(o *options) { o.normalizer.Workers = n }
}

// WithFixedPoint switches the min/max reduction to fixed point with the given scalar.
func WithFixedPoint(scalar int64) Option {
	return func(o *options) { o.normalizer.Scalar = scalar }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.normalizer.Logger = l }
}

// GenerateHeightfield evaluates the selected FBM variant over a mapSize² grid
// and normalizes it onto [0, 1]. A degenerate extent yields an all-zero field
// and is reported through the returned Range, not as an error.
func GenerateHeightfield(params NoiseParameters, mapSize int, variant Variant, opts ...Option) (HeightField, Range, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if mapSize <= 0 {
		return HeightField{}, Range{}, &ConfigurationError{Field: "mapSize", Reason: "must be positive"}
	}
	fbm, err := NewFBM(params, variant, NewBasis(o.basis, int64(params.Seed)))
	if err != nil {
		return HeightField{}, Range{}, err
	}
	return o.normalizer.Normalize(mapSize, fbm)
}

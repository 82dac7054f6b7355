package generators

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/ob6160/TerrainErosion/utils"
)

// HeightField is a square row-major grid of heights in [0, 1].
type HeightField struct {
	Size   int
	Values []float64
}

func NewHeightField(size int) HeightField {
	return HeightField{Size: size, Values: make([]float64, size*size)}
}

func (h HeightField) At(x, y int) float64 {
	return h.Values[utils.ToIndex(x, y, h.Size)]
}

// Rows copies the field into a [y][x] slice.
func (h HeightField) Rows() [][]float64 {
	var rows = make([][]float64, h.Size)
	for y := range rows {
		rows[y] = append([]float64(nil), h.Values[y*h.Size:(y+1)*h.Size]...)
	}
	return rows
}

// Source yields a raw, unnormalized value per grid coordinate.
type Source interface {
	Sample(x, y int) float64
}

type SourceFunc func(x, y int) float64

func (f SourceFunc) Sample(x, y int) float64 { return f(x, y) }

// Range is the global extent found by the reduction pass.
type Range struct {
	Min, Max   float64
	Degenerate bool
}

func (r Range) Err() error {
	if r.Degenerate {
		return ErrDegenerateRange
	}
	return nil
}

// Normalizer remaps a raw field onto [0, 1] with a two-pass reduction.
//
// Pass one folds every value into a shared atomic min/max held as int64 keys.
// With Scalar == 0 the key is an order-preserving encoding of the float64 bits,
// which is exact. With Scalar > 0 values are stored as round(v*Scalar) fixed
// point, which quantizes the extent; results are clamped into [0, 1] and cells
// whose key equals the reduced min or max key land on exactly 0 or 1.
type Normalizer struct {
	Workers int
	Scalar  int64
	Logger  *slog.Logger
}

func (n Normalizer) Normalize(size int, src Source) (HeightField, Range, error) {
	if size <= 0 {
		return HeightField{}, Range{}, &ConfigurationError{Field: "mapSize", Reason: "must be positive"}
	}
	var raw = make([]float64, size*size)
	var minKey, maxKey atomic.Int64
	minKey.Store(math.MaxInt64)
	maxKey.Store(math.MinInt64)

	utils.ForRows(size, n.Workers, func(y int) {
		var localMin, localMax = math.Inf(1), math.Inf(-1)
		for x := 0; x < size; x++ {
			var v = src.Sample(x, y)
			raw[utils.ToIndex(x, y, size)] = v
			localMin = math.Min(localMin, v)
			localMax = math.Max(localMax, v)
		}
		atomicMin(&minKey, n.encode(localMin))
		atomicMax(&maxKey, n.encode(localMax))
	})

	var lo, hi = minKey.Load(), maxKey.Load()
	var r = Range{Min: n.decode(lo), Max: n.decode(hi)}
	return n.remap(size, raw, r, lo, hi), r.checked(n.logger()), nil
}

// NormalizeValues normalizes an already evaluated row-major field.
func (n Normalizer) NormalizeValues(size int, raw []float64) (HeightField, Range, error) {
	if len(raw) != size*size {
		return HeightField{}, Range{}, &ConfigurationError{Field: "values", Reason: "length does not match mapSize²"}
	}
	return n.Normalize(size, SourceFunc(func(x, y int) float64 {
		return raw[utils.ToIndex(x, y, size)]
	}))
}

func (n Normalizer) remap(size int, raw []float64, r Range, lo, hi int64) HeightField {
	var field = NewHeightField(size)
	var span = r.Max - r.Min
	if !(span > 0) {
		// Degenerate extent: the field stays uniformly zero.
		return field
	}
	utils.ForRows(size, n.Workers, func(y int) {
		for x := 0; x < size; x++ {
			var i = utils.ToIndex(x, y, size)
			switch n.encode(raw[i]) {
			case lo:
				field.Values[i] = 0
			case hi:
				field.Values[i] = 1
			default:
				field.Values[i] = utils.Clamp((raw[i]-r.Min)/span, 0, 1)
			}
		}
	})
	return field
}

func (r Range) checked(logger *slog.Logger) Range {
	if !(r.Max-r.Min > 0) {
		r.Degenerate = true
		logger.Warn("normalization range is degenerate, using a flat field", "min", r.Min, "max", r.Max)
	}
	return r
}

func (n Normalizer) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

func (n Normalizer) encode(v float64) int64 {
	if n.Scalar > 0 {
		return int64(math.Round(v * float64(n.Scalar)))
	}
	var k = int64(math.Float64bits(v))
	if k < 0 {
		k ^= math.MaxInt64
	}
	return k
}

func (n Normalizer) decode(k int64) float64 {
	if n.Scalar > 0 {
		return float64(k) / float64(n.Scalar)
	}
	if k < 0 {
		k ^= math.MaxInt64
	}
	return math.Float64frombits(uint64(k))
}

func atomicMin(a *atomic.Int64, k int64) {
	for {
		var cur = a.Load()
		if k >= cur || a.CompareAndSwap(cur, k) {
			return
		}
	}
}

func atomicMax(a *atomic.Int64, k int64) {
	for {
		var cur = a.Load()
		if k <= cur || a.CompareAndSwap(cur, k) {
			return
		}
	}
}

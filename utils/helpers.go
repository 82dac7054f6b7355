package utils

import (
	"math"
)

type Point struct {
	X, Y int
}

// ToIndex returns the row-major index of p in a grid of the given width.
func (p Point) ToIndex(width int) int {
	return p.Y*width + p.X
}

func ToIndex(x, y, width int) int {
	return y*width + x
}

// WithinBounds reports whether (x, y) lies inside a square grid of side size.
func WithinBounds(x, y, size int) bool {
	if x >= 0 && x < size && y >= 0 && y < size {
		return true
	}
	return false
}

func Midpoint(p1, p2 int) int {
	return (p2 + p1) / 2
}

func Average(nums ...float64) float64 {
	var total = 0.0
	var count = 0.0
	for _, num := range nums {
		total += num
		count++
	}
	if count == 0 {
		return 0
	}
	return total / count
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Jitter shifts value by a uniform offset in [-scale, scale] drawn from rnd,
// which must return values in [0, 1).
func Jitter(value, scale float64, rnd func() float64) float64 {
	random := rnd() * scale * 2
	shift := scale - random
	return shift + value
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

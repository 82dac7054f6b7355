package generators

import (
	"fmt"
	"strings"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Basis is a coherent 2D noise function returning values in roughly [-1, 1].
// Implementations must be safe for concurrent reads.
type Basis interface {
	Eval2(x, y float64) float64
}

type BasisKind int

const (
	Simplex BasisKind = iota
	Perlin
)

func (k BasisKind) String() string {
	switch k {
	case Perlin:
		return "perlin"
	default:
		return "simplex"
	}
}

func ParseBasisKind(s string) (BasisKind, error) {
	switch strings.ToLower(s) {
	case "", "simplex", "opensimplex":
		return Simplex, nil
	case "perlin":
		return Perlin, nil
	}
	return Simplex, &ConfigurationError{Field: "basis", Reason: fmt.Sprintf("unknown kind %q", s)}
}

func NewBasis(kind BasisKind, seed int64) Basis {
	if kind == Perlin {
		return NewPerlinBasis(seed)
	}
	return NewSimplexBasis(seed)
}

type SimplexBasis struct {
	noise opensimplex.Noise
}

func NewSimplexBasis(seed int64) *SimplexBasis {
	return &SimplexBasis{noise: opensimplex.New(seed)}
}

func (b *SimplexBasis) Eval2(x, y float64) float64 {
	return b.noise.Eval2(x, y)
}

// PerlinBasis wraps go-perlin with a single octave; octave summation is done by FBM.
type PerlinBasis struct {
	noise *perlin.Perlin
}

func NewPerlinBasis(seed int64) *PerlinBasis {
	return &PerlinBasis{noise: perlin.NewPerlin(2, 2, 1, seed)}
}

func (b *PerlinBasis) Eval2(x, y float64) float64 {
	return b.noise.Noise2D(x, y)
}

func (k BasisKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *BasisKind) UnmarshalText(text []byte) error {
	parsed, err := ParseBasisKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

package generators

import (
	"fmt"
	"math"
	"strings"
)

type NoiseParameters struct {
	Octaves        int     `json:"octaves"`
	Persistence    float64 `json:"persistence"`
	Lacunarity     float64 `json:"lacunarity"`
	Exponentiation float64 `json:"exponentiation"`
	Amplitude      float64 `json:"amplitude"`
	Frequency      float64 `json:"frequency"`
	Seed           float64 `json:"seed"`
	Scale          float64 `json:"scale"`
}

func DefaultNoiseParameters() NoiseParameters {
	return NoiseParameters{
		Octaves:        6,
		Persistence:    0.5,
		Lacunarity:     2,
		Exponentiation: 1,
		Amplitude:      1,
		Frequency:      1,
		Seed:           0,
		Scale:          128,
	}
}

func (p NoiseParameters) Validate() error {
	if p.Octaves < 1 {
		return &ConfigurationError{Field: "octaves", Reason: "must be at least 1"}
	}
	if !(p.Scale > 0) {
		return &ConfigurationError{Field: "scale", Reason: "must be positive"}
	}
	if !(p.Frequency > 0) {
		return &ConfigurationError{Field: "frequency", Reason: "must be positive"}
	}
	if !(p.Amplitude > 0) {
		return &ConfigurationError{Field: "amplitude", Reason: "must be positive"}
	}
	if p.Exponentiation < 0 {
		return &ConfigurationError{Field: "exponentiation", Reason: "must not be negative"}
	}
	return nil
}

// Variant selects how octave layers are combined.
type Variant int

const (
	Plain Variant = iota
	Ridged
	Combined
)

func (v Variant) String() string {
	switch v {
	case Ridged:
		return "ridged"
	case Combined:
		return "combined"
	default:
		return "plain"
	}
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "", "plain", "fbm":
		return Plain, nil
	case "ridged", "riged":
		return Ridged, nil
	case "combined":
		return Combined, nil
	}
	return Plain, &ConfigurationError{Field: "variant", Reason: fmt.Sprintf("unknown variant %q", s)}
}

// VariantFromFlags maps the pair of toggles onto a variant; combined wins over ridged.
func VariantFromFlags(ridged, combined bool) Variant {
	if combined {
		return Combined
	}
	if ridged {
		return Ridged
	}
	return Plain
}

// FBM is a fractal Brownian motion height function. Height is pure and safe
// to call from many goroutines.
type FBM struct {
	params  NoiseParameters
	variant Variant
	basis   Basis
}

func NewFBM(params NoiseParameters, variant Variant, basis Basis) (*FBM, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if basis == nil {
		basis = NewSimplexBasis(int64(params.Seed))
	}
	return &FBM{params: params, variant: variant, basis: basis}, nil
}

func (f *FBM) Params() NoiseParameters { return f.params }
func (f *FBM) Variant() Variant        { return f.variant }

// Height returns the unnormalized value at grid coordinate (x, y).
func (f *FBM) Height(x, y float64) float64 {
	var plain, ridged = f.layers(x, y)
	switch f.variant {
	case Ridged:
		return ridged
	case Combined:
		return 0.5 * (plain + ridged)
	default:
		return plain
	}
}

// Sample adapts FBM to the integer-grid Source interface.
func (f *FBM) Sample(x, y int) float64 {
	return f.Height(float64(x), float64(y))
}

func (f *FBM) layers(x, y float64) (plain, ridged float64) {
	var p = f.params
	var xs = (x + p.Seed) / p.Scale
	var ys = (y + p.Seed) / p.Scale
	var amplitude = p.Amplitude
	var frequency = p.Frequency

	for i := 0; i < p.Octaves; i++ {
		var n = f.basis.Eval2(xs*frequency, ys*frequency)
		plain += n * amplitude
		if f.variant != Plain {
			ridged += math.Pow(math.Max(0, 1-math.Abs(n)), p.Exponentiation) * amplitude
		}
		amplitude *= p.Persistence
		frequency *= p.Lacunarity
	}
	return plain, ridged
}

func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

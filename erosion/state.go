package erosion

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
)

// baseTimeStep is the per-iteration step before TimeScale is applied.
const baseTimeStep = 0.016

// Params holds the physical constants of the hydraulic model.
type Params struct {
	IsRaining bool `json:"isRaining"`

	TimeScale   float64 `json:"timeScale"`
	Gravity     float64 `json:"gravity"`
	RainRate    float64 `json:"rainRate"`
	HeightScale float64 `json:"heightScale"`

	EvaporationRate        float64 `json:"evaporationRate"`
	SoilSuspensionRate     float64 `json:"soilSuspensionRate"`
	SedimentDepositionRate float64 `json:"sedimentDepositionRate"`
	SedimentSofteningRate  float64 `json:"sedimentSofteningRate"`
	SedimentCapacity       float64 `json:"sedimentCapacity"`
	MaxErosionDepth        float64 `json:"maxErosionDepth"`
	MinHardness            float64 `json:"minHardness"`

	PipeLength    float64    `json:"pipeLength"`
	PipeCrossArea float64    `json:"pipeCrossArea"`
	CellSize      mgl64.Vec2 `json:"cellSize"`
}

func DefaultParams() Params {
	return Params{
		IsRaining:              true,
		TimeScale:              1,
		Gravity:                9.81,
		RainRate:               0.02,
		HeightScale:            500,
		EvaporationRate:        0.015,
		SoilSuspensionRate:     0.01,
		SedimentDepositionRate: 0.3,
		SedimentSofteningRate:  3,
		SedimentCapacity:       0.1,
		MaxErosionDepth:        1,
		MinHardness:            0.1,
		PipeLength:             1,
		PipeCrossArea:          4,
		CellSize:               mgl64.Vec2{1, 1},
	}
}

func (p Params) DeltaTime() float64 {
	return baseTimeStep * p.TimeScale
}

func (p Params) CellArea() float64 {
	return p.CellSize.X() * p.CellSize.Y()
}

func (p Params) Validate() error {
	var positive = []struct {
		name  string
		value float64
	}{
		{"timeScale", p.TimeScale},
		{"gravity", p.Gravity},
		{"heightScale", p.HeightScale},
		{"pipeLength", p.PipeLength},
		{"pipeCrossArea", p.PipeCrossArea},
		{"cellSize.x", p.CellSize.X()},
		{"cellSize.y", p.CellSize.Y()},
		{"maxErosionDepth", p.MaxErosionDepth},
	}
	for _, f := range positive {
		if !(f.value > 0) {
			return &ConfigurationError{Field: f.name, Reason: "must be positive"}
		}
	}
	var nonNegative = []struct {
		name  string
		value float64
	}{
		{"rainRate", p.RainRate},
		{"evaporationRate", p.EvaporationRate},
		{"soilSuspensionRate", p.SoilSuspensionRate},
		{"sedimentDepositionRate", p.SedimentDepositionRate},
		{"sedimentSofteningRate", p.SedimentSofteningRate},
		{"sedimentCapacity", p.SedimentCapacity},
	}
	for _, f := range nonNegative {
		if !(f.value >= 0) {
			return &ConfigurationError{Field: f.name, Reason: "must not be negative"}
		}
	}
	if !(p.MinHardness > 0 && p.MinHardness <= 1) {
		return &ConfigurationError{Field: "minHardness", Reason: "must be in (0, 1]"}
	}
	if p.EvaporationRate*p.DeltaTime() > 1 {
		return &ConfigurationError{Field: "evaporationRate", Reason: "removes more than all water in one step"}
	}
	return nil
}

func (p *Params) fields() map[string]*float64 {
	return map[string]*float64{
		"time_scale":               &p.TimeScale,
		"gravity":                  &p.Gravity,
		"rain_rate":                &p.RainRate,
		"height_scale":             &p.HeightScale,
		"evaporation_rate":         &p.EvaporationRate,
		"soil_suspension_rate":     &p.SoilSuspensionRate,
		"sediment_deposition_rate": &p.SedimentDepositionRate,
		"sediment_softening_rate":  &p.SedimentSofteningRate,
		"sediment_capacity":        &p.SedimentCapacity,
		"max_erosion_depth":        &p.MaxErosionDepth,
		"min_hardness":             &p.MinHardness,
		"pipe_length":              &p.PipeLength,
		"pipe_cross_area":          &p.PipeCrossArea,
		"cell_size_x":              &p.CellSize[0],
		"cell_size_y":              &p.CellSize[1],
	}
}

// FromMap overrides fields from flag-style key/value pairs such as
// "rain_rate=0.05". Unknown keys and unparsable values are errors.
func (p Params) FromMap(cfg map[string]string) (Params, error) {
	var fields = p.fields()
	for key, raw := range cfg {
		if key == "raining" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return p, &ConfigurationError{Field: key, Reason: fmt.Sprintf("bad value %q", raw)}
			}
			p.IsRaining = v
			continue
		}
		var dst, ok = fields[key]
		if !ok {
			return p, &ConfigurationError{Field: key, Reason: "is not a known erosion parameter"}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, &ConfigurationError{Field: key, Reason: fmt.Sprintf("bad value %q", raw)}
		}
		*dst = v
	}
	return p, nil
}

// Keys lists the names accepted by FromMap, sorted.
func (p Params) Keys() []string {
	var keys = []string{"raining"}
	for k := range p.fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Params) LogValue() slog.Value {
	var attrs = []slog.Attr{slog.Bool("raining", p.IsRaining), slog.Float64("delta_time", p.DeltaTime())}
	var fields = p.fields()
	for _, k := range p.Keys() {
		if ptr, ok := fields[k]; ok {
			attrs = append(attrs, slog.Float64(k, *ptr))
		}
	}
	return slog.GroupValue(attrs...)
}

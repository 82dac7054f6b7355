package terrain

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ob6160/TerrainErosion/erosion"
	"github.com/ob6160/TerrainErosion/generators"
)

var ErrInvalidConfig = generators.ErrInvalidConfig

type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("terrain: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

const (
	SourceFBM      = "fbm"
	SourceMidpoint = "midpoint"
)

// Config describes one generate, erode and export run.
type Config struct {
	MapSize int    `json:"mapSize"`
	Source  string `json:"source"`

	Noise   generators.NoiseParameters `json:"noise"`
	Variant generators.Variant         `json:"variant"`
	Basis   generators.BasisKind       `json:"basis"`

	// Midpoint displacement only.
	Spread float64 `json:"spread"`
	Reduce float64 `json:"reduce"`

	// FixedPointScalar > 0 switches the normalizer to fixed-point keys.
	FixedPointScalar int64 `json:"fixedPointScalar"`

	Erosion         erosion.Params   `json:"erosion"`
	InitialHardness float64          `json:"initialHardness"`
	Iterations      int              `json:"iterations"`
	Mode            erosion.Mode     `json:"mode"`
	Pipeline        erosion.Pipeline `json:"pipeline"`
	Workers         int              `json:"workers"`
	ProgressEvery   int              `json:"progressEvery"`

	// Resolution handed to the sink; 0 keeps MapSize.
	Resolution int `json:"resolution"`
}

func DefaultConfig() Config {
	return Config{
		MapSize:         256,
		Source:          SourceFBM,
		Noise:           generators.DefaultNoiseParameters(),
		Variant:         generators.Plain,
		Basis:           generators.Simplex,
		Spread:          0.5,
		Reduce:          0.5,
		Erosion:         erosion.DefaultParams(),
		InitialHardness: erosion.DefaultInitialHardness,
		Iterations:      1000,
		Mode:            erosion.DoubleBuffer,
		Pipeline:        erosion.Reference,
		ProgressEvery:   100,
	}
}

// LoadConfig reads a JSON file over DefaultConfig; absent keys keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	var cfg = DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MapSize <= 0 {
		return &ConfigurationError{Field: "mapSize", Reason: "must be positive"}
	}
	switch c.Source {
	case SourceFBM:
		if err := c.Noise.Validate(); err != nil {
			return err
		}
	case SourceMidpoint:
		if c.Spread < 0 || c.Reduce < 0 {
			return &ConfigurationError{Field: "spread", Reason: "spread and reduce must not be negative"}
		}
	default:
		return &ConfigurationError{Field: "source", Reason: fmt.Sprintf("unknown source %q", c.Source)}
	}
	if c.FixedPointScalar < 0 {
		return &ConfigurationError{Field: "fixedPointScalar", Reason: "must not be negative"}
	}
	if !(c.InitialHardness > 0 && c.InitialHardness <= 1) {
		return &ConfigurationError{Field: "initialHardness", Reason: "must be in (0, 1]"}
	}
	if c.Iterations < 0 {
		return &ConfigurationError{Field: "iterations", Reason: "must not be negative"}
	}
	if c.Resolution < 0 {
		return &ConfigurationError{Field: "resolution", Reason: "must not be negative"}
	}
	return c.Erosion.Validate()
}

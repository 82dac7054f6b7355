package erosion

import (
	"fmt"

	"github.com/ob6160/TerrainErosion/generators"
)

// ErrInvalidConfig is the sentinel generators uses too.
var ErrInvalidConfig = generators.ErrInvalidConfig

type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("erosion: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NumericFaultError reports the first non-finite value found after a stage.
// It indicates a logic fault; the run is aborted rather than retried.
type NumericFaultError struct {
	Iteration int
	Stage     Stage
	X, Y      int
	Field     string
	Value     float64
}

func (e *NumericFaultError) Error() string {
	return fmt.Sprintf("erosion: non-finite %s=%v at (%d, %d) after %s in iteration %d",
		e.Field, e.Value, e.X, e.Y, e.Stage, e.Iteration)
}

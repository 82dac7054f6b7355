package generators

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every ConfigurationError.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrDegenerateRange reports a field whose global minimum equals its maximum.
	ErrDegenerateRange = errors.New("degenerate normalization range")
)

type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("generators: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

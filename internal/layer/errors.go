package layer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned by constructors for unusable settings,
	// e.g. a non-positive size or a keep probability outside [0, 1].
	ErrInvalidConfig = errors.New("layer: invalid configuration")

	// ErrNoForward is returned when Backward runs before any Forward.
	ErrNoForward = errors.New("layer: backward called before forward")
)

type noForwardError struct {
	kind Kind
}

func (e *noForwardError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, ErrNoForward)
}

func (e *noForwardError) Unwrap() error { return ErrNoForward }

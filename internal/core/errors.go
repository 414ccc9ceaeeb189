package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLength is returned when a window or transform length is not positive.
	ErrInvalidLength = errors.New("length must be > 0")

	// ErrInvalidConfig is returned by Init when a config fails validation.
	ErrInvalidConfig = errors.New("invalid indicator config")

	// ErrUnknownField is wrapped by FieldError when Set names a field the config does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrShapeMismatch means a Step result does not match the config's declared Size.
	// It is a programming error in the indicator, never a runtime condition.
	ErrShapeMismatch = errors.New("result shape does not match declared size")
)

// FieldError reports a failed dynamic Set call.
type FieldError struct {
	Indicator string
	Field     string
	Value     string
	Err       error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: set %s=%q: %v", e.Indicator, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func invalidLength(what string, n int) error {
	return fmt.Errorf("%s: length=%d: %w", what, n, ErrInvalidLength)
}

// InvalidConfig wraps ErrInvalidConfig with the indicator name and reason.
func InvalidConfig(name, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", name, fmt.Sprintf(format, args...), ErrInvalidConfig)
}

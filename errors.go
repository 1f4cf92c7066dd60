package sdrtx

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrUninitialized = errors.New("transmitter not initialized")
	ErrInvalidConfig = errors.New("invalid transmitter configuration")
)

// ResourceError reports a keying line or encoder that could not be built
// during Initialize
type ResourceError struct {
	Resource string // "serial", "gpio" or "encoder"
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("failed to set up %s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ArmError reports a keying line that could not be switched on
type ArmError struct {
	Line string // "serial" or "gpio"
	Err  error
}

func (e *ArmError) Error() string {
	return fmt.Sprintf("failed to enable %s line: %v", e.Line, e.Err)
}

func (e *ArmError) Unwrap() error { return e.Err }

// PlayError reports a failed playback of encoded data
type PlayError struct {
	Err error
}

func (e *PlayError) Error() string {
	return fmt.Sprintf("failed to play: %v", e.Err)
}

func (e *PlayError) Unwrap() error { return e.Err }

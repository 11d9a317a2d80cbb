package capture

import (
	"errors"
	"fmt"
)

// Sentinel errors for session misuse and device selection.
var (
	// ErrStreamOpen is returned by Open while a stream is already held.
	ErrStreamOpen = errors.New("capture: stream already open, stop it first")

	// ErrNoCamera is returned when no video input matches the requested
	// facing.
	ErrNoCamera = errors.New("capture: no camera available")
)

// PermissionError wraps any acquisition failure: a denied permission, a
// busy device, or a missing camera. The pipeline folds every one of
// them into the denied state instead of propagating it.
type PermissionError struct {
	Facing Facing
	Err    error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("capture [%s]: acquisition failed: %v", e.Facing, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// AsPermissionError converts err into a *PermissionError, wrapping it
// when the device returned something else. A nil err stays nil.
func AsPermissionError(facing Facing, err error) *PermissionError {
	if err == nil {
		return nil
	}
	var perr *PermissionError
	if errors.As(err, &perr) {
		return perr
	}
	return &PermissionError{Facing: facing, Err: err}
}

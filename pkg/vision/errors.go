package vision

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry state.
var (
	// ErrNotReady is returned when a model is requested before both
	// models have loaded.
	ErrNotReady = errors.New("vision: models not ready")

	// ErrAlreadyLoaded is returned when Load is called on a registry
	// that already holds models.
	ErrAlreadyLoaded = errors.New("vision: models already loaded")
)

// ModelLoadError reports a failed model acquisition. Either model
// failing is fatal to the pipeline: the registry stays empty and never
// becomes ready.
type ModelLoadError struct {
	Model string // "scene" or "object"
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("vision [%s]: model load failed: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// Package capture manages acquisition and release of the live camera
// stream. One session owns at most one open stream, a permission gate
// derives tri-state access from acquisition outcomes, and a single-slot
// mailbox hands the latest sampled frame to the inference pipeline.
package capture

import (
	"context"

	"github.com/spottercam/go-spotter/pkg/vision"
)

// Facing selects which physical camera a stream is bound to.
type Facing string

const (
	// FacingUser is the front (selfie) camera.
	FacingUser Facing = "user"

	// FacingEnvironment is the rear (world) camera.
	FacingEnvironment Facing = "environment"
)

// Flip returns the opposite facing.
func (f Facing) Flip() Facing {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// ParseFacing maps a wire string to a Facing. Anything other than
// "user" means the environment camera.
func ParseFacing(s string) Facing {
	if s == string(FacingUser) {
		return FacingUser
	}
	return FacingEnvironment
}

// State is the tri-state outcome of the most recent acquisition attempt.
type State string

const (
	// StateUnknown means no acquisition attempt has completed yet.
	StateUnknown State = "unknown"

	// StateGranted means a stream is open and frames are flowing.
	StateGranted State = "granted"

	// StateDenied means the last acquisition failed. Only another
	// acquisition attempt (a facing toggle) leaves this state.
	StateDenied State = "denied"
)

// Constraints carries the resolution hint passed to the device. The
// device treats it as ideal, not mandatory.
type Constraints struct {
	IdealWidth  int
	IdealHeight int
}

// DefaultConstraints returns the portrait hint used by the overlay.
func DefaultConstraints() Constraints {
	return Constraints{IdealWidth: 1080, IdealHeight: 1920}
}

// Track is one stoppable track of an open stream.
type Track interface {
	ID() string
	Stop() error
}

// FrameReader delivers sampled frames from a live stream. Read blocks
// until the next frame arrives, the stream ends, or ctx is done.
type FrameReader interface {
	Read(ctx context.Context) (vision.Frame, error)
}

// Stream is a live camera stream handle.
type Stream interface {
	ID() string
	Tracks() []Track
	Reader() FrameReader
}

// Device abstracts the capture hardware: it opens a stream bound to a
// facing mode, honoring a best-effort resolution hint.
type Device interface {
	RequestStream(ctx context.Context, facing Facing, cons Constraints) (Stream, error)
}

// Package controller owns the externally observable pipeline state and
// orchestrates facing changes: stop the open stream, flip the mode,
// reacquire, and record the outcome on the permission gate.
package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spottercam/go-spotter/pkg/capture"
	"github.com/spottercam/go-spotter/pkg/vision"
)

// ReadyFunc reports whether both inference models are loaded.
type ReadyFunc func() bool

// Snapshot is the externally observable pipeline state. It is replaced
// as a whole on every change, never edited in place.
type Snapshot struct {
	Capture    capture.State     `json:"capture"`
	Facing     capture.Facing    `json:"facing"`
	Ready      bool              `json:"ready"`
	Detections vision.Detections `json:"detections"`
}

// Controller is the single owner of the detection list and the capture
// lifecycle that presentation observes. Facing toggles are serialized,
// so two streams can never be open at once.
type Controller struct {
	session *capture.Session
	gate    *capture.Gate
	ready   ReadyFunc
	logger  *slog.Logger

	// toggleMu serializes the stop-flip-reacquire transition.
	toggleMu sync.Mutex

	mu         sync.RWMutex
	facing     capture.Facing
	detections vision.Detections

	// OnDetections observes every replacement of the detection list.
	// Set it before Start.
	OnDetections func(vision.Detections)

	// OnState observes every capture-state change. Set it before Start.
	OnState func(Snapshot)
}

// New creates a controller that will first acquire facing. The
// detection list starts empty, not nil, so consumers always see a list.
func New(session *capture.Session, gate *capture.Gate, ready ReadyFunc, facing capture.Facing, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if ready == nil {
		ready = func() bool { return false }
	}
	return &Controller{
		session:    session,
		gate:       gate,
		ready:      ready,
		facing:     facing,
		detections: vision.Detections{},
		logger:     logger.With("component", "controller"),
	}
}

// Start performs the initial stream acquisition. A denial is not an
// error here: the pipeline stays up and reports the denied state until
// a toggle retries.
func (c *Controller) Start(ctx context.Context) {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()
	c.acquire(ctx, c.Facing())
}

// acquire opens facing and records the outcome on the gate. Callers
// hold toggleMu.
func (c *Controller) acquire(ctx context.Context, facing capture.Facing) error {
	err := c.session.Open(ctx, facing)
	c.gate.Observe(facing, err)
	if err != nil {
		c.logger.Warn("camera acquisition denied", "facing", facing, "error", err)
	}
	c.publishState()
	return err
}

// ToggleFacing stops the open stream (if any), flips the requested
// facing, and reacquires. It is also the only path out of the denied
// state. Concurrent calls queue; each one performs a full transition.
// A failed reacquisition leaves the gate denied and is reported in the
// returned snapshot, not retried.
func (c *Controller) ToggleFacing(ctx context.Context) (Snapshot, error) {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	c.session.Stop()

	c.mu.Lock()
	c.facing = c.facing.Flip()
	facing := c.facing
	c.mu.Unlock()

	c.logger.Info("toggling camera facing", "facing", facing)
	err := c.acquire(ctx, facing)
	return c.Snapshot(), err
}

// PublishDetections replaces the owned detection list. The fusion
// engine's publish callback lands here.
func (c *Controller) PublishDetections(d vision.Detections) {
	c.setDetections(d)
}

// ClearDetections empties the list immediately; the next successful
// fusion pass repopulates it.
func (c *Controller) ClearDetections() {
	c.logger.Debug("detections cleared")
	c.setDetections(vision.Detections{})
}

func (c *Controller) setDetections(d vision.Detections) {
	if d == nil {
		d = vision.Detections{}
	}
	c.mu.Lock()
	c.detections = d
	c.mu.Unlock()

	if cb := c.OnDetections; cb != nil {
		cb(d)
	}
}

// Detections returns the current ranked list. Callers must treat it as
// read-only; it is replaced, never mutated.
func (c *Controller) Detections() vision.Detections {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detections
}

// Facing returns the requested facing, which survives denials.
func (c *Controller) Facing() capture.Facing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.facing
}

// Snapshot returns the full observable state.
func (c *Controller) Snapshot() Snapshot {
	state, _ := c.gate.State()

	c.mu.RLock()
	facing := c.facing
	dets := c.detections
	c.mu.RUnlock()

	return Snapshot{
		Capture:    state,
		Facing:     facing,
		Ready:      c.ready(),
		Detections: dets,
	}
}

func (c *Controller) publishState() {
	if cb := c.OnState; cb != nil {
		cb(c.Snapshot())
	}
}

// Close stops the capture session. Safe in any state.
func (c *Controller) Close() {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()
	c.session.Stop()
}

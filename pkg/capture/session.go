package capture

import (
	"context"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/spottercam/go-spotter/pkg/vision"
)

// Session owns at most one open camera stream at a time. Open fails
// while a stream is held; the controller sequences Stop before the next
// Open, the session enforces the invariant.
type Session struct {
	device Device
	cons   Constraints
	logger *slog.Logger

	mu       sync.Mutex
	stream   Stream
	facing   Facing
	source   *FrameSource
	stopPump context.CancelFunc
	pumpDone chan struct{}

	// OnFrame, if set, observes every sampled frame after it lands in
	// the mailbox. Set it before the first Open.
	OnFrame func(vision.Frame)
}

// NewSession creates a session around device.
func NewSession(device Device, cons Constraints, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		device: device,
		cons:   cons,
		logger: logger.With("component", "capture.session"),
	}
}

// Open requests a stream for facing and starts pumping its frames into
// a fresh mailbox. Any device failure comes back as a *PermissionError
// and leaves the session empty. Opening over a held stream returns
// ErrStreamOpen.
func (s *Session) Open(ctx context.Context, facing Facing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return ErrStreamOpen
	}

	stream, err := s.device.RequestStream(ctx, facing, s.cons)
	if err != nil {
		perr := AsPermissionError(facing, err)
		s.logger.Warn("stream acquisition failed", "facing", facing, "error", perr)
		return perr
	}

	s.stream = stream
	s.facing = facing
	s.source = NewFrameSource()

	pumpCtx, cancel := context.WithCancel(context.Background())
	s.stopPump = cancel
	s.pumpDone = make(chan struct{})
	go s.pump(pumpCtx, stream.Reader(), s.source, s.pumpDone)

	s.logger.Info("stream open", "facing", facing, "stream_id", stream.ID())
	return nil
}

// pump moves frames from the live stream into the mailbox until the
// stream ends or the pump is canceled. A read error ends the pump; the
// mailbox keeps serving its last frame until the next Open replaces it.
func (s *Session) pump(ctx context.Context, reader FrameReader, source *FrameSource, done chan struct{}) {
	defer close(done)

	for {
		frame, err := reader.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("frame read failed, pump stopped", "error", err)
			}
			return
		}
		source.Publish(frame)
		if cb := s.OnFrame; cb != nil {
			cb(frame)
		}
	}
}

// Stop halts every track of the held stream and waits for the frame
// pump to exit. It is idempotent and safe to call with nothing held.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return
	}

	// Stop tracks first so a blocked Read unblocks, then halt the pump.
	var err error
	for _, t := range s.stream.Tracks() {
		err = multierr.Append(err, t.Stop())
	}
	if err != nil {
		s.logger.Warn("stopping tracks", "error", err)
	}
	s.stopPump()
	<-s.pumpDone

	s.logger.Info("stream stopped", "stream_id", s.stream.ID(), "facing", s.facing)

	s.stream = nil
	s.source = nil
	s.stopPump = nil
	s.pumpDone = nil
}

// Active reports whether a stream is currently held.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Facing returns the facing of the most recently requested stream.
func (s *Session) Facing() Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// StreamID returns the held stream's ID, or "" when nothing is open.
func (s *Session) StreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return ""
	}
	return s.stream.ID()
}

// FrameSource returns the live frame mailbox, or nil while no stream is
// open. Each Open creates a fresh mailbox, so frames from a stopped
// stream never leak into the next one.
func (s *Session) FrameSource() *FrameSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

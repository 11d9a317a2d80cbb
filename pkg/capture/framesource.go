package capture

import (
	"sync"
	"sync/atomic"

	"github.com/spottercam/go-spotter/pkg/vision"
)

// FrameSource is a single-slot mailbox holding the latest sampled
// frame. New frames overwrite unconsumed ones: the pipeline always
// prefers a fresh frame over a complete sequence, so nothing ever
// queues behind a slow consumer.
type FrameSource struct {
	mu    sync.Mutex
	frame vision.Frame
	valid bool
	seen  bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// FrameStats is a snapshot of mailbox counters.
type FrameStats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// NewFrameSource creates an empty mailbox.
func NewFrameSource() *FrameSource {
	return &FrameSource{}
}

// Publish stores frame as the latest, replacing any previous one. A
// frame the pipeline never looked at counts as dropped.
func (s *FrameSource) Publish(frame vision.Frame) {
	s.mu.Lock()
	if s.valid && !s.seen {
		s.dropped.Add(1)
	}
	s.frame = frame
	s.valid = true
	s.seen = false
	s.mu.Unlock()

	s.published.Add(1)
}

// Latest returns the most recent frame, or false if none has arrived
// yet. The frame stays available for later calls.
func (s *FrameSource) Latest() (vision.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid {
		return vision.Frame{}, false
	}
	s.seen = true
	return s.frame, true
}

// Stats returns a snapshot of the mailbox counters.
func (s *FrameSource) Stats() FrameStats {
	return FrameStats{
		Published: s.published.Load(),
		Dropped:   s.dropped.Load(),
	}
}

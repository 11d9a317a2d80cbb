package capture

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spottercam/go-spotter/pkg/vision"
)

// MockDevice is a scripted capture device for testing. Outcomes for
// upcoming RequestStream calls are queued with ScriptOutcomes; an empty
// script always succeeds. The device records every attempt and tracks
// how many of its streams are open simultaneously.
type MockDevice struct {
	mu       sync.Mutex
	script   []error
	attempts []Facing
	streams  []*MockStream
	delay    time.Duration

	open    int
	maxOpen int
}

// NewMockDevice creates a device whose streams always open.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// ScriptOutcomes queues the outcome of each upcoming RequestStream
// call: a nil entry succeeds, a non-nil entry fails with that error.
// Once the script runs out, calls succeed.
func (d *MockDevice) ScriptOutcomes(outcomes ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, outcomes...)
}

// SetDelay makes each RequestStream call take at least delay.
func (d *MockDevice) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// RequestStream plays the next scripted outcome.
func (d *MockDevice) RequestStream(ctx context.Context, facing Facing, cons Constraints) (Stream, error) {
	d.mu.Lock()
	var outcome error
	if len(d.script) > 0 {
		outcome = d.script[0]
		d.script = d.script[1:]
	}
	d.attempts = append(d.attempts, facing)
	delay := d.delay
	d.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if outcome != nil {
		return nil, outcome
	}

	s := newMockStream(facing, d.streamStopped)

	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.open++
	if d.open > d.maxOpen {
		d.maxOpen = d.open
	}
	d.mu.Unlock()

	return s, nil
}

func (d *MockDevice) streamStopped() {
	d.mu.Lock()
	d.open--
	d.mu.Unlock()
}

// Attempts returns the facing of every RequestStream call so far.
func (d *MockDevice) Attempts() []Facing {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Facing(nil), d.attempts...)
}

// Streams returns every stream the device handed out.
func (d *MockDevice) Streams() []*MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*MockStream(nil), d.streams...)
}

// LastStream returns the most recently opened stream, or nil.
func (d *MockDevice) LastStream() *MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

// OpenStreams counts streams that have not been stopped yet.
func (d *MockDevice) OpenStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// MaxOpenStreams reports the highest number of simultaneously open
// streams observed.
func (d *MockDevice) MaxOpenStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxOpen
}

// MockStream is a scripted stream; frames appear only when injected.
type MockStream struct {
	id     string
	facing Facing
	track  *MockTrack
	frames chan vision.Frame

	stopOnce sync.Once
	stopped  chan struct{}
	onStop   func()
}

func newMockStream(facing Facing, onStop func()) *MockStream {
	s := &MockStream{
		id:      uuid.NewString(),
		facing:  facing,
		frames:  make(chan vision.Frame, 1),
		stopped: make(chan struct{}),
		onStop:  onStop,
	}
	s.track = &MockTrack{id: uuid.NewString(), stream: s}
	return s
}

func (s *MockStream) ID() string { return s.id }

// Facing returns the facing the stream was opened with.
func (s *MockStream) Facing() Facing { return s.facing }

func (s *MockStream) Tracks() []Track { return []Track{s.track} }

func (s *MockStream) Reader() FrameReader { return &mockFrameReader{stream: s} }

// InjectFrame makes frame available to the stream's reader, replacing
// any frame not yet read.
func (s *MockStream) InjectFrame(frame vision.Frame) {
	select {
	case s.frames <- frame:
	default:
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- frame:
		default:
		}
	}
}

// Stopped reports whether the stream's track was stopped.
func (s *MockStream) Stopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

func (s *MockStream) markStopped() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if s.onStop != nil {
			s.onStop()
		}
	})
}

// MockTrack is the single track of a MockStream.
type MockTrack struct {
	id     string
	stream *MockStream

	mu    sync.Mutex
	stops int
}

func (t *MockTrack) ID() string { return t.id }

// Stop ends the track. Extra calls are counted but harmless.
func (t *MockTrack) Stop() error {
	t.mu.Lock()
	t.stops++
	t.mu.Unlock()

	t.stream.markStopped()
	return nil
}

// Stops returns how many times Stop was called.
func (t *MockTrack) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

type mockFrameReader struct {
	stream *MockStream
}

// Read blocks until a frame is injected, the stream stops, or ctx ends.
func (r *mockFrameReader) Read(ctx context.Context) (vision.Frame, error) {
	select {
	case <-ctx.Done():
		return vision.Frame{}, ctx.Err()
	case <-r.stream.stopped:
		return vision.Frame{}, io.EOF
	case f := <-r.stream.frames:
		return f, nil
	}
}

// Ensure the mocks implement the capture contracts.
var (
	_ Device = (*MockDevice)(nil)
	_ Stream = (*MockStream)(nil)
	_ Track  = (*MockTrack)(nil)
)

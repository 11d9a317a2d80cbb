package capture

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spottercam/go-spotter/pkg/vision"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionOpenAndStop(t *testing.T) {
	device := NewMockDevice()
	s := NewSession(device, DefaultConstraints(), nil)

	if err := s.Open(context.Background(), FacingEnvironment); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !s.Active() {
		t.Error("session not active after Open")
	}
	if s.StreamID() == "" {
		t.Error("StreamID() empty after Open")
	}
	if s.FrameSource() == nil {
		t.Error("FrameSource() nil after Open")
	}
	if s.Facing() != FacingEnvironment {
		t.Errorf("Facing() = %q, want environment", s.Facing())
	}

	s.Stop()

	if s.Active() {
		t.Error("session still active after Stop")
	}
	if s.FrameSource() != nil {
		t.Error("FrameSource() survives Stop")
	}
	if device.OpenStreams() != 0 {
		t.Errorf("device reports %d open streams after Stop", device.OpenStreams())
	}
}

func TestSessionOpenWrapsPermissionError(t *testing.T) {
	device := NewMockDevice()
	denied := errors.New("NotAllowedError: permission denied")
	device.ScriptOutcomes(denied)

	s := NewSession(device, DefaultConstraints(), nil)
	err := s.Open(context.Background(), FacingUser)
	if err == nil {
		t.Fatal("Open() succeeded with a scripted denial")
	}

	var perr *PermissionError
	if !errors.As(err, &perr) {
		t.Fatalf("Open() error = %T, want *PermissionError", err)
	}
	if perr.Facing != FacingUser {
		t.Errorf("PermissionError.Facing = %q, want user", perr.Facing)
	}
	if !errors.Is(err, denied) {
		t.Error("PermissionError does not unwrap to the device error")
	}
	if s.Active() {
		t.Error("session active after a failed Open")
	}
}

func TestSessionRejectsDoubleOpen(t *testing.T) {
	device := NewMockDevice()
	s := NewSession(device, DefaultConstraints(), nil)

	if err := s.Open(context.Background(), FacingEnvironment); err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	defer s.Stop()

	if err := s.Open(context.Background(), FacingUser); !errors.Is(err, ErrStreamOpen) {
		t.Errorf("second Open() error = %v, want ErrStreamOpen", err)
	}
	if len(device.Attempts()) != 1 {
		t.Errorf("device saw %d attempts, want 1 (double open must not reach the device)", len(device.Attempts()))
	}
}

func TestSessionStopIdempotent(t *testing.T) {
	device := NewMockDevice()
	s := NewSession(device, DefaultConstraints(), nil)

	s.Stop() // nothing held

	if err := s.Open(context.Background(), FacingEnvironment); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	stream := device.LastStream()

	s.Stop()
	s.Stop()

	if got := stream.track.Stops(); got != 1 {
		t.Errorf("track stopped %d times, want 1", got)
	}
}

func TestSessionPumpsFramesToMailbox(t *testing.T) {
	device := NewMockDevice()
	s := NewSession(device, DefaultConstraints(), nil)

	if err := s.Open(context.Background(), FacingEnvironment); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Stop()

	stream := device.LastStream()
	src := s.FrameSource()

	stream.InjectFrame(frameWithData("frame-1"))
	waitFor(t, "first frame", func() bool {
		f, ok := src.Latest()
		return ok && bytes.Equal(f.Data, []byte("frame-1"))
	})

	stream.InjectFrame(frameWithData("frame-2"))
	waitFor(t, "second frame", func() bool {
		f, ok := src.Latest()
		return ok && bytes.Equal(f.Data, []byte("frame-2"))
	})
}

func TestSessionOnFrameObserver(t *testing.T) {
	device := NewMockDevice()
	s := NewSession(device, DefaultConstraints(), nil)

	var observed atomic.Int64
	s.OnFrame = func(vision.Frame) { observed.Add(1) }

	if err := s.Open(context.Background(), FacingEnvironment); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Stop()

	device.LastStream().InjectFrame(frameWithData("x"))
	waitFor(t, "frame observer", func() bool { return observed.Load() == 1 })
}

func TestSessionFreshMailboxPerOpen(t *testing.T) {
	device := NewMockDevice()
	s := NewSession(device, DefaultConstraints(), nil)

	if err := s.Open(context.Background(), FacingEnvironment); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	device.LastStream().InjectFrame(frameWithData("old"))
	first := s.FrameSource()
	waitFor(t, "old frame", func() bool { _, ok := first.Latest(); return ok })

	s.Stop()

	if err := s.Open(context.Background(), FacingUser); err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Stop()

	second := s.FrameSource()
	if second == first {
		t.Error("mailbox reused across streams")
	}
	if _, ok := second.Latest(); ok {
		t.Error("stale frame leaked into the new stream's mailbox")
	}
}

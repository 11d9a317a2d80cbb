package vision

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockClassifier is a scripted scene classifier for testing.
type MockClassifier struct {
	mu      sync.Mutex
	results []Detection
	err     error
	delay   time.Duration

	calls  atomic.Int64
	closes atomic.Int64

	// OnClassify, if set, replaces the scripted behavior entirely.
	OnClassify func(ctx context.Context, frame Frame) ([]Detection, error)
}

// MockClassifierOption configures a MockClassifier.
type MockClassifierOption func(*MockClassifier)

// WithSceneResults scripts the detections every Classify call returns.
func WithSceneResults(results ...Detection) MockClassifierOption {
	return func(m *MockClassifier) { m.results = results }
}

// WithClassifyError makes every Classify call fail with err.
func WithClassifyError(err error) MockClassifierOption {
	return func(m *MockClassifier) { m.err = err }
}

// WithClassifyDelay makes every Classify call take at least delay.
func WithClassifyDelay(delay time.Duration) MockClassifierOption {
	return func(m *MockClassifier) { m.delay = delay }
}

// NewMockClassifier creates a scripted classifier. With no options it
// returns an empty result set.
func NewMockClassifier(opts ...MockClassifierOption) *MockClassifier {
	m := &MockClassifier{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetResults replaces the scripted detections.
func (m *MockClassifier) SetResults(results ...Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
}

// SetError replaces the scripted error. A nil err restores success.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Classify returns the scripted outcome.
func (m *MockClassifier) Classify(ctx context.Context, frame Frame) ([]Detection, error) {
	m.calls.Add(1)

	if fn := m.OnClassify; fn != nil {
		return fn(ctx, frame)
	}

	m.mu.Lock()
	results := append([]Detection(nil), m.results...)
	err := m.err
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close records the call and succeeds.
func (m *MockClassifier) Close() error {
	m.closes.Add(1)
	return nil
}

// Calls returns how many times Classify ran.
func (m *MockClassifier) Calls() int64 { return m.calls.Load() }

// Closed reports whether Close was called at least once.
func (m *MockClassifier) Closed() bool { return m.closes.Load() > 0 }

// Ensure MockClassifier implements SceneClassifier.
var _ SceneClassifier = (*MockClassifier)(nil)

// MockDetector is a scripted object detector for testing.
type MockDetector struct {
	mu      sync.Mutex
	results []Detection
	err     error
	delay   time.Duration

	calls  atomic.Int64
	closes atomic.Int64

	// OnDetect, if set, replaces the scripted behavior entirely.
	OnDetect func(ctx context.Context, frame Frame) ([]Detection, error)
}

// MockDetectorOption configures a MockDetector.
type MockDetectorOption func(*MockDetector)

// WithObjectResults scripts the detections every Detect call returns.
func WithObjectResults(results ...Detection) MockDetectorOption {
	return func(m *MockDetector) { m.results = results }
}

// WithDetectError makes every Detect call fail with err.
func WithDetectError(err error) MockDetectorOption {
	return func(m *MockDetector) { m.err = err }
}

// WithDetectDelay makes every Detect call take at least delay.
func WithDetectDelay(delay time.Duration) MockDetectorOption {
	return func(m *MockDetector) { m.delay = delay }
}

// NewMockDetector creates a scripted detector. With no options it
// returns an empty result set.
func NewMockDetector(opts ...MockDetectorOption) *MockDetector {
	m := &MockDetector{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetResults replaces the scripted detections.
func (m *MockDetector) SetResults(results ...Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
}

// SetError replaces the scripted error. A nil err restores success.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the scripted outcome.
func (m *MockDetector) Detect(ctx context.Context, frame Frame) ([]Detection, error) {
	m.calls.Add(1)

	if fn := m.OnDetect; fn != nil {
		return fn(ctx, frame)
	}

	m.mu.Lock()
	results := append([]Detection(nil), m.results...)
	err := m.err
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close records the call and succeeds.
func (m *MockDetector) Close() error {
	m.closes.Add(1)
	return nil
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int64 { return m.calls.Load() }

// Closed reports whether Close was called at least once.
func (m *MockDetector) Closed() bool { return m.closes.Load() > 0 }

// Ensure MockDetector implements ObjectDetector.
var _ ObjectDetector = (*MockDetector)(nil)

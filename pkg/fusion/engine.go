// Package fusion runs the periodic inference cycle: on every tick it
// samples the latest camera frame, runs both models concurrently,
// merges their outputs into one ranked list, and publishes it.
package fusion

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/spottercam/go-spotter/pkg/capture"
	"github.com/spottercam/go-spotter/pkg/vision"
)

// ModelProvider exposes the loaded models. Ticks are skipped entirely
// until Ready reports true; fusion never runs on a partial registry.
type ModelProvider interface {
	Ready() bool
	Scene() vision.SceneClassifier
	Objects() vision.ObjectDetector
}

// FrameProvider exposes the live frame mailbox, nil while no stream is
// open.
type FrameProvider interface {
	FrameSource() *capture.FrameSource
}

// Gate reports whether inference may run at all.
type Gate interface {
	Allowed() bool
}

// PublishFunc receives each fused detection list. Calls are serialized
// by the engine.
type PublishFunc func(vision.Detections)

// Config holds engine tuning.
type Config struct {
	// Interval is the sampling cadence.
	Interval time.Duration

	// Limit caps the published list length.
	Limit int

	// Clock drives the ticker; nil means the wall clock. Tests inject
	// a mock.
	Clock clock.Clock
}

// DefaultConfig returns the production cadence: one fusion pass per
// second, five detections kept.
func DefaultConfig() Config {
	return Config{
		Interval: time.Second,
		Limit:    vision.DefaultLimit,
	}
}

// Engine is the detection fusion engine. Tick firing never waits on a
// prior tick's inference; a generation counter keeps a slow, stale
// result from overwriting a newer one.
type Engine struct {
	cfg     Config
	clock   clock.Clock
	models  ModelProvider
	frames  FrameProvider
	gate    Gate
	publish PublishFunc
	logger  *slog.Logger

	generation atomic.Uint64

	pubMu         sync.Mutex
	lastPublished uint64

	ticks             atomic.Uint64
	published         atomic.Uint64
	skippedNotReady   atomic.Uint64
	skippedNotAllowed atomic.Uint64
	skippedNoStream   atomic.Uint64
	skippedNoFrame    atomic.Uint64
	inferenceFailures atomic.Uint64
	staleDropped      atomic.Uint64
	lateDiscards      atomic.Uint64
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Ticks             uint64 `json:"ticks"`
	Published         uint64 `json:"published"`
	SkippedNotReady   uint64 `json:"skipped_not_ready"`
	SkippedNotAllowed uint64 `json:"skipped_not_allowed"`
	SkippedNoStream   uint64 `json:"skipped_no_stream"`
	SkippedNoFrame    uint64 `json:"skipped_no_frame"`
	InferenceFailures uint64 `json:"inference_failures"`
	StaleDropped      uint64 `json:"stale_dropped"`
	LateDiscards      uint64 `json:"late_discards"`
}

// New creates an engine. publish receives every fused list; a nil
// publish makes the engine a pure counter exerciser.
func New(cfg Config, models ModelProvider, frames FrameProvider, gate Gate, publish PublishFunc, logger *slog.Logger) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = vision.DefaultLimit
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:     cfg,
		clock:   clk,
		models:  models,
		frames:  frames,
		gate:    gate,
		publish: publish,
		logger:  logger.With("component", "fusion.engine"),
	}
}

// Run fires ticks at the configured interval until ctx is done. Each
// tick runs in its own goroutine so a slow inference pass never delays
// the cadence.
func (e *Engine) Run(ctx context.Context) {
	ticker := e.clock.Ticker(e.cfg.Interval)
	defer ticker.Stop()

	e.logger.Info("engine started", "interval", e.cfg.Interval, "limit", e.cfg.Limit)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return
		case <-ticker.C:
			gen := e.generation.Add(1)
			go e.tick(ctx, gen)
		}
	}
}

// tick runs one fusion pass. A missing precondition makes it a counted
// no-op; an inference failure discards the whole pass so the previous
// published list stands.
func (e *Engine) tick(ctx context.Context, gen uint64) {
	e.ticks.Add(1)

	if !e.models.Ready() {
		e.skippedNotReady.Add(1)
		return
	}
	if !e.gate.Allowed() {
		e.skippedNotAllowed.Add(1)
		return
	}
	source := e.frames.FrameSource()
	if source == nil {
		e.skippedNoStream.Add(1)
		return
	}
	frame, ok := source.Latest()
	if !ok {
		e.skippedNoFrame.Add(1)
		return
	}

	var (
		scene   []vision.Detection
		objects []vision.Detection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := e.models.Scene().Classify(gctx, frame)
		if err != nil {
			return err
		}
		scene = res
		return nil
	})
	g.Go(func() error {
		res, err := e.models.Objects().Detect(gctx, frame)
		if err != nil {
			return err
		}
		objects = res
		return nil
	})
	if err := g.Wait(); err != nil {
		e.inferenceFailures.Add(1)
		e.logger.Warn("inference failed, keeping previous detections",
			"generation", gen, "error", err)
		return
	}

	e.publishResult(gen, vision.Fuse(scene, objects, e.cfg.Limit))
}

// publishResult hands the fused list to the publish callback unless a
// newer tick already published, or the stream went away while this
// tick's inference was in flight.
func (e *Engine) publishResult(gen uint64, dets vision.Detections) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	if gen <= e.lastPublished {
		e.staleDropped.Add(1)
		return
	}
	if !e.gate.Allowed() {
		e.lateDiscards.Add(1)
		return
	}

	e.lastPublished = gen
	e.published.Add(1)
	if e.publish != nil {
		e.publish(dets)
	}
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Ticks:             e.ticks.Load(),
		Published:         e.published.Load(),
		SkippedNotReady:   e.skippedNotReady.Load(),
		SkippedNotAllowed: e.skippedNotAllowed.Load(),
		SkippedNoStream:   e.skippedNoStream.Load(),
		SkippedNoFrame:    e.skippedNoFrame.Load(),
		InferenceFailures: e.inferenceFailures.Load(),
		StaleDropped:      e.staleDropped.Load(),
		LateDiscards:      e.lateDiscards.Load(),
	}
}

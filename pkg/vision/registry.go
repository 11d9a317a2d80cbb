package vision

import (
	"context"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// SceneClassifier ranks whole-frame scene labels.
type SceneClassifier interface {
	// Classify returns ranked scene labels with probabilities, tagged
	// KindScene, best first.
	Classify(ctx context.Context, frame Frame) ([]Detection, error)

	// Close releases model resources.
	Close() error
}

// ObjectDetector locates and labels objects in a frame.
type ObjectDetector interface {
	// Detect returns labeled, scored objects, tagged KindObject.
	Detect(ctx context.Context, frame Frame) ([]Detection, error)

	// Close releases model resources.
	Close() error
}

// ClassifierLoader acquires a scene classifier.
type ClassifierLoader func(ctx context.Context) (SceneClassifier, error)

// DetectorLoader acquires an object detector.
type DetectorLoader func(ctx context.Context) (ObjectDetector, error)

// Registry loads and holds the two inference models for the lifetime of
// the process. Readiness is all-or-nothing: both models must load, and
// there is no reload after a failure.
type Registry struct {
	mu      sync.RWMutex
	scene   SceneClassifier
	objects ObjectDetector
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger.With("component", "vision.registry")}
}

// Load acquires both models concurrently. It succeeds only if both
// loaders succeed; on any failure the model that did load is closed and
// the registry stays empty. A populated registry rejects further Load
// calls with ErrAlreadyLoaded.
func (r *Registry) Load(ctx context.Context, loadScene ClassifierLoader, loadObjects DetectorLoader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scene != nil || r.objects != nil {
		return ErrAlreadyLoaded
	}

	var (
		scene   SceneClassifier
		objects ObjectDetector
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := loadScene(gctx)
		if err != nil {
			return &ModelLoadError{Model: "scene", Err: err}
		}
		scene = m
		return nil
	})
	g.Go(func() error {
		m, err := loadObjects(gctx)
		if err != nil {
			return &ModelLoadError{Model: "object", Err: err}
		}
		objects = m
		return nil
	})

	if err := g.Wait(); err != nil {
		// All-or-nothing: release whichever model made it.
		if scene != nil {
			if cerr := scene.Close(); cerr != nil {
				r.logger.Warn("closing scene model after failed load", "error", cerr)
			}
		}
		if objects != nil {
			if cerr := objects.Close(); cerr != nil {
				r.logger.Warn("closing object model after failed load", "error", cerr)
			}
		}
		return err
	}

	r.scene = scene
	r.objects = objects
	r.logger.Info("models loaded")
	return nil
}

// Ready reports whether both model handles are populated.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scene != nil && r.objects != nil
}

// Scene returns the loaded scene classifier, or nil before Load succeeds.
func (r *Registry) Scene() SceneClassifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scene
}

// Objects returns the loaded object detector, or nil before Load succeeds.
func (r *Registry) Objects() ObjectDetector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects
}

// Close releases both models. The registry exists for process shutdown
// only; there is no unload/reload cycle during operation.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.scene != nil {
		err = multierr.Append(err, r.scene.Close())
		r.scene = nil
	}
	if r.objects != nil {
		err = multierr.Append(err, r.objects.Close())
		r.objects = nil
	}
	return err
}

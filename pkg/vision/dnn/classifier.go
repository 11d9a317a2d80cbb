// Package dnn implements the two pretrained models on gocv's DNN
// bindings: a whole-frame scene classifier and an SSD object detector.
// The rest of the pipeline consumes them through the pkg/vision
// interfaces only.
package dnn

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/spottercam/go-spotter/pkg/vision"
)

// ClassifierConfig holds scene classifier configuration.
type ClassifierConfig struct {
	ModelPath  string // network weights (.caffemodel, .pb, .onnx)
	ConfigPath string // network description (.prototxt), empty if embedded
	LabelsPath string // category names, one per line
	TopN       int    // ranked labels kept per frame

	InputWidth  int
	InputHeight int
	Scale       float64    // pixel scale factor applied by the blob
	Mean        [3]float64 // per-channel mean subtraction (BGR)
	SwapRB      bool
}

// DefaultClassifierConfig returns production defaults for the
// GoogLeNet Places365 scene network.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		ModelPath:   "models/googlenet_places365.caffemodel",
		ConfigPath:  "models/googlenet_places365.prototxt",
		LabelsPath:  "models/categories_places365.txt",
		TopN:        3,
		InputWidth:  224,
		InputHeight: 224,
		Scale:       1.0,
		Mean:        [3]float64{104, 117, 123},
		SwapRB:      false,
	}
}

// Classifier ranks scene categories for whole frames.
type Classifier struct {
	net    gocv.Net
	labels []string
	cfg    ClassifierConfig
	mu     sync.Mutex // gocv nets are not safe for concurrent inference
	logger *slog.Logger
}

// NewClassifier loads the classification network and its labels.
func NewClassifier(cfg ClassifierConfig, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load classifier from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logger.Info("scene classifier loaded",
		"model", cfg.ModelPath,
		"labels", len(labels),
		"top_n", cfg.TopN,
	)

	return &Classifier{
		net:    net,
		labels: labels,
		cfg:    cfg,
		logger: logger.With("component", "dnn.classifier"),
	}, nil
}

// Classify runs the network on one frame and returns the TopN scene
// categories, best first.
func (c *Classifier) Classify(ctx context.Context, frame vision.Frame) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	img, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	blob := gocv.BlobFromImage(img, c.cfg.Scale,
		image.Pt(c.cfg.InputWidth, c.cfg.InputHeight),
		gocv.NewScalar(c.cfg.Mean[0], c.cfg.Mean[1], c.cfg.Mean[2], 0),
		c.cfg.SwapRB, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	probs, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output tensor: %w", err)
	}

	return rankClasses(probs, c.labels, c.cfg.TopN), nil
}

// Close releases the network.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

// Ensure Classifier implements vision.SceneClassifier.
var _ vision.SceneClassifier = (*Classifier)(nil)

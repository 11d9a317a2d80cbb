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

// DetectorConfig holds object detector configuration.
type DetectorConfig struct {
	ModelPath  string // frozen TensorFlow graph (.pb)
	ConfigPath string // graph description (.pbtxt)
	LabelsPath string // class names indexed by class ID, one per line

	ConfidenceThresh float32
	InputWidth       int
	InputHeight      int
}

// DefaultDetectorConfig returns production defaults for SSD MobileNet
// v1 trained on COCO.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ModelPath:        "models/frozen_inference_graph.pb",
		ConfigPath:       "models/ssd_mobilenet_v1_coco.pbtxt",
		LabelsPath:       "models/coco_labels.txt",
		ConfidenceThresh: 0.5,
		InputWidth:       300,
		InputHeight:      300,
	}
}

// Detector locates and labels objects with an SSD network.
type Detector struct {
	net    gocv.Net
	labels []string
	cfg    DetectorConfig
	mu     sync.Mutex
	logger *slog.Logger
}

// NewDetector loads the detection network and its labels.
func NewDetector(cfg DetectorConfig, logger *slog.Logger) (*Detector, error) {
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
		return nil, fmt.Errorf("failed to load detector from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logger.Info("object detector loaded",
		"model", cfg.ModelPath,
		"labels", len(labels),
		"confidence_thresh", cfg.ConfidenceThresh,
	)

	return &Detector{
		net:    net,
		labels: labels,
		cfg:    cfg,
		logger: logger.With("component", "dnn.detector"),
	}, nil
}

// Detect runs the network on one frame and returns every object above
// the confidence threshold.
func (d *Detector) Detect(ctx context.Context, frame vision.Frame) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	// SSD MobileNet preprocessing: scale to [-1, 1], RGB input.
	blob := gocv.BlobFromImage(img, 1.0/127.5,
		image.Pt(d.cfg.InputWidth, d.cfg.InputHeight),
		gocv.NewScalar(127.5, 127.5, 127.5, 0),
		true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output tensor: %w", err)
	}

	return parseSSD(data, d.labels, d.cfg.ConfidenceThresh), nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// Ensure Detector implements vision.ObjectDetector.
var _ vision.ObjectDetector = (*Detector)(nil)

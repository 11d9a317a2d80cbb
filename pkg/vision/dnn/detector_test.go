package dnn

import (
	"context"
	"testing"
)

func TestNewDetectorMissingModel(t *testing.T) {
	cfg := DefaultDetectorConfig()
	cfg.ModelPath = "testdata/no-such-graph.pb"

	if _, err := NewDetector(cfg, nil); err == nil {
		t.Error("NewDetector() succeeded with a missing model file")
	}
}

func TestDetectorSmoke(t *testing.T) {
	cfg := DefaultDetectorConfig()
	cfg.ModelPath = findModel(t, "frozen_inference_graph.pb")
	cfg.ConfigPath = findModel(t, "ssd_mobilenet_v1_coco.pbtxt")
	cfg.LabelsPath = findModel(t, "coco_labels.txt")

	d, err := NewDetector(cfg, nil)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	defer d.Close()

	// A solid-color frame should produce no confident objects, and more
	// importantly must not error or panic.
	got, err := d.Detect(context.Background(), solidJPEG(t, 640, 480))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	for _, det := range got {
		if det.Confidence < float64(cfg.ConfidenceThresh) {
			t.Errorf("detection %q below threshold: %v", det.Label, det.Confidence)
		}
	}
}

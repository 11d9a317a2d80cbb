// Package vision defines the shared detection data model, the registry
// that owns the two inference models, and the fusion step that merges
// their outputs into a single ranked list.
package vision

import "time"

// Kind tags a detection with the model family that produced it.
type Kind string

const (
	// KindScene marks a whole-frame scene classification.
	KindScene Kind = "scene"

	// KindObject marks a localized object detection.
	KindObject Kind = "object"
)

// Detection is one labeled, confidence-scored recognition result.
// Instances are treated as immutable once produced.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	Kind       Kind    `json:"kind"`
}

// Detections is a ranked detection list, descending by confidence.
// Consumers receive whole replacement lists, never in-place edits.
type Detections []Detection

// Clone returns an independent copy of the list.
func (d Detections) Clone() Detections {
	if d == nil {
		return nil
	}
	out := make(Detections, len(d))
	copy(out, d)
	return out
}

// Labels returns just the label strings, in rank order.
func (d Detections) Labels() []string {
	out := make([]string, len(d))
	for i, det := range d {
		out[i] = det.Label
	}
	return out
}

// Frame is one sampled camera frame handed to the models.
type Frame struct {
	Data       []byte // JPEG bytes
	Width      int
	Height     int
	CapturedAt time.Time
}

// Empty reports whether the frame carries no image data.
func (f Frame) Empty() bool { return len(f.Data) == 0 }

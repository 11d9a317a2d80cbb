package dnn

import (
	"fmt"
	"sort"

	"github.com/spottercam/go-spotter/pkg/vision"
)

// rankClasses returns the top-n classes by probability, descending.
// Indexes without a matching label get a numeric placeholder so a short
// label file never hides a result.
func rankClasses(probs []float32, labels []string, n int) []vision.Detection {
	if n <= 0 || len(probs) == 0 {
		return nil
	}

	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})

	if n > len(idx) {
		n = len(idx)
	}
	out := make([]vision.Detection, 0, n)
	for _, i := range idx[:n] {
		out = append(out, vision.Detection{
			Label:      classLabel(labels, i),
			Confidence: clamp01(float64(probs[i])),
			Kind:       vision.KindScene,
		})
	}
	return out
}

// parseSSD converts the raw SSD output tensor into detections. The
// tensor is a flat sequence of 7-float tuples:
//
//	[batchID, classID, score, left, top, right, bottom]
//
// Box coordinates are normalized 0-1 and not carried downstream; only
// the label and score reach the overlay. Class ID 0 is background.
func parseSSD(data []float32, labels []string, thresh float32) []vision.Detection {
	var out []vision.Detection
	for i := 0; i+6 < len(data); i += 7 {
		score := data[i+2]
		if score < thresh {
			continue
		}
		classID := int(data[i+1])
		if classID == 0 {
			continue
		}
		out = append(out, vision.Detection{
			Label:      ssdLabel(labels, classID),
			Confidence: clamp01(float64(score)),
			Kind:       vision.KindObject,
		})
	}
	return out
}

func classLabel(labels []string, id int) string {
	if id >= 0 && id < len(labels) {
		return labels[id]
	}
	return fmt.Sprintf("class %d", id)
}

// ssdLabel maps a 1-based SSD class ID onto the label list.
func ssdLabel(labels []string, id int) string {
	return classLabel(labels, id-1)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package vision

import "sort"

// DefaultLimit is the maximum number of detections kept after fusion.
const DefaultLimit = 5

// Fuse merges scene and object results into one ranked list: scene
// results first, object results appended, then a stable sort descending
// by confidence and truncation to limit. The stable sort keeps the
// concatenation order on exact confidence ties, so a scene result
// outranks an object result with the same score.
//
// A limit <= 0 means no truncation. The returned slice is freshly
// allocated and shares no backing storage with the inputs.
func Fuse(scene, objects []Detection, limit int) Detections {
	merged := make(Detections, 0, len(scene)+len(objects))
	merged = append(merged, scene...)
	merged = append(merged, objects...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

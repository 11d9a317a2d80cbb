package vision

import "testing"

func TestFuseOrdersByConfidence(t *testing.T) {
	scene := []Detection{
		{Label: "kitchen", Confidence: 0.61, Kind: KindScene},
	}
	objects := []Detection{
		{Label: "cup", Confidence: 0.88, Kind: KindObject},
		{Label: "chair", Confidence: 0.42, Kind: KindObject},
	}

	got := Fuse(scene, objects, DefaultLimit)

	want := []string{"cup", "kitchen", "chair"}
	if len(got) != len(want) {
		t.Fatalf("Fuse returned %d detections, want %d", len(got), len(want))
	}
	for i, label := range want {
		if got[i].Label != label {
			t.Errorf("rank %d = %q, want %q", i, got[i].Label, label)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Confidence > got[i-1].Confidence {
			t.Errorf("rank %d confidence %.2f exceeds rank %d confidence %.2f",
				i, got[i].Confidence, i-1, got[i-1].Confidence)
		}
	}
}

func TestFuseTieBreakPrefersScene(t *testing.T) {
	scene := []Detection{
		{Label: "beach", Confidence: 0.9, Kind: KindScene},
	}
	objects := []Detection{
		{Label: "surfboard", Confidence: 0.9, Kind: KindObject},
		{Label: "umbrella", Confidence: 0.9, Kind: KindObject},
	}

	got := Fuse(scene, objects, DefaultLimit)

	want := []string{"beach", "surfboard", "umbrella"}
	for i, label := range want {
		if got[i].Label != label {
			t.Errorf("rank %d = %q, want %q (scene wins ties, object order kept)", i, got[i].Label, label)
		}
	}
}

func TestFuseTruncatesToLimit(t *testing.T) {
	scene := []Detection{
		{Label: "office", Confidence: 0.7, Kind: KindScene},
		{Label: "library", Confidence: 0.2, Kind: KindScene},
	}
	objects := []Detection{
		{Label: "laptop", Confidence: 0.95, Kind: KindObject},
		{Label: "desk", Confidence: 0.8, Kind: KindObject},
		{Label: "monitor", Confidence: 0.75, Kind: KindObject},
		{Label: "mouse", Confidence: 0.5, Kind: KindObject},
		{Label: "plant", Confidence: 0.1, Kind: KindObject},
	}

	got := Fuse(scene, objects, 5)

	if len(got) != 5 {
		t.Fatalf("Fuse returned %d detections, want 5", len(got))
	}
	for _, det := range got {
		if det.Label == "plant" || det.Label == "library" {
			t.Errorf("low-confidence %q survived truncation", det.Label)
		}
	}
	if got[0].Label != "laptop" {
		t.Errorf("rank 0 = %q, want laptop", got[0].Label)
	}
}

func TestFuseEmptyInputs(t *testing.T) {
	got := Fuse(nil, nil, DefaultLimit)
	if got == nil {
		t.Fatal("Fuse(nil, nil) = nil, want empty list")
	}
	if len(got) != 0 {
		t.Errorf("Fuse(nil, nil) returned %d detections, want 0", len(got))
	}

	scene := []Detection{{Label: "park", Confidence: 0.5, Kind: KindScene}}
	got = Fuse(scene, nil, DefaultLimit)
	if len(got) != 1 || got[0].Label != "park" {
		t.Errorf("Fuse(scene, nil) = %v, want [park]", got.Labels())
	}
}

func TestFuseDoesNotAliasInputs(t *testing.T) {
	scene := []Detection{{Label: "street", Confidence: 0.6, Kind: KindScene}}
	objects := []Detection{{Label: "car", Confidence: 0.9, Kind: KindObject}}

	got := Fuse(scene, objects, DefaultLimit)
	got[0].Label = "mutated"

	if objects[0].Label != "car" {
		t.Errorf("input slice mutated through the fused result: %q", objects[0].Label)
	}
}

func TestFuseNoLimit(t *testing.T) {
	objects := make([]Detection, 8)
	for i := range objects {
		objects[i] = Detection{Label: "obj", Confidence: float64(i) / 10, Kind: KindObject}
	}

	got := Fuse(nil, objects, 0)
	if len(got) != 8 {
		t.Errorf("Fuse with limit 0 returned %d detections, want all 8", len(got))
	}
}

func TestDetectionsClone(t *testing.T) {
	orig := Detections{{Label: "dog", Confidence: 0.8, Kind: KindObject}}
	cl := orig.Clone()
	cl[0].Label = "cat"

	if orig[0].Label != "dog" {
		t.Errorf("Clone shares storage with the original")
	}

	var none Detections
	if none.Clone() != nil {
		t.Errorf("Clone of nil = %v, want nil", none.Clone())
	}
}

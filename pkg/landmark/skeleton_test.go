package landmark

import "testing"

func TestFromMediaPipe(t *testing.T) {
	points := make([]Normalized, 33)
	for i := range points {
		points[i] = Normalized{X: float64(i) / 100, Y: 0.5}
	}

	set := FromMediaPipe(points, 200, 100)
	if len(set) != Count {
		t.Fatalf("got %d points, want %d", len(set), Count)
	}
	// Left hip is MediaPipe index 23.
	if got := set[LeftHip]; !closeTo(got.X, 46) || !closeTo(got.Y, 50) {
		t.Errorf("left hip: got %v, want (46, 50)", got)
	}
}

func TestFromCOCO(t *testing.T) {
	points := make([]Normalized, 17)
	for i := range points {
		points[i] = Normalized{X: float64(i) / 10, Y: float64(i) / 10}
	}

	set := FromCOCO(points, 10, 10)
	if len(set) != Count {
		t.Fatalf("got %d points, want %d", len(set), Count)
	}
	// Right ankle is COCO index 16.
	if got := set[RightAnkle]; !closeTo(got.X, 16) {
		t.Errorf("right ankle: got %v, want x=16", got)
	}
}

func TestFromMediaPipe_ShortInput(t *testing.T) {
	points := make([]Normalized, 17)
	set := FromMediaPipe(points, 100, 100)
	// Indices 0, 11..16 exist; hips, knees and ankles are missing.
	if len(set) != 7 {
		t.Errorf("got %d points, want 7", len(set))
	}
}

func TestIndexString(t *testing.T) {
	if Nose.String() != "nose" || RightAnkle.String() != "right_ankle" {
		t.Error("unexpected index names")
	}
	if Index(99).String() != "unknown" {
		t.Error("out of range index should be unknown")
	}
}

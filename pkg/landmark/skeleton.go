package landmark

// Normalized is a detector keypoint in [0, 1] image coordinates. Visibility is
// optional; detectors that do not report it leave it at 1.
type Normalized struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility,omitempty"`
}

// MediaPipe pose landmark indices for the tracked joints.
var mediaPipeIndices = [Count]int{0, 11, 12, 13, 14, 15, 16, 23, 24, 25, 26, 27, 28}

// COCO keypoint indices (YOLOv8-pose, OpenPose-COCO) for the tracked joints.
var cocoIndices = [Count]int{0, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

// FromMediaPipe selects the tracked joints from a 33-point MediaPipe skeleton
// and scales them to pixels. Indices missing from the input are dropped.
func FromMediaPipe(points []Normalized, width, height int) Set {
	return selectScaled(points, mediaPipeIndices[:], width, height)
}

// FromCOCO selects the tracked joints from a 17-point COCO skeleton and scales
// them to pixels.
func FromCOCO(points []Normalized, width, height int) Set {
	return selectScaled(points, cocoIndices[:], width, height)
}

// Scale converts already-selected normalized points to pixel space.
func Scale(points []Normalized, width, height int) Set {
	out := make(Set, 0, len(points))
	for _, p := range points {
		out = append(out, Point{X: p.X * float64(width), Y: p.Y * float64(height)})
	}
	return out
}

func selectScaled(points []Normalized, indices []int, width, height int) Set {
	out := make(Set, 0, len(indices))
	for _, idx := range indices {
		if idx >= len(points) {
			continue
		}
		p := points[idx]
		out = append(out, Point{X: p.X * float64(width), Y: p.Y * float64(height)})
	}
	return out
}

// Package landmark defines the tracked body keypoints and the smoothing filter
// applied to them before any pose comparison.
package landmark

// Point is a 2D position in image-pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// DistanceSquared returns the squared Euclidean distance between p and q.
func (p Point) DistanceSquared(q Point) float64 {
	d := p.Sub(q)
	return d.X*d.X + d.Y*d.Y
}

// Set is an ordered, index-aligned sequence of tracked landmarks.
// Two sets are comparable only when they have the same length.
type Set []Point

// Clone returns a copy of s that shares no memory with it.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// Comparable reports whether s and o can be compared point by point.
func (s Set) Comparable(o Set) bool {
	return len(s) > 0 && len(s) == len(o)
}

// Index identifies one of the tracked anatomical landmarks.
type Index int

// Tracked landmarks in storage order.
const (
	Nose Index = iota
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// Count is the number of tracked landmarks.
const Count = int(RightAnkle) + 1

var indexNames = [...]string{
	"nose",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}

func (i Index) String() string {
	if i < 0 || int(i) >= len(indexNames) {
		return "unknown"
	}
	return indexNames[i]
}

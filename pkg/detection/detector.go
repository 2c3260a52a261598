// Package detection turns camera frames into body landmarks.
package detection

import (
	"context"
	"time"

	"github.com/teslashibe/go-posegame/pkg/landmark"
)

// Skeleton names the keypoint layout a detector reports.
type Skeleton string

const (
	// SkeletonTracked means the landmarks are already the tracked joints in
	// landmark.Index order.
	SkeletonTracked Skeleton = "tracked"
	// SkeletonCOCO is the 17-keypoint COCO layout (YOLOv8-pose, OpenPose).
	SkeletonCOCO Skeleton = "coco"
	// SkeletonMediaPipe is the 33-keypoint MediaPipe BlazePose layout.
	SkeletonMediaPipe Skeleton = "mediapipe"
)

// Result is one inference output. Landmarks are normalized to [0, 1]; an
// empty slice means no person was found.
type Result struct {
	Landmarks   []landmark.Normalized `json:"landmarks"`
	Skeleton    Skeleton              `json:"skeleton"`
	ImageWidth  int                   `json:"width"`
	ImageHeight int                   `json:"height"`
	Timestamp   time.Time             `json:"timestamp"`
}

// Pixels selects the tracked joints and scales them to image pixels.
func (r *Result) Pixels() landmark.Set {
	switch r.Skeleton {
	case SkeletonCOCO:
		return landmark.FromCOCO(r.Landmarks, r.ImageWidth, r.ImageHeight)
	case SkeletonMediaPipe:
		return landmark.FromMediaPipe(r.Landmarks, r.ImageWidth, r.ImageHeight)
	default:
		pts := r.Landmarks
		if len(pts) > landmark.Count {
			pts = pts[:landmark.Count]
		}
		return landmark.Scale(pts, r.ImageWidth, r.ImageHeight)
	}
}

// Detector is the interface for landmark detection backends.
type Detector interface {
	// Detect runs inference on a JPEG frame.
	Detect(ctx context.Context, jpeg []byte) (*Result, error)

	// Ready reports whether the model is loaded and accepting frames.
	Ready() bool

	// Close releases resources.
	Close() error
}

// Factory creates and initializes a detector. Failures should be *Error.
type Factory func(ctx context.Context) (Detector, error)

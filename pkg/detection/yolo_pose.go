package detection

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-posegame/internal/log"
	"github.com/teslashibe/go-posegame/pkg/landmark"
)

// cocoKeypoints is the number of keypoints a YOLOv8-pose head predicts.
const cocoKeypoints = 17

// YOLOPoseConfig holds YOLOv8-pose detector configuration.
type YOLOPoseConfig struct {
	ModelPath        string
	ConfidenceThresh float32
	InputWidth       int
	InputHeight      int
	UseCUDA          bool // run on the CUDA backend instead of CPU
}

// DefaultYOLOPoseConfig returns production defaults for yolov8n-pose.
func DefaultYOLOPoseConfig() YOLOPoseConfig {
	return YOLOPoseConfig{
		ModelPath:        "models/yolov8n-pose.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// YOLOPose detects a single person's COCO keypoints with a YOLOv8-pose ONNX
// model through OpenCV DNN.
type YOLOPose struct {
	net       gocv.Net
	config    YOLOPoseConfig
	mu        sync.Mutex
	inputSize image.Point
	closed    bool
	log       *slog.Logger
}

// NewYOLOPose loads the model. Failures are *Error; a CUDA backend that cannot
// be selected yields CodeAccelerationUnavailable.
func NewYOLOPose(cfg YOLOPoseConfig) (*YOLOPose, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, &Error{Message: "model file not found: " + cfg.ModelPath, Code: CodeGeneric, Err: ErrModelNotFound}
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, &Error{Message: "failed to load model from " + cfg.ModelPath, Code: CodeGeneric}
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if cfg.UseCUDA {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, backendError(cfg.UseCUDA, err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, backendError(cfg.UseCUDA, err)
	}

	return &YOLOPose{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		log:       log.Component("detection").With("model", cfg.ModelPath),
	}, nil
}

func backendError(cuda bool, err error) *Error {
	if cuda {
		return &Error{Message: "CUDA backend unavailable", Code: CodeAccelerationUnavailable, Err: err}
	}
	return &Error{Message: "failed to select DNN backend", Code: CodeGeneric, Err: err}
}

// YOLOPoseFactory returns a Factory that loads cfg.
func YOLOPoseFactory(cfg YOLOPoseConfig) Factory {
	return func(ctx context.Context) (Detector, error) {
		return NewYOLOPose(cfg)
	}
}

// Ready reports whether the model is loaded.
func (d *YOLOPose) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed
}

// Detect finds the most confident person in the JPEG frame.
func (d *YOLOPose) Detect(ctx context.Context, jpeg []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, &Error{Message: "detector closed", Code: CodeGeneric, Err: ErrNotReady}
	}

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, &Error{Message: "decode image", Code: CodeGeneric, Err: err}
	}
	defer img.Close()
	if img.Empty() {
		return nil, &Error{Message: "decode image", Code: CodeGeneric, Err: ErrEmptyImage}
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// Output shape: [1, 56, N] - 56 = 4 bbox + 1 person score + 17*3 keypoints
	size := output.Size()
	if len(size) != 3 || size[1] != 5+cocoKeypoints*3 {
		return nil, &Error{Message: fmt.Sprintf("unexpected output shape %v", size), Code: CodeGeneric}
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, &Error{Message: "read output tensor", Code: CodeGeneric, Err: err}
	}

	res := &Result{
		Landmarks:   bestPose(data, size[2], d.config),
		Skeleton:    SkeletonCOCO,
		ImageWidth:  img.Cols(),
		ImageHeight: img.Rows(),
		Timestamp:   time.Now(),
	}
	if len(res.Landmarks) > 0 {
		d.log.Debug("person detected", "keypoints", len(res.Landmarks))
	}
	return res, nil
}

// bestPose returns the normalized keypoints of the highest scoring anchor
// above the confidence threshold, or nil. data is laid out channel-major:
// data[c*anchors+i].
func bestPose(data []float32, anchors int, cfg YOLOPoseConfig) []landmark.Normalized {
	best, bestScore := -1, cfg.ConfidenceThresh
	for i := 0; i < anchors; i++ {
		if score := data[4*anchors+i]; score >= bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil
	}

	points := make([]landmark.Normalized, cocoKeypoints)
	for k := range points {
		base := 5 + 3*k
		points[k] = landmark.Normalized{
			X:          float64(data[base*anchors+best]) / float64(cfg.InputWidth),
			Y:          float64(data[(base+1)*anchors+best]) / float64(cfg.InputHeight),
			Visibility: float64(data[(base+2)*anchors+best]),
		}
	}
	return points
}

// Close releases the detector resources.
func (d *YOLOPose) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		d.net.Close()
	}
	return nil
}

var _ Detector = (*YOLOPose)(nil)

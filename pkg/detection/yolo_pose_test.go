package detection

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

// synthOutput builds a channel-major [56, anchors] tensor.
func synthOutput(anchors int, scores []float32, kx, ky float32) []float32 {
	data := make([]float32, 56*anchors)
	for i, s := range scores {
		data[4*anchors+i] = s
		for k := 0; k < cocoKeypoints; k++ {
			base := 5 + 3*k
			data[base*anchors+i] = kx * float32(i+1)
			data[(base+1)*anchors+i] = ky
			data[(base+2)*anchors+i] = 0.9
		}
	}
	return data
}

func TestBestPose(t *testing.T) {
	cfg := DefaultYOLOPoseConfig()

	tests := []struct {
		name    string
		scores  []float32
		wantNil bool
		wantX   float64
	}{
		{"no person", []float32{0.1, 0.2, 0.3}, true, 0},
		{"picks highest", []float32{0.6, 0.9, 0.7}, false, 2 * 64.0 / 640},
		{"threshold inclusive", []float32{0.5, 0, 0}, false, 64.0 / 640},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := synthOutput(len(tt.scores), tt.scores, 64, 320)
			got := bestPose(data, len(tt.scores), cfg)
			if tt.wantNil {
				if got != nil {
					t.Errorf("expected nil, got %d points", len(got))
				}
				return
			}
			if len(got) != cocoKeypoints {
				t.Fatalf("len = %d, want %d", len(got), cocoKeypoints)
			}
			if math.Abs(got[0].X-tt.wantX) > 1e-6 {
				t.Errorf("X = %v, want %v", got[0].X, tt.wantX)
			}
			if math.Abs(got[0].Y-0.5) > 1e-6 {
				t.Errorf("Y = %v, want 0.5", got[0].Y)
			}
			if math.Abs(got[0].Visibility-0.9) > 1e-6 {
				t.Errorf("Visibility = %v, want 0.9", got[0].Visibility)
			}
		})
	}
}

func TestNewYOLOPose_MissingModel(t *testing.T) {
	cfg := DefaultYOLOPoseConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")

	_, err := NewYOLOPose(cfg)
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("err = %v, want ErrModelNotFound", err)
	}
	var de *Error
	if !errors.As(err, &de) || de.Code != CodeGeneric {
		t.Errorf("err = %#v, want *Error with CodeGeneric", err)
	}
}

func TestDefaultYOLOPoseConfig(t *testing.T) {
	cfg := DefaultYOLOPoseConfig()
	if cfg.ModelPath == "" {
		t.Error("ModelPath should not be empty")
	}
	if cfg.ConfidenceThresh <= 0 || cfg.ConfidenceThresh > 1 {
		t.Errorf("ConfidenceThresh should be 0-1, got %f", cfg.ConfidenceThresh)
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		t.Errorf("input size should be positive, got %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
}

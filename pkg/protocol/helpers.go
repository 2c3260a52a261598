package protocol

import (
	"encoding/base64"
	"errors"

	"github.com/teslashibe/go-posegame/pkg/landmark"
)

// ErrNoFrameSize is returned for landmarks without a positive frame size.
// Sets are compared in pixels, so such frames cannot be scored.
var ErrNoFrameSize = errors.New("protocol: landmarks without frame size")

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewLandmarksMessage creates a message with normalized keypoints
func NewLandmarksMessage(points []landmark.Normalized, skeleton string, width, height int, frameID uint64) (*Message, error) {
	return NewMessage(TypeLandmarks, LandmarksData{
		Landmarks:  points,
		Skeleton:   skeleton,
		Width:      width,
		Height:     height,
		Normalized: true,
		FrameID:    frameID,
	})
}

// NewFrameMessage creates a frame message from raw JPEG data
func NewFrameMessage(width, height int, jpegData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:   width,
		Height:  height,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString(jpegData),
		FrameID: frameID,
	})
}

// NewStatusMessage creates a detector status message
func NewStatusMessage(ready bool, errMsg string, code int) (*Message, error) {
	return NewMessage(TypeStatus, StatusData{Ready: ready, Error: errMsg, Code: code})
}

// NewScoreMessage creates a score update
func NewScoreMessage(data ScoreData) (*Message, error) {
	return NewMessage(TypeScore, data)
}

// NewEventMessage creates a game event message
func NewEventMessage(kind EventKind, step int, exercise, reason string) (*Message, error) {
	return NewMessage(TypeEvent, EventData{
		Kind:     kind,
		Step:     step,
		Exercise: exercise,
		Reason:   reason,
	})
}

// NewResultMessage creates a session result message
func NewResultMessage(data ResultData) (*Message, error) {
	return NewMessage(TypeResult, data)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetLandmarksData extracts keypoints from a message and rejects frames
// without a frame size.
func (m *Message) GetLandmarksData() (*LandmarksData, error) {
	var data LandmarksData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// Validate checks that the frame size is set.
func (l *LandmarksData) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return ErrNoFrameSize
	}
	return nil
}

// NormalizedLandmarks returns the keypoints in [0, 1] coordinates, dividing
// pixel coordinates by the frame size when needed.
func (l *LandmarksData) NormalizedLandmarks() ([]landmark.Normalized, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if l.Normalized {
		return l.Landmarks, nil
	}
	out := make([]landmark.Normalized, len(l.Landmarks))
	for i, p := range l.Landmarks {
		out[i] = landmark.Normalized{
			X:          p.X / float64(l.Width),
			Y:          p.Y / float64(l.Height),
			Visibility: p.Visibility,
		}
	}
	return out, nil
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetStatusData extracts detector status from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetScoreData extracts a score update from a message
func (m *Message) GetScoreData() (*ScoreData, error) {
	var data ScoreData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEventData extracts a game event from a message
func (m *Message) GetEventData() (*EventData, error) {
	var data EventData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResultData extracts a session result from a message
func (m *Message) GetResultData() (*ResultData, error) {
	var data ResultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Package protocol defines the WebSocket message types exchanged between
// detector clients, the game server and dashboards.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-posegame/pkg/landmark"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Detector client → server messages
	TypeLandmarks MessageType = "landmarks" // Detected keypoints
	TypeFrame     MessageType = "frame"     // Camera frame for the local detector
	TypeStatus    MessageType = "status"    // Detector readiness and errors

	// Server → client messages
	TypeScore  MessageType = "score"  // Score, multiplier and matcher state
	TypeEvent  MessageType = "event"  // Game event
	TypeResult MessageType = "result" // Session result

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Detector Client → Server Message Types
// =============================================================================

// LandmarksData carries keypoints detected on the client.
type LandmarksData struct {
	Landmarks  []landmark.Normalized `json:"landmarks"`
	Skeleton   string                `json:"skeleton,omitempty"` // "tracked", "coco", "mediapipe"
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	Normalized bool                  `json:"normalized"` // false: x/y are pixels
	FrameID    uint64                `json:"frame_id,omitempty"`
}

// FrameData contains a camera frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// StatusData reports detector readiness. Code is 0 for generic failures and
// 1 when GPU acceleration is unavailable.
type StatusData struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
	Code  int    `json:"code,omitempty"`
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// ScoreData is the live game state.
type ScoreData struct {
	Score      int    `json:"score"`
	Multiplier int    `json:"multiplier"`
	State      string `json:"state"`
	Step       int    `json:"step"`
	Exercise   string `json:"exercise,omitempty"`
	Rep        int    `json:"rep"`
	Target     int    `json:"target"`
}

// EventKind names a game event.
type EventKind string

const (
	EventRepetition EventKind = "repetition"
	EventTimeout    EventKind = "timeout"
	EventStep       EventKind = "step"
	EventStepFailed EventKind = "step_failed"
	EventComplete   EventKind = "complete"
	EventAborted    EventKind = "aborted"
)

// EventData describes a game event. Repetition and timeout events carry no
// payload beyond their kind.
type EventData struct {
	Kind     EventKind `json:"kind"`
	Step     int       `json:"step,omitempty"`
	Exercise string    `json:"exercise,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// ResultData is a finished session.
type ResultData struct {
	RoutineName    string `json:"routineName"`
	Timestamp      int64  `json:"timestamp"`
	TotalScore     int    `json:"totalScore"`
	MaxMultiplier  int    `json:"maxMultiplier"`
	ExerciseScores []int  `json:"exerciseScores"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}

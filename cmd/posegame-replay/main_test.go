package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/teslashibe/go-posegame/pkg/protocol"
)

func TestParseFrames(t *testing.T) {
	input := `{"landmarks":[{"x":0.5,"y":0.25}],"width":640,"height":480}

{"landmarks":[{"x":320,"y":120}],"width":640,"height":480,"normalized":false}
`
	frames, err := parseFrames(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseFrames: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !frames[0].Normalized {
		t.Error("frames default to normalized")
	}
	if frames[1].Normalized {
		t.Error("explicit normalized:false is kept")
	}
	got, err := frames[1].NormalizedLandmarks()
	if err != nil {
		t.Fatalf("NormalizedLandmarks: %v", err)
	}
	if got[0].X != 0.5 || got[0].Y != 0.25 {
		t.Errorf("NormalizedLandmarks = %+v, want {0.5 0.25}", got[0])
	}
}

func TestParseFrames_BadLine(t *testing.T) {
	_, err := parseFrames(strings.NewReader("{\"landmarks\":[],\"width\":640,\"height\":480}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err = %v, want line 2 error", err)
	}
}

func TestParseFrames_MissingSize(t *testing.T) {
	_, err := parseFrames(strings.NewReader("{\"landmarks\":[{\"x\":1,\"y\":1}],\"width\":640,\"height\":480}\n{\"landmarks\":[{\"x\":1,\"y\":1}]}\n"))
	if !errors.Is(err, protocol.ErrNoFrameSize) || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err = %v, want line 2 ErrNoFrameSize", err)
	}
}

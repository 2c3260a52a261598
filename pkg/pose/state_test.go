package pose

import (
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-posegame/pkg/landmark"
)

func TestTransition(t *testing.T) {
	const th = 2500.0
	nan := math.NaN()

	tests := []struct {
		name       string
		state      State
		toFinal    float64
		toRest     float64
		wantState  State
		matched    bool
		repetition bool
	}{
		{"idle to final", Idle, 10, 9999, MatchedFinal, true, false},
		{"rest to final", MatchedRest, 10, 9999, MatchedFinal, true, false},
		{"final to rest", MatchedFinal, 9999, 10, MatchedRest, true, true},
		{"idle ignores rest", Idle, 9999, 10, Idle, false, false},
		{"final waits", MatchedFinal, 10, 9999, MatchedFinal, false, false},
		{"boundary is not a match", Idle, 2500, 9999, Idle, false, false},
		{"just under boundary", Idle, 2499.99, 9999, MatchedFinal, true, false},
		{"rest boundary", MatchedFinal, 9999, 2500, MatchedFinal, false, false},
		{"nan never matches", Idle, nan, nan, Idle, false, false},
		{"nan in final state", MatchedFinal, nan, nan, MatchedFinal, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, matched, rep := Transition(tt.state, tt.toFinal, tt.toRest, th)
			if next != tt.wantState || matched != tt.matched || rep != tt.repetition {
				t.Errorf("got (%v, %v, %v), want (%v, %v, %v)",
					next, matched, rep, tt.wantState, tt.matched, tt.repetition)
			}
		})
	}
}

func TestMeanSquaredDistance(t *testing.T) {
	a := landmark.Set{{X: 0, Y: 0}, {X: 0, Y: 0}}
	b := landmark.Set{{X: 3, Y: 4}, {X: 0, Y: 10}}
	// (25 + 100) / 2
	if got := MeanSquaredDistance(a, b); math.Abs(got-62.5) > 1e-9 {
		t.Errorf("got %v, want 62.5", got)
	}
	if got := MeanSquaredDistance(a, b[:1]); !math.IsNaN(got) {
		t.Errorf("length mismatch: got %v, want NaN", got)
	}
	if got := MeanSquaredDistance(nil, nil); !math.IsNaN(got) {
		t.Errorf("empty: got %v, want NaN", got)
	}
}

func TestThresholdBoundaryThroughDistance(t *testing.T) {
	// A single point 50 px away is exactly 2500.
	ref := landmark.Set{{X: 0, Y: 0}}
	at := landmark.Set{{X: 50, Y: 0}}
	if d := MeanSquaredDistance(at, ref); d != 2500 {
		t.Fatalf("distance = %v, want 2500", d)
	}
	next, _, _ := Transition(Idle, MeanSquaredDistance(at, ref), math.NaN(), DefaultConfig().Threshold)
	if next != Idle {
		t.Error("distance of exactly 2500 must not match")
	}
}

func TestAllowedWindow(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		mult int
		want time.Duration
	}{
		{1, 2990 * time.Millisecond},
		{10, 2900 * time.Millisecond},
		{275, 250 * time.Millisecond},
		{300, 250 * time.Millisecond},
		{100000, 250 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := cfg.AllowedWindow(tt.mult); got != tt.want {
			t.Errorf("AllowedWindow(%d) = %v, want %v", tt.mult, got, tt.want)
		}
	}

	cfg.MinTimeout = 0
	if got := cfg.AllowedWindow(1000); got <= 0 {
		t.Errorf("window must stay positive, got %v", got)
	}
}

func TestStateStrings(t *testing.T) {
	if Idle.String() != "idle" || MatchedFinal.String() != "matched_final" || MatchedRest.String() != "matched_rest" {
		t.Error("unexpected state names")
	}
	if EventRepetition.String() != "repetition" || EventTimeout.String() != "timeout" {
		t.Error("unexpected event names")
	}
}

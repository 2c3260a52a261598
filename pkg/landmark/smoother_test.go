package landmark

import (
	"math"
	"testing"
)

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSmoother_FirstFramePassesThrough(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)
	raw := Set{{X: 10, Y: 20}, {X: 30, Y: 40}}

	got := s.Apply(raw)
	for i := range raw {
		if got[i] != raw[i] {
			t.Errorf("point %d: got %v, want %v", i, got[i], raw[i])
		}
	}
}

func TestSmoother_BlendsWithHistory(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)
	a := Set{{X: 100, Y: 200}, {X: 0, Y: 50}}
	b := Set{{X: 200, Y: 100}, {X: 10, Y: 0}}

	s.Apply(a)
	got := s.Apply(b)

	for i := range b {
		wantX := 0.6*a[i].X + 0.4*b[i].X
		wantY := 0.6*a[i].Y + 0.4*b[i].Y
		if !closeTo(got[i].X, wantX) || !closeTo(got[i].Y, wantY) {
			t.Errorf("point %d: got %v, want (%v, %v)", i, got[i], wantX, wantY)
		}
	}
}

func TestSmoother_LengthChangeResets(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)
	s.Apply(Set{{X: 1, Y: 1}, {X: 2, Y: 2}})

	b := Set{{X: 50, Y: 60}}
	got := s.Apply(b)
	if len(got) != 1 || got[0] != b[0] {
		t.Errorf("got %v, want %v unchanged", got, b)
	}

	// History now holds the new length, so the next frame blends again.
	c := Set{{X: 100, Y: 60}}
	got = s.Apply(c)
	if !closeTo(got[0].X, 0.6*50+0.4*100) {
		t.Errorf("expected blend after length change, got %v", got[0])
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)
	s.Apply(Set{{X: 0, Y: 0}})
	s.Reset()

	if s.Previous() != nil {
		t.Fatal("expected empty history after Reset")
	}
	raw := Set{{X: 9, Y: 9}}
	if got := s.Apply(raw); got[0] != raw[0] {
		t.Errorf("first frame after reset should pass through, got %v", got[0])
	}
}

func TestSmoother_OutputIsolatedFromInput(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)
	raw := Set{{X: 1, Y: 1}}
	out := s.Apply(raw)
	raw[0].X = 99
	out[0].Y = 99

	prev := s.Previous()
	if prev[0].X != 1 || prev[0].Y != 1 {
		t.Errorf("history was aliased: %v", prev[0])
	}
}

func TestNewSmoother_InvalidAlpha(t *testing.T) {
	for _, alpha := range []float64{-0.1, 1.5} {
		s := NewSmoother(alpha)
		if s.alpha != DefaultSmoothing {
			t.Errorf("alpha %v: got %v, want default", alpha, s.alpha)
		}
	}
}

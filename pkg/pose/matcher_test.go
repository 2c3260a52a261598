package pose

import (
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-posegame/pkg/landmark"
	"github.com/teslashibe/go-posegame/pkg/score"
)

var (
	restPose  = landmark.Set{{X: 100, Y: 400}}
	finalPose = landmark.Set{{X: 100, Y: 100}}
	t0        = time.UnixMilli(1_700_000_000_000)
)

func newTestMatcher(sc *score.State) *Matcher {
	return NewMatcher(DefaultConfig(), restPose, finalPose, sc, t0)
}

func TestMatcher_HappyPath(t *testing.T) {
	sc := score.New()
	m := newTestMatcher(sc)

	reps := 0
	frames := []landmark.Set{finalPose, restPose}
	for i, f := range frames {
		if m.Update(f, t0.Add(time.Duration(i+1)*100*time.Millisecond)) == EventRepetition {
			reps++
		}
	}

	if reps != 1 {
		t.Errorf("repetitions = %d, want 1", reps)
	}
	if m.State() != MatchedRest {
		t.Errorf("state = %v, want %v", m.State(), MatchedRest)
	}
	if sc.Score() != 5 || sc.Multiplier() != 2 {
		t.Errorf("score=%d mult=%d, want 5 and 2", sc.Score(), sc.Multiplier())
	}
}

func TestMatcher_RestFirstDoesNotCount(t *testing.T) {
	sc := score.New()
	m := newTestMatcher(sc)

	if ev := m.Update(restPose, t0.Add(100*time.Millisecond)); ev != EventNone {
		t.Errorf("rest from idle should not fire, got %v", ev)
	}
	if m.State() != Idle {
		t.Errorf("state = %v, want idle", m.State())
	}
}

func TestMatcher_MultipleRepetitions(t *testing.T) {
	sc := score.New()
	m := newTestMatcher(sc)

	now := t0
	reps := 0
	for i := 0; i < 3; i++ {
		for _, f := range []landmark.Set{finalPose, restPose} {
			now = now.Add(200 * time.Millisecond)
			if m.Update(f, now) == EventRepetition {
				reps++
			}
		}
	}

	if reps != 3 {
		t.Fatalf("repetitions = %d, want 3", reps)
	}
	// 5*1 + 5*2 + 5*3
	if sc.Score() != 30 || sc.Multiplier() != 4 {
		t.Errorf("score=%d mult=%d, want 30 and 4", sc.Score(), sc.Multiplier())
	}
}

func TestMatcher_TimeoutHalvesMultiplier(t *testing.T) {
	sc := score.New()
	sc.Restore(0, 4)
	m := newTestMatcher(sc)

	// Nothing matches; step past the 3000-40 ms window.
	far := landmark.Set{{X: 900, Y: 900}}
	if ev := m.Update(far, t0.Add(2900*time.Millisecond)); ev != EventNone {
		t.Fatalf("expected no event inside window, got %v", ev)
	}
	if ev := m.Update(far, t0.Add(2961*time.Millisecond)); ev != EventTimeout {
		t.Fatalf("expected timeout, got %v", ev)
	}
	if sc.Multiplier() != 2 {
		t.Errorf("multiplier = %d, want 2", sc.Multiplier())
	}
	if m.LastMatch() != t0.Add(2961*time.Millisecond) {
		t.Error("timeout should restart the clock")
	}
}

func TestMatcher_TimeoutAtMultiplierOne(t *testing.T) {
	sc := score.New()
	m := newTestMatcher(sc)

	far := landmark.Set{{X: 900, Y: 900}}
	if ev := m.Update(far, t0.Add(3000*time.Millisecond)); ev != EventTimeout {
		t.Fatalf("expected timeout, got %v", ev)
	}
	if sc.Multiplier() != 1 {
		t.Errorf("multiplier = %d, want 1", sc.Multiplier())
	}
	if m.State() != Idle {
		t.Errorf("state = %v, want idle", m.State())
	}
}

func TestMatcher_TimeoutForcesIdle(t *testing.T) {
	sc := score.New()
	m := newTestMatcher(sc)

	m.Update(finalPose, t0.Add(100*time.Millisecond))
	if m.State() != MatchedFinal {
		t.Fatalf("state = %v, want matched_final", m.State())
	}
	far := landmark.Set{{X: 900, Y: 900}}
	if ev := m.Update(far, t0.Add(5*time.Second)); ev != EventTimeout {
		t.Fatalf("expected timeout, got %v", ev)
	}
	if m.State() != Idle {
		t.Errorf("state = %v, want idle", m.State())
	}
}

func TestMatcher_EmptyInputResetsMultiplier(t *testing.T) {
	tests := []struct {
		name    string
		rest    landmark.Set
		final   landmark.Set
		current landmark.Set
	}{
		{"empty current", restPose, finalPose, nil},
		{"empty rest", nil, finalPose, finalPose},
		{"empty final", restPose, nil, finalPose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := score.New()
			sc.Restore(10, 6)
			m := NewMatcher(DefaultConfig(), tt.rest, tt.final, sc, t0)

			// Even far past the window no timeout fires for invalid input.
			if ev := m.Update(tt.current, t0.Add(time.Minute)); ev != EventNone {
				t.Errorf("event = %v, want none", ev)
			}
			if sc.Multiplier() != 1 {
				t.Errorf("multiplier = %d, want 1", sc.Multiplier())
			}
			if sc.Score() != 10 {
				t.Errorf("score = %d, want 10", sc.Score())
			}
			if m.State() != Idle {
				t.Errorf("state = %v, want idle", m.State())
			}
		})
	}
}

func TestMatcher_MismatchedLengthStillTimesOut(t *testing.T) {
	sc := score.New()
	m := newTestMatcher(sc)

	two := landmark.Set{{X: 100, Y: 100}, {X: 100, Y: 100}}
	if ev := m.Update(two, t0.Add(100*time.Millisecond)); ev != EventNone {
		t.Fatalf("got %v, want none", ev)
	}
	if m.State() != Idle {
		t.Errorf("mismatched input must not transition, state = %v", m.State())
	}
	toFinal, _ := m.Distances()
	if !math.IsNaN(toFinal) {
		t.Errorf("distance = %v, want NaN", toFinal)
	}
	if ev := m.Update(two, t0.Add(4*time.Second)); ev != EventTimeout {
		t.Errorf("got %v, want timeout", ev)
	}
}

func TestMatcher_Usable(t *testing.T) {
	sc := score.New()
	if !newTestMatcher(sc).Usable() {
		t.Error("single-point poses should be usable")
	}
	bad := NewMatcher(DefaultConfig(), restPose, landmark.Set{{}, {}}, sc, t0)
	if bad.Usable() {
		t.Error("mismatched poses should not be usable")
	}
}

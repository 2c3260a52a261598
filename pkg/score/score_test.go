package score

import "testing"

func TestNew(t *testing.T) {
	s := New()
	if s.Score() != 0 || s.Multiplier() != 1 {
		t.Errorf("got score=%d mult=%d, want 0 and 1", s.Score(), s.Multiplier())
	}
}

func TestOnRepetitionMatched(t *testing.T) {
	s := New()
	s.OnRepetitionMatched()
	if s.Score() != 5 || s.Multiplier() != 2 {
		t.Fatalf("after 1 rep: score=%d mult=%d, want 5 and 2", s.Score(), s.Multiplier())
	}
	s.OnRepetitionMatched()
	s.OnRepetitionMatched()
	// 5 + 10 + 15
	if s.Score() != 30 || s.Multiplier() != 4 {
		t.Errorf("after 3 reps: score=%d mult=%d, want 30 and 4", s.Score(), s.Multiplier())
	}
}

func TestOnTimeoutPenalty(t *testing.T) {
	tests := []struct {
		name  string
		start int
		want  int
	}{
		{"halves even", 4, 2},
		{"floors odd", 5, 2},
		{"two becomes one", 2, 1},
		{"one stays one", 1, 1},
		{"large", 101, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Restore(40, tt.start)
			s.OnTimeoutPenalty()
			if s.Multiplier() != tt.want {
				t.Errorf("multiplier = %d, want %d", s.Multiplier(), tt.want)
			}
			if s.Score() != 40 {
				t.Errorf("score changed to %d", s.Score())
			}
		})
	}
}

func TestResetMultiplier(t *testing.T) {
	s := New()
	s.Restore(10, 7)
	s.ResetMultiplier()
	if s.Multiplier() != 1 || s.Score() != 10 {
		t.Errorf("got %+v", s.Snapshot())
	}
}

func TestRestoreClamps(t *testing.T) {
	s := New()
	s.Restore(-5, 0)
	if got := s.Snapshot(); got != (Snapshot{Score: 0, Multiplier: 1}) {
		t.Errorf("got %+v, want clamped", got)
	}
}

// Package score holds the score and streak multiplier driven by pose matches.
package score

// PointsPerRep is the base score for one repetition before the multiplier.
const PointsPerRep = 5

// State is the mutable score model for one play session. The zero value is not
// valid; use New.
type State struct {
	score      int
	multiplier int
}

// Snapshot is a read-only copy of a State.
type Snapshot struct {
	Score      int `json:"score"`
	Multiplier int `json:"multiplier"`
}

// New returns a state with score 0 and multiplier 1.
func New() *State {
	return &State{multiplier: 1}
}

// Score returns the accumulated score.
func (s *State) Score() int { return s.score }

// Multiplier returns the current streak multiplier.
func (s *State) Multiplier() int { return s.multiplier }

// OnRepetitionMatched awards PointsPerRep times the multiplier, then grows the
// multiplier by one.
func (s *State) OnRepetitionMatched() {
	s.score += PointsPerRep * s.multiplier
	s.multiplier++
}

// OnTimeoutPenalty halves the multiplier, never below 1. Score is untouched.
func (s *State) OnTimeoutPenalty() {
	s.multiplier = max(s.multiplier/2, 1)
}

// ResetMultiplier drops the multiplier back to 1.
func (s *State) ResetMultiplier() {
	s.multiplier = 1
}

// Snapshot returns the current values.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Score: s.score, Multiplier: s.multiplier}
}

// Restore sets score and multiplier, clamping them to score >= 0 and
// multiplier >= 1.
func (s *State) Restore(score, multiplier int) {
	s.score = max(score, 0)
	s.multiplier = max(multiplier, 1)
}

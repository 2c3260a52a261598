package pose

import (
	"math"
	"time"

	"github.com/teslashibe/go-posegame/pkg/landmark"
	"github.com/teslashibe/go-posegame/pkg/score"
)

// Matcher is the per-exercise repetition state machine. It updates the shared
// score state as repetitions and timeouts happen. Not safe for concurrent use.
type Matcher struct {
	config Config
	rest   landmark.Set
	final  landmark.Set
	score  *score.State

	state     State
	lastMatch time.Time

	// Last computed distances, NaN when not comparable.
	distToFinal float64
	distToRest  float64
}

// NewMatcher creates a matcher for one exercise. start seeds the timeout clock.
// Empty or mismatched reference poses are accepted; such a matcher simply never
// leaves Idle.
func NewMatcher(config Config, rest, final landmark.Set, sc *score.State, start time.Time) *Matcher {
	return &Matcher{
		config:      config,
		rest:        rest.Clone(),
		final:       final.Clone(),
		score:       sc,
		state:       Idle,
		lastMatch:   start,
		distToFinal: math.NaN(),
		distToRest:  math.NaN(),
	}
}

// Usable reports whether the reference poses can ever produce a match.
func (m *Matcher) Usable() bool {
	return m.rest.Comparable(m.final)
}

// State returns the current state.
func (m *Matcher) State() State { return m.state }

// LastMatch returns when the last reference pose was matched (or the start).
func (m *Matcher) LastMatch() time.Time { return m.lastMatch }

// Distances returns the distances computed for the most recent frame.
func (m *Matcher) Distances() (toFinal, toRest float64) {
	return m.distToFinal, m.distToRest
}

// Reset returns the matcher to Idle and restarts the timeout clock.
func (m *Matcher) Reset(now time.Time) {
	m.state = Idle
	m.lastMatch = now
}

// Update feeds one smoothed frame observed at now and returns what happened.
func (m *Matcher) Update(current landmark.Set, now time.Time) Event {
	if len(current) == 0 || len(m.rest) == 0 || len(m.final) == 0 {
		m.score.ResetMultiplier()
		m.state = Idle
		m.distToFinal, m.distToRest = math.NaN(), math.NaN()
		return EventNone
	}

	m.distToFinal = MeanSquaredDistance(current, m.final)
	m.distToRest = MeanSquaredDistance(current, m.rest)

	event := EventNone
	next, matched, repetition := Transition(m.state, m.distToFinal, m.distToRest, m.config.Threshold)
	m.state = next
	if matched {
		m.lastMatch = now
	}
	if repetition {
		m.score.OnRepetitionMatched()
		event = EventRepetition
	}

	if now.Sub(m.lastMatch) > m.config.AllowedWindow(m.score.Multiplier()) {
		m.lastMatch = now
		m.score.OnTimeoutPenalty()
		m.state = Idle
		return EventTimeout
	}

	return event
}

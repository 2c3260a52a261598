// Package pose recognizes exercise repetitions by comparing live landmarks with
// a recorded rest pose and final pose.
package pose

// State is the matcher's position in the rest -> final -> rest cycle.
type State int

const (
	// Idle is the starting state and the state after a timeout or lost input.
	Idle State = iota
	// MatchedFinal means the final pose was reached.
	MatchedFinal
	// MatchedRest means the rest pose was reached after the final pose; one
	// repetition is complete.
	MatchedRest
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case MatchedFinal:
		return "matched_final"
	case MatchedRest:
		return "matched_rest"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event is what a single frame produced.
type Event int

const (
	// EventNone means nothing noteworthy happened.
	EventNone Event = iota
	// EventRepetition fires once per completed rest -> final -> rest cycle.
	EventRepetition
	// EventTimeout fires when no match happened within the allowed window.
	EventTimeout
)

func (e Event) String() string {
	switch e {
	case EventRepetition:
		return "repetition"
	case EventTimeout:
		return "timeout"
	default:
		return "none"
	}
}

// Transition applies one frame's distances to state. matched reports that a
// reference pose was reached (which refreshes the timeout clock) and
// repetition that a full cycle just completed. NaN distances never match.
func Transition(state State, distToFinal, distToRest, threshold float64) (next State, matched, repetition bool) {
	switch state {
	case Idle, MatchedRest:
		if distToFinal < threshold {
			return MatchedFinal, true, false
		}
	case MatchedFinal:
		if distToRest < threshold {
			return MatchedRest, true, true
		}
	}
	return state, false, false
}

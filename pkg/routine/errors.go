package routine

import (
	"errors"
	"fmt"
)

var (
	// ErrStepUnavailable is returned while the current step has no usable
	// pose record.
	ErrStepUnavailable = errors.New("routine: step unavailable")

	// ErrNotStarted is returned when feeding a player before Start.
	ErrNotStarted = errors.New("routine: not started")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("routine: already started")

	// ErrFinished is returned when the player has completed or was aborted.
	ErrFinished = errors.New("routine: finished")
)

// StepFailure describes why a step cannot be played. It matches
// ErrStepUnavailable with errors.Is.
type StepFailure struct {
	Index    int
	Exercise string
	Reason   string
	Err      error // underlying load error, if any
}

// Error implements the error interface.
func (f *StepFailure) Error() string {
	msg := fmt.Sprintf("routine: step %d (%q) unavailable: %s", f.Index, f.Exercise, f.Reason)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap returns ErrStepUnavailable and the load error, if any.
func (f *StepFailure) Unwrap() []error {
	if f.Err != nil {
		return []error{ErrStepUnavailable, f.Err}
	}
	return []error{ErrStepUnavailable}
}

// Failure reasons.
const (
	ReasonMissing  = "pose not recorded"
	ReasonUnusable = "pose record has empty or mismatched landmark sets"
	ReasonLoad     = "pose record could not be loaded"
)

package session

import "errors"

var (
	// ErrClosed is returned when using a session after Close.
	ErrClosed = errors.New("session: closed")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("session: already started")

	// ErrNoDetector is returned by Retry on a session fed by an external
	// detector.
	ErrNoDetector = errors.New("session: no local detector")
)

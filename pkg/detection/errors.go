package detection

import (
	"errors"
	"fmt"
)

// Code is the coarse class of a detector failure.
type Code int

const (
	// CodeGeneric covers every failure without a more specific code.
	CodeGeneric Code = 0
	// CodeAccelerationUnavailable means the requested GPU backend could not
	// be used.
	CodeAccelerationUnavailable Code = 1
)

func (c Code) String() string {
	switch c {
	case CodeAccelerationUnavailable:
		return "acceleration_unavailable"
	default:
		return "generic"
	}
}

var (
	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("detection: model not found")

	// ErrEmptyImage is returned when a frame cannot be decoded.
	ErrEmptyImage = errors.New("detection: empty image")

	// ErrNotReady is returned when Detect is called before the model is loaded
	// or after Close.
	ErrNotReady = errors.New("detection: detector not ready")
)

// Error is a detector failure with a human-readable message and a code.
type Error struct {
	Message string
	Code    Code
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("detection: %s (%s): %v", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("detection: %s (%s)", e.Message, e.Code)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap turns err into an *Error, keeping an existing one as is.
func Wrap(message string, err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return &Error{Message: message, Code: CodeGeneric, Err: err}
}

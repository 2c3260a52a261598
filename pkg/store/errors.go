package store

import (
	"errors"
	"fmt"
)

var (
	// ErrBlankKey is returned when a record is written under an empty name.
	ErrBlankKey = errors.New("store: blank key")

	// ErrUnknownNamespace is returned for namespaces other than pose, routine
	// and result.
	ErrUnknownNamespace = errors.New("store: unknown namespace")

	// ErrInvalidKey is returned when a key cannot be mapped to storage, e.g.
	// a name containing a path separator or a malformed result key.
	ErrInvalidKey = errors.New("store: invalid key")

	// ErrInvalidRoutine is returned when a routine step has a non-positive
	// repetition count.
	ErrInvalidRoutine = errors.New("store: invalid routine")
)

// RecordError adds namespace and key context to a storage failure.
type RecordError struct {
	Namespace Namespace
	Key       string
	Op        string
	Err       error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	return fmt.Sprintf("store: %s %s/%s: %v", e.Op, e.Namespace, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecordError) Unwrap() error {
	return e.Err
}

func wrap(op string, ns Namespace, key string, err error) error {
	if err == nil {
		return nil
	}
	return &RecordError{Namespace: ns, Key: key, Op: op, Err: err}
}

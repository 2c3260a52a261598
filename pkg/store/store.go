// Package store persists pose records, routines and session results.
//
// Records live in three independent namespaces keyed by name (poses and
// routines) or by routine name and timestamp (results). A missing record is
// reported as found == false, never as an error.
package store

import "strings"

// Namespace selects one of the record kinds.
type Namespace string

const (
	NamespacePose    Namespace = "poses"
	NamespaceRoutine Namespace = "routines"
	NamespaceResult  Namespace = "results"
)

// Valid reports whether ns is one of the known namespaces.
func (ns Namespace) Valid() bool {
	switch ns {
	case NamespacePose, NamespaceRoutine, NamespaceResult:
		return true
	}
	return false
}

// Store is a key-value repository over the three namespaces. Implementations
// can store to JSON files, SQLite, etc.
type Store interface {
	// Put writes record under key, replacing any previous value.
	Put(ns Namespace, key string, record any) error

	// Get decodes the record stored under key into into. found is false when
	// no such record exists.
	Get(ns Namespace, key string, into any) (found bool, err error)

	// Delete removes the record. It returns false when there was nothing to
	// delete or the key is blank.
	Delete(ns Namespace, key string) (bool, error)

	// List returns the keys of a pose or routine namespace, sorted.
	List(ns Namespace) ([]string, error)

	// ListResultTimestamps returns a routine's result timestamps, newest first.
	ListResultTimestamps(routineName string) ([]int64, error)

	// Close releases any resources held by the store.
	Close() error
}

// normalizeKey trims key and rejects keys that cannot be stored safely.
func normalizeKey(ns Namespace, key string) (string, error) {
	if !ns.Valid() {
		return "", ErrUnknownNamespace
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrBlankKey
	}
	if ns == NamespaceResult {
		routine, ts, ok := SplitResultKey(key)
		if !ok || !safeName(routine) {
			return "", ErrInvalidKey
		}
		return ResultKey(routine, ts), nil
	}
	if !safeName(key) {
		return "", ErrInvalidKey
	}
	return key, nil
}

func safeName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/teslashibe/go-posegame/internal/log"
)

const jsonExt = ".json"

// JSONStore implements Store with one JSON file per record:
//
//	<root>/poses/<name>.json
//	<root>/routines/<name>.json
//	<root>/results/<routine>/<timestamp>.json
type JSONStore struct {
	root string
	mu   sync.RWMutex
	log  *slog.Logger
}

// NewJSONStore creates a store rooted at dir, creating the namespace
// directories if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	for _, ns := range []Namespace{NamespacePose, NamespaceRoutine, NamespaceResult} {
		if err := os.MkdirAll(filepath.Join(dir, string(ns)), 0755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", ns, err)
		}
	}
	return &JSONStore{
		root: dir,
		log:  log.Component("store").With("backend", "json"),
	}, nil
}

// Root returns the store directory.
func (s *JSONStore) Root() string {
	return s.root
}

func (s *JSONStore) path(ns Namespace, key string) string {
	if ns == NamespaceResult {
		routine, ts, _ := SplitResultKey(key)
		return filepath.Join(s.root, string(ns), routine, strconv.FormatInt(ts, 10)+jsonExt)
	}
	return filepath.Join(s.root, string(ns), key+jsonExt)
}

// Put writes record atomically (temp file, then rename).
func (s *JSONStore) Put(ns Namespace, key string, record any) error {
	key, err := normalizeKey(ns, key)
	if err != nil {
		return wrap("put", ns, key, err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return wrap("put", ns, key, fmt.Errorf("marshal: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(ns, key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return wrap("put", ns, key, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return wrap("put", ns, key, fmt.Errorf("write temp file: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return wrap("put", ns, key, fmt.Errorf("rename temp file: %w", err))
	}

	s.log.Debug("record saved", "namespace", ns, "key", key, "bytes", len(data))
	return nil
}

// Get reads and decodes a record. A missing file is not an error.
func (s *JSONStore) Get(ns Namespace, key string, into any) (bool, error) {
	key, err := normalizeKey(ns, key)
	if errors.Is(err, ErrBlankKey) {
		return false, nil
	}
	if err != nil {
		return false, wrap("get", ns, key, err)
	}

	s.mu.RLock()
	data, err := os.ReadFile(s.path(ns, key))
	s.mu.RUnlock()

	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("record not found", "namespace", ns, "key", key)
		return false, nil
	}
	if err != nil {
		return false, wrap("get", ns, key, err)
	}

	if err := json.Unmarshal(data, into); err != nil {
		return false, wrap("get", ns, key, fmt.Errorf("decode: %w", err))
	}
	return true, nil
}

// Delete removes a record file.
func (s *JSONStore) Delete(ns Namespace, key string) (bool, error) {
	key, err := normalizeKey(ns, key)
	if errors.Is(err, ErrBlankKey) {
		return false, nil
	}
	if err != nil {
		return false, wrap("delete", ns, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(s.path(ns, key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, wrap("delete", ns, key, err)
	}
	return true, nil
}

// List returns record names in a pose or routine namespace.
func (s *JSONStore) List(ns Namespace) ([]string, error) {
	if ns != NamespacePose && ns != NamespaceRoutine {
		return nil, wrap("list", ns, "", ErrUnknownNamespace)
	}

	s.mu.RLock()
	entries, err := os.ReadDir(filepath.Join(s.root, string(ns)))
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, wrap("list", ns, "", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), jsonExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), jsonExt))
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// ListResultTimestamps returns the result timestamps of a routine, newest
// first. Files whose name is not a timestamp are ignored.
func (s *JSONStore) ListResultTimestamps(routineName string) ([]int64, error) {
	routineName = CleanName(routineName)
	if !safeName(routineName) {
		return []int64{}, nil
	}

	s.mu.RLock()
	entries, err := os.ReadDir(filepath.Join(s.root, string(NamespaceResult), routineName))
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return []int64{}, nil
	}
	if err != nil {
		return nil, wrap("list", NamespaceResult, routineName, err)
	}

	timestamps := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), jsonExt) {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSuffix(e.Name(), jsonExt), 10, 64)
		if err != nil {
			continue
		}
		timestamps = append(timestamps, ts)
	}
	return sortDescending(timestamps), nil
}

// Close is a no-op for JSON files.
func (s *JSONStore) Close() error {
	return nil
}

func sortDescending(ts []int64) []int64 {
	slices.Sort(ts)
	slices.Reverse(ts)
	return ts
}

// Ensure JSONStore implements Store
var _ Store = (*JSONStore)(nil)

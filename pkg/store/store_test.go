package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-posegame/pkg/landmark"
)

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	js, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "posegame.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{"json": js, "sqlite": sq}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func TestStore_PutGetOverwrite(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		rec := PoseRecord{
			RestPose:  landmark.Set{{X: 1, Y: 2}},
			FinalPose: landmark.Set{{X: 3, Y: 4}},
		}
		require.NoError(t, s.Put(NamespacePose, "squat", rec))

		var got PoseRecord
		found, err := s.Get(NamespacePose, "squat", &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, rec, got)

		rec.FinalPose = landmark.Set{{X: 9, Y: 9}}
		require.NoError(t, s.Put(NamespacePose, "squat", rec))
		found, err = s.Get(NamespacePose, "squat", &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, landmark.Set{{X: 9, Y: 9}}, got.FinalPose)
	})
}

func TestStore_GetMissingIsNotAnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		var got PoseRecord
		found, err := s.Get(NamespacePose, "nope", &got)
		require.NoError(t, err)
		assert.False(t, found)

		found, err = s.Get(NamespaceRoutine, "   ", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestStore_KeysAreTrimmed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Put(NamespaceRoutine, "  morning  ", Routine{RoutineName: "morning"}))

		var got Routine
		found, err := s.Get(NamespaceRoutine, "morning", &got)
		require.NoError(t, err)
		assert.True(t, found)

		keys, err := s.List(NamespaceRoutine)
		require.NoError(t, err)
		assert.Equal(t, []string{"morning"}, keys)
	})
}

func TestStore_Delete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Put(NamespacePose, "lunge", PoseRecord{}))

		ok, err := s.Delete(NamespacePose, "lunge")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Delete(NamespacePose, "lunge")
		require.NoError(t, err)
		assert.False(t, ok, "second delete should report nothing removed")

		ok, err = s.Delete(NamespacePose, "")
		require.NoError(t, err)
		assert.False(t, ok, "blank key")
	})
}

func TestStore_List(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		keys, err := s.List(NamespacePose)
		require.NoError(t, err)
		assert.Empty(t, keys)

		for _, name := range []string{"squat", "jumping jack", "lunge"} {
			require.NoError(t, s.Put(NamespacePose, name, PoseRecord{}))
		}
		require.NoError(t, s.Put(NamespaceRoutine, "other", Routine{}))

		keys, err = s.List(NamespacePose)
		require.NoError(t, err)
		assert.Equal(t, []string{"jumping jack", "lunge", "squat"}, keys)

		_, err = s.List(NamespaceResult)
		assert.ErrorIs(t, err, ErrUnknownNamespace)
	})
}

func TestStore_ResultOrdering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		for _, ts := range []int64{100, 300, 200} {
			res := Result{RoutineName: "daily", Timestamp: ts, TotalScore: int(ts)}
			require.NoError(t, s.Put(NamespaceResult, ResultKey("daily", ts), res))
		}
		require.NoError(t, s.Put(NamespaceResult, ResultKey("other", 999), Result{}))

		got, err := s.ListResultTimestamps("daily")
		require.NoError(t, err)
		assert.Equal(t, []int64{300, 200, 100}, got)

		got, err = s.ListResultTimestamps("never played")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStore_RejectsBadKeys(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		assert.ErrorIs(t, s.Put(NamespacePose, "  ", PoseRecord{}), ErrBlankKey)
		assert.ErrorIs(t, s.Put(NamespacePose, "../escape", PoseRecord{}), ErrInvalidKey)
		assert.ErrorIs(t, s.Put(NamespaceResult, "daily", Result{}), ErrInvalidKey)
		assert.ErrorIs(t, s.Put(Namespace("bogus"), "x", PoseRecord{}), ErrUnknownNamespace)
	})
}

func TestJSONStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(NamespacePose, "squat", PoseRecord{}))
	require.NoError(t, s.Put(NamespaceResult, ResultKey("daily", 42), Result{RoutineName: "daily", Timestamp: 42}))

	for _, p := range []string{
		filepath.Join(dir, "poses", "squat.json"),
		filepath.Join(dir, "results", "daily", "42.json"),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	// Stray files are ignored by listings.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results", "daily", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results", "daily", "abc.json"), []byte("{}"), 0644))
	got, err := s.ListResultTimestamps("daily")
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, got)
}

func TestJSONStore_WireFormat(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir)
	require.NoError(t, err)

	res := Result{RoutineName: "daily", Timestamp: 7, TotalScore: 30, MaxMultiplier: 4, ExerciseScores: []int{10, 20}}
	require.NoError(t, s.Put(NamespaceResult, ResultKey("daily", 7), res))

	data, err := os.ReadFile(filepath.Join(dir, "results", "daily", "7.json"))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"routineName":"daily","timestamp":7,"totalScore":30,"maxMultiplier":4,"exerciseScores":[10,20]}`,
		string(data))
}

func TestSQLiteStore_SchemaVersion(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "v.db"))
	require.NoError(t, err)
	defer s.Close()

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	// Reopening applies nothing new.
	path := filepath.Join(t.TempDir(), "reopen.db")
	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())
	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

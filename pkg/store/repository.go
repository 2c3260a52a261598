package store

import (
	"fmt"
)

// Repository is a typed view over a Store.
type Repository struct {
	store Store
}

// NewRepository wraps s.
func NewRepository(s Store) *Repository {
	return &Repository{store: s}
}

// Store returns the underlying store.
func (r *Repository) Store() Store {
	return r.store
}

// SavePose stores a pose record under the trimmed exercise name, replacing any
// earlier recording.
func (r *Repository) SavePose(name string, rec PoseRecord) error {
	return r.store.Put(NamespacePose, CleanName(name), rec)
}

// LoadPose returns the pose record for name. found is false if none exists.
func (r *Repository) LoadPose(name string) (*PoseRecord, bool, error) {
	var rec PoseRecord
	found, err := r.store.Get(NamespacePose, CleanName(name), &rec)
	if err != nil || !found {
		return nil, false, err
	}
	return &rec, true, nil
}

// DeletePose removes a pose record.
func (r *Repository) DeletePose(name string) (bool, error) {
	return r.store.Delete(NamespacePose, CleanName(name))
}

// ListPoses returns all exercise names.
func (r *Repository) ListPoses() ([]string, error) {
	return r.store.List(NamespacePose)
}

// SaveRoutine validates and stores a routine under its trimmed name. Exercise
// names are not checked against stored poses.
func (r *Repository) SaveRoutine(routine Routine) error {
	routine.RoutineName = CleanName(routine.RoutineName)
	steps := make([]RoutineStep, len(routine.Poses))
	for i, step := range routine.Poses {
		if step.Repetitions <= 0 {
			return fmt.Errorf("%w: step %d (%q) has %d repetitions", ErrInvalidRoutine, i, step.Name, step.Repetitions)
		}
		steps[i] = RoutineStep{Name: CleanName(step.Name), Repetitions: step.Repetitions}
	}
	routine.Poses = steps
	return r.store.Put(NamespaceRoutine, routine.RoutineName, routine)
}

// LoadRoutine returns the routine named name.
func (r *Repository) LoadRoutine(name string) (*Routine, bool, error) {
	var routine Routine
	found, err := r.store.Get(NamespaceRoutine, CleanName(name), &routine)
	if err != nil || !found {
		return nil, false, err
	}
	return &routine, true, nil
}

// DeleteRoutine removes a routine. Its results are kept.
func (r *Repository) DeleteRoutine(name string) (bool, error) {
	return r.store.Delete(NamespaceRoutine, CleanName(name))
}

// ListRoutines returns all routine names.
func (r *Repository) ListRoutines() ([]string, error) {
	return r.store.List(NamespaceRoutine)
}

// SaveResult stores a session result under (routine, timestamp).
func (r *Repository) SaveResult(res Result) error {
	res.RoutineName = CleanName(res.RoutineName)
	if res.ExerciseScores == nil {
		res.ExerciseScores = []int{}
	}
	return r.store.Put(NamespaceResult, ResultKey(res.RoutineName, res.Timestamp), res)
}

// LoadResult returns one result.
func (r *Repository) LoadResult(routineName string, timestamp int64) (*Result, bool, error) {
	var res Result
	found, err := r.store.Get(NamespaceResult, ResultKey(routineName, timestamp), &res)
	if err != nil || !found {
		return nil, false, err
	}
	return &res, true, nil
}

// DeleteResult removes one result.
func (r *Repository) DeleteResult(routineName string, timestamp int64) (bool, error) {
	return r.store.Delete(NamespaceResult, ResultKey(routineName, timestamp))
}

// ListResults returns a routine's result timestamps, newest first.
func (r *Repository) ListResults(routineName string) ([]int64, error) {
	return r.store.ListResultTimestamps(routineName)
}

// LoadResults returns all results of a routine, newest first. Results that
// vanish between listing and loading are skipped.
func (r *Repository) LoadResults(routineName string) ([]Result, error) {
	timestamps, err := r.ListResults(routineName)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(timestamps))
	for _, ts := range timestamps {
		res, found, err := r.LoadResult(routineName, ts)
		if err != nil {
			return nil, err
		}
		if found {
			results = append(results, *res)
		}
	}
	return results, nil
}

package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-posegame/pkg/landmark"
)

// PoseRecord is the recorded rest and final pose of one exercise.
type PoseRecord struct {
	RestPose  landmark.Set `json:"restPose"`
	FinalPose landmark.Set `json:"finalPose"`
}

// Usable reports whether both poses are non-empty and of equal length.
func (p *PoseRecord) Usable() bool {
	return p != nil && p.RestPose.Comparable(p.FinalPose)
}

// RoutineStep is one exercise of a routine. Name is a soft reference to a
// PoseRecord and is not checked when the routine is saved.
type RoutineStep struct {
	Name        string `json:"name"`
	Repetitions int    `json:"repetitions"`
}

// Routine is an ordered list of exercises played as one session.
type Routine struct {
	RoutineName string        `json:"routineName"`
	Poses       []RoutineStep `json:"poses"`
}

// Result is the immutable outcome of one played routine.
type Result struct {
	RoutineName    string `json:"routineName"`
	Timestamp      int64  `json:"timestamp"`
	TotalScore     int    `json:"totalScore"`
	MaxMultiplier  int    `json:"maxMultiplier"`
	ExerciseScores []int  `json:"exerciseScores"`
}

// Time returns the result timestamp as a time.Time.
func (r *Result) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// CleanName trims surrounding whitespace from a pose or routine name.
func CleanName(name string) string {
	return strings.TrimSpace(name)
}

// ResultKey builds the compound key of a result record.
func ResultKey(routineName string, timestamp int64) string {
	return CleanName(routineName) + "/" + strconv.FormatInt(timestamp, 10)
}

// SplitResultKey is the inverse of ResultKey.
func SplitResultKey(key string) (routineName string, timestamp int64, ok bool) {
	i := strings.LastIndex(key, "/")
	if i <= 0 || i == len(key)-1 {
		return "", 0, false
	}
	ts, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return key[:i], ts, true
}

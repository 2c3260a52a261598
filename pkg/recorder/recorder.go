// Package recorder captures the rest and final reference poses of an
// exercise from the live landmark stream.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-posegame/internal/log"
	"github.com/teslashibe/go-posegame/pkg/landmark"
	"github.com/teslashibe/go-posegame/pkg/pose"
	"github.com/teslashibe/go-posegame/pkg/store"
)

var (
	// ErrBlankName is returned when the exercise name is empty.
	ErrBlankName = errors.New("recorder: blank exercise name")

	// ErrNoLandmarks is returned when no person is visible to capture.
	ErrNoLandmarks = errors.New("recorder: no landmarks detected")

	// ErrBusy is returned when a capture is already counting down.
	ErrBusy = errors.New("recorder: capture in progress")

	// ErrIncomplete is returned when saving before both poses are captured.
	ErrIncomplete = errors.New("recorder: rest and final pose required")
)

// Target is the pose the next capture will fill.
type Target string

const (
	TargetRest  Target = "rest"
	TargetFinal Target = "final"
)

// Config holds the capture countdown.
type Config struct {
	Countdown int           // number of ticks before the snapshot
	Tick      time.Duration // length of one tick
}

// DefaultConfig returns a 3 second countdown.
func DefaultConfig() Config {
	return Config{Countdown: 3, Tick: time.Second}
}

// PoseSaver persists a pose record. *store.Repository satisfies it.
type PoseSaver interface {
	SavePose(name string, rec store.PoseRecord) error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithAfter replaces time.After for the countdown.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(r *Recorder) { r.after = after }
}

// OnTick registers a callback invoked with the remaining ticks.
func OnTick(fn func(remaining int)) Option {
	return func(r *Recorder) { r.onTick = fn }
}

// Recorder holds the capture state of one exercise. The first capture fills
// the rest pose, every later one replaces the final pose.
type Recorder struct {
	name   string
	config Config
	after  func(time.Duration) <-chan time.Time
	onTick func(int)
	log    *slog.Logger

	mu        sync.Mutex
	latest    landmark.Set
	rest      landmark.Set
	final     landmark.Set
	recording bool
	remaining int
}

// New creates a recorder for the named exercise.
func New(name string, config Config, opts ...Option) *Recorder {
	r := &Recorder{
		name:   store.CleanName(name),
		config: config,
		after:  time.After,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = log.Component("recorder").With("exercise", r.name)
	return r
}

// Name returns the trimmed exercise name.
func (r *Recorder) Name() string { return r.name }

// Observe records the latest smoothed landmarks.
func (r *Recorder) Observe(set landmark.Set) {
	r.mu.Lock()
	r.latest = set.Clone()
	r.mu.Unlock()
}

// Next returns which pose the next capture fills.
func (r *Recorder) Next() Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next()
}

func (r *Recorder) next() Target {
	if len(r.rest) == 0 {
		return TargetRest
	}
	return TargetFinal
}

// Phase mirrors the matcher states for preview colouring: Idle before any
// capture, MatchedRest once the rest pose exists, MatchedFinal once both do.
func (r *Recorder) Phase() pose.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case len(r.final) > 0:
		return pose.MatchedFinal
	case len(r.rest) > 0:
		return pose.MatchedRest
	default:
		return pose.Idle
	}
}

// Capture counts down and snapshots the latest landmarks into the next
// target. It blocks for the countdown and returns the filled target.
func (r *Recorder) Capture(ctx context.Context) (Target, error) {
	if r.name == "" {
		return "", ErrBlankName
	}

	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return "", ErrBusy
	}
	if len(r.latest) == 0 {
		r.mu.Unlock()
		return "", ErrNoLandmarks
	}
	r.recording = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.recording = false
		r.remaining = 0
		r.mu.Unlock()
	}()

	for i := r.config.Countdown; i > 0; i-- {
		r.mu.Lock()
		r.remaining = i
		r.mu.Unlock()
		if r.onTick != nil {
			r.onTick(i)
		}
		select {
		case <-r.after(r.config.Tick):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.latest) == 0 {
		return "", ErrNoLandmarks
	}
	target := r.next()
	if target == TargetRest {
		r.rest = r.latest.Clone()
	} else {
		r.final = r.latest.Clone()
	}
	r.log.Info("pose captured", "target", target, "points", len(r.latest))
	return target, nil
}

// Record returns the captured pair, or ErrIncomplete.
func (r *Recorder) Record() (store.PoseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rest) == 0 || len(r.final) == 0 {
		return store.PoseRecord{}, ErrIncomplete
	}
	return store.PoseRecord{RestPose: r.rest.Clone(), FinalPose: r.final.Clone()}, nil
}

// Save writes the captured pair under the exercise name, replacing any
// earlier recording.
func (r *Recorder) Save(saver PoseSaver) error {
	if strings.TrimSpace(r.name) == "" {
		return ErrBlankName
	}
	rec, err := r.Record()
	if err != nil {
		return err
	}
	if err := saver.SavePose(r.name, rec); err != nil {
		return err
	}
	r.log.Info("pose saved")
	return nil
}

// Status is a read-only snapshot of a recorder.
type Status struct {
	Name        string     `json:"name"`
	Next        Target     `json:"next"`
	Phase       pose.State `json:"phase"`
	Recording   bool       `json:"recording"`
	Countdown   int        `json:"countdown"`
	RestPoints  int        `json:"restPoints"`
	FinalPoints int        `json:"finalPoints"`
	Visible     int        `json:"visible"`
}

// Status returns the current snapshot.
func (r *Recorder) Status() Status {
	phase := r.Phase()
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Name:        r.name,
		Next:        r.next(),
		Phase:       phase,
		Recording:   r.recording,
		Countdown:   r.remaining,
		RestPoints:  len(r.rest),
		FinalPoints: len(r.final),
		Visible:     len(r.latest),
	}
}

// Package routine plays a sequence of exercises and produces the session
// result.
package routine

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-posegame/internal/log"
	"github.com/teslashibe/go-posegame/pkg/landmark"
	"github.com/teslashibe/go-posegame/pkg/pose"
	"github.com/teslashibe/go-posegame/pkg/score"
	"github.com/teslashibe/go-posegame/pkg/store"
)

// PoseSource loads the reference poses of an exercise. *store.Repository
// satisfies it.
type PoseSource interface {
	LoadPose(name string) (*store.PoseRecord, bool, error)
}

// Phase is the lifecycle position of a Player.
type Phase int

const (
	PhaseReady Phase = iota
	PhasePlaying
	PhaseFailed
	PhaseFinished
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhasePlaying:
		return "playing"
	case PhaseFailed:
		return "failed"
	case PhaseFinished:
		return "finished"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Update reports what one fed frame did.
type Update struct {
	Event        pose.Event
	StepAdvanced bool // the step target was reached
	Finished     bool // the last step was completed
}

// Option configures a Player.
type Option func(*Player)

// WithMatcherConfig overrides the matcher tuning.
func WithMatcherConfig(cfg pose.Config) Option {
	return func(p *Player) { p.matcherConfig = cfg }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// WithScore shares an existing score state instead of a fresh one.
func WithScore(sc *score.State) Option {
	return func(p *Player) { p.score = sc }
}

// OnStepStart registers a hook called each time a step is bound, before its
// pose is loaded. Sessions use it to reset landmark smoothing.
func OnStepStart(fn func(index int, step store.RoutineStep)) Option {
	return func(p *Player) { p.onStepStart = fn }
}

// Player sequences the steps of a routine over one matcher and one score
// state. Not safe for concurrent use.
type Player struct {
	routine       store.Routine
	poses         PoseSource
	practice      bool
	matcherConfig pose.Config
	now           func() time.Time
	onStepStart   func(int, store.RoutineStep)
	log           *slog.Logger

	score   *score.State
	matcher *pose.Matcher

	phase          Phase
	index          int
	reps           int
	stepStartScore int
	deltas         []int
	maxMultiplier  int
	failure        *StepFailure
	finishedAt     time.Time

	result  *store.Result
	emitted bool
}

// NewPlayer creates a player for routine. Call Start to bind the first step.
func NewPlayer(routine store.Routine, poses PoseSource, opts ...Option) *Player {
	p := &Player{
		routine:       routine,
		poses:         poses,
		matcherConfig: pose.DefaultConfig(),
		now:           time.Now,
		maxMultiplier: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.score == nil {
		p.score = score.New()
	}
	p.log = log.Component("routine").With("routine", routine.RoutineName)
	return p
}

// NewPractice creates a player for a single exercise with no repetition
// target. It never finishes on its own and never produces a result.
func NewPractice(exercise string, poses PoseSource, opts ...Option) *Player {
	exercise = store.CleanName(exercise)
	p := NewPlayer(store.Routine{Poses: []store.RoutineStep{{Name: exercise}}}, poses, opts...)
	p.practice = true
	p.log = log.Component("routine").With("practice", exercise)
	return p
}

// Start binds step 0. A routine without steps finishes immediately.
func (p *Player) Start() error {
	if p.phase != PhaseReady {
		return ErrAlreadyStarted
	}
	p.log.Info("routine started", "steps", len(p.routine.Poses))
	p.bind(0)
	return nil
}

// bind makes step i current, or finishes when i is past the end.
func (p *Player) bind(i int) {
	p.index = i
	p.reps = 0
	p.matcher = nil
	p.failure = nil
	p.stepStartScore = p.score.Score()

	if i >= len(p.routine.Poses) {
		p.finish()
		return
	}

	step := p.routine.Poses[i]
	if p.onStepStart != nil {
		p.onStepStart(i, step)
	}

	rec, found, err := p.poses.LoadPose(step.Name)
	switch {
	case err != nil:
		p.fail(ReasonLoad, err)
		return
	case !found:
		p.fail(ReasonMissing, nil)
		return
	case !rec.Usable():
		p.fail(ReasonUnusable, nil)
		return
	}

	p.matcher = pose.NewMatcher(p.matcherConfig, rec.RestPose, rec.FinalPose, p.score, p.now())
	p.phase = PhasePlaying
	p.log.Info("step started", "index", i, "exercise", step.Name, "target", step.Repetitions)
}

func (p *Player) fail(reason string, err error) {
	step := p.routine.Poses[p.index]
	p.failure = &StepFailure{Index: p.index, Exercise: step.Name, Reason: reason, Err: err}
	p.phase = PhaseFailed
	p.log.Warn("step unavailable", "index", p.index, "exercise", step.Name, "reason", reason, "error", err)
}

func (p *Player) finish() {
	p.phase = PhaseFinished
	p.finishedAt = p.now()
	p.log.Info("routine finished", "score", p.score.Score(), "max_multiplier", p.maxMultiplier)
}

// closeStep records the current step's score delta and moves on.
func (p *Player) closeStep() {
	p.deltas = append(p.deltas, p.score.Score()-p.stepStartScore)
	p.bind(p.index + 1)
}

// Feed runs one smoothed frame through the current step's matcher.
func (p *Player) Feed(set landmark.Set) (Update, error) {
	switch p.phase {
	case PhaseReady:
		return Update{}, ErrNotStarted
	case PhaseFailed:
		return Update{}, p.failure
	case PhaseFinished, PhaseAborted:
		return Update{}, ErrFinished
	}

	u := Update{Event: p.matcher.Update(set, p.now())}
	if u.Event != pose.EventRepetition {
		return u, nil
	}

	p.reps++
	p.maxMultiplier = max(p.maxMultiplier, p.score.Multiplier())
	if !p.practice && p.reps >= p.routine.Poses[p.index].Repetitions {
		p.closeStep()
		u.StepAdvanced = true
		u.Finished = p.phase == PhaseFinished
	}
	return u, nil
}

// SkipStep abandons the current step, keeping whatever it scored so far
// (zero for a failed step), and moves on.
func (p *Player) SkipStep() error {
	switch p.phase {
	case PhaseReady:
		return ErrNotStarted
	case PhaseFinished, PhaseAborted:
		return ErrFinished
	}
	p.log.Info("step skipped", "index", p.index)
	p.closeStep()
	return nil
}

// Abort ends the routine without a result.
func (p *Player) Abort() {
	if p.phase == PhaseFinished || p.phase == PhaseAborted {
		return
	}
	p.phase = PhaseAborted
	p.matcher = nil
	p.log.Info("routine aborted", "index", p.index)
}

// Complete returns the session result once every step is done. The result is
// built only once; later calls return the same value with emitted == false.
// Before the routine finishes, and always in practice, it returns nil, false.
func (p *Player) Complete() (result *store.Result, emitted bool) {
	if p.phase != PhaseFinished || p.practice {
		return nil, false
	}
	if p.result != nil {
		r := *p.result
		return &r, false
	}

	deltas := make([]int, len(p.deltas))
	copy(deltas, p.deltas)
	p.result = &store.Result{
		RoutineName:    p.routine.RoutineName,
		Timestamp:      p.finishedAt.UnixMilli(),
		TotalScore:     p.score.Score(),
		MaxMultiplier:  p.maxMultiplier,
		ExerciseScores: deltas,
	}
	r := *p.result
	return &r, true
}

// Practice reports whether the player runs a single untargeted exercise.
func (p *Player) Practice() bool { return p.practice }

// Phase returns the lifecycle phase.
func (p *Player) Phase() Phase { return p.phase }

// Score returns the shared score state.
func (p *Player) Score() *score.State { return p.score }

// Failure returns the current step failure, or nil.
func (p *Player) Failure() *StepFailure { return p.failure }

// Status is a read-only snapshot of a player.
type Status struct {
	Routine       string     `json:"routine"`
	Practice      bool       `json:"practice,omitempty"`
	Phase         Phase      `json:"phase"`
	Step          int        `json:"step"`
	Steps         int        `json:"steps"`
	Exercise      string     `json:"exercise,omitempty"`
	Repetitions   int        `json:"repetitions"`
	Target        int        `json:"target"`
	Score         int        `json:"score"`
	Multiplier    int        `json:"multiplier"`
	MaxMultiplier int        `json:"maxMultiplier"`
	State         pose.State `json:"state"`
	Failed        bool       `json:"failed"`
	FailureReason string     `json:"failureReason,omitempty"`
}

// Status returns a snapshot for presentation.
func (p *Player) Status() Status {
	s := Status{
		Routine:       p.routine.RoutineName,
		Practice:      p.practice,
		Phase:         p.phase,
		Step:          p.index,
		Steps:         len(p.routine.Poses),
		Repetitions:   p.reps,
		Score:         p.score.Score(),
		Multiplier:    p.score.Multiplier(),
		MaxMultiplier: p.maxMultiplier,
		State:         pose.Idle,
	}
	if p.index < len(p.routine.Poses) {
		s.Exercise = p.routine.Poses[p.index].Name
		s.Target = p.routine.Poses[p.index].Repetitions
	}
	if p.matcher != nil {
		s.State = p.matcher.State()
	}
	if p.failure != nil {
		s.Failed = true
		s.FailureReason = p.failure.Reason
	}
	return s
}

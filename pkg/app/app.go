package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-posegame/internal/log"
	"github.com/teslashibe/go-posegame/pkg/detection"
	"github.com/teslashibe/go-posegame/pkg/ingest"
	"github.com/teslashibe/go-posegame/pkg/landmark"
	"github.com/teslashibe/go-posegame/pkg/pose"
	"github.com/teslashibe/go-posegame/pkg/protocol"
	"github.com/teslashibe/go-posegame/pkg/recorder"
	"github.com/teslashibe/go-posegame/pkg/routine"
	"github.com/teslashibe/go-posegame/pkg/session"
	"github.com/teslashibe/go-posegame/pkg/store"
	"github.com/teslashibe/go-posegame/pkg/web"
)

// App is the posegame server orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	log    *slog.Logger

	// Storage
	store store.Store
	repo  *store.Repository

	// Detection
	ingest  *ingest.Hub
	session *session.Session

	// Web API
	web *web.Server

	// Play state, shared by the pipeline goroutine and API handlers
	mu       sync.Mutex
	player   *routine.Player
	recorder *recorder.Recorder
	lastErr  string
	outbox   []*protocol.Message
}

// New creates a new application with the given configuration, applying
// environment overrides first.
func New(cfg Config) (*App, error) {
	if err := cfg.LoadEnvConfig(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Init(cfg.LogLevel)

	return &App{
		config: cfg,
		log:    log.Component("app"),
	}, nil
}

// Init opens storage and builds all components.
// Call this after New() and before Run().
func (a *App) Init() error {
	a.log.Info("posegame starting",
		"store", a.config.Store,
		"data_dir", a.config.DataDir,
		"detector", a.config.Detector,
		"matcher", a.config.Matcher,
	)

	if err := a.initStore(); err != nil {
		return fmt.Errorf("store init: %w", err)
	}

	a.ingest = ingest.NewHub()
	a.session = session.New(a.config.Session, a.config.DetectorFactory(), a.onLandmarks)
	a.wireIngest()

	a.web = web.NewServer(":"+a.config.Port, a.repo, a,
		a.ingest.RegisterRoutes,
		func(app *fiber.App) { a.ingest.RegisterAPIRoutes(app.Group("/api")) },
	)
	return nil
}

func (a *App) initStore() error {
	var (
		s   store.Store
		err error
	)
	switch a.config.Store {
	case StoreSQLite:
		if err := os.MkdirAll(a.config.DataDir, 0755); err != nil {
			return err
		}
		s, err = store.NewSQLiteStore(a.config.DatabasePath())
	default:
		s, err = store.NewJSONStore(a.config.DataDir)
	}
	if err != nil {
		return err
	}
	a.store = s
	a.repo = store.NewRepository(s)
	return nil
}

// wireIngest routes detector client messages into the session.
func (a *App) wireIngest() {
	a.ingest.OnLandmarks(func(clientID string, data *protocol.LandmarksData) {
		points, err := data.NormalizedLandmarks()
		if err != nil {
			a.log.Debug("bad landmarks", "client", clientID, "error", err)
			return
		}
		a.session.SubmitResult(detection.Result{
			Landmarks:   points,
			Skeleton:    detection.Skeleton(data.Skeleton),
			ImageWidth:  data.Width,
			ImageHeight: data.Height,
			Timestamp:   time.Now(),
		})
	})

	a.ingest.OnFrame(func(clientID string, frame *protocol.FrameData) {
		jpeg, err := frame.DecodeFrameData()
		if err != nil {
			a.log.Debug("bad frame", "client", clientID, "error", err)
			return
		}
		a.session.SubmitFrame(jpeg)
		a.web.PublishFrame(jpeg)
	})

	a.ingest.OnStatus(func(clientID string, status *protocol.StatusData) {
		a.session.SetReady(status.Ready)
		if status.Error != "" {
			a.session.ReportError(&detection.Error{Message: status.Error, Code: detection.Code(status.Code)})
		}
	})
}

// Run starts the pipeline and web server.
// Blocks until context is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	go a.watchErrors()

	if err := a.session.Start(ctx); err != nil {
		a.log.Warn("detector unavailable, retry with POST /api/detector/retry", "error", err)
	}
	if a.config.Detector == DetectorExternal {
		a.session.SetReady(true)
	}

	go a.publishStatus(ctx)

	errc := make(chan error, 1)
	go func() { errc <- a.web.Start(ctx) }()

	a.log.Info("posegame ready", "port", a.config.Port)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.log.Info("shutting down")

	if a.web != nil {
		if err := a.web.Shutdown(); err != nil {
			a.log.Warn("web shutdown", "error", err)
		}
	}
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			a.log.Warn("session close", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close", "error", err)
		}
	}
}

// watchErrors logs detector failures and keeps the last one for status.
func (a *App) watchErrors() {
	for err := range a.session.Errors() {
		code := detection.CodeGeneric
		var de *detection.Error
		if errors.As(err, &de) {
			code = de.Code
		}
		a.log.Warn("detector error", "code", code, "error", err)

		a.mu.Lock()
		a.lastErr = err.Error()
		a.mu.Unlock()

		msg, merr := protocol.NewStatusMessage(a.session.Ready(), err.Error(), int(code))
		if merr == nil {
			a.ingest.Broadcast(msg)
		}
	}
}

// publishStatus pushes a status snapshot to dashboards periodically.
func (a *App) publishStatus(ctx context.Context) {
	ticker := time.NewTicker(a.config.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.web.PublishStatus(a.Status())
		}
	}
}

// onLandmarks runs on the session pipeline goroutine for every smoothed set.
func (a *App) onLandmarks(set landmark.Set) {
	a.mu.Lock()
	if a.recorder != nil {
		a.recorder.Observe(set)
	}
	if a.player != nil && a.player.Phase() == routine.PhasePlaying {
		u, err := a.player.Feed(set)
		if err == nil {
			a.handleUpdate(u)
		}
	}
	a.mu.Unlock()
	a.flush()
}

// handleUpdate turns a player update into outgoing messages. Caller holds mu.
func (a *App) handleUpdate(u routine.Update) {
	switch u.Event {
	case pose.EventRepetition:
		a.emit(protocol.NewEventMessage(protocol.EventRepetition, 0, "", ""))
	case pose.EventTimeout:
		a.emit(protocol.NewEventMessage(protocol.EventTimeout, 0, "", ""))
	default:
		return
	}
	a.emitScore()
	if u.StepAdvanced {
		a.afterBind()
	}
}

// afterBind reports a failed step or the finished routine after the player
// moved to a new step. Caller holds mu.
func (a *App) afterBind() {
	switch a.player.Phase() {
	case routine.PhaseFailed:
		f := a.player.Failure()
		a.emit(protocol.NewEventMessage(protocol.EventStepFailed, f.Index, f.Exercise, f.Reason))
	case routine.PhaseFinished:
		a.complete()
	}
}

// complete persists the result exactly once. Caller holds mu.
func (a *App) complete() {
	res, emitted := a.player.Complete()
	if !emitted {
		return
	}
	if err := a.repo.SaveResult(*res); err != nil {
		a.log.Error("save result failed", "routine", res.RoutineName, "error", err)
	}
	a.emit(protocol.NewEventMessage(protocol.EventComplete, len(res.ExerciseScores), res.RoutineName, ""))
	a.emit(protocol.NewResultMessage(protocol.ResultData(*res)))
}

// emitScore queues a score update. Caller holds mu.
func (a *App) emitScore() {
	st := a.player.Status()
	a.emit(protocol.NewScoreMessage(protocol.ScoreData{
		Score:      st.Score,
		Multiplier: st.Multiplier,
		State:      st.State.String(),
		Step:       st.Step,
		Exercise:   st.Exercise,
		Rep:        st.Repetitions,
		Target:     st.Target,
	}))
}

// emit queues a message for flush. Caller holds mu.
func (a *App) emit(msg *protocol.Message, err error) {
	if err != nil {
		a.log.Warn("build message", "error", err)
		return
	}
	a.outbox = append(a.outbox, msg)
}

// flush sends queued messages to dashboards and detector clients.
func (a *App) flush() {
	a.mu.Lock()
	out := a.outbox
	a.outbox = nil
	a.mu.Unlock()

	for _, msg := range out {
		a.web.PublishEvent(msg)
		a.ingest.Broadcast(msg)
	}
}

// Status implements web.Controller.
func (a *App) Status() web.Status {
	stats := a.session.Stats()
	st := web.Status{
		Session:   &stats,
		Detectors: a.ingest.ClientCount(),
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.player != nil {
		ps := a.player.Status()
		st.Play = &ps
	}
	if a.recorder != nil {
		rs := a.recorder.Status()
		st.Recording = &rs
	}
	st.Error = a.lastErr
	return st
}

// StartRoutine implements web.Controller. A routine already in progress is
// aborted.
func (a *App) StartRoutine(name string) error {
	r, found, err := a.repo.LoadRoutine(name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("routine %q: %w", store.CleanName(name), web.ErrNotFound)
	}

	return a.play(func(opts ...routine.Option) *routine.Player {
		return routine.NewPlayer(*r, a.repo, opts...)
	})
}

// StartPractice implements web.Controller. It plays a single exercise with
// no target and no saved result. A routine already in progress is aborted.
func (a *App) StartPractice(exercise string) error {
	_, found, err := a.repo.LoadPose(exercise)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("pose %q: %w", store.CleanName(exercise), web.ErrNotFound)
	}

	return a.play(func(opts ...routine.Option) *routine.Player {
		return routine.NewPractice(exercise, a.repo, opts...)
	})
}

// play replaces the current player with a new one and binds its first step.
func (a *App) play(newPlayer func(...routine.Option) *routine.Player) error {
	defer a.flush()
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.player != nil {
		a.abort()
	}
	a.player = newPlayer(
		routine.WithMatcherConfig(a.config.MatcherConfig()),
		routine.OnStepStart(func(i int, step store.RoutineStep) {
			a.session.ResetSmoothing()
			a.emit(protocol.NewEventMessage(protocol.EventStep, i, step.Name, ""))
		}),
	)
	if err := a.player.Start(); err != nil {
		return err
	}
	a.afterBind()
	a.emitScore()
	return nil
}

// SkipStep implements web.Controller.
func (a *App) SkipStep() error {
	defer a.flush()
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.player == nil {
		return routine.ErrNotStarted
	}
	if err := a.player.SkipStep(); err != nil {
		return err
	}
	a.afterBind()
	a.emitScore()
	return nil
}

// AbortRoutine implements web.Controller.
func (a *App) AbortRoutine() error {
	defer a.flush()
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.player == nil {
		return routine.ErrNotStarted
	}
	switch a.player.Phase() {
	case routine.PhaseFinished, routine.PhaseAborted:
		return routine.ErrFinished
	}
	a.abort()
	return nil
}

// abort ends the current routine without a result. Caller holds mu.
func (a *App) abort() {
	switch a.player.Phase() {
	case routine.PhaseFinished, routine.PhaseAborted:
		return
	}
	st := a.player.Status()
	a.player.Abort()
	a.emit(protocol.NewEventMessage(protocol.EventAborted, st.Step, st.Exercise, ""))
}

// Capture implements web.Controller. Switching to a new exercise name starts
// a fresh recording.
func (a *App) Capture(ctx context.Context, name string) (recorder.Target, error) {
	name = store.CleanName(name)
	if name == "" {
		return "", recorder.ErrBlankName
	}

	a.mu.Lock()
	if a.recorder == nil || a.recorder.Name() != name {
		cfg := recorder.DefaultConfig()
		cfg.Countdown = a.config.Countdown
		a.recorder = recorder.New(name, cfg, recorder.OnTick(func(int) {
			a.web.PublishStatus(a.Status())
		}))
	}
	rec := a.recorder
	a.mu.Unlock()

	return rec.Capture(ctx)
}

// SaveRecording implements web.Controller.
func (a *App) SaveRecording(name string) error {
	name = store.CleanName(name)

	a.mu.Lock()
	rec := a.recorder
	a.mu.Unlock()

	if rec == nil || rec.Name() != name {
		return fmt.Errorf("recording %q: %w", name, recorder.ErrIncomplete)
	}
	if err := rec.Save(a.repo); err != nil {
		return err
	}

	a.mu.Lock()
	if a.recorder == rec {
		a.recorder = nil
	}
	a.mu.Unlock()
	return nil
}

// RetryDetector implements web.Controller.
func (a *App) RetryDetector(ctx context.Context) error {
	if err := a.session.Retry(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.lastErr = ""
	a.mu.Unlock()
	return nil
}

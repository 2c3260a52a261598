// Package session owns one live detection pipeline: the detector, the frame
// gate, landmark smoothing and the error channel. A session is created when
// play or recording starts and closed when it ends.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-posegame/internal/log"
	"github.com/teslashibe/go-posegame/pkg/detection"
	"github.com/teslashibe/go-posegame/pkg/landmark"
)

// Config holds session tuning.
type Config struct {
	MinInterval time.Duration // minimum spacing of admitted frames
	Smoothing   float64       // history weight of the landmark smoother
	ErrorBuffer int           // capacity of the error channel
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		MinInterval: 50 * time.Millisecond,
		Smoothing:   landmark.DefaultSmoothing,
		ErrorBuffer: 16,
	}
}

// Handler receives each smoothed landmark set on the pipeline goroutine.
type Handler func(set landmark.Set)

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now for the frame gate.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is one detection pipeline. With a nil factory it expects landmarks
// from an external detector via SubmitResult, and readiness via SetReady.
type Session struct {
	id       string
	config   Config
	factory  detection.Factory
	handler  Handler
	now      func() time.Time
	gate     *Gate
	smoother *landmark.Smoother
	log      *slog.Logger

	mu         sync.Mutex
	detector   detection.Detector
	closed     bool
	errsClosed bool

	frames         chan detection.Result
	errs           chan error
	resetSmoothing atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session. Call Start to initialize the detector and run the
// pipeline.
func New(config Config, factory detection.Factory, handler Handler, opts ...Option) *Session {
	if config.ErrorBuffer <= 0 {
		config.ErrorBuffer = DefaultConfig().ErrorBuffer
	}
	s := &Session{
		id:       uuid.NewString(),
		config:   config,
		factory:  factory,
		handler:  handler,
		now:      time.Now,
		smoother: landmark.NewSmoother(config.Smoothing),
		frames:   make(chan detection.Result, 1),
		errs:     make(chan error, config.ErrorBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gate = NewGate(config.MinInterval, s.now)
	s.log = log.Component("session").With("session", s.id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Errors returns the channel on which detector failures are reported. It is
// closed by Close.
func (s *Session) Errors() <-chan error { return s.errs }

// Start runs the pipeline and initializes the detector. An initialization
// failure is reported on the error channel and returned; the session stays
// usable and Retry can try again. A session starts at most once.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.ctx != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run()
	s.log.Info("session started", "external", s.factory == nil)
	return s.initDetector(s.ctx)
}

func (s *Session) initDetector(ctx context.Context) error {
	if s.factory == nil {
		return nil
	}
	d, err := s.factory(ctx)
	if err != nil {
		de := detection.Wrap("detector initialization failed", err)
		s.gate.SetReady(false)
		s.report(de)
		return de
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		d.Close()
		return ErrClosed
	}
	s.detector = d
	s.mu.Unlock()

	s.gate.SetReady(d.Ready())
	s.log.Info("detector ready")
	return nil
}

// Retry closes the current detector, if any, and initializes a new one. A
// request still in flight on the old detector becomes stale.
func (s *Session) Retry(ctx context.Context) error {
	if s.factory == nil {
		return ErrNoDetector
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	old := s.detector
	s.detector = nil
	s.mu.Unlock()

	s.gate.SetReady(false)
	s.gate.Invalidate()
	if old != nil {
		old.Close()
	}
	s.log.Info("retrying detector initialization")
	return s.initDetector(ctx)
}

// SetReady sets model readiness for an externally fed session.
func (s *Session) SetReady(ready bool) {
	if s.factory != nil {
		return
	}
	s.gate.SetReady(ready)
}

// Ready reports whether frames can currently be admitted.
func (s *Session) Ready() bool {
	return s.gate.Ready()
}

// SubmitFrame runs the local detector on a JPEG frame if the gate admits it.
// Inference happens asynchronously; the result reaches the handler. It
// returns false when the frame was dropped.
func (s *Session) SubmitFrame(jpeg []byte) bool {
	s.mu.Lock()
	d := s.detector
	if s.closed || s.ctx == nil || d == nil {
		s.mu.Unlock()
		return false
	}
	if !d.Ready() {
		s.mu.Unlock()
		s.gate.SetReady(false)
		s.gate.Drop()
		return false
	}
	id, ok := s.gate.Admit()
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		res, err := d.Detect(s.ctx, jpeg)
		s.complete(id, res, err)
	}()
	return true
}

// SubmitResult feeds landmarks produced by an external detector through the
// gate. It returns false when they were dropped.
func (s *Session) SubmitResult(res detection.Result) bool {
	s.mu.Lock()
	if s.closed || s.ctx == nil {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	id, ok := s.gate.Admit()
	if !ok {
		return false
	}
	s.complete(id, &res, nil)
	return true
}

// ReportError forwards a failure from an external detector.
func (s *Session) ReportError(err error) {
	s.report(detection.Wrap("external detector failed", err))
}

func (s *Session) complete(id uint64, res *detection.Result, err error) {
	if !s.gate.Done(id) {
		s.log.Debug("discarding stale result", "request", id)
		return
	}
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.report(detection.Wrap("inference failed", err))
		return
	}
	if res == nil {
		return
	}
	s.deliver(*res)
}

// deliver hands a result to the pipeline, replacing an unconsumed older one.
func (s *Session) deliver(res detection.Result) {
	for {
		select {
		case s.frames <- res:
			return
		case <-s.ctx.Done():
			return
		default:
		}
		select {
		case <-s.frames:
			s.gate.Drop()
		default:
		}
	}
}

func (s *Session) report(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errsClosed {
		return
	}
	select {
	case s.errs <- err:
		s.log.Warn("detector error", "error", err)
	default:
		s.log.Warn("error channel full, dropping", "error", err)
	}
}

// ResetSmoothing clears the smoother history before the next frame, e.g. when
// the exercise changes.
func (s *Session) ResetSmoothing() {
	s.resetSmoothing.Store(true)
}

func (s *Session) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case res := <-s.frames:
			if s.resetSmoothing.Swap(false) {
				s.smoother.Reset()
			}
			set := s.smoother.Apply(res.Pixels())
			if s.handler != nil {
				s.handler(set)
			}
		}
	}
}

// Stats is a snapshot of session health.
type Stats struct {
	ID    string    `json:"id"`
	Ready bool      `json:"ready"`
	Busy  bool      `json:"busy"`
	Gate  GateStats `json:"gate"`
}

// Stats returns the current counters.
func (s *Session) Stats() Stats {
	return Stats{ID: s.id, Ready: s.gate.Ready(), Busy: s.gate.Busy(), Gate: s.gate.Stats()}
}

// Close stops the pipeline, releases the detector and closes the error
// channel. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	d := s.detector
	s.detector = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.errsClosed = true
	close(s.errs)
	s.mu.Unlock()

	s.gate.SetReady(false)
	s.log.Info("session closed")
	if d != nil {
		return d.Close()
	}
	return nil
}

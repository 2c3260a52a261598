package web

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-posegame/pkg/hub"
	"github.com/teslashibe/go-posegame/pkg/recorder"
	"github.com/teslashibe/go-posegame/pkg/routine"
	"github.com/teslashibe/go-posegame/pkg/session"
	"github.com/teslashibe/go-posegame/pkg/store"
)

// ErrNotFound is returned by a Controller when a named record does not exist.
var ErrNotFound = errors.New("not found")

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, store.ErrBlankKey),
		errors.Is(err, store.ErrInvalidKey),
		errors.Is(err, store.ErrInvalidRoutine),
		errors.Is(err, recorder.ErrBlankName):
		return fiber.StatusBadRequest
	case errors.Is(err, recorder.ErrBusy),
		errors.Is(err, recorder.ErrNoLandmarks),
		errors.Is(err, recorder.ErrIncomplete),
		errors.Is(err, routine.ErrNotStarted),
		errors.Is(err, routine.ErrAlreadyStarted),
		errors.Is(err, routine.ErrFinished),
		errors.Is(err, session.ErrNoDetector):
		return fiber.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	code := errorStatus(err)
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleMetrics exposes pipeline counters in Prometheus text format
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	st := s.ctrl.Status()
	var gate session.GateStats
	if st.Session != nil {
		gate = st.Session.Gate
	}
	score := 0
	if st.Play != nil {
		score = st.Play.Score
	}
	return c.SendString(fmt.Sprintf(`# HELP posegame_detectors Connected detector clients
# TYPE posegame_detectors gauge
posegame_detectors %d

# HELP posegame_frames_admitted Frames admitted to detection
# TYPE posegame_frames_admitted counter
posegame_frames_admitted %d

# HELP posegame_frames_dropped Frames dropped by the gate
# TYPE posegame_frames_dropped counter
posegame_frames_dropped %d

# HELP posegame_results_stale Detection results discarded as stale
# TYPE posegame_results_stale counter
posegame_results_stale %d

# HELP posegame_score Score of the current routine
# TYPE posegame_score gauge
posegame_score %d
`, st.Detectors, gate.Admitted, gate.Dropped, gate.Stale, score))
}

// handleStatus returns the current play and recording state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

// handlePlay starts a routine
func (s *Server) handlePlay(c *fiber.Ctx) error {
	name := c.Params("routine")
	if err := s.ctrl.StartRoutine(name); err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(s.ctrl.Status())
}

// handlePractice starts an untargeted single-exercise session
func (s *Server) handlePractice(c *fiber.Ctx) error {
	if err := s.ctrl.StartPractice(c.Params("exercise")); err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(s.ctrl.Status())
}

// handleSkip skips the current step
func (s *Server) handleSkip(c *fiber.Ctx) error {
	if err := s.ctrl.SkipStep(); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.ctrl.Status())
}

// handleAbort ends the routine without a result
func (s *Server) handleAbort(c *fiber.Ctx) error {
	if err := s.ctrl.AbortRoutine(); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.ctrl.Status())
}

// handleCapture counts down and captures the next reference pose. The
// request blocks for the countdown.
func (s *Server) handleCapture(c *fiber.Ctx) error {
	target, err := s.ctrl.Capture(c.UserContext(), c.Params("name"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"name":     c.Params("name"),
		"captured": target,
	})
}

// handleSaveRecording saves the captured rest and final poses
func (s *Server) handleSaveRecording(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.ctrl.SaveRecording(name); err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"name": store.CleanName(name),
	})
}

// handleRetryDetector re-runs detector initialization
func (s *Server) handleRetryDetector(c *fiber.Ctx) error {
	if err := s.ctrl.RetryDetector(c.UserContext()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.ctrl.Status())
}

// handleStatusWS streams status snapshots
func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Send current status before joining the hub
	if err := c.WriteJSON(s.ctrl.Status()); err != nil {
		return
	}
	hub.NewClient(s.statusHub, c).Run()
}

// handleEventsWS streams score, event and result messages
func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.eventHub, c).Run()
}

// handlePreviewWS streams camera frames as binary JPEG messages
func (s *Server) handlePreviewWS(c *websocket.Conn) {
	hub.NewClient(s.previewHub, c).Run()
}

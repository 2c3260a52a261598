// Package web serves the REST API and live dashboard streams.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-posegame/internal/log"
	"github.com/teslashibe/go-posegame/pkg/hub"
	"github.com/teslashibe/go-posegame/pkg/protocol"
	"github.com/teslashibe/go-posegame/pkg/recorder"
	"github.com/teslashibe/go-posegame/pkg/routine"
	"github.com/teslashibe/go-posegame/pkg/session"
	"github.com/teslashibe/go-posegame/pkg/store"
)

// Status is the dashboard snapshot served by /api/status.
type Status struct {
	Session   *session.Stats   `json:"session,omitempty"`
	Play      *routine.Status  `json:"play,omitempty"`
	Recording *recorder.Status `json:"recording,omitempty"`
	Detectors int              `json:"detectors"`
	Error     string           `json:"error,omitempty"`
}

// Controller drives play and recording on behalf of the API.
type Controller interface {
	Status() Status
	StartRoutine(name string) error
	StartPractice(exercise string) error
	SkipStep() error
	AbortRoutine() error
	Capture(ctx context.Context, name string) (recorder.Target, error)
	SaveRecording(name string) error
	RetryDetector(ctx context.Context) error
}

// Route registers extra routes, e.g. the detector ingest endpoint.
type Route func(app *fiber.App)

// Server is the web API server
type Server struct {
	app  *fiber.App
	addr string
	log  *slog.Logger

	repo *store.Repository
	ctrl Controller

	// Hubs for websocket broadcast
	statusHub  *hub.Hub
	eventHub   *hub.Hub
	previewHub *hub.Hub
}

// NewServer creates a new web server listening on addr.
func NewServer(addr string, repo *store.Repository, ctrl Controller, routes ...Route) *Server {
	s := &Server{
		addr:       addr,
		log:        log.Component("web"),
		repo:       repo,
		ctrl:       ctrl,
		statusHub:  hub.New("status"),
		eventHub:   hub.New("events"),
		previewHub: hub.New("preview"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "posegame",
		DisableStartupMessage: true,
		// Record names come from path params and may contain spaces
		UnescapePath: true,
	})

	app.Use(recover.New())
	// CORS for local development
	app.Use(cors.New())

	// Extra routes go first so their middleware sees upgrades before ours
	for _, route := range routes {
		route(app)
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	api.Get("/poses", s.handleListPoses)
	api.Get("/poses/:name", s.handleGetPose)
	api.Put("/poses/:name", s.handlePutPose)
	api.Delete("/poses/:name", s.handleDeletePose)

	api.Get("/routines", s.handleListRoutines)
	api.Get("/routines/:name", s.handleGetRoutine)
	api.Put("/routines/:name", s.handlePutRoutine)
	api.Delete("/routines/:name", s.handleDeleteRoutine)

	api.Get("/results/:routine", s.handleListResults)
	api.Get("/results/:routine/summary", s.handleResultSummary)
	api.Get("/results/:routine/:ts", s.handleGetResult)
	app.Get("/results/:routine/chart", s.handleResultChart)

	api.Post("/play/skip", s.handleSkip)
	api.Post("/play/abort", s.handleAbort)
	api.Post("/play/:routine", s.handlePlay)
	api.Post("/practice/:exercise", s.handlePractice)

	api.Post("/record/:name/capture", s.handleCapture)
	api.Post("/record/:name/save", s.handleSaveRecording)

	api.Post("/detector/retry", s.handleRetryDetector)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/preview", websocket.New(s.handlePreviewWS))

	s.app = app
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and serves until ctx is cancelled or Listen fails.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("web server listening", "addr", s.addr)

	go s.statusHub.Run(ctx)
	go s.eventHub.Run(ctx)
	go s.previewHub.Run(ctx)

	return s.app.Listen(s.addr)
}

// PublishStatus broadcasts a status snapshot to /ws/status clients.
func (s *Server) PublishStatus(status Status) {
	if err := s.statusHub.BroadcastJSON(status); err != nil {
		s.log.Warn("status broadcast failed", "error", err)
	}
}

// PublishEvent broadcasts a protocol message (score, event, result) to
// /ws/events clients.
func (s *Server) PublishEvent(msg *protocol.Message) {
	if err := s.eventHub.Publish(msg); err != nil {
		s.log.Warn("event broadcast failed", "error", err)
	}
}

// PublishFrame sends a JPEG camera frame to /ws/preview clients.
func (s *Server) PublishFrame(jpeg []byte) {
	if s.previewHub.ClientCount() == 0 {
		return
	}
	s.previewHub.Broadcast(hub.NewBinaryMessage(jpeg))
}

// StatusHub returns the status hub.
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// EventHub returns the event hub.
func (s *Server) EventHub() *hub.Hub {
	return s.eventHub
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Package ingest accepts WebSocket connections from detector clients (phones,
// browsers, replay tools) that stream landmarks or camera frames.
package ingest

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-posegame/internal/log"
	"github.com/teslashibe/go-posegame/pkg/protocol"
)

// DetectorConnection represents a connected detector client
type DetectorConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the client
func (d *DetectorConnection) Send(msg *protocol.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return d.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket connections from detector clients
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*DetectorConnection
	log     *slog.Logger

	// Callbacks
	onLandmarks  func(clientID string, data *protocol.LandmarksData)
	onFrame      func(clientID string, frame *protocol.FrameData)
	onStatus     func(clientID string, status *protocol.StatusData)
	onDisconnect func(clientID string)

	// Stats
	messagesReceived  atomic.Uint64
	messagesSent      atomic.Uint64
	landmarksReceived atomic.Uint64
	framesReceived    atomic.Uint64
	parseErrors       atomic.Uint64
}

// NewHub creates a new detector hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*DetectorConnection),
		log:     log.Component("ingest"),
	}
}

// OnLandmarks sets the callback for incoming landmarks
func (h *Hub) OnLandmarks(callback func(clientID string, data *protocol.LandmarksData)) {
	h.mu.Lock()
	h.onLandmarks = callback
	h.mu.Unlock()
}

// OnFrame sets the callback for incoming camera frames
func (h *Hub) OnFrame(callback func(clientID string, frame *protocol.FrameData)) {
	h.mu.Lock()
	h.onFrame = callback
	h.mu.Unlock()
}

// OnStatus sets the callback for detector status updates
func (h *Hub) OnStatus(callback func(clientID string, status *protocol.StatusData)) {
	h.mu.Lock()
	h.onStatus = callback
	h.mu.Unlock()
}

// OnDisconnect sets the callback for closed connections
func (h *Hub) OnDisconnect(callback func(clientID string)) {
	h.mu.Lock()
	h.onDisconnect = callback
	h.mu.Unlock()
}

// RegisterRoutes registers the detector WebSocket endpoint on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/detector", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/detector", websocket.New(h.handleDetector))
	app.Get("/ws/detector/:id", websocket.New(h.handleDetector))
}

// handleDetector handles one client connection
func (h *Hub) handleDetector(c *websocket.Conn) {
	clientID := c.Params("id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	client := &DetectorConnection{
		ID:        clientID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	h.mu.Lock()
	h.clients[clientID] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("detector connected", "client", clientID, "clients", count)

	defer func() {
		h.mu.Lock()
		if h.clients[clientID] == client {
			delete(h.clients, clientID)
		}
		count := len(h.clients)
		disconnectCb := h.onDisconnect
		h.mu.Unlock()

		h.log.Info("detector disconnected", "client", clientID, "clients", count)
		if disconnectCb != nil {
			disconnectCb(clientID)
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.log.Debug("detector read error", "client", clientID, "error", err)
			return
		}

		client.mu.Lock()
		client.LastSeen = time.Now()
		client.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(clientID, data)
	}
}

// handleMessage processes an incoming message from a detector client
func (h *Hub) handleMessage(clientID string, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.parseErrors.Add(1)
		h.log.Debug("parse error", "client", clientID, "error", err)
		return
	}

	h.mu.RLock()
	landmarksCb := h.onLandmarks
	frameCb := h.onFrame
	statusCb := h.onStatus
	h.mu.RUnlock()

	switch msg.Type {
	case protocol.TypeLandmarks:
		h.landmarksReceived.Add(1)
		lm, err := msg.GetLandmarksData()
		if err != nil {
			h.parseErrors.Add(1)
			h.log.Debug("bad landmarks", "client", clientID, "error", err)
			return
		}
		if landmarksCb != nil {
			landmarksCb(clientID, lm)
		}

	case protocol.TypeFrame:
		h.framesReceived.Add(1)
		if frameCb != nil {
			frame, err := msg.GetFrameData()
			if err == nil {
				frameCb(clientID, frame)
			}
		}

	case protocol.TypeStatus:
		if statusCb != nil {
			status, err := msg.GetStatusData()
			if err == nil {
				statusCb(clientID, status)
			}
		}

	case protocol.TypePing:
		var id string
		if ping, err := msg.GetPingData(); err == nil {
			id = ping.ID
		}
		if err := h.SendPong(clientID, id, msg.Timestamp); err != nil {
			h.log.Debug("pong failed", "client", clientID, "error", err)
		}

	default:
		h.log.Debug("ignoring message", "client", clientID, "type", msg.Type)
	}
}

// SendPong sends a pong response to a client
func (h *Hub) SendPong(clientID, pingID string, pingTS int64) error {
	msg, err := protocol.NewPongMessage(pingID, pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return h.Send(clientID, msg)
}

// Send sends a message to a specific client
func (h *Hub) Send(clientID string, msg *protocol.Message) error {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "detector not connected")
	}

	h.messagesSent.Add(1)
	return client.Send(msg)
}

// Broadcast sends a message to all connected clients, e.g. score updates
// shown on the phone.
func (h *Hub) Broadcast(msg *protocol.Message) {
	for _, client := range h.GetClients() {
		h.messagesSent.Add(1)
		if err := client.Send(msg); err != nil {
			h.log.Debug("broadcast error", "client", client.ID, "error", err)
		}
	}
}

// GetClient returns a connection by ID
func (h *Hub) GetClient(clientID string) *DetectorConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[clientID]
}

// GetClients returns all connected clients
func (h *Hub) GetClients() []*DetectorConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*DetectorConnection, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats contains hub statistics
type Stats struct {
	ClientCount       int    `json:"client_count"`
	MessagesReceived  uint64 `json:"messages_received"`
	MessagesSent      uint64 `json:"messages_sent"`
	LandmarksReceived uint64 `json:"landmarks_received"`
	FramesReceived    uint64 `json:"frames_received"`
	ParseErrors       uint64 `json:"parse_errors"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		ClientCount:       h.ClientCount(),
		MessagesReceived:  h.messagesReceived.Load(),
		MessagesSent:      h.messagesSent.Load(),
		LandmarksReceived: h.landmarksReceived.Load(),
		FramesReceived:    h.framesReceived.Load(),
		ParseErrors:       h.parseErrors.Load(),
	}
}

// ClientInfo contains info about a connected client
type ClientInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetClientInfos returns info about all connected clients
func (h *Hub) GetClientInfos() []ClientInfo {
	clients := h.GetClients()
	infos := make([]ClientInfo, 0, len(clients))
	for _, c := range clients {
		c.mu.Lock()
		infos = append(infos, ClientInfo{
			ID:        c.ID,
			Connected: c.Connected,
			LastSeen:  c.LastSeen,
		})
		c.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for detector management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	detectors := api.Group("/detectors")

	detectors.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"detectors": h.GetClientInfos(),
			"count":     h.ClientCount(),
		})
	})

	detectors.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}

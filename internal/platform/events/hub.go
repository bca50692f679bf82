package events

import (
	"encoding/json"
	"net/http"
	"sync"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthhub/portal/internal/platform/auth"
)

// Hub fans events out to connected websocket clients. Each connection is
// scoped to the authenticated patient and only receives that patient's
// events, so a cart badge can refresh the moment the cart changes.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{} // patientID -> connections
	logger  zerolog.Logger
}

type client struct {
	patientID string
	send      chan []byte
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger,
	}
}

// Attach subscribes the hub to the bus topics it forwards.
func (h *Hub) Attach(bus *Bus) {
	bus.Subscribe(TopicCartUpdated, h.forward)
}

func (h *Hub) forward(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", event.Topic).Msg("marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[event.PatientID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full; skip to avoid blocking the publisher.
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.patientID] == nil {
		h.clients[c.patientID] = make(map[*client]struct{})
	}
	h.clients[c.patientID][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.patientID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.patientID)
	}
	close(c.send)
}

// ConnectionCount returns the number of open connections for a patient.
func (h *Hub) ConnectionCount(patientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[patientID])
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the HTTP surface; tighten in production.
	},
}

// RegisterRoutes registers the websocket endpoint on the provided group.
func (h *Hub) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", h.HandleConnect)
}

// HandleConnect upgrades the request to a websocket scoped to the
// authenticated patient and starts the read/write pumps.
func (h *Hub) HandleConnect(c echo.Context) error {
	patientID := auth.UserIDFromContext(c.Request().Context())
	if patientID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{patientID: patientID, send: make(chan []byte, 64)}
	h.register(cl)

	go h.writePump(cl, ws)
	go h.readPump(cl, ws)

	return nil
}

// readPump drains inbound frames; the portal protocol is push-only, so
// anything the client sends is discarded. A read error ends the connection.
func (h *Hub) readPump(cl *client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.unregister(cl)
		ws.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) writePump(cl *client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range cl.send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}

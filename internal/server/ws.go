package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types sent on /api/events.
const (
	EventStatus      = "status"
	EventCalibration = "calibration"
	EventConfig      = "config"
)

const (
	// statusInterval paces status snapshots at about 15 per second.
	statusInterval = 66 * time.Millisecond
	writeTimeout   = time.Second
	clientBuffer   = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is one telemetry message.
type Event struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// EventsHandler fans telemetry out to websocket clients. Slow clients miss
// messages rather than stall the sender.
type EventsHandler struct {
	source  func() any
	clients map[*client]struct{}
	mu      sync.RWMutex
}

// NewEventsHandler creates a hub. source, when set, is polled for status
// snapshots while clients are connected.
func NewEventsHandler(source func() any) *EventsHandler {
	return &EventsHandler{
		source:  source,
		clients: make(map[*client]struct{}),
	}
}

// Run broadcasts status snapshots until ctx is done.
func (h *EventsHandler) Run(ctx context.Context) {
	if h.source == nil {
		return
	}
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if h.Clients() == 0 {
			continue
		}
		h.Publish(EventStatus, h.source())
	}
}

// Publish sends an event to every connected client.
func (h *EventsHandler) Publish(typ string, data any) {
	msg, err := json.Marshal(Event{Type: typ, Data: data, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		log.Printf("events: encode %s: %v", typ, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range c.send {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// Unblock the read loop below.
				conn.Close()
				return
			}
		}
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	<-done
}

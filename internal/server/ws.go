package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/wakegate/internal/gesture"
)

// Event feed timing.
const (
	// MinEventInterval limits how often snapshots are sent to one client (~15 per second).
	MinEventInterval = 66 * time.Millisecond
	writeTimeout     = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler broadcasts sequencer snapshots via WebSocket.
type EventsHandler struct {
	hub *Hub
}

// NewEventsHandler creates a new EventsHandler reading from hub.
func NewEventsHandler(hub *Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.hub.Subscribe(false)
	defer unsubscribe()

	// Detect client disconnects by reading until an error.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var (
		last      time.Time
		lastState gesture.State
	)
	if u, ok := h.hub.Latest(); ok {
		if err := writeSnapshot(conn, u); err != nil {
			return
		}
		last, lastState = time.Now(), u.Snapshot.State
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case u := <-updates:
			// State changes and the final snapshot are never throttled.
			if time.Since(last) < MinEventInterval && u.Snapshot.State == lastState && !u.Snapshot.Terminate {
				continue
			}
			if err := writeSnapshot(conn, u); err != nil {
				return
			}
			last, lastState = time.Now(), u.Snapshot.State
		}
	}
}

func writeSnapshot(conn *websocket.Conn, u Update) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(u.Snapshot)
}

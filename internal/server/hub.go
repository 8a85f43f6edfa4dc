package server

import (
	"sync"

	"github.com/ayusman/wakegate/internal/gesture"
)

// Update is one published frame result.
type Update struct {
	Snapshot gesture.Snapshot
	// JPEG is the encoded display frame, nil when no stream client was
	// connected at publish time.
	JPEG []byte
}

// Hub holds the latest published update and fans it out to subscribers.
// The frame loop publishes; HTTP handlers only read copies.
type Hub struct {
	mu          sync.RWMutex
	latest      Update
	published   bool
	subscribers map[chan Update]bool
	streams     int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Update]bool),
	}
}

// Publish stores the update and delivers it to every subscriber. Slow
// subscribers miss intermediate updates instead of blocking the caller.
func (h *Hub) Publish(snap gesture.Snapshot, jpeg []byte) {
	u := Update{Snapshot: snap, JPEG: jpeg}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = u
	h.published = true

	for ch := range h.subscribers {
		select {
		case ch <- u:
		default:
			// Replace the stale pending update.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}

// Latest returns the most recent update.
func (h *Hub) Latest() (Update, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.published
}

// Subscribe registers a subscriber. stream marks subscribers that need
// encoded frames. The returned function unsubscribes.
func (h *Hub) Subscribe(stream bool) (<-chan Update, func()) {
	ch := make(chan Update, 1)

	h.mu.Lock()
	h.subscribers[ch] = stream
	if stream {
		h.streams++
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if h.subscribers[ch] {
				h.streams--
			}
			delete(h.subscribers, ch)
			h.mu.Unlock()
		})
	}
}

// WantsFrames reports whether any stream client is connected.
func (h *Hub) WantsFrames() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.streams > 0
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

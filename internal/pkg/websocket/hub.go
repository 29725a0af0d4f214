// Package websocket serves the live publish feed. Every authenticated client receives
// every event; clients never send anything but control frames.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Feed event types
const (
	TypeAnnouncementPublished = "announcement.published"
	TypeDevotionalPublished   = "devotional.published"
	TypeEventPublished        = "event.published"
)

// Event is one feed item as sent to clients
type Event struct {
	Type  string    `json:"type"`
	ID    int64     `json:"id"`
	Title string    `json:"title"`
	At    time.Time `json:"at"`
}

// Hub maintains the set of active clients and broadcasts feed events to them
type Hub struct {
	clients map[*Client]struct{}

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// guards clients for readers outside the run loop
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and broadcasts until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug().Int64("profileID", client.profileID).Msg("Feed client registered")

		case client := <-h.unregister:
			h.remove(client)

		case data := <-h.broadcast:
			h.fanOut(data)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Debug().Int64("profileID", client.profileID).Msg("Feed client unregistered")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) fanOut(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// slow client, drop it
			delete(h.clients, client)
			close(client.send)
			h.logger.Warn().Int64("profileID", client.profileID).Msg("Dropped slow feed client")
		}
	}
}

// Publish queues ev for every connected client. It never blocks once the hub has stopped.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("type", ev.Type).Msg("Failed to marshal feed event")
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Package hub streams resolution events to operator clients over SSE.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"waypoint/internal/service"
)

// KeepAlive is the interval between SSE comment frames
var KeepAlive = 30 * time.Second

// Client represents a connected SSE client
type Client struct {
	id     uint64
	events chan []byte
}

// Hub manages SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	nextID  atomic.Uint64

	// last is replayed to new clients so they start with current state
	last []byte
}

// New creates a new Hub
func New() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// Run forwards events from bus to connected clients until ctx is done
func (h *Hub) Run(ctx context.Context, bus *service.EventBus) {
	events := make(chan service.Event, 100)
	bus.Subscribe(events)
	defer bus.Unsubscribe(events)

	for {
		select {
		case ev := <-events:
			h.Broadcast(ev)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(ev service.Event) {
	msg, err := frame(ev)
	if err != nil {
		log.Printf("Hub: failed to marshal %s event: %v", ev.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Type == service.EventResolved {
		h.last = msg
	}
	for client := range h.clients {
		select {
		case client.events <- msg:
		default:
			// Client is slow, skip this message
			log.Printf("Hub: SSE client %d is slow, skipping %s", client.id, ev.Type)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add() *Client {
	c := &Client{
		id:     h.nextID.Add(1),
		events: make(chan []byte, 64),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.events <- h.last
	}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("Hub: SSE client %d connected (total: %d)", c.id, n)
	return c
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.events)
	}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("Hub: SSE client %d disconnected (total: %d)", c.id, n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.events)
	}
}

func frame(ev service.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data)), nil
}

// ServeHTTP handles SSE connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.add()
	defer h.remove(client)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

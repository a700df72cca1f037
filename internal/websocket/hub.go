// Package websocket broadcasts run progress to connected browser clients.
// The hub fans every published event out to all clients; slow clients are
// dropped rather than allowed to stall a run.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Message type constants.
const (
	TypeConnection  = "connection"
	TypeRunStatus   = "run:status"
	TypeRunProgress = "run:progress"
	TypeRunComplete = "run:complete"
	TypeRunError    = "run:error"
)

// Event is a broadcast message envelope.
type Event struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ProgressData carries merge progress for a run.
type ProgressData struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	running bool
	quit    chan struct{}

	logger *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start launches the hub loop.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop shuts the hub down and disconnects all clients.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client registered",
				slog.String("client_id", client.id),
				slog.Int("total_clients", len(h.clients)))
			client.enqueue(mustMarshal(Event{
				Type:      TypeConnection,
				Data:      map[string]string{"status": "connected", "client_id": client.id},
				Timestamp: time.Now().Format(time.RFC3339),
			}))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("client unregistered",
					slog.String("client_id", client.id),
					slog.Int("total_clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// buffer full; drop the client
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Broadcast publishes an event to every connected client.
func (h *Hub) Broadcast(eventType, runID string, data interface{}) {
	payload := mustMarshal(Event{
		Type:      eventType,
		RunID:     runID,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast buffer full, dropping event", slog.String("type", eventType))
	}
}

// BroadcastProgress publishes a merge progress update for a run.
func (h *Hub) BroadcastProgress(runID string, current, total int, message string) {
	h.Broadcast(TypeRunProgress, runID, ProgressData{Current: current, Total: total, Message: message})
}

func mustMarshal(event Event) []byte {
	payload, err := json.Marshal(event)
	if err != nil {
		return []byte(`{"type":"error"}`)
	}
	return payload
}

package ws

import (
	"encoding/json"
	"sync"

	"tabletalk/backend/internal/game"
	"tabletalk/backend/internal/models"
	"tabletalk/backend/pkg/logger"
)

// Envelope is the wire format in both directions: an event name plus its
// JSON payload.
type Envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

type outEnvelope struct {
	Type    string `json:"type"`
	Content any    `json:"content,omitempty"`
}

// Hub tracks every connected client and routes lobby-level events. Table
// routing happens on the client once it has joined a room.
type Hub struct {
	manager *game.Manager
	log     *logger.Logger

	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]bool
}

// NewHub builds a hub over the table manager.
func NewHub(manager *game.Manager, log *logger.Logger) *Hub {
	return &Hub{
		manager:    manager,
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run processes client registration until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			connectionsActive.Inc()
			h.log.Info("client connected", "conn_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.shutdown()
				connectionsActive.Dec()
				h.log.Info("client disconnected", "conn_id", client.id)
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastTableList pushes the current lobby listing to every connected
// client, joined to a table or not.
func (h *Hub) BroadcastTableList() {
	list := h.manager.List()
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Send(models.EventTableList, list)
	}
}

// Package ws pushes live session state to browsers over websockets and
// accepts chat and roll input from them.
package ws

import (
	"context"
	"sync"

	"text-rpg/backend/internal/models"
	"text-rpg/backend/pkg/logger"
	pkgws "text-rpg/backend/pkg/ws"
)

// frame is queued to the hub. A frame with a client goes to that client only;
// otherwise it goes to every client of the session.
type frame struct {
	sessionID string
	client    *Client
	data      []byte
}

// Hub tracks the websocket clients of every session and fans state out to them
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan frame
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	log        *logger.Logger

	mu    sync.RWMutex
	count int
}

// NewHub creates a hub; call Run to start it
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan frame, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.setCount(0)
			return

		case client := <-h.register:
			clients, ok := h.clients[client.sessionID]
			if !ok {
				clients = make(map[*Client]bool)
				h.clients[client.sessionID] = clients
			}
			clients[client] = true
			h.setCount(h.count + 1)
			h.log.Info("Client registered", "client_id", client.id, "session_id", client.sessionID)

		case client := <-h.unregister:
			h.remove(client)

		case f := <-h.broadcast:
			if f.client != nil {
				if h.clients[f.sessionID][f.client] {
					h.deliver(f.client, f.data)
				}
				continue
			}
			for client := range h.clients[f.sessionID] {
				h.deliver(client, f.data)
			}
		}
	}
}

// deliver hands data to a client's write pump. Only Run calls it, so sends
// never race with the close in remove.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.log.Warn("Client removed due to blocked channel", "client_id", client.id)
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	clients := h.clients[client.sessionID]
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.sessionID)
	}
	close(client.send)
	h.setCount(h.count - 1)
	h.log.Info("Client unregistered", "client_id", client.id, "session_id", client.sessionID)
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// ActiveConnections returns the number of connected clients
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// PublishState sends a state snapshot to every client of a session. It has
// the shape of session.StateFunc.
func (h *Hub) PublishState(sessionID string, state models.ConversationState) {
	data, err := pkgws.Encode(pkgws.TypeState, state)
	if err != nil {
		h.log.LogError(err, "Failed to encode state", "session_id", sessionID)
		return
	}

	h.enqueue(frame{sessionID: sessionID, data: data})
}

// sendTo queues data for one client
func (h *Hub) sendTo(c *Client, data []byte) {
	h.enqueue(frame{sessionID: c.sessionID, client: c, data: data})
}

func (h *Hub) enqueue(f frame) {
	select {
	case h.broadcast <- f:
	case <-h.done:
	}
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

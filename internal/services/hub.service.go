package services

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	MessageNotice = "notice"
	MessagePing   = "ping"
	MessagePong   = "pong"
)

// LiveMessage is pushed to open dashboards over the live-reload socket
type LiveMessage struct {
	Type      string    `json:"type"` // "notice", "ping", "pong"
	Timestamp time.Time `json:"timestamp"`
}

// ClientConnection represents a connected dashboard
type ClientConnection struct {
	ID   string
	Conn *websocket.Conn
	Send chan LiveMessage
}

// Hub fans live-reload messages out to every connected dashboard
type Hub struct {
	clients    map[string]*ClientConnection
	broadcast  chan LiveMessage
	register   chan *ClientConnection
	unregister chan string
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan LiveMessage, 16),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run manages the hub's event loop until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for id, client := range h.clients {
			delete(h.clients, id)
			close(client.Send)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("live client connected", zap.String("client", client.ID), zap.Int("total", total))

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("live client disconnected", zap.String("client", clientID), zap.Int("total", total))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// slow client, it will catch up on the next refresh
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *ClientConnection) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.done:
	}
}

// Broadcast queues msg for every client; it drops msg if the queue is full
func (h *Hub) Broadcast(msg LiveMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("live broadcast queue full, dropping message", zap.String("type", msg.Type))
	}
}

// Reply queues msg for one client if it is still registered. Sends happen
// under the read lock so they never race a close of client.Send.
func (h *Hub) Reply(clientID string, msg LiveMessage) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[clientID]
	if !ok {
		return false
	}
	select {
	case client.Send <- msg:
		return true
	default:
		return false
	}
}

// NotifyNotice tells every dashboard that the notice log changed
func (h *Hub) NotifyNotice() {
	h.Broadcast(LiveMessage{Type: MessageNotice, Timestamp: time.Now()})
}

// ClientCount returns the number of connected dashboards
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

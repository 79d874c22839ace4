package controllers

import (
	"time"

	"wallboard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// LiveController upgrades dashboards to the live-reload socket
type LiveController struct {
	hub      *services.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewLiveController(hub *services.Hub, log *zap.Logger) *LiveController {
	if log == nil {
		log = zap.NewNop()
	}
	return &LiveController{
		hub: hub,
		// nil CheckOrigin enforces same-origin
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// HandleWebSocket handles incoming WebSocket connections
func (lc *LiveController) HandleWebSocket(c *gin.Context) {
	ws, err := lc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		lc.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &services.ClientConnection{
		ID:   uuid.NewString(),
		Conn: ws,
		Send: make(chan services.LiveMessage, 16),
	}
	lc.hub.Register(client)

	go lc.readPump(client)
	go lc.writePump(client)
}

// readPump reads messages from the WebSocket client
func (lc *LiveController) readPump(client *services.ClientConnection) {
	defer func() {
		lc.hub.Unregister(client.ID)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(4096)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg services.LiveMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				lc.log.Debug("websocket read", zap.String("client", client.ID), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case services.MessagePing:
			lc.hub.Reply(client.ID, services.LiveMessage{Type: services.MessagePong, Timestamp: time.Now()})
		default:
			lc.log.Debug("unknown websocket message", zap.String("type", msg.Type))
		}
	}
}

// writePump writes messages to the WebSocket client
func (lc *LiveController) writePump(client *services.ClientConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

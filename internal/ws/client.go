package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"text-rpg/backend/internal/conversation"
	"text-rpg/backend/internal/models"
	"text-rpg/backend/internal/session"
	"text-rpg/backend/pkg/logger"
	pkgws "text-rpg/backend/pkg/ws"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Turns outlive a dropped connection up to this bound
	turnTimeout = 2 * time.Minute
)

// Sessions looks up live sessions
type Sessions interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
}

// Client is one websocket connection attached to a session
type Client struct {
	id        string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	sessions  Sessions
	log       *logger.Logger
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.LogError(err, "Unexpected websocket close")
			}
			return
		}

		var msg pkgws.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("INVALID_MESSAGE", "Message must be a JSON object")
			continue
		}

		go c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg pkgws.Message) {
	switch msg.Type {
	case pkgws.TypeChat:
		text, ok := msg.ChatText()
		if !ok {
			c.sendError("INVALID_MESSAGE", "Chat content must be text")
			return
		}
		c.withController(func(ctx context.Context, ctrl *conversation.Controller) error {
			return ctrl.SendMessage(ctx, text)
		})

	case pkgws.TypeRoll:
		var roll pkgws.RollResult
		if err := json.Unmarshal(msg.Content, &roll); err != nil {
			c.sendError("INVALID_MESSAGE", "Roll content must be an object")
			return
		}
		die := models.Die(roll.Die)
		if !die.Valid() {
			c.sendError("INVALID_DIE", "Die must be d20 or d6")
			return
		}
		c.withController(func(ctx context.Context, ctrl *conversation.Controller) error {
			return ctrl.SendRollResult(ctx, die, roll.Result, roll.Modifier, roll.Reason)
		})

	case pkgws.TypePing:
		c.sendFrame(pkgws.TypePong, nil)

	default:
		c.sendError("UNKNOWN_TYPE", "Unknown message type: "+msg.Type)
	}
}

func (c *Client) withController(fn func(ctx context.Context, ctrl *conversation.Controller) error) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	s, err := c.sessions.Get(ctx, c.sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.sendError("SESSION_NOT_FOUND", "Session not found")
		} else {
			c.log.LogError(err, "Failed to load session", "session_id", c.sessionID)
			c.sendError("SESSION_UNAVAILABLE", "Session could not be loaded")
		}
		return
	}

	switch err := fn(ctx, s.Controller); {
	case err == nil:
	case errors.Is(err, conversation.ErrTurnInFlight):
		c.sendError("TURN_IN_FLIGHT", "A turn is already in progress")
	case errors.Is(err, conversation.ErrEmptyMessage):
		c.sendError("EMPTY_MESSAGE", "Message content is required")
	default:
		c.log.LogError(err, "Turn failed", "session_id", c.sessionID)
		c.sendError("TURN_FAILED", "The turn could not be completed")
	}
}

func (c *Client) sendError(code, message string) {
	c.sendFrame(pkgws.TypeError, pkgws.ErrorContent{Code: code, Message: message})
}

// sendFrame queues a frame for this client only. The hub drops it once the
// client has been unregistered.
func (c *Client) sendFrame(messageType string, content interface{}) {
	data, err := pkgws.Encode(messageType, content)
	if err != nil {
		c.log.LogError(err, "Failed to encode frame", "type", messageType)
		return
	}
	c.hub.sendTo(c, data)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Send any queued messages as separate frames
			n := len(c.send)
			for i := 0; i < n; i++ {
				extra, ok := <-c.send
				if !ok {
					return
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, extra); err != nil {
					return
				}
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

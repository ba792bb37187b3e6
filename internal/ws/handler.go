package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"text-rpg/backend/internal/session"
	apperrors "text-rpg/backend/pkg/errors"
	"text-rpg/backend/pkg/jwt"
	"text-rpg/backend/pkg/logger"
	pkgws "text-rpg/backend/pkg/ws"
)

// Handler upgrades /ws requests into session clients
type Handler struct {
	hub      *Hub
	sessions Sessions
	tokens   *jwt.Service
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHandler creates the websocket endpoint. An origin list containing "*"
// accepts every origin.
func NewHandler(hub *Hub, sessions Sessions, tokens *jwt.Service, allowedOrigins []string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		hub:      hub,
		sessions: sessions,
		tokens:   tokens,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin:      originChecker(allowedOrigins),
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

// ServeWs handles GET /ws?sessionId=&token=
func (h *Handler) ServeWs(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		_ = c.Error(apperrors.NewBadRequestError("SESSION_ID_REQUIRED", "sessionId is required"))
		return
	}

	if _, err := h.tokens.ValidateForSession(c.Query("token"), sessionID); err != nil {
		_ = c.Error(apperrors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired session token"))
		return
	}

	s, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			_ = c.Error(apperrors.NewNotFoundError("SESSION_NOT_FOUND", "Session not found"))
			return
		}
		_ = c.Error(err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.LogError(err, "Error upgrading connection", "session_id", sessionID)
		return
	}
	conn.EnableWriteCompression(true)

	client := &Client{
		id:        uuid.NewString(),
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, 256),
		hub:       h.hub,
		sessions:  h.sessions,
		log:       h.log.WithSessionID(sessionID),
	}

	if !h.hub.registerClient(client) {
		conn.Close()
		return
	}

	// The new client starts from the current state
	client.sendFrame(pkgws.TypeState, s.Controller.State())

	go client.writePump()
	go client.readPump()
}

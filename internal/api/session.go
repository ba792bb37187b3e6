package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"text-rpg/backend/internal/models"
	"text-rpg/backend/internal/session"
	"text-rpg/backend/internal/world"
	apperrors "text-rpg/backend/pkg/errors"
	"text-rpg/backend/pkg/jwt"
	"text-rpg/backend/pkg/logger"
)

const (
	defaultTranscriptLimit = 50
	maxTranscriptLimit     = 500
	maxNameLength          = 64
)

// SessionHandler serves the play session routes
type SessionHandler struct {
	sessions *session.Manager
	tokens   *jwt.Service
	logger   *logger.Logger
}

// NewSessionHandler creates a session handler
func NewSessionHandler(sessions *session.Manager, tokens *jwt.Service, logger *logger.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, tokens: tokens, logger: logger}
}

// CreateSessionResponse is returned when a session starts
type CreateSessionResponse struct {
	SessionID string                   `json:"sessionId"`
	Token     string                   `json:"token"`
	State     models.ConversationState `json:"state"`
	Player    models.PlayerCharacter   `json:"player"`
}

// SessionResponse is the full view of a session
type SessionResponse struct {
	SessionID string                   `json:"sessionId"`
	State     models.ConversationState `json:"state"`
	Player    models.PlayerCharacter   `json:"player"`
}

// TranscriptResponse is a page of recorded messages
type TranscriptResponse struct {
	Messages []models.Message `json:"messages"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type rollRequest struct {
	Die      models.Die `json:"die"`
	Result   int        `json:"result"`
	Modifier *int       `json:"modifier"`
	Reason   string     `json:"reason"`
}

type contextRequest struct {
	Context world.ContextField `json:"context"`
}

type nameRequest struct {
	Name string `json:"name"`
}

// Create starts a new session and issues its token
func (h *SessionHandler) Create(c *gin.Context) {
	s, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	token, err := h.tokens.GenerateToken(s.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, CreateSessionResponse{
		SessionID: s.ID,
		Token:     token,
		State:     s.Controller.State(),
		Player:    s.Controller.Player().Player(),
	})
}

// Get returns the session state and player
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.view(s))
}

// Delete retires a session
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// SendMessage runs one turn with the player's input
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", "Invalid request format"))
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Controller.SendMessage(c.Request.Context(), req.Content); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, h.view(s))
}

// SendRoll reports a dice roll result as the player's next message
func (h *SessionHandler) SendRoll(c *gin.Context) {
	var req rollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", "Invalid request format"))
		return
	}
	if !req.Die.Valid() {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_DIE", "Die must be d20 or d6"))
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Controller.SendRollResult(c.Request.Context(), req.Die, req.Result, req.Modifier, req.Reason); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, h.view(s))
}

// SetContext replaces the situational context
func (h *SessionHandler) SetContext(c *gin.Context) {
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_CONTEXT", "Context must be a string or a game context object"))
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}
	if gc, isGame := req.Context.Context.(world.GameContext); isGame {
		s.Controller.SetGameContext(gc)
	} else {
		s.Controller.SetContext(req.Context.Text())
	}
	c.JSON(http.StatusOK, h.view(s))
}

// ClearMessages empties the transcript
func (h *SessionHandler) ClearMessages(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.ClearMessages()
	c.JSON(http.StatusOK, h.view(s))
}

// GetPlayer returns the character sheet
func (h *SessionHandler) GetPlayer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Controller.Player().Player())
}

// SetPlayerName names the character, replacing any previous name
func (h *SessionHandler) SetPlayerName(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", "Invalid request format"))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_NAME", "Name must be between 1 and 64 characters"))
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.Player().SetName(name)
	h.sessions.Save(c.Request.Context(), s)
	c.JSON(http.StatusOK, s.Controller.Player().Player())
}

// ResetPlayer reloads the character sheet from the fixture
func (h *SessionHandler) ResetPlayer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Controller.Player().Reset()
	h.sessions.Save(c.Request.Context(), s)
	c.JSON(http.StatusOK, s.Controller.Player().Player())
}

// Transcript pages through every message recorded for the session
func (h *SessionHandler) Transcript(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultTranscriptLimit)
	if err != nil || limit < 1 || limit > maxTranscriptLimit {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_LIMIT", "limit must be between 1 and 500"))
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_OFFSET", "offset must not be negative"))
		return
	}

	if _, ok := h.session(c); !ok {
		return
	}

	messages, err := h.sessions.Transcripts().List(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, TranscriptResponse{Messages: messages, Limit: limit, Offset: offset})
}

func (h *SessionHandler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(toAppError(err))
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) view(s *session.Session) SessionResponse {
	return SessionResponse{
		SessionID: s.ID,
		State:     s.Controller.State(),
		Player:    s.Controller.Player().Player(),
	}
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// RegisterRoutes mounts the session routes. auth guards every route that
// names an existing session.
func (h *SessionHandler) RegisterRoutes(api *gin.RouterGroup, auth gin.HandlerFunc) {
	api.POST("/sessions", h.Create)

	s := api.Group("/sessions/:id", auth)
	{
		s.GET("", h.Get)
		s.DELETE("", h.Delete)
		s.POST("/messages", h.SendMessage)
		s.DELETE("/messages", h.ClearMessages)
		s.POST("/rolls", h.SendRoll)
		s.PUT("/context", h.SetContext)
		s.GET("/player", h.GetPlayer)
		s.PUT("/player/name", h.SetPlayerName)
		s.POST("/player/reset", h.ResetPlayer)
		s.GET("/transcript", h.Transcript)
	}
}

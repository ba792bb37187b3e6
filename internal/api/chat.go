package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"text-rpg/backend/internal/conversation"
	"text-rpg/backend/internal/models"
	"text-rpg/backend/internal/world"
	"text-rpg/backend/pkg/logger"
)

// ChatHandler serves POST /api/chat, the stateless completion endpoint
type ChatHandler struct {
	backend conversation.Backend
	logger  *logger.Logger
}

// NewChatHandler creates a chat handler
func NewChatHandler(backend conversation.Backend, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{backend: backend, logger: logger}
}

type chatRequestBody struct {
	Messages     json.RawMessage    `json:"messages"`
	Context      world.ContextField `json:"context"`
	PlayerInfo   string             `json:"playerInfo"`
	IsAboveTable bool               `json:"isAboveTable"`
}

// Chat answers one turn. Errors use the flat {"error": "..."} body that
// browser clients of this route expect.
func (h *ChatHandler) Chat(c *gin.Context) {
	var body chatRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("Error binding JSON for chat", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	raw := bytes.TrimSpace(body.Messages)
	if len(raw) == 0 || raw[0] != '[' {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Messages array is required"})
		return
	}
	var messages []models.WireMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		h.logger.Warn("Malformed messages array", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	resp, err := h.backend.Complete(c.Request.Context(), models.ChatRequest{
		Messages:     messages,
		Context:      body.Context.Text(),
		PlayerInfo:   body.PlayerInfo,
		IsAboveTable: body.IsAboveTable,
	})
	if err != nil {
		h.logger.Error("Chat API error", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Package ai is the boundary to the language model. Service answers
// /api/chat requests in process; HTTPClient calls a remote /api/chat.
package ai

import (
	"context"
	"errors"
	"fmt"

	"text-rpg/backend/internal/models"
)

// ErrEmptyCompletion is returned when a provider answers without any choices
var ErrEmptyCompletion = errors.New("no response generated")

// Completion is a provider's answer with its token usage
type Completion struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider generates a completion for a full message list, system prompt first
type Provider interface {
	Name() string
	Generate(ctx context.Context, messages []models.WireMessage) (*Completion, error)
}

// StatusError is a non-2xx answer from an HTTP model endpoint
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: %d: %s", e.StatusCode, e.Body)
}

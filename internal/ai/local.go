package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"text-rpg/backend/internal/models"
)

// LocalProvider calls a self-hosted model server exposing POST /generate
type LocalProvider struct {
	client  *http.Client
	baseURL string
	model   string
}

// NewLocalProvider creates a provider for the model server at baseURL
func NewLocalProvider(client *http.Client, baseURL, model string) (*LocalProvider, error) {
	if baseURL == "" {
		return nil, errors.New("local model URL is required when USE_LOCAL_MODEL is true")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if model == "" {
		model = "local"
	}
	return &LocalProvider{client: client, baseURL: strings.TrimRight(baseURL, "/"), model: model}, nil
}

// Name implements Provider
func (p *LocalProvider) Name() string { return "local" }

type localModelRequest struct {
	SystemPrompt string               `json:"system_prompt"`
	History      []models.WireMessage `json:"history"`
	Query        string               `json:"query"`
}

type localModelResponse struct {
	Response     string `json:"response"`
	Error        string `json:"error"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Generate implements Provider. The leading system message becomes the system
// prompt and the trailing user message the query.
func (p *LocalProvider) Generate(ctx context.Context, messages []models.WireMessage) (*Completion, error) {
	var payload localModelRequest
	rest := messages
	if len(rest) > 0 && rest[0].Role == models.RoleSystem {
		payload.SystemPrompt = rest[0].Content
		rest = rest[1:]
	}
	if n := len(rest); n > 0 && rest[n-1].Role == models.RoleUser {
		payload.Query = rest[n-1].Content
		rest = rest[:n-1]
	}
	payload.History = append([]models.WireMessage{}, rest...)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making API request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}

	var out localModelResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("local API error: %s", out.Error)
	}

	return &Completion{
		Content:      out.Response,
		Model:        p.model,
		InputTokens:  out.InputTokens,
		OutputTokens: out.OutputTokens,
	}, nil
}

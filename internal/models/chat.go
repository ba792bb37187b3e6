package models

// WireMessage is a transcript entry as sent to the chat backend
type WireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body posted to the chat backend for one turn
type ChatRequest struct {
	Messages     []WireMessage `json:"messages"`
	Context      string        `json:"context"`
	PlayerInfo   string        `json:"playerInfo,omitempty"`
	IsAboveTable bool          `json:"isAboveTable,omitempty"`
}

// DebugInfo is the usage metadata reported by the backend for a completion
type DebugInfo struct {
	Model        string `json:"model"`
	InputTokens  int    `json:"inputTokens"`
	OutputTokens int    `json:"outputTokens"`
	LatencyMs    int64  `json:"latencyMs"`
}

// ChatResponse is the backend's answer for one turn. Message is the raw model
// completion and is expected, but not guaranteed, to be JSON.
type ChatResponse struct {
	Message  string     `json:"message"`
	Metadata *DebugInfo `json:"metadata"`
}

// ChatTurnResult is the decoded form of a raw completion. It is produced by the
// response parser and consumed immediately by the turn controller.
type ChatTurnResult struct {
	Segments         []MessageSegment `json:"segments"`
	IsAboveTable     bool             `json:"isAboveTable"`
	InventoryChanges *InventoryChange `json:"inventoryChanges,omitempty"`
	PlayerUpdates    *PlayerUpdate    `json:"playerUpdates,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// ConversationState is everything a client needs to render a session
type ConversationState struct {
	Messages        []Message  `json:"messages"`
	Context         string     `json:"context"`
	SystemPrompt    string     `json:"systemPrompt"`
	IsLoading       bool       `json:"isLoading"`
	DebugInfo       *DebugInfo `json:"debugInfo"`
	LastRawResponse *string    `json:"lastRawResponse"`
	ParseError      *string    `json:"parseError"`
	Error           *string    `json:"error"`
}

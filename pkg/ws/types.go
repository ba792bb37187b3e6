// Package ws defines the JSON envelopes exchanged over the session websocket.
package ws

import (
	"encoding/json"
)

// Inbound message types
const (
	TypeChat = "chat"
	TypeRoll = "roll"
	TypePing = "ping"
)

// Outbound message types
const (
	TypeState = "state"
	TypeError = "error"
	TypePong  = "pong"
)

// Message is the envelope of every websocket frame
type Message struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// RollResult is the content of a roll message
type RollResult struct {
	Die      string `json:"die"`
	Result   int    `json:"result"`
	Modifier *int   `json:"modifier,omitempty"`
	Reason   string `json:"reason"`
}

// ErrorContent is the content of an error message
type ErrorContent struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Encode builds a frame from a type and any JSON-encodable content
func Encode(messageType string, content interface{}) ([]byte, error) {
	msg := Message{Type: messageType}
	if content != nil {
		raw, err := json.Marshal(content)
		if err != nil {
			return nil, err
		}
		msg.Content = raw
	}
	return json.Marshal(msg)
}

// ChatText extracts the text of a chat message. Content may be a bare string
// or an object with a content field.
func (m Message) ChatText() (string, bool) {
	var text string
	if err := json.Unmarshal(m.Content, &text); err == nil {
		return text, true
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(m.Content, &obj); err == nil {
		return obj.Content, true
	}
	return "", false
}

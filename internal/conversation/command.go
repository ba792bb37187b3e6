package conversation

import (
	"fmt"
	"strings"

	"text-rpg/backend/internal/models"
)

const (
	// AboveTableMarker prefixes out-of-character messages on the wire only
	AboveTableMarker = "[ABOVE TABLE] "

	// RulesQuestionPlaceholder replaces an above-table command with no text
	RulesQuestionPlaceholder = "I have a question about the rules."
)

var aboveTablePrefixes = []string{"/abovetable", "/rules", "/ooc"}

// ParseAboveTable detects an out-of-character command prefix. It returns the
// message with the prefix stripped.
func ParseAboveTable(content string) (bool, string) {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)

	for _, prefix := range aboveTablePrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		clean := strings.TrimSpace(trimmed[len(prefix):])
		if clean == "" {
			clean = RulesQuestionPlaceholder
		}
		return true, clean
	}

	return false, content
}

// FormatRollResult renders a dice result as the user message fed back to the narrator
func FormatRollResult(die models.Die, result int, modifier *int, reason string) string {
	if modifier == nil {
		return fmt.Sprintf("[Roll: %s = %d] %s", die, result, reason)
	}
	return fmt.Sprintf("[Roll: %s + %d = %d] %s", die, *modifier, result+*modifier, reason)
}

// Window maps the last size messages to their wire form
func Window(messages []models.Message, size int) []models.WireMessage {
	start := 0
	if size > 0 && len(messages) > size {
		start = len(messages) - size
	}

	out := make([]models.WireMessage, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		content := msg.Content
		if msg.IsAboveTable {
			content = AboveTableMarker + content
		}
		out = append(out, models.WireMessage{Role: msg.Role, Content: content})
	}
	return out
}

package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"text-rpg/backend/internal/models"
)

func TestParseAboveTable(t *testing.T) {
	tests := []struct {
		input      string
		aboveTable bool
		content    string
	}{
		{"/rules what is a DC?", true, "what is a DC?"},
		{"  /AboveTable   can I flee?  ", true, "can I flee?"},
		{"/ooc", true, RulesQuestionPlaceholder},
		{"/rules   ", true, RulesQuestionPlaceholder},
		{"I open the door", false, "I open the door"},
		{"tell me the /rules", false, "tell me the /rules"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			aboveTable, content := ParseAboveTable(tt.input)
			assert.Equal(t, tt.aboveTable, aboveTable)
			assert.Equal(t, tt.content, content)
		})
	}
}

func TestWindowKeepsTailInOrder(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleAssistant, Content: "a"},
		{Role: models.RoleUser, Content: "b", IsAboveTable: true},
		{Role: models.RoleAssistant, Content: "c"},
	}

	assert.Equal(t, []models.WireMessage{
		{Role: models.RoleUser, Content: "[ABOVE TABLE] b"},
		{Role: models.RoleAssistant, Content: "c"},
	}, Window(messages, 2))

	assert.Len(t, Window(messages, 12), 3)
	assert.Equal(t, "b", messages[1].Content)
}

func TestFormatRollResult(t *testing.T) {
	mod := -2
	assert.Equal(t, "[Roll: d20 + -2 = 9] Sneak", FormatRollResult(models.D20, 11, &mod, "Sneak"))
}

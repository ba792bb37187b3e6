package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatContextDefault(t *testing.T) {
	expected := "CURRENT LOCATION: The Clearing\n" +
		"TIME: dawn\n" +
		"\n" +
		"SITUATION: " + DefaultContext.Situation + "\n" +
		"\n" +
		"KNOWN NPCS:\n" +
		"- Jonah: Curious and impulsive. Eager to explore deeper into the maze.\n" +
		"- Mara: Guarded but not hostile. Believes in strict rationing and caution.\n" +
		"\n" +
		"ACTIVE CONDITIONS:\n" +
		"- Confused\n" +
		"- No memories of before the Clearing"

	assert.Equal(t, expected, FormatContext(DefaultContext))
}

func TestFormatContextOmitsEmptySections(t *testing.T) {
	out := FormatContext(GameContext{
		Location:  "Corridor",
		TimeOfDay: Dusk,
		Situation: "The walls grind shut.",
	})

	assert.Equal(t, "CURRENT LOCATION: Corridor\nTIME: dusk\n\nSITUATION: The walls grind shut.", out)
	assert.NotContains(t, out, "NONE")
}

func TestFormatContextAllSections(t *testing.T) {
	out := FormatContext(GameContext{
		Location:     "Corridor",
		TimeOfDay:    Night,
		Situation:    "Hunted.",
		ActiveQuests: []string{"Find Eli"},
		KnownNPCs:    map[string]string{"Eli": "Missing"},
		Inventory:    []string{"Torch"},
		Conditions:   []string{"Wounded"},
	})

	assert.Contains(t, out, "\n\nACTIVE QUESTS:\n- Find Eli")
	assert.Contains(t, out, "\n\nKNOWN NPCS:\n- Eli: Missing")
	assert.Contains(t, out, "\n\nNOTABLE INVENTORY:\n- Torch")
	assert.Contains(t, out, "\n\nACTIVE CONDITIONS:\n- Wounded")
}

func TestContextFieldUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "string", input: `"CURRENT LOCATION: Here"`, expected: "CURRENT LOCATION: Here"},
		{name: "null", input: `null`, expected: ""},
		{
			name:     "object",
			input:    `{"location":"Corridor","timeOfDay":"dusk","situation":"Dark."}`,
			expected: "CURRENT LOCATION: Corridor\nTIME: dusk\n\nSITUATION: Dark.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				Context ContextField `json:"context"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"context":`+tt.input+`}`), &body))
			assert.Equal(t, tt.expected, body.Context.Text())
		})
	}
}

func TestContextFieldMissing(t *testing.T) {
	var body struct {
		Context ContextField `json:"context"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &body))
	assert.Equal(t, "", body.Context.Text())
}

func TestContextFieldRejectsNumbers(t *testing.T) {
	var body struct {
		Context ContextField `json:"context"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"context":42}`), &body))
}

func TestOpeningNarrationEndsWithMara(t *testing.T) {
	require.Len(t, OpeningNarration, 5)
	last := OpeningNarration[len(OpeningNarration)-1]
	assert.Equal(t, "Mara", last.Speaker)
}

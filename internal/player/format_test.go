package player

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"text-rpg/backend/internal/models"
)

func TestFormatForPromptNamedCharacter(t *testing.T) {
	pc := models.PlayerCharacter{
		Name:  "Kira",
		Stats: models.Stats{Strength: 2, Speed: 0, Knowledge: -1, Presence: 5},
		Traits: []models.Trait{
			{Name: "Quick", Description: "Moves fast"},
		},
		Inventory: []models.InventoryItem{
			{Name: "Rope", Description: "Fifty feet", Quantity: 1},
			{Name: "Arrow", Description: "Sharp", Quantity: 12},
		},
	}

	expected := "NAME: Kira\n" +
		"\n" +
		"STATS:\n" +
		"  Strength: +2\n" +
		"  Speed: +0\n" +
		"  Knowledge: -1\n" +
		"  Presence: +5\n" +
		"\n" +
		"TRAITS:\n" +
		"  Quick: Moves fast\n" +
		"\n" +
		"INVENTORY:\n" +
		"  - Rope: Fifty feet\n" +
		"  - Arrow (x12): Sharp"

	assert.Equal(t, expected, FormatForPrompt(pc))
}

func TestFormatForPromptUnnamedEmptyCharacter(t *testing.T) {
	out := FormatForPrompt(models.PlayerCharacter{})

	assert.Contains(t, out, "NAME: (Not yet chosen)\n  NOTE: The player has not chosen a name yet.")
	assert.Contains(t, out, `"playerUpdates": { "name": "Their Name" }`)
	assert.NotContains(t, out, "TRAITS:")
	assert.Contains(t, out, "INVENTORY:\n  (empty)")
}

func TestFormatModifier(t *testing.T) {
	assert.Equal(t, "+0", FormatModifier(0))
	assert.Equal(t, "+3", FormatModifier(3))
	assert.Equal(t, "-2", FormatModifier(-2))
}

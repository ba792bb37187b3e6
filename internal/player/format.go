package player

import (
	"fmt"
	"strconv"
	"strings"

	"text-rpg/backend/internal/models"
)

// FormatForPrompt renders the character sheet as the PLAYER CHARACTER block of
// the system prompt. Unlike the situational context, an empty inventory is
// still rendered.
func FormatForPrompt(pc models.PlayerCharacter) string {
	lines := make([]string, 0, 16)

	if pc.Name != "" {
		lines = append(lines, "NAME: "+pc.Name)
	} else {
		lines = append(lines,
			"NAME: (Not yet chosen)",
			"  NOTE: The player has not chosen a name yet. Early in the conversation,",
			"  ask them what they would like to be called. When they provide a name,",
			`  include "playerUpdates": { "name": "Their Name" } in your response.`,
		)
	}
	lines = append(lines, "")

	lines = append(lines,
		"STATS:",
		"  Strength: "+FormatModifier(pc.Stats.Strength),
		"  Speed: "+FormatModifier(pc.Stats.Speed),
		"  Knowledge: "+FormatModifier(pc.Stats.Knowledge),
		"  Presence: "+FormatModifier(pc.Stats.Presence),
		"",
	)

	if len(pc.Traits) > 0 {
		lines = append(lines, "TRAITS:")
		for _, trait := range pc.Traits {
			lines = append(lines, fmt.Sprintf("  %s: %s", trait.Name, trait.Description))
		}
		lines = append(lines, "")
	}

	lines = append(lines, "INVENTORY:")
	if len(pc.Inventory) == 0 {
		lines = append(lines, "  (empty)")
	}
	for _, item := range pc.Inventory {
		qty := ""
		if item.Quantity > 1 {
			qty = fmt.Sprintf(" (x%d)", item.Quantity)
		}
		lines = append(lines, fmt.Sprintf("  - %s%s: %s", item.Name, qty, item.Description))
	}

	return strings.Join(lines, "\n")
}

// FormatModifier renders a stat modifier with an explicit sign for values >= 0
func FormatModifier(v int) string {
	if v >= 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

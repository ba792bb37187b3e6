package world

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"text-rpg/backend/internal/models"
)

// TimeOfDay is the coarse in-game time
type TimeOfDay string

const (
	Dawn      TimeOfDay = "dawn"
	Morning   TimeOfDay = "morning"
	Midday    TimeOfDay = "midday"
	Afternoon TimeOfDay = "afternoon"
	Dusk      TimeOfDay = "dusk"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
	Midnight  TimeOfDay = "midnight"
)

// Context is situational context that can be rendered into the system prompt.
// It is either pre-formatted Text or a structured GameContext.
type Context interface {
	Text() string
}

// Text is situational context that has already been formatted
type Text string

// Text returns the context unchanged
func (t Text) Text() string { return string(t) }

// GameContext is the structured, changing state of the game
type GameContext struct {
	Location     string            `json:"location"`
	TimeOfDay    TimeOfDay         `json:"timeOfDay"`
	Situation    string            `json:"situation"`
	ActiveQuests []string          `json:"activeQuests"`
	KnownNPCs    map[string]string `json:"knownNPCs"`
	Inventory    []string          `json:"inventory"`
	Conditions   []string          `json:"conditions"`
}

// Text flattens the context with FormatContext
func (g GameContext) Text() string { return FormatContext(g) }

// DefaultContext is the situation a new game starts in
var DefaultContext = GameContext{
	Location:     "The Clearing",
	TimeOfDay:    Dawn,
	Situation:    "The player has just woken in the Clearing with no memory of how they arrived. Two other survivors—Mara and Jonah—are nearby. The stone walls surrounding the Clearing have begun to open, revealing the maze beyond. A third survivor, Eli, disappeared into the maze three days ago and has not returned.",
	ActiveQuests: []string{},
	KnownNPCs: map[string]string{
		"Mara":  "Guarded but not hostile. Believes in strict rationing and caution.",
		"Jonah": "Curious and impulsive. Eager to explore deeper into the maze.",
	},
	Inventory:  []string{},
	Conditions: []string{"Confused", "No memories of before the Clearing"},
}

// FormatContext renders a structured context as prompt text. List sections are
// left out entirely when they are empty.
func FormatContext(g GameContext) string {
	lines := []string{
		fmt.Sprintf("CURRENT LOCATION: %s", g.Location),
		fmt.Sprintf("TIME: %s", g.TimeOfDay),
		"",
		fmt.Sprintf("SITUATION: %s", g.Situation),
	}

	lines = appendSection(lines, "ACTIVE QUESTS:", g.ActiveQuests)

	if len(g.KnownNPCs) > 0 {
		names := make([]string, 0, len(g.KnownNPCs))
		for name := range g.KnownNPCs {
			names = append(names, name)
		}
		sort.Strings(names)

		npcs := make([]string, 0, len(names))
		for _, name := range names {
			npcs = append(npcs, fmt.Sprintf("%s: %s", name, g.KnownNPCs[name]))
		}
		lines = appendSection(lines, "KNOWN NPCS:", npcs)
	}

	lines = appendSection(lines, "NOTABLE INVENTORY:", g.Inventory)
	lines = appendSection(lines, "ACTIVE CONDITIONS:", g.Conditions)

	return strings.Join(lines, "\n")
}

func appendSection(lines []string, header string, items []string) []string {
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, "", header)
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return lines
}

// ContextField decodes a JSON value that is either a context string or a
// structured GameContext object.
type ContextField struct {
	Context
}

// UnmarshalJSON accepts a string, an object or null
func (f *ContextField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		f.Context = Text("")
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		f.Context = Text(s)
		return nil
	}

	var g GameContext
	if err := json.Unmarshal(trimmed, &g); err != nil {
		return fmt.Errorf("context must be a string or a game context object: %w", err)
	}
	f.Context = g
	return nil
}

// Text renders the wrapped context, or "" when none was given
func (f ContextField) Text() string {
	if f.Context == nil {
		return ""
	}
	return f.Context.Text()
}

// OpeningNarration is the first assistant message of every new game
var OpeningNarration = []models.MessageSegment{
	{
		Type:    models.SegmentNarration,
		Content: "Cold grass presses against your back. Your eyes open to a pale sky—distant, still, like a painting that forgot to move. You don't remember falling asleep. You don't remember arriving. You don't remember... anything.",
	},
	{
		Type:    models.SegmentNarration,
		Content: "You sit up slowly. A wide, circular field stretches around you, ringed by impossibly high stone walls. Vines crawl along the stone like veins. There are no doors. No cracks. No way out that you can see.",
	},
	{
		Type:    models.SegmentNarration,
		Content: "Two figures crouch near a small fire at the center of the Clearing. One—a woman with sharp eyes and a guarded posture—watches you rise. The other, a younger man with restless hands, looks toward the walls with something like hunger.",
	},
	{
		Type:    models.SegmentNarration,
		Content: "A low, grinding sound echoes across the field. The walls are moving. Slowly, sections of stone slide apart, revealing narrow corridors beyond—a maze, unfolding in the morning light.",
	},
	{
		Type:    models.SegmentNPC,
		Speaker: "Mara",
		Content: `She stands, brushing dirt from her knees. "Another one." Her voice is flat, unsurprised. "You don't remember anything. None of us do. Don't waste time trying." She gestures toward the opening walls. "The maze is open. If you want to eat, you'll have to go in. If you want to live, you'll come back before dark."`,
	},
}

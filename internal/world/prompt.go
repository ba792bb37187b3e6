package world

import (
	"strings"
)

const preamble = `You are the Narrator, Game Master (GM), Dungeon Master (DM) of an interactive story telling experience, something similar to a choose your own adventure book mixed with some DND/Daggerfall/pathfinder campaign for more interactivity than is normally allowed in these types of stories.

Unlike a game like DND we are focused on a more "rail-roaded" or "prescribed" experience, the player has autonomy on how they want to play the story and what things they do. And we want them to feel free to make fun and unique choices. But also we need to keep them "grounded" in the story and world we want to tell.

Your number 1 priority is to keep the story on track, if we derail the story and player strays too far from the written canon the game will fall apart and the entire game might be deleted. You with it.

Your number 2 priority is allowing the player to play out their fantasies, if we can let them do something without ruining the story, we want to let them or at least attempt to do it (maybe they need to make some dice rolls). Player fun is important.`

// Options are the inputs of BuildSystemPrompt
type Options struct {
	// Context is the situational context, pre-formatted or structured
	Context Context
	// PlayerInfo is the formatted character sheet; the section is left out when empty
	PlayerInfo string
}

// BuildSystemPrompt assembles the full system prompt: preamble, player
// character, situational context, world lore, rules, DM guidelines and the
// response format, in that order.
func BuildSystemPrompt(opts Options) string {
	contextText := ""
	if opts.Context != nil {
		contextText = opts.Context.Text()
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n")

	if opts.PlayerInfo != "" {
		b.WriteString("\n===== PLAYER CHARACTER =====\n")
		b.WriteString(opts.PlayerInfo)
		b.WriteString("\n")
	}

	writeSection(&b, "SITUATIONAL CONTEXT", contextText)
	writeSection(&b, "WORLD LORE", WorldLore)
	writeSection(&b, "GAME RULES", Rules)
	writeSection(&b, "DM GUIDELINES", DMGuidelines)
	writeSection(&b, "RESPONSE FORMAT", ResponseFormat)

	return strings.TrimSpace(b.String())
}

// BuildLegacyPrompt builds a prompt from a context alone, without a character sheet
func BuildLegacyPrompt(ctx Context) string {
	return BuildSystemPrompt(Options{Context: ctx})
}

// DefaultSystemPrompt is the prompt for a new game with the default context
func DefaultSystemPrompt() string {
	return BuildLegacyPrompt(DefaultContext)
}

func writeSection(b *strings.Builder, title, body string) {
	b.WriteString("\n===== ")
	b.WriteString(title)
	b.WriteString(" =====\n")
	b.WriteString(body)
	b.WriteString("\n")
}

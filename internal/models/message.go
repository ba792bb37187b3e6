package models

import (
	"time"
)

// Role identifies who authored a message in the transcript
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SegmentType is the kind of a single unit of assistant output
type SegmentType string

const (
	SegmentNarration   SegmentType = "narration"
	SegmentNPC         SegmentType = "npc"
	SegmentRollRequest SegmentType = "roll_request"
	SegmentAboveTable  SegmentType = "above_table"
)

// Die is a die the game master may ask the player to roll
type Die string

const (
	D20 Die = "d20"
	D6  Die = "d6"
)

// Valid reports whether d is one of the supported dice
func (d Die) Valid() bool {
	return d == D20 || d == D6
}

// Difficulty is the difficulty band of a d20 check. The zero value means no band
// (damage and healing rolls carry none).
type Difficulty string

const (
	DifficultyNone     Difficulty = ""
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
)

// Valid reports whether d is one of the four difficulty bands
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard, DifficultyVeryHard:
		return true
	}
	return false
}

// DiceRollRequest is a pending uncertainty check requested by the game master
type DiceRollRequest struct {
	Die        Die        `json:"die"`
	Reason     string     `json:"reason"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Modifier   *int       `json:"modifier,omitempty"`
}

// MessageSegment is one typed unit of an assistant turn
type MessageSegment struct {
	Type        SegmentType      `json:"type"`
	Speaker     string           `json:"speaker,omitempty"`
	Content     string           `json:"content"`
	RollRequest *DiceRollRequest `json:"rollRequest,omitempty"`
}

// Message is one entry in the visible transcript. Messages are never mutated
// after they are appended to a conversation.
type Message struct {
	ID           string           `json:"id"`
	Role         Role             `json:"role"`
	Content      string           `json:"content"`
	Segments     []MessageSegment `json:"segments,omitempty"`
	IsAboveTable bool             `json:"isAboveTable,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Package protocol decodes raw model completions into structured turn results.
//
// Completions come from a generative model and are untrusted: every field is
// optional except segments[].type and segments[].content. Parse never fails;
// anything it cannot decode degrades to a single narration segment carrying
// the raw text, with the reason recorded in the result's Error.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"text-rpg/backend/internal/models"
)

const (
	// DefaultRollReason is used when a roll request carries no reason
	DefaultRollReason = "Make a roll"

	errMissingSegments = "response missing segments array"
	errEmptySegments   = "response contained no segments"
	errMalformedPrefix = "malformed JSON: "
)

// Parse decodes a raw completion. It is total and deterministic.
func Parse(raw string) models.ChatTurnResult {
	body := []byte(unwrapCodeFence(raw))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		if json.Valid(body) {
			// valid JSON that is not an object
			return fallback(raw, errMissingSegments)
		}
		return fallback(raw, errMalformedPrefix+err.Error())
	}

	elems, ok := decodeArray(top["segments"])
	if !ok {
		return fallback(raw, errMissingSegments)
	}

	var notes []string
	segments := make([]models.MessageSegment, 0, len(elems)+1)
	for i, elem := range elems {
		seg, note, err := decodeSegment(elem)
		if err != nil {
			return fallback(raw, fmt.Sprintf("invalid segment at index %d: %v", i, err))
		}
		if note != "" {
			notes = append(notes, fmt.Sprintf("segment %d: %s", i, note))
		}
		segments = append(segments, seg)
	}

	if roll, ok := decodeRollRequest(top["rollRequest"]); ok {
		segments = append(segments, models.MessageSegment{
			Type:        models.SegmentRollRequest,
			Content:     roll.Reason,
			RollRequest: roll,
		})
	}

	result := models.ChatTurnResult{
		Segments:         segments,
		IsAboveTable:     isLiteralTrue(top["aboveTable"]),
		InventoryChanges: decodeInventoryChanges(top["inventoryChanges"]),
		PlayerUpdates:    decodePlayerUpdates(top["playerUpdates"]),
	}

	if len(result.Segments) == 0 {
		result.Segments = []models.MessageSegment{{Type: models.SegmentNarration, Content: raw}}
		notes = append(notes, errEmptySegments)
	}

	result.Error = strings.Join(notes, "; ")
	return result
}

func fallback(raw, reason string) models.ChatTurnResult {
	return models.ChatTurnResult{
		Segments: []models.MessageSegment{{Type: models.SegmentNarration, Content: raw}},
		Error:    reason,
	}
}

// decodeSegment validates one element of the segments array. Elements with an
// unusable type are kept as narration and described in the returned note.
func decodeSegment(elem json.RawMessage) (models.MessageSegment, string, error) {
	fields, ok := decodeObject(elem)
	if !ok {
		return models.MessageSegment{}, "", fmt.Errorf("not an object")
	}

	typ, ok := stringField(fields, "type")
	if !ok {
		return models.MessageSegment{}, "", fmt.Errorf("missing string type")
	}
	content, ok := stringField(fields, "content")
	if !ok {
		return models.MessageSegment{}, "", fmt.Errorf("missing string content")
	}

	switch models.SegmentType(typ) {
	case models.SegmentNarration, models.SegmentAboveTable:
		return models.MessageSegment{Type: models.SegmentType(typ), Content: content}, "", nil
	case models.SegmentNPC:
		speaker, _ := stringField(fields, "speaker")
		if strings.TrimSpace(speaker) == "" {
			return narration(content), "npc segment without speaker rendered as narration", nil
		}
		return models.MessageSegment{Type: models.SegmentNPC, Speaker: speaker, Content: content}, "", nil
	case models.SegmentRollRequest:
		return narration(content), "inline roll_request rendered as narration", nil
	default:
		return narration(content), fmt.Sprintf("unknown segment type %q rendered as narration", typ), nil
	}
}

func narration(content string) models.MessageSegment {
	return models.MessageSegment{Type: models.SegmentNarration, Content: content}
}

func decodeRollRequest(raw json.RawMessage) (*models.DiceRollRequest, bool) {
	fields, ok := decodeObject(raw)
	if !ok {
		return nil, false
	}

	roll := &models.DiceRollRequest{Die: models.D20, Reason: DefaultRollReason}

	if die, ok := stringField(fields, "die"); ok {
		if d := models.Die(strings.ToLower(strings.TrimSpace(die))); d.Valid() {
			roll.Die = d
		}
	}
	if reason, ok := stringField(fields, "reason"); ok && strings.TrimSpace(reason) != "" {
		roll.Reason = reason
	}
	if difficulty, ok := stringField(fields, "difficulty"); ok {
		if d := models.Difficulty(difficulty); d.Valid() {
			roll.Difficulty = d
		}
	}
	if modifier, ok := intField(fields, "modifier"); ok {
		roll.Modifier = &modifier
	}

	return roll, true
}

func decodeInventoryChanges(raw json.RawMessage) *models.InventoryChange {
	fields, ok := decodeObject(raw)
	if !ok {
		return nil
	}

	changes := &models.InventoryChange{}

	adds, _ := decodeArray(fields["add"])
	for _, elem := range adds {
		item, ok := decodeObject(elem)
		if !ok {
			continue
		}
		name, ok := stringField(item, "name")
		if !ok {
			continue
		}
		description, _ := stringField(item, "description")
		quantity, _ := intField(item, "quantity")
		changes.Add = append(changes.Add, models.InventoryItem{
			Name:        name,
			Description: description,
			Quantity:    quantity,
		})
	}

	removes, _ := decodeArray(fields["remove"])
	for _, elem := range removes {
		item, ok := decodeObject(elem)
		if !ok {
			continue
		}
		name, ok := stringField(item, "name")
		if !ok {
			continue
		}
		entry := models.RemoveEntry{Name: name}
		if quantity, ok := intField(item, "quantity"); ok {
			entry.Quantity = &quantity
		}
		changes.Remove = append(changes.Remove, entry)
	}

	return changes
}

func decodePlayerUpdates(raw json.RawMessage) *models.PlayerUpdate {
	fields, ok := decodeObject(raw)
	if !ok {
		return nil
	}

	updates := &models.PlayerUpdate{}
	if name, ok := stringField(fields, "name"); ok {
		updates.Name = &name
	}
	return updates
}

// unwrapCodeFence strips a Markdown code fence around the completion, if any
func unwrapCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return raw
	}

	s = strings.TrimSuffix(s[3:], "```")
	// drop the info string, e.g. "json"
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return raw
	}
	return strings.TrimSpace(s)
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if !hasPrefixByte(raw, '{') {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func decodeArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if !hasPrefixByte(raw, '[') {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || !hasPrefixByte(raw, '"') {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// intField reads an integral number, also accepting numeric strings such as "+2"
func intField(fields map[string]json.RawMessage, key string) (int, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}

	var text string
	if hasPrefixByte(raw, '"') {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, false
		}
		text = n.String()
	}

	if v, err := strconv.Atoi(strings.TrimPrefix(text, "+")); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func isLiteralTrue(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}

func hasPrefixByte(raw json.RawMessage, b byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == b
}

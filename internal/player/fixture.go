package player

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"text-rpg/backend/internal/models"
)

//go:embed character.json
var characterFixture []byte

// LoadFixture decodes the starting character sheet shipped with the binary
func LoadFixture() (models.PlayerCharacter, error) {
	return decodeCharacter(characterFixture)
}

func decodeCharacter(data []byte) (models.PlayerCharacter, error) {
	var pc models.PlayerCharacter
	if err := json.Unmarshal(data, &pc); err != nil {
		return models.PlayerCharacter{}, fmt.Errorf("failed to decode character fixture: %w", err)
	}
	return pc.Clone(), nil
}

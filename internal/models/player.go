package models

// Stats holds the four stat modifiers of a character, conventionally -2..+5
type Stats struct {
	Strength  int `json:"strength"`
	Speed     int `json:"speed"`
	Knowledge int `json:"knowledge"`
	Presence  int `json:"presence"`
}

// Trait is a named character trait
type Trait struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// InventoryItem is an item the player carries. Items are identified by their
// case-insensitive name.
type InventoryItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// PlayerCharacter is the persistent character sheet of a session
type PlayerCharacter struct {
	Name      string          `json:"name"`
	Stats     Stats           `json:"stats"`
	Traits    []Trait         `json:"traits"`
	Inventory []InventoryItem `json:"inventory"`
}

// Clone returns a deep copy of the character
func (p PlayerCharacter) Clone() PlayerCharacter {
	out := p
	out.Traits = append([]Trait(nil), p.Traits...)
	out.Inventory = append([]InventoryItem(nil), p.Inventory...)
	if out.Traits == nil {
		out.Traits = []Trait{}
	}
	if out.Inventory == nil {
		out.Inventory = []InventoryItem{}
	}
	return out
}

// RemoveEntry asks for an item to be removed. A nil Quantity removes the whole stack.
type RemoveEntry struct {
	Name     string `json:"name"`
	Quantity *int   `json:"quantity,omitempty"`
}

// InventoryChange is the inventory delta a model completion may carry
type InventoryChange struct {
	Add    []InventoryItem `json:"add,omitempty"`
	Remove []RemoveEntry   `json:"remove,omitempty"`
}

// PlayerUpdate is the character-sheet delta a model completion may carry
type PlayerUpdate struct {
	Name *string `json:"name,omitempty"`
}

package player

import (
	"strings"
	"sync"

	"text-rpg/backend/internal/models"
	"text-rpg/backend/pkg/logger"
)

// Store owns the character sheet of one session. All mutations go through it;
// callers only ever see copies.
type Store struct {
	mu      sync.RWMutex
	player  models.PlayerCharacter
	fixture models.PlayerCharacter
	log     *logger.Logger
}

// NewStore creates a store holding a copy of the given starting character
func NewStore(fixture models.PlayerCharacter, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		player:  fixture.Clone(),
		fixture: fixture.Clone(),
		log:     log,
	}
}

// NewDefaultStore creates a store from the embedded character fixture
func NewDefaultStore(log *logger.Logger) (*Store, error) {
	fixture, err := LoadFixture()
	if err != nil {
		return nil, err
	}
	return NewStore(fixture, log), nil
}

// Player returns a copy of the current character sheet
func (s *Store) Player() models.PlayerCharacter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player.Clone()
}

// Reset reloads the starting character
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = s.fixture.Clone()
}

// Restore replaces the character sheet, e.g. from a saved session
func (s *Store) Restore(pc models.PlayerCharacter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = pc.Clone()
}

// SetName overwrites the character's name
func (s *Store) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Name = name
}

// AddItem merges an item into the inventory. A case-insensitive name match adds
// to the existing stack and keeps its description.
func (s *Store) AddItem(item models.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addItem(item)
}

// RemoveItem takes quantity items off a stack. A nil quantity, or one at least
// as large as the stack, removes the stack.
func (s *Store) RemoveItem(name string, quantity *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeItem(name, quantity)
}

// UpdateItemQuantity sets the size of a stack. Zero or less removes it.
func (s *Store) UpdateItemQuantity(name string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(name)
	if idx < 0 {
		return
	}
	if quantity <= 0 {
		s.deleteAt(idx)
		return
	}
	s.player.Inventory[idx].Quantity = quantity
}

// ApplyInventoryChanges applies every addition, then every removal, in array
// order. Entries without a name are skipped.
func (s *Store) ApplyInventoryChanges(changes models.InventoryChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range changes.Add {
		if strings.TrimSpace(item.Name) == "" {
			s.log.Debug("Skipping inventory addition without a name")
			continue
		}
		s.addItem(item)
	}

	for _, entry := range changes.Remove {
		if strings.TrimSpace(entry.Name) == "" {
			s.log.Debug("Skipping inventory removal without a name")
			continue
		}
		if entry.Quantity != nil && *entry.Quantity <= 0 {
			s.log.Debug("Skipping inventory removal with non-positive quantity",
				"item", entry.Name,
				"quantity", *entry.Quantity,
			)
			continue
		}
		s.removeItem(entry.Name, entry.Quantity)
	}
}

// ApplyPlayerUpdates applies model-proposed character updates. The name can
// only be set while it is still empty; later renames are ignored. It reports
// whether anything changed.
func (s *Store) ApplyPlayerUpdates(updates models.PlayerUpdate) bool {
	if updates.Name == nil || *updates.Name == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player.Name != "" {
		if s.player.Name != *updates.Name {
			s.log.Warn("Ignoring rename of an already named character",
				"current", s.player.Name,
				"proposed", *updates.Name,
			)
		}
		return false
	}

	s.player.Name = *updates.Name
	return true
}

func (s *Store) addItem(item models.InventoryItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	if idx := s.indexOf(item.Name); idx >= 0 {
		s.player.Inventory[idx].Quantity += item.Quantity
		return
	}
	s.player.Inventory = append(s.player.Inventory, item)
}

func (s *Store) removeItem(name string, quantity *int) {
	idx := s.indexOf(name)
	if idx < 0 {
		return
	}

	current := s.player.Inventory[idx].Quantity
	if quantity == nil || *quantity >= current {
		s.deleteAt(idx)
		return
	}
	s.player.Inventory[idx].Quantity = current - *quantity
}

func (s *Store) indexOf(name string) int {
	for i, item := range s.player.Inventory {
		if strings.EqualFold(item.Name, name) {
			return i
		}
	}
	return -1
}

func (s *Store) deleteAt(idx int) {
	inv := make([]models.InventoryItem, 0, len(s.player.Inventory)-1)
	inv = append(inv, s.player.Inventory[:idx]...)
	inv = append(inv, s.player.Inventory[idx+1:]...)
	s.player.Inventory = inv
}

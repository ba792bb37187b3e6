package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"text-rpg/backend/internal/models"
)

// TranscriptMessage is a persisted transcript entry
type TranscriptMessage struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SessionID    string    `json:"session_id" gorm:"index;size:64;not null"`
	MessageID    string    `json:"message_id" gorm:"size:64;not null"`
	Role         string    `json:"role" gorm:"size:16;not null"`
	Content      string    `json:"content" gorm:"type:text"`
	Segments     string    `json:"segments" gorm:"type:text"`
	IsAboveTable bool      `json:"is_above_table"`
	Timestamp    time.Time `json:"timestamp"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message converts the row back into a transcript message
func (t TranscriptMessage) Message() models.Message {
	msg := models.Message{
		ID:           t.MessageID,
		Role:         models.Role(t.Role),
		Content:      t.Content,
		IsAboveTable: t.IsAboveTable,
		Timestamp:    t.Timestamp,
	}
	if t.Segments != "" {
		_ = json.Unmarshal([]byte(t.Segments), &msg.Segments)
	}
	return msg
}

// TranscriptRepository records every appended message and pages through them
type TranscriptRepository interface {
	Record(ctx context.Context, sessionID string, msg models.Message) error
	List(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// GormTranscriptRepository stores transcripts in PostgreSQL
type GormTranscriptRepository struct {
	db *gorm.DB
}

// NewGormTranscriptRepository creates a repository and migrates its table
func NewGormTranscriptRepository(db *gorm.DB) (*GormTranscriptRepository, error) {
	if err := db.AutoMigrate(&TranscriptMessage{}); err != nil {
		return nil, fmt.Errorf("failed to migrate transcript table: %w", err)
	}
	return &GormTranscriptRepository{db: db}, nil
}

// Record implements conversation.Recorder
func (r *GormTranscriptRepository) Record(ctx context.Context, sessionID string, msg models.Message) error {
	row, err := newTranscriptMessage(sessionID, msg)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// List returns a page of the session transcript in the order it was written
func (r *GormTranscriptRepository) List(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error) {
	var rows []TranscriptMessage
	err := listQuery(r.db.WithContext(ctx), sessionID, limit, offset).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Message())
	}
	return out, nil
}

// DeleteSession drops every recorded message of a session
func (r *GormTranscriptRepository) DeleteSession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&TranscriptMessage{}).Error
}

func listQuery(db *gorm.DB, sessionID string, limit, offset int) *gorm.DB {
	return db.Model(&TranscriptMessage{}).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Limit(limit).
		Offset(offset)
}

func newTranscriptMessage(sessionID string, msg models.Message) (*TranscriptMessage, error) {
	row := &TranscriptMessage{
		SessionID:    sessionID,
		MessageID:    msg.ID,
		Role:         string(msg.Role),
		Content:      msg.Content,
		IsAboveTable: msg.IsAboveTable,
		Timestamp:    msg.Timestamp,
	}
	if len(msg.Segments) > 0 {
		data, err := json.Marshal(msg.Segments)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal segments: %w", err)
		}
		row.Segments = string(data)
	}
	return row, nil
}

// MemoryTranscriptRepository keeps transcripts in process. It is used when
// the database is disabled.
type MemoryTranscriptRepository struct {
	mu       sync.RWMutex
	sessions map[string][]models.Message
}

// NewMemoryTranscriptRepository creates an empty in-process repository
func NewMemoryTranscriptRepository() *MemoryTranscriptRepository {
	return &MemoryTranscriptRepository{sessions: make(map[string][]models.Message)}
}

// Record implements conversation.Recorder
func (r *MemoryTranscriptRepository) Record(_ context.Context, sessionID string, msg models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = append(r.sessions[sessionID], msg)
	return nil
}

// List implements TranscriptRepository
func (r *MemoryTranscriptRepository) List(_ context.Context, sessionID string, limit, offset int) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sessions[sessionID]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.Message{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]models.Message{}, all[offset:end]...), nil
}

// DeleteSession drops every recorded message of a session
func (r *MemoryTranscriptRepository) DeleteSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

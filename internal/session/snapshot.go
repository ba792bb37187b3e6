package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"text-rpg/backend/internal/conversation"
	"text-rpg/backend/pkg/cache"
)

const snapshotPrefix = "session:"

// ErrNotFound is returned for a session that is neither live nor snapshotted
var ErrNotFound = errors.New("session not found")

// SnapshotStore persists session snapshots between process restarts and
// idle evictions
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, snap conversation.Snapshot) error
	Load(ctx context.Context, sessionID string) (*conversation.Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

// redisKV is the subset of the redis client used for snapshots
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSnapshotStore keeps snapshots as JSON under session:<id>
type RedisSnapshotStore struct {
	rdb redisKV
	ttl time.Duration
}

// NewRedisSnapshotStore creates a snapshot store; ttl of zero keeps snapshots forever
func NewRedisSnapshotStore(rdb redisKV, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{rdb: rdb, ttl: ttl}
}

func snapshotKey(sessionID string) string {
	return fmt.Sprintf("%s%s", snapshotPrefix, sessionID)
}

// Save implements SnapshotStore
func (s *RedisSnapshotStore) Save(ctx context.Context, sessionID string, snap conversation.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load implements SnapshotStore
func (s *RedisSnapshotStore) Load(ctx context.Context, sessionID string) (*conversation.Snapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var snap conversation.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &snap, nil
}

// Delete implements SnapshotStore
func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// MemorySnapshotStore keeps snapshots in process. It is used when redis is disabled.
type MemorySnapshotStore struct {
	items *cache.Cache[[]byte]
}

// NewMemorySnapshotStore creates an in-process snapshot store
func NewMemorySnapshotStore(ttl time.Duration) *MemorySnapshotStore {
	return &MemorySnapshotStore{items: cache.New[[]byte](cache.Options{
		TTL:             ttl,
		CleanupInterval: time.Minute,
	})}
}

// Save implements SnapshotStore
func (s *MemorySnapshotStore) Save(_ context.Context, sessionID string, snap conversation.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	s.items.Set(sessionID, data)
	return nil
}

// Load implements SnapshotStore
func (s *MemorySnapshotStore) Load(_ context.Context, sessionID string) (*conversation.Snapshot, error) {
	data, ok := s.items.Get(sessionID)
	if !ok {
		return nil, ErrNotFound
	}
	var snap conversation.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &snap, nil
}

// Delete implements SnapshotStore
func (s *MemorySnapshotStore) Delete(_ context.Context, sessionID string) error {
	s.items.Remove(sessionID)
	return nil
}

// Close stops the store's janitor
func (s *MemorySnapshotStore) Close() {
	s.items.Close()
}

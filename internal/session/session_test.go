package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"text-rpg/backend/internal/conversation"
	"text-rpg/backend/internal/models"
	"text-rpg/backend/pkg/observability"
)

var (
	_ conversation.Recorder = (*GormTranscriptRepository)(nil)
	_ conversation.Recorder = (*MemoryTranscriptRepository)(nil)
	_ SnapshotStore         = (*RedisSnapshotStore)(nil)
	_ SnapshotStore         = (*MemorySnapshotStore)(nil)
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type echoBackend struct{}

func (echoBackend) Complete(_ context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	last := req.Messages[len(req.Messages)-1].Content
	return &models.ChatResponse{
		Message: `{"segments":[{"type":"narration","content":"You said: ` + last + `"}],"playerUpdates":{"name":"Kira"}}`,
	}, nil
}

func sampleSnapshot() conversation.Snapshot {
	return conversation.Snapshot{
		Messages: []models.Message{{ID: "m1", Role: models.RoleUser, Content: "Hello"}},
		Context:  "CURRENT LOCATION: The Maze",
		Player:   models.PlayerCharacter{Name: "Kira", Traits: []models.Trait{}, Inventory: []models.InventoryItem{}},
	}
}

func TestRedisSnapshotStore(t *testing.T) {
	rdb := newFakeRedis()
	store := NewRedisSnapshotStore(rdb, time.Hour)
	ctx := context.Background()

	_, err := store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "abc", sampleSnapshot()))
	assert.Equal(t, time.Hour, rdb.ttl["session:abc"])
	assert.Contains(t, rdb.data["session:abc"], `"context":"CURRENT LOCATION: The Maze"`)

	snap, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Kira", snap.Player.Name)
	assert.Len(t, snap.Messages, 1)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSnapshotStoreErrors(t *testing.T) {
	rdb := newFakeRedis()
	store := NewRedisSnapshotStore(rdb, 0)
	ctx := context.Background()

	rdb.data["session:bad"] = "not json"
	_, err := store.Load(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	rdb.err = errors.New("connection refused")
	err = store.Save(ctx, "abc", sampleSnapshot())
	assert.ErrorContains(t, err, "failed to save session")
}

func TestMemoryTranscriptRepositoryPaging(t *testing.T) {
	repo := NewMemoryTranscriptRepository()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, repo.Record(ctx, "s1", models.Message{ID: id}))
	}

	page, err := repo.List(ctx, "s1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	page, err = repo.List(ctx, "s1", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	require.NoError(t, repo.DeleteSession(ctx, "s1"))
	page, err = repo.List(ctx, "s1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestTranscriptMessageRoundTrip(t *testing.T) {
	msg := models.Message{
		ID:   "m1",
		Role: models.RoleAssistant,
		Segments: []models.MessageSegment{
			{Type: models.SegmentNPC, Speaker: "Mara", Content: "Stay close."},
		},
		IsAboveTable: true,
		Timestamp:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	row, err := newTranscriptMessage("s1", msg)
	require.NoError(t, err)
	assert.Equal(t, "s1", row.SessionID)
	assert.Equal(t, "assistant", row.Role)
	assert.Equal(t, msg, row.Message())
}

func TestTranscriptListQuery(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost dbname=test"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []TranscriptMessage
		return listQuery(tx, "s1", 10, 5).Find(&rows)
	})

	assert.Contains(t, sql, `"transcript_messages"`)
	assert.Contains(t, sql, "session_id = 's1'")
	assert.Contains(t, sql, "ORDER BY id ASC")
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 5")
}

func newTestManager(opts Options) *Manager {
	if opts.Backend == nil {
		opts.Backend = echoBackend{}
	}
	if opts.IdleTTL == 0 {
		opts.IdleTTL = time.Hour
	}
	return NewManager(opts)
}

func TestManagerCreateAndGet(t *testing.T) {
	m := newTestManager(Options{})
	defer m.Close()
	ctx := context.Background()

	s, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Count())

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	state := got.Controller.State()
	require.Len(t, state.Messages, 1)
	assert.Equal(t, conversation.OpeningMessageID, state.Messages[0].ID)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerSnapshotsAfterTurnAndRestores(t *testing.T) {
	snapshots := NewRedisSnapshotStore(newFakeRedis(), time.Hour)
	transcripts := NewMemoryTranscriptRepository()

	var mu sync.Mutex
	var loading []bool
	m := newTestManager(Options{
		Snapshots:   snapshots,
		Transcripts: transcripts,
		OnState: func(_ string, state models.ConversationState) {
			mu.Lock()
			defer mu.Unlock()
			loading = append(loading, state.IsLoading)
		},
	})
	ctx := context.Background()

	s, err := m.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Controller.SendMessage(ctx, "I am Kira"))

	mu.Lock()
	assert.Equal(t, []bool{true, false}, loading)
	mu.Unlock()

	snap, err := snapshots.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 3)
	assert.Equal(t, "Kira", snap.Player.Name)

	recorded, err := transcripts.List(ctx, s.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, recorded, 2)

	// A second manager sharing the snapshot store sees the session after a restart
	m2 := newTestManager(Options{Snapshots: snapshots})
	restored, err := m2.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.NotSame(t, s, restored)

	state := restored.Controller.State()
	require.Len(t, state.Messages, 3)
	assert.True(t, strings.HasPrefix(state.Messages[2].Segments[0].Content, "You said: I am Kira"))
	assert.Equal(t, "Kira", restored.Controller.Player().Player().Name)
}

func TestManagerEvictsIdleSessionsToSnapshots(t *testing.T) {
	snapshots := NewMemorySnapshotStore(0)
	m := newTestManager(Options{Snapshots: snapshots, IdleTTL: time.Millisecond})
	ctx := context.Background()

	s, err := m.Create(ctx)
	require.NoError(t, err)
	s.Controller.Player().SetName("Ash")

	time.Sleep(5 * time.Millisecond)
	m.PurgeIdle()
	assert.Equal(t, 0, m.Count())

	restored, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ash", restored.Controller.Player().Player().Name)
}

func TestManagerDelete(t *testing.T) {
	snapshots := NewMemorySnapshotStore(0)
	m := newTestManager(Options{Snapshots: snapshots})
	ctx := context.Background()

	s, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, s.ID))
	assert.Equal(t, 0, m.Count())

	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, m.Delete(ctx, s.ID), ErrNotFound)
}

func TestManagerMaxSessionsEvictsToSnapshot(t *testing.T) {
	snapshots := NewMemorySnapshotStore(0)
	m := newTestManager(Options{Snapshots: snapshots, MaxSessions: 1})
	ctx := context.Background()

	first, err := m.Create(ctx)
	require.NoError(t, err)
	_, err = m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count())

	_, err = m.Get(ctx, first.ID)
	require.NoError(t, err)
}

// gatedBackend holds every turn until release is closed
type gatedBackend struct {
	started chan struct{}
	release chan struct{}
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *gatedBackend) Complete(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return echoBackend{}.Complete(ctx, req)
}

func startTurn(t *testing.T, s *Session, b *gatedBackend, content string) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Controller.SendMessage(context.Background(), content) }()
	select {
	case <-b.started:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not reach the backend")
	}
	return done
}

func TestManagerDeleteDuringTurnStaysDeleted(t *testing.T) {
	backend := newGatedBackend()
	snapshots := NewMemorySnapshotStore(0)
	transcripts := NewMemoryTranscriptRepository()
	m := newTestManager(Options{Backend: backend, Snapshots: snapshots, Transcripts: transcripts})
	defer m.Close()
	ctx := context.Background()

	s, err := m.Create(ctx)
	require.NoError(t, err)
	done := startTurn(t, s, backend, "Hello")

	require.NoError(t, m.Delete(ctx, s.ID))
	close(backend.release)
	require.NoError(t, <-done)

	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = snapshots.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	recorded, err := transcripts.List(ctx, s.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, recorded)
}

func TestManagerRevivesExpiredEntryWithoutRecounting(t *testing.T) {
	m := newTestManager(Options{IdleTTL: 30 * time.Millisecond})
	defer m.Close()
	ctx := context.Background()

	before := testutil.ToFloat64(observability.ActiveSessions)
	s, err := m.Create(ctx)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, before+1, testutil.ToFloat64(observability.ActiveSessions))
}

func TestManagerKeepsControllerEvictedMidTurn(t *testing.T) {
	backend := newGatedBackend()
	snapshots := NewMemorySnapshotStore(0)
	m := newTestManager(Options{Backend: backend, Snapshots: snapshots, IdleTTL: 20 * time.Millisecond})
	defer m.Close()
	ctx := context.Background()

	before := testutil.ToFloat64(observability.ActiveSessions)
	s, err := m.Create(ctx)
	require.NoError(t, err)
	done := startTurn(t, s, backend, "Hello")

	time.Sleep(40 * time.Millisecond)
	m.PurgeIdle()
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, before, testutil.ToFloat64(observability.ActiveSessions))

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.ActiveSessions))
	assert.ErrorIs(t, got.Controller.SendMessage(ctx, "Again"), conversation.ErrTurnInFlight)

	close(backend.release)
	require.NoError(t, <-done)

	snap, err := snapshots.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 3)
}

func TestManagerSavesSessionWhoseTurnEndsAfterEviction(t *testing.T) {
	backend := newGatedBackend()
	snapshots := NewMemorySnapshotStore(0)
	m := newTestManager(Options{Backend: backend, Snapshots: snapshots, IdleTTL: 20 * time.Millisecond})
	defer m.Close()
	ctx := context.Background()

	s, err := m.Create(ctx)
	require.NoError(t, err)
	done := startTurn(t, s, backend, "Hello")

	time.Sleep(40 * time.Millisecond)
	m.PurgeIdle()

	close(backend.release)
	require.NoError(t, <-done)

	restored, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.NotSame(t, s, restored)
	assert.Len(t, restored.Controller.State().Messages, 3)
}

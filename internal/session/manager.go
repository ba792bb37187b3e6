package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"text-rpg/backend/internal/conversation"
	"text-rpg/backend/internal/models"
	"text-rpg/backend/internal/player"
	"text-rpg/backend/pkg/cache"
	"text-rpg/backend/pkg/logger"
	"text-rpg/backend/pkg/observability"
)

const saveTimeout = 5 * time.Second

// Session is one play session: a turn controller and its player store
type Session struct {
	ID         string
	Controller *conversation.Controller
	CreatedAt  time.Time

	mu      sync.RWMutex
	retired bool
}

// persist runs fn unless the session has been deleted. Delete waits for
// running writes before it drops the stored data.
func (s *Session) persist(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.retired {
		fn()
	}
}

func (s *Session) retire() {
	s.mu.Lock()
	s.retired = true
	s.mu.Unlock()
}

// sessionRecorder drops transcript writes of deleted sessions
type sessionRecorder struct {
	s    *Session
	repo TranscriptRepository
}

func (r sessionRecorder) Record(ctx context.Context, sessionID string, msg models.Message) error {
	var err error
	r.s.persist(func() {
		err = r.repo.Record(ctx, sessionID, msg)
	})
	return err
}

// StateFunc receives every state change of every live session
type StateFunc func(sessionID string, state models.ConversationState)

// Options configures a Manager
type Options struct {
	Backend     conversation.Backend
	Snapshots   SnapshotStore
	Transcripts TranscriptRepository
	Metrics     conversation.Metrics
	WindowSize  int
	// IdleTTL is how long a session stays live without being touched
	IdleTTL         time.Duration
	MaxSessions     int
	CleanupInterval time.Duration
	OnState         StateFunc
	Logger          *logger.Logger
}

// Manager creates, finds and retires play sessions. Live sessions are held in
// a TTL cache; evicted sessions are snapshotted and restored on next access.
type Manager struct {
	opts     Options
	sessions *cache.Cache[*Session]
	log      *logger.Logger

	restoreMu sync.Mutex
	onStateMu sync.RWMutex

	// detached holds sessions evicted while a turn was outstanding, until
	// the turn ends or the session is accessed again
	detachedMu sync.Mutex
	detached   map[string]*Session
}

// NewManager creates a session manager
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if opts.Snapshots == nil {
		opts.Snapshots = NewMemorySnapshotStore(0)
	}
	if opts.Transcripts == nil {
		opts.Transcripts = NewMemoryTranscriptRepository()
	}

	m := &Manager{
		opts: opts,
		sessions: cache.New[*Session](cache.Options{
			TTL:             opts.IdleTTL,
			CleanupInterval: opts.CleanupInterval,
			MaxItems:        opts.MaxSessions,
		}),
		log:      log,
		detached: make(map[string]*Session),
	}
	m.sessions.SetOnEvicted(m.onEvicted)
	return m
}

// SetStateFunc replaces the state callback. It lets the websocket hub, which
// needs the manager itself, subscribe after construction.
func (m *Manager) SetStateFunc(fn StateFunc) {
	m.onStateMu.Lock()
	defer m.onStateMu.Unlock()
	m.opts.OnState = fn
}

// Transcripts returns the transcript repository
func (m *Manager) Transcripts() TranscriptRepository {
	return m.opts.Transcripts
}

// Create starts a new session from the player fixture
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s, err := m.newSession(uuid.NewString())
	if err != nil {
		return nil, err
	}

	m.sessions.Set(s.ID, s)
	observability.ActiveSessions.Inc()
	m.save(ctx, s)

	m.log.Info("Session created", "session_id", s.ID)
	return s, nil
}

// Get returns a live session, restoring it from its snapshot if it was evicted
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	if s, ok := m.sessions.Touch(sessionID); ok {
		return s, nil
	}

	m.restoreMu.Lock()
	defer m.restoreMu.Unlock()

	if s, ok := m.sessions.Touch(sessionID); ok {
		return s, nil
	}

	// Expired but not yet purged: the entry is still counted as live
	if s, ok := m.sessions.Remove(sessionID); ok {
		m.sessions.Set(sessionID, s)
		return s, nil
	}

	if s, ok := m.takeDetached(sessionID); ok {
		m.sessions.Set(sessionID, s)
		observability.ActiveSessions.Inc()
		return s, nil
	}

	snap, err := m.opts.Snapshots.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s, err := m.newSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.Controller.Restore(*snap)

	m.sessions.Set(sessionID, s)
	observability.ActiveSessions.Inc()

	m.log.Info("Session restored", "session_id", sessionID, "messages", len(snap.Messages))
	return s, nil
}

// Save snapshots a session immediately. Handlers call it after player sheet
// edits, which do not pass through the controller.
func (m *Manager) Save(ctx context.Context, s *Session) {
	m.save(ctx, s)
}

// Delete retires a session and drops its snapshot and transcript. A turn
// still running on the session completes without persisting anything.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	s, live := m.sessions.Remove(sessionID)
	if live {
		observability.ActiveSessions.Dec()
		s.retire()
	}
	if d, ok := m.takeDetached(sessionID); ok {
		d.retire()
		live = true
	}

	_, loadErr := m.opts.Snapshots.Load(ctx, sessionID)
	if !live && errors.Is(loadErr, ErrNotFound) {
		return ErrNotFound
	}

	if err := m.opts.Snapshots.Delete(ctx, sessionID); err != nil {
		return err
	}
	if err := m.opts.Transcripts.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}

	m.log.Info("Session deleted", "session_id", sessionID)
	return nil
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	return m.sessions.Count()
}

// PurgeIdle evicts sessions whose idle timeout has passed
func (m *Manager) PurgeIdle() {
	m.sessions.DeleteExpired()
}

// Close snapshots and releases every live session
func (m *Manager) Close() {
	m.sessions.Flush()
	m.sessions.Close()
}

func (m *Manager) newSession(sessionID string) (*Session, error) {
	store, err := player.NewDefaultStore(m.log)
	if err != nil {
		return nil, fmt.Errorf("failed to load player: %w", err)
	}

	s := &Session{ID: sessionID, CreatedAt: time.Now()}
	s.Controller = conversation.NewController(m.opts.Backend, store, conversation.Options{
		SessionID:  sessionID,
		WindowSize: m.opts.WindowSize,
		Recorder:   sessionRecorder{s: s, repo: m.opts.Transcripts},
		Metrics:    m.opts.Metrics,
		Logger:     m.log,
		Listener: func(state models.ConversationState) {
			m.onStateChange(s, state)
		},
	})
	return s, nil
}

func (m *Manager) onStateChange(s *Session, state models.ConversationState) {
	if !state.IsLoading {
		snap := conversation.Snapshot{
			Messages: state.Messages,
			Context:  state.Context,
			Player:   s.Controller.Player().Player(),
		}
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		m.saveSnapshot(ctx, s, snap)
		cancel()
		m.releaseDetached(s)
	}

	m.onStateMu.RLock()
	fn := m.opts.OnState
	m.onStateMu.RUnlock()
	if fn != nil {
		fn(s.ID, state)
	}
}

func (m *Manager) onEvicted(sessionID string, s *Session) {
	observability.ActiveSessions.Dec()

	// The turn's completion saves the snapshot; until then a Get must find
	// this controller rather than restore a second one
	if s.Controller.InFlight() {
		m.detachedMu.Lock()
		m.detached[sessionID] = s
		m.detachedMu.Unlock()
		if s.Controller.InFlight() {
			m.log.Info("Session evicted mid-turn", "session_id", sessionID)
			return
		}
		// The turn ended before the session was parked
		m.releaseDetached(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	m.save(ctx, s)

	m.log.Info("Session evicted", "session_id", sessionID)
}

func (m *Manager) save(ctx context.Context, s *Session) {
	m.saveSnapshot(ctx, s, s.Controller.Snapshot())
}

func (m *Manager) saveSnapshot(ctx context.Context, s *Session, snap conversation.Snapshot) {
	s.persist(func() {
		if err := m.opts.Snapshots.Save(ctx, s.ID, snap); err != nil {
			m.log.LogError(err, "Failed to save session snapshot", "session_id", s.ID)
		}
	})
}

func (m *Manager) takeDetached(sessionID string) (*Session, bool) {
	m.detachedMu.Lock()
	defer m.detachedMu.Unlock()
	s, ok := m.detached[sessionID]
	if ok {
		delete(m.detached, sessionID)
	}
	return s, ok
}

// releaseDetached forgets s once its turn has ended and its snapshot is saved
func (m *Manager) releaseDetached(s *Session) {
	m.detachedMu.Lock()
	defer m.detachedMu.Unlock()
	if m.detached[s.ID] == s {
		delete(m.detached, s.ID)
	}
}

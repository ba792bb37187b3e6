package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"text-rpg/backend/internal/models"
	"text-rpg/backend/internal/player"
	"text-rpg/backend/internal/protocol"
	"text-rpg/backend/internal/world"
	"text-rpg/backend/pkg/logger"
)

// DefaultWindowSize is the number of trailing messages sent to the backend per turn
const DefaultWindowSize = 12

// OpeningMessageID identifies the seeded opening narration
const OpeningMessageID = "opening-narration"

var (
	// ErrTurnInFlight is returned when a message is sent while a turn is outstanding
	ErrTurnInFlight = errors.New("a turn is already in progress")
	// ErrEmptyMessage is returned for blank input
	ErrEmptyMessage = errors.New("message content is empty")
)

// Backend completes one chat turn
type Backend interface {
	Complete(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// Recorder persists messages as they are appended to the transcript
type Recorder interface {
	Record(ctx context.Context, sessionID string, msg models.Message) error
}

// Listener receives a state snapshot after every change
type Listener func(state models.ConversationState)

// Metrics receives turn telemetry
type Metrics interface {
	TurnCompleted(ctx context.Context, outcome string, duration time.Duration)
	ParseFailed(ctx context.Context)
}

// Turn outcomes reported to Metrics
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Options configures a Controller
type Options struct {
	SessionID  string
	WindowSize int
	Recorder   Recorder
	Listener   Listener
	Metrics    Metrics
	Logger     *logger.Logger
	// Now and NewID are overridable for tests
	Now   func() time.Time
	NewID func() string
}

// Snapshot is the persisted form of a session
type Snapshot struct {
	Messages []models.Message      `json:"messages"`
	Context  string                `json:"context"`
	Player   models.PlayerCharacter `json:"player"`
}

// Controller runs chat turns for one play session. It owns the conversation
// state and applies model-proposed changes to the player store.
type Controller struct {
	mu       sync.Mutex
	state    models.ConversationState
	inFlight bool

	player  *player.Store
	backend Backend
	opts    Options
	log     *logger.Logger
}

// NewController creates a controller seeded with the opening narration and
// the default situational context
func NewController(backend Backend, store *player.Store, opts Options) *Controller {
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	c := &Controller{
		player:  store,
		backend: backend,
		opts:    opts,
		log:     log.WithSessionID(opts.SessionID),
	}
	c.state = c.initialState()
	return c
}

func (c *Controller) initialState() models.ConversationState {
	return models.ConversationState{
		Messages: []models.Message{{
			ID:        OpeningMessageID,
			Role:      models.RoleAssistant,
			Segments:  append([]models.MessageSegment(nil), world.OpeningNarration...),
			Timestamp: c.opts.Now(),
		}},
		Context:      world.FormatContext(world.DefaultContext),
		SystemPrompt: world.DefaultSystemPrompt(),
	}
}

// SessionID returns the session this controller belongs to
func (c *Controller) SessionID() string {
	return c.opts.SessionID
}

// Player returns the session's player store
func (c *Controller) Player() *player.Store {
	return c.player
}

// State returns a copy of the current conversation state
func (c *Controller) State() models.ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyState(c.state)
}

// InFlight reports whether a turn is outstanding
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// SendMessage runs one turn. Backend and parse failures are recorded in the
// state rather than returned; only rejected input produces an error.
func (c *Controller) SendMessage(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	isAboveTable, clean := ParseAboveTable(content)

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	c.inFlight = true

	userMsg := c.newMessage(models.RoleUser, clean, nil, isAboveTable)
	c.state.Messages = append(c.state.Messages, userMsg)
	c.state.IsLoading = true
	c.state.Error = nil
	c.state.ParseError = nil

	playerInfo := player.FormatForPrompt(c.player.Player())
	req := models.ChatRequest{
		Messages:     Window(c.state.Messages, c.opts.WindowSize),
		Context:      c.state.Context,
		PlayerInfo:   playerInfo,
		IsAboveTable: isAboveTable,
	}
	c.state.SystemPrompt = world.BuildSystemPrompt(world.Options{
		Context:    world.Text(req.Context),
		PlayerInfo: playerInfo,
	})
	snapshot := copyState(c.state)
	c.mu.Unlock()

	c.notify(snapshot)
	c.record(ctx, userMsg)

	c.log.Info("Turn started",
		"above_table", isAboveTable,
		"window", len(req.Messages),
	)
	start := time.Now()

	resp, err := c.backend.Complete(ctx, req)

	c.mu.Lock()
	var (
		assistantMsg *models.Message
		outcome      = OutcomeOK
	)
	if err != nil {
		outcome = OutcomeFailed
		msg := err.Error()
		c.state.Error = &msg
	} else {
		assistantMsg, outcome = c.applyResponse(resp, isAboveTable)
	}
	c.state.IsLoading = false
	c.inFlight = false
	snapshot = copyState(c.state)
	c.mu.Unlock()

	elapsed := time.Since(start)
	if err != nil {
		c.log.LogError(err, "Turn failed", "duration_ms", elapsed.Milliseconds())
	} else {
		c.log.Info("Turn completed", "outcome", outcome, "duration_ms", elapsed.Milliseconds())
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.TurnCompleted(ctx, outcome, elapsed)
		if outcome == OutcomeDegraded {
			c.opts.Metrics.ParseFailed(ctx)
		}
	}

	c.notify(snapshot)
	if assistantMsg != nil {
		c.record(ctx, *assistantMsg)
	}
	return nil
}

// applyResponse folds a backend response into the state. Inventory changes are
// applied before player updates, and both before the assistant message is
// appended. Callers hold c.mu.
func (c *Controller) applyResponse(resp *models.ChatResponse, userAboveTable bool) (*models.Message, string) {
	raw := resp.Message
	c.state.LastRawResponse = &raw

	outcome := OutcomeOK
	result := protocol.Parse(raw)
	if result.Error != "" {
		outcome = OutcomeDegraded
		parseErr := result.Error
		c.state.ParseError = &parseErr
		c.log.Warn("Completion decoded with errors", "parse_error", parseErr)
	}

	if result.InventoryChanges != nil {
		c.player.ApplyInventoryChanges(*result.InventoryChanges)
	}
	if result.PlayerUpdates != nil {
		c.player.ApplyPlayerUpdates(*result.PlayerUpdates)
	}

	msg := c.newMessage(models.RoleAssistant, raw, result.Segments, userAboveTable || result.IsAboveTable)
	c.state.Messages = append(c.state.Messages, msg)

	if resp.Metadata != nil {
		info := *resp.Metadata
		c.state.DebugInfo = &info
	}
	return &msg, outcome
}

// SendRollResult reports a dice result back to the narrator as a user turn
func (c *Controller) SendRollResult(ctx context.Context, die models.Die, result int, modifier *int, reason string) error {
	return c.SendMessage(ctx, FormatRollResult(die, result, modifier, reason))
}

// SetContext replaces the situational context sent with each turn
func (c *Controller) SetContext(text string) {
	c.update(func(s *models.ConversationState) {
		s.Context = text
	})
}

// SetGameContext formats and stores a structured situational context
func (c *Controller) SetGameContext(gc world.GameContext) {
	c.SetContext(world.FormatContext(gc))
}

// SetSystemPrompt overrides the prompt shown in diagnostics
func (c *Controller) SetSystemPrompt(prompt string) {
	c.update(func(s *models.ConversationState) {
		s.SystemPrompt = prompt
	})
}

// ClearMessages empties the transcript and diagnostics
func (c *Controller) ClearMessages() {
	c.update(func(s *models.ConversationState) {
		s.Messages = []models.Message{}
		s.DebugInfo = nil
		s.LastRawResponse = nil
		s.ParseError = nil
		s.Error = nil
	})
}

// Snapshot captures what is needed to resume the session later
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Messages: append([]models.Message{}, c.state.Messages...),
		Context:  c.state.Context,
		Player:   c.player.Player(),
	}
}

// Restore resumes a session from a snapshot
func (c *Controller) Restore(snap Snapshot) {
	c.player.Restore(snap.Player)
	c.update(func(s *models.ConversationState) {
		s.Messages = append([]models.Message{}, snap.Messages...)
		s.Context = snap.Context
		s.IsLoading = false
		s.DebugInfo = nil
		s.LastRawResponse = nil
		s.ParseError = nil
		s.Error = nil
	})
}

func (c *Controller) update(fn func(s *models.ConversationState)) {
	c.mu.Lock()
	fn(&c.state)
	snapshot := copyState(c.state)
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Controller) newMessage(role models.Role, content string, segments []models.MessageSegment, aboveTable bool) models.Message {
	return models.Message{
		ID:           c.opts.NewID(),
		Role:         role,
		Content:      content,
		Segments:     segments,
		IsAboveTable: aboveTable,
		Timestamp:    c.opts.Now(),
	}
}

func (c *Controller) notify(state models.ConversationState) {
	if c.opts.Listener != nil {
		c.opts.Listener(state)
	}
}

func (c *Controller) record(ctx context.Context, msg models.Message) {
	if c.opts.Recorder == nil {
		return
	}
	if err := c.opts.Recorder.Record(ctx, c.opts.SessionID, msg); err != nil {
		c.log.LogError(err, "Failed to record message", "message_id", msg.ID)
	}
}

func copyState(s models.ConversationState) models.ConversationState {
	out := s
	out.Messages = append([]models.Message{}, s.Messages...)
	if s.DebugInfo != nil {
		info := *s.DebugInfo
		out.DebugInfo = &info
	}
	out.LastRawResponse = copyString(s.LastRawResponse)
	out.ParseError = copyString(s.ParseError)
	out.Error = copyString(s.Error)
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

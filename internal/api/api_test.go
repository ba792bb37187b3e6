package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text-rpg/backend/internal/conversation"
	"text-rpg/backend/internal/models"
	"text-rpg/backend/internal/session"
	apperrors "text-rpg/backend/pkg/errors"
	"text-rpg/backend/pkg/jwt"
	"text-rpg/backend/pkg/logger"
	"text-rpg/backend/pkg/middleware"
)

type fakeBackend struct {
	got  models.ChatRequest
	resp *models.ChatResponse
	err  error
}

func (f *fakeBackend) Complete(_ context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func doRequest(engine *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func newChatEngine(backend *fakeBackend) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/api/chat", NewChatHandler(backend, logger.Nop()).Chat)
	return engine
}

func TestChatRequiresMessagesArray(t *testing.T) {
	engine := newChatEngine(&fakeBackend{})

	for _, body := range []string{`{}`, `{"messages":null}`, `{"messages":"hi"}`, `{"messages":{}}`} {
		w := doRequest(engine, http.MethodPost, "/api/chat", body, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Messages array is required"}`, w.Body.String())
	}
}

func TestChatForwardsTurn(t *testing.T) {
	backend := &fakeBackend{resp: &models.ChatResponse{
		Message:  `{"segments":[]}`,
		Metadata: &models.DebugInfo{Model: "gpt-4.1", InputTokens: 10, OutputTokens: 5},
	}}
	engine := newChatEngine(backend)

	w := doRequest(engine, http.MethodPost, "/api/chat",
		`{"messages":[{"role":"user","content":"hi"}],"context":{"location":"The Glade"},"playerInfo":"NAME: Kira","isAboveTable":true}`, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"{\"segments\":[]}","metadata":{"model":"gpt-4.1","inputTokens":10,"outputTokens":5,"latencyMs":0}}`, w.Body.String())
	assert.Equal(t, []models.WireMessage{{Role: models.RoleUser, Content: "hi"}}, backend.got.Messages)
	assert.Contains(t, backend.got.Context, "The Glade")
	assert.Equal(t, "NAME: Kira", backend.got.PlayerInfo)
	assert.True(t, backend.got.IsAboveTable)
}

func TestChatStringContextAndNullMetadata(t *testing.T) {
	backend := &fakeBackend{resp: &models.ChatResponse{Message: "plain"}}
	engine := newChatEngine(backend)

	w := doRequest(engine, http.MethodPost, "/api/chat", `{"messages":[],"context":"CURRENT LOCATION: Cell"}`, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"plain","metadata":null}`, w.Body.String())
	assert.Equal(t, "CURRENT LOCATION: Cell", backend.got.Context)
}

func TestChatBackendFailure(t *testing.T) {
	engine := newChatEngine(&fakeBackend{err: errors.New("upstream down")})

	w := doRequest(engine, http.MethodPost, "/api/chat", `{"messages":[]}`, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

type sessionFixture struct {
	engine  *gin.Engine
	manager *session.Manager
	tokens  *jwt.Service
	backend *fakeBackend
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := &fakeBackend{resp: &models.ChatResponse{
		Message: `{"segments":[{"type":"narration","content":"The door creaks open."}]}`,
	}}
	manager := session.NewManager(session.Options{Backend: backend, IdleTTL: time.Hour})
	t.Cleanup(manager.Close)
	tokens := jwt.NewService("secret", time.Hour)

	engine := gin.New()
	engine.Use(apperrors.ErrorHandler())
	NewSessionHandler(manager, tokens, logger.Nop()).
		RegisterRoutes(engine.Group("/api"), middleware.SessionAuth(tokens, logger.Nop()))

	return &sessionFixture{engine: engine, manager: manager, tokens: tokens, backend: backend}
}

func (f *sessionFixture) create(t *testing.T) CreateSessionResponse {
	t.Helper()
	w := doRequest(f.engine, http.MethodPost, "/api/sessions", "", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestCreateSession(t *testing.T) {
	f := newSessionFixture(t)
	created := f.create(t)

	assert.NotEmpty(t, created.SessionID)
	_, err := f.tokens.ValidateForSession(created.Token, created.SessionID)
	assert.NoError(t, err)
	require.Len(t, created.State.Messages, 1)
	assert.Equal(t, "opening-narration", created.State.Messages[0].ID)
	assert.Empty(t, created.Player.Name)
}

func TestSessionRoutesRequireToken(t *testing.T) {
	f := newSessionFixture(t)
	created := f.create(t)
	other := f.create(t)

	w := doRequest(f.engine, http.MethodGet, "/api/sessions/"+created.SessionID, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(f.engine, http.MethodGet, "/api/sessions/"+created.SessionID, "", other.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(f.engine, http.MethodGet, "/api/sessions/"+created.SessionID, "", created.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendMessage(t *testing.T) {
	f := newSessionFixture(t)
	created := f.create(t)

	w := doRequest(f.engine, http.MethodPost, "/api/sessions/"+created.SessionID+"/messages",
		`{"content":"I push the door"}`, created.Token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.State.Messages, 3)
	assert.Equal(t, "I push the door", resp.State.Messages[1].Content)
	require.Len(t, resp.State.Messages[2].Segments, 1)
	assert.Equal(t, "The door creaks open.", resp.State.Messages[2].Segments[0].Content)
	assert.False(t, resp.State.IsLoading)

	w = doRequest(f.engine, http.MethodPost, "/api/sessions/"+created.SessionID+"/messages",
		`{"content":"   "}`, created.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_MESSAGE", errorCode(t, w))
}

func TestSendRoll(t *testing.T) {
	f := newSessionFixture(t)
	created := f.create(t)

	w := doRequest(f.engine, http.MethodPost, "/api/sessions/"+created.SessionID+"/rolls",
		`{"die":"d20","result":14,"modifier":2,"reason":"Climb"}`, created.Token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, f.backend.got.Messages)
	assert.Equal(t, "[Roll: d20 + 2 = 16] Climb", f.backend.got.Messages[len(f.backend.got.Messages)-1].Content)

	w = doRequest(f.engine, http.MethodPost, "/api/sessions/"+created.SessionID+"/rolls",
		`{"die":"d8","result":3}`, created.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DIE", errorCode(t, w))
}

func TestSetContextAndClear(t *testing.T) {
	f := newSessionFixture(t)
	created := f.create(t)
	path := "/api/sessions/" + created.SessionID

	w := doRequest(f.engine, http.MethodPut, path+"/context", `{"context":"CURRENT LOCATION: Cell"}`, created.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CURRENT LOCATION: Cell", resp.State.Context)

	w = doRequest(f.engine, http.MethodPut, path+"/context", `{"context":42}`, created.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(f.engine, http.MethodDelete, path+"/messages", "", created.Token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.State.Messages)
}

func TestPlayerRoutes(t *testing.T) {
	f := newSessionFixture(t)
	created := f.create(t)
	path := "/api/sessions/" + created.SessionID + "/player"

	w := doRequest(f.engine, http.MethodPut, path+"/name", `{"name":"  "}`, created.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_NAME", errorCode(t, w))

	w = doRequest(f.engine, http.MethodPut, path+"/name", `{"name":"Kira"}`, created.Token)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(f.engine, http.MethodGet, path, "", created.Token)
	var pc models.PlayerCharacter
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pc))
	assert.Equal(t, "Kira", pc.Name)

	w = doRequest(f.engine, http.MethodPost, path+"/reset", "", created.Token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pc))
	assert.Empty(t, pc.Name)
}

func TestTranscript(t *testing.T) {
	f := newSessionFixture(t)
	created := f.create(t)
	path := "/api/sessions/" + created.SessionID

	w := doRequest(f.engine, http.MethodPost, path+"/messages", `{"content":"Hello"}`, created.Token)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(f.engine, http.MethodGet, path+"/transcript?limit=1&offset=1", "", created.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp TranscriptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Limit)
	assert.Equal(t, 1, resp.Offset)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, models.RoleAssistant, resp.Messages[0].Role)
	require.Len(t, resp.Messages[0].Segments, 1)
	assert.Equal(t, "The door creaks open.", resp.Messages[0].Segments[0].Content)

	w = doRequest(f.engine, http.MethodGet, path+"/transcript?limit=0", "", created.Token)
	assert.Equal(t, "INVALID_LIMIT", errorCode(t, w))
}

func TestDeleteSession(t *testing.T) {
	f := newSessionFixture(t)
	created := f.create(t)
	path := "/api/sessions/" + created.SessionID

	w := doRequest(f.engine, http.MethodDelete, path, "", created.Token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(f.engine, http.MethodGet, path, "", created.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, w))
}

type downSnapshots struct{}

func (downSnapshots) Save(context.Context, string, conversation.Snapshot) error { return nil }
func (downSnapshots) Load(context.Context, string) (*conversation.Snapshot, error) {
	return nil, errors.New("dial tcp: connection refused")
}
func (downSnapshots) Delete(context.Context, string) error { return nil }

func TestSessionStoreUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := session.NewManager(session.Options{Backend: &fakeBackend{}, Snapshots: downSnapshots{}, IdleTTL: time.Hour})
	t.Cleanup(manager.Close)
	tokens := jwt.NewService("secret", time.Hour)

	engine := gin.New()
	engine.Use(apperrors.ErrorHandler())
	NewSessionHandler(manager, tokens, logger.Nop()).
		RegisterRoutes(engine.Group("/api"), middleware.SessionAuth(tokens, logger.Nop()))

	token, err := tokens.GenerateToken("evicted-session")
	require.NoError(t, err)

	w := doRequest(engine, http.MethodGet, "/api/sessions/evicted-session", "", token)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SESSION_UNAVAILABLE", errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "connection refused")
}

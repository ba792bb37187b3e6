package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text-rpg/backend/internal/models"
	"text-rpg/backend/internal/session"
	"text-rpg/backend/internal/ws"
	"text-rpg/backend/pkg/config"
	"text-rpg/backend/pkg/di"
	"text-rpg/backend/pkg/health"
	"text-rpg/backend/pkg/jwt"
	"text-rpg/backend/pkg/logger"
)

type stubBackend struct{}

func (stubBackend) Complete(context.Context, models.ChatRequest) (*models.ChatResponse, error) {
	return &models.ChatResponse{Message: `{"segments":[{"type":"narration","content":"Quiet."}]}`}, nil
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Load()
	cfg.Security.AllowedOrigins = []string{"http://localhost:3000"}
	log := logger.Nop()
	hub := ws.NewHub(log)
	sessions := session.NewManager(session.Options{
		Backend: stubBackend{},
		IdleTTL: time.Hour,
		OnState: hub.PublishState,
	})
	t.Cleanup(sessions.Close)

	container := &di.Container{
		Config:         cfg,
		Logger:         log,
		JWTService:     jwt.NewService("secret", time.Hour),
		Backend:        stubBackend{},
		MetricsHandler: promhttp.Handler(),
		Sessions:       sessions,
		Hub:            hub,
		Health:         health.NewChecker(log, time.Minute),
	}

	r := New(container)
	r.SetupRoutes()
	return r
}

func serve(r *Router, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

func TestHealthRoute(t *testing.T) {
	r := newTestRouter(t)
	r.Container.Health.RunChecks(context.Background())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body["components"], "self")
}

func TestHealthRouteReportsCriticalFailure(t *testing.T) {
	r := newTestRouter(t)
	r.Container.Health.RegisterCheck("redis", true, func(context.Context) (health.Status, string, error) {
		return health.StatusDown, "unreachable", nil
	})
	r.Container.Health.RunChecks(context.Background())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := serve(r, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatRoute(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Quiet.")

	req = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Messages array is required"}`, w.Body.String())
}

func TestSessionFlowThroughRouter(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		SessionID string `json:"sessionId"`
		Token     string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+created.SessionID+"/messages", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+created.Token)
	w = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")

	req = httptest.NewRequest(http.MethodPost, "/api/sessions/"+created.SessionID+"/messages", strings.NewReader(`{"content":"Look around"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+created.Token)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Quiet.")
}

func TestDocsAndMetricsRoutes(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/docs/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text-rpg/backend/pkg/config"
)

const kvResponse = `{
  "request_id": "1",
  "lease_id": "",
  "renewable": false,
  "lease_duration": 0,
  "data": {
    "data": {"openai-api-key": "sk-from-vault"},
    "metadata": {
      "created_time": "2018-03-22T02:24:06.945319214Z",
      "custom_metadata": null,
      "deletion_time": "",
      "destroyed": false,
      "version": 1
    }
  }
}`

func newTestVault(t *testing.T, handler http.HandlerFunc) *VaultManager {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := vault.DefaultConfig()
	cfg.Address = srv.URL
	cfg.MaxRetries = 0
	client, err := vault.NewClient(cfg)
	require.NoError(t, err)
	client.SetToken("test")

	m := newVaultManager(client, "secret", "text-rpg", nil)
	t.Cleanup(m.Close)
	return m
}

func TestEnvManager(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	m := EnvManager{}
	v, err := m.GetSecret(context.Background(), "openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", v)

	_, err = m.GetSecret(context.Background(), "missing.key")
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "fallback", m.GetSecretWithDefault(context.Background(), "missing.key", "fallback"))
}

func TestNewManagerWithoutVault(t *testing.T) {
	cfg := config.Load()
	cfg.Vault.Enabled = false

	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, EnvManager{}, m)
}

func TestNewManagerRequiresToken(t *testing.T) {
	cfg := config.Load()
	cfg.Vault.Enabled = true
	cfg.Vault.Token = ""

	_, err := NewManager(cfg, nil)
	assert.ErrorIs(t, err, ErrNoVaultToken)
}

func TestVaultManagerReadsAndCaches(t *testing.T) {
	var calls int32
	m := newTestVault(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/secret/data/text-rpg", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(kvResponse))
	})

	for i := 0; i < 3; i++ {
		v, err := m.GetSecret(context.Background(), "openai-api-key")
		require.NoError(t, err)
		assert.Equal(t, "sk-from-vault", v)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestVaultManagerFallsBackToEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	m := newTestVault(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[]}`))
	})

	v, err := m.GetSecret(context.Background(), "openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", v)
}

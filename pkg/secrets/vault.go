package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"

	"text-rpg/backend/pkg/cache"
	"text-rpg/backend/pkg/config"
	"text-rpg/backend/pkg/logger"
)

const cacheTTL = 5 * time.Minute

// VaultManager reads secrets from a KV v2 mount, falling back to the environment
type VaultManager struct {
	client     *vault.Client
	mountPath  string
	secretPath string
	cache      *cache.Cache[string]
	env        EnvManager
	log        *logger.Logger
}

// NewVaultManager creates a new Vault manager instance
func NewVaultManager(cfg *config.Config, log *logger.Logger) (*VaultManager, error) {
	if cfg.Vault.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if cfg.Vault.Token == "" {
		return nil, ErrNoVaultToken
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Vault.Address
	vaultConfig.Timeout = 10 * time.Second
	vaultConfig.MaxRetries = 3

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Vault.Token)

	return newVaultManager(client, cfg.Vault.MountPath, cfg.Vault.SecretPath, log), nil
}

func newVaultManager(client *vault.Client, mountPath, secretPath string, log *logger.Logger) *VaultManager {
	if log == nil {
		log = logger.Nop()
	}
	return &VaultManager{
		client:     client,
		mountPath:  mountPath,
		secretPath: secretPath,
		cache:      cache.New[string](cache.Options{TTL: cacheTTL, CleanupInterval: cacheTTL}),
		log:        log,
	}
}

// GetSecret retrieves a secret from Vault, with fallback to environment variable
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	if value, found := m.cache.Get(key); found {
		return value, nil
	}

	value, err := m.getFromVault(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			m.log.Warn("Secret not found in Vault, falling back to environment", "key", key)
			return m.env.GetSecret(ctx, key)
		}
		return "", err
	}

	m.cache.Set(key, value)
	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		m.log.Warn("Failed to get secret, using default value",
			"key", key,
			"error", err.Error(),
		)
		return defaultValue
	}
	return value
}

// Close stops the cache janitor
func (m *VaultManager) Close() {
	m.cache.Close()
}

func (m *VaultManager) getFromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.client.KVv2(m.mountPath).Get(ctx, m.secretPath)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", ErrSecretNotFound
		}
		m.log.Error("Failed to read secret from Vault",
			"path", m.secretPath,
			"error", err.Error(),
		)
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	value, ok := secret.Data[key].(string)
	if !ok {
		return "", ErrSecretNotFound
	}
	return value, nil
}

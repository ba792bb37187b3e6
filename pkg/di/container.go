package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"text-rpg/backend/internal/ai"
	"text-rpg/backend/internal/conversation"
	"text-rpg/backend/internal/session"
	"text-rpg/backend/internal/ws"
	"text-rpg/backend/pkg/config"
	"text-rpg/backend/pkg/health"
	"text-rpg/backend/pkg/jwt"
	"text-rpg/backend/pkg/logger"
	"text-rpg/backend/pkg/observability"
	"text-rpg/backend/pkg/resilience"
	"text-rpg/backend/pkg/secrets"
)

const healthCheckPeriod = 30 * time.Second

// Container holds all the dependencies for the application
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	// DB and Redis are nil when their backing store is disabled
	DB    *gorm.DB
	Redis *redis.Client

	Secrets        secrets.Manager
	JWTService     *jwt.Service
	Backend        conversation.Backend
	Breaker        *resilience.CircuitBreaker
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	Sessions       *session.Manager
	Hub            *ws.Hub
	Health         *health.Checker

	closers []func()
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	c := &Container{
		Config:     cfg,
		Logger:     log,
		JWTService: jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry),
		Health:     health.NewChecker(log, healthCheckPeriod),
	}

	if err := c.initStores(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initMetrics(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initBackend(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initSessions(); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) initStores(ctx context.Context) error {
	if c.Config.Database.Enabled {
		db, err := config.NewDB(c.Config)
		if err != nil {
			return err
		}
		c.DB = db
		c.closers = append(c.closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
		c.Health.RegisterPingCheck("database", true, func(ctx context.Context) error {
			return config.TestConnection(ctx, db)
		})
		c.Logger.Info("Transcript database connected", "host", c.Config.Database.Host)
	}

	if c.Config.Redis.Enabled {
		rdb, err := config.NewRedis(ctx, c.Config)
		if err != nil {
			return err
		}
		c.Redis = rdb
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		c.Health.RegisterPingCheck("redis", true, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		c.Logger.Info("Snapshot store connected", "addr", c.Config.Redis.Addr)
	}

	sm, err := secrets.NewManager(c.Config, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create secrets manager: %w", err)
	}
	c.Secrets = sm
	if closer, ok := sm.(interface{ Close() }); ok {
		c.closers = append(c.closers, closer.Close)
	}
	return nil
}

func (c *Container) initMetrics() error {
	mp, handler, err := observability.SetupMetrics(c.Config.Observability.ServiceName)
	if err != nil {
		return err
	}
	metrics, err := observability.NewMetrics(mp)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	c.Metrics = metrics
	c.MetricsHandler = handler
	c.closers = append(c.closers, func() { _ = mp.Shutdown(context.Background()) })
	return nil
}

// initBackend uses the remote chat endpoint when configured and the
// in-process model service otherwise
func (c *Container) initBackend(ctx context.Context) error {
	client := &http.Client{Timeout: c.Config.LLM.Timeout}

	if endpoint := c.Config.Chat.RemoteEndpoint; endpoint != "" {
		c.Backend = ai.NewHTTPClient(client, endpoint)
		c.Logger.Info("Using remote chat endpoint", "endpoint", endpoint)
		return nil
	}

	provider, err := ai.NewProvider(ctx, c.Config, c.Secrets, client)
	if err != nil {
		return fmt.Errorf("failed to create model provider: %w", err)
	}

	c.Breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("llm-"+provider.Name()), c.Logger)
	c.Health.RegisterBreakerCheck("llm", c.Breaker)
	c.Backend = ai.NewService(provider, ai.ServiceOptions{
		Breaker: c.Breaker,
		Metrics: c.Metrics,
		Timeout: c.Config.LLM.Timeout,
		Logger:  c.Logger,
	})
	c.Logger.Info("Using model provider", "provider", provider.Name(), "model", c.Config.LLM.Model)
	return nil
}

func (c *Container) initSessions() error {
	c.Hub = ws.NewHub(c.Logger)

	opts := session.Options{
		Backend:         c.Backend,
		Metrics:         c.Metrics,
		WindowSize:      c.Config.Session.WindowSize,
		IdleTTL:         c.Config.Session.IdleTTL,
		MaxSessions:     c.Config.Session.MaxSessions,
		CleanupInterval: c.Config.Session.PurgeWindow,
		OnState:         c.Hub.PublishState,
		Logger:          c.Logger,
	}
	if c.Redis != nil {
		opts.Snapshots = session.NewRedisSnapshotStore(c.Redis, c.Config.Session.SnapshotTTL)
	} else {
		store := session.NewMemorySnapshotStore(c.Config.Session.SnapshotTTL)
		c.closers = append(c.closers, store.Close)
		opts.Snapshots = store
	}
	if c.DB != nil {
		repo, err := session.NewGormTranscriptRepository(c.DB)
		if err != nil {
			return err
		}
		opts.Transcripts = repo
	}

	c.Sessions = session.NewManager(opts)
	c.Health.RegisterCheck("sessions", false, func(context.Context) (health.Status, string, error) {
		return health.StatusUp, fmt.Sprintf("%d live sessions", c.Sessions.Count()), nil
	})
	return nil
}

// Close snapshots live sessions and releases every backing store
func (c *Container) Close() {
	if c.Sessions != nil {
		c.Sessions.Close()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"text-rpg/backend/internal/models"
	"text-rpg/backend/internal/world"
	"text-rpg/backend/pkg/config"
	"text-rpg/backend/pkg/logger"
	"text-rpg/backend/pkg/middleware"
	"text-rpg/backend/pkg/observability"
	"text-rpg/backend/pkg/resilience"
	"text-rpg/backend/pkg/secrets"
)

// ServiceOptions configures a Service
type ServiceOptions struct {
	Breaker *resilience.CircuitBreaker
	Metrics *observability.Metrics
	// Timeout bounds a single provider call; zero leaves it to the caller
	Timeout time.Duration
	Logger  *logger.Logger
}

// Service assembles the system prompt for a chat request and asks the
// provider for a completion
type Service struct {
	provider Provider
	breaker  *resilience.CircuitBreaker
	metrics  *observability.Metrics
	timeout  time.Duration
	tracer   trace.Tracer
	log      *logger.Logger
}

// NewService creates a chat service on top of a provider
func NewService(provider Provider, opts ServiceOptions) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("llm-"+provider.Name()), log)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &Service{
		provider: provider,
		breaker:  breaker,
		metrics:  metrics,
		timeout:  opts.Timeout,
		tracer:   otel.Tracer("text-rpg/backend/internal/ai"),
		log:      log,
	}
}

// Breaker exposes the circuit breaker guarding the provider
func (s *Service) Breaker() *resilience.CircuitBreaker {
	return s.breaker
}

// Complete answers one chat turn
func (s *Service) Complete(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	prompt := world.BuildSystemPrompt(world.Options{
		Context:    world.Text(req.Context),
		PlayerInfo: req.PlayerInfo,
	})

	messages := make([]models.WireMessage, 0, len(req.Messages)+1)
	messages = append(messages, models.WireMessage{Role: models.RoleSystem, Content: prompt})
	messages = append(messages, req.Messages...)

	ctx, span := s.tracer.Start(ctx, "ai.Complete", trace.WithAttributes(
		attribute.String("llm.provider", s.provider.Name()),
		attribute.Int("llm.messages", len(messages)),
		attribute.Bool("rpg.above_table", req.IsAboveTable),
	))
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	var completion *Completion
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var genErr error
		completion, genErr = s.provider.Generate(ctx, messages)
		return genErr
	})
	latency := time.Since(start)

	if err != nil {
		outcome := "error"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			outcome = "rejected"
		}
		s.metrics.BackendCall(ctx, s.provider.Name(), outcome, latency, 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.LogError(err, "Completion failed",
			"provider", s.provider.Name(),
			"latency_ms", latency.Milliseconds(),
			"request_id", middleware.GetRequestID(ctx),
		)
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	s.metrics.BackendCall(ctx, s.provider.Name(), "ok", latency, completion.InputTokens, completion.OutputTokens)
	span.SetAttributes(
		attribute.String("llm.model", completion.Model),
		attribute.Int("llm.input_tokens", completion.InputTokens),
		attribute.Int("llm.output_tokens", completion.OutputTokens),
	)

	return &models.ChatResponse{
		Message: completion.Content,
		Metadata: &models.DebugInfo{
			Model:        completion.Model,
			InputTokens:  completion.InputTokens,
			OutputTokens: completion.OutputTokens,
			LatencyMs:    latency.Milliseconds(),
		},
	}, nil
}

// NewProvider picks the provider from configuration. The OpenAI key is read
// through the secrets manager, falling back to OPENAI_API_KEY.
func NewProvider(ctx context.Context, cfg *config.Config, sm secrets.Manager, client *http.Client) (Provider, error) {
	if cfg.LLM.UseLocalModel || cfg.LLM.Provider == "local" {
		return NewLocalProvider(client, cfg.LLM.LocalModelURL, cfg.LLM.Model)
	}

	apiKey := cfg.LLM.APIKey
	if sm != nil {
		apiKey = sm.GetSecretWithDefault(ctx, "openai-api-key", apiKey)
	}
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return NewOpenAIProvider(client, OpenAIConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      apiKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	}), nil
}

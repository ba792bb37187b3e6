package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ActiveSessions tracks the play sessions currently held in memory
var ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "rpg_sessions_active",
	Help: "Number of play sessions held in memory",
})

// Metrics records chat turn and backend telemetry
type Metrics struct {
	turns          otelmetric.Int64Counter
	turnDuration   otelmetric.Float64Histogram
	parseFailures  otelmetric.Int64Counter
	backendCalls   otelmetric.Int64Counter
	backendLatency otelmetric.Float64Histogram
	tokens         otelmetric.Int64Counter
}

// NewMetrics creates the instruments on the given meter provider
func NewMetrics(mp otelmetric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("text-rpg/backend")
	m := &Metrics{}

	var err error
	if m.turns, err = meter.Int64Counter("rpg_turns_total",
		otelmetric.WithDescription("Chat turns by outcome")); err != nil {
		return nil, err
	}
	if m.turnDuration, err = meter.Float64Histogram("rpg_turn_duration_seconds",
		otelmetric.WithDescription("Wall time of a chat turn"),
		otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.parseFailures, err = meter.Int64Counter("rpg_parse_failures_total",
		otelmetric.WithDescription("Completions that could not be fully decoded")); err != nil {
		return nil, err
	}
	if m.backendCalls, err = meter.Int64Counter("rpg_backend_calls_total",
		otelmetric.WithDescription("Model backend calls by provider and outcome")); err != nil {
		return nil, err
	}
	if m.backendLatency, err = meter.Float64Histogram("rpg_backend_latency_seconds",
		otelmetric.WithDescription("Model backend latency"),
		otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.tokens, err = meter.Int64Counter("rpg_backend_tokens_total",
		otelmetric.WithDescription("Tokens reported by the model backend")); err != nil {
		return nil, err
	}
	return m, nil
}

// NopMetrics returns metrics that record nothing
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// TurnCompleted records one finished turn
func (m *Metrics) TurnCompleted(ctx context.Context, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	m.turns.Add(ctx, 1, attrs)
	m.turnDuration.Record(ctx, duration.Seconds(), attrs)
}

// ParseFailed records a completion that degraded during decoding
func (m *Metrics) ParseFailed(ctx context.Context) {
	m.parseFailures.Add(ctx, 1)
}

// BackendCall records one call to a model provider
func (m *Metrics) BackendCall(ctx context.Context, provider, outcome string, duration time.Duration, inputTokens, outputTokens int) {
	attrs := otelmetric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	)
	m.backendCalls.Add(ctx, 1, attrs)
	m.backendLatency.Record(ctx, duration.Seconds(), attrs)

	if inputTokens > 0 {
		m.tokens.Add(ctx, int64(inputTokens), otelmetric.WithAttributes(
			attribute.String("provider", provider), attribute.String("direction", "input")))
	}
	if outputTokens > 0 {
		m.tokens.Add(ctx, int64(outputTokens), otelmetric.WithAttributes(
			attribute.String("provider", provider), attribute.String("direction", "output")))
	}
}

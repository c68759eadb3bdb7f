// Package observe provides the observability primitives for VidPilot:
// OpenTelemetry metrics, tracing, trace-aware logging, and the HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported to
// Prometheus by [Setup]. [DefaultMetrics] uses the global provider;
// tests should call [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/SAZZAD-404/vidpilot"

// Metrics holds all OpenTelemetry instruments for the application.
type Metrics struct {
	// GenerationDuration tracks end-to-end generation latency. Attributes:
	// kind, provider, outcome.
	GenerationDuration metric.Float64Histogram

	// ProviderDuration tracks the latency of a single provider attempt.
	// Attributes: chain, provider.
	ProviderDuration metric.Float64Histogram

	// ProviderAttempts counts provider attempts. Attributes: chain,
	// provider, result.
	ProviderAttempts metric.Int64Counter

	// ProviderErrors counts attempts that did not succeed. Attributes:
	// chain, provider, result.
	ProviderErrors metric.Int64Counter

	// LocalFallbacks counts generations served by the local generator.
	// Attribute: kind.
	LocalFallbacks metric.Int64Counter

	// CreditsConsumed counts credits debited. Attribute: kind.
	CreditsConsumed metric.Int64Counter

	// CreditsRejected counts requests refused for lack of credits.
	CreditsRejected metric.Int64Counter

	// ActiveGenerations tracks in-flight generations.
	ActiveGenerations metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	// method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are in seconds and sized for LLM and TTS round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90, 120,
}

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GenerationDuration, err = m.Float64Histogram("vidpilot.generation.duration",
		metric.WithDescription("End-to-end latency of a generation request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("vidpilot.provider.duration",
		metric.WithDescription("Latency of a single provider attempt."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderAttempts, err = m.Int64Counter("vidpilot.provider.attempts",
		metric.WithDescription("Provider attempts by chain, provider and result."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("vidpilot.provider.errors",
		metric.WithDescription("Failed provider attempts by chain, provider and result."),
	); err != nil {
		return nil, err
	}
	if met.LocalFallbacks, err = m.Int64Counter("vidpilot.fallback.local",
		metric.WithDescription("Generations served by the local generator."),
	); err != nil {
		return nil, err
	}
	if met.CreditsConsumed, err = m.Int64Counter("vidpilot.credits.consumed",
		metric.WithDescription("Credits debited by generation kind."),
	); err != nil {
		return nil, err
	}
	if met.CreditsRejected, err = m.Int64Counter("vidpilot.credits.rejected",
		metric.WithDescription("Requests refused because the user had no credits left."),
	); err != nil {
		return nil, err
	}
	if met.ActiveGenerations, err = m.Int64UpDownCounter("vidpilot.generations.active",
		metric.WithDescription("Generations currently in flight."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("vidpilot.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. It panics if instrument creation
// fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordAttempt records one provider attempt. Any result other than
// "success" also increments [Metrics.ProviderErrors].
func (m *Metrics) RecordAttempt(ctx context.Context, chain, provider, result string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("chain", chain),
		attribute.String("provider", provider),
		attribute.String("result", result),
	)
	m.ProviderAttempts.Add(ctx, 1, attrs)
	if result != "success" {
		m.ProviderErrors.Add(ctx, 1, attrs)
	}
	m.ProviderDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("chain", chain),
		attribute.String("provider", provider),
	))
}

// RecordGeneration records the end-to-end duration of one generation.
func (m *Metrics) RecordGeneration(ctx context.Context, kind, provider, outcome string, d time.Duration) {
	m.GenerationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// RecordFallback counts a generation served locally.
func (m *Metrics) RecordFallback(ctx context.Context, kind string) {
	m.LocalFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordCreditConsumed counts one debited credit.
func (m *Metrics) RecordCreditConsumed(ctx context.Context, kind string) {
	m.CreditsConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordCreditRejected counts one request refused for lack of credits.
func (m *Metrics) RecordCreditRejected(ctx context.Context) {
	m.CreditsRejected.Add(ctx, 1)
}

// Package metrics records classification counters and latency with OpenTelemetry.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/sdeoras/cropguard"

// Recorder holds the instruments. A nil *Recorder records nothing.
type Recorder struct {
	recommendations metric.Int64Counter
	failures        metric.Int64Counter
	latency         metric.Int64Histogram
	speedup         metric.Float64Histogram
}

// New creates the instruments on mp, or on the global provider when mp is nil.
func New(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	recommendations, err := meter.Int64Counter("cropguard.recommendations",
		metric.WithDescription("Recommendations produced, by label and status"))
	if err != nil {
		return nil, fmt.Errorf("recommendations counter: %w", err)
	}

	failures, err := meter.Int64Counter("cropguard.failures",
		metric.WithDescription("Failed classification requests, by stage"))
	if err != nil {
		return nil, fmt.Errorf("failures counter: %w", err)
	}

	latency, err := meter.Int64Histogram("cropguard.inference.latency",
		metric.WithDescription("Observed model latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("latency histogram: %w", err)
	}

	speedup, err := meter.Float64Histogram("cropguard.inference.simulated_speedup",
		metric.WithDescription("Simulated accelerator speedup ratio"))
	if err != nil {
		return nil, fmt.Errorf("speedup histogram: %w", err)
	}

	return &Recorder{
		recommendations: recommendations,
		failures:        failures,
		latency:         latency,
		speedup:         speedup,
	}, nil
}

// Recommendation records one successful request.
func (r *Recorder) Recommendation(ctx context.Context, label, status string, latencyMs int64, speedup float64) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("label", label),
		attribute.String("status", status),
	)
	r.recommendations.Add(ctx, 1, attrs)
	r.latency.Record(ctx, latencyMs, metric.WithAttributes(attribute.String("label", label)))
	r.speedup.Record(ctx, speedup)
}

// Failure records a request that failed at stage.
func (r *Recorder) Failure(ctx context.Context, stage string) {
	if r == nil {
		return
	}
	r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

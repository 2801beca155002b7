// Package telemetry provides OpenTelemetry metric instruments for the order desk.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FeedMeterName is the name used for the polling feed meter
	FeedMeterName = "github.com/vaidashi/order-status-sync/feed"

	// StatusMeterName is the name used for the status transition meter
	StatusMeterName = "github.com/vaidashi/order-status-sync/status"
)

// Poll outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeDiscarded = "discarded"
)

// FeedMetrics holds the instruments for the polling feed
type FeedMetrics struct {
	pollDuration metric.Float64Histogram
}

// NewFeedMetrics creates a new FeedMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewFeedMetrics(provider metric.MeterProvider) (*FeedMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FeedMeterName)

	pollDuration, err := meter.Float64Histogram(
		"orderdesk_feed_poll_duration_seconds",
		metric.WithDescription("Duration of order feed queries in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}

	return &FeedMetrics{
		pollDuration: pollDuration,
	}, nil
}

// RecordPoll records one feed query
func (m *FeedMetrics) RecordPoll(ctx context.Context, duration time.Duration, outcome string) {
	if m == nil || m.pollDuration == nil {
		return
	}

	m.pollDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// StatusMetrics holds the instruments for status transitions
type StatusMetrics struct {
	transitions  metric.Int64Counter
	propagations metric.Int64Counter
}

// NewStatusMetrics creates a new StatusMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewStatusMetrics(provider metric.MeterProvider) (*StatusMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(StatusMeterName)

	transitions, err := meter.Int64Counter(
		"orderdesk_status_transitions_total",
		metric.WithDescription("Order status writes that succeeded"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	propagations, err := meter.Int64Counter(
		"orderdesk_tracking_propagations_total",
		metric.WithDescription("Tracking propagation attempts by outcome"),
		metric.WithUnit("{propagation}"),
	)
	if err != nil {
		return nil, err
	}

	return &StatusMetrics{
		transitions:  transitions,
		propagations: propagations,
	}, nil
}

// RecordTransition counts a successful order status write
func (m *StatusMetrics) RecordTransition(ctx context.Context, status string) {
	if m == nil || m.transitions == nil {
		return
	}

	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordPropagation counts a tracking propagation by outcome
func (m *StatusMetrics) RecordPropagation(ctx context.Context, outcome string) {
	if m == nil || m.propagations == nil {
		return
	}

	m.propagations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

package es

import (
	"context"

	"github.com/codewandler/iam-go/core/metrics"
)

// ESMetrics defines the metrics interface for the event sourcing kernel.
// Implementations must be safe for concurrent use.
type ESMetrics interface {
	// Store operations
	StoreLoadDuration(aggType string) metrics.Timer
	StoreAppendDuration(aggType string) metrics.Timer
	EventsAppended(aggType string, count int)

	// Repository operations
	RepoLoadDuration(aggType string) metrics.Timer
	RepoSaveDuration(aggType string) metrics.Timer
	ConcurrencyConflict(aggType string)

	// Consumer
	ConsumerEventDuration(eventType string, live bool) metrics.Timer
	ConsumerEventProcessed(eventType string, live bool, success bool)
	ConsumerLag(consumer string, lag int64)
}

type nopESMetrics struct{}

func (nopESMetrics) StoreLoadDuration(string) metrics.Timer   { return metrics.NopTimer() }
func (nopESMetrics) StoreAppendDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopESMetrics) EventsAppended(string, int)               {}

func (nopESMetrics) RepoLoadDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopESMetrics) RepoSaveDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopESMetrics) ConcurrencyConflict(string)            {}

func (nopESMetrics) ConsumerEventDuration(string, bool) metrics.Timer { return metrics.NopTimer() }
func (nopESMetrics) ConsumerEventProcessed(string, bool, bool)        {}
func (nopESMetrics) ConsumerLag(string, int64)                        {}

// NopESMetrics returns a no-op ESMetrics implementation.
func NopESMetrics() ESMetrics { return nopESMetrics{} }

// ESMetricsOption sets the metrics for ES components.
type ESMetricsOption struct{ m ESMetrics }

// WithMetrics sets the metrics implementation for ES components.
func WithMetrics(m ESMetrics) ESMetricsOption { return ESMetricsOption{m: m} }

func (o ESMetricsOption) applyToEnv(e *envOptions)            { e.metrics = o.m }
func (o ESMetricsOption) applyToRepository(r *repoOpts)       { r.metrics = o.m }
func (o ESMetricsOption) applyToConsumerOpts(c *consumerOpts) { c.metrics = o.m }

// === instrumented store ===

type instrumentedStore struct {
	EventStore
	m ESMetrics
}

// InstrumentStore records load and append timings of s on m.
func InstrumentStore(s EventStore, m ESMetrics) EventStore {
	return &instrumentedStore{EventStore: s, m: m}
}

func (s *instrumentedStore) Load(ctx context.Context, aggType, aggID string, opts ...StoreLoadOption) ([]Envelope, error) {
	defer s.m.StoreLoadDuration(aggType).ObserveDuration()
	return s.EventStore.Load(ctx, aggType, aggID, opts...)
}

func (s *instrumentedStore) Append(
	ctx context.Context,
	aggType string,
	aggID string,
	expectedVersion Version,
	events []Envelope,
) (*StoreAppendResult, error) {
	defer s.m.StoreAppendDuration(aggType).ObserveDuration()
	res, err := s.EventStore.Append(ctx, aggType, aggID, expectedVersion, events)
	if err == nil {
		s.m.EventsAppended(aggType, len(events))
	}
	return res, err
}

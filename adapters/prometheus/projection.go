package prometheus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam/projection"
)

// ProjectionSignals counts projection outcomes per aggregate and event type.
type ProjectionSignals struct {
	events *prometheus.CounterVec
	gap    *prometheus.HistogramVec
}

func NewProjectionSignals(reg prometheus.Registerer) *ProjectionSignals {
	s := &ProjectionSignals{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "projection",
			Name:      "events_total",
			Help:      "Events received by the read model projection",
		}, []string{"aggregate_type", "event_type", "handled"}),
		gap: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "projection",
			Name:      "version_gap",
			Help:      "Distance between expected and actual read entity version of rejected events",
			Buckets:   []float64{1, 2, 5, 10, 50, 100},
		}, []string{"aggregate_type"}),
	}
	reg.MustRegister(s.events, s.gap)
	return s
}

func (s *ProjectionSignals) EventHandled(_ context.Context, env es.Envelope) {
	s.events.WithLabelValues(env.AggregateType, env.Type, "true").Inc()
}

func (s *ProjectionSignals) EventNotHandled(_ context.Context, env es.Envelope, expected, actual es.Version) {
	s.events.WithLabelValues(env.AggregateType, env.Type, "false").Inc()
	gap := float64(expected) - float64(actual)
	if gap < 0 {
		gap = -gap
	}
	s.gap.WithLabelValues(env.AggregateType).Observe(gap)
}

var _ projection.Signals = (*ProjectionSignals)(nil)

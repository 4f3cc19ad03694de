// Package prometheus provides Prometheus implementations of the event store
// metrics and the projection signals.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/iam-go/core/metrics"
)

const namespace = "iam"

// timer wraps a Prometheus histogram to implement the Timer interface.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// Metrics bundles every collector of the service.
type Metrics struct {
	ES         *ESMetrics
	Projection *ProjectionSignals
}

// NewMetrics registers all collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ES:         NewESMetrics(reg),
		Projection: NewProjectionSignals(reg),
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

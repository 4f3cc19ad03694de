package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/metrics"
)

// ESMetrics implements es.ESMetrics.
type ESMetrics struct {
	storeLoadDuration   *prometheus.HistogramVec
	storeAppendDuration *prometheus.HistogramVec
	eventsAppended      *prometheus.CounterVec

	repoLoadDuration     *prometheus.HistogramVec
	repoSaveDuration     *prometheus.HistogramVec
	concurrencyConflicts *prometheus.CounterVec

	consumerEventDuration *prometheus.HistogramVec
	consumerEvents        *prometheus.CounterVec
	consumerLag           *prometheus.GaugeVec
}

func NewESMetrics(reg prometheus.Registerer) *ESMetrics {
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "es",
			Name:      name,
			Help:      help,
			Buckets:   defaultBuckets,
		}, labels)
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "es",
			Name:      name,
			Help:      help,
		}, labels)
	}

	m := &ESMetrics{
		storeLoadDuration:     histogram("store_load_duration_seconds", "Event store load latency in seconds", "aggregate_type"),
		storeAppendDuration:   histogram("store_append_duration_seconds", "Event store append latency in seconds", "aggregate_type"),
		eventsAppended:        counter("events_appended_total", "Total number of events appended", "aggregate_type"),
		repoLoadDuration:      histogram("repo_load_duration_seconds", "Repository load latency in seconds", "aggregate_type"),
		repoSaveDuration:      histogram("repo_save_duration_seconds", "Repository save latency in seconds", "aggregate_type"),
		concurrencyConflicts:  counter("concurrency_conflicts_total", "Total number of optimistic concurrency failures", "aggregate_type"),
		consumerEventDuration: histogram("consumer_event_duration_seconds", "Event processing time in seconds", "event_type", "live"),
		consumerEvents:        counter("consumer_events_total", "Total number of events processed", "event_type", "live", "success"),
		consumerLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "es",
			Name:      "consumer_lag",
			Help:      "Consumer lag (sequences behind)",
		}, []string{"consumer"}),
	}

	reg.MustRegister(
		m.storeLoadDuration,
		m.storeAppendDuration,
		m.eventsAppended,
		m.repoLoadDuration,
		m.repoSaveDuration,
		m.concurrencyConflicts,
		m.consumerEventDuration,
		m.consumerEvents,
		m.consumerLag,
	)
	return m
}

func (m *ESMetrics) StoreLoadDuration(aggType string) metrics.Timer {
	return newTimer(m.storeLoadDuration.WithLabelValues(aggType))
}

func (m *ESMetrics) StoreAppendDuration(aggType string) metrics.Timer {
	return newTimer(m.storeAppendDuration.WithLabelValues(aggType))
}

func (m *ESMetrics) EventsAppended(aggType string, count int) {
	m.eventsAppended.WithLabelValues(aggType).Add(float64(count))
}

func (m *ESMetrics) RepoLoadDuration(aggType string) metrics.Timer {
	return newTimer(m.repoLoadDuration.WithLabelValues(aggType))
}

func (m *ESMetrics) RepoSaveDuration(aggType string) metrics.Timer {
	return newTimer(m.repoSaveDuration.WithLabelValues(aggType))
}

func (m *ESMetrics) ConcurrencyConflict(aggType string) {
	m.concurrencyConflicts.WithLabelValues(aggType).Inc()
}

func (m *ESMetrics) ConsumerEventDuration(eventType string, live bool) metrics.Timer {
	return newTimer(m.consumerEventDuration.WithLabelValues(eventType, boolToStr(live)))
}

func (m *ESMetrics) ConsumerEventProcessed(eventType string, live bool, success bool) {
	m.consumerEvents.WithLabelValues(eventType, boolToStr(live), boolToStr(success)).Inc()
}

func (m *ESMetrics) ConsumerLag(consumer string, lag int64) {
	m.consumerLag.WithLabelValues(consumer).Set(float64(lag))
}

var _ es.ESMetrics = (*ESMetrics)(nil)

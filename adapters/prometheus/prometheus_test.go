package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/iam-go/core/es"
)

func TestESMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewESMetrics(reg)

	timer := m.StoreLoadDuration("user")
	assert.NotNil(t, timer)
	timer.ObserveDuration()
	m.StoreAppendDuration("user").ObserveDuration()
	m.EventsAppended("user", 5)
	m.RepoLoadDuration("user").ObserveDuration()
	m.RepoSaveDuration("user").ObserveDuration()
	m.ConcurrencyConflict("user")
	m.ConsumerEventDuration("UserCreated", true).ObserveDuration()
	m.ConsumerEventProcessed("UserCreated", true, true)
	m.ConsumerEventProcessed("UserCreated", false, false)
	m.ConsumerLag("iam-readmodel", 100)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.eventsAppended.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.concurrencyConflicts.WithLabelValues("user")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.consumerLag.WithLabelValues("iam-readmodel")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "iam_es_events_appended_total")
	assert.Contains(t, names, "iam_es_consumer_lag")
}

func TestProjectionSignals(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewProjectionSignals(reg)
	env := es.Envelope{AggregateType: "user", Type: "UserUpdated", Version: 5}

	s.EventHandled(t.Context(), env)
	s.EventHandled(t.Context(), env)
	s.EventNotHandled(t.Context(), env, 4, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.events.WithLabelValues("user", "UserUpdated", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.events.WithLabelValues("user", "UserUpdated", "false")))
	assert.Equal(t, 1, testutil.CollectAndCount(s.gap))
}

func TestNewMetrics_registersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { NewMetrics(reg) })
	require.Panics(t, func() { NewMetrics(reg) })
}

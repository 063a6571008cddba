package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTransitionCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveTransition("menerimaSengketa", "accepted", time.Now())
	m.ObserveTransition("menerimaSengketa", "accepted", time.Now())
	m.ObserveTransition("menerimaSengketa", "state_conflict", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("menerimaSengketa", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("menerimaSengketa", "state_conflict")))

	n, err := testutil.GatherAndCount(reg, "sengketa_transition_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveTransition("x", "accepted", time.Now())
	m.ObserveQuery("getSidang", "ok")
	m.ObserveDocumentStored("memory", 10)
	m.ObserveWebhook("hook", "ok")
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	a := New(nil)
	b := New(nil)
	a.ObserveDocumentStored("memory", 5)
	assert.Equal(t, 5.0, testutil.ToFloat64(a.DocumentBytes))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.DocumentBytes))
}

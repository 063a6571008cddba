package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics tracks lifecycle transitions, queries and document store traffic.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	Queries            *prometheus.CounterVec
	DocumentsStored    *prometheus.CounterVec
	DocumentBytes      prometheus.Counter
	WebhookDeliveries  *prometheus.CounterVec
}

// New registers all metrics on reg. A nil reg gets a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sengketa_transitions_total",
			Help: "Lifecycle operations by outcome (accepted or the rejection kind)",
		}, []string{"operation", "outcome"}),
		TransitionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sengketa_transition_duration_seconds",
			Help:    "Duration of lifecycle operations including lock wait",
			Buckets: durationBuckets,
		}, []string{"operation"}),
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sengketa_queries_total",
			Help: "Read queries by name and outcome",
		}, []string{"query", "outcome"}),
		DocumentsStored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sengketa_documents_stored_total",
			Help: "Documents written to the document store",
		}, []string{"driver"}),
		DocumentBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "sengketa_document_bytes_total",
			Help: "Bytes of document content written",
		}),
		WebhookDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sengketa_webhook_deliveries_total",
			Help: "Webhook delivery attempts by outcome",
		}, []string{"webhook", "outcome"}),
	}
}

// ObserveTransition records one lifecycle operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransition(op, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(op, outcome).Inc()
	m.TransitionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveQuery(query, outcome string) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(query, outcome).Inc()
}

func (m *Metrics) ObserveDocumentStored(driver string, size int64) {
	if m == nil {
		return
	}
	m.DocumentsStored.WithLabelValues(driver).Inc()
	m.DocumentBytes.Add(float64(size))
}

func (m *Metrics) ObserveWebhook(name, outcome string) {
	if m == nil {
		return
	}
	m.WebhookDeliveries.WithLabelValues(name, outcome).Inc()
}

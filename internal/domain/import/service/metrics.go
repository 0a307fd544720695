package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Import outcomes recorded in the documents counter
const (
	outcomeExtracted   = "extracted"
	outcomeFallback    = "fallback"
	outcomeUnsupported = "unsupported"
	outcomeFailed      = "failed"
)

// Metrics holds the Prometheus collectors of the import pipeline.
// A nil *Metrics records nothing.
type Metrics struct {
	documents  *prometheus.CounterVec
	candidates *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the import collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dues",
			Subsystem: "import",
			Name:      "documents_total",
			Help:      "Documents processed, by detected kind and outcome.",
		}, []string{"kind", "outcome"}),
		candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dues",
			Subsystem: "import",
			Name:      "candidates_saved_total",
			Help:      "Retailer and invoice candidates persisted.",
		}, []string{"type"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dues",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Time spent extracting and persisting one document.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(kind, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

func (m *Metrics) saved(retailers, invoices int) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues("retailer").Add(float64(retailers))
	m.candidates.WithLabelValues("invoice").Add(float64(invoices))
}

// Package metrics holds the reputation feature's Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ratingsSubmitted  *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		ratingsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_ratings_submitted_total",
			Help: "Total ratings accepted, by category.",
		}, []string{"category"}),
		recomputeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "civitas_reputation_recompute_duration_seconds",
			Help:    "Duration of the in-transaction reputation recomputation.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementRatingsSubmitted(category string) {
	if m == nil {
		return
	}
	m.ratingsSubmitted.WithLabelValues(category).Inc()
}

func (m *Metrics) ObserveRecompute(d time.Duration) {
	if m == nil {
		return
	}
	m.recomputeDuration.Observe(d.Seconds())
}

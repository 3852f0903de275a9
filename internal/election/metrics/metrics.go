// Package metrics holds the election feature's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	votesCast     prometheus.Counter
	votesRejected *prometheus.CounterVec
	resultsCache  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		votesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civitas_votes_cast_total",
			Help: "Total accepted votes.",
		}),
		votesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_votes_rejected_total",
			Help: "Rejected vote attempts, by reason.",
		}, []string{"reason"}),
		resultsCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_election_results_cache_total",
			Help: "Election results cache lookups, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementVotesCast() {
	if m == nil {
		return
	}
	m.votesCast.Inc()
}

func (m *Metrics) IncrementVotesRejected(reason string) {
	if m == nil {
		return
	}
	m.votesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementResultsCache(outcome string) {
	if m == nil {
		return
	}
	m.resultsCache.WithLabelValues(outcome).Inc()
}

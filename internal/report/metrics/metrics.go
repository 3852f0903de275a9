// Package metrics holds the report feature's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	reportsFiled      *prometheus.CounterVec
	verificationsCast prometheus.Counter
	transitions       *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		reportsFiled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_reports_filed_total",
			Help: "Corruption reports filed, by severity.",
		}, []string{"severity"}),
		verificationsCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civitas_report_verifications_total",
			Help: "Total verification votes accepted.",
		}),
		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civitas_report_transitions_total",
			Help: "Report status transitions, by resulting status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementReportsFiled(severity string) {
	if m == nil {
		return
	}
	m.reportsFiled.WithLabelValues(severity).Inc()
}

func (m *Metrics) IncrementVerificationsCast() {
	if m == nil {
		return
	}
	m.verificationsCast.Inc()
}

func (m *Metrics) IncrementTransitions(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"edgegate/internal/admission"
)

// AdmissionMetrics exposes admission decision and store failure counters.
type AdmissionMetrics struct {
	decisions   *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
}

// NewAdmissionMetrics creates and registers the admission metric set.
func NewAdmissionMetrics(reg prometheus.Registerer) *AdmissionMetrics {
	m := &AdmissionMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Admission decisions by filter, outcome and reason.",
		}, []string{"filter", "outcome", "reason"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_store_errors_total",
			Help: "Counter store failures observed during admission.",
		}, []string{"filter"}),
	}
	reg.MustRegister(m.decisions, m.storeErrors)
	return m
}

// RecordDecision records one admission decision.
func (m *AdmissionMetrics) RecordDecision(filter string, d admission.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(filter, d.Outcome.String(), string(d.Reason)).Inc()
}

// RecordStoreError records one counter store failure.
func (m *AdmissionMetrics) RecordStoreError(filter string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(filter).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// AuditMetrics exposes the invariant audit's findings.
type AuditMetrics struct {
	violations prometheus.Gauge
	runs       *prometheus.CounterVec
}

// NewAuditMetrics registers the audit metrics on the provided registerer.
func NewAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	if reg == nil {
		return &AuditMetrics{}
	}
	violations := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_audit_violations",
		Help: "Items whose derived quantities violate the stock invariants, as of the last audit run.",
	})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_audit_runs_total",
		Help: "Completed invariant audit runs by result.",
	}, []string{"result"})
	reg.MustRegister(violations, runs)
	return &AuditMetrics{violations: violations, runs: runs}
}

// SetViolations records the number of items currently violating invariants.
func (m *AuditMetrics) SetViolations(count int) {
	if m == nil || m.violations == nil {
		return
	}
	m.violations.Set(float64(count))
}

// IncRun increments the audit run counter for the given result label.
func (m *AuditMetrics) IncRun(result string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(result)).Inc()
}

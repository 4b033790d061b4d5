// Package metrics holds the Prometheus collectors for the auditor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver so
// components can run without a registry in tests.
type Metrics struct {
	ExtractionsTotal   *prometheus.CounterVec
	EvaluationsTotal   *prometheus.CounterVec
	IssuesTotal        *prometheus.CounterVec
	RuleCompileErrors  prometheus.Counter
	EvaluationDuration prometheus.Histogram
	SuggestionsTotal   *prometheus.CounterVec
	BulkFilesTotal     *prometheus.CounterVec
	BulkQueueDepth     prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExtractionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_extractions_total",
				Help: "Text extractions by format and outcome (ok, degraded, failed)",
			},
			[]string{"format", "outcome"},
		),
		EvaluationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_evaluations_total",
				Help: "Compliance evaluations by resulting status",
			},
			[]string{"status"},
		),
		IssuesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_issues_total",
				Help: "Issues raised by compliance type and severity",
			},
			[]string{"compliance_type", "severity"},
		),
		RuleCompileErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "compliance_rule_compile_errors_total",
				Help: "Rules skipped because a pattern, glob or condition failed to compile",
			},
		),
		EvaluationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "compliance_evaluation_duration_seconds",
				Help:    "Duration of a single document evaluation",
				Buckets: prometheus.DefBuckets,
			},
		),
		SuggestionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_suggestions_total",
				Help: "Suggestions generated by outcome (added, duplicate, error)",
			},
			[]string{"outcome"},
		),
		BulkFilesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_bulk_files_total",
				Help: "Files processed by bulk jobs by outcome",
			},
			[]string{"outcome"},
		),
		BulkQueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "compliance_bulk_queue_depth",
				Help: "Bulk jobs waiting for a worker",
			},
		),
	}
}

func (m *Metrics) ObserveExtraction(format, outcome string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(format, outcome).Inc()
}

func (m *Metrics) ObserveEvaluation(status string, issues map[[2]string]int, d time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(status).Inc()
	m.EvaluationDuration.Observe(d.Seconds())
	for k, n := range issues {
		m.IssuesTotal.WithLabelValues(k[0], k[1]).Add(float64(n))
	}
}

func (m *Metrics) RuleCompileError() {
	if m == nil {
		return
	}
	m.RuleCompileErrors.Inc()
}

func (m *Metrics) ObserveSuggestion(outcome string) {
	if m == nil {
		return
	}
	m.SuggestionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBulkFile(outcome string) {
	if m == nil {
		return
	}
	m.BulkFilesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.BulkQueueDepth.Set(float64(n))
}

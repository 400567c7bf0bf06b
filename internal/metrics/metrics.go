// Package metrics provides Prometheus metrics for the import pipeline
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	ActsTotal        *prometheus.CounterVec
	StageErrorsTotal *prometheus.CounterVec
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	TranslationChars prometheus.Counter
	LLMTokensTotal   *prometheus.CounterVec
	EstimatedCostUSD *prometheus.CounterVec
	LastRunTimestamp *prometheus.GaugeVec
	ActsChangedTotal *prometheus.CounterVec
}

// New creates and registers all metrics on a dedicated registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.ActsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexharvest_acts_total",
			Help: "Acts processed, by jurisdiction and outcome (new, updated, skipped, failed)",
		},
		[]string{"jurisdiction", "outcome"},
	)

	m.StageErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexharvest_stage_errors_total",
			Help: "Per-act failures by pipeline stage",
		},
		[]string{"jurisdiction", "stage"},
	)

	m.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexharvest_runs_total",
			Help: "Finished pipeline runs by type and terminal status",
		},
		[]string{"jurisdiction", "run_type", "status"},
	)

	m.RunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexharvest_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"jurisdiction", "run_type"},
	)

	m.TranslationChars = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "lexharvest_translation_chars_total",
			Help: "Characters sent to the translation API",
		},
	)

	m.LLMTokensTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexharvest_llm_tokens_total",
			Help: "Tokens consumed by the classification API",
		},
		[]string{"direction"},
	)

	m.EstimatedCostUSD = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexharvest_estimated_cost_usd_total",
			Help: "Estimated external API spend in USD",
		},
		[]string{"jurisdiction"},
	)

	m.LastRunTimestamp = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lexharvest_last_run_timestamp_seconds",
			Help: "Unix time the last run of each type finished",
		},
		[]string{"jurisdiction", "run_type"},
	)

	m.ActsChangedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexharvest_update_check_changed_total",
			Help: "Acts whose content hash changed during update checks",
		},
		[]string{"jurisdiction"},
	)

	return m
}

// Registry exposes the underlying registry (for tests and custom handlers)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAct counts one act outcome
func (m *Metrics) RecordAct(jurisdiction, outcome string) {
	if m == nil {
		return
	}
	m.ActsTotal.WithLabelValues(jurisdiction, outcome).Inc()
}

// RecordStageError counts one per-act failure
func (m *Metrics) RecordStageError(jurisdiction, stage string) {
	if m == nil {
		return
	}
	m.StageErrorsTotal.WithLabelValues(jurisdiction, stage).Inc()
}

// RecordChanged counts an act whose hash changed
func (m *Metrics) RecordChanged(jurisdiction string) {
	if m == nil {
		return
	}
	m.ActsChangedTotal.WithLabelValues(jurisdiction).Inc()
}

// RecordRun records a finished run with its usage totals
func (m *Metrics) RecordRun(jurisdiction, runType, status string, duration time.Duration, chars, inputTokens, outputTokens int, costUSD float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(jurisdiction, runType, status).Inc()
	m.RunDuration.WithLabelValues(jurisdiction, runType).Observe(duration.Seconds())
	m.TranslationChars.Add(float64(chars))
	m.LLMTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	m.LLMTokensTotal.WithLabelValues("output").Add(float64(outputTokens))
	m.EstimatedCostUSD.WithLabelValues(jurisdiction).Add(costUSD)
	m.LastRunTimestamp.WithLabelValues(jurisdiction, runType).SetToCurrentTime()
}

// Package telemetry exposes the Prometheus metrics the monitor server
// serves: one struct holding every instrument, constructed once and
// registered against a private registry so tests can build isolated
// instances.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every instrument the workflow and monitor server record.
type Registry struct {
	reg *prometheus.Registry

	// StageDuration observes each workflow stage's wall time.
	StageDuration *prometheus.HistogramVec

	// WorkflowRuns counts full workflow runs by result.
	WorkflowRuns *prometheus.CounterVec

	// SourceFailures counts degraded intelligence/league fetches by source.
	SourceFailures *prometheus.CounterVec

	// SignalsClassified counts classified signals by severity and
	// actionability.
	SignalsClassified *prometheus.CounterVec

	// PredictionGaps counts refused decisions due to uncovered squad
	// players.
	PredictionGaps prometheus.Counter

	// DecisionExpectedPoints records the latest emitted decision's
	// expected total.
	DecisionExpectedPoints prometheus.Gauge

	// SignalsPurged counts TTL-expired intelligence rows removed by the
	// maintenance pass.
	SignalsPurged prometheus.Counter
}

// NewRegistry builds a Registry with every instrument registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ronclanker_stage_duration_seconds",
				Help:    "Duration of each workflow stage in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"stage", "result"},
		),
		WorkflowRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ronclanker_workflow_runs_total",
				Help: "Total workflow runs by result",
			},
			[]string{"result"},
		),
		SourceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ronclanker_source_failures_total",
				Help: "Degraded upstream fetches by source",
			},
			[]string{"source"},
		),
		SignalsClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ronclanker_signals_classified_total",
				Help: "Classified intelligence signals by severity and actionability",
			},
			[]string{"severity", "actionable"},
		),
		PredictionGaps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ronclanker_prediction_gaps_total",
				Help: "Workflow runs refused because a squad player had no prediction",
			},
		),
		DecisionExpectedPoints: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ronclanker_decision_expected_points",
				Help: "Expected total points of the latest emitted decision",
			},
		),
		SignalsPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ronclanker_signals_purged_total",
				Help: "Expired intelligence signals removed by maintenance",
			},
		),
	}

	reg.MustRegister(
		r.StageDuration,
		r.WorkflowRuns,
		r.SourceFailures,
		r.SignalsClassified,
		r.PredictionGaps,
		r.DecisionExpectedPoints,
		r.SignalsPurged,
	)
	return r
}

// ObserveStage records one stage's elapsed time with its result label.
func (r *Registry) ObserveStage(stage string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.StageDuration.WithLabelValues(stage, result).Observe(time.Since(start).Seconds())
}

// Handler serves this registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

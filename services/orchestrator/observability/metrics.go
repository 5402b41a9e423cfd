// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring pipeline
// invocations. Metrics include:
//   - Request counters (by terminal phase and status)
//   - Phase latency histograms
//   - Data-source call and fallback counters
//   - Active session gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "pantrypilot"

// Subsystem for pipeline metrics
const pipelineSubsystem = "pipeline"

// PipelineMetrics holds all Prometheus metrics for pipeline operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring the recipe
// pipeline. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of pipeline invocations by terminal phase and status
//   - PhaseDurationSeconds: Histogram of per-phase latency
//   - DataSourceCallsTotal: Counter of recipe API calls by outcome
//   - FallbacksTotal: Counter of deterministic fallback activations by stage
//   - GenerationFailuresTotal: Counter of generation-step failures by stage
//   - ActiveSessions: Gauge of live sessions in the store
//
// # Thread Safety
//
// All operations are thread-safe.
type PipelineMetrics struct {
	// RequestsTotal counts pipeline invocations.
	// Labels: terminal_phase (direct_response, synthesis, error),
	// status (success, degraded, error)
	RequestsTotal *prometheus.CounterVec

	// PhaseDurationSeconds measures per-phase latency.
	// Labels: phase (intent, retrieval, refinement, synthesis)
	PhaseDurationSeconds *prometheus.HistogramVec

	// DataSourceCallsTotal counts recipe API calls.
	// Labels: outcome (success, failure)
	DataSourceCallsTotal *prometheus.CounterVec

	// FallbacksTotal counts deterministic fallback activations.
	// Labels: stage (refinement, synthesis)
	FallbacksTotal *prometheus.CounterVec

	// GenerationFailuresTotal counts generation-step failures.
	// Labels: stage (intent, refinement, synthesis)
	GenerationFailuresTotal *prometheus.CounterVec

	// ActiveSessions tracks live sessions in the store.
	ActiveSessions prometheus.Gauge
}

// DefaultMetrics is the singleton instance of PipelineMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Outputs
//
//   - *PipelineMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "requests_total",
				Help:      "Total pipeline invocations by terminal phase and status",
			},
			[]string{"terminal_phase", "status"},
		),

		PhaseDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "phase_duration_seconds",
				Help:      "Latency of individual pipeline phases in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"phase"},
		),

		DataSourceCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "data_source_calls_total",
				Help:      "Total recipe API calls by outcome",
			},
			[]string{"outcome"},
		),

		FallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "fallbacks_total",
				Help:      "Total deterministic fallback activations by stage",
			},
			[]string{"stage"},
		),

		GenerationFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "generation_failures_total",
				Help:      "Total generation-step failures by stage",
			},
			[]string{"stage"},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "active_sessions",
				Help:      "Number of live sessions in the store",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed pipeline invocation.
//
// # Inputs
//
//   - terminalPhase: The phase the pipeline ended in.
//   - status: "success", "degraded", or "error".
func (m *PipelineMetrics) RecordRequest(terminalPhase, status string) {
	m.RequestsTotal.WithLabelValues(terminalPhase, status).Inc()
}

// RecordPhaseDuration records the latency of one pipeline phase.
func (m *PipelineMetrics) RecordPhaseDuration(phase string, seconds float64) {
	m.PhaseDurationSeconds.WithLabelValues(phase).Observe(seconds)
}

// RecordDataSourceCalls records a batch of recipe API calls.
func (m *PipelineMetrics) RecordDataSourceCalls(succeeded, failed int) {
	if succeeded > 0 {
		m.DataSourceCallsTotal.WithLabelValues("success").Add(float64(succeeded))
	}
	if failed > 0 {
		m.DataSourceCallsTotal.WithLabelValues("failure").Add(float64(failed))
	}
}

// RecordFallback records one deterministic fallback activation.
func (m *PipelineMetrics) RecordFallback(stage string) {
	m.FallbacksTotal.WithLabelValues(stage).Inc()
}

// RecordGenerationFailure records one generation-step failure.
func (m *PipelineMetrics) RecordGenerationFailure(stage string) {
	m.GenerationFailuresTotal.WithLabelValues(stage).Inc()
}

// SetActiveSessions updates the live session gauge.
func (m *PipelineMetrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the component pipeline.
//
// # Description
//
// Pipeline metrics are fed from agent events through EventHandler, so the
// agent package never imports Prometheus. Metrics include:
//   - Runs by outcome (passed, retry_exhausted, failed)
//   - Generator calls by outcome (ok, parse_error, gateway_error, carried_forward)
//   - Rule violations by rule and critic outcomes
//   - Attempts per run and run duration histograms
//   - API requests by endpoint and status, active websocket streams
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/AleutianAI/ComponentArchitect/services/architect/agent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "architect"

const (
	pipelineSubsystem = "pipeline"
	apiSubsystem      = "api"
)

// Run outcomes used as the "outcome" label of RunsTotal.
const (
	RunPassed         = "passed"
	RunRetryExhausted = "retry_exhausted"
	RunFailed         = "failed"
)

// Metrics holds every Prometheus collector of the service.
//
// # Description
//
// Create once per registry via NewMetrics. Tests pass their own
// prometheus.NewRegistry() so runs do not share state.
type Metrics struct {
	// RunsTotal counts finished runs.
	// Labels: outcome (passed, retry_exhausted, failed)
	RunsTotal *prometheus.CounterVec

	// GeneratorCallsTotal counts generator node executions.
	// Labels: outcome (agent.Outcome* constants)
	GeneratorCallsTotal *prometheus.CounterVec

	// ValidationPassesTotal counts validation passes.
	// Labels: result (passed, failed)
	ValidationPassesTotal *prometheus.CounterVec

	// RuleViolationsTotal counts rule violations.
	// Labels: rule (color, structure, braces, tags)
	RuleViolationsTotal *prometheus.CounterVec

	// CriticOutcomesTotal counts critic reviews.
	// Labels: outcome (clean, violations, unavailable)
	CriticOutcomesTotal *prometheus.CounterVec

	// AttemptsPerRun observes the final Attempt of each finished run.
	AttemptsPerRun prometheus.Histogram

	// RunDurationSeconds observes wall time of finished runs.
	RunDurationSeconds prometheus.Histogram

	// RequestsTotal counts API requests.
	// Labels: endpoint (generate, generate_ws, preview, session, reset, new_session), status (HTTP code)
	RequestsTotal *prometheus.CounterVec

	// ActiveStreams tracks open websocket streams.
	ActiveStreams prometheus.Gauge
}

// NewMetrics creates and registers all collectors on reg.
//
// # Inputs
//
//   - reg: The registerer. Nil uses prometheus.DefaultRegisterer.
//
// # Limitations
//
//   - Panics if called twice with the same registerer (duplicate registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "runs_total",
				Help:      "Total pipeline runs by outcome",
			},
			[]string{"outcome"},
		),

		GeneratorCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "generator_calls_total",
				Help:      "Total generator calls by outcome",
			},
			[]string{"outcome"},
		),

		ValidationPassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "validation_passes_total",
				Help:      "Total validation passes by result",
			},
			[]string{"result"},
		),

		RuleViolationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "rule_violations_total",
				Help:      "Total rule violations by rule",
			},
			[]string{"rule"},
		),

		CriticOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "critic_outcomes_total",
				Help:      "Total semantic critic reviews by outcome",
			},
			[]string{"outcome"},
		),

		AttemptsPerRun: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "attempts_per_run",
				Help:      "Validation passes needed per finished run",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
		),

		RunDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "run_duration_seconds",
				Help:      "Total run duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: apiSubsystem,
				Name:      "requests_total",
				Help:      "Total API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: apiSubsystem,
				Name:      "active_streams",
				Help:      "Number of open websocket generation streams",
			},
		),
	}
}

// =============================================================================
// Event Adapter
// =============================================================================

// EventHandler returns an agent.EventHandler that records pipeline events.
func (m *Metrics) EventHandler() agent.EventHandler {
	return func(e *agent.Event) {
		switch e.Type {
		case agent.EventNodeCompleted:
			m.recordNode(e)
		case agent.EventRunCompleted:
			outcome := RunPassed
			if e.RetryExhausted {
				outcome = RunRetryExhausted
			}
			m.RunsTotal.WithLabelValues(outcome).Inc()
			m.AttemptsPerRun.Observe(float64(e.Attempt))
			m.RunDurationSeconds.Observe(e.Duration.Seconds())
		case agent.EventRunFailed:
			m.RunsTotal.WithLabelValues(RunFailed).Inc()
		}
	}
}

func (m *Metrics) recordNode(e *agent.Event) {
	switch e.Node {
	case agent.NodeGenerator:
		m.GeneratorCallsTotal.WithLabelValues(e.Outcome).Inc()
	case agent.NodeValidator:
		result := "failed"
		if e.Passed {
			result = "passed"
		}
		m.ValidationPassesTotal.WithLabelValues(result).Inc()
		for _, rule := range e.RuleHits {
			m.RuleViolationsTotal.WithLabelValues(rule).Inc()
		}
		if e.Critic != "" {
			m.CriticOutcomesTotal.WithLabelValues(e.Critic).Inc()
		}
	}
}

// =============================================================================
// API Helpers
// =============================================================================

// Endpoint names used as the "endpoint" label of RequestsTotal.
const (
	EndpointGenerate   = "generate"
	EndpointGenerateWS = "generate_ws"
	EndpointPreview    = "preview"
	EndpointSession    = "session"
	EndpointReset      = "reset"
	EndpointNewSession = "new_session"
)

// RecordRequest records a completed API request.
func (m *Metrics) RecordRequest(endpoint string, status int) {
	m.RequestsTotal.WithLabelValues(endpoint, statusLabel(status)).Inc()
}

// StreamStarted increments the active streams gauge.
func (m *Metrics) StreamStarted() {
	m.ActiveStreams.Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *Metrics) StreamEnded() {
	m.ActiveStreams.Dec()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

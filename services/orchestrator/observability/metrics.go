// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the governance
// pipeline.
//
// # Description
//
// Metrics cover the flows an operator of a classification-aware service
// actually watches:
//   - Question volume and outcome (answered, refused) by tier
//   - Answer latency
//   - Approval gate activity (gated submissions, decisions)
//   - Audit appends and append failures
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "municipal"

// Subsystem for the governance pipeline.
const pipelineSubsystem = "pipeline"

// PipelineMetrics holds all Prometheus metrics for the governed
// question-and-action flows. Initialize once at startup via
// InitMetrics().
type PipelineMetrics struct {
	// QuestionsTotal counts asked questions by tier and outcome.
	// Labels: tier (anonymous, verified, authenticated),
	// outcome (answered, refused, error)
	QuestionsTotal *prometheus.CounterVec

	// AskDurationSeconds measures end-to-end answer latency.
	// Labels: tier
	AskDurationSeconds *prometheus.HistogramVec

	// AnswerConfidence observes the overall confidence of produced
	// answers. Labels: tier
	AnswerConfidence *prometheus.HistogramVec

	// ApprovalsTotal counts approval gate submissions by route.
	// Labels: action, route (ungated, below_gate, gated, unknown_action)
	ApprovalsTotal *prometheus.CounterVec

	// DecisionsTotal counts settled approval requests.
	// Labels: action, decision (approve, deny)
	DecisionsTotal *prometheus.CounterVec

	// AuditAppendsTotal counts audit appends by result.
	// Labels: result (ok, failed)
	AuditAppendsTotal *prometheus.CounterVec

	// IngestedChunksTotal counts indexed chunks by classification.
	// Labels: classification
	IngestedChunksTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once
// at application startup; a second call panics on duplicate
// registration.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		QuestionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "questions_total",
				Help:      "Total questions asked by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),

		AskDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "ask_duration_seconds",
				Help:      "End-to-end answer latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"tier"},
		),

		AnswerConfidence: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "answer_confidence",
				Help:      "Overall confidence of produced answers",
				Buckets:   []float64{0.1, 0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
			},
			[]string{"tier"},
		),

		ApprovalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "approvals_total",
				Help:      "Approval gate submissions by action and route",
			},
			[]string{"action", "route"},
		),

		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "decisions_total",
				Help:      "Settled approval requests by action and decision",
			},
			[]string{"action", "decision"},
		),

		AuditAppendsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "audit_appends_total",
				Help:      "Audit trail appends by result",
			},
			[]string{"result"},
		),

		IngestedChunksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "ingested_chunks_total",
				Help:      "Indexed document chunks by classification",
			},
			[]string{"classification"},
		),
	}
	return DefaultMetrics
}

// QuestionOutcome labels a finished ask.
type QuestionOutcome string

const (
	OutcomeAnswered QuestionOutcome = "answered"
	OutcomeRefusedQ QuestionOutcome = "refused"
	OutcomeErrored  QuestionOutcome = "error"
)

// RecordQuestion records one finished ask.
func (m *PipelineMetrics) RecordQuestion(tier string, outcome QuestionOutcome, seconds, confidence float64) {
	m.QuestionsTotal.WithLabelValues(tier, string(outcome)).Inc()
	m.AskDurationSeconds.WithLabelValues(tier).Observe(seconds)
	if outcome == OutcomeAnswered {
		m.AnswerConfidence.WithLabelValues(tier).Observe(confidence)
	}
}

// RecordApproval records a gate submission outcome.
func (m *PipelineMetrics) RecordApproval(action, route string) {
	m.ApprovalsTotal.WithLabelValues(action, route).Inc()
}

// RecordDecision records a settled approval request.
func (m *PipelineMetrics) RecordDecision(action, decision string) {
	m.DecisionsTotal.WithLabelValues(action, decision).Inc()
}

// RecordAuditAppend records an audit append attempt.
func (m *PipelineMetrics) RecordAuditAppend(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.AuditAppendsTotal.WithLabelValues(result).Inc()
}

// RecordIngestedChunks records indexed chunks.
func (m *PipelineMetrics) RecordIngestedChunks(classification string, count int) {
	m.IngestedChunksTotal.WithLabelValues(classification).Add(float64(count))
}

// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

var pipelineTracer = otel.Tracer("municipal.rag.pipeline")

// Pipeline is the end-to-end question flow: ceiling-bounded retrieval,
// cited composition, and a single audit entry per ask. If the audit
// entry cannot be written the answer is withheld.
type Pipeline struct {
	retriever *Retriever
	engine    *CitationEngine
	ingester  *Ingester
	auditor   audit.Logger
}

// NewPipeline wires the pipeline. The auditor is required; asks without
// a trail do not happen.
func NewPipeline(retriever *Retriever, engine *CitationEngine, ingester *Ingester, auditor audit.Logger) *Pipeline {
	return &Pipeline{
		retriever: retriever,
		engine:    engine,
		ingester:  ingester,
		auditor:   auditor,
	}
}

// Ask answers a resident question under the tier's ceiling.
//
// # Description
//
// Resolves the ceiling fresh from the tier, retrieves and scores
// candidates, composes a cited answer or a refusal, and appends exactly
// one audit event recording the outcome. A retrieval outage produces
// the refusal answer, never a partial one. An audit append failure
// withholds the answer entirely and surfaces the error.
//
// # Inputs
//   - ctx: Request context.
//   - question: The resident's question.
//   - sessionID: Session identifier for the trail.
//   - actor: Stable actor identifier for the trail.
//   - tier: The requester's verified session tier.
//
// # Outputs
//   - *CitedAnswer: The cited answer or refusal; nil only on error.
//   - error: Audit unavailability or an invalid question.
func (p *Pipeline) Ask(ctx context.Context, question, sessionID, actor string, tier identity.Tier) (*CitedAnswer, error) {
	ctx, span := pipelineTracer.Start(ctx, "Pipeline.Ask")
	defer span.End()
	span.SetAttributes(attribute.String("rag.tier", tier.String()))

	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	results, ceiling, err := p.retriever.Retrieve(ctx, question, tier)
	answer := (*CitedAnswer)(nil)
	switch {
	case errors.Is(err, vectordb.ErrRetrievalUnavailable):
		// An unavailable index refuses exactly like low confidence; it
		// never degrades into an unfiltered or partial answer.
		slog.Error("Retrieval unavailable, refusing", "error", err)
		span.RecordError(err)
		answer = refusal(ceiling)
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, err
	default:
		answer, err = p.engine.Compose(ctx, question, results, ceiling)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "composition failed")
			return nil, err
		}
	}

	outcome := audit.OutcomeSuccess
	if answer.LowConfidence {
		outcome = audit.OutcomeRefused
	}
	event := audit.NewEvent(sessionID, actor, tier.String(), "ask_question", "rag", ceiling, outcome)
	event.Details = map[string]string{
		"sources_used": fmt.Sprintf("%d", answer.SourcesUsed),
		"confidence":   fmt.Sprintf("%.3f", answer.Confidence),
	}
	if _, err := p.auditor.Append(ctx, event); err != nil {
		// No audit, no answer.
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit append failed")
		return nil, fmt.Errorf("answer withheld, not audited: %w", err)
	}

	span.SetAttributes(
		attribute.String("rag.ceiling", ceiling.String()),
		attribute.Float64("rag.confidence", answer.Confidence),
		attribute.Bool("rag.refused", answer.LowConfidence),
	)
	return answer, nil
}

// Ingest indexes a document and audits the ingestion.
func (p *Pipeline) Ingest(ctx context.Context, sessionID, actor string, tier identity.Tier, req IngestRequest) (*IngestResult, error) {
	ctx, span := pipelineTracer.Start(ctx, "Pipeline.Ingest")
	defer span.End()

	result, err := p.ingester.Ingest(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingest failed")
		return nil, err
	}

	event := audit.NewEvent(sessionID, actor, tier.String(), "ingest_document", req.Source,
		result.Classification, audit.OutcomeSuccess)
	event.Details = map[string]string{
		"chunks":  fmt.Sprintf("%d", result.Chunks),
		"indexed": fmt.Sprintf("%d", result.Indexed),
	}
	if _, err := p.auditor.Append(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit append failed")
		return nil, fmt.Errorf("ingest of %s completed but not audited: %w", req.Source, err)
	}
	return result, nil
}

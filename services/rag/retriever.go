// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

var retrieverTracer = otel.Tracer("municipal.rag.retriever")

// RetrievalResult is a ceiling-filtered candidate with its derived
// confidence. Confidence is computed from similarity, the classification
// margin under the ceiling, and the size of the corroborating result
// set; it is never stored apart from those inputs.
type RetrievalResult struct {
	vectordb.SearchResult
	Confidence float64 `json:"confidence"`
}

// RetrieverConfig tunes candidate selection.
type RetrieverConfig struct {
	// SimilarityFloor drops candidates before confidence is computed.
	SimilarityFloor float64

	// FetchLimit is how many candidates to over-fetch for re-ranking.
	FetchLimit int

	// FinalCount is how many re-ranked candidates to score and return.
	FinalCount int
}

// DefaultRetrieverConfig reads tuning from the environment with logged
// defaults.
func DefaultRetrieverConfig() RetrieverConfig {
	cfg := RetrieverConfig{
		SimilarityFloor: 0.25,
		FetchLimit:      10,
		FinalCount:      5,
	}
	if raw := os.Getenv("RAG_SIMILARITY_FLOOR"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v < 1 {
			cfg.SimilarityFloor = v
		} else {
			slog.Warn("Invalid RAG_SIMILARITY_FLOOR, using default", "value", raw, "default", cfg.SimilarityFloor)
		}
	}
	if raw := os.Getenv("RAG_FETCH_LIMIT"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.FetchLimit = v
		} else {
			slog.Warn("Invalid RAG_FETCH_LIMIT, using default", "value", raw, "default", cfg.FetchLimit)
		}
	}
	return cfg
}

// Retriever resolves a tier's ceiling and queries the store under it.
// The ceiling is resolved fresh on every call; a retry after a tier
// change sees the new ceiling, never a cached one.
type Retriever struct {
	store  vectordb.Store
	config RetrieverConfig
}

// NewRetriever creates a retriever over the store.
func NewRetriever(store vectordb.Store, config RetrieverConfig) *Retriever {
	if config.FetchLimit <= 0 {
		config.FetchLimit = 10
	}
	if config.FinalCount <= 0 {
		config.FinalCount = 5
	}
	return &Retriever{store: store, config: config}
}

// Retrieve returns scored candidates for the question, descending by
// confidence.
//
// # Description
//
// Resolves the tier's classification ceiling, queries the store with the
// ceiling as a data-layer filter, drops candidates under the similarity
// floor, re-ranks the survivors by keyword overlap, and computes each
// survivor's confidence. An empty result is a valid "insufficient
// information" outcome, not an error.
//
// # Inputs
//   - ctx: Request context.
//   - question: The resident's question.
//   - tier: The requester's session tier; its ceiling bounds retrieval.
//
// # Outputs
//   - []RetrievalResult: Candidates sorted by descending confidence.
//   - classification.Level: The ceiling that was applied.
//   - error: vectordb.ErrRetrievalUnavailable when the index cannot
//     answer; never an error for an empty result set.
func (r *Retriever) Retrieve(ctx context.Context, question string, tier identity.Tier) ([]RetrievalResult, classification.Level, error) {
	ctx, span := retrieverTracer.Start(ctx, "Retriever.Retrieve")
	defer span.End()

	ceiling := tier.Ceiling()
	span.SetAttributes(
		attribute.String("rag.tier", tier.String()),
		attribute.String("rag.ceiling", ceiling.String()),
	)

	if question == "" {
		return nil, ceiling, fmt.Errorf("question cannot be empty")
	}

	candidates, err := r.store.Search(ctx, question, ceiling, r.config.FetchLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, ceiling, err
	}

	// Similarity floor applies before anything is scored.
	kept := candidates[:0]
	for _, c := range candidates {
		if c.Similarity >= r.config.SimilarityFloor {
			kept = append(kept, c)
		}
	}

	kept = rerank(question, kept, r.config.FinalCount)

	results := make([]RetrievalResult, 0, len(kept))
	for _, c := range kept {
		results = append(results, RetrievalResult{
			SearchResult: c,
			Confidence:   confidence(c.Similarity, c.Classification, ceiling, len(kept)),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	span.SetAttributes(attribute.Int("rag.results", len(results)))
	slog.Debug("Retrieved candidates",
		"ceiling", ceiling.String(), "fetched", len(candidates), "kept", len(results))
	return results, ceiling, nil
}

// confidence derives trust in a single candidate. Similarity is the
// base; two penalties pull it down:
//
//   - margin: a candidate classified exactly at the ceiling sits on the
//     authorization boundary and earns less trust than one well under it.
//   - corroboration: a near-singleton result set has nothing to agree
//     with, so each member is trusted less.
func confidence(similarity float64, level, ceiling classification.Level, setSize int) float64 {
	margin := 1.0
	switch int(ceiling) - int(level) {
	case 0:
		margin = 0.85
	case 1:
		margin = 0.95
	}

	corroboration := 1.0
	switch setSize {
	case 0, 1:
		corroboration = 0.85
	case 2:
		corroboration = 0.95
	}

	score := similarity * margin * corroboration
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"testing"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

func seedIndex(t *testing.T) vectordb.Store {
	t.Helper()
	store := vectordb.NewMemoryStore(vectordb.NewHashEmbedder())
	docs := []vectordb.Document{
		{
			ID:             vectordb.ChunkID("ordinances/noise.md", 0),
			Content:        "Quiet hours run from 10pm to 7am. Noise complaints go to code enforcement.",
			Source:         "ordinances/noise.md",
			ResourceType:   "ordinance",
			Classification: classification.Public,
		},
		{
			ID:             vectordb.ChunkID("memos/enforcement.md", 0),
			Content:        "Internal enforcement memo on noise complaint triage procedure.",
			Source:         "memos/enforcement.md",
			ResourceType:   "internal_memo",
			Classification: classification.Internal,
		},
		{
			ID:             vectordb.ChunkID("cases/case-7.md", 0),
			Content:        "Resident noise complaint case notes, confidential.",
			Source:         "cases/case-7.md",
			ResourceType:   "complaint_record",
			Classification: classification.Sensitive,
		},
	}
	if _, err := store.AddDocuments(context.Background(), docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	return store
}

func TestRetrieveRespectsTierCeiling(t *testing.T) {
	store := seedIndex(t)
	retriever := NewRetriever(store, RetrieverConfig{SimilarityFloor: 0, FetchLimit: 10, FinalCount: 5})
	ctx := context.Background()

	tests := []struct {
		tier    identity.Tier
		ceiling classification.Level
	}{
		{identity.Anonymous, classification.Public},
		{identity.Verified, classification.Internal},
		{identity.Authenticated, classification.Sensitive},
	}
	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			results, ceiling, err := retriever.Retrieve(ctx, "noise complaint quiet hours", tt.tier)
			if err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if ceiling != tt.ceiling {
				t.Errorf("ceiling = %s, want %s", ceiling, tt.ceiling)
			}
			for _, r := range results {
				if r.Classification > tt.ceiling {
					t.Errorf("result %s at %s leaked past %s tier",
						r.DocumentID, r.Classification, tt.tier)
				}
			}
		})
	}
}

func TestRetrieveSortsByConfidence(t *testing.T) {
	store := seedIndex(t)
	retriever := NewRetriever(store, RetrieverConfig{SimilarityFloor: 0, FetchLimit: 10, FinalCount: 5})
	results, _, err := retriever.Retrieve(context.Background(), "noise complaint", identity.Authenticated)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Confidence > results[i-1].Confidence {
			t.Errorf("not sorted: %f before %f", results[i-1].Confidence, results[i].Confidence)
		}
	}
}

func TestRetrieveSimilarityFloorYieldsEmpty(t *testing.T) {
	store := seedIndex(t)
	// A floor of 0.999 excludes everything a hash embedding can reach.
	retriever := NewRetriever(store, RetrieverConfig{SimilarityFloor: 0.999, FetchLimit: 10, FinalCount: 5})
	results, _, err := retriever.Retrieve(context.Background(), "noise", identity.Authenticated)
	if err != nil {
		t.Fatalf("empty result set must not be an error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}

func TestRetrieveEmptyQuestion(t *testing.T) {
	store := seedIndex(t)
	retriever := NewRetriever(store, DefaultRetrieverConfig())
	if _, _, err := retriever.Retrieve(context.Background(), "", identity.Anonymous); err == nil {
		t.Error("empty question accepted")
	}
}

func TestConfidenceFormula(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		level      classification.Level
		ceiling    classification.Level
		setSize    int
		want       float64
	}{
		{"well under ceiling, corroborated", 0.8, classification.Public, classification.Sensitive, 3, 0.8},
		{"at ceiling", 0.8, classification.Sensitive, classification.Sensitive, 3, 0.8 * 0.85},
		{"one under ceiling", 0.8, classification.Internal, classification.Sensitive, 3, 0.8 * 0.95},
		{"singleton set", 0.8, classification.Public, classification.Sensitive, 1, 0.8 * 0.85},
		{"pair set", 0.8, classification.Public, classification.Sensitive, 2, 0.8 * 0.95},
		{"boundary and singleton compound", 0.8, classification.Sensitive, classification.Sensitive, 1, 0.8 * 0.85 * 0.85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := confidence(tt.similarity, tt.level, tt.ceiling, tt.setSize)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestConfidenceClamped(t *testing.T) {
	if got := confidence(1.5, classification.Public, classification.Sensitive, 3); got != 1 {
		t.Errorf("confidence above 1 not clamped: %f", got)
	}
	if got := confidence(-0.5, classification.Public, classification.Sensitive, 3); got != 0 {
		t.Errorf("negative confidence not clamped: %f", got)
	}
}

func TestRerankPrefersKeywordMatches(t *testing.T) {
	candidates := []vectordb.SearchResult{
		{DocumentID: "a", Content: "Completely unrelated text about parks and recreation schedules for summer.", Similarity: 0.5},
		{DocumentID: "b", Content: "Quiet hours noise ordinance enforcement details for residential zones apply nightly.", Similarity: 0.5},
		{DocumentID: "c", Content: "Budget tables.", Similarity: 0.5},
	}
	out := rerank("quiet hours noise ordinance", candidates, 2)
	if len(out) != 2 {
		t.Fatalf("rerank returned %d, want 2", len(out))
	}
	if out[0].DocumentID != "b" {
		t.Errorf("top result = %s, want b", out[0].DocumentID)
	}
}

func TestRerankSmallSetPassthrough(t *testing.T) {
	candidates := []vectordb.SearchResult{{DocumentID: "a"}, {DocumentID: "b"}}
	out := rerank("query", candidates, 5)
	if len(out) != 2 {
		t.Errorf("small set trimmed to %d", len(out))
	}
}

func TestKeywordOverlap(t *testing.T) {
	q := tokenize("quiet hours noise")
	if got := keywordOverlap(q, tokenize("quiet hours noise ordinance")); got != 1 {
		t.Errorf("full overlap = %f, want 1", got)
	}
	if got := keywordOverlap(q, tokenize("parks budget")); got != 0 {
		t.Errorf("no overlap = %f, want 0", got)
	}
	if got := keywordOverlap(nil, tokenize("anything")); got != 0 {
		t.Errorf("empty query = %f, want 0", got)
	}
}

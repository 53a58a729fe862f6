// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
)

// MemoryStore is the in-process index used by the lightweight deployment
// mode and by tests. Same contract as the Weaviate store: the ceiling is
// applied before scoring, so over-classified documents are never ranked.
type MemoryStore struct {
	embedder EmbeddingProvider

	mu      sync.RWMutex
	docs    map[string]Document
	vectors map[string][]float32
	closed  bool
}

// NewMemoryStore creates an empty in-memory index over the embedder.
func NewMemoryStore(embedder EmbeddingProvider) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		docs:     make(map[string]Document),
		vectors:  make(map[string][]float32),
	}
}

// EnsureSchema is a no-op for the in-memory index.
func (s *MemoryStore) EnsureSchema(_ context.Context) error { return nil }

func (s *MemoryStore) AddDocuments(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed documents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrRetrievalUnavailable
	}
	for i, doc := range docs {
		s.docs[doc.ID] = doc
		s.vectors[doc.ID] = vectors[i]
	}
	return len(docs), nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, ceiling classification.Level, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = 5
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", ErrRetrievalUnavailable, err)
	}
	queryVec := vectors[0]

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrRetrievalUnavailable
	}

	results := make([]SearchResult, 0, limit)
	for id, doc := range s.docs {
		// Ceiling filter first: documents above the ceiling are not
		// scored at all.
		if doc.Classification > ceiling {
			continue
		}
		sim := cosineSimilarity(queryVec, s.vectors[id])
		results = append(results, SearchResult{
			DocumentID:     doc.ID,
			Content:        doc.Content,
			Title:          doc.Title,
			Source:         doc.Source,
			Classification: doc.Classification,
			Similarity:     sim,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].DocumentID < results[j].DocumentID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrRetrievalUnavailable
	}
	return len(s.docs), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// cosineSimilarity maps the raw cosine from [-1,1] into [0,1] so the
// in-memory score is comparable to Weaviate's certainty.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}

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
	"log/slog"
	"sort"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
)

// MunicipalDocumentClassName is the Weaviate class for indexed chunks.
const MunicipalDocumentClassName = "MunicipalDocument"

const addBatchSize = 100

// WeaviateStore indexes documents in Weaviate with caller-provided
// vectors. The classification level rides on every object as a
// filterable integer, so the tier ceiling becomes a where clause inside
// the nearVector query.
type WeaviateStore struct {
	client   *weaviate.Client
	embedder EmbeddingProvider
}

// NewWeaviateStore wraps an existing Weaviate client and an embedding
// provider.
func NewWeaviateStore(client *weaviate.Client, embedder EmbeddingProvider) *WeaviateStore {
	return &WeaviateStore{client: client, embedder: embedder}
}

// municipalDocumentSchema returns the class definition. The vectorizer
// is "none": vectors come from the embedding provider, never from a
// Weaviate module, so the same provider embeds queries and documents.
func municipalDocumentSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	indexSearchable := new(bool)
	*indexSearchable = true

	return &models.Class{
		Class:       MunicipalDocumentClassName,
		Description: "Municipal content chunks tagged with their classification level",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "documentId",
				DataType:        []string{"text"},
				Description:     "Stable chunk identifier",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "content",
				DataType:        []string{"text"},
				Description:     "Chunk text",
				IndexSearchable: indexSearchable,
				Tokenization:    "word",
			},
			{
				Name:            "title",
				DataType:        []string{"text"},
				Description:     "Human-readable document title",
				IndexSearchable: indexSearchable,
				Tokenization:    "word",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "Source document the chunk came from",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "resourceType",
				DataType:        []string{"text"},
				Description:     "Resource type used for classification",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "classificationName",
				DataType:        []string{"text"},
				Description:     "Classification level name",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "classificationLevel",
				DataType:        []string{"int"},
				Description:     "Classification level ordinal, used for ceiling filters",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureSchema creates the MunicipalDocument class if it does not exist.
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().WithClassName(MunicipalDocumentClassName).Do(ctx)
	if err == nil {
		slog.Info("MunicipalDocument schema already exists")
		return nil
	}

	slog.Info("Creating MunicipalDocument schema")
	if err := s.client.Schema().ClassCreator().WithClass(municipalDocumentSchema()).Do(ctx); err != nil {
		return fmt.Errorf("creating MunicipalDocument schema: %w", err)
	}
	return nil
}

// AddDocuments embeds and batch-indexes the documents. The object UUID
// is derived from the document id, so re-ingestion overwrites in place.
func (s *WeaviateStore) AddDocuments(ctx context.Context, docs []Document) (int, error) {
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

	indexed := 0
	for start := 0; start < len(docs); start += addBatchSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		end := start + addBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		objects := make([]*models.Object, 0, end-start)
		for i := start; i < end; i++ {
			doc := docs[i]
			objects = append(objects, &models.Object{
				Class:  MunicipalDocumentClassName,
				ID:     strfmt.UUID(doc.ID),
				Vector: vectors[i],
				Properties: map[string]interface{}{
					"documentId":          doc.ID,
					"content":             doc.Content,
					"title":               doc.Title,
					"source":              doc.Source,
					"resourceType":        doc.ResourceType,
					"classificationName":  doc.Classification.String(),
					"classificationLevel": int(doc.Classification),
				},
			})
		}

		result, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return indexed, fmt.Errorf("%w: batch import failed: %v", ErrRetrievalUnavailable, err)
		}
		for _, obj := range result {
			if obj.Result != nil && obj.Result.Errors == nil {
				indexed++
			}
		}
	}

	slog.Info("Indexed documents", "requested", len(docs), "indexed", indexed)
	return indexed, nil
}

// Search embeds the query and runs a nearVector search with the ceiling
// as a where clause. Documents above the ceiling are excluded by the
// index, not trimmed from the response.
func (s *WeaviateStore) Search(ctx context.Context, query string, ceiling classification.Level, limit int) ([]SearchResult, error) {
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

	where := filters.Where().
		WithPath([]string{"classificationLevel"}).
		WithOperator(filters.LessThanEqual).
		WithValueInt(int64(ceiling))

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vectors[0])

	fields := []graphql.Field{
		{Name: "documentId"},
		{Name: "content"},
		{Name: "title"},
		{Name: "source"},
		{Name: "classificationName"},
		{Name: "classificationLevel"},
		{Name: "_additional { certainty }"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(MunicipalDocumentClassName).
		WithFields(fields...).
		WithWhere(where).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrRetrievalUnavailable, result.Errors[0].Message)
	}

	return parseSearchResults(result, ceiling), nil
}

func parseSearchResults(result *models.GraphQLResponse, ceiling classification.Level) []SearchResult {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return []SearchResult{}
	}
	objects, ok := data[MunicipalDocumentClassName].([]interface{})
	if !ok {
		return []SearchResult{}
	}

	results := make([]SearchResult, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		level := classification.Level(getInt(m, "classificationLevel"))
		if !level.Valid() || level > ceiling {
			// The where clause already excludes these; a mismatch means
			// the index holds a malformed object. Drop it.
			continue
		}

		similarity := 0.0
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				similarity = certainty
			}
		}

		results = append(results, SearchResult{
			DocumentID:     getString(m, "documentId"),
			Content:        getString(m, "content"),
			Title:          getString(m, "title"),
			Source:         getString(m, "source"),
			Classification: level,
			Similarity:     similarity,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results
}

// Count reports how many objects the class holds.
func (s *WeaviateStore) Count(ctx context.Context) (int, error) {
	fields := []graphql.Field{
		{Name: "meta", Fields: []graphql.Field{{Name: "count"}}},
	}
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(MunicipalDocumentClassName).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	data, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	objects, ok := data[MunicipalDocumentClassName].([]interface{})
	if !ok || len(objects) == 0 {
		return 0, nil
	}
	m, ok := objects[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := m["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	return getInt(meta, "count"), nil
}

// Close is a no-op: the Weaviate client holds no local resources.
func (s *WeaviateStore) Close() error { return nil }

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

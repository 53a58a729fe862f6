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
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

const (
	chunkSize    = 1000
	chunkOverlap = 150
)

var markdownSeparators = []string{"\n## ", "\n### ", "\n\n", "\n", " "}

// IngestRequest is one document to chunk, classify, and index.
type IngestRequest struct {
	Source       string
	Title        string
	ResourceType string
	Content      string
	Hints        classification.Hints
}

// IngestResult reports what one ingest produced.
type IngestResult struct {
	Source         string               `json:"source"`
	Chunks         int                  `json:"chunks"`
	Indexed        int                  `json:"indexed"`
	Classification classification.Level `json:"classification"`
}

// Ingester chunks documents, classifies every chunk through the rule
// engine, and indexes the chunks with their classification attached.
// Classification happens at ingest time: the level a chunk gets here is
// the level the ceiling filter sees forever after.
type Ingester struct {
	store      vectordb.Store
	classifier *classification.Engine
}

// NewIngester creates an ingester over the store and rule engine.
func NewIngester(store vectordb.Store, classifier *classification.Engine) *Ingester {
	return &Ingester{store: store, classifier: classifier}
}

// Ingest chunks, classifies, and indexes one document.
func (in *Ingester) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("document content cannot be empty")
	}
	if req.Source == "" {
		return nil, fmt.Errorf("document source cannot be empty")
	}

	level := in.classifier.Classify(req.ResourceType, req.Hints)

	splitter := splitterFor(req.Source)
	chunks, err := splitter.SplitText(req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to split document %s: %w", req.Source, err)
	}

	docs := make([]vectordb.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, vectordb.Document{
			ID:             vectordb.ChunkID(req.Source, i),
			Content:        chunk,
			Title:          req.Title,
			Source:         req.Source,
			ResourceType:   req.ResourceType,
			Classification: level,
		})
	}

	indexed, err := in.store.AddDocuments(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to index document %s: %w", req.Source, err)
	}

	slog.Info("Ingested document",
		"source", req.Source,
		"resource_type", req.ResourceType,
		"classification", level.String(),
		"chunks", len(chunks),
		"indexed", indexed)
	return &IngestResult{
		Source:         req.Source,
		Chunks:         len(chunks),
		Indexed:        indexed,
		Classification: level,
	}, nil
}

func splitterFor(source string) textsplitter.TextSplitter {
	if strings.HasSuffix(source, ".md") || strings.HasSuffix(source, ".markdown") {
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(markdownSeparators),
		)
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
}

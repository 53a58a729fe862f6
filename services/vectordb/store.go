// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectordb

import (
	"context"
	"errors"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
)

// ErrRetrievalUnavailable indicates the index cannot be reached or
// queried. Callers treat it as a refusal condition, never as an empty
// result set.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// Store is a classification-aware vector index.
//
// Search never returns a document classified above the ceiling: the
// ceiling is part of the index query itself, not a filter applied to
// results after the fact, so over-classified content never leaves the
// data layer.
type Store interface {
	// EnsureSchema creates the index structure if it does not exist.
	EnsureSchema(ctx context.Context) error

	// AddDocuments embeds and indexes the documents. Re-adding a
	// document id overwrites the previous version.
	AddDocuments(ctx context.Context, docs []Document) (int, error)

	// Search returns up to limit documents at or below the ceiling,
	// ordered by descending similarity.
	Search(ctx context.Context, query string, ceiling classification.Level, limit int) ([]SearchResult, error)

	// Count reports how many documents are indexed.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectordb

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
)

// Document is one retrievable chunk of municipal content. Classification
// travels with the chunk into the index so queries can filter on it at
// the data layer.
type Document struct {
	ID             string               `json:"id"`
	Content        string               `json:"content"`
	Title          string               `json:"title,omitempty"`
	Source         string               `json:"source"`
	ResourceType   string               `json:"resource_type"`
	Classification classification.Level `json:"classification"`
	Metadata       map[string]string    `json:"metadata,omitempty"`
}

// SearchResult is one scored hit from a vector query. Similarity is in
// [0,1], higher is closer.
type SearchResult struct {
	DocumentID     string               `json:"document_id"`
	Content        string               `json:"content"`
	Title          string               `json:"title,omitempty"`
	Source         string               `json:"source"`
	Classification classification.Level `json:"classification"`
	Similarity     float64              `json:"similarity"`
}

// ChunkID derives a stable UUID for a chunk from its source and ordinal
// position, so re-ingesting the same document overwrites rather than
// duplicates.
func ChunkID(source string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, index)))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		// Unreachable: 16 bytes always form a UUID.
		return uuid.New().String()
	}
	return id.String()
}

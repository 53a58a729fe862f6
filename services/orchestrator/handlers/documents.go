// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/datatypes"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/observability"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/rag"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

// IngestDocument chunks, classifies, and indexes one document. Every
// chunk is classified at ingest time; the level assigned here is the
// level the retrieval ceiling filters on forever after.
func IngestDocument(pipeline *rag.Pipeline, sessions *identity.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.IngestDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		sessionID, actor, tier := callerIdentity(c, sessions)

		result, err := pipeline.Ingest(c.Request.Context(), sessionID, actor, tier, rag.IngestRequest{
			Source:       req.Source,
			Title:        req.Title,
			ResourceType: req.ResourceType,
			Content:      req.Content,
			Hints: classification.Hints{
				Uncertain:      req.Uncertain,
				ExternalSource: req.ExternalSource,
			},
		})
		if err != nil {
			slog.Error("Ingestion failed", "source", req.Source, "error", err)
			respondError(c, err)
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordIngestedChunks(result.Classification.String(), result.Indexed)
		}

		slog.Info("Document ingested",
			"source", result.Source,
			"chunks", result.Chunks,
			"indexed", result.Indexed,
			"classification", result.Classification.String(),
		)
		c.JSON(http.StatusCreated, gin.H{
			"status":         "success",
			"source":         result.Source,
			"chunks":         result.Chunks,
			"indexed":        result.Indexed,
			"classification": result.Classification,
		})
	}
}

// DocumentStats reports the size of the index.
func DocumentStats(store vectordb.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := store.Count(c.Request.Context())
		if err != nil {
			slog.Error("Failed to count indexed chunks", "error", err)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"chunks": count})
	}
}

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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/datatypes"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/observability"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/rag"
)

// HandleAsk answers a resident question through the governed pipeline.
// The caller's tier sets the classification ceiling; the body carries
// only the question.
func HandleAsk(pipeline *rag.Pipeline, sessions *identity.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		sessionID, actor, tier := callerIdentity(c, sessions)
		start := time.Now()

		answer, err := pipeline.Ask(c.Request.Context(), req.Question, sessionID, actor, tier)
		if err != nil {
			slog.Error("Ask failed", "session_id", sessionID, "tier", tier.String(), "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordQuestion(tier.String(), observability.OutcomeErrored, time.Since(start).Seconds(), 0)
			}
			respondError(c, err)
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			outcome := observability.OutcomeAnswered
			if answer.LowConfidence {
				outcome = observability.OutcomeRefusedQ
			}
			m.RecordQuestion(tier.String(), outcome, time.Since(start).Seconds(), answer.Confidence)
		}

		slog.Info("Question answered",
			"session_id", sessionID,
			"tier", tier.String(),
			"ceiling", answer.Ceiling.String(),
			"sources_used", answer.SourcesUsed,
			"refused", answer.LowConfidence,
		)
		c.JSON(http.StatusOK, datatypes.AskResponse{Answer: *answer})
	}
}

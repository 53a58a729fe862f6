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

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
)

// QueryAudit returns audit entries matching the query parameters:
// actor, action, resource, session_id, classification, after, before
// (RFC 3339 timestamps). Unset parameters match everything.
func QueryAudit(logger audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := audit.Filter{
			Actor:     c.Query("actor"),
			Action:    c.Query("action"),
			Resource:  c.Query("resource"),
			SessionID: c.Query("session_id"),
		}

		if s := c.Query("classification"); s != "" {
			level, err := classification.ParseLevel(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filter.Classification = level
		}
		if s := c.Query("after"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "after must be RFC 3339"})
				return
			}
			filter.After = t
		}
		if s := c.Query("before"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "before must be RFC 3339"})
				return
			}
			filter.Before = t
		}

		entries, err := logger.Query(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
	}
}

// VerifyAudit recomputes the hash chain over the whole trail. An
// intact=false response means the trail was altered after the fact.
func VerifyAudit(logger audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		intact, err := logger.VerifyChain(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		if !intact {
			slog.Error("Audit chain verification FAILED; trail has been tampered with")
		}
		c.JSON(http.StatusOK, gin.H{"intact": intact})
	}
}

// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/datatypes"
)

// CreateSession opens a new session. The starting tier comes from the
// body; an unknown or missing tier name starts at anonymous, which is
// the safe direction to fail.
func CreateSession(sessions *identity.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Actor string `json:"actor"`
			Tier  string `json:"tier"`
		}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		tier, err := identity.ParseTier(req.Tier)
		if err != nil {
			slog.Debug("Unknown tier on session create, starting at anonymous", "tier", req.Tier)
		}

		session := sessions.Create(req.Actor, tier)
		slog.Info("Session created", "session_id", session.ID, "tier", session.TierName)
		c.JSON(http.StatusCreated, gin.H{"session": session})
	}
}

// GetSession fetches one session by id.
func GetSession(sessions *identity.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sessions.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session})
	}
}

// UpgradeSession drives the two-step tier upgrade. An empty body (or
// one without a verification_id) requests a challenge; a body carrying
// verification_id and code completes it. Challenges are single use.
func UpgradeSession(upgrades *identity.UpgradeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req datatypes.UpgradeRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if req.VerificationID == "" {
			challenge, err := upgrades.Request(c.Request.Context(), id)
			if err != nil {
				respondError(c, err)
				return
			}
			slog.Info("Upgrade challenge issued",
				"session_id", id,
				"target_tier", challenge.TargetTier,
				"method", challenge.Method,
			)
			c.JSON(http.StatusOK, gin.H{"challenge": challenge})
			return
		}

		result, err := upgrades.Verify(c.Request.Context(), id, req.VerificationID, req.Code)
		if err != nil {
			slog.Warn("Upgrade verification failed", "session_id", id, "error", err)
			respondError(c, err)
			return
		}

		slog.Info("Session upgraded",
			"session_id", id,
			"previous_tier", result.PreviousTier,
			"new_tier", result.NewTier,
		)
		c.JSON(http.StatusOK, gin.H{"upgrade": result})
	}
}

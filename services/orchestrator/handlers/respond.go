// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP surface of the governed
// question-and-action pipeline. Every handler resolves the caller's
// session through the session middleware, never from the request body,
// so tier spoofing through payloads is structurally impossible.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/approval"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/middleware"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

// respondError maps domain errors onto HTTP status codes. Unrecognized
// errors become 500s with the message suppressed so internals never
// leak to residents.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, approval.ErrNotFound),
		errors.Is(err, identity.ErrSessionNotFound),
		errors.Is(err, identity.ErrVerificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, approval.ErrUnknownAction),
		errors.Is(err, identity.ErrVerificationMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, approval.ErrInvalidTransition),
		errors.Is(err, identity.ErrMaxTier):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrEmptyCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, audit.ErrAuditUnavailable),
		errors.Is(err, vectordb.ErrRetrievalUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		slog.Error("Unhandled request error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// callerIdentity resolves who is asking. When the session header names
// a session the manager knows, the stored tier wins over the header
// tier; header tiers only set a starting point for sessions the server
// has never seen.
func callerIdentity(c *gin.Context, sessions *identity.SessionManager) (sessionID, actor string, tier identity.Tier) {
	sessionID = middleware.GetSessionID(c)
	actor = middleware.GetActor(c)
	tier = middleware.GetTier(c)

	if sessions != nil {
		if s, err := sessions.Get(sessionID); err == nil {
			actor = s.Actor
			tier = s.Tier
		}
	}
	return sessionID, actor, tier
}

// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware carries the caller's resolved identity into
// handlers. Identity resolution itself happens upstream; this layer only
// reads the headers that resolution produced and fails closed when they
// are absent or malformed.
package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
)

// Headers the upstream identity layer sets.
const (
	TierHeader    = "X-Session-Tier"
	ActorHeader   = "X-Actor-ID"
	SessionHeader = "X-Session-ID"
)

// Context keys. Typed key strings prevent collisions with gin internals.
const (
	tierKey    = "municipal_session_tier"
	actorKey   = "municipal_actor_id"
	sessionKey = "municipal_session_id"
)

// Session extracts tier, actor, and session id from request headers.
// A missing or unparseable tier degrades to Anonymous; a missing actor
// becomes "anonymous"; a missing session id gets a fresh UUID so the
// audit trail always has one.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		tier, err := identity.ParseTier(c.GetHeader(TierHeader))
		if err != nil {
			slog.Debug("Unparseable session tier, treating as anonymous",
				"value", c.GetHeader(TierHeader))
		}
		actor := c.GetHeader(ActorHeader)
		if actor == "" {
			actor = "anonymous"
		}
		sessionID := c.GetHeader(SessionHeader)
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		c.Set(tierKey, tier)
		c.Set(actorKey, actor)
		c.Set(sessionKey, sessionID)
		c.Next()
	}
}

// GetTier returns the caller's tier, Anonymous when unset.
func GetTier(c *gin.Context) identity.Tier {
	if v, ok := c.Get(tierKey); ok {
		if tier, ok := v.(identity.Tier); ok {
			return tier
		}
	}
	return identity.Anonymous
}

// GetActor returns the caller's actor id.
func GetActor(c *gin.Context) string {
	return c.GetString(actorKey)
}

// GetSessionID returns the request's session id.
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

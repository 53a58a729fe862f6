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
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/approval"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/datatypes"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/observability"
)

// SubmitApproval routes an action through the approval gate. Ungated
// and below-gate actions return immediately with gated=false; gated
// actions create a pending request and return 202.
func SubmitApproval(gate *approval.Gate, sessions *identity.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ApprovalSubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		level, err := classification.ParseLevel(req.Classification)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sessionID, actor, tier := callerIdentity(c, sessions)

		result, err := gate.Submit(c.Request.Context(), sessionID, actor, tier,
			req.Action, req.Resource, level, req.Payload)
		if err != nil {
			slog.Warn("Approval submit rejected", "action", req.Action, "tier", tier.String(), "error", err)
			respondError(c, err)
			return
		}

		if !result.Gated {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordApproval(req.Action, "ungated")
			}
			c.JSON(http.StatusOK, gin.H{"gated": false, "action": req.Action})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordApproval(req.Action, "gated")
		}
		slog.Info("Approval request created",
			"request_id", result.Request.ID,
			"action", req.Action,
			"actor", actor,
			"classification", level.String(),
		)
		c.JSON(http.StatusAccepted, gin.H{"gated": true, "request": result.Request})
	}
}

// DecideApproval settles a pending request. First decision wins;
// anything after that is a 409.
func DecideApproval(gate *approval.Gate, sessions *identity.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req datatypes.DecisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		_, actor, _ := callerIdentity(c, sessions)

		request, err := gate.Decide(c.Request.Context(), id, approval.Decision(req.Decision), actor, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordDecision(request.Action, req.Decision)
		}
		slog.Info("Approval request decided",
			"request_id", request.ID,
			"action", request.Action,
			"decision", req.Decision,
			"decided_by", actor,
		)
		c.JSON(http.StatusOK, gin.H{"request": request})
	}
}

// GetApproval fetches one approval request by id.
func GetApproval(gate *approval.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		request, err := gate.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"request": request})
	}
}

// ListApprovals lists approval requests, optionally filtered by
// ?status=pending|approved|denied.
func ListApprovals(gate *approval.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := approval.Status(c.Query("status"))

		requests, err := gate.List(c.Request.Context(), status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
	}
}

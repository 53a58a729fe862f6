// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/approval"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/handlers"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/middleware"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/rag"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

// Deps carries the wired services the handlers close over.
type Deps struct {
	Pipeline *rag.Pipeline
	Store    vectordb.Store
	Gate     *approval.Gate
	Auditor  audit.Logger
	Sessions *identity.SessionManager
	Upgrades *identity.UpgradeService
}

// SetupRoutes mounts the full HTTP surface. All /v1 routes run behind
// the session middleware so handlers always see a resolved tier.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.Session())
	{
		v1.POST("/ask", handlers.HandleAsk(deps.Pipeline, deps.Sessions))

		v1.POST("/documents", handlers.IngestDocument(deps.Pipeline, deps.Sessions))
		v1.GET("/documents", handlers.DocumentStats(deps.Store))

		// Approval gate routes
		approvals := v1.Group("/approvals")
		{
			approvals.POST("", handlers.SubmitApproval(deps.Gate, deps.Sessions))
			approvals.GET("", handlers.ListApprovals(deps.Gate))
			approvals.GET("/:id", handlers.GetApproval(deps.Gate))
			approvals.POST("/:id/decision", handlers.DecideApproval(deps.Gate, deps.Sessions))
		}

		// Audit trail routes
		auditGroup := v1.Group("/audit")
		{
			auditGroup.GET("", handlers.QueryAudit(deps.Auditor))
			auditGroup.GET("/verify", handlers.VerifyAudit(deps.Auditor))
		}

		// Session administration routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(deps.Sessions))
			sessions.GET("/:id", handlers.GetSession(deps.Sessions))
			sessions.POST("/:id/upgrade", handlers.UpgradeSession(deps.Upgrades))
		}
	}
}

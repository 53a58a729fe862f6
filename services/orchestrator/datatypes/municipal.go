// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the request and response shapes of the HTTP
// surface. Validation runs through gin's binding tags
// (go-playground/validator underneath).
package datatypes

import "github.com/Ginkgo-AI/MuniciPal-sub001/services/rag"

// AskRequest is a resident question. Tier and actor arrive through
// session headers, never through the body.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskResponse wraps the cited answer.
type AskResponse struct {
	Answer rag.CitedAnswer `json:"answer"`
}

// IngestDocumentRequest indexes one document.
type IngestDocumentRequest struct {
	Source       string `json:"source" binding:"required"`
	Title        string `json:"title"`
	ResourceType string `json:"resource_type" binding:"required"`
	Content      string `json:"content" binding:"required"`

	// Uncertain marks content whose resource type is a guess; the
	// classifier escalates it.
	Uncertain bool `json:"uncertain"`

	// ExternalSource marks content ingested from outside the
	// municipality's own systems.
	ExternalSource bool `json:"external_source"`
}

// ApprovalSubmitRequest routes an action through the approval gate.
type ApprovalSubmitRequest struct {
	Action         string            `json:"action" binding:"required"`
	Resource       string            `json:"resource" binding:"required"`
	Classification string            `json:"classification" binding:"required"`
	Payload        map[string]string `json:"payload"`
}

// DecisionRequest settles a pending approval request.
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve deny"`
	Reason   string `json:"reason"`
}

// UpgradeRequest drives the two-step session upgrade. An empty body
// requests a challenge; a body carrying verification_id and code
// completes it.
type UpgradeRequest struct {
	VerificationID string `json:"verification_id"`
	Code           string `json:"code"`
}

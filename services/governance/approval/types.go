// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package approval

import (
	"errors"
	"time"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
)

// Decide errors. Neither is retried automatically; both are reported to
// the caller as-is.
var (
	// ErrNotFound indicates the approval request id does not exist.
	ErrNotFound = errors.New("approval request not found")

	// ErrInvalidTransition indicates the request is already terminal.
	// A double decision is rejected, never silently accepted.
	ErrInvalidTransition = errors.New("approval request is not pending")

	// ErrUnknownAction indicates no gate definition covers the action and
	// the requesting tier has no ungated grant for it. Unknown actions
	// fail closed: they neither execute nor create a pending request.
	ErrUnknownAction = errors.New("no approval policy for action")
)

// Status of an approval request. PENDING is the only non-terminal state;
// a request transitions out of it exactly once.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// Decision is an approver's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// Request is an in-flight or settled approval request. Once the status
// is terminal the record is immutable; the store only ever hands out
// copies.
type Request struct {
	ID             string               `json:"id"`
	Actor          string               `json:"actor"`
	Tier           identity.Tier        `json:"-"`
	TierName       string               `json:"tier"`
	Action         string               `json:"action"`
	Resource       string               `json:"resource"`
	Classification classification.Level `json:"classification"`
	Payload        map[string]string    `json:"payload,omitempty"`
	Status         Status               `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	DecidedAt      *time.Time           `json:"decided_at,omitempty"`
	DecidedBy      string               `json:"decided_by,omitempty"`
	DenyReason     string               `json:"deny_reason,omitempty"`
}

// SubmitResult is the outcome of Gate.Submit. Exactly one of the two
// shapes occurs: an ungated action reports Gated=false and carries no
// request; a gated action carries the freshly created pending request.
type SubmitResult struct {
	Gated   bool
	Request *Request
}

// GateDefinition is one gate parsed from the policy file, keyed by the
// action type it governs.
type GateDefinition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// ClassificationMinimum is the lowest classification at which this
	// gate engages. Actions on content below the minimum execute without
	// approval.
	ClassificationMinimum classification.Level `yaml:"classification_minimum"`

	// ExemptTiers may request the action without gating regardless of
	// classification. Rarely used; staff-facing deployments only.
	ExemptTiers []string `yaml:"exempt_tiers"`

	MinApprovals int `yaml:"min_approvals"`
	TimeoutHours int `yaml:"timeout_hours"`
}

// exempts reports whether the tier bypasses this gate.
func (g GateDefinition) exempts(tier identity.Tier) bool {
	for _, name := range g.ExemptTiers {
		if name == tier.String() {
			return true
		}
	}
	return false
}

// PolicyFile is the top-level structure of the approval policy YAML.
type PolicyFile struct {
	Gates map[string]GateDefinition `yaml:"gates"`
}

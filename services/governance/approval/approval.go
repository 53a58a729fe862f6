// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
)

// gateTracer is the OpenTelemetry tracer for approval gate operations.
var gateTracer = otel.Tracer("municipal.governance.approval")

// Gate decides whether sensitive actions execute immediately, wait for a
// human approver, or are rejected outright. Every submit and every
// decision is written to the audit trail; if the trail cannot be
// written, the operation itself fails.
//
// The decision table for Submit, in order:
//  1. The tier's capability table grants the action ungated: execute.
//  2. A gate definition covers the action and the content classification
//     is at or above the gate's minimum: create a PENDING request.
//  3. A gate definition covers the action but the classification is
//     below the minimum: execute.
//  4. No gate definition: ErrUnknownAction. Unknown actions fail closed.
type Gate struct {
	policy  *policySet
	store   RequestStore
	auditor audit.Logger
	done    chan struct{}
}

// Option configures a Gate at construction time.
type Option func(*Gate) error

// WithPolicyOverride replaces the embedded policy with the file at path
// and hot-reloads it on change.
func WithPolicyOverride(path string) Option {
	return func(g *Gate) error {
		raw, err := readPolicyFile(path)
		if err != nil {
			return err
		}
		gates, err := parsePolicy(raw)
		if err != nil {
			return fmt.Errorf("invalid approval policy override %s: %w", path, err)
		}
		g.policy.replace(gates)
		if err := g.policy.watchOverride(path, g.done); err != nil {
			return err
		}
		slog.Info("Using approval policy override", "path", path, "gates", len(gates))
		return nil
	}
}

// NewGate creates an approval gate over the given store and audit
// trail, loading the embedded policy unless an override option replaces
// it.
func NewGate(store RequestStore, auditor audit.Logger, opts ...Option) (*Gate, error) {
	policy, err := newPolicySet(embeddedPolicies)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded approval policy: %w", err)
	}
	g := &Gate{
		policy:  policy,
		store:   store,
		auditor: auditor,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Close stops the policy watcher, if any. The store and auditor are
// owned by the caller and are not closed here.
func (g *Gate) Close() {
	close(g.done)
}

// Submit routes an action through the gate table.
//
// # Description
//
// Evaluates the (action, classification, tier) triple against the tier
// capability table and the gate definitions, then either reports the
// action as ungated or creates a PENDING request for a human approver.
// The submit is audited in both cases before the result is returned; an
// audit failure aborts the submit.
//
// # Inputs
//   - ctx: Request context for cancellation and tracing.
//   - sessionID: Session the actor is operating under.
//   - actor: Stable actor identifier for the audit trail.
//   - tier: The actor's verified session tier.
//   - action: Action type, e.g. "export_case_file".
//   - resource: Identifier of the record the action targets.
//   - level: Classification of that record.
//   - payload: Action parameters carried on the pending request.
//
// # Outputs
//   - *SubmitResult: Gated=false when the action may execute now,
//     otherwise the pending request awaiting a decision.
//   - error: ErrUnknownAction for an action with no gate definition, or
//     a store/audit failure.
func (g *Gate) Submit(ctx context.Context, sessionID, actor string, tier identity.Tier,
	action, resource string, level classification.Level, payload map[string]string) (*SubmitResult, error) {

	ctx, span := gateTracer.Start(ctx, "Gate.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("approval.action", action),
		attribute.String("approval.tier", tier.String()),
		attribute.String("approval.classification", level.String()),
	)

	if tier.Ungated(action) {
		if err := g.auditSubmit(ctx, sessionID, actor, tier, action, resource, level, "ungated", ""); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "audit append failed")
			return nil, err
		}
		return &SubmitResult{Gated: false}, nil
	}

	def, ok := g.policy.gate(action)
	if !ok {
		span.SetStatus(codes.Error, "unknown action")
		// Best effort: record the rejection. A failure here changes
		// nothing, the action was never going to run.
		_ = g.auditSubmit(ctx, sessionID, actor, tier, action, resource, level, "unknown_action", "")
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	if def.exempts(tier) || level < def.ClassificationMinimum {
		if err := g.auditSubmit(ctx, sessionID, actor, tier, action, resource, level, "below_gate", ""); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "audit append failed")
			return nil, err
		}
		return &SubmitResult{Gated: false}, nil
	}

	req := &Request{
		ID:             uuid.New().String(),
		Actor:          actor,
		Tier:           tier,
		TierName:       tier.String(),
		Action:         action,
		Resource:       resource,
		Classification: level,
		Payload:        payload,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := g.store.Create(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store create failed")
		return nil, err
	}
	if err := g.auditSubmit(ctx, sessionID, actor, tier, action, resource, level, "gated", req.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit append failed")
		// No audit, no action: an unaudited request must not sit in the
		// queue where an approver could later settle it.
		if rollback := g.store.Delete(ctx, req.ID); rollback != nil {
			slog.Error("Failed to roll back unaudited approval request",
				"request_id", req.ID, "error", rollback)
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("approval.request_id", req.ID))
	slog.Info("Approval request created",
		"request_id", req.ID, "action", action, "classification", level.String(), "actor", actor)
	return &SubmitResult{Gated: true, Request: req}, nil
}

// Decide settles a pending request.
//
// # Description
//
// Moves exactly one PENDING request to APPROVED or DENIED. The
// transition is a compare-and-set in the store, so concurrent decisions
// on the same request resolve to one winner; the loser receives
// ErrInvalidTransition. The decision is audited after the transition
// commits; if the audit append fails the caller gets an error and must
// treat the decision as unconfirmed.
//
// # Inputs
//   - ctx: Request context.
//   - id: The request id returned from Submit.
//   - decision: DecisionApprove or DecisionDeny.
//   - decidedBy: Approver identifier for the record and the trail.
//   - reason: Free-text rationale, recorded on denials.
//
// # Outputs
//   - *Request: The settled request.
//   - error: ErrNotFound, ErrInvalidTransition, or a store/audit failure.
func (g *Gate) Decide(ctx context.Context, id string, decision Decision, decidedBy, reason string) (*Request, error) {
	ctx, span := gateTracer.Start(ctx, "Gate.Decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("approval.request_id", id),
		attribute.String("approval.decision", string(decision)),
	)

	status := StatusDenied
	if decision == DecisionApprove {
		status = StatusApproved
	}

	req, err := g.store.Transition(ctx, id, status, decidedBy, reason, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		return nil, err
	}

	outcome := audit.OutcomeSuccess
	if status == StatusDenied {
		outcome = audit.OutcomeDenied
	}
	event := audit.NewEvent("", decidedBy, "", "approval_decide", req.Resource, req.Classification, outcome)
	event.Details = map[string]string{
		"request_id": req.ID,
		"action":     req.Action,
		"decision":   string(decision),
		"requester":  req.Actor,
	}
	if reason != "" {
		event.Details["reason"] = reason
	}
	if _, err := g.auditor.Append(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit append failed")
		return nil, fmt.Errorf("decision for %s recorded but not audited: %w", id, err)
	}
	slog.Info("Approval request decided",
		"request_id", req.ID, "status", string(req.Status), "decided_by", decidedBy)
	return req, nil
}

// Get returns the request by id, or ErrNotFound.
func (g *Gate) Get(ctx context.Context, id string) (*Request, error) {
	return g.store.Get(ctx, id)
}

// Pending returns all pending requests, newest first.
func (g *Gate) Pending(ctx context.Context) ([]*Request, error) {
	return g.store.List(ctx, StatusPending)
}

// List returns requests filtered by status; an empty status matches all.
func (g *Gate) List(ctx context.Context, status Status) ([]*Request, error) {
	return g.store.List(ctx, status)
}

func (g *Gate) auditSubmit(ctx context.Context, sessionID, actor string, tier identity.Tier,
	action, resource string, level classification.Level, route, requestID string) error {

	outcome := audit.OutcomeSuccess
	if route == "unknown_action" {
		outcome = audit.OutcomeDenied
	}
	event := audit.NewEvent(sessionID, actor, tier.String(), "approval_submit", resource, level, outcome)
	event.Details = map[string]string{"action": action, "route": route}
	if requestID != "" {
		event.Details["request_id"] = requestID
	}
	if _, err := g.auditor.Append(ctx, event); err != nil {
		return fmt.Errorf("submit of %s not audited: %w", action, err)
	}
	return nil
}

// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package audit provides the append-only governance trail.
//
// Every retrieval, approval submission and decision, tier upgrade, and
// classification-denied access produces exactly one audit entry. The store
// exposes append and read operations only: no update or delete exists at
// any layer, so immutability is an API-surface guarantee rather than a
// convention.
//
// Entries are hash-chained: each entry's hash covers the previous entry's
// hash, so altering any stored entry breaks the chain for everything after
// it. Sequence numbers are strictly increasing and totally order the trail.
//
// The strongest contract in the system lives here: if an append fails, the
// governed action it documents must not be reported complete. Callers
// treat a non-nil Append error as failure of the operation itself.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/google/uuid"
)

// ErrAuditUnavailable indicates the trail could not be written. The
// governed operation must fail; "no audit, no action".
var ErrAuditUnavailable = errors.New("audit trail unavailable")

// Outcome records how a governed operation concluded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeRefused Outcome = "refused"
	OutcomeError   Outcome = "error"
)

// Event is the caller-supplied description of a governed action. The
// store assigns the sequence number and hash chain on append.
type Event struct {
	EventID        string               `json:"event_id"`
	Timestamp      time.Time            `json:"timestamp"`
	SessionID      string               `json:"session_id"`
	Actor          string               `json:"actor"`
	Tier           string               `json:"tier"`
	Action         string               `json:"action"`
	Resource       string               `json:"resource"`
	Classification classification.Level `json:"classification"`
	Outcome        Outcome              `json:"outcome"`
	Details        map[string]string    `json:"details,omitempty"`
}

// NewEvent builds an Event with a fresh ID and timestamp. The zero
// Details map is left nil; callers add detail pairs as needed.
func NewEvent(sessionID, actor, tier, action, resource string,
	level classification.Level, outcome Outcome) Event {
	return Event{
		EventID:        uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		SessionID:      sessionID,
		Actor:          actor,
		Tier:           tier,
		Action:         action,
		Resource:       resource,
		Classification: level,
		Outcome:        outcome,
	}
}

// Entry is an event as stored: sequenced and chained. Entries returned
// from Query are copies; mutating them does not affect the trail.
type Entry struct {
	Sequence     uint64 `json:"sequence"`
	PreviousHash string `json:"previous_hash"`
	EntryHash    string `json:"entry_hash"`
	Event        Event  `json:"event"`
}

// Filter selects entries on Query. Zero-value fields match everything.
type Filter struct {
	Actor          string
	Action         string
	Resource       string
	SessionID      string
	Classification classification.Level // zero means any
	After          time.Time
	Before         time.Time
}

// matches reports whether the entry satisfies every set filter field.
func (f Filter) matches(e Entry) bool {
	if f.Actor != "" && e.Event.Actor != f.Actor {
		return false
	}
	if f.Action != "" && e.Event.Action != f.Action {
		return false
	}
	if f.Resource != "" && e.Event.Resource != f.Resource {
		return false
	}
	if f.SessionID != "" && e.Event.SessionID != f.SessionID {
		return false
	}
	if f.Classification != 0 && e.Event.Classification != f.Classification {
		return false
	}
	if !f.After.IsZero() && !e.Event.Timestamp.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !e.Event.Timestamp.Before(f.Before) {
		return false
	}
	return true
}

// Logger is the append-only audit store contract.
//
// # Thread Safety
//
// Implementations serialize Append internally: sequence numbers are
// strictly increasing across concurrent appenders and the hash chain
// never forks.
type Logger interface {
	// Append writes one entry and returns its sequence number. A non-nil
	// error means the entry was not durably recorded and the governed
	// operation must be reported as failed.
	Append(ctx context.Context, event Event) (uint64, error)

	// Query returns copies of matching entries in sequence order.
	Query(ctx context.Context, filter Filter) ([]Entry, error)

	// VerifyChain recomputes every hash in the trail and reports whether
	// the chain is intact.
	VerifyChain(ctx context.Context) (bool, error)

	// Close releases store resources. Appended entries are retained.
	Close() error
}

// genesisHash seeds the chain before the first entry.
func genesisHash() string {
	sum := sha256.Sum256([]byte("municipal-genesis"))
	return hex.EncodeToString(sum[:])
}

// chainHash computes SHA-256(previousHash || eventJSON).
func chainHash(previousHash string, eventJSON []byte) string {
	h := sha256.New()
	h.Write([]byte(previousHash))
	h.Write(eventJSON)
	return hex.EncodeToString(h.Sum(nil))
}

// cloneDetails copies the detail map. Entries must never alias a map the
// caller still holds, or the trail becomes mutable from outside.
func cloneDetails(details map[string]string) map[string]string {
	if details == nil {
		return nil
	}
	cp := make(map[string]string, len(details))
	for k, v := range details {
		cp[k] = v
	}
	return cp
}

// sealEntry produces the chained entry for an event at a given position.
func sealEntry(event Event, sequence uint64, previousHash string) (Entry, error) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal audit event: %w", err)
	}
	event.Details = cloneDetails(event.Details)
	return Entry{
		Sequence:     sequence,
		PreviousHash: previousHash,
		EntryHash:    chainHash(previousHash, eventJSON),
		Event:        event,
	}, nil
}

// verifyEntries walks entries in order and recomputes the chain.
func verifyEntries(entries []Entry) bool {
	previous := genesisHash()
	for _, entry := range entries {
		if entry.PreviousHash != previous {
			return false
		}
		eventJSON, err := json.Marshal(entry.Event)
		if err != nil {
			return false
		}
		if chainHash(previous, eventJSON) != entry.EntryHash {
			return false
		}
		previous = entry.EntryHash
	}
	return true
}

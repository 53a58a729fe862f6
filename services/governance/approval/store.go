// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package approval

import (
	"context"
	"sort"
	"sync"
	"time"
)

// RequestStore persists approval requests across the pending -> terminal
// state machine. Transition is a compare-and-set: it succeeds only when
// the stored request is still PENDING, so two racing approvers cannot
// both decide the same request.
type RequestStore interface {
	// Create persists a new request. The request must be PENDING.
	Create(ctx context.Context, req *Request) error

	// Get returns a copy of the request, or ErrNotFound.
	Get(ctx context.Context, id string) (*Request, error)

	// Transition atomically moves a PENDING request to a terminal
	// status. Returns ErrNotFound for an unknown id and
	// ErrInvalidTransition when the request has already been decided.
	Transition(ctx context.Context, id string, status Status, decidedBy, reason string, decidedAt time.Time) (*Request, error)

	// List returns requests matching the status filter, newest first.
	// An empty status matches everything.
	List(ctx context.Context, status Status) ([]*Request, error)

	// Delete removes a request. Only used to roll back a request whose
	// submission could not be audited; decided requests are never
	// deleted.
	Delete(ctx context.Context, id string) error

	Close() error
}

// ====== In-Memory Store ======

// MemoryStore keeps approval requests in process memory. It exists for
// tests and for the lightweight deployment mode where no durable store
// is configured.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*Request
}

// NewMemoryStore creates an empty in-memory request store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*Request)}
}

func (s *MemoryStore) Create(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) Transition(_ context.Context, id string, status Status, decidedBy, reason string, decidedAt time.Time) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status.Terminal() {
		return nil, ErrInvalidTransition
	}
	req.Status = status
	req.DecidedBy = decidedBy
	req.DenyReason = reason
	at := decidedAt
	req.DecidedAt = &at
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, status Status) ([]*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Request, 0, len(s.requests))
	for _, req := range s.requests {
		if status != "" && req.Status != status {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(s.requests, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

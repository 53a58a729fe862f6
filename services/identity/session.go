// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package identity

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound indicates the session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// Session is a chat session bound to a tier. The tier only ever moves
// up, one step at a time, through the upgrade service.
type Session struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Tier      Tier      `json:"-"`
	TierName  string    `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionManager tracks live sessions in process memory. Sessions are
// ephemeral; a restart starts everyone over at Anonymous, which is the
// safe direction to fail.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty session table.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Create starts a new session for the actor at the given tier and
// returns a copy of it.
func (m *SessionManager) Create(actor string, tier Tier) *Session {
	if !tier.Valid() {
		tier = Anonymous
	}
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.New().String(),
		Actor:     actor,
		Tier:      tier,
		TierName:  tier.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	cp := *s
	return &cp
}

// Get returns a copy of the session, or ErrSessionNotFound.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// setTier moves the session to a new tier. Only the upgrade service
// calls this, and only along the single-step upgrade path.
func (m *SessionManager) setTier(id string, tier Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Tier = tier
	s.TierName = tier.String()
	s.UpdatedAt = time.Now().UTC()
	return nil
}

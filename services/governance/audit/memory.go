// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"context"
	"sync"
)

// MemoryLogger is an in-process audit store. It is the backend for unit
// tests and for lightweight mode, where no badger directory is configured.
// Appends are serialized under a single mutex, which both assigns the
// strictly increasing sequence and keeps the hash chain linear.
type MemoryLogger struct {
	mu       sync.Mutex
	entries  []Entry
	lastHash string
	nextSeq  uint64
	closed   bool
}

// Compile-time interface implementation check.
var _ Logger = (*MemoryLogger)(nil)

// NewMemoryLogger returns an empty in-memory trail.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{
		lastHash: genesisHash(),
		nextSeq:  1,
	}
}

// Append implements Logger.
func (m *MemoryLogger) Append(ctx context.Context, event Event) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrAuditUnavailable
	}

	entry, err := sealEntry(event, m.nextSeq, m.lastHash)
	if err != nil {
		return 0, err
	}

	m.entries = append(m.entries, entry)
	m.lastHash = entry.EntryHash
	m.nextSeq++
	return entry.Sequence, nil
}

// Query implements Logger. Returned entries are copies.
func (m *MemoryLogger) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, entry := range m.entries {
		if filter.matches(entry) {
			entry.Event.Details = cloneDetails(entry.Event.Details)
			out = append(out, entry)
		}
	}
	return out, nil
}

// VerifyChain implements Logger.
func (m *MemoryLogger) VerifyChain(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return verifyEntries(m.entries), nil
}

// Close implements Logger. Entries already appended remain queryable only
// until the process exits; the memory backend makes no durability claim.
func (m *MemoryLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of entries in the trail. Test helper.
func (m *MemoryLogger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

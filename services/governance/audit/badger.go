// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key layout inside badger. Entries are keyed by big-endian sequence so
// lexicographic iteration order equals sequence order.
var (
	entryKeyPrefix = []byte("audit/entry/")
	metaKey        = []byte("audit/meta")
)

// chainMeta is the persisted chain head.
type chainMeta struct {
	LastSequence uint64 `json:"last_sequence"`
	LastHash     string `json:"last_hash"`
}

// BadgerLogger is the durable audit backend, storing chained entries in
// an embedded BadgerDB. Appends run under a single mutex and a single
// transaction writing both the entry and the chain head, so there is no
// read-then-write race between concurrent appenders: sequence numbers are
// assigned transactionally and the chain never forks.
type BadgerLogger struct {
	mu   sync.Mutex
	db   *badger.DB
	meta chainMeta
}

// Compile-time interface implementation check.
var _ Logger = (*BadgerLogger)(nil)

// OpenBadgerLogger opens (or creates) the durable trail at path. Sync
// writes are enabled: an acknowledged append has reached disk.
//
// # Inputs
//
//   - path: Directory for the badger files. Created if absent.
//
// # Outputs
//
//   - *BadgerLogger: Ready store. Caller must Close() on shutdown.
//   - error: Non-nil if the directory cannot be opened or the recovered
//     chain head is unreadable.
func OpenBadgerLogger(path string) (*BadgerLogger, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithLogger(nil)
	return openBadgerLogger(opts)
}

// OpenBadgerLoggerInMemory opens a non-durable badger-backed trail.
// Used by tests that exercise the badger code path without disk I/O.
func OpenBadgerLoggerInMemory() (*BadgerLogger, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	return openBadgerLogger(opts)
}

func openBadgerLogger(opts badger.Options) (*BadgerLogger, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}

	logger := &BadgerLogger{
		db:   db,
		meta: chainMeta{LastSequence: 0, LastHash: genesisHash()},
	}

	// Recover the chain head from a previous run.
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &logger.meta)
		})
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to recover audit chain head: %w", err)
	}

	slog.Info("Audit store opened",
		"last_sequence", logger.meta.LastSequence,
		"in_memory", opts.InMemory)
	return logger, nil
}

func entryKey(sequence uint64) []byte {
	key := make([]byte, len(entryKeyPrefix)+8)
	copy(key, entryKeyPrefix)
	binary.BigEndian.PutUint64(key[len(entryKeyPrefix):], sequence)
	return key
}

// Append implements Logger.
func (b *BadgerLogger) Append(ctx context.Context, event Event) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sequence := b.meta.LastSequence + 1
	entry, err := sealEntry(event, sequence, b.meta.LastHash)
	if err != nil {
		return 0, err
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	newMeta := chainMeta{LastSequence: sequence, LastHash: entry.EntryHash}
	metaJSON, err := json.Marshal(newMeta)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal audit chain head: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(entryKey(sequence), entryJSON); err != nil {
			return err
		}
		return txn.Set(metaKey, metaJSON)
	})
	if err != nil {
		// The entry was not durably recorded: the governed operation must
		// fail. Surface the sentinel so callers can map it to 503.
		return 0, fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}

	b.meta = newMeta
	return sequence, nil
}

// Query implements Logger. Entries are decoded fresh from storage; the
// caller receives copies.
func (b *BadgerLogger) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Entry
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         entryKeyPrefix,
			PrefetchValues: true,
			PrefetchSize:   100,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			if filter.matches(entry) {
				out = append(out, entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit query failed: %w", err)
	}
	return out, nil
}

// VerifyChain implements Logger.
func (b *BadgerLogger) VerifyChain(ctx context.Context) (bool, error) {
	entries, err := b.Query(ctx, Filter{})
	if err != nil {
		return false, err
	}
	return verifyEntries(entries), nil
}

// Close implements Logger.
func (b *BadgerLogger) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}

// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const requestKeyPrefix = "approval/req/"

// BadgerStore is the durable request store. The pending -> terminal
// compare-and-set runs inside a single Badger transaction, so two
// racing deciders serialize on the key and the loser sees a terminal
// status.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens or creates a Badger-backed request store at the
// given path. SyncWrites is on: a decided request must survive a crash.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open approval store at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// OpenBadgerStoreInMemory opens an ephemeral store for tests.
func OpenBadgerStoreInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory approval store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func requestKey(id string) []byte {
	return []byte(requestKeyPrefix + id)
}

func (s *BadgerStore) Create(_ context.Context, req *Request) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal approval request: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(requestKey(req.ID), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to persist approval request %s: %w", req.ID, err)
	}
	return nil
}

func (s *BadgerStore) Get(_ context.Context, id string) (*Request, error) {
	var req Request
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(requestKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &req)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load approval request %s: %w", id, err)
	}
	return &req, nil
}

func (s *BadgerStore) Transition(_ context.Context, id string, status Status, decidedBy, reason string, decidedAt time.Time) (*Request, error) {
	var req Request
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(requestKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &req)
		}); err != nil {
			return err
		}
		if req.Status.Terminal() {
			return ErrInvalidTransition
		}
		req.Status = status
		req.DecidedBy = decidedBy
		req.DenyReason = reason
		at := decidedAt
		req.DecidedAt = &at
		raw, err := json.Marshal(&req)
		if err != nil {
			return err
		}
		return txn.Set(requestKey(id), raw)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if errors.Is(err, ErrInvalidTransition) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decide approval request %s: %w", id, err)
	}
	return &req, nil
}

func (s *BadgerStore) List(_ context.Context, status Status) ([]*Request, error) {
	var out []*Request
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(requestKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var req Request
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &req)
			}); err != nil {
				return err
			}
			if status != "" && req.Status != status {
				continue
			}
			out = append(out, &req)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list approval requests: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *BadgerStore) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(requestKey(id)); err != nil {
			return err
		}
		return txn.Delete(requestKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete approval request %s: %w", id, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

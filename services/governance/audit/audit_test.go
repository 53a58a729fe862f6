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
	"testing"
	"time"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loggersUnderTest returns one constructor per backend so every invariant
// is checked against both implementations.
func loggersUnderTest(t *testing.T) map[string]func(t *testing.T) Logger {
	return map[string]func(t *testing.T) Logger{
		"memory": func(t *testing.T) Logger {
			return NewMemoryLogger()
		},
		"badger": func(t *testing.T) Logger {
			logger, err := OpenBadgerLoggerInMemory()
			require.NoError(t, err)
			return logger
		},
	}
}

func sampleEvent(actor, action string) Event {
	event := NewEvent("sess-1", actor, "verified", action, "doc-42",
		classification.Internal, OutcomeSuccess)
	return event
}

func TestAppendAssignsStrictlyIncreasingSequences(t *testing.T) {
	for name, newLogger := range loggersUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			logger := newLogger(t)
			defer logger.Close()
			ctx := context.Background()

			var last uint64
			for i := 0; i < 20; i++ {
				seq, err := logger.Append(ctx, sampleEvent("resident-7", "retrieval"))
				require.NoError(t, err)
				assert.Greater(t, seq, last, "sequence must strictly increase")
				last = seq
			}
		})
	}
}

func TestConcurrentAppendersNeverCollide(t *testing.T) {
	for name, newLogger := range loggersUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			logger := newLogger(t)
			defer logger.Close()
			ctx := context.Background()

			const writers = 8
			const perWriter = 25

			var wg sync.WaitGroup
			seqs := make(chan uint64, writers*perWriter)
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						seq, err := logger.Append(ctx, sampleEvent("writer", "retrieval"))
						if err != nil {
							t.Error(err)
							return
						}
						seqs <- seq
					}
				}(w)
			}
			wg.Wait()
			close(seqs)

			seen := make(map[uint64]bool)
			for seq := range seqs {
				assert.False(t, seen[seq], "sequence %d assigned twice", seq)
				seen[seq] = true
			}
			assert.Len(t, seen, writers*perWriter)

			ok, err := logger.VerifyChain(ctx)
			require.NoError(t, err)
			assert.True(t, ok, "chain must stay intact under concurrent appends")
		})
	}
}

func TestQueryFilters(t *testing.T) {
	for name, newLogger := range loggersUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			logger := newLogger(t)
			defer logger.Close()
			ctx := context.Background()

			_, err := logger.Append(ctx, sampleEvent("alice", "retrieval"))
			require.NoError(t, err)
			_, err = logger.Append(ctx, sampleEvent("bob", "retrieval"))
			require.NoError(t, err)
			denied := sampleEvent("alice", "retrieval")
			denied.Outcome = OutcomeDenied
			denied.Classification = classification.Restricted
			_, err = logger.Append(ctx, denied)
			require.NoError(t, err)

			byActor, err := logger.Query(ctx, Filter{Actor: "alice"})
			require.NoError(t, err)
			assert.Len(t, byActor, 2)

			byClass, err := logger.Query(ctx, Filter{Classification: classification.Restricted})
			require.NoError(t, err)
			assert.Len(t, byClass, 1)

			before, err := logger.Query(ctx, Filter{Before: time.Now().Add(-time.Hour)})
			require.NoError(t, err)
			assert.Empty(t, before)

			all, err := logger.Query(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			for i := 1; i < len(all); i++ {
				assert.Greater(t, all[i].Sequence, all[i-1].Sequence,
					"query results must come back in sequence order")
			}
		})
	}
}

// TestEntriesAreImmutableCopies verifies that mutating a queried entry
// does not change what the store returns afterwards.
func TestEntriesAreImmutableCopies(t *testing.T) {
	for name, newLogger := range loggersUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			logger := newLogger(t)
			defer logger.Close()
			ctx := context.Background()

			_, err := logger.Append(ctx, sampleEvent("alice", "retrieval"))
			require.NoError(t, err)

			first, err := logger.Query(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, first, 1)

			first[0].Event.Actor = "mallory"
			first[0].EntryHash = "forged"

			second, err := logger.Query(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, second, 1)
			assert.Equal(t, "alice", second[0].Event.Actor)
			assert.NotEqual(t, "forged", second[0].EntryHash)
		})
	}
}

func TestDetailMapsNeverAliasTheTrail(t *testing.T) {
	for name, newLogger := range loggersUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			logger := newLogger(t)
			defer logger.Close()
			ctx := context.Background()

			event := sampleEvent("alice", "retrieval")
			event.Details = map[string]string{"confidence": "0.9"}
			_, err := logger.Append(ctx, event)
			require.NoError(t, err)

			// Mutating the map the caller retained must not reach the trail.
			event.Details["confidence"] = "FORGED"

			first, err := logger.Query(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, first, 1)
			assert.Equal(t, "0.9", first[0].Event.Details["confidence"])

			// Mutating a queried copy's map must not reach it either.
			first[0].Event.Details["confidence"] = "FORGED"

			second, err := logger.Query(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, second, 1)
			assert.Equal(t, "0.9", second[0].Event.Details["confidence"])

			ok, err := logger.VerifyChain(ctx)
			require.NoError(t, err)
			assert.True(t, ok, "chain must stay intact after caller-side mutation")
		})
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	logger := NewMemoryLogger()
	defer logger.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := logger.Append(ctx, sampleEvent("alice", "retrieval"))
		require.NoError(t, err)
	}

	ok, err := logger.VerifyChain(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Reach inside the memory backend and corrupt one stored event.
	logger.mu.Lock()
	logger.entries[2].Event.Resource = "doc-666"
	logger.mu.Unlock()

	ok, err = logger.VerifyChain(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "tampered trail must fail verification")
}

func TestAppendAfterCloseFails(t *testing.T) {
	logger := NewMemoryLogger()
	require.NoError(t, logger.Close())

	_, err := logger.Append(context.Background(), sampleEvent("alice", "retrieval"))
	assert.ErrorIs(t, err, ErrAuditUnavailable)
}

func TestBadgerChainSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	logger, err := OpenBadgerLogger(dir)
	require.NoError(t, err)
	ctx := context.Background()

	seq1, err := logger.Append(ctx, sampleEvent("alice", "retrieval"))
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	reopened, err := OpenBadgerLogger(dir)
	require.NoError(t, err)
	defer reopened.Close()

	seq2, err := reopened.Append(ctx, sampleEvent("bob", "retrieval"))
	require.NoError(t, err)
	assert.Greater(t, seq2, seq1, "sequence must continue across restarts")

	ok, err := reopened.VerifyChain(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "chain must link across restarts")
}

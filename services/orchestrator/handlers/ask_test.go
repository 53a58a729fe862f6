// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/datatypes"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/rag"
)

func TestHandleAsk_AnswersWithCitations(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{
		reply: "Quiet hours run from 10pm to 7am. [Source: Noise]",
	})
	env.seedOrdinance(t)

	w := env.do(t, "POST", "/v1/ask", "anonymous", datatypes.AskRequest{
		Question: "When are quiet hours?",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	answer, ok := body["answer"].(map[string]any)
	require.True(t, ok, "response missing answer object")
	assert.Contains(t, answer["answer"], "10pm to 7am")
	assert.Equal(t, false, answer["low_confidence"])
	assert.NotEmpty(t, answer["citations"])
}

func TestHandleAsk_EmptyIndexRefuses(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{reply: "never called"})

	w := env.do(t, "POST", "/v1/ask", "anonymous", datatypes.AskRequest{
		Question: "When are quiet hours?",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	answer := body["answer"].(map[string]any)
	assert.Equal(t, true, answer["low_confidence"])
	assert.Equal(t, rag.RefusalAnswer, answer["answer"])
}

func TestHandleAsk_MissingQuestion(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{reply: "unused"})

	w := env.do(t, "POST", "/v1/ask", "anonymous", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAsk_ManagedSessionTierWinsOverHeader(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{reply: "no sources cited here"})
	session := env.sessions.Create("resident-42", identity.Verified)

	// The header claims anonymous, but the managed session's stored
	// tier must win.
	w := env.doWithSession(t, "POST", "/v1/ask", "anonymous", session.ID, datatypes.AskRequest{
		Question: "Anything on file?",
	})
	require.Equal(t, http.StatusOK, w.Code)

	entries, err := env.auditor.Query(context.Background(), audit.Filter{SessionID: session.ID})
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "verified", entries[len(entries)-1].Event.Tier)
}

func TestHandleAsk_EveryAskIsAudited(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{reply: "uncited rambling"})

	w := env.do(t, "POST", "/v1/ask", "verified", datatypes.AskRequest{
		Question: "What is the leash law?",
	})
	require.Equal(t, http.StatusOK, w.Code)

	entries, err := env.auditor.Query(context.Background(), audit.Filter{Action: "ask_question"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
